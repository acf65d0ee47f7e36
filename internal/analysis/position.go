// Package analysis implements the cursor-context resolution and validation
// engine: position-to-node resolution, semantic validation of calls against
// the API specification, and the two cursor-context strategies (tree-based
// and line-scan fallback).
package analysis

import (
	"github.com/Strob0t/ScriptForge/internal/domain/script"
)

// FindNodeAt returns the deepest node whose span contains pos, or nil when
// the position lies outside the tree entirely (e.g. past end of file).
func FindNodeAt(tree *script.Tree, pos script.Position) script.Node {
	path := NodePath(tree, pos)
	if len(path) == 0 {
		return nil
	}
	return path[len(path)-1]
}

// NodePath returns the chain of containing nodes from outermost to the
// deepest node whose span contains pos. Children of a containing node are
// always tried, but a non-containing sibling never overrides a match.
func NodePath(tree *script.Tree, pos script.Position) []script.Node {
	for _, stmt := range tree.Statements {
		if path := descend(stmt, pos, nil); path != nil {
			return path
		}
	}
	return nil
}

// descend recurses into n if its span contains pos, extending path with every
// containing node on the way down.
func descend(n script.Node, pos script.Position, path []script.Node) []script.Node {
	if n == nil || !n.Span().Contains(pos) {
		return nil
	}
	path = append(path, n)
	for _, child := range n.Children() {
		if deeper := descend(child, pos, path); deeper != nil {
			return deeper
		}
	}
	return path
}
