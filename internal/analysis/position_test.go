package analysis

import (
	"context"
	"testing"

	"github.com/Strob0t/ScriptForge/internal/adapter/fscript"
	"github.com/Strob0t/ScriptForge/internal/domain/script"
)

// mustParse runs the real grammar so node spans match production exactly.
func mustParse(t *testing.T, src string) *script.Tree {
	t.Helper()
	result, err := fscript.New().Parse(context.Background(), src)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	return result.Tree
}

func pos(line, char int) script.Position {
	return script.Position{Line: line, Character: char}
}

func TestFindNodeAtDeepest(t *testing.T) {
	tree := mustParse(t, `copy_file("a.txt", "b.txt")`)

	node := FindNodeAt(tree, pos(0, 12))
	lit, ok := node.(*script.StringLit)
	if !ok {
		t.Fatalf("node at arg = %T, want *script.StringLit", node)
	}
	if lit.Value != "a.txt" {
		t.Errorf("value = %q, want a.txt", lit.Value)
	}
}

func TestFindNodeAtTargetName(t *testing.T) {
	tree := mustParse(t, `copy_file("a.txt", "b.txt")`)

	node := FindNodeAt(tree, pos(0, 4))
	ident, ok := node.(*script.Ident)
	if !ok {
		t.Fatalf("node at callee = %T, want *script.Ident", node)
	}
	if ident.Name != "copy_file" {
		t.Errorf("name = %q, want copy_file", ident.Name)
	}
}

func TestFindNodeAtOutsideTree(t *testing.T) {
	tree := mustParse(t, `copy_file("a.txt", "b.txt")`)

	if node := FindNodeAt(tree, pos(5, 0)); node != nil {
		t.Errorf("node past end of file = %v, want nil", node)
	}
}

func TestNodePathOrder(t *testing.T) {
	tree := mustParse(t, `print(join("a", "b"))`)

	// Cursor inside the inner "a" literal.
	path := NodePath(tree, pos(0, 13))
	if len(path) != 3 {
		t.Fatalf("path length = %d, want 3", len(path))
	}
	if _, ok := path[0].(*script.CallExpr); !ok {
		t.Errorf("path[0] = %T, want outer *script.CallExpr", path[0])
	}
	if _, ok := path[1].(*script.CallExpr); !ok {
		t.Errorf("path[1] = %T, want inner *script.CallExpr", path[1])
	}
	if _, ok := path[2].(*script.StringLit); !ok {
		t.Errorf("path[2] = %T, want *script.StringLit", path[2])
	}
}

func TestNodePathPicksCorrectStatement(t *testing.T) {
	tree := mustParse(t, "print(\"x\")\nset_mode(\"AUTO\")")

	node := FindNodeAt(tree, pos(1, 11))
	lit, ok := node.(*script.StringLit)
	if !ok {
		t.Fatalf("node = %T, want *script.StringLit", node)
	}
	if lit.Value != "AUTO" {
		t.Errorf("value = %q, want AUTO", lit.Value)
	}
}
