package script

// Node is a syntax tree node. Trees are immutable once produced by a parse;
// every node carries the source range it covers, normalized to 0-based
// coordinates.
type Node interface {
	// Span returns the source range the node covers.
	Span() Range
	// Children returns the node's direct children in source order.
	Children() []Node
}

// Tree is the parsed form of one document.
type Tree struct {
	Statements []Node
}

// Children returns the top-level statements.
func (t *Tree) Children() []Node {
	return t.Statements
}

// Ident is a bare identifier.
type Ident struct {
	Name  string
	Range Range
}

func (n *Ident) Span() Range      { return n.Range }
func (n *Ident) Children() []Node { return nil }

// MemberExpr is an object.member access.
type MemberExpr struct {
	Object *Ident
	Member *Ident
	Range  Range
}

func (n *MemberExpr) Span() Range      { return n.Range }
func (n *MemberExpr) Children() []Node { return []Node{n.Object, n.Member} }

// StringLit is a quoted string literal. Value holds the unquoted text.
type StringLit struct {
	Value string
	Range Range
}

func (n *StringLit) Span() Range      { return n.Range }
func (n *StringLit) Children() []Node { return nil }

// NumberLit is a numeric literal kept in source form.
type NumberLit struct {
	Raw   string
	Range Range
}

func (n *NumberLit) Span() Range      { return n.Range }
func (n *NumberLit) Children() []Node { return nil }

// BoolLit is a true/false literal.
type BoolLit struct {
	Value bool
	Range Range
}

func (n *BoolLit) Span() Range      { return n.Range }
func (n *BoolLit) Children() []Node { return nil }

// CallExpr is a function call. Target is either *Ident (global function) or
// *MemberExpr (object member). Args are the argument expressions in order.
type CallExpr struct {
	Target Node
	Args   []Node
	Range  Range
}

func (n *CallExpr) Span() Range { return n.Range }

func (n *CallExpr) Children() []Node {
	children := make([]Node, 0, len(n.Args)+1)
	children = append(children, n.Target)
	children = append(children, n.Args...)
	return children
}

// TargetName splits the call target into an optional object name and the
// callee name. For a bare identifier the object is empty.
func (n *CallExpr) TargetName() (object, name string, ok bool) {
	switch t := n.Target.(type) {
	case *Ident:
		return "", t.Name, true
	case *MemberExpr:
		return t.Object.Name, t.Member.Name, true
	default:
		return "", "", false
	}
}

// ConstValue extracts a literal or symbolic-constant value from an argument
// expression for enum membership checks. A bare identifier is treated as a
// symbolic constant. Returns false for anything else (nested calls, member
// accesses); those cannot be checked statically.
func ConstValue(n Node) (string, bool) {
	switch v := n.(type) {
	case *StringLit:
		return v.Value, true
	case *NumberLit:
		return v.Raw, true
	case *BoolLit:
		if v.Value {
			return "true", true
		}
		return "false", true
	case *Ident:
		return v.Name, true
	default:
		return "", false
	}
}
