package fscript

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Strob0t/ScriptForge/internal/domain/script"
	"github.com/Strob0t/ScriptForge/internal/port/grammar"
)

func parse(t *testing.T, src string) grammar.Result {
	t.Helper()
	result, err := New().Parse(context.Background(), src)
	if err != nil {
		t.Fatalf("Parse(%q) = %v", src, err)
	}
	return result
}

func onlyCall(t *testing.T, result grammar.Result) *script.CallExpr {
	t.Helper()
	if n := len(result.Tree.Statements); n != 1 {
		t.Fatalf("statements = %d, want 1", n)
	}
	call, ok := result.Tree.Statements[0].(*script.CallExpr)
	if !ok {
		t.Fatalf("statement = %T, want *script.CallExpr", result.Tree.Statements[0])
	}
	return call
}

func TestParseSimpleCall(t *testing.T) {
	result := parse(t, `copy_file("a.txt", "b.txt")`)
	if len(result.Diagnostics) != 0 {
		t.Fatalf("diagnostics = %v, want none", result.Diagnostics)
	}

	call := onlyCall(t, result)
	if _, name, _ := call.TargetName(); name != "copy_file" {
		t.Errorf("callee = %q, want copy_file", name)
	}
	if len(call.Args) != 2 {
		t.Fatalf("args = %d, want 2", len(call.Args))
	}
	lit, ok := call.Args[0].(*script.StringLit)
	if !ok || lit.Value != "a.txt" {
		t.Errorf("arg 0 = %#v, want StringLit a.txt", call.Args[0])
	}

	want := script.Range{Start: script.Position{Line: 0, Character: 0}, End: script.Position{Line: 0, Character: 27}}
	if call.Range != want {
		t.Errorf("call range = %+v, want %+v", call.Range, want)
	}
}

func TestParseMemberCall(t *testing.T) {
	result := parse(t, `timer.start(5)`)
	call := onlyCall(t, result)

	object, name, ok := call.TargetName()
	if !ok || object != "timer" || name != "start" {
		t.Fatalf("target = %q.%q (ok %v), want timer.start", object, name, ok)
	}
	num, ok := call.Args[0].(*script.NumberLit)
	if !ok || num.Raw != "5" {
		t.Errorf("arg 0 = %#v, want NumberLit 5", call.Args[0])
	}
}

func TestParseNestedCall(t *testing.T) {
	result := parse(t, `print(join("a", "b"))`)
	call := onlyCall(t, result)

	inner, ok := call.Args[0].(*script.CallExpr)
	if !ok {
		t.Fatalf("arg 0 = %T, want *script.CallExpr", call.Args[0])
	}
	if _, name, _ := inner.TargetName(); name != "join" {
		t.Errorf("inner callee = %q, want join", name)
	}
	if len(inner.Args) != 2 {
		t.Errorf("inner args = %d, want 2", len(inner.Args))
	}
}

func TestParseBoolLiterals(t *testing.T) {
	result := parse(t, `set_flag(true, false)`)
	call := onlyCall(t, result)

	a, ok := call.Args[0].(*script.BoolLit)
	if !ok || !a.Value {
		t.Errorf("arg 0 = %#v, want BoolLit true", call.Args[0])
	}
	b, ok := call.Args[1].(*script.BoolLit)
	if !ok || b.Value {
		t.Errorf("arg 1 = %#v, want BoolLit false", call.Args[1])
	}
}

func TestParseIncompleteCall(t *testing.T) {
	result := parse(t, `copy_file(`)

	call := onlyCall(t, result)
	if len(call.Args) != 0 {
		t.Errorf("args = %d, want 0", len(call.Args))
	}
	// The call closes at the open parenthesis so cursor lookups inside the
	// half-typed argument list still land in it.
	if want := (script.Position{Line: 0, Character: 10}); call.Range.End != want {
		t.Errorf("call end = %+v, want %+v", call.Range.End, want)
	}

	if len(result.Diagnostics) != 1 {
		t.Fatalf("diagnostics = %v, want 1", result.Diagnostics)
	}
	d := result.Diagnostics[0]
	if d.Message != "missing ')'" || d.Source != script.SourceSyntax {
		t.Errorf("diagnostic = %+v", d)
	}
	parenRange := script.Range{Start: script.Position{Line: 0, Character: 9}, End: script.Position{Line: 0, Character: 10}}
	if d.Range != parenRange {
		t.Errorf("diagnostic range = %+v, want %+v", d.Range, parenRange)
	}
}

func TestParsePartialArgument(t *testing.T) {
	result := parse(t, `copy_file("conf/ap`)

	call := onlyCall(t, result)
	if len(call.Args) != 1 {
		t.Fatalf("args = %d, want 1", len(call.Args))
	}
	lit := call.Args[0].(*script.StringLit)
	if lit.Value != "conf/ap" {
		t.Errorf("value = %q, want conf/ap", lit.Value)
	}

	// Unterminated string plus missing parenthesis.
	if len(result.Diagnostics) != 2 {
		t.Fatalf("diagnostics = %v, want 2", result.Diagnostics)
	}
	if result.Diagnostics[0].Message != "unterminated string" {
		t.Errorf("diagnostic 0 = %q", result.Diagnostics[0].Message)
	}
}

func TestParseStringEscapes(t *testing.T) {
	result := parse(t, `print("a\"b\\c")`)
	call := onlyCall(t, result)

	lit := call.Args[0].(*script.StringLit)
	if lit.Value != `a"b\c` {
		t.Errorf("value = %q, want %q", lit.Value, `a"b\c`)
	}
	if len(result.Diagnostics) != 0 {
		t.Errorf("diagnostics = %v, want none", result.Diagnostics)
	}
}

func TestParseSingleQuotedString(t *testing.T) {
	result := parse(t, `print('hello')`)
	call := onlyCall(t, result)

	lit := call.Args[0].(*script.StringLit)
	if lit.Value != "hello" {
		t.Errorf("value = %q, want hello", lit.Value)
	}
}

func TestParseCommentsSkipped(t *testing.T) {
	result := parse(t, "# header\nprint(\"x\") # trailing\n")
	if len(result.Diagnostics) != 0 {
		t.Fatalf("diagnostics = %v, want none", result.Diagnostics)
	}
	call := onlyCall(t, result)
	if call.Range.Start.Line != 1 {
		t.Errorf("call starts on line %d, want 1", call.Range.Start.Line)
	}
}

func TestParseMultipleStatements(t *testing.T) {
	result := parse(t, "print(\"a\")\ntimer.start(2)\nset_mode(\"AUTO\")")
	if n := len(result.Tree.Statements); n != 3 {
		t.Fatalf("statements = %d, want 3", n)
	}
	if result.Tree.Statements[1].Span().Start.Line != 1 {
		t.Errorf("statement 1 line = %d, want 1", result.Tree.Statements[1].Span().Start.Line)
	}
}

func TestParseInvalidCharacterRecovers(t *testing.T) {
	result := parse(t, "@\nprint(\"x\")")

	if len(result.Tree.Statements) != 1 {
		t.Fatalf("statements = %d, want 1", len(result.Tree.Statements))
	}
	if len(result.Diagnostics) == 0 {
		t.Fatal("no diagnostic for invalid character")
	}
	if !strings.Contains(result.Diagnostics[0].Message, "unexpected character") {
		t.Errorf("diagnostic = %q", result.Diagnostics[0].Message)
	}
}

func TestParseEmptyDocument(t *testing.T) {
	result := parse(t, "")
	if len(result.Tree.Statements) != 0 || len(result.Diagnostics) != 0 {
		t.Errorf("result = %+v, want empty", result)
	}
}

func TestParseCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Parse(ctx, `print("x")`)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
