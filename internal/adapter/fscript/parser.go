package fscript

import (
	"context"
	"fmt"

	"github.com/Strob0t/ScriptForge/internal/domain/script"
	"github.com/Strob0t/ScriptForge/internal/port/grammar"
)

// Parser implements grammar.Parser for ForgeScript. It is stateless and safe
// for concurrent use.
type Parser struct{}

// New creates the ForgeScript parser.
func New() *Parser {
	return &Parser{}
}

// Parse lexes and parses text, returning the tree plus syntax diagnostics in
// 0-based coordinates. A tolerable error never aborts the parse; only
// context cancellation does.
func (p *Parser) Parse(ctx context.Context, text string) (grammar.Result, error) {
	s := &session{}
	lex := newLexer(text)
	for {
		t := lex.next()
		s.tokens = append(s.tokens, t)
		if t.kind == tokEOF {
			break
		}
	}

	var statements []script.Node
	for !s.at(tokEOF) {
		select {
		case <-ctx.Done():
			return grammar.Result{}, ctx.Err()
		default:
		}

		start := s.pos
		if node := s.parseExpr(); node != nil {
			statements = append(statements, node)
		}
		if s.pos == start {
			// Nothing consumed: report and skip so the loop always advances.
			t := s.peek()
			s.errorf(t, "unexpected %q", t.text)
			s.pos++
		}
	}

	return grammar.Result{
		Tree:        &script.Tree{Statements: statements},
		Diagnostics: s.diags,
	}, nil
}

type session struct {
	tokens []token
	pos    int
	diags  []script.Diagnostic
}

func (s *session) peek() token         { return s.tokens[s.pos] }
func (s *session) at(k tokenKind) bool { return s.tokens[s.pos].kind == k }

func (s *session) take() token {
	t := s.tokens[s.pos]
	if t.kind != tokEOF {
		s.pos++
	}
	return t
}

// parseExpr parses one expression: a primary followed by member accesses and
// call argument lists.
func (s *session) parseExpr() script.Node {
	node := s.parsePrimary()
	if node == nil {
		return nil
	}

	for {
		switch {
		case s.at(tokDot):
			s.take()
			if !s.at(tokIdent) {
				s.errorf(s.peek(), "expected member name after '.'")
				return node
			}
			member := s.take()
			ident, ok := node.(*script.Ident)
			if !ok {
				s.errorf(member, "member access requires an object name")
				return node
			}
			node = &script.MemberExpr{
				Object: ident,
				Member: identNode(member),
				Range:  script.Range{Start: ident.Range.Start, End: tokenEnd(member)},
			}
		case s.at(tokLParen):
			node = s.parseCall(node)
		default:
			return node
		}
	}
}

// parseCall parses the argument list of a call whose target was already
// consumed. A missing closing parenthesis closes the call at the last token
// read, with a diagnostic; incomplete calls are the common editing state.
func (s *session) parseCall(target script.Node) script.Node {
	open := s.take() // '('
	call := &script.CallExpr{Target: target}
	end := tokenEnd(open)

	for {
		switch s.peek().kind {
		case tokRParen:
			end = tokenEnd(s.take())
			call.Range = script.Range{Start: target.Span().Start, End: end}
			return call
		case tokEOF:
			s.errorf(open, "missing ')'")
			call.Range = script.Range{Start: target.Span().Start, End: end}
			return call
		case tokComma:
			// Empty slot; consume the separator and keep the position.
			end = tokenEnd(s.take())
		default:
			arg := s.parseExpr()
			if arg == nil {
				t := s.take()
				s.errorf(t, "unexpected %q in argument list", t.text)
				continue
			}
			call.Args = append(call.Args, arg)
			end = arg.Span().End
			if s.at(tokComma) {
				end = tokenEnd(s.take())
			}
		}
	}
}

func (s *session) parsePrimary() script.Node {
	t := s.peek()
	switch t.kind {
	case tokIdent:
		s.take()
		if t.text == "true" || t.text == "false" {
			return &script.BoolLit{Value: t.text == "true", Range: tokenRange(t)}
		}
		return identNode(t)
	case tokString:
		s.take()
		if t.unclosd {
			s.errorf(t, "unterminated string")
		}
		return &script.StringLit{Value: t.text, Range: tokenRange(t)}
	case tokNumber:
		s.take()
		return &script.NumberLit{Raw: t.text, Range: tokenRange(t)}
	case tokLParen:
		s.take()
		inner := s.parseExpr()
		if s.at(tokRParen) {
			s.take()
		} else {
			s.errorf(t, "missing ')'")
		}
		return inner
	case tokInvalid:
		s.take()
		s.errorf(t, "unexpected character %q", t.text)
		return nil
	default:
		return nil
	}
}

func (s *session) errorf(t token, format string, args ...any) {
	s.diags = append(s.diags, script.Diagnostic{
		Range:    tokenRange(t),
		Severity: script.SeverityError,
		Source:   script.SourceSyntax,
		Message:  fmt.Sprintf(format, args...),
	})
}

// identNode converts a token to an Ident with a normalized span.
func identNode(t token) *script.Ident {
	return &script.Ident{Name: t.text, Range: tokenRange(t)}
}

// tokenRange normalizes the token's 1-based grammar coordinates to the
// 0-based coordinates the rest of the system speaks.
func tokenRange(t token) script.Range {
	return script.Range{
		Start: script.Position{Line: t.line - 1, Character: t.col - 1},
		End:   tokenEnd(t),
	}
}

func tokenEnd(t token) script.Position {
	return script.Position{Line: t.line - 1, Character: t.endCol - 1}
}
