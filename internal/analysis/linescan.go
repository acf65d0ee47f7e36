package analysis

import (
	"regexp"
	"strings"

	"github.com/Strob0t/ScriptForge/internal/domain/apispec"
)

// callPattern matches an identifier directly followed by an opening
// parenthesis. The last match ending at or before the cursor is taken as the
// call the cursor sits in.
var callPattern = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*)\s*\(`)

// LineContext resolves the cursor context from the raw current line only,
// without a parse. It is the low-latency fallback used for trigger decisions:
// cheap and approximate by design. Nested parentheses and escaped quotes
// inside a parameter value are not handled; the tree strategy is the precise
// path. Any failed lookup yields an invalid context rather than a guess.
func LineContext(line string, cursor int, spec *apispec.Spec) CursorContext {
	if cursor < 0 || cursor > len(line) {
		return invalid
	}

	name, open, ok := trailingCall(line, cursor)
	if !ok || closedBefore(line, open, cursor) {
		return invalid
	}
	callee, found := spec.Function(name)
	if !found {
		return invalid
	}

	index := paramIndexAt(line, open, cursor)
	params := callee.Parameters()
	if index >= len(params) {
		return invalid
	}

	ctx := CursorContext{
		Function:   callee.CallableName(),
		ParamIndex: index,
		Param:      params[index],
		Valid:      true,
	}
	if value, has := paramValueAt(line, open, index); has {
		ctx.Value = value
		ctx.HasValue = true
	}
	return ctx
}

// trailingCall finds the last `identifier(` whose parenthesis is at or before
// the cursor, and returns the identifier plus the parenthesis offset.
func trailingCall(line string, cursor int) (name string, open int, ok bool) {
	for _, m := range callPattern.FindAllStringSubmatchIndex(line, -1) {
		parenAt := m[1] - 1
		if parenAt >= cursor {
			break
		}
		name = line[m[2]:m[3]]
		open = parenAt
		ok = true
	}
	return name, open, ok
}

// closedBefore reports whether the call opened at open is closed by a
// top-level ')' before the cursor. Such a cursor sits after the call, not
// inside it.
func closedBefore(line string, open, cursor int) bool {
	inString := false
	var quote byte
	for i := open + 1; i < cursor && i < len(line); i++ {
		c := line[i]
		switch {
		case inString:
			if c == quote {
				inString = false
			}
		case c == '"' || c == '\'':
			inString = true
			quote = c
		case c == ')':
			return true
		}
	}
	return false
}

// paramIndexAt counts top-level commas between the opening parenthesis and
// the cursor. A comma inside an open quoted string does not count; the
// in-string state is a single toggle tracking the active quote character.
func paramIndexAt(line string, open, cursor int) int {
	index := 0
	inString := false
	var quote byte
	for i := open + 1; i < cursor && i < len(line); i++ {
		c := line[i]
		switch {
		case inString:
			if c == quote {
				inString = false
			}
		case c == '"' || c == '\'':
			inString = true
			quote = c
		case c == ',':
			index++
		}
	}
	return index
}

// paramValueAt extracts the raw value written in the given parameter slot:
// the text between the separator that starts the slot and the next top-level
// comma or closing parenthesis, trimmed of whitespace and one pair of
// matching quotes. An all-whitespace value counts as no value.
func paramValueAt(line string, open, index int) (string, bool) {
	start := open + 1
	slot := 0
	end := len(line)
	inString := false
	var quote byte

	for i := open + 1; i < len(line); i++ {
		c := line[i]
		switch {
		case inString:
			if c == quote {
				inString = false
			}
		case c == '"' || c == '\'':
			inString = true
			quote = c
		case c == ',':
			if slot == index {
				end = i
				i = len(line)
				break
			}
			slot++
			start = i + 1
		case c == ')':
			if slot == index {
				end = i
			}
			i = len(line)
		}
	}
	if slot < index || start > len(line) {
		return "", false
	}
	if end > len(line) {
		end = len(line)
	}

	value := strings.TrimSpace(line[start:end])
	value = trimMatchingQuotes(value)
	if strings.TrimSpace(value) == "" {
		return "", false
	}
	return value, true
}

// trimMatchingQuotes strips one pair of surrounding quotes when both ends
// carry the same quote character.
func trimMatchingQuotes(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if first == last && (first == '"' || first == '\'') {
			return s[1 : len(s)-1]
		}
	}
	// A single unterminated opening quote still means the user started a
	// string value; expose what they typed so far.
	if len(s) >= 1 && (s[0] == '"' || s[0] == '\'') {
		return s[1:]
	}
	return s
}
