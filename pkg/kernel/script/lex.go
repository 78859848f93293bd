package script

import "strings"

// scanner walks a line while tracking quotes and bracket depth, so that
// callers only see separators at the top level of an expression.
type scanner struct {
	s       string
	depth   int
	quote   byte
	escaped bool
}

// top reports whether position i is outside any string literal or bracket
// and advances the quote and depth state past s[i].
func (sc *scanner) top(i int) bool {
	c := sc.s[i]
	if sc.quote != 0 {
		switch {
		case sc.escaped:
			sc.escaped = false
		case c == '\\' && sc.quote != '`':
			sc.escaped = true
		case c == sc.quote:
			sc.quote = 0
		}
		return false
	}
	switch c {
	case '"', '\'', '`':
		sc.quote = c
		return false
	case '(', '[', '{':
		sc.depth++
		return false
	case ')', ']', '}':
		if sc.depth > 0 {
			sc.depth--
		}
		return false
	}
	return sc.depth == 0
}

// stripComment drops everything from the first top-level % and trailing
// semicolons.
func stripComment(line string) string {
	sc := &scanner{s: line}
	for i := 0; i < len(line); i++ {
		if sc.top(i) && line[i] == '%' {
			line = line[:i]
			break
		}
	}
	return strings.TrimRight(strings.TrimSpace(line), "; \t")
}

// splitTop splits s at every top-level occurrence of sep.
func splitTop(s string, sep byte) []string {
	var parts []string
	sc := &scanner{s: s}
	start := 0
	for i := 0; i < len(s); i++ {
		if sc.top(i) && s[i] == sep {
			parts = append(parts, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	return append(parts, strings.TrimSpace(s[start:]))
}

// comparisons lists the operators a condition may use, two-character
// spellings first.
var comparisons = []string{"==", "~=", "!=", "<=", ">=", "<", ">"}

// findComparison returns the position and spelling of every top-level
// comparison operator in s.
func findComparison(s string) (pos []int, ops []string) {
	sc := &scanner{s: s}
	for i := 0; i < len(s); i++ {
		if !sc.top(i) {
			continue
		}
		for _, op := range comparisons {
			if strings.HasPrefix(s[i:], op) {
				pos = append(pos, i)
				ops = append(ops, op)
				i += len(op) - 1
				break
			}
		}
	}
	return pos, ops
}

// findAssign returns the position of the first top-level = that is not
// part of a comparison, or -1.
func findAssign(s string) int {
	sc := &scanner{s: s}
	for i := 0; i < len(s); i++ {
		if !sc.top(i) || s[i] != '=' {
			continue
		}
		if i+1 < len(s) && s[i+1] == '=' {
			i++
			continue
		}
		if i > 0 && strings.ContainsRune("=~!<>", rune(s[i-1])) {
			continue
		}
		return i
	}
	return -1
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

// isTarget reports whether s is a dotted variable name.
func isTarget(s string) bool {
	for _, part := range strings.Split(s, ".") {
		if !isIdent(part) {
			return false
		}
	}
	return true
}
