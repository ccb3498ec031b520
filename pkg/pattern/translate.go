package pattern

import (
	"fmt"
	"strconv"
	"strings"
)

// posixClasses maps POSIX bracket names to host class contents.
// nonHexRanges is \H written as class ranges, for use inside brackets.
const nonHexRanges = `\x00-/:-@G-\x60g-` + "\U0010FFFF"

var posixClasses = map[string]string{
	"alnum":  `a-zA-Z0-9`,
	"alpha":  `a-zA-Z`,
	"ascii":  `\x00-\x7F`,
	"blank":  ` \t`,
	"cntrl":  `\x00-\x1F\x7F`,
	"digit":  `0-9`,
	"graph":  `\x21-\x7E`,
	"lower":  `a-z`,
	"print":  `\x20-\x7E`,
	"punct":  `!-/:-@\[-` + "`" + `{-~`,
	"space":  `\s`,
	"upper":  `A-Z`,
	"word":   `\w`,
	"xdigit": `0-9A-Fa-f`,
}

// Translate rewrites a pattern written in the Oniguruma dialect used by
// TextMate grammars into the syntax accepted by the host engine.
// The rewrites run in a fixed order; each one skips bracket expressions
// so that class contents are never mistaken for group syntax.
func Translate(src string, opts Options) string {
	s := foldInlineOptions(src)
	s = splitLookbehinds(s)
	s = normalizeGroups(s, opts.ApproximateAtomic)
	s = normalizeEscapes(s)
	s = collapseRepeats(s)
	return s
}

// classEnd returns the index just past the bracket expression that opens
// at src[i]. Nested brackets, as in POSIX classes, are counted.
func classEnd(src string, i int) int {
	depth := 0
	for j := i; j < len(src); {
		switch src[j] {
		case '\\':
			j += 2
			continue
		case '[':
			depth++
			j++
			if j < len(src) && src[j] == '^' {
				j++
			}
			// a ']' right after the opening bracket is a literal
			if j < len(src) && src[j] == ']' {
				j++
			}
			continue
		case ']':
			depth--
			j++
			if depth == 0 {
				return j
			}
			continue
		}
		j++
	}
	return len(src)
}

// groupEnd returns the index of the ')' closing the group opened at
// src[i], or -1 when the group is unbalanced.
func groupEnd(src string, i int) int {
	depth := 0
	for j := i; j < len(src); {
		switch src[j] {
		case '\\':
			j += 2
			continue
		case '[':
			j = classEnd(src, j)
			continue
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return j
			}
		}
		j++
	}
	return -1
}

// splitAlternatives splits src on its top-level '|' characters.
func splitAlternatives(src string) []string {
	var (
		parts []string
		depth int
		last  int
	)
	for j := 0; j < len(src); {
		switch src[j] {
		case '\\':
			j += 2
			continue
		case '[':
			j = classEnd(src, j)
			continue
		case '(':
			depth++
		case ')':
			depth--
		case '|':
			if depth == 0 {
				parts = append(parts, src[last:j])
				last = j + 1
			}
		}
		j++
	}
	return append(parts, src[last:])
}

// copyEscape writes the escape sequence at src[i] and returns the index after it.
func copyEscape(b *strings.Builder, src string, i int) int {
	end := i + 2
	if end > len(src) {
		end = len(src)
	}
	b.WriteString(src[i:end])
	return end
}

// foldInlineOptions rewrites (?imsx-imsx) and (?imsx-imsx: groups.
// Oniguruma's Ruby syntax uses 'm' for dot-matches-newline, which is 's'
// for the host.
func foldInlineOptions(src string) string {
	var b strings.Builder
	for i := 0; i < len(src); {
		switch {
		case src[i] == '\\':
			i = copyEscape(&b, src, i)
		case src[i] == '[':
			end := classEnd(src, i)
			b.WriteString(src[i:end])
			i = end
		case strings.HasPrefix(src[i:], "(?"):
			j := i + 2
			for j < len(src) && strings.IndexByte("imsx-", src[j]) >= 0 {
				j++
			}
			if j == i+2 || j >= len(src) || (src[j] != ':' && src[j] != ')') {
				b.WriteString("(?")
				i += 2
				continue
			}
			b.WriteString("(?")
			b.WriteString(foldFlags(src[i+2 : j]))
			b.WriteByte(src[j])
			i = j + 1
		default:
			b.WriteByte(src[i])
			i++
		}
	}
	return b.String()
}

func foldFlags(flags string) string {
	var (
		out  strings.Builder
		seen = make(map[string]bool)
	)
	section := "+"
	for _, c := range flags {
		if c == '-' {
			if section == "+" {
				out.WriteByte('-')
			}
			section = "-"
			continue
		}
		host := string(c)
		if c == 'm' {
			host = "s"
		}
		if seen[section+host] {
			continue
		}
		seen[section+host] = true
		out.WriteString(host)
	}
	return strings.TrimSuffix(out.String(), "-")
}

// splitLookbehinds rewrites lookbehinds that contain top-level alternation
// into an equivalent combination of single-branch lookbehinds.
func splitLookbehinds(src string) string {
	var b strings.Builder
	for i := 0; i < len(src); {
		switch {
		case src[i] == '\\':
			i = copyEscape(&b, src, i)
		case src[i] == '[':
			end := classEnd(src, i)
			b.WriteString(src[i:end])
			i = end
		case strings.HasPrefix(src[i:], "(?<=") || strings.HasPrefix(src[i:], "(?<!"):
			end := groupEnd(src, i)
			if end < 0 {
				b.WriteString(src[i:])
				return b.String()
			}
			op := src[i : i+4]
			branches := splitAlternatives(src[i+4 : end])
			for k := range branches {
				branches[k] = splitLookbehinds(branches[k])
			}
			switch {
			case len(branches) == 1:
				b.WriteString(op + branches[0] + ")")
			case op == "(?<=":
				b.WriteString("(?:")
				for k, br := range branches {
					if k > 0 {
						b.WriteByte('|')
					}
					b.WriteString("(?<=" + br + ")")
				}
				b.WriteByte(')')
			default:
				// not (a or b) holds only when neither branch matches
				for _, br := range branches {
					b.WriteString("(?<!" + br + ")")
				}
			}
			i = end + 1
		default:
			b.WriteByte(src[i])
			i++
		}
	}
	return b.String()
}

// normalizeGroups rewrites named-group syntax to (?<name> and, when
// approximate is set, atomic groups to lookaheads.
func normalizeGroups(src string, approximate bool) string {
	var b strings.Builder
	for i := 0; i < len(src); {
		switch {
		case src[i] == '\\':
			i = copyEscape(&b, src, i)
		case src[i] == '[':
			end := classEnd(src, i)
			b.WriteString(src[i:end])
			i = end
		case strings.HasPrefix(src[i:], "(?>") && approximate:
			b.WriteString("(?=")
			i += 3
		case strings.HasPrefix(src[i:], "(?P<"):
			b.WriteString("(?<")
			i += 4
		case strings.HasPrefix(src[i:], "(?'"):
			end := strings.IndexByte(src[i+3:], '\'')
			if end < 0 {
				b.WriteString("(?'")
				i += 3
				continue
			}
			b.WriteString("(?<" + src[i+3:i+3+end] + ">")
			i += 3 + end + 1
		default:
			b.WriteByte(src[i])
			i++
		}
	}
	return b.String()
}

// hexEscape renders r in the host's escape syntax.
func hexEscape(r rune) string {
	switch {
	case r <= 0xFF:
		return fmt.Sprintf(`\x%02X`, r)
	case r <= 0xFFFF:
		return fmt.Sprintf(`\u%04X`, r)
	}
	return string(r)
}

// normalizeEscapes rewrites \x{...}, \h, \H and POSIX bracket classes.
func normalizeEscapes(src string) string {
	var b strings.Builder
	depth := 0
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == '\\' && i+1 < len(src):
			n := src[i+1]
			switch {
			case n == 'x' && i+2 < len(src) && src[i+2] == '{':
				if end := strings.IndexByte(src[i+3:], '}'); end > 0 {
					if v, err := strconv.ParseUint(src[i+3:i+3+end], 16, 32); err == nil {
						b.WriteString(hexEscape(rune(v)))
						i += 3 + end + 1
						continue
					}
				}
			case n == 'h':
				if depth > 0 {
					b.WriteString(`0-9a-fA-F`)
				} else {
					b.WriteString(`[0-9a-fA-F]`)
				}
				i += 2
				continue
			case n == 'H':
				if depth > 0 {
					b.WriteString(nonHexRanges)
				} else {
					b.WriteString(`[^0-9a-fA-F]`)
				}
				i += 2
				continue
			}
			i = copyEscape(&b, src, i)
		case c == '[' && depth > 0 && strings.HasPrefix(src[i:], "[:"):
			end := strings.Index(src[i+2:], ":]")
			if end < 0 {
				b.WriteByte(c)
				i++
				continue
			}
			if class, ok := posixClasses[src[i+2:i+2+end]]; ok {
				b.WriteString(class)
				i += 2 + end + 2
				continue
			}
			b.WriteByte(c)
			i++
		case c == '[':
			depth++
			b.WriteByte(c)
			i++
			if i < len(src) && src[i] == '^' {
				b.WriteByte('^')
				i++
			}
			if i < len(src) && src[i] == ']' {
				b.WriteString(`\]`)
				i++
			}
		case c == ']' && depth > 0:
			depth--
			b.WriteByte(c)
			i++
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

// repeat states for collapseRepeats
const (
	afterAtom = iota
	afterQuantifier
	afterModifier
)

// collapseRepeats drops possessive markers and doubled quantifiers, which
// the host does not accept, and expands {,n} to {0,n}.
func collapseRepeats(src string) string {
	var b strings.Builder
	state := afterAtom
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == '\\':
			i = copyEscape(&b, src, i)
			state = afterAtom
		case c == '[':
			end := classEnd(src, i)
			b.WriteString(src[i:end])
			i = end
			state = afterAtom
		case c == '(':
			b.WriteByte(c)
			i++
			if i < len(src) && src[i] == '?' {
				b.WriteByte('?')
				i++
			}
			state = afterModifier
		case c == '*' || c == '+' || c == '?':
			switch state {
			case afterAtom:
				b.WriteByte(c)
				state = afterQuantifier
			case afterQuantifier:
				// '?' makes the quantifier lazy; '+' (possessive) and a
				// doubled '*' are dropped
				if c == '?' {
					b.WriteByte(c)
				}
				state = afterModifier
			}
			i++
		case c == '{':
			end, body, ok := interval(src, i)
			if !ok {
				b.WriteByte(c)
				i++
				state = afterAtom
				continue
			}
			if state == afterAtom {
				if strings.HasPrefix(body, ",") {
					body = "0" + body
				}
				b.WriteString("{" + body + "}")
				state = afterQuantifier
			}
			i = end
		default:
			b.WriteByte(c)
			i++
			state = afterAtom
		}
	}
	return b.String()
}

// interval reports whether src[i:] starts a {n}, {n,}, {n,m} or {,m}
// quantifier and returns the index after it along with its body.
func interval(src string, i int) (int, string, bool) {
	end := strings.IndexByte(src[i:], '}')
	if end < 0 {
		return 0, "", false
	}
	body := src[i+1 : i+end]
	if body == "" || body == "," {
		return 0, "", false
	}
	for _, c := range body {
		if (c < '0' || c > '9') && c != ',' {
			return 0, "", false
		}
	}
	if strings.Count(body, ",") > 1 {
		return 0, "", false
	}
	return i + end + 1, body, true
}

// HasContinueAnchor reports whether src contains a \G outside a bracket
// expression.
func HasContinueAnchor(src string) bool {
	for i := 0; i < len(src); {
		switch src[i] {
		case '\\':
			if i+1 < len(src) && src[i+1] == 'G' {
				return true
			}
			i += 2
		case '[':
			i = classEnd(src, i)
		default:
			i++
		}
	}
	return false
}

// leadingContinueAnchor reports whether every match of src must begin at
// the search position, i.e. every top-level alternative starts with \G.
func leadingContinueAnchor(src string) bool {
	for _, alt := range splitAlternatives(src) {
		if !strings.HasPrefix(alt, `\G`) {
			return false
		}
	}
	return true
}
