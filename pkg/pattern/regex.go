// Package pattern compiles TextMate grammar regular expressions, written in
// the Oniguruma dialect, for the regexp2 engine and searches documents with
// them using byte offsets.
package pattern

import (
	"fmt"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// Options controls translation and compilation.
type Options struct {
	// ApproximateAtomic rewrites atomic groups (?>...) as lookaheads (?=...)
	// instead of passing them to the host as true atomic groups.
	ApproximateAtomic bool

	// MatchTimeout bounds a single search. Zero means no limit.
	MatchTimeout time.Duration
}

// Regex is a compiled grammar pattern.
type Regex struct {
	source     string
	translated string
	re         *regexp2.Regexp
	anchored   bool // contains \G
	leading    bool // starts with \G
	opts       Options
}

// Compile translates src and compiles it for the host engine.
func Compile(src string, opts Options) (*Regex, error) {
	translated := Translate(src, opts)
	re, err := regexp2.Compile(translated, regexp2.Multiline)
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", src, err)
	}
	if opts.MatchTimeout > 0 {
		re.MatchTimeout = opts.MatchTimeout
	}
	return &Regex{
		source:     src,
		translated: translated,
		re:         re,
		anchored:   HasContinueAnchor(src),
		leading:    leadingContinueAnchor(src),
		opts:       opts,
	}, nil
}

// Deferred returns a pattern that is only usable after its back-references
// are expanded. It is used for end patterns whose \N refers to a group of
// the begin match that the end pattern itself does not define, which the
// host rejects. The pattern with its references blanked must compile.
func Deferred(src string, opts Options) (*Regex, error) {
	if _, err := Compile(ExpandBackrefs(src, nil, nil), opts); err != nil {
		return nil, err
	}
	return &Regex{
		source:   src,
		anchored: HasContinueAnchor(src),
		leading:  leadingContinueAnchor(src),
		opts:     opts,
	}, nil
}

// Options returns the options the pattern was compiled with.
func (r *Regex) Options() Options {
	return r.opts
}

// MustCompile is like Compile but panics on error. It is intended for tests
// and package-level patterns.
func MustCompile(src string) *Regex {
	r, err := Compile(src, Options{})
	if err != nil {
		panic(err)
	}
	return r
}

// Source returns the pattern as written in the grammar.
func (r *Regex) Source() string {
	return r.source
}

// Translated returns the pattern handed to the host engine.
func (r *Regex) Translated() string {
	return r.translated
}

// Anchored reports whether the pattern uses \G, in which case its result
// depends on the exact search position.
func (r *Regex) Anchored() bool {
	return r.anchored
}

// HasBackrefs reports whether the source refers to numbered groups with
// \1..\9. In an end pattern these refer to the begin match.
func (r *Regex) HasBackrefs() bool {
	return SourceHasBackrefs(r.source)
}

func (r *Regex) String() string {
	return r.source
}

// Search returns the leftmost match that starts at or after byte offset pos,
// or nil when there is none. \G matches at pos only.
func (r *Regex) Search(t *Text, pos int) (Match, error) {
	if r.re == nil {
		return nil, fmt.Errorf("search %q: back-references not expanded", r.source)
	}
	if pos > t.Len() {
		return nil, nil
	}
	start := t.runeIndex(pos)
	m, err := r.re.FindRunesMatchStartingAt(t.runes, start)
	if err != nil {
		return nil, fmt.Errorf("search %q at %d: %w", r.source, pos, err)
	}
	if m == nil {
		return nil, nil
	}
	if r.leading && m.Index != start {
		return nil, nil
	}
	groups := m.Groups()
	out := make(Match, 0, 2*len(groups))
	for i := range groups {
		g := &groups[i]
		if len(g.Captures) == 0 {
			out = append(out, -1, -1)
			continue
		}
		out = append(out, t.byteOffset(g.Index), t.byteOffset(g.Index+g.Length))
	}
	return out, nil
}

// SourceHasBackrefs reports whether src contains \1..\9 outside a class.
func SourceHasBackrefs(src string) bool {
	for i := 0; i < len(src); {
		switch src[i] {
		case '\\':
			if i+1 < len(src) && src[i+1] >= '1' && src[i+1] <= '9' {
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

// ExpandBackrefs replaces \1..\9 in src with the escaped text of the
// corresponding groups of m. Groups that did not participate expand to
// the empty string.
func ExpandBackrefs(src string, m Match, t *Text) string {
	var b strings.Builder
	for i := 0; i < len(src); {
		switch src[i] {
		case '\\':
			if i+1 < len(src) && src[i+1] >= '1' && src[i+1] <= '9' {
				if start, end, ok := m.Group(int(src[i+1] - '0')); ok {
					b.WriteString(regexp2.Escape(t.Slice(start, end)))
				}
				i += 2
				continue
			}
			i = copyEscape(&b, src, i)
		case '[':
			end := classEnd(src, i)
			b.WriteString(src[i:end])
			i = end
		default:
			b.WriteByte(src[i])
			i++
		}
	}
	return b.String()
}
