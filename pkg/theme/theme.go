// Package theme maps scope chains produced by the tokenizer to display
// styles using TextMate color scheme rules.
package theme

import (
	"strings"

	"github.com/spicery/tmscope/internal/cache"
)

// Style holds the display attributes of a rule. Colors are written as in
// the scheme file, usually "#RRGGBB" or "#RRGGBBAA".
type Style struct {
	Foreground string `json:"foreground,omitempty" yaml:"foreground,omitempty" plist:"foreground,omitempty"`
	Background string `json:"background,omitempty" yaml:"background,omitempty" plist:"background,omitempty"`
	FontStyle  string `json:"fontStyle,omitempty" yaml:"fontStyle,omitempty" plist:"fontStyle,omitempty"`
}

// inherit fills the attributes s leaves unset from def.
func (s Style) inherit(def Style) Style {
	if s.Foreground == "" {
		s.Foreground = def.Foreground
	}
	if s.Background == "" {
		s.Background = def.Background
	}
	return s
}

// Has reports whether the font style contains attr, e.g. "bold".
func (s Style) Has(attr string) bool {
	for _, f := range strings.Fields(s.FontStyle) {
		if f == attr {
			return true
		}
	}
	return false
}

// StyleRule assigns a style to the scopes its selector matches.
type StyleRule struct {
	Name string `json:"name,omitempty" yaml:"name,omitempty" plist:"name,omitempty"`
	// Scope is a comma-separated list of selectors. Each selector is one
	// or more space-separated scope prefixes.
	Scope    string `json:"scope,omitempty" yaml:"scope,omitempty" plist:"scope,omitempty"`
	Settings Style  `json:"settings" yaml:"settings" plist:"settings"`
}

// selector is one parsed alternative of a rule's scope.
type selector struct {
	text string
	rule int
}

// ColorScheme is an ordered set of style rules.
type ColorScheme struct {
	Name  string
	UUID  string
	Rules []StyleRule
	// Default applies where no rule matches.
	Default Style

	selectors []selector
	// chain string -> rule index, -1 for the default
	selected *cache.Cache[int]
}

// NewColorScheme builds a scheme from its rules. The default style is the
// rule whose scope is "default" or, failing that, the first rule without a
// scope, as tmTheme global settings are written.
func NewColorScheme(name, uuid string, rules []StyleRule) *ColorScheme {
	cs := &ColorScheme{
		Name:     name,
		UUID:     uuid,
		Rules:    rules,
		selected: cache.New[int](),
	}
	globals := -1
	for i, r := range rules {
		scope := strings.TrimSpace(r.Scope)
		switch {
		case scope == "default":
			cs.Default = r.Settings
			globals = i
		case scope == "":
			if globals < 0 {
				cs.Default = r.Settings
				globals = i
			}
		default:
			for _, alt := range strings.Split(scope, ",") {
				text := strings.Join(strings.Fields(alt), " ")
				if text != "" {
					cs.selectors = append(cs.selectors, selector{text: text, rule: i})
				}
			}
		}
	}
	return cs
}

// Select returns the name of the rule that styles chain, or "default" when
// none does. Unnamed rules are reported by their scope.
func (cs *ColorScheme) Select(chain string) string {
	i := cs.selectRule(chain)
	if i < 0 {
		return "default"
	}
	if cs.Rules[i].Name != "" {
		return cs.Rules[i].Name
	}
	return cs.Rules[i].Scope
}

// Resolve returns the style for chain. Attributes the selected rule does
// not set come from the default style.
func (cs *ColorScheme) Resolve(chain string) Style {
	i := cs.selectRule(chain)
	if i < 0 {
		return cs.Default
	}
	return cs.Rules[i].Settings.inherit(cs.Default)
}

// ResolveStyle returns the style cs assigns to chain.
func ResolveStyle(cs *ColorScheme, chain string) Style {
	return cs.Resolve(chain)
}

func (cs *ColorScheme) selectRule(chain string) int {
	if i, ok := cs.selected.Get(chain); ok {
		return i
	}
	i := cs.match(chain)
	cs.selected.Set(chain, i)
	return i
}

// match truncates chain from the right one segment at a time, at the last
// '.' or ' ', until some selector matches. At one truncation the longest
// matching selector wins; of equal length the first declared wins.
func (cs *ColorScheme) match(chain string) int {
	s := strings.Join(strings.Fields(chain), " ")
	for s != "" {
		best := -1
		for j, sel := range cs.selectors {
			if !endsWith(s, sel.text) {
				continue
			}
			if best < 0 || len(sel.text) > len(cs.selectors[best].text) {
				best = j
			}
		}
		if best >= 0 {
			return cs.selectors[best].rule
		}
		i := strings.LastIndexAny(s, ". ")
		if i < 0 {
			break
		}
		s = strings.TrimSpace(s[:i])
	}
	return -1
}

// endsWith reports whether s ends with sel at a segment boundary.
func endsWith(s, sel string) bool {
	if !strings.HasSuffix(s, sel) {
		return false
	}
	return len(s) == len(sel) || s[len(s)-len(sel)-1] == ' '
}
