package grammar

import (
	"fmt"
	"strings"
)

// IncludeKind classifies an include reference.
type IncludeKind int

const (
	// IncludeMissing refers to a repository key that does not exist. It
	// resolves to nothing.
	IncludeMissing IncludeKind = iota
	// IncludeSelf is "$self": the root patterns of the grammar that owns the rule.
	IncludeSelf
	// IncludeBase is "$base": the root patterns of the grammar being tokenized.
	IncludeBase
	// IncludeRepository refers to a repository entry of the owning grammar.
	IncludeRepository
	// IncludeForeign refers to another grammar by scope name, optionally
	// followed by "#key". It is resolved when first encountered.
	IncludeForeign
)

func (k IncludeKind) String() string {
	switch k {
	case IncludeSelf:
		return "self"
	case IncludeBase:
		return "base"
	case IncludeRepository:
		return "repository"
	case IncludeForeign:
		return "foreign"
	default:
		return "missing"
	}
}

// Include is a parsed include reference.
type Include struct {
	Kind IncludeKind
	// Ref is the reference as written.
	Ref string
	// Key is the repository key, if any.
	Key string
	// Scope is the foreign grammar's scope name.
	Scope string
	// Targets holds the linked repository patterns.
	Targets []*Node
}

// parseInclude classifies ref before the repository is known. A bare
// identifier is settled during linking.
func parseInclude(ref string) Include {
	ref = strings.TrimSpace(ref)
	inc := Include{Ref: ref}
	switch {
	case ref == "$self":
		inc.Kind = IncludeSelf
	case ref == "$base":
		inc.Kind = IncludeBase
	case strings.HasPrefix(ref, "#"):
		inc.Kind = IncludeRepository
		inc.Key = ref[1:]
	default:
		inc.Kind = IncludeForeign
		inc.Scope, inc.Key, _ = strings.Cut(ref, "#")
	}
	return inc
}

// link binds repository includes to their targets. A bare reference that
// names a repository key is local; otherwise it stays foreign.
func (c *compiler) link(n *Node) {
	inc := &n.Include
	switch inc.Kind {
	case IncludeRepository:
		targets, ok := c.g.Repository[inc.Key]
		if !ok {
			inc.Kind = IncludeMissing
			c.diagnose(fmt.Sprintf("node #%d include", n.ID), inc.Ref, fmt.Errorf("no repository entry %q", inc.Key))
			return
		}
		inc.Targets = targets
	case IncludeForeign:
		if inc.Key != "" {
			return
		}
		if targets, ok := c.g.Repository[inc.Scope]; ok {
			inc.Kind = IncludeRepository
			inc.Key = inc.Scope
			inc.Scope = ""
			inc.Targets = targets
		}
	}
}

// Resolve returns the patterns an include stands for. base is the grammar
// the pass started from and r finds foreign grammars; r may be nil. The
// second result is false when the reference cannot be resolved.
func (inc Include) Resolve(owner, base *Grammar, r Resolver) ([]*Node, bool) {
	switch inc.Kind {
	case IncludeSelf:
		return owner.Patterns, true
	case IncludeBase:
		return base.Patterns, true
	case IncludeRepository:
		return inc.Targets, true
	case IncludeForeign:
		if r == nil {
			return nil, false
		}
		g, ok := r.GrammarForScope(inc.Scope)
		if !ok {
			return nil, false
		}
		if inc.Key == "" {
			return g.Patterns, true
		}
		targets, ok := g.Repository[inc.Key]
		return targets, ok
	}
	return nil, false
}
