package tokenizer

import (
	"go.uber.org/zap"

	"github.com/spicery/tmscope/pkg/grammar"
	"github.com/spicery/tmscope/pkg/pattern"
)

// firstMatch returns the leftmost next match among nodes from pos. Of two
// matches starting at the same offset the earlier-declared node wins.
// owner identifies the list in the match cache.
func (t *Tokenizer) firstMatch(owner any, nodes []*grammar.Node, pos int) (candidate, outcome) {
	list := t.cache.list(owner, nodes, pos)

	var (
		best candidate
		out  outcome
		dead map[*grammar.Node]bool
	)
	for _, n := range list.nodes {
		c, o := t.nodeMatch(n, pos)
		out = out.join(o)
		if !c.found() {
			if o.definitelyAbsent(c) {
				if dead == nil {
					dead = make(map[*grammar.Node]bool)
				}
				dead[n] = true
			}
			continue
		}
		if !best.found() || c.m.Start() < best.m.Start() {
			best = c
		}
		if best.m.Start() == pos {
			break
		}
	}
	t.cache.drop(list, dead)
	return best, out
}

// nodeMatch returns the next match of n from pos.
func (t *Tokenizer) nodeMatch(n *grammar.Node, pos int) (candidate, outcome) {
	switch n.Kind {
	case grammar.KindMatch:
		return t.search(n, n.Match, pos)
	case grammar.KindBeginEnd:
		return t.search(n, n.Begin, pos)
	case grammar.KindInclude, grammar.KindContainer:
		return t.nested(n, pos)
	}
	return candidate{}, outcome{}
}

// search runs re from pos, consulting the match cache.
func (t *Tokenizer) search(leaf *grammar.Node, re *pattern.Regex, pos int) (candidate, outcome) {
	o := outcome{positional: re.Anchored()}
	if c, ok := t.cache.regex(re, pos); ok {
		return c, o
	}
	m, err := re.Search(t.text, pos)
	if err != nil {
		// timeouts and engine errors count as no match here only
		t.log.Warn("pattern search failed", zap.Stringer("rule", leaf), zap.Error(err))
		o.failed = true
		return candidate{}, o
	}
	c := candidate{}
	if m != nil {
		c = candidate{leaf: leaf, m: m}
	}
	t.cache.storeRegex(re, pos, c)
	return c, o
}

// nested searches the patterns an include or container stands for. A node
// already being resolved further up the stack yields a transient miss.
// Only outermost resolutions use the match cache: below them the result
// depends on which nodes the guard hides.
func (t *Tokenizer) nested(n *grammar.Node, pos int) (candidate, outcome) {
	outermost := len(t.resolving) == 0
	if outermost {
		if c, o, ok := t.cache.node(n, pos); ok {
			return c, o
		}
	} else if t.resolving[n] {
		return candidate{}, outcome{transient: true}
	}

	nodes := n.Patterns
	if n.Kind == grammar.KindInclude {
		nodes = t.targets(n)
	}

	t.resolving[n] = true
	c, o := t.firstMatch(n, nodes, pos)
	delete(t.resolving, n)

	if outermost {
		// every node the guard hid was searched further up
		o.transient = false
		t.cache.storeNode(n, pos, c, o)
	}
	return c, o
}

// targets resolves an include. Unresolvable references yield no patterns.
func (t *Tokenizer) targets(n *grammar.Node) []*grammar.Node {
	nodes, ok := n.Include.Resolve(n.Grammar(), t.grammar, t.resolver)
	if !ok {
		t.resolver.unresolved(n.Include)
	}
	return nodes
}

// passResolver memoizes foreign grammar lookups for one pass and reports
// each unresolved reference once.
type passResolver struct {
	next     grammar.Resolver
	log      *zap.Logger
	grammars map[string]*grammar.Grammar
	reported map[string]bool
}

func newPassResolver(next grammar.Resolver, log *zap.Logger) *passResolver {
	return &passResolver{
		next:     next,
		log:      log,
		grammars: make(map[string]*grammar.Grammar),
		reported: make(map[string]bool),
	}
}

func (r *passResolver) GrammarForScope(scope string) (*grammar.Grammar, bool) {
	if g, ok := r.grammars[scope]; ok {
		return g, g != nil
	}
	var g *grammar.Grammar
	if r.next != nil {
		g, _ = r.next.GrammarForScope(scope)
	}
	r.grammars[scope] = g
	return g, g != nil
}

func (r *passResolver) unresolved(inc grammar.Include) {
	if r.reported[inc.Ref] {
		return
	}
	r.reported[inc.Ref] = true
	r.log.Debug("unresolved include", zap.String("include", inc.Ref), zap.Stringer("kind", inc.Kind))
}
