package tokenizer

import (
	"sort"

	"go.uber.org/zap"

	"github.com/spicery/tmscope/pkg/grammar"
	"github.com/spicery/tmscope/pkg/pattern"
)

// push appends a scope to a chain.
func push(chain, scope string) string {
	if scope == "" {
		return chain
	}
	return chain + " " + scope
}

// apply emits the spans of a winning candidate under chain and returns the
// offset where they end.
func (t *Tokenizer) apply(c candidate, chain string, depth int) (int, error) {
	n := c.leaf
	if n.Kind != grammar.KindBeginEnd {
		t.captures(push(chain, n.Name), n.Captures, c.m)
		return c.m.End(), nil
	}
	return t.block(n, c.m, chain, depth)
}

// block emits a begin/end rule: the begin match, everything up to the end
// match with child patterns applied, then the end match.
func (t *Tokenizer) block(n *grammar.Node, begin pattern.Match, chain string, depth int) (int, error) {
	outer := push(chain, n.ScopeName())
	inner := push(outer, n.InteriorName())

	beginCaptures := n.BeginCaptures
	if beginCaptures == nil {
		beginCaptures = n.Captures
	}
	endCaptures := n.EndCaptures
	if endCaptures == nil {
		endCaptures = n.Captures
	}
	t.captures(outer, beginCaptures, begin)

	end := t.endPattern(n, begin)
	pos := begin.End()
	// closeAt is set once the end pattern is known not to match again.
	closeAt := -1
	for {
		if err := t.step(); err != nil {
			return pos, err
		}

		var endm pattern.Match
		if end != nil && closeAt < 0 {
			endm = t.endMatch(n, end, pos)
		}
		if endm == nil && closeAt < 0 {
			closeAt = t.text.LineEnd(pos)
		}
		limit := closeAt
		if endm != nil {
			limit = endm.Start()
		}

		if depth <= t.opts.MaxDepth && pos < limit {
			c, _ := t.firstMatch(n, n.Patterns, pos)
			if c.found() && c.m.Start() < limit {
				t.emit(pos, c.m.Start(), inner)
				next, err := t.apply(c, inner, depth+1)
				if err != nil {
					return pos, err
				}
				pos = t.advance(pos, next, inner)
				continue
			}
		}

		if endm == nil {
			if limit < pos {
				// a child ran past the line end
				return pos, nil
			}
			t.emit(pos, limit, inner)
			return limit, nil
		}
		t.emit(pos, endm.Start(), inner)
		t.captures(outer, endCaptures, endm)
		return endm.End(), nil
	}
}

// endMatch searches the end pattern of n from pos.
func (t *Tokenizer) endMatch(n *grammar.Node, end *pattern.Regex, pos int) pattern.Match {
	c, _ := t.search(n, end, pos)
	return c.m
}

// endPattern returns the end pattern of n for one begin match. An end
// pattern with back-references is expanded with the begin match's groups
// and compiled once per distinct expansion.
func (t *Tokenizer) endPattern(n *grammar.Node, begin pattern.Match) *pattern.Regex {
	if n.End == nil || !n.End.HasBackrefs() {
		return n.End
	}
	src := pattern.ExpandBackrefs(n.End.Source(), begin, t.text)
	if re, ok := t.ends[src]; ok {
		return re
	}
	re, err := pattern.Compile(src, n.End.Options())
	if err != nil {
		t.log.Warn("expanded end pattern does not compile", zap.Stringer("rule", n), zap.Error(err))
		re = nil
	}
	t.ends[src] = re
	return re
}

// group is one capture group in the containment tree of a match.
type group struct {
	start, end int
	scope      string
	children   []*group
}

// captures emits spans covering m. Capture groups nest: a group inside
// another splits that group's span, and a group reaching past its
// enclosing group is clipped to it. Absent and empty groups emit nothing.
func (t *Tokenizer) captures(chain string, caps grammar.CaptureMap, m pattern.Match) {
	if len(caps) == 0 {
		t.emit(m.Start(), m.End(), chain)
		return
	}

	groups := make([]*group, 0, len(caps))
	for _, c := range caps {
		start, end, ok := m.Group(c.Index)
		if !ok {
			continue
		}
		start, end = max(start, m.Start()), min(end, m.End())
		if start >= end {
			continue
		}
		groups = append(groups, &group{start: start, end: end, scope: c.Name})
	}
	// caps is ordered by index, so a stable sort keeps index order on ties
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].start != groups[j].start {
			return groups[i].start < groups[j].start
		}
		return groups[i].end > groups[j].end
	})

	root := &group{start: m.Start(), end: m.End()}
	stack := []*group{root}
	for _, g := range groups {
		for len(stack) > 1 && stack[len(stack)-1].end <= g.start {
			stack = stack[:len(stack)-1]
		}
		parent := stack[len(stack)-1]
		g.end = min(g.end, parent.end)
		parent.children = append(parent.children, g)
		stack = append(stack, g)
	}
	t.tile(root, chain)
}

func (t *Tokenizer) tile(g *group, chain string) {
	chain = push(chain, g.scope)
	pos := g.start
	for _, child := range g.children {
		t.emit(pos, child.start, chain)
		t.tile(child, chain)
		pos = child.end
	}
	t.emit(pos, g.end, chain)
}
