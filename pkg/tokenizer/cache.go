package tokenizer

import (
	"github.com/spicery/tmscope/pkg/grammar"
	"github.com/spicery/tmscope/pkg/pattern"
)

// candidate is the next match of a node: leaf is the match or begin/end
// rule that produced m, which differs from the searched node when that
// node is an include or a container. A nil m means no match.
type candidate struct {
	leaf *grammar.Node
	m    pattern.Match
}

func (c candidate) found() bool {
	return c.m != nil
}

// outcome qualifies a search result. A transient result was computed while
// a re-entrancy guard suppressed part of the search and must not be stored.
// A positional result came from a \G pattern and holds only at the exact
// position it was searched from. A failed result includes a search that
// errored or timed out and says nothing about other positions.
type outcome struct {
	transient  bool
	positional bool
	failed     bool
}

func (o outcome) join(other outcome) outcome {
	return outcome{
		transient:  o.transient || other.transient,
		positional: o.positional || other.positional,
		failed:     o.failed || other.failed,
	}
}

// definitelyAbsent reports whether a miss holds for every later position.
func (o outcome) definitelyAbsent(c candidate) bool {
	return !c.found() && !o.transient && !o.positional && !o.failed
}

type entry struct {
	from       int
	c          candidate
	positional bool
}

// covers reports whether the entry answers a search from pos. A match
// stays valid until the cursor passes its start; a miss stays valid for
// every later position.
func (e entry) covers(pos int) bool {
	if e.positional {
		return pos == e.from
	}
	if pos < e.from {
		return false
	}
	return !e.c.found() || pos <= e.c.m.Start()
}

// activeList is the part of a pattern list still worth searching from
// position from onward.
type activeList struct {
	from  int
	nodes []*grammar.Node
}

// matchCache memoizes searches within one pass of one document. It is keyed
// by pattern identity, so one grammar can back many passes at once.
type matchCache struct {
	disabled bool

	regexes map[*pattern.Regex]entry
	nodes   map[*grammar.Node]entry
	lists   map[any]*activeList

	hits   int
	misses int
}

func newMatchCache(disabled bool) *matchCache {
	return &matchCache{
		disabled: disabled,
		regexes:  make(map[*pattern.Regex]entry),
		nodes:    make(map[*grammar.Node]entry),
		lists:    make(map[any]*activeList),
	}
}

func (mc *matchCache) regex(re *pattern.Regex, pos int) (candidate, bool) {
	if mc.disabled {
		return candidate{}, false
	}
	e, ok := mc.regexes[re]
	return mc.lookup(e, ok, pos)
}

func (mc *matchCache) storeRegex(re *pattern.Regex, pos int, c candidate) {
	if mc.disabled {
		return
	}
	mc.regexes[re] = entry{from: pos, c: c, positional: re.Anchored()}
}

func (mc *matchCache) node(n *grammar.Node, pos int) (candidate, outcome, bool) {
	if mc.disabled {
		return candidate{}, outcome{}, false
	}
	e, ok := mc.nodes[n]
	c, hit := mc.lookup(e, ok, pos)
	return c, outcome{positional: e.positional}, hit
}

func (mc *matchCache) storeNode(n *grammar.Node, pos int, c candidate, o outcome) {
	if mc.disabled || o.transient || o.failed {
		return
	}
	mc.nodes[n] = entry{from: pos, c: c, positional: o.positional}
}

func (mc *matchCache) lookup(e entry, ok bool, pos int) (candidate, bool) {
	if ok && e.covers(pos) {
		mc.hits++
		return e.c, true
	}
	mc.misses++
	return candidate{}, false
}

// list returns the active part of the pattern list owned by owner. A search
// behind the list's position starts over from the full list. The returned
// slice never aliases the grammar's own slice.
func (mc *matchCache) list(owner any, nodes []*grammar.Node, pos int) *activeList {
	if mc.disabled {
		return &activeList{from: pos, nodes: nodes}
	}
	l, ok := mc.lists[owner]
	if !ok || pos < l.from {
		l = &activeList{from: pos, nodes: append([]*grammar.Node(nil), nodes...)}
		mc.lists[owner] = l
	}
	l.from = pos
	return l
}

// drop removes nodes that can no longer match from an active list. The
// list gets a fresh slice since an enclosing search may still be ranging
// over the old one.
func (mc *matchCache) drop(l *activeList, dead map[*grammar.Node]bool) {
	if mc.disabled || len(dead) == 0 {
		return
	}
	kept := make([]*grammar.Node, 0, len(l.nodes))
	for _, n := range l.nodes {
		if !dead[n] {
			kept = append(kept, n)
		}
	}
	l.nodes = kept
}
