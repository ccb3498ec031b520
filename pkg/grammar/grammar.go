// Package grammar holds the in-memory model of a TextMate grammar: the
// ordered rule tree, the named repository and include resolution.
//
// A compiled Grammar is immutable and may back any number of concurrent
// tokenization passes.
package grammar

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spicery/tmscope/pkg/pattern"
)

// ErrNoScopeName is returned when a definition does not declare its root scope.
var ErrNoScopeName = errors.New("grammar has no scopeName")

// Kind classifies a Node.
type Kind int

const (
	// KindUnusable marks a rule whose patterns failed to compile. It never matches.
	KindUnusable Kind = iota
	KindMatch
	KindBeginEnd
	KindInclude
	// KindContainer is a rule with only child patterns.
	KindContainer
)

func (k Kind) String() string {
	switch k {
	case KindMatch:
		return "match"
	case KindBeginEnd:
		return "begin/end"
	case KindInclude:
		return "include"
	case KindContainer:
		return "container"
	default:
		return "unusable"
	}
}

// Capture is the scope assigned to one capture group.
type Capture struct {
	Index int
	Name  string
}

// CaptureMap lists captures ordered by group index.
type CaptureMap []Capture

// Node is one compiled grammar rule.
type Node struct {
	// ID is the node's index in its grammar's arena.
	ID          int
	Kind        Kind
	Name        string
	ContentName string

	Match *pattern.Regex
	Begin *pattern.Regex
	End   *pattern.Regex

	Captures      CaptureMap
	BeginCaptures CaptureMap
	EndCaptures   CaptureMap

	Patterns []*Node
	Include  Include

	grammar *Grammar
}

// Grammar returns the grammar the node belongs to.
func (n *Node) Grammar() *Grammar {
	return n.grammar
}

// ScopeName returns the scope a match of this rule contributes: its name,
// or its contentName for a begin/end rule without a name.
func (n *Node) ScopeName() string {
	if n.Name != "" {
		return n.Name
	}
	if n.Kind == KindBeginEnd {
		return n.ContentName
	}
	return ""
}

// InteriorName returns the extra scope applied between begin and end,
// which is contentName when it is not already used as the rule's scope.
func (n *Node) InteriorName() string {
	if n.Name != "" && n.ContentName != n.Name {
		return n.ContentName
	}
	return ""
}

func (n *Node) String() string {
	switch n.Kind {
	case KindMatch:
		return fmt.Sprintf("#%d match %q", n.ID, n.Match.Source())
	case KindBeginEnd:
		return fmt.Sprintf("#%d begin %q", n.ID, n.Begin.Source())
	case KindInclude:
		return fmt.Sprintf("#%d include %q", n.ID, n.Include.Ref)
	}
	return fmt.Sprintf("#%d %s", n.ID, n.Kind)
}

// Diagnostic records a recoverable problem found while compiling a grammar.
type Diagnostic struct {
	// Path locates the rule, e.g. "repository.strings.patterns[2].begin".
	Path   string
	Source string
	Err    error
}

func (d Diagnostic) String() string {
	if d.Source == "" {
		return fmt.Sprintf("%s: %v", d.Path, d.Err)
	}
	return fmt.Sprintf("%s %q: %v", d.Path, d.Source, d.Err)
}

// Grammar is a compiled grammar.
type Grammar struct {
	Name        string
	ScopeName   string
	FileTypes   []string
	FirstLine   *pattern.Regex
	Patterns    []*Node
	Repository  map[string][]*Node
	Diagnostics []Diagnostic

	nodes []*Node
}

// Nodes returns every compiled node, indexed by ID.
func (g *Grammar) Nodes() []*Node {
	return g.nodes
}

// MatchesFile reports whether filename has one of the grammar's file types.
// File types are matched against the extension or the whole base name.
func (g *Grammar) MatchesFile(filename string) bool {
	base := filepath.Base(filename)
	ext := strings.TrimPrefix(filepath.Ext(base), ".")
	for _, ft := range g.FileTypes {
		if ft == base || (ext != "" && ft == ext) {
			return true
		}
	}
	return false
}

// MatchesFirstLine reports whether line satisfies the grammar's firstLineMatch.
func (g *Grammar) MatchesFirstLine(line string) bool {
	if g.FirstLine == nil {
		return false
	}
	m, err := g.FirstLine.Search(pattern.NewText(line), 0)
	return err == nil && m != nil
}

// Resolver finds other grammars by scope name for cross-grammar includes.
type Resolver interface {
	GrammarForScope(scope string) (*Grammar, bool)
}

// compiler carries state while compiling one definition.
type compiler struct {
	g    *Grammar
	opts pattern.Options
	// includes collected for linking once the repository is complete
	includes []*Node
}

// Compile builds an immutable grammar from a definition. Patterns that fail
// to compile are recorded in Diagnostics and their rules never match; only
// a missing scopeName is an error.
func Compile(def *Definition, opts pattern.Options) (*Grammar, error) {
	if def.ScopeName == "" {
		return nil, ErrNoScopeName
	}
	c := &compiler{
		g: &Grammar{
			Name:       def.Name,
			ScopeName:  def.ScopeName,
			FileTypes:  def.FileTypes,
			Repository: make(map[string][]*Node, len(def.Repository)),
		},
		opts: opts,
	}
	if def.FirstLineMatch != "" {
		c.g.FirstLine = c.regex("firstLineMatch", def.FirstLineMatch)
	}
	c.g.Patterns = c.rules("patterns", def.Patterns)

	keys := make([]string, 0, len(def.Repository))
	for k := range def.Repository {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		c.g.Repository[k] = c.entry("repository."+k, def.Repository[k])
	}

	for _, n := range c.includes {
		c.link(n)
	}
	return c.g, nil
}

// entry compiles a repository entry into the pattern list an include of
// its key stands for.
func (c *compiler) entry(path string, def RuleDefinition) []*Node {
	if def.Match == "" && def.Begin == "" && def.Include == "" {
		return c.rules(path+".patterns", def.Patterns)
	}
	return []*Node{c.rule(path, def)}
}

func (c *compiler) rules(path string, defs []RuleDefinition) []*Node {
	nodes := make([]*Node, 0, len(defs))
	for i, def := range defs {
		nodes = append(nodes, c.rule(fmt.Sprintf("%s[%d]", path, i), def))
	}
	return nodes
}

func (c *compiler) rule(path string, def RuleDefinition) *Node {
	n := &Node{
		ID:          len(c.g.nodes),
		Name:        strings.TrimSpace(def.Name),
		ContentName: strings.TrimSpace(def.ContentName),
		grammar:     c.g,
	}
	c.g.nodes = append(c.g.nodes, n)

	switch {
	case def.Match != "":
		n.Match = c.regex(path+".match", def.Match)
		n.Captures = c.captures(path+".captures", def.Captures)
		n.Kind = KindMatch
		if n.Match == nil {
			n.Kind = KindUnusable
		}
	case def.Begin != "":
		n.Begin = c.regex(path+".begin", def.Begin)
		if def.End != "" {
			n.End = c.endRegex(path+".end", def.End)
		}
		n.Captures = c.captures(path+".captures", def.Captures)
		n.BeginCaptures = c.captures(path+".beginCaptures", def.BeginCaptures)
		n.EndCaptures = c.captures(path+".endCaptures", def.EndCaptures)
		n.Kind = KindBeginEnd
		if n.Begin == nil || (def.End != "" && n.End == nil) {
			n.Kind = KindUnusable
		}
	case def.Include != "":
		n.Include = parseInclude(def.Include)
		n.Kind = KindInclude
		c.includes = append(c.includes, n)
	default:
		n.Kind = KindContainer
	}
	if def.End != "" && def.Begin == "" {
		c.diagnose(path+".end", def.End, errors.New("end without begin is ignored"))
	}
	// children compile after the node itself so IDs follow declaration order
	n.Patterns = c.rules(path+".patterns", def.Patterns)
	return n
}

func (c *compiler) regex(path, src string) *pattern.Regex {
	re, err := pattern.Compile(src, c.opts)
	if err != nil {
		c.diagnose(path, src, err)
		return nil
	}
	return re
}

// endRegex compiles an end pattern. A pattern whose back-references name
// groups it does not define is kept deferred; the tokenizer compiles the
// expanded form for every begin match.
func (c *compiler) endRegex(path, src string) *pattern.Regex {
	re, err := pattern.Compile(src, c.opts)
	if err != nil && pattern.SourceHasBackrefs(src) {
		re, err = pattern.Deferred(src, c.opts)
	}
	if err != nil {
		c.diagnose(path, src, err)
		return nil
	}
	return re
}

func (c *compiler) captures(path string, defs map[string]CaptureDefinition) CaptureMap {
	if len(defs) == 0 {
		return nil
	}
	caps := make(CaptureMap, 0, len(defs))
	for k, def := range defs {
		idx, err := strconv.Atoi(k)
		if err != nil || idx < 0 {
			c.diagnose(path+"."+k, "", fmt.Errorf("invalid capture index %q", k))
			continue
		}
		name := strings.TrimSpace(def.Name)
		if name == "" {
			continue
		}
		caps = append(caps, Capture{Index: idx, Name: name})
	}
	sort.Slice(caps, func(i, j int) bool { return caps[i].Index < caps[j].Index })
	return caps
}

func (c *compiler) diagnose(path, src string, err error) {
	c.g.Diagnostics = append(c.g.Diagnostics, Diagnostic{Path: path, Source: src, Err: err})
}
