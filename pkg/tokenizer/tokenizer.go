// Package tokenizer partitions a document into scope spans using a compiled
// TextMate grammar.
package tokenizer

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spicery/tmscope/pkg/grammar"
	"github.com/spicery/tmscope/pkg/pattern"
)

const (
	DefaultMaxIterations = 1_000_000
	DefaultMaxDepth      = 64
)

// errCapped stops a pass that reached its iteration limit.
var errCapped = errors.New("iteration limit reached")

// Options configures a tokenization pass.
type Options struct {
	// MaxIterations bounds the number of scheduling steps in one pass,
	// counted across the top level and every begin/end block.
	MaxIterations int
	// MaxDepth bounds begin/end nesting. Deeper blocks still close but
	// their child patterns are not searched.
	MaxDepth int
	// DisableCache makes every search run afresh.
	DisableCache bool
	// Resolver finds grammars for cross-grammar includes. May be nil.
	Resolver grammar.Resolver
	// Logger receives diagnostics. Nil means no logging.
	Logger *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Tokenizer runs passes of one grammar over one document. It is not safe
// for concurrent use; the grammar may be shared between tokenizers.
type Tokenizer struct {
	grammar *grammar.Grammar
	text    *pattern.Text
	opts    Options
	log     *zap.Logger

	// per-pass state
	ctx        context.Context
	cache      *matchCache
	resolver   *passResolver
	resolving  map[*grammar.Node]bool
	ends       map[string]*pattern.Regex
	spans      []ScopeSpan
	iterations int
}

// NewTokenizer creates a tokenizer for text.
func NewTokenizer(g *grammar.Grammar, text string, opts Options) *Tokenizer {
	opts = opts.withDefaults()
	return &Tokenizer{
		grammar: g,
		text:    pattern.NewText(text),
		opts:    opts,
		log:     opts.Logger.With(zap.String("grammar", g.ScopeName)),
	}
}

// Tokenize tokenizes text with g in a single pass.
func Tokenize(ctx context.Context, g *grammar.Grammar, text string, opts Options) (*Result, error) {
	return NewTokenizer(g, text, opts).Tokenize(ctx)
}

func (t *Tokenizer) reset(ctx context.Context) {
	t.ctx = ctx
	t.cache = newMatchCache(t.opts.DisableCache)
	t.resolver = newPassResolver(t.opts.Resolver, t.log)
	t.resolving = make(map[*grammar.Node]bool)
	t.ends = make(map[string]*pattern.Regex)
	t.spans = nil
	t.iterations = 0
}

// release drops the per-pass state.
func (t *Tokenizer) release() {
	t.ctx = nil
	t.cache = nil
	t.resolver = nil
	t.resolving = nil
	t.ends = nil
	t.spans = nil
}

// Tokenize runs a pass over the whole document. Every call starts from
// scratch. A pass that reaches the iteration limit returns its partial
// spans with StatusCapped and no error; a cancelled pass returns the
// context's error.
func (t *Tokenizer) Tokenize(ctx context.Context) (*Result, error) {
	t.reset(ctx)
	defer t.release()

	status, err := t.run()
	if err != nil {
		return nil, err
	}
	t.log.Debug("tokenized",
		zap.Stringer("status", status),
		zap.Int("spans", len(t.spans)),
		zap.Int("iterations", t.iterations),
		zap.Int("cache_hits", t.cache.hits),
		zap.Int("cache_misses", t.cache.misses))
	return &Result{
		Spans:       t.spans,
		Status:      status,
		Iterations:  t.iterations,
		CacheHits:   t.cache.hits,
		CacheMisses: t.cache.misses,
	}, nil
}

func (t *Tokenizer) run() (Status, error) {
	root := t.grammar.ScopeName
	end := t.text.Len()
	pos := 0
	for pos < end {
		if err := t.step(); err != nil {
			return t.stopped(err)
		}
		c, _ := t.firstMatch(t.grammar, t.grammar.Patterns, pos)
		if !c.found() {
			t.emit(pos, end, root)
			return StatusExhausted, nil
		}
		t.emit(pos, c.m.Start(), root)
		next, err := t.apply(c, root, 1)
		if err != nil {
			return t.stopped(err)
		}
		pos = t.advance(pos, next, root)
	}
	return StatusComplete, nil
}

func (t *Tokenizer) stopped(err error) (Status, error) {
	if errors.Is(err, errCapped) {
		t.log.Warn("iteration limit reached",
			zap.Int("limit", t.opts.MaxIterations),
			zap.Int("covered", t.covered()))
		return StatusCapped, nil
	}
	return 0, err
}

// step counts one scheduling step and reports cancellation or the
// iteration limit.
func (t *Tokenizer) step() error {
	if err := t.ctx.Err(); err != nil {
		return err
	}
	if t.iterations >= t.opts.MaxIterations {
		return errCapped
	}
	t.iterations++
	return nil
}

// advance moves the cursor after an application that ended at next. An
// application that consumed nothing is followed by a one-rune span so
// that zero-width matches cannot stall the pass.
func (t *Tokenizer) advance(pos, next int, chain string) int {
	if next > pos {
		return next
	}
	next = t.text.NextRune(pos)
	t.emit(pos, next, chain)
	return next
}

// covered returns the end of the last emitted span.
func (t *Tokenizer) covered() int {
	if len(t.spans) == 0 {
		return 0
	}
	return t.spans[len(t.spans)-1].End
}

// emit appends the span [start, end) unless it is empty.
func (t *Tokenizer) emit(start, end int, scope string) {
	if start >= end {
		return
	}
	t.spans = append(t.spans, ScopeSpan{Scope: scope, Start: start, End: end})
}
