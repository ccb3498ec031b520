// Package registry loads grammars and color schemes once and serves them to
// tokenization passes. A Registry replaces process-wide state: callers
// construct one and pass it where grammars are needed.
package registry

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/spicery/tmscope/internal/cache"
	"github.com/spicery/tmscope/pkg/grammar"
	"github.com/spicery/tmscope/pkg/pattern"
	"github.com/spicery/tmscope/pkg/theme"
	"github.com/spicery/tmscope/pkg/tokenizer"
)

// Options configures a Registry.
type Options struct {
	// Pattern controls how grammar patterns are compiled.
	Pattern pattern.Options
	// Tokenizer is the base configuration of passes run through Tokenize.
	// Its Resolver and Logger are replaced by the registry's.
	Tokenizer tokenizer.Options
	// Loader reads grammar definitions. Nil means grammar.FileLoader.
	Loader grammar.Loader
	// Logger receives load diagnostics. Nil means no logging.
	Logger *zap.Logger
}

// Registry caches grammars and color schemes by absolute file path and
// resolves grammars by scope name. It is safe for concurrent use.
type Registry struct {
	opts   Options
	loader grammar.Loader
	log    *zap.Logger

	grammars *cache.Cache[*grammar.Grammar]
	themes   *cache.Cache[*theme.ColorScheme]

	mu     sync.RWMutex
	scopes map[string]string // scope name -> path
	failed map[string]error  // path -> load error
}

// New returns an empty registry.
func New(opts Options) *Registry {
	r := &Registry{
		opts:     opts,
		loader:   opts.Loader,
		log:      opts.Logger,
		grammars: cache.New[*grammar.Grammar](),
		themes:   cache.New[*theme.ColorScheme](),
		scopes:   make(map[string]string),
		failed:   make(map[string]error),
	}
	if r.loader == nil {
		r.loader = grammar.FileLoader{}
	}
	if r.log == nil {
		r.log = zap.NewNop()
	}
	return r
}

// LoadGrammar returns the grammar at path, loading and compiling it on
// first use. A file that failed to load keeps failing with the same error.
func (r *Registry) LoadGrammar(path string) (*grammar.Grammar, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve grammar path: %w", err)
	}
	if g, ok := r.grammars.Get(abs); ok {
		return g, nil
	}
	r.mu.RLock()
	err, failed := r.failed[abs]
	r.mu.RUnlock()
	if failed {
		return nil, err
	}

	g, err := r.load(abs)
	if err != nil {
		r.mu.Lock()
		r.failed[abs] = err
		r.mu.Unlock()
		r.log.Warn("grammar not usable", zap.String("path", abs), zap.Error(err))
		return nil, err
	}
	if !r.grammars.Add(abs, g) {
		// another goroutine won the race; keep its grammar
		if prev, ok := r.grammars.Get(abs); ok {
			return prev, nil
		}
	}
	r.index(g.ScopeName, abs)
	return g, nil
}

func (r *Registry) load(abs string) (*grammar.Grammar, error) {
	def, err := r.loader.Load(abs)
	if err != nil {
		return nil, err
	}
	g, err := grammar.Compile(def, r.opts.Pattern)
	if err != nil {
		return nil, fmt.Errorf("compile grammar %s: %w", abs, err)
	}
	for _, d := range g.Diagnostics {
		r.log.Warn("grammar diagnostic",
			zap.String("grammar", g.ScopeName),
			zap.String("rule", d.Path),
			zap.String("pattern", d.Source),
			zap.Error(d.Err))
	}
	r.log.Debug("grammar loaded",
		zap.String("grammar", g.ScopeName),
		zap.String("path", abs),
		zap.Int("rules", len(g.Nodes())))
	return g, nil
}

func (r *Registry) index(scope, abs string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.scopes[scope]; ok && prev != abs {
		r.log.Warn("scope defined twice, keeping the first",
			zap.String("scope", scope),
			zap.String("kept", prev),
			zap.String("ignored", abs))
		return
	}
	r.scopes[scope] = abs
}

// AddDirectory loads every grammar file under dir. Files that fail to load
// are logged and skipped. It returns the number of grammars loaded.
func (r *Registry) AddDirectory(dir string) (int, error) {
	n := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || grammar.FormatOf(path) == grammar.FormatUnknown {
			return nil
		}
		if _, err := r.LoadGrammar(path); err == nil {
			n++
		}
		return nil
	})
	if err != nil {
		return n, fmt.Errorf("scan grammar directory %s: %w", dir, err)
	}
	r.log.Debug("grammar directory scanned",
		zap.String("dir", dir),
		zap.Int("loaded", n),
		zap.Int("cached", r.grammars.Len()))
	return n, nil
}

// GrammarForScope returns the loaded grammar with the given scope name.
func (r *Registry) GrammarForScope(scope string) (*grammar.Grammar, bool) {
	r.mu.RLock()
	abs, ok := r.scopes[scope]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return r.grammars.Get(abs)
}

// Scopes returns the scope names of all loaded grammars, sorted.
func (r *Registry) Scopes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	scopes := make([]string, 0, len(r.scopes))
	for s := range r.scopes {
		scopes = append(scopes, s)
	}
	sort.Strings(scopes)
	return scopes
}

// Grammars returns the grammars that own their scope name, sorted by
// scope. A grammar shadowed by an earlier one with the same scope is left
// out.
func (r *Registry) Grammars() []*grammar.Grammar {
	items := r.grammars.Items()
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*grammar.Grammar, 0, len(r.scopes))
	for path, g := range items {
		if r.scopes[g.ScopeName] == path {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScopeName < out[j].ScopeName })
	return out
}

// GrammarForFile picks a grammar for a file. A grammar whose
// firstLineMatch accepts firstLine is preferred over one that lists the
// file's type. Ties go to the smaller scope name.
func (r *Registry) GrammarForFile(name, firstLine string) (*grammar.Grammar, bool) {
	var byType *grammar.Grammar
	for _, scope := range r.Scopes() {
		g, ok := r.GrammarForScope(scope)
		if !ok {
			continue
		}
		if firstLine != "" && g.MatchesFirstLine(firstLine) {
			return g, true
		}
		if byType == nil && g.MatchesFile(name) {
			byType = g
		}
	}
	return byType, byType != nil
}

// LoadTheme returns the color scheme at path, loading it on first use.
func (r *Registry) LoadTheme(path string) (*theme.ColorScheme, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve theme path: %w", err)
	}
	if cs, ok := r.themes.Get(abs); ok {
		return cs, nil
	}
	cs, err := theme.Load(abs)
	if err != nil {
		r.log.Warn("theme not usable", zap.String("path", abs), zap.Error(err))
		return nil, err
	}
	r.themes.Add(abs, cs)
	cs, _ = r.themes.Get(abs)
	return cs, nil
}

// Tokenize runs one pass of g over text with cross-grammar includes
// resolved through the registry.
func (r *Registry) Tokenize(ctx context.Context, g *grammar.Grammar, text string) (*tokenizer.Result, error) {
	opts := r.opts.Tokenizer
	opts.Resolver = r
	opts.Logger = r.log
	return tokenizer.Tokenize(ctx, g, text, opts)
}
