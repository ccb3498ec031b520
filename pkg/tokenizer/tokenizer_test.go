package tokenizer

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spicery/tmscope/pkg/grammar"
	"github.com/spicery/tmscope/pkg/pattern"
)

const root = "source.t"

func build(t testing.TB, patterns []grammar.RuleDefinition, repo map[string]grammar.RuleDefinition) *grammar.Grammar {
	t.Helper()
	return buildScope(t, root, patterns, repo)
}

func buildScope(t testing.TB, scope string, patterns []grammar.RuleDefinition, repo map[string]grammar.RuleDefinition) *grammar.Grammar {
	t.Helper()
	g := compile(t, scope, patterns, repo)
	require.Empty(t, g.Diagnostics)
	return g
}

// compile builds a grammar that may carry diagnostics.
func compile(t testing.TB, scope string, patterns []grammar.RuleDefinition, repo map[string]grammar.RuleDefinition) *grammar.Grammar {
	t.Helper()
	g, err := grammar.Compile(&grammar.Definition{ScopeName: scope, Patterns: patterns, Repository: repo}, pattern.Options{})
	require.NoError(t, err)
	return g
}

func span(start, end int, scope string) ScopeSpan {
	return ScopeSpan{Scope: scope, Start: start, End: end}
}

func run(t *testing.T, g *grammar.Grammar, text string, opts Options) *Result {
	t.Helper()
	res, err := Tokenize(context.Background(), g, text, opts)
	require.NoError(t, err)
	return res
}

func assertSpans(t *testing.T, expected []ScopeSpan, res *Result) {
	t.Helper()
	if diff := cmp.Diff(expected, res.Spans); diff != "" {
		t.Errorf("spans mismatch (-want +got):\n%s", diff)
	}
}

type resolverMap map[string]*grammar.Grammar

func (r resolverMap) GrammarForScope(scope string) (*grammar.Grammar, bool) {
	g, ok := r[scope]
	return g, ok
}

func parenGrammar(t testing.TB) *grammar.Grammar {
	return build(t, []grammar.RuleDefinition{
		{Begin: `\(`, End: `\)`, Name: "paren", Patterns: []grammar.RuleDefinition{{Include: "$self"}}},
		{Match: `\w+`, Name: "word"},
	}, nil)
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name        string
		patterns    []grammar.RuleDefinition
		repo        map[string]grammar.RuleDefinition
		input       string
		expected    []ScopeSpan
		status      Status
		diagnostics []string
	}{
		{
			name: "Match rule with capture",
			patterns: []grammar.RuleDefinition{{
				Match:    `"([^"]*)"`,
				Name:     "string.quoted.double",
				Captures: map[string]grammar.CaptureDefinition{"1": {Name: "string.quoted.double.content"}},
			}},
			input: `say "hi" now`,
			expected: []ScopeSpan{
				span(0, 4, root),
				span(4, 5, root+" string.quoted.double"),
				span(5, 7, root+" string.quoted.double string.quoted.double.content"),
				span(7, 8, root+" string.quoted.double"),
				span(8, 12, root),
			},
			status: StatusExhausted,
		},
		{
			name:     "Begin end with contentName",
			patterns: []grammar.RuleDefinition{{Begin: `/\*`, End: `\*/`, ContentName: "comment.block"}},
			input:    "a /* x */ b",
			expected: []ScopeSpan{
				span(0, 2, root),
				span(2, 4, root+" comment.block"),
				span(4, 7, root+" comment.block"),
				span(7, 9, root+" comment.block"),
				span(9, 11, root),
			},
			status: StatusExhausted,
		},
		{
			name:     "Unresolved include",
			patterns:    []grammar.RuleDefinition{{Include: "#missing"}},
			input:       "abc def",
			expected:    []ScopeSpan{span(0, 7, root)},
			status:      StatusExhausted,
			diagnostics: []string{`no repository entry "missing"`},
		},
		{
			name: "Earlier declaration wins a tie",
			patterns: []grammar.RuleDefinition{
				{Match: `ab`, Name: "first"},
				{Match: `a\w`, Name: "second"},
			},
			input:    "ab",
			expected: []ScopeSpan{span(0, 2, root+" first")},
			status:   StatusComplete,
		},
		{
			name: "Leftmost match wins over declaration order",
			patterns: []grammar.RuleDefinition{
				{Match: `b`, Name: "b"},
				{Match: `a`, Name: "a"},
			},
			input:    "ab",
			expected: []ScopeSpan{span(0, 1, root+" a"), span(1, 2, root+" b")},
			status:   StatusComplete,
		},
		{
			name: "Nested captures",
			patterns: []grammar.RuleDefinition{{
				Match: `((a)b)c`,
				Name:  "rule",
				Captures: map[string]grammar.CaptureDefinition{
					"0": {Name: "all"},
					"1": {Name: "outer"},
					"2": {Name: "inner"},
				},
			}},
			input: "abc",
			expected: []ScopeSpan{
				span(0, 1, root+" rule all outer inner"),
				span(1, 2, root+" rule all outer"),
				span(2, 3, root+" rule all"),
			},
			status: StatusComplete,
		},
		{
			name: "Absent capture group",
			patterns: []grammar.RuleDefinition{{
				Match:    `a(x)?b`,
				Name:     "r",
				Captures: map[string]grammar.CaptureDefinition{"1": {Name: "opt"}},
			}},
			input:    "ab",
			expected: []ScopeSpan{span(0, 2, root+" r")},
			status:   StatusComplete,
		},
		{
			name: "Begin captures fall back to captures",
			patterns: []grammar.RuleDefinition{{
				Begin:    `(<)`,
				End:      `(>)`,
				Name:     "tag",
				Captures: map[string]grammar.CaptureDefinition{"1": {Name: "punct"}},
			}},
			input: "<a>",
			expected: []ScopeSpan{
				span(0, 1, root+" tag punct"),
				span(1, 2, root+" tag"),
				span(2, 3, root+" tag punct"),
			},
			status: StatusComplete,
		},
		{
			name:     "Name and contentName",
			patterns: []grammar.RuleDefinition{{Begin: `\{`, End: `\}`, Name: "block", ContentName: "body"}},
			input:    "{x}",
			expected: []ScopeSpan{
				span(0, 1, root+" block"),
				span(1, 2, root+" block body"),
				span(2, 3, root+" block"),
			},
			status: StatusComplete,
		},
		{
			name:     "Missing end closes at line end",
			patterns: []grammar.RuleDefinition{{Begin: `"`, End: `"`, Name: "string"}},
			input:    "x \"abc\ny",
			expected: []ScopeSpan{
				span(0, 2, root),
				span(2, 3, root+" string"),
				span(3, 6, root+" string"),
				span(6, 8, root),
			},
			status: StatusExhausted,
		},
		{
			name:     "Begin without end",
			patterns: []grammar.RuleDefinition{{Begin: `#`, Name: "comment"}},
			input:    "a # b\nc",
			expected: []ScopeSpan{
				span(0, 2, root),
				span(2, 3, root+" comment"),
				span(3, 5, root+" comment"),
				span(5, 7, root),
			},
			status: StatusExhausted,
		},
		{
			name:     "End back-reference",
			patterns: []grammar.RuleDefinition{{Begin: `<<(\w+)`, End: `^\1$`, Name: "heredoc"}},
			input:    "<<EOF\nbody\nEOF\nz",
			expected: []ScopeSpan{
				span(0, 5, root+" heredoc"),
				span(5, 11, root+" heredoc"),
				span(11, 14, root+" heredoc"),
				span(14, 16, root),
			},
			status: StatusExhausted,
		},
		{
			name:     "Zero-width match does not stall",
			patterns: []grammar.RuleDefinition{{Match: `(?=a)`, Name: "look"}},
			input:    "aa",
			expected: []ScopeSpan{span(0, 1, root), span(1, 2, root)},
			status:   StatusComplete,
		},
		{
			name:     "Byte offsets",
			patterns: []grammar.RuleDefinition{{Match: `é+`, Name: "e"}},
			input:    "aéé b",
			expected: []ScopeSpan{span(0, 1, root), span(1, 5, root+" e"), span(5, 7, root)},
			status:   StatusExhausted,
		},
		{
			name: "Repository includes guard against cycles",
			patterns: []grammar.RuleDefinition{{Include: "#a"}},
			repo: map[string]grammar.RuleDefinition{
				"a": {Patterns: []grammar.RuleDefinition{{Include: "#b"}, {Match: `x`, Name: "x"}}},
				"b": {Patterns: []grammar.RuleDefinition{{Include: "#a"}, {Match: `y`, Name: "y"}}},
			},
			input:    "yx",
			expected: []ScopeSpan{span(0, 1, root+" y"), span(1, 2, root+" x")},
			status:   StatusComplete,
		},
		{
			name: "Child match before end",
			patterns: []grammar.RuleDefinition{{
				Begin:    `"`,
				End:      `"`,
				Name:     "string",
				Patterns: []grammar.RuleDefinition{{Match: `\\.`, Name: "escape"}},
			}},
			input: `"a\"b"`,
			expected: []ScopeSpan{
				span(0, 1, root+" string"),
				span(1, 2, root+" string"),
				span(2, 4, root+" string escape"),
				span(4, 5, root+" string"),
				span(5, 6, root+" string"),
			},
			status: StatusComplete,
		},
		{
			name:     "Empty document",
			patterns: []grammar.RuleDefinition{{Match: `a`}},
			input:    "",
			status:   StatusComplete,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := compile(t, root, tt.patterns, tt.repo)
			require.Len(t, g.Diagnostics, len(tt.diagnostics))
			for i, d := range tt.diagnostics {
				assert.ErrorContains(t, g.Diagnostics[i].Err, d)
			}
			res := run(t, g, tt.input, Options{})
			assertSpans(t, tt.expected, res)
			assert.Equal(t, tt.status, res.Status)

			uncached := run(t, g, tt.input, Options{DisableCache: true})
			assertSpans(t, tt.expected, uncached)
		})
	}
}

func TestSelfRecursion(t *testing.T) {
	res := run(t, parenGrammar(t), "(a(b))", Options{})
	assertSpans(t, []ScopeSpan{
		span(0, 1, root+" paren"),
		span(1, 2, root+" paren word"),
		span(2, 3, root+" paren paren"),
		span(3, 4, root+" paren paren word"),
		span(4, 5, root+" paren paren"),
		span(5, 6, root+" paren"),
	}, res)
	assert.Equal(t, StatusComplete, res.Status)
}

func TestMaxDepth(t *testing.T) {
	res := run(t, parenGrammar(t), "((a))", Options{MaxDepth: 1})
	assertSpans(t, []ScopeSpan{
		span(0, 1, root+" paren"),
		span(1, 2, root+" paren paren"),
		span(2, 3, root+" paren paren"),
		span(3, 4, root+" paren paren"),
		span(4, 5, root+" paren"),
	}, res)
}

func TestForeignInclude(t *testing.T) {
	other := buildScope(t, "source.other", []grammar.RuleDefinition{{Match: `\d+`, Name: "constant.numeric"}}, nil)
	g := build(t, []grammar.RuleDefinition{{
		Begin:    `<<`,
		End:      `>>`,
		Name:     "meta.embedded",
		Patterns: []grammar.RuleDefinition{{Include: "source.other"}},
	}}, nil)

	res := run(t, g, "a<<12>>", Options{Resolver: resolverMap{"source.other": other}})
	assertSpans(t, []ScopeSpan{
		span(0, 1, root),
		span(1, 3, root+" meta.embedded"),
		span(3, 5, root+" meta.embedded constant.numeric"),
		span(5, 7, root+" meta.embedded"),
	}, res)

	// without a resolver the embedded grammar contributes nothing
	res = run(t, g, "a<<12>>", Options{})
	assertSpans(t, []ScopeSpan{
		span(0, 1, root),
		span(1, 3, root+" meta.embedded"),
		span(3, 5, root+" meta.embedded"),
		span(5, 7, root+" meta.embedded"),
	}, res)
}

func TestBaseIncludeUsesPassGrammar(t *testing.T) {
	other := buildScope(t, "source.other", []grammar.RuleDefinition{{
		Begin:    `\[`,
		End:      `\]`,
		Patterns: []grammar.RuleDefinition{{Include: "$base"}},
	}}, nil)
	g := build(t, []grammar.RuleDefinition{
		{Include: "source.other"},
		{Match: `k`, Name: "kw"},
	}, nil)

	res := run(t, g, "[k]", Options{Resolver: resolverMap{"source.other": other}})
	assertSpans(t, []ScopeSpan{
		span(0, 1, root),
		span(1, 2, root+" kw"),
		span(2, 3, root),
	}, res)
}

func TestTimedOutPatternIsRetried(t *testing.T) {
	def := &grammar.Definition{ScopeName: root, Patterns: []grammar.RuleDefinition{
		{Match: `(a+)+$`, Name: "run"},
		{Match: `!`, Name: "bang"},
	}}
	g, err := grammar.Compile(def, pattern.Options{MatchTimeout: 20 * time.Millisecond})
	require.NoError(t, err)
	require.Empty(t, g.Diagnostics)

	// the first search of the run rule backtracks until it times out
	doc := strings.Repeat("a", 32) + "!\naa"
	expected := []ScopeSpan{
		span(0, 32, root),
		span(32, 33, root+" bang"),
		span(33, 34, root),
		span(34, 36, root+" run"),
	}
	for _, disable := range []bool{false, true} {
		res := run(t, g, doc, Options{DisableCache: disable})
		assertSpans(t, expected, res)
		assert.Equal(t, StatusComplete, res.Status)
	}
}

func TestIterationCap(t *testing.T) {
	g := build(t, []grammar.RuleDefinition{{Match: `a`, Name: "a"}}, nil)
	res := run(t, g, "aaaa", Options{MaxIterations: 2})

	assert.Equal(t, StatusCapped, res.Status)
	assert.False(t, res.Complete())
	assert.Equal(t, 2, res.Iterations)
	assertSpans(t, []ScopeSpan{span(0, 1, root+" a"), span(1, 2, root+" a")}, res)
}

func TestCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := Tokenize(ctx, parenGrammar(t), "(a)", Options{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
}

func TestRepeatedPassesAreIndependent(t *testing.T) {
	tok := NewTokenizer(parenGrammar(t), "(a) b", Options{})
	first, err := tok.Tokenize(context.Background())
	require.NoError(t, err)
	second, err := tok.Tokenize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCacheStatistics(t *testing.T) {
	g := build(t, []grammar.RuleDefinition{
		{Match: `z`, Name: "z"},
		{Match: `\d`, Name: "digit"},
		{Include: "#words"},
	}, map[string]grammar.RuleDefinition{
		"words": {Patterns: []grammar.RuleDefinition{{Match: `[a-y]+`, Name: "word"}}},
	})
	input := "ab 1 cd 2 ef 3 gh"

	cached := run(t, g, input, Options{})
	assert.Positive(t, cached.CacheHits)

	uncached := run(t, g, input, Options{DisableCache: true})
	assert.Zero(t, uncached.CacheHits)
	assert.Zero(t, uncached.CacheMisses)
	assert.Equal(t, cached.Spans, uncached.Spans)
}

func TestScopeSpanJSON(t *testing.T) {
	data, err := json.Marshal(span(4, 7, "source.t string"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"scope":"source.t string","span":[4,7]}`, string(data))

	var back ScopeSpan
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, span(4, 7, "source.t string"), back)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "complete", StatusComplete.String())
	assert.Equal(t, "exhausted", StatusExhausted.String())
	assert.Equal(t, "capped", StatusCapped.String())
}
