package tokenizer

import (
	"encoding/json"
	"fmt"
)

// Status reports how a tokenization pass ended.
type Status int

const (
	// StatusComplete means the spans cover the whole document.
	StatusComplete Status = iota
	// StatusExhausted means no pattern matched the remainder, which is
	// covered by one trailing span under the root scope.
	StatusExhausted
	// StatusCapped means the iteration limit stopped the pass. The spans
	// are a gapless prefix of the document.
	StatusCapped
)

func (s Status) String() string {
	switch s {
	case StatusComplete:
		return "complete"
	case StatusExhausted:
		return "exhausted"
	case StatusCapped:
		return "capped"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler for Status.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ScopeSpan is a half-open byte range [Start, End) of the document and the
// scope chain that applies to it. Scope segments are separated by a single
// space; the grammar's root scope is always the first segment.
type ScopeSpan struct {
	Scope string
	Start int
	End   int
}

// Len returns the length of the span in bytes.
func (s ScopeSpan) Len() int {
	return s.End - s.Start
}

func (s ScopeSpan) String() string {
	return fmt.Sprintf("[%d,%d) %s", s.Start, s.End, s.Scope)
}

type spanJSON struct {
	Scope string `json:"scope"`
	Span  [2]int `json:"span"`
}

// MarshalJSON writes the span as {"scope": ..., "span": [start, end]}.
func (s ScopeSpan) MarshalJSON() ([]byte, error) {
	return json.Marshal(spanJSON{Scope: s.Scope, Span: [2]int{s.Start, s.End}})
}

// UnmarshalJSON implements custom JSON unmarshaling for ScopeSpan.
func (s *ScopeSpan) UnmarshalJSON(data []byte) error {
	var v spanJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	s.Scope = v.Scope
	s.Start, s.End = v.Span[0], v.Span[1]
	return nil
}

// Result is the outcome of one tokenization pass.
type Result struct {
	Spans      []ScopeSpan
	Status     Status
	Iterations int

	// Match cache statistics.
	CacheHits   int
	CacheMisses int
}

// Complete reports whether the spans cover the whole document.
func (r *Result) Complete() bool {
	return r.Status != StatusCapped
}
