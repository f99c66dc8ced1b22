// Package query holds the validated user message and the rules that admit it
// to the query path. Parsing is the only gate: a Query value always satisfies
// the invariants below.
package query

import (
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/tenang-cloud/mindgate/internal/domain/fault"
)

// Query parameter limits.
const (
	// MaxTextLength is the maximum allowed message length after trimming.
	MaxTextLength = 1000
	DefaultTopK   = 3
	MinTopK       = 1
	MaxTopK       = 10
)

// Raw carries request fields exactly as received, before validation.
// Text and LegacyText are aliases for the same logical field; the first
// present non-empty one wins. Nil pointers mean "absent".
type Raw struct {
	Text       *string
	LegacyText *string
	TopK       *float64
}

// Query is a single validated user message plus result-count request.
// Immutable after Parse.
type Query struct {
	text      string
	topK      int
	requestID string
}

// Parse validates raw input and produces a Query. All rejections are
// fault.Validation faults with rule-specific messages; no side effects
// beyond assigning a fresh request ID.
func Parse(raw Raw) (Query, error) {
	text, ok := pickText(raw)
	if !ok {
		return Query{}, fault.New(fault.Validation, "text is required")
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return Query{}, fault.New(fault.Validation, "text must not be empty")
	}
	if len([]rune(text)) > MaxTextLength {
		return Query{}, fault.New(fault.Validation, "text exceeds 1000 characters")
	}

	topK := DefaultTopK
	if raw.TopK != nil {
		v := *raw.TopK
		if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) || v < MinTopK || v > MaxTopK {
			return Query{}, fault.New(fault.Validation, "top_k must be an integer between 1 and 10")
		}
		topK = int(v)
	}

	return Query{
		text:      text,
		topK:      topK,
		requestID: uuid.NewString(),
	}, nil
}

// pickText resolves the text/query alias pair.
func pickText(raw Raw) (string, bool) {
	if raw.Text != nil && *raw.Text != "" {
		return *raw.Text, true
	}
	if raw.LegacyText != nil && *raw.LegacyText != "" {
		return *raw.LegacyText, true
	}
	return "", false
}

// Text returns the trimmed message text.
func (q *Query) Text() string { return q.text }

// TopK returns the requested number of ranked answers.
func (q *Query) TopK() int { return q.topK }

// RequestID returns the opaque per-query identifier.
func (q *Query) RequestID() string { return q.requestID }
