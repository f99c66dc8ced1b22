package gateway

import (
	"bytes"
	"encoding/json"

	"github.com/tenang-cloud/mindgate/internal/domain/answer"
)

// The downstream payload shape is not fixed across deployments. Normalize
// tries a small ordered list of shape matchers and maps whatever matches
// into the canonical answer sequence, preserving the order received. No
// best-pick happens here; selection policy belongs to the caller.

// wireAnswer mirrors one ranked answer as the inference service emits it.
type wireAnswer struct {
	ResponseToDisplay string   `json:"response_to_display"`
	ConfidenceScore   float64  `json:"confidence_score"`
	Intent            string   `json:"intent"`
	Keywords          []string `json:"keywords"`
	FollowUpQuestions []string `json:"follow_up_questions"`
	FollowUpAnswers   []string `json:"follow_up_answers"`
}

func (w wireAnswer) toDomain() answer.Answer {
	return answer.New(
		w.ResponseToDisplay, w.ConfidenceScore, w.Intent,
		w.Keywords, w.FollowUpQuestions, w.FollowUpAnswers,
	)
}

type shapeMatcher func(raw []byte) ([]answer.Answer, bool)

// matchers in priority order: results envelope, single bare answer, bare
// array. Anything unrecognized falls through to an empty sequence.
var matchers = []shapeMatcher{
	matchResultsEnvelope,
	matchSingleAnswer,
	matchBareArray,
}

// Normalize maps a raw downstream payload to the canonical answer sequence.
// The worst case is an empty slice, never nil.
func Normalize(raw []byte) []answer.Answer {
	for _, match := range matchers {
		if answers, ok := match(raw); ok {
			return answers
		}
	}
	return []answer.Answer{}
}

// matchResultsEnvelope handles {"results": [...]} and {"results": {...}}.
func matchResultsEnvelope(raw []byte) ([]answer.Answer, bool) {
	var envelope struct {
		Results json.RawMessage `json:"results"`
	}
	if json.Unmarshal(raw, &envelope) != nil || len(envelope.Results) == 0 {
		return nil, false
	}
	if bytes.Equal(envelope.Results, []byte("null")) {
		return nil, false
	}

	if isJSONArray(envelope.Results) {
		answers, ok := decodeElements(envelope.Results)
		return answers, ok
	}

	// Some deployments return a single answer object under "results".
	var w wireAnswer
	if json.Unmarshal(envelope.Results, &w) == nil {
		return []answer.Answer{w.toDomain()}, true
	}
	return nil, false
}

// matchSingleAnswer handles a bare answer object with no envelope.
func matchSingleAnswer(raw []byte) ([]answer.Answer, bool) {
	var w wireAnswer
	if json.Unmarshal(raw, &w) != nil || w.ResponseToDisplay == "" {
		return nil, false
	}
	return []answer.Answer{w.toDomain()}, true
}

// matchBareArray handles a top-level array treated as the results list.
func matchBareArray(raw []byte) ([]answer.Answer, bool) {
	if !isJSONArray(raw) {
		return nil, false
	}
	return decodeElements(raw)
}

// decodeElements maps each array element: answer objects field-by-field,
// bare strings as text-only answers (the oldest service revision returned
// plain display strings).
func decodeElements(raw []byte) ([]answer.Answer, bool) {
	var elements []json.RawMessage
	if json.Unmarshal(raw, &elements) != nil {
		return nil, false
	}

	answers := make([]answer.Answer, 0, len(elements))
	for _, el := range elements {
		var w wireAnswer
		if json.Unmarshal(el, &w) == nil {
			answers = append(answers, w.toDomain())
			continue
		}
		var text string
		if json.Unmarshal(el, &text) == nil {
			answers = append(answers, answer.New(text, 0, "", nil, nil, nil))
		}
	}
	return answers, true
}

func isJSONArray(raw []byte) bool {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '['
}
