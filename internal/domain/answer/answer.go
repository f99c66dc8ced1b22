// Package answer holds the canonical normalized unit produced by the query
// path. Consumers never see nil slices or out-of-range confidence values.
package answer

// Answer is one candidate response from the inference service.
type Answer struct {
	text              string
	confidence        float64
	intent            string
	keywords          []string
	followUpQuestions []string
	followUpAnswers   []string
}

// New creates a normalized Answer. Confidence is clamped to [0,1], nil
// slices become empty, and followUpAnswers is padded or truncated so it is
// always index-aligned with followUpQuestions.
func New(
	text string, confidence float64, intent string,
	keywords, followUpQuestions, followUpAnswers []string,
) Answer {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	questions := emptyIfNil(followUpQuestions)
	answers := alignWith(questions, followUpAnswers)

	return Answer{
		text:              text,
		confidence:        confidence,
		intent:            intent,
		keywords:          emptyIfNil(keywords),
		followUpQuestions: questions,
		followUpAnswers:   answers,
	}
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// alignWith returns answers resized to len(questions), padding with "".
func alignWith(questions, answers []string) []string {
	aligned := make([]string, len(questions))
	copy(aligned, answers)
	return aligned
}

// Text returns the display text.
func (a Answer) Text() string { return a.text }

// Confidence returns the ranking confidence in [0,1].
func (a Answer) Confidence() float64 { return a.confidence }

// Intent returns the matched intent label.
func (a Answer) Intent() string { return a.intent }

// Keywords returns the intent keywords.
func (a Answer) Keywords() []string { return a.keywords }

// FollowUpQuestions returns suggested follow-up prompts.
func (a Answer) FollowUpQuestions() []string { return a.followUpQuestions }

// FollowUpAnswers returns the answers index-aligned with FollowUpQuestions.
func (a Answer) FollowUpAnswers() []string { return a.followUpAnswers }
