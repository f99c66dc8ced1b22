package answer

import "testing"

func TestNew(t *testing.T) {
	a := New("take a breath", 0.92, "stress",
		[]string{"stres", "tekanan"},
		[]string{"what helps?", "how often?"},
		[]string{"short walks", "daily"},
	)

	if a.Text() != "take a breath" {
		t.Errorf("Text() = %q", a.Text())
	}
	if a.Confidence() != 0.92 {
		t.Errorf("Confidence() = %f", a.Confidence())
	}
	if a.Intent() != "stress" {
		t.Errorf("Intent() = %q", a.Intent())
	}
	if len(a.Keywords()) != 2 {
		t.Errorf("Keywords() = %v", a.Keywords())
	}
	if len(a.FollowUpQuestions()) != 2 || len(a.FollowUpAnswers()) != 2 {
		t.Errorf("follow-ups misaligned: %v / %v", a.FollowUpQuestions(), a.FollowUpAnswers())
	}
}

func TestNew_NilSlicesBecomeEmpty(t *testing.T) {
	a := New("hi", 0.5, "", nil, nil, nil)
	if a.Keywords() == nil || a.FollowUpQuestions() == nil || a.FollowUpAnswers() == nil {
		t.Error("slices must never be nil")
	}
	if len(a.Keywords()) != 0 || len(a.FollowUpQuestions()) != 0 {
		t.Error("absent fields default to empty")
	}
}

func TestNew_ConfidenceClamped(t *testing.T) {
	if got := New("", 1.7, "", nil, nil, nil).Confidence(); got != 1 {
		t.Errorf("confidence above 1 should clamp, got %f", got)
	}
	if got := New("", -0.3, "", nil, nil, nil).Confidence(); got != 0 {
		t.Errorf("confidence below 0 should clamp, got %f", got)
	}
}

func TestNew_FollowUpAlignment(t *testing.T) {
	// More questions than answers: pad.
	a := New("", 0, "", nil, []string{"q1", "q2", "q3"}, []string{"a1"})
	if len(a.FollowUpAnswers()) != 3 {
		t.Fatalf("answers len = %d, want 3", len(a.FollowUpAnswers()))
	}
	if a.FollowUpAnswers()[0] != "a1" || a.FollowUpAnswers()[2] != "" {
		t.Errorf("answers = %v", a.FollowUpAnswers())
	}

	// More answers than questions: truncate.
	b := New("", 0, "", nil, []string{"q1"}, []string{"a1", "a2"})
	if len(b.FollowUpAnswers()) != 1 {
		t.Errorf("answers len = %d, want 1", len(b.FollowUpAnswers()))
	}
}
