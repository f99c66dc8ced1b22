package mindgate

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tenang-cloud/mindgate/internal/domain/fault"
	"github.com/tenang-cloud/mindgate/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterInferenceMetrics()
	os.Exit(m.Run())
}

func inferenceStub(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestNew_RequiresInferenceURL(t *testing.T) {
	if _, err := New(); err == nil {
		t.Fatal("expected error without inference URL")
	}
}

func TestWithMaxRetries(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int
	}{
		{"positive kept", 3, 3},
		{"zero disables", 0, -1},
		{"negative disables", -7, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg clientConfig
			WithMaxRetries(tt.in)(&cfg)
			if cfg.maxRetries != tt.want {
				t.Errorf("maxRetries = %d, want %d", cfg.maxRetries, tt.want)
			}
		})
	}
}

func TestAsk_Success(t *testing.T) {
	srv := inferenceStub(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Text string `json:"text"`
			TopK int    `json:"top_k"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Text != "aku merasa cemas" {
			t.Errorf("text = %q", req.Text)
		}
		_, _ = w.Write([]byte(`{"results":[{"response_to_display":"tarik napas perlahan","confidence_score":0.9,"intent":"anxiety"}]}`))
	})

	c, err := New(WithInference(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	answers, err := c.Ask(context.Background(), "s-1", "aku merasa cemas")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(answers) != 1 {
		t.Fatalf("answers = %d, want 1", len(answers))
	}
	a := answers[0]
	if a.Text != "tarik napas perlahan" || a.Confidence != 0.9 || a.Intent != "anxiety" {
		t.Errorf("unexpected answer: %+v", a)
	}
}

func TestAskTopK_PassesCount(t *testing.T) {
	srv := inferenceStub(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			TopK int `json:"top_k"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.TopK != 5 {
			t.Errorf("top_k = %d, want 5", req.TopK)
		}
		_, _ = w.Write([]byte(`{"results":[{"response_to_display":"ok"}]}`))
	})

	c, err := New(WithInference(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if _, err := c.AskTopK(context.Background(), "s-1", "halo", 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAsk_ValidationError(t *testing.T) {
	srv := inferenceStub(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("validation failures must not reach the network")
	})

	c, err := New(WithInference(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	_, err = c.Ask(context.Background(), "s-1", "   ")
	if fault.KindOf(err) != fault.Validation {
		t.Fatalf("kind = %q, want validation_error (err %v)", fault.KindOf(err), err)
	}
}

func TestAsk_FallbackWhenUnreachable(t *testing.T) {
	// Reserve an address, then close it so connections are refused.
	closed := httptest.NewServer(http.NotFoundHandler())
	url := closed.URL
	closed.Close()

	corpus := filepath.Join(t.TempDir(), "corpus.json")
	data := `[{"intent":"anxiety","keywords":["cemas"],"context_for_indexing":"","response_to_display":"tarik napas dalam","follow_up_questions":[],"follow_up_answers":[]}]`
	if err := os.WriteFile(corpus, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := New(
		WithInference(url),
		WithMaxRetries(0),
		WithFallbackCorpus(corpus),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	answers, err := c.Ask(context.Background(), "s-1", "aku sering cemas")
	if err != nil {
		t.Fatalf("expected fallback answer, got error: %v", err)
	}
	if len(answers) != 1 || answers[0].Intent != "anxiety" {
		t.Fatalf("unexpected fallback answers: %+v", answers)
	}
	if answers[0].Confidence != 0 {
		t.Errorf("fallback confidence = %v, want 0", answers[0].Confidence)
	}
}

func TestAsk_UnreachableWithoutFallback(t *testing.T) {
	closed := httptest.NewServer(http.NotFoundHandler())
	url := closed.URL
	closed.Close()

	c, err := New(WithInference(url), WithMaxRetries(0))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	_, err = c.Ask(context.Background(), "s-1", "halo")
	if fault.KindOf(err) != fault.Unavailable {
		t.Fatalf("kind = %q, want unavailable", fault.KindOf(err))
	}
}

func TestAsk_SupersededByNewerAsk(t *testing.T) {
	release := make(chan struct{})
	srv := inferenceStub(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
			return
		}
		_, _ = w.Write([]byte(`{"results":[{"response_to_display":"ok"}]}`))
	})

	c, err := New(WithInference(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Ask(context.Background(), "s-1", "pertama")
		firstErr <- err
	}()

	// Wait until the first query is in flight before superseding it.
	deadline := time.Now().Add(2 * time.Second)
	for !c.Pending("s-1") {
		if time.Now().After(deadline) {
			t.Fatal("first query never became pending")
		}
		time.Sleep(5 * time.Millisecond)
	}

	secondDone := make(chan error, 1)
	go func() {
		_, err := c.Ask(context.Background(), "s-1", "kedua")
		secondDone <- err
	}()

	select {
	case err := <-firstErr:
		if !errors.Is(err, ErrCancelled) {
			t.Fatalf("first ask error = %v, want ErrCancelled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("first ask never returned")
	}

	close(release)
	select {
	case err := <-secondDone:
		if err != nil {
			t.Fatalf("second ask error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("second ask never returned")
	}
}

func TestCancel(t *testing.T) {
	srv := inferenceStub(t, func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server detects the client disconnect and
		// cancels the request context.
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	})

	c, err := New(WithInference(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	done := make(chan error, 1)
	go func() {
		_, err := c.Ask(context.Background(), "s-1", "halo")
		done <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !c.Pending("s-1") {
		if time.Now().After(deadline) {
			t.Fatal("query never became pending")
		}
		time.Sleep(5 * time.Millisecond)
	}
	c.Cancel("s-1")

	select {
	case err := <-done:
		if !errors.Is(err, ErrCancelled) {
			t.Fatalf("error = %v, want ErrCancelled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ask never returned after cancel")
	}
	if c.Pending("s-1") {
		t.Error("session still pending after cancel")
	}
}

func TestHealth(t *testing.T) {
	srv := inferenceStub(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	c, err := New(WithInference(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if err := c.Health(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}
}

func TestPing_NoDatabase(t *testing.T) {
	srv := inferenceStub(t, func(w http.ResponseWriter, r *http.Request) {})
	c, err := New(WithInference(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("ping without database: %v", err)
	}
}
