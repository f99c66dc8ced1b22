package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tenang-cloud/mindgate/internal/domain"
	"github.com/tenang-cloud/mindgate/internal/domain/answer"
	"github.com/tenang-cloud/mindgate/internal/domain/fault"
	"github.com/tenang-cloud/mindgate/internal/domain/query"
	"github.com/tenang-cloud/mindgate/internal/metrics"
	"github.com/tenang-cloud/mindgate/internal/usecase/fallback"
	healthuc "github.com/tenang-cloud/mindgate/internal/usecase/health"
	"github.com/tenang-cloud/mindgate/internal/usecase/lifecycle"
)

// SessionStore persists chat session records. May be absent when the
// deployment runs without a database.
type SessionStore interface {
	Ensure(ctx context.Context, id string) (domain.Session, error)
	Get(ctx context.Context, id string) (domain.Session, error)
	RememberAnswer(ctx context.Context, id, text string) error
	LastAnswer(ctx context.Context, id string) (string, error)
}

// Server handles the chat gateway HTTP API.
type Server struct {
	lifecycle *lifecycle.Manager
	fallback  *fallback.Matcher
	sessions  SessionStore
	health    *healthuc.Service
	banned    []string
	logger    *zap.Logger
}

// NewServer creates the HTTP API server. fallbackMatcher and sessions may
// be nil; bannedWords empty means the built-in list.
func NewServer(
	lc *lifecycle.Manager,
	fallbackMatcher *fallback.Matcher,
	sessions SessionStore,
	health *healthuc.Service,
	bannedWords []string,
	logger *zap.Logger,
) *Server {
	if len(bannedWords) == 0 {
		bannedWords = fallback.DefaultBannedWords
	}
	return &Server{
		lifecycle: lc,
		fallback:  fallbackMatcher,
		sessions:  sessions,
		health:    health,
		banned:    bannedWords,
		logger:    logger,
	}
}

// Routes builds the router for the server. Middleware is attached by the
// caller.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Route("/api/chat", func(r chi.Router) {
		r.Post("/search", s.SearchChat)
		r.Get("/sessions/{id}", s.GetSession)
		r.Post("/sessions/{id}/cancel", s.CancelQuery)
	})
	return r
}

// searchChatRequest mirrors the wire request. "query" is the legacy alias
// for "text" kept for older clients.
type searchChatRequest struct {
	Text      optString `json:"text"`
	Query     optString `json:"query"`
	TopK      *float64  `json:"top_k"`
	SessionID string    `json:"session_id"`
}

// optString decodes an optional JSON string field. A wrong-typed value is
// remembered instead of failing the whole body, so it surfaces as a
// validation rejection rather than a malformed-request one.
type optString struct {
	value   *string
	badType bool
}

func (o *optString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		o.badType = true
		return nil
	}
	o.value = &s
	return nil
}

type answerResponse struct {
	Text              string   `json:"response_to_display"`
	Confidence        float64  `json:"confidence_score"`
	Intent            string   `json:"intent,omitempty"`
	Keywords          []string `json:"keywords"`
	FollowUpQuestions []string `json:"follow_up_questions"`
	FollowUpAnswers   []string `json:"follow_up_answers"`
}

type searchChatResponse struct {
	SessionID string           `json:"session_id"`
	Source    string           `json:"source"` // inference, fallback, moderation
	Answers   []answerResponse `json:"answers"`
}

// SearchChat handles POST /api/chat/search.
func (s *Server) SearchChat(w http.ResponseWriter, r *http.Request) {
	var req searchChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, string(fault.InvalidRequest), "invalid request body: "+err.Error(), false)
		return
	}

	if req.Text.badType || req.Query.badType {
		writeError(w, http.StatusBadRequest, string(fault.Validation), "text must be a string", false)
		return
	}

	sessionID := r.Header.Get("X-Session-ID")
	if sessionID == "" {
		sessionID = req.SessionID
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	s.ensureSession(r.Context(), sessionID)

	if text, ok := requestText(req); ok && fallback.Moderated(text, s.banned) {
		metrics.FallbackAnswersTotal.WithLabelValues("moderation").Inc()
		s.writeAnswers(r.Context(), w, sessionID, "moderation", []answer.Answer{fallback.ModerationAnswer()})
		return
	}

	raw := query.Raw{Text: req.Text.value, LegacyText: req.Query.value, TopK: req.TopK}
	answers, err := s.lifecycle.Submit(r.Context(), sessionID, raw)
	if err != nil {
		s.handleQueryError(w, r, sessionID, req, err)
		return
	}

	s.writeAnswers(r.Context(), w, sessionID, "inference", answers)
}

// handleQueryError maps a failed query to a fallback answer or an error
// response. Cancelled queries get a conflict status; their outcome is
// never shown to the user.
func (s *Server) handleQueryError(
	w http.ResponseWriter, r *http.Request,
	sessionID string, req searchChatRequest, err error,
) {
	if errors.Is(err, lifecycle.ErrCancelled) {
		writeError(w, http.StatusConflict, "cancelled", "query was cancelled or superseded", false)
		return
	}

	kind := fault.KindOf(err)
	retriable := fault.IsRetriable(err)

	if retriable && s.fallback != nil {
		if text, ok := requestText(req); ok {
			if a, matched := s.fallback.Match(text); matched {
				s.logger.Info("serving fallback answer",
					zap.String("session_id", sessionID),
					zap.String("fault_kind", string(kind)),
				)
				metrics.FallbackAnswersTotal.WithLabelValues("inference_error").Inc()
				s.writeAnswers(r.Context(), w, sessionID, "fallback", []answer.Answer{a})
				return
			}
		}
	}

	s.logger.Warn("query failed",
		zap.String("session_id", sessionID),
		zap.String("fault_kind", string(kind)),
		zap.Error(err),
	)
	writeError(w, statusForKind(kind), string(kind), faultMessage(err), retriable)
}

// GetSession handles GET /api/chat/sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		writeError(w, http.StatusNotFound, string(fault.NotFound), "session tracking disabled", false)
		return
	}

	id := chi.URLParam(r, "id")
	sess, err := s.sessions.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, string(fault.NotFound), "session not found", false)
			return
		}
		s.logger.Error("session lookup failed", zap.String("session_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, string(fault.Unknown), "internal error", false)
		return
	}

	lastAnswer, err := s.sessions.LastAnswer(r.Context(), id)
	if err != nil {
		s.logger.Warn("last answer lookup failed", zap.String("session_id", id), zap.Error(err))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":          sess.ID(),
		"created_at":  time.Unix(sess.CreatedAt(), 0).UTC(),
		"last_seen":   time.Unix(sess.LastSeen(), 0).UTC(),
		"messages":    sess.Messages(),
		"last_intent": sess.LastIntent(),
		"last_answer": lastAnswer,
		"pending":     s.lifecycle.Pending(sess.ID()),
	})
}

// CancelQuery handles POST /api/chat/sessions/{id}/cancel.
func (s *Server) CancelQuery(w http.ResponseWriter, r *http.Request) {
	s.lifecycle.Cancel(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// ensureSession creates the session record on first contact, best effort.
func (s *Server) ensureSession(ctx context.Context, sessionID string) {
	if s.sessions == nil {
		return
	}
	if _, err := s.sessions.Ensure(ctx, sessionID); err != nil {
		s.logger.Warn("session ensure failed", zap.String("session_id", sessionID), zap.Error(err))
	}
}

func requestText(req searchChatRequest) (string, bool) {
	if req.Text.value != nil && *req.Text.value != "" {
		return *req.Text.value, true
	}
	if req.Query.value != nil && *req.Query.value != "" {
		return *req.Query.value, true
	}
	return "", false
}

// statusForKind maps fault kinds to HTTP statuses. Downstream faults the
// gateway cannot attribute to the caller surface as bad gateway.
func statusForKind(kind fault.Kind) int {
	switch kind {
	case fault.Validation, fault.InvalidRequest:
		return http.StatusBadRequest
	case fault.RateLimited:
		return http.StatusTooManyRequests
	case fault.Timeout:
		return http.StatusGatewayTimeout
	case fault.Unavailable:
		return http.StatusServiceUnavailable
	case fault.DownstreamError, fault.Unauthorized, fault.NotFound, fault.EmptyResponse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// faultMessage returns the client-safe message for an error.
func faultMessage(err error) string {
	var f *fault.Fault
	if errors.As(err, &f) {
		return f.Message()
	}
	return "internal error"
}

// writeAnswers sends the answer payload and keeps the first answer as the
// session's last-shown text, best effort.
func (s *Server) writeAnswers(ctx context.Context, w http.ResponseWriter, sessionID, source string, answers []answer.Answer) {
	if s.sessions != nil && len(answers) > 0 {
		if err := s.sessions.RememberAnswer(ctx, sessionID, answers[0].Text()); err != nil {
			s.logger.Warn("remember answer failed", zap.String("session_id", sessionID), zap.Error(err))
		}
	}

	items := make([]answerResponse, len(answers))
	for i := range answers {
		a := &answers[i]
		items[i] = answerResponse{
			Text:              a.Text(),
			Confidence:        a.Confidence(),
			Intent:            a.Intent(),
			Keywords:          a.Keywords(),
			FollowUpQuestions: a.FollowUpQuestions(),
			FollowUpAnswers:   a.FollowUpAnswers(),
		}
	}
	writeJSON(w, http.StatusOK, searchChatResponse{
		SessionID: sessionID,
		Source:    source,
		Answers:   items,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string, retriable bool) {
	writeJSON(w, status, map[string]any{
		"code":      code,
		"message":   message,
		"retriable": retriable,
	})
}
