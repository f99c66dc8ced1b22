// Package lifecycle enforces the per-session query contract: at most one
// query in flight per conversation session, cancel-before-replace, and
// silent discarding of superseded outcomes.
package lifecycle

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tenang-cloud/mindgate/internal/domain/answer"
	"github.com/tenang-cloud/mindgate/internal/domain/query"
)

// ErrCancelled marks a query whose outcome was discarded: an explicit
// cancel, a newer query for the same session, or a gone caller. It never
// carries user-visible error text.
var ErrCancelled = errors.New("query cancelled")

const touchTimeout = 2 * time.Second

// Manager owns the per-session request slots.
type Manager struct {
	gateway  Querier
	sessions SessionTracker // may be nil
	logger   *zap.Logger

	mu    sync.Mutex
	slots map[string]*slot
}

// slot is one pending query. Identity (pointer) decides whether an
// arriving outcome is still current.
type slot struct {
	cancel context.CancelFunc
}

// New creates a lifecycle manager. sessions may be nil to disable
// activity tracking.
func New(gateway Querier, sessions SessionTracker, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		gateway:  gateway,
		sessions: sessions,
		logger:   logger,
		slots:    make(map[string]*slot),
	}
}

// Submit runs one query for the session. Any query already pending for the
// same session is cancelled first, so outcomes always apply in start order.
// The call suspends until the gateway finishes or the query is cancelled;
// a discarded outcome returns ErrCancelled.
func (m *Manager) Submit(ctx context.Context, sessionID string, raw query.Raw) ([]answer.Answer, error) {
	qctx, cancel := context.WithCancel(ctx)
	sl := &slot{cancel: cancel}

	m.mu.Lock()
	if prev, ok := m.slots[sessionID]; ok {
		prev.cancel()
		m.logger.Debug("superseding pending query", zap.String("session_id", sessionID))
	}
	m.slots[sessionID] = sl
	m.mu.Unlock()

	answers, err := m.gateway.Query(qctx, raw)

	m.mu.Lock()
	current := m.slots[sessionID] == sl
	if current {
		// Back to idle: drop the slot so no stale cancel handle survives.
		delete(m.slots, sessionID)
	}
	m.mu.Unlock()

	// Read the cancellation state before releasing our own cancel func,
	// which would make qctx look cancelled on every path.
	discarded := !current || qctx.Err() != nil
	cancel()

	if discarded {
		return nil, ErrCancelled
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, ErrCancelled
		}
		return nil, err
	}

	m.touch(ctx, sessionID, answers)
	return answers, nil
}

// Cancel aborts the session's pending query, if any. Cancelling an idle
// session is a no-op.
func (m *Manager) Cancel(sessionID string) {
	m.mu.Lock()
	sl, ok := m.slots[sessionID]
	if ok {
		delete(m.slots, sessionID)
	}
	m.mu.Unlock()

	if ok {
		sl.cancel()
		m.logger.Debug("query cancelled", zap.String("session_id", sessionID))
	}
}

// Pending reports whether the session has a query in flight. Drives the
// caller's typing indicator; cancellation always clears it.
func (m *Manager) Pending(sessionID string) bool {
	m.mu.Lock()
	_, ok := m.slots[sessionID]
	m.mu.Unlock()
	return ok
}

// touch records session activity after a completed query, best effort.
func (m *Manager) touch(ctx context.Context, sessionID string, answers []answer.Answer) {
	if m.sessions == nil {
		return
	}

	intent := ""
	if len(answers) > 0 {
		intent = answers[0].Intent()
	}

	// The caller's context may already be cancelled; tracking still runs.
	tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), touchTimeout)
	defer cancel()

	if err := m.sessions.Touch(tctx, sessionID, intent); err != nil {
		m.logger.Warn("session touch failed",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
	}
}
