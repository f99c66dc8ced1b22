// Package session persists conversation session records in Redis hashes.
// A record tracks activity only; chat transcripts are never stored here.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tenang-cloud/mindgate/internal/db"
	"github.com/tenang-cloud/mindgate/internal/domain"
)

const defaultTTL = 30 * 24 * time.Hour

// Store is the storage surface the repository needs: a hash per session
// record plus plain keys for the last-answer snapshots.
type Store interface {
	db.HashStore
	db.KVStore
}

// Repo stores session records keyed by opaque session ID.
type Repo struct {
	store     Store
	keyPrefix string
	ttl       time.Duration
	now       func() time.Time
}

// New creates a session repository.
func New(store Store, keyPrefix string) *Repo {
	return &Repo{
		store:     store,
		keyPrefix: keyPrefix,
		ttl:       defaultTTL,
		now:       time.Now,
	}
}

// WithTTL overrides the session record TTL.
func (r *Repo) WithTTL(ttl time.Duration) *Repo {
	if ttl > 0 {
		r.ttl = ttl
	}
	return r
}

func (r *Repo) key(id string) string {
	return r.keyPrefix + "session:" + id
}

// Ensure creates the record if it does not exist yet and returns it.
func (r *Repo) Ensure(ctx context.Context, id string) (domain.Session, error) {
	key := r.key(id)

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return domain.Session{}, fmt.Errorf("check session: %w", err)
	}

	if !exists {
		now := r.now().Unix()
		rec := domain.NewSession(id, now)
		if err := r.store.HSet(ctx, key, sessionToHash(rec)); err != nil {
			return domain.Session{}, fmt.Errorf("create session: %w", err)
		}
		if err := r.store.Expire(ctx, key, r.ttl); err != nil {
			return domain.Session{}, fmt.Errorf("expire session: %w", err)
		}
		return rec, nil
	}

	return r.Get(ctx, id)
}

// Touch records query activity on a session: bumps last_seen and the message
// counter, remembers the latest matched intent, and refreshes the TTL.
func (r *Repo) Touch(ctx context.Context, id, intent string) error {
	key := r.key(id)

	fields := map[string]string{
		"last_seen": fmt.Sprintf("%d", r.now().Unix()),
	}
	if intent != "" {
		fields["last_intent"] = intent
	}
	if err := r.store.HSet(ctx, key, fields); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	if err := r.store.HIncrBy(ctx, key, "messages", 1); err != nil {
		return fmt.Errorf("count message: %w", err)
	}
	if err := r.store.Expire(ctx, key, r.ttl); err != nil {
		return fmt.Errorf("refresh session ttl: %w", err)
	}
	return nil
}

// Get loads a session record.
func (r *Repo) Get(ctx context.Context, id string) (domain.Session, error) {
	m, err := r.store.HGetAll(ctx, r.key(id))
	if err != nil {
		return domain.Session{}, fmt.Errorf("get session: %w", err)
	}
	if len(m) == 0 {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return sessionFromHash(id, m)
}

// Delete removes a session record.
func (r *Repo) Delete(ctx context.Context, id string) error {
	if err := r.store.Del(ctx, r.key(id)); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *Repo) answerKey(id string) string {
	return r.key(id) + ":last_answer"
}

// RememberAnswer keeps the text last shown to a session, so a reconnecting
// client can restore the tail of the conversation. Expires with the record.
func (r *Repo) RememberAnswer(ctx context.Context, id, text string) error {
	if err := r.store.SetWithTTL(ctx, r.answerKey(id), []byte(text), r.ttl); err != nil {
		return fmt.Errorf("remember answer: %w", err)
	}
	return nil
}

// LastAnswer returns the text last shown to a session, or "" when nothing
// was recorded.
func (r *Repo) LastAnswer(ctx context.Context, id string) (string, error) {
	data, err := r.store.Get(ctx, r.answerKey(id))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("last answer: %w", err)
	}
	return string(data), nil
}
