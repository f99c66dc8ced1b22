// Package domain holds shared domain types that do not warrant their own
// subpackage.
package domain

import "errors"

// ErrSessionNotFound signals a missing session record.
var ErrSessionNotFound = errors.New("session not found")

// Session is a conversation session activity record. The ID is the opaque
// identifier supplied by the auth collaborator; the gateway never inspects
// identity beyond it.
type Session struct {
	id         string
	createdAt  int64
	lastSeen   int64
	messages   int
	lastIntent string
}

// NewSession creates a fresh session record.
func NewSession(id string, now int64) Session {
	return Session{id: id, createdAt: now, lastSeen: now}
}

// Reconstruct rebuilds a session record from storage.
func Reconstruct(id string, createdAt, lastSeen int64, messages int, lastIntent string) Session {
	return Session{
		id:         id,
		createdAt:  createdAt,
		lastSeen:   lastSeen,
		messages:   messages,
		lastIntent: lastIntent,
	}
}

// ID returns the opaque session identifier.
func (s *Session) ID() string { return s.id }

// CreatedAt returns the creation time as a Unix timestamp.
func (s *Session) CreatedAt() int64 { return s.createdAt }

// LastSeen returns the last activity time as a Unix timestamp.
func (s *Session) LastSeen() int64 { return s.lastSeen }

// Messages returns the number of queries recorded for the session.
func (s *Session) Messages() int { return s.messages }

// LastIntent returns the most recently matched intent label, if any.
func (s *Session) LastIntent() string { return s.lastIntent }
