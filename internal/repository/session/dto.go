package session

import (
	"fmt"
	"strconv"

	"github.com/tenang-cloud/mindgate/internal/domain"
)

// sessionToHash converts a domain Session to a map for HSET.
func sessionToHash(s domain.Session) map[string]string {
	return map[string]string{
		"created_at":  strconv.FormatInt(s.CreatedAt(), 10),
		"last_seen":   strconv.FormatInt(s.LastSeen(), 10),
		"messages":    strconv.Itoa(s.Messages()),
		"last_intent": s.LastIntent(),
	}
}

// sessionFromHash hydrates a domain Session from an HGETALL result map.
func sessionFromHash(id string, m map[string]string) (domain.Session, error) {
	createdAt, err := strconv.ParseInt(m["created_at"], 10, 64)
	if err != nil {
		return domain.Session{}, fmt.Errorf("invalid created_at: %w", err)
	}

	lastSeen := createdAt
	if v, ok := m["last_seen"]; ok && v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			lastSeen = parsed
		}
	}

	messages := 0
	if v, ok := m["messages"]; ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			messages = parsed
		}
	}

	return domain.Reconstruct(id, createdAt, lastSeen, messages, m["last_intent"]), nil
}
