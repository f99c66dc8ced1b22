package lifecycle

import (
	"context"

	"github.com/tenang-cloud/mindgate/internal/domain/answer"
	"github.com/tenang-cloud/mindgate/internal/domain/query"
)

// Querier runs one query to completion, failure, or cancellation.
type Querier interface {
	Query(ctx context.Context, raw query.Raw) ([]answer.Answer, error)
}

// SessionTracker records activity on a conversation session. Optional;
// tracking failures never affect the query outcome.
type SessionTracker interface {
	Touch(ctx context.Context, id, intent string) error
}
