package gateway

import (
	"context"

	"github.com/tenang-cloud/mindgate/internal/domain/query"
)

// SearchClient performs the downstream call sequence. Implementations own
// timeout, retry, and classification; the returned error is always a final
// classified fault (or the caller's context error).
type SearchClient interface {
	Search(ctx context.Context, q query.Query) ([]byte, error)
	HealthCheck(ctx context.Context) error
}
