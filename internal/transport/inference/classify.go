package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/tenang-cloud/mindgate/internal/domain/fault"
)

// transportFault classifies a request that produced no HTTP response.
// Precedence: timeout before connection failure before unknown.
func transportFault(err error) *fault.Fault {
	if errors.Is(err, context.DeadlineExceeded) {
		return fault.New(fault.Timeout, "inference service did not respond in time")
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return fault.New(fault.Timeout, "inference service did not respond in time")
		}
		return fault.New(fault.Unavailable, "inference service is unreachable")
	}

	// url.Error wraps dial, DNS, and connection-reset failures; anything
	// that reached here without a response counts as unavailable.
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return fault.New(fault.Unavailable, "inference service is unreachable")
	}

	return fault.New(fault.Unknown, fmt.Sprintf("unexpected transport failure: %v", err))
}

// statusKind maps an HTTP status code to a failure kind.
func statusKind(code int) fault.Kind {
	switch {
	case code >= 500 && code <= 599:
		return fault.DownstreamError
	case code == http.StatusTooManyRequests:
		return fault.RateLimited
	case code == http.StatusBadRequest || code == http.StatusUnprocessableEntity:
		return fault.InvalidRequest
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fault.Unauthorized
	case code == http.StatusNotFound:
		return fault.NotFound
	default:
		return fault.Unknown
	}
}

// statusFault builds a fault from a non-2xx response, preferring the
// structured message in the body over the bare status line.
func statusFault(code int, body []byte) *fault.Fault {
	kind := statusKind(code)
	if detail := extractMessage(body); detail != "" {
		return fault.New(kind, fmt.Sprintf("inference service error %d: %s", code, detail))
	}
	return fault.New(kind, fmt.Sprintf("inference service error %d: %s", code, http.StatusText(code)))
}

// extractMessage pulls the "message" or "error" field from a JSON error body.
func extractMessage(body []byte) string {
	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &parsed) != nil {
		return ""
	}
	if parsed.Message != "" {
		return parsed.Message
	}
	return parsed.Error
}
