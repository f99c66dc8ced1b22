package inference

import (
	"context"
	"io"
	"net/http"

	"github.com/tenang-cloud/mindgate/internal/domain/fault"
)

// HealthCheck probes the dedicated health path: one short-timeout request,
// never retried. Any 2xx is healthy; everything else returns a classified
// fault.
func (c *Client) HealthCheck(ctx context.Context) error {
	hctx, cancel := context.WithTimeout(ctx, c.cfg.HealthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(hctx, http.MethodGet, c.cfg.HealthBaseURL+"/health", http.NoBody)
	if err != nil {
		return fault.New(fault.Unknown, "build health request: "+err.Error())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return transportFault(err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusFault(resp.StatusCode, nil)
	}
	return nil
}
