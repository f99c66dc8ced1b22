// Package gateway orchestrates the query path: validate, call the
// inference service, normalize the payload, surface one canonical outcome.
package gateway

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tenang-cloud/mindgate/internal/domain/answer"
	"github.com/tenang-cloud/mindgate/internal/domain/fault"
	"github.com/tenang-cloud/mindgate/internal/domain/query"
)

// Service is the query gateway.
type Service struct {
	client SearchClient
	logger *zap.Logger
}

// New creates a gateway service.
func New(client SearchClient, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{client: client, logger: logger}
}

// Query runs the full path for one raw request. Validation failures return
// immediately without any network call; downstream retries happen inside
// the client and are invisible here. A payload that normalizes to zero
// answers is an EmptyResponse failure, never an empty success.
func (s *Service) Query(ctx context.Context, raw query.Raw) ([]answer.Answer, error) {
	q, err := query.Parse(raw)
	if err != nil {
		return nil, err
	}

	body, err := s.client.Search(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("inference search: %w", err)
	}

	answers := Normalize(body)
	if len(answers) == 0 {
		s.logger.Warn("inference payload had no usable answers",
			zap.String("request_id", q.RequestID()),
			zap.Int("payload_bytes", len(body)),
		)
		return nil, fault.New(fault.EmptyResponse, "inference service returned no usable answers")
	}

	s.logger.Debug("query answered",
		zap.String("request_id", q.RequestID()),
		zap.Int("answers", len(answers)),
	)
	return answers, nil
}

// HealthStatus is the outcome of a health probe.
type HealthStatus struct {
	Healthy bool
	Detail  string
}

// ProbeHealth runs one short, non-retried probe against the inference
// service. It never returns an error; failures come back as an unhealthy
// status with the classified reason.
func (s *Service) ProbeHealth(ctx context.Context) HealthStatus {
	if err := s.client.HealthCheck(ctx); err != nil {
		return HealthStatus{Healthy: false, Detail: err.Error()}
	}
	return HealthStatus{Healthy: true, Detail: "ok"}
}

// HealthCheck adapts ProbeHealth to the aggregated health service contract.
func (s *Service) HealthCheck(ctx context.Context) error {
	if status := s.ProbeHealth(ctx); !status.Healthy {
		return fault.New(fault.Unavailable, status.Detail)
	}
	return nil
}
