package metrics

import "github.com/prometheus/client_golang/prometheus"

// Inference call Prometheus metrics.
var (
	InferenceRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mindgate",
			Name:      "inference_requests_total",
			Help:      "Total number of inference call sequences",
		},
		[]string{"status"}, // "success" / "error"
	)

	InferenceRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mindgate",
			Name:      "inference_request_duration_seconds",
			Help:      "Inference call sequence duration in seconds, retries included",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 60},
		},
		[]string{"status"},
	)

	InferenceErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mindgate",
			Name:      "inference_errors_total",
			Help:      "Total inference failures by classified kind",
		},
		[]string{"kind"},
	)

	InferenceRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mindgate",
			Name:      "inference_retries_total",
			Help:      "Total retry attempts against the inference service",
		},
	)

	FallbackAnswersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mindgate",
			Name:      "fallback_answers_total",
			Help:      "Answers served by the offline fallback matcher",
		},
		[]string{"reason"}, // "moderation" / "inference_error"
	)
)

// RegisterInferenceMetrics registers inference and fallback metrics with the
// default registry. Called once from the composition root (no init()).
func RegisterInferenceMetrics() {
	prometheus.MustRegister(
		InferenceRequestsTotal,
		InferenceRequestDuration,
		InferenceErrorsTotal,
		InferenceRetriesTotal,
		FallbackAnswersTotal,
	)
}
