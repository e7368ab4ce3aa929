package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for workers, model calls and tool calls.
type Metrics struct {
	// Model call attempts by role and result
	ModelAttempts *prometheus.CounterVec

	// Model fallbacks by role and reason
	ModelFallbacks *prometheus.CounterVec

	// Worker run latency by role and verdict status
	WorkerLatency *prometheus.HistogramVec

	// Tool failures by capability and category
	ToolFailures *prometheus.CounterVec
}

// New registers agent metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ModelAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_model_attempts_total",
			Help: "Model call attempts by worker role and result",
		}, []string{"role", "result"}), // result: "success", "rate_limited", "error"

		ModelFallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_model_fallbacks_total",
			Help: "Model calls that degraded to a review fallback",
		}, []string{"role", "reason"}), // reason: "retries_exhausted", "error", "parse_error"

		WorkerLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kycgate_worker_duration_seconds",
			Help:    "Duration of a worker run including tools and model calls",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 60},
		}, []string{"role", "status"}),

		ToolFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_tool_failures_total",
			Help: "Tool invocations that ended in a typed failure",
		}, []string{"capability", "category"}),
	}
}

// IncrementModelAttempt records one model call attempt.
func (m *Metrics) IncrementModelAttempt(role, result string) {
	if m != nil {
		m.ModelAttempts.WithLabelValues(role, result).Inc()
	}
}

// IncrementModelFallback records a degraded model call.
func (m *Metrics) IncrementModelFallback(role, reason string) {
	if m != nil {
		m.ModelFallbacks.WithLabelValues(role, reason).Inc()
	}
}

// ObserveWorkerLatency records a worker run.
func (m *Metrics) ObserveWorkerLatency(role, status string, d time.Duration) {
	if m != nil {
		m.WorkerLatency.WithLabelValues(role, status).Observe(d.Seconds())
	}
}

// IncrementToolFailure records a typed tool failure.
func (m *Metrics) IncrementToolFailure(capability, category string) {
	if m != nil {
		m.ToolFailures.WithLabelValues(capability, category).Inc()
	}
}
