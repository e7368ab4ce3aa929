package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for compliance runs.
type Metrics struct {
	// Run outcomes by disposition and whether the profile short-circuited
	Decisions *prometheus.CounterVec

	// Rule triggers by rule id
	RuleHits *prometheus.CounterVec

	// Verdicts that came back degraded, by role
	DegradedVerdicts *prometheus.CounterVec

	// Overall run latency
	RunLatency prometheus.Histogram

	// Quick assessments by recommendation
	QuickAssessments *prometheus.CounterVec
}

// New registers screening metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_decisions_total",
			Help: "Completed compliance runs by disposition",
		}, []string{"disposition", "found_in_db"}),

		RuleHits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_rule_hits_total",
			Help: "Aggregation rule triggers by rule",
		}, []string{"rule"}),

		DegradedVerdicts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_degraded_verdicts_total",
			Help: "Worker verdicts that fell back to review or errored",
		}, []string{"role", "status"}),

		RunLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "kycgate_run_duration_seconds",
			Help:    "Duration of a full compliance run including pre-checks",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 20, 40, 60, 90},
		}),

		QuickAssessments: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_quick_assessments_total",
			Help: "Quick pre-screen assessments by recommendation",
		}, []string{"recommendation"}),
	}
}

func (m *Metrics) IncrementDecision(disposition string, foundInDB bool) {
	if m != nil {
		label := "false"
		if foundInDB {
			label = "true"
		}
		m.Decisions.WithLabelValues(disposition, label).Inc()
	}
}

func (m *Metrics) IncrementRuleHits(rules []string) {
	if m != nil {
		for _, r := range rules {
			m.RuleHits.WithLabelValues(r).Inc()
		}
	}
}

func (m *Metrics) IncrementDegraded(role, status string) {
	if m != nil {
		m.DegradedVerdicts.WithLabelValues(role, status).Inc()
	}
}

func (m *Metrics) ObserveRunLatency(d time.Duration) {
	if m != nil {
		m.RunLatency.Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementQuickAssessment(recommendation string) {
	if m != nil {
		m.QuickAssessments.WithLabelValues(recommendation).Inc()
	}
}
