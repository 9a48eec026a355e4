package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the rule engine pipeline.
type Metrics struct {
	// Events consumed from the notification channel, by outcome:
	// "processed", "duplicate", "malformed"
	EventsConsumed *prometheus.CounterVec

	// Trigger matches per event
	TriggersMatched prometheus.Counter

	// Condition evaluation outcomes: "passed", "failed", "error"
	ConditionOutcome *prometheus.CounterVec

	// Action attempts by action type and result: "success", "failed"
	ActionResults *prometheus.CounterVec

	// End-to-end per-workflow execution latency
	ExecutionLatency prometheus.Histogram
}

// New creates a Metrics instance with all engine metrics registered on the
// default registry.
func New() *Metrics {
	return &Metrics{
		EventsConsumed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ruleflow_events_consumed_total",
			Help: "Change notifications consumed by outcome",
		}, []string{"outcome"}),

		TriggersMatched: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ruleflow_triggers_matched_total",
			Help: "Triggers matched across all consumed events",
		}),

		ConditionOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ruleflow_condition_outcomes_total",
			Help: "Condition evaluation outcomes per workflow pass",
		}, []string{"outcome"}),

		ActionResults: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ruleflow_action_results_total",
			Help: "Action execution results by action type and result",
		}, []string{"action_type", "result"}),

		ExecutionLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "ruleflow_execution_duration_seconds",
			Help:    "Duration of one workflow execution including all actions",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
}

func (m *Metrics) IncEvent(outcome string) {
	if m != nil {
		m.EventsConsumed.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) AddMatches(n int) {
	if m != nil {
		m.TriggersMatched.Add(float64(n))
	}
}

func (m *Metrics) IncCondition(outcome string) {
	if m != nil {
		m.ConditionOutcome.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncActionResult(actionType string, result string) {
	if m != nil {
		m.ActionResults.WithLabelValues(actionType, result).Inc()
	}
}

func (m *Metrics) ObserveExecution(d time.Duration) {
	if m != nil {
		m.ExecutionLatency.Observe(d.Seconds())
	}
}
