// Package metrics defines Prometheus metrics for formpilot workers and
// sessions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tinkerloft/formpilot/internal/confidence"
	"github.com/tinkerloft/formpilot/internal/model"
)

// Metrics holds all registered Prometheus collectors. It implements
// confidence.Observer and learning.Observer.
type Metrics struct {
	ActivityDuration   *prometheus.HistogramVec
	ActivityTotal      *prometheus.CounterVec
	NotificationsTotal prometheus.Counter
	QuestionResults    *prometheus.CounterVec
	Decisions          *prometheus.CounterVec
	Outcomes           *prometheus.CounterVec
	Interventions      *prometheus.CounterVec
	EffectiveThreshold *prometheus.GaugeVec
}

// Register registers a fresh set of metrics with the given registry and
// returns it.
func Register(reg prometheus.Registerer) (*Metrics, error) {
	m := New()
	if err := RegisterWith(reg, m); err != nil {
		return nil, err
	}
	return m, nil
}

// RegisterWith registers a pre-built Metrics instance with the given registry.
func RegisterWith(reg prometheus.Registerer, m *Metrics) error {
	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.ActivityDuration,
		m.ActivityTotal,
		m.NotificationsTotal,
		m.QuestionResults,
		m.Decisions,
		m.Outcomes,
		m.Interventions,
		m.EffectiveThreshold,
	}
}

// New creates uninitialised metric instances (used internally and by interceptor).
func New() *Metrics {
	return &Metrics{
		ActivityDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "formpilot_activity_duration_seconds",
				Help:    "Duration of each Temporal activity execution in seconds.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"activity_name", "result"},
		),
		ActivityTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "formpilot_activity_total",
				Help: "Total number of Temporal activity executions by name and result.",
			},
			[]string{"activity_name", "result"},
		),
		NotificationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "formpilot_notifications_total",
			Help: "Total number of pending-question notifications handled.",
		}),
		QuestionResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "formpilot_question_results_total",
				Help: "Questions handled by the worker: automated, deferred, failed, or answered by a human.",
			},
			[]string{"outcome"},
		),
		Decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "formpilot_decisions_total",
				Help: "Automate or defer decisions by capability and reason.",
			},
			[]string{"capability", "reason"},
		),
		Outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "formpilot_outcomes_total",
				Help: "Recorded automation outcomes by capability and result.",
			},
			[]string{"capability", "result"},
		),
		Interventions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "formpilot_interventions_total",
				Help: "Human interventions stored by question type.",
			},
			[]string{"question_type"},
		),
		EffectiveThreshold: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "formpilot_effective_threshold",
				Help: "Most recent effective threshold per capability.",
			},
			[]string{"capability"},
		),
	}
}

// ObserveDecision implements confidence.Observer.
func (m *Metrics) ObserveDecision(capability string, d confidence.Decision) {
	m.Decisions.WithLabelValues(capability, string(d.Reason)).Inc()
	m.EffectiveThreshold.WithLabelValues(capability).Set(d.Threshold)
}

// ObserveOutcome implements confidence.Observer.
func (m *Metrics) ObserveOutcome(capability string, success bool, threshold float64) {
	result := "success"
	if !success {
		result = "failure"
	}
	m.Outcomes.WithLabelValues(capability, result).Inc()
	m.EffectiveThreshold.WithLabelValues(capability).Set(threshold)
}

// ObserveIntervention implements learning.Observer.
func (m *Metrics) ObserveIntervention(ev model.LearningEvent) {
	m.Interventions.WithLabelValues(string(ev.QuestionType)).Inc()
}
