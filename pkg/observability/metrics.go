package observability

import (
	"errors"

	"github.com/aretw0/epa/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "epa"

// Metrics holds the monitor collectors.
type Metrics struct {
	Transitions *prometheus.CounterVec
	Invalidated *prometheus.CounterVec
	Failures    *prometheus.CounterVec
	Subjects    prometheus.Gauge

	seen map[domain.SubjectID]struct{}
}

// NewMetrics creates the collectors and registers them on reg.
// A nil reg leaves them unregistered, which is convenient in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Transitions recorded, by subject type and action.",
		}, []string{"subject_type", "action"}),
		Invalidated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subjects_invalidated_total",
			Help:      "Subjects excluded from the trace after a non-enabled error, by operation.",
		}, []string{"subject_type", "operation"}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Fatal monitor failures, by hook and kind.",
		}, []string{"op", "kind"}),
		Subjects: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subjects_traced",
			Help:      "Distinct subjects with at least one recorded transition.",
		}),
		seen: make(map[domain.SubjectID]struct{}),
	}
	if reg != nil {
		reg.MustRegister(m.Transitions, m.Invalidated, m.Failures, m.Subjects)
	}
	return m
}

// Hooks returns monitor hooks feeding the collectors.
// Like the monitor itself, they expect a single logical thread.
func (m *Metrics) Hooks() domain.MonitorHooks {
	return domain.MonitorHooks{
		OnTransition: func(s domain.Subject, t domain.Transition) {
			m.Transitions.WithLabelValues(s.Type, string(t.Action)).Inc()
			if _, ok := m.seen[s.ID]; !ok {
				m.seen[s.ID] = struct{}{}
				m.Subjects.Inc()
			}
		},
		OnInvalidated: func(s domain.Subject, signature string, _ error) {
			m.Invalidated.WithLabelValues(s.Type, signature).Inc()
		},
		OnFailure: func(err error) {
			op, kind := FailureLabels(err)
			m.Failures.WithLabelValues(op, kind).Inc()
		},
	}
}

// Reset zeroes the collectors, mirroring a monitor reset.
func (m *Metrics) Reset() {
	m.Transitions.Reset()
	m.Invalidated.Reset()
	m.Failures.Reset()
	m.Subjects.Set(0)
	m.seen = make(map[domain.SubjectID]struct{})
}

// FailureLabels returns the op and kind labels of a monitor failure.
func FailureLabels(err error) (op, kind string) {
	op, kind = "unknown", "other"
	var f *domain.Failure
	if !errors.As(err, &f) {
		return op, kind
	}
	op = f.Op
	switch f.Kind() {
	case domain.ErrConfiguration:
		kind = "configuration"
	case domain.ErrMalformedTrace:
		kind = "malformed_trace"
	case domain.ErrInternalConsistency:
		kind = "internal_consistency"
	case domain.ErrPredicate:
		kind = "predicate"
	}
	return op, kind
}
