package observability

import (
	"context"
	"time"

	"github.com/aretw0/epa/pkg/domain"
	"github.com/aretw0/epa/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
)

// TraceCollector reports the state of a persisted trace at scrape time.
// It suits processes that serve a trace recorded elsewhere.
type TraceCollector struct {
	automaton *domain.Automaton
	reader    ports.TraceReader
	timeout   time.Duration

	subjects    *prometheus.Desc
	transitions *prometheus.Desc
	covered     *prometheus.Desc
	declared    *prometheus.Desc
	up          *prometheus.Desc
}

// NewTraceCollector creates a collector over reader.
func NewTraceCollector(a *domain.Automaton, reader ports.TraceReader) *TraceCollector {
	labels := prometheus.Labels{"automaton": a.Name()}
	return &TraceCollector{
		automaton:   a,
		reader:      reader,
		timeout:     5 * time.Second,
		subjects:    prometheus.NewDesc(namespace+"_trace_subjects", "Subjects in the trace.", nil, labels),
		transitions: prometheus.NewDesc(namespace+"_trace_transitions", "Transitions in the trace.", nil, labels),
		covered:     prometheus.NewDesc(namespace+"_trace_declared_covered", "Declared transitions observed at least once.", nil, labels),
		declared:    prometheus.NewDesc(namespace+"_trace_declared", "Transitions declared by the automaton.", nil, labels),
		up:          prometheus.NewDesc(namespace+"_trace_up", "Whether the last read of the trace succeeded.", nil, labels),
	}
}

// Describe implements prometheus.Collector.
func (c *TraceCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.subjects
	ch <- c.transitions
	ch <- c.covered
	ch <- c.declared
	ch <- c.up
}

// Collect implements prometheus.Collector.
func (c *TraceCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	subjects, observed, err := c.read(ctx)
	if err != nil {
		ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 0)
		return
	}

	hit := make(map[domain.Transition]struct{})
	for _, t := range observed {
		if c.automaton.Declares(t) {
			hit[t] = struct{}{}
		}
	}

	ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 1)
	ch <- prometheus.MustNewConstMetric(c.subjects, prometheus.GaugeValue, float64(subjects))
	ch <- prometheus.MustNewConstMetric(c.transitions, prometheus.GaugeValue, float64(len(observed)))
	ch <- prometheus.MustNewConstMetric(c.covered, prometheus.GaugeValue, float64(len(hit)))
	ch <- prometheus.MustNewConstMetric(c.declared, prometheus.GaugeValue, float64(len(c.automaton.Transitions())))
}

func (c *TraceCollector) read(ctx context.Context) (int, []domain.Transition, error) {
	subjects, err := c.reader.Subjects(ctx)
	if err != nil {
		return 0, nil, err
	}
	var all []domain.Transition
	for _, s := range subjects {
		ts, err := c.reader.Transitions(ctx, s.ID)
		if err != nil {
			return 0, nil, err
		}
		all = append(all, ts...)
	}
	return len(subjects), all, nil
}
