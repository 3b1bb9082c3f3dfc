/*
Package observability exposes monitor activity as Prometheus metrics.

Metrics plugs into a monitor through domain.MonitorHooks:

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	m, err := epa.New(..., epa.WithHooks(metrics.Hooks()))

It counts recorded transitions by action, excluded subjects by operation
signature and fatal failures by hook and kind.
*/
package observability
