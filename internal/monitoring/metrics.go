// Package monitoring exposes Prometheus metrics about the tracing backend
// itself: session churn, packet volume, and incremental state resets. The
// counters are cheap enough to update outside the per-event fast path only;
// packet counts are bumped at session granularity by callers that already
// hold per-sequence state.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all tracing self-instrumentation collectors.
type Metrics struct {
	SessionsStarted   prometheus.Counter
	SessionsStopped   prometheus.Counter
	PacketsWritten    prometheus.Counter
	IncrementalClears prometheus.Counter
	InternedStrings   prometheus.Gauge
	CategoriesEnabled prometheus.Gauge
}

// NewMetrics creates the collectors without registering them.
func NewMetrics() *Metrics {
	return &Metrics{
		SessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trace_sessions_started_total",
			Help: "Total number of tracing sessions started",
		}),
		SessionsStopped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trace_sessions_stopped_total",
			Help: "Total number of tracing sessions stopped",
		}),
		PacketsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trace_packets_written_total",
			Help: "Total number of trace packets finished",
		}),
		IncrementalClears: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trace_incremental_clears_total",
			Help: "Times incremental state was invalidated and re-emitted",
		}),
		InternedStrings: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trace_interned_strings",
			Help: "Distinct strings currently interned on the reporting sequence",
		}),
		CategoriesEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trace_categories_enabled",
			Help: "Categories enabled for at least one active session",
		}),
	}
}

// Register adds all collectors to the given registerer.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.SessionsStarted, m.SessionsStopped, m.PacketsWritten,
		m.IncrementalClears, m.InternedStrings, m.CategoriesEnabled,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
