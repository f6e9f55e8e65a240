package monitoring

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	m := NewMetrics()
	reg := prometheus.NewRegistry()
	require.NoError(t, m.Register(reg))

	m.SessionsStarted.Inc()
	m.PacketsWritten.Inc()
	m.PacketsWritten.Inc()
	m.CategoriesEnabled.Set(3)

	families, err := reg.Gather()
	require.NoError(t, err)

	got := make(map[string]float64)
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			if c := metric.GetCounter(); c != nil {
				got[mf.GetName()] = c.GetValue()
			}
			if g := metric.GetGauge(); g != nil {
				got[mf.GetName()] = g.GetValue()
			}
		}
	}
	assert.Equal(t, float64(1), got["trace_sessions_started_total"])
	assert.Equal(t, float64(2), got["trace_packets_written_total"])
	assert.Equal(t, float64(3), got["trace_categories_enabled"])
}

func TestRegisterTwiceFails(t *testing.T) {
	m := NewMetrics()
	reg := prometheus.NewRegistry()
	require.NoError(t, m.Register(reg))
	assert.Error(t, m.Register(reg))
}
