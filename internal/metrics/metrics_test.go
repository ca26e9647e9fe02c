package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRuntimeSeries(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewRuntime(reg, "TrafficLight")
	require.NoError(t, err)

	m.Transition(OutcomeApplied)
	m.Transition(OutcomeApplied)
	m.Transition(OutcomeUnhandled)
	m.Enqueued(3)
	m.Dispatched()
	m.CommandError()
	m.ListenerAdded()
	m.ListenerAdded()
	m.ListenerRemoved()

	require.Equal(t, 2.0, testutil.ToFloat64(m.transitions.WithLabelValues("TrafficLight", OutcomeApplied)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("TrafficLight", OutcomeUnhandled)))
	require.Equal(t, 2.0, testutil.ToFloat64(m.queueDepth))
	require.Equal(t, 1.0, testutil.ToFloat64(m.dispatched))
	require.Equal(t, 1.0, testutil.ToFloat64(m.commandErrors))
	require.Equal(t, 1.0, testutil.ToFloat64(m.listeners))
}

func TestRuntimeSharesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewRuntime(reg, "Loading")
	require.NoError(t, err)
	b, err := NewRuntime(reg, "Loading")
	require.NoError(t, err)

	a.Dispatched()
	b.Dispatched()
	require.Equal(t, 2.0, testutil.ToFloat64(b.dispatched))

	n, err := testutil.GatherAndCount(reg, "tesmx_commands_dispatched_total")
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestNilRuntimeIsNoop(t *testing.T) {
	var m *Runtime
	m.Transition(OutcomeFailed)
	m.Enqueued(1)
	m.Dispatched()
	m.CommandError()
	m.ListenerAdded()
	m.ListenerRemoved()
}
