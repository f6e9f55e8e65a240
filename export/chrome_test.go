package export

import (
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracekit/trackevent"
	"github.com/tracekit/trackevent/category"
	"github.com/tracekit/trackevent/sequence"
	"github.com/tracekit/trackevent/session"
	"github.com/tracekit/trackevent/wire"
)

func recordTrace(t *testing.T) *wire.BufferWriter {
	t.Helper()
	var now uint64 = 10_000_000
	sequence.SetClock(sequence.ClockBoottime, func() uint64 {
		now += 1000
		return now
	})

	reg := category.NewRegistry(category.Category{Name: "app"})
	coord := session.NewCoordinator(nil)
	coord.AddRegistry(reg)
	coord.EnableTracing(category.DefaultConfig(), 0)

	w := wire.NewBufferWriter()
	st := sequence.NewState(1, 42, 43, "proc", "main")
	e := trackevent.NewEmitter(w, st, reg)

	ec := e.BeginSlice(0, "compute")
	require.NotNil(t, ec)
	ec.AddDebugAnnotation("items", 17)
	ec.AddDebugAnnotation("shape", map[string]any{"w": 3, "h": 4})
	ec.Finish()
	e.Instant(0, "tick").Finish()
	e.EndSlice(0)
	return w
}

func decodeViewer(t *testing.T, data []byte) []ViewerEvent {
	t.Helper()
	var out struct {
		TraceEvents     []ViewerEvent `json:"traceEvents"`
		DisplayTimeUnit string        `json:"displayTimeUnit"`
	}
	require.NoError(t, sonic.Unmarshal(data, &out))
	return out.TraceEvents
}

func TestExportRoundTrip(t *testing.T) {
	w := recordTrace(t)

	data, err := Trace(w.Trace())
	require.NoError(t, err)
	events := decodeViewer(t, data)
	require.Len(t, events, 3)

	begin := events[0]
	assert.Equal(t, "B", begin.Phase)
	assert.Equal(t, "compute", begin.Name)
	assert.Equal(t, "app", begin.Cat)
	assert.Equal(t, int64(42), begin.Pid)
	assert.Equal(t, int64(43), begin.Tid)
	require.NotNil(t, begin.Args)
	assert.EqualValues(t, 17, begin.Args["items"])
	shape, ok := begin.Args["shape"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 3, shape["w"])

	assert.Equal(t, "i", events[1].Phase)
	assert.Equal(t, "tick", events[1].Name)

	end := events[2]
	assert.Equal(t, "E", end.Phase)
	assert.Empty(t, end.Name)

	// Timestamps are microseconds and strictly ordered.
	assert.Less(t, begin.Ts, events[1].Ts)
	assert.Less(t, events[1].Ts, end.Ts)
}

func TestExportSurvivesIncrementalClear(t *testing.T) {
	var now uint64 = 10_000_000
	sequence.SetClock(sequence.ClockBoottime, func() uint64 {
		now += 1000
		return now
	})

	reg := category.NewRegistry(category.Category{Name: "app"})
	coord := session.NewCoordinator(nil)
	coord.AddRegistry(reg)
	coord.EnableTracing(category.DefaultConfig(), 0)

	w := wire.NewBufferWriter()
	e := trackevent.NewEmitter(w, sequence.NewState(1, 1, 2, "p", "t"), reg)

	e.Instant(0, "before").Finish()
	e.InvalidateIncrementalState()
	e.Instant(0, "after").Finish()

	data, err := Packets(w.Packets())
	require.NoError(t, err)
	events := decodeViewer(t, data)
	require.Len(t, events, 2)
	assert.Equal(t, "before", events[0].Name)
	assert.Equal(t, "after", events[1].Name)
	assert.Equal(t, "app", events[1].Cat)
	assert.Less(t, events[0].Ts, events[1].Ts)
}

func TestExportCounter(t *testing.T) {
	var now uint64 = 10_000_000
	sequence.SetClock(sequence.ClockBoottime, func() uint64 {
		now += 1000
		return now
	})

	reg := category.NewRegistry(category.Category{Name: "app"})
	coord := session.NewCoordinator(nil)
	coord.AddRegistry(reg)
	coord.EnableTracing(category.DefaultConfig(), 0)

	w := wire.NewBufferWriter()
	e := trackevent.NewEmitter(w, sequence.NewState(1, 1, 2, "p", "t"), reg)
	e.Counter(0, sequence.NewThreadTimeTrack(0), 555)

	data, err := Packets(w.Packets())
	require.NoError(t, err)
	events := decodeViewer(t, data)
	require.Len(t, events, 1)
	assert.Equal(t, "C", events[0].Phase)
	require.NotNil(t, events[0].Args)
	assert.EqualValues(t, 555, events[0].Args["value"])
}

func TestExportEmptyTrace(t *testing.T) {
	data, err := Packets(nil)
	require.NoError(t, err)
	assert.Empty(t, decodeViewer(t, data))
}
