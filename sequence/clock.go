// Package sequence implements per-output-sequence packet encoding: the
// incremental (delta-compressed) timestamp protocol, clock snapshots,
// sequence defaults, track descriptors, and thread-time counter subsampling.
//
// A sequence is one ordered stream of packets, conventionally one per
// goroutine-pinned OS thread. All state here is sequence-scoped and needs no
// locking.
package sequence

import (
	"sync/atomic"
	"time"
)

// Clock ids. The builtin values match the standard trace clock numbering;
// the incremental and absolute ids are sequence-scoped.
const (
	ClockMonotonic    uint32 = 3
	ClockMonotonicRaw uint32 = 5
	ClockBoottime     uint32 = 6

	// ClockIncremental is the sequence-scoped clock whose values are deltas
	// from the previous packet.
	ClockIncremental uint32 = 64
	// ClockAbsolute is the sequence-scoped absolute clock used for
	// out-of-order timestamps when a non-unit multiplier is configured.
	ClockAbsolute uint32 = 65
)

// Timestamp is one clock reading.
type Timestamp struct {
	ClockID uint32
	Value   uint64
}

// The process-wide trace clock. Selected once before the first write;
// injected so tests control time entirely.
var (
	traceClockID atomic.Uint32
	traceClockFn atomic.Value // func() uint64
)

func init() {
	traceClockID.Store(ClockBoottime)
	traceClockFn.Store(defaultNow)
}

var processStart = time.Now()

// defaultNow reads the runtime monotonic clock, offset to the process start
// wall time so values resemble a boot-time reading.
func defaultNow() uint64 {
	return uint64(processStart.UnixNano()) + uint64(time.Since(processStart))
}

// SetClock selects the process trace clock. Must be called before the first
// write and at most once; later calls affect only subsequent snapshots.
func SetClock(id uint32, now func() uint64) {
	traceClockID.Store(id)
	traceClockFn.Store(now)
}

// TraceClockID returns the selected process trace clock id.
func TraceClockID() uint32 {
	return traceClockID.Load()
}

// NowNs reads the process trace clock.
func NowNs() uint64 {
	return traceClockFn.Load().(func() uint64)()
}

// GetTraceTime returns the current time stamped with the incremental clock,
// the common case for every event emission.
func GetTraceTime() Timestamp {
	return Timestamp{ClockID: ClockIncremental, Value: NowNs()}
}
