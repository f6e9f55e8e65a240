package sequence

import (
	"encoding/binary"

	"github.com/google/uuid"

	"github.com/tracekit/trackevent/intern"
	"github.com/tracekit/trackevent/wire"
)

// IncrementalState holds everything on a sequence that decodes relative to
// earlier packets: the delta timestamp baseline, thread-time subsampling
// state, the set of tracks already described, and the interning tables. It
// is created lazily per sequence and rebuilt whenever the backend signals
// that readers may have missed packets.
type IncrementalState struct {
	// NeedsReset forces a full state re-emission before the next packet.
	// Set on creation and by Invalidate.
	NeedsReset bool

	LastTimestampNs uint64

	LastThreadTimeNs          uint64
	LastThreadTimeTimestampNs uint64

	SeenTracks map[uint64]struct{}

	EventCategories     intern.Table
	EventNames          intern.Table
	AnnotationNames     intern.Table
	AnnotationTypeNames intern.Table
}

// NewIncrementalState returns a fresh state that will trigger a reset on
// first use.
func NewIncrementalState() *IncrementalState {
	return &IncrementalState{
		NeedsReset:          true,
		SeenTracks:          make(map[uint64]struct{}),
		EventCategories:     intern.NewTable(wire.SectionEventCategories),
		EventNames:          intern.NewTable(wire.SectionEventNames),
		AnnotationNames:     intern.NewTable(wire.SectionAnnotationNames),
		AnnotationTypeNames: intern.NewTable(wire.SectionAnnotationTypeNames),
	}
}

// Invalidate marks the state stale, typically on a buffer wraparound signal.
// The next packet re-emits defaults, clock snapshot, and track descriptors,
// and restarts delta timestamps and interning ids.
func (s *IncrementalState) Invalidate() {
	s.NeedsReset = true
}

// clear drops all incremental knowledge. Called from ResetIncrementalState.
func (s *IncrementalState) clear() {
	s.NeedsReset = false
	s.LastTimestampNs = 0
	s.LastThreadTimeNs = 0
	s.LastThreadTimeTimestampNs = 0
	s.SeenTracks = make(map[uint64]struct{})
	s.EventCategories.Reset()
	s.EventNames.Reset()
	s.AnnotationNames.Reset()
	s.AnnotationTypeNames.Reset()
}

// State holds a sequence's fixed configuration: identity, default clock and
// units, default tracks, and thread-time sampling. It changes only at
// session setup, never per event.
type State struct {
	SequenceID uint32

	// DefaultClockID is the sequence's declared default clock. Incremental
	// enables delta encoding; anything else makes every timestamp absolute.
	DefaultClockID uint32
	// UnitMultiplier scales nanoseconds into coarser timestamp units.
	// Zero means 1.
	UnitMultiplier uint64

	ProcessTrack ProcessTrack
	ThreadTrack  ThreadTrack

	// Thread-time counter sampling. ThreadTimeNow reads the OS
	// thread-CPU-time counter; readings are subsampled so that high
	// frequency event streams do not pay one syscall per event.
	ThreadTimeSampling   bool
	ThreadTimeIntervalNs uint64
	ThreadTimeNow        func() uint64
	ThreadTimeTrack      CounterTrack

	firstPacketWritten bool
}

// NewState builds a sequence state with delta timestamps enabled and default
// process and thread tracks for the given identifiers.
func NewState(seqID uint32, pid, tid int32, processName, threadName string) *State {
	proc := NewProcessTrack(pid, processName)
	return &State{
		SequenceID:     seqID,
		DefaultClockID: ClockIncremental,
		ProcessTrack:   proc,
		ThreadTrack:    NewThreadTrack(proc.Uuid, pid, tid, threadName),
	}
}

// EnableThreadTime turns on thread-time counter sampling with the given
// subsampling interval and counter source.
func (s *State) EnableThreadTime(intervalNs uint64, now func() uint64) {
	s.ThreadTimeSampling = true
	s.ThreadTimeIntervalNs = intervalNs
	s.ThreadTimeNow = now
	s.ThreadTimeTrack = NewThreadTimeTrack(s.ThreadTrack.Uuid)
}

func (s *State) unit() uint64 {
	if s.UnitMultiplier == 0 {
		return 1
	}
	return s.UnitMultiplier
}

// newTrackUUID derives a fresh random track uuid.
func newTrackUUID() uint64 {
	u := uuid.New()
	return binary.LittleEndian.Uint64(u[:8])
}
