package sequence

import (
	"github.com/tracekit/trackevent/wire"
)

// NewTracePacket starts the next packet on the sequence with a correctly
// encoded timestamp.
//
// The common cheap path delta-encodes incremental-clock timestamps against
// the sequence's last seen time, in configured units, and advances the
// baseline by the unit-rounded delta so a reader reconstructs exact values.
// A timestamp older than the baseline (cross-thread ordering) falls back to
// an absolute encoding with an explicit clock id and leaves the baseline
// untouched. Non-incremental clocks always encode absolute: without a clock
// tag when it is the sequence default, with one otherwise.
func NewTracePacket(w wire.Writer, inc *IncrementalState, st *State, ts Timestamp, flags uint32) *wire.Packet {
	pkt := w.NewTracePacket()
	pkt.SetSequenceID(st.SequenceID)

	unit := st.unit()
	clockID := ts.ClockID
	if clockID == ClockIncremental && st.DefaultClockID != ClockIncremental {
		// Delta encoding is off for this sequence; remap onto its default.
		clockID = st.DefaultClockID
	}

	switch {
	case clockID == ClockIncremental:
		if ts.Value >= inc.LastTimestampNs {
			deltaUnits := (ts.Value - inc.LastTimestampNs) / unit
			pkt.SetTimestamp(deltaUnits)
			inc.LastTimestampNs += deltaUnits * unit
		} else {
			pkt.SetTimestamp(ts.Value / unit)
			if unit == 1 {
				pkt.SetTimestampClockID(TraceClockID())
			} else {
				pkt.SetTimestampClockID(ClockAbsolute)
			}
		}
	case clockID == st.DefaultClockID:
		pkt.SetTimestamp(ts.Value / unit)
	default:
		pkt.SetTimestamp(ts.Value)
		pkt.SetTimestampClockID(clockID)
	}

	pkt.SetSequenceFlags(flags)
	return pkt
}

// ResetIncrementalState re-emits everything a reader needs to decode the
// sequence from this point on: a packet flagged with
// SeqIncrementalStateCleared carrying the sequence defaults (default clock,
// default track, optional thread-time counter track) and a clock snapshot
// tying the trace clock to the incremental clock, followed by descriptors
// for the default thread track, the process track, and, when thread-time
// sampling is on, the thread-time counter track. The delta baseline restarts
// at the given absolute time, and only the just-described tracks remain in
// the seen set.
func ResetIncrementalState(w wire.Writer, inc *IncrementalState, st *State, ts Timestamp) {
	inc.clear()
	inc.LastTimestampNs = ts.Value
	unit := st.unit()

	pkt := w.NewTracePacket()
	pkt.SetSequenceID(st.SequenceID)
	pkt.SetSequenceFlags(wire.SeqIncrementalStateCleared)
	if !st.firstPacketWritten {
		st.firstPacketWritten = true
		pkt.SetFirstPacketOnSequence()
	}

	defaults := pkt.BeginDefaults()
	defaults.AppendVarint(wire.FieldDefaultsTimestampClockID, uint64(st.DefaultClockID))
	ted := defaults.BeginNested(wire.FieldDefaultsTrackEvent)
	ted.AppendVarint(wire.FieldTrackEventDefaultsTrackUUID, st.ThreadTrack.Uuid)
	if st.ThreadTimeSampling {
		ted.AppendVarint(wire.FieldTrackEventDefaultsExtraCounters, st.ThreadTimeTrack.Uuid)
	}
	ted.EndNested()
	defaults.EndNested()

	snap := pkt.BeginClockSnapshot()
	snap.AppendVarint(wire.FieldSnapshotPrimaryClock, uint64(TraceClockID()))
	c := snap.BeginNested(wire.FieldSnapshotClocks)
	c.AppendVarint(wire.FieldClockID, uint64(TraceClockID()))
	c.AppendVarint(wire.FieldClockTimestamp, ts.Value)
	c.EndNested()
	c = snap.BeginNested(wire.FieldSnapshotClocks)
	c.AppendVarint(wire.FieldClockID, uint64(ClockIncremental))
	c.AppendVarint(wire.FieldClockTimestamp, ts.Value/unit)
	c.AppendBool(wire.FieldClockIsIncremental, true)
	if unit != 1 {
		c.AppendVarint(wire.FieldClockUnitMultiplier, unit)
	}
	c.EndNested()
	if unit != 1 {
		// A third mapping for the absolute variant of the scaled clock.
		c = snap.BeginNested(wire.FieldSnapshotClocks)
		c.AppendVarint(wire.FieldClockID, uint64(ClockAbsolute))
		c.AppendVarint(wire.FieldClockTimestamp, ts.Value/unit)
		c.AppendVarint(wire.FieldClockUnitMultiplier, unit)
		c.EndNested()
	}
	snap.EndNested()
	pkt.Finish()

	WriteTrackDescriptor(w, inc, st, st.ThreadTrack, ts)
	WriteTrackDescriptor(w, inc, st, st.ProcessTrack, ts)
	if st.ThreadTimeSampling {
		WriteTrackDescriptor(w, inc, st, st.ThreadTimeTrack, ts)
	}
}

// ResetIfRequired runs ResetIncrementalState when the backend marked the
// state stale. Called on the hot path before every event.
func ResetIfRequired(w wire.Writer, inc *IncrementalState, st *State, ts Timestamp) {
	if inc.NeedsReset {
		ResetIncrementalState(w, inc, st, ts)
	}
}

// WriteTrackDescriptor unconditionally emits a descriptor packet for the
// track and records its uuid as described.
func WriteTrackDescriptor(w wire.Writer, inc *IncrementalState, st *State, t Track, ts Timestamp) {
	pkt := NewTracePacket(w, inc, st, ts, 0)
	desc := pkt.BeginTrackDescriptor()
	t.describe(desc)
	desc.EndNested()
	pkt.Finish()
	inc.SeenTracks[t.UUID()] = struct{}{}
}

// WriteTrackDescriptorIfNeeded emits the track's descriptor unless it was
// already described on this sequence since the last reset.
func WriteTrackDescriptorIfNeeded(w wire.Writer, inc *IncrementalState, st *State, t Track, ts Timestamp) {
	if _, ok := inc.SeenTracks[t.UUID()]; ok {
		return
	}
	WriteTrackDescriptor(w, inc, st, t, ts)
}

// SampleThreadTime returns the delta-encoded thread-time counter value for
// an event at ts on the thread's own track. The OS counter is only re-read
// when at least the configured interval elapsed since the previous sample;
// in between, events carry a zero delta. The second return is false when
// sampling is disabled.
func SampleThreadTime(inc *IncrementalState, st *State, ts Timestamp) (int64, bool) {
	if !st.ThreadTimeSampling || st.ThreadTimeNow == nil {
		return 0, false
	}
	if inc.LastThreadTimeTimestampNs != 0 &&
		ts.Value-inc.LastThreadTimeTimestampNs < st.ThreadTimeIntervalNs {
		return 0, true
	}
	now := st.ThreadTimeNow()
	delta := int64(now - inc.LastThreadTimeNs)
	inc.LastThreadTimeNs = now
	inc.LastThreadTimeTimestampNs = ts.Value
	return delta, true
}
