// Package export converts a recorded packet buffer into Chrome trace-event
// JSON, so traces open directly in chrome://tracing and similar viewers.
//
// The exporter replays each sequence's incremental protocol: clock snapshots
// restart the timestamp baseline, interned data packets rebuild the string
// tables, and delta timestamps accumulate against the baseline. It only
// understands the fields the recording core emits.
package export

import (
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/tracekit/trackevent/sequence"
	"github.com/tracekit/trackevent/wire"
)

// ViewerEvent is one entry of the Chrome trace-event format.
type ViewerEvent struct {
	Name  string         `json:"name,omitempty"`
	Phase string         `json:"ph"`
	Cat   string         `json:"cat,omitempty"`
	Ts    float64        `json:"ts"`
	Pid   int64          `json:"pid"`
	Tid   int64          `json:"tid"`
	Args  map[string]any `json:"args,omitempty"`
}

type viewerTrace struct {
	TraceEvents     []ViewerEvent `json:"traceEvents"`
	DisplayTimeUnit string        `json:"displayTimeUnit"`
}

// seqState replays one sequence's incremental decoding state.
type seqState struct {
	lastTsNs     uint64
	unit         uint64
	defaultClock uint32
	defaultTrack uint64

	categories map[uint64]string
	names      map[uint64]string
	annNames   map[uint64]string
}

func newSeqState() *seqState {
	return &seqState{
		unit:         1,
		defaultClock: 0,
		categories:   make(map[uint64]string),
		names:        make(map[uint64]string),
		annNames:     make(map[uint64]string),
	}
}

// track identity reconstructed from descriptors.
type trackInfo struct {
	pid, tid int64
	name     string
}

// Trace converts a finished trace container into Chrome JSON.
func Trace(trace []byte) ([]byte, error) {
	packets, err := wire.SplitTrace(trace)
	if err != nil {
		return nil, err
	}
	return Packets(packets)
}

// Packets converts packets, in write order, into Chrome JSON.
func Packets(packets [][]byte) ([]byte, error) {
	sequences := make(map[uint64]*seqState)
	tracks := make(map[uint64]trackInfo)
	out := viewerTrace{TraceEvents: []ViewerEvent{}, DisplayTimeUnit: "ns"}

	for _, pkt := range packets {
		seqID, _ := wire.Uint(pkt, wire.FieldPacketSequenceID)
		st := sequences[seqID]
		if st == nil {
			st = newSeqState()
			sequences[seqID] = st
		}

		flags, _ := wire.Uint(pkt, wire.FieldPacketSequenceFlags)
		if uint32(flags)&wire.SeqIncrementalStateCleared != 0 {
			fresh := newSeqState()
			fresh.defaultClock = st.defaultClock
			fresh.defaultTrack = st.defaultTrack
			*st = *fresh
		}
		applyDefaults(st, pkt)
		applySnapshot(st, pkt)
		mergeInterned(st, pkt)
		applyTrackDescriptor(tracks, pkt)

		event := wire.Bytes(pkt, wire.FieldPacketTrackEvent)
		if len(event) == 0 {
			continue
		}
		tsNs, ok := packetTimestampNs(st, pkt)
		if !ok {
			continue
		}
		ev, ok := decodeEvent(st, tracks, event[len(event)-1], tsNs)
		if ok {
			out.TraceEvents = append(out.TraceEvents, ev)
		}
	}
	return sonic.Marshal(&out)
}

func applyDefaults(st *seqState, pkt []byte) {
	for _, d := range wire.Bytes(pkt, wire.FieldPacketDefaults) {
		if id, ok := wire.Uint(d, wire.FieldDefaultsTimestampClockID); ok {
			st.defaultClock = uint32(id)
		}
		for _, ted := range wire.Bytes(d, wire.FieldDefaultsTrackEvent) {
			if u, ok := wire.Uint(ted, wire.FieldTrackEventDefaultsTrackUUID); ok {
				st.defaultTrack = u
			}
		}
	}
}

// applySnapshot restarts the timestamp baseline from the incremental clock
// entry of a snapshot.
func applySnapshot(st *seqState, pkt []byte) {
	for _, snap := range wire.Bytes(pkt, wire.FieldPacketClockSnapshot) {
		for _, clk := range wire.Bytes(snap, wire.FieldSnapshotClocks) {
			id, _ := wire.Uint(clk, wire.FieldClockID)
			if uint32(id) != sequence.ClockIncremental {
				continue
			}
			if mult, ok := wire.Uint(clk, wire.FieldClockUnitMultiplier); ok && mult > 0 {
				st.unit = mult
			}
			if v, ok := wire.Uint(clk, wire.FieldClockTimestamp); ok {
				st.lastTsNs = v * st.unit
			}
		}
	}
}

func mergeInterned(st *seqState, pkt []byte) {
	for iid, s := range wire.InternedStrings(pkt, wire.SectionEventCategories) {
		st.categories[iid] = s
	}
	for iid, s := range wire.InternedStrings(pkt, wire.SectionEventNames) {
		st.names[iid] = s
	}
	for iid, s := range wire.InternedStrings(pkt, wire.SectionAnnotationNames) {
		st.annNames[iid] = s
	}
}

func applyTrackDescriptor(tracks map[uint64]trackInfo, pkt []byte) {
	for _, desc := range wire.Bytes(pkt, wire.FieldPacketTrackDescriptor) {
		uuid, ok := wire.Uint(desc, wire.FieldTrackUUID)
		if !ok {
			continue
		}
		info := trackInfo{}
		info.name, _ = wire.String(desc, wire.FieldTrackName)
		for _, p := range wire.Bytes(desc, wire.FieldTrackProcess) {
			if pid, ok := wire.Uint(p, wire.FieldProcessPid); ok {
				info.pid = int64(pid)
			}
		}
		for _, th := range wire.Bytes(desc, wire.FieldTrackThread) {
			if pid, ok := wire.Uint(th, wire.FieldThreadPid); ok {
				info.pid = int64(pid)
			}
			if tid, ok := wire.Uint(th, wire.FieldThreadTid); ok {
				info.tid = int64(tid)
			}
		}
		tracks[uuid] = info
	}
}

// packetTimestampNs reconstructs the packet's absolute time in nanoseconds.
func packetTimestampNs(st *seqState, pkt []byte) (uint64, bool) {
	v, ok := wire.Uint(pkt, wire.FieldPacketTimestamp)
	if !ok {
		return 0, false
	}
	clockID, tagged := wire.Uint(pkt, wire.FieldPacketTimestampClockID)
	switch {
	case tagged && uint32(clockID) == sequence.ClockAbsolute:
		// Sequence-scoped absolute clock, in units.
		return v * st.unit, true
	case tagged:
		// Builtin clock, nanoseconds.
		return v, true
	case st.defaultClock == sequence.ClockIncremental || st.defaultClock == 0:
		// Incremental default: delta in units.
		st.lastTsNs += v * st.unit
		return st.lastTsNs, true
	default:
		return v * st.unit, true
	}
}

func decodeEvent(st *seqState, tracks map[uint64]trackInfo, event []byte, tsNs uint64) (ViewerEvent, bool) {
	typ, _ := wire.Uint(event, wire.FieldEventType)
	var phase string
	switch typ {
	case wire.EventTypeSliceBegin:
		phase = "B"
	case wire.EventTypeSliceEnd:
		phase = "E"
	case wire.EventTypeInstant:
		phase = "i"
	case wire.EventTypeCounter:
		phase = "C"
	default:
		return ViewerEvent{}, false
	}

	ev := ViewerEvent{Phase: phase, Ts: float64(tsNs) / 1e3}

	if iids := wire.Uints(event, wire.FieldEventNameIID); len(iids) > 0 {
		ev.Name = st.names[iids[len(iids)-1]]
	} else if name, ok := wire.String(event, wire.FieldEventName); ok {
		ev.Name = name
	}
	for _, iid := range wire.Uints(event, wire.FieldEventCategoryIIDs) {
		ev.Cat = st.categories[iid]
	}
	if cat, ok := wire.String(event, wire.FieldEventCategories); ok {
		ev.Cat = cat
	}

	trackUUID, hasTrack := wire.Uint(event, wire.FieldEventTrackUUID)
	if !hasTrack {
		trackUUID = st.defaultTrack
	}
	if info, ok := tracks[trackUUID]; ok {
		ev.Pid, ev.Tid = info.pid, info.tid
	}

	if phase == "C" {
		if v, ok := wire.Uint(event, wire.FieldEventCounterValue); ok {
			ev.Args = map[string]any{"value": int64(v)}
		}
		return ev, true
	}

	for _, ann := range wire.Bytes(event, wire.FieldEventDebugAnnotations) {
		name := annotationName(st, ann)
		if name == "" {
			continue
		}
		if ev.Args == nil {
			ev.Args = make(map[string]any)
		}
		ev.Args[name] = annotationValue(st, ann)
	}
	return ev, true
}

func annotationName(st *seqState, ann []byte) string {
	if name, ok := wire.String(ann, wire.FieldAnnotationName); ok {
		return name
	}
	if iid, ok := wire.Uint(ann, wire.FieldAnnotationNameIID); ok {
		return st.annNames[iid]
	}
	return ""
}

// annotationValue renders one annotation node into plain JSON-ready values,
// recursing through dictionaries and arrays.
func annotationValue(st *seqState, ann []byte) any {
	if entries := wire.Bytes(ann, wire.FieldAnnotationDictEntries); len(entries) > 0 {
		dict := make(map[string]any, len(entries))
		for _, e := range entries {
			if name, ok := wire.String(e, wire.FieldAnnotationName); ok {
				dict[name] = annotationValue(st, e)
			}
		}
		return dict
	}
	if items := wire.Bytes(ann, wire.FieldAnnotationArrayValues); len(items) > 0 {
		arr := make([]any, 0, len(items))
		for _, item := range items {
			arr = append(arr, annotationValue(st, item))
		}
		return arr
	}

	var out any
	_ = wire.Walk(ann, func(f wire.Field) error {
		switch f.Num {
		case wire.FieldAnnotationBool:
			out = f.Value != 0
		case wire.FieldAnnotationUint:
			out = f.Value
		case wire.FieldAnnotationInt:
			out = int64(f.Value)
		case wire.FieldAnnotationDouble:
			out = f.Float64()
		case wire.FieldAnnotationString:
			out = string(f.Bytes)
		case wire.FieldAnnotationPointer:
			out = fmt.Sprintf("0x%x", f.Value)
		}
		return nil
	})
	return out
}
