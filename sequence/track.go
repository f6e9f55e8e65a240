package sequence

import "github.com/tracekit/trackevent/wire"

// Track is a named timeline that events attach to: one per thread, process,
// or counter stream. A track must be described on a sequence before any
// event references its uuid; the incremental state remembers which uuids
// have been described since the last reset.
type Track interface {
	UUID() uint64
	// describe fills an open TrackDescriptor submessage.
	describe(msg *wire.Message)
}

// ProcessTrack describes the process a sequence belongs to.
type ProcessTrack struct {
	Uuid uint64
	Pid  int32
	Name string
}

// NewProcessTrack returns a process track with a fresh uuid.
func NewProcessTrack(pid int32, name string) ProcessTrack {
	return ProcessTrack{Uuid: newTrackUUID(), Pid: pid, Name: name}
}

func (t ProcessTrack) UUID() uint64 { return t.Uuid }

func (t ProcessTrack) describe(msg *wire.Message) {
	msg.AppendVarint(wire.FieldTrackUUID, t.Uuid)
	p := msg.BeginNested(wire.FieldTrackProcess)
	p.AppendInt64(wire.FieldProcessPid, int64(t.Pid))
	if t.Name != "" {
		p.AppendString(wire.FieldProcessName, t.Name)
	}
	p.EndNested()
}

// ThreadTrack is the default track of one thread; events without an explicit
// track land here.
type ThreadTrack struct {
	Uuid   uint64
	Parent uint64
	Pid    int32
	Tid    int32
	Name   string
}

// NewThreadTrack returns a thread track parented to the process track.
func NewThreadTrack(parent uint64, pid, tid int32, name string) ThreadTrack {
	return ThreadTrack{Uuid: newTrackUUID(), Parent: parent, Pid: pid, Tid: tid, Name: name}
}

func (t ThreadTrack) UUID() uint64 { return t.Uuid }

func (t ThreadTrack) describe(msg *wire.Message) {
	msg.AppendVarint(wire.FieldTrackUUID, t.Uuid)
	if t.Parent != 0 {
		msg.AppendVarint(wire.FieldTrackParentUUID, t.Parent)
	}
	th := msg.BeginNested(wire.FieldTrackThread)
	th.AppendInt64(wire.FieldThreadPid, int64(t.Pid))
	th.AppendInt64(wire.FieldThreadTid, int64(t.Tid))
	if t.Name != "" {
		th.AppendString(wire.FieldThreadName, t.Name)
	}
	th.EndNested()
}

// CounterTrack carries sampled counter values, e.g. per-thread CPU time.
type CounterTrack struct {
	Uuid   uint64
	Parent uint64
	Name   string
	Type   uint64
}

// NewThreadTimeTrack returns the thread-time counter track for a thread
// track.
func NewThreadTimeTrack(parent uint64) CounterTrack {
	return CounterTrack{
		Uuid:   newTrackUUID(),
		Parent: parent,
		Name:   "thread_time",
		Type:   wire.CounterTypeThreadTimeNs,
	}
}

func (t CounterTrack) UUID() uint64 { return t.Uuid }

func (t CounterTrack) describe(msg *wire.Message) {
	msg.AppendVarint(wire.FieldTrackUUID, t.Uuid)
	if t.Parent != 0 {
		msg.AppendVarint(wire.FieldTrackParentUUID, t.Parent)
	}
	if t.Name != "" {
		msg.AppendString(wire.FieldTrackName, t.Name)
	}
	c := msg.BeginNested(wire.FieldTrackCounter)
	if t.Type != 0 {
		c.AppendVarint(wire.FieldCounterType, t.Type)
	}
	c.EndNested()
}
