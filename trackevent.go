// Package trackevent records structured, timestamped, categorized events
// into a binary trace stream.
//
// Call sites ask whether a category is enabled, and if so obtain an event
// context whose packet carries a delta-compressed timestamp and interned
// category and name ids. Structured payloads attach through the traced
// value writer. Session configuration and lifecycle live in the session
// package; per-sequence encoding state lives in the sequence package.
package trackevent

import (
	"github.com/tracekit/trackevent/category"
	"github.com/tracekit/trackevent/internal/monitoring"
	"github.com/tracekit/trackevent/sequence"
	"github.com/tracekit/trackevent/session"
	"github.com/tracekit/trackevent/traced"
	"github.com/tracekit/trackevent/wire"
)

// Emitter writes events for one output sequence. It is not safe for
// concurrent use; create one per sequence (conventionally one per thread).
type Emitter struct {
	writer   wire.Writer
	inc      *sequence.IncrementalState
	st       *sequence.State
	registry *category.Registry

	// Per-instance session configs, captured at setup time so dynamic
	// categories can be evaluated at emission time.
	sessionConfigs [category.MaxInstances]*category.TraceConfig

	coord    *session.Coordinator
	instance uint32
	metrics  *monitoring.Metrics
}

// NewEmitter builds an emitter over the given writer, sequence state, and
// category registry.
func NewEmitter(w wire.Writer, st *sequence.State, reg *category.Registry) *Emitter {
	return &Emitter{
		writer:   w,
		inc:      sequence.NewIncrementalState(),
		st:       st,
		registry: reg,
	}
}

// SetCoordinator attaches the session coordinator so incremental state
// invalidation fans out to observers first.
func (e *Emitter) SetCoordinator(c *session.Coordinator, instance uint32) {
	e.coord = c
	e.instance = instance
}

// SetMetrics attaches self-instrumentation collectors.
func (e *Emitter) SetMetrics(m *monitoring.Metrics) {
	e.metrics = m
}

// SetSessionConfig captures the filter config a session instance was enabled
// with, for dynamic category checks.
func (e *Emitter) SetSessionConfig(instance uint32, cfg *category.TraceConfig) {
	if instance < category.MaxInstances {
		e.sessionConfigs[instance] = cfg
	}
}

// CategoryEnabled reports whether the static category at index i records for
// the given session instance. Lock-free.
func (e *Emitter) CategoryEnabled(i int, instance uint32) bool {
	return e.registry.Enabled(i, instance)
}

// DynamicCategoryEnabled evaluates a runtime-named category against the
// config of one session instance.
func (e *Emitter) DynamicCategoryEnabled(name string, instance uint32) bool {
	if instance >= category.MaxInstances {
		return false
	}
	cfg := e.sessionConfigs[instance]
	if cfg == nil {
		return false
	}
	dynamic := category.Category{Name: name}
	return category.IsEnabled(e.registry, cfg, &dynamic)
}

// InvalidateIncrementalState reacts to a backend data loss signal: observers
// are notified, then the state is marked for re-emission before the next
// event.
func (e *Emitter) InvalidateIncrementalState() {
	if e.coord != nil {
		e.coord.WillClearIncrementalState(session.ClearArgs{Instance: e.instance})
	}
	e.inc.Invalidate()
}

// IncrementalState exposes the sequence's incremental state, mainly for
// tests and observers.
func (e *Emitter) IncrementalState() *sequence.IncrementalState {
	return e.inc
}

// BeginSlice opens a duration slice on the thread's default track. Returns
// nil when the category is enabled for no session; all EventContext methods
// are nil-safe.
func (e *Emitter) BeginSlice(cat int, name string) *EventContext {
	if !e.registry.EnabledAny(cat) {
		return nil
	}
	return e.writeEvent(cat, "", name, wire.EventTypeSliceBegin)
}

// EndSlice closes the most recent open slice on the default track. Event
// names are recorded on begin, not end.
func (e *Emitter) EndSlice(cat int) {
	if !e.registry.EnabledAny(cat) {
		return
	}
	e.writeEvent(cat, "", "", wire.EventTypeSliceEnd).Finish()
}

// Instant records a point-in-time event on the default track.
func (e *Emitter) Instant(cat int, name string) *EventContext {
	if !e.registry.EnabledAny(cat) {
		return nil
	}
	return e.writeEvent(cat, "", name, wire.EventTypeInstant)
}

// InstantDynamic records a point-in-time event under a runtime-named
// category for one session instance.
func (e *Emitter) InstantDynamic(categoryName, name string, instance uint32) *EventContext {
	if !e.DynamicCategoryEnabled(categoryName, instance) {
		return nil
	}
	return e.writeEvent(-1, categoryName, name, wire.EventTypeInstant)
}

// Counter records a counter sample on the given counter track.
func (e *Emitter) Counter(cat int, track sequence.CounterTrack, value int64) {
	if !e.registry.EnabledAny(cat) {
		return
	}
	ts := sequence.GetTraceTime()
	sequence.ResetIfRequired(e.writer, e.inc, e.st, ts)
	sequence.WriteTrackDescriptorIfNeeded(e.writer, e.inc, e.st, track, ts)

	pkt := sequence.NewTracePacket(e.writer, e.inc, e.st, ts, wire.SeqNeedsIncrementalState)
	ev := pkt.BeginTrackEvent()
	ev.AppendVarint(wire.FieldEventType, wire.EventTypeCounter)
	ev.AppendVarint(wire.FieldEventTrackUUID, track.Uuid)
	ev.AppendInt64(wire.FieldEventCounterValue, value)
	ev.EndNested()
	pkt.Finish()
	if e.metrics != nil {
		e.metrics.PacketsWritten.Inc()
	}
}

// writeEvent is the shared tail of every event emission: ensure incremental
// state is valid, start a packet, and fill the common track event fields.
// cat < 0 means a dynamic category given by dynamicName.
func (e *Emitter) writeEvent(cat int, dynamicName, name string, typ uint64) *EventContext {
	ts := sequence.GetTraceTime()
	sequence.ResetIfRequired(e.writer, e.inc, e.st, ts)

	pkt := sequence.NewTracePacket(e.writer, e.inc, e.st, ts, wire.SeqNeedsIncrementalState)
	ev := pkt.BeginTrackEvent()
	ev.AppendVarint(wire.FieldEventType, typ)
	if typ != wire.EventTypeSliceEnd {
		if cat >= 0 {
			iid := e.inc.EventCategories.Get(pkt, e.registry.Category(cat).Name)
			ev.AppendVarint(wire.FieldEventCategoryIIDs, iid)
		} else if dynamicName != "" {
			ev.AppendString(wire.FieldEventCategories, dynamicName)
		}
		if name != "" {
			iid := e.inc.EventNames.Get(pkt, name)
			ev.AppendVarint(wire.FieldEventNameIID, iid)
		}
	}
	if delta, ok := sequence.SampleThreadTime(e.inc, e.st, ts); ok {
		ev.AppendInt64(wire.FieldEventExtraCounterValues, delta)
	}
	return &EventContext{pkt: pkt, event: ev, inc: e.inc, metrics: e.metrics}
}

// EventContext is one in-flight event. Annotations attach before Finish
// seals the packet. All methods are safe on a nil receiver, so disabled
// categories cost one atomic load and nothing else.
type EventContext struct {
	pkt     *wire.Packet
	event   *wire.Message
	inc     *sequence.IncrementalState
	metrics *monitoring.Metrics
}

// AddDebugAnnotation attaches one named structured value, serialized through
// the generic traced resolver. The annotation name is interned.
func (ec *EventContext) AddDebugAnnotation(name string, value any) {
	if ec == nil {
		return
	}
	ann := ec.event.BeginNested(wire.FieldEventDebugAnnotations)
	iid := ec.inc.AnnotationNames.Get(ec.pkt, name)
	ann.AppendVarint(wire.FieldAnnotationNameIID, iid)
	traced.Write(traced.WrapInContext(ann, ec.pkt, &ec.inc.AnnotationTypeNames), value)
}

// AnnotationValue opens one named annotation slot and returns its value
// writer, for call sites that build the tree by hand.
func (ec *EventContext) AnnotationValue(name string) *traced.Value {
	if ec == nil {
		return nil
	}
	ann := ec.event.BeginNested(wire.FieldEventDebugAnnotations)
	iid := ec.inc.AnnotationNames.Get(ec.pkt, name)
	ann.AppendVarint(wire.FieldAnnotationNameIID, iid)
	return traced.WrapInContext(ann, ec.pkt, &ec.inc.AnnotationTypeNames)
}

// Finish seals the event and its packet.
func (ec *EventContext) Finish() {
	if ec == nil {
		return
	}
	ec.event.EndNested()
	ec.pkt.Finish()
	if ec.metrics != nil {
		ec.metrics.PacketsWritten.Inc()
	}
}
