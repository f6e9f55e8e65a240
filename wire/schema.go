package wire

import "google.golang.org/protobuf/encoding/protowire"

// Field numbers for the packet schema. The numbering is compatible with the
// perfetto TracePacket family so recorded traces open in standard tooling,
// but nothing in the core depends on that: the recording layer only talks in
// terms of these named constants.

// TracePacket fields.
const (
	FieldPacketClockSnapshot    protowire.Number = 6
	FieldPacketTimestamp        protowire.Number = 8
	FieldPacketSequenceID       protowire.Number = 10
	FieldPacketTrackEvent       protowire.Number = 11
	FieldPacketInternedData     protowire.Number = 12
	FieldPacketSequenceFlags    protowire.Number = 13
	FieldPacketTimestampClockID protowire.Number = 58
	FieldPacketDefaults         protowire.Number = 59
	FieldPacketTrackDescriptor  protowire.Number = 60
	FieldPacketFirstOnSequence  protowire.Number = 87
)

// Sequence flags stamped on TracePacket.sequence_flags.
const (
	SeqIncrementalStateCleared uint32 = 1 << 0
	SeqNeedsIncrementalState   uint32 = 1 << 1
)

// TrackEvent fields.
const (
	FieldEventCategoryIIDs          protowire.Number = 3
	FieldEventDebugAnnotations      protowire.Number = 4
	FieldEventType                  protowire.Number = 9
	FieldEventNameIID               protowire.Number = 10
	FieldEventTrackUUID             protowire.Number = 11
	FieldEventExtraCounterValues    protowire.Number = 12
	FieldEventCategories            protowire.Number = 22
	FieldEventName                  protowire.Number = 23
	FieldEventCounterValue          protowire.Number = 30
	FieldEventExtraCounterTrackUUID protowire.Number = 31
)

// TrackEvent.type values.
const (
	EventTypeSliceBegin uint64 = 1
	EventTypeSliceEnd   uint64 = 2
	EventTypeInstant    uint64 = 3
	EventTypeCounter    uint64 = 4
)

// DebugAnnotation fields.
const (
	FieldAnnotationNameIID      protowire.Number = 1
	FieldAnnotationBool         protowire.Number = 2
	FieldAnnotationUint         protowire.Number = 3
	FieldAnnotationInt          protowire.Number = 4
	FieldAnnotationDouble       protowire.Number = 5
	FieldAnnotationString       protowire.Number = 6
	FieldAnnotationPointer      protowire.Number = 7
	FieldAnnotationName         protowire.Number = 10
	FieldAnnotationDictEntries  protowire.Number = 11
	FieldAnnotationArrayValues  protowire.Number = 12
	FieldAnnotationProtoType    protowire.Number = 16
	FieldAnnotationProtoTypeIID protowire.Number = 17
	FieldAnnotationProtoValue   protowire.Number = 18
)

// InternedData sections. Each section carries (iid, name) entry submessages
// and forms an independent id space.
const (
	SectionEventCategories     protowire.Number = 1
	SectionEventNames          protowire.Number = 2
	SectionAnnotationNames     protowire.Number = 3
	SectionAnnotationTypeNames protowire.Number = 27
)

// Interned entry fields, shared by every section.
const (
	FieldInternedIID  protowire.Number = 1
	FieldInternedName protowire.Number = 2
)

// ClockSnapshot fields.
const (
	FieldSnapshotClocks       protowire.Number = 1
	FieldSnapshotPrimaryClock protowire.Number = 2

	FieldClockID             protowire.Number = 1
	FieldClockTimestamp      protowire.Number = 2
	FieldClockIsIncremental  protowire.Number = 3
	FieldClockUnitMultiplier protowire.Number = 6
)

// TracePacketDefaults fields.
const (
	FieldDefaultsTrackEvent       protowire.Number = 11
	FieldDefaultsTimestampClockID protowire.Number = 58

	FieldTrackEventDefaultsTrackUUID     protowire.Number = 11
	FieldTrackEventDefaultsExtraCounters protowire.Number = 31
)

// TrackDescriptor fields.
const (
	FieldTrackUUID       protowire.Number = 1
	FieldTrackName       protowire.Number = 2
	FieldTrackProcess    protowire.Number = 3
	FieldTrackThread     protowire.Number = 4
	FieldTrackParentUUID protowire.Number = 5
	FieldTrackCounter    protowire.Number = 8

	FieldProcessPid  protowire.Number = 1
	FieldProcessName protowire.Number = 6

	FieldThreadPid  protowire.Number = 1
	FieldThreadTid  protowire.Number = 2
	FieldThreadName protowire.Number = 5

	FieldCounterType protowire.Number = 1
	FieldCounterUnit protowire.Number = 3
)

// CounterDescriptor.type values.
const (
	CounterTypeThreadTimeNs uint64 = 1
)

// Trace (top-level container) fields: a trace is just repeated packets.
const FieldTracePacket protowire.Number = 1

// Data source descriptor fields, used once at registration time to enumerate
// the process's categories for the backend.
const (
	FieldDescriptorName       protowire.Number = 1
	FieldDescriptorTrackEvent protowire.Number = 2

	FieldDescriptorCategories protowire.Number = 1

	FieldCategoryName        protowire.Number = 1
	FieldCategoryDescription protowire.Number = 2
	FieldCategoryTags        protowire.Number = 3
)
