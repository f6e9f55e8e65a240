package wire

import (
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/tracekit/trackevent/internal/assert"
)

// Packet represents one in-flight trace packet. It wraps a root Message with
// typed setters for the packet-level fields the recording core uses, plus a
// side buffer for interned data: interning tables append entries while a
// track event submessage is still open, so those entries are buffered
// independently and spliced in when the packet is finished.
//
// A Packet is finalized exactly once with Finish, which hands the encoded
// bytes back to the Writer that created it.
type Packet struct {
	msg      Message
	interned Message
	onFinish func([]byte)
	finished bool
}

// newPacket is used by Writer implementations.
func newPacket(onFinish func([]byte)) *Packet {
	return &Packet{onFinish: onFinish}
}

// SetTimestamp sets the packet timestamp, in sequence timestamp units.
func (p *Packet) SetTimestamp(units uint64) {
	p.msg.AppendVarint(FieldPacketTimestamp, units)
}

// SetTimestampClockID tags the timestamp with an explicit clock id.
func (p *Packet) SetTimestampClockID(id uint32) {
	p.msg.AppendVarint(FieldPacketTimestampClockID, uint64(id))
}

// SetSequenceID stamps the owning sequence id.
func (p *Packet) SetSequenceID(id uint32) {
	p.msg.AppendVarint(FieldPacketSequenceID, uint64(id))
}

// SetSequenceFlags stamps session/sequence state flags.
func (p *Packet) SetSequenceFlags(flags uint32) {
	if flags != 0 {
		p.msg.AppendVarint(FieldPacketSequenceFlags, uint64(flags))
	}
}

// SetFirstPacketOnSequence marks this packet as the first one ever written
// on its sequence.
func (p *Packet) SetFirstPacketOnSequence() {
	p.msg.AppendBool(FieldPacketFirstOnSequence, true)
}

// BeginTrackEvent opens the packet's track event submessage.
func (p *Packet) BeginTrackEvent() *Message {
	return p.msg.BeginNested(FieldPacketTrackEvent)
}

// BeginClockSnapshot opens the packet's clock snapshot submessage.
func (p *Packet) BeginClockSnapshot() *Message {
	return p.msg.BeginNested(FieldPacketClockSnapshot)
}

// BeginDefaults opens the packet's sequence defaults submessage.
func (p *Packet) BeginDefaults() *Message {
	return p.msg.BeginNested(FieldPacketDefaults)
}

// BeginTrackDescriptor opens the packet's track descriptor submessage.
func (p *Packet) BeginTrackDescriptor() *Message {
	return p.msg.BeginNested(FieldPacketTrackDescriptor)
}

// InternEntry buffers one (iid, content) pair for the given interned data
// section. Entries are flushed into the packet when it is finished, so this
// is safe to call while a track event submessage is open.
func (p *Packet) InternEntry(section protowire.Number, iid uint64, content string) {
	assert.That(!p.finished, "InternEntry on a finished packet")
	entry := p.interned.BeginNested(section)
	entry.AppendVarint(FieldInternedIID, iid)
	entry.AppendString(FieldInternedName, content)
	entry.EndNested()
}

// Finish finalizes the packet: flushes buffered interned data, seals the
// message, and delivers the bytes to the owning writer. Finishing twice is a
// contract violation.
func (p *Packet) Finish() {
	assert.That(!p.finished, "Finish called twice on a packet")
	assert.That(p.msg.child == nil, "Finish with an open nested message")
	p.finished = true
	if p.interned.Len() > 0 {
		p.msg.AppendBytes(FieldPacketInternedData, p.interned.Bytes())
	}
	if p.onFinish != nil {
		p.onFinish(p.msg.Bytes())
	}
}
