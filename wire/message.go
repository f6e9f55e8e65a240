package wire

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/tracekit/trackevent/internal/assert"
)

// Message is an append-only protobuf message builder. It supports the small
// set of primitives the recording core needs: scalar fields and nested
// submessages. Field layout and buffer growth are owned entirely by this
// type; callers only name field numbers.
//
// At most one nested child may be open at a time, and the parent must not be
// appended to while a child is open. Nested children buffer their bytes
// independently and are spliced into the parent as a length-delimited field
// when closed.
type Message struct {
	buf    []byte
	parent *Message
	field  protowire.Number
	child  *Message
	closed bool
}

// NewMessage returns an empty root message.
func NewMessage() *Message {
	return &Message{}
}

func (m *Message) checkWritable() {
	assert.That(!m.closed, "write to a finished message")
	assert.That(m.child == nil, "write to a message while a nested child is open")
}

// AppendVarint appends a varint-encoded field (int32/int64/uint32/uint64/
// enum wire representation).
func (m *Message) AppendVarint(num protowire.Number, v uint64) {
	m.checkWritable()
	m.buf = protowire.AppendTag(m.buf, num, protowire.VarintType)
	m.buf = protowire.AppendVarint(m.buf, v)
}

// AppendInt64 appends a varint field holding a two's-complement int64.
func (m *Message) AppendInt64(num protowire.Number, v int64) {
	m.AppendVarint(num, uint64(v))
}

// AppendBool appends a varint-encoded bool field.
func (m *Message) AppendBool(num protowire.Number, v bool) {
	var u uint64
	if v {
		u = 1
	}
	m.AppendVarint(num, u)
}

// AppendFixed64 appends a fixed64 field.
func (m *Message) AppendFixed64(num protowire.Number, v uint64) {
	m.checkWritable()
	m.buf = protowire.AppendTag(m.buf, num, protowire.Fixed64Type)
	m.buf = protowire.AppendFixed64(m.buf, v)
}

// AppendDouble appends a double field.
func (m *Message) AppendDouble(num protowire.Number, v float64) {
	m.AppendFixed64(num, math.Float64bits(v))
}

// AppendBytes appends a length-delimited field with raw bytes. The length is
// always explicit, so embedded NUL bytes round-trip.
func (m *Message) AppendBytes(num protowire.Number, v []byte) {
	m.checkWritable()
	m.buf = protowire.AppendTag(m.buf, num, protowire.BytesType)
	m.buf = protowire.AppendBytes(m.buf, v)
}

// AppendString appends a length-delimited field with string content.
func (m *Message) AppendString(num protowire.Number, v string) {
	m.checkWritable()
	m.buf = protowire.AppendTag(m.buf, num, protowire.BytesType)
	m.buf = protowire.AppendString(m.buf, v)
}

// BeginNested opens a nested submessage under field num. The returned child
// owns the write position until EndNested is called on it.
func (m *Message) BeginNested(num protowire.Number) *Message {
	m.checkWritable()
	m.child = &Message{parent: m, field: num}
	return m.child
}

// EndNested closes this nested submessage, splices it into the parent as a
// length-delimited field, and returns the parent. Calling EndNested twice is
// a contract violation.
func (m *Message) EndNested() *Message {
	assert.That(m.parent != nil, "EndNested on a root message")
	assert.That(!m.closed, "EndNested called twice")
	assert.That(m.child == nil, "EndNested with an open child")
	m.closed = true
	p := m.parent
	p.child = nil
	p.AppendBytes(m.field, m.buf)
	return p
}

// Bytes returns the encoded content of a root message. The message must not
// have an open nested child.
func (m *Message) Bytes() []byte {
	assert.That(m.child == nil, "Bytes with an open nested child")
	return m.buf
}

// Len returns the current encoded size.
func (m *Message) Len() int {
	return len(m.buf)
}
