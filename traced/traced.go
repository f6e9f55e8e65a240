// Package traced implements the structured value writer: a write-once tree
// API for emitting JSON-like debug annotation values (scalars, pointers,
// nested arrays and dictionaries, opaque sub-messages) into an open packet.
//
// Each Value exclusively owns one annotation node and is consumed by exactly
// one terminal call. Writing a node twice, or writing a parent while a child
// writer is still open, is a contract violation caught under strict mode;
// the API carries no error returns and performs no defensive checks beyond
// that.
package traced

import (
	"github.com/tracekit/trackevent/intern"
	"github.com/tracekit/trackevent/internal/assert"
	"github.com/tracekit/trackevent/wire"
)

// Value owns one open debug annotation node. A Value is single-use: one of
// the Write* methods consumes it, closing the node. WriteArray and
// WriteDictionary instead convert it into the respective container writer,
// which then owns the node until closed.
type Value struct {
	msg       *wire.Message
	pkt       *wire.Packet
	typeNames *intern.Table
	scope     *checkedScope
	done      bool
}

// Wrap adopts an open annotation submessage as a root value node.
func Wrap(msg *wire.Message) *Value {
	return WrapInContext(msg, nil, nil)
}

// WrapInContext adopts an open annotation submessage within an event
// context: pkt and typeNames, when non-nil, let WriteProto record type names
// by interned id instead of inline string.
func WrapInContext(msg *wire.Message, pkt *wire.Packet, typeNames *intern.Table) *Value {
	return &Value{msg: msg, pkt: pkt, typeNames: typeNames, scope: enterScope(nil)}
}

func (v *Value) child(msg *wire.Message, scope *checkedScope) *Value {
	return &Value{msg: msg, pkt: v.pkt, typeNames: v.typeNames, scope: scope}
}

// consume marks the node written. Called by every terminal and converting
// method.
func (v *Value) consume() {
	v.scope.check()
	assert.That(!v.done, "value node consumed twice")
	v.done = true
}

// close seals the annotation node and returns write ownership to the parent.
func (v *Value) close() {
	v.msg.EndNested()
	v.scope.reset()
}

// WriteInt64 writes a signed integer leaf.
func (v *Value) WriteInt64(x int64) {
	v.consume()
	v.msg.AppendInt64(wire.FieldAnnotationInt, x)
	v.close()
}

// WriteUint64 writes an unsigned integer leaf.
func (v *Value) WriteUint64(x uint64) {
	v.consume()
	v.msg.AppendVarint(wire.FieldAnnotationUint, x)
	v.close()
}

// WriteFloat64 writes a floating point leaf.
func (v *Value) WriteFloat64(x float64) {
	v.consume()
	v.msg.AppendDouble(wire.FieldAnnotationDouble, x)
	v.close()
}

// WriteBool writes a boolean leaf.
func (v *Value) WriteBool(x bool) {
	v.consume()
	v.msg.AppendBool(wire.FieldAnnotationBool, x)
	v.close()
}

// WriteString writes a string leaf.
func (v *Value) WriteString(s string) {
	v.consume()
	v.msg.AppendString(wire.FieldAnnotationString, s)
	v.close()
}

// WriteBytes writes raw bytes as a string leaf. The length is explicit, so
// embedded NUL bytes are preserved.
func (v *Value) WriteBytes(b []byte) {
	v.consume()
	v.msg.AppendBytes(wire.FieldAnnotationString, b)
	v.close()
}

// WritePointer writes an address leaf.
func (v *Value) WritePointer(addr uintptr) {
	v.consume()
	v.msg.AppendVarint(wire.FieldAnnotationPointer, uint64(addr))
	v.close()
}

// WriteProto writes an opaque sub-message of a caller-specified schema type.
// The type is recorded by name, or by interned name id when the value was
// created in an event context, so downstream tooling can decode the payload
// without a priori schema knowledge. fill receives the open sub-message.
func (v *Value) WriteProto(typeName string, fill func(*wire.Message)) {
	v.consume()
	if v.typeNames != nil && v.pkt != nil {
		iid := v.typeNames.Get(v.pkt, typeName)
		v.msg.AppendVarint(wire.FieldAnnotationProtoTypeIID, iid)
	} else {
		v.msg.AppendString(wire.FieldAnnotationProtoType, typeName)
	}
	sub := v.msg.BeginNested(wire.FieldAnnotationProtoValue)
	fill(sub)
	sub.EndNested()
	v.close()
}

// WriteArray converts this node into an array writer, which now owns it.
func (v *Value) WriteArray() *Array {
	v.consume()
	return &Array{owner: v, scope: enterScope(v.scope)}
}

// WriteDictionary converts this node into a dictionary writer, which now
// owns it.
func (v *Value) WriteDictionary() *Dictionary {
	v.consume()
	return &Dictionary{owner: v, scope: enterScope(v.scope)}
}

// Array writes an ordered sequence of heterogeneous values into the node it
// took over. Append order is serialization order. Close releases the node.
type Array struct {
	owner  *Value
	scope  *checkedScope
	closed bool
}

// AppendItem opens one fresh value node for the next element.
func (a *Array) AppendItem() *Value {
	a.scope.check()
	assert.That(!a.closed, "append to a closed array")
	child := a.owner.msg.BeginNested(wire.FieldAnnotationArrayValues)
	return a.owner.child(child, enterScope(a.scope))
}

// Append serializes one element through the generic resolver.
func (a *Array) Append(x any) *Array {
	Write(a.AppendItem(), x)
	return a
}

// AppendArray appends a nested array element.
func (a *Array) AppendArray() *Array {
	return a.AppendItem().WriteArray()
}

// AppendDictionary appends a nested dictionary element.
func (a *Array) AppendDictionary() *Dictionary {
	return a.AppendItem().WriteDictionary()
}

// Close seals the array node. Required exactly once.
func (a *Array) Close() {
	a.scope.check()
	assert.That(!a.closed, "array closed twice")
	a.closed = true
	a.scope.reset()
	a.owner.close()
}

// Dictionary writes string-keyed values into the node it took over.
// Duplicate keys are allowed and all entries are serialized; this mirrors
// flexible debug annotation semantics rather than strict map semantics.
type Dictionary struct {
	owner  *Value
	scope  *checkedScope
	closed bool
}

// AddItem opens one fresh value node under key.
func (d *Dictionary) AddItem(key string) *Value {
	d.scope.check()
	assert.That(!d.closed, "add to a closed dictionary")
	child := d.owner.msg.BeginNested(wire.FieldAnnotationDictEntries)
	child.AppendString(wire.FieldAnnotationName, key)
	return d.owner.child(child, enterScope(d.scope))
}

// Add serializes one entry through the generic resolver.
func (d *Dictionary) Add(key string, x any) *Dictionary {
	Write(d.AddItem(key), x)
	return d
}

// AddArray adds a nested array entry.
func (d *Dictionary) AddArray(key string) *Array {
	return d.AddItem(key).WriteArray()
}

// AddDictionary adds a nested dictionary entry.
func (d *Dictionary) AddDictionary(key string) *Dictionary {
	return d.AddItem(key).WriteDictionary()
}

// Close seals the dictionary node. Required exactly once.
func (d *Dictionary) Close() {
	d.scope.check()
	assert.That(!d.closed, "dictionary closed twice")
	d.closed = true
	d.scope.reset()
	d.owner.close()
}
