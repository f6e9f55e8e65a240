// Package intern implements per-sequence string interning for the trace
// recording core.
//
// Repeated strings (category names, event names, debug annotation names) are
// replaced by small integer ids the first time they appear on a sequence.
// The (id, content) pair is flushed into the current packet's interned data
// side channel; later packets reference the id alone. Ids are only valid for
// the lifetime of the sequence's incremental state: when the backend signals
// that readers may have missed packets, the tables are discarded wholesale
// and every string is re-emitted on next use.
package intern

import (
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/tracekit/trackevent/wire"
)

// Table maps string content to a stable small id within one incremental
// state lifetime. Each table owns an independent id space; only strings
// within the same table deduplicate against each other.
//
// Tables are sequence-scoped and therefore need no locking.
type Table struct {
	section protowire.Number
	ids     map[string]uint64
	next    uint64
}

// NewTable returns an empty table flushing entries into the given interned
// data section.
func NewTable(section protowire.Number) Table {
	return Table{section: section}
}

// Get returns the id for content, assigning the next free id and enqueueing
// an (id, content) entry on pkt the first time the content is seen. Equal
// byte content always maps to the same id until Reset.
func (t *Table) Get(pkt *wire.Packet, content string) uint64 {
	if id, ok := t.ids[content]; ok {
		return id
	}
	if t.ids == nil {
		t.ids = make(map[string]uint64)
	}
	t.next++
	id := t.next
	t.ids[content] = id
	pkt.InternEntry(t.section, id, content)
	return id
}

// Len reports the number of distinct strings interned since the last reset.
func (t *Table) Len() int {
	return len(t.ids)
}

// Reset discards all assignments. Ids restart from 1; previously issued ids
// must not be referenced by packets written after the reset.
func (t *Table) Reset() {
	t.ids = nil
	t.next = 0
}
