package intern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracekit/trackevent/wire"
)

func TestTableAssignsStableIDs(t *testing.T) {
	w := wire.NewBufferWriter()
	tbl := NewTable(wire.SectionEventNames)

	pkt := w.NewTracePacket()
	assert.Equal(t, uint64(1), tbl.Get(pkt, "alpha"))
	assert.Equal(t, uint64(2), tbl.Get(pkt, "beta"))
	assert.Equal(t, uint64(1), tbl.Get(pkt, "alpha"))
	assert.Equal(t, 2, tbl.Len())
	pkt.Finish()

	// Only the first sighting of each string produced an entry.
	interned := wire.InternedStrings(w.Packets()[0], wire.SectionEventNames)
	assert.Equal(t, map[uint64]string{1: "alpha", 2: "beta"}, interned)

	// A later packet referencing known content carries no entries at all.
	pkt = w.NewTracePacket()
	assert.Equal(t, uint64(2), tbl.Get(pkt, "beta"))
	pkt.Finish()
	assert.Empty(t, wire.InternedStrings(w.Packets()[1], wire.SectionEventNames))
}

func TestTableIDSpacesAreIndependent(t *testing.T) {
	w := wire.NewBufferWriter()
	names := NewTable(wire.SectionEventNames)
	cats := NewTable(wire.SectionEventCategories)

	pkt := w.NewTracePacket()
	assert.Equal(t, uint64(1), names.Get(pkt, "draw"))
	assert.Equal(t, uint64(1), cats.Get(pkt, "draw"))
	pkt.Finish()

	p := w.Packets()[0]
	assert.Equal(t, map[uint64]string{1: "draw"}, wire.InternedStrings(p, wire.SectionEventNames))
	assert.Equal(t, map[uint64]string{1: "draw"}, wire.InternedStrings(p, wire.SectionEventCategories))
}

func TestTableReset(t *testing.T) {
	w := wire.NewBufferWriter()
	tbl := NewTable(wire.SectionAnnotationNames)

	pkt := w.NewTracePacket()
	require.Equal(t, uint64(1), tbl.Get(pkt, "x"))
	require.Equal(t, uint64(2), tbl.Get(pkt, "y"))
	pkt.Finish()

	tbl.Reset()
	assert.Equal(t, 0, tbl.Len())

	// Ids restart from 1 and entries are re-emitted.
	pkt = w.NewTracePacket()
	assert.Equal(t, uint64(1), tbl.Get(pkt, "y"))
	pkt.Finish()
	assert.Equal(t, map[uint64]string{1: "y"},
		wire.InternedStrings(w.Packets()[1], wire.SectionAnnotationNames))
}
