package wire

import (
	"io"
	"sync"

	"github.com/klauspost/compress/gzip"
	"google.golang.org/protobuf/encoding/protowire"
)

// Writer hands out packets for one output sequence. One writer serves one
// sequence; it is never shared between goroutines.
type Writer interface {
	// NewTracePacket returns a handle for the next packet in this sequence.
	// The handle must be finished exactly once.
	NewTracePacket() *Packet
}

// BufferWriter is an in-memory Writer that retains every finished packet.
// It backs tests and the Chrome exporter.
type BufferWriter struct {
	packets [][]byte
}

// NewBufferWriter returns an empty in-memory writer.
func NewBufferWriter() *BufferWriter {
	return &BufferWriter{}
}

// NewTracePacket implements Writer.
func (w *BufferWriter) NewTracePacket() *Packet {
	return newPacket(func(b []byte) {
		w.packets = append(w.packets, b)
	})
}

// Packets returns the finished packets in write order.
func (w *BufferWriter) Packets() [][]byte {
	return w.packets
}

// PacketCount returns the number of finished packets.
func (w *BufferWriter) PacketCount() int {
	return len(w.packets)
}

// Trace returns the full trace container: each packet wrapped as one
// length-delimited entry.
func (w *BufferWriter) Trace() []byte {
	var out []byte
	for _, p := range w.packets {
		out = protowire.AppendTag(out, FieldTracePacket, protowire.BytesType)
		out = protowire.AppendBytes(out, p)
	}
	return out
}

// WriteTo writes the trace container to out.
func (w *BufferWriter) WriteTo(out io.Writer) (int64, error) {
	n, err := out.Write(w.Trace())
	return int64(n), err
}

// StreamWriter is a Writer that streams finished packets to an io.Writer as
// trace container entries, optionally gzip-compressed. Unlike BufferWriter
// it retains nothing, so it suits long recordings.
//
// The underlying stream is shared between sequences in practice, so writes
// are serialized with a mutex. Packet construction itself stays lock-free.
type StreamWriter struct {
	mu  sync.Mutex
	out io.Writer
	gz  *gzip.Writer
	err error
}

// NewStreamWriter wraps out. If compress is true, packets are written
// through a gzip stream; Close must be called to flush it.
func NewStreamWriter(out io.Writer, compress bool) *StreamWriter {
	w := &StreamWriter{out: out}
	if compress {
		w.gz = gzip.NewWriter(out)
		w.out = w.gz
	}
	return w
}

// NewTracePacket implements Writer.
func (w *StreamWriter) NewTracePacket() *Packet {
	return newPacket(func(b []byte) {
		var entry []byte
		entry = protowire.AppendTag(entry, FieldTracePacket, protowire.BytesType)
		entry = protowire.AppendBytes(entry, b)
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.err == nil {
			_, w.err = w.out.Write(entry)
		}
	})
}

// Close flushes the compression stream, if any, and reports the first write
// error encountered.
func (w *StreamWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.gz != nil {
		if err := w.gz.Close(); err != nil && w.err == nil {
			w.err = err
		}
		w.gz = nil
	}
	return w.err
}
