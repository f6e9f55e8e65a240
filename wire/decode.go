package wire

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Decoding helpers. The recording side never reads packets back; these exist
// for the exporter and for tests that assert on emitted bytes.

// Field is one decoded top-level field of a message.
type Field struct {
	Num  protowire.Number
	Type protowire.Type
	// Varint/fixed64 payload for scalar fields, raw bytes for
	// length-delimited fields.
	Value uint64
	Bytes []byte
}

// Float64 interprets a fixed64 field as a double.
func (f Field) Float64() float64 {
	return math.Float64frombits(f.Value)
}

// Walk decodes the top-level fields of buf in order, invoking fn for each.
func Walk(buf []byte, fn func(f Field) error) error {
	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return fmt.Errorf("wire: bad tag: %w", protowire.ParseError(n))
		}
		buf = buf[n:]
		f := Field{Num: num, Type: typ}
		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(buf)
			if n < 0 {
				return fmt.Errorf("wire: bad varint in field %d", num)
			}
			f.Value, buf = v, buf[n:]
		case protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(buf)
			if n < 0 {
				return fmt.Errorf("wire: bad fixed64 in field %d", num)
			}
			f.Value, buf = v, buf[n:]
		case protowire.Fixed32Type:
			v, n := protowire.ConsumeFixed32(buf)
			if n < 0 {
				return fmt.Errorf("wire: bad fixed32 in field %d", num)
			}
			f.Value, buf = uint64(v), buf[n:]
		case protowire.BytesType:
			b, n := protowire.ConsumeBytes(buf)
			if n < 0 {
				return fmt.Errorf("wire: bad bytes in field %d", num)
			}
			f.Bytes, buf = b, buf[n:]
		default:
			return fmt.Errorf("wire: unsupported wire type %d in field %d", typ, num)
		}
		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

// Uint returns the last varint value of field num in buf.
func Uint(buf []byte, num protowire.Number) (uint64, bool) {
	var v uint64
	var found bool
	_ = Walk(buf, func(f Field) error {
		if f.Num == num && f.Type == protowire.VarintType {
			v, found = f.Value, true
		}
		return nil
	})
	return v, found
}

// Bytes returns every occurrence of length-delimited field num, in order.
func Bytes(buf []byte, num protowire.Number) [][]byte {
	var out [][]byte
	_ = Walk(buf, func(f Field) error {
		if f.Num == num && f.Type == protowire.BytesType {
			out = append(out, f.Bytes)
		}
		return nil
	})
	return out
}

// String returns the last string value of field num in buf.
func String(buf []byte, num protowire.Number) (string, bool) {
	bs := Bytes(buf, num)
	if len(bs) == 0 {
		return "", false
	}
	return string(bs[len(bs)-1]), true
}

// Uints returns every varint occurrence of field num, in order.
func Uints(buf []byte, num protowire.Number) []uint64 {
	var out []uint64
	_ = Walk(buf, func(f Field) error {
		if f.Num == num && f.Type == protowire.VarintType {
			out = append(out, f.Value)
		}
		return nil
	})
	return out
}

// SplitTrace splits a trace container back into its packets.
func SplitTrace(trace []byte) ([][]byte, error) {
	var packets [][]byte
	err := Walk(trace, func(f Field) error {
		if f.Num == FieldTracePacket && f.Type == protowire.BytesType {
			packets = append(packets, f.Bytes)
		}
		return nil
	})
	return packets, err
}

// InternedStrings extracts the (iid -> content) mapping of one interned data
// section from a packet's interned_data field.
func InternedStrings(packet []byte, section protowire.Number) map[uint64]string {
	out := make(map[uint64]string)
	for _, data := range Bytes(packet, FieldPacketInternedData) {
		for _, entry := range Bytes(data, section) {
			iid, ok := Uint(entry, FieldInternedIID)
			if !ok {
				continue
			}
			if name, ok := String(entry, FieldInternedName); ok {
				out[iid] = name
			}
		}
	}
	return out
}
