package traced

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracekit/trackevent/wire"
)

// openAnnotation opens a fresh annotation node on a throwaway message and
// returns both, so tests can seal the root and decode what was written.
func openAnnotation() (*wire.Message, *Value) {
	root := wire.NewMessage()
	ann := root.BeginNested(wire.FieldEventDebugAnnotations)
	return root, Wrap(ann)
}

func annotationBytes(t *testing.T, root *wire.Message) []byte {
	t.Helper()
	anns := wire.Bytes(root.Bytes(), wire.FieldEventDebugAnnotations)
	require.Len(t, anns, 1)
	return anns[0]
}

func TestValueScalars(t *testing.T) {
	tests := []struct {
		name  string
		write func(*Value)
		check func(t *testing.T, ann []byte)
	}{
		{
			name:  "int",
			write: func(v *Value) { v.WriteInt64(-42) },
			check: func(t *testing.T, ann []byte) {
				got, ok := wire.Uint(ann, wire.FieldAnnotationInt)
				require.True(t, ok)
				assert.Equal(t, int64(-42), int64(got))
			},
		},
		{
			name:  "uint",
			write: func(v *Value) { v.WriteUint64(7) },
			check: func(t *testing.T, ann []byte) {
				got, ok := wire.Uint(ann, wire.FieldAnnotationUint)
				require.True(t, ok)
				assert.Equal(t, uint64(7), got)
			},
		},
		{
			name:  "bool",
			write: func(v *Value) { v.WriteBool(true) },
			check: func(t *testing.T, ann []byte) {
				got, ok := wire.Uint(ann, wire.FieldAnnotationBool)
				require.True(t, ok)
				assert.Equal(t, uint64(1), got)
			},
		},
		{
			name:  "string",
			write: func(v *Value) { v.WriteString("hi") },
			check: func(t *testing.T, ann []byte) {
				got, ok := wire.String(ann, wire.FieldAnnotationString)
				require.True(t, ok)
				assert.Equal(t, "hi", got)
			},
		},
		{
			name:  "bytes keep embedded NUL",
			write: func(v *Value) { v.WriteBytes([]byte{'a', 0, 'b'}) },
			check: func(t *testing.T, ann []byte) {
				got, ok := wire.String(ann, wire.FieldAnnotationString)
				require.True(t, ok)
				assert.Equal(t, "a\x00b", got)
			},
		},
		{
			name:  "pointer",
			write: func(v *Value) { v.WritePointer(0xdead) },
			check: func(t *testing.T, ann []byte) {
				got, ok := wire.Uint(ann, wire.FieldAnnotationPointer)
				require.True(t, ok)
				assert.Equal(t, uint64(0xdead), got)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, v := openAnnotation()
			tt.write(v)
			tt.check(t, annotationBytes(t, root))
		})
	}
}

func TestNestedContainers(t *testing.T) {
	root, v := openAnnotation()

	dict := v.WriteDictionary()
	dict.Add("n", 1)
	arr := dict.AddArray("xs")
	arr.Append("a").Append(2.5)
	inner := arr.AppendDictionary()
	inner.Add("ok", true)
	inner.Close()
	arr.Close()
	dict.Close()

	ann := annotationBytes(t, root)
	entries := wire.Bytes(ann, wire.FieldAnnotationDictEntries)
	require.Len(t, entries, 2)

	key, ok := wire.String(entries[0], wire.FieldAnnotationName)
	require.True(t, ok)
	assert.Equal(t, "n", key)

	key, ok = wire.String(entries[1], wire.FieldAnnotationName)
	require.True(t, ok)
	assert.Equal(t, "xs", key)
	items := wire.Bytes(entries[1], wire.FieldAnnotationArrayValues)
	require.Len(t, items, 3)

	s, ok := wire.String(items[0], wire.FieldAnnotationString)
	require.True(t, ok)
	assert.Equal(t, "a", s)

	nested := wire.Bytes(items[2], wire.FieldAnnotationDictEntries)
	require.Len(t, nested, 1)
	key, ok = wire.String(nested[0], wire.FieldAnnotationName)
	require.True(t, ok)
	assert.Equal(t, "ok", key)
}

func TestScopeDiscipline(t *testing.T) {
	t.Run("value consumed twice", func(t *testing.T) {
		_, v := openAnnotation()
		v.WriteInt64(1)
		assert.Panics(t, func() { v.WriteInt64(2) })
	})

	t.Run("parent write while child open", func(t *testing.T) {
		_, v := openAnnotation()
		dict := v.WriteDictionary()
		item := dict.AddItem("a")
		assert.Panics(t, func() { dict.AddItem("b") })
		item.WriteInt64(1)
		dict.AddItem("b").WriteInt64(2)
		dict.Close()
	})

	t.Run("close with child open", func(t *testing.T) {
		_, v := openAnnotation()
		arr := v.WriteArray()
		arr.AppendItem()
		assert.Panics(t, arr.Close)
	})

	t.Run("double close", func(t *testing.T) {
		_, v := openAnnotation()
		arr := v.WriteArray()
		arr.Close()
		assert.Panics(t, arr.Close)
	})
}

type point struct{ X, Y int }

func (p point) WriteIntoTraced(v *Value) {
	d := v.WriteDictionary()
	d.Add("x", p.X).Add("y", p.Y)
	d.Close()
}

type hexByte byte

func (h hexByte) WriteIntoTrace(v *Value) {
	v.WriteString("0x0" + string(rune('0'+h)))
}

type level int

func TestWriteDispatch(t *testing.T) {
	t.Run("traceable has highest priority", func(t *testing.T) {
		root, v := openAnnotation()
		Write(v, point{X: 1, Y: 2})
		entries := wire.Bytes(annotationBytes(t, root), wire.FieldAnnotationDictEntries)
		assert.Len(t, entries, 2)
	})

	t.Run("trace writer hook", func(t *testing.T) {
		root, v := openAnnotation()
		Write(v, hexByte(1))
		s, ok := wire.String(annotationBytes(t, root), wire.FieldAnnotationString)
		require.True(t, ok)
		assert.Equal(t, "0x01", s)
	})

	t.Run("named integer kind", func(t *testing.T) {
		root, v := openAnnotation()
		Write(v, level(3))
		got, ok := wire.Uint(annotationBytes(t, root), wire.FieldAnnotationInt)
		require.True(t, ok)
		assert.Equal(t, int64(3), int64(got))
	})

	t.Run("nil writes null pointer", func(t *testing.T) {
		root, v := openAnnotation()
		Write(v, nil)
		got, ok := wire.Uint(annotationBytes(t, root), wire.FieldAnnotationPointer)
		require.True(t, ok)
		assert.Equal(t, uint64(0), got)
	})

	t.Run("pointer recurses into pointee", func(t *testing.T) {
		root, v := openAnnotation()
		n := 9
		Write(v, &n)
		got, ok := wire.Uint(annotationBytes(t, root), wire.FieldAnnotationInt)
		require.True(t, ok)
		assert.Equal(t, int64(9), int64(got))
	})

	t.Run("nil typed pointer", func(t *testing.T) {
		root, v := openAnnotation()
		var p *int
		Write(v, p)
		got, ok := wire.Uint(annotationBytes(t, root), wire.FieldAnnotationPointer)
		require.True(t, ok)
		assert.Equal(t, uint64(0), got)
	})

	t.Run("slice becomes array", func(t *testing.T) {
		root, v := openAnnotation()
		Write(v, []int{1, 2, 3})
		items := wire.Bytes(annotationBytes(t, root), wire.FieldAnnotationArrayValues)
		assert.Len(t, items, 3)
	})

	t.Run("string keyed map becomes dictionary", func(t *testing.T) {
		root, v := openAnnotation()
		Write(v, map[string]int{"a": 1})
		entries := wire.Bytes(annotationBytes(t, root), wire.FieldAnnotationDictEntries)
		require.Len(t, entries, 1)
		key, ok := wire.String(entries[0], wire.FieldAnnotationName)
		require.True(t, ok)
		assert.Equal(t, "a", key)
	})

	t.Run("closure invoked directly", func(t *testing.T) {
		root, v := openAnnotation()
		Write(v, func(val *Value) { val.WriteString("from closure") })
		s, ok := wire.String(annotationBytes(t, root), wire.FieldAnnotationString)
		require.True(t, ok)
		assert.Equal(t, "from closure", s)
	})

	t.Run("unsupported type panics in strict mode", func(t *testing.T) {
		_, v := openAnnotation()
		assert.Panics(t, func() { Write(v, struct{ A int }{A: 1}) })
	})
}

func TestWriteProto(t *testing.T) {
	root, v := openAnnotation()
	v.WriteProto("mypkg.Point", func(m *wire.Message) {
		m.AppendVarint(1, 4)
		m.AppendVarint(2, 5)
	})

	ann := annotationBytes(t, root)
	name, ok := wire.String(ann, wire.FieldAnnotationProtoType)
	require.True(t, ok)
	assert.Equal(t, "mypkg.Point", name)

	payloads := wire.Bytes(ann, wire.FieldAnnotationProtoValue)
	require.Len(t, payloads, 1)
	x, ok := wire.Uint(payloads[0], 1)
	require.True(t, ok)
	assert.Equal(t, uint64(4), x)
}
