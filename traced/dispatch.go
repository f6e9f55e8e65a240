package traced

import (
	"fmt"
	"reflect"
	"unsafe"

	"github.com/tracekit/trackevent/internal/assert"
)

// Traceable lets a type serialize itself into a value node. This is the
// highest-priority hook of the generic resolver.
type Traceable interface {
	WriteIntoTraced(*Value)
}

// TraceWriter is the secondary self-serialization hook, checked only when a
// type does not implement Traceable.
type TraceWriter interface {
	WriteIntoTrace(*Value)
}

// Write serializes an arbitrary value into the node, resolving the strategy
// in strict priority order:
//
//  1. the value implements Traceable
//  2. the value implements TraceWriter
//  3. built-in routing: signed integers to WriteInt64, unsigned to
//     WriteUint64, floats to WriteFloat64, bools, strings and byte slices to
//     WriteString/WriteBytes, nil and raw addresses to WritePointer, typed
//     pointers recurse into the pointee (nil pointees become address zero),
//     named integer types (enums) route through their underlying kind
//  4. the value is a func(*Value) closure, invoked directly
//  5. the value is iterable: slices and arrays serialize as arrays of the
//     recursively resolved elements, string-keyed maps as dictionaries
//
// Anything else is a contract violation: a descriptive panic under strict
// mode, a placeholder string otherwise.
func Write(val *Value, x any) {
	switch t := x.(type) {
	case Traceable:
		t.WriteIntoTraced(val)
		return
	case TraceWriter:
		t.WriteIntoTrace(val)
		return
	case nil:
		val.WritePointer(0)
		return
	case bool:
		val.WriteBool(t)
		return
	case int:
		val.WriteInt64(int64(t))
		return
	case int8:
		val.WriteInt64(int64(t))
		return
	case int16:
		val.WriteInt64(int64(t))
		return
	case int32:
		val.WriteInt64(int64(t))
		return
	case int64:
		val.WriteInt64(t)
		return
	case uint:
		val.WriteUint64(uint64(t))
		return
	case uint8:
		val.WriteUint64(uint64(t))
		return
	case uint16:
		val.WriteUint64(uint64(t))
		return
	case uint32:
		val.WriteUint64(uint64(t))
		return
	case uint64:
		val.WriteUint64(t)
		return
	case float32:
		val.WriteFloat64(float64(t))
		return
	case float64:
		val.WriteFloat64(t)
		return
	case string:
		val.WriteString(t)
		return
	case []byte:
		val.WriteBytes(t)
		return
	case uintptr:
		val.WritePointer(t)
		return
	case unsafe.Pointer:
		val.WritePointer(uintptr(t))
		return
	case func(*Value):
		t(val)
		return
	}
	writeReflected(val, reflect.ValueOf(x))
}

// writeReflected handles named types, pointers, and containers that the
// concrete type switch missed.
func writeReflected(val *Value, rv reflect.Value) {
	switch rv.Kind() {
	case reflect.Bool:
		val.WriteBool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		val.WriteInt64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		val.WriteUint64(rv.Uint())
	case reflect.Uintptr:
		val.WritePointer(uintptr(rv.Uint()))
	case reflect.Float32, reflect.Float64:
		val.WriteFloat64(rv.Float())
	case reflect.String:
		val.WriteString(rv.String())
	case reflect.Pointer:
		if rv.IsNil() {
			val.WritePointer(0)
			return
		}
		Write(val, rv.Elem().Interface())
	case reflect.Interface:
		if rv.IsNil() {
			val.WritePointer(0)
			return
		}
		Write(val, rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			val.WriteBytes(rv.Bytes())
			return
		}
		arr := val.WriteArray()
		for i := 0; i < rv.Len(); i++ {
			arr.Append(rv.Index(i).Interface())
		}
		arr.Close()
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			unsupported(val, rv)
			return
		}
		dict := val.WriteDictionary()
		iter := rv.MapRange()
		for iter.Next() {
			dict.Add(iter.Key().String(), iter.Value().Interface())
		}
		dict.Close()
	default:
		unsupported(val, rv)
	}
}

func unsupported(val *Value, rv reflect.Value) {
	assert.Thatf(false, "no trace serialization for type %s; implement Traceable or pass a supported kind", rv.Type())
	val.WriteString(fmt.Sprintf("<unsupported type %s>", rv.Type()))
}
