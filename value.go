package recdec

import (
	"fmt"
	"math"
	"strings"
)

// Kind discriminates the case held by a Value, the single tag of the
// value tree's tagged union.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindFloat32
	KindFloat64
	KindChar
	KindString
	KindBytes
	KindSequence
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt8:
		return "int8"
	case KindInt16:
		return "int16"
	case KindInt32:
		return "int32"
	case KindInt64:
		return "int64"
	case KindUint8:
		return "uint8"
	case KindUint16:
		return "uint16"
	case KindUint32:
		return "uint32"
	case KindUint64:
		return "uint64"
	case KindFloat32:
		return "float32"
	case KindFloat64:
		return "float64"
	case KindChar:
		return "char"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindSequence:
		return "sequence"
	case KindMap:
		return "map"
	}
	return "invalid"
}

// Float wraps an IEEE-754 float of either width so that it has a total
// order: NaN values compare equal to each other and sort after every other
// value, including +Inf. Without this a Value carrying a NaN could not
// serve as a map key or sequence element in an ordered container.
type Float struct {
	bits  uint64
	width uint8 // 32 or 64
}

// NewFloat32 wraps a float32 for total ordering.
func NewFloat32(f float32) Float {
	return Float{bits: uint64(math.Float32bits(f)), width: 32}
}

// NewFloat64 wraps a float64 for total ordering.
func NewFloat64(f float64) Float {
	return Float{bits: math.Float64bits(f), width: 64}
}

// Float64 returns the wrapped value widened to float64.
func (f Float) Float64() float64 {
	if f.width == 32 {
		return float64(math.Float32frombits(uint32(f.bits)))
	}
	return math.Float64frombits(f.bits)
}

// Width reports whether this wraps a 32- or 64-bit float.
func (f Float) Width() uint8 { return f.width }

// Compare returns -1, 0, or 1 for f compared to o under the total order: all
// NaNs are equal to one another and greater than every non-NaN value,
// otherwise ordinary float ordering applies.
func (f Float) Compare(o Float) int {
	a, b := f.Float64(), o.Float64()
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return 1
	case bNaN:
		return -1
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (f Float) String() string {
	if f.width == 32 {
		return fmt.Sprintf("%v", float32(f.Float64()))
	}
	return fmt.Sprintf("%v", f.Float64())
}

// MapEntry is a single key/value pair in an ordered Map value.
type MapEntry struct {
	Key   Value
	Value Value
}

// Value is the generic, tagged-union value tree produced by both decoders.
// Exactly one of its payload fields is meaningful, selected by Kind. Values
// are owned by the caller once returned from a decoder: the decoder retains
// no reference to them.
type Value struct {
	kind Kind

	b   bool
	i   int64
	u   uint64
	flt Float
	ch  rune
	str string
	byt []byte
	seq []Value
	m   []MapEntry
}

// Null returns the unit value.
func Null() Value { return Value{kind: KindNull} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int8 wraps a signed 8-bit integer.
func Int8(v int8) Value { return Value{kind: KindInt8, i: int64(v)} }

// Int16 wraps a signed 16-bit integer.
func Int16(v int16) Value { return Value{kind: KindInt16, i: int64(v)} }

// Int32 wraps a signed 32-bit integer.
func Int32(v int32) Value { return Value{kind: KindInt32, i: int64(v)} }

// Int64 wraps a signed 64-bit integer.
func Int64(v int64) Value { return Value{kind: KindInt64, i: v} }

// Uint8 wraps an unsigned 8-bit integer.
func Uint8(v uint8) Value { return Value{kind: KindUint8, u: uint64(v)} }

// Uint16 wraps an unsigned 16-bit integer.
func Uint16(v uint16) Value { return Value{kind: KindUint16, u: uint64(v)} }

// Uint32 wraps an unsigned 32-bit integer.
func Uint32(v uint32) Value { return Value{kind: KindUint32, u: uint64(v)} }

// Uint64 wraps an unsigned 64-bit integer.
func Uint64(v uint64) Value { return Value{kind: KindUint64, u: v} }

// Float32Value wraps a float32.
func Float32Value(v float32) Value { return Value{kind: KindFloat32, flt: NewFloat32(v)} }

// Float64Value wraps a float64.
func Float64Value(v float64) Value { return Value{kind: KindFloat64, flt: NewFloat64(v)} }

// Char wraps a single Unicode code point.
func Char(r rune) Value { return Value{kind: KindChar, ch: r} }

// String wraps a UTF-8 string.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Bytes wraps a byte vector.
func Bytes(b []byte) Value { return Value{kind: KindBytes, byt: b} }

// Sequence wraps an ordered list of values (row-format arrays, tag-format
// repeated fields — callers choose the element order). Records and messages
// are built with Record instead.
func Sequence(vs []Value) Value { return Value{kind: KindSequence, seq: vs} }

// Map wraps an ordered key/value mapping. Entry order is preserved as
// supplied; Value.Compare sorts a copy of the entries internally when it
// needs to compare two maps.
func Map(entries []MapEntry) Value { return Value{kind: KindMap, m: entries} }

// Record builds a Map value keyed by field name, in declared field order —
// the representation used for row-format records and tag-format messages.
func Record(fields []MapEntry) Value { return Map(fields) }

// Kind reports the case held by v.
func (v Value) Kind() Kind { return v.kind }

// AsBool returns the wrapped boolean; valid only when Kind() == KindBool.
func (v Value) AsBool() bool { return v.b }

// AsInt64 returns the wrapped signed integer widened to int64; valid for
// any signed integer Kind.
func (v Value) AsInt64() int64 { return v.i }

// AsUint64 returns the wrapped unsigned integer widened to uint64; valid
// for any unsigned integer Kind.
func (v Value) AsUint64() uint64 { return v.u }

// AsFloat returns the wrapped Float; valid for KindFloat32/KindFloat64.
func (v Value) AsFloat() Float { return v.flt }

// AsChar returns the wrapped rune; valid for KindChar.
func (v Value) AsChar() rune { return v.ch }

// AsString returns the wrapped string; valid for KindString.
func (v Value) AsString() string { return v.str }

// AsBytes returns the wrapped byte slice; valid for KindBytes.
func (v Value) AsBytes() []byte { return v.byt }

// AsSequence returns the wrapped slice; valid for KindSequence.
func (v Value) AsSequence() []Value { return v.seq }

// AsMap returns the wrapped entries in their stored order; valid for
// KindMap.
func (v Value) AsMap() []MapEntry { return v.m }

// Field looks up a named entry in a KindMap value by string key, as used
// for record/message field access. Reports ok=false if absent or if v is
// not a map.
func (v Value) Field(name string) (Value, bool) {
	if v.kind != KindMap {
		return Value{}, false
	}
	for _, e := range v.m {
		if e.Key.kind == KindString && e.Key.str == name {
			return e.Value, true
		}
	}
	return Value{}, false
}

// Compare defines the total order over Value required so values may serve
// as sequence elements or map keys in ordered containers. Values of
// different Kind compare by Kind first, which keeps the order total
// without requiring cross-kind numeric coercion.
func (v Value) Compare(o Value) int {
	if v.kind != o.kind {
		if v.kind < o.kind {
			return -1
		}
		return 1
	}

	switch v.kind {
	case KindNull:
		return 0
	case KindBool:
		return boolCompare(v.b, o.b)
	case KindInt8, KindInt16, KindInt32, KindInt64:
		return int64Compare(v.i, o.i)
	case KindUint8, KindUint16, KindUint32, KindUint64:
		return uint64Compare(v.u, o.u)
	case KindFloat32, KindFloat64:
		return v.flt.Compare(o.flt)
	case KindChar:
		return int64Compare(int64(v.ch), int64(o.ch))
	case KindString:
		return strings.Compare(v.str, o.str)
	case KindBytes:
		switch {
		case string(v.byt) < string(o.byt):
			return -1
		case string(v.byt) > string(o.byt):
			return 1
		default:
			return 0
		}
	case KindSequence:
		return compareSequences(v.seq, o.seq)
	case KindMap:
		return compareMaps(v.m, o.m)
	}
	return 0
}

// Equal reports whether v and o compare equal under Compare.
func (v Value) Equal(o Value) bool { return v.Compare(o) == 0 }

func boolCompare(a, b bool) int {
	if a == b {
		return 0
	}
	if !a {
		return -1
	}
	return 1
}

func int64Compare(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func uint64Compare(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareSequences(a, b []Value) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if c := a[i].Compare(b[i]); c != 0 {
			return c
		}
	}
	return int64Compare(int64(len(a)), int64(len(b)))
}

// compareMaps compares two map values as their sorted entry lists,
// without mutating the inputs.
func compareMaps(a, b []MapEntry) int {
	as := sortedEntries(a)
	bs := sortedEntries(b)
	n := len(as)
	if len(bs) < n {
		n = len(bs)
	}
	for i := 0; i < n; i++ {
		if c := as[i].Key.Compare(bs[i].Key); c != 0 {
			return c
		}
		if c := as[i].Value.Compare(bs[i].Value); c != 0 {
			return c
		}
	}
	return int64Compare(int64(len(as)), int64(len(bs)))
}

func sortedEntries(entries []MapEntry) []MapEntry {
	out := make([]MapEntry, len(entries))
	copy(out, entries)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Key.Compare(out[j-1].Key) < 0; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
