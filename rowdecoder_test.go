package recdec

import "testing"

func mustParseSchema(t *testing.T, jsonText string) (*SchemaRegistry, SchemaRef) {
	t.Helper()
	reg, ref, err := ParseSchema([]byte(jsonText))
	if err != nil {
		t.Fatal(err)
	}
	return reg, ref
}

func TestDecodeRecordBooleanStrict(t *testing.T) {
	reg, ref := mustParseSchema(t, `"boolean"`)

	r := NewReader([]byte{1})
	v, err := DecodeRecord(reg, ref, &r, DefaultLimits)
	if err != nil || !v.AsBool() {
		t.Fatalf("got (%v,%v), want (true,nil)", v, err)
	}

	r2 := NewReader([]byte{2})
	_, err = DecodeRecord(reg, ref, &r2, DefaultLimits)
	de, ok := err.(*DecodeError)
	if !ok || de.Kind != ErrFieldTypeMismatch {
		t.Fatalf("got %v, want ErrFieldTypeMismatch for a non-0/1 boolean byte", err)
	}
}

func TestDecodeRecordStringRejectsInvalidUTF8(t *testing.T) {
	reg, ref := mustParseSchema(t, `"string"`)

	bad := []byte{0xff, 0xfe}
	payload := appendZigZagVarint(nil, int64(len(bad)))
	payload = append(payload, bad...)

	r := NewReader(payload)
	_, err := DecodeRecord(reg, ref, &r, DefaultLimits)
	de, ok := err.(*DecodeError)
	if !ok || de.Kind != ErrUTF8 {
		t.Fatalf("got %v, want ErrUTF8", err)
	}
}

func TestDecodeRecordArraySingleBlock(t *testing.T) {
	reg, ref := mustParseSchema(t, `{"type": "array", "items": "long"}`)

	var payload []byte
	payload = appendZigZagVarint(payload, 3)
	payload = appendZigZagVarint(payload, 10)
	payload = appendZigZagVarint(payload, 20)
	payload = appendZigZagVarint(payload, 30)
	payload = appendZigZagVarint(payload, 0)

	r := NewReader(payload)
	v, err := DecodeRecord(reg, ref, &r, DefaultLimits)
	if err != nil {
		t.Fatal(err)
	}
	seq := v.AsSequence()
	if len(seq) != 3 || seq[0].AsInt64() != 10 || seq[2].AsInt64() != 30 {
		t.Fatalf("got %v, want [10,20,30]", seq)
	}
}

func TestDecodeRecordArrayNegativeCountBlockSkipsByteSize(t *testing.T) {
	reg, ref := mustParseSchema(t, `{"type": "array", "items": "long"}`)

	var payload []byte
	payload = appendZigZagVarint(payload, -2) // negative count: 2 items follow
	payload = appendZigZagVarint(payload, 99) // discarded byte-size of the block
	payload = appendZigZagVarint(payload, 1)
	payload = appendZigZagVarint(payload, 2)
	payload = appendZigZagVarint(payload, 0)

	r := NewReader(payload)
	v, err := DecodeRecord(reg, ref, &r, DefaultLimits)
	if err != nil {
		t.Fatal(err)
	}
	seq := v.AsSequence()
	if len(seq) != 2 || seq[0].AsInt64() != 1 || seq[1].AsInt64() != 2 {
		t.Fatalf("got %v, want [1,2]", seq)
	}
}

func TestDecodeRecordArrayMultipleBlocks(t *testing.T) {
	reg, ref := mustParseSchema(t, `{"type": "array", "items": "long"}`)

	var payload []byte
	payload = appendZigZagVarint(payload, 1)
	payload = appendZigZagVarint(payload, 7)
	payload = appendZigZagVarint(payload, 1)
	payload = appendZigZagVarint(payload, 8)
	payload = appendZigZagVarint(payload, 0)

	r := NewReader(payload)
	v, err := DecodeRecord(reg, ref, &r, DefaultLimits)
	if err != nil {
		t.Fatal(err)
	}
	seq := v.AsSequence()
	if len(seq) != 2 || seq[0].AsInt64() != 7 || seq[1].AsInt64() != 8 {
		t.Fatalf("got %v, want [7,8] across two blocks", seq)
	}
}

func TestDecodeRecordMapStringKeys(t *testing.T) {
	reg, ref := mustParseSchema(t, `{"type": "map", "values": "int"}`)

	var payload []byte
	payload = appendZigZagVarint(payload, 1)
	payload = appendLengthPrefixed(payload, []byte("a"))
	payload = appendZigZagVarint(payload, 5)
	payload = appendZigZagVarint(payload, 0)

	r := NewReader(payload)
	v, err := DecodeRecord(reg, ref, &r, DefaultLimits)
	if err != nil {
		t.Fatal(err)
	}
	entry, ok := v.Field("a")
	if !ok || entry.AsInt64() != 5 {
		t.Fatalf("got (%v,%v), want (5,true)", entry, ok)
	}
}

func TestDecodeRecordUnionHasNoWrapper(t *testing.T) {
	reg, ref := mustParseSchema(t, `["null", "long"]`)

	var payload []byte
	payload = appendZigZagVarint(payload, 1) // branch index 1: long
	payload = appendZigZagVarint(payload, 42)

	r := NewReader(payload)
	v, err := DecodeRecord(reg, ref, &r, DefaultLimits)
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind() != KindInt64 || v.AsInt64() != 42 {
		t.Fatalf("got %v, want a bare int64(42) with no union wrapper", v)
	}
}

func TestDecodeRecordUnionNullBranch(t *testing.T) {
	reg, ref := mustParseSchema(t, `["null", "long"]`)

	payload := appendZigZagVarint(nil, 0) // branch index 0: null
	r := NewReader(payload)
	v, err := DecodeRecord(reg, ref, &r, DefaultLimits)
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind() != KindNull {
		t.Fatalf("got %v, want KindNull", v.Kind())
	}
}

func TestDecodeRecordUnionOutOfRangeBranchFails(t *testing.T) {
	reg, ref := mustParseSchema(t, `["null", "long"]`)

	payload := appendZigZagVarint(nil, 5)
	r := NewReader(payload)
	_, err := DecodeRecord(reg, ref, &r, DefaultLimits)
	de, ok := err.(*DecodeError)
	if !ok || de.Kind != ErrFieldTypeMismatch {
		t.Fatalf("got %v, want ErrFieldTypeMismatch", err)
	}
}

func TestDecodeRecordEnumUnknownIndexFails(t *testing.T) {
	reg, ref := mustParseSchema(t, `{"type": "enum", "name": "E", "symbols": ["A", "B"]}`)

	payload := appendZigZagVarint(nil, 9)
	r := NewReader(payload)
	_, err := DecodeRecord(reg, ref, &r, DefaultLimits)
	de, ok := err.(*DecodeError)
	if !ok || de.Kind != ErrUnknownEnumValue {
		t.Fatalf("got %v, want ErrUnknownEnumValue", err)
	}
}

func TestDecodeRecordNestedRecordFieldOrder(t *testing.T) {
	reg, ref := mustParseSchema(t, `{
		"type": "record",
		"name": "Outer",
		"fields": [
			{"name": "a", "type": "int"},
			{"name": "inner", "type": {
				"type": "record",
				"name": "Inner",
				"fields": [{"name": "b", "type": "string"}]
			}}
		]
	}`)

	var payload []byte
	payload = appendZigZagVarint(payload, 1)
	payload = appendLengthPrefixed(payload, []byte("hi"))

	r := NewReader(payload)
	v, err := DecodeRecord(reg, ref, &r, DefaultLimits)
	if err != nil {
		t.Fatal(err)
	}
	a, _ := v.Field("a")
	if a.AsInt64() != 1 {
		t.Fatalf("got %d, want 1", a.AsInt64())
	}
	inner, ok := v.Field("inner")
	if !ok {
		t.Fatal("expected inner field present")
	}
	b, ok := inner.Field("b")
	if !ok || b.AsString() != "hi" {
		t.Fatalf("got (%v,%v), want (hi,true)", b, ok)
	}
}
