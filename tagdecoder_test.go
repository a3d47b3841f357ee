package recdec

import (
	"bytes"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
)

func simpleMessage(t *testing.T) (*DescriptorRegistry, *MessageDescriptor) {
	t.Helper()
	r := NewDescriptorRegistry()
	m, err := r.AddMessage("M")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.AddField("id", 1, LabelOptional, FieldKindInt32); err != nil {
		t.Fatal(err)
	}
	if _, err := m.AddField("tags", 2, LabelRepeated, FieldKindInt32); err != nil {
		t.Fatal(err)
	}
	nested, err := m.AddField("child", 3, LabelOptional, FieldKindMessage)
	if err != nil {
		t.Fatal(err)
	}
	nested.SetMessageType("Child")
	repChild, err := m.AddField("children", 4, LabelRepeated, FieldKindMessage)
	if err != nil {
		t.Fatal(err)
	}
	repChild.SetMessageType("Child")

	child, err := r.AddMessage("Child")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := child.AddField("name", 1, LabelOptional, FieldKindString); err != nil {
		t.Fatal(err)
	}

	r.Resolve()
	return r, m
}

func TestDecodeMessageScalarAndRepeated(t *testing.T) {
	reg, m := simpleMessage(t)

	var buf bytes.Buffer
	buf.Write(protowire.AppendTag(nil, 1, protowire.VarintType))
	buf.Write(protowire.AppendVarint(nil, 42))
	buf.Write(protowire.AppendTag(nil, 2, protowire.VarintType))
	buf.Write(protowire.AppendVarint(nil, 1))
	buf.Write(protowire.AppendTag(nil, 2, protowire.VarintType))
	buf.Write(protowire.AppendVarint(nil, 2))

	v, err := DecodeMessageBytes(reg, m, buf.Bytes(), DefaultLimits)
	if err != nil {
		t.Fatal(err)
	}
	id, ok := v.Field("id")
	if !ok || id.AsInt64() != 42 {
		t.Fatalf("got (%v,%v), want (42,true)", id, ok)
	}
	tags, ok := v.Field("tags")
	if !ok || len(tags.AsSequence()) != 2 {
		t.Fatalf("got %v, want a 2-element sequence", tags)
	}
	if tags.AsSequence()[0].AsInt64() != 1 || tags.AsSequence()[1].AsInt64() != 2 {
		t.Fatalf("got %v, want [1,2]", tags.AsSequence())
	}
}

func TestDecodeMessagePackedRepeated(t *testing.T) {
	reg, m := simpleMessage(t)

	var payload []byte
	payload = protowire.AppendVarint(payload, 7)
	payload = protowire.AppendVarint(payload, 8)
	payload = protowire.AppendVarint(payload, 9)

	var buf bytes.Buffer
	buf.Write(protowire.AppendTag(nil, 2, protowire.BytesType))
	buf.Write(protowire.AppendVarint(nil, uint64(len(payload))))
	buf.Write(payload)

	v, err := DecodeMessageBytes(reg, m, buf.Bytes(), DefaultLimits)
	if err != nil {
		t.Fatal(err)
	}
	tags, _ := v.Field("tags")
	seq := tags.AsSequence()
	if len(seq) != 3 || seq[0].AsInt64() != 7 || seq[2].AsInt64() != 9 {
		t.Fatalf("got %v, want [7,8,9]", seq)
	}
}

func TestDecodeMessageSingularMessageFieldMergesAcrossOccurrences(t *testing.T) {
	reg, m := simpleMessage(t)

	childPayload1 := protowire.AppendTag(nil, 1, protowire.BytesType)
	childPayload1 = protowire.AppendBytes(childPayload1, []byte("first"))

	var buf bytes.Buffer
	buf.Write(protowire.AppendTag(nil, 3, protowire.BytesType))
	buf.Write(protowire.AppendVarint(nil, uint64(len(childPayload1))))
	buf.Write(childPayload1)
	// A second, empty occurrence merges into the existing child, so the
	// name set by the first occurrence survives.
	buf.Write(protowire.AppendTag(nil, 3, protowire.BytesType))
	buf.Write(protowire.AppendVarint(nil, 0))

	v, err := DecodeMessageBytes(reg, m, buf.Bytes(), DefaultLimits)
	if err != nil {
		t.Fatal(err)
	}
	child, ok := v.Field("child")
	if !ok {
		t.Fatal("expected child field present")
	}
	name, ok := child.Field("name")
	if !ok || name.AsString() != "first" {
		t.Fatalf("got (%v,%v), want (first,true)", name, ok)
	}
}

func TestDecodeMessageRepeatedMessageFieldIsFreshPerOccurrence(t *testing.T) {
	reg, m := simpleMessage(t)

	mkChild := func(name string) []byte {
		inner := protowire.AppendTag(nil, 1, protowire.BytesType)
		inner = protowire.AppendBytes(inner, []byte(name))
		out := protowire.AppendTag(nil, 4, protowire.BytesType)
		out = protowire.AppendVarint(out, uint64(len(inner)))
		return append(out, inner...)
	}

	var buf bytes.Buffer
	buf.Write(mkChild("a"))
	buf.Write(mkChild("b"))

	v, err := DecodeMessageBytes(reg, m, buf.Bytes(), DefaultLimits)
	if err != nil {
		t.Fatal(err)
	}
	children, _ := v.Field("children")
	seq := children.AsSequence()
	if len(seq) != 2 {
		t.Fatalf("got %d children, want 2", len(seq))
	}
	n0, _ := seq[0].Field("name")
	n1, _ := seq[1].Field("name")
	if n0.AsString() != "a" || n1.AsString() != "b" {
		t.Fatalf("got (%q,%q), want (a,b)", n0.AsString(), n1.AsString())
	}
}

func TestDecodeMessageUnknownFieldIsSkipped(t *testing.T) {
	reg, m := simpleMessage(t)

	var buf bytes.Buffer
	buf.Write(protowire.AppendTag(nil, 99, protowire.VarintType))
	buf.Write(protowire.AppendVarint(nil, 123))
	buf.Write(protowire.AppendTag(nil, 1, protowire.VarintType))
	buf.Write(protowire.AppendVarint(nil, 5))

	v, err := DecodeMessageBytes(reg, m, buf.Bytes(), DefaultLimits)
	if err != nil {
		t.Fatal(err)
	}
	id, ok := v.Field("id")
	if !ok || id.AsInt64() != 5 {
		t.Fatalf("got (%v,%v), want (5,true)", id, ok)
	}
}

func TestDecodeMessageAbsentRepeatedFieldIsEmptySequence(t *testing.T) {
	reg, m := simpleMessage(t)
	v, err := DecodeMessageBytes(reg, m, nil, DefaultLimits)
	if err != nil {
		t.Fatal(err)
	}
	tags, ok := v.Field("tags")
	if !ok {
		t.Fatal("repeated field must always be present, even when absent from the wire")
	}
	if len(tags.AsSequence()) != 0 {
		t.Fatalf("got %v, want an empty sequence", tags.AsSequence())
	}
}

func TestDecodeMessageWireTypeMismatchFails(t *testing.T) {
	reg, m := simpleMessage(t)
	var buf bytes.Buffer
	buf.Write(protowire.AppendTag(nil, 1, protowire.Fixed32Type))
	buf.Write(protowire.AppendFixed32(nil, 7))

	_, err := DecodeMessageBytes(reg, m, buf.Bytes(), DefaultLimits)
	de, ok := err.(*DecodeError)
	if !ok || de.Kind != ErrBadWireType {
		t.Fatalf("got %v, want ErrBadWireType", err)
	}
}

func TestDecodeMessageGroupField(t *testing.T) {
	r := NewDescriptorRegistry()
	m, err := r.AddMessage("WithGroup")
	if err != nil {
		t.Fatal(err)
	}
	gf, err := m.AddField("grp", 5, LabelOptional, FieldKindGroup)
	if err != nil {
		t.Fatal(err)
	}
	gf.SetMessageType("Grp")
	grp, err := r.AddMessage("Grp")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := grp.AddField("val", 1, LabelOptional, FieldKindInt32); err != nil {
		t.Fatal(err)
	}
	r.Resolve()

	var buf bytes.Buffer
	buf.Write(protowire.AppendTag(nil, 5, protowire.StartGroupType))
	buf.Write(protowire.AppendTag(nil, 1, protowire.VarintType))
	buf.Write(protowire.AppendVarint(nil, 9))
	buf.Write(protowire.AppendTag(nil, 5, protowire.EndGroupType))

	v, err := DecodeMessageBytes(r, m, buf.Bytes(), DefaultLimits)
	if err != nil {
		t.Fatal(err)
	}
	g, ok := v.Field("grp")
	if !ok {
		t.Fatal("expected grp field present")
	}
	val, ok := g.Field("val")
	if !ok || val.AsInt64() != 9 {
		t.Fatalf("got (%v,%v), want (9,true)", val, ok)
	}
}

func TestDecodeMessageSingularFieldDefaultWhenAbsent(t *testing.T) {
	r := NewDescriptorRegistry()
	m, err := r.AddMessage("WithDefault")
	if err != nil {
		t.Fatal(err)
	}
	f, err := m.AddField("flag", 1, LabelOptional, FieldKindBool)
	if err != nil {
		t.Fatal(err)
	}
	f.Default = Bool(true)
	f.HasDefault = true
	r.Resolve()

	v, err := DecodeMessageBytes(r, m, nil, DefaultLimits)
	if err != nil {
		t.Fatal(err)
	}
	flag, ok := v.Field("flag")
	if !ok || !flag.AsBool() {
		t.Fatalf("got (%v,%v), want (true,true) from the field default", flag, ok)
	}
}
