package recdec

import (
	"math"
	"testing"
)

func TestValueKindAndAccessors(t *testing.T) {
	v := Int32(42)
	if v.Kind() != KindInt32 {
		t.Fatalf("got %v, want KindInt32", v.Kind())
	}
	if v.AsInt64() != 42 {
		t.Fatalf("got %d, want 42", v.AsInt64())
	}
}

func TestFloatTotalOrderNaN(t *testing.T) {
	nan1 := Float64Value(math.NaN())
	nan2 := Float64Value(math.NaN())
	one := Float64Value(1.0)
	inf := Float64Value(math.Inf(1))

	if nan1.AsFloat().Compare(nan2.AsFloat()) != 0 {
		t.Fatal("two NaNs should compare equal under total order")
	}
	if nan1.AsFloat().Compare(inf.AsFloat()) != 1 {
		t.Fatal("NaN should sort after +Inf")
	}
	if one.AsFloat().Compare(nan1.AsFloat()) != -1 {
		t.Fatal("1.0 should sort before NaN")
	}
}

func TestRecordFieldLookup(t *testing.T) {
	rec := Record([]MapEntry{
		{Key: String("a"), Value: Int32(1)},
		{Key: String("b"), Value: String("hi")},
	})
	v, ok := rec.Field("b")
	if !ok || v.AsString() != "hi" {
		t.Fatalf("got (%v, %v), want (hi, true)", v, ok)
	}
	if _, ok := rec.Field("missing"); ok {
		t.Fatal("expected ok=false for missing field")
	}
}

func TestValueCompareAcrossKind(t *testing.T) {
	a := Int32(5)
	b := String("5")
	if a.Compare(b) == 0 {
		t.Fatal("values of different Kind must never compare equal")
	}
}

func TestCompareMapsIgnoresInputOrder(t *testing.T) {
	m1 := Map([]MapEntry{{Key: String("a"), Value: Int32(1)}, {Key: String("b"), Value: Int32(2)}})
	m2 := Map([]MapEntry{{Key: String("b"), Value: Int32(2)}, {Key: String("a"), Value: Int32(1)}})
	if !m1.Equal(m2) {
		t.Fatal("maps with the same entries in different orders should compare equal")
	}
}

func TestCompareSequencesOrderMatters(t *testing.T) {
	s1 := Sequence([]Value{Int32(1), Int32(2)})
	s2 := Sequence([]Value{Int32(2), Int32(1)})
	if s1.Equal(s2) {
		t.Fatal("sequence order must matter for Compare")
	}
}
