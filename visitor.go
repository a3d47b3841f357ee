package recdec

import "errors"

// ErrSkipVisit may be returned from VisitSequenceStart/VisitMapStart to tell
// WalkValue to skip a composite's children, or from VisitMapKey to skip one
// entry's value, without aborting the walk. Returned from any other
// callback, it ends the walk and is passed back like any other error.
var ErrSkipVisit = errors.New("skip visit")

// Visitor receives one callback per Value kind. WalkValue drives a Visitor
// depth-first, left-to-right, exactly mirroring decode order.
type Visitor interface {
	VisitNull() error
	VisitBool(v bool) error
	VisitInt8(v int8) error
	VisitInt16(v int16) error
	VisitInt32(v int32) error
	VisitInt64(v int64) error
	VisitUint8(v uint8) error
	VisitUint16(v uint16) error
	VisitUint32(v uint32) error
	VisitUint64(v uint64) error
	VisitFloat32(v float32) error
	VisitFloat64(v float64) error
	VisitChar(v rune) error
	VisitString(v string) error
	VisitBytes(v []byte) error

	// VisitSequenceStart is called before visiting a sequence's elements.
	// Returning ErrSkipVisit stops WalkValue from visiting any element and
	// skips straight to VisitSequenceEnd.
	VisitSequenceStart(length int) error
	VisitSequenceEnd() error

	// VisitMapStart is called before visiting a map's entries. Returning
	// ErrSkipVisit stops WalkValue from visiting any entry.
	VisitMapStart(length int) error
	// VisitMapKey is called before each entry's value; entries in this
	// package always carry a string key (row maps have implicit string
	// keys, and records/messages are keyed by field name). Returning
	// ErrSkipVisit skips that one entry's value.
	VisitMapKey(key string) error
	VisitMapEnd() error
}

// WalkValue drives visitor over v. It is pull-based in the sense that the
// caller decides when to walk each decoded record; recursion depth is
// bounded by the Value's own structure — ordinary recursion, no coroutine
// machinery.
func WalkValue(v Value, visitor Visitor) error {
	switch v.Kind() {
	case KindNull:
		return visitor.VisitNull()
	case KindBool:
		return visitor.VisitBool(v.AsBool())
	case KindInt8:
		return visitor.VisitInt8(int8(v.AsInt64()))
	case KindInt16:
		return visitor.VisitInt16(int16(v.AsInt64()))
	case KindInt32:
		return visitor.VisitInt32(int32(v.AsInt64()))
	case KindInt64:
		return visitor.VisitInt64(v.AsInt64())
	case KindUint8:
		return visitor.VisitUint8(uint8(v.AsUint64()))
	case KindUint16:
		return visitor.VisitUint16(uint16(v.AsUint64()))
	case KindUint32:
		return visitor.VisitUint32(uint32(v.AsUint64()))
	case KindUint64:
		return visitor.VisitUint64(v.AsUint64())
	case KindFloat32:
		return visitor.VisitFloat32(float32(v.AsFloat().Float64()))
	case KindFloat64:
		return visitor.VisitFloat64(v.AsFloat().Float64())
	case KindChar:
		return visitor.VisitChar(v.AsChar())
	case KindString:
		return visitor.VisitString(v.AsString())
	case KindBytes:
		return visitor.VisitBytes(v.AsBytes())

	case KindSequence:
		seq := v.AsSequence()
		if err := visitor.VisitSequenceStart(len(seq)); err != nil {
			if err == ErrSkipVisit {
				return visitor.VisitSequenceEnd()
			}
			return err
		}
		for _, elem := range seq {
			if err := WalkValue(elem, visitor); err != nil {
				return err
			}
		}
		return visitor.VisitSequenceEnd()

	case KindMap:
		entries := v.AsMap()
		if err := visitor.VisitMapStart(len(entries)); err != nil {
			if err == ErrSkipVisit {
				return visitor.VisitMapEnd()
			}
			return err
		}
		for _, e := range entries {
			key := e.Key.AsString()
			if err := visitor.VisitMapKey(key); err != nil {
				if err == ErrSkipVisit {
					continue
				}
				return err
			}
			if err := WalkValue(e.Value, visitor); err != nil {
				return err
			}
		}
		return visitor.VisitMapEnd()
	}

	return nil
}
