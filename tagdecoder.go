package recdec

import (
	"io"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// naturalWireType reports the wire-type a scalar field kind is encoded
// with when not packed into a length-delimited payload.
func naturalWireType(kind FieldKind) protowire.Type {
	switch kind {
	case FieldKindInt32, FieldKindInt64, FieldKindUint32, FieldKindUint64,
		FieldKindSint32, FieldKindSint64, FieldKindBool, FieldKindEnum:
		return protowire.VarintType
	case FieldKindFixed64, FieldKindSfixed64, FieldKindDouble:
		return protowire.Fixed64Type
	case FieldKindFixed32, FieldKindSfixed32, FieldKindFloat:
		return protowire.Fixed32Type
	case FieldKindString, FieldKindBytes, FieldKindMessage:
		return protowire.BytesType
	case FieldKindGroup:
		return protowire.StartGroupType
	}
	return protowire.Type(-1)
}

// packable reports whether a field's natural wire-type may legally appear
// packed inside a single length-delimited payload (only scalar numeric
// wire-types qualify).
func packable(wtype protowire.Type) bool {
	return wtype == protowire.VarintType || wtype == protowire.Fixed32Type || wtype == protowire.Fixed64Type
}

func isMessageKind(kind FieldKind) bool {
	return kind == FieldKindMessage || kind == FieldKindGroup
}

// fieldSlot holds the decode-time state of one message field: empty ->
// singular(value) | repeated([...]). Message-kind fields retain a live
// child builder instead of a finalized Value so that later occurrences of
// a singular message field can keep merging into it.
type fieldSlot struct {
	fd *FieldDescriptor

	hasScalar    bool
	scalarSingle Value
	scalarSeq    []Value

	msgSingle *messageBuilder
	msgSeq    []*messageBuilder
}

// messageBuilder accumulates one message's field slots while its wire
// bytes are consumed, then converts itself into a Record Value.
type messageBuilder struct {
	reg    *DescriptorRegistry
	md     *MessageDescriptor
	limits DecodeLimits
	depth  int
	slots  map[int32]*fieldSlot
}

func newMessageBuilder(reg *DescriptorRegistry, md *MessageDescriptor, limits DecodeLimits, depth int) *messageBuilder {
	return &messageBuilder{reg: reg, md: md, limits: limits, depth: depth, slots: make(map[int32]*fieldSlot)}
}

func (b *messageBuilder) slotFor(fd *FieldDescriptor) *fieldSlot {
	s, ok := b.slots[fd.Number]
	if !ok {
		s = &fieldSlot{fd: fd}
		b.slots[fd.Number] = s
	}
	return s
}

// decode consumes every tag in r.
func (b *messageBuilder) decode(r *Reader) error {
	for !r.AtEnd() {
		if err := b.step(r); err != nil {
			return err
		}
	}
	return nil
}

func (b *messageBuilder) step(r *Reader) error {
	tagv, err := r.ReadUvarint()
	if err != nil {
		return err
	}
	number, wtype := protowire.DecodeTag(tagv)
	return b.handleField(r, number, wtype)
}

func (b *messageBuilder) handleField(r *Reader, number protowire.Number, wtype protowire.Type) error {
	fd, ok := b.md.FieldByNumber(int32(number))
	if !ok {
		return skipField(r, wtype)
	}

	natural := naturalWireType(fd.Kind)

	switch {
	case fd.Kind == FieldKindMessage:
		if wtype != protowire.BytesType {
			return newErr(ErrBadWireType, "field %q expects length-delimited, got wire-type %d", fd.Name, wtype)
		}
		return b.mergeMessage(fd, r)

	case fd.Kind == FieldKindGroup:
		if wtype != protowire.StartGroupType {
			return newErr(ErrBadWireType, "field %q expects start-group, got wire-type %d", fd.Name, wtype)
		}
		return b.mergeGroup(fd, number, r)

	case wtype == protowire.BytesType && packable(natural) && natural != wtype:
		return b.mergePacked(fd, natural, r)

	case wtype != natural:
		return newErr(ErrBadWireType, "field %q expects wire-type %d, got %d", fd.Name, natural, wtype)

	default:
		v, err := decodeScalar(fd.Kind, wtype, r)
		if err != nil {
			return err
		}
		b.appendScalar(fd, v)
		return nil
	}
}

func (b *messageBuilder) appendScalar(fd *FieldDescriptor, v Value) {
	slot := b.slotFor(fd)
	if fd.Label == LabelRepeated {
		slot.scalarSeq = append(slot.scalarSeq, v)
		return
	}
	slot.scalarSingle = v
	slot.hasScalar = true
}

// mergePacked implements the packable-scalar merge rule: the payload is a
// packed run of the field's natural wire-type, decoded until exhausted.
func (b *messageBuilder) mergePacked(fd *FieldDescriptor, natural protowire.Type, r *Reader) error {
	length, err := r.ReadUvarint()
	if err != nil {
		return err
	}
	if err := checkLimit(uint(length), b.limits.MaxCollectionLen, "packed field payload"); err != nil {
		return err
	}
	payload, err := r.Read(int(length))
	if err != nil {
		return err
	}
	sub := NewReader(payload)
	for !sub.AtEnd() {
		v, err := decodeScalar(fd.Kind, natural, &sub)
		if err != nil {
			return err
		}
		b.appendScalar(fd, v)
	}
	return nil
}

func decodeScalar(kind FieldKind, wtype protowire.Type, r *Reader) (Value, error) {
	switch wtype {
	case protowire.VarintType:
		raw, err := r.ReadUvarint()
		if err != nil {
			return Value{}, err
		}
		return decodeScalarFromVarint(kind, raw), nil

	case protowire.Fixed32Type:
		bits, err := r.readRawFixed32()
		if err != nil {
			return Value{}, err
		}
		return decodeScalarFromFixed32(kind, bits), nil

	case protowire.Fixed64Type:
		bits, err := r.readRawFixed64()
		if err != nil {
			return Value{}, err
		}
		return decodeScalarFromFixed64(kind, bits), nil

	case protowire.BytesType:
		length, err := r.ReadUvarint()
		if err != nil {
			return Value{}, err
		}
		data, err := r.Read(int(length))
		if err != nil {
			return Value{}, err
		}
		if kind == FieldKindString {
			return String(string(data)), nil
		}
		return Bytes(append([]byte(nil), data...)), nil
	}
	return Value{}, newErr(ErrBadWireType, "unsupported wire-type %d", wtype)
}

func decodeScalarFromVarint(kind FieldKind, raw uint64) Value {
	switch kind {
	case FieldKindInt32:
		return Int32(int32(raw))
	case FieldKindInt64:
		return Int64(int64(raw))
	case FieldKindUint32:
		return Uint32(uint32(raw))
	case FieldKindUint64:
		return Uint64(raw)
	case FieldKindSint32:
		return Int32(int32(protowire.DecodeZigZag(raw)))
	case FieldKindSint64:
		return Int64(protowire.DecodeZigZag(raw))
	case FieldKindBool:
		return Bool(raw != 0)
	case FieldKindEnum:
		return Int32(int32(raw))
	}
	return Int64(int64(raw))
}

func decodeScalarFromFixed32(kind FieldKind, bits uint32) Value {
	switch kind {
	case FieldKindSfixed32:
		return Int32(int32(bits))
	case FieldKindFloat:
		return Float32Value(math.Float32frombits(bits))
	}
	return Uint32(bits)
}

func decodeScalarFromFixed64(kind FieldKind, bits uint64) Value {
	switch kind {
	case FieldKindSfixed64:
		return Int64(int64(bits))
	case FieldKindDouble:
		return Float64Value(math.Float64frombits(bits))
	}
	return Uint64(bits)
}

// mergeMessage implements the message merge rule: a freshly constructed
// child for a repeated occurrence, or the existing child for a singular
// field seen more than once (standard nested-message merge semantics).
func (b *messageBuilder) mergeMessage(fd *FieldDescriptor, r *Reader) error {
	length, err := r.ReadUvarint()
	if err != nil {
		return err
	}
	payload, err := r.Read(int(length))
	if err != nil {
		return err
	}
	child, err := b.childFor(fd)
	if err != nil {
		return err
	}
	sub := NewReader(payload)
	return child.decode(&sub)
}

// mergeGroup consumes tag/value pairs directly from r until the matching
// end-group tag, since groups carry no length prefix.
func (b *messageBuilder) mergeGroup(fd *FieldDescriptor, number protowire.Number, r *Reader) error {
	child, err := b.childFor(fd)
	if err != nil {
		return err
	}
	for {
		tagv, err := r.ReadUvarint()
		if err != nil {
			return err
		}
		n2, w2 := protowire.DecodeTag(tagv)
		if w2 == protowire.EndGroupType {
			if n2 != number {
				return newErr(ErrBadWireType, "mismatched end-group tag for field %q", fd.Name)
			}
			return nil
		}
		if err := child.handleField(r, n2, w2); err != nil {
			return err
		}
	}
}

func (b *messageBuilder) childFor(fd *FieldDescriptor) (*messageBuilder, error) {
	slot := b.slotFor(fd)
	if fd.Label == LabelRepeated {
		child, err := b.newChild(fd)
		if err != nil {
			return nil, err
		}
		slot.msgSeq = append(slot.msgSeq, child)
		return child, nil
	}
	if slot.msgSingle == nil {
		child, err := b.newChild(fd)
		if err != nil {
			return nil, err
		}
		slot.msgSingle = child
	}
	return slot.msgSingle, nil
}

func (b *messageBuilder) newChild(fd *FieldDescriptor) (*messageBuilder, error) {
	if err := checkLimit(uint(b.depth+1), b.limits.MaxDepth, "message nesting depth"); err != nil {
		return nil, err
	}
	md, err := b.reg.ResolvedMessage(fd)
	if err != nil {
		return nil, err
	}
	return newMessageBuilder(b.reg, md, b.limits, b.depth+1), nil
}

// skipField discards an unknown field's payload by wire-type. Nested
// groups are skipped recursively since they carry no length prefix.
func skipField(r *Reader, wtype protowire.Type) error {
	switch wtype {
	case protowire.VarintType:
		_, err := r.ReadUvarint()
		return err

	case protowire.Fixed32Type:
		return r.Skip(4)

	case protowire.Fixed64Type:
		return r.Skip(8)

	case protowire.BytesType:
		length, err := r.ReadUvarint()
		if err != nil {
			return err
		}
		return r.Skip(int(length))

	case protowire.StartGroupType:
		depth := 1
		for depth > 0 {
			tagv, err := r.ReadUvarint()
			if err != nil {
				return err
			}
			_, w2 := protowire.DecodeTag(tagv)
			switch w2 {
			case protowire.StartGroupType:
				depth++
			case protowire.EndGroupType:
				depth--
			default:
				if err := skipField(r, w2); err != nil {
					return err
				}
			}
		}
		return nil
	}
	return newErr(ErrBadWireType, "unknown field has unsupported wire-type %d", wtype)
}

// Finalize converts the accumulated field slots into a Record Value: every
// repeated field is always a sequence (empty if never seen); every
// singular field is present only if seen on the wire or if the descriptor
// carries a default.
func (b *messageBuilder) Finalize() (Value, error) {
	entries := make([]MapEntry, 0, len(b.md.Order))
	for _, fd := range b.md.Order {
		slot := b.slots[fd.Number]

		if fd.Label == LabelRepeated {
			var seq []Value
			if slot != nil {
				if isMessageKind(fd.Kind) {
					seq = make([]Value, len(slot.msgSeq))
					for i, child := range slot.msgSeq {
						v, err := child.Finalize()
						if err != nil {
							return Value{}, err
						}
						seq[i] = v
					}
				} else {
					seq = slot.scalarSeq
				}
			}
			entries = append(entries, MapEntry{Key: String(fd.Name), Value: Sequence(seq)})
			continue
		}

		switch {
		case slot != nil && isMessageKind(fd.Kind) && slot.msgSingle != nil:
			v, err := slot.msgSingle.Finalize()
			if err != nil {
				return Value{}, err
			}
			entries = append(entries, MapEntry{Key: String(fd.Name), Value: v})
		case slot != nil && slot.hasScalar:
			entries = append(entries, MapEntry{Key: String(fd.Name), Value: slot.scalarSingle})
		case fd.HasDefault:
			entries = append(entries, MapEntry{Key: String(fd.Name), Value: fd.Default})
		}
	}
	return Record(entries), nil
}

// DecodeMessage decodes a whole tag-format message from r, bounded only by
// stream end.
func DecodeMessage(reg *DescriptorRegistry, root *MessageDescriptor, r io.Reader, limits DecodeLimits) (Value, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Value{}, wrapErr(ErrIO, err, "read message bytes")
	}
	rr := NewReader(data)
	b := newMessageBuilder(reg, root, limits, 0)
	if err := b.decode(&rr); err != nil {
		return Value{}, err
	}
	return b.Finalize()
}

// DecodeMessageBytes decodes a whole tag-format message already held in
// memory, for callers that already have the bounded byte slice (e.g. a
// length-delimited field of an outer format).
func DecodeMessageBytes(reg *DescriptorRegistry, root *MessageDescriptor, data []byte, limits DecodeLimits) (Value, error) {
	rr := NewReader(data)
	b := newMessageBuilder(reg, root, limits, 0)
	if err := b.decode(&rr); err != nil {
		return Value{}, err
	}
	return b.Finalize()
}
