package recdec

import "unicode/utf8"

// DecodeRecord decodes exactly one top-level value from r under root,
// resolved against reg. This is the row-container decoder's single entry
// point: the caller supplies one block's worth of decompressed bytes
// positioned at a record boundary.
func DecodeRecord(reg *SchemaRegistry, root SchemaRef, r *Reader, limits DecodeLimits) (Value, error) {
	return decodeValue(reg, reg.Resolve(root), r, limits, 0)
}

// decodeValue is fully recursive over schema structure: the shape of the
// produced Value follows the schema exactly, with no coercion.
func decodeValue(reg *SchemaRegistry, schema *Schema, r *Reader, limits DecodeLimits, depth int) (Value, error) {
	if err := checkLimit(uint(depth), limits.MaxDepth, "schema nesting depth"); err != nil {
		return Value{}, err
	}

	switch schema.Kind {
	case SchemaNull:
		return Null(), nil

	case SchemaBoolean:
		b, err := r.ReadByte()
		if err != nil {
			return Value{}, err
		}
		switch b {
		case 0:
			return Bool(false), nil
		case 1:
			return Bool(true), nil
		}
		return Value{}, newErr(ErrFieldTypeMismatch, "boolean byte %#x is neither 0 nor 1", b)

	case SchemaInt32:
		v, err := r.ReadSignedInt32()
		if err != nil {
			return Value{}, err
		}
		return Int32(v), nil

	case SchemaInt64:
		v, err := r.ReadZigZag()
		if err != nil {
			return Value{}, err
		}
		return Int64(v), nil

	case SchemaFloat32:
		f, err := r.ReadFloat32()
		if err != nil {
			return Value{}, err
		}
		return Float32Value(f), nil

	case SchemaFloat64:
		f, err := r.ReadFloat64()
		if err != nil {
			return Value{}, err
		}
		return Float64Value(f), nil

	case SchemaBytes:
		b, err := readLengthPrefixedBytes(r, limits)
		if err != nil {
			return Value{}, err
		}
		return Bytes(b), nil

	case SchemaString:
		b, err := readLengthPrefixedBytes(r, limits)
		if err != nil {
			return Value{}, err
		}
		if !utf8.Valid(b) {
			return Value{}, newErr(ErrUTF8, "string value is not valid UTF-8")
		}
		return String(string(b)), nil

	case SchemaFixed:
		if schema.Size < 0 {
			return Value{}, newErr(ErrNegativeLength, "fixed %q has negative size", schema.FullName)
		}
		b, err := r.Read(schema.Size)
		if err != nil {
			return Value{}, err
		}
		return Bytes(append([]byte(nil), b...)), nil

	case SchemaEnum:
		idx, err := r.ReadSignedInt32()
		if err != nil {
			return Value{}, err
		}
		if idx < 0 || int(idx) >= len(schema.Symbols) {
			return Value{}, newErr(ErrUnknownEnumValue, "enum %q has no symbol at index %d", schema.FullName, idx)
		}
		return String(schema.Symbols[idx]), nil

	case SchemaRecord:
		return decodeRecordFields(reg, schema, r, limits, depth)

	case SchemaArray:
		return decodeArray(reg, schema, r, limits, depth)

	case SchemaMap:
		return decodeMap(reg, schema, r, limits, depth)

	case SchemaUnion:
		return decodeUnion(reg, schema, r, limits, depth)
	}

	return Value{}, newErr(ErrInvalidSchema, "schema kind %v has no decode procedure", schema.Kind)
}

func readLengthPrefixedBytes(r *Reader, limits DecodeLimits) ([]byte, error) {
	length, err := r.ReadLengthPrefix()
	if err != nil {
		return nil, err
	}
	if err := checkLimit(uint(length), limits.MaxStringLen, "length-prefixed value"); err != nil {
		return nil, err
	}
	b, err := r.Read(int(length))
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), b...), nil
}

func decodeRecordFields(reg *SchemaRegistry, schema *Schema, r *Reader, limits DecodeLimits, depth int) (Value, error) {
	entries := make([]MapEntry, 0, len(schema.Fields))
	for _, field := range schema.Fields {
		fieldSchema := reg.Resolve(field.Type)
		v, err := decodeValue(reg, fieldSchema, r, limits, depth+1)
		if err != nil {
			return Value{}, err
		}
		entries = append(entries, MapEntry{Key: String(field.Name), Value: v})
	}
	return Record(entries), nil
}

// decodeArray implements the block-prefix rule: a sequence of one or more
// blocks terminated by a zero-count block. A negative count block's |n|
// items are followed immediately by a discarded byte-size, enabling a
// reader to skip the block without decoding its elements.
func decodeArray(reg *SchemaRegistry, schema *Schema, r *Reader, limits DecodeLimits, depth int) (Value, error) {
	elemSchema := reg.Resolve(*schema.Element)
	var items []Value
	for {
		n, err := r.ReadZigZag()
		if err != nil {
			return Value{}, err
		}
		if n == 0 {
			break
		}
		count := n
		if count < 0 {
			count = -count
			if _, err := r.ReadZigZag(); err != nil { // discarded block byte-size
				return Value{}, err
			}
		}
		if err := checkLimit(uint(len(items))+uint(count), limits.MaxCollectionLen, "array"); err != nil {
			return Value{}, err
		}
		for i := int64(0); i < count; i++ {
			v, err := decodeValue(reg, elemSchema, r, limits, depth+1)
			if err != nil {
				return Value{}, err
			}
			items = append(items, v)
		}
	}
	return Sequence(items), nil
}

// decodeMap implements the same block-prefix rule as decodeArray, but each
// entry is a string key followed by a value under the map's value schema.
func decodeMap(reg *SchemaRegistry, schema *Schema, r *Reader, limits DecodeLimits, depth int) (Value, error) {
	valueSchema := reg.Resolve(*schema.Element)
	var entries []MapEntry
	for {
		n, err := r.ReadZigZag()
		if err != nil {
			return Value{}, err
		}
		if n == 0 {
			break
		}
		count := n
		if count < 0 {
			count = -count
			if _, err := r.ReadZigZag(); err != nil {
				return Value{}, err
			}
		}
		if err := checkLimit(uint(len(entries))+uint(count), limits.MaxCollectionLen, "map"); err != nil {
			return Value{}, err
		}
		for i := int64(0); i < count; i++ {
			keyBytes, err := readLengthPrefixedBytes(r, limits)
			if err != nil {
				return Value{}, err
			}
			if !utf8.Valid(keyBytes) {
				return Value{}, newErr(ErrUTF8, "map key is not valid UTF-8")
			}
			v, err := decodeValue(reg, valueSchema, r, limits, depth+1)
			if err != nil {
				return Value{}, err
			}
			entries = append(entries, MapEntry{Key: String(string(keyBytes)), Value: v})
		}
	}
	return Map(entries), nil
}

// decodeUnion reads a signed branch index followed by a value decoded under
// the selected branch's schema. The result takes the branch's own shape:
// there is no union wrapper in the emitted Value.
func decodeUnion(reg *SchemaRegistry, schema *Schema, r *Reader, limits DecodeLimits, depth int) (Value, error) {
	idx, err := r.ReadZigZag()
	if err != nil {
		return Value{}, err
	}
	if idx < 0 || int(idx) >= len(schema.Branches) {
		return Value{}, newErr(ErrFieldTypeMismatch, "union branch index %d out of range [0,%d)", idx, len(schema.Branches))
	}
	branch := reg.Resolve(schema.Branches[idx])
	return decodeValue(reg, branch, r, limits, depth+1)
}
