package recdec

import (
	"io"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// errUnexpectedEOF is the cause wrapped into ErrIO whenever a read runs off
// the end of a buffer mid-value, as opposed to at a clean record/block
// boundary (see ErrEOF).
var errUnexpectedEOF = io.ErrUnexpectedEOF

// ReadUvarint decodes an unsigned base-128 varint using
// protowire.ConsumeVarint for the bit-level accumulation. A ten-byte
// run whose tenth byte carries anything beyond its least-significant bit —
// or whose first ten bytes all carry the continuation bit — fails with
// ErrIntegerOverflow; running out of input before any terminator is seen
// fails with ErrIO wrapping io.ErrUnexpectedEOF.
func (r *Reader) ReadUvarint() (uint64, error) {
	buf := r.Remaining()
	v, n := protowire.ConsumeVarint(buf)
	if n < 0 {
		limit := len(buf)
		if limit > 10 {
			limit = 10
		}
		for i := 0; i < limit; i++ {
			if buf[i]&0x80 == 0 {
				// A terminator exists within 10 bytes yet protowire still
				// rejected the run: the high bits of the final byte carry
				// more than the spec allows.
				return 0, newErr(ErrIntegerOverflow, "varint terminates with invalid high bits in byte %d", i)
			}
		}
		if len(buf) < 10 {
			return 0, wrapErr(ErrIO, errUnexpectedEOF, "truncated varint after %d bytes", len(buf))
		}
		return 0, newErr(ErrIntegerOverflow, "varint exceeds 10 bytes without a valid terminator")
	}
	r.position += n
	return v, nil
}

// ReadZigZag decodes a ZigZag-mapped signed 64-bit integer: the unsigned
// varint `n` maps to `!(n>>1)` when `n` is odd, or `n>>1` when `n` is even.
// Total and idempotent inverse of the ZigZag encoder for every 64-bit
// unsigned input.
func (r *Reader) ReadZigZag() (int64, error) {
	u, err := r.ReadUvarint()
	if err != nil {
		return 0, err
	}
	return protowire.DecodeZigZag(u), nil
}

// ReadSignedInt32 decodes a ZigZag signed 64-bit integer and range-checks it
// to fit a signed 32-bit value, failing with ErrIntegerOverflow otherwise —
// the row format's "int" schema type.
func (r *Reader) ReadSignedInt32() (int32, error) {
	v, err := r.ReadZigZag()
	if err != nil {
		return 0, err
	}
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, newErr(ErrIntegerOverflow, "value %d does not fit in int32", v)
	}
	return int32(v), nil
}

// readRawFixed32 decodes a little-endian 32-bit quantity without
// interpreting it, for callers that need the raw bits (tag-format fixed32/
// sfixed32/float fields all share this wire encoding).
func (r *Reader) readRawFixed32() (uint32, error) {
	bits, n := protowire.ConsumeFixed32(r.Remaining())
	if n < 0 {
		return 0, wrapErr(ErrIO, errUnexpectedEOF, "truncated fixed32")
	}
	r.position += n
	return bits, nil
}

// readRawFixed64 decodes a little-endian 64-bit quantity without
// interpreting it, for callers that need the raw bits (tag-format fixed64/
// sfixed64/double fields all share this wire encoding).
func (r *Reader) readRawFixed64() (uint64, error) {
	bits, n := protowire.ConsumeFixed64(r.Remaining())
	if n < 0 {
		return 0, wrapErr(ErrIO, errUnexpectedEOF, "truncated fixed64")
	}
	r.position += n
	return bits, nil
}

// ReadFloat32 decodes a little-endian IEEE-754 32-bit float. NaN and
// infinities pass through unchanged.
func (r *Reader) ReadFloat32() (float32, error) {
	bits, err := r.readRawFixed32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(bits), nil
}

// ReadFloat64 decodes a little-endian IEEE-754 64-bit float. NaN and
// infinities pass through unchanged.
func (r *Reader) ReadFloat64() (float64, error) {
	bits, err := r.readRawFixed64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(bits), nil
}

// ReadLengthPrefix decodes a ZigZag signed 64-bit length and rejects
// negative values with ErrNegativeLength.
func (r *Reader) ReadLengthPrefix() (int64, error) {
	l, err := r.ReadZigZag()
	if err != nil {
		return 0, err
	}
	if l < 0 {
		return 0, newErr(ErrNegativeLength, "length prefix %d is negative", l)
	}
	return l, nil
}
