package recdec

import (
	"bufio"
	"bytes"
	"compress/flate"
	"encoding/binary"
	"hash/crc32"
	"io"

	"github.com/golang/snappy"
	"google.golang.org/protobuf/encoding/protowire"
)

// Codec identifies the compression applied to a row-format block's payload.
type Codec int

const (
	CodecNull Codec = iota
	CodecDeflate
	CodecSnappy
)

func (c Codec) String() string {
	switch c {
	case CodecNull:
		return "null"
	case CodecDeflate:
		return "deflate"
	case CodecSnappy:
		return "snappy"
	}
	return "unknown"
}

// ParseCodec interprets the codec identifier stored in a row-container
// header's "avro.codec" metadata entry. An absent identifier or the literal
// bytes "null" select CodecNull. "bzip2" and "xz" are recognized by name
// but are not implemented, so they report a clearer ErrUnsupportedCodec
// detail than an arbitrary unrecognized name would.
func ParseCodec(name []byte) (Codec, error) {
	switch string(name) {
	case "", "null":
		return CodecNull, nil
	case "deflate":
		return CodecDeflate, nil
	case "snappy":
		return CodecSnappy, nil
	case "bzip2", "xz":
		return 0, newErr(ErrUnsupportedCodec, "codec %q is a recognized name but is not implemented", name)
	default:
		return 0, newErr(ErrUnsupportedCodec, "unrecognized codec %q", name)
	}
}

// BlockReader implements the block-boundary streaming reader: it unframes
// and decompresses one row-format block at a time and exposes a single
// pull operation, Advance, that reports whether a next record is
// available.
type BlockReader struct {
	br     *bufio.Reader
	sync   [16]byte
	codec  Codec
	limits DecodeLimits

	remaining uint64
	buf       *blockBuffer
	body      Reader
}

// NewBlockReader constructs a BlockReader over r, which must begin at the
// first block (i.e. immediately after the container header and sync
// marker have already been consumed by the caller).
func NewBlockReader(r io.Reader, codec Codec, sync [16]byte, limits DecodeLimits) *BlockReader {
	return &BlockReader{
		br:     bufio.NewReader(r),
		sync:   sync,
		codec:  codec,
		limits: limits,
		buf:    getBlockBuffer(),
	}
}

// Close returns the reader's scratch buffer to the shared pool. The
// BlockReader must not be used afterward.
func (b *BlockReader) Close() {
	putBlockBuffer(b.buf)
	b.buf = nil
}

// Advance moves to the next record, re-filling from the next block when the
// current one is exhausted. It returns (true, nil) when a record is ready to
// read from Body, or (false, nil) when the stream ended cleanly at a block
// boundary (a benign end-of-stream, not an error).
func (b *BlockReader) Advance() (bool, error) {
	for b.remaining == 0 {
		ok, err := b.fillBlock()
		if err != nil || !ok {
			return false, err
		}
	}
	b.remaining--
	return true, nil
}

// Body returns the reader positioned over the current block's decompressed
// bytes; the caller is responsible for reading exactly one record from it
// per Advance call.
func (b *BlockReader) Body() *Reader { return &b.body }

// fillBlock reads one block header, decompresses its payload into the
// reusable scratch buffer, and verifies the trailing sync marker.
func (b *BlockReader) fillBlock() (bool, error) {
	count, clean, err := b.readStreamVarint()
	if err != nil {
		return false, err
	}
	if clean {
		return false, nil
	}
	signedCount := protowire.DecodeZigZag(count)
	if signedCount < 0 {
		return false, newErr(ErrNegativeLength, "block record count %d is negative", signedCount)
	}

	rawLen, _, err := b.readStreamVarint()
	if err != nil {
		return false, err
	}
	signedLen := protowire.DecodeZigZag(rawLen)
	if signedLen < 0 {
		return false, newErr(ErrNegativeLength, "block payload length %d is negative", signedLen)
	}
	if err := checkLimit(uint(signedLen), b.limits.MaxBlockSize, "compressed block payload"); err != nil {
		return false, err
	}

	payload := make([]byte, signedLen)
	if _, err := io.ReadFull(b.br, payload); err != nil {
		return false, wrapErr(ErrIO, unexpectedIfEOF(err), "read compressed block payload")
	}

	if err := b.decompress(payload); err != nil {
		return false, err
	}

	var marker [16]byte
	if _, err := io.ReadFull(b.br, marker[:]); err != nil {
		return false, wrapErr(ErrIO, unexpectedIfEOF(err), "read block sync marker")
	}
	if marker != b.sync {
		return false, newErr(ErrBadSync, "block sync marker does not match header marker")
	}

	b.remaining = uint64(signedCount)
	b.body = NewReader(b.buf.Bytes)
	return true, nil
}

// decompress fills b.buf with the decoded bytes of payload according to the
// reader's codec.
func (b *BlockReader) decompress(payload []byte) error {
	switch b.codec {
	case CodecNull:
		b.buf.grow(len(payload))
		b.buf.Bytes = append(b.buf.Bytes, payload...)
		return nil

	case CodecDeflate:
		return b.decompressDeflate(payload)

	case CodecSnappy:
		return b.decompressSnappy(payload)
	}
	return newErr(ErrUnsupportedCodec, "codec %v has no decompressor", b.codec)
}

// decompressDeflate inflates a raw (no zlib wrapper) DEFLATE stream.
func (b *BlockReader) decompressDeflate(payload []byte) error {
	fr := flate.NewReader(bytes.NewReader(payload))
	defer fr.Close()

	b.buf.grow(len(payload) * 2)
	limit := int64(b.limits.MaxBlockSize)
	if limit == 0 {
		limit = 1 << 62
	}
	out := bytes.NewBuffer(b.buf.Bytes)
	n, err := io.Copy(out, io.LimitReader(fr, limit+1))
	if err != nil {
		return wrapErr(ErrIO, err, "inflate deflate block")
	}
	if n > limit {
		return newErr(ErrLimitExceeded, "decompressed block exceeds limit %d", limit)
	}
	b.buf.Bytes = out.Bytes()
	return nil
}

// decompressSnappy decodes a Snappy block. The on-wire payload includes a
// trailing 4 big-endian CRC32 bytes: the snappy-compressed data itself is
// payload[:len-4], and the last 4 bytes are the CRC to verify against.
func (b *BlockReader) decompressSnappy(payload []byte) error {
	if len(payload) < 4 {
		return newErr(ErrBadCRC, "snappy block too short to contain a trailing CRC")
	}
	body := payload[:len(payload)-4]
	wantCRC := binary.BigEndian.Uint32(payload[len(payload)-4:])

	n, err := snappy.DecodedLen(body)
	if err != nil {
		return wrapErr(ErrIO, err, "read snappy decoded length")
	}
	if err := checkLimit(uint(n), b.limits.MaxBlockSize, "decompressed snappy block"); err != nil {
		return err
	}

	b.buf.grow(n)
	dst := b.buf.Bytes[:n]
	decoded, err := snappy.Decode(dst, body)
	if err != nil {
		return wrapErr(ErrIO, err, "decode snappy block")
	}

	if gotCRC := crc32.ChecksumIEEE(decoded); gotCRC != wantCRC {
		return newErr(ErrBadCRC, "snappy block crc32 %#x does not match wire value %#x", gotCRC, wantCRC)
	}

	b.buf.Bytes = decoded
	return nil
}

// readStreamVarint reads a raw (not ZigZag-decoded) varint directly from the
// underlying stream, one byte at a time, so that a clean end-of-stream can
// be distinguished from a truncated one: if the very first byte hits EOF,
// the stream has ended cleanly at a block boundary; any
// EOF after that point is unexpected.
func (b *BlockReader) readStreamVarint() (v uint64, cleanEOF bool, err error) {
	return readStreamVarintFrom(b.br)
}

// readStreamVarintFrom reads a raw (not ZigZag-decoded) varint one byte at
// a time directly from br, distinguishing a clean end-of-stream (EOF on the
// very first byte) from a truncated one. Shared by BlockReader's block
// headers and the row-container header's own metadata map, which is
// encoded with the same row-format primitives ahead of any block framing.
func readStreamVarintFrom(br *bufio.Reader) (v uint64, cleanEOF bool, err error) {
	var shift uint
	for i := 0; i < 10; i++ {
		c, rerr := br.ReadByte()
		if rerr != nil {
			if rerr == io.EOF {
				if i == 0 {
					return 0, true, nil
				}
				return 0, false, wrapErr(ErrIO, io.ErrUnexpectedEOF, "truncated varint in block header")
			}
			return 0, false, wrapErr(ErrIO, rerr, "read block header varint")
		}
		if i == 9 && c&0xFE != 0 {
			return 0, false, newErr(ErrIntegerOverflow, "block header varint's tenth byte has invalid bits")
		}
		v |= uint64(c&0x7F) << shift
		if c&0x80 == 0 {
			return v, false, nil
		}
		shift += 7
	}
	return 0, false, newErr(ErrIntegerOverflow, "block header varint exceeds 10 bytes")
}

func unexpectedIfEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
