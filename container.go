package recdec

import (
	"bufio"
	"io"

	"google.golang.org/protobuf/encoding/protowire"
)

// containerMagic is the fixed 4-byte header every row container must
// begin with.
var containerMagic = [4]byte{'O', 'b', 'j', 0x01}

// Container is the pull-based reader for a self-describing row container:
// magic bytes, a header metadata map carrying the embedded schema and
// optional codec, a sync marker, then a sequence of blocks each holding
// schema-directed records.
type Container struct {
	reg    *SchemaRegistry
	root   SchemaRef
	blocks *BlockReader
	limits DecodeLimits
	sync   [16]byte
	meta   map[string][]byte
}

// OpenContainer reads and validates a row container's header from r and
// returns a Container positioned at the first block.
func OpenContainer(r io.Reader, limits DecodeLimits) (*Container, error) {
	br := bufio.NewReader(r)

	var magic [4]byte
	if _, err := io.ReadFull(br, magic[:]); err != nil {
		return nil, wrapErr(ErrIO, unexpectedIfEOF(err), "read container magic")
	}
	if magic != containerMagic {
		return nil, newErr(ErrBadFileMagic, "magic bytes %q do not match \"Obj\\x01\"", magic[:])
	}

	meta, err := readHeaderMetadata(br, limits)
	if err != nil {
		return nil, err
	}

	schemaText, ok := meta["avro.schema"]
	if !ok {
		return nil, newErr(ErrNoSchema, "header metadata missing required key \"avro.schema\"")
	}
	reg, root, err := ParseSchema(schemaText)
	if err != nil {
		return nil, err
	}

	codec := CodecNull
	if codecName, ok := meta["avro.codec"]; ok {
		codec, err = ParseCodec(codecName)
		if err != nil {
			return nil, err
		}
	}

	var sync [16]byte
	if _, err := io.ReadFull(br, sync[:]); err != nil {
		return nil, wrapErr(ErrIO, unexpectedIfEOF(err), "read header sync marker")
	}

	return &Container{
		reg:    reg,
		root:   root,
		blocks: NewBlockReader(br, codec, sync, limits),
		limits: limits,
		sync:   sync,
		meta:   meta,
	}, nil
}

// Schema exposes the parsed row-schema registry and the root type reference
// named by the container's embedded schema.
func (c *Container) Schema() (*SchemaRegistry, SchemaRef) { return c.reg, c.root }

// Metadata returns the raw header metadata map, including any producer-
// defined keys beyond avro.schema/avro.codec.
func (c *Container) Metadata() map[string][]byte { return c.meta }

// SyncMarker returns the 16-byte marker captured from the header, the same
// value re-verified after every block.
func (c *Container) SyncMarker() [16]byte { return c.sync }

// Next decodes the next record. It returns (value, true, nil) when a
// record was produced, or (Value{}, false, nil) at a clean end of stream.
func (c *Container) Next() (Value, bool, error) {
	ok, err := c.blocks.Advance()
	if err != nil || !ok {
		return Value{}, false, err
	}
	v, err := DecodeRecord(c.reg, c.root, c.blocks.Body(), c.limits)
	if err != nil {
		return Value{}, false, err
	}
	return v, true, nil
}

// Close releases the container's internal scratch buffer. The Container
// must not be used afterward.
func (c *Container) Close() { c.blocks.Close() }

// readHeaderMetadata decodes the header's map<string,bytes>, itself encoded
// with the row format's own block-prefix rule, directly off the stream
// ahead of any block/codec framing.
func readHeaderMetadata(br *bufio.Reader, limits DecodeLimits) (map[string][]byte, error) {
	meta := make(map[string][]byte)
	for {
		raw, clean, err := readStreamVarintFrom(br)
		if err != nil {
			return nil, err
		}
		if clean {
			return nil, wrapErr(ErrIO, io.ErrUnexpectedEOF, "stream ended before header metadata map")
		}
		count := protowire.DecodeZigZag(raw)
		if count == 0 {
			break
		}
		if count < 0 {
			count = -count
			if _, _, err := readStreamVarintFrom(br); err != nil { // discarded block byte-size
				return nil, err
			}
		}
		if err := checkLimit(uint(len(meta))+uint(count), limits.MaxCollectionLen, "header metadata map"); err != nil {
			return nil, err
		}
		for i := int64(0); i < count; i++ {
			key, err := readStreamLengthPrefixed(br, limits)
			if err != nil {
				return nil, err
			}
			val, err := readStreamLengthPrefixed(br, limits)
			if err != nil {
				return nil, err
			}
			meta[string(key)] = val
		}
	}
	return meta, nil
}

func readStreamLengthPrefixed(br *bufio.Reader, limits DecodeLimits) ([]byte, error) {
	raw, clean, err := readStreamVarintFrom(br)
	if err != nil {
		return nil, err
	}
	if clean {
		return nil, wrapErr(ErrIO, io.ErrUnexpectedEOF, "stream ended mid length-prefix")
	}
	length := protowire.DecodeZigZag(raw)
	if length < 0 {
		return nil, newErr(ErrNegativeLength, "header metadata length %d is negative", length)
	}
	if err := checkLimit(uint(length), limits.MaxStringLen, "header metadata entry"); err != nil {
		return nil, err
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(br, buf); err != nil {
		return nil, wrapErr(ErrIO, unexpectedIfEOF(err), "read header metadata entry")
	}
	return buf, nil
}
