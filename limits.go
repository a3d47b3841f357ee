package recdec

// DecodeLimits bounds the resources a single decode operation may consume,
// guarding against hostile or corrupt input inflating allocations before any
// structural validation has happened.
type DecodeLimits struct {
	// MaxDepth bounds recursive descent into nested records/messages,
	// arrays, maps and unions. Guards against schema or wire-data cycles
	// that would otherwise blow the Go call stack.
	MaxDepth uint

	// MaxStringLen bounds the length, in bytes, of any single decoded
	// string or bytes value of the row format, including row-container
	// header metadata entries. The tag-format decoder does not apply it to
	// length-delimited fields.
	MaxStringLen uint

	// MaxCollectionLen bounds the element count of any single array,
	// map, or repeated field accepted from a length/count prefix before
	// the elements themselves are read, so a single small prefix cannot
	// force a huge upfront allocation.
	MaxCollectionLen uint

	// MaxBlockSize bounds the decompressed size of a single row-format
	// block.
	MaxBlockSize uint
}

// DefaultLimits provides sensible defaults for decoding data from sources
// that are trusted but not infinite.
var DefaultLimits = DecodeLimits{
	MaxDepth:         200,
	MaxStringLen:     64 * 1024 * 1024,  // 64MB
	MaxCollectionLen: 10_000_000,
	MaxBlockSize:     256 * 1024 * 1024, // 256MB
}

// checkLimit returns a DecodeError if n exceeds max (a limit of 0 means
// unbounded), otherwise nil.
func checkLimit(n, max uint, what string) error {
	if max != 0 && n > max {
		return newErr(ErrLimitExceeded, "%s length %d exceeds limit %d", what, n, max)
	}
	return nil
}
