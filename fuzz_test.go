package recdec

import "testing"

func FuzzReadUvarintRoundTrip(f *testing.F) {
	f.Add(uint64(0))
	f.Add(uint64(127))
	f.Add(uint64(128))
	f.Add(uint64(1) << 40)
	f.Add(^uint64(0))
	f.Fuzz(func(t *testing.T, v uint64) {
		buf := appendUvarint(nil, v)
		r := NewReader(buf)
		got, err := r.ReadUvarint()
		if err != nil {
			t.Fatalf("ReadUvarint(%d): %v", v, err)
		}
		if got != v {
			t.Fatalf("round-trip mismatch: encoded %d, decoded %d", v, got)
		}
		if !r.AtEnd() {
			t.Fatalf("reader left %d unread bytes after a single varint", r.Len())
		}
	})
}

func FuzzReadZigZagRoundTrip(f *testing.F) {
	f.Add(int64(0))
	f.Add(int64(-1))
	f.Add(int64(1))
	f.Add(int64(-1) << 62)
	f.Fuzz(func(t *testing.T, v int64) {
		buf := appendUvarint(nil, zigzagEncode(v))
		r := NewReader(buf)
		got, err := r.ReadZigZag()
		if err != nil {
			t.Fatalf("ReadZigZag(%d): %v", v, err)
		}
		if got != v {
			t.Fatalf("round-trip mismatch: encoded %d, decoded %d", v, got)
		}
	})
}

// FuzzReadLengthPrefixAccounting exercises invariant 2 (length accounting):
// a length-prefixed read must consume exactly the prefix plus its payload,
// or fail cleanly, never read past the buffer it was given.
func FuzzReadLengthPrefixAccounting(f *testing.F) {
	f.Add(int64(0), []byte{})
	f.Add(int64(3), []byte("abc"))
	f.Add(int64(-1), []byte{})
	f.Fuzz(func(t *testing.T, length int64, payload []byte) {
		buf := appendUvarint(nil, zigzagEncode(length))
		buf = append(buf, payload...)
		r := NewReader(buf)

		n, err := r.ReadLengthPrefix()
		if err != nil {
			var de *DecodeError
			if !asDecodeError(err, &de) {
				t.Fatalf("non-DecodeError from ReadLengthPrefix: %v", err)
			}
			return
		}
		if n < 0 {
			t.Fatal("ReadLengthPrefix must reject negative lengths rather than return one")
		}
		before := r.Position()
		data, err := r.Read(int(n))
		if err != nil {
			return // short payload is a legitimate truncation, not an accounting bug
		}
		if len(data) != int(n) {
			t.Fatalf("Read(%d) returned %d bytes", n, len(data))
		}
		if r.Position() != before+int(n) {
			t.Fatalf("position advanced by %d, want %d", r.Position()-before, n)
		}
	})
}
