// Package data implements the byte-string codec shared by every on-disk
// structure: ordering, length-prefixed encoding and the fixed-width integers
// used for offsets.
package data

import (
	"bytes"
	"encoding/binary"

	"github.com/cockroachdb/errors"
)

// Uint64Size is the encoded width of an offset or version id.
const Uint64Size = 8

// Errors returned by the decoders.
var (
	ErrMalformed = errors.New("malformed data encoding")
	ErrShort     = errors.New("data encoding truncated")
)

// Compare orders a and b lexicographically by unsigned byte value. A proper
// prefix sorts before the longer string.
func Compare(a, b []byte) int {
	return bytes.Compare(a, b)
}

// Less reports whether a sorts strictly before b.
func Less(a, b []byte) bool {
	return bytes.Compare(a, b) < 0
}

// Equal reports whether a and b hold the same bytes. Nil and empty are equal.
func Equal(a, b []byte) bool {
	return bytes.Equal(a, b)
}

// Clone returns a copy of d that does not alias the input. The copy of an
// empty string is a non-nil empty slice.
func Clone(d []byte) []byte {
	out := make([]byte, len(d))
	copy(out, d)
	return out
}

// EncodedLen returns the number of bytes Append writes for d.
func EncodedLen(d []byte) int {
	var tmp [binary.MaxVarintLen64]byte
	return binary.PutUvarint(tmp[:], uint64(len(d))) + len(d)
}

// Append appends the self-delimiting encoding of d (uvarint length, then the
// bytes) to dst.
func Append(dst, d []byte) []byte {
	dst = binary.AppendUvarint(dst, uint64(len(d)))
	return append(dst, d...)
}

// Read decodes one string from the front of src and returns it with the
// number of bytes consumed. The returned slice aliases src.
func Read(src []byte) ([]byte, int, error) {
	n, w := binary.Uvarint(src)
	switch {
	case w == 0:
		return nil, 0, ErrShort
	case w < 0:
		return nil, 0, errors.Wrap(ErrMalformed, "length overflows uint64")
	}
	if n > uint64(len(src)-w) {
		return nil, 0, errors.Wrapf(ErrShort, "need %d bytes, have %d", n, len(src)-w)
	}
	end := w + int(n)
	return src[w:end:end], end, nil
}

// AppendUvarint appends a uvarint count to dst.
func AppendUvarint(dst []byte, v uint64) []byte {
	return binary.AppendUvarint(dst, v)
}

// ReadUvarint decodes a uvarint count from the front of src.
func ReadUvarint(src []byte) (uint64, int, error) {
	n, w := binary.Uvarint(src)
	switch {
	case w == 0:
		return 0, 0, ErrShort
	case w < 0:
		return 0, 0, errors.Wrap(ErrMalformed, "count overflows uint64")
	}
	return n, w, nil
}

// AppendUint64 appends v as 8 big-endian bytes.
func AppendUint64(dst []byte, v uint64) []byte {
	return binary.BigEndian.AppendUint64(dst, v)
}

// ReadUint64 decodes 8 big-endian bytes from the front of src.
func ReadUint64(src []byte) (uint64, error) {
	if len(src) < Uint64Size {
		return 0, ErrShort
	}
	return binary.BigEndian.Uint64(src), nil
}
