package storage

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"

	"github.com/cockroachdb/errors"
)

// File header constants.
const (
	// HeaderSize is the size of the file header. The first record starts here.
	HeaderSize = 16

	// CurrentVersion is the current file format version.
	CurrentVersion uint32 = 1
)

// Magic identifies an aodb file.
var Magic = [4]byte{'A', 'O', 'D', 'B'}

// FileHeader is the fixed prefix of every database file.
// Layout:
//   - Bytes 0-3:   Magic ("AODB")
//   - Bytes 4-7:   Version (uint32 LE)
//   - Bytes 8-11:  Flags (uint32 LE, reserved)
//   - Bytes 12-15: CRC-32 of bytes 0-11 (uint32 LE)
type FileHeader struct {
	Magic    [4]byte
	Version  uint32
	Flags    uint32
	Checksum uint32
}

// Errors for file header operations. Open marks all of them as ErrCorrupt.
var (
	ErrInvalidMagic       = errors.New("invalid magic number: not an aodb file")
	ErrUnsupportedVersion = errors.New("unsupported file format version")
	ErrHeaderChecksum     = errors.New("file header checksum mismatch")
	ErrInvalidHeaderSize  = errors.New("invalid header size")
)

// NewFileHeader returns the header written into a fresh database.
func NewFileHeader() *FileHeader {
	return &FileHeader{Magic: Magic, Version: CurrentVersion}
}

// Serialize encodes the header, filling in the checksum.
func (h *FileHeader) Serialize() []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[0:4], h.Magic[:])
	binary.LittleEndian.PutUint32(buf[4:8], h.Version)
	binary.LittleEndian.PutUint32(buf[8:12], h.Flags)
	h.Checksum = crc32.ChecksumIEEE(buf[0:12])
	binary.LittleEndian.PutUint32(buf[12:16], h.Checksum)
	return buf
}

// Deserialize decodes a header from buf without validating it.
func (h *FileHeader) Deserialize(buf []byte) error {
	if len(buf) < HeaderSize {
		return ErrInvalidHeaderSize
	}
	copy(h.Magic[:], buf[0:4])
	h.Version = binary.LittleEndian.Uint32(buf[4:8])
	h.Flags = binary.LittleEndian.Uint32(buf[8:12])
	h.Checksum = binary.LittleEndian.Uint32(buf[12:16])
	return nil
}

// Validate checks magic, version and checksum, in that order.
func (h *FileHeader) Validate() error {
	if h.Magic != Magic {
		return ErrInvalidMagic
	}
	if h.Version == 0 || h.Version > CurrentVersion {
		return errors.Wrapf(ErrUnsupportedVersion, "version %d", h.Version)
	}
	var buf [12]byte
	copy(buf[0:4], h.Magic[:])
	binary.LittleEndian.PutUint32(buf[4:8], h.Version)
	binary.LittleEndian.PutUint32(buf[8:12], h.Flags)
	if crc32.ChecksumIEEE(buf[:]) != h.Checksum {
		return ErrHeaderChecksum
	}
	return nil
}

// isHeaderPrefix reports whether buf is a proper prefix of a fresh header,
// which is what a crash during database creation leaves behind.
func isHeaderPrefix(buf []byte) bool {
	fresh := NewFileHeader().Serialize()
	return len(buf) < HeaderSize && bytes.Equal(buf, fresh[:len(buf)])
}
