package storage

import (
	"encoding/binary"
	"hash/crc32"
)

// Record framing constants.
const (
	// RecordHeaderSize is the size of the frame in front of every payload.
	// Layout:
	//   - Byte 0:    Kind
	//   - Bytes 1-4: Payload length (uint32 LE)
	//   - Bytes 5-8: CRC-32 of kind and payload (uint32 LE)
	RecordHeaderSize = 9

	// MaxPayloadSize bounds a single record payload.
	MaxPayloadSize = 1<<31 - 1
)

// Kind identifies what a record payload holds.
type Kind byte

const (
	// KindNode is an encoded B-tree node.
	KindNode Kind = 'n'
	// KindVersion is a version record: parent version and root node offset.
	KindVersion Kind = 'v'
	// KindHead is a commit marker naming the new current version.
	KindHead Kind = 'h'
)

// String returns the string representation of a Kind.
func (k Kind) String() string {
	switch k {
	case KindNode:
		return "node"
	case KindVersion:
		return "version"
	case KindHead:
		return "head"
	default:
		return "unknown"
	}
}

// Valid reports whether k is a known record kind.
func (k Kind) Valid() bool {
	return k == KindNode || k == KindVersion || k == KindHead
}

type frame struct {
	kind   Kind
	length uint32
	crc    uint32
}

func (f frame) size() int64 {
	return RecordHeaderSize + int64(f.length)
}

func parseFrame(buf []byte) frame {
	return frame{
		kind:   Kind(buf[0]),
		length: binary.LittleEndian.Uint32(buf[1:5]),
		crc:    binary.LittleEndian.Uint32(buf[5:9]),
	}
}

func recordChecksum(kind Kind, payload []byte) uint32 {
	crc := crc32.Update(0, crc32.IEEETable, []byte{byte(kind)})
	return crc32.Update(crc, crc32.IEEETable, payload)
}

func appendRecord(dst []byte, kind Kind, payload []byte) []byte {
	var hdr [RecordHeaderSize]byte
	hdr[0] = byte(kind)
	binary.LittleEndian.PutUint32(hdr[1:5], uint32(len(payload)))
	binary.LittleEndian.PutUint32(hdr[5:9], recordChecksum(kind, payload))
	dst = append(dst, hdr[:]...)
	return append(dst, payload...)
}
