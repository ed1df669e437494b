package storage

import (
	"github.com/cockroachdb/errors"
)

// Replayer receives every complete record found when a store is opened or
// catches up with appends made by other processes, in file order. The payload
// is only valid for the duration of the call.
type Replayer interface {
	Replay(off int64, kind Kind, payload []byte) error
}

// ReplayFunc adapts a function to the Replayer interface.
type ReplayFunc func(off int64, kind Kind, payload []byte) error

// Replay calls f.
func (f ReplayFunc) Replay(off int64, kind Kind, payload []byte) error {
	return f(off, kind, payload)
}

// scanRecords walks the records in buf, whose first byte sits at file offset
// base, from file offset start. It returns the offset just past the last
// complete record.
//
// Algorithm:
//  1. A remainder shorter than a frame, or made only of zero bytes, is a torn
//     tail and ends the scan.
//  2. A frame whose payload runs past the end is a torn tail.
//  3. A frame with an unknown kind or a bad checksum is corruption when an
//     intact head record follows it and a torn tail otherwise. Nothing past
//     the last head record has been synced.
//  4. Everything else is handed to the replayer.
func scanRecords(buf []byte, base, start int64, r Replayer) (int64, error) {
	pos := start
	end := base + int64(len(buf))
	for pos < end {
		rest := buf[pos-base:]
		if len(rest) < RecordHeaderSize || allZero(rest) {
			return pos, nil
		}

		f := parseFrame(rest)
		if f.size() > int64(len(rest)) {
			return pos, nil
		}

		payload := rest[RecordHeaderSize:f.size()]
		if !f.kind.Valid() || recordChecksum(f.kind, payload) != f.crc {
			if at := findHead(rest[1:]); at >= 0 {
				return pos, errors.Wrapf(ErrCorrupt, "bad %s record at offset %d before head record at offset %d",
					f.kind, pos, pos+1+int64(at))
			}
			return pos, nil
		}

		if r != nil {
			if err := r.Replay(pos, f.kind, payload); err != nil {
				return pos, errors.Wrapf(err, "replay %s record at offset %d", f.kind, pos)
			}
		}
		pos += f.size()
	}
	return pos, nil
}

// findHead returns the position of the first intact head record framed
// anywhere in buf, or -1.
func findHead(buf []byte) int {
	for i := 0; i+RecordHeaderSize <= len(buf); i++ {
		if Kind(buf[i]) != KindHead {
			continue
		}
		f := parseFrame(buf[i:])
		if f.size() > int64(len(buf)-i) {
			continue
		}
		if recordChecksum(f.kind, buf[i+RecordHeaderSize:i+int(f.size())]) == f.crc {
			return i
		}
	}
	return -1
}

func allZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
