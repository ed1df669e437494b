package mvcc

import (
	"github.com/cockroachdb/errors"

	"github.com/KilimcininKorOglu/aodb/internal/data"
	"github.com/KilimcininKorOglu/aodb/internal/storage"
)

// Version identifies an immutable snapshot of the key space: the offset of
// its version record.
type Version int64

// Origin is the empty database every version descends from.
const Origin Version = 0

// Version errors.
var (
	ErrInvalidVersion = errors.New("invalid version")
)

// versionRecordSize is the payload size of a version record.
const versionRecordSize = 2 * data.Uint64Size

// EncodeVersion builds the payload of a version record.
// Layout: parent version (u64 BE) | root node offset (u64 BE).
func EncodeVersion(parent Version, root int64) []byte {
	buf := make([]byte, 0, versionRecordSize)
	buf = data.AppendUint64(buf, uint64(parent))
	return data.AppendUint64(buf, uint64(root))
}

// DecodeVersion parses the payload of a version record.
func DecodeVersion(p []byte) (parent Version, root int64, err error) {
	if len(p) != versionRecordSize {
		return 0, 0, errors.Wrapf(storage.ErrCorrupt, "version record is %d bytes", len(p))
	}
	par, _ := data.ReadUint64(p)
	r, _ := data.ReadUint64(p[data.Uint64Size:])
	return Version(par), int64(r), nil
}

// EncodeHead builds the payload of a head record.
func EncodeHead(v Version) []byte {
	return data.AppendUint64(make([]byte, 0, data.Uint64Size), uint64(v))
}

// DecodeHead parses the payload of a head record.
func DecodeHead(p []byte) (Version, error) {
	if len(p) != data.Uint64Size {
		return 0, errors.Wrapf(storage.ErrCorrupt, "head record is %d bytes", len(p))
	}
	v, _ := data.ReadUint64(p)
	return Version(v), nil
}
