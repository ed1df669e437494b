package storage

import (
	"github.com/cockroachdb/errors"
)

// Batch stages records for a single Store.Update. Offsets handed out by Add
// are final once the update succeeds.
type Batch struct {
	base    int64
	buf     []byte
	records []stagedRecord
	hooks   []func()
	err     error

	syncBefore bool
	sync       bool
}

type stagedRecord struct {
	kind Kind
	size int
}

// Add stages a record and returns the offset it will occupy.
func (b *Batch) Add(kind Kind, payload []byte) int64 {
	off := b.End()
	if len(payload) > MaxPayloadSize {
		if b.err == nil {
			b.err = errors.Wrapf(ErrTooLarge, "%d bytes", len(payload))
		}
		return off
	}
	b.buf = appendRecord(b.buf, kind, payload)
	b.records = append(b.records, stagedRecord{kind: kind, size: RecordHeaderSize + len(payload)})
	return off
}

// End returns the offset just past the last staged record.
func (b *Batch) End() int64 {
	return b.base + int64(len(b.buf))
}

// Len returns the number of staged records.
func (b *Batch) Len() int {
	return len(b.records)
}

// SyncBefore makes everything already in the file durable before the batch
// is written.
func (b *Batch) SyncBefore() {
	b.syncBefore = true
}

// Sync makes the batch durable before Update returns.
func (b *Batch) Sync() {
	b.sync = true
}

// OnCommit registers fn to run once the batch has been written.
func (b *Batch) OnCommit(fn func()) {
	b.hooks = append(b.hooks, fn)
}
