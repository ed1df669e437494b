package tx

import (
	"github.com/cockroachdb/errors"

	"github.com/KilimcininKorOglu/aodb/internal/logging"
	"github.com/KilimcininKorOglu/aodb/internal/metrics"
	"github.com/KilimcininKorOglu/aodb/internal/storage"
	"github.com/KilimcininKorOglu/aodb/internal/storage/mvcc"
)

// Updater runs an exclusive append batch. *storage.Store implements it.
type Updater interface {
	Update(fn func(b *storage.Batch) error) error
}

// Committer moves the current version forward.
type Committer struct {
	store    Updater
	versions *mvcc.Manager
	log      logging.Logger
	m        *metrics.Metrics
}

// NewCommitter creates a Committer. log and m may be nil.
func NewCommitter(store Updater, versions *mvcc.Manager, log logging.Logger, m *metrics.Metrics) *Committer {
	if log == nil {
		log = logging.NewNop()
	}
	if m == nil {
		m = metrics.New(nil)
	}
	return &Committer{store: store, versions: versions, log: log, m: m}
}

// Commit makes v the current version if v is based on the current version.
// It returns false, with no state change, when another commit got there
// first and v does not descend from it. Committing the current version
// succeeds without writing anything.
//
// Algorithm (inside the store's exclusive section):
//  1. Reject unknown versions with mvcc.ErrInvalidVersion
//  2. Read the current version; if v is not based on it, report a conflict
//  3. Sync everything already written, append a head record naming v, sync
//  4. Once the record is on disk, move the in-memory current pointer
func (c *Committer) Commit(v mvcc.Version) (bool, error) {
	result := metrics.CommitConflict
	var prev mvcc.Version

	err := c.store.Update(func(b *storage.Batch) error {
		if !c.versions.Valid(v) {
			return errors.Wrapf(mvcc.ErrInvalidVersion, "commit of unknown version %d", v)
		}

		prev = c.versions.Current()
		if v == prev {
			result = metrics.CommitNoop
			return nil
		}
		ok, err := c.versions.IsBasedOn(v, prev)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		b.SyncBefore()
		b.Add(storage.KindHead, mvcc.EncodeHead(v))
		b.Sync()
		b.OnCommit(func() {
			// v was validated above and versions are never forgotten.
			_ = c.versions.SetCurrent(v)
			c.m.CurrentVersion.Set(float64(v))
		})
		result = metrics.CommitApplied
		return nil
	})
	if err != nil {
		return false, err
	}

	c.m.ObserveCommit(result)
	switch result {
	case metrics.CommitConflict:
		c.log.Debug("commit conflict", "version", int64(v), "current", int64(prev))
		return false, nil
	case metrics.CommitApplied:
		c.log.Debug("committed", "version", int64(v), "previous", int64(prev))
	}
	return true, nil
}
