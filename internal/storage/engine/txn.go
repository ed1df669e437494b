package engine

import (
	"github.com/cockroachdb/errors"
)

// ErrConflict is returned by Txn.Commit when another commit won the race.
var ErrConflict = errors.New("commit conflict")

// Txn is a mutable handle over the version API. Each write moves the handle
// to the version it produced; Commit publishes that version. A Txn is not
// safe for concurrent use.
type Txn struct {
	db   *DB
	base Version
	v    Version
}

// Begin starts a Txn on the current version.
func (db *DB) Begin() *Txn {
	cur := db.Current()
	return &Txn{db: db, base: cur, v: cur}
}

// BeginAt starts a Txn on version v.
func (db *DB) BeginAt(v Version) (*Txn, error) {
	if _, err := db.root(v); err != nil {
		return nil, err
	}
	return &Txn{db: db, base: v, v: v}, nil
}

// Base returns the version the Txn started from.
func (t *Txn) Base() Version { return t.base }

// Version returns the version holding the Txn's writes so far.
func (t *Txn) Version() Version { return t.v }

// Get reads key as seen by the Txn.
func (t *Txn) Get(key []byte) ([]byte, bool, error) {
	return t.db.Get(t.v, key)
}

// Has reports whether key is visible to the Txn.
func (t *Txn) Has(key []byte) (bool, error) {
	return t.db.Has(t.v, key)
}

// Set binds key to value.
func (t *Txn) Set(key, value []byte) error {
	v, err := t.db.Set(t.v, key, value)
	if err != nil {
		return err
	}
	t.v = v
	return nil
}

// Del removes key.
func (t *Txn) Del(key []byte) error {
	v, err := t.db.Del(t.v, key)
	if err != nil {
		return err
	}
	t.v = v
	return nil
}

// Commit publishes the Txn's version. On ErrConflict the Txn is unchanged;
// Reset and replay the writes to retry.
func (t *Txn) Commit() error {
	ok, err := t.db.Commit(t.v)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Wrapf(ErrConflict, "version %d is not based on current %d", t.v, t.db.Current())
	}
	t.base = t.v
	return nil
}

// Reset drops uncommitted writes and moves the Txn to the current version.
func (t *Txn) Reset() {
	cur := t.db.Current()
	t.base, t.v = cur, cur
}
