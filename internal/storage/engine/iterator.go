package engine

import (
	"github.com/KilimcininKorOglu/aodb/internal/data"
	"github.com/KilimcininKorOglu/aodb/internal/storage/btree"
)

// Iterator walks the records of one version in ascending key order.
// Iterators are independent of each other and of later writes. An Iterator
// is not safe for concurrent use.
type Iterator struct {
	v Version
	c *btree.Cursor
}

// NewIterator returns an iterator positioned at the first key of v.
func (db *DB) NewIterator(v Version) (*Iterator, error) {
	root, err := db.root(v)
	if err != nil {
		return nil, err
	}
	return &Iterator{v: v, c: db.tree.Cursor(root)}, nil
}

// IterateFrom returns an iterator positioned at the smallest key >= key.
func (db *DB) IterateFrom(v Version, key []byte) (*Iterator, error) {
	it, err := db.NewIterator(v)
	if err != nil {
		return nil, err
	}
	if err := it.Goto(key); err != nil {
		it.Close()
		return nil, err
	}
	return it, nil
}

// Goto repositions the iterator at the smallest key >= key. A nil key
// rewinds to the first record.
func (it *Iterator) Goto(key []byte) error {
	return it.c.Seek(key)
}

// Next returns a copy of the next record. It returns false when the version
// is exhausted or a read failed; check Err.
func (it *Iterator) Next() (Record, bool) {
	rec, ok := it.c.Next()
	if !ok {
		return Record{}, false
	}
	return Record{Key: data.Clone(rec.Key), Value: data.Clone(rec.Value)}, true
}

// Err returns the error that ended iteration, if any.
func (it *Iterator) Err() error {
	return it.c.Err()
}

// Version returns the version being iterated.
func (it *Iterator) Version() Version {
	return it.v
}

// Close releases the iterator.
func (it *Iterator) Close() {
	it.c.Close()
}

// Scan calls fn for each record of v with key >= start, in order, until fn
// returns false.
func (db *DB) Scan(v Version, start []byte, fn func(Record) bool) error {
	it, err := db.IterateFrom(v, start)
	if err != nil {
		return err
	}
	defer it.Close()
	for {
		rec, ok := it.Next()
		if !ok {
			return it.Err()
		}
		if !fn(rec) {
			return nil
		}
	}
}
