// Package changeset collects a batch of key mutations to apply as one new
// version.
package changeset

import (
	"github.com/google/btree"

	"github.com/KilimcininKorOglu/aodb/internal/data"
)

const degree = 16

// Change is a pending mutation of one key. Remove changes carry no value.
type Change struct {
	Key    []byte
	Value  []byte
	Remove bool
}

func less(a, b Change) bool {
	return data.Less(a.Key, b.Key)
}

// Changeset is an ordered set of changes with at most one change per key:
// a later change to a key replaces the earlier one. The zero value is not
// usable; call New. A Changeset is not safe for concurrent use.
type Changeset struct {
	tree *btree.BTreeG[Change]
}

// New returns an empty Changeset.
func New() *Changeset {
	return &Changeset{tree: btree.NewG(degree, less)}
}

// Set records that key should hold value.
func (c *Changeset) Set(key, value []byte) {
	c.tree.ReplaceOrInsert(Change{Key: data.Clone(key), Value: data.Clone(value)})
}

// Remove records that key should be absent.
func (c *Changeset) Remove(key []byte) {
	c.tree.ReplaceOrInsert(Change{Key: data.Clone(key), Remove: true})
}

// Get returns the pending change for key, if any.
func (c *Changeset) Get(key []byte) (Change, bool) {
	return c.tree.Get(Change{Key: key})
}

// Len returns the number of keys with a pending change.
func (c *Changeset) Len() int {
	return c.tree.Len()
}

// Merge adds every change in other, which wins over changes already here.
func (c *Changeset) Merge(other *Changeset) {
	other.tree.Ascend(func(ch Change) bool {
		c.tree.ReplaceOrInsert(ch)
		return true
	})
}

// Ascend calls fn for each change in key order until fn returns false.
func (c *Changeset) Ascend(fn func(Change) bool) {
	c.tree.Ascend(fn)
}

// Clear drops all pending changes.
func (c *Changeset) Clear() {
	c.tree.Clear(false)
}
