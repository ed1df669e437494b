// Package btree implements the copy-on-write B+ tree that holds every version
// of the key space.
//
// # Overview
//
// Nodes live in the append-only store and are immutable once written. A tree
// is named by the offset of its root node record; offset 0 is the empty tree.
// Mutations never touch existing nodes:
//
//   - Insert copies the root-to-leaf path, splitting overfull nodes on the way
//     back up and growing a new root when the old one splits
//   - Delete copies the path and repairs underfull nodes by borrowing from or
//     merging with a sibling, collapsing a root left with one child
//
// Every unmodified subtree is shared between the old and the new tree.
//
// # Usage
//
//	b := tree.Begin(root)
//	if err := b.Set([]byte("k"), []byte("v")); err != nil { ... }
//	err := store.Update(func(batch *storage.Batch) error {
//	    newRoot = b.Flush(batch)
//	    return nil
//	})
//
// Reads take the root explicitly and need no locking:
//
//	v, ok, err := tree.Get(root, []byte("k"))
//
//	c := tree.Cursor(root)
//	c.Seek([]byte("a"))
//	for rec, ok := c.Next(); ok; rec, ok = c.Next() { ... }
//
// # Serialization
//
// A leaf is 'l', a uvarint record count and the length-prefixed keys and
// values. An internal node is 'b', a uvarint child count, the first child
// offset and then separator/child-offset pairs. Children are always written
// before their parent, so every child offset is smaller than the parent's.
package btree
