package btree

import (
	"github.com/KilimcininKorOglu/aodb/internal/data"
	"github.com/KilimcininKorOglu/aodb/internal/storage"
)

// Builder stages mutations against a base tree. New nodes stay in memory
// until Flush writes them; the base tree is never modified. A Builder is not
// safe for concurrent use and must not be reused after Flush.
type Builder struct {
	t       *Tree
	base    int64
	root    ref
	changed bool
}

// Begin starts a Builder on the tree rooted at root.
func (t *Tree) Begin(root int64) *Builder {
	return &Builder{t: t, base: root, root: ref{off: root}}
}

// Base returns the root the builder started from.
func (b *Builder) Base() int64 {
	return b.base
}

// Changed reports whether any staged mutation altered the tree.
func (b *Builder) Changed() bool {
	return b.changed
}

func (b *Builder) empty() bool {
	return b.root.node == nil && b.root.off == 0
}

// Set stores value under key, replacing any existing value.
//
// Algorithm:
//  1. Descend from the root, copying every node on the path
//  2. Insert or replace the record in the leaf copy
//  3. On the way back up split any copy that overflowed and insert the
//     separator into its parent copy
//  4. If the root split, grow a new root above both halves
func (b *Builder) Set(key, value []byte) error {
	key, value = data.Clone(key), data.Clone(value)

	if b.empty() {
		b.root = ref{node: &Node{leaf: true, keys: [][]byte{key}, vals: [][]byte{value}}}
		b.changed = true
		return nil
	}

	root, err := b.t.resolve(b.root)
	if err != nil {
		return err
	}
	n, sep, right, err := b.insert(root, key, value)
	if err != nil {
		return err
	}
	if right != nil {
		n = &Node{
			keys: [][]byte{sep},
			kids: []ref{{node: n}, {node: right}},
		}
	}
	b.root = ref{node: n}
	b.changed = true
	return nil
}

// insert returns the staged replacement for n and, when it split, the
// separator and the new right sibling.
func (b *Builder) insert(n *Node, key, value []byte) (*Node, []byte, *Node, error) {
	if n.leaf {
		c := mutable(n)
		if i, found := c.search(key); found {
			c.vals[i] = value
		} else {
			c.insertRecord(i, key, value)
		}
		if len(c.keys) > b.t.maxLeaf {
			sep, right := splitLeaf(c)
			return c, sep, right, nil
		}
		return c, nil, nil, nil
	}

	i := n.childIndex(key)
	kid, err := b.t.resolve(n.kids[i])
	if err != nil {
		return nil, nil, nil, err
	}
	nk, sep, right, err := b.insert(kid, key, value)
	if err != nil {
		return nil, nil, nil, err
	}

	c := mutable(n)
	c.kids[i] = ref{node: nk}
	if right != nil {
		c.insertChild(i, sep, ref{node: right})
	}
	if len(c.kids) > b.t.maxKids {
		sep, right := splitInternal(c)
		return c, sep, right, nil
	}
	return c, nil, nil, nil
}

// splitLeaf moves the upper half of n into a new leaf and returns the
// separator (the new leaf's first key) with the new leaf.
func splitLeaf(n *Node) ([]byte, *Node) {
	mid := len(n.keys) / 2
	right := &Node{
		leaf: true,
		keys: append([][]byte(nil), n.keys[mid:]...),
		vals: append([][]byte(nil), n.vals[mid:]...),
	}
	n.keys = n.keys[:mid:mid]
	n.vals = n.vals[:mid:mid]
	return right.keys[0], right
}

// splitInternal moves the upper half of n's children into a new node. The
// separator between the halves moves up to the parent.
func splitInternal(n *Node) ([]byte, *Node) {
	mid := len(n.kids) / 2
	sep := n.keys[mid-1]
	right := &Node{
		keys: append([][]byte(nil), n.keys[mid:]...),
		kids: append([]ref(nil), n.kids[mid:]...),
	}
	n.keys = n.keys[: mid-1 : mid-1]
	n.kids = n.kids[:mid:mid]
	return sep, right
}

// Flush stages every unwritten node reachable from the new root on batch,
// children before parents, and returns the new root offset (0 for an empty
// tree). Written nodes enter the node cache once the batch commits.
func (b *Builder) Flush(batch *storage.Batch) int64 {
	if b.empty() {
		return 0
	}
	var written []*Node
	off := b.flush(batch, b.root, &written)
	b.root = ref{off: off}
	batch.OnCommit(func() { b.t.publish(written) })
	return off
}

func (b *Builder) flush(batch *storage.Batch, r ref, written *[]*Node) int64 {
	if r.node == nil {
		return r.off
	}
	n := r.node
	if n.off != 0 {
		return n.off
	}
	for i := range n.kids {
		n.kids[i] = ref{off: b.flush(batch, n.kids[i], written)}
	}
	n.off = batch.Add(storage.KindNode, n.encode())
	*written = append(*written, n)
	return n.off
}
