package btree

import (
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/KilimcininKorOglu/aodb/internal/data"
	"github.com/KilimcininKorOglu/aodb/internal/storage"
)

// Node kind bytes at the start of every encoded node.
const (
	leafTag     = 'l'
	internalTag = 'b'
)

// Record is a key-value pair stored in a leaf.
type Record struct {
	Key   []byte
	Value []byte
}

// ref points at a child either on disk (off) or staged in memory (node).
// After a flush only off is kept so written nodes never pin their children.
type ref struct {
	off  int64
	node *Node
}

// Node is a B+ tree node. A node with a non-zero offset has been written and
// is never modified again; a node with offset zero is staged by a Builder.
type Node struct {
	leaf bool

	// keys holds record keys for a leaf. For an internal node keys[i] is
	// above every key under kids[i] and at most the smallest key under
	// kids[i+1], so len(keys) == len(kids)-1.
	keys [][]byte

	// vals is parallel to keys (leaf only).
	vals [][]byte

	// kids holds child references (internal only).
	kids []ref

	// off is the offset of the node record, or 0 while staged.
	off int64
}

// IsLeaf reports whether n is a leaf.
func (n *Node) IsLeaf() bool {
	return n.leaf
}

// Len returns the number of records in a leaf or children in an internal node.
func (n *Node) Len() int {
	if n.leaf {
		return len(n.keys)
	}
	return len(n.kids)
}

// Offset returns the node's record offset, 0 if it has not been written.
func (n *Node) Offset() int64 {
	return n.off
}

// search returns the position of the first key >= key and whether it is an
// exact match.
func (n *Node) search(key []byte) (int, bool) {
	i := sort.Search(len(n.keys), func(i int) bool {
		return data.Compare(n.keys[i], key) >= 0
	})
	return i, i < len(n.keys) && data.Equal(n.keys[i], key)
}

// childIndex returns the child of an internal node whose range holds key:
// the number of separators <= key.
func (n *Node) childIndex(key []byte) int {
	return sort.Search(len(n.keys), func(i int) bool {
		return data.Compare(n.keys[i], key) > 0
	})
}

// clone returns a staged copy of n. Key and value bytes are shared; only the
// slices are copied.
func (n *Node) clone() *Node {
	c := &Node{leaf: n.leaf}
	c.keys = append(make([][]byte, 0, len(n.keys)+1), n.keys...)
	if n.leaf {
		c.vals = append(make([][]byte, 0, len(n.vals)+1), n.vals...)
	} else {
		c.kids = append(make([]ref, 0, len(n.kids)+1), n.kids...)
	}
	return c
}

// mutable returns n itself when it is staged, otherwise a staged copy.
func mutable(n *Node) *Node {
	if n.off == 0 {
		return n
	}
	return n.clone()
}

func (n *Node) insertRecord(i int, key, val []byte) {
	n.keys = append(n.keys, nil)
	copy(n.keys[i+1:], n.keys[i:])
	n.keys[i] = key
	n.vals = append(n.vals, nil)
	copy(n.vals[i+1:], n.vals[i:])
	n.vals[i] = val
}

func (n *Node) removeRecord(i int) {
	n.keys = append(n.keys[:i], n.keys[i+1:]...)
	n.vals = append(n.vals[:i], n.vals[i+1:]...)
}

// insertChild places sep at keys[i] and r at kids[i+1].
func (n *Node) insertChild(i int, sep []byte, r ref) {
	n.keys = append(n.keys, nil)
	copy(n.keys[i+1:], n.keys[i:])
	n.keys[i] = sep
	n.kids = append(n.kids, ref{})
	copy(n.kids[i+2:], n.kids[i+1:])
	n.kids[i+1] = r
}

// removeChild drops keys[i] and kids[i+1].
func (n *Node) removeChild(i int) {
	n.keys = append(n.keys[:i], n.keys[i+1:]...)
	n.kids = append(n.kids[:i+1], n.kids[i+2:]...)
}

// encode serialises a node whose children all have offsets.
// Leaf:     'l' | uvarint count | (key, value)*
// Internal: 'b' | uvarint children | u64 child0 | (separator, u64 child)*
func (n *Node) encode() []byte {
	size := 1 + 10
	for i := range n.keys {
		size += data.EncodedLen(n.keys[i])
		if n.leaf {
			size += data.EncodedLen(n.vals[i])
		}
	}
	size += len(n.kids) * data.Uint64Size

	buf := make([]byte, 0, size)
	if n.leaf {
		buf = append(buf, leafTag)
		buf = data.AppendUvarint(buf, uint64(len(n.keys)))
		for i := range n.keys {
			buf = data.Append(buf, n.keys[i])
			buf = data.Append(buf, n.vals[i])
		}
		return buf
	}

	buf = append(buf, internalTag)
	buf = data.AppendUvarint(buf, uint64(len(n.kids)))
	buf = data.AppendUint64(buf, uint64(n.kids[0].off))
	for i, sep := range n.keys {
		buf = data.Append(buf, sep)
		buf = data.AppendUint64(buf, uint64(n.kids[i+1].off))
	}
	return buf
}

// decodeNode parses the payload of the node record at off and checks its
// structure: keys strictly increasing and every child written before it.
func decodeNode(off int64, p []byte) (*Node, error) {
	if len(p) == 0 {
		return nil, errors.Wrapf(storage.ErrCorrupt, "empty node at %d", off)
	}
	n := &Node{off: off}
	tag := p[0]
	p = p[1:]

	count, w, err := data.ReadUvarint(p)
	if err != nil {
		return nil, corruptNode(off, err)
	}
	p = p[w:]
	if count > uint64(len(p)) {
		return nil, errors.Wrapf(storage.ErrCorrupt, "node at %d claims %d entries in %d bytes", off, count, len(p))
	}

	readKey := func() ([]byte, error) {
		k, w, err := data.Read(p)
		if err != nil {
			return nil, err
		}
		p = p[w:]
		return k, nil
	}
	readOff := func() (int64, error) {
		v, err := data.ReadUint64(p)
		if err != nil {
			return 0, err
		}
		p = p[data.Uint64Size:]
		kid := int64(v)
		if kid < storage.HeaderSize || kid >= off {
			return 0, errors.Newf("child offset %d not before parent", kid)
		}
		return kid, nil
	}

	switch tag {
	case leafTag:
		n.leaf = true
		n.keys = make([][]byte, 0, count)
		n.vals = make([][]byte, 0, count)
		for i := uint64(0); i < count; i++ {
			k, err := readKey()
			if err != nil {
				return nil, corruptNode(off, err)
			}
			v, err := readKey()
			if err != nil {
				return nil, corruptNode(off, err)
			}
			n.keys = append(n.keys, k)
			n.vals = append(n.vals, v)
		}
	case internalTag:
		if count < 1 {
			return nil, errors.Wrapf(storage.ErrCorrupt, "internal node at %d has no children", off)
		}
		n.kids = make([]ref, 0, count)
		n.keys = make([][]byte, 0, count-1)
		first, err := readOff()
		if err != nil {
			return nil, corruptNode(off, err)
		}
		n.kids = append(n.kids, ref{off: first})
		for i := uint64(1); i < count; i++ {
			k, err := readKey()
			if err != nil {
				return nil, corruptNode(off, err)
			}
			kid, err := readOff()
			if err != nil {
				return nil, corruptNode(off, err)
			}
			n.keys = append(n.keys, k)
			n.kids = append(n.kids, ref{off: kid})
		}
	default:
		return nil, errors.Wrapf(storage.ErrCorrupt, "unknown node tag %#x at %d", tag, off)
	}

	if len(p) != 0 {
		return nil, errors.Wrapf(storage.ErrCorrupt, "%d trailing bytes in node at %d", len(p), off)
	}
	for i := 1; i < len(n.keys); i++ {
		if !data.Less(n.keys[i-1], n.keys[i]) {
			return nil, errors.Wrapf(storage.ErrCorrupt, "keys out of order in node at %d", off)
		}
	}
	return n, nil
}

func corruptNode(off int64, err error) error {
	return errors.Mark(errors.Wrapf(err, "decode node at %d", off), storage.ErrCorrupt)
}
