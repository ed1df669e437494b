package btree

import (
	"github.com/cockroachdb/errors"

	"github.com/KilimcininKorOglu/aodb/internal/data"
)

// ErrInvariant is returned by Check for a structurally invalid tree.
var ErrInvariant = errors.New("tree invariant violated")

// Check walks the tree rooted at root and verifies key order, separator
// bounds, non-empty nodes and that all leaves sit at the same depth. With
// strict set it also enforces this Tree's fan-out limits, which only holds
// for trees written with the same options.
func (t *Tree) Check(root int64, strict bool) error {
	if root == 0 {
		return nil
	}
	leafDepth := -1

	var walk func(off int64, depth int, lo, hi []byte, hasLo, isRoot bool) error
	walk = func(off int64, depth int, lo, hi []byte, hasLo, isRoot bool) error {
		n, err := t.Node(off)
		if err != nil {
			return err
		}
		for _, k := range n.keys {
			if hasLo && data.Less(k, lo) {
				return errors.Wrapf(ErrInvariant, "node %d: key %q below bound %q", off, k, lo)
			}
			if hi != nil && !data.Less(k, hi) {
				return errors.Wrapf(ErrInvariant, "node %d: key %q not below bound %q", off, k, hi)
			}
		}

		if n.leaf {
			if len(n.keys) == 0 {
				return errors.Wrapf(ErrInvariant, "leaf %d is empty", off)
			}
			if strict && !isRoot && (len(n.keys) < t.minLeaf || len(n.keys) > t.maxLeaf) {
				return errors.Wrapf(ErrInvariant, "leaf %d holds %d records", off, len(n.keys))
			}
			if leafDepth == -1 {
				leafDepth = depth
			} else if depth != leafDepth {
				return errors.Wrapf(ErrInvariant, "leaf %d at depth %d, expected %d", off, depth, leafDepth)
			}
			return nil
		}

		if len(n.kids) < 2 {
			return errors.Wrapf(ErrInvariant, "internal node %d has %d children", off, len(n.kids))
		}
		if strict && !isRoot && (len(n.kids) < t.minKids || len(n.kids) > t.maxKids) {
			return errors.Wrapf(ErrInvariant, "internal node %d has %d children", off, len(n.kids))
		}
		for i, k := range n.kids {
			clo, chasLo := lo, hasLo
			if i > 0 {
				clo, chasLo = n.keys[i-1], true
			}
			chi := hi
			if i < len(n.keys) {
				chi = n.keys[i]
			}
			if err := walk(k.off, depth+1, clo, chi, chasLo, false); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(root, 0, nil, nil, false, true)
}
