package btree

// Delete removes key. It reports false, and stages nothing, when the key is
// absent.
//
// Algorithm:
//  1. Descend to the leaf holding the key; stop early if it is not there
//  2. Remove the record from a copy of the leaf
//  3. On the way back up, if a child copy fell below half full:
//     a. Borrow one entry from the left sibling, or the right one if there
//     is no left sibling, when that sibling can spare it
//     b. Otherwise merge the child with that sibling
//  4. Collapse a root left with a single child; an empty root leaf becomes
//     the empty tree
func (b *Builder) Delete(key []byte) (bool, error) {
	if b.empty() {
		return false, nil
	}
	root, err := b.t.resolve(b.root)
	if err != nil {
		return false, err
	}
	n, removed, err := b.remove(root, key)
	if err != nil || !removed {
		return false, err
	}

	for !n.leaf && len(n.kids) == 1 {
		if n, err = b.t.resolve(n.kids[0]); err != nil {
			return false, err
		}
	}
	switch {
	case n.leaf && len(n.keys) == 0:
		b.root = ref{}
	case n.off != 0:
		b.root = ref{off: n.off}
	default:
		b.root = ref{node: n}
	}
	b.changed = true
	return true, nil
}

func (b *Builder) remove(n *Node, key []byte) (*Node, bool, error) {
	if n.leaf {
		i, found := n.search(key)
		if !found {
			return n, false, nil
		}
		c := mutable(n)
		c.removeRecord(i)
		return c, true, nil
	}

	i := n.childIndex(key)
	kid, err := b.t.resolve(n.kids[i])
	if err != nil {
		return nil, false, err
	}
	nk, removed, err := b.remove(kid, key)
	if err != nil || !removed {
		return n, false, err
	}

	c := mutable(n)
	c.kids[i] = ref{node: nk}
	if b.underflow(nk) {
		if err := b.rebalance(c, i); err != nil {
			return nil, false, err
		}
	}
	return c, true, nil
}

func (b *Builder) underflow(n *Node) bool {
	if n.leaf {
		return len(n.keys) < b.t.minLeaf
	}
	return len(n.kids) < b.t.minKids
}

func (b *Builder) canSpare(n *Node) bool {
	if n.leaf {
		return len(n.keys) > b.t.minLeaf
	}
	return len(n.kids) > b.t.minKids
}

// rebalance repairs the underfull staged child at parent.kids[i].
func (b *Builder) rebalance(parent *Node, i int) error {
	kid := parent.kids[i].node

	if i > 0 {
		left, err := b.t.resolve(parent.kids[i-1])
		if err != nil {
			return err
		}
		if b.canSpare(left) {
			parent.kids[i-1] = ref{node: borrowFromLeft(parent, i, mutable(left), kid)}
			return nil
		}
		merge(parent, i-1, left, kid)
		return nil
	}

	right, err := b.t.resolve(parent.kids[i+1])
	if err != nil {
		return err
	}
	if b.canSpare(right) {
		parent.kids[i+1] = ref{node: borrowFromRight(parent, i, kid, mutable(right))}
		return nil
	}
	merge(parent, i, kid, right)
	return nil
}

// borrowFromLeft moves the last entry of left to the front of kid, where
// left and kid are parent.kids[i-1] and parent.kids[i]. Both are staged.
func borrowFromLeft(parent *Node, i int, left, kid *Node) *Node {
	last := len(left.keys) - 1
	if kid.leaf {
		kid.insertRecord(0, left.keys[last], left.vals[last])
		left.removeRecord(last)
		parent.keys[i-1] = kid.keys[0]
		return left
	}

	lastKid := left.kids[len(left.kids)-1]
	kid.keys = append([][]byte{parent.keys[i-1]}, kid.keys...)
	kid.kids = append([]ref{lastKid}, kid.kids...)
	parent.keys[i-1] = left.keys[last]
	left.keys = left.keys[:last]
	left.kids = left.kids[:len(left.kids)-1]
	return left
}

// borrowFromRight moves the first entry of right to the end of kid, where
// kid and right are parent.kids[i] and parent.kids[i+1]. Both are staged.
func borrowFromRight(parent *Node, i int, kid, right *Node) *Node {
	if kid.leaf {
		kid.keys = append(kid.keys, right.keys[0])
		kid.vals = append(kid.vals, right.vals[0])
		right.removeRecord(0)
		parent.keys[i] = right.keys[0]
		return right
	}

	kid.keys = append(kid.keys, parent.keys[i])
	kid.kids = append(kid.kids, right.kids[0])
	parent.keys[i] = right.keys[0]
	right.keys = right.keys[1:]
	right.kids = right.kids[1:]
	return right
}

// merge replaces parent.kids[j] and parent.kids[j+1] with one new node
// holding the entries of both.
func merge(parent *Node, j int, left, right *Node) {
	m := &Node{leaf: left.leaf}
	if left.leaf {
		m.keys = append(append(make([][]byte, 0, len(left.keys)+len(right.keys)), left.keys...), right.keys...)
		m.vals = append(append(make([][]byte, 0, len(left.vals)+len(right.vals)), left.vals...), right.vals...)
	} else {
		m.keys = make([][]byte, 0, len(left.keys)+len(right.keys)+1)
		m.keys = append(append(append(m.keys, left.keys...), parent.keys[j]), right.keys...)
		m.kids = append(append(make([]ref, 0, len(left.kids)+len(right.kids)), left.kids...), right.kids...)
	}
	parent.kids[j] = ref{node: m}
	parent.removeChild(j)
}
