package btree

// Cursor walks the records of one tree in ascending key order. COW nodes
// carry no sibling links, so the cursor keeps the root-to-leaf path as a
// stack of frames. A Cursor is not safe for concurrent use; different
// cursors over the same tree are independent.
type Cursor struct {
	t      *Tree
	root   int64
	stack  []frame
	err    error
	closed bool
}

// frame is one level of the path. For an internal node pos is the child
// being visited; for a leaf it is the next record to return.
type frame struct {
	n   *Node
	pos int
}

// Cursor returns a cursor over the tree rooted at root, positioned before
// the first record.
func (t *Tree) Cursor(root int64) *Cursor {
	c := &Cursor{t: t, root: root}
	c.First()
	return c
}

// First positions the cursor at the smallest key.
func (c *Cursor) First() error {
	return c.Seek(nil)
}

// Seek positions the cursor so the next record returned is the smallest
// with a key >= key.
func (c *Cursor) Seek(key []byte) error {
	c.stack = c.stack[:0]
	c.err = nil
	if c.closed || c.root == 0 {
		return nil
	}

	n, err := c.t.Node(c.root)
	for err == nil && !n.leaf {
		i := n.childIndex(key)
		c.stack = append(c.stack, frame{n: n, pos: i})
		n, err = c.t.resolve(n.kids[i])
	}
	if err != nil {
		c.fail(err)
		return err
	}
	i, _ := n.search(key)
	c.stack = append(c.stack, frame{n: n, pos: i})
	return nil
}

// Next returns the record at the cursor and advances past it. It returns
// false once the tree is exhausted or a read fails; Err tells the two apart.
// The returned slices are shared with the node cache and must not be
// modified.
func (c *Cursor) Next() (Record, bool) {
	for len(c.stack) > 0 {
		top := &c.stack[len(c.stack)-1]
		if top.n.leaf {
			if top.pos < len(top.n.keys) {
				rec := Record{Key: top.n.keys[top.pos], Value: top.n.vals[top.pos]}
				top.pos++
				return rec, true
			}
			c.stack = c.stack[:len(c.stack)-1]
			continue
		}

		top.pos++
		if top.pos >= len(top.n.kids) {
			c.stack = c.stack[:len(c.stack)-1]
			continue
		}
		if err := c.descendFirst(top.n.kids[top.pos]); err != nil {
			c.fail(err)
			return Record{}, false
		}
	}
	return Record{}, false
}

// descendFirst pushes the leftmost path of the subtree at r.
func (c *Cursor) descendFirst(r ref) error {
	n, err := c.t.resolve(r)
	if err != nil {
		return err
	}
	for !n.leaf {
		c.stack = append(c.stack, frame{n: n, pos: 0})
		if n, err = c.t.resolve(n.kids[0]); err != nil {
			return err
		}
	}
	c.stack = append(c.stack, frame{n: n, pos: 0})
	return nil
}

func (c *Cursor) fail(err error) {
	c.err = err
	c.stack = c.stack[:0]
}

// Err returns the read error that ended iteration, if any.
func (c *Cursor) Err() error {
	return c.err
}

// Close releases the cursor's path. Further calls to Next return false.
func (c *Cursor) Close() {
	c.closed = true
	c.stack = nil
}
