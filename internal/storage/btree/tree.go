package btree

import (
	"github.com/cockroachdb/errors"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/KilimcininKorOglu/aodb/internal/metrics"
	"github.com/KilimcininKorOglu/aodb/internal/storage"
)

// Fan-out defaults and limits.
const (
	// DefaultMaxLeafKeys is the default leaf capacity.
	DefaultMaxLeafKeys = 64

	// DefaultMaxChildren is the default internal node fan-out.
	DefaultMaxChildren = 64

	// DefaultCacheSize is the default number of decoded nodes kept in memory.
	DefaultCacheSize = 4096

	// MinMaxLeafKeys is the smallest accepted leaf capacity.
	MinMaxLeafKeys = 4

	// MinMaxChildren is the smallest accepted internal fan-out.
	MinMaxChildren = 3
)

// Tree errors.
var (
	ErrInvalidOptions = errors.New("invalid tree options")
	ErrNotNode        = errors.New("offset does not hold a node record")
)

// Source reads records by offset. *storage.Store implements it.
type Source interface {
	Read(off int64) (storage.Kind, []byte, error)
}

// Options configures a Tree.
type Options struct {
	// MaxLeafKeys is the most records a leaf holds before it splits.
	MaxLeafKeys int

	// MaxChildren is the most children an internal node holds before it splits.
	MaxChildren int

	// CacheSize is the number of decoded nodes cached. Negative disables the cache.
	CacheSize int

	// Metrics receives cache hit and miss counts.
	Metrics *metrics.Metrics
}

// Tree reads and builds copy-on-write B+ trees over a Source. It holds no
// root of its own and is safe for concurrent use.
type Tree struct {
	src     Source
	cache   *lru.Cache[int64, *Node]
	maxLeaf int
	maxKids int
	minLeaf int
	minKids int
	m       *metrics.Metrics
}

// New creates a Tree. Zero option fields take their defaults.
func New(src Source, opts Options) (*Tree, error) {
	if opts.MaxLeafKeys == 0 {
		opts.MaxLeafKeys = DefaultMaxLeafKeys
	}
	if opts.MaxChildren == 0 {
		opts.MaxChildren = DefaultMaxChildren
	}
	if opts.CacheSize == 0 {
		opts.CacheSize = DefaultCacheSize
	}
	if opts.MaxLeafKeys < MinMaxLeafKeys {
		return nil, errors.Wrapf(ErrInvalidOptions, "max leaf keys %d below %d", opts.MaxLeafKeys, MinMaxLeafKeys)
	}
	if opts.MaxChildren < MinMaxChildren {
		return nil, errors.Wrapf(ErrInvalidOptions, "max children %d below %d", opts.MaxChildren, MinMaxChildren)
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New(nil)
	}

	t := &Tree{
		src:     src,
		maxLeaf: opts.MaxLeafKeys,
		maxKids: opts.MaxChildren,
		minLeaf: (opts.MaxLeafKeys + 1) / 2,
		minKids: (opts.MaxChildren + 1) / 2,
		m:       opts.Metrics,
	}
	if opts.CacheSize > 0 {
		cache, err := lru.New[int64, *Node](opts.CacheSize)
		if err != nil {
			return nil, errors.Wrap(err, "node cache")
		}
		t.cache = cache
	}
	return t, nil
}

// Node loads the node written at off.
func (t *Tree) Node(off int64) (*Node, error) {
	if t.cache != nil {
		if n, ok := t.cache.Get(off); ok {
			t.m.NodeCacheHits.Inc()
			return n, nil
		}
		t.m.NodeCacheMisses.Inc()
	}

	kind, payload, err := t.src.Read(off)
	if err != nil {
		return nil, errors.Wrapf(err, "read node at %d", off)
	}
	if kind != storage.KindNode {
		return nil, errors.Mark(errors.Wrapf(ErrNotNode, "%s record at %d", kind, off), storage.ErrCorrupt)
	}
	n, err := decodeNode(off, payload)
	if err != nil {
		return nil, err
	}
	if t.cache != nil {
		t.cache.Add(off, n)
	}
	return n, nil
}

func (t *Tree) resolve(r ref) (*Node, error) {
	if r.node != nil {
		return r.node, nil
	}
	return t.Node(r.off)
}

func (t *Tree) publish(nodes []*Node) {
	if t.cache == nil {
		return
	}
	for _, n := range nodes {
		t.cache.Add(n.off, n)
	}
}

// Get returns the value stored under key in the tree rooted at root.
func (t *Tree) Get(root int64, key []byte) ([]byte, bool, error) {
	if root == 0 {
		return nil, false, nil
	}
	n, err := t.Node(root)
	if err != nil {
		return nil, false, err
	}
	for !n.leaf {
		if n, err = t.resolve(n.kids[n.childIndex(key)]); err != nil {
			return nil, false, err
		}
	}
	i, found := n.search(key)
	if !found {
		return nil, false, nil
	}
	return n.vals[i], true, nil
}

// Has reports whether key is present in the tree rooted at root.
func (t *Tree) Has(root int64, key []byte) (bool, error) {
	_, ok, err := t.Get(root, key)
	return ok, err
}

// Stats describes the shape of one tree.
type Stats struct {
	Height        int
	LeafNodes     int
	InternalNodes int
	Keys          int
}

// Stats walks the whole tree rooted at root.
func (t *Tree) Stats(root int64) (Stats, error) {
	var s Stats
	if root == 0 {
		return s, nil
	}
	var walk func(off int64, depth int) error
	walk = func(off int64, depth int) error {
		n, err := t.Node(off)
		if err != nil {
			return err
		}
		if depth > s.Height {
			s.Height = depth
		}
		if n.leaf {
			s.LeafNodes++
			s.Keys += len(n.keys)
			return nil
		}
		s.InternalNodes++
		for _, k := range n.kids {
			if err := walk(k.off, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	return s, walk(root, 1)
}
