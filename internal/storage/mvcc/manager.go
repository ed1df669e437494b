package mvcc

import (
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"

	"github.com/KilimcininKorOglu/aodb/internal/storage"
)

type entry struct {
	root   int64
	parent Version
	depth  int
}

// Manager indexes every version in the file and holds the current one.
// It is safe for concurrent use.
type Manager struct {
	mu       sync.RWMutex
	versions map[Version]entry

	current atomic.Int64
}

// NewManager returns a Manager that knows only the origin.
func NewManager() *Manager {
	return &Manager{versions: make(map[Version]entry)}
}

// Register records version id with its tree root and parent. The parent must
// already be known and precede id.
func (m *Manager) Register(id Version, root int64, parent Version) error {
	if id <= Origin {
		return errors.Wrapf(ErrInvalidVersion, "version id %d", id)
	}
	if parent >= id {
		return errors.Wrapf(ErrInvalidVersion, "parent %d does not precede version %d", parent, id)
	}
	if root < 0 || Version(root) >= id {
		return errors.Wrapf(ErrInvalidVersion, "root %d does not precede version %d", root, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	depth := 0
	if parent != Origin {
		p, ok := m.versions[parent]
		if !ok {
			return errors.Wrapf(ErrInvalidVersion, "unknown parent %d of version %d", parent, id)
		}
		depth = p.depth
	}
	e := entry{root: root, parent: parent, depth: depth + 1}
	if old, ok := m.versions[id]; ok {
		if old != e {
			return errors.Wrapf(ErrInvalidVersion, "version %d registered twice", id)
		}
		return nil
	}
	m.versions[id] = e
	return nil
}

func (m *Manager) lookup(v Version) (entry, error) {
	if v == Origin {
		return entry{}, nil
	}
	m.mu.RLock()
	e, ok := m.versions[v]
	m.mu.RUnlock()
	if !ok {
		return entry{}, errors.Wrapf(ErrInvalidVersion, "unknown version %d", v)
	}
	return e, nil
}

// Valid reports whether v is the origin or a registered version.
func (m *Manager) Valid(v Version) bool {
	_, err := m.lookup(v)
	return err == nil
}

// Root returns the tree root of v; 0 is the empty tree.
func (m *Manager) Root(v Version) (int64, error) {
	e, err := m.lookup(v)
	return e.root, err
}

// Previous returns the version v was derived from. The origin is its own
// predecessor.
func (m *Manager) Previous(v Version) (Version, error) {
	e, err := m.lookup(v)
	return e.parent, err
}

// Depth returns the number of steps from v back to the origin.
func (m *Manager) Depth(v Version) (int, error) {
	e, err := m.lookup(v)
	return e.depth, err
}

// IsBasedOn reports whether ancestor is v or lies on v's parent chain. Every
// version is based on the origin.
func (m *Manager) IsBasedOn(v, ancestor Version) (bool, error) {
	ev, err := m.lookup(v)
	if err != nil {
		return false, err
	}
	ea, err := m.lookup(ancestor)
	if err != nil {
		return false, err
	}

	switch {
	case ancestor == Origin, v == ancestor:
		return true, nil
	case v < ancestor, ev.depth <= ea.depth:
		return false, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	for ev.depth > ea.depth {
		v = ev.parent
		ev = m.versions[v]
	}
	return v == ancestor, nil
}

// Chain returns v followed by its ancestors, nearest first, stopping before
// the origin or after limit entries when limit > 0.
func (m *Manager) Chain(v Version, limit int) ([]Version, error) {
	if _, err := m.lookup(v); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Version
	for v != Origin && (limit <= 0 || len(out) < limit) {
		out = append(out, v)
		v = m.versions[v].parent
	}
	return out, nil
}

// Len returns the number of registered versions, not counting the origin.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.versions)
}

// Current returns the current committed version.
func (m *Manager) Current() Version {
	return Version(m.current.Load())
}

// SetCurrent moves the current version. v must be known.
func (m *Manager) SetCurrent(v Version) error {
	if _, err := m.lookup(v); err != nil {
		return err
	}
	m.current.Store(int64(v))
	return nil
}

// Replay indexes version and head records as the store replays them.
// Node records are ignored.
func (m *Manager) Replay(off int64, kind storage.Kind, payload []byte) error {
	switch kind {
	case storage.KindVersion:
		parent, root, err := DecodeVersion(payload)
		if err != nil {
			return err
		}
		if err := m.Register(Version(off), root, parent); err != nil {
			return errors.Mark(err, storage.ErrCorrupt)
		}
	case storage.KindHead:
		v, err := DecodeHead(payload)
		if err != nil {
			return err
		}
		if err := m.SetCurrent(v); err != nil {
			return errors.Mark(err, storage.ErrCorrupt)
		}
	}
	return nil
}
