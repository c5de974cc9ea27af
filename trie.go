package nesthash

import (
	"fmt"
	"iter"
	"strings"

	"go.uber.org/zap"

	streamerrors "github.com/tamirms/nesthash/errors"
)

// PositionFunc picks the slot of key in a subtable of the given size at
// nesting level level. It must depend only on the symbol at offset level,
// and send keys with no such symbol to the overflow slot size-1.
type PositionFunc[K any] func(key K, level, size int) int

// PositionalHash is the default PositionFunc: the byte at offset level
// modulo size-1, or the overflow slot size-1 once the key is exhausted.
func PositionalHash[K Key](key K, level, size int) int {
	if level < len(key) {
		return int(key[level]) % (size - 1)
	}
	return size - 1
}

type slotKind uint8

const (
	slotEmpty slotKind = iota
	slotLeaf
	slotChild
	slotCollision
)

type trieEntry[K Key, V any] struct {
	key   K
	value V
}

// trieSlot is one subtable slot. Which fields are meaningful depends on kind:
//
//	slotLeaf:      entry
//	slotChild:     entry.key (the shared prefix) and child
//	slotCollision: bucket, keys exhausted at this level (overflow slot only)
type trieSlot[K Key, V any] struct {
	kind   slotKind
	entry  trieEntry[K, V]
	child  *subtable[K, V]
	bucket []trieEntry[K, V]
}

type subtable[K Key, V any] struct {
	slots []trieSlot[K, V]
	count int // entries in this subtree
	level int
}

func newSubtable[K Key, V any](level, size int) *subtable[K, V] {
	return &subtable[K, V]{
		slots: make([]trieSlot[K, V], size),
		level: level,
	}
}

// sole returns the subtable's entry when its whole population is a single
// leaf.
func (s *subtable[K, V]) sole() (trieSlot[K, V], bool) {
	if s.count != 1 {
		return trieSlot[K, V]{}, false
	}
	for i := range s.slots {
		if s.slots[i].kind == slotLeaf {
			return s.slots[i], true
		}
	}
	return trieSlot[K, V]{}, false
}

// trieFrame is one step of a root-to-slot walk.
type trieFrame[K Key, V any] struct {
	table *subtable[K, V]
	idx   int
}

// TrieTable is a hash table that resolves collisions by nesting instead of
// probing. Each subtable indexes keys by the symbol at its nesting level.
// When two keys meet in a slot, the slot is replaced by a child subtable one
// level deeper, until the keys part or both run out of symbols. Keys that run
// out together share a bucket in the overflow slot of that level. When a
// delete leaves a subtable holding a single entry, the subtable is replaced
// by that entry.
//
// Every walk over the nesting is iterative, so key length bounds memory
// use rather than goroutine stack depth.
//
// TrieTable is NOT safe for concurrent use.
type TrieTable[K Key, V any] struct {
	root   *subtable[K, V]
	size   int
	hash   PositionFunc[K]
	logger *zap.Logger
}

// NewTrieTable creates an empty table. Use WithSubtableSize to change the
// subtable slot count from DefaultSubtableSize.
func NewTrieTable[K Key, V any](opts ...Option) (*TrieTable[K, V], error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.subtableSize < 2 {
		return nil, fmt.Errorf("%w: got %d", streamerrors.ErrInvalidTableSize, cfg.subtableSize)
	}
	return &TrieTable[K, V]{
		root:   newSubtable[K, V](0, cfg.subtableSize),
		size:   cfg.subtableSize,
		hash:   PositionalHash[K],
		logger: cfg.logger,
	}, nil
}

// SetPositionHash replaces the position strategy and rebuilds the table
// under it.
func (t *TrieTable[K, V]) SetPositionHash(f PositionFunc[K]) {
	entries := make([]trieEntry[K, V], 0, t.Len())
	for k, v := range t.All() {
		entries = append(entries, trieEntry[K, V]{key: k, value: v})
	}
	t.hash = f
	t.root = newSubtable[K, V](0, t.size)
	for _, e := range entries {
		t.Set(e.key, e.value)
	}
}

// Len returns the number of entries.
func (t *TrieTable[K, V]) Len() int { return t.root.count }

func (t *TrieTable[K, V]) index(key K, level int) int {
	h := t.hash(key, level, t.size) % t.size
	if h < 0 {
		h += t.size
	}
	return h
}

// exhausted reports whether neither a nor b has a symbol at level, so no
// deeper level can tell them apart.
func exhausted[K Key](a, b K, level int) bool {
	return level >= len(a) && level >= len(b)
}

func bucketIndex[K Key, V any](bucket []trieEntry[K, V], key K) int {
	for i := range bucket {
		if bucket[i].key == key {
			return i
		}
	}
	return -1
}

// lookup finds the entry for key without recording the path.
func (t *TrieTable[K, V]) lookup(key K) (*trieEntry[K, V], bool) {
	cur := t.root
	for {
		s := &cur.slots[t.index(key, cur.level)]
		switch s.kind {
		case slotLeaf:
			if s.entry.key == key {
				return &s.entry, true
			}
			return nil, false
		case slotCollision:
			if i := bucketIndex(s.bucket, key); i >= 0 {
				return &s.bucket[i], true
			}
			return nil, false
		case slotChild:
			cur = s.child
		default:
			return nil, false
		}
	}
}

// walk records every subtable and slot index visited on the way to key.
func (t *TrieTable[K, V]) walk(key K) ([]trieFrame[K, V], error) {
	var path []trieFrame[K, V]
	cur := t.root
	for {
		idx := t.index(key, cur.level)
		path = append(path, trieFrame[K, V]{table: cur, idx: idx})
		s := &cur.slots[idx]
		switch s.kind {
		case slotLeaf:
			if s.entry.key == key {
				return path, nil
			}
			return nil, streamerrors.ErrNotFound
		case slotCollision:
			if bucketIndex(s.bucket, key) >= 0 {
				return path, nil
			}
			return nil, streamerrors.ErrNotFound
		case slotChild:
			cur = s.child
		default:
			return nil, streamerrors.ErrNotFound
		}
	}
}

// Get returns the value stored under key.
func (t *TrieTable[K, V]) Get(key K) (V, error) {
	e, ok := t.lookup(key)
	if !ok {
		var zero V
		return zero, fmt.Errorf("%w: %q", streamerrors.ErrNotFound, string(key))
	}
	return e.value, nil
}

// Contains reports whether key is present.
func (t *TrieTable[K, V]) Contains(key K) bool {
	_, ok := t.lookup(key)
	return ok
}

// Location returns the slot index visited at each level on the way from
// the root to the slot holding key.
func (t *TrieTable[K, V]) Location(key K) ([]int, error) {
	path, err := t.walk(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", err, string(key))
	}
	trace := make([]int, len(path))
	for i, f := range path {
		trace[i] = f.idx
	}
	return trace, nil
}

// Set stores value under key, overwriting any previous value.
func (t *TrieTable[K, V]) Set(key K, value V) {
	path := make([]*subtable[K, V], 0, 4)
	cur := t.root
	for {
		path = append(path, cur)
		s := &cur.slots[t.index(key, cur.level)]
		switch s.kind {
		case slotEmpty:
			*s = trieSlot[K, V]{kind: slotLeaf, entry: trieEntry[K, V]{key: key, value: value}}
			grow(path)
			return

		case slotLeaf:
			if s.entry.key == key {
				s.entry.value = value
				return
			}
			if exhausted(s.entry.key, key, cur.level) {
				*s = trieSlot[K, V]{
					kind:   slotCollision,
					bucket: []trieEntry[K, V]{s.entry, {key: key, value: value}},
				}
				grow(path)
				return
			}
			cur = t.split(s, key, cur.level)

		case slotCollision:
			if i := bucketIndex(s.bucket, key); i >= 0 {
				s.bucket[i].value = value
				return
			}
			if exhausted(s.bucket[0].key, key, cur.level) {
				s.bucket = append(s.bucket, trieEntry[K, V]{key: key, value: value})
				grow(path)
				return
			}
			cur = t.split(s, key, cur.level)

		case slotChild:
			cur = s.child
		}
	}
}

func grow[K Key, V any](path []*subtable[K, V]) {
	for _, st := range path {
		st.count++
	}
}

// split replaces the leaf or collision slot s at level with a child
// subtable one level deeper holding the evicted entries, and returns the
// child so the caller can continue inserting key into it.
func (t *TrieTable[K, V]) split(s *trieSlot[K, V], key K, level int) *subtable[K, V] {
	child := newSubtable[K, V](level+1, t.size)
	evicted := *s

	// Bucket keys are all exhausted, so one key places them all.
	at, n := evicted.entry.key, 1
	if evicted.kind == slotCollision {
		at, n = evicted.bucket[0].key, len(evicted.bucket)
	}
	child.slots[t.index(at, level+1)] = evicted
	child.count = n

	prefix := key[:min(level+1, len(key))]
	*s = trieSlot[K, V]{kind: slotChild, entry: trieEntry[K, V]{key: prefix}, child: child}
	return child
}

// Delete removes key.
//
// Collapse cascades: walking back up from the deepest subtable on the path,
// every subtable left with a population of one is replaced in its parent by
// that entry.
func (t *TrieTable[K, V]) Delete(key K) error {
	path, err := t.walk(key)
	if err != nil {
		return fmt.Errorf("%w: %q", err, string(key))
	}

	last := path[len(path)-1]
	s := &last.table.slots[last.idx]
	if s.kind == slotLeaf {
		*s = trieSlot[K, V]{}
	} else {
		i := bucketIndex(s.bucket, key)
		s.bucket = append(s.bucket[:i], s.bucket[i+1:]...)
		if len(s.bucket) == 1 {
			*s = trieSlot[K, V]{kind: slotLeaf, entry: s.bucket[0]}
		}
	}
	for _, f := range path {
		f.table.count--
	}

	for i := len(path) - 1; i > 0; i-- {
		sole, ok := path[i].table.sole()
		if !ok {
			break
		}
		parent := path[i-1]
		parent.table.slots[parent.idx] = sole
		t.logger.Debug("collapsed subtable",
			zap.Int("level", path[i].table.level),
			zap.Int("parentSlot", parent.idx))
	}
	return nil
}

// trieCursor is a subtable being scanned and the next slot to visit.
type trieCursor[K Key, V any] struct {
	table *subtable[K, V]
	next  int
}

// visit walks every non-empty slot depth-first in slot order, driven by an
// explicit stack. It stops when fn returns false.
func (t *TrieTable[K, V]) visit(fn func(s *trieSlot[K, V], idx, level int) bool) {
	stack := []trieCursor[K, V]{{table: t.root}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next == len(top.table.slots) {
			stack = stack[:len(stack)-1]
			continue
		}
		idx := top.next
		top.next++
		s := &top.table.slots[idx]
		if s.kind == slotEmpty {
			continue
		}
		if !fn(s, idx, top.table.level) {
			return
		}
		if s.kind == slotChild {
			stack = append(stack, trieCursor[K, V]{table: s.child})
		}
	}
}

// All returns an iterator over every entry, depth-first in slot order.
func (t *TrieTable[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		t.visit(func(s *trieSlot[K, V], _, _ int) bool {
			switch s.kind {
			case slotLeaf:
				return yield(s.entry.key, s.entry.value)
			case slotCollision:
				for _, e := range s.bucket {
					if !yield(e.key, e.value) {
						return false
					}
				}
			}
			return true
		})
	}
}

// Keys returns an iterator over every key, depth-first in slot order.
func (t *TrieTable[K, V]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		for k := range t.All() {
			if !yield(k) {
				return
			}
		}
	}
}

// Depth returns the deepest nesting level holding an entry; 0 when every
// entry sits in the root.
func (t *TrieTable[K, V]) Depth() int {
	depth := 0
	t.visit(func(_ *trieSlot[K, V], _, level int) bool {
		depth = max(depth, level)
		return true
	})
	return depth
}

func (t *TrieTable[K, V]) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "TrieTable{len: %d", t.Len())
	t.visit(func(s *trieSlot[K, V], idx, level int) bool {
		indent := strings.Repeat("  ", level+1)
		switch s.kind {
		case slotLeaf:
			fmt.Fprintf(&sb, "\n%s[%d] %q: %v", indent, idx, string(s.entry.key), s.entry.value)
		case slotChild:
			fmt.Fprintf(&sb, "\n%s[%d] %q/ (%d)", indent, idx, string(s.entry.key), s.child.count)
		case slotCollision:
			for _, e := range s.bucket {
				fmt.Fprintf(&sb, "\n%s[%d] %q: %v", indent, idx, string(e.key), e.value)
			}
		}
		return true
	})
	sb.WriteString("\n}")
	return sb.String()
}
