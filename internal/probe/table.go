// Package probe implements a single-level open-addressing hash table with
// linear probing over a ladder of prime capacities.
//
// Table is the building block of the two-level table in the root package:
// every top-level slot there owns one Table keyed by the second key.
package probe

import (
	"errors"
	"fmt"
	"iter"
	"strings"

	"go.uber.org/zap"

	streamerrors "github.com/tamirms/nesthash/errors"
)

// HashFunc maps a key onto a slot index for a table of the given capacity.
// Results outside [0, capacity) are reduced modulo capacity.
type HashFunc[K any] func(key K, capacity int) int

type entry[K comparable, V any] struct {
	key   K
	value V
	used  bool
}

// Table is a fixed-capacity open-addressing table that steps through a
// capacity ladder as it fills. It is not safe for concurrent use.
//
// Every occupied slot is reachable from its key's home slot by a forward
// scan that meets no empty slot first. Delete preserves this by re-placing
// the remainder of the probe cluster.
type Table[K comparable, V any] struct {
	slots     []entry[K, V]
	count     int
	sizes     []int
	sizeIndex int
	hash      HashFunc[K]
	logger    *zap.Logger

	exhausted bool // ladder exhaustion already reported
}

// New creates an empty table sized at the first step of sizes.
// sizes must be a validated ladder (non-empty, increasing, entries >= 2).
// A nil logger disables logging.
func New[K comparable, V any](sizes []int, hash HashFunc[K], logger *zap.Logger) *Table[K, V] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Table[K, V]{
		slots:  make([]entry[K, V], sizes[0]),
		sizes:  sizes,
		hash:   hash,
		logger: logger,
	}
}

// Len returns the number of live entries.
func (t *Table[K, V]) Len() int { return t.count }

// Capacity returns the current slot count. Any hash computed against an
// earlier capacity is stale after a resize.
func (t *Table[K, V]) Capacity() int { return len(t.slots) }

// SizeIndex returns the table's position in its capacity ladder.
func (t *Table[K, V]) SizeIndex() int { return t.sizeIndex }

func (t *Table[K, V]) home(key K) int {
	c := len(t.slots)
	h := t.hash(key, c) % c
	if h < 0 {
		h += c
	}
	return h
}

// Probe scans from key's home slot, wrapping around, for at most Capacity
// steps. It returns the slot holding key, or on insert the first empty slot.
// Lookups stop with ErrNotFound at the first empty slot; an exhausted scan
// yields ErrFull on insert and ErrNotFound otherwise.
func (t *Table[K, V]) Probe(key K, forInsert bool) (int, error) {
	c := len(t.slots)
	pos := t.home(key)
	for range c {
		s := &t.slots[pos]
		if !s.used {
			if forInsert {
				return pos, nil
			}
			return 0, streamerrors.ErrNotFound
		}
		if s.key == key {
			return pos, nil
		}
		pos++
		if pos == c {
			pos = 0
		}
	}
	if forInsert {
		return 0, streamerrors.ErrFull
	}
	return 0, streamerrors.ErrNotFound
}

// At returns the entry stored at pos, as found by Probe.
func (t *Table[K, V]) At(pos int) (K, V, bool) {
	s := &t.slots[pos]
	return s.key, s.value, s.used
}

// Get returns the value stored under key.
func (t *Table[K, V]) Get(key K) (V, error) {
	pos, err := t.Probe(key, false)
	if err != nil {
		var zero V
		return zero, err
	}
	return t.slots[pos].value, nil
}

// Contains reports whether key is present.
func (t *Table[K, V]) Contains(key K) bool {
	_, err := t.Probe(key, false)
	return err == nil
}

// Set stores value under key and reports whether a new entry was added.
//
// When the probe finds no room, Set grows the table once and retries before
// returning ErrFull. After a successful insert the table grows if it is
// more than half full.
func (t *Table[K, V]) Set(key K, value V) (bool, error) {
	pos, err := t.Probe(key, true)
	if errors.Is(err, streamerrors.ErrFull) && t.resize() {
		pos, err = t.Probe(key, true)
	}
	if err != nil {
		return false, err
	}

	s := &t.slots[pos]
	added := !s.used
	*s = entry[K, V]{key: key, value: value, used: true}
	if added {
		t.count++
		if 2*t.count > len(t.slots) {
			t.resize()
		}
	}
	return added, nil
}

// Delete removes key from the table.
func (t *Table[K, V]) Delete(key K) error {
	pos, err := t.Probe(key, false)
	if err != nil {
		return err
	}
	t.DeleteAt(pos)
	return nil
}

// DeleteAt removes the entry at pos, as found by Probe, and re-places the
// entries of the cluster that follows it.
func (t *Table[K, V]) DeleteAt(pos int) {
	c := len(t.slots)
	t.slots[pos] = entry[K, V]{}
	t.count--

	for next := (pos + 1) % c; t.slots[next].used; next = (next + 1) % c {
		e := t.slots[next]
		t.slots[next] = entry[K, V]{}
		t.count--
		t.place(e)
	}
}

// place inserts an entry known to be absent. The caller guarantees a free slot.
func (t *Table[K, V]) place(e entry[K, V]) {
	c := len(t.slots)
	pos := t.home(e.key)
	for t.slots[pos].used {
		pos = (pos + 1) % c
	}
	t.slots[pos] = e
	t.count++
}

// resize moves to the next ladder step and re-places every live entry.
// It returns false, leaving the table untouched, if the ladder is exhausted.
func (t *Table[K, V]) resize() bool {
	if t.sizeIndex+1 >= len(t.sizes) {
		if !t.exhausted {
			t.exhausted = true
			t.logger.Warn("capacity ladder exhausted",
				zap.Int("capacity", len(t.slots)),
				zap.Int("len", t.count))
		}
		return false
	}
	oldCap := len(t.slots)
	t.sizeIndex++
	t.rebuild(t.sizes[t.sizeIndex])
	t.logger.Debug("resized table",
		zap.Int("from", oldCap),
		zap.Int("to", len(t.slots)),
		zap.Int("len", t.count))
	return true
}

func (t *Table[K, V]) rebuild(capacity int) {
	old := t.slots
	t.slots = make([]entry[K, V], capacity)
	t.count = 0
	for _, e := range old {
		if e.used {
			t.place(e)
		}
	}
}

// SetHash replaces the hash strategy and re-places all entries under it.
func (t *Table[K, V]) SetHash(hash HashFunc[K]) {
	t.hash = hash
	t.rebuild(len(t.slots))
}

// All returns an iterator over entries in slot order.
func (t *Table[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for i := range t.slots {
			s := &t.slots[i]
			if s.used && !yield(s.key, s.value) {
				return
			}
		}
	}
}

// Keys returns an iterator over keys in slot order.
func (t *Table[K, V]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		for k := range t.All() {
			if !yield(k) {
				return
			}
		}
	}
}

// Values returns an iterator over values in slot order.
func (t *Table[K, V]) Values() iter.Seq[V] {
	return func(yield func(V) bool) {
		for _, v := range t.All() {
			if !yield(v) {
				return
			}
		}
	}
}

func (t *Table[K, V]) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "{len: %d, capacity: %d", t.count, len(t.slots))
	for i := range t.slots {
		s := &t.slots[i]
		if s.used {
			fmt.Fprintf(&sb, ", [%d] %v: %v", i, s.key, s.value)
		}
	}
	sb.WriteByte('}')
	return sb.String()
}
