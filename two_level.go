package nesthash

import (
	"errors"
	"fmt"
	"iter"
	"strings"

	"go.uber.org/zap"

	streamerrors "github.com/tamirms/nesthash/errors"
	"github.com/tamirms/nesthash/internal/probe"
)

// Pair is a composite TwoLevelTable key.
type Pair[K1, K2 Key] struct {
	First  K1
	Second K2
}

// topSlot is one top-level slot; it is empty when inner is nil.
type topSlot[K1, K2 Key, V any] struct {
	key   K1
	inner *probe.Table[K2, V]
}

// TwoLevelTable is a hash table keyed by (first, second) pairs.
//
// The top level is an open-addressing array keyed by the first key. Every
// occupied top-level slot owns a second-level table keyed by the second key,
// created on the first insert under that first key and discarded when its
// last entry is deleted.
//
// TwoLevelTable is NOT safe for concurrent use.
type TwoLevelTable[K1, K2 Key, V any] struct {
	slots         []topSlot[K1, K2, V]
	sizes         []int
	internalSizes []int
	sizeIndex     int
	occupied      int // occupied top-level slots
	count         int // (first, second) pairs
	hash1         HashFunc[K1]
	hash2         HashFunc[K2]
	logger        *zap.Logger

	exhausted bool // ladder exhaustion already reported
}

// NewTwoLevelTable creates an empty table.
//
// Use WithSizes and WithInternalSizes to override the top-level and
// second-level capacity ladders. Both default to DefaultSizes.
func NewTwoLevelTable[K1, K2 Key, V any](opts ...Option) (*TwoLevelTable[K1, K2, V], error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	sizes, err := validateLadder(cfg.sizes)
	if err != nil {
		return nil, fmt.Errorf("top-level sizes: %w", err)
	}
	internalSizes, err := validateLadder(cfg.internalSizes)
	if err != nil {
		return nil, fmt.Errorf("internal sizes: %w", err)
	}

	return &TwoLevelTable[K1, K2, V]{
		slots:         make([]topSlot[K1, K2, V], sizes[0]),
		sizes:         sizes,
		internalSizes: internalSizes,
		hash1:         PolynomialHash[K1],
		hash2:         PolynomialHash[K2],
		logger:        cfg.logger,
	}, nil
}

// SetHash1 replaces the first-key hash strategy and re-places every
// top-level slot under it.
func (t *TwoLevelTable[K1, K2, V]) SetHash1(h HashFunc[K1]) {
	t.hash1 = h
	t.rebuild(len(t.slots))
}

// SetHash2 replaces the second-key hash strategy of every second-level
// table, present and future.
func (t *TwoLevelTable[K1, K2, V]) SetHash2(h HashFunc[K2]) {
	t.hash2 = h
	for i := range t.slots {
		if inner := t.slots[i].inner; inner != nil {
			inner.SetHash(h)
		}
	}
}

// Len returns the number of (first, second) pairs stored.
func (t *TwoLevelTable[K1, K2, V]) Len() int { return t.count }

// TableSize returns the top-level capacity.
func (t *TwoLevelTable[K1, K2, V]) TableSize() int { return len(t.slots) }

// InternalTableSize returns the capacity of the second-level table under k1.
func (t *TwoLevelTable[K1, K2, V]) InternalTableSize(k1 K1) (int, error) {
	p1, err := t.locateTop(k1, false)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", err, string(k1))
	}
	return t.slots[p1].inner.Capacity(), nil
}

func (t *TwoLevelTable[K1, K2, V]) home(k1 K1) int {
	c := len(t.slots)
	h := t.hash1(k1, c) % c
	if h < 0 {
		h += c
	}
	return h
}

// locateTop linearly probes the top level for k1. On insert, an empty slot
// is claimed for k1 with a fresh second-level table.
func (t *TwoLevelTable[K1, K2, V]) locateTop(k1 K1, forInsert bool) (int, error) {
	c := len(t.slots)
	p1 := t.home(k1)
	for range c {
		s := &t.slots[p1]
		if s.inner == nil {
			if !forInsert {
				return 0, streamerrors.ErrNotFound
			}
			s.key = k1
			s.inner = probe.New[K2, V](t.internalSizes, t.hash2, t.logger)
			t.occupied++
			return p1, nil
		}
		if s.key == k1 {
			return p1, nil
		}
		p1 = (p1 + 1) % c
	}
	if forInsert {
		return 0, streamerrors.ErrFull
	}
	return 0, streamerrors.ErrNotFound
}

// locate resolves a composite key to its top-level slot and the slot
// inside that slot's second-level table. The second position is only valid
// until the second-level table next resizes.
func (t *TwoLevelTable[K1, K2, V]) locate(k1 K1, k2 K2, forInsert bool) (int, int, error) {
	p1, err := t.locateTop(k1, forInsert)
	if err != nil {
		return 0, 0, err
	}
	p2, err := t.slots[p1].inner.Probe(k2, forInsert)
	if err != nil {
		return 0, 0, err
	}
	return p1, p2, nil
}

// Location returns the top-level and second-level slot indices of a key.
func (t *TwoLevelTable[K1, K2, V]) Location(k1 K1, k2 K2) (int, int, error) {
	p1, p2, err := t.locate(k1, k2, false)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: (%q, %q)", err, string(k1), string(k2))
	}
	return p1, p2, nil
}

// Get returns the value stored under (k1, k2).
func (t *TwoLevelTable[K1, K2, V]) Get(k1 K1, k2 K2) (V, error) {
	p1, p2, err := t.locate(k1, k2, false)
	if err != nil {
		var zero V
		return zero, fmt.Errorf("%w: (%q, %q)", err, string(k1), string(k2))
	}
	_, v, _ := t.slots[p1].inner.At(p2)
	return v, nil
}

// Contains reports whether (k1, k2) is present.
func (t *TwoLevelTable[K1, K2, V]) Contains(k1 K1, k2 K2) bool {
	_, _, err := t.locate(k1, k2, false)
	return err == nil
}

// Set stores v under (k1, k2), overwriting any previous value.
//
// If the top level has no free slot for a new first key, Set grows the
// table once and retries before returning ErrFull. Once more than half of
// the top-level slots are occupied the top level moves to the next step of
// its ladder; at the end of the ladder it keeps filling instead.
func (t *TwoLevelTable[K1, K2, V]) Set(k1 K1, k2 K2, v V) error {
	p1, err := t.locateTop(k1, true)
	if errors.Is(err, streamerrors.ErrFull) && t.resize() {
		p1, err = t.locateTop(k1, true)
	}
	if err != nil {
		return fmt.Errorf("%w: (%q, %q)", err, string(k1), string(k2))
	}

	// A second-level table is never empty here: a fresh one always takes
	// its first entry, so a failure leaves no empty table behind.
	added, err := t.slots[p1].inner.Set(k2, v)
	if err != nil {
		return fmt.Errorf("%w: (%q, %q)", err, string(k1), string(k2))
	}
	if added {
		t.count++
	}

	if 2*t.occupied > len(t.slots) {
		t.resize()
	}
	return nil
}

// Delete removes (k1, k2). When it was the last pair under k1, the
// top-level slot is released.
func (t *TwoLevelTable[K1, K2, V]) Delete(k1 K1, k2 K2) error {
	p1, p2, err := t.locate(k1, k2, false)
	if err != nil {
		return fmt.Errorf("%w: (%q, %q)", err, string(k1), string(k2))
	}
	inner := t.slots[p1].inner
	inner.DeleteAt(p2)
	t.count--
	if inner.Len() == 0 {
		t.clearTop(p1)
	}
	return nil
}

// clearTop empties top-level slot p1 and re-places the cluster after it,
// so no first key is left stranded behind the new hole.
func (t *TwoLevelTable[K1, K2, V]) clearTop(p1 int) {
	c := len(t.slots)
	t.slots[p1] = topSlot[K1, K2, V]{}
	t.occupied--

	for next := (p1 + 1) % c; t.slots[next].inner != nil; next = (next + 1) % c {
		s := t.slots[next]
		t.slots[next] = topSlot[K1, K2, V]{}
		t.occupied--
		t.place(s)
	}
}

// place stores a top-level slot whose key is known to be absent.
func (t *TwoLevelTable[K1, K2, V]) place(s topSlot[K1, K2, V]) {
	c := len(t.slots)
	pos := t.home(s.key)
	for t.slots[pos].inner != nil {
		pos = (pos + 1) % c
	}
	t.slots[pos] = s
	t.occupied++
}

// resize moves the top level to the next ladder step. Second-level tables
// are carried over untouched; only their top-level placement changes.
// It returns false if the ladder is exhausted.
func (t *TwoLevelTable[K1, K2, V]) resize() bool {
	if t.sizeIndex+1 >= len(t.sizes) {
		if !t.exhausted {
			t.exhausted = true
			t.logger.Warn("top-level capacity ladder exhausted",
				zap.Int("capacity", len(t.slots)),
				zap.Int("occupied", t.occupied))
		}
		return false
	}
	oldCap := len(t.slots)
	t.sizeIndex++
	t.rebuild(t.sizes[t.sizeIndex])
	t.logger.Debug("resized top level",
		zap.Int("from", oldCap),
		zap.Int("to", len(t.slots)),
		zap.Int("occupied", t.occupied))
	return true
}

func (t *TwoLevelTable[K1, K2, V]) rebuild(capacity int) {
	old := t.slots
	t.slots = make([]topSlot[K1, K2, V], capacity)
	t.occupied = 0
	for _, s := range old {
		if s.inner != nil {
			t.place(s)
		}
	}
}

// Keys returns an iterator over the first keys, in top-level slot order.
func (t *TwoLevelTable[K1, K2, V]) Keys() iter.Seq[K1] {
	return func(yield func(K1) bool) {
		for i := range t.slots {
			s := &t.slots[i]
			if s.inner != nil && !yield(s.key) {
				return
			}
		}
	}
}

// Values returns an iterator over every value, grouped by top-level slot.
func (t *TwoLevelTable[K1, K2, V]) Values() iter.Seq[V] {
	return func(yield func(V) bool) {
		for i := range t.slots {
			s := &t.slots[i]
			if s.inner == nil {
				continue
			}
			for v := range s.inner.Values() {
				if !yield(v) {
					return
				}
			}
		}
	}
}

// All returns an iterator over every composite key and its value.
func (t *TwoLevelTable[K1, K2, V]) All() iter.Seq2[Pair[K1, K2], V] {
	return func(yield func(Pair[K1, K2], V) bool) {
		for i := range t.slots {
			s := &t.slots[i]
			if s.inner == nil {
				continue
			}
			for k2, v := range s.inner.All() {
				if !yield(Pair[K1, K2]{First: s.key, Second: k2}, v) {
					return
				}
			}
		}
	}
}

// SubKeys returns an iterator over the second keys stored under k1.
func (t *TwoLevelTable[K1, K2, V]) SubKeys(k1 K1) (iter.Seq[K2], error) {
	p1, err := t.locateTop(k1, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", err, string(k1))
	}
	return t.slots[p1].inner.Keys(), nil
}

// SubValues returns an iterator over the values stored under k1.
func (t *TwoLevelTable[K1, K2, V]) SubValues(k1 K1) (iter.Seq[V], error) {
	p1, err := t.locateTop(k1, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", err, string(k1))
	}
	return t.slots[p1].inner.Values(), nil
}

func (t *TwoLevelTable[K1, K2, V]) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "TwoLevelTable{len: %d, capacity: %d", t.count, len(t.slots))
	for i := range t.slots {
		s := &t.slots[i]
		if s.inner != nil {
			fmt.Fprintf(&sb, "\n  [%d] %q: %v", i, string(s.key), s.inner)
		}
	}
	sb.WriteString("\n}")
	return sb.String()
}
