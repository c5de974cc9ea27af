package probe

import (
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"slices"
	"strings"
	"testing"

	"github.com/zeebo/xxh3"

	streamerrors "github.com/tamirms/nesthash/errors"
)

var testSizes = []int{5, 13, 29, 53, 97, 193, 389, 769}

// testSeed is mixed into every per-test stream; change it to reshuffle all
// randomized tests at once.
const testSeed = 0x6E65737468617368

// newTestRNG seeds a PCG from the test name, so each test draws its own
// reproducible stream.
func newTestRNG(t testing.TB) *rand.Rand {
	t.Helper()
	seed := xxh3.HashString128(t.Name())
	return rand.New(rand.NewPCG(seed.Hi, seed.Lo^testSeed))
}

// firstByte sends every key to the slot of its first byte, which makes
// clusters easy to construct.
func firstByte(key string, capacity int) int {
	if key == "" {
		return 0
	}
	return int(key[0]) % capacity
}

// constant sends every key to slot 0.
func constant(string, int) int { return 0 }

// checkReachable verifies that every entry is found by a fresh probe from
// its home slot without crossing an empty slot.
func checkReachable[V any](t *testing.T, tbl *Table[string, V]) {
	t.Helper()
	for i := range tbl.slots {
		s := &tbl.slots[i]
		if !s.used {
			continue
		}
		pos, err := tbl.Probe(s.key, false)
		if err != nil {
			t.Fatalf("key %q at slot %d unreachable: %v", s.key, i, err)
		}
		if pos != i {
			t.Fatalf("key %q probed to %d, stored at %d", s.key, pos, i)
		}
	}
}

func TestSetGetRoundTrip(t *testing.T) {
	tbl := New[string, int](testSizes, firstByte, nil)
	keys := []string{"apple", "avocado", "banana", "blueberry", "cherry"}
	for i, k := range keys {
		added, err := tbl.Set(k, i)
		if err != nil {
			t.Fatalf("Set(%q): %v", k, err)
		}
		if !added {
			t.Errorf("Set(%q) reported overwrite for a new key", k)
		}
	}
	for i, k := range keys {
		got, err := tbl.Get(k)
		if err != nil {
			t.Fatalf("Get(%q): %v", k, err)
		}
		if got != i {
			t.Errorf("Get(%q) = %d, want %d", k, got, i)
		}
	}
	if tbl.Len() != len(keys) {
		t.Errorf("Len() = %d, want %d", tbl.Len(), len(keys))
	}
	checkReachable(t, tbl)
}

func TestOverwriteKeepsCount(t *testing.T) {
	tbl := New[string, int](testSizes, firstByte, nil)
	if _, err := tbl.Set("k", 1); err != nil {
		t.Fatal(err)
	}
	added, err := tbl.Set("k", 2)
	if err != nil {
		t.Fatal(err)
	}
	if added {
		t.Error("second Set of the same key reported added")
	}
	if tbl.Len() != 1 {
		t.Errorf("Len() = %d, want 1", tbl.Len())
	}
	if v, _ := tbl.Get("k"); v != 2 {
		t.Errorf("Get = %d, want 2", v)
	}
}

func TestGetMissing(t *testing.T) {
	tbl := New[string, int](testSizes, firstByte, nil)
	if _, err := tbl.Get("nope"); !errors.Is(err, streamerrors.ErrNotFound) {
		t.Errorf("Get on empty table: got %v, want ErrNotFound", err)
	}
	if tbl.Contains("nope") {
		t.Error("Contains on empty table returned true")
	}
	if err := tbl.Delete("nope"); !errors.Is(err, streamerrors.ErrNotFound) {
		t.Errorf("Delete on empty table: got %v, want ErrNotFound", err)
	}
}

// TestResizeAtHalfLoad verifies that the table steps up the ladder as soon
// as more than half of its slots are used.
func TestResizeAtHalfLoad(t *testing.T) {
	tbl := New[string, int](testSizes, firstByte, nil)
	for i, k := range []string{"a", "b"} {
		if _, err := tbl.Set(k, i); err != nil {
			t.Fatal(err)
		}
	}
	if tbl.Capacity() != 5 {
		t.Fatalf("Capacity() = %d after 2 inserts, want 5", tbl.Capacity())
	}
	if _, err := tbl.Set("c", 2); err != nil {
		t.Fatal(err)
	}
	if tbl.Capacity() != 13 || tbl.SizeIndex() != 1 {
		t.Fatalf("Capacity() = %d, SizeIndex() = %d after 3 inserts, want 13, 1",
			tbl.Capacity(), tbl.SizeIndex())
	}
	for i, k := range []string{"a", "b", "c"} {
		if v, err := tbl.Get(k); err != nil || v != i {
			t.Errorf("Get(%q) = %d, %v after resize", k, v, err)
		}
	}
	checkReachable(t, tbl)
}

// TestLadderExhaustedKeepsAccepting checks that a table at the top of its
// ladder tolerates load above one half and reports ErrFull only when no
// slot is left.
func TestLadderExhaustedKeepsAccepting(t *testing.T) {
	tbl := New[string, int]([]int{3}, constant, nil)
	for i, k := range []string{"x", "y", "z"} {
		if _, err := tbl.Set(k, i); err != nil {
			t.Fatalf("Set(%q): %v", k, err)
		}
	}
	if tbl.Capacity() != 3 {
		t.Fatalf("Capacity() = %d, want 3", tbl.Capacity())
	}
	_, err := tbl.Set("w", 3)
	if !errors.Is(err, streamerrors.ErrFull) {
		t.Fatalf("Set on full table: got %v, want ErrFull", err)
	}
	if tbl.Len() != 3 {
		t.Errorf("Len() = %d after failed insert, want 3", tbl.Len())
	}
	// Overwrites still succeed on a full table.
	if _, err := tbl.Set("y", 10); err != nil {
		t.Fatalf("overwrite on full table: %v", err)
	}
	if v, _ := tbl.Get("y"); v != 10 {
		t.Errorf("Get(y) = %d, want 10", v)
	}
}

// TestDeleteRepairsCluster builds a cluster that wraps around the end of the
// array, removes from its middle, and checks every survivor is reachable.
func TestDeleteRepairsCluster(t *testing.T) {
	tbl := New[string, int]([]int{7}, firstByte, nil)
	// 'f'=102 -> 102%7 = 4, 'm'=109 -> 4, 'a'=97 -> 6, 'h'=104 -> 6
	for i, k := range []string{"f1", "m1", "a1", "h1"} {
		if _, err := tbl.Set(k, i); err != nil {
			t.Fatalf("Set(%q): %v", k, err)
		}
	}
	// Layout: [4]=f1 [5]=m1 [6]=a1 [0]=h1
	if err := tbl.Delete("m1"); err != nil {
		t.Fatal(err)
	}
	checkReachable(t, tbl)
	for _, k := range []string{"f1", "a1", "h1"} {
		if !tbl.Contains(k) {
			t.Errorf("Contains(%q) = false after unrelated delete", k)
		}
	}
	if tbl.Contains("m1") {
		t.Error("deleted key still present")
	}
	if tbl.Len() != 3 {
		t.Errorf("Len() = %d, want 3", tbl.Len())
	}
}

func TestRandomOperationsAgainstMap(t *testing.T) {
	rng := newTestRNG(t)
	tbl := New[string, int](testSizes, func(k string, c int) int {
		h := fnv.New64a()
		h.Write([]byte(k))
		return int(h.Sum64() % uint64(c))
	}, nil)
	model := make(map[string]int)

	for i := 0; i < 5000; i++ {
		k := fmt.Sprintf("k%d", rng.IntN(200))
		switch rng.IntN(3) {
		case 0, 1:
			if _, err := tbl.Set(k, i); err != nil {
				t.Fatalf("op %d: Set(%q): %v", i, k, err)
			}
			model[k] = i
		case 2:
			err := tbl.Delete(k)
			if _, ok := model[k]; ok {
				if err != nil {
					t.Fatalf("op %d: Delete(%q): %v", i, k, err)
				}
				delete(model, k)
			} else if !errors.Is(err, streamerrors.ErrNotFound) {
				t.Fatalf("op %d: Delete(%q) of absent key: %v", i, k, err)
			}
		}
		if tbl.Len() != len(model) {
			t.Fatalf("op %d: Len() = %d, want %d", i, tbl.Len(), len(model))
		}
	}
	checkReachable(t, tbl)
	for k, want := range model {
		if got, err := tbl.Get(k); err != nil || got != want {
			t.Errorf("Get(%q) = %d, %v; want %d", k, got, err, want)
		}
	}
}

func TestSetHashReplacesEntries(t *testing.T) {
	tbl := New[string, int](testSizes, firstByte, nil)
	for i, k := range []string{"a", "b", "c", "d"} {
		if _, err := tbl.Set(k, i); err != nil {
			t.Fatal(err)
		}
	}
	tbl.SetHash(constant)
	checkReachable(t, tbl)
	if tbl.Len() != 4 {
		t.Errorf("Len() = %d after SetHash, want 4", tbl.Len())
	}
}

func TestIteratorsInSlotOrder(t *testing.T) {
	tbl := New[string, int]([]int{29}, firstByte, nil)
	for i, k := range []string{"c", "a", "b"} {
		if _, err := tbl.Set(k, i); err != nil {
			t.Fatal(err)
		}
	}
	// 'a'=97%29=10, 'b'=11, 'c'=12
	if got := slices.Collect(tbl.Keys()); !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Errorf("Keys() = %v", got)
	}
	if got := slices.Collect(tbl.Values()); !slices.Equal(got, []int{1, 2, 0}) {
		t.Errorf("Values() = %v", got)
	}

	// Early termination must not panic or over-yield.
	n := 0
	for range tbl.Keys() {
		n++
		break
	}
	if n != 1 {
		t.Errorf("break after first key yielded %d keys", n)
	}
}

func TestString(t *testing.T) {
	tbl := New[string, int]([]int{29}, firstByte, nil)
	if _, err := tbl.Set("a", 1); err != nil {
		t.Fatal(err)
	}
	s := tbl.String()
	if !strings.Contains(s, "[10] a: 1") || !strings.Contains(s, "capacity: 29") {
		t.Errorf("String() = %q", s)
	}
}
