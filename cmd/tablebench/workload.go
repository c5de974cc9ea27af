package main

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/google/btree"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tamirms/nesthash"
	streamerrors "github.com/tamirms/nesthash/errors"
)

// ctxCheckInterval is how many operations run between context checks.
const ctxCheckInterval = 4096

// Result holds the measurements of one workload.
type Result struct {
	Name      string
	Table     string
	Inserted  int
	Deleted   int
	Remaining int
	Capacity  int // top-level capacity, or subtable size for tries
	Depth     int // deepest trie level; 0 for two-level tables

	Insert time.Duration
	Lookup time.Duration
	Delete time.Duration
}

// table is the surface a workload drives. Keys are whole words; the
// two-level adapter derives the composite key from the word.
type table interface {
	set(key string, v int) error
	get(key string) (int, error)
	del(key string) error
	len() int
	all() iter.Seq2[string, int]
	capacity() int
	depth() int
}

// prefixLen is the length of the first key a two-level workload files each
// word under.
const prefixLen = 2

type twoLevelAdapter struct {
	t *nesthash.TwoLevelTable[string, string, int]
}

func splitKey(key string) (string, string) {
	return key[:min(prefixLen, len(key))], key
}

func (a twoLevelAdapter) set(key string, v int) error {
	k1, k2 := splitKey(key)
	return a.t.Set(k1, k2, v)
}

func (a twoLevelAdapter) get(key string) (int, error) {
	k1, k2 := splitKey(key)
	return a.t.Get(k1, k2)
}

func (a twoLevelAdapter) del(key string) error {
	k1, k2 := splitKey(key)
	return a.t.Delete(k1, k2)
}

func (a twoLevelAdapter) len() int { return a.t.Len() }
func (a twoLevelAdapter) capacity() int { return a.t.TableSize() }
func (a twoLevelAdapter) depth() int { return 0 }

func (a twoLevelAdapter) all() iter.Seq2[string, int] {
	return func(yield func(string, int) bool) {
		for p, v := range a.t.All() {
			if !yield(p.Second, v) {
				return
			}
		}
	}
}

type trieAdapter struct {
	t    *nesthash.TrieTable[string, int]
	size int
}

func (a trieAdapter) set(key string, v int) error {
	a.t.Set(key, v)
	return nil
}

func (a trieAdapter) get(key string) (int, error) { return a.t.Get(key) }
func (a trieAdapter) del(key string) error { return a.t.Delete(key) }
func (a trieAdapter) len() int { return a.t.Len() }
func (a trieAdapter) all() iter.Seq2[string, int] { return a.t.All() }
func (a trieAdapter) capacity() int { return a.size }
func (a trieAdapter) depth() int { return a.t.Depth() }

func newTable(w *Workload, logger *zap.Logger) (table, error) {
	opts := append(w.options(), nesthash.WithLogger(logger))
	switch w.Table {
	case tableTwoLevel:
		t, err := nesthash.NewTwoLevelTable[string, string, int](opts...)
		if err != nil {
			return nil, err
		}
		h, err := nesthash.HashByName[string](w.Hash)
		if err != nil {
			return nil, err
		}
		t.SetHash1(h)
		t.SetHash2(h)
		return twoLevelAdapter{t: t}, nil
	case tableTrie:
		t, err := nesthash.NewTrieTable[string, int](opts...)
		if err != nil {
			return nil, err
		}
		size := w.SubtableSize
		if size == 0 {
			size = nesthash.DefaultSubtableSize
		}
		return trieAdapter{t: t, size: size}, nil
	default:
		return nil, fmt.Errorf("unknown table kind %q", w.Table)
	}
}

type modelEntry struct {
	key   string
	value int
}

func newModel() *btree.BTreeG[modelEntry] {
	return btree.NewG(16, func(a, b modelEntry) bool { return a.key < b.key })
}

// runWorkload inserts w.Keys keys in a seeded random order, looks every one
// up, deletes a fraction of them, and finally checks the table against a
// btree holding the same operations.
func runWorkload(ctx context.Context, w Workload, keys []string, logger *zap.Logger) (Result, error) {
	res := Result{Name: w.Name, Table: w.Table}
	logger = logger.With(zap.String("workload", w.Name))

	tbl, err := newTable(&w, logger)
	if err != nil {
		return res, err
	}

	n := len(keys)
	if w.Keys > 0 {
		n = min(n, w.Keys)
	}
	rng := rand.New(rand.NewPCG(w.Seed, w.Seed^0x9E3779B97F4A7C15))
	order := slices.Clone(keys[:n])
	rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
	model := newModel()

	start := time.Now()
	for i, k := range order {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return res, err
			}
		}
		if err := tbl.set(k, i); err != nil {
			return res, fmt.Errorf("insert: %w", err)
		}
		model.ReplaceOrInsert(modelEntry{key: k, value: i})
	}
	res.Insert = time.Since(start)
	res.Inserted = tbl.len()

	start = time.Now()
	for i, k := range order {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return res, err
			}
		}
		if _, err := tbl.get(k); err != nil {
			return res, fmt.Errorf("lookup: %w", err)
		}
	}
	res.Lookup = time.Since(start)

	start = time.Now()
	toDelete := int(float64(n) * w.DeleteFraction)
	for i, k := range order[:toDelete] {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return res, err
			}
		}
		if err := tbl.del(k); err != nil {
			return res, fmt.Errorf("delete: %w", err)
		}
		model.Delete(modelEntry{key: k})
	}
	res.Delete = time.Since(start)
	res.Deleted = toDelete

	if err := verify(tbl, model, order[:toDelete]); err != nil {
		return res, err
	}
	res.Remaining = tbl.len()
	res.Capacity = tbl.capacity()
	res.Depth = tbl.depth()

	logger.Info("workload finished",
		zap.Int("inserted", res.Inserted),
		zap.Int("deleted", res.Deleted),
		zap.Int("capacity", res.Capacity),
		zap.Duration("insert", res.Insert))
	return res, nil
}

// errMismatch reports a disagreement between a table and its model.
var errMismatch = errors.New("table disagrees with model")

func verify(tbl table, model *btree.BTreeG[modelEntry], deleted []string) error {
	if tbl.len() != model.Len() {
		return fmt.Errorf("%w: len %d, model %d", errMismatch, tbl.len(), model.Len())
	}

	var got []string
	for k, v := range tbl.all() {
		e, ok := model.Get(modelEntry{key: k})
		if !ok {
			return fmt.Errorf("%w: unexpected key %q", errMismatch, k)
		}
		if e.value != v {
			return fmt.Errorf("%w: %q = %d, model %d", errMismatch, k, v, e.value)
		}
		got = append(got, k)
	}
	slices.Sort(got)

	var mismatch error
	i := 0
	model.Ascend(func(e modelEntry) bool {
		if i >= len(got) || got[i] != e.key {
			mismatch = fmt.Errorf("%w: missing key %q", errMismatch, e.key)
			return false
		}
		i++
		return true
	})
	if mismatch != nil {
		return mismatch
	}

	for _, k := range deleted {
		if _, err := tbl.get(k); !errors.Is(err, streamerrors.ErrNotFound) {
			return fmt.Errorf("%w: deleted key %q: %v", errMismatch, k, err)
		}
	}
	return nil
}

// runAll runs every workload of cfg over keys, at most parallel at a time.
// Each workload builds its own table; only the read-only key slice is shared.
func runAll(ctx context.Context, cfg *Config, keys []string, parallel int, logger *zap.Logger) ([]Result, error) {
	results := make([]Result, len(cfg.Workloads))
	g, gctx := errgroup.WithContext(ctx)
	if parallel > 0 {
		g.SetLimit(parallel)
	}
	for i, w := range cfg.Workloads {
		g.Go(func() error {
			res, err := runWorkload(gctx, w, keys, logger)
			if err != nil {
				return fmt.Errorf("workload %q: %w", w.Name, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
