package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/tamirms/nesthash"
)

// Table kinds a workload can exercise.
const (
	tableTwoLevel = "twolevel"
	tableTrie     = "trie"
)

// Workload is one [[workload]] entry of a TOML workload file.
type Workload struct {
	Name           string  `toml:"name"`
	Table          string  `toml:"table"`
	Keys           int     `toml:"keys"`
	Hash           string  `toml:"hash"`
	Sizes          []int   `toml:"sizes"`
	InternalSizes  []int   `toml:"internal_sizes"`
	SubtableSize   int     `toml:"subtable_size"`
	DeleteFraction float64 `toml:"delete_fraction"`
	Seed           uint64  `toml:"seed"`
}

// Config is a parsed workload file.
type Config struct {
	Workloads []Workload `toml:"workload"`
}

// ParseConfig decodes a TOML workload file. Unknown keys are rejected so a
// misspelled option does not silently fall back to its default.
func ParseConfig(data string) (*Config, error) {
	var cfg Config
	md, err := toml.Decode(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("decode workloads: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown workload keys: %s", strings.Join(keys, ", "))
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// defaultConfig is used when no workload file is given: one workload per
// table kind, both over the same keys.
func defaultConfig(keys int, hash string) *Config {
	return &Config{Workloads: []Workload{
		{Name: "twolevel-" + cmpOr(hash, "polynomial"), Table: tableTwoLevel, Keys: keys, Hash: hash, DeleteFraction: 0.5, Seed: 1},
		{Name: "trie", Table: tableTrie, Keys: keys, DeleteFraction: 0.5, Seed: 1},
	}}
}

func cmpOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func (c *Config) validate() error {
	if len(c.Workloads) == 0 {
		return errors.New("no workloads defined")
	}
	seen := make(map[string]bool, len(c.Workloads))
	var errs []error
	for i := range c.Workloads {
		w := &c.Workloads[i]
		if w.Name == "" {
			w.Name = fmt.Sprintf("workload-%d", i)
		}
		if seen[w.Name] {
			errs = append(errs, fmt.Errorf("workload %q: duplicate name", w.Name))
			continue
		}
		seen[w.Name] = true
		if err := w.validate(); err != nil {
			errs = append(errs, fmt.Errorf("workload %q: %w", w.Name, err))
		}
	}
	return errors.Join(errs...)
}

func (w *Workload) validate() error {
	switch w.Table {
	case tableTwoLevel:
		if _, err := nesthash.HashByName[string](w.Hash); err != nil {
			return err
		}
	case tableTrie:
		if w.Hash != "" {
			return fmt.Errorf("hash %q: trie tables use positional hashing", w.Hash)
		}
	default:
		return fmt.Errorf("unknown table kind %q (use %q or %q)", w.Table, tableTwoLevel, tableTrie)
	}
	if w.Keys < 0 {
		return fmt.Errorf("keys must be non-negative, got %d", w.Keys)
	}
	if w.DeleteFraction < 0 || w.DeleteFraction > 1 {
		return fmt.Errorf("delete_fraction must be in [0, 1], got %g", w.DeleteFraction)
	}
	return nil
}

// options translates the workload's overrides into table options.
func (w *Workload) options() []nesthash.Option {
	var opts []nesthash.Option
	if len(w.Sizes) > 0 {
		opts = append(opts, nesthash.WithSizes(w.Sizes...))
	}
	if len(w.InternalSizes) > 0 {
		opts = append(opts, nesthash.WithInternalSizes(w.InternalSizes...))
	}
	if w.SubtableSize != 0 {
		opts = append(opts, nesthash.WithSubtableSize(w.SubtableSize))
	}
	return opts
}
