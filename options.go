package nesthash

import "go.uber.org/zap"

// DefaultSubtableSize is the slot count of every TrieTable subtable: one
// slot per residue of a symbol modulo 26, plus the overflow slot.
const DefaultSubtableSize = 27

// Option is a functional option for configuring tables.
type Option func(*config)

type config struct {
	sizes         []int // top-level ladder
	internalSizes []int // ladder for every second-level table
	subtableSize  int
	logger        *zap.Logger
}

func defaultConfig() *config {
	return &config{
		sizes:         DefaultSizes,
		internalSizes: DefaultSizes,
		subtableSize:  DefaultSubtableSize,
		logger:        zap.NewNop(),
	}
}

// WithSizes overrides the top-level capacity ladder of a TwoLevelTable.
// The sizes are copied, so the caller can reuse the slice after this call.
// TrieTable ignores it.
func WithSizes(sizes ...int) Option {
	return func(c *config) {
		c.sizes = sizes
	}
}

// WithInternalSizes overrides the capacity ladder of every second-level
// table of a TwoLevelTable. TrieTable ignores it.
func WithInternalSizes(sizes ...int) Option {
	return func(c *config) {
		c.internalSizes = sizes
	}
}

// WithSubtableSize sets the slot count of TrieTable subtables.
// The last slot is reserved for keys shorter than the subtable's level.
// TwoLevelTable ignores it.
func WithSubtableSize(n int) Option {
	return func(c *config) {
		c.subtableSize = n
	}
}

// WithLogger routes resize, ladder exhaustion and collapse events to logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}
