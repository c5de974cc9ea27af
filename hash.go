package nesthash

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/spaolacci/murmur3"
	"github.com/zeebo/xxh3"

	streamerrors "github.com/tamirms/nesthash/errors"
	intbits "github.com/tamirms/nesthash/internal/bits"
	"github.com/tamirms/nesthash/internal/probe"
)

// Key is the constraint for table keys: a sequence of byte symbols.
type Key interface {
	~string
}

// HashFunc maps a key onto a slot of a table with the given capacity.
// The result should lie in [0, capacity); other values are reduced modulo
// capacity. A HashFunc must be deterministic for a fixed capacity but is
// free to change entirely when the capacity changes.
type HashFunc[K any] = probe.HashFunc[K]

const (
	polyBase = 31
	polySeed = 31415
)

// PolynomialHash is the default hash for both levels of a TwoLevelTable.
//
// It folds the key's bytes into a rolling polynomial whose multiplier is
// itself advanced by polyBase modulo capacity-1 after each symbol:
//
//	value = (symbol + a*value) mod capacity
//	a     = a*31 mod (capacity-1)
//
// starting from value 0 and a = 31415.
func PolynomialHash[K Key](key K, capacity int) int {
	if capacity < 2 {
		return 0
	}
	c := uint64(capacity)
	var value uint64
	a := uint64(polySeed)
	for i := 0; i < len(key); i++ {
		value = (uint64(key[i]) + intbits.MulMod(a%c, value, c)) % c
		a = intbits.MulMod(a, polyBase, c-1)
	}
	return int(value)
}

// XXH3Hash hashes the key with xxHash3-64 and maps it onto the capacity
// with fastrange.
func XXH3Hash[K Key](key K, capacity int) int {
	return intbits.FastRange(xxh3.HashString(string(key)), capacity)
}

// XXHash64 hashes the key with xxHash64 and maps it onto the capacity
// with fastrange.
func XXHash64[K Key](key K, capacity int) int {
	return intbits.FastRange(xxhash.Sum64String(string(key)), capacity)
}

// Murmur3Hash hashes the key with MurmurHash3 (x64, low 64 bits) and maps
// it onto the capacity with fastrange.
func Murmur3Hash[K Key](key K, capacity int) int {
	return intbits.FastRange(murmur3.Sum64([]byte(key)), capacity)
}

// HashNames lists the strategies HashByName resolves.
var HashNames = []string{"polynomial", "xxh3", "xxhash", "murmur3"}

// HashByName resolves a hash strategy by its configuration name.
func HashByName[K Key](name string) (HashFunc[K], error) {
	switch name {
	case "", "polynomial":
		return PolynomialHash[K], nil
	case "xxh3":
		return XXH3Hash[K], nil
	case "xxhash":
		return XXHash64[K], nil
	case "murmur3":
		return Murmur3Hash[K], nil
	}
	return nil, fmt.Errorf("%w: %q", streamerrors.ErrUnknownHash, name)
}
