package nesthash

import (
	"math/rand/v2"
	"testing"

	"github.com/zeebo/xxh3"
)

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

// randomWord returns a word of 1 to maxLen symbols drawn from alphabet.
// Short words over a small alphabet make prefix sharing, and so trie
// nesting, common.
func randomWord(rng *rand.Rand, alphabet string, maxLen int) string {
	n := rng.IntN(maxLen) + 1
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[rng.IntN(len(alphabet))]
	}
	return string(b)
}

// constantHash sends every key to slot 0.
func constantHash(string, int) int { return 0 }
