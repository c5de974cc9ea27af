package nesthash

import (
	"errors"
	"testing"

	streamerrors "github.com/tamirms/nesthash/errors"
)

func TestPolynomialHashGolden(t *testing.T) {
	tests := []struct {
		key  string
		caps [4]int // capacities 5, 13, 29, 1572869
	}{
		{"Tim", [4]int{1, 8, 12, 1233493}},
		{"Amy", [4]int{3, 7, 7, 270894}},
		{"Jen", [4]int{0, 0, 1, 1097909}},
		{"lin", [4]int{4, 3, 16, 515240}},
		{"a", [4]int{2, 6, 10, 97}},
		{"", [4]int{0, 0, 0, 0}},
		{"Brendan", [4]int{0, 0, 1, 747223}},
	}
	capacities := [4]int{5, 13, 29, 1572869}

	for _, tc := range tests {
		for i, c := range capacities {
			if got := PolynomialHash(tc.key, c); got != tc.caps[i] {
				t.Errorf("PolynomialHash(%q, %d) = %d, want %d", tc.key, c, got, tc.caps[i])
			}
		}
	}
}

func TestPolynomialHashTinyCapacity(t *testing.T) {
	for _, c := range []int{0, 1} {
		if got := PolynomialHash("abc", c); got != 0 {
			t.Errorf("PolynomialHash(abc, %d) = %d, want 0", c, got)
		}
	}
	for _, k := range []string{"a", "ab", "xyz"} {
		if got := PolynomialHash(k, 2); got < 0 || got >= 2 {
			t.Errorf("PolynomialHash(%q, 2) = %d out of range", k, got)
		}
	}
}

func TestHashStrategiesInRange(t *testing.T) {
	rng := newTestRNG(t)
	for _, name := range HashNames {
		h, err := HashByName[string](name)
		if err != nil {
			t.Fatalf("HashByName(%q): %v", name, err)
		}
		for i := 0; i < 2000; i++ {
			key := randomWord(rng, "abcdefghijklmnopqrstuvwxyz", 12)
			c := DefaultSizes[rng.IntN(len(DefaultSizes))]
			if got := h(key, c); got < 0 || got >= c {
				t.Fatalf("%s(%q, %d) = %d out of range", name, key, c, got)
			}
		}
	}
}

// TestHashStrategiesDeterministic guards against strategies that depend on
// process-level random seeds; tables rely on stable slot positions.
func TestHashStrategiesDeterministic(t *testing.T) {
	for _, name := range HashNames {
		h, err := HashByName[string](name)
		if err != nil {
			t.Fatal(err)
		}
		if a, b := h("mountain", 1543), h("mountain", 1543); a != b {
			t.Errorf("%s is not deterministic: %d != %d", name, a, b)
		}
	}
}

func TestHashByNameUnknown(t *testing.T) {
	_, err := HashByName[string]("sha1")
	if !errors.Is(err, streamerrors.ErrUnknownHash) {
		t.Errorf("HashByName(sha1): got %v, want ErrUnknownHash", err)
	}
}
