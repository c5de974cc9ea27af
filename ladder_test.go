package nesthash

import (
	"errors"
	"slices"
	"testing"

	streamerrors "github.com/tamirms/nesthash/errors"
)

func TestValidateLadder(t *testing.T) {
	tests := []struct {
		name  string
		sizes []int
		ok    bool
	}{
		{"default", DefaultSizes, true},
		{"single", []int{7}, true},
		{"smallest", []int{2, 3}, true},
		{"empty", nil, false},
		{"too small", []int{1, 3}, false},
		{"zero", []int{0}, false},
		{"equal steps", []int{5, 5}, false},
		{"decreasing", []int{13, 5}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := validateLadder(tc.sizes)
			if !tc.ok {
				if !errors.Is(err, streamerrors.ErrInvalidLadder) {
					t.Fatalf("got %v, want ErrInvalidLadder", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !slices.Equal(got, tc.sizes) {
				t.Errorf("got %v, want %v", got, tc.sizes)
			}
		})
	}
}

func TestValidateLadderCopies(t *testing.T) {
	sizes := []int{5, 13}
	got, err := validateLadder(sizes)
	if err != nil {
		t.Fatal(err)
	}
	sizes[0] = 1
	if got[0] != 5 {
		t.Errorf("ladder aliases the caller's slice: got[0] = %d", got[0])
	}
}
