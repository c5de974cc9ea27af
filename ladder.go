package nesthash

import (
	"fmt"
	"slices"

	streamerrors "github.com/tamirms/nesthash/errors"
)

// DefaultSizes is the capacity ladder used when no override is supplied.
// Every step is a prime roughly double the previous one; the last step
// accommodates well over a million top-level keys at half load.
var DefaultSizes = []int{
	5, 13, 29, 53, 97, 193, 389, 769, 1543, 3079, 6151, 12289, 24593,
	49157, 98317, 196613, 393241, 786433, 1572869,
}

// validateLadder checks a capacity ladder and returns a private copy.
func validateLadder(sizes []int) ([]int, error) {
	if len(sizes) == 0 {
		return nil, fmt.Errorf("%w: empty", streamerrors.ErrInvalidLadder)
	}
	for i, s := range sizes {
		if s < 2 {
			return nil, fmt.Errorf("%w: capacity %d at step %d is below 2",
				streamerrors.ErrInvalidLadder, s, i)
		}
		if i > 0 && s <= sizes[i-1] {
			return nil, fmt.Errorf("%w: capacity %d at step %d does not exceed %d",
				streamerrors.ErrInvalidLadder, s, i, sizes[i-1])
		}
	}
	return slices.Clone(sizes), nil
}
