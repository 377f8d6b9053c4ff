package dataset

import (
	"fmt"

	"github.com/newthinker/retsign/internal/core"
)

// MaxValidationFraction caps the held-out share of samples.
const MaxValidationFraction = 0.9

// Split divides a Set chronologically: the last fraction of samples is held
// out for scoring and the rest is used for training. A fraction of zero
// returns the full set for both, which reproduces training-set scoring.
func Split(set *Set, fraction float64) (train, valid *Set, err error) {
	if fraction < 0 || fraction > MaxValidationFraction {
		return nil, nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("validation fraction must be in [0, %.1f], got %v", MaxValidationFraction, fraction))
	}
	if fraction == 0 {
		return set, set, nil
	}

	n := set.Len()
	cut := n - int(float64(n)*fraction)
	return set.Slice(0, cut), set.Slice(cut, n), nil
}
