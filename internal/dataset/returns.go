package dataset

import (
	"fmt"

	"github.com/newthinker/retsign/internal/core"
)

// Returns converts a close-price series into simple close-to-close returns.
// The result has one element fewer than closes.
func Returns(closes []float64) ([]float64, error) {
	if len(closes) < 2 {
		return nil, core.WrapError(core.ErrInsufficientData,
			fmt.Errorf("need at least 2 closes, got %d", len(closes)))
	}

	out := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		prev := closes[i-1]
		if prev <= 0 {
			return nil, core.WrapError(core.ErrInsufficientData,
				fmt.Errorf("non-positive close %v at index %d", prev, i-1))
		}
		out[i-1] = closes[i]/prev - 1
	}
	return out, nil
}
