// Package evaluate scores classifier probabilities against binary labels.
package evaluate

import (
	"fmt"
	"math"

	"github.com/newthinker/retsign/internal/core"
	"gonum.org/v1/gonum/floats"
)

// ROCAUC returns the area under the ROC curve: the probability that a
// randomly chosen positive is scored above a randomly chosen negative, with
// ties counted as one half. It is computed from the Mann-Whitney rank sum,
// so a perfectly separated set scores exactly 1.
//
// Labels must be 0 or 1. A label set with a single class yields
// core.ErrDegenerateEvaluation; a NaN or infinite score yields
// core.ErrNonFiniteOutput.
func ROCAUC(labels, scores []float64) (float64, error) {
	if len(labels) != len(scores) {
		return 0, fmt.Errorf("labels and scores differ in length: %d vs %d", len(labels), len(scores))
	}

	nPos, nNeg, err := classCounts(labels)
	if err != nil {
		return 0, err
	}
	for i, s := range scores {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return 0, core.WrapError(core.ErrNonFiniteOutput, fmt.Errorf("score %v at index %d", s, i))
		}
	}

	sorted := append([]float64(nil), scores...)
	order := make([]int, len(sorted))
	floats.Argsort(sorted, order)

	// Sum the average ranks (1-based) of positives.
	var rankSum float64
	for i := 0; i < len(sorted); {
		j := i + 1
		for j < len(sorted) && sorted[j] == sorted[i] {
			j++
		}
		avg := float64(i+j+1) / 2
		for _, k := range order[i:j] {
			if labels[k] == 1 {
				rankSum += avg
			}
		}
		i = j
	}

	u := rankSum - nPos*(nPos+1)/2
	return u / (nPos * nNeg), nil
}

// classCounts counts positives and negatives and fails when either is zero.
func classCounts(labels []float64) (pos, neg float64, err error) {
	for _, y := range labels {
		if y == 1 {
			pos++
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return pos, neg, core.WrapError(core.ErrDegenerateEvaluation,
			fmt.Errorf("%d positives, %d negatives", int(pos), int(neg)))
	}
	return pos, neg, nil
}
