package evaluate

import (
	"math"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// Curve is a ROC curve sampled at every distinct score threshold, ordered
// by increasing false positive rate.
type Curve struct {
	FPR       []float64 `json:"fpr" msgpack:"fpr"`
	TPR       []float64 `json:"tpr" msgpack:"tpr"`
	Threshold []float64 `json:"threshold" msgpack:"threshold"`
}

// ROC computes the curve for the given labels and scores. Callers should
// check the label set with ROCAUC first; a single-class set produces a
// meaningless curve.
func ROC(labels, scores []float64) Curve {
	y := append([]float64(nil), scores...)
	classes := make([]bool, len(labels))
	for i, l := range labels {
		classes[i] = l == 1
	}
	stat.SortWeightedLabeled(y, classes, nil)

	tpr, fpr, thresh := stat.ROC(nil, y, classes, nil)
	// The open-ended cutoffs are infinite; scores are probabilities, so
	// clamp them to [0, 1] to keep the curve encodable as JSON.
	for i, t := range thresh {
		thresh[i] = math.Max(0, math.Min(1, t))
	}
	return Curve{FPR: fpr, TPR: tpr, Threshold: thresh}
}

// Area integrates the curve with the trapezoidal rule.
func (c Curve) Area() float64 {
	if len(c.FPR) < 2 {
		return 0
	}
	return integrate.Trapezoidal(c.FPR, c.TPR)
}
