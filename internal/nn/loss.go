package nn

import "math"

// BinaryCrossEntropy is the mean binary cross-entropy between predicted
// probabilities and 0/1 targets.
type BinaryCrossEntropy struct {
	// Eps clamps probabilities away from 0 and 1 inside the log.
	Eps float64
}

// Loss returns the mean loss over the batch.
func (l BinaryCrossEntropy) Loss(probs, targets []float64) float64 {
	if len(probs) == 0 {
		return 0
	}
	eps := l.Eps
	if eps == 0 {
		eps = 1e-12
	}
	sum := 0.0
	for i, p := range probs {
		p = math.Max(math.Min(p, 1-eps), eps)
		t := targets[i]
		sum -= t*math.Log(p) + (1-t)*math.Log(1-p)
	}
	return sum / float64(len(probs))
}

// LogitGrad returns dLoss/dz for each row, where z is the logit feeding the
// output sigmoid. For sigmoid + BCE this is (p - t) / n.
func (l BinaryCrossEntropy) LogitGrad(probs, targets []float64) []float64 {
	grad := make([]float64, len(probs))
	if len(probs) == 0 {
		return grad
	}
	scale := 1 / float64(len(probs))
	for i, p := range probs {
		grad[i] = (p - targets[i]) * scale
	}
	return grad
}
