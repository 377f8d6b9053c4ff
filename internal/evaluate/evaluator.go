package evaluate

// Predictor returns one probability per window without changing its
// weights.
type Predictor interface {
	Predict(windows [][]float64) ([]float64, error)
}

// Result is a scored evaluation pass.
type Result struct {
	AUC   float64
	Probs []float64
}

// Evaluator scores a trained classifier by ROC-AUC.
type Evaluator struct{}

// Evaluate runs model over every window in inference mode and returns the
// ROC-AUC against labels. Degenerate label sets are checked before any
// forward pass.
func (Evaluator) Evaluate(model Predictor, windows [][]float64, labels []float64) (Result, error) {
	if _, _, err := classCounts(labels); err != nil {
		return Result{}, err
	}

	probs, err := model.Predict(windows)
	if err != nil {
		return Result{}, err
	}
	auc, err := ROCAUC(labels, probs)
	if err != nil {
		return Result{Probs: probs}, err
	}
	return Result{AUC: auc, Probs: probs}, nil
}
