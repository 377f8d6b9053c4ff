// Package train runs mini-batch gradient descent over a classifier.
package train

import (
	"fmt"
	"math/rand/v2"

	"github.com/newthinker/retsign/internal/dataset"
	"github.com/newthinker/retsign/internal/nn"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// Model is the trainable surface of a classifier.
type Model interface {
	Forward(x nn.Batch, training bool) (*mat.Dense, error)
	Backward(logitGrad []float64)
	Params() []*nn.Param
}

// History holds the mean training loss of each epoch.
type History struct {
	EpochLoss []float64
}

// Final returns the last epoch's loss, or 0 when no epoch ran.
func (h History) Final() float64 {
	if len(h.EpochLoss) == 0 {
		return 0
	}
	return h.EpochLoss[len(h.EpochLoss)-1]
}

// Trainer runs a fixed number of epochs; there is no early stopping.
type Trainer struct {
	loss      nn.BinaryCrossEntropy
	batchSize int
	logger    *zap.Logger
}

// New creates a Trainer. A non-positive batchSize uses dataset.DefaultBatchSize.
func New(batchSize int, logger *zap.Logger) *Trainer {
	if batchSize <= 0 {
		batchSize = dataset.DefaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Trainer{batchSize: batchSize, logger: logger}
}

// BatchSize returns the mini-batch size.
func (t *Trainer) BatchSize() int {
	return t.batchSize
}

// Run trains model in place for epochs passes over set. Each epoch visits
// the samples in a fresh order drawn from rng. An empty set makes every
// epoch a no-op.
func (t *Trainer) Run(model Model, opt nn.Optimizer, set *dataset.Set, epochs int, rng *rand.Rand) (History, error) {
	params := model.Params()
	history := History{EpochLoss: make([]float64, 0, epochs)}

	for epoch := 0; epoch < epochs; epoch++ {
		var total float64
		batches := dataset.Batches(set.Len(), t.batchSize, rng)
		for _, idx := range batches {
			windows, labels := set.Gather(idx)
			x, err := nn.NewBatch(windows)
			if err != nil {
				return history, err
			}

			nn.ZeroGrad(params)
			out, err := model.Forward(x, true)
			if err != nil {
				return history, fmt.Errorf("epoch %d: %w", epoch+1, err)
			}
			probs := mat.Col(nil, 0, out)
			total += t.loss.Loss(probs, labels) * float64(len(idx))
			model.Backward(t.loss.LogitGrad(probs, labels))
			opt.Step(params)
		}

		var mean float64
		if n := set.Len(); n > 0 {
			mean = total / float64(n)
		}
		history.EpochLoss = append(history.EpochLoss, mean)
		t.logger.Debug("epoch complete",
			zap.Int("epoch", epoch+1),
			zap.Int("batches", len(batches)),
			zap.Float64("loss", mean),
		)
	}
	return history, nil
}
