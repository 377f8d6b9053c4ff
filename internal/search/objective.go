package search

import (
	"context"
	"math/rand/v2"

	"github.com/newthinker/retsign/internal/dataset"
	"github.com/newthinker/retsign/internal/evaluate"
	"github.com/newthinker/retsign/internal/nn"
	"github.com/newthinker/retsign/internal/train"
)

// Objective builds, trains and scores one model for a configuration.
// Implementations must be deterministic for a given (hp, seed).
type Objective interface {
	Fit(ctx context.Context, hp HyperParams, seed uint64) (*Fitted, error)
}

// Fitted is a trained model with its validation score.
type Fitted struct {
	Model   *nn.Classifier
	Score   float64
	Probs   []float64
	History train.History
}

// CNNObjective trains a fresh classifier on Train and scores it by
// ROC-AUC on Valid. Train and Valid may be the same set.
type CNNObjective struct {
	Train     *dataset.Set
	Valid     *dataset.Set
	Trainer   *train.Trainer
	Evaluator evaluate.Evaluator
}

// NewCNNObjective creates an objective over a train/validation pair.
func NewCNNObjective(trainSet, validSet *dataset.Set, trainer *train.Trainer) *CNNObjective {
	return &CNNObjective{Train: trainSet, Valid: validSet, Trainer: trainer}
}

func (o *CNNObjective) Fit(ctx context.Context, hp HyperParams, seed uint64) (*Fitted, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewPCG(seed, seed))
	model, err := nn.NewClassifier(hp.Architecture(o.Train.SeqLen), rng)
	if err != nil {
		return nil, err
	}

	history, err := o.Trainer.Run(model, nn.NewAdam(hp.LearningRate), o.Train, hp.Epochs, rng)
	if err != nil {
		return nil, err
	}

	res, err := o.Evaluator.Evaluate(model, o.Valid.Windows, o.Valid.Labels)
	if err != nil {
		return nil, err
	}
	return &Fitted{Model: model, Score: res.AUC, Probs: res.Probs, History: history}, nil
}
