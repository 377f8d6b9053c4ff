package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Refit trains a fresh model with the winning configuration and scores it
// the same way the trials were scored. The refit score is reported on its
// own and may differ from the best trial score.
func Refit(ctx context.Context, objective Objective, hp HyperParams, seed uint64, logger *zap.Logger) (*Fitted, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fitted, err := objective.Fit(ctx, hp, seed)
	if err != nil {
		return nil, fmt.Errorf("refit: %w", err)
	}
	logger.Info("refit complete",
		zap.Any("params", hp.Map()),
		zap.Uint64("seed", seed),
		zap.Float64("auc", fitted.Score),
	)
	return fitted, nil
}
