// Package report assembles the outcome of a search run into a single
// document and encodes it for archiving.
package report

import (
	"time"

	"github.com/newthinker/retsign/internal/backtest"
	"github.com/newthinker/retsign/internal/evaluate"
	"github.com/newthinker/retsign/internal/search"
)

// Report is everything a run produced except the trained weights, which
// are never persisted.
type Report struct {
	RunID     string    `json:"run_id" msgpack:"run_id"`
	CreatedAt time.Time `json:"created_at" msgpack:"created_at"`

	Data  Data         `json:"data" msgpack:"data"`
	Space search.Space `json:"space" msgpack:"space"`

	Trials    []search.Trial `json:"trials" msgpack:"trials"`
	Truncated bool           `json:"truncated" msgpack:"truncated"`

	BestTrial  int            `json:"best_trial" msgpack:"best_trial"`
	BestConfig map[string]any `json:"best_config" msgpack:"best_config"`
	BestScore  float64        `json:"best_score" msgpack:"best_score"`

	Refit      Refit          `json:"refit" msgpack:"refit"`
	FinalScore float64        `json:"final_score" msgpack:"final_score"`
	ROC        evaluate.Curve `json:"roc" msgpack:"roc"`
	ROCArea    float64        `json:"roc_area" msgpack:"roc_area"`

	Backtest *backtest.Stats `json:"backtest,omitempty" msgpack:"backtest,omitempty"`
	Timings  Timings         `json:"timings" msgpack:"timings"`
}

// Data describes the samples the run was fitted on.
type Data struct {
	Source             string  `json:"source" msgpack:"source"`
	Symbol             string  `json:"symbol" msgpack:"symbol"`
	Closes             int     `json:"closes" msgpack:"closes"`
	SeqLen             int     `json:"seq_length" msgpack:"seq_length"`
	Windows            int     `json:"windows" msgpack:"windows"`
	Positives          int     `json:"positives" msgpack:"positives"`
	TrainWindows       int     `json:"train_windows" msgpack:"train_windows"`
	ValidWindows       int     `json:"valid_windows" msgpack:"valid_windows"`
	ValidationFraction float64 `json:"validation_fraction" msgpack:"validation_fraction"`
}

// Refit is the final retraining of the best configuration.
type Refit struct {
	Seed      uint64             `json:"seed" msgpack:"seed"`
	Score     float64            `json:"score" msgpack:"score"`
	EpochLoss []float64          `json:"epoch_loss" msgpack:"epoch_loss"`
	Params    search.HyperParams `json:"params" msgpack:"params"`
}

// Timings records wall-clock durations of the run stages.
type Timings struct {
	Search time.Duration `json:"search" msgpack:"search"`
	Refit  time.Duration `json:"refit" msgpack:"refit"`
	Total  time.Duration `json:"total" msgpack:"total"`
}

// New assembles a report from a finished search and its refit, stamped
// with createdAt.
func New(runID string, createdAt time.Time, data Data, space search.Space, res *search.Result, refit *search.Fitted, refitSeed uint64, labels []float64) *Report {
	r := &Report{
		RunID:      runID,
		CreatedAt:  createdAt.UTC(),
		Data:       data,
		Space:      space,
		Trials:     res.Trials,
		Truncated:  res.Truncated,
		BestTrial:  res.Best.Number,
		BestConfig: res.Best.Params.Map(),
		BestScore:  res.Best.Score,
		Refit: Refit{
			Seed:      refitSeed,
			Score:     refit.Score,
			EpochLoss: refit.History.EpochLoss,
			Params:    res.Best.Params,
		},
		FinalScore: refit.Score,
	}
	if len(refit.Probs) == len(labels) {
		r.ROC = evaluate.ROC(labels, refit.Probs)
		r.ROCArea = r.ROC.Area()
	}
	return r
}

// AttachBacktest records the sign backtest statistics.
func (r *Report) AttachBacktest(stats backtest.Stats) {
	r.Backtest = &stats
}
