// Package backtest replays a classifier's sign calls as a long/flat
// strategy over the returns that followed each window.
package backtest

import (
	"fmt"

	"github.com/newthinker/retsign/internal/core"
)

// DefaultThreshold is the probability above which the strategy goes long.
const DefaultThreshold = 0.5

// Backtester runs sign backtests over scored windows
type Backtester struct {
	threshold float64
}

// New creates a new Backtester. A threshold outside (0, 1) uses
// DefaultThreshold.
func New(threshold float64) *Backtester {
	if threshold <= 0 || threshold >= 1 {
		threshold = DefaultThreshold
	}
	return &Backtester{threshold: threshold}
}

// Run goes long for the next period whenever probs[i] exceeds the
// threshold and stays flat otherwise. next[i] is the return realised after
// window i.
func (b *Backtester) Run(probs, next []float64) (*Result, error) {
	if len(probs) != len(next) {
		return nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("%d probabilities for %d returns", len(probs), len(next)))
	}
	if len(probs) == 0 {
		return nil, core.ErrNoData
	}

	periods := make([]Period, len(probs))
	for i, p := range probs {
		long := p > b.threshold
		periods[i] = Period{
			Prob:    p,
			Long:    long,
			Next:    next[i],
			Correct: long == (next[i] > 0),
		}
		if long {
			periods[i].Return = next[i]
		}
	}

	trades := periodsToTrades(periods)
	return &Result{
		Threshold: b.threshold,
		Periods:   periods,
		Trades:    trades,
		Stats:     CalculateStats(periods, trades),
	}, nil
}

// periodsToTrades groups consecutive long periods into trades
func periodsToTrades(periods []Period) []Trade {
	var trades []Trade
	var open *Trade
	growth := 1.0

	for i, p := range periods {
		switch {
		case p.Long && open == nil:
			open = &Trade{Entry: i}
			growth = 1 + p.Next
		case p.Long:
			growth *= 1 + p.Next
		case open != nil:
			open.Exit = i
			open.Return = growth - 1
			trades = append(trades, *open)
			open = nil
		}
	}

	// Still long at the end of the series
	if open != nil {
		open.Exit = len(periods)
		open.Return = growth - 1
		open.Open = true
		trades = append(trades, *open)
	}
	return trades
}
