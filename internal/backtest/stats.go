package backtest

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// CalculateStats computes performance statistics from periods and trades
func CalculateStats(periods []Period, trades []Trade) Stats {
	if len(periods) == 0 {
		return Stats{}
	}

	var correct, long int
	returns := make([]float64, len(periods))
	for i, p := range periods {
		if p.Correct {
			correct++
		}
		if p.Long {
			long++
		}
		returns[i] = p.Return
	}

	var winning, losing int
	for _, t := range trades {
		if !t.IsClosed() {
			continue
		}
		if t.IsWin() {
			winning++
		} else {
			losing++
		}
	}

	closedTrades := winning + losing
	var winRate float64
	if closedTrades > 0 {
		winRate = float64(winning) / float64(closedTrades) * 100
	}

	n := float64(len(periods))
	return Stats{
		Periods:       len(periods),
		HitRate:       float64(correct) / n * 100,
		Exposure:      float64(long) / n * 100,
		TotalTrades:   len(trades),
		WinningTrades: winning,
		LosingTrades:  losing,
		WinRate:       winRate,
		TotalReturn:   (compound(returns) - 1) * 100,
		MaxDrawdown:   calculateMaxDrawdown(returns) * 100,
		SharpeRatio:   calculateSharpeRatio(returns),
	}
}

func compound(returns []float64) float64 {
	growth := 1.0
	for _, r := range returns {
		growth *= 1 + r
	}
	return growth
}

// calculateMaxDrawdown finds the largest peak-to-trough decline of the
// equity curve, starting from 1.
func calculateMaxDrawdown(returns []float64) float64 {
	var maxDD float64
	peak := 1.0
	cumulative := 1.0

	for _, r := range returns {
		cumulative *= 1 + r
		if cumulative > peak {
			peak = cumulative
		}
		if dd := (peak - cumulative) / peak; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// calculateSharpeRatio computes risk-adjusted return per period, annualized.
// Assumes risk-free rate of 0.
func calculateSharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	mean, std := stat.MeanStdDev(returns, nil)
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(TradingDays)
}
