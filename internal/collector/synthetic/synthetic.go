// Package synthetic generates seeded geometric random-walk price series
// for offline runs.
package synthetic

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/newthinker/retsign/internal/core"
	"gonum.org/v1/gonum/stat/distuv"
)

// Config controls the generated walk. Drift and Volatility are per-bar.
type Config struct {
	Length     int
	Drift      float64
	Volatility float64
	Seed       uint64
	StartPrice float64
}

// DefaultConfig returns a year-scale walk with equity-like daily moves.
func DefaultConfig() Config {
	return Config{
		Length:     1000,
		Drift:      0.0003,
		Volatility: 0.01,
		Seed:       1,
		StartPrice: 100,
	}
}

// Synthetic implements collector.Collector over a random walk.
type Synthetic struct {
	cfg Config
}

// New creates a synthetic source. Zero fields take DefaultConfig values.
func New(cfg Config) *Synthetic {
	def := DefaultConfig()
	if cfg.Length <= 0 {
		cfg.Length = def.Length
	}
	if cfg.Volatility <= 0 {
		cfg.Volatility = def.Volatility
	}
	if cfg.StartPrice <= 0 {
		cfg.StartPrice = def.StartPrice
	}
	return &Synthetic{cfg: cfg}
}

func (s *Synthetic) Name() string {
	return "synthetic"
}

func (s *Synthetic) SupportedMarkets() []core.Market {
	return []core.Market{core.MarketSim}
}

// FetchHistory returns Length daily bars starting at start. The walk
// depends only on the seed, so end is ignored and any symbol is accepted.
func (s *Synthetic) FetchHistory(ctx context.Context, symbol string, start, _ time.Time, interval string) ([]core.OHLCV, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if symbol == "" {
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("symbol cannot be empty"))
	}
	if start.IsZero() {
		start = time.Date(2000, 1, 3, 0, 0, 0, 0, time.UTC)
	}

	rng := rand.New(rand.NewPCG(s.cfg.Seed, s.cfg.Seed))
	shock := distuv.Normal{Mu: 0, Sigma: s.cfg.Volatility, Src: rng}
	volume := distuv.Poisson{Lambda: 1e6, Src: rng}
	mu := s.cfg.Drift - s.cfg.Volatility*s.cfg.Volatility/2

	bars := make([]core.OHLCV, s.cfg.Length)
	prev := s.cfg.StartPrice
	for i := range bars {
		closePrice := prev * math.Exp(mu+shock.Rand())
		bars[i] = core.OHLCV{
			Symbol:   symbol,
			Interval: interval,
			Open:     prev,
			High:     math.Max(prev, closePrice),
			Low:      math.Min(prev, closePrice),
			Close:    closePrice,
			Volume:   int64(volume.Rand()),
			Time:     start.AddDate(0, 0, i),
		}
		prev = closePrice
	}
	return bars, nil
}
