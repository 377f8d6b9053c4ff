// Package collector fetches daily price history from market data sources.
package collector

import (
	"context"
	"time"

	"github.com/newthinker/retsign/internal/core"
)

// Collector defines the interface for price-history sources
type Collector interface {
	// Metadata
	Name() string
	SupportedMarkets() []core.Market

	// FetchHistory returns bars for symbol in [start, end], oldest first
	FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error)
}
