package backtest

// Result holds the complete backtest output
type Result struct {
	Threshold float64  `json:"threshold" msgpack:"threshold"`
	Periods   []Period `json:"-" msgpack:"-"`
	Trades    []Trade  `json:"trades" msgpack:"trades"`
	Stats     Stats    `json:"stats" msgpack:"stats"`
}

// Period is one scored window: the model's probability, the position
// taken for the following return, and what that return turned out to be.
type Period struct {
	Prob    float64
	Long    bool
	Next    float64
	Return  float64 // Next when Long, else 0
	Correct bool    // predicted direction matched the sign of Next
}

// Trade is a run of consecutive long periods [Entry, Exit). Open trades
// were still long on the final period.
type Trade struct {
	Entry  int     `json:"entry" msgpack:"entry"`
	Exit   int     `json:"exit" msgpack:"exit"`
	Return float64 `json:"return" msgpack:"return"`
	Open   bool    `json:"open,omitempty" msgpack:"open,omitempty"`
}

// Stats holds performance statistics
type Stats struct {
	Periods       int     `json:"periods" msgpack:"periods"`
	HitRate       float64 `json:"hit_rate" msgpack:"hit_rate"` // Percentage of periods called in the right direction
	Exposure      float64 `json:"exposure" msgpack:"exposure"` // Percentage of periods spent long
	TotalTrades   int     `json:"total_trades" msgpack:"total_trades"`
	WinningTrades int     `json:"winning_trades" msgpack:"winning_trades"`
	LosingTrades  int     `json:"losing_trades" msgpack:"losing_trades"`
	WinRate       float64 `json:"win_rate" msgpack:"win_rate"`         // Percentage of profitable closed trades
	TotalReturn   float64 `json:"total_return" msgpack:"total_return"` // Compounded return percentage
	MaxDrawdown   float64 `json:"max_drawdown" msgpack:"max_drawdown"` // Largest peak-to-trough decline percentage
	SharpeRatio   float64 `json:"sharpe_ratio" msgpack:"sharpe_ratio"` // Annualized, zero risk-free rate
}

// Periods per year used to annualize the Sharpe ratio
const TradingDays = 252

// IsWin returns true if the trade was profitable
func (t Trade) IsWin() bool {
	return t.Return > 0
}

// IsClosed returns true if the trade has an exit
func (t Trade) IsClosed() bool {
	return !t.Open
}
