package engine

import (
	"math"

	"github.com/benplehn/btc-sub000/types"
)

// tradeThreshold is the minimum weight change counted as a trade.
const tradeThreshold = 1e-6

// simplifiedEngine charges frictional cost proportional to |Δweight|, not to
// traded notional. Equity is a pure growth multiple starting at 1.
type simplifiedEngine struct {
	feeRate float64
	clip    bool
}

func newSimplifiedEngine(cfg *Config) *simplifiedEngine {
	return &simplifiedEngine{
		feeRate: cfg.FeeBps / 10000,
		clip:    cfg.ClipAllocation,
	}
}

func (e *simplifiedEngine) Model() FeeModel {
	return FeeModelTurnover
}

func (e *simplifiedEngine) Run(series []types.Observation) (*Result, error) {
	if err := validateSeries(series); err != nil {
		return nil, err
	}

	rows := make([]Row, len(series))
	equity, bhEquity := 1.0, 1.0
	prevWeight := 0.0
	trades := 0
	totalTurnover := 0.0

	for i, obs := range series {
		ret := dailyReturn(series, i)
		w := obs.Pos.Weight(e.clip)

		// Day 0 is charged for establishing the initial position.
		turnover := math.Abs(float64(w) - prevWeight)
		trade := turnover > tradeThreshold
		strategyRet := float64(w)*ret - turnover*e.feeRate

		equity *= 1 + strategyRet
		bhEquity *= 1 + ret

		if trade {
			trades++
		}
		totalTurnover += turnover
		prevWeight = float64(w)

		rows[i] = Row{
			Date:        obs.Date,
			Close:       obs.Close,
			Pos:         obs.Pos,
			Weight:      w,
			Ret:         ret,
			Turnover:    turnover,
			Trade:       trade,
			StrategyRet: strategyRet,
			Equity:      equity,
			BHEquity:    bhEquity,
		}
	}

	metrics := calcMetrics(columns(rows))
	metrics.Trades = trades
	metrics.Turnover = totalTurnover

	return &Result{
		Model:   FeeModelTurnover,
		Rows:    rows,
		Metrics: metrics,
	}, nil
}
