package engine

import (
	"fmt"

	"github.com/benplehn/btc-sub000/types"
	"github.com/shopspring/decimal"
)

// New returns the engine for cfg.Model.
func New(cfg *Config) (Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Model {
	case FeeModelTurnover:
		return newSimplifiedEngine(cfg), nil
	case FeeModelLedger:
		return newRealisticEngine(cfg), nil
	}
	return nil, fmt.Errorf("%w: unknown fee model %q", ErrInvalidConfig, cfg.Model)
}

// RunBacktest runs the turnover fee model with fee_bps basis points.
func RunBacktest(series []types.Observation, feeBps float64) (*Result, error) {
	eng, err := New(NewSimplifiedConfig(feeBps))
	if err != nil {
		return nil, err
	}
	return eng.Run(series)
}

// RunBacktestRealistic runs the cash/asset ledger model.
func RunBacktestRealistic(series []types.Observation, initialCapital, feeRate decimal.Decimal) (*Result, error) {
	eng, err := New(NewLedgerConfig(initialCapital, feeRate))
	if err != nil {
		return nil, err
	}
	return eng.Run(series)
}
