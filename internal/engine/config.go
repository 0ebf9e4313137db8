package engine

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

var ErrInvalidConfig = errors.New("invalid engine config")

// FeeModel selects how frictional costs are charged.
type FeeModel string

const (
	// FeeModelTurnover charges fee_bps on the day-over-day change in weight.
	FeeModelTurnover FeeModel = "simplified"
	// FeeModelLedger simulates cash and asset units and charges fees on traded notional.
	FeeModelLedger FeeModel = "ledger"
)

var ConvertFeeModel = map[string]FeeModel{
	"simplified": FeeModelTurnover,
	"turnover":   FeeModelTurnover,
	"ledger":     FeeModelLedger,
	"realistic":  FeeModelLedger,
}

// DefaultMaterialityThreshold is the absolute rebalance amount, in quote
// currency, at or below which the ledger engine skips a day. It does not
// scale with portfolio size.
var DefaultMaterialityThreshold = decimal.RequireFromString("0.01")

type Config struct {
	Model FeeModel

	// FeeBps is used by the turnover model, in basis points of weight change.
	FeeBps float64

	// FeeRate, InitialCapital and MaterialityThreshold are used by the ledger model.
	FeeRate              decimal.Decimal
	InitialCapital       decimal.Decimal
	MaterialityThreshold decimal.Decimal

	// ClipAllocation clamps pos to [0,100] before converting it to a weight.
	ClipAllocation bool
}

// NewSimplifiedConfig builds a turnover config. FeeRate mirrors feeBps so the
// config can be switched to the ledger model; a non-finite feeBps leaves it
// zero and is rejected by Validate.
func NewSimplifiedConfig(feeBps float64) *Config {
	cfg := &Config{
		Model:                FeeModelTurnover,
		FeeBps:               feeBps,
		FeeRate:              decimal.Zero,
		InitialCapital:       decimal.NewFromInt(1),
		MaterialityThreshold: DefaultMaterialityThreshold,
		ClipAllocation:       true,
	}
	if isFinite(feeBps) {
		cfg.FeeRate = decimal.NewFromFloat(feeBps / 10000)
	}
	return cfg
}

func NewLedgerConfig(initialCapital, feeRate decimal.Decimal) *Config {
	return &Config{
		Model:                FeeModelLedger,
		FeeBps:               feeRate.Mul(decimal.NewFromInt(10000)).InexactFloat64(),
		FeeRate:              feeRate,
		InitialCapital:       initialCapital,
		MaterialityThreshold: DefaultMaterialityThreshold,
		ClipAllocation:       true,
	}
}

func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}
	switch c.Model {
	case FeeModelTurnover:
		if !isFinite(c.FeeBps) || c.FeeBps < 0 {
			return fmt.Errorf("%w: fee_bps must be >= 0, got %v", ErrInvalidConfig, c.FeeBps)
		}
	case FeeModelLedger:
		if c.FeeRate.IsNegative() {
			return fmt.Errorf("%w: fee_rate must be >= 0, got %s", ErrInvalidConfig, c.FeeRate)
		}
		if !c.InitialCapital.IsPositive() {
			return fmt.Errorf("%w: initial_capital must be positive, got %s", ErrInvalidConfig, c.InitialCapital)
		}
		if c.MaterialityThreshold.IsNegative() {
			return fmt.Errorf("%w: materiality_threshold must be >= 0, got %s", ErrInvalidConfig, c.MaterialityThreshold)
		}
	default:
		return fmt.Errorf("%w: unknown fee model %q", ErrInvalidConfig, c.Model)
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
