package engine

import (
	"errors"
	"fmt"
	"math"

	"github.com/benplehn/btc-sub000/types"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidPrice      = errors.New("close price must be positive and finite")
	ErrInvalidAllocation = errors.New("allocation must be finite")
)

// realisticEngine simulates an explicit cash/asset portfolio and charges the
// fee rate on the notional of each executed trade.
type realisticEngine struct {
	initialCapital decimal.Decimal
	feeRate        decimal.Decimal
	threshold      decimal.Decimal
	clip           bool
}

func newRealisticEngine(cfg *Config) *realisticEngine {
	return &realisticEngine{
		initialCapital: cfg.InitialCapital,
		feeRate:        cfg.FeeRate,
		threshold:      cfg.MaterialityThreshold,
		clip:           cfg.ClipAllocation,
	}
}

func (e *realisticEngine) Model() FeeModel {
	return FeeModelLedger
}

func (e *realisticEngine) Run(series []types.Observation) (*Result, error) {
	if err := validateSeries(series); err != nil {
		return nil, err
	}

	l := newLedger(e.initialCapital, e.feeRate, e.threshold)
	rows := make([]Row, len(series))
	totalFees := decimal.Zero
	var trades []types.Trade
	allocationSum := 0.0
	prevEquity := 1.0
	firstClose := series[0].Close

	for i, obs := range series {
		if !(obs.Close > 0) || math.IsInf(obs.Close, 0) {
			return nil, fmt.Errorf("%s close %v: %w", obs.Date.Format("2006-01-02"), obs.Close, ErrInvalidPrice)
		}
		w := obs.Pos.Weight(e.clip)
		if math.IsInf(float64(w), 0) {
			return nil, fmt.Errorf("%s pos %v: %w", obs.Date.Format("2006-01-02"), obs.Pos, ErrInvalidAllocation)
		}
		price := decimal.NewFromFloat(obs.Close)

		f, traded := l.rebalance(price, w)
		if traded {
			totalFees = totalFees.Add(f.fee)
			trades = append(trades, types.Trade{
				Date:   obs.Date,
				Side:   f.side,
				Price:  price,
				Amount: f.amount,
				Units:  f.units,
				Fee:    f.fee,
			})
		}

		assetValue := l.assetValue(price)
		portfolioValue := l.cash.Add(assetValue)
		equity := portfolioValue.Div(e.initialCapital).InexactFloat64()
		if portfolioValue.IsPositive() {
			allocationSum += assetValue.Div(portfolioValue).InexactFloat64()
		}

		strategyRet := 0.0
		if prevEquity != 0 {
			strategyRet = equity/prevEquity - 1
		}

		rows[i] = Row{
			Date:           obs.Date,
			Close:          obs.Close,
			Pos:            obs.Pos,
			Weight:         w,
			Ret:            dailyReturn(series, i),
			Trade:          traded,
			StrategyRet:    strategyRet,
			Equity:         equity,
			BHEquity:       obs.Close / firstClose,
			PortfolioValue: portfolioValue,
			Cash:           l.cash,
			AssetUnits:     l.units,
			AssetValue:     assetValue,
			FeesPaid:       f.fee,
		}
		prevEquity = equity
	}

	metrics := calcMetrics(columns(rows))
	metrics.Trades = len(trades)

	last := rows[len(rows)-1]
	return &Result{
		Model:   FeeModelLedger,
		Rows:    rows,
		Trades:  trades,
		Metrics: metrics,
		Ledger: &LedgerSummary{
			InitialCapital: e.initialCapital,
			TotalFeesPaid:  totalFees,
			AvgAllocation:  100 * allocationSum / float64(len(rows)),
			FinalCash:      last.Cash,
			FinalBTC:       last.AssetUnits,
			FinalPortfolio: last.PortfolioValue,
		},
	}, nil
}
