package engine

import (
	"time"

	"github.com/benplehn/btc-sub000/types"
	"github.com/shopspring/decimal"
)

// Row is one input observation augmented with the derived per-day fields.
type Row struct {
	Date   time.Time
	Close  float64
	Pos    types.AllocationPercent
	Weight types.Weight

	Ret         float64
	Turnover    float64
	Trade       bool
	StrategyRet float64
	Equity      float64
	BHEquity    float64

	// Ledger model only.
	PortfolioValue decimal.Decimal
	Cash           decimal.Decimal
	AssetUnits     decimal.Decimal
	AssetValue     decimal.Decimal
	FeesPaid       decimal.Decimal
}

// LedgerSummary holds the end state of a ledger run.
type LedgerSummary struct {
	InitialCapital decimal.Decimal
	TotalFeesPaid  decimal.Decimal
	AvgAllocation  float64 // percent of portfolio value held in the asset, averaged over days
	FinalCash      decimal.Decimal
	FinalBTC       decimal.Decimal
	FinalPortfolio decimal.Decimal
}

type Result struct {
	Model FeeModel
	Rows  []Row
	// Trades lists executed rebalances; ledger model only.
	Trades  []types.Trade
	Metrics Metrics
	Ledger  *LedgerSummary
}

// columns extracts the aligned series the metrics are computed from.
func columns(rows []Row) (equity, strategyRet, ret, bhEquity []float64) {
	equity = make([]float64, len(rows))
	strategyRet = make([]float64, len(rows))
	ret = make([]float64, len(rows))
	bhEquity = make([]float64, len(rows))
	for i, r := range rows {
		equity[i] = r.Equity
		strategyRet[i] = r.StrategyRet
		ret[i] = r.Ret
		bhEquity[i] = r.BHEquity
	}
	return equity, strategyRet, ret, bhEquity
}

func dailyReturn(series []types.Observation, i int) float64 {
	if i == 0 {
		return 0
	}
	return series[i].Close/series[i-1].Close - 1
}
