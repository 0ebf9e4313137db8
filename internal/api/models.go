package api

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/benplehn/btc-sub000/internal/engine"
	"github.com/benplehn/btc-sub000/types"
	"github.com/shopspring/decimal"
)

// BacktestRequest is the body of POST /api/v1/backtest. Omitted engine
// parameters fall back to the server defaults.
type BacktestRequest struct {
	Model                string           `json:"model"`
	FeeBps               *float64         `json:"fee_bps"`
	FeeRate              *decimal.Decimal `json:"fee_rate"`
	InitialCapital       *decimal.Decimal `json:"initial_capital"`
	MaterialityThreshold *decimal.Decimal `json:"materiality_threshold"`
	ClipAllocation       *bool            `json:"clip_allocation"`
	Observations         []ObservationDTO `json:"observations" binding:"required,min=1,dive"`
}

// ObservationDTO is one input day. A null pos is a flat position.
type ObservationDTO struct {
	Date  string   `json:"date" binding:"required"`
	Close float64  `json:"close"`
	Pos   *float64 `json:"pos"`
}

type BacktestResponse struct {
	ID      string          `json:"id"`
	Model   engine.FeeModel `json:"model"`
	Metrics MetricsDTO      `json:"metrics"`
	Ledger  *LedgerDTO      `json:"ledger,omitempty"`
	Rows    []RowDTO        `json:"rows,omitempty"`
}

type MetricsDTO struct {
	Days          int     `json:"days"`
	EquityFinal   float64 `json:"equity_final"`
	BHEquityFinal float64 `json:"bh_equity_final"`
	CAGR          float64 `json:"cagr"`
	BHCAGR        float64 `json:"bh_cagr"`
	Vol           float64 `json:"vol"`
	BHVol         float64 `json:"bh_vol"`
	MaxDD         float64 `json:"max_dd"`
	BHMaxDD       float64 `json:"bh_max_dd"`
	Sharpe        float64 `json:"sharpe"`
	Sortino       float64 `json:"sortino"`
	Calmar        float64 `json:"calmar"`
	Trades        int     `json:"trades"`
	Turnover      float64 `json:"turnover"`
}

type LedgerDTO struct {
	InitialCapital decimal.Decimal `json:"initial_capital"`
	TotalFeesPaid  decimal.Decimal `json:"total_fees_paid"`
	AvgAllocation  float64         `json:"avg_allocation"`
	FinalCash      decimal.Decimal `json:"final_cash"`
	FinalBTC       decimal.Decimal `json:"final_btc"`
	FinalPortfolio decimal.Decimal `json:"final_portfolio"`
}

type RowDTO struct {
	Date           string           `json:"date"`
	Close          float64          `json:"close"`
	Pos            *float64         `json:"pos"`
	Ret            float64          `json:"ret"`
	Turnover       float64          `json:"turnover"`
	Trade          bool             `json:"trade"`
	StrategyRet    float64          `json:"strategy_ret"`
	Equity         float64          `json:"equity"`
	BHEquity       float64          `json:"bh_equity"`
	PortfolioValue *decimal.Decimal `json:"portfolio_value,omitempty"`
	Cash           *decimal.Decimal `json:"cash,omitempty"`
	BTCUnits       *decimal.Decimal `json:"btc_units,omitempty"`
	BTCValue       *decimal.Decimal `json:"btc_value,omitempty"`
	FeesPaid       *decimal.Decimal `json:"fees_paid,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (r *BacktestRequest) series() ([]types.Observation, error) {
	out := make([]types.Observation, len(r.Observations))
	for i, o := range r.Observations {
		date, err := time.Parse("2006-01-02", o.Date)
		if err != nil {
			return nil, err
		}
		if !isFinite(o.Close) || o.Close <= 0 {
			return nil, fmt.Errorf("observation %d (%s): close must be positive and finite, got %v", i, o.Date, o.Close)
		}
		pos := math.NaN()
		if o.Pos != nil {
			pos = *o.Pos
		}
		out[i] = types.Observation{Date: date, Close: o.Close, Pos: types.AllocationPercent(pos)}
	}
	return out, nil
}

var errNonFiniteResult = errors.New("backtest produced non-finite values")

// checkFinite reports the first metric or row field JSON cannot encode.
func checkFinite(res *engine.Result) error {
	m := res.Metrics
	metrics := map[string]float64{
		"equity_final":    m.EquityFinal,
		"bh_equity_final": m.BHEquityFinal,
		"cagr":            m.CAGR,
		"bh_cagr":         m.BHCAGR,
		"vol":             m.Vol,
		"bh_vol":          m.BHVol,
		"max_dd":          m.MaxDD,
		"bh_max_dd":       m.BHMaxDD,
		"sharpe":          m.Sharpe,
		"sortino":         m.Sortino,
		"calmar":          m.Calmar,
		"turnover":        m.Turnover,
	}
	for name, v := range metrics {
		if !isFinite(v) {
			return fmt.Errorf("%w: %s = %v", errNonFiniteResult, name, v)
		}
	}
	if res.Ledger != nil && !isFinite(res.Ledger.AvgAllocation) {
		return fmt.Errorf("%w: avg_allocation = %v", errNonFiniteResult, res.Ledger.AvgAllocation)
	}
	for _, r := range res.Rows {
		for _, v := range []float64{r.Close, r.Ret, r.Turnover, r.StrategyRet, r.Equity, r.BHEquity} {
			if !isFinite(v) {
				return fmt.Errorf("%w: row %s", errNonFiniteResult, r.Date.Format("2006-01-02"))
			}
		}
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func newBacktestResponse(id string, res *engine.Result, withRows bool) BacktestResponse {
	m := res.Metrics
	resp := BacktestResponse{
		ID:    id,
		Model: res.Model,
		Metrics: MetricsDTO{
			Days:          m.Days,
			EquityFinal:   m.EquityFinal,
			BHEquityFinal: m.BHEquityFinal,
			CAGR:          m.CAGR,
			BHCAGR:        m.BHCAGR,
			Vol:           m.Vol,
			BHVol:         m.BHVol,
			MaxDD:         m.MaxDD,
			BHMaxDD:       m.BHMaxDD,
			Sharpe:        m.Sharpe,
			Sortino:       m.Sortino,
			Calmar:        m.Calmar,
			Trades:        m.Trades,
			Turnover:      m.Turnover,
		},
	}
	if l := res.Ledger; l != nil {
		resp.Ledger = &LedgerDTO{
			InitialCapital: l.InitialCapital,
			TotalFeesPaid:  l.TotalFeesPaid,
			AvgAllocation:  l.AvgAllocation,
			FinalCash:      l.FinalCash,
			FinalBTC:       l.FinalBTC,
			FinalPortfolio: l.FinalPortfolio,
		}
	}
	if !withRows {
		return resp
	}

	ledger := res.Model == engine.FeeModelLedger
	resp.Rows = make([]RowDTO, len(res.Rows))
	for i, r := range res.Rows {
		row := RowDTO{
			Date:        r.Date.Format("2006-01-02"),
			Close:       r.Close,
			Ret:         r.Ret,
			Turnover:    r.Turnover,
			Trade:       r.Trade,
			StrategyRet: r.StrategyRet,
			Equity:      r.Equity,
			BHEquity:    r.BHEquity,
		}
		// JSON has no NaN
		if p := float64(r.Pos); !math.IsNaN(p) {
			row.Pos = &p
		}
		if ledger {
			row.PortfolioValue = &res.Rows[i].PortfolioValue
			row.Cash = &res.Rows[i].Cash
			row.BTCUnits = &res.Rows[i].AssetUnits
			row.BTCValue = &res.Rows[i].AssetValue
			row.FeesPaid = &res.Rows[i].FeesPaid
		}
		resp.Rows[i] = row
	}
	return resp
}
