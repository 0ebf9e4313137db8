package engine

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// WriteResultCSVFile writes the augmented rows of res to a CSV file at path.
func WriteResultCSVFile(path string, res *Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create result file: %w", err)
	}
	defer f.Close()

	return WriteResultCSV(f, res)
}

// WriteResultCSV writes one row per day to any io.Writer.
// Ledger columns are only written for ledger results.
func WriteResultCSV(w io.Writer, res *Result) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	ledger := res.Model == FeeModelLedger

	header := []string{
		"date",
		"close",
		"pos",
		"weight",
		"ret",
		"turnover",
		"trade",
		"strategy_ret",
		"equity",
		"bh_equity",
	}
	if ledger {
		header = append(header, "portfolio_value", "cash", "btc_units", "btc_value", "fees_paid")
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, r := range res.Rows {
		record := []string{
			r.Date.Format("2006-01-02"),
			formatFloat(r.Close),
			formatFloat(float64(r.Pos)),
			formatFloat(float64(r.Weight)),
			formatFloat(r.Ret),
			formatFloat(r.Turnover),
			formatBool(r.Trade),
			formatFloat(r.StrategyRet),
			formatFloat(r.Equity),
			formatFloat(r.BHEquity),
		}
		if ledger {
			record = append(record,
				r.PortfolioValue.StringFixed(8),
				r.Cash.StringFixed(8),
				r.AssetUnits.StringFixed(12),
				r.AssetValue.StringFixed(8),
				r.FeesPaid.StringFixed(8),
			)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteMetricsCSV writes the summary of res as metric,value pairs.
func WriteMetricsCSV(w io.Writer, res *Result) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"metric", "value"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, kv := range summaryPairs(res) {
		if err := cw.Write([]string{kv.key, kv.value}); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteTradesCSV writes the executed rebalances of a ledger result.
func WriteTradesCSV(w io.Writer, res *Result) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"date", "side", "price", "amount", "btc_units", "fee"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, t := range res.Trades {
		record := []string{
			t.Date.Format("2006-01-02"),
			string(t.Side),
			t.Price.String(),
			t.Amount.StringFixed(8),
			t.Units.StringFixed(12),
			t.Fee.StringFixed(8),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

type pair struct {
	key   string
	value string
}

func summaryPairs(res *Result) []pair {
	m := res.Metrics
	out := []pair{
		{"model", string(res.Model)},
		{"days", strconv.Itoa(m.Days)},
		{"equity_final", formatFloat(m.EquityFinal)},
		{"bh_equity_final", formatFloat(m.BHEquityFinal)},
		{"cagr", formatFloat(m.CAGR)},
		{"bh_cagr", formatFloat(m.BHCAGR)},
		{"vol", formatFloat(m.Vol)},
		{"bh_vol", formatFloat(m.BHVol)},
		{"max_dd", formatFloat(m.MaxDD)},
		{"bh_max_dd", formatFloat(m.BHMaxDD)},
		{"sharpe", formatFloat(m.Sharpe)},
		{"sortino", formatFloat(m.Sortino)},
		{"calmar", formatFloat(m.Calmar)},
		{"trades", strconv.Itoa(m.Trades)},
	}
	if res.Model == FeeModelTurnover {
		out = append(out, pair{"turnover", formatFloat(m.Turnover)})
	}
	if res.Ledger != nil {
		out = append(out,
			pair{"total_fees_paid", res.Ledger.TotalFeesPaid.StringFixed(8)},
			pair{"avg_allocation", formatFloat(res.Ledger.AvgAllocation)},
			pair{"final_cash", res.Ledger.FinalCash.StringFixed(8)},
			pair{"final_btc", res.Ledger.FinalBTC.StringFixed(12)},
			pair{"final_portfolio", res.Ledger.FinalPortfolio.StringFixed(8)},
		)
	}
	return out
}

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
