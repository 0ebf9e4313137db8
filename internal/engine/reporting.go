package engine

import (
	"fmt"
	"io"
)

// PrintReport writes a human readable comparison of res against buy-and-hold.
func PrintReport(w io.Writer, title string, res *Result) {
	m := res.Metrics

	fmt.Fprintf(w, "===== %s =====\n", title)
	fmt.Fprintf(w, "Model:                 %s\n", res.Model)
	fmt.Fprintf(w, "Days:                  %d\n", m.Days)
	if len(res.Rows) > 0 {
		fmt.Fprintf(w, "Period:                %s -> %s\n",
			res.Rows[0].Date.Format("2006-01-02"), res.Rows[len(res.Rows)-1].Date.Format("2006-01-02"))
	}
	fmt.Fprintf(w, "Trades:                %d\n", m.Trades)
	if res.Model == FeeModelTurnover {
		fmt.Fprintf(w, "Turnover:              %.4f\n", m.Turnover)
	}

	fmt.Fprintln(w, "\n--                     Strategy     Buy&Hold")
	fmt.Fprintf(w, "Equity:                %-12.4f %-12.4f\n", m.EquityFinal, m.BHEquityFinal)
	fmt.Fprintf(w, "CAGR:                  %-12s %-12s\n", pct(m.CAGR), pct(m.BHCAGR))
	fmt.Fprintf(w, "Volatility:            %-12s %-12s\n", pct(m.Vol), pct(m.BHVol))
	fmt.Fprintf(w, "Max Drawdown:          %-12s %-12s\n", pct(m.MaxDD), pct(m.BHMaxDD))

	fmt.Fprintln(w, "\n-- Risk-Adjusted Metrics --")
	fmt.Fprintf(w, "Sharpe Ratio:          %.3f\n", m.Sharpe)
	fmt.Fprintf(w, "Sortino Ratio:         %.3f\n", m.Sortino)
	fmt.Fprintf(w, "Calmar Ratio:          %.3f\n", m.Calmar)

	if l := res.Ledger; l != nil {
		fmt.Fprintln(w, "\n-- Ledger --")
		fmt.Fprintf(w, "Initial Capital:       %s\n", l.InitialCapital.StringFixed(2))
		fmt.Fprintf(w, "Final Portfolio:       %s\n", l.FinalPortfolio.StringFixed(2))
		fmt.Fprintf(w, "Final Cash:            %s\n", l.FinalCash.StringFixed(2))
		fmt.Fprintf(w, "Final BTC:             %s\n", l.FinalBTC.StringFixed(8))
		fmt.Fprintf(w, "Total Fees:            %s\n", l.TotalFeesPaid.StringFixed(2))
		fmt.Fprintf(w, "Avg Allocation:        %.2f%%\n", l.AvgAllocation)
	}
	fmt.Fprintln(w, "==========================")
}

func pct(f float64) string {
	return fmt.Sprintf("%.2f%%", f*100)
}
