package engine

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

const (
	// Calendar-day annualization: crypto trades every day.
	periodsPerYear = 365.0
	epsilon        = 1e-12
)

type Metrics struct {
	Days int

	EquityFinal   float64
	BHEquityFinal float64
	CAGR          float64
	BHCAGR        float64
	Vol           float64
	BHVol         float64
	MaxDD         float64
	BHMaxDD       float64

	Sharpe  float64
	Sortino float64
	Calmar  float64

	Trades   int
	Turnover float64
}

// calcMetrics summarizes an equity curve against buy-and-hold. All slices must
// have the same length, at least one.
func calcMetrics(equity, strategyRet, ret, bhEquity []float64) Metrics {
	n := len(equity)
	m := Metrics{Days: n}
	if n == 0 {
		return m
	}

	m.EquityFinal = equity[n-1]
	m.BHEquityFinal = bhEquity[n-1]
	m.CAGR = calcCAGR(m.EquityFinal, n)
	m.BHCAGR = calcCAGR(m.BHEquityFinal, n)
	m.Vol = calcVol(strategyRet)
	m.BHVol = calcVol(ret)
	m.MaxDD = calcMaxDrawdown(equity)
	m.BHMaxDD = calcMaxDrawdown(bhEquity)

	annualMean := stat.Mean(strategyRet, nil) * periodsPerYear
	m.Sharpe = annualMean / (m.Vol + epsilon)
	m.Sortino = annualMean / (calcDownsideVol(strategyRet) + epsilon)
	m.Calmar = m.CAGR / (math.Abs(m.MaxDD) + epsilon)
	return m
}

// calcCAGR annualizes with 365/N where N counts rows, not elapsed years.
func calcCAGR(equityFinal float64, days int) float64 {
	if days <= 0 {
		return 0
	}
	if equityFinal <= 0 {
		return -1
	}
	return math.Pow(equityFinal, periodsPerYear/float64(days)) - 1
}

// calcVol is the annualized sample standard deviation.
func calcVol(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	return stat.StdDev(returns, nil) * math.Sqrt(periodsPerYear)
}

func calcDownsideVol(returns []float64) float64 {
	downside := make([]float64, 0, len(returns))
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	return calcVol(downside)
}

// calcMaxDrawdown returns min(equity/runningMax - 1), a value <= 0.
func calcMaxDrawdown(equity []float64) float64 {
	maxDD := 0.0
	peak := math.Inf(-1)
	for _, e := range equity {
		if e > peak {
			peak = e
		}
		if peak <= 0 {
			continue
		}
		if dd := e/peak - 1; dd < maxDD {
			maxDD = dd
		}
	}
	return maxDD
}
