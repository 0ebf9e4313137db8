package strategy

import (
	"math"

	"github.com/benplehn/btc-sub000/types"
	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/trend"
)

// RSIBands is FearGreedBands on the RSI of the close. The first days,
// before the RSI is defined, hold StartPos.
type RSIBands struct {
	Period     int
	Oversold   float64
	Overbought float64
	HighPos    types.AllocationPercent
	LowPos     types.AllocationPercent
	StartPos   types.AllocationPercent
}

func (r RSIBands) Name() string { return "rsi" }

func (r RSIBands) Generate(days []types.MarketDay) []types.Observation {
	rsi := align(len(days), rsiValues(closes(days), r.Period))
	b := bands{low: r.Oversold, high: r.Overbought, belowPos: r.HighPos, abovePos: r.LowPos}

	out := make([]types.Observation, len(days))
	pos := r.StartPos
	for i, d := range days {
		pos = b.next(pos, rsi[i])
		out[i] = d.ObservationAt(pos)
	}
	return out
}

func rsiValues(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) <= period {
		return nil
	}
	ind := momentum.NewRsiWithPeriod[float64](period)
	return helper.ChanToSlice(ind.Compute(helper.SliceToChan(prices)))
}

// TrendFilter passes Inner through while the close is at or above its
// simple moving average and goes flat below it. Days before the average is
// defined pass through unfiltered.
type TrendFilter struct {
	Period int
	Inner  Generator
}

func (t TrendFilter) Name() string { return "trend(" + t.Inner.Name() + ")" }

func (t TrendFilter) Generate(days []types.MarketDay) []types.Observation {
	out := t.Inner.Generate(days)
	sma := align(len(days), smaValues(closes(days), t.Period))
	for i := range out {
		if !math.IsNaN(sma[i]) && days[i].Close < sma[i] {
			out[i].Pos = 0
		}
	}
	return out
}

func smaValues(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period {
		return nil
	}
	ind := trend.NewSmaWithPeriod[float64](period)
	return helper.ChanToSlice(ind.Compute(helper.SliceToChan(prices)))
}
