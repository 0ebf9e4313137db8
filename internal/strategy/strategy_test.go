package strategy

import (
	"math"
	"testing"
	"time"

	"github.com/benplehn/btc-sub000/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func marketDays(closes []float64, fng []int) []types.MarketDay {
	days := make([]types.MarketDay, len(closes))
	for i := range closes {
		days[i] = types.MarketDay{Date: day0.AddDate(0, 0, i), Close: closes[i]}
		if fng != nil {
			days[i].FearGreed = fng[i]
		}
	}
	return days
}

func positions(obs []types.Observation) []types.AllocationPercent {
	out := make([]types.AllocationPercent, len(obs))
	for i, o := range obs {
		out[i] = o.Pos
	}
	return out
}

func linear(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

func TestConstant(t *testing.T) {
	days := marketDays([]float64{1, 2, 3}, nil)
	out := Constant{Pos: 100}.Generate(days)

	require.Len(t, out, 3)
	for i, o := range out {
		assert.Equal(t, days[i].Date, o.Date)
		assert.Equal(t, days[i].Close, o.Close)
		assert.Equal(t, types.AllocationPercent(100), o.Pos)
	}
}

func TestFearGreedBands(t *testing.T) {
	g := FearGreedBands{BuyBelow: 25, SellAbove: 75, HighPos: 100, LowPos: 0, HoldPos: 50}
	days := marketDays(linear(7, 100, 0), []int{50, 20, 40, 80, 60, 25, 75})

	assert.Equal(t,
		[]types.AllocationPercent{50, 100, 100, 0, 0, 100, 0},
		positions(g.Generate(days)))
}

func TestRSIBands(t *testing.T) {
	g := RSIBands{Period: 5, Oversold: 30, Overbought: 70, HighPos: 100, LowPos: 20, StartPos: 60}

	t.Run("rally sells down", func(t *testing.T) {
		out := g.Generate(marketDays(linear(40, 100, 2), nil))
		require.Len(t, out, 40)
		assert.Equal(t, types.AllocationPercent(60), out[0].Pos)
		assert.Equal(t, types.AllocationPercent(20), out[39].Pos)
	})

	t.Run("selloff buys", func(t *testing.T) {
		out := g.Generate(marketDays(linear(40, 200, -2), nil))
		assert.Equal(t, types.AllocationPercent(60), out[0].Pos)
		assert.Equal(t, types.AllocationPercent(100), out[39].Pos)
	})

	t.Run("too short to compute", func(t *testing.T) {
		out := g.Generate(marketDays(linear(3, 100, 1), nil))
		assert.Equal(t, []types.AllocationPercent{60, 60, 60}, positions(out))
	})
}

func TestTrendFilter(t *testing.T) {
	g := TrendFilter{Period: 3, Inner: Constant{Pos: 80}}
	assert.Equal(t, "trend(constant)", g.Name())

	closes := []float64{10, 11, 12, 13, 5, 6}
	out := g.Generate(marketDays(closes, nil))

	// SMA(3) is defined from index 2: 11, 12, 10, 8
	assert.Equal(t, []types.AllocationPercent{80, 80, 80, 80, 0, 0}, positions(out))
}

func TestDonchianBreakout(t *testing.T) {
	g := DonchianBreakout{Lookback: 3, HighPos: 100, LowPos: 0, StartPos: 50}
	closes := []float64{10, 11, 12, 13, 12, 11, 9, 10, 10}

	assert.Equal(t,
		[]types.AllocationPercent{50, 50, 50, 100, 100, 0, 0, 0, 0},
		positions(g.Generate(marketDays(closes, nil))))
}

func TestAlign(t *testing.T) {
	got := align(4, []float64{1, 2})
	assert.True(t, math.IsNaN(got[0]))
	assert.True(t, math.IsNaN(got[1]))
	assert.Equal(t, []float64{1, 2}, got[2:])

	assert.Len(t, align(2, nil), 2)
}

func TestGeneratorsPreserveDates(t *testing.T) {
	days := marketDays(linear(30, 100, 1), make([]int, 30))
	for _, g := range []Generator{
		Constant{Pos: 100},
		FearGreedBands{BuyBelow: 20, SellAbove: 80, HighPos: 100, HoldPos: 50},
		RSIBands{Period: 14, Oversold: 30, Overbought: 70, HighPos: 100, StartPos: 50},
		TrendFilter{Period: 10, Inner: Constant{Pos: 100}},
		DonchianBreakout{Lookback: 5, HighPos: 100, StartPos: 50},
	} {
		out := g.Generate(days)
		require.Len(t, out, len(days), g.Name())
		for i := range out {
			assert.Equal(t, days[i].Date, out[i].Date, g.Name())
		}
	}
}
