package engine

import (
	"math"
	"math/rand"
	"time"

	"github.com/benplehn/btc-sub000/types"
	"github.com/shopspring/decimal"
)

var seriesStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func makeSeries(closes []float64, pos []float64) []types.Observation {
	series := make([]types.Observation, len(closes))
	for i := range closes {
		series[i] = types.Observation{
			Date:  seriesStart.AddDate(0, 0, i),
			Close: closes[i],
			Pos:   types.AllocationPercent(pos[i]),
		}
	}
	return series
}

func constantPos(n int, p float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = p
	}
	return out
}

// randomSeries is a seeded random walk with a random allocation that changes
// every few days.
func randomSeries(seed int64, n int) []types.Observation {
	rng := rand.New(rand.NewSource(seed))
	closes := make([]float64, n)
	pos := make([]float64, n)
	price := 20000.0
	p := 50.0
	for i := 0; i < n; i++ {
		price *= 1 + rng.NormFloat64()*0.04
		closes[i] = math.Max(price, 1)
		if rng.Intn(4) == 0 {
			p = float64(rng.Intn(11) * 10)
		}
		pos[i] = p
	}
	return makeSeries(closes, pos)
}

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
