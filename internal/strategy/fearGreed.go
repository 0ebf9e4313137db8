package strategy

import "github.com/benplehn/btc-sub000/types"

// FearGreedBands buys fear and sells greed: it moves to HighPos once the
// index is at or below BuyBelow, to LowPos once it is at or above
// SellAbove, and keeps its position in between. It starts at HoldPos.
type FearGreedBands struct {
	BuyBelow  int
	SellAbove int
	HighPos   types.AllocationPercent
	LowPos    types.AllocationPercent
	HoldPos   types.AllocationPercent
}

func (f FearGreedBands) Name() string { return "fng" }

func (f FearGreedBands) Generate(days []types.MarketDay) []types.Observation {
	// a low index is fear, which maps to the high allocation
	b := bands{low: float64(f.BuyBelow), high: float64(f.SellAbove), belowPos: f.HighPos, abovePos: f.LowPos}

	out := make([]types.Observation, len(days))
	pos := f.HoldPos
	for i, d := range days {
		pos = b.next(pos, float64(d.FearGreed))
		out[i] = d.ObservationAt(pos)
	}
	return out
}
