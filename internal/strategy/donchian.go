package strategy

import (
	"math"

	"github.com/benplehn/btc-sub000/types"
)

// DonchianBreakout goes to HighPos on a close above the highest close of
// the preceding Lookback days and to LowPos on a close below the lowest.
// It holds its position otherwise, starting at StartPos.
type DonchianBreakout struct {
	Lookback int
	HighPos  types.AllocationPercent
	LowPos   types.AllocationPercent
	StartPos types.AllocationPercent
}

func (d DonchianBreakout) Name() string { return "donchian" }

func (d DonchianBreakout) Generate(days []types.MarketDay) []types.Observation {
	out := make([]types.Observation, len(days))
	pos := d.StartPos
	for i, day := range days {
		// channel of the completed days only, excluding today
		if d.Lookback > 0 && i >= d.Lookback {
			highest, lowest := donchianHighLow(days[i-d.Lookback : i])
			switch {
			case day.Close > highest:
				pos = d.HighPos
			case day.Close < lowest:
				pos = d.LowPos
			}
		}
		out[i] = day.ObservationAt(pos)
	}
	return out
}

// donchianHighLow returns the highest and lowest close of days.
func donchianHighLow(days []types.MarketDay) (float64, float64) {
	highest, lowest := math.Inf(-1), math.Inf(1)
	for _, d := range days {
		highest = math.Max(highest, d.Close)
		lowest = math.Min(lowest, d.Close)
	}
	return highest, lowest
}
