package data

import (
	"sort"
	"time"

	"github.com/benplehn/btc-sub000/types"
)

// Merge joins daily closes with Fear & Greed readings on the UTC calendar
// day. Days missing from either side are dropped, and only the first close
// of a day is kept. The result is ascending.
func Merge(closes []types.Observation, fng []FearGreedPoint) []types.MarketDay {
	byDay := make(map[time.Time]FearGreedPoint, len(fng))
	for _, p := range fng {
		byDay[types.DayUTC(p.Date)] = p
	}

	out := make([]types.MarketDay, 0, len(closes))
	seen := make(map[time.Time]struct{}, len(closes))
	for _, c := range closes {
		day := types.DayUTC(c.Date)
		p, ok := byDay[day]
		if !ok {
			continue
		}
		if _, dup := seen[day]; dup {
			continue
		}
		seen[day] = struct{}{}
		out = append(out, types.MarketDay{
			Date:           day,
			Close:          c.Close,
			FearGreed:      p.Value,
			FearGreedLabel: p.Label,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
