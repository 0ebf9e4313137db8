package types

import "time"

// MarketDay is one merged upstream row: the daily close joined with the
// Fear & Greed reading for the same calendar day.
type MarketDay struct {
	Date           time.Time `json:"date"`
	Close          float64   `json:"close"`
	FearGreed      int       `json:"fng"`
	FearGreedLabel string    `json:"fng_label"`
}

// ObservationAt builds the observation for day with the given allocation.
func (d MarketDay) ObservationAt(pos AllocationPercent) Observation {
	return Observation{Date: d.Date, Close: d.Close, Pos: pos}
}
