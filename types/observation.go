package types

import "time"

// Observation is one day of the series consumed by the backtest engines.
// Series are expected in strictly increasing Date order with no duplicates.
type Observation struct {
	Date  time.Time         `json:"date"`
	Close float64           `json:"close"`
	Pos   AllocationPercent `json:"pos"`
}

// DayUTC normalizes t to midnight UTC of its calendar day.
func DayUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
