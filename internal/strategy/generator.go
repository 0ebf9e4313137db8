package strategy

import (
	"math"

	"github.com/benplehn/btc-sub000/types"
)

// Generator turns merged market days into an allocation series. The output
// has one observation per input day, in the same order.
type Generator interface {
	Name() string
	Generate(days []types.MarketDay) []types.Observation
}

// Constant holds the same allocation every day. Constant{Pos: 100} is buy-and-hold.
type Constant struct {
	Pos types.AllocationPercent
}

func (c Constant) Name() string { return "constant" }

func (c Constant) Generate(days []types.MarketDay) []types.Observation {
	out := make([]types.Observation, len(days))
	for i, d := range days {
		out[i] = d.ObservationAt(c.Pos)
	}
	return out
}

// bands is a two-threshold state machine: at or below low it moves to
// belowPos, at or above high to abovePos, and holds its last position between.
type bands struct {
	low, high          float64
	belowPos, abovePos types.AllocationPercent
}

func (b bands) next(prev types.AllocationPercent, v float64) types.AllocationPercent {
	switch {
	case math.IsNaN(v):
		return prev
	case v <= b.low:
		return b.belowPos
	case v >= b.high:
		return b.abovePos
	default:
		return prev
	}
}

func closes(days []types.MarketDay) []float64 {
	out := make([]float64, len(days))
	for i, d := range days {
		out[i] = d.Close
	}
	return out
}

// align right-aligns an indicator output against n inputs. Leading idle
// slots are NaN.
func align(n int, values []float64) []float64 {
	out := make([]float64, n)
	offset := n - len(values)
	for i := range out {
		j := i - offset
		if j < 0 || j >= len(values) {
			out[i] = math.NaN()
			continue
		}
		out[i] = values[j]
	}
	return out
}
