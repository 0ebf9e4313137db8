package types

import "math"

// AllocationPercent is the target share of portfolio value held in the asset,
// expressed in percent (0-100 nominally).
type AllocationPercent float64

// Weight is an allocation expressed as a fraction of portfolio value.
type Weight float64

const (
	MinAllocation AllocationPercent = 0
	MaxAllocation AllocationPercent = 100
)

// Weight converts the percent to a fraction. NaN counts as a flat position.
// With clip set the percent is clamped to [0,100] first; without it values
// outside the range map to leveraged or negative weights.
func (p AllocationPercent) Weight(clip bool) Weight {
	v := float64(p)
	if math.IsNaN(v) {
		return 0
	}
	if clip {
		v = math.Max(float64(MinAllocation), math.Min(float64(MaxAllocation), v))
	}
	return Weight(v / 100)
}

func (w Weight) Percent() AllocationPercent {
	return AllocationPercent(float64(w) * 100)
}
