package engine

import (
	"github.com/benplehn/btc-sub000/types"
)

// Engine turns a daily allocation series into an equity curve and metrics.
// Implementations are alternative cost models over the same simulation and
// keep no state between runs, so one Engine may be shared across goroutines.
type Engine interface {
	Model() FeeModel
	Run(series []types.Observation) (*Result, error)
}
