package engine

import (
	"errors"
	"fmt"

	"github.com/benplehn/btc-sub000/types"
)

var (
	ErrEmptySeries    = errors.New("observation series is empty")
	ErrUnsortedSeries = errors.New("observation dates must be strictly increasing")
)

// validateSeries checks ordering only; the series is never reordered or deduplicated.
func validateSeries(series []types.Observation) error {
	if len(series) == 0 {
		return ErrEmptySeries
	}
	for i := 1; i < len(series); i++ {
		if !series[i].Date.After(series[i-1].Date) {
			return fmt.Errorf("row %d (%s) after %s: %w",
				i, series[i].Date.Format("2006-01-02"), series[i-1].Date.Format("2006-01-02"), ErrUnsortedSeries)
		}
	}
	return nil
}
