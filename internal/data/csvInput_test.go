package data

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/benplehn/btc-sub000/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadObservationsCSV(t *testing.T) {
	input := "Date,Close,Pos\n2024-01-01,100,100\n2024-01-02T15:30:00Z,110.5,\n"

	series, err := ReadObservationsCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, series, 2)

	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), series[0].Date)
	assert.Equal(t, 100.0, series[0].Close)
	assert.Equal(t, types.AllocationPercent(100), series[0].Pos)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), series[1].Date)
	assert.True(t, math.IsNaN(float64(series[1].Pos)))
}

func TestReadObservationsCSV_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"empty", "", ErrBadRecord},
		{"missing pos", "date,close\n2024-01-01,1\n", ErrMissingColumn},
		{"bad date", "date,close,pos\n01/01/2024,1,1\n", ErrBadRecord},
		{"bad close", "date,close,pos\n2024-01-01,abc,1\n", ErrBadRecord},
		{"empty close", "date,close,pos\n2024-01-01,,1\n", ErrBadRecord},
		{"short row", "date,close,pos\n2024-01-01,1\n", ErrBadRecord},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadObservationsCSV(strings.NewReader(tt.input))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestReadClosesCSV_IgnoresExtraColumns(t *testing.T) {
	input := "date,open,close,volume\n2024-01-01,1,2,3\n"
	series, err := ReadClosesCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, 2.0, series[0].Close)
	assert.Zero(t, series[0].Pos)
}

func TestWriteObservationsCSV_ReadsBack(t *testing.T) {
	in := []types.Observation{
		{Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Close: 42000.5, Pos: 60},
		{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Close: 43000, Pos: 0},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteObservationsCSV(&buf, in))

	out, err := ReadObservationsCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestMerge(t *testing.T) {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	closes := []types.Observation{
		{Date: day.AddDate(0, 0, 2), Close: 3},
		{Date: day, Close: 1},
		{Date: day.Add(6 * time.Hour), Close: 99},
		{Date: day.AddDate(0, 0, 1), Close: 2},
	}
	fng := []FearGreedPoint{
		{Date: day, Value: 10, Label: "Extreme Fear"},
		{Date: day.AddDate(0, 0, 2), Value: 80, Label: "Extreme Greed"},
		{Date: day.AddDate(0, 0, 5), Value: 50, Label: "Neutral"},
	}

	merged := Merge(closes, fng)
	require.Len(t, merged, 2)
	assert.Equal(t, types.MarketDay{Date: day, Close: 1, FearGreed: 10, FearGreedLabel: "Extreme Fear"}, merged[0])
	assert.Equal(t, day.AddDate(0, 0, 2), merged[1].Date)
	assert.Equal(t, 80, merged[1].FearGreed)
}
