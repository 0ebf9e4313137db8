package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benplehn/btc-sub000/types"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Candles are stored at any resolution and bucketed to UTC days on read.
const getDailyCandles = `SELECT time_bucket('1 day', timestamp) AS bucket,
       first(open, timestamp) AS open,
       max(high) AS high,
       min(low) AS low,
       last(close, timestamp) AS close,
       sum(volume) AS volume
FROM candles
WHERE asset_id = $1 AND timestamp >= $2 AND timestamp < $3
GROUP BY bucket
ORDER BY bucket`

// GetDailyCandles returns one candle per UTC day in [start, end).
func (db *Database) GetDailyCandles(ctx context.Context, asset *types.Asset, start, end time.Time) ([]types.Candle, error) {
	if !start.Before(end) {
		return nil, ErrInvalidRange
	}
	rows, err := db.db.Query(ctx, getDailyCandles, asset.Id, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("query candles: %w", err)
	}
	defer rows.Close()

	var candles []types.Candle
	for rows.Next() {
		var (
			bucket                         time.Time
			open, high, low, closePrice, volume decimal.Decimal
		)
		if err := rows.Scan(&bucket, &open, &high, &low, &closePrice, &volume); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		candles = append(candles, types.Candle{
			AssetId:   asset.Id,
			Ticker:    asset.Ticker,
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closePrice,
			Volume:    volume,
			Timestamp: types.DayUTC(bucket),
		})
	}
	if err := rows.Err(); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoCandles
		}
		return nil, err
	}
	if len(candles) == 0 {
		return nil, ErrNoCandles
	}
	return candles, nil
}

// GetDailyCloses returns the daily closes of ticker in [start, end) as an
// observation series with a zero allocation, ready for a strategy to fill.
func (db *Database) GetDailyCloses(ctx context.Context, ticker string, start, end time.Time) ([]types.Observation, error) {
	asset, err := db.GetAssetByTicker(ctx, ticker)
	if err != nil {
		return nil, err
	}
	candles, err := db.GetDailyCandles(ctx, asset, start, end)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ticker, err)
	}
	series := make([]types.Observation, len(candles))
	for i, c := range candles {
		series[i] = types.Observation{Date: c.Timestamp, Close: c.Close.InexactFloat64()}
	}
	return series, nil
}
