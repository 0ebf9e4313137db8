package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle is one daily OHLCV bar from the price store.
type Candle struct {
	AssetId   int             `json:"id"`
	Ticker    string          `json:"ticker"`
	Open      decimal.Decimal `json:"open"`
	Close     decimal.Decimal `json:"close"`
	High      decimal.Decimal `json:"high" `
	Low       decimal.Decimal `json:"low"`
	Volume    decimal.Decimal `json:"volume"`
	Timestamp time.Time       `json:"timestamp"`
}
