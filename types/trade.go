package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is one executed rebalance of the ledger model. Amount is the quote
// currency moved before fees; Fee is charged in quote currency.
type Trade struct {
	Date   time.Time       `json:"date"`
	Side   Side            `json:"side"`
	Price  decimal.Decimal `json:"price"`
	Amount decimal.Decimal `json:"amount"`
	Units  decimal.Decimal `json:"units"`
	Fee    decimal.Decimal `json:"fee"`
}
