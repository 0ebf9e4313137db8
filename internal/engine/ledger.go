package engine

import (
	"github.com/benplehn/btc-sub000/types"
	"github.com/shopspring/decimal"
)

// ledger is the cash/asset bookkeeping of one realistic run.
// cash + units*price is the portfolio value at any price.
type ledger struct {
	cash      decimal.Decimal
	units     decimal.Decimal
	feeRate   decimal.Decimal
	threshold decimal.Decimal
}

// fill is one executed rebalance.
type fill struct {
	side   types.Side
	amount decimal.Decimal // quote currency moved, before fees
	units  decimal.Decimal // asset units added or removed
	fee    decimal.Decimal
}

func newLedger(initialCash, feeRate, threshold decimal.Decimal) *ledger {
	return &ledger{
		cash:      initialCash,
		units:     decimal.Zero,
		feeRate:   feeRate,
		threshold: threshold,
	}
}

func (l *ledger) assetValue(price decimal.Decimal) decimal.Decimal {
	return l.units.Mul(price)
}

func (l *ledger) portfolioValue(price decimal.Decimal) decimal.Decimal {
	return l.cash.Add(l.assetValue(price))
}

// rebalance moves the holdings toward weight w of portfolio value at price.
// Rebalances within the materiality threshold are skipped. Buys are capped by
// cash and sells by units held, so the realized weight can fall short of w.
func (l *ledger) rebalance(price decimal.Decimal, w types.Weight) (fill, bool) {
	assetValue := l.assetValue(price)
	target := l.portfolioValue(price).Mul(decimal.NewFromFloat(float64(w)))
	delta := target.Sub(assetValue)

	if delta.Abs().LessThanOrEqual(l.threshold) {
		return fill{}, false
	}

	if delta.IsPositive() {
		amount := decimal.Min(delta, l.cash)
		if !amount.IsPositive() {
			return fill{}, false
		}
		// The fee comes out of the purchased amount, not on top of it.
		fee := amount.Mul(l.feeRate)
		bought := amount.Sub(fee).Div(price)
		l.cash = l.cash.Sub(amount)
		l.units = l.units.Add(bought)
		return fill{side: types.SideTypeBuy, amount: amount, units: bought, fee: fee}, true
	}

	sold := decimal.Min(delta.Abs().Div(price), l.units)
	if !sold.IsPositive() {
		return fill{}, false
	}
	proceeds := sold.Mul(price)
	fee := proceeds.Mul(l.feeRate)
	l.units = l.units.Sub(sold)
	l.cash = l.cash.Add(proceeds.Sub(fee))
	return fill{side: types.SideTypeSell, amount: proceeds, units: sold, fee: fee}, true
}
