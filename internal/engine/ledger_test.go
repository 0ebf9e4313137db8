package engine

import (
	"testing"

	"github.com/benplehn/btc-sub000/types"
)

func TestLedgerRebalance(t *testing.T) {
	tests := []struct {
		name      string
		start     ledger
		price     string
		weight    types.Weight
		wantTrade bool
		wantSide  types.Side
		wantFee   string
		wantCash  string
		wantUnits string
	}{
		{
			name:      "initial buy, fee taken from purchase",
			start:     ledger{cash: dec("1000"), units: dec("0"), feeRate: dec("0.001"), threshold: dec("0.01")},
			price:     "100",
			weight:    1,
			wantTrade: true,
			wantSide:  types.SideTypeBuy,
			wantFee:   "1",
			wantCash:  "0",
			wantUnits: "9.99",
		},
		{
			name:      "partial sell, fee taken from proceeds",
			start:     ledger{cash: dec("0"), units: dec("1"), feeRate: dec("0.001"), threshold: dec("0.01")},
			price:     "100",
			weight:    0.5,
			wantTrade: true,
			wantSide:  types.SideTypeSell,
			wantFee:   "0.05",
			wantCash:  "49.95",
			wantUnits: "0.5",
		},
		{
			name:      "within materiality threshold",
			start:     ledger{cash: dec("0"), units: dec("1"), feeRate: dec("0.001"), threshold: dec("0.01")},
			price:     "100",
			weight:    0.99995,
			wantTrade: false,
			wantFee:   "0",
			wantCash:  "0",
			wantUnits: "1",
		},
		{
			name:      "exactly at threshold is skipped",
			start:     ledger{cash: dec("100"), units: dec("0"), feeRate: dec("0"), threshold: dec("0.01")},
			price:     "10",
			weight:    0.0001,
			wantTrade: false,
			wantFee:   "0",
			wantCash:  "100",
			wantUnits: "0",
		},
		{
			name:      "buy capped by cash",
			start:     ledger{cash: dec("10"), units: dec("1"), feeRate: dec("0"), threshold: dec("0.01")},
			price:     "100",
			weight:    1.5,
			wantTrade: true,
			wantSide:  types.SideTypeBuy,
			wantFee:   "0",
			wantCash:  "0",
			wantUnits: "1.1",
		},
		{
			name:      "nothing to buy with",
			start:     ledger{cash: dec("0"), units: dec("1"), feeRate: dec("0"), threshold: dec("0.01")},
			price:     "100",
			weight:    2,
			wantTrade: false,
			wantFee:   "0",
			wantCash:  "0",
			wantUnits: "1",
		},
		{
			name:      "sell capped by units held",
			start:     ledger{cash: dec("50"), units: dec("0.5"), feeRate: dec("0"), threshold: dec("0.01")},
			price:     "100",
			weight:    -1,
			wantTrade: true,
			wantSide:  types.SideTypeSell,
			wantFee:   "0",
			wantCash:  "100",
			wantUnits: "0",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := tt.start
			f, traded := l.rebalance(dec(tt.price), tt.weight)

			if traded != tt.wantTrade {
				t.Fatalf("traded = %v, want %v", traded, tt.wantTrade)
			}
			if traded && f.side != tt.wantSide {
				t.Fatalf("side = %v, want %v", f.side, tt.wantSide)
			}
			if !f.fee.Equal(dec(tt.wantFee)) {
				t.Fatalf("fee = %s, want %s", f.fee, tt.wantFee)
			}
			if !l.cash.Equal(dec(tt.wantCash)) {
				t.Fatalf("cash = %s, want %s", l.cash, tt.wantCash)
			}
			if !l.units.Equal(dec(tt.wantUnits)) {
				t.Fatalf("units = %s, want %s", l.units, tt.wantUnits)
			}
		})
	}
}

func TestLedgerPortfolioValue(t *testing.T) {
	l := newLedger(dec("250"), dec("0.001"), DefaultMaterialityThreshold)
	l.units = dec("0.5")

	if got := l.assetValue(dec("300")); !got.Equal(dec("150")) {
		t.Fatalf("assetValue() = %s, want 150", got)
	}
	if got := l.portfolioValue(dec("300")); !got.Equal(dec("400")) {
		t.Fatalf("portfolioValue() = %s, want 400", got)
	}
}
