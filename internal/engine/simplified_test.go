package engine

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/benplehn/btc-sub000/types"
)

func TestSimplifiedBuyAndHoldEquivalence(t *testing.T) {
	tests := []struct {
		name   string
		closes []float64
	}{
		{"three days", []float64{100, 110, 99}},
		{"single day", []float64{42000}},
		{"crash and recovery", []float64{60000, 30000, 15000, 45000, 69000}},
		{"random walk", closesOf(randomSeries(7, 500))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := RunBacktest(makeSeries(tt.closes, constantPos(len(tt.closes), 100)), 0)
			if err != nil {
				t.Fatalf("RunBacktest() error = %v", err)
			}
			want := tt.closes[len(tt.closes)-1] / tt.closes[0]
			if !almostEqual(res.Metrics.EquityFinal, want, 1e-6) {
				t.Fatalf("EquityFinal = %v, want %v", res.Metrics.EquityFinal, want)
			}
			if !almostEqual(res.Metrics.EquityFinal, res.Metrics.BHEquityFinal, 1e-9) {
				t.Fatalf("EquityFinal = %v, BHEquityFinal = %v", res.Metrics.EquityFinal, res.Metrics.BHEquityFinal)
			}
		})
	}
}

func TestSimplifiedLinearScaling(t *testing.T) {
	series := randomSeries(11, 250)
	for _, p := range []float64{0, 25, 50, 73, 100} {
		for i := range series {
			series[i].Pos = types.AllocationPercent(p)
		}
		res, err := RunBacktest(series, 0)
		if err != nil {
			t.Fatalf("p=%v: RunBacktest() error = %v", p, err)
		}

		equity := 1.0
		for i, row := range res.Rows {
			if i > 0 && row.StrategyRet != p/100*row.Ret {
				t.Fatalf("p=%v day %d: strategy_ret = %v, want %v", p, i, row.StrategyRet, p/100*row.Ret)
			}
			equity *= 1 + p/100*row.Ret
		}
		if !almostEqual(res.Metrics.EquityFinal, equity, 1e-6) {
			t.Fatalf("p=%v: EquityFinal = %v, want %v", p, res.Metrics.EquityFinal, equity)
		}
	}
}

func TestSimplifiedTurnoverSettles(t *testing.T) {
	for _, p := range []float64{10, 50, 100} {
		series := makeSeries([]float64{100, 101, 99, 103, 104}, constantPos(5, p))
		res, err := RunBacktest(series, 25)
		if err != nil {
			t.Fatalf("RunBacktest() error = %v", err)
		}
		if res.Metrics.Trades != 1 {
			t.Fatalf("p=%v: trades = %d, want 1", p, res.Metrics.Trades)
		}
		if !almostEqual(res.Rows[0].Turnover, p/100, 1e-15) {
			t.Fatalf("p=%v: day 0 turnover = %v, want %v", p, res.Rows[0].Turnover, p/100)
		}
		for i, row := range res.Rows[1:] {
			if row.Turnover != 0 || row.Trade {
				t.Fatalf("p=%v day %d: turnover = %v trade = %v, want 0/false", p, i+1, row.Turnover, row.Trade)
			}
		}
		if !almostEqual(res.Metrics.Turnover, p/100, 1e-15) {
			t.Fatalf("p=%v: total turnover = %v", p, res.Metrics.Turnover)
		}
	}
}

func TestSimplifiedConcreteScenarios(t *testing.T) {
	closes := []float64{100, 110, 99}

	t.Run("fully invested no fees", func(t *testing.T) {
		res, err := RunBacktest(makeSeries(closes, []float64{100, 100, 100}), 0)
		if err != nil {
			t.Fatalf("RunBacktest() error = %v", err)
		}
		if !almostEqual(res.Metrics.EquityFinal, 0.99, 1e-9) {
			t.Fatalf("EquityFinal = %v, want 0.99", res.Metrics.EquityFinal)
		}
		if res.Metrics.Trades != 1 || res.Metrics.Days != 3 {
			t.Fatalf("trades = %d days = %d", res.Metrics.Trades, res.Metrics.Days)
		}
	})

	t.Run("halving with 10 bps", func(t *testing.T) {
		res, err := RunBacktest(makeSeries(closes, []float64{100, 50, 50}), 10)
		if err != nil {
			t.Fatalf("RunBacktest() error = %v", err)
		}
		day0, day1, day2 := res.Rows[0], res.Rows[1], res.Rows[2]

		if !almostEqual(day0.StrategyRet, -0.001, 1e-15) {
			t.Fatalf("day 0 strategy_ret = %v, want -0.001", day0.StrategyRet)
		}
		if !almostEqual(day1.Turnover, 0.5, 1e-15) {
			t.Fatalf("day 1 turnover = %v, want 0.5", day1.Turnover)
		}
		if !almostEqual(day1.StrategyRet, 0.5*0.1-0.0005, 1e-12) {
			t.Fatalf("day 1 strategy_ret = %v, want %v", day1.StrategyRet, 0.5*0.1-0.0005)
		}
		if !almostEqual(day2.StrategyRet, 0.5*(99.0/110-1), 1e-12) {
			t.Fatalf("day 2 strategy_ret = %v", day2.StrategyRet)
		}
		if res.Metrics.Trades != 2 {
			t.Fatalf("trades = %d, want 2", res.Metrics.Trades)
		}
		if !almostEqual(res.Metrics.Turnover, 1.5, 1e-15) {
			t.Fatalf("turnover = %v, want 1.5", res.Metrics.Turnover)
		}
		want := (1 - 0.001) * (1 + 0.0495) * (1 + 0.5*(99.0/110-1))
		if !almostEqual(res.Metrics.EquityFinal, want, 1e-12) {
			t.Fatalf("EquityFinal = %v, want %v", res.Metrics.EquityFinal, want)
		}
	})
}

func TestSimplifiedFeeMonotonicity(t *testing.T) {
	series := randomSeries(3, 365)
	prev := math.Inf(1)
	for _, bps := range []float64{0, 1, 5, 10, 25, 100} {
		res, err := RunBacktest(series, bps)
		if err != nil {
			t.Fatalf("RunBacktest(%v) error = %v", bps, err)
		}
		if res.Metrics.EquityFinal > prev {
			t.Fatalf("fee %v bps: EquityFinal %v > %v at lower fee", bps, res.Metrics.EquityFinal, prev)
		}
		prev = res.Metrics.EquityFinal
	}
}

func TestSimplifiedAllocationHandling(t *testing.T) {
	closes := []float64{100, 120}

	tests := []struct {
		name       string
		pos        []float64
		clip       bool
		wantWeight float64
	}{
		{"nan is flat", []float64{math.NaN(), math.NaN()}, true, 0},
		{"clipped above 100", []float64{150, 150}, true, 1},
		{"clipped below 0", []float64{-20, -20}, true, 0},
		{"unclipped leverage", []float64{150, 150}, false, 1.5},
		{"unclipped short", []float64{-20, -20}, false, -0.2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewSimplifiedConfig(0)
			cfg.ClipAllocation = tt.clip
			eng, err := New(cfg)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			res, err := eng.Run(makeSeries(closes, tt.pos))
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if float64(res.Rows[1].Weight) != tt.wantWeight {
				t.Fatalf("weight = %v, want %v", res.Rows[1].Weight, tt.wantWeight)
			}
			want := 1 + tt.wantWeight*0.2
			if !almostEqual(res.Metrics.EquityFinal, want, 1e-12) {
				t.Fatalf("EquityFinal = %v, want %v", res.Metrics.EquityFinal, want)
			}
		})
	}
}

func TestSimplifiedDoesNotMutateInput(t *testing.T) {
	series := makeSeries([]float64{100, 90, 95}, []float64{math.NaN(), 150, 40})
	before := append([]types.Observation(nil), series...)

	if _, err := RunBacktest(series, 10); err != nil {
		t.Fatalf("RunBacktest() error = %v", err)
	}
	for i := range series {
		if series[i].Date != before[i].Date || series[i].Close != before[i].Close {
			t.Fatalf("row %d mutated: %+v, was %+v", i, series[i], before[i])
		}
	}
	if !math.IsNaN(float64(series[0].Pos)) || series[1].Pos != 150 {
		t.Fatalf("pos mutated: %+v", series)
	}
}

func TestRunRejectsMalformedSeries(t *testing.T) {
	dup := makeSeries([]float64{100, 101, 102}, constantPos(3, 100))
	dup[2].Date = dup[1].Date
	backwards := makeSeries([]float64{100, 101}, constantPos(2, 100))
	backwards[0], backwards[1] = backwards[1], backwards[0]

	tests := []struct {
		name    string
		series  []types.Observation
		wantErr error
	}{
		{"empty", nil, ErrEmptySeries},
		{"duplicate date", dup, ErrUnsortedSeries},
		{"descending", backwards, ErrUnsortedSeries},
	}
	for _, cfg := range []*Config{NewSimplifiedConfig(10), NewLedgerConfig(dec("1000"), dec("0.001"))} {
		eng, err := New(cfg)
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		for _, tt := range tests {
			t.Run(string(cfg.Model)+"/"+tt.name, func(t *testing.T) {
				res, err := eng.Run(tt.series)
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Run() error = %v, want %v", err, tt.wantErr)
				}
				if res != nil {
					t.Fatalf("Run() result = %+v, want nil", res)
				}
			})
		}
	}
}

func TestNewSelectsModel(t *testing.T) {
	for name, model := range ConvertFeeModel {
		cfg := NewSimplifiedConfig(10)
		if model == FeeModelLedger {
			cfg = NewLedgerConfig(dec("100"), dec("0.001"))
		}
		eng, err := New(cfg)
		if err != nil {
			t.Fatalf("%s: New() error = %v", name, err)
		}
		if eng.Model() != model {
			t.Fatalf("%s: Model() = %v, want %v", name, eng.Model(), model)
		}
	}

	bad := []*Config{
		nil,
		{Model: "slippage"},
		{Model: FeeModelTurnover, FeeBps: -1},
		{Model: FeeModelTurnover, FeeBps: math.NaN()},
		NewSimplifiedConfig(math.NaN()),
		NewSimplifiedConfig(math.Inf(1)),
		NewSimplifiedConfig(math.Inf(-1)),
		NewLedgerConfig(dec("0"), dec("0.001")),
		NewLedgerConfig(dec("100"), dec("-0.001")),
	}
	for i, cfg := range bad {
		if _, err := New(cfg); !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("bad config %d: error = %v, want ErrInvalidConfig", i, err)
		}
	}
}

func TestRunBacktestRejectsNonFiniteFee(t *testing.T) {
	series := makeSeries([]float64{100, 110}, []float64{50, 50})
	for _, fee := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		res, err := RunBacktest(series, fee)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("fee_bps %v: error = %v, want ErrInvalidConfig", fee, err)
		}
		if res != nil {
			t.Fatalf("fee_bps %v: got a result for an invalid config", fee)
		}
	}
}

func TestSimplifiedRowsCarryInputs(t *testing.T) {
	series := makeSeries([]float64{100, 110}, []float64{30, 60})
	res, err := RunBacktest(series, 0)
	if err != nil {
		t.Fatalf("RunBacktest() error = %v", err)
	}
	got := []types.AllocationPercent{res.Rows[0].Pos, res.Rows[1].Pos}
	if !reflect.DeepEqual(got, []types.AllocationPercent{30, 60}) {
		t.Fatalf("pos = %v", got)
	}
	if res.Ledger != nil || res.Model != FeeModelTurnover {
		t.Fatalf("unexpected ledger summary on simplified result: %+v", res)
	}
}

func closesOf(series []types.Observation) []float64 {
	out := make([]float64, len(series))
	for i, o := range series {
		out[i] = o.Close
	}
	return out
}
