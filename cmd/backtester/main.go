package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/benplehn/btc-sub000/internal/config"
	"github.com/benplehn/btc-sub000/internal/data"
	"github.com/benplehn/btc-sub000/internal/engine"
	"github.com/benplehn/btc-sub000/internal/logging"
	"github.com/benplehn/btc-sub000/internal/repository"
	"github.com/benplehn/btc-sub000/internal/strategy"
	"github.com/benplehn/btc-sub000/internal/sweep"
	"github.com/benplehn/btc-sub000/types"
	"github.com/sirupsen/logrus"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch os.Args[1] {
	case "backtest":
		err = cmdBacktest(ctx, os.Args[2:])
	case "sweep":
		err = cmdSweep(ctx, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("usage:")
	fmt.Println("  backtester backtest --input series.csv [--model ledger] [--out rows.csv]")
	fmt.Println("  backtester backtest --closes btc.csv --strategy fng --buy-below 20 --sell-above 75")
	fmt.Println("  backtester sweep --closes btc.csv --buy 10,20,30 --sell 60,70,80 --sort sharpe")
	fmt.Println("")
	fmt.Println("notes:")
	fmt.Println("  - --input takes date,close,pos and skips data loading and strategies")
	fmt.Println("  - without --closes, prices come from the database at database.url")
	fmt.Println("  - settings are read from config.yaml and BTCALLOC_* environment variables")
}

// sourceFlags select where market days come from.
type sourceFlags struct {
	configPath string
	closes     string
	start      string
	end        string
}

func (s *sourceFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&s.configPath, "config", "", "Path to YAML config")
	fs.StringVar(&s.closes, "closes", "", "CSV of date,close; empty reads the database")
	fs.StringVar(&s.start, "start", "2018-02-01", "First day (database source)")
	fs.StringVar(&s.end, "end", time.Now().UTC().Format("2006-01-02"), "Day after the last day (database source)")
}

// engineFlags override the engine section of the config.
type engineFlags struct {
	model   string
	feeBps  float64
	feeRate string
	capital string
	noClip  bool
}

func (e *engineFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&e.model, "model", "", "simplified|ledger (default from config)")
	fs.Float64Var(&e.feeBps, "fee-bps", 0, "Turnover fee in basis points")
	fs.StringVar(&e.feeRate, "fee-rate", "", "Ledger fee rate per traded notional")
	fs.StringVar(&e.capital, "capital", "", "Ledger initial capital")
	fs.BoolVar(&e.noClip, "no-clip", false, "Allow pos outside [0,100]")
}

func (e *engineFlags) apply(fs *flag.FlagSet, ec config.EngineConfig) (*engine.Config, error) {
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if set["model"] {
		ec.Model = e.model
	}
	if set["fee-bps"] {
		ec.FeeBps = e.feeBps
	}
	if set["fee-rate"] {
		ec.FeeRate = e.feeRate
	}
	if set["capital"] {
		ec.InitialCapital = e.capital
	}
	if e.noClip {
		ec.ClipAllocation = false
	}
	return ec.Build()
}

func setup(configPath string) (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logging.New(cfg.LogLevel, cfg.LogFormat), nil
}

func cmdBacktest(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("backtest", flag.ExitOnError)
	var src sourceFlags
	var ef engineFlags
	src.register(fs)
	ef.register(fs)
	input := fs.String("input", "", "CSV of date,close,pos to backtest as is")
	strat := fs.String("strategy", "fng", "fng|rsi|donchian|constant")
	buyBelow := fs.Int("buy-below", 25, "fng: buy at or below this index")
	sellAbove := fs.Int("sell-above", 75, "fng: sell at or above this index")
	period := fs.Int("period", 14, "rsi period or donchian lookback")
	oversold := fs.Float64("oversold", 30, "rsi: buy at or below")
	overbought := fs.Float64("overbought", 70, "rsi: sell at or above")
	highPos := fs.Float64("high", 100, "allocation when buying")
	lowPos := fs.Float64("low", 0, "allocation when selling")
	holdPos := fs.Float64("hold", 50, "starting allocation")
	trendPeriod := fs.Int("trend", 0, "Optional: go flat below the N-day SMA (0=off)")
	outPath := fs.String("out", "", "Optional: write per-day rows CSV")
	metricsPath := fs.String("metrics", "", "Optional: write metrics CSV")
	tradesPath := fs.String("trades", "", "Optional: write executed trades CSV (ledger model)")
	_ = fs.Parse(args)

	cfg, log, err := setup(src.configPath)
	if err != nil {
		return err
	}
	engCfg, err := ef.apply(fs, cfg.Engine)
	if err != nil {
		return err
	}

	var (
		series []types.Observation
		title  string
	)
	if *input != "" {
		series, err = readSeries(*input)
		if err != nil {
			return err
		}
		title = filepath.Base(*input)
	} else {
		days, err := loadMarketDays(ctx, cfg, log, src)
		if err != nil {
			return err
		}
		var gen strategy.Generator
		switch *strat {
		case "fng":
			gen = strategy.FearGreedBands{BuyBelow: *buyBelow, SellAbove: *sellAbove,
				HighPos: pct(*highPos), LowPos: pct(*lowPos), HoldPos: pct(*holdPos)}
		case "rsi":
			gen = strategy.RSIBands{Period: *period, Oversold: *oversold, Overbought: *overbought,
				HighPos: pct(*highPos), LowPos: pct(*lowPos), StartPos: pct(*holdPos)}
		case "donchian":
			gen = strategy.DonchianBreakout{Lookback: *period, HighPos: pct(*highPos), LowPos: pct(*lowPos), StartPos: pct(*holdPos)}
		case "constant":
			gen = strategy.Constant{Pos: pct(*highPos)}
		default:
			return fmt.Errorf("unknown strategy %q", *strat)
		}
		if *trendPeriod > 0 {
			gen = strategy.TrendFilter{Period: *trendPeriod, Inner: gen}
		}
		series = gen.Generate(days)
		title = gen.Name()
	}

	eng, err := engine.New(engCfg)
	if err != nil {
		return err
	}
	res, err := eng.Run(series)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"model": res.Model, "days": res.Metrics.Days, "trades": res.Metrics.Trades}).Info("backtest finished")

	engine.PrintReport(os.Stdout, title, res)

	if *outPath != "" {
		if err := ensureDir(*outPath); err != nil {
			return err
		}
		if err := engine.WriteResultCSVFile(*outPath, res); err != nil {
			return err
		}
		fmt.Printf("Wrote %d rows to %s\n", len(res.Rows), *outPath)
	}
	if *metricsPath != "" {
		if err := writeFile(*metricsPath, func(w io.Writer) error { return engine.WriteMetricsCSV(w, res) }); err != nil {
			return err
		}
	}
	if *tradesPath != "" {
		if err := writeFile(*tradesPath, func(w io.Writer) error { return engine.WriteTradesCSV(w, res) }); err != nil {
			return err
		}
	}
	return nil
}

func cmdSweep(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("sweep", flag.ExitOnError)
	var src sourceFlags
	var ef engineFlags
	src.register(fs)
	ef.register(fs)
	buys := fs.String("buy", "10,15,20,25,30", "Comma-separated buy-below thresholds")
	sells := fs.String("sell", "60,65,70,75,80,85", "Comma-separated sell-above thresholds")
	highPos := fs.Float64("high", 100, "allocation when buying")
	lowPos := fs.Float64("low", 0, "allocation when selling")
	holdPos := fs.Float64("hold", 50, "starting allocation")
	sortBy := fs.String("sort", "", "cagr|sharpe|calmar|equity (default from config)")
	top := fs.Int("top", 10, "Rows to print")
	outPath := fs.String("out", "", "Optional: write the full ranking CSV")
	_ = fs.Parse(args)

	cfg, log, err := setup(src.configPath)
	if err != nil {
		return err
	}
	engCfg, err := ef.apply(fs, cfg.Engine)
	if err != nil {
		return err
	}
	if *sortBy == "" {
		*sortBy = cfg.Sweep.SortBy
	}
	key, err := sweep.ParseSortKey(*sortBy)
	if err != nil {
		return err
	}
	buyList, err := parseInts(*buys)
	if err != nil {
		return fmt.Errorf("--buy: %w", err)
	}
	sellList, err := parseInts(*sells)
	if err != nil {
		return fmt.Errorf("--sell: %w", err)
	}

	days, err := loadMarketDays(ctx, cfg, log, src)
	if err != nil {
		return err
	}
	gens := sweep.FearGreedGrid(buyList, sellList, pct(*highPos), pct(*lowPos), pct(*holdPos))
	gens = append(gens, strategy.Constant{Pos: 100})
	candidates := sweep.Candidates(days, gens, sweep.FearGreedLabel)

	opts := []sweep.Option{sweep.WithWorkers(cfg.Sweep.Workers), sweep.WithSort(key), sweep.WithLogger(log)}
	if cfg.Sweep.Progress {
		opts = append(opts, sweep.WithProgress(os.Stderr))
	}
	outcomes, err := sweep.Run(ctx, engCfg, candidates, opts...)
	if err != nil {
		return err
	}

	printRanking(os.Stdout, outcomes, *top)
	if *outPath != "" {
		return writeFile(*outPath, func(w io.Writer) error { return writeRanking(w, outcomes) })
	}
	return nil
}

// loadMarketDays joins closes from CSV or the database with the cached
// Fear & Greed history.
func loadMarketDays(ctx context.Context, cfg *config.Config, log *logrus.Logger, src sourceFlags) ([]types.MarketDay, error) {
	var closes []types.Observation
	if src.closes != "" {
		f, err := os.Open(src.closes)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if closes, err = data.ReadClosesCSV(f); err != nil {
			return nil, fmt.Errorf("%s: %w", src.closes, err)
		}
	} else {
		if cfg.Database.URL == "" {
			return nil, errors.New("no --closes given and database.url is empty")
		}
		start, err := time.Parse("2006-01-02", src.start)
		if err != nil {
			return nil, fmt.Errorf("--start: %w", err)
		}
		end, err := time.Parse("2006-01-02", src.end)
		if err != nil {
			return nil, fmt.Errorf("--end: %w", err)
		}
		db, err := repository.NewDatabase(ctx, cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("connect price store: %w", err)
		}
		defer db.Close()
		if closes, err = db.GetDailyCloses(ctx, cfg.Database.Ticker, start, end); err != nil {
			return nil, err
		}
	}

	client := data.NewFearGreedClient(cfg.Data.FearGreedURL, cfg.Data.Timeout, log)
	source := data.NewCachedFearGreed(client, &data.CSVCache{Path: cfg.Data.CachePath}, cfg.Data.CacheMaxAge, log)
	fng, err := source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fear & greed: %w", err)
	}

	days := data.Merge(closes, fng)
	if len(days) == 0 {
		return nil, errors.New("no overlapping days between closes and fear & greed history")
	}
	log.WithFields(logrus.Fields{
		"closes": len(closes),
		"fng":    len(fng),
		"merged": len(days),
		"first":  days[0].Date.Format("2006-01-02"),
		"last":   days[len(days)-1].Date.Format("2006-01-02"),
	}).Info("market data loaded")
	return days, nil
}

func readSeries(path string) ([]types.Observation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	series, err := data.ReadObservationsCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return series, nil
}

func printRanking(w io.Writer, outcomes []sweep.Outcome, top int) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tstrategy\tequity\tcagr\tmax_dd\tsharpe\tcalmar\ttrades")
	for i, o := range outcomes {
		if top > 0 && i >= top {
			break
		}
		m := o.Result.Metrics
		fmt.Fprintf(tw, "%d\t%s\t%.4f\t%.2f%%\t%.2f%%\t%.3f\t%.3f\t%d\n",
			i+1, o.Label, m.EquityFinal, m.CAGR*100, m.MaxDD*100, m.Sharpe, m.Calmar, m.Trades)
	}
	_ = tw.Flush()
}

func writeRanking(w io.Writer, outcomes []sweep.Outcome) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"rank", "strategy", "equity_final", "cagr", "max_dd", "sharpe", "sortino", "calmar", "trades"})
	for i, o := range outcomes {
		m := o.Result.Metrics
		_ = cw.Write([]string{
			strconv.Itoa(i + 1),
			o.Label,
			strconv.FormatFloat(m.EquityFinal, 'f', -1, 64),
			strconv.FormatFloat(m.CAGR, 'f', -1, 64),
			strconv.FormatFloat(m.MaxDD, 'f', -1, 64),
			strconv.FormatFloat(m.Sharpe, 'f', -1, 64),
			strconv.FormatFloat(m.Sortino, 'f', -1, 64),
			strconv.FormatFloat(m.Calmar, 'f', -1, 64),
			strconv.Itoa(m.Trades),
		})
	}
	cw.Flush()
	return cw.Error()
}

func writeFile(path string, write func(io.Writer) error) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func ensureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

func parseInts(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func pct(v float64) types.AllocationPercent {
	return types.AllocationPercent(v)
}
