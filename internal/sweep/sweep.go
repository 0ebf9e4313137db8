package sweep

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/benplehn/btc-sub000/internal/engine"
	"github.com/benplehn/btc-sub000/internal/logging"
	"github.com/benplehn/btc-sub000/internal/strategy"
	"github.com/benplehn/btc-sub000/types"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNoCandidates   = errors.New("no candidates to run")
	ErrUnknownSortKey = errors.New("unknown sort key")
)

// SortKey names the metric outcomes are ranked by, best first.
type SortKey string

const (
	ByCAGR   SortKey = "cagr"
	BySharpe SortKey = "sharpe"
	ByCalmar SortKey = "calmar"
	ByEquity SortKey = "equity"
)

func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(strings.ToLower(s)); k {
	case ByCAGR, BySharpe, ByCalmar, ByEquity:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSortKey, s)
	}
}

func (k SortKey) value(m engine.Metrics) float64 {
	switch k {
	case BySharpe:
		return m.Sharpe
	case ByCalmar:
		return m.Calmar
	case ByEquity:
		return m.EquityFinal
	default:
		return m.CAGR
	}
}

// Candidate is one allocation series to evaluate.
type Candidate struct {
	Label  string
	Series []types.Observation
}

type Outcome struct {
	Label  string
	Result *engine.Result
}

type options struct {
	workers  int
	sortBy   SortKey
	progress io.Writer
	log      *logrus.Logger
}

type Option func(*options)

func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

func WithSort(k SortKey) Option {
	return func(o *options) { o.sortBy = k }
}

// WithProgress draws a progress bar on w.
func WithProgress(w io.Writer) Option {
	return func(o *options) { o.progress = w }
}

func WithLogger(log *logrus.Logger) Option {
	return func(o *options) { o.log = log }
}

// Run backtests every candidate under cfg and returns the outcomes ranked
// by the sort key. Each candidate gets its own engine run; the first
// failing run cancels the rest.
func Run(ctx context.Context, cfg *engine.Config, candidates []Candidate, opts ...Option) ([]Outcome, error) {
	o := options{workers: 4, sortBy: ByCAGR}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logging.Discard()
	}
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var bar *progressbar.ProgressBar
	if o.progress != nil {
		bar = initProgressBar(o.progress, len(candidates))
	}

	outcomes := make([]Outcome, len(candidates))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)

	for i, c := range candidates {
		i, c := i, c
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			eng, err := engine.New(cfg)
			if err != nil {
				return err
			}
			res, err := eng.Run(c.Series)
			if err != nil {
				return fmt.Errorf("candidate %s: %w", c.Label, err)
			}
			outcomes[i] = Outcome{Label: c.Label, Result: res}
			if bar != nil {
				_ = bar.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if bar != nil {
		_ = bar.Finish()
	}

	sort.SliceStable(outcomes, func(i, j int) bool {
		return o.sortBy.value(outcomes[i].Result.Metrics) > o.sortBy.value(outcomes[j].Result.Metrics)
	})

	o.log.WithFields(logrus.Fields{
		"candidates": len(candidates),
		"model":      cfg.Model,
		"sort":       o.sortBy,
		"best":       outcomes[0].Label,
	}).Info("sweep finished")
	return outcomes, nil
}

// Candidates runs each generator over days.
func Candidates(days []types.MarketDay, gens []strategy.Generator, label func(strategy.Generator) string) []Candidate {
	out := make([]Candidate, len(gens))
	for i, g := range gens {
		name := g.Name()
		if label != nil {
			name = label(g)
		}
		out[i] = Candidate{Label: name, Series: g.Generate(days)}
	}
	return out
}

// FearGreedGrid is every FearGreedBands with BuyBelow < SellAbove.
func FearGreedGrid(buyBelow, sellAbove []int, highPos, lowPos, holdPos types.AllocationPercent) []strategy.Generator {
	var out []strategy.Generator
	for _, b := range buyBelow {
		for _, s := range sellAbove {
			if b >= s {
				continue
			}
			out = append(out, strategy.FearGreedBands{BuyBelow: b, SellAbove: s, HighPos: highPos, LowPos: lowPos, HoldPos: holdPos})
		}
	}
	return out
}

// FearGreedLabel formats FearGreedBands as "fng buy<=B sell>=S".
func FearGreedLabel(g strategy.Generator) string {
	if f, ok := g.(strategy.FearGreedBands); ok {
		return fmt.Sprintf("fng buy<=%d sell>=%d", f.BuyBelow, f.SellAbove)
	}
	return g.Name()
}

func initProgressBar(w io.Writer, maxTicks int) *progressbar.ProgressBar {
	return progressbar.NewOptions(maxTicks,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("Sweeping..."),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}
