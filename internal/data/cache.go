package data

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/benplehn/btc-sub000/internal/logging"
	"github.com/sirupsen/logrus"
)

var ErrCacheMiss = errors.New("cache miss")

// CSVCache stores a Fear & Greed history as date,fng,fng_label.
type CSVCache struct {
	Path string
}

// Load returns the cached points and the time they were written.
func (c *CSVCache) Load() ([]FearGreedPoint, time.Time, error) {
	f, err := os.Open(c.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, time.Time{}, ErrCacheMiss
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("open cache: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("stat cache: %w", err)
	}
	points, err := readFearGreedCSV(f)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("read cache %s: %w", c.Path, err)
	}
	return points, info.ModTime(), nil
}

// Save replaces the cache file atomically.
func (c *CSVCache) Save(points []FearGreedPoint) error {
	if dir := filepath.Dir(c.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create cache dir: %w", err)
		}
	}
	tmp, err := os.CreateTemp(filepath.Dir(c.Path), ".fng-*.csv")
	if err != nil {
		return fmt.Errorf("create cache file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := writeFearGreedCSV(tmp, points); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.Path); err != nil {
		return fmt.Errorf("replace cache file: %w", err)
	}
	return nil
}

func writeFearGreedCSV(w io.Writer, points []FearGreedPoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "fng", "fng_label"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, p := range points {
		if err := cw.Write([]string{p.Date.Format(dateLayout), strconv.Itoa(p.Value), p.Label}); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func readFearGreedCSV(r io.Reader) ([]FearGreedPoint, error) {
	records, err := readTable(r, "date", "fng")
	if err != nil {
		return nil, err
	}
	points := make([]FearGreedPoint, 0, len(records.rows))
	for i, row := range records.rows {
		date, err := parseDate(row[records.col["date"]])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		value, err := strconv.Atoi(row[records.col["fng"]])
		if err != nil {
			return nil, fmt.Errorf("row %d: fng: %w", i+1, err)
		}
		p := FearGreedPoint{Date: date, Value: value}
		if idx, ok := records.col["fng_label"]; ok {
			p.Label = row[idx]
		}
		points = append(points, p)
	}
	return normalizePoints(points), nil
}

// CachedFearGreed serves the history from a CSV cache while it is younger
// than MaxAge. On a failed refresh a stale cache is returned instead.
type CachedFearGreed struct {
	Source FearGreedSource
	Cache  *CSVCache
	MaxAge time.Duration
	Log    *logrus.Logger

	now func() time.Time
}

func NewCachedFearGreed(source FearGreedSource, cache *CSVCache, maxAge time.Duration, log *logrus.Logger) *CachedFearGreed {
	return &CachedFearGreed{Source: source, Cache: cache, MaxAge: maxAge, Log: log, now: time.Now}
}

func (c *CachedFearGreed) Fetch(ctx context.Context) ([]FearGreedPoint, error) {
	cached, writtenAt, cacheErr := c.Cache.Load()
	if cacheErr == nil && c.now().Sub(writtenAt) < c.MaxAge {
		c.logger().WithFields(logrus.Fields{"path": c.Cache.Path, "points": len(cached)}).Debug("fear & greed cache hit")
		return cached, nil
	}
	if cacheErr != nil && !errors.Is(cacheErr, ErrCacheMiss) {
		c.logger().WithError(cacheErr).Warn("ignoring unreadable fear & greed cache")
	}

	fresh, err := c.Source.Fetch(ctx)
	if err != nil {
		if cacheErr == nil {
			c.logger().WithError(err).WithField("age", c.now().Sub(writtenAt).Round(time.Minute).String()).
				Warn("fear & greed refresh failed, using stale cache")
			return cached, nil
		}
		return nil, err
	}

	if err := c.Cache.Save(fresh); err != nil {
		c.logger().WithError(err).Warn("could not write fear & greed cache")
	}
	return fresh, nil
}

func (c *CachedFearGreed) logger() *logrus.Logger {
	if c.Log == nil {
		return logging.Discard()
	}
	return c.Log
}
