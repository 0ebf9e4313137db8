package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/benplehn/btc-sub000/internal/logging"
	"github.com/benplehn/btc-sub000/types"
	"github.com/sirupsen/logrus"
)

const DefaultFearGreedURL = "https://api.alternative.me/fng/"

var ErrUpstream = errors.New("fear & greed upstream error")

// FearGreedPoint is one daily Fear & Greed reading.
type FearGreedPoint struct {
	Date  time.Time
	Value int
	Label string
}

// FearGreedSource yields the full daily Fear & Greed history in ascending date order.
type FearGreedSource interface {
	Fetch(ctx context.Context) ([]FearGreedPoint, error)
}

type FearGreedClient struct {
	HTTPClient *http.Client
	baseURL    string
	log        *logrus.Logger
}

func NewFearGreedClient(baseURL string, timeout time.Duration, log *logrus.Logger) *FearGreedClient {
	if baseURL == "" {
		baseURL = DefaultFearGreedURL
	}
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if log == nil {
		log = logging.Discard()
	}
	return &FearGreedClient{
		HTTPClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		log:        log,
	}
}

type fngResponse struct {
	Data []struct {
		Value          string `json:"value"`
		Classification string `json:"value_classification"`
		Timestamp      string `json:"timestamp"`
	} `json:"data"`
	Metadata struct {
		Error *string `json:"error"`
	} `json:"metadata"`
}

// Fetch downloads the entire history (limit=0).
func (c *FearGreedClient) Fetch(ctx context.Context) ([]FearGreedPoint, error) {
	url := c.baseURL
	if strings.Contains(url, "?") {
		url += "&limit=0&format=json"
	} else {
		url += "?limit=0&format=json"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload fngResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrUpstream, err)
	}
	if payload.Metadata.Error != nil && *payload.Metadata.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrUpstream, *payload.Metadata.Error)
	}

	points := make([]FearGreedPoint, 0, len(payload.Data))
	for _, d := range payload.Data {
		value, err := strconv.Atoi(d.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: value %q: %v", ErrUpstream, d.Value, err)
		}
		ts, err := strconv.ParseInt(d.Timestamp, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: timestamp %q: %v", ErrUpstream, d.Timestamp, err)
		}
		points = append(points, FearGreedPoint{
			Date:  types.DayUTC(time.Unix(ts, 0)),
			Value: value,
			Label: d.Classification,
		})
	}
	points = normalizePoints(points)

	c.log.WithFields(logrus.Fields{
		"points":   len(points),
		"duration": time.Since(start).String(),
	}).Debug("fetched fear & greed history")
	return points, nil
}

// normalizePoints sorts ascending and keeps the last reading seen for a date.
func normalizePoints(points []FearGreedPoint) []FearGreedPoint {
	sort.SliceStable(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	out := points[:0]
	for _, p := range points {
		if n := len(out); n > 0 && out[n-1].Date.Equal(p.Date) {
			out[n-1] = p
			continue
		}
		out = append(out, p)
	}
	return out
}
