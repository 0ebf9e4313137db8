package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/benplehn/btc-sub000/types"
)

const dateLayout = "2006-01-02"

var (
	ErrMissingColumn = errors.New("missing column")
	ErrBadRecord     = errors.New("malformed record")
)

type table struct {
	col  map[string]int
	rows [][]string
}

// readTable reads a headed CSV and checks the required columns exist.
// Column names are matched case-insensitively.
func readTable(r io.Reader, required ...string) (*table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty input", ErrBadRecord)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	t := &table{col: make(map[string]int, len(header))}
	for i, name := range header {
		t.col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range required {
		if _, ok := t.col[name]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
		}
	}

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		if len(rec) < len(header) {
			return nil, fmt.Errorf("%w: line %d has %d fields, want %d", ErrBadRecord, len(t.rows)+2, len(rec), len(header))
		}
		t.rows = append(t.rows, rec)
	}
	return t, nil
}

// parseDate accepts a calendar date or an RFC 3339 timestamp.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if d, err := time.Parse(dateLayout, s); err == nil {
		return d, nil
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", ErrBadRecord, s)
	}
	return types.DayUTC(ts), nil
}

func parseFloat(field, s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q", ErrBadRecord, field, s)
	}
	return v, nil
}

// ReadObservationsCSV reads date,close,pos rows. An empty pos is NaN,
// which the engines treat as a flat position. Rows are returned in file
// order; ordering is checked by the engines.
func ReadObservationsCSV(r io.Reader) ([]types.Observation, error) {
	t, err := readTable(r, "date", "close", "pos")
	if err != nil {
		return nil, err
	}
	out := make([]types.Observation, 0, len(t.rows))
	for i, row := range t.rows {
		obs, err := t.observation(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		pos, err := parseFloat("pos", row[t.col["pos"]])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		obs.Pos = types.AllocationPercent(pos)
		out = append(out, obs)
	}
	return out, nil
}

// ReadClosesCSV reads date,close rows; any other column is ignored.
func ReadClosesCSV(r io.Reader) ([]types.Observation, error) {
	t, err := readTable(r, "date", "close")
	if err != nil {
		return nil, err
	}
	out := make([]types.Observation, 0, len(t.rows))
	for i, row := range t.rows {
		obs, err := t.observation(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		out = append(out, obs)
	}
	return out, nil
}

func (t *table) observation(row []string) (types.Observation, error) {
	date, err := parseDate(row[t.col["date"]])
	if err != nil {
		return types.Observation{}, err
	}
	closePrice, err := parseFloat("close", row[t.col["close"]])
	if err != nil {
		return types.Observation{}, err
	}
	if math.IsNaN(closePrice) {
		return types.Observation{}, fmt.Errorf("%w: empty close", ErrBadRecord)
	}
	return types.Observation{Date: date, Close: closePrice}, nil
}

// WriteObservationsCSV writes the date,close,pos form read by ReadObservationsCSV.
func WriteObservationsCSV(w io.Writer, series []types.Observation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "close", "pos"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, obs := range series {
		rec := []string{
			obs.Date.Format(dateLayout),
			strconv.FormatFloat(obs.Close, 'f', -1, 64),
			strconv.FormatFloat(float64(obs.Pos), 'f', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
