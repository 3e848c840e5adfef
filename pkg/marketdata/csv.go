package marketdata

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/vignesh-goutham/bondstress/pkg/series"
)

// valueColumns are the header names accepted for the value column, in
// order of preference
var valueColumns = []string{"close", "adj close", "value"}

// CSVProvider serves both bars and observations from a directory holding one
// <NAME>.csv file per symbol or series. Files have a header row, the date in
// the first column and the value in a close/value column. FRED exports mark
// missing values with "." and those rows are skipped.
type CSVProvider struct {
	dir string
}

func NewCSVProvider(dir string) (*CSVProvider, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("open data dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open data dir: %s is not a directory", dir)
	}
	return &CSVProvider{dir: dir}, nil
}

func (p *CSVProvider) DailyCloses(ctx context.Context, symbol string, from, to time.Time) (series.Series, error) {
	return p.load(ctx, symbol, from, to)
}

func (p *CSVProvider) Observations(ctx context.Context, seriesID string, from, to time.Time) (series.Series, error) {
	return p.load(ctx, seriesID, from, to)
}

func (p *CSVProvider) load(ctx context.Context, name string, from, to time.Time) (series.Series, error) {
	if err := ctx.Err(); err != nil {
		return series.Series{}, err
	}
	f, err := os.Open(filepath.Join(p.dir, name+".csv"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return series.Series{}, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return series.Series{}, err
	}
	defer f.Close()

	s, err := ParseCSV(name, f)
	if err != nil {
		return series.Series{}, fmt.Errorf("parse %s: %w", name, err)
	}
	return s.Between(from, to), nil
}

// ParseCSV reads a dated value series. Rows may be in any order but dates
// must be unique.
func ParseCSV(name string, r io.Reader) (series.Series, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return series.Series{}, fmt.Errorf("read header: %w", err)
	}
	col, err := valueColumn(header)
	if err != nil {
		return series.Series{}, err
	}

	values := make(map[time.Time]float64)
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return series.Series{}, fmt.Errorf("line %d: %w", line, err)
		}
		if len(record) <= col {
			return series.Series{}, fmt.Errorf("line %d: %w: expected at least %d columns", line, series.ErrMalformed, col+1)
		}

		raw := strings.TrimSpace(record[col])
		if raw == "" || raw == "." {
			continue
		}
		date, err := parseDate(record[0])
		if err != nil {
			return series.Series{}, fmt.Errorf("line %d: %w", line, err)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return series.Series{}, fmt.Errorf("line %d: parse value %q: %w", line, raw, err)
		}
		if _, dup := values[series.Day(date)]; dup {
			return series.Series{}, fmt.Errorf("line %d: %w: duplicate date %s", line, series.ErrMalformed, series.Day(date).Format(series.DateLayout))
		}
		values[series.Day(date)] = v
	}
	return series.FromMap(name, values), nil
}

func valueColumn(header []string) (int, error) {
	for _, want := range valueColumns {
		for i, h := range header {
			if i > 0 && strings.EqualFold(strings.TrimSpace(h), want) {
				return i, nil
			}
		}
	}
	if len(header) >= 2 {
		return 1, nil
	}
	return 0, fmt.Errorf("%w: header %v has no value column", series.ErrMalformed, header)
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{series.DateLayout, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognized date %q", series.ErrMalformed, raw)
}
