// Package ingest reads dissolved-gas exports from transformer monitors into
// validated series.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"dga-topology/models"
)

// DefaultChannels are the gas and moisture channels of a monitor export.
var DefaultChannels = []string{"H2", "CH4", "C2H2", "C2H4", "C2H6", "CO", "CO2", "O2", "GasComb", "H2O"}

// DefaultColumnMapping renames export headers to channel codes.
var DefaultColumnMapping = map[string]string{
	"Hidrógeno (ppm)":                      "H2",
	"Metano (ppm)":                         "CH4",
	"Acetileno (ppm)":                      "C2H2",
	"Etileno (ppm)":                        "C2H4",
	"Etano (ppm)":                          "C2H6",
	"Monóxido de carbono (ppm)":            "CO",
	"Dióxido de carbono (ppm)":             "CO2",
	"Oxígeno (ppm)":                        "O2",
	"Gas combustible disuelto total (ppm)": "GasComb",
	"Agua (ppm)":                           "H2O",
}

var (
	// ErrMissingColumn is returned when a required column is absent.
	ErrMissingColumn = errors.New("missing column")
	// ErrNoRows is returned when no complete row survives cleaning.
	ErrNoRows = errors.New("no complete rows in CSV")
)

// CSVOptions holds options for CSV loading.
type CSVOptions struct {
	Delimiter       rune
	TimestampColumn string
	TimestampFormat string
	Channels        []string
	ColumnMapping   map[string]string
	Year            int            // keep only rows from this year (0 keeps all)
	Location        *time.Location // timestamp zone (default UTC)
}

// DefaultCSVOptions returns the layout of the monitor export.
func DefaultCSVOptions() *CSVOptions {
	return &CSVOptions{
		Delimiter:       ';',
		TimestampColumn: "Timestamp",
		TimestampFormat: "02/01/2006 15:04:05",
		Channels:        DefaultChannels,
		ColumnMapping:   DefaultColumnMapping,
	}
}

// LoadReport counts what cleaning removed.
type LoadReport struct {
	Rows       int
	Incomplete int
	OutOfRange int
	Duplicates int
}

// LoadCSV loads a series from a CSV file.
func LoadCSV(filename string, opts *CSVOptions) (*models.Series, *LoadReport, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	return LoadCSVFromReader(file, opts)
}

// LoadCSVFromReader parses the export: decimal commas are accepted, rows with
// any missing or unparseable channel are dropped, rows are sorted by time and
// repeated timestamps keep their first row.
func LoadCSVFromReader(r io.Reader, opts *CSVOptions) (*models.Series, *LoadReport, error) {
	if opts == nil {
		opts = DefaultCSVOptions()
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	reader := csv.NewReader(r)
	reader.Comma = opts.Delimiter
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF"))
		if mapped, ok := opts.ColumnMapping[h]; ok {
			h = mapped
		}
		index[h] = i
	}

	tsIdx, ok := index[opts.TimestampColumn]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrMissingColumn, opts.TimestampColumn)
	}

	channelIdx := make([]int, len(opts.Channels))
	for c, name := range opts.Channels {
		idx, ok := index[name]
		if !ok {
			return nil, nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
		channelIdx[c] = idx
	}

	report := &LoadReport{}
	var obs []models.Observation

	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}

		if tsIdx >= len(record) {
			report.Incomplete++
			continue
		}
		ts, err := time.ParseInLocation(opts.TimestampFormat, strings.TrimSpace(record[tsIdx]), loc)
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", line, err)
		}

		values, complete := parseChannels(record, channelIdx)
		if !complete {
			report.Incomplete++
			continue
		}

		if opts.Year != 0 && ts.Year() != opts.Year {
			report.OutOfRange++
			continue
		}

		obs = append(obs, models.Observation{Timestamp: ts, Values: values})
	}

	slices.SortStableFunc(obs, func(a, b models.Observation) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	deduped := obs[:0]
	for _, o := range obs {
		if len(deduped) > 0 && o.Timestamp.Equal(deduped[len(deduped)-1].Timestamp) {
			report.Duplicates++
			continue
		}
		deduped = append(deduped, o)
	}

	if len(deduped) == 0 {
		return nil, report, ErrNoRows
	}

	series := &models.Series{Channels: slices.Clone(opts.Channels), Observations: deduped}
	if err := series.Validate(); err != nil {
		return nil, report, err
	}
	report.Rows = series.Len()

	return series, report, nil
}

func parseChannels(record []string, channelIdx []int) ([]float64, bool) {
	values := make([]float64, len(channelIdx))
	for c, idx := range channelIdx {
		if idx >= len(record) {
			return nil, false
		}

		v, ok := ParseDecimal(record[idx])
		if !ok {
			return nil, false
		}
		values[c] = v
	}

	return values, true
}

// ParseDecimal parses a number written with either a decimal point or a
// decimal comma. Empty, NaN and infinite values are rejected.
func ParseDecimal(raw string) (float64, bool) {
	s := strings.TrimSpace(strings.Trim(raw, "\""))
	if s == "" {
		return 0, false
	}

	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}

	return v, true
}
