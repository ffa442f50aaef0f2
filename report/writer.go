// Package report writes change-score series and renders terminal summaries.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"dga-topology/models"

	"gopkg.in/yaml.v3"
)

// Format is an output encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts csv, json, yaml and yml.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}

	return "", fmt.Errorf("unknown output format %q", s)
}

// FormatFromPath picks the format from a file extension, defaulting to CSV.
func FormatFromPath(path string) Format {
	switch {
	case strings.HasSuffix(path, ".json"):
		return FormatJSON
	case strings.HasSuffix(path, ".yaml"), strings.HasSuffix(path, ".yml"):
		return FormatYAML
	default:
		return FormatCSV
	}
}

// Write encodes series in format. Timestamps keep nanosecond precision and
// distances use the shortest representation that round-trips.
func Write(w io.Writer, series *models.ChangeScoreSeries, format Format) error {
	switch format {
	case FormatCSV:
		return writeCSV(w, series)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(series)
	case FormatYAML:
		return writeYAML(w, series)
	}

	return fmt.Errorf("unknown output format %q", format)
}

// DimensionHeader returns "h0", "h1", ... for dims 0..maxDim.
func DimensionHeader(maxDim int) []string {
	out := make([]string, maxDim+1)
	for d := range out {
		out[d] = "h" + strconv.Itoa(d)
	}

	return out
}

// FormatDistance renders a distance without rounding; NaN is written as NaN.
func FormatDistance(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}

	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeCSV(w io.Writer, series *models.ChangeScoreSeries) error {
	cw := csv.NewWriter(w)

	header := append([]string{"index", "start", "timestamp"}, DimensionHeader(series.MaxDim)...)
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, sc := range series.Scores {
		record := []string{
			strconv.Itoa(sc.Index),
			strconv.Itoa(sc.Start),
			sc.Timestamp.Format(time.RFC3339Nano),
		}
		for d := 0; d <= series.MaxDim; d++ {
			v := math.NaN()
			if d < len(sc.Distances) {
				v = sc.Distances[d]
			}
			record = append(record, FormatDistance(v))
		}

		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()

	return cw.Error()
}

type yamlScore struct {
	Index     int       `yaml:"index"`
	Start     int       `yaml:"start"`
	Timestamp time.Time `yaml:"timestamp"`
	Distances []float64 `yaml:"distances"`
}

type yamlSeries struct {
	Channels   []string    `yaml:"channels"`
	WindowSize int         `yaml:"window_size"`
	Step       int         `yaml:"step"`
	MaxDim     int         `yaml:"maxdim"`
	Alignment  string      `yaml:"alignment"`
	Scores     []yamlScore `yaml:"scores"`
}

func writeYAML(w io.Writer, series *models.ChangeScoreSeries) error {
	doc := yamlSeries{
		Channels:   series.Channels,
		WindowSize: series.WindowSize,
		Step:       series.Step,
		MaxDim:     series.MaxDim,
		Alignment:  string(series.Alignment),
		Scores:     make([]yamlScore, len(series.Scores)),
	}
	for i, sc := range series.Scores {
		doc.Scores[i] = yamlScore{Index: sc.Index, Start: sc.Start, Timestamp: sc.Timestamp, Distances: sc.Distances}
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}

	return enc.Close()
}
