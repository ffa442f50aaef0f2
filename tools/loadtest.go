package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"dga-topology/models"
	"dga-topology/synth"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

type stats struct {
	requests  atomic.Int64
	successes atomic.Int64
	failures  atomic.Int64

	mu        sync.Mutex
	latencies []time.Duration
}

func main() {
	var (
		workers  int
		units    int
		rows     int
		duration time.Duration
	)

	cmd := &cobra.Command{
		Use:   "loadtest <url>",
		Short: "Submit synthetic analysis jobs to a running dgatopo server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bodies, err := buildBodies(units, rows)
			if err != nil {
				return err
			}

			st := &stats{}
			start := time.Now()
			end := start.Add(duration)

			var wg sync.WaitGroup
			for w := 0; w < workers; w++ {
				wg.Add(1)
				go func(w int) {
					defer wg.Done()
					worker(args[0], bodies, w, end, st)
				}(w)
			}
			wg.Wait()

			fmt.Fprintln(cmd.OutOrStdout(), render(st, time.Since(start)))
			return nil
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 4, "concurrent clients")
	cmd.Flags().IntVar(&units, "units", 10, "distinct unit ids")
	cmd.Flags().IntVar(&rows, "rows", 120, "rows per submitted series")
	cmd.Flags().DurationVar(&duration, "duration", 30*time.Second, "test duration")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func buildBodies(units, rows int) ([][]byte, error) {
	bodies := make([][]byte, units)
	for u := range bodies {
		opts := synth.DefaultOptions()
		opts.Rows = rows
		opts.Seed = uint64(u + 1)
		opts.StepAt = rows / 2
		opts.StepSize = 25
		series := synth.Generate(opts)

		req := models.AnalysisRequest{
			UnitID:     fmt.Sprintf("unit-%d", u),
			Channels:   series.Channels,
			Timestamps: make([]string, series.Len()),
			Rows:       series.Rows(),
		}
		for i, ts := range series.Timestamps() {
			req.Timestamps[i] = ts.Format(time.RFC3339Nano)
		}

		data, err := json.Marshal(req)
		if err != nil {
			return nil, err
		}
		bodies[u] = data
	}

	return bodies, nil
}

func worker(url string, bodies [][]byte, offset int, end time.Time, st *stats) {
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	for i := offset; time.Now().Before(end); i++ {
		sendRequest(client, url, bodies[i%len(bodies)], st)
	}
}

func sendRequest(client *http.Client, url string, body []byte, st *stats) {
	start := time.Now()
	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	latency := time.Since(start)

	st.requests.Add(1)

	if err != nil {
		st.failures.Add(1)
		return
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		st.failures.Add(1)
		return
	}

	st.successes.Add(1)
	st.mu.Lock()
	st.latencies = append(st.latencies, latency)
	st.mu.Unlock()
}

func render(st *stats, elapsed time.Duration) string {
	st.mu.Lock()
	lat := slices.Clone(st.latencies)
	st.mu.Unlock()
	slices.Sort(lat)

	percentile := func(p int) time.Duration {
		if len(lat) == 0 {
			return 0
		}
		return lat[min(len(lat)*p/100, len(lat)-1)]
	}

	total := st.requests.Load()
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.SetTitle("Load Test Results")
	tbl.AppendRows([]table.Row{
		{"duration", elapsed.Round(time.Millisecond)},
		{"requests", humanize.Comma(total)},
		{"accepted", humanize.Comma(st.successes.Load())},
		{"failed", humanize.Comma(st.failures.Load())},
		{"requests/sec", fmt.Sprintf("%.2f", float64(total)/elapsed.Seconds())},
		{"p50", percentile(50)},
		{"p95", percentile(95)},
		{"p99", percentile(99)},
	})

	return tbl.Render()
}
