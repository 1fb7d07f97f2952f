// Package bench provides benchmarking primitives for the tokenizers bench command.
package bench

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Run result and stats
// ---------------------------------------------------------------------------

// RunResult holds the timing and token counts for a single benchmark run.
type RunResult struct {
	Index        int
	Cold         bool // true for the first run (cold-start)
	Duration     time.Duration
	Texts        int
	Tokens       int
	TokensPerSec float64
}

// Stats holds aggregate timing statistics across all runs.
type Stats struct {
	Min  time.Duration
	Max  time.Duration
	Mean time.Duration
}

// ComputeStats calculates min, max and mean over a slice of durations.
// The slice must be non-empty.
func ComputeStats(durations []time.Duration) Stats {
	if len(durations) == 0 {
		return Stats{}
	}
	mn, mx := durations[0], durations[0]
	var sum time.Duration
	for _, d := range durations {
		if d < mn {
			mn = d
		}
		if d > mx {
			mx = d
		}
		sum += d
	}
	return Stats{
		Min:  mn,
		Max:  mx,
		Mean: sum / time.Duration(len(durations)),
	}
}

// Durations extracts the run durations in order.
func Durations(runs []RunResult) []time.Duration {
	out := make([]time.Duration, len(runs))
	for i, r := range runs {
		out[i] = r.Duration
	}
	return out
}

// ---------------------------------------------------------------------------
// Throughput helpers
// ---------------------------------------------------------------------------

// CalcThroughput returns tokens per second.
// Returns 0 if dur is zero to avoid division by zero.
func CalcThroughput(tokens int, dur time.Duration) float64 {
	if dur <= 0 {
		return 0
	}
	return float64(tokens) / dur.Seconds()
}

// MeanThroughput averages TokensPerSec over runs.
func MeanThroughput(runs []RunResult) float64 {
	if len(runs) == 0 {
		return 0
	}
	var total float64
	for _, r := range runs {
		total += r.TokensPerSec
	}
	return total / float64(len(runs))
}

// ---------------------------------------------------------------------------
// Throughput threshold gate
// ---------------------------------------------------------------------------

// CheckThroughputThreshold returns an error if mean < threshold.
// A threshold of 0 disables the gate.
func CheckThroughputThreshold(mean, threshold float64) error {
	if threshold <= 0 {
		return nil
	}
	if mean < threshold {
		return fmt.Errorf("mean throughput %.1f tokens/s below threshold %.1f", mean, threshold)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Output formatters
// ---------------------------------------------------------------------------

// FormatTable writes a human-readable ASCII table of bench results to w.
func FormatTable(runs []RunResult, stats Stats, w io.Writer) {
	sb := &strings.Builder{}

	fmt.Fprintf(sb, "%-5s  %-5s  %10s  %8s  %10s  %12s\n", "Run", "Cold", "MS", "Texts", "Tokens", "Tokens/s")
	fmt.Fprintln(sb, strings.Repeat("-", 60))

	for _, r := range runs {
		cold := ""
		if r.Cold {
			cold = "yes"
		}
		fmt.Fprintf(sb, "%-5d  %-5s  %10.1f  %8d  %10d  %12.1f\n",
			r.Index+1,
			cold,
			float64(r.Duration.Microseconds())/1000,
			r.Texts,
			r.Tokens,
			r.TokensPerSec,
		)
	}

	fmt.Fprintln(sb, strings.Repeat("-", 60))
	fmt.Fprintf(sb, "%-5s  %-5s  %10.1f  (min)\n", "", "", float64(stats.Min.Microseconds())/1000)
	fmt.Fprintf(sb, "%-5s  %-5s  %10.1f  (mean)\n", "", "", float64(stats.Mean.Microseconds())/1000)
	fmt.Fprintf(sb, "%-5s  %-5s  %10.1f  (max)\n", "", "", float64(stats.Max.Microseconds())/1000)

	fmt.Fprint(w, sb.String())
}

// jsonReport is the top-level JSON structure emitted by FormatJSON.
type jsonReport struct {
	Runs  []jsonRun `json:"runs"`
	Stats jsonStats `json:"stats"`
}

type jsonRun struct {
	Index        int     `json:"index"`
	Cold         bool    `json:"cold"`
	DurationMS   float64 `json:"duration_ms"`
	Texts        int     `json:"texts"`
	Tokens       int     `json:"tokens"`
	TokensPerSec float64 `json:"tokens_per_sec"`
}

type jsonStats struct {
	MinMS            float64 `json:"min_ms"`
	MeanMS           float64 `json:"mean_ms"`
	MaxMS            float64 `json:"max_ms"`
	MeanTokensPerSec float64 `json:"mean_tokens_per_sec"`
}

// FormatJSON writes a JSON report of bench results to w.
func FormatJSON(runs []RunResult, stats Stats, w io.Writer) {
	jr := jsonReport{
		Runs: make([]jsonRun, len(runs)),
		Stats: jsonStats{
			MinMS:            float64(stats.Min.Microseconds()) / 1000,
			MeanMS:           float64(stats.Mean.Microseconds()) / 1000,
			MaxMS:            float64(stats.Max.Microseconds()) / 1000,
			MeanTokensPerSec: MeanThroughput(runs),
		},
	}
	for i, r := range runs {
		jr.Runs[i] = jsonRun{
			Index:        r.Index,
			Cold:         r.Cold,
			DurationMS:   float64(r.Duration.Microseconds()) / 1000,
			Texts:        r.Texts,
			Tokens:       r.Tokens,
			TokensPerSec: r.TokensPerSec,
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(jr)
}
