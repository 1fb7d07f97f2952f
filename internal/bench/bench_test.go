package bench_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/example/go-tokenizers/internal/bench"
	"github.com/example/go-tokenizers/internal/bridge"
	"github.com/example/go-tokenizers/internal/testutil"
)

// ---------------------------------------------------------------------------
// Aggregation (min/max/mean)
// ---------------------------------------------------------------------------

func TestStats_MinMaxMean(t *testing.T) {
	durations := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		300 * time.Millisecond,
	}
	s := bench.ComputeStats(durations)

	if s.Min != 100*time.Millisecond {
		t.Errorf("want min=100ms, got %v", s.Min)
	}

	if s.Max != 300*time.Millisecond {
		t.Errorf("want max=300ms, got %v", s.Max)
	}

	if s.Mean != 200*time.Millisecond {
		t.Errorf("want mean=200ms, got %v", s.Mean)
	}
}

func TestStats_SingleRun(t *testing.T) {
	s := bench.ComputeStats([]time.Duration{150 * time.Millisecond})
	if s.Min != s.Max || s.Min != s.Mean {
		t.Errorf("single run: min/max/mean should all be equal, got min=%v max=%v mean=%v", s.Min, s.Max, s.Mean)
	}
}

func TestStats_Empty(t *testing.T) {
	if s := bench.ComputeStats(nil); s != (bench.Stats{}) {
		t.Errorf("want zero stats, got %+v", s)
	}
}

// ---------------------------------------------------------------------------
// Throughput
// ---------------------------------------------------------------------------

func TestCalcThroughput(t *testing.T) {
	got := bench.CalcThroughput(500, 250*time.Millisecond)
	if got != 2000 {
		t.Errorf("want 2000 tokens/s, got %v", got)
	}
}

func TestCalcThroughput_ZeroDuration(t *testing.T) {
	if got := bench.CalcThroughput(10, 0); got != 0 {
		t.Errorf("want 0 for zero duration, got %v", got)
	}
}

func TestMeanThroughput(t *testing.T) {
	runs := []bench.RunResult{{TokensPerSec: 100}, {TokensPerSec: 300}}
	if got := bench.MeanThroughput(runs); got != 200 {
		t.Errorf("want 200, got %v", got)
	}

	if got := bench.MeanThroughput(nil); got != 0 {
		t.Errorf("want 0 for no runs, got %v", got)
	}
}

// ---------------------------------------------------------------------------
// Threshold gate
// ---------------------------------------------------------------------------

func TestThresholdGate_Pass(t *testing.T) {
	if err := bench.CheckThroughputThreshold(1500, 1000); err != nil {
		t.Errorf("expected pass, got %v", err)
	}
}

func TestThresholdGate_Fail(t *testing.T) {
	err := bench.CheckThroughputThreshold(500, 1000)
	if err == nil {
		t.Fatal("expected error when mean throughput is below threshold")
	}

	if !strings.Contains(err.Error(), "below threshold") {
		t.Errorf("unexpected error text: %v", err)
	}
}

func TestThresholdGate_Disabled(t *testing.T) {
	if err := bench.CheckThroughputThreshold(0, 0); err != nil {
		t.Errorf("threshold 0 should disable the gate, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Output formats
// ---------------------------------------------------------------------------

func sampleRuns() []bench.RunResult {
	return []bench.RunResult{
		{Index: 0, Cold: true, Duration: 20 * time.Millisecond, Texts: 4, Tokens: 12, TokensPerSec: 600},
		{Index: 1, Duration: 10 * time.Millisecond, Texts: 4, Tokens: 12, TokensPerSec: 1200},
	}
}

func TestFormatTable(t *testing.T) {
	runs := sampleRuns()
	var buf bytes.Buffer
	bench.FormatTable(runs, bench.ComputeStats(bench.Durations(runs)), &buf)

	out := buf.String()
	for _, want := range []string{"Run", "Tokens/s", "yes", "(min)", "(mean)", "(max)"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatJSON(t *testing.T) {
	runs := sampleRuns()
	var buf bytes.Buffer
	bench.FormatJSON(runs, bench.ComputeStats(bench.Durations(runs)), &buf)

	var report struct {
		Runs []struct {
			Index  int  `json:"index"`
			Cold   bool `json:"cold"`
			Tokens int  `json:"tokens"`
		} `json:"runs"`
		Stats struct {
			MinMS            float64 `json:"min_ms"`
			MaxMS            float64 `json:"max_ms"`
			MeanTokensPerSec float64 `json:"mean_tokens_per_sec"`
		} `json:"stats"`
	}
	if err := json.Unmarshal(buf.Bytes(), &report); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}

	if len(report.Runs) != 2 {
		t.Fatalf("want 2 runs, got %d", len(report.Runs))
	}

	if !report.Runs[0].Cold || report.Runs[1].Cold {
		t.Errorf("only the first run should be cold: %+v", report.Runs)
	}

	if report.Stats.MinMS != 10 || report.Stats.MaxMS != 20 {
		t.Errorf("unexpected stats: %+v", report.Stats)
	}

	if report.Stats.MeanTokensPerSec != 900 {
		t.Errorf("want mean 900 tokens/s, got %v", report.Stats.MeanTokensPerSec)
	}
}

// ---------------------------------------------------------------------------
// Run
// ---------------------------------------------------------------------------

func openHi(b *bridge.Bridge) (bridge.TokenizerHandle, error) {
	return b.NewFromByteLevelBPE([]byte(testutil.HiVocab), testutil.HiMerges, nil)
}

func TestRun_CountsTokens(t *testing.T) {
	// "hi" is one token, "hi there" five.
	texts := []string{"hi", "hi there", "hi", "hi there", "hi"}

	for _, workers := range []int{1, 3} {
		runs, err := bench.Run(context.Background(), openHi, bench.Options{
			Texts:     texts,
			Runs:      3,
			Workers:   workers,
			BatchSize: 2,
		})
		if err != nil {
			t.Fatalf("workers=%d: Run: %v", workers, err)
		}

		if len(runs) != 3 {
			t.Fatalf("workers=%d: want 3 runs, got %d", workers, len(runs))
		}

		for i, r := range runs {
			if r.Index != i || r.Cold != (i == 0) {
				t.Errorf("workers=%d: run %d has index=%d cold=%v", workers, i, r.Index, r.Cold)
			}

			if r.Tokens != 13 || r.Texts != 5 {
				t.Errorf("workers=%d: run %d: want 13 tokens over 5 texts, got %d over %d", workers, i, r.Tokens, r.Texts)
			}
		}
	}
}

func TestRun_InvalidOptions(t *testing.T) {
	ctx := context.Background()

	if _, err := bench.Run(ctx, openHi, bench.Options{Runs: 1}); err == nil {
		t.Error("expected error for empty texts")
	}

	if _, err := bench.Run(ctx, openHi, bench.Options{Texts: []string{"hi"}}); err == nil {
		t.Error("expected error for zero runs")
	}
}

func TestRun_OpenFailure(t *testing.T) {
	sentinel := errors.New("boom")
	open := func(*bridge.Bridge) (bridge.TokenizerHandle, error) { return 0, sentinel }

	_, err := bench.Run(context.Background(), open, bench.Options{Texts: []string{"hi"}, Runs: 1})
	if !errors.Is(err, sentinel) {
		t.Errorf("want open error, got %v", err)
	}
}

func TestRun_EncodeFailure(t *testing.T) {
	_, err := bench.Run(context.Background(), openHi, bench.Options{
		Texts: []string{"hi", "bad\xff"},
		Runs:  1,
	})
	if !errors.Is(err, bridge.ErrEncoding) {
		t.Errorf("want encoding error, got %v", err)
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := bench.Run(ctx, openHi, bench.Options{Texts: []string{"hi"}, Runs: 2})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("want context.Canceled, got %v", err)
	}
}
