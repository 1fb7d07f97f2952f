package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBench_JSON(t *testing.T) {
	args := append(hiTokenizer(t),
		"--bench-runs", "2", "--bench-workers", "2", "--bench-batch-size", "1",
		"bench", "--text", "hi", "--text", "hi there", "--format", "json")

	out, err := runCLI(t, "", args...)
	if err != nil {
		t.Fatalf("bench: %v", err)
	}

	var report struct {
		Runs []struct {
			Tokens int `json:"tokens"`
		} `json:"runs"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, out)
	}

	if len(report.Runs) != 2 {
		t.Fatalf("want 2 runs, got %d", len(report.Runs))
	}

	// <s> is prepended to both texts
	for _, r := range report.Runs {
		if r.Tokens != 8 {
			t.Errorf("want 8 tokens per run, got %d", r.Tokens)
		}
	}
}

func TestBench_FileAndTable(t *testing.T) {
	texts := filepath.Join(t.TempDir(), "texts.txt")
	if err := os.WriteFile(texts, []byte("hi\n\nhi there\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	args := append(hiTokenizer(t), "--bench-runs", "1", "bench", "--file", texts)

	out, err := runCLI(t, "", args...)
	if err != nil {
		t.Fatalf("bench: %v", err)
	}

	if !strings.Contains(out, "Tokens/s") {
		t.Errorf("expected table output, got:\n%s", out)
	}
}

func TestBench_Stages(t *testing.T) {
	args := append(hiTokenizer(t), "--bench-runs", "1", "bench", "--stages", "--warmup", "0", "--text", "hi there")

	out, err := runCLI(t, "", args...)
	if err != nil {
		t.Fatalf("bench --stages: %v", err)
	}

	for _, want := range []string{"avg_encode_ms", "avg_decode_ms", "avg_free_ms"} {
		if !strings.Contains(out, want) {
			t.Errorf("stage report missing %q:\n%s", want, out)
		}
	}
}

func TestBench_ThroughputGate(t *testing.T) {
	args := append(hiTokenizer(t), "--bench-runs", "1", "bench", "--text", "hi", "--min-throughput", "1e15")

	_, err := runCLI(t, "", args...)
	if err == nil || !strings.Contains(err.Error(), "below threshold") {
		t.Errorf("expected threshold error, got %v", err)
	}
}

func TestBench_Errors(t *testing.T) {
	flags := hiTokenizer(t)

	cases := map[string][]string{
		"no texts":     {"bench"},
		"bad format":   {"bench", "--text", "hi", "--format", "xml"},
		"zero runs":    {"--bench-runs", "0", "bench", "--text", "hi"},
		"missing file": {"bench", "--file", "/nonexistent/texts.txt"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := runCLI(t, "", append(append([]string{}, flags...), args...)...); err == nil {
				t.Error("expected error")
			}
		})
	}
}
