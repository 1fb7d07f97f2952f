package doctor_test

import (
	"strings"
	"testing"

	"github.com/example/go-tokenizers/internal/doctor"
)

func goOK() (string, error) { return "go1.25.1", nil }

// ---------------------------------------------------------------------------
// all-pass scenario
// ---------------------------------------------------------------------------

func TestRun_AllChecksPass(t *testing.T) {
	cfg := doctor.Config{
		GoVersion:      goOK,
		Backend:        "builtin",
		TokenizerFiles: []string{"doctor_test.go"},
		LoadTokenizer:  func() (int, error) { return 32000, nil },
	}

	var out strings.Builder
	result := doctor.Run(cfg, &out)

	if result.Failed() {
		t.Errorf("expected all checks to pass; failures: %v", result.Failures())
	}

	body := out.String()
	if !strings.Contains(body, "go toolchain: go1.25.1") {
		t.Errorf("output should mention the toolchain; got:\n%s", body)
	}

	if !strings.Contains(body, "vocab size 32000") {
		t.Errorf("output should report vocab size; got:\n%s", body)
	}
}

// ---------------------------------------------------------------------------
// Go toolchain
// ---------------------------------------------------------------------------

func TestRun_GoMissingFails(t *testing.T) {
	cfg := doctor.Config{
		GoVersion: func() (string, error) { return "", errBinaryNotFound },
		Backend:   "builtin",
	}

	var out strings.Builder
	result := doctor.Run(cfg, &out)

	if !result.Failed() {
		t.Fatal("expected failure when go is not found")
	}

	if !hasFailureContaining(result.Failures(), "go toolchain") {
		t.Errorf("expected failure mentioning go toolchain, got: %v", result.Failures())
	}
}

func TestRun_GoTooOldFails(t *testing.T) {
	cfg := doctor.Config{
		GoVersion: func() (string, error) { return "go1.21.0", nil },
		Backend:   "builtin",
	}

	var out strings.Builder
	result := doctor.Run(cfg, &out)

	if !result.Failed() {
		t.Fatal("expected failure for go1.21")
	}
}

func TestRun_SkipGo(t *testing.T) {
	cfg := doctor.Config{SkipGo: true, Backend: "builtin"}

	var out strings.Builder

	result := doctor.Run(cfg, &out)
	if result.Failed() {
		t.Fatalf("expected no failures when the toolchain check is skipped, got: %v", result.Failures())
	}

	if !strings.Contains(out.String(), "go toolchain: skipped") {
		t.Fatalf("expected skipped output, got:\n%s", out.String())
	}
}

// ---------------------------------------------------------------------------
// backend
// ---------------------------------------------------------------------------

func TestRun_NativeRequestedButUnavailable(t *testing.T) {
	cfg := doctor.Config{
		SkipGo:          true,
		Backend:         "native",
		NativeRequested: true,
	}

	var out strings.Builder

	result := doctor.Run(cfg, &out)
	if !result.Failed() {
		t.Fatal("expected failure when the native backend is missing")
	}

	if !hasFailureContaining(result.Failures(), "hftokenizers") {
		t.Errorf("failure should name the build tag, got: %v", result.Failures())
	}
}

func TestRun_NativeRequestedAndAvailable(t *testing.T) {
	cfg := doctor.Config{
		SkipGo:          true,
		Backend:         "native",
		NativeRequested: true,
		NativeAvailable: true,
	}

	var out strings.Builder

	result := doctor.Run(cfg, &out)
	if result.Failed() {
		t.Errorf("expected pass; failures: %v", result.Failures())
	}
}

// ---------------------------------------------------------------------------
// tokenizer files and load
// ---------------------------------------------------------------------------

func TestRun_MissingTokenizerFileFails(t *testing.T) {
	cfg := doctor.Config{
		SkipGo:         true,
		Backend:        "builtin",
		TokenizerFiles: []string{"/nonexistent/tokenizer.json"},
	}

	var out strings.Builder
	result := doctor.Run(cfg, &out)

	if !result.Failed() {
		t.Fatal("expected failure for missing tokenizer file")
	}

	if !hasFailureContaining(result.Failures(), "tokenizer file") {
		t.Errorf("expected failure mentioning tokenizer file, got: %v", result.Failures())
	}
}

func TestRun_LoadFailure(t *testing.T) {
	cfg := doctor.Config{
		SkipGo:        true,
		Backend:       "builtin",
		LoadTokenizer: func() (int, error) { return 0, sentinelError("bad merges") },
	}

	var out strings.Builder

	result := doctor.Run(cfg, &out)
	if !result.Failed() {
		t.Fatal("expected failure from load callback")
	}

	if !hasFailureContaining(result.Failures(), "bad merges") {
		t.Errorf("expected load error in failures, got: %v", result.Failures())
	}
}

func TestRun_OutputContainsPassAndFailMarkers(t *testing.T) {
	cfg := doctor.Config{
		GoVersion:      goOK,
		Backend:        "builtin",
		TokenizerFiles: []string{"/nonexistent/vocab.json"},
	}

	var out strings.Builder
	doctor.Run(cfg, &out)

	body := out.String()
	if !strings.Contains(body, doctor.PassMark) {
		t.Errorf("output missing pass marker %q:\n%s", doctor.PassMark, body)
	}

	if !strings.Contains(body, doctor.FailMark) {
		t.Errorf("output missing fail marker %q:\n%s", doctor.FailMark, body)
	}
}

func TestResult_AddFailure(t *testing.T) {
	var r doctor.Result
	r.AddFailure("external")

	if !r.Failed() || r.Failures()[0] != "external" {
		t.Errorf("unexpected failures: %v", r.Failures())
	}
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

type sentinelError string

func (e sentinelError) Error() string { return string(e) }

var errBinaryNotFound = sentinelError("binary not found")

func hasFailureContaining(failures []string, substr string) bool {
	substr = strings.ToLower(substr)
	for _, f := range failures {
		if strings.Contains(strings.ToLower(f), substr) {
			return true
		}
	}

	return false
}
