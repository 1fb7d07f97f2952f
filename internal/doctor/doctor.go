// Package doctor provides environment preflight checks for tokenizers.
package doctor

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// PassMark and FailMark are the prefix symbols printed for each check result.
const (
	PassMark = "✓"
	FailMark = "✗"
)

// Minimum Go toolchain for building the C shared library.
const (
	minGoMajor = 1
	minGoMinor = 25
)

// VersionFunc returns a version string or an error if the component is unavailable.
type VersionFunc func() (string, error)

// LoadFunc builds the configured tokenizer and reports its vocabulary size.
type LoadFunc func() (int, error)

// Config holds injectable dependencies for each doctor check.
type Config struct {
	// GoVersion returns the output of `go env GOVERSION` (e.g. "go1.25.1").
	GoVersion VersionFunc
	// SkipGo skips the toolchain check (prebuilt binaries).
	SkipGo bool
	// Backend is the configured backend name.
	Backend string
	// NativeRequested is true when Backend selects the native library.
	NativeRequested bool
	// NativeAvailable reports whether the native library was compiled in.
	NativeAvailable bool
	// TokenizerFiles is the list of configured tokenizer files to verify.
	TokenizerFiles []string
	// LoadTokenizer, when set, builds the configured tokenizer.
	LoadTokenizer LoadFunc
}

// Result collects the outcome of all checks.
type Result struct {
	failures []string
}

// Failed returns true if any check failed.
func (r *Result) Failed() bool { return len(r.failures) > 0 }

// Failures returns the list of failure messages.
func (r *Result) Failures() []string { return append([]string(nil), r.failures...) }

// AddFailure appends an external failure message to the result.
func (r *Result) AddFailure(msg string) { r.failures = append(r.failures, msg) }

func (r *Result) fail(msg string) { r.failures = append(r.failures, msg) }

// Run executes all configured checks and writes human-readable output to w.
// Each check line is prefixed with PassMark or FailMark.
func Run(cfg Config, w io.Writer) Result {
	var res Result

	// ---- Go toolchain -----------------------------------------------------
	if cfg.SkipGo {
		fmt.Fprintf(w, "%s go toolchain: skipped\n", PassMark)
	} else {
		ver, err := cfg.GoVersion()
		if err != nil {
			res.fail(fmt.Sprintf("go toolchain: %v", err))
			fmt.Fprintf(w, "%s go toolchain: not found (%v)\n", FailMark, err)
		} else if goErr := checkGoVersion(ver); goErr != nil {
			res.fail(fmt.Sprintf("go toolchain: %v", goErr))
			fmt.Fprintf(w, "%s go toolchain %s: %v\n", FailMark, ver, goErr)
		} else {
			fmt.Fprintf(w, "%s go toolchain: %s\n", PassMark, ver)
		}
	}

	// ---- backend ----------------------------------------------------------
	switch {
	case cfg.NativeRequested && !cfg.NativeAvailable:
		res.fail("backend: native library not compiled in (rebuild with -tags hftokenizers)")
		fmt.Fprintf(w, "%s backend %s: native library not compiled in\n", FailMark, cfg.Backend)
	default:
		fmt.Fprintf(w, "%s backend: %s (native available: %t)\n", PassMark, cfg.Backend, cfg.NativeAvailable)
	}

	// ---- tokenizer files --------------------------------------------------
	for _, path := range cfg.TokenizerFiles {
		if err := checkReadable(path); err != nil {
			res.fail(fmt.Sprintf("tokenizer file %q: %v", path, err))
			fmt.Fprintf(w, "%s tokenizer file %s: %v\n", FailMark, path, err)
		} else {
			fmt.Fprintf(w, "%s tokenizer file: %s\n", PassMark, path)
		}
	}

	// ---- tokenizer load ---------------------------------------------------
	if cfg.LoadTokenizer != nil {
		size, err := cfg.LoadTokenizer()
		if err != nil {
			res.fail(fmt.Sprintf("tokenizer load: %v", err))
			fmt.Fprintf(w, "%s tokenizer load: %v\n", FailMark, err)
		} else {
			fmt.Fprintf(w, "%s tokenizer load: ok (vocab size %d)\n", PassMark, size)
		}
	}

	return res
}

func checkReadable(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return err
	}
	if st.IsDir() {
		return fmt.Errorf("is a directory")
	}
	if st.Size() == 0 {
		return fmt.Errorf("file is empty")
	}

	return nil
}

// checkGoVersion returns an error if ver is older than go1.25.
// ver is expected to be a string like "go1.25.1".
func checkGoVersion(ver string) error {
	major, minor, err := parseMajorMinor(strings.TrimPrefix(strings.TrimSpace(ver), "go"))
	if err != nil {
		return fmt.Errorf("cannot parse %q: %w", ver, err)
	}
	if major != minGoMajor {
		return fmt.Errorf("requires Go %d, got %d", minGoMajor, major)
	}
	if minor < minGoMinor {
		return fmt.Errorf("requires Go >=%d.%d, got %d.%d", minGoMajor, minGoMinor, major, minor)
	}
	return nil
}

func parseMajorMinor(ver string) (major, minor int, err error) {
	parts := strings.SplitN(ver, ".", 3)
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("unexpected version format %q", ver)
	}
	major, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("bad major in %q: %w", ver, err)
	}
	// pre-release suffixes: go1.26rc1
	minorText := parts[1]
	if i := strings.IndexFunc(minorText, func(r rune) bool { return r < '0' || r > '9' }); i > 0 {
		minorText = minorText[:i]
	}
	minor, err = strconv.Atoi(minorText)
	if err != nil {
		return 0, 0, fmt.Errorf("bad minor in %q: %w", ver, err)
	}
	return major, minor, nil
}
