package testutil_test

import (
	"os"
	"testing"

	"github.com/example/go-tokenizers/internal/testutil"
)

func TestWriteFile_RoundTrip(t *testing.T) {
	p := testutil.WriteFile(t, "vocab.json", []byte(testutil.HiVocab))

	data, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	if string(data) != testutil.HiVocab {
		t.Errorf("fixture content = %q, want %q", data, testutil.HiVocab)
	}
}

func TestRequireTokenizerJSON_SkipsWhenUnset(t *testing.T) {
	t.Setenv("TOKENIZERS_TEST_TOKENIZER_JSON", "")

	skipped := false
	fakeT := &skipTracker{TB: t, onSkip: func() { skipped = true }}
	testutil.RequireTokenizerJSON(fakeT)
	if !skipped {
		t.Error("expected RequireTokenizerJSON to skip when env var is unset")
	}
}

func TestRequireTokenizerJSON_SkipsWhenMissing(t *testing.T) {
	t.Setenv("TOKENIZERS_TEST_TOKENIZER_JSON", "/nonexistent/tokenizer.json")

	skipped := false
	fakeT := &skipTracker{TB: t, onSkip: func() { skipped = true }}
	testutil.RequireTokenizerJSON(fakeT)
	if !skipped {
		t.Error("expected RequireTokenizerJSON to skip when file is absent")
	}
}

func TestRequireTokenizerJSON_ReturnsPath(t *testing.T) {
	p := testutil.WriteFile(t, "tokenizer.json", []byte(testutil.HiTokenizerJSON))
	t.Setenv("TOKENIZERS_TEST_TOKENIZER_JSON", p)

	if got := testutil.RequireTokenizerJSON(t); got != p {
		t.Errorf("RequireTokenizerJSON = %q, want %q", got, p)
	}
}

func TestAssertColumnsAligned_Passes(t *testing.T) {
	testutil.AssertColumnsAligned(t,
		[]uint32{9, 6}, []uint32{0, 0}, []uint32{1, 0}, []uint32{1, 1})
}

// skipTracker is a minimal testing.TB implementation that intercepts Skip calls.
type skipTracker struct {
	testing.TB
	onSkip func()
}

func (s *skipTracker) Helper() {}

func (s *skipTracker) Skipf(_ string, _ ...any) {
	s.onSkip()
	// Do NOT call s.TB.Skip; that would actually skip the outer test.
}
