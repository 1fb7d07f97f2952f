// Package testutil provides shared fixtures and skip helpers for tests.
//
// Skip helpers call t.Skip with a clear human-readable reason when the named
// prerequisite is absent, so integration tests remain runnable in partial
// environments without failing noisily.
//
// Typical usage:
//
//	func TestNativeRoundTrip(t *testing.T) {
//	    testutil.RequireNativeBackend(t)
//	    path := testutil.RequireTokenizerJSON(t)
//	    ...
//	}
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/example/go-tokenizers/internal/hfnative"
)

// Byte-level BPE fixture: "hi there" encodes to [6 7 8 5 4]
// (hi, Ġt, he, r, e).
const (
	HiVocab  = `{"h":0,"i":1,"Ġ":2,"t":3,"e":4,"r":5,"hi":6,"Ġt":7,"he":8}`
	HiMerges = "#version: 0.2\nh i\nĠ t\nh e\n"
)

// HiTokenizerJSON is the HiVocab/HiMerges fixture as a tokenizer.json
// document with a <s> special token at id 9.
const HiTokenizerJSON = `{
  "added_tokens": [{"id": 9, "content": "<s>", "special": true}],
  "pre_tokenizer": {"type": "ByteLevel", "add_prefix_space": false, "trim_offsets": false, "use_regex": false},
  "post_processor": {"type": "TemplateProcessing",
    "single": [{"SpecialToken": {"id": "<s>", "type_id": 0}}, {"Sequence": {"id": "A", "type_id": 0}}],
    "special_tokens": {"<s>": {"id": "<s>", "ids": [9], "tokens": ["<s>"]}}},
  "decoder": {"type": "ByteLevel"},
  "model": {"type": "BPE",
    "vocab": {"h":0,"i":1,"Ġ":2,"t":3,"e":4,"r":5,"hi":6,"Ġt":7,"he":8},
    "merges": ["h i", "Ġ t", "h e"]}
}`

// WriteFile writes data to name inside a fresh temporary directory and
// returns the full path.
func WriteFile(tb testing.TB, name string, data []byte) string {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), name)

	err := os.WriteFile(path, data, 0o600)
	if err != nil {
		tb.Fatalf("write fixture %q: %v", path, err)
	}

	return path
}

// RequireNativeBackend skips the test unless the binary was built with the
// hftokenizers tag.
func RequireNativeBackend(tb testing.TB) {
	tb.Helper()

	if !hfnative.Available() {
		tb.Skipf("native tokenizers backend not compiled in; build with -tags hftokenizers")
	}
}

// RequireTokenizerJSON returns the path named by TOKENIZERS_TEST_TOKENIZER_JSON,
// skipping the test when it is unset or unreadable.
func RequireTokenizerJSON(tb testing.TB) string {
	tb.Helper()

	p := os.Getenv("TOKENIZERS_TEST_TOKENIZER_JSON")
	if p == "" {
		tb.Skipf("TOKENIZERS_TEST_TOKENIZER_JSON not set; skipping real tokenizer test")
		return ""
	}

	_, err := os.Stat(p)
	if err != nil {
		tb.Skipf("tokenizer.json not available at %q: %v", p, err)
		return ""
	}

	return p
}
