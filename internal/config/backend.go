package config

import (
	"fmt"
	"strings"
)

const (
	BackendBuiltin = "builtin"
	BackendNative  = "native"
)

func NormalizeBackend(raw string) (string, error) {
	backend := strings.ToLower(strings.TrimSpace(raw))
	if backend == "" {
		backend = BackendBuiltin
	}
	switch backend {
	case BackendBuiltin, BackendNative:
		return backend, nil
	case "go", "pure-go":
		return BackendBuiltin, nil
	case "rust", "hf", "huggingface":
		return BackendNative, nil
	default:
		return "", fmt.Errorf(
			"invalid backend %q (expected %s|%s)",
			raw,
			BackendBuiltin,
			BackendNative,
		)
	}
}

// Source names the constructor a TokenizerConfig resolves to.
type Source string

const (
	SourceTokenizerJSON Source = "tokenizer.json"
	SourceByteLevelBPE  Source = "byte-level-bpe"
	SourceSentencePiece Source = "sentencepiece"
)

// Source picks the tokenizer definition to load.
func (c TokenizerConfig) Source() (Source, error) {
	switch {
	case c.SentencePiecePath != "":
		return SourceSentencePiece, nil
	case c.VocabPath != "" || c.MergesPath != "":
		if c.VocabPath == "" || c.MergesPath == "" {
			return "", fmt.Errorf("byte-level BPE needs both vocab_path and merges_path (got %q, %q)", c.VocabPath, c.MergesPath)
		}
		return SourceByteLevelBPE, nil
	case c.ConfigPath != "":
		return SourceTokenizerJSON, nil
	default:
		return "", fmt.Errorf("no tokenizer configured: set config_path, vocab_path+merges_path or sentencepiece_path")
	}
}
