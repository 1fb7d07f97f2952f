package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/example/go-tokenizers/internal/bridge"
	"github.com/example/go-tokenizers/internal/config"
)

// bridgeOptions maps the tokenizer config onto Bridge options.
func bridgeOptions(tc config.TokenizerConfig) ([]bridge.Option, error) {
	backend, err := config.NormalizeBackend(tc.Backend)
	if err != nil {
		return nil, err
	}

	return []bridge.Option{
		bridge.WithLogger(slog.Default()),
		bridge.WithStrictVocab(tc.StrictVocab),
		bridge.WithNativeBackend(backend == config.BackendNative),
	}, nil
}

// newBridge returns a Bridge configured from tc. The caller closes it.
func newBridge(tc config.TokenizerConfig) (*bridge.Bridge, error) {
	opts, err := bridgeOptions(tc)
	if err != nil {
		return nil, err
	}

	return bridge.New(opts...), nil
}

// tokenizerFiles lists the files the configured source reads.
func tokenizerFiles(tc config.TokenizerConfig) ([]string, error) {
	src, err := tc.Source()
	if err != nil {
		return nil, err
	}

	switch src {
	case config.SourceSentencePiece:
		return []string{tc.SentencePiecePath}, nil
	case config.SourceByteLevelBPE:
		files := []string{tc.VocabPath, tc.MergesPath}
		if tc.AddedTokensPath != "" {
			files = append(files, tc.AddedTokensPath)
		}
		return files, nil
	default:
		return []string{tc.ConfigPath}, nil
	}
}

// openTokenizer builds the configured tokenizer inside b.
func openTokenizer(b *bridge.Bridge, tc config.TokenizerConfig) (bridge.TokenizerHandle, error) {
	src, err := tc.Source()
	if err != nil {
		return 0, err
	}

	switch src {
	case config.SourceSentencePiece:
		model, err := os.ReadFile(tc.SentencePiecePath)
		if err != nil {
			return 0, fmt.Errorf("read sentencepiece model: %w", err)
		}
		return b.NewFromSentencePiece(model)

	case config.SourceByteLevelBPE:
		vocab, err := os.ReadFile(tc.VocabPath)
		if err != nil {
			return 0, fmt.Errorf("read vocab: %w", err)
		}
		merges, err := os.ReadFile(tc.MergesPath)
		if err != nil {
			return 0, fmt.Errorf("read merges: %w", err)
		}
		var added []byte
		if tc.AddedTokensPath != "" {
			added, err = os.ReadFile(tc.AddedTokensPath)
			if err != nil {
				return 0, fmt.Errorf("read added tokens: %w", err)
			}
		}
		return b.NewFromByteLevelBPE(vocab, string(merges), added)

	default:
		return b.NewFromFile(tc.ConfigPath)
	}
}

// withTokenizer opens the configured tokenizer, runs fn and releases
// everything afterwards.
func withTokenizer(fn func(b *bridge.Bridge, h bridge.TokenizerHandle, cfg config.Config) error) error {
	cfg, err := requireConfig()
	if err != nil {
		return err
	}

	b, err := newBridge(cfg.Tokenizer)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.Close(); err != nil {
			slog.Warn("release tokenizer state", "error", err)
		}
	}()

	h, err := openTokenizer(b, cfg.Tokenizer)
	if err != nil {
		return err
	}

	return fn(b, h, cfg)
}
