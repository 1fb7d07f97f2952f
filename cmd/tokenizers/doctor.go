package main

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/example/go-tokenizers/internal/config"
	"github.com/example/go-tokenizers/internal/doctor"
	"github.com/example/go-tokenizers/internal/hfnative"
	"github.com/spf13/cobra"
)

func newDoctorCmd() *cobra.Command {
	var skipGo bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run local toolchain and tokenizer checks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			backend, err := config.NormalizeBackend(cfg.Tokenizer.Backend)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "backend: %s\n", backend)

			dcfg := doctor.Config{
				GoVersion:       probeGoVersion,
				SkipGo:          skipGo,
				Backend:         backend,
				NativeRequested: backend == config.BackendNative,
				NativeAvailable: hfnative.Available(),
				LoadTokenizer:   func() (int, error) { return loadVocabSize(cfg.Tokenizer) },
			}

			files, srcErr := tokenizerFiles(cfg.Tokenizer)
			dcfg.TokenizerFiles = files

			result := doctor.Run(dcfg, out)
			if srcErr != nil {
				result.AddFailure(fmt.Sprintf("tokenizer source: %v", srcErr))
				_, _ = fmt.Fprintf(out, "%s tokenizer source: %v\n", doctor.FailMark, srcErr)
			}

			if result.Failed() {
				for _, f := range result.Failures() {
					fmt.Fprintf(cmd.ErrOrStderr(), "FAIL: %s\n", f)
				}

				return errors.New("doctor checks failed")
			}

			_, _ = fmt.Fprintln(out, "doctor checks passed")

			return nil
		},
	}

	cmd.Flags().BoolVar(&skipGo, "skip-go", false, "Skip the Go toolchain check")

	return cmd
}

// probeGoVersion runs `go env GOVERSION` and returns its output.
func probeGoVersion() (string, error) {
	out, err := exec.CommandContext(context.Background(), "go", "env", "GOVERSION").Output()
	if err != nil {
		return "", fmt.Errorf("go env GOVERSION failed: %w", err)
	}

	return strings.TrimSpace(string(out)), nil
}

func loadVocabSize(tc config.TokenizerConfig) (int, error) {
	b, err := newBridge(tc)
	if err != nil {
		return 0, err
	}
	defer func() { _ = b.Close() }()

	h, err := openTokenizer(b, tc)
	if err != nil {
		return 0, err
	}

	return b.VocabSize(h, true)
}
