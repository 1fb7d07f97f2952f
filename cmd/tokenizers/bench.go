package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/example/go-tokenizers/internal/bench"
	"github.com/example/go-tokenizers/internal/bench/stageprof"
	"github.com/example/go-tokenizers/internal/bridge"
	"github.com/example/go-tokenizers/internal/config"
	"github.com/spf13/cobra"
)

func newBenchCmd() *cobra.Command {
	var (
		texts         []string
		file          string
		format        string
		minThroughput float64
		stages        bool
		warmup        int
		cpuprofile    string
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark batch encoding throughput",
		Long: "Benchmark encodeBatch throughput across workers, each with its own tokenizer. " +
			"With --stages, time the encode, column, decode and free stages of a round trip instead.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			inputs, err := benchInputs(texts, file)
			if err != nil {
				return err
			}
			if cfg.Bench.Runs < 1 {
				return fmt.Errorf("--bench-runs must be at least 1")
			}
			if format != "table" && format != "json" {
				return fmt.Errorf("--format must be 'table' or 'json'")
			}

			if stages {
				return withTokenizer(func(b *bridge.Bridge, h bridge.TokenizerHandle, cfg config.Config) error {
					report, err := stageprof.Profile(cmd.Context(), b, h, stageprof.Options{
						Texts:             inputs,
						Runs:              cfg.Bench.Runs,
						Warmup:            warmup,
						AddSpecialTokens:  cfg.Tokenizer.AddSpecialTokens,
						SkipSpecialTokens: cfg.Tokenizer.SkipSpecialTokens,
						CPUProfile:        cpuprofile,
					})
					if err != nil {
						return err
					}
					report.Write(cmd.OutOrStdout())
					return nil
				})
			}

			bridgeOpts, err := bridgeOptions(cfg.Tokenizer)
			if err != nil {
				return err
			}

			results, err := bench.Run(cmd.Context(), func(b *bridge.Bridge) (bridge.TokenizerHandle, error) {
				return openTokenizer(b, cfg.Tokenizer)
			}, bench.Options{
				Texts:            inputs,
				Runs:             cfg.Bench.Runs,
				Workers:          cfg.Bench.Workers,
				BatchSize:        cfg.Bench.BatchSize,
				AddSpecialTokens: cfg.Tokenizer.AddSpecialTokens,
				BridgeOptions:    bridgeOpts,
			})
			if err != nil {
				return err
			}

			stats := bench.ComputeStats(bench.Durations(results))

			switch format {
			case "json":
				bench.FormatJSON(results, stats, cmd.OutOrStdout())
			default:
				bench.FormatTable(results, stats, cmd.OutOrStdout())
			}

			return bench.CheckThroughputThreshold(bench.MeanThroughput(results), minThroughput)
		},
	}

	cmd.Flags().StringArrayVar(&texts, "text", nil, "Text to encode in each run (repeatable)")
	cmd.Flags().StringVar(&file, "file", "", "File with one text per line")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table|json")
	cmd.Flags().Float64Var(&minThroughput, "min-throughput", 0, "Exit non-zero if mean tokens/s falls below this value (0 = disabled)")
	cmd.Flags().BoolVar(&stages, "stages", false, "Profile the round-trip stages instead of throughput")
	cmd.Flags().IntVar(&warmup, "warmup", 1, "Unmeasured warmup runs (with --stages)")
	cmd.Flags().StringVar(&cpuprofile, "cpuprofile", "", "Write a CPU profile labelled by stage (with --stages)")

	return cmd
}

func benchInputs(texts []string, file string) ([]string, error) {
	inputs := append([]string(nil), texts...)
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("open --file: %w", err)
		}
		defer f.Close()

		lines, err := readLines(f)
		if err != nil {
			return nil, err
		}
		for _, l := range lines {
			if strings.TrimSpace(l) != "" {
				inputs = append(inputs, l)
			}
		}
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("--text or --file is required for bench")
	}

	return inputs, nil
}
