package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Tokenizer TokenizerConfig `mapstructure:"tokenizer"`
	Bench     BenchConfig     `mapstructure:"bench"`
	LogLevel  string          `mapstructure:"log_level"`
}

// TokenizerConfig selects the tokenizer definition and how it is used. At
// most one source is consulted: SentencePiecePath, then VocabPath with
// MergesPath, then ConfigPath.
type TokenizerConfig struct {
	ConfigPath        string `mapstructure:"config_path"`
	VocabPath         string `mapstructure:"vocab_path"`
	MergesPath        string `mapstructure:"merges_path"`
	AddedTokensPath   string `mapstructure:"added_tokens_path"`
	SentencePiecePath string `mapstructure:"sentencepiece_path"`
	Backend           string `mapstructure:"backend"`
	StrictVocab       bool   `mapstructure:"strict_vocab"`
	AddSpecialTokens  bool   `mapstructure:"add_special_tokens"`
	SkipSpecialTokens bool   `mapstructure:"skip_special_tokens"`
}

type BenchConfig struct {
	Runs      int `mapstructure:"runs"`
	Workers   int `mapstructure:"workers"`
	BatchSize int `mapstructure:"batch_size"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

func DefaultConfig() Config {
	return Config{
		Tokenizer: TokenizerConfig{
			ConfigPath:        "tokenizer.json",
			VocabPath:         "",
			MergesPath:        "",
			AddedTokensPath:   "",
			SentencePiecePath: "",
			Backend:           BackendBuiltin,
			StrictVocab:       false,
			AddSpecialTokens:  true,
			SkipSpecialTokens: true,
		},
		Bench: BenchConfig{
			Runs:      5,
			Workers:   1,
			BatchSize: 32,
		},
		LogLevel: "info",
	}
}

// flagKeys maps every flag to the config key it overrides.
var flagKeys = map[string]string{
	"tokenizer":                     "tokenizer.config_path",
	"tokenizer-config-path":         "tokenizer.config_path",
	"tokenizer-vocab-path":          "tokenizer.vocab_path",
	"tokenizer-merges-path":         "tokenizer.merges_path",
	"tokenizer-added-tokens-path":   "tokenizer.added_tokens_path",
	"tokenizer-sentencepiece-path":  "tokenizer.sentencepiece_path",
	"backend":                       "tokenizer.backend",
	"tokenizer-strict-vocab":        "tokenizer.strict_vocab",
	"tokenizer-add-special-tokens":  "tokenizer.add_special_tokens",
	"tokenizer-skip-special-tokens": "tokenizer.skip_special_tokens",
	"bench-runs":                    "bench.runs",
	"bench-workers":                 "bench.workers",
	"bench-batch-size":              "bench.batch_size",
	"log-level":                     "log_level",
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("tokenizer-config-path", defaults.Tokenizer.ConfigPath, "Path to tokenizer.json")
	fs.String("tokenizer", defaults.Tokenizer.ConfigPath, "Path to tokenizer.json (alias for --tokenizer-config-path)")
	fs.String("tokenizer-vocab-path", defaults.Tokenizer.VocabPath, "Path to a byte-level BPE vocab.json")
	fs.String("tokenizer-merges-path", defaults.Tokenizer.MergesPath, "Path to a byte-level BPE merges.txt")
	fs.String("tokenizer-added-tokens-path", defaults.Tokenizer.AddedTokensPath, "Path to an added_tokens.json")
	fs.String("tokenizer-sentencepiece-path", defaults.Tokenizer.SentencePiecePath, "Path to a SentencePiece .model")
	fs.String("backend", defaults.Tokenizer.Backend, "Tokenizer backend for tokenizer.json (builtin|native)")
	fs.Bool("tokenizer-strict-vocab", defaults.Tokenizer.StrictVocab, "Reject non-numeric vocabulary values")
	fs.Bool("tokenizer-add-special-tokens", defaults.Tokenizer.AddSpecialTokens, "Apply the post-processor template when encoding")
	fs.Bool("tokenizer-skip-special-tokens", defaults.Tokenizer.SkipSpecialTokens, "Drop special tokens when decoding")
	fs.Int("bench-runs", defaults.Bench.Runs, "Benchmark runs")
	fs.Int("bench-workers", defaults.Bench.Workers, "Concurrent benchmark workers, one tokenizer each")
	fs.Int("bench-batch-size", defaults.Bench.BatchSize, "Texts per encodeBatch call")
	fs.String("log-level", defaults.LogLevel, "Log level (debug|info|warn|error)")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		if err := bindFlags(v, opts.Cmd.Flags()); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	v.SetEnvPrefix("TOKENIZERS")
	replacer := strings.NewReplacer("-", "_", ".", "_", "__", "_")
	v.SetEnvKeyReplacer(replacer)
	if err := v.BindEnv("tokenizer.config_path", "TOKENIZERS_TOKENIZER_CONFIG_PATH", "TOKENIZER_JSON"); err != nil {
		return Config{}, fmt.Errorf("bind tokenizer env vars: %w", err)
	}
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("tokenizers")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("tokenizer.config_path", c.Tokenizer.ConfigPath)
	v.SetDefault("tokenizer.vocab_path", c.Tokenizer.VocabPath)
	v.SetDefault("tokenizer.merges_path", c.Tokenizer.MergesPath)
	v.SetDefault("tokenizer.added_tokens_path", c.Tokenizer.AddedTokensPath)
	v.SetDefault("tokenizer.sentencepiece_path", c.Tokenizer.SentencePiecePath)
	v.SetDefault("tokenizer.backend", c.Tokenizer.Backend)
	v.SetDefault("tokenizer.strict_vocab", c.Tokenizer.StrictVocab)
	v.SetDefault("tokenizer.add_special_tokens", c.Tokenizer.AddSpecialTokens)
	v.SetDefault("tokenizer.skip_special_tokens", c.Tokenizer.SkipSpecialTokens)
	v.SetDefault("bench.runs", c.Bench.Runs)
	v.SetDefault("bench.workers", c.Bench.Workers)
	v.SetDefault("bench.batch_size", c.Bench.BatchSize)
	v.SetDefault("log_level", c.LogLevel)
}

// bindFlags binds each flag to its config key. Only flags set on the command
// line take precedence over the config file and environment. When both a
// flag and its alias are set, the canonical flag wins.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok || !f.Changed || err != nil {
			return
		}
		err = v.BindPFlag(key, f)
	})

	return err
}
