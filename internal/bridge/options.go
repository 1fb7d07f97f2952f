package bridge

import (
	"log/slog"

	"github.com/example/go-tokenizers/internal/export"
)

// ---------------------------------------------------------------------------
// Functional options
// ---------------------------------------------------------------------------

type options struct {
	logger      *slog.Logger
	pinning     bool
	strictVocab bool
	native      bool
}

func defaultOptions() options {
	return options{
		logger: slog.Default(),
	}
}

// Option configures a Bridge.
type Option func(*options)

// WithLogger sets the slog.Logger used for lifecycle logging.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithPinning pins exported buffers and encoding columns until they are
// released. Required when foreign code keeps their addresses across calls.
func WithPinning() Option {
	return func(o *options) { o.pinning = true }
}

// WithStrictVocab rejects non-numeric vocabulary values instead of skipping
// them.
func WithStrictVocab(strict bool) Option {
	return func(o *options) { o.strictVocab = strict }
}

// WithNativeBackend routes tokenizer.json construction through the native
// HuggingFace library when it is compiled in.
func WithNativeBackend(enabled bool) Option {
	return func(o *options) { o.native = enabled }
}

func (o options) exporterOptions() []export.Option {
	if o.pinning {
		return []export.Option{export.WithPinning()}
	}

	return nil
}
