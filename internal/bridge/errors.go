package bridge

import (
	"errors"
	"fmt"

	"github.com/example/go-tokenizers/internal/emplace"
	"github.com/example/go-tokenizers/internal/engine"
	"github.com/example/go-tokenizers/internal/export"
	"github.com/example/go-tokenizers/internal/handle"
	"github.com/example/go-tokenizers/internal/ingest"
)

// Error kinds. Every error returned by a Bridge matches exactly one of them
// under errors.Is.
var (
	// ErrConfiguration reports an unreadable or malformed tokenizer definition.
	ErrConfiguration = errors.New("configuration error")
	// ErrEncoding reports text the engine could not tokenize.
	ErrEncoding = errors.New("encoding error")
	// ErrLookup reports an id or token absent from the vocabulary.
	ErrLookup = errors.New("lookup error")
	// ErrUse reports a protocol violation by the caller: a stale, forged or
	// mistyped handle, a mismatched free, or an invalid input view.
	ErrUse = errors.New("use error")
)

// Error is the error type of every boundary operation.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}

	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}

	return []error{e.Kind, e.Err}
}

func newError(op string, kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// useErrors are the lower-layer failures that indicate caller misuse.
var useErrors = []error{
	handle.ErrInvalid,
	handle.ErrStale,
	handle.ErrWrongKind,
	export.ErrNotExported,
	export.ErrCapacityMismatch,
	export.ErrElemSizeMismatch,
	export.ErrLengthExceedsCapacity,
	ingest.ErrNegativeCount,
	ingest.ErrInvalidView,
	ingest.ErrNilAccessor,
	emplace.ErrNilCallback,
}

// classify picks the kind for err, falling back to def.
func classify(err, def error) error {
	for _, target := range useErrors {
		if errors.Is(err, target) {
			return ErrUse
		}
	}
	if errors.Is(err, engine.ErrInvalidUTF8) {
		return ErrEncoding
	}

	return def
}

// KindOf returns the kind of err, or nil if err did not come from a Bridge.
func KindOf(err error) error {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}

	return nil
}
