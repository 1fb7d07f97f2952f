package main

import (
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/example/go-tokenizers/internal/bridge"
	"github.com/example/go-tokenizers/internal/config"
	"github.com/example/go-tokenizers/internal/emplace"
	"github.com/example/go-tokenizers/internal/export"
	"github.com/example/go-tokenizers/internal/ingest"
	"github.com/example/go-tokenizers/internal/view"
)

// status is the int32 result code of every exported function.
type status int32

const (
	statusOK status = iota
	statusConfiguration
	statusEncoding
	statusLookup
	statusUse
)

func statusOf(err error) status {
	if err == nil {
		return statusOK
	}
	switch bridge.KindOf(err) {
	case bridge.ErrConfiguration:
		return statusConfiguration
	case bridge.ErrEncoding:
		return statusEncoding
	case bridge.ErrLookup:
		return statusLookup
	default:
		return statusUse
	}
}

// library is the process-wide state behind the C entry points.
type library struct {
	b *bridge.Bridge
}

var lib = sync.OnceValue(func() *library {
	cfg, err := config.Load(config.LoadOptions{Defaults: config.DefaultConfig()})
	if err != nil {
		slog.Warn("tokenizers: config not loaded, using defaults", "error", err)
		cfg = config.DefaultConfig()
	}

	return newLibrary(cfg, os.Stderr)
})

func newLibrary(cfg config.Config, logOut io.Writer) *library {
	lvl, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{Level: lvl}))

	backend, err := config.NormalizeBackend(cfg.Tokenizer.Backend)
	if err != nil {
		logger.Warn("falling back to builtin backend", "error", err)
		backend = config.BackendBuiltin
	}

	return &library{
		b: bridge.New(
			bridge.WithPinning(),
			bridge.WithLogger(logger),
			bridge.WithStrictVocab(cfg.Tokenizer.StrictVocab),
			bridge.WithNativeBackend(backend == config.BackendNative),
		),
	}
}

// errorText exports err's message for the optional error out-parameter.
func (l *library) errorText(err error) export.Buffer[byte] {
	return l.b.ExportText(err.Error())
}

// ---------------------------------------------------------------------------
// construction and lifecycle
// ---------------------------------------------------------------------------

func (l *library) newFromConfig(data []byte) (uint64, error) {
	h, err := l.b.NewFromConfig(data)
	return uint64(h), err
}

func (l *library) newFromFile(path string) (uint64, error) {
	h, err := l.b.NewFromFile(path)
	return uint64(h), err
}

func (l *library) newFromByteLevelBPE(vocab []byte, merges string, added []byte) (uint64, error) {
	h, err := l.b.NewFromByteLevelBPE(vocab, merges, added)
	return uint64(h), err
}

func (l *library) newFromSentencePiece(model []byte) (uint64, error) {
	h, err := l.b.NewFromSentencePiece(model)
	return uint64(h), err
}

func (l *library) destroyTokenizer(tok uint64) error {
	return l.b.DestroyTokenizer(bridge.TokenizerHandle(tok))
}

func (l *library) destroyEncoding(enc uint64) error {
	return l.b.DestroyEncoding(bridge.EncodingHandle(enc))
}

// ---------------------------------------------------------------------------
// single-item operations
// ---------------------------------------------------------------------------

func (l *library) encode(tok uint64, text string, addSpecial bool) (uint64, error) {
	h, err := l.b.Encode(bridge.TokenizerHandle(tok), text, addSpecial)
	return uint64(h), err
}

func (l *library) decode(tok uint64, ids []uint32, skipSpecial bool) (export.Buffer[byte], error) {
	return l.b.Decode(bridge.TokenizerHandle(tok), ids, skipSpecial)
}

func (l *library) vocabSize(tok uint64, withAdded bool) (int, error) {
	return l.b.VocabSize(bridge.TokenizerHandle(tok), withAdded)
}

func (l *library) idToToken(tok uint64, id uint32) (export.Buffer[byte], error) {
	return l.b.IDToToken(bridge.TokenizerHandle(tok), id)
}

func (l *library) tokenToID(tok uint64, token string) (uint32, error) {
	return l.b.TokenToID(bridge.TokenizerHandle(tok), token)
}

// ---------------------------------------------------------------------------
// encoding accessors
// ---------------------------------------------------------------------------

// column selects one of the four u32 accessors.
type column int

const (
	columnIDs column = iota
	columnTypeIDs
	columnSpecialTokensMask
	columnAttentionMask
)

func (l *library) column(enc uint64, c column) (view.Array[uint32], error) {
	h := bridge.EncodingHandle(enc)
	switch c {
	case columnTypeIDs:
		return l.b.TypeIDs(h)
	case columnSpecialTokensMask:
		return l.b.SpecialTokensMask(h)
	case columnAttentionMask:
		return l.b.AttentionMask(h)
	default:
		return l.b.IDs(h)
	}
}

func tokens[R any](l *library, enc uint64, reserve emplace.Reserve[R], emp emplace.Emplace[R]) error {
	return bridge.Tokens(l.b, bridge.EncodingHandle(enc), reserve, emp)
}

// ---------------------------------------------------------------------------
// batch operations
// ---------------------------------------------------------------------------

func encodeBatch[Coll any](l *library, tok uint64, collection Coll, n int, at ingest.Accessor[Coll, byte], addSpecial bool) (export.Buffer[bridge.EncodingRecord], error) {
	return bridge.EncodeBatch(l.b, bridge.TokenizerHandle(tok), collection, n, at, addSpecial)
}

func decodeBatch[Coll any](l *library, tok uint64, collection Coll, n int, at ingest.Accessor[Coll, uint32], skipSpecial bool) (export.Buffer[export.Buffer[byte]], error) {
	return bridge.DecodeBatch(l.b, bridge.TokenizerHandle(tok), collection, n, at, skipSpecial)
}

// ---------------------------------------------------------------------------
// deallocation
// ---------------------------------------------------------------------------

func (l *library) freeText(buf export.Buffer[byte]) error {
	return l.b.FreeExportedText(buf)
}

func (l *library) freeTextWithArgs(ptr *byte, length, capacity int) error {
	return l.b.FreeTextWithArgs(ptr, length, capacity)
}

func (l *library) freeEncodings(buf export.Buffer[bridge.EncodingRecord]) error {
	return l.b.FreeExportedEncodings(buf)
}

func (l *library) freeTextList(buf export.Buffer[export.Buffer[byte]]) error {
	return l.b.FreeExportedTextList(buf)
}

func (l *library) freeTextListOuterOnly(buf export.Buffer[export.Buffer[byte]]) error {
	return l.b.FreeExportedTextListOuterOnly(buf)
}
