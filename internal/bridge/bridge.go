// Package bridge is the memory-safe boundary in front of the tokenization
// engines. Tokenizers and encodings live in generational handle tables;
// everything handed out is either a handle, a view borrowed from an encoding,
// or a buffer recorded by the exporter. Each producing operation has exactly
// one matching release operation, and every misuse the tables or the export
// ledger can detect is reported as an ErrUse error instead of corrupting
// memory.
//
// A single tokenizer or encoding must not be used from several goroutines at
// once. Distinct handles may be used concurrently.
package bridge

import (
	"fmt"
	"log/slog"
	"runtime"

	"go.uber.org/multierr"

	"github.com/example/go-tokenizers/internal/engine"
	"github.com/example/go-tokenizers/internal/export"
	"github.com/example/go-tokenizers/internal/handle"
	"github.com/example/go-tokenizers/internal/hfnative"
	"github.com/example/go-tokenizers/internal/sentencepiece"
)

// TokenizerHandle identifies a tokenizer owned by a Bridge.
type TokenizerHandle handle.ID

// EncodingHandle identifies an encoding owned by a Bridge.
type EncodingHandle handle.ID

func (h TokenizerHandle) String() string { return handle.ID(h).String() }
func (h EncodingHandle) String() string  { return handle.ID(h).String() }

type encodingEntry struct {
	enc *engine.Encoding
	// batchOwned entries are released with their batch export only.
	batchOwned bool
	pinner     *runtime.Pinner
}

// newEntry wraps enc for the encoding table. With pinning enabled the
// columns stay addressable by foreign code until the entry is removed.
func (b *Bridge) newEntry(enc *engine.Encoding, batchOwned bool) *encodingEntry {
	e := &encodingEntry{enc: enc, batchOwned: batchOwned}
	if b.opts.pinning {
		e.pinner = new(runtime.Pinner)
		for _, col := range [][]uint32{enc.IDs, enc.TypeIDs, enc.SpecialTokensMask, enc.AttentionMask} {
			if len(col) > 0 {
				e.pinner.Pin(&col[0])
			}
		}
	}

	return e
}

func (b *Bridge) removeEncoding(id handle.ID) error {
	e, err := b.encodings.Remove(id)
	if err != nil {
		return err
	}
	if e.pinner != nil {
		e.pinner.Unpin()
	}

	return nil
}

// Bridge owns the handle tables and the export ledger.
type Bridge struct {
	opts       options
	log        *slog.Logger
	exp        *export.Exporter
	tokenizers *handle.Table[engine.Engine]
	encodings  *handle.Table[*encodingEntry]
}

// New returns an empty Bridge.
func New(optFns ...Option) *Bridge {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Bridge{
		opts:       opts,
		log:        opts.logger,
		exp:        export.New(opts.exporterOptions()...),
		tokenizers: handle.NewTable[engine.Engine](handle.KindTokenizer),
		encodings:  handle.NewTable[*encodingEntry](handle.KindEncoding),
	}
}

// ---------------------------------------------------------------------------
// construction
// ---------------------------------------------------------------------------

func (b *Bridge) engineOptions() engine.Options {
	return engine.Options{Strict: b.opts.strictVocab}
}

func (b *Bridge) adopt(op string, eng engine.Engine, err error) (TokenizerHandle, error) {
	if err != nil {
		b.log.Warn("tokenizer construction failed", "op", op, "error", err)
		return 0, newError(op, classify(err, ErrConfiguration), err)
	}

	h := TokenizerHandle(b.tokenizers.Insert(eng))
	b.log.Debug("tokenizer created", "op", op, "handle", h.String(), "vocab_size", eng.VocabSize(true))

	return h, nil
}

// NewFromConfig builds a tokenizer from a serialized tokenizer.json document.
func (b *Bridge) NewFromConfig(data []byte) (TokenizerHandle, error) {
	const op = "newFromConfig"
	if b.opts.native {
		if !hfnative.Available() {
			return b.adopt(op, nil, hfnative.ErrUnavailable)
		}
		eng, err := hfnative.FromJSON(data)
		return b.adopt(op, eng, err)
	}

	eng, err := engine.FromJSON(data, b.engineOptions())

	return b.adopt(op, eng, err)
}

// NewFromFile builds a tokenizer from a tokenizer.json file.
func (b *Bridge) NewFromFile(path string) (TokenizerHandle, error) {
	const op = "newFromFile"
	if b.opts.native {
		if !hfnative.Available() {
			return b.adopt(op, nil, hfnative.ErrUnavailable)
		}
		eng, err := hfnative.FromFile(path)
		return b.adopt(op, eng, err)
	}

	eng, err := engine.FromFile(path, b.engineOptions())

	return b.adopt(op, eng, err)
}

// NewFromByteLevelBPE builds a byte-level BPE tokenizer from a vocabulary
// JSON object, merges text and an added-tokens JSON object.
func (b *Bridge) NewFromByteLevelBPE(vocabJSON []byte, mergesText string, addedTokensJSON []byte) (TokenizerHandle, error) {
	eng, err := engine.NewByteLevelBPE(vocabJSON, mergesText, addedTokensJSON, b.engineOptions())
	return b.adopt("newFromByteLevelBPE", eng, err)
}

// NewFromSentencePiece builds a tokenizer from a serialized SentencePiece
// model.
func (b *Bridge) NewFromSentencePiece(model []byte) (TokenizerHandle, error) {
	eng, err := sentencepiece.FromBytes(model)
	return b.adopt("newFromSentencePiece", eng, err)
}

// DestroyTokenizer releases a tokenizer. Encodings it produced stay valid.
func (b *Bridge) DestroyTokenizer(h TokenizerHandle) error {
	eng, err := b.tokenizers.Remove(handle.ID(h))
	if err != nil {
		return newError("destroyTokenizer", ErrUse, err)
	}
	closeEngine(eng)
	b.log.Debug("tokenizer destroyed", "handle", h.String())

	return nil
}

func closeEngine(eng engine.Engine) {
	if c, ok := eng.(interface{ Close() }); ok {
		c.Close()
	}
}

func (b *Bridge) tokenizer(op string, h TokenizerHandle) (engine.Engine, error) {
	eng, err := b.tokenizers.Get(handle.ID(h))
	if err != nil {
		return nil, newError(op, ErrUse, err)
	}

	return eng, nil
}

// ---------------------------------------------------------------------------
// single-item operations
// ---------------------------------------------------------------------------

// Encode tokenizes text into a new encoding.
func (b *Bridge) Encode(h TokenizerHandle, text string, addSpecialTokens bool) (EncodingHandle, error) {
	const op = "encode"
	eng, err := b.tokenizer(op, h)
	if err != nil {
		return 0, err
	}

	enc, err := eng.Encode(text, addSpecialTokens)
	if err != nil {
		b.log.Warn("encode failed", "handle", h.String(), "text_len", len(text), "error", err)
		return 0, newError(op, classify(err, ErrEncoding), err)
	}

	return EncodingHandle(b.encodings.Insert(b.newEntry(enc, false))), nil
}

// Decode joins ids into text and exports it. Release the result with
// FreeExportedText.
func (b *Bridge) Decode(h TokenizerHandle, ids []uint32, skipSpecialTokens bool) (export.Buffer[byte], error) {
	const op = "decode"
	eng, err := b.tokenizer(op, h)
	if err != nil {
		return export.Buffer[byte]{}, err
	}

	text, err := eng.Decode(ids, skipSpecialTokens)
	if err != nil {
		b.log.Warn("decode failed", "handle", h.String(), "ids", len(ids), "error", err)
		return export.Buffer[byte]{}, newError(op, classify(err, ErrEncoding), err)
	}

	return export.Text(b.exp, text), nil
}

// VocabSize reports the vocabulary size, optionally counting added tokens.
func (b *Bridge) VocabSize(h TokenizerHandle, withAddedTokens bool) (int, error) {
	eng, err := b.tokenizer("vocabSize", h)
	if err != nil {
		return 0, err
	}

	return eng.VocabSize(withAddedTokens), nil
}

// IDToToken exports the text of id. Release the result with
// FreeExportedText.
func (b *Bridge) IDToToken(h TokenizerHandle, id uint32) (export.Buffer[byte], error) {
	const op = "idToToken"
	eng, err := b.tokenizer(op, h)
	if err != nil {
		return export.Buffer[byte]{}, err
	}

	tok, ok := eng.IDToToken(id)
	if !ok {
		return export.Buffer[byte]{}, newError(op, ErrLookup, fmt.Errorf("id %d not in vocabulary", id))
	}

	return export.Text(b.exp, tok), nil
}

// TokenToID returns the id of token.
func (b *Bridge) TokenToID(h TokenizerHandle, token string) (uint32, error) {
	const op = "tokenToId"
	eng, err := b.tokenizer(op, h)
	if err != nil {
		return 0, err
	}

	id, ok := eng.TokenToID(token)
	if !ok {
		return 0, newError(op, ErrLookup, fmt.Errorf("token %q not in vocabulary", token))
	}

	return id, nil
}

// ---------------------------------------------------------------------------
// teardown
// ---------------------------------------------------------------------------

// Stats reports the live objects owned by a Bridge.
type Stats struct {
	Tokenizers int
	Encodings  int
	Exports    export.Stats
}

func (b *Bridge) Stats() Stats {
	return Stats{
		Tokenizers: b.tokenizers.Len(),
		Encodings:  b.encodings.Len(),
		Exports:    b.exp.Stats(),
	}
}

// Close releases every live tokenizer, encoding and export. Handles and
// buffers obtained earlier must not be used afterwards.
func (b *Bridge) Close() error {
	var err error
	for _, id := range b.tokenizers.IDs() {
		eng, rerr := b.tokenizers.Remove(id)
		if rerr != nil {
			err = multierr.Append(err, rerr)
			continue
		}
		closeEngine(eng)
	}
	for _, id := range b.encodings.IDs() {
		if rerr := b.removeEncoding(id); rerr != nil {
			err = multierr.Append(err, rerr)
		}
	}
	released := b.exp.ReleaseAll()
	b.log.Debug("bridge closed", "exports_released", released)

	if err != nil {
		return newError("close", ErrUse, err)
	}

	return nil
}
