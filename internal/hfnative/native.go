//go:build hftokenizers

package hfnative

import (
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/daulet/tokenizers"

	"github.com/example/go-tokenizers/internal/engine"
)

// Available reports whether the native backend is compiled in.
func Available() bool { return true }

// Engine implements engine.Engine on top of the Rust library.
type Engine struct {
	tk    *tokenizers.Tokenizer
	vocab *vocabTables
}

var _ engine.Engine = (*Engine)(nil)

// FromFile loads a tokenizer.json document from path.
func FromFile(path string) (*Engine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tokenizer config %q: %w", path, err)
	}

	return FromJSON(data)
}

// FromJSON loads a serialized tokenizer.json document.
func FromJSON(data []byte) (*Engine, error) {
	vt, err := parseVocabTables(data)
	if err != nil {
		return nil, err
	}

	tk, err := tokenizers.FromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("load native tokenizer: %w", err)
	}

	return &Engine{tk: tk, vocab: vt}, nil
}

func (e *Engine) Encode(text string, addSpecial bool) (*engine.Encoding, error) {
	if !utf8.ValidString(text) {
		return nil, engine.ErrInvalidUTF8
	}

	res := e.tk.EncodeWithOptions(text, addSpecial, tokenizers.WithReturnAllAttributes())

	n := len(res.IDs)
	enc := &engine.Encoding{
		IDs:               res.IDs,
		TypeIDs:           orZeros(res.TypeIDs, n),
		Tokens:            res.Tokens,
		SpecialTokensMask: orZeros(res.SpecialTokensMask, n),
		AttentionMask:     res.AttentionMask,
	}
	if len(enc.AttentionMask) != n {
		enc.AttentionMask = make([]uint32, n)
		for i := range enc.AttentionMask {
			enc.AttentionMask[i] = 1
		}
	}
	if len(enc.Tokens) != n {
		enc.Tokens = make([]string, n)
		for i, id := range enc.IDs {
			enc.Tokens[i], _ = e.vocab.idToToken(id)
		}
	}

	return enc, nil
}

func orZeros(s []uint32, n int) []uint32 {
	if len(s) == n {
		return s
	}

	return make([]uint32, n)
}

func (e *Engine) Decode(ids []uint32, skipSpecial bool) (string, error) {
	return e.tk.Decode(ids, skipSpecial), nil
}

func (e *Engine) VocabSize(withAdded bool) int {
	return e.vocab.size(withAdded)
}

func (e *Engine) IDToToken(id uint32) (string, bool) {
	return e.vocab.idToToken(id)
}

func (e *Engine) TokenToID(tok string) (uint32, bool) {
	return e.vocab.tokenToID(tok)
}

// Close releases the Rust tokenizer.
func (e *Engine) Close() {
	e.tk.Close()
}
