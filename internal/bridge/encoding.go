package bridge

import (
	"errors"

	"github.com/example/go-tokenizers/internal/emplace"
	"github.com/example/go-tokenizers/internal/engine"
	"github.com/example/go-tokenizers/internal/handle"
	"github.com/example/go-tokenizers/internal/view"
)

// errBatchOwned is the cause reported when a batch-owned encoding is
// destroyed on its own.
var errBatchOwned = errors.New("encoding is owned by a batch export; free the batch instead")

func (b *Bridge) encoding(op string, h EncodingHandle) (*engine.Encoding, error) {
	e, err := b.encodings.Get(handle.ID(h))
	if err != nil {
		return nil, newError(op, ErrUse, err)
	}

	return e.enc, nil
}

func (b *Bridge) column(op string, h EncodingHandle, pick func(*engine.Encoding) []uint32) (view.Array[uint32], error) {
	enc, err := b.encoding(op, h)
	if err != nil {
		return view.Array[uint32]{}, err
	}

	return view.Of(pick(enc)), nil
}

// IDs borrows the token ids of an encoding. The view is valid until the
// encoding is destroyed.
func (b *Bridge) IDs(h EncodingHandle) (view.Array[uint32], error) {
	return b.column("ids", h, func(e *engine.Encoding) []uint32 { return e.IDs })
}

// TypeIDs borrows the type ids of an encoding.
func (b *Bridge) TypeIDs(h EncodingHandle) (view.Array[uint32], error) {
	return b.column("typeIds", h, func(e *engine.Encoding) []uint32 { return e.TypeIDs })
}

// SpecialTokensMask borrows the special-tokens mask of an encoding.
func (b *Bridge) SpecialTokensMask(h EncodingHandle) (view.Array[uint32], error) {
	return b.column("specialTokensMask", h, func(e *engine.Encoding) []uint32 { return e.SpecialTokensMask })
}

// AttentionMask borrows the attention mask of an encoding.
func (b *Bridge) AttentionMask(h EncodingHandle) (view.Array[uint32], error) {
	return b.column("attentionMask", h, func(e *engine.Encoding) []uint32 { return e.AttentionMask })
}

// Tokens hands the token texts of an encoding to the caller: reserve runs
// once with the token count, then emplace runs once per token in order.
func Tokens[R any](b *Bridge, h EncodingHandle, reserve emplace.Reserve[R], emp emplace.Emplace[R]) error {
	const op = "tokens"
	enc, err := b.encoding(op, h)
	if err != nil {
		return err
	}
	if err := emplace.Emit(enc.Tokens, reserve, emp); err != nil {
		return newError(op, ErrUse, err)
	}

	return nil
}

// TokenList returns a copy of the token texts of an encoding.
func (b *Bridge) TokenList(h EncodingHandle) ([]string, error) {
	var sink emplace.StringSink
	if err := Tokens(b, h, sink.Reserve, sink.Emplace); err != nil {
		return nil, err
	}

	return sink.Items, nil
}

// DestroyEncoding releases an encoding produced by Encode. Encodings owned
// by a batch export are released by FreeExportedEncodings instead.
func (b *Bridge) DestroyEncoding(h EncodingHandle) error {
	const op = "destroyEncoding"
	e, err := b.encodings.Get(handle.ID(h))
	if err != nil {
		return newError(op, ErrUse, err)
	}
	if e.batchOwned {
		return newError(op, ErrUse, errBatchOwned)
	}
	if err := b.removeEncoding(handle.ID(h)); err != nil {
		return newError(op, ErrUse, err)
	}

	return nil
}
