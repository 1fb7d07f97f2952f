package main

/*
#include "tokenizers.h"
*/
import "C"

import (
	"errors"
	"fmt"
	"math"
	"unsafe"

	"github.com/example/go-tokenizers/internal/bridge"
	"github.com/example/go-tokenizers/internal/export"
)

var (
	errNilOut      = errors.New("nil out parameter")
	errNilInput    = errors.New("nil input with non-zero length")
	errNilCallback = errors.New("nil callback")
	errTooLong     = errors.New("input length out of range")
)

// maxInputLen bounds every caller-supplied length; larger values cannot be
// copied through C.int.
const maxInputLen = math.MaxInt32

// ---------------------------------------------------------------------------
// marshalling helpers
// ---------------------------------------------------------------------------

func writeVec[T any](out *C.tk_vec, b export.Buffer[T]) {
	out.ptr = unsafe.Pointer(b.Ptr)
	out.cap = C.size_t(b.Cap)
	out.len = C.size_t(b.Len)
	out.type_size = C.size_t(b.ElemSize)
}

func readVec[T any](v C.tk_vec) export.Buffer[T] {
	return export.Buffer[T]{
		Ptr:      (*T)(v.ptr),
		Cap:      int(v.cap),
		Len:      int(v.len),
		ElemSize: uintptr(v.type_size),
	}
}

// result converts err to a status code and, when errOut is set, exports the
// message into it.
func result(err error, errOut *C.tk_vec) C.int32_t {
	st := statusOf(err)
	if err != nil && errOut != nil {
		writeVec(errOut, lib().errorText(err))
	}

	return C.int32_t(st)
}

func useError(op string, err error, errOut *C.tk_vec) C.int32_t {
	return result(&bridge.Error{Op: op, Kind: bridge.ErrUse, Err: err}, errOut)
}

func checkInput(p unsafe.Pointer, n C.size_t) error {
	switch {
	case n > maxInputLen:
		return fmt.Errorf("%w: %d", errTooLong, uint64(n))
	case n > 0 && p == nil:
		return errNilInput
	default:
		return nil
	}
}

func goString(p *C.char, n C.size_t) (string, error) {
	if err := checkInput(unsafe.Pointer(p), n); err != nil || n == 0 {
		return "", err
	}

	return C.GoStringN(p, C.int(n)), nil
}

func goBytes(p unsafe.Pointer, n C.size_t) ([]byte, error) {
	if err := checkInput(p, n); err != nil || n == 0 {
		return nil, err
	}

	return C.GoBytes(p, C.int(n)), nil
}

// ---------------------------------------------------------------------------
// construction and lifecycle
// ---------------------------------------------------------------------------

//export tokenizers_new_from_config
func tokenizers_new_from_config(data *C.char, n C.size_t, out *C.tk_tokenizer, errOut *C.tk_vec) C.int32_t {
	const op = "newFromConfig"
	cfg, err := goBytes(unsafe.Pointer(data), n)
	if err != nil {
		return useError(op, err, errOut)
	}
	if out == nil {
		return useError(op, errNilOut, errOut)
	}
	h, err := lib().newFromConfig(cfg)
	if err == nil {
		*out = C.tk_tokenizer(h)
	}

	return result(err, errOut)
}

//export tokenizers_new_from_file
func tokenizers_new_from_file(path *C.char, n C.size_t, out *C.tk_tokenizer, errOut *C.tk_vec) C.int32_t {
	const op = "newFromFile"
	p, err := goString(path, n)
	if err != nil {
		return useError(op, err, errOut)
	}
	if out == nil {
		return useError(op, errNilOut, errOut)
	}
	h, err := lib().newFromFile(p)
	if err == nil {
		*out = C.tk_tokenizer(h)
	}

	return result(err, errOut)
}

//export tokenizers_new_from_byte_level_bpe
func tokenizers_new_from_byte_level_bpe(
	vocab *C.char, vocabLen C.size_t,
	merges *C.char, mergesLen C.size_t,
	added *C.char, addedLen C.size_t,
	out *C.tk_tokenizer, errOut *C.tk_vec,
) C.int32_t {
	const op = "newFromByteLevelBPE"
	v, err1 := goBytes(unsafe.Pointer(vocab), vocabLen)
	m, err2 := goString(merges, mergesLen)
	a, err3 := goBytes(unsafe.Pointer(added), addedLen)
	if err := errors.Join(err1, err2, err3); err != nil {
		return useError(op, err, errOut)
	}
	if out == nil {
		return useError(op, errNilOut, errOut)
	}
	h, err := lib().newFromByteLevelBPE(v, m, a)
	if err == nil {
		*out = C.tk_tokenizer(h)
	}

	return result(err, errOut)
}

//export tokenizers_new_from_sentencepiece
func tokenizers_new_from_sentencepiece(model unsafe.Pointer, n C.size_t, out *C.tk_tokenizer, errOut *C.tk_vec) C.int32_t {
	const op = "newFromSentencePiece"
	m, err := goBytes(model, n)
	if err != nil {
		return useError(op, err, errOut)
	}
	if out == nil {
		return useError(op, errNilOut, errOut)
	}
	h, err := lib().newFromSentencePiece(m)
	if err == nil {
		*out = C.tk_tokenizer(h)
	}

	return result(err, errOut)
}

//export tokenizers_destroy_tokenizer
func tokenizers_destroy_tokenizer(tok C.tk_tokenizer, errOut *C.tk_vec) C.int32_t {
	return result(lib().destroyTokenizer(uint64(tok)), errOut)
}

//export tokenizers_destroy_encoding
func tokenizers_destroy_encoding(enc C.tk_encoding, errOut *C.tk_vec) C.int32_t {
	return result(lib().destroyEncoding(uint64(enc)), errOut)
}

// ---------------------------------------------------------------------------
// single-item operations
// ---------------------------------------------------------------------------

//export tokenizers_encode
func tokenizers_encode(tok C.tk_tokenizer, text *C.char, n C.size_t, addSpecial C.bool, out *C.tk_encoding, errOut *C.tk_vec) C.int32_t {
	const op = "encode"
	s, err := goString(text, n)
	if err != nil {
		return useError(op, err, errOut)
	}
	if out == nil {
		return useError(op, errNilOut, errOut)
	}
	h, err := lib().encode(uint64(tok), s, bool(addSpecial))
	if err == nil {
		*out = C.tk_encoding(h)
	}

	return result(err, errOut)
}

//export tokenizers_decode
func tokenizers_decode(tok C.tk_tokenizer, ids *C.uint32_t, n C.size_t, skipSpecial C.bool, out *C.tk_vec, errOut *C.tk_vec) C.int32_t {
	const op = "decode"
	if err := checkInput(unsafe.Pointer(ids), n); err != nil {
		return useError(op, err, errOut)
	}
	if out == nil {
		return useError(op, errNilOut, errOut)
	}
	var s []uint32
	if n > 0 {
		s = unsafe.Slice((*uint32)(unsafe.Pointer(ids)), int(n))
	}
	buf, err := lib().decode(uint64(tok), s, bool(skipSpecial))
	if err == nil {
		writeVec(out, buf)
	}

	return result(err, errOut)
}

//export tokenizers_get_vocab_size
func tokenizers_get_vocab_size(tok C.tk_tokenizer, out *C.size_t, errOut *C.tk_vec) C.int32_t {
	return tokenizers_get_vocab_size_with_options(tok, true, out, errOut)
}

//export tokenizers_get_vocab_size_with_options
func tokenizers_get_vocab_size_with_options(tok C.tk_tokenizer, withAdded C.bool, out *C.size_t, errOut *C.tk_vec) C.int32_t {
	if out == nil {
		return useError("vocabSize", errNilOut, errOut)
	}
	n, err := lib().vocabSize(uint64(tok), bool(withAdded))
	if err == nil {
		*out = C.size_t(n)
	}

	return result(err, errOut)
}

//export tokenizers_id_to_token
func tokenizers_id_to_token(tok C.tk_tokenizer, id C.uint32_t, out *C.tk_vec, errOut *C.tk_vec) C.int32_t {
	if out == nil {
		return useError("idToToken", errNilOut, errOut)
	}
	buf, err := lib().idToToken(uint64(tok), uint32(id))
	if err == nil {
		writeVec(out, buf)
	}

	return result(err, errOut)
}

//export tokenizers_token_to_id
func tokenizers_token_to_id(tok C.tk_tokenizer, token *C.char, n C.size_t, out *C.uint32_t, errOut *C.tk_vec) C.int32_t {
	const op = "tokenToId"
	s, err := goString(token, n)
	if err != nil {
		return useError(op, err, errOut)
	}
	if out == nil {
		return useError(op, errNilOut, errOut)
	}
	id, err := lib().tokenToID(uint64(tok), s)
	if err == nil {
		*out = C.uint32_t(id)
	}

	return result(err, errOut)
}

// ---------------------------------------------------------------------------
// encoding accessors
// ---------------------------------------------------------------------------

func columnView(enc C.tk_encoding, c column, out *C.tk_view, errOut *C.tk_vec) C.int32_t {
	if out == nil {
		return useError("column", errNilOut, errOut)
	}
	v, err := lib().column(uint64(enc), c)
	if err == nil {
		out.ptr = unsafe.Pointer(v.Ptr)
		out.len = C.size_t(v.Len)
	}

	return result(err, errOut)
}

//export tokenizers_encoding_ids
func tokenizers_encoding_ids(enc C.tk_encoding, out *C.tk_view, errOut *C.tk_vec) C.int32_t {
	return columnView(enc, columnIDs, out, errOut)
}

//export tokenizers_encoding_type_ids
func tokenizers_encoding_type_ids(enc C.tk_encoding, out *C.tk_view, errOut *C.tk_vec) C.int32_t {
	return columnView(enc, columnTypeIDs, out, errOut)
}

//export tokenizers_encoding_special_tokens_mask
func tokenizers_encoding_special_tokens_mask(enc C.tk_encoding, out *C.tk_view, errOut *C.tk_vec) C.int32_t {
	return columnView(enc, columnSpecialTokensMask, out, errOut)
}

//export tokenizers_encoding_attention_mask
func tokenizers_encoding_attention_mask(enc C.tk_encoding, out *C.tk_view, errOut *C.tk_vec) C.int32_t {
	return columnView(enc, columnAttentionMask, out, errOut)
}

//export tokenizers_encoding_tokens
func tokenizers_encoding_tokens(enc C.tk_encoding, ctx unsafe.Pointer, reserve C.tk_reserve, emplace C.tk_emplace, errOut *C.tk_vec) C.int32_t {
	if reserve == nil || emplace == nil {
		return useError("tokens", errNilCallback, errOut)
	}
	list := foreignList{ctx: ctx, reserve: reserve, emplace: emplace}

	return result(tokens(lib(), uint64(enc), list.reserveFn, list.emplaceFn), errOut)
}

// ---------------------------------------------------------------------------
// batch operations
// ---------------------------------------------------------------------------

//export tokenizers_encode_batch
func tokenizers_encode_batch(tok C.tk_tokenizer, collection unsafe.Pointer, n C.size_t, at C.tk_accessor, addSpecial C.bool, out *C.tk_vec, errOut *C.tk_vec) C.int32_t {
	const op = "encodeBatch"
	if n > maxInputLen {
		return useError(op, fmt.Errorf("%w: %d", errTooLong, uint64(n)), errOut)
	}
	if at == nil && n > 0 {
		return useError(op, errNilCallback, errOut)
	}
	if out == nil {
		return useError(op, errNilOut, errOut)
	}
	coll := foreignCollection{data: collection, at: at}
	buf, err := encodeBatch(lib(), uint64(tok), coll, int(n), textAt, bool(addSpecial))
	if err == nil {
		writeVec(out, buf)
	}

	return result(err, errOut)
}

//export tokenizers_decode_batch
func tokenizers_decode_batch(tok C.tk_tokenizer, collection unsafe.Pointer, n C.size_t, at C.tk_accessor, skipSpecial C.bool, out *C.tk_vec, errOut *C.tk_vec) C.int32_t {
	const op = "decodeBatch"
	if n > maxInputLen {
		return useError(op, fmt.Errorf("%w: %d", errTooLong, uint64(n)), errOut)
	}
	if at == nil && n > 0 {
		return useError(op, errNilCallback, errOut)
	}
	if out == nil {
		return useError(op, errNilOut, errOut)
	}
	coll := foreignCollection{data: collection, at: at}
	buf, err := decodeBatch(lib(), uint64(tok), coll, int(n), idsAt, bool(skipSpecial))
	if err == nil {
		writeVec(out, buf)
	}

	return result(err, errOut)
}

// ---------------------------------------------------------------------------
// deallocation
// ---------------------------------------------------------------------------

//export tokenizers_free_exported_text
func tokenizers_free_exported_text(v C.tk_vec) C.int32_t {
	return result(lib().freeText(readVec[byte](v)), nil)
}

//export tokenizers_free_exported_text_with_args
func tokenizers_free_exported_text_with_args(ptr unsafe.Pointer, length, capacity C.size_t) C.int32_t {
	return result(lib().freeTextWithArgs((*byte)(ptr), int(length), int(capacity)), nil)
}

//export tokenizers_free_exported_encodings
func tokenizers_free_exported_encodings(v C.tk_vec) C.int32_t {
	return result(lib().freeEncodings(readVec[bridge.EncodingRecord](v)), nil)
}

//export tokenizers_free_exported_text_list
func tokenizers_free_exported_text_list(v C.tk_vec) C.int32_t {
	return result(lib().freeTextList(readVec[export.Buffer[byte]](v)), nil)
}

//export tokenizers_free_exported_text_list_outer_only
func tokenizers_free_exported_text_list_outer_only(v C.tk_vec) C.int32_t {
	return result(lib().freeTextListOuterOnly(readVec[export.Buffer[byte]](v)), nil)
}
