package main

/*
#include <stdlib.h>
#include <string.h>
#include "tokenizers.h"

static tk_view tk_views_at(const void *collection, size_t index) {
  return ((const tk_view *)collection)[index];
}

typedef struct {
  char **items;
  size_t *lens;
  size_t reserved;
  size_t n;
} tk_string_list;

static void *tk_string_list_reserve(void *ctx, size_t n) {
  tk_string_list *l = ctx;
  l->items = calloc(n ? n : 1, sizeof(char *));
  l->lens = calloc(n ? n : 1, sizeof(size_t));
  l->reserved = n;
  l->n = 0;
  return l;
}

static void tk_string_list_emplace(void *list, tk_view elem) {
  tk_string_list *l = list;
  if (l->n >= l->reserved) {
    return;
  }
  char *s = malloc(elem.len + 1);
  if (elem.len > 0) {
    memcpy(s, elem.ptr, elem.len);
  }
  s[elem.len] = 0;
  l->items[l->n] = s;
  l->lens[l->n] = elem.len;
  l->n++;
}

static void tk_string_list_free(tk_string_list *l) {
  for (size_t i = 0; i < l->n; i++) {
    free(l->items[i]);
  }
  free(l->items);
  free(l->lens);
  free(l);
}

static tk_accessor tk_views_accessor(void) { return tk_views_at; }
static tk_reserve tk_string_list_reserver(void) { return tk_string_list_reserve; }
static tk_emplace tk_string_list_emplacer(void) { return tk_string_list_emplace; }
*/
import "C"

import (
	"unsafe"
)

// C-side drivers for the exported entry points. Every argument crosses the
// boundary the way a C caller passes it: inputs live in C memory, views go
// through tk_views_at and token lists through tk_string_list.

// cOutcome is the status of a call plus the exported error text, which is
// read and released immediately.
type cOutcome struct {
	status  status
	errText string
	// errFree is the status of freeing the error text.
	errFree status
}

func cCall(fn func(errOut *C.tk_vec) C.int32_t) cOutcome {
	var errOut C.tk_vec
	o := cOutcome{status: status(fn(&errOut))}
	if errOut.ptr != nil {
		o.errText = C.GoStringN((*C.char)(errOut.ptr), C.int(errOut.len))
		o.errFree = status(tokenizers_free_exported_text(errOut))
	}

	return o
}

// cBuf copies b into C memory. Release it with C.free.
func cBuf(b []byte) unsafe.Pointer {
	if len(b) == 0 {
		return nil
	}

	return C.CBytes(b)
}

// cVec is an exported buffer as a C caller holds it.
type cVec struct {
	v C.tk_vec
}

func (c cVec) fields() (length, capacity, typeSize int) {
	return int(c.v.len), int(c.v.cap), int(c.v.type_size)
}

func (c cVec) text() string {
	if c.v.ptr == nil {
		return ""
	}

	return C.GoStringN((*C.char)(c.v.ptr), C.int(c.v.len))
}

func (c cVec) freeText() status { return status(tokenizers_free_exported_text(c.v)) }

func (c cVec) freeTextWithArgs() status {
	return status(tokenizers_free_exported_text_with_args(c.v.ptr, c.v.len, c.v.cap))
}

func (c cVec) freeEncodings() status { return status(tokenizers_free_exported_encodings(c.v)) }

func (c cVec) freeTextList() status { return status(tokenizers_free_exported_text_list(c.v)) }

func (c cVec) freeTextListOuterOnly() status {
	return status(tokenizers_free_exported_text_list_outer_only(c.v))
}

// records reads an encode-batch buffer through the tk_encoding_record layout.
func (c cVec) records() []cRecord {
	if c.v.ptr == nil {
		return nil
	}
	raw := unsafe.Slice((*C.tk_encoding_record)(c.v.ptr), int(c.v.len))
	out := make([]cRecord, len(raw))
	for i, r := range raw {
		out[i] = cRecord{handle: uint64(r.handle), len: int(r.len)}
	}

	return out
}

// inner returns the text buffers of a decode-batch buffer.
func (c cVec) inner() []cVec {
	if c.v.ptr == nil {
		return nil
	}
	raw := unsafe.Slice((*C.tk_vec)(c.v.ptr), int(c.v.len))
	out := make([]cVec, len(raw))
	for i, v := range raw {
		out[i] = cVec{v: v}
	}

	return out
}

type cRecord struct {
	handle uint64
	len    int
}

// ---------------------------------------------------------------------------
// construction and lifecycle
// ---------------------------------------------------------------------------

func cNewFromConfig(data []byte) (uint64, cOutcome) {
	p := cBuf(data)
	defer C.free(p)

	var out C.tk_tokenizer
	o := cCall(func(errOut *C.tk_vec) C.int32_t {
		return tokenizers_new_from_config((*C.char)(p), C.size_t(len(data)), &out, errOut)
	})

	return uint64(out), o
}

func cNewFromFile(path string, n uint64) (uint64, cOutcome) {
	p := cBuf([]byte(path))
	defer C.free(p)

	var out C.tk_tokenizer
	o := cCall(func(errOut *C.tk_vec) C.int32_t {
		return tokenizers_new_from_file((*C.char)(p), C.size_t(n), &out, errOut)
	})

	return uint64(out), o
}

func cNewFromByteLevelBPE(vocab, merges, added string) (uint64, cOutcome) {
	v, m, a := cBuf([]byte(vocab)), cBuf([]byte(merges)), cBuf([]byte(added))
	defer C.free(v)
	defer C.free(m)
	defer C.free(a)

	var out C.tk_tokenizer
	o := cCall(func(errOut *C.tk_vec) C.int32_t {
		return tokenizers_new_from_byte_level_bpe(
			(*C.char)(v), C.size_t(len(vocab)),
			(*C.char)(m), C.size_t(len(merges)),
			(*C.char)(a), C.size_t(len(added)),
			&out, errOut)
	})

	return uint64(out), o
}

func cNewFromSentencePiece(model []byte) (uint64, cOutcome) {
	p := cBuf(model)
	defer C.free(p)

	var out C.tk_tokenizer
	o := cCall(func(errOut *C.tk_vec) C.int32_t {
		return tokenizers_new_from_sentencepiece(p, C.size_t(len(model)), &out, errOut)
	})

	return uint64(out), o
}

func cDestroyTokenizer(tok uint64) cOutcome {
	return cCall(func(errOut *C.tk_vec) C.int32_t {
		return tokenizers_destroy_tokenizer(C.tk_tokenizer(tok), errOut)
	})
}

func cDestroyEncoding(enc uint64) cOutcome {
	return cCall(func(errOut *C.tk_vec) C.int32_t {
		return tokenizers_destroy_encoding(C.tk_encoding(enc), errOut)
	})
}

// ---------------------------------------------------------------------------
// single-item operations
// ---------------------------------------------------------------------------

func cEncode(tok uint64, text string, addSpecial bool) (uint64, cOutcome) {
	p := cBuf([]byte(text))
	defer C.free(p)

	var out C.tk_encoding
	o := cCall(func(errOut *C.tk_vec) C.int32_t {
		return tokenizers_encode(C.tk_tokenizer(tok), (*C.char)(p), C.size_t(len(text)), C.bool(addSpecial), &out, errOut)
	})

	return uint64(out), o
}

// cEncodeRaw passes a nil text pointer with length n and, when nilOut is set,
// a nil out-parameter.
func cEncodeRaw(tok uint64, n uint64, nilOut bool) cOutcome {
	var out C.tk_encoding
	outp := &out
	if nilOut {
		outp = nil
	}

	return cCall(func(errOut *C.tk_vec) C.int32_t {
		return tokenizers_encode(C.tk_tokenizer(tok), nil, C.size_t(n), true, outp, errOut)
	})
}

func cDecode(tok uint64, ids []uint32, skipSpecial bool) (cVec, cOutcome) {
	var p unsafe.Pointer
	if len(ids) > 0 {
		p = C.malloc(C.size_t(len(ids)) * C.size_t(unsafe.Sizeof(uint32(0))))
		copy(unsafe.Slice((*uint32)(p), len(ids)), ids)
	}
	defer C.free(p)

	var out C.tk_vec
	o := cCall(func(errOut *C.tk_vec) C.int32_t {
		return tokenizers_decode(C.tk_tokenizer(tok), (*C.uint32_t)(p), C.size_t(len(ids)), C.bool(skipSpecial), &out, errOut)
	})

	return cVec{v: out}, o
}

func cVocabSize(tok uint64) (int, cOutcome) {
	var out C.size_t
	o := cCall(func(errOut *C.tk_vec) C.int32_t {
		return tokenizers_get_vocab_size(C.tk_tokenizer(tok), &out, errOut)
	})

	return int(out), o
}

func cVocabSizeWithOptions(tok uint64, withAdded bool) (int, cOutcome) {
	var out C.size_t
	o := cCall(func(errOut *C.tk_vec) C.int32_t {
		return tokenizers_get_vocab_size_with_options(C.tk_tokenizer(tok), C.bool(withAdded), &out, errOut)
	})

	return int(out), o
}

func cIDToToken(tok uint64, id uint32) (cVec, cOutcome) {
	var out C.tk_vec
	o := cCall(func(errOut *C.tk_vec) C.int32_t {
		return tokenizers_id_to_token(C.tk_tokenizer(tok), C.uint32_t(id), &out, errOut)
	})

	return cVec{v: out}, o
}

func cTokenToID(tok uint64, token string) (uint32, cOutcome) {
	p := cBuf([]byte(token))
	defer C.free(p)

	var out C.uint32_t
	o := cCall(func(errOut *C.tk_vec) C.int32_t {
		return tokenizers_token_to_id(C.tk_tokenizer(tok), (*C.char)(p), C.size_t(len(token)), &out, errOut)
	})

	return uint32(out), o
}

// ---------------------------------------------------------------------------
// encoding accessors
// ---------------------------------------------------------------------------

func cColumn(enc uint64, c column) ([]uint32, cOutcome) {
	fn := map[column]func(C.tk_encoding, *C.tk_view, *C.tk_vec) C.int32_t{
		columnIDs:               tokenizers_encoding_ids,
		columnTypeIDs:           tokenizers_encoding_type_ids,
		columnSpecialTokensMask: tokenizers_encoding_special_tokens_mask,
		columnAttentionMask:     tokenizers_encoding_attention_mask,
	}[c]

	var out C.tk_view
	o := cCall(func(errOut *C.tk_vec) C.int32_t {
		return fn(C.tk_encoding(enc), &out, errOut)
	})
	if out.ptr == nil {
		return nil, o
	}

	return append([]uint32(nil), unsafe.Slice((*uint32)(out.ptr), int(out.len))...), o
}

// cTokens collects the token strings into a tk_string_list and reports how
// many elements the reserve callback was asked for.
func cTokens(enc uint64) ([]string, int, cOutcome) {
	list := (*C.tk_string_list)(C.calloc(1, C.size_t(unsafe.Sizeof(C.tk_string_list{}))))
	defer C.tk_string_list_free(list)

	o := cCall(func(errOut *C.tk_vec) C.int32_t {
		return tokenizers_encoding_tokens(C.tk_encoding(enc), unsafe.Pointer(list),
			C.tk_string_list_reserver(), C.tk_string_list_emplacer(), errOut)
	})
	if list.items == nil {
		return nil, int(list.reserved), o
	}

	items := unsafe.Slice(list.items, int(list.n))
	lens := unsafe.Slice(list.lens, int(list.n))
	out := make([]string, len(items))
	for i := range items {
		out[i] = C.GoStringN(items[i], C.int(lens[i]))
	}

	return out, int(list.reserved), o
}

func cTokensNilCallbacks(enc uint64) cOutcome {
	return cCall(func(errOut *C.tk_vec) C.int32_t {
		return tokenizers_encoding_tokens(C.tk_encoding(enc), nil, nil, nil, errOut)
	})
}

// ---------------------------------------------------------------------------
// batch operations
// ---------------------------------------------------------------------------

// cViews lays out items as a C array of tk_view over C-owned copies.
func cViews(items [][]byte, elemSize int) (unsafe.Pointer, func()) {
	if len(items) == 0 {
		return nil, func() {}
	}
	table := C.calloc(C.size_t(len(items)), C.size_t(unsafe.Sizeof(C.tk_view{})))
	views := unsafe.Slice((*C.tk_view)(table), len(items))
	for i, it := range items {
		views[i] = C.tk_view{ptr: cBuf(it), len: C.size_t(len(it) / elemSize)}
	}

	return table, func() {
		for _, v := range views {
			C.free(unsafe.Pointer(v.ptr))
		}
		C.free(table)
	}
}

func cEncodeBatch(tok uint64, texts []string, addSpecial bool) (cVec, cOutcome) {
	items := make([][]byte, len(texts))
	for i, s := range texts {
		items[i] = []byte(s)
	}
	table, release := cViews(items, 1)
	defer release()

	var out C.tk_vec
	o := cCall(func(errOut *C.tk_vec) C.int32_t {
		return tokenizers_encode_batch(C.tk_tokenizer(tok), table, C.size_t(len(texts)), C.tk_views_accessor(), C.bool(addSpecial), &out, errOut)
	})

	return cVec{v: out}, o
}

// cEncodeBatchNilAccessor passes n items with no accessor.
func cEncodeBatchNilAccessor(tok uint64, n uint64) cOutcome {
	var out C.tk_vec
	return cCall(func(errOut *C.tk_vec) C.int32_t {
		return tokenizers_encode_batch(C.tk_tokenizer(tok), nil, C.size_t(n), nil, true, &out, errOut)
	})
}

func cDecodeBatch(tok uint64, ids [][]uint32, skipSpecial bool) (cVec, cOutcome) {
	items := make([][]byte, len(ids))
	for i, seq := range ids {
		if len(seq) > 0 {
			items[i] = unsafe.Slice((*byte)(unsafe.Pointer(&seq[0])), len(seq)*4)
		}
	}
	table, release := cViews(items, 4)
	defer release()

	var out C.tk_vec
	o := cCall(func(errOut *C.tk_vec) C.int32_t {
		return tokenizers_decode_batch(C.tk_tokenizer(tok), table, C.size_t(len(ids)), C.tk_views_accessor(), C.bool(skipSpecial), &out, errOut)
	})

	return cVec{v: out}, o
}
