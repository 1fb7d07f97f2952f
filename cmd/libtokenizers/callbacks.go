package main

/*
#include "tokenizers.h"

static inline tk_view tk_call_accessor(tk_accessor fn, const void *collection, size_t index) {
  return fn(collection, index);
}

static inline void *tk_call_reserve(tk_reserve fn, void *ctx, size_t n) {
  return fn(ctx, n);
}

static inline void tk_call_emplace(tk_emplace fn, void *list, tk_view elem) {
  fn(list, elem);
}
*/
import "C"

import (
	"unsafe"

	"github.com/example/go-tokenizers/internal/view"
)

// foreignCollection is a caller-owned collection read through its accessor.
type foreignCollection struct {
	data unsafe.Pointer
	at   C.tk_accessor
}

func (c foreignCollection) view(index int) (unsafe.Pointer, int) {
	v := C.tk_call_accessor(c.at, c.data, C.size_t(index))
	return unsafe.Pointer(v.ptr), int(v.len)
}

func textAt(c foreignCollection, index int) view.Array[byte] {
	ptr, n := c.view(index)
	return view.Array[byte]{Ptr: (*byte)(ptr), Len: n}
}

func idsAt(c foreignCollection, index int) view.Array[uint32] {
	ptr, n := c.view(index)
	return view.Array[uint32]{Ptr: (*uint32)(ptr), Len: n}
}

// foreignList is the caller's reserve/emplace pair.
type foreignList struct {
	ctx     unsafe.Pointer
	reserve C.tk_reserve
	emplace C.tk_emplace
}

func (f foreignList) reserveFn(n int) unsafe.Pointer {
	return C.tk_call_reserve(f.reserve, f.ctx, C.size_t(n))
}

func (f foreignList) emplaceFn(list unsafe.Pointer, elem view.Array[byte]) {
	C.tk_call_emplace(f.emplace, list, C.tk_view{ptr: unsafe.Pointer(elem.Ptr), len: C.size_t(elem.Len)})
}
