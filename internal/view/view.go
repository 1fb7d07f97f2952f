// Package view defines borrowed (pointer, length) array views. A view does not
// own its memory; it is valid only as long as the producer says so.
package view

import "unsafe"

// Array is a borrowed view over Len elements starting at Ptr. Its layout
// matches the C struct { T* ptr; size_t len; } on 64-bit targets.
type Array[T any] struct {
	Ptr *T
	Len int
}

// Of borrows s. The view aliases s; it does not copy.
func Of[T any](s []T) Array[T] {
	if len(s) == 0 {
		return Array[T]{}
	}

	return Array[T]{Ptr: unsafe.SliceData(s), Len: len(s)}
}

// String borrows the bytes of s. Callers must not write through the view.
func String(s string) Array[byte] {
	if s == "" {
		return Array[byte]{}
	}

	return Array[byte]{Ptr: unsafe.StringData(s), Len: len(s)}
}

// Valid reports whether the view can be dereferenced: a non-negative length
// and a non-nil pointer unless empty.
func (a Array[T]) Valid() bool {
	return a.Len >= 0 && (a.Ptr != nil || a.Len == 0)
}

// Slice aliases the viewed memory as a Go slice.
func (a Array[T]) Slice() []T {
	if a.Ptr == nil || a.Len <= 0 {
		return nil
	}

	return unsafe.Slice(a.Ptr, a.Len)
}

// Text copies the viewed bytes into a new string.
func Text(a Array[byte]) string {
	return string(a.Slice())
}
