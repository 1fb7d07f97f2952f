// Package ingest reads caller-owned collections through an index accessor.
// The collection's layout stays opaque; only the accessor knows how to turn
// an index into a view of one element.
package ingest

import (
	"errors"
	"fmt"

	"github.com/example/go-tokenizers/internal/view"
)

var (
	// ErrNegativeCount is returned for a batch with fewer than zero elements.
	ErrNegativeCount = errors.New("negative element count")
	// ErrInvalidView is returned when the accessor yields a view that cannot
	// be read.
	ErrInvalidView = errors.New("invalid element view")
	// ErrNilAccessor is returned for a positive count without an accessor.
	ErrNilAccessor = errors.New("nil accessor")
)

// Accessor returns a view over element index of collection. Views need only
// stay valid until the surrounding batch call returns.
type Accessor[C any, T any] func(collection C, index int) view.Array[T]

// Visit calls fn with the view of every element, for indices 0..n-1 in
// ascending order. The accessor is invoked exactly once per index. Visiting
// stops at the first invalid view or error returned by fn.
func Visit[C any, T any](collection C, n int, at Accessor[C, T], fn func(index int, v view.Array[T]) error) error {
	if n < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeCount, n)
	}
	if n > 0 && at == nil {
		return ErrNilAccessor
	}

	for i := 0; i < n; i++ {
		v := at(collection, i)
		if !v.Valid() {
			return fmt.Errorf("%w at index %d: len %d", ErrInvalidView, i, v.Len)
		}
		if err := fn(i, v); err != nil {
			return err
		}
	}

	return nil
}

// Strings copies every byte view out of collection as text.
func Strings[C any](collection C, n int, at Accessor[C, byte]) ([]string, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeCount, n)
	}

	out := make([]string, n)
	err := Visit(collection, n, at, func(i int, v view.Array[byte]) error {
		out[i] = view.Text(v)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// SliceAccessor is the accessor for a Go slice of slices.
func SliceAccessor[T any](collection [][]T, index int) view.Array[T] {
	return view.Of(collection[index])
}

// StringAccessor is the accessor for a Go slice of strings.
func StringAccessor(collection []string, index int) view.Array[byte] {
	return view.String(collection[index])
}
