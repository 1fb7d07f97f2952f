// Package emplace returns variable-length string lists through a two-phase
// callback pair: the caller reserves room for n elements, then receives each
// element in order as a borrowed byte view.
package emplace

import (
	"errors"

	"github.com/example/go-tokenizers/internal/view"
)

// ErrNilCallback is returned when either callback is missing.
var ErrNilCallback = errors.New("nil reserve or emplace callback")

// Reserve is called once with the element count and returns the caller's
// reservation handle.
type Reserve[R any] func(n int) R

// Emplace is called once per element with the reservation handle. The view
// is valid only for the duration of the call.
type Emplace[R any] func(r R, elem view.Array[byte])

// Emit runs the protocol over items. Reserve always runs, even for an empty
// list, and strictly before the first Emplace.
func Emit[R any](items []string, reserve Reserve[R], emplace Emplace[R]) error {
	if reserve == nil || emplace == nil {
		return ErrNilCallback
	}

	r := reserve(len(items))
	for _, s := range items {
		emplace(r, view.String(s))
	}

	return nil
}

// StringSink collects emitted elements into a []string.
type StringSink struct {
	Items []string
}

func (s *StringSink) Reserve(n int) *StringSink {
	s.Items = make([]string, 0, n)
	return s
}

func (s *StringSink) Emplace(_ *StringSink, elem view.Array[byte]) {
	s.Items = append(s.Items, view.Text(elem))
}
