// Package handle implements generational handle tables. A handle is an opaque
// 64-bit key into a table of owned values; a stale, forged or mistyped handle
// is reported as an error instead of touching freed memory.
package handle

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrInvalid is returned for the zero handle and for handles whose index
	// lies outside the table.
	ErrInvalid = errors.New("invalid handle")
	// ErrStale is returned for a handle whose value has already been removed.
	ErrStale = errors.New("stale handle")
	// ErrWrongKind is returned when a handle of one kind is passed to a table
	// of another.
	ErrWrongKind = errors.New("handle of wrong kind")
)

// Kind tags a handle with the table it belongs to.
type Kind uint8

const (
	KindTokenizer Kind = iota + 1
	KindEncoding
)

func (k Kind) String() string {
	switch k {
	case KindTokenizer:
		return "tokenizer"
	case KindEncoding:
		return "encoding"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ID packs kind (8 bits), generation (24 bits) and slot index (32 bits).
// Generations start at 1, so the zero ID is never valid.
type ID uint64

const (
	genBits = 24
	genMask = 1<<genBits - 1
)

func makeID(kind Kind, gen uint32, index uint32) ID {
	return ID(uint64(kind)<<56 | uint64(gen&genMask)<<32 | uint64(index))
}

func (id ID) Kind() Kind         { return Kind(id >> 56) }
func (id ID) generation() uint32 { return uint32(id>>32) & genMask }
func (id ID) index() uint32      { return uint32(id) }

func (id ID) String() string {
	return fmt.Sprintf("%s#%d.%d", id.Kind(), id.index(), id.generation())
}

type slot[T any] struct {
	gen   uint32
	used  bool
	value T
}

// Table owns values of one kind. It is safe for concurrent use; the values it
// holds are not synchronized by the table.
type Table[T any] struct {
	kind  Kind
	mu    sync.RWMutex
	slots []slot[T]
	free  []uint32
	live  int
}

func NewTable[T any](kind Kind) *Table[T] {
	return &Table[T]{kind: kind}
}

// Insert stores v and returns its handle.
func (t *Table[T]) Insert(v T) ID {
	t.mu.Lock()
	defer t.mu.Unlock()

	var idx uint32
	if n := len(t.free); n > 0 {
		idx = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		idx = uint32(len(t.slots))
		t.slots = append(t.slots, slot[T]{gen: 1})
	}
	s := &t.slots[idx]
	s.used = true
	s.value = v
	t.live++

	return makeID(t.kind, s.gen, idx)
}

func (t *Table[T]) lookup(id ID) (*slot[T], error) {
	if id == 0 {
		return nil, ErrInvalid
	}
	if id.Kind() != t.kind {
		return nil, fmt.Errorf("%w: got %s, want %s", ErrWrongKind, id.Kind(), t.kind)
	}
	idx := id.index()
	if int(idx) >= len(t.slots) {
		return nil, fmt.Errorf("%w: %s", ErrInvalid, id)
	}
	s := &t.slots[idx]
	if !s.used || s.gen != id.generation() {
		return nil, fmt.Errorf("%w: %s", ErrStale, id)
	}

	return s, nil
}

// Get returns the value behind id.
func (t *Table[T]) Get(id ID) (T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s, err := t.lookup(id)
	if err != nil {
		var zero T
		return zero, err
	}

	return s.value, nil
}

// Remove deletes id and returns the value it held. The slot's generation is
// bumped so every copy of id becomes stale. A slot whose generation is
// exhausted is retired rather than reused, so a generation never repeats.
func (t *Table[T]) Remove(id ID) (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var zero T
	s, err := t.lookup(id)
	if err != nil {
		return zero, err
	}
	v := s.value
	s.value = zero
	s.used = false
	t.live--
	if s.gen == genMask {
		return v, nil
	}
	s.gen++
	t.free = append(t.free, id.index())

	return v, nil
}

// Len reports the number of live handles.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.live
}

// IDs returns a snapshot of every live handle.
func (t *Table[T]) IDs() []ID {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ids := make([]ID, 0, t.live)
	for i, s := range t.slots {
		if s.used {
			ids = append(ids, makeID(t.kind, s.gen, uint32(i)))
		}
	}

	return ids
}
