// Package export transfers ownership of freshly produced buffers to a caller
// that may not share Go's memory model. Every exported buffer is recorded in
// an Exporter ledger keyed by base address, which keeps the memory reachable
// and validates the capacity presented when the caller frees it.
package export

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"unsafe"
)

var (
	// ErrNotExported is returned when freeing a buffer the exporter does not
	// own, including one that was already freed.
	ErrNotExported = errors.New("buffer not exported or already freed")
	// ErrCapacityMismatch is returned when the capacity presented on free
	// differs from the capacity recorded at export.
	ErrCapacityMismatch = errors.New("buffer capacity mismatch")
	// ErrElemSizeMismatch is returned when a buffer is freed as the wrong
	// element type.
	ErrElemSizeMismatch = errors.New("buffer element size mismatch")
	// ErrLengthExceedsCapacity is returned for a record whose length is
	// larger than its capacity.
	ErrLengthExceedsCapacity = errors.New("buffer length exceeds capacity")
)

// Buffer is an exported region of Cap elements of which the first Len are
// meaningful. Its field order matches the C record
// { void* ptr; size_t cap; size_t len; size_t type_size; }.
type Buffer[T any] struct {
	Ptr      *T
	Cap      int
	Len      int
	ElemSize uintptr
}

// Slice aliases the first Len elements.
func (b Buffer[T]) Slice() []T {
	if b.Ptr == nil || b.Len <= 0 {
		return nil
	}

	return unsafe.Slice(b.Ptr, b.Len)
}

// Bytes reports the size of the whole backing allocation.
func (b Buffer[T]) Bytes() int {
	return b.Cap * int(b.ElemSize)
}

type allocation struct {
	capacity int
	elemSize uintptr
	owner    any
	pinner   *runtime.Pinner
}

// Stats summarizes the ledger.
type Stats struct {
	Live  int
	Bytes int64
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithPinning pins every exported allocation until it is freed so that
// foreign code may hold its address across calls.
func WithPinning() Option {
	return func(ex *Exporter) { ex.pin = true }
}

// Exporter is the ledger of live exports. It is safe for concurrent use.
type Exporter struct {
	mu    sync.Mutex
	live  map[uintptr]*allocation
	bytes int64
	pin   bool
}

func New(opts ...Option) *Exporter {
	ex := &Exporter{live: make(map[uintptr]*allocation)}
	for _, opt := range opts {
		opt(ex)
	}

	return ex
}

// Slice exports s. The producer must not touch s afterwards. Capacity is
// taken from cap(s), so a buffer with spare room is recorded at its true size.
// A zero-capacity slice exports as a nil buffer that needs no free.
func Slice[T any](ex *Exporter, s []T) Buffer[T] {
	var zero T
	b := Buffer[T]{Cap: cap(s), Len: len(s), ElemSize: unsafe.Sizeof(zero)}
	if cap(s) == 0 {
		return b
	}

	full := s[:cap(s)]
	b.Ptr = unsafe.SliceData(full)
	a := &allocation{capacity: b.Cap, elemSize: b.ElemSize, owner: full}
	if ex.pin {
		a.pinner = new(runtime.Pinner)
		a.pinner.Pin(b.Ptr)
	}
	ex.register(uintptr(unsafe.Pointer(b.Ptr)), a, b.Bytes())

	return b
}

// Text exports a copy of s as a byte buffer.
func Text(ex *Exporter, s string) Buffer[byte] {
	return Slice(ex, []byte(s))
}

func (ex *Exporter) register(base uintptr, a *allocation, size int) {
	ex.mu.Lock()
	defer ex.mu.Unlock()

	if _, dup := ex.live[base]; dup {
		panic(fmt.Sprintf("export: base %#x exported twice", base))
	}
	ex.live[base] = a
	ex.bytes += int64(size)
}

// Check validates b against the ledger without freeing it.
func Check[T any](ex *Exporter, b Buffer[T]) error {
	ex.mu.Lock()
	defer ex.mu.Unlock()

	_, err := ex.validate(uintptr(unsafe.Pointer(b.Ptr)), b.Len, b.Cap, b.ElemSize)

	return err
}

// Free releases b. The capacity and element size must match the export
// record; the length may be anything up to the capacity.
func Free[T any](ex *Exporter, b Buffer[T]) error {
	return ex.FreeRaw(unsafe.Pointer(b.Ptr), b.Len, b.Cap, b.ElemSize)
}

// FreeRaw releases a buffer described field by field, as foreign callers do.
func (ex *Exporter) FreeRaw(ptr unsafe.Pointer, length, capacity int, elemSize uintptr) error {
	ex.mu.Lock()
	base := uintptr(ptr)
	a, err := ex.validate(base, length, capacity, elemSize)
	if err != nil || a == nil {
		ex.mu.Unlock()
		return err
	}
	delete(ex.live, base)
	ex.bytes -= int64(a.capacity) * int64(a.elemSize)
	ex.mu.Unlock()

	if a.pinner != nil {
		a.pinner.Unpin()
	}

	return nil
}

// validate returns the ledger entry for base, or nil for a valid empty
// buffer. Callers hold ex.mu.
func (ex *Exporter) validate(base uintptr, length, capacity int, elemSize uintptr) (*allocation, error) {
	if length < 0 || length > capacity {
		return nil, fmt.Errorf("%w: len %d, cap %d", ErrLengthExceedsCapacity, length, capacity)
	}
	if base == 0 {
		if capacity == 0 {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: nil base with cap %d", ErrNotExported, capacity)
	}

	a, ok := ex.live[base]
	if !ok {
		return nil, fmt.Errorf("%w: base %#x", ErrNotExported, base)
	}
	if a.capacity != capacity {
		return nil, fmt.Errorf("%w: got %d, exported %d", ErrCapacityMismatch, capacity, a.capacity)
	}
	if a.elemSize != elemSize {
		return nil, fmt.Errorf("%w: got %d, exported %d", ErrElemSizeMismatch, elemSize, a.elemSize)
	}

	return a, nil
}

// Stats reports the live exports.
func (ex *Exporter) Stats() Stats {
	ex.mu.Lock()
	defer ex.mu.Unlock()

	return Stats{Live: len(ex.live), Bytes: ex.bytes}
}

// ReleaseAll drops every live export and returns how many there were.
func (ex *Exporter) ReleaseAll() int {
	ex.mu.Lock()
	live := ex.live
	ex.live = make(map[uintptr]*allocation)
	ex.bytes = 0
	ex.mu.Unlock()

	for _, a := range live {
		if a.pinner != nil {
			a.pinner.Unpin()
		}
	}

	return len(live)
}
