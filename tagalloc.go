// Package tagalloc provides a typed allocator over a fixed-capacity
// boundary-tag arena. Elements are stored by value inside the arena bytes,
// so T must not contain Go pointers: the garbage collector does not see them.
package tagalloc

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/QuangTung97/tagalloc/allocator"
)

// Ptr ...
type Ptr = allocator.Ptr

// NullPtr ...
const NullPtr = allocator.NullPtr

// ErrIndexOutOfRange indicates an element index beyond an allocation.
var ErrIndexOutOfRange = errors.New("tagalloc: element index out of range")

// Allocator hands out arrays of T from an arena of fixed capacity.
type Allocator[T any] struct {
	arena    *allocator.Arena
	elemSize int
}

// New creates an Allocator whose arena holds capacity bytes, tags included.
func New[T any](capacity int, opts ...Option) (*Allocator[T], error) {
	var zero T
	conf := allocator.Config{
		Capacity: capacity,
		UnitSize: uint32(unsafe.Sizeof(zero)),
	}
	for _, opt := range opts {
		opt(&conf)
	}

	arena, err := allocator.New(conf)
	if err != nil {
		return nil, err
	}
	return &Allocator[T]{
		arena:    arena,
		elemSize: int(unsafe.Sizeof(zero)),
	}, nil
}

// Arena exposes the underlying arena for inspection.
func (a *Allocator[T]) Arena() *allocator.Arena {
	return a.arena
}

// Allocate reserves uninitialized room for n elements.
func (a *Allocator[T]) Allocate(n int) (Ptr, error) {
	return a.arena.Allocate(n)
}

// Deallocate returns the allocation at p to the arena. Elements are not
// destroyed.
func (a *Allocator[T]) Deallocate(p Ptr) error {
	return a.arena.Deallocate(p)
}

// Len returns the number of elements the allocation at p can hold. It can
// be larger than requested when a small remainder was folded in.
func (a *Allocator[T]) Len(p Ptr) (int, error) {
	size, err := a.arena.PayloadSize(p)
	if err != nil {
		return 0, err
	}
	return int(size) / a.elemSize, nil
}

func (a *Allocator[T]) element(p Ptr, i int) ([]byte, error) {
	payload, err := a.arena.Bytes(p)
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= len(payload)/a.elemSize {
		return nil, fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	return payload[i*a.elemSize : (i+1)*a.elemSize], nil
}

// Construct stores v as element i of the allocation at p.
func (a *Allocator[T]) Construct(p Ptr, i int, v T) error {
	dst, err := a.element(p, i)
	if err != nil {
		return err
	}
	copy(dst, unsafe.Slice((*byte)(unsafe.Pointer(&v)), a.elemSize))
	return nil
}

// Load returns a copy of element i of the allocation at p.
func (a *Allocator[T]) Load(p Ptr, i int) (T, error) {
	var result T
	src, err := a.element(p, i)
	if err != nil {
		return result, err
	}
	copy(unsafe.Slice((*byte)(unsafe.Pointer(&result)), a.elemSize), src)
	return result, nil
}

// Destroy zeroes element i of the allocation at p.
func (a *Allocator[T]) Destroy(p Ptr, i int) error {
	dst, err := a.element(p, i)
	if err != nil {
		return err
	}
	clear(dst)
	return nil
}

// Equal reports whether a and other have the same arena configuration.
// Equal allocators are interchangeable even though each owns distinct bytes.
func (a *Allocator[T]) Equal(other *Allocator[T]) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.arena.Equal(other.arena)
}

// Close releases the arena memory.
func (a *Allocator[T]) Close() error {
	return a.arena.Close()
}
