package allocator

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfMemory indicates that no free block is large enough for a request.
	ErrOutOfMemory = errors.New("allocator: out of memory")

	// ErrSizeOverflow indicates that n * unit size does not fit in a tag.
	ErrSizeOverflow = errors.New("allocator: request size overflows tag range")

	// ErrInvalidSize indicates a negative element count.
	ErrInvalidSize = errors.New("allocator: negative element count")

	// ErrInvalidPointer indicates a pointer that was not handed out by this arena
	// or was already released. Detection is best-effort.
	ErrInvalidPointer = errors.New("allocator: invalid pointer")

	// ErrInvalidConfig indicates an arena configuration that cannot hold a block.
	ErrInvalidConfig = errors.New("allocator: invalid config")

	// ErrCorrupted indicates that the tag encoding no longer describes a valid arena.
	ErrCorrupted = errors.New("allocator: arena corrupted")

	// ErrClosed indicates use of an arena after Close.
	ErrClosed = errors.New("allocator: arena closed")
)

// Invariant names a property of the block encoding.
type Invariant string

const (
	// InvariantMirror requires every header to equal its footer.
	InvariantMirror Invariant = "mirror"
	// InvariantTiling requires blocks to cover the arena exactly.
	InvariantTiling Invariant = "tiling"
	// InvariantNoAdjacentFree requires free neighbors to be coalesced.
	InvariantNoAdjacentFree Invariant = "no-adjacent-free"
)

// CorruptionError reports the first invariant violation found while walking the arena.
type CorruptionError struct {
	Offset    uint32
	Invariant Invariant
	Detail    string
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("allocator: arena corrupted at offset %d (%s): %s", e.Offset, e.Invariant, e.Detail)
}

// Unwrap lets errors.Is match ErrCorrupted.
func (e *CorruptionError) Unwrap() error { return ErrCorrupted }
