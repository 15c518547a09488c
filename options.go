package tagalloc

import (
	"log/slog"

	"github.com/QuangTung97/tagalloc/allocator"
)

// Option configures the arena behind an Allocator.
type Option func(*allocator.Config)

// WithLogger routes allocation tracing to logger. Tracing is emitted at
// debug level; by default it is discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(c *allocator.Config) {
		c.Logger = logger
	}
}

// WithOffHeap reserves the arena with an anonymous memory mapping so the
// garbage collector never scans it. Platforms without mmap use the heap.
func WithOffHeap() Option {
	return func(c *allocator.Config) {
		c.OffHeap = true
	}
}

// WithInvariantChecks validates the whole arena after every mutation and
// panics on corruption. Linear in the number of blocks.
func WithInvariantChecks() Option {
	return func(c *allocator.Config) {
		c.CheckInvariants = true
	}
}

// WithPointerTracking makes Deallocate reject every pointer that is not
// currently allocated.
func WithPointerTracking() Option {
	return func(c *allocator.Config) {
		c.TrackPointers = true
	}
}

// WithObserver ...
func WithObserver(o allocator.Observer) Option {
	return func(c *allocator.Config) {
		c.Observer = o
	}
}
