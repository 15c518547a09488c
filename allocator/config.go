package allocator

import (
	"fmt"
	"io"
	"log/slog"
)

// Config ...
type Config struct {
	// Capacity is the total arena size in bytes, tags included.
	Capacity int

	// UnitSize is the size in bytes of one element; Allocate(n) asks for n*UnitSize bytes.
	UnitSize uint32

	// OffHeap backs the arena with an anonymous memory mapping where supported.
	OffHeap bool

	// CheckInvariants runs Validate after every Allocate and Deallocate and
	// panics when it fails.
	CheckInvariants bool

	// TrackPointers records live payload offsets so Deallocate can reject
	// pointers it never handed out.
	TrackPointers bool

	Logger   *slog.Logger
	Observer Observer
}

// minCapacity is the smallest arena that can hold one block.
const minCapacity = blockOverhead

func validateConfig(conf Config) error {
	if conf.Capacity < minCapacity {
		return fmt.Errorf("%w: capacity %d must be >= %d", ErrInvalidConfig, conf.Capacity, minCapacity)
	}
	if conf.Capacity-blockOverhead > maxTagSize {
		return fmt.Errorf("%w: capacity %d exceeds tag range", ErrInvalidConfig, conf.Capacity)
	}
	if conf.UnitSize == 0 {
		return fmt.Errorf("%w: unit size must be > 0", ErrInvalidConfig)
	}
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
