package allocator

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/RoaringBitmap/roaring/v2"
)

// Ptr is the offset of an allocated payload inside its arena.
type Ptr uint32

// NullPtr is never a valid payload offset: every payload follows a header.
const NullPtr Ptr = 0

// Arena is a fixed-capacity first-fit allocator. All bookkeeping lives in the
// arena bytes as boundary tags. Not goroutine-safe.
type Arena struct {
	data     []byte
	unitSize uint32
	release  func() error

	checkInvariants bool
	live            *roaring.Bitmap

	logger   *slog.Logger
	observer Observer
}

// New creates an arena holding a single free block that spans the whole capacity.
func New(conf Config) (*Arena, error) {
	if err := validateConfig(conf); err != nil {
		return nil, err
	}

	data, release, err := allocateData(conf.Capacity, conf.OffHeap)
	if err != nil {
		return nil, fmt.Errorf("allocator: reserve %d bytes: %w", conf.Capacity, err)
	}

	a := &Arena{
		data:            data,
		unitSize:        conf.UnitSize,
		release:         release,
		checkInvariants: conf.CheckInvariants,
		logger:          conf.Logger,
		observer:        conf.Observer,
	}
	if a.logger == nil {
		a.logger = discardLogger()
	}
	if a.observer == nil {
		a.observer = NoopObserver{}
	}
	if conf.TrackPointers {
		a.live = roaring.New()
	}

	a.writeBlock(0, FreeTag(uint32(conf.Capacity-blockOverhead)))
	a.postCheck("new")

	a.logger.Debug("arena created",
		"capacity", conf.Capacity,
		"unit_size", conf.UnitSize,
		"off_heap", conf.OffHeap,
	)
	return a, nil
}

// Capacity returns the arena size in bytes, tags included.
func (a *Arena) Capacity() int {
	return len(a.data)
}

// UnitSize ...
func (a *Arena) UnitSize() uint32 {
	return a.unitSize
}

// Equal reports whether a and other have the same configuration. Arenas
// are interchangeable as allocators even though each owns distinct bytes.
func (a *Arena) Equal(other *Arena) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.Capacity() == other.Capacity() && a.unitSize == other.unitSize
}

// Allocate reserves room for n elements of UnitSize bytes using first fit.
// Allocate(0) returns NullPtr and leaves the arena untouched.
func (a *Arena) Allocate(n int) (Ptr, error) {
	if a.data == nil {
		return NullPtr, ErrClosed
	}
	if n < 0 {
		err := fmt.Errorf("%w: %d", ErrInvalidSize, n)
		a.observer.OnAllocate(0, err)
		return NullPtr, err
	}
	if n == 0 {
		return NullPtr, nil
	}

	if uint64(n) > maxTagSize/uint64(a.unitSize) {
		err := fmt.Errorf("%w: %w: %d elements of %d bytes", ErrOutOfMemory, ErrSizeOverflow, n, a.unitSize)
		a.observer.OnAllocate(math.MaxUint32, err)
		a.logger.Debug("allocate failed", "elements", n, "error", err)
		return NullPtr, err
	}
	required := uint64(n) * uint64(a.unitSize)

	b, ok := a.findFit(uint32(required))
	if !ok {
		err := fmt.Errorf("%w: no free block of %d bytes", ErrOutOfMemory, required)
		a.observer.OnAllocate(uint32(required), err)
		a.logger.Debug("allocate failed", "elements", n, "bytes", required, "error", err)
		return NullPtr, err
	}

	used := a.place(b, uint32(required))
	p := Ptr(used.payload())
	if a.live != nil {
		a.live.Add(uint32(p))
	}
	a.postCheck("allocate")

	a.observer.OnAllocate(used.Size, nil)
	a.logger.Debug("allocate",
		"elements", n,
		"bytes", required,
		"offset", uint32(p),
		"size", used.Size,
	)
	return p, nil
}

// findFit returns the left-most free block with at least required payload bytes.
func (a *Arena) findFit(required uint32) (Block, bool) {
	off := uint32(0)
	for int(off) < len(a.data) {
		b, ok := a.blockAt(off)
		if !ok {
			return Block{}, false
		}
		if b.Free && b.Size >= required {
			return b, true
		}
		off = b.end()
	}
	return Block{}, false
}

// place marks the first required bytes of the free block b as allocated and
// returns the allocated block. A remainder too small to hold its own tags
// plus one element is folded into the allocation.
func (a *Arena) place(b Block, required uint32) Block {
	leftover := b.Size - required
	if leftover < blockOverhead+a.unitSize {
		return a.writeBlock(b.Offset, AllocatedTag(b.Size))
	}

	used := a.writeBlock(b.Offset, AllocatedTag(required))
	a.writeBlock(used.end(), FreeTag(leftover-blockOverhead))
	return used
}

// Deallocate releases the block at p and coalesces it with free neighbors.
//
// Misuse detection is best-effort: a pointer that does not address an
// allocated block is rejected with ErrInvalidPointer, and with TrackPointers
// every pointer not currently handed out is rejected too. Without
// TrackPointers a forged pointer landing on bytes that look like an
// allocated block is not detected.
func (a *Arena) Deallocate(p Ptr) error {
	b, err := a.allocatedBlock(p)
	if err != nil {
		a.observer.OnDeallocate(0, err)
		a.logger.Debug("deallocate failed", "offset", uint32(p), "error", err)
		return err
	}
	if a.live != nil {
		a.live.Remove(uint32(p))
	}

	merged := a.coalesce(b)
	a.postCheck("deallocate")

	a.observer.OnDeallocate(b.Size, nil)
	a.logger.Debug("deallocate",
		"offset", uint32(p),
		"size", b.Size,
		"merged_offset", merged.Offset,
		"merged_size", merged.Size,
	)
	return nil
}

func (a *Arena) allocatedBlock(p Ptr) (Block, error) {
	if a.data == nil {
		return Block{}, ErrClosed
	}
	if p < TagSize {
		return Block{}, fmt.Errorf("%w: %d", ErrInvalidPointer, p)
	}
	b, ok := a.blockAt(uint32(p) - TagSize)
	if !ok {
		return Block{}, fmt.Errorf("%w: %d is out of range", ErrInvalidPointer, p)
	}
	if b.Free {
		return Block{}, fmt.Errorf("%w: block at %d is not allocated", ErrInvalidPointer, p)
	}
	footer, _ := a.readTag(b.footer())
	if footer != AllocatedTag(b.Size) {
		return Block{}, fmt.Errorf("%w: block at %d has no matching footer", ErrInvalidPointer, p)
	}
	if a.live != nil && !a.live.Contains(uint32(p)) {
		return Block{}, fmt.Errorf("%w: %d was not handed out", ErrInvalidPointer, p)
	}
	return b, nil
}

// coalesce marks b free and fuses it with free neighbors. The first block
// only has a right neighbor, the last block only a left one.
func (a *Arena) coalesce(b Block) Block {
	isFirst := b.Offset == 0
	isLast := int(b.end()) == len(a.data)

	switch {
	case isFirst && isLast:
		return a.writeBlock(b.Offset, FreeTag(b.Size))
	case isFirst:
		return a.tryMergeRight(b)
	case isLast:
		return a.tryMergeLeft(b)
	default:
		return a.tryMergeRight(a.tryMergeLeft(b))
	}
}

func (a *Arena) tryMergeRight(b Block) Block {
	next, ok := a.blockAt(b.end())
	if !ok || !next.Free {
		return a.writeBlock(b.Offset, FreeTag(b.Size))
	}
	return a.writeBlock(b.Offset, FreeTag(b.Size+blockOverhead+next.Size))
}

func (a *Arena) tryMergeLeft(b Block) Block {
	prev, ok := a.blockEndingAt(b.Offset)
	if !ok || !prev.Free {
		return a.writeBlock(b.Offset, FreeTag(b.Size))
	}
	return a.writeBlock(prev.Offset, FreeTag(prev.Size+blockOverhead+b.Size))
}

// Bytes returns the payload of the allocated block at p. The slice aliases
// arena memory and is invalid after Deallocate.
func (a *Arena) Bytes(p Ptr) ([]byte, error) {
	b, err := a.allocatedBlock(p)
	if err != nil {
		return nil, err
	}
	start := b.payload()
	end := start + b.Size
	return a.data[start:end:end], nil
}

// PayloadSize returns the payload size of the allocated block at p, which
// can exceed the requested size when a small remainder was folded in.
func (a *Arena) PayloadSize(p Ptr) (uint32, error) {
	b, err := a.allocatedBlock(p)
	if err != nil {
		return 0, err
	}
	return b.Size, nil
}

// Close releases the backing memory. The arena cannot be used afterwards.
func (a *Arena) Close() error {
	if a.data == nil {
		return nil
	}
	var err error
	if a.release != nil {
		err = a.release()
	}
	a.data = nil
	a.release = nil
	a.live = nil
	return err
}

func (a *Arena) postCheck(op string) {
	if !a.checkInvariants {
		return
	}
	if err := a.Verify(); err != nil {
		a.logger.Error("arena invariant violated", "op", op, "error", err)
		panic(err)
	}
}
