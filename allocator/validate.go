package allocator

import "fmt"

// Validate walks the arena from offset 0 and reports whether every header
// mirrors its footer and the blocks consume exactly Capacity bytes.
func (a *Arena) Validate() bool {
	return a.walk(false) == nil
}

// Verify is the detailed form of Validate. It additionally rejects adjacent
// free blocks. The returned error is a *CorruptionError or ErrClosed.
func (a *Arena) Verify() error {
	return a.walk(true)
}

func (a *Arena) walk(checkAdjacent bool) error {
	if a.data == nil {
		return ErrClosed
	}

	n := uint64(len(a.data))
	off := uint64(0)
	prevFree := false
	for off < n {
		header, ok := a.readRaw(uint32(off))
		if !ok {
			return &CorruptionError{Offset: uint32(off), Invariant: InvariantTiling, Detail: "header past end of arena"}
		}

		size := decodeTag(header).Size
		footerOff := off + TagSize + uint64(size)
		if footerOff+TagSize > n {
			return &CorruptionError{Offset: uint32(off), Invariant: InvariantTiling, Detail: "footer past end of arena"}
		}

		footer, _ := a.readRaw(uint32(footerOff))
		if header != footer {
			return &CorruptionError{
				Offset:    uint32(off),
				Invariant: InvariantMirror,
				Detail:    fmt.Sprintf("header %d, footer %d", header, footer),
			}
		}

		free := header >= 0
		if checkAdjacent && free && prevFree {
			return &CorruptionError{Offset: uint32(off), Invariant: InvariantNoAdjacentFree, Detail: "free block follows a free block"}
		}
		prevFree = free

		off = footerOff + TagSize
	}
	return nil
}

// Blocks returns every block from left to right. It stops at the first
// block that does not fit in the arena.
func (a *Arena) Blocks() []Block {
	var result []Block
	off := uint32(0)
	for int(off) < len(a.data) {
		b, ok := a.blockAt(off)
		if !ok {
			break
		}
		result = append(result, b)
		off = b.end()
	}
	return result
}

// Stats ...
type Stats struct {
	Capacity    int
	FreeBytes   uint64 // payload bytes in free blocks
	UsedBytes   uint64 // payload bytes in allocated blocks
	TagBytes    uint64 // bytes spent on headers and footers
	FreeBlocks  int
	UsedBlocks  int
	LargestFree uint32
}

// Stats returns a snapshot of the arena occupancy.
func (a *Arena) Stats() Stats {
	s := Stats{Capacity: len(a.data)}
	for _, b := range a.Blocks() {
		s.TagBytes += blockOverhead
		if b.Free {
			s.FreeBytes += uint64(b.Size)
			s.FreeBlocks++
			if b.Size > s.LargestFree {
				s.LargestFree = b.Size
			}
			continue
		}
		s.UsedBytes += uint64(b.Size)
		s.UsedBlocks++
	}
	return s
}
