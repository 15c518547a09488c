package allocator

import (
	"encoding/binary"
	"math"
)

// TagSize is the width in bytes of a block header or footer.
const TagSize = 4

// blockOverhead is the number of bytes a block spends on its two tags.
const blockOverhead = 2 * TagSize

// maxTagSize is the largest payload size a tag can record.
const maxTagSize = math.MaxInt32

// Tag is the decoded form of a boundary tag.
type Tag struct {
	Free bool
	Size uint32
}

// FreeTag ...
func FreeTag(size uint32) Tag {
	return Tag{Free: true, Size: size}
}

// AllocatedTag ...
func AllocatedTag(size uint32) Tag {
	return Tag{Free: false, Size: size}
}

// encodeTag returns the signed integer stored in the arena for t.
// Free blocks are non-negative, allocated blocks negative, so an allocated
// block of size 0 has no encoding.
func encodeTag(t Tag) int32 {
	if t.Free {
		return int32(t.Size)
	}
	if t.Size == 0 {
		panic("allocator: allocated block with empty payload")
	}
	return -int32(t.Size)
}

func decodeTag(raw int32) Tag {
	if raw < 0 {
		return AllocatedTag(uint32(-int64(raw)))
	}
	return FreeTag(uint32(raw))
}

// Block describes one block of the arena. Offset is the offset of its header.
type Block struct {
	Offset uint32
	Size   uint32
	Free   bool
}

// payload returns the offset of the first payload byte.
func (b Block) payload() uint32 {
	return b.Offset + TagSize
}

// footer returns the offset of the footer tag.
func (b Block) footer() uint32 {
	return b.Offset + TagSize + b.Size
}

// end returns the offset right after the footer.
func (b Block) end() uint32 {
	return b.Offset + blockOverhead + b.Size
}

// readRaw and writeRaw are the only places the arena bytes are
// reinterpreted as tags.
func (a *Arena) readRaw(off uint32) (int32, bool) {
	if uint64(off)+TagSize > uint64(len(a.data)) {
		return 0, false
	}
	return int32(binary.LittleEndian.Uint32(a.data[off : off+TagSize])), true
}

func (a *Arena) writeRaw(off uint32, v int32) {
	if uint64(off)+TagSize > uint64(len(a.data)) {
		panic("allocator: tag write out of bounds")
	}
	binary.LittleEndian.PutUint32(a.data[off:off+TagSize], uint32(v))
}

func (a *Arena) readTag(off uint32) (Tag, bool) {
	raw, ok := a.readRaw(off)
	if !ok {
		return Tag{}, false
	}
	return decodeTag(raw), true
}

func (a *Arena) writeTag(off uint32, t Tag) {
	a.writeRaw(off, encodeTag(t))
}

// writeBlock writes the header at off and its mirrored footer.
func (a *Arena) writeBlock(off uint32, t Tag) Block {
	b := Block{Offset: off, Size: t.Size, Free: t.Free}
	a.writeTag(b.Offset, t)
	a.writeTag(b.footer(), t)
	return b
}

// blockAt decodes the block whose header is at off. The footer is not
// checked against the header.
func (a *Arena) blockAt(off uint32) (Block, bool) {
	t, ok := a.readTag(off)
	if !ok {
		return Block{}, false
	}
	if uint64(off)+blockOverhead+uint64(t.Size) > uint64(len(a.data)) {
		return Block{}, false
	}
	return Block{Offset: off, Size: t.Size, Free: t.Free}, true
}

// blockEndingAt decodes the block whose footer ends right before end.
func (a *Arena) blockEndingAt(end uint32) (Block, bool) {
	if end < blockOverhead {
		return Block{}, false
	}
	t, ok := a.readTag(end - TagSize)
	if !ok {
		return Block{}, false
	}
	if uint64(t.Size)+blockOverhead > uint64(end) {
		return Block{}, false
	}
	return Block{Offset: end - blockOverhead - t.Size, Size: t.Size, Free: t.Free}, true
}
