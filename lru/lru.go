package lru

import (
	"encoding/binary"

	"github.com/QuangTung97/tagalloc/allocator"
)

const nullPtr = allocator.NullPtr

// NodeSize is the number of payload bytes a list node needs.
const NodeSize = 16

// LRU is a doubly linked list whose nodes are blocks of an arena.
// The most recently used entry is at the front.
type LRU struct {
	arena *allocator.Arena
	units int
	limit uint32

	next allocator.Ptr
	prev allocator.Ptr
	size uint32
}

// listHead is the decoded form of a node:
// next (4 bytes), prev (4 bytes), hash (8 bytes).
type listHead struct {
	next allocator.Ptr
	prev allocator.Ptr
	hash uint64
}

// New ...
func New(arena *allocator.Arena, limit uint32) *LRU {
	unit := int(arena.UnitSize())
	return &LRU{
		arena: arena,
		units: (NodeSize + unit - 1) / unit,
		limit: limit,

		next: nullPtr,
		prev: nullPtr,
		size: 0,
	}
}

func (l *LRU) payload(addr allocator.Ptr) []byte {
	data, err := l.arena.Bytes(addr)
	if err != nil {
		panic(err)
	}
	return data
}

func (l *LRU) load(addr allocator.Ptr) listHead {
	data := l.payload(addr)
	return listHead{
		next: allocator.Ptr(binary.LittleEndian.Uint32(data[0:4])),
		prev: allocator.Ptr(binary.LittleEndian.Uint32(data[4:8])),
		hash: binary.LittleEndian.Uint64(data[8:16]),
	}
}

func (l *LRU) store(addr allocator.Ptr, head listHead) {
	data := l.payload(addr)
	binary.LittleEndian.PutUint32(data[0:4], uint32(head.next))
	binary.LittleEndian.PutUint32(data[4:8], uint32(head.prev))
	binary.LittleEndian.PutUint64(data[8:16], head.hash)
}

func (l *LRU) setNext(addr allocator.Ptr, next allocator.Ptr) {
	head := l.load(addr)
	head.next = next
	l.store(addr, head)
}

func (l *LRU) setPrev(addr allocator.Ptr, prev allocator.Ptr) {
	head := l.load(addr)
	head.prev = prev
	l.store(addr, head)
}

// GetLRUList returns the hashes from most to least recently used.
func (l *LRU) GetLRUList() []uint64 {
	var result []uint64
	n := l.next
	for n != nullPtr {
		head := l.load(n)
		result = append(result, head.hash)
		n = head.next
	}
	return result
}

// Put allocates a node for hash at the front of the list. It fails when the
// limit is reached or the arena is out of memory.
func (l *LRU) Put(hash uint64) (allocator.Ptr, bool) {
	if l.size >= l.limit {
		return nullPtr, false
	}

	addr, err := l.arena.Allocate(l.units)
	if err != nil {
		return nullPtr, false
	}

	l.size++
	l.pushFront(addr, hash)
	return addr, true
}

func (l *LRU) pushFront(addr allocator.Ptr, hash uint64) {
	if l.next != nullPtr {
		l.setPrev(l.next, addr)
	} else {
		l.prev = addr
	}

	l.store(addr, listHead{next: l.next, prev: nullPtr, hash: hash})
	l.next = addr
}

func (l *LRU) unlink(addr allocator.Ptr) listHead {
	head := l.load(addr)

	if head.next != nullPtr {
		l.setPrev(head.next, head.prev)
	} else {
		l.prev = head.prev
	}

	if head.prev != nullPtr {
		l.setNext(head.prev, head.next)
	} else {
		l.next = head.next
	}
	return head
}

// Last returns the least recently used entry.
func (l *LRU) Last() (allocator.Ptr, uint64) {
	if l.prev == nullPtr {
		return nullPtr, 0
	}
	last := l.load(l.prev)
	return l.prev, last.hash
}

// Delete unlinks the node at addr and releases its block.
func (l *LRU) Delete(addr allocator.Ptr) error {
	if _, err := l.arena.PayloadSize(addr); err != nil {
		return err
	}
	l.unlink(addr)
	l.size--
	return l.arena.Deallocate(addr)
}

// Touch moves the node at addr to the front.
func (l *LRU) Touch(addr allocator.Ptr) {
	head := l.unlink(addr)
	l.pushFront(addr, head.hash)
}

// Size ...
func (l *LRU) Size() uint32 {
	return l.size
}

// Limit ...
func (l *LRU) Limit() uint32 {
	return l.limit
}

// UpdateLimit ...
func (l *LRU) UpdateLimit(newLimit uint32) {
	l.limit = newLimit
}
