package allocator

// Observer receives a callback after every Allocate and Deallocate.
// size is the payload size in bytes of the block involved (the requested size
// on failure), err is nil on success.
type Observer interface {
	OnAllocate(size uint32, err error)
	OnDeallocate(size uint32, err error)
}

// NoopObserver ...
type NoopObserver struct{}

// OnAllocate ...
func (NoopObserver) OnAllocate(uint32, error) {}

// OnDeallocate ...
func (NoopObserver) OnDeallocate(uint32, error) {}
