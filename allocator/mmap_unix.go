//go:build unix

package allocator

import "golang.org/x/sys/unix"

func allocateData(size int, offHeap bool) ([]byte, func() error, error) {
	if !offHeap {
		return make([]byte, size), nil, nil
	}
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil, err
	}
	return data, func() error { return unix.Munmap(data) }, nil
}
