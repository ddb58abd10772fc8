//go:build unix

package slab

import "golang.org/x/sys/unix"

// allocRaw returns an anonymous, zero-filled mapping of size bytes:
// a stable-address, off-heap buffer backing the arena's fixed-layout
// slot records, invisible to the garbage collector.
func allocRaw(size int) ([]byte, error) {
	if size == 0 {
		size = 1
	}
	return unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
}

// freeRaw releases a mapping obtained from allocRaw.
func freeRaw(buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	return unix.Munmap(buf)
}
