//go:build linux

// File: ringbuf/ring_mirrored_linux.go
//
// Virtual-memory-mirrored ring backing on Linux: reserve 2N of anonymous
// address space, back it with a single memfd of size N, then map that
// memfd twice — once at the reservation's base and once at base+N — so
// that any span starting in the first half is contiguous for up to N
// bytes without wrap logic, matching spec.md's 9 "Virtual-memory
// mirroring" design note. Grounded on the golang.org/x/sys/unix calling
// convention the teacher uses for direct syscalls in
// reactor/epoll_reactor.go and affinity/affinity_linux.go (cgo-adjacent,
// build-tag gated low-level code), here applied to mmap/memfd instead of
// epoll/pthread.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package ringbuf

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// newMirrored attempts the double mapping for a region of size n bytes.
// On any failure it cleans up what it reserved and returns an error; the
// caller (New) falls back to a plain allocation.
func newMirrored(n uint64) (buf []byte, unmap func(), err error) {
	if n > uint64(^uintptr(0)>>1) {
		return nil, nil, fmt.Errorf("ringbuf: size too large for mirrored mapping")
	}
	size := int(n)

	// 1. Reserve 2N of anonymous virtual address space, PROT_NONE so the
	// kernel never backs it with pages of its own before we remap it.
	reservation, err := unix.Mmap(-1, 0, 2*size, unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, nil, fmt.Errorf("ringbuf: reserve 2N address space: %w", err)
	}
	base := uintptr(unsafe.Pointer(&reservation[0]))

	cleanupReservation := func() { _ = unix.Munmap(reservation) }

	// 2. Obtain an anonymous shared backing of size N via memfd_create,
	// so the two mappings below alias the very same physical pages.
	fd, err := unix.MemfdCreate("wsclient-ring", 0)
	if err != nil {
		cleanupReservation()
		return nil, nil, fmt.Errorf("ringbuf: memfd_create: %w", err)
	}
	defer unix.Close(fd)

	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		cleanupReservation()
		return nil, nil, fmt.Errorf("ringbuf: ftruncate memfd: %w", err)
	}

	// 3. Remap the first half of the reservation onto the backing.
	_, err = mmapFixed(base, uintptr(size), fd, 0)
	if err != nil {
		cleanupReservation()
		return nil, nil, fmt.Errorf("ringbuf: map first half: %w", err)
	}

	// 4. Remap the second half onto the same backing (offset 0 again —
	// the mirror, not a continuation).
	_, err = mmapFixed(base+uintptr(size), uintptr(size), fd, 0)
	if err != nil {
		cleanupReservation()
		return nil, nil, fmt.Errorf("ringbuf: map second half: %w", err)
	}

	view := unsafe.Slice((*byte)(unsafe.Pointer(base)), 2*size)

	unmapFn := func() {
		_ = unix.Munmap(view[:2*size])
	}
	return view, unmapFn, nil
}

// mmapFixed maps fd at the exact virtual address addr, overwriting the
// PROT_NONE reservation placed there by newMirrored's first step.
// unix.Mmap does not accept a caller-chosen fixed address, so this drops
// to the raw syscall the way the teacher's reactor/epoll_reactor.go and
// internal/transport files call syscall/unix functions directly rather
// than through a higher-level wrapper.
func mmapFixed(addr, length uintptr, fd int, offset int64) (uintptr, error) {
	ret, _, errno := unix.Syscall6(
		unix.SYS_MMAP,
		addr,
		length,
		uintptr(unix.PROT_READ|unix.PROT_WRITE),
		uintptr(unix.MAP_SHARED|unix.MAP_FIXED),
		uintptr(fd),
		uintptr(offset),
	)
	if errno != 0 {
		return 0, errno
	}
	return ret, nil
}
