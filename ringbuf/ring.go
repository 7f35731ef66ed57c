// Package ringbuf implements the single-producer/single-consumer byte ring
// buffer at the base of the receive and send pipelines: a power-of-two
// backing region, free-running 64-bit indices masked only at address
// computation, and — where the OS permits — a virtual-memory-mirrored
// mapping so that any readable or writable span is always physically
// contiguous.
//
// The index/masking discipline is grounded on pool/ring.go's RingBuffer[T]
// from the teacher module, generalized from a generic MPMC item ring to an
// SPSC byte ring with explicit span accessors (writable/readable/peek) in
// place of Enqueue/Dequeue, since the frame engine needs to inspect a
// header before committing to advancing the read index.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package ringbuf

import (
	"fmt"
	"sync/atomic"

	"github.com/momentics/lowlatency-wsclient/wserr"
)

// Ring is an SPSC byte queue of power-of-two capacity N. Producer and
// consumer are assumed to run on the same goroutine in this profile, but
// the release/acquire discipline on the indices is preserved so the same
// layout is safe under a true single-producer/single-consumer threaded
// split.
type Ring struct {
	// write/read live on separate cache lines to avoid false sharing
	// between producer and consumer, the same padding idiom
	// pool/ring.go uses around head/tail.
	write uint64
	_     [56]byte
	read  uint64
	_     [56]byte

	mask       uint64
	size       uint64
	buf        []byte // length 2*size when mirrored, size otherwise
	isMirrored bool
	unmap      func() // releases OS resources backing buf; nil for plain alloc
}

// New allocates a ring of the given power-of-two size. It first attempts a
// mirrored virtual-memory mapping (see ring_mirrored_linux.go); on any
// failure — including on platforms without an implementation — it falls
// back to a plain allocation with explicit wrap handling.
func New(size uint64) (*Ring, error) {
	if size == 0 || size&(size-1) != 0 {
		return nil, fmt.Errorf("ringbuf: size %d is not a power of two: %w", size, wserr.ErrInvalidArgument)
	}

	r := &Ring{mask: size - 1, size: size}

	if buf, unmap, err := newMirrored(size); err == nil {
		r.buf = buf
		r.unmap = unmap
		r.isMirrored = true
		return r, nil
	}

	r.buf = make([]byte, size)
	r.isMirrored = false
	return r, nil
}

// IsMirrored reports whether this ring uses the contiguous virtual-memory
// mirror. The hot path can specialize on this single branch-predictable
// flag rather than computing wrap lengths unconditionally.
func (r *Ring) IsMirrored() bool { return r.isMirrored }

// Cap returns the logical capacity N.
func (r *Ring) Cap() int { return int(r.size) }

// occupancy returns w-r as a plain byte count. Indices are free-running
// 64-bit counters (never masked except for address computation), so the
// difference is the exact number of bytes in flight regardless of how
// many times either index has wrapped mod 2^64.
func (r *Ring) occupancy() uint64 {
	w := atomic.LoadUint64(&r.write)
	rd := atomic.LoadUint64(&r.read)
	return w - rd
}

// AvailableRead returns the number of bytes the consumer may read.
func (r *Ring) AvailableRead() int {
	if r == nil {
		return 0
	}
	return int(r.occupancy())
}

// AvailableWrite returns the number of bytes the producer may write. The
// non-mirrored form reserves one slot so that a full buffer's masked
// indices never collide with an empty buffer's; the mirrored form needs
// no such reservation since the full capacity is always addressable as a
// single contiguous span.
func (r *Ring) AvailableWrite() int {
	if r == nil {
		return 0
	}
	used := r.occupancy()
	if r.isMirrored {
		return int(r.size - used)
	}
	return int(r.size - used - 1)
}

// WritableSpan returns the largest contiguous region currently safe to
// write into. In mirrored mode its length always equals AvailableWrite();
// in non-mirrored mode it is clamped to the distance remaining to the end
// of the physical backing region, and a second call after CommitWrite may
// be required to reach the rest.
func (r *Ring) WritableSpan() []byte {
	if r == nil {
		return nil
	}
	n := r.AvailableWrite()
	if n <= 0 {
		return nil
	}
	w := atomic.LoadUint64(&r.write)
	off := w & r.mask
	if r.isMirrored {
		return r.buf[off : off+uint64(n)]
	}
	untilEnd := r.size - off
	if uint64(n) > untilEnd {
		n = int(untilEnd)
	}
	return r.buf[off : off+uint64(n)]
}

// CommitWrite publishes n bytes previously written into the span returned
// by WritableSpan. n is clamped to AvailableWrite() (in non-mirrored mode
// that can exceed the length WritableSpan returned); the write
// index is published with a release add so that payload writes happen
// before the index update is observed by the consumer.
func (r *Ring) CommitWrite(n int) {
	if r == nil || n <= 0 {
		return
	}
	if max := r.AvailableWrite(); n > max {
		n = max
	}
	atomic.AddUint64(&r.write, uint64(n))
}

// ReadableSpan returns the largest contiguous region available to read —
// the non-mutating "peek" the frame parser uses to inspect a header
// before deciding whether to advance. In mirrored mode it is always the
// full available-read byte count; in non-mirrored mode it may be a prefix
// ending at the physical wrap point.
func (r *Ring) ReadableSpan() []byte {
	if r == nil {
		return nil
	}
	n := r.AvailableRead()
	if n <= 0 {
		return nil
	}
	rd := atomic.LoadUint64(&r.read)
	off := rd & r.mask
	if r.isMirrored {
		prefetch(r.buf, int(off), n)
		return r.buf[off : off+uint64(n)]
	}
	untilEnd := r.size - off
	if uint64(n) > untilEnd {
		n = int(untilEnd)
	}
	prefetch(r.buf, int(off), n)
	return r.buf[off : off+uint64(n)]
}

// Peek is an alias for ReadableSpan kept for call sites that want to make
// the non-mutating intent explicit; it never modifies buffer state.
func (r *Ring) Peek() []byte { return r.ReadableSpan() }

// AdvanceRead releases n bytes back to the producer. n is clamped to
// AvailableRead() (in non-mirrored mode that can exceed the length
// ReadableSpan returned). The read index is published with a
// release add; the producer observing AvailableWrite acquires it,
// establishing the happens-before relationship required for safe reuse of
// the freed region.
func (r *Ring) AdvanceRead(n int) {
	if r == nil || n <= 0 {
		return
	}
	if max := r.AvailableRead(); n > max {
		n = max
	}
	atomic.AddUint64(&r.read, uint64(n))
}

// Close releases any OS resources (the mirrored mapping's 2N virtual
// reservation) backing this ring. It is safe to call on a non-mirrored
// ring (a no-op) and is idempotent.
func (r *Ring) Close() error {
	if r == nil || r.unmap == nil {
		return nil
	}
	u := r.unmap
	r.unmap = nil
	u()
	return nil
}

// prefetch issues an advisory touch of the next one or two cache lines
// ahead of a span so that the first bytes the frame parser inspects (the
// header) are already resident. Go has no portable prefetch intrinsic, so
// this is expressed as a cheap, optimizer-proof read rather than a real
// prefetch instruction — advisory in the same spirit as the teacher's
// cache-line padding, not a correctness requirement.
func prefetch(buf []byte, off, n int) {
	const cacheLine = 64
	for step := cacheLine; step < n && step <= 2*cacheLine; step += cacheLine {
		_ = buf[off+step]
	}
}
