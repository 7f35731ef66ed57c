//go:build !linux

// File: ringbuf/ring_mirrored_other.go
//
// Platforms without the memfd_create + fixed double-mmap trick degrade to
// the plain, non-mirrored allocation per spec.md §4.A and §9: "An
// implementer whose platform lacks any of these should degrade gracefully
// to a single mapping with explicit wrap handling."
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package ringbuf

import "github.com/momentics/lowlatency-wsclient/wserr"

func newMirrored(n uint64) (buf []byte, unmap func(), err error) {
	return nil, nil, wserr.ErrNotSupported
}
