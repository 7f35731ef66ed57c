// Package poller is a thin, uniform readiness-notification abstraction
// over the two prevailing edge-triggered poll primitives (epoll on Linux,
// kqueue on the BSDs/Darwin). It exposes exactly add/modify/delete/wait —
// deliberately nothing richer, since a context in this profile ever
// watches a single file descriptor and the caller always responds to a
// wake by draining fully.
//
// The add/modify/delete/wait shape is grounded on the teacher module's
// reactor/epoll_reactor.go (EpollCreate1/EpollCtl/EpollWait), narrowed
// from that reactor's N-connection callback registry down to the
// single-fd contract spec.md §4.B specifies: Wait never reports which fd
// fired because there is only ever one.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package poller

import "time"

// Events is a bitset of interests passed to Add/Modify.
type Events uint32

const (
	EventRead Events = 1 << iota
	EventWrite
)

// WaitTimeout is the fixed bound spec.md §4.B mandates: short enough that
// a local close intent propagates without a separate wake-fd, long enough
// that the loop does not busy-spin between exchanges.
const WaitTimeout = 100 * time.Millisecond

// Notifier is the uniform readiness-notification contract. All methods
// operate on a single underlying poll set; Add/Modify/Delete may be
// called multiple times across the notifier's lifetime as the context's
// write interest is armed and disarmed, but only one fd is ever
// registered at a time in this profile.
type Notifier interface {
	// Add registers fd for the given edge-triggered interests.
	Add(fd uintptr, events Events) error
	// Modify changes the interests already registered for fd.
	Modify(fd uintptr, events Events) error
	// Delete removes fd from the poll set.
	Delete(fd uintptr) error
	// Wait blocks up to WaitTimeout and returns. It never reports which
	// fd fired — the caller always re-invokes the context's Update and
	// lets the non-blocking drain loops discover what is ready.
	Wait() error
	// Close releases the underlying poll set.
	Close() error
}

// New constructs a Notifier using the best available edge-triggered
// primitive for the current platform.
func New() (Notifier, error) {
	return newPlatformNotifier()
}
