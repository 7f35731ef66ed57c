//go:build darwin || freebsd || netbsd || openbsd || dragonfly

// File: poller/poller_kqueue.go
//
// BSD/Darwin kqueue backend — the second of spec.md §4.B's "two
// prevailing edge-triggered poll primitives." EV_CLEAR is the
// kqueue analogue of epoll's EPOLLET: the event is reported once per
// transition to ready, requiring a full drain. Structured the same way
// as poller_linux.go so both backends present an identical shape; ported
// from the epoll file's structure rather than from any kqueue code in
// the teacher module, which has none.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package poller

import (
	"fmt"

	"golang.org/x/sys/unix"
)

type kqueueNotifier struct {
	kq int
}

func newPlatformNotifier() (Notifier, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, fmt.Errorf("poller: kqueue: %w", err)
	}
	return &kqueueNotifier{kq: kq}, nil
}

func (p *kqueueNotifier) changeFor(fd uintptr, events Events, flags uint16) []unix.Kevent_t {
	var changes []unix.Kevent_t
	if events&EventRead != 0 {
		changes = append(changes, unix.Kevent_t{
			Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: flags | unix.EV_CLEAR,
		})
	}
	if events&EventWrite != 0 {
		changes = append(changes, unix.Kevent_t{
			Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: flags | unix.EV_CLEAR,
		})
	}
	return changes
}

func (p *kqueueNotifier) Add(fd uintptr, events Events) error {
	changes := p.changeFor(fd, events, unix.EV_ADD|unix.EV_ENABLE)
	if len(changes) == 0 {
		return nil
	}
	_, err := unix.Kevent(p.kq, changes, nil, nil)
	if err != nil {
		return fmt.Errorf("poller: kevent add: %w", err)
	}
	return nil
}

func (p *kqueueNotifier) Modify(fd uintptr, events Events) error {
	// kqueue has no direct "modify"; disable both filters, then re-add
	// the requested subset, matching the add/mod/del contract's
	// semantics (the desired interest set replaces the previous one).
	_ = p.Delete(fd)
	return p.Add(fd, events)
}

func (p *kqueueNotifier) Delete(fd uintptr) error {
	changes := []unix.Kevent_t{
		{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_DELETE},
		{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: unix.EV_DELETE},
	}
	// Errors here are routinely ENOENT when only one filter was
	// registered; that is not a failure worth surfacing.
	_, _ = unix.Kevent(p.kq, changes, nil, nil)
	return nil
}

func (p *kqueueNotifier) Wait() error {
	ts := unix.NsecToTimespec(WaitTimeout.Nanoseconds())
	var events [1]unix.Kevent_t
	for {
		_, err := unix.Kevent(p.kq, nil, events[:], &ts)
		if err == nil {
			return nil
		}
		if err == unix.EINTR {
			continue
		}
		return fmt.Errorf("poller: kevent wait: %w", err)
	}
}

func (p *kqueueNotifier) Close() error {
	return unix.Close(p.kq)
}
