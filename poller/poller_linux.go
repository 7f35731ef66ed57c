//go:build linux

// File: poller/poller_linux.go
//
// Linux epoll backend. Grounded directly on reactor/epoll_reactor.go's
// EpollCreate1/EpollCtl/EpollWait calling convention, with EPOLLET added
// to every registration since spec.md §4.B requires edge-triggered
// delivery (the transport fully drains each wake; level-triggered would
// cause redundant wakes against an already-fully-read ring buffer span).
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package poller

import (
	"fmt"

	"golang.org/x/sys/unix"
)

type epollNotifier struct {
	epfd int
}

func newPlatformNotifier() (Notifier, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("poller: epoll_create1: %w", err)
	}
	return &epollNotifier{epfd: fd}, nil
}

func toEpollMask(ev Events) uint32 {
	var m uint32 = unix.EPOLLET
	if ev&EventRead != 0 {
		m |= unix.EPOLLIN
	}
	if ev&EventWrite != 0 {
		m |= unix.EPOLLOUT
	}
	return m
}

func (p *epollNotifier) Add(fd uintptr, events Events) error {
	ev := unix.EpollEvent{Events: toEpollMask(events), Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, int(fd), &ev); err != nil {
		return fmt.Errorf("poller: epoll_ctl add: %w", err)
	}
	return nil
}

func (p *epollNotifier) Modify(fd uintptr, events Events) error {
	ev := unix.EpollEvent{Events: toEpollMask(events), Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, int(fd), &ev); err != nil {
		return fmt.Errorf("poller: epoll_ctl mod: %w", err)
	}
	return nil
}

func (p *epollNotifier) Delete(fd uintptr) error {
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, int(fd), nil); err != nil {
		return fmt.Errorf("poller: epoll_ctl del: %w", err)
	}
	return nil
}

func (p *epollNotifier) Wait() error {
	var events [1]unix.EpollEvent
	timeoutMs := int(WaitTimeout.Milliseconds())
	for {
		_, err := unix.EpollWait(p.epfd, events[:], timeoutMs)
		if err == nil {
			return nil
		}
		if err == unix.EINTR {
			continue
		}
		return fmt.Errorf("poller: epoll_wait: %w", err)
	}
}

func (p *epollNotifier) Close() error {
	return unix.Close(p.epfd)
}
