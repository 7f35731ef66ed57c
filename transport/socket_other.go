//go:build !linux

// File: transport/socket_other.go
//
// Non-Linux fallback: portable NODELAY/KEEPALIVE only, no
// SO_TIMESTAMPING (a Linux-only facility). Per spec.md §9's "degrade
// gracefully" guidance for platform-specific features.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package transport

import (
	"net"

	"github.com/momentics/lowlatency-wsclient/wserr"
)

func applySocketOptions(conn *net.TCPConn) error {
	return applyPortableSocketOptions(conn)
}

func enableHWTimestamping(conn *net.TCPConn) error {
	return wserr.ErrNotSupported
}
