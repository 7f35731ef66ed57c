// File: transport/socket_common.go
//
// Cross-platform socket setup shared by every target: TCP_NODELAY and
// SO_KEEPALIVE via the portable net.TCPConn API, and raw fd extraction
// for poller registration. Platform-specific tuning (receive/send buffer
// sizes, hardware timestamping) lives in socket_linux.go /
// socket_other.go.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package transport

import (
	"net"
	"time"
)

func applyPortableSocketOptions(conn *net.TCPConn) error {
	if err := conn.SetNoDelay(true); err != nil {
		return err
	}
	if err := conn.SetKeepAlive(true); err != nil {
		return err
	}
	return conn.SetKeepAlivePeriod(30 * time.Second)
}

func socketFd(conn *net.TCPConn) (uintptr, error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return 0, err
	}
	var fd uintptr
	ctrlErr := raw.Control(func(f uintptr) { fd = f })
	if ctrlErr != nil {
		return 0, ctrlErr
	}
	return fd, nil
}
