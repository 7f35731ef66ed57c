//go:build !linux

// File: transport/timestamp_other.go
//
// SO_TIMESTAMPING and its recvmsg/cmsg-based capture are Linux-only
// facilities; no other target platform is supported here, so Open never
// wraps the connection and TakeHWTimestamp always reports unavailable.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package transport

import "net"

func newTimestampConn(tcp *net.TCPConn) (net.Conn, error) {
	return tcp, nil
}
