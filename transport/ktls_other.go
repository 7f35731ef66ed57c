//go:build !linux

// File: transport/ktls_other.go
//
// kTLS is a Linux-specific kernel facility (SOL_TLS/TCP_ULP); no
// equivalent exists on other platforms, so offload is never attempted
// here and `mode` always resolves to userspace.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package transport

import (
	"crypto/tls"
	"net"
)

func attemptKTLSActivation(_ *net.TCPConn, _ tls.ConnectionState) bool {
	return false
}
