// File: transport/tlsinit.go
//
// Process-wide, one-shot TLS initialization: a single immutable
// *tls.Config built once and shared by every Transport, the Go analogue
// of the C original's lazily-built global SSL_CTX (ssl_init_once in
// ssl.c) — certificate verification disabled, session caching off, so
// handshake timing stays deterministic, per spec.md §5/§9.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package transport

import (
	"crypto/tls"
	"sync"
)

var (
	globalTLSOnce sync.Once
	globalTLS12   *tls.Config
	globalTLS13   *tls.Config
)

// sharedTLSConfig returns the process-wide base TLS configuration for the
// requested minimum version, built once. Certificate verification is
// disabled for latency per spec.md §1's explicit, intentional risk
// ("production deployments must re-enable this") and §9's design note.
// Session caching is off: SessionTicketsDisabled is set and no
// ClientSessionCache is configured, so every dial performs a full
// handshake without resumption.
func sharedTLSConfig(forceTLS13 bool) *tls.Config {
	globalTLSOnce.Do(func() {
		globalTLS12 = &tls.Config{
			InsecureSkipVerify: true, //nolint:gosec // spec.md §1: deliberate, operator-revisable latency tradeoff
			MinVersion:         tls.VersionTLS12,
			MaxVersion:         tls.VersionTLS12,
			CipherSuites:       preferredCipherSuites(),
			SessionTicketsDisabled: true,
		}
		globalTLS13 = &tls.Config{
			InsecureSkipVerify:     true, //nolint:gosec // spec.md §1
			MinVersion:             tls.VersionTLS13,
			SessionTicketsDisabled: true,
		}
	})
	if forceTLS13 {
		return globalTLS13.Clone()
	}
	return globalTLS12.Clone()
}
