// Package transport implements the TLS byte-stream layer: connect,
// handshake, send/recv, hardware receive timestamps, and the kTLS
// kernel-offload negotiation path. Grounded on
// lowlevel/client/transport.go's net.Conn-wrapping shape
// (Send/Recv/Close/feature-flag accessors) and lowlevel/client/facade.go's
// dial-then-handshake sequencing from the teacher module, with cipher
// preference vocabulary grounded on nabbar-golib/certificates/cipher
// (AES-GCM first, ChaCha20-Poly1305 second) and kTLS/NIC-timestamp socket
// handling grounded on runZeroInc-sockstats's direct golang.org/x/sys/unix
// socket-option idiom.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package transport

import (
	"crypto/tls"
	"os"
	"strings"
)

// Config is an immutable, one-shot snapshot of the environment variables
// spec.md §6 recognizes, read once at context init — the same
// snapshot-on-read shape control/config.go uses, narrowed from the
// teacher's mutable hot-reloadable store (a server concern, dropped; see
// DESIGN.md) to a value that never changes mid-connection, matching the
// single-threaded-per-context model.
type Config struct {
	ForceTLS13        bool
	TLS13CipherSuites string
	CipherList        string
	EnableHWTimestamps bool
	DebugKTLS         bool
}

func envIsOne(name string) bool {
	return os.Getenv(name) == "1"
}

// LoadConfig reads the recognized environment variables once.
func LoadConfig() Config {
	return Config{
		ForceTLS13:         envIsOne("WS_FORCE_TLS13"),
		TLS13CipherSuites:  os.Getenv("WS_TLS13_CIPHERSUITES"),
		CipherList:         os.Getenv("WS_CIPHER_LIST"),
		EnableHWTimestamps: envIsOne("WS_ENABLE_HW_TIMESTAMPS"),
		DebugKTLS:          envIsOne("WS_DEBUG_KTLS"),
	}
}

// preferredCipherSuites returns the AEAD suite preference order spec.md
// §4.C names explicitly: AES-GCM first (hardware AES-NI / ARMv8 crypto
// acceleration), ChaCha20-Poly1305 second. TLS 1.3 suite selection is not
// independently configurable via crypto/tls.Config.CipherSuites (the
// stdlib negotiates 1.3 suites internally). WS_TLS13_CIPHERSUITES and
// WS_CIPHER_LIST are read into Config but not applied: the handshake
// always uses the preference order below, whatever those variables hold.
func preferredCipherSuites() []uint16 {
	return []uint16{
		tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
		tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
		tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
		tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
		tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
		tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
	}
}

// isOffloadCapableCipher reports whether name is one of the two AEAD
// families Linux kTLS can offload (AES-GCM, ChaCha20-Poly1305), per
// spec.md §4.C's "Kernel-offload protocol."
func isOffloadCapableCipher(name string) bool {
	return strings.Contains(name, "AES_128_GCM") ||
		strings.Contains(name, "AES_256_GCM") ||
		strings.Contains(name, "CHACHA20_POLY1305")
}
