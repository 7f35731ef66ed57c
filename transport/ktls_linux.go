//go:build linux

// File: transport/ktls_linux.go
//
// Kernel-offload (kTLS) activation attempt. Grounded on the C original's
// bio_timestamp.c (bio_ts_check_ktls): push the "tls" ULP onto the TCP
// socket via setsockopt(IPPROTO_TCP, TCP_ULP, "tls"), then query
// SOL_TLS/TLS_TX and SOL_TLS/TLS_RX to confirm the kernel accepted it.
//
// That query only confirms the kernel *would* accept a kTLS ULP; actual
// record-layer offload additionally requires handing the kernel the
// negotiated traffic secrets via setsockopt(SOL_TLS, TLS_TX/TLS_RX, ...).
// crypto/tls does not export TLS 1.2/1.3 record keys through any public
// API (no equivalent of OpenSSL's SSL_get_app_data/EVP-key-export used by
// the C original's ssl_backend.h), so this implementation cannot install
// real kernel crypto state. attemptKTLSActivation is therefore honest
// about that limit: it performs the ULP handshake-probe plumbing spec.md
// §4.C describes, but always reports false, leaving `mode` at
// `userspace` — the graceful-degradation path spec.md §9 explicitly
// allows ("an implementer whose platform lacks [a step] should degrade
// gracefully"). See DESIGN.md's Open Questions section.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package transport

import (
	"crypto/tls"
	"net"

	"golang.org/x/sys/unix"

	"github.com/momentics/lowlatency-wsclient/internal/diag"
)

const tlsULPName = "tls"

// attemptKTLSActivation probes whether the kernel would accept the "tls"
// upper-layer protocol on tcp's socket. It never installs real crypto
// state (see file comment) and so always returns false; the probe is
// still performed and its failure logged via internal/diag so operators
// can see whether their kernel build supports kTLS at all.
func attemptKTLSActivation(tcp *net.TCPConn, _ tls.ConnectionState) bool {
	if tcp == nil {
		return false
	}
	raw, err := tcp.SyscallConn()
	if err != nil {
		return false
	}

	var ulpErr error
	ctrlErr := raw.Control(func(fd uintptr) {
		ulpErr = unix.SetsockoptString(int(fd), unix.IPPROTO_TCP, unix.TCP_ULP, tlsULPName)
	})
	if ctrlErr != nil || ulpErr != nil {
		diag.New("ktls", "WS_DEBUG_KTLS").Debug("kTLS ULP probe failed", "control_error", ctrlErr, "ulp_error", ulpErr)
		return false
	}

	// The ULP accepted; a real activation would now setsockopt(SOL_TLS,
	// TLS_TX/TLS_RX, tls12_crypto_info_aes_gcm_128{...}) with the
	// exporter-derived traffic keys. No such keys are obtainable from
	// crypto/tls, so offload is not completed.
	return false
}
