// File: transport/transport.go
//
// TLS byte-stream transport: connect, handshake, send/recv, kTLS
// negotiation, and NIC hardware-timestamp capture. Grounded on
// lowlevel/client/transport.go's net.Conn wrapping (Send/Recv/Close,
// Features() introspection) and lowlevel/client/facade.go's dial-then-
// handshake sequence, generalized from the teacher's buffer-pool-backed
// batch transport to the single-connection byte-stream contract spec.md
// §4.C specifies: open/handshake/send/recv_into/pending plus
// ktls_active/cipher_name/hw_ts_enabled introspection.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package transport

import (
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/momentics/lowlatency-wsclient/wserr"
)

// Mode is the active record-layer crypto mode once the handshake is done.
type Mode int

const (
	ModeUnknown Mode = iota
	ModeUserspace
	ModeKernelOffload
)

func (m Mode) String() string {
	switch m {
	case ModeUserspace:
		return "userspace"
	case ModeKernelOffload:
		return "kernel-offload"
	default:
		return "unknown"
	}
}

// HandshakeState mirrors spec.md §4.C's handshake() result.
type HandshakeState int

const (
	HandshakeInProgress HandshakeState = iota
	HandshakeDone
	HandshakeFailed
)

const connectTimeout = 5 * time.Second

// Transport is a single TLS connection: non-blocking stream socket plus
// either userspace crypto/tls or (attempted) kernel-offloaded TLS. One
// Transport belongs to exactly one Context and is never shared across
// goroutines, per spec.md §5's single-threaded-per-context model.
type Transport struct {
	cfg  Config
	host string

	useTLS  bool
	tcpConn *net.TCPConn // the dialed socket, for Fd()/kTLS probing/raw control
	rawConn net.Conn     // tcpConn, or a timestamp-capturing wrapper around it
	tlsConn *tls.Conn    // wraps rawConn once handshake starts

	handshakeStarted bool
	handshakeDone    bool

	mode          Mode
	cipherName    string
	hwTSRequested bool
	hwTSEnabled   bool
	lastHWTS      uint64
}

// hwTimestampSource is implemented by rawConn when it captures NIC
// receive timestamps as a side effect of Read (linux only; see
// timestamp_linux.go's timestampConn). On platforms without that
// capability rawConn is a bare *net.TCPConn, which does not satisfy this
// interface, so TakeHWTimestamp degrades to "unavailable".
type hwTimestampSource interface {
	take() (uint64, bool)
}

// Open resolves host:port (IPv4 in this profile, per spec.md §4.C),
// opens a stream socket, sets NODELAY/KEEPALIVE/buffer-size options,
// attempts to enable hardware receive timestamps when
// cfg.EnableHWTimestamps is set, and connects with a
// 5-second timeout. The returned Transport's socket is left blocking,
// ready for Handshake (kTLS activation requires a blocking handshake
// socket per spec.md §4.C).
func Open(cfg Config, host string, port int) (*Transport, error) {
	return open(cfg, host, port, true)
}

// OpenPlain is the ws:// (clear-text) counterpart of Open, for the
// grammar spec.md §6 also names ("wss://" | "ws://"). It performs the
// identical socket setup but Handshake is then a no-op: there is no TLS
// record layer to negotiate, mode is always userspace, and kTLS/NIC
// hardware-timestamp semantics that depend on a TLS cipher never apply.
// This profile's hot-path guarantees (single recv/send pass per Update,
// zero-copy parsing) are unaffected by the absence of encryption.
func OpenPlain(cfg Config, host string, port int) (*Transport, error) {
	return open(cfg, host, port, false)
}

func open(cfg Config, host string, port int, useTLS bool) (*Transport, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	d := net.Dialer{Timeout: connectTimeout}
	conn, err := d.Dial("tcp4", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: dialing %s: %w", addr, wserr.ErrConnectFailed)
	}

	tcp, ok := conn.(*net.TCPConn)
	if !ok {
		conn.Close()
		return nil, fmt.Errorf("transport: dialed connection is not TCP: %w", wserr.ErrConnectFailed)
	}
	if err := applySocketOptions(tcp); err != nil {
		conn.Close()
		return nil, fmt.Errorf("transport: applying socket options: %w", err)
	}

	t := &Transport{cfg: cfg, host: host, tcpConn: tcp, rawConn: tcp, useTLS: useTLS}
	if cfg.EnableHWTimestamps {
		if err := enableHWTimestamping(tcp); err == nil {
			t.hwTSRequested = true
			t.hwTSEnabled = true
			if wrapped, werr := newTimestampConn(tcp); werr == nil {
				t.rawConn = wrapped
			}
		}
	}
	if !useTLS {
		t.handshakeDone = true
		t.mode = ModeUserspace
		t.cipherName = "none"
	}
	return t, nil
}

// Handshake drives the TLS handshake to completion (crypto/tls performs
// its own internal retry loop on a blocking socket, so this call either
// fully completes or fails — there is no intermediate in_progress return
// for the userspace stdlib path, unlike the C original's non-blocking
// SSL_connect poll loop). After success it queries whether kernel offload
// could be activated and records the negotiated cipher and mode.
func (t *Transport) Handshake() (HandshakeState, error) {
	if t.handshakeDone {
		return HandshakeDone, nil
	}
	if !t.useTLS {
		// ws:// clear-text: no record layer to negotiate.
		t.handshakeDone = true
		t.mode = ModeUserspace
		t.cipherName = "none"
		return HandshakeDone, nil
	}
	t.handshakeStarted = true

	base := sharedTLSConfig(t.cfg.ForceTLS13)
	cfg := base.Clone()
	cfg.ServerName = t.host

	tlsConn := tls.Client(t.rawConn, cfg)
	if err := tlsConn.Handshake(); err != nil {
		return HandshakeFailed, fmt.Errorf("transport: TLS handshake: %w", wserr.ErrHandshakeFailed)
	}
	t.tlsConn = tlsConn
	t.handshakeDone = true

	state := tlsConn.ConnectionState()
	t.cipherName = tls.CipherSuiteName(state.CipherSuite)

	offloaded := !t.cfg.ForceTLS13 && isOffloadCapableCipher(t.cipherName) && attemptKTLSActivation(t.tcpConn, state)
	if offloaded {
		t.mode = ModeKernelOffload
	} else {
		t.mode = ModeUserspace
	}

	return HandshakeDone, nil
}

// Send writes bytes to the peer. A short write is returned verbatim, per
// spec.md §4.D's "short writes are returned honestly" failure semantics.
func (t *Transport) Send(data []byte) (int, error) {
	stream := t.stream()
	if stream == nil {
		return 0, fmt.Errorf("transport: send before handshake: %w", wserr.ErrInvalidArgument)
	}
	n, err := stream.Write(data)
	if err != nil {
		if isTimeout(err) {
			return n, wserr.ErrWouldBlock
		}
		return n, fmt.Errorf("transport: send: %w", wserr.ErrConnectFailed)
	}
	return n, nil
}

// RecvInto fills span with newly available decrypted bytes. The first
// successful call in an update pass is where the caller should stamp
// t_decrypt (spec.md §3); this layer itself does not own that timestamp,
// it only guarantees recv_into either returns >0 bytes, ErrWouldBlock, or
// a terminal error.
func (t *Transport) RecvInto(span []byte) (int, error) {
	stream := t.stream()
	if stream == nil {
		return 0, fmt.Errorf("transport: recv before handshake: %w", wserr.ErrInvalidArgument)
	}
	// A deadline already in the past fails the Read before it reaches the
	// socket, even with bytes waiting; a one-microsecond window lets
	// buffered bytes through and still returns at once when none are there.
	_ = t.rawConn.SetReadDeadline(time.Now().Add(time.Microsecond))
	n, err := stream.Read(span)
	if err != nil {
		if isTimeout(err) {
			return n, wserr.ErrWouldBlock
		}
		if errors.Is(err, io.EOF) {
			return n, wserr.ErrClosed
		}
		return n, fmt.Errorf("transport: recv: %w", wserr.ErrClosed)
	}
	return n, nil
}

// Pending reports how many additional bytes crypto/tls has already
// decrypted and buffered beyond what the last RecvInto call returned
// (e.g. multiple TLS records read from one kernel recv). Go's crypto/tls
// does not expose this count directly, so Pending always returns 0 rather
// than fabricating a number. Callers should simply call
// RecvInto again until it returns ErrWouldBlock, which is
// observationally equivalent to draining "pending" to zero.
func (t *Transport) Pending() int {
	return 0
}

// KtlsActive reports whether the kernel is performing the TLS record
// layer for this connection.
func (t *Transport) KtlsActive() bool { return t.mode == ModeKernelOffload }

// Mode returns the active record-layer crypto mode, ModeUnknown before
// the handshake completes.
func (t *Transport) Mode() Mode { return t.mode }

// CipherName returns the negotiated cipher suite name, empty before the
// handshake completes.
func (t *Transport) CipherName() string { return t.cipherName }

// HwTsEnabled reports whether hardware receive timestamping was
// successfully requested at socket-open time.
func (t *Transport) HwTsEnabled() bool { return t.hwTSEnabled }

// LastHWTimestamp returns the most recent NIC hardware receive timestamp
// in nanoseconds captured via TakeHWTimestamp, or 0 if none is available.
func (t *Transport) LastHWTimestamp() uint64 { return t.lastHWTS }

// TakeHWTimestamp reports the most recent NIC hardware (or software
// fallback) timestamp captured alongside an application-data recvmsg
// call, per spec.md §4.C's "Timestamp protocol." It is a no-op returning
// false when hardware timestamping was not enabled at Open, or on a
// platform where the capture path (linux only) is unavailable.
func (t *Transport) TakeHWTimestamp() (uint64, bool) {
	if !t.hwTSEnabled {
		return 0, false
	}
	src, ok := t.rawConn.(hwTimestampSource)
	if !ok {
		return 0, false
	}
	ts, ok := src.take()
	if ok {
		t.lastHWTS = ts
	}
	return ts, ok
}

// Fd returns the underlying socket's file descriptor, for registration
// with a poller.Notifier.
func (t *Transport) Fd() (uintptr, error) {
	if t.tcpConn == nil {
		return 0, fmt.Errorf("transport: not a TCP connection: %w", wserr.ErrInvalidArgument)
	}
	return socketFd(t.tcpConn)
}

// Close releases the socket. Safe to call more than once.
func (t *Transport) Close() error {
	if t.rawConn == nil {
		return nil
	}
	c := t.rawConn
	t.rawConn = nil
	t.tcpConn = nil
	t.tlsConn = nil
	return c.Close()
}

// stream returns the active byte-stream endpoint: the TLS connection once
// the handshake has wrapped rawConn, or rawConn itself before that point
// (used only pre-handshake in the TLS path) and for the lifetime of a
// plain ws:// connection, which never wraps rawConn at all.
func (t *Transport) stream() net.Conn {
	if t.tlsConn != nil {
		return t.tlsConn
	}
	if !t.useTLS {
		return t.rawConn
	}
	return nil
}

func isTimeout(err error) bool {
	type timeouter interface{ Timeout() bool }
	te, ok := err.(timeouter)
	return ok && te.Timeout()
}
