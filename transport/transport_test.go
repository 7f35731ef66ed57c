// Copyright momentics@gmail.com
// Licensed under the Apache License, Version 2.0.
package transport_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"math/big"
	"net"
	"testing"
	"time"

	"github.com/momentics/lowlatency-wsclient/transport"
	"github.com/momentics/lowlatency-wsclient/wserr"
)

func selfSignedCert(t *testing.T) tls.Certificate {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "localhost"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:     []string{"localhost"},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &priv.PublicKey, priv)
	if err != nil {
		t.Fatalf("CreateCertificate: %v", err)
	}
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: priv}
}

func startEchoTLSServer(t *testing.T) (port int, stop func()) {
	t.Helper()
	cert := selfSignedCert(t)
	cfg := &tls.Config{Certificates: []tls.Certificate{cert}}

	ln, err := tls.Listen("tcp4", "127.0.0.1:0", cfg)
	if err != nil {
		t.Fatalf("tls.Listen: %v", err)
	}

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				buf := make([]byte, 4096)
				for {
					n, err := c.Read(buf)
					if n > 0 {
						if _, werr := c.Write(buf[:n]); werr != nil {
							return
						}
					}
					if err != nil {
						return
					}
				}
			}(conn)
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return addr.Port, func() { ln.Close() }
}

func TestOpenHandshakeSendRecvRoundTrip(t *testing.T) {
	port, stop := startEchoTLSServer(t)
	defer stop()

	cfg := transport.LoadConfig()
	tr, err := transport.Open(cfg, "127.0.0.1", port)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer tr.Close()

	if _, err := tr.Handshake(); err != nil {
		t.Fatalf("Handshake: %v", err)
	}
	if tr.CipherName() == "" {
		t.Fatalf("expected a negotiated cipher name")
	}
	if tr.KtlsActive() {
		t.Fatalf("kTLS activation is not achievable via crypto/tls; KtlsActive must be false")
	}

	if _, err := tr.Send([]byte("ping")); err != nil {
		t.Fatalf("Send: %v", err)
	}

	buf := make([]byte, 16)
	deadline := time.Now().Add(2 * time.Second)
	var n int
	for time.Now().Before(deadline) {
		n, err = tr.RecvInto(buf)
		if err == nil && n > 0 {
			break
		}
		if err != nil && !errors.Is(err, wserr.ErrWouldBlock) {
			t.Fatalf("RecvInto: %v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}
	if string(buf[:n]) != "ping" {
		t.Fatalf("echoed payload = %q, want %q", buf[:n], "ping")
	}
}

func TestOpenFailsOnConnectionRefused(t *testing.T) {
	cfg := transport.LoadConfig()
	// Port 1 is reserved and should refuse immediately on loopback.
	if _, err := transport.Open(cfg, "127.0.0.1", 1); err == nil {
		t.Fatalf("expected a connect error")
	}
}

func TestModeString(t *testing.T) {
	if transport.ModeUserspace.String() != "userspace" {
		t.Fatalf("Mode.String() = %q", transport.ModeUserspace.String())
	}
	if transport.ModeKernelOffload.String() != "kernel-offload" {
		t.Fatalf("Mode.String() = %q", transport.ModeKernelOffload.String())
	}
}
