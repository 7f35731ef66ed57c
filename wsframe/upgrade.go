// File: wsframe/upgrade.go
//
// Client-side HTTP/1.1 Upgrade handshake: request construction and
// response validation. Grounded on lowlevel/client/facade.go's manual
// request string (fmt.Sprintf with Host/Upgrade/Connection/Sec-WebSocket-
// Key/Version headers) and its "scan the response for the expected
// status line/header" validation shape — generalized here to also accept
// HTTP/1.1 200 (some intermediaries rewrite the status line) and to
// validate the Upgrade/Connection headers case-insensitively rather than
// substring-matching the whole response, per spec.md §4.D's handshake
// rules.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package wsframe

import (
	"bufio"
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/textproto"
	"strings"

	"github.com/momentics/lowlatency-wsclient/wserr"
)

// MaxHandshakeResponse bounds how many bytes of response accumulate
// before the handshake is declared failed, per spec.md §4.D step 2.
const MaxHandshakeResponse = 4096

// BuildUpgradeRequest renders the client's HTTP/1.1 Upgrade request for
// path and host, drawing a fresh base64 Sec-WebSocket-Key from crypto
// entropy. The returned secKey is informational: ValidateUpgradeResponse
// does not check Sec-WebSocket-Accept against it.
func BuildUpgradeRequest(host, path string) (request string, secKey string, err error) {
	var raw [16]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", "", fmt.Errorf("wsframe: generating handshake key: %w", err)
	}
	secKey = base64.StdEncoding.EncodeToString(raw[:])

	if path == "" {
		path = "/"
	}

	req := fmt.Sprintf(
		"GET %s HTTP/1.1\r\n"+
			"Host: %s\r\n"+
			"Upgrade: websocket\r\n"+
			"Connection: Upgrade\r\n"+
			"Sec-WebSocket-Key: %s\r\n"+
			"Sec-WebSocket-Version: 13\r\n"+
			"\r\n",
		path, host, secKey,
	)
	return req, secKey, nil
}

// HandshakeAccumulator tracks the partially-received handshake response
// across repeated Update passes, since the response may arrive split
// across several TCP reads.
type HandshakeAccumulator struct {
	buf []byte
}

// NewHandshakeAccumulator constructs an empty response accumulator.
func NewHandshakeAccumulator() *HandshakeAccumulator {
	return &HandshakeAccumulator{buf: make([]byte, 0, 512)}
}

// Feed appends newly received bytes. It returns ErrHandshakeFailed once
// the accumulator would exceed MaxHandshakeResponse without having seen a
// complete header block, per spec.md §4.D's bounded handshake buffer.
func (a *HandshakeAccumulator) Feed(chunk []byte) error {
	if len(a.buf)+len(chunk) > MaxHandshakeResponse {
		return fmt.Errorf("wsframe: handshake response exceeds %d bytes: %w", MaxHandshakeResponse, wserr.ErrHandshakeFailed)
	}
	a.buf = append(a.buf, chunk...)
	return nil
}

// TryComplete reports whether the accumulator so far contains a full HTTP
// header block (terminated by CRLFCRLF), returning the header bytes and
// any trailing bytes that belong to the WebSocket stream proper.
func (a *HandshakeAccumulator) TryComplete() (headerBlock []byte, trailing []byte, ok bool) {
	idx := bytes.Index(a.buf, []byte("\r\n\r\n"))
	if idx < 0 {
		return nil, nil, false
	}
	return a.buf[:idx], a.buf[idx+4:], true
}

// ValidateUpgradeResponse parses header block and confirms it is an
// acceptable Upgrade response: status line 101 (or the permissive 200
// some proxies substitute) and case-insensitive Upgrade: websocket /
// Connection: Upgrade headers, per spec.md §4.D step 2.
func ValidateUpgradeResponse(headerBlock []byte) error {
	reader := textproto.NewReader(bufio.NewReader(bytes.NewReader(headerBlock)))
	statusLine, err := reader.ReadLine()
	if err != nil {
		return fmt.Errorf("wsframe: reading handshake status line: %w", wserr.ErrHandshakeFailed)
	}
	if !strings.Contains(statusLine, "101") && !strings.Contains(statusLine, "200") {
		return fmt.Errorf("wsframe: unexpected handshake status %q: %w", statusLine, wserr.ErrHandshakeFailed)
	}

	hdr, err := reader.ReadMIMEHeader()
	if err != nil && len(hdr) == 0 {
		return fmt.Errorf("wsframe: reading handshake headers: %w", wserr.ErrHandshakeFailed)
	}

	if !strings.EqualFold(hdr.Get("Upgrade"), "websocket") {
		return fmt.Errorf("wsframe: missing/invalid Upgrade header: %w", wserr.ErrHandshakeFailed)
	}
	if !strings.Contains(strings.ToLower(hdr.Get("Connection")), "upgrade") {
		return fmt.Errorf("wsframe: missing/invalid Connection header: %w", wserr.ErrHandshakeFailed)
	}
	return nil
}
