// Copyright momentics@gmail.com
// Licensed under the Apache License, Version 2.0.
package wsframe_test

import (
	"strings"
	"testing"

	"github.com/momentics/lowlatency-wsclient/wsframe"
)

func TestBuildUpgradeRequestShape(t *testing.T) {
	req, secKey, err := wsframe.BuildUpgradeRequest("example.com:443", "/stream")
	if err != nil {
		t.Fatalf("BuildUpgradeRequest: %v", err)
	}
	if !strings.HasPrefix(req, "GET /stream HTTP/1.1\r\n") {
		t.Fatalf("unexpected request line: %q", req)
	}
	if !strings.Contains(req, "Host: example.com:443\r\n") {
		t.Fatalf("missing Host header: %q", req)
	}
	if !strings.Contains(req, "Sec-WebSocket-Key: "+secKey+"\r\n") {
		t.Fatalf("request does not echo returned secKey: %q", req)
	}
	if !strings.HasSuffix(req, "\r\n\r\n") {
		t.Fatalf("request must end with a blank line: %q", req)
	}
}

func TestBuildUpgradeRequestDefaultsPath(t *testing.T) {
	req, _, err := wsframe.BuildUpgradeRequest("example.com", "")
	if err != nil {
		t.Fatalf("BuildUpgradeRequest: %v", err)
	}
	if !strings.HasPrefix(req, "GET / HTTP/1.1\r\n") {
		t.Fatalf("empty path should default to /: %q", req)
	}
}

func TestValidateUpgradeResponseAccepts101(t *testing.T) {
	resp := "HTTP/1.1 101 Switching Protocols\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Accept: s3pPLMBiTxaQ9kYGzzhZRbK+xOo=\r\n"
	if err := wsframe.ValidateUpgradeResponse([]byte(resp)); err != nil {
		t.Fatalf("ValidateUpgradeResponse: %v", err)
	}
}

func TestValidateUpgradeResponseRejectsBadStatus(t *testing.T) {
	resp := "HTTP/1.1 404 Not Found\r\n"
	if err := wsframe.ValidateUpgradeResponse([]byte(resp)); err == nil {
		t.Fatalf("expected failure for a 404 response")
	}
}

func TestValidateUpgradeResponseRejectsMissingUpgradeHeader(t *testing.T) {
	resp := "HTTP/1.1 101 Switching Protocols\r\n" +
		"Connection: Upgrade\r\n"
	if err := wsframe.ValidateUpgradeResponse([]byte(resp)); err == nil {
		t.Fatalf("expected failure for a missing Upgrade header")
	}
}

func TestHandshakeAccumulatorSplitAcrossFeeds(t *testing.T) {
	acc := wsframe.NewHandshakeAccumulator()
	full := "HTTP/1.1 101 Switching Protocols\r\nUpgrade: websocket\r\nConnection: Upgrade\r\n\r\n" + "leading-ws-byte"

	if err := acc.Feed([]byte(full[:10])); err != nil {
		t.Fatalf("Feed (partial): %v", err)
	}
	if _, _, ok := acc.TryComplete(); ok {
		t.Fatalf("TryComplete must be false before the header terminator arrives")
	}

	if err := acc.Feed([]byte(full[10:])); err != nil {
		t.Fatalf("Feed (rest): %v", err)
	}
	hdr, trailing, ok := acc.TryComplete()
	if !ok {
		t.Fatalf("TryComplete should succeed once CRLFCRLF has arrived")
	}
	if err := wsframe.ValidateUpgradeResponse(hdr); err != nil {
		t.Fatalf("ValidateUpgradeResponse: %v", err)
	}
	if string(trailing) != "leading-ws-byte" {
		t.Fatalf("trailing = %q, want %q", trailing, "leading-ws-byte")
	}
}

func TestHandshakeAccumulatorRejectsOversizedResponse(t *testing.T) {
	acc := wsframe.NewHandshakeAccumulator()
	huge := make([]byte, wsframe.MaxHandshakeResponse+1)
	if err := acc.Feed(huge); err == nil {
		t.Fatalf("expected ErrHandshakeFailed for an oversized response")
	}
}
