// Copyright momentics@gmail.com
// Licensed under the Apache License, Version 2.0.
package wsclient

import "testing"

func TestParseURLDefaults(t *testing.T) {
	u, err := parseURL("wss://example.com")
	if err != nil {
		t.Fatalf("parseURL: %v", err)
	}
	if !u.TLS || u.Host != "example.com" || u.Port != 443 || u.Path != "/" {
		t.Fatalf("unexpected parse: %+v", u)
	}

	u, err = parseURL("ws://example.com")
	if err != nil {
		t.Fatalf("parseURL: %v", err)
	}
	if u.TLS || u.Port != 80 {
		t.Fatalf("unexpected parse: %+v", u)
	}
}

func TestParseURLExplicitPortAndPath(t *testing.T) {
	u, err := parseURL("wss://example.com:9443/feed?symbols=BTC-USD")
	if err != nil {
		t.Fatalf("parseURL: %v", err)
	}
	if u.Port != 9443 || u.Path != "/feed?symbols=BTC-USD" {
		t.Fatalf("unexpected parse: %+v", u)
	}
	if got := u.hostHeader(); got != "example.com:9443" {
		t.Fatalf("hostHeader = %q, want example.com:9443", got)
	}
}

func TestParseURLDefaultPortOmittedFromHostHeader(t *testing.T) {
	u, err := parseURL("wss://example.com:443/x")
	if err != nil {
		t.Fatalf("parseURL: %v", err)
	}
	if got := u.hostHeader(); got != "example.com" {
		t.Fatalf("hostHeader = %q, want example.com", got)
	}
}

func TestParseURLRejectsMissingScheme(t *testing.T) {
	if _, err := parseURL("example.com/feed"); err == nil {
		t.Fatalf("expected rejection of URL without ws:// or wss:// scheme")
	}
}

func TestParseURLRejectsOutOfRangePort(t *testing.T) {
	if _, err := parseURL("ws://example.com:70000/"); err == nil {
		t.Fatalf("expected rejection of out-of-range port")
	}
}

func TestParseURLRejectsEmptyHost(t *testing.T) {
	if _, err := parseURL("wss:///path"); err == nil {
		t.Fatalf("expected rejection of empty host")
	}
}
