// File: wsclient/url.go
//
// URL grammar per spec.md §6: ("wss://" | "ws://") host [":" port] [path].
// Grounded on lowlevel/client/facade.go's net/url.Parse(cfg.Addr) usage,
// but this profile needs scheme-driven default ports (443/80) and an
// explicit port-range check the teacher's url.Parse call never performs,
// so parsing is done by hand against the literal grammar rather than
// delegated to net/url (which would silently accept things spec.md's
// grammar forbids, like a missing scheme).
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package wsclient

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/momentics/lowlatency-wsclient/wserr"
)

// parsedURL is the decomposed form of a wss://host[:port][/path] target.
type parsedURL struct {
	TLS  bool
	Host string
	Port int
	Path string
}

// parseURL validates and decomposes raw against spec.md §6's grammar.
// Default port is 443 for wss, 80 for ws; a missing path becomes "/".
// This implementation additionally accepts and preserves a query string
// on path (e.g. "/feed?symbols=BTC-USD"), per SPEC_FULL.md's supplemented
// feature — RFC 6455's request-target does not forbid one.
func parseURL(raw string) (parsedURL, error) {
	var tls bool
	var rest string
	switch {
	case strings.HasPrefix(raw, "wss://"):
		tls = true
		rest = raw[len("wss://"):]
	case strings.HasPrefix(raw, "ws://"):
		tls = false
		rest = raw[len("ws://"):]
	default:
		return parsedURL{}, wserr.New(wserr.CodeInvalidArgument, wserr.ErrInvalidArgument,
			"wsclient: URL missing ws:// or wss:// scheme").WithContext("url", raw)
	}

	hostport := rest
	path := "/"
	if idx := strings.IndexByte(rest, '/'); idx >= 0 {
		hostport = rest[:idx]
		path = rest[idx:]
	}
	if hostport == "" {
		return parsedURL{}, wserr.New(wserr.CodeInvalidArgument, wserr.ErrInvalidArgument,
			"wsclient: URL has empty host").WithContext("url", raw)
	}

	host := hostport
	port := 80
	if tls {
		port = 443
	}
	if idx := strings.LastIndexByte(hostport, ':'); idx >= 0 {
		host = hostport[:idx]
		portStr := hostport[idx+1:]
		p, err := strconv.Atoi(portStr)
		if err != nil {
			return parsedURL{}, wserr.New(wserr.CodeInvalidArgument, wserr.ErrInvalidArgument,
				"wsclient: URL has a non-decimal port").WithContext("url", raw).WithContext("port", portStr)
		}
		if p < 1 || p > 65535 {
			return parsedURL{}, wserr.New(wserr.CodeInvalidArgument, wserr.ErrInvalidArgument,
				"wsclient: URL port is out of range [1,65535]").WithContext("url", raw).WithContext("port", p)
		}
		port = p
	}
	if host == "" {
		return parsedURL{}, wserr.New(wserr.CodeInvalidArgument, wserr.ErrInvalidArgument,
			"wsclient: URL has empty host").WithContext("url", raw)
	}

	return parsedURL{TLS: tls, Host: host, Port: port, Path: path}, nil
}

// hostHeader renders the Host header value: the host alone when port is
// the scheme's default, host:port otherwise, per spec.md §6.
func (u parsedURL) hostHeader() string {
	defaultPort := 80
	if u.TLS {
		defaultPort = 443
	}
	if u.Port == defaultPort {
		return u.Host
	}
	return fmt.Sprintf("%s:%d", u.Host, u.Port)
}
