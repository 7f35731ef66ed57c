// Copyright momentics@gmail.com
// Licensed under the Apache License, Version 2.0.
package wserr_test

import (
	"errors"
	"testing"

	"github.com/momentics/lowlatency-wsclient/wserr"
)

func TestStructuredErrorUnwrapsToSentinel(t *testing.T) {
	err := wserr.New(wserr.CodeInvalidArgument, wserr.ErrInvalidArgument, "bad url").
		WithContext("url", "not-a-url")

	if !errors.Is(err, wserr.ErrInvalidArgument) {
		t.Fatalf("errors.Is must resolve through the wrapped sentinel")
	}
	var structured *wserr.Error
	if !errors.As(err, &structured) {
		t.Fatalf("errors.As must recover the structured Error")
	}
	if structured.Code != wserr.CodeInvalidArgument {
		t.Fatalf("Code = %v, want CodeInvalidArgument", structured.Code)
	}
	if structured.Context["url"] != "not-a-url" {
		t.Fatalf("Context[url] = %v, want %q", structured.Context["url"], "not-a-url")
	}
}

func TestStructuredErrorMessageWithoutContext(t *testing.T) {
	err := wserr.New(wserr.CodeClosed, wserr.ErrClosed, "connection closed")
	if err.Error() != "connection closed" {
		t.Fatalf("Error() = %q, want %q", err.Error(), "connection closed")
	}
}

func TestErrorCodeString(t *testing.T) {
	if wserr.CodeWouldBlock.String() != "would_block" {
		t.Fatalf("CodeWouldBlock.String() = %q", wserr.CodeWouldBlock.String())
	}
	if wserr.ErrorCode(999).String() != "unknown" {
		t.Fatalf("unknown code should stringify to %q", "unknown")
	}
}
