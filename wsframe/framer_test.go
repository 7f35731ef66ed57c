// Copyright momentics@gmail.com
// Licensed under the Apache License, Version 2.0.
package wsframe_test

import (
	"testing"

	"github.com/momentics/lowlatency-wsclient/ringbuf"
	"github.com/momentics/lowlatency-wsclient/wsframe"
)

// TestOutboundMaskedSend checks that Send produces a correctly framed,
// masked message whose unmasked payload round-trips.
func TestOutboundMaskedSend(t *testing.T) {
	tx, err := ringbuf.New(4096)
	if err != nil {
		t.Fatalf("ringbuf.New: %v", err)
	}

	e := wsframe.NewEngine()
	payload := []byte("hello, client")
	if err := e.Send(tx, wsframe.OpcodeText, payload); err != nil {
		t.Fatalf("Send: %v", err)
	}

	span := tx.ReadableSpan()
	if len(span) < 2 {
		t.Fatalf("frame too short: %d bytes", len(span))
	}
	if span[0] != 0x81 {
		t.Fatalf("byte0 = %#x, want FIN|TEXT (0x81)", span[0])
	}
	if span[1]&0x80 == 0 {
		t.Fatalf("MASK bit must be set on an outbound client frame")
	}
	lenField := span[1] & 0x7F
	if int(lenField) != len(payload) {
		t.Fatalf("len field = %d, want %d", lenField, len(payload))
	}

	maskKey := span[2:6]
	masked := span[6 : 6+len(payload)]
	for i := range payload {
		got := masked[i] ^ maskKey[i%4]
		if got != payload[i] {
			t.Fatalf("unmasked byte %d = %q, want %q", i, got, payload[i])
		}
	}
}

// TestLocalCloseIsIdempotent exercises the close() idempotency
// requirement: a second LocalClose call must not enqueue a second frame.
func TestLocalCloseIsIdempotent(t *testing.T) {
	tx, err := ringbuf.New(4096)
	if err != nil {
		t.Fatalf("ringbuf.New: %v", err)
	}
	e := wsframe.NewEngine()

	if err := e.LocalClose(tx); err != nil {
		t.Fatalf("first LocalClose: %v", err)
	}
	firstOccupied := tx.AvailableRead()

	if err := e.LocalClose(tx); err != nil {
		t.Fatalf("second LocalClose: %v", err)
	}
	if tx.AvailableRead() != firstOccupied {
		t.Fatalf("second LocalClose must be a no-op, tx grew from %d to %d", firstOccupied, tx.AvailableRead())
	}
	if !e.Closed() {
		t.Fatalf("engine must report Closed() after LocalClose")
	}
}

// TestSendLargePayloadUses64BitLength exercises the 64-bit length class.
func TestSendLargePayloadUses64BitLength(t *testing.T) {
	tx, err := ringbuf.New(1 << 20)
	if err != nil {
		t.Fatalf("ringbuf.New: %v", err)
	}
	e := wsframe.NewEngine()
	payload := make([]byte, 70000)
	if err := e.Send(tx, wsframe.OpcodeBinary, payload); err != nil {
		t.Fatalf("Send: %v", err)
	}

	span := tx.ReadableSpan()
	if span[1]&0x7F != 127 {
		t.Fatalf("len tag = %d, want 127 for a >64KiB payload", span[1]&0x7F)
	}
}

// TestSendFailsCleanlyWhenRingFull verifies ErrResourceExhausted surfaces
// without partially writing a frame when the ring lacks room.
func TestSendFailsCleanlyWhenRingFull(t *testing.T) {
	tx, err := ringbuf.New(16)
	if err != nil {
		t.Fatalf("ringbuf.New: %v", err)
	}
	e := wsframe.NewEngine()
	if err := e.Send(tx, wsframe.OpcodeBinary, make([]byte, 1000)); err == nil {
		t.Fatalf("expected ErrResourceExhausted for an oversized payload")
	}
	if tx.AvailableRead() != 0 {
		t.Fatalf("failed Send must not leave a partial frame, tx holds %d bytes", tx.AvailableRead())
	}
}
