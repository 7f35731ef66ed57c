// Copyright momentics@gmail.com
// Licensed under the Apache License, Version 2.0.
package wsframe_test

import (
	"testing"

	"github.com/momentics/lowlatency-wsclient/ringbuf"
	"github.com/momentics/lowlatency-wsclient/wsframe"
)

func newRings(t *testing.T) (rx, tx *ringbuf.Ring) {
	t.Helper()
	rx, err := ringbuf.New(4096)
	if err != nil {
		t.Fatalf("ringbuf.New(rx): %v", err)
	}
	tx, err = ringbuf.New(4096)
	if err != nil {
		t.Fatalf("ringbuf.New(tx): %v", err)
	}
	return rx, tx
}

func pushIntoRing(t *testing.T, r *ringbuf.Ring, data []byte) {
	t.Helper()
	span := r.WritableSpan()
	if len(span) < len(data) {
		t.Fatalf("not enough span room: have %d need %d", len(span), len(data))
	}
	n := copy(span, data)
	r.CommitWrite(n)
}

// TestMinimumInboundText is the minimum-frame scenario: a single-byte
// TEXT payload ("a"), unmasked server frame, 2-byte header.
func TestMinimumInboundText(t *testing.T) {
	rx, tx := newRings(t)
	// FIN|TEXT, no mask, len=1, payload "a".
	pushIntoRing(t, rx, []byte{0x81, 0x01, 'a'})

	e := wsframe.NewEngine()
	var got []byte
	var gotOp wsframe.Opcode
	d, err := e.DrainFrames(rx, tx, 0, func(opcode wsframe.Opcode, payload []byte) {
		gotOp = opcode
		got = append(got, payload...)
	})
	if err != nil {
		t.Fatalf("DrainFrames: %v", err)
	}
	if d.PeerClosed {
		t.Fatalf("unexpected PeerClosed")
	}
	if gotOp != wsframe.OpcodeText {
		t.Fatalf("opcode = %v, want Text", gotOp)
	}
	if string(got) != "a" {
		t.Fatalf("payload = %q, want %q", got, "a")
	}
	if rx.AvailableRead() != 0 {
		t.Fatalf("rx should be fully drained, %d bytes remain", rx.AvailableRead())
	}
}

// TestMediumInboundBinary exercises the 16-bit length class with a
// payload just over the 125-byte boundary.
func TestMediumInboundBinary(t *testing.T) {
	rx, tx := newRings(t)
	payload := make([]byte, 200)
	for i := range payload {
		payload[i] = byte(i)
	}
	hdr := []byte{0x82, 126, 0, 200}
	pushIntoRing(t, rx, append(hdr, payload...))

	e := wsframe.NewEngine()
	var got []byte
	_, err := e.DrainFrames(rx, tx, 0, func(opcode wsframe.Opcode, p []byte) {
		if opcode != wsframe.OpcodeBinary {
			t.Fatalf("opcode = %v, want Binary", opcode)
		}
		got = append(got, p...)
	})
	if err != nil {
		t.Fatalf("DrainFrames: %v", err)
	}
	if len(got) != 200 {
		t.Fatalf("payload len = %d, want 200", len(got))
	}
	for i, b := range got {
		if b != byte(i) {
			t.Fatalf("payload[%d] = %d, want %d", i, b, byte(i))
		}
	}
}

// TestInboundPingAutoReplies verifies an inbound PING both reaches the
// message callback and causes an immediate masked PONG to be queued to
// tx, echoing the same payload.
func TestInboundPingAutoReplies(t *testing.T) {
	rx, tx := newRings(t)
	pushIntoRing(t, rx, []byte{0x89, 0x04, 'p', 'i', 'n', 'g'})

	e := wsframe.NewEngine()
	var sawPing bool
	_, err := e.DrainFrames(rx, tx, 0, func(opcode wsframe.Opcode, payload []byte) {
		if opcode == wsframe.OpcodePing {
			sawPing = true
			if string(payload) != "ping" {
				t.Fatalf("ping payload = %q", payload)
			}
		}
	})
	if err != nil {
		t.Fatalf("DrainFrames: %v", err)
	}
	if !sawPing {
		t.Fatalf("message callback never saw the PING")
	}

	span := tx.ReadableSpan()
	if len(span) < 2 {
		t.Fatalf("no PONG queued in tx")
	}
	if span[0]&0x0F != byte(wsframe.OpcodePong) {
		t.Fatalf("tx opcode = %x, want PONG", span[0]&0x0F)
	}
	if span[1]&0x80 == 0 {
		t.Fatalf("outbound PONG must have MASK bit set")
	}
}

// TestMaskedServerFrameIsViolation: a server must never mask its frames.
func TestMaskedServerFrameIsViolation(t *testing.T) {
	rx, tx := newRings(t)
	pushIntoRing(t, rx, []byte{0x81, 0x81, 0, 0, 0, 0, 'a'})

	e := wsframe.NewEngine()
	_, err := e.DrainFrames(rx, tx, 0, func(wsframe.Opcode, []byte) {
		t.Fatalf("callback must not fire on a protocol violation")
	})
	if err == nil {
		t.Fatalf("expected protocol violation for masked server frame")
	}
}

// TestNonMinimalLengthIsViolation: a 16-bit length field encoding a value
// that fits in 7 bits must be rejected.
func TestNonMinimalLengthIsViolation(t *testing.T) {
	rx, tx := newRings(t)
	pushIntoRing(t, rx, []byte{0x81, 126, 0, 10, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0})

	e := wsframe.NewEngine()
	_, err := e.DrainFrames(rx, tx, 0, func(wsframe.Opcode, []byte) {
		t.Fatalf("callback must not fire on a protocol violation")
	})
	if err == nil {
		t.Fatalf("expected protocol violation for non-minimal length encoding")
	}
}

// TestInboundCloseEchoesStatus confirms a CLOSE frame stops further
// parsing, reports the peer's status code, and queues an echoing CLOSE.
func TestInboundCloseEchoesStatus(t *testing.T) {
	rx, tx := newRings(t)
	pushIntoRing(t, rx, []byte{0x88, 0x02, 0x03, 0xE8}) // status 1000

	e := wsframe.NewEngine()
	d, err := e.DrainFrames(rx, tx, 0, nil)
	if err != nil {
		t.Fatalf("DrainFrames: %v", err)
	}
	if !d.PeerClosed {
		t.Fatalf("expected PeerClosed")
	}
	if !d.HasCloseCode || d.CloseCode != 1000 {
		t.Fatalf("CloseCode = %d (has=%v), want 1000", d.CloseCode, d.HasCloseCode)
	}

	span := tx.ReadableSpan()
	if len(span) < 2 || span[0]&0x0F != byte(wsframe.OpcodeClose) {
		t.Fatalf("expected queued CLOSE echo in tx")
	}
}

func TestPartialFrameWaitsForMoreBytes(t *testing.T) {
	rx, tx := newRings(t)
	pushIntoRing(t, rx, []byte{0x81, 0x05, 'a', 'b'}) // declares 5 bytes, only 2 present

	e := wsframe.NewEngine()
	d, err := e.DrainFrames(rx, tx, 0, func(wsframe.Opcode, []byte) {
		t.Fatalf("callback must not fire before the frame is complete")
	})
	if err != nil {
		t.Fatalf("DrainFrames: %v", err)
	}
	if d.PeerClosed {
		t.Fatalf("unexpected PeerClosed")
	}
	if rx.AvailableRead() != 4 {
		t.Fatalf("partial frame bytes must remain in the ring, got %d", rx.AvailableRead())
	}
}

// TestMaxBatchThrottlesDelivery verifies the per-update batch cap leaves
// undelivered frames in the ring for a subsequent DrainFrames call,
// reproducing the original client's max_messages_per_update throttle.
func TestMaxBatchThrottlesDelivery(t *testing.T) {
	rx, tx := newRings(t)
	for i := 0; i < 3; i++ {
		pushIntoRing(t, rx, []byte{0x81, 0x01, 'a' + byte(i)})
	}

	e := wsframe.NewEngine()
	var delivered []byte
	d, err := e.DrainFrames(rx, tx, 2, func(_ wsframe.Opcode, payload []byte) {
		delivered = append(delivered, payload...)
	})
	if err != nil {
		t.Fatalf("DrainFrames: %v", err)
	}
	if d.BatchSize != 2 {
		t.Fatalf("BatchSize = %d, want 2", d.BatchSize)
	}
	if string(delivered) != "ab" {
		t.Fatalf("delivered = %q, want %q", delivered, "ab")
	}
	if rx.AvailableRead() != 3 {
		t.Fatalf("one undelivered frame should remain, got %d bytes", rx.AvailableRead())
	}

	d, err = e.DrainFrames(rx, tx, 2, func(_ wsframe.Opcode, payload []byte) {
		delivered = append(delivered, payload...)
	})
	if err != nil {
		t.Fatalf("DrainFrames: %v", err)
	}
	if d.BatchSize != 1 {
		t.Fatalf("BatchSize = %d, want 1", d.BatchSize)
	}
	if string(delivered) != "abc" {
		t.Fatalf("delivered = %q, want %q", delivered, "abc")
	}
}
