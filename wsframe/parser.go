// File: wsframe/parser.go
//
// Zero-copy inbound frame parser. Reads frame headers and payloads
// directly out of a ringbuf.Ring via Peek, hands the application a
// pointer straight into the ring's backing storage, and only advances the
// ring's read index after the callback returns — per spec.md §4.D's
// zero-copy callback contract. Grounded on
// core/protocol/frame_codec.go's DecodeFrameFromBytes (length-class
// switch, shortest-encoding and overflow checks), adapted from
// copy-into-payload decoding to header-then-payload peeking against a
// ring.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package wsframe

import (
	"encoding/binary"
	"fmt"

	"github.com/momentics/lowlatency-wsclient/ringbuf"
	"github.com/momentics/lowlatency-wsclient/wserr"
)

// Delivery is what DrainFrames reports back to the caller after a single
// pass over the RX ring.
type Delivery struct {
	// PeerClosed is set once an inbound CLOSE frame has been processed.
	// No further frames are delivered after this; the caller should stop
	// calling DrainFrames for this ring.
	PeerClosed bool
	// CloseCode is the peer's close status code, if the CLOSE frame
	// carried one (supplementing spec.md — see SPEC_FULL.md).
	CloseCode int
	// HasCloseCode reports whether CloseCode is meaningful.
	HasCloseCode bool
	// BatchSize is how many frames this call delivered before stopping,
	// whether because the ring ran dry or maxBatch was reached
	// (supplementing spec.md with the original client's per-update batch
	// throttle/statistics surface — see SPEC_FULL.md).
	BatchSize int
}

// MessageFunc receives a decoded inbound frame. payload aliases the ring
// buffer directly and is only valid for the duration of the call: the
// engine has not advanced the ring's read index when this is invoked, and
// does so only after it returns. Implementations that need the bytes
// afterward must copy them out before returning.
type MessageFunc func(opcode Opcode, payload []byte)

// header describes a decoded but not-yet-consumed frame header.
type header struct {
	opcode     Opcode
	masked     bool
	payloadLen int
	headerLen  int
}

// tryParseHeader inspects span (a peeked prefix of the RX ring) and
// reports the decoded header plus whether enough bytes are present to
// decide. It never mutates ring state.
func tryParseHeader(span []byte) (h header, complete bool, violation error) {
	if len(span) < minHeaderLen {
		return header{}, false, nil
	}

	fin := span[0]&finBit != 0
	opcode := Opcode(span[0] & 0x0F)
	masked := span[1]&maskBit != 0
	lenField := int(span[1] & 0x7F)

	if !fin {
		return header{}, false, fmt.Errorf("wsframe: fragmented frame (FIN=0) rejected: %w", wserr.ErrProtocolViolation)
	}
	if masked {
		return header{}, false, fmt.Errorf("wsframe: server frame has MASK set: %w", wserr.ErrProtocolViolation)
	}

	offset := 2
	var payloadLen int

	switch {
	case lenField <= len7Max:
		payloadLen = lenField
	case lenField == len16Tag:
		if len(span) < offset+2 {
			return header{}, false, nil
		}
		v := binary.BigEndian.Uint16(span[offset:])
		if v <= len7Max {
			return header{}, false, fmt.Errorf("wsframe: non-minimal 16-bit length encoding: %w", wserr.ErrProtocolViolation)
		}
		payloadLen = int(v)
		offset += 2
	case lenField == len64Tag:
		if len(span) < offset+8 {
			return header{}, false, nil
		}
		v := binary.BigEndian.Uint64(span[offset:])
		if v <= 0xFFFF {
			return header{}, false, fmt.Errorf("wsframe: non-minimal 64-bit length encoding: %w", wserr.ErrProtocolViolation)
		}
		if v > uint64(^uint(0)>>1)-16 {
			// Reject lengths that could overflow header_len+payload_len
			// once the (small, bounded) header is added on top, per
			// spec.md §4.D step 4.
			return header{}, false, fmt.Errorf("wsframe: frame length overflow: %w", wserr.ErrProtocolViolation)
		}
		payloadLen = int(v)
		offset += 8
	}

	headerLen := offset
	if opcode == OpcodePing || opcode == OpcodePong || opcode == OpcodeClose {
		if payloadLen > MaxControlPayload {
			return header{}, false, fmt.Errorf("wsframe: control frame payload %d exceeds %d: %w", payloadLen, MaxControlPayload, wserr.ErrProtocolViolation)
		}
	}

	return header{opcode: opcode, masked: masked, payloadLen: payloadLen, headerLen: headerLen}, true, nil
}

// DrainFrames parses and delivers every complete frame currently sitting
// in rx, stopping when fewer than a full frame remains or a CLOSE frame
// ends the stream. It is the "drain the RX ring in one pass" step of
// spec.md §2/§4.D's Update pump.
//
// PING frames are answered with a PONG (same payload) enqueued to tx
// before the message callback fires, so the reply is queued in the same
// Update pass that consumed the PING — spec.md §5's ordering guarantee.
// CLOSE frames get exactly one outbound CLOSE echoing the status code (if
// any), after which parsing stops for this pass and PeerClosed is set.
//
// maxBatch caps how many frames are delivered in this call before the
// remainder is left in rx for the next DrainFrames call; zero means
// unlimited. This reproduces the original client's per-update batch
// throttle (see SPEC_FULL.md's SUPPLEMENTED FEATURES).
func (e *Engine) DrainFrames(rx, tx *ringbuf.Ring, maxBatch int, onMessage MessageFunc) (d Delivery, err error) {
	for {
		if maxBatch > 0 && d.BatchSize >= maxBatch {
			return d, nil
		}

		span := rx.Peek()
		if len(span) < minHeaderLen {
			return d, nil
		}
		h, complete, violation := tryParseHeader(span)
		if violation != nil {
			return d, violation
		}
		if !complete {
			return d, nil
		}
		total := h.headerLen + h.payloadLen
		if len(span) < total {
			// Full frame not yet in the ring; wait for more bytes.
			return d, nil
		}

		payload := span[h.headerLen:total]

		switch h.opcode {
		case OpcodePing:
			if err := e.enqueueControl(tx, OpcodePong, payload); err != nil {
				e.backlog.push(controlFrame{opcode: OpcodePong, payload: append([]byte(nil), payload...)})
			}
			if onMessage != nil {
				onMessage(h.opcode, payload)
			}
		case OpcodeClose:
			code, hasCode := closeCode(payload)
			d.PeerClosed = true
			d.CloseCode = code
			d.HasCloseCode = hasCode
			d.BatchSize++
			_ = e.enqueueCloseEcho(tx, payload)
			rx.AdvanceRead(total)
			return d, nil
		default:
			if onMessage != nil {
				onMessage(h.opcode, payload)
			}
		}

		d.BatchSize++
		rx.AdvanceRead(total)
	}
}

// closeCode extracts the 2-byte big-endian status code from a CLOSE
// frame's payload, if present.
func closeCode(payload []byte) (code int, ok bool) {
	if len(payload) < 2 {
		return 0, false
	}
	return int(binary.BigEndian.Uint16(payload[:2])), true
}
