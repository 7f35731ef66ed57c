// File: wsframe/framer.go
//
// Outbound masked framer. Selects the shortest valid RFC 6455 length
// encoding, draws a fresh 32-bit mask from the engine's PRNG, and XORs the
// payload into the TX ring in a single pass — header, mask, and masked
// payload are written directly into the ring's writable span(s), never
// staged in an intermediate buffer. Grounded on
// core/protocol/frame_codec.go's EncodeFrameToBytes header-encoding
// switch; that function hardcodes the mask to 0xDEADBEEF; this one draws
// a real key per frame from wsframe/prng.go, per spec.md §4.D step 3.
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

// Engine owns the per-context framing state: the masking PRNG, the
// best-effort control-frame backlog, and the closed flag set the first
// time a local close is initiated.
type Engine struct {
	prng    *maskPRNG
	backlog *controlBacklog
	closed  bool
}

// NewEngine constructs a frame engine with a freshly seeded masking PRNG.
func NewEngine() *Engine {
	return &Engine{prng: newMaskPRNG(), backlog: newControlBacklog()}
}

// Closed reports whether a local close has been initiated.
func (e *Engine) Closed() bool { return e.closed }

// Zero overwrites the masking PRNG's state, per spec.md §5's shutdown
// discipline. Call once, from the owning context's Free.
func (e *Engine) Zero() { e.prng.Zero() }

// encodeHeader writes the FIN/opcode/mask/length-class header for a frame
// of the given payload length into dst, returning the number of bytes
// written. dst must have room for at least 14 bytes (2 + 8 + 4).
func encodeHeader(dst []byte, opcode Opcode, payloadLen int, maskKey [4]byte) int {
	dst[0] = finBit | byte(opcode)
	n := 1

	switch {
	case payloadLen <= len7Max:
		dst[n] = maskBit | byte(payloadLen)
		n++
	case payloadLen <= 0xFFFF:
		dst[n] = maskBit | len16Tag
		n++
		binary.BigEndian.PutUint16(dst[n:], uint16(payloadLen))
		n += 2
	default:
		dst[n] = maskBit | len64Tag
		n++
		binary.BigEndian.PutUint64(dst[n:], uint64(payloadLen))
		n += 8
	}

	copy(dst[n:n+4], maskKey[:])
	n += 4
	return n
}

// headerLenFor returns how many bytes encodeHeader will need for a given
// payload length, without drawing a mask key.
func headerLenFor(payloadLen int) int {
	switch {
	case payloadLen <= len7Max:
		return 2 + 4
	case payloadLen <= 0xFFFF:
		return 4 + 4
	default:
		return 10 + 4
	}
}

// Send frames payload as opcode and writes it into tx: header+mask in one
// reserved span, then the payload XORed into the ring in a single pass
// over the payload bytes. Short writes cannot happen at this layer (the
// ring either has room or it doesn't); if tx lacks room for the whole
// frame this returns wserr.ErrResourceExhausted and writes nothing,
// leaving the ring state unchanged for the caller to retry later.
func (e *Engine) Send(tx *ringbuf.Ring, opcode Opcode, payload []byte) error {
	return e.writeFrame(tx, opcode, payload, true)
}

// writeFrame implements Send plus writeControlNow for control replies.
// mask is always true for this profile: client frames must always be
// masked per RFC 6455.
func (e *Engine) writeFrame(tx *ringbuf.Ring, opcode Opcode, payload []byte, mask bool) error {
	hlen := headerLenFor(len(payload))
	total := hlen + len(payload)
	if tx.AvailableWrite() < total {
		return fmt.Errorf("wsframe: tx ring has no room for %d-byte frame: %w", total, wserr.ErrResourceExhausted)
	}

	maskKey := e.prng.NextMaskKey()

	var hdr [14]byte
	n := encodeHeader(hdr[:], opcode, len(payload), maskKey)

	if err := writeAll(tx, hdr[:n]); err != nil {
		return err
	}

	if len(payload) == 0 {
		return nil
	}
	return writeMaskedPayload(tx, payload, maskKey)
}

// writeAll copies src into tx, looping across ring wrap boundaries in the
// non-mirrored fallback case (a single call suffices whenever the ring is
// mirrored or the span does not cross the physical wrap point).
func writeAll(tx *ringbuf.Ring, src []byte) error {
	for len(src) > 0 {
		span := tx.WritableSpan()
		if len(span) == 0 {
			return fmt.Errorf("wsframe: tx ring writable span exhausted mid-frame: %w", wserr.ErrResourceExhausted)
		}
		n := copy(span, src)
		tx.CommitWrite(n)
		src = src[n:]
	}
	return nil
}

// writeMaskedPayload XORs payload with maskKey while copying it into tx,
// so only one pass is made over the payload bytes — spec.md §4.D step 4.
// The mask index i&3 is tracked across ring-span boundaries so a wrap in
// the non-mirrored fallback never resets the mask phase.
func writeMaskedPayload(tx *ringbuf.Ring, payload []byte, maskKey [4]byte) error {
	i := 0
	for i < len(payload) {
		span := tx.WritableSpan()
		if len(span) == 0 {
			return fmt.Errorf("wsframe: tx ring writable span exhausted mid-payload: %w", wserr.ErrResourceExhausted)
		}
		n := len(span)
		if rem := len(payload) - i; n > rem {
			n = rem
		}
		for j := 0; j < n; j++ {
			span[j] = payload[i+j] ^ maskKey[(i+j)&3]
		}
		tx.CommitWrite(n)
		i += n
	}
	return nil
}

// enqueueControl writes a PONG (or other control reply) immediately. If
// the TX ring has no room, the caller falls back to the best-effort
// backlog — control frames other than CLOSE are allowed to be dropped
// under backpressure per spec.md §4.D's "Failure semantics."
func (e *Engine) enqueueControl(tx *ringbuf.Ring, opcode Opcode, payload []byte) error {
	return e.writeFrame(tx, opcode, payload, true)
}

// enqueueCloseEcho writes the outbound CLOSE that answers an inbound
// CLOSE, echoing the 2-byte status code when the peer's frame carried
// one, per spec.md §4.D step 9.
func (e *Engine) enqueueCloseEcho(tx *ringbuf.Ring, peerPayload []byte) error {
	var status []byte
	if len(peerPayload) >= 2 {
		status = peerPayload[:2]
	}
	if err := e.writeFrame(tx, OpcodeClose, status, true); err != nil {
		// CLOSE is always attempted; queue it for the next flush window
		// rather than silently dropping it, per spec.md §4.D.
		cp := append([]byte(nil), status...)
		e.backlog.push(controlFrame{opcode: OpcodeClose, payload: cp})
		return err
	}
	return nil
}

// LocalClose enqueues a masked CLOSE frame with status 1000 (Normal
// Closure) and marks the engine closed. Idempotent: a second call is a
// no-op, satisfying spec.md §8's "close() is idempotent" property.
func (e *Engine) LocalClose(tx *ringbuf.Ring) error {
	if e.closed {
		return nil
	}
	e.closed = true
	var status [2]byte
	binary.BigEndian.PutUint16(status[:], 1000)
	if err := e.writeFrame(tx, OpcodeClose, status[:], true); err != nil {
		e.backlog.push(controlFrame{opcode: OpcodeClose, payload: append([]byte(nil), status[:]...)})
		return err
	}
	return nil
}

// FlushBacklog retries any control frames (PONG/CLOSE) that could not be
// written immediately due to TX backpressure, in FIFO order. Called from
// the context's auto-flush step on every Update pass.
func (e *Engine) FlushBacklog(tx *ringbuf.Ring) {
	for {
		cf, ok := e.backlog.peek()
		if !ok {
			return
		}
		if err := e.writeFrame(tx, cf.opcode, cf.payload, true); err != nil {
			return // still backed up; try again next pass
		}
		e.backlog.pop()
	}
}
