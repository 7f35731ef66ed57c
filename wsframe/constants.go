// Package wsframe implements the client side of RFC 6455: the HTTP/1.1
// Upgrade handshake, a zero-copy inbound frame parser that reads directly
// out of a ringbuf.Ring, automatic PING→PONG and CLOSE responses, and a
// masked client-to-server outbound framer.
//
// The wire-level encode/decode logic is grounded on
// core/protocol/frame_codec.go's DecodeFrameFromBytes/EncodeFrameToBytes
// from the teacher module (length-class switch, mask-key handling,
// truncation/overflow guards), rewritten from copy-out decoding against a
// byte slice to true zero-copy peek-then-advance against a ring buffer,
// and from a hardcoded 0xDEADBEEF outbound mask to a real per-frame PRNG
// draw, per spec.md §4.D.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package wsframe

// Opcode identifies an RFC 6455 frame type. Only the opcodes this profile
// understands are named; anything else is a protocol violation.
type Opcode byte

const (
	OpcodeText   Opcode = 0x1
	OpcodeBinary Opcode = 0x2
	OpcodeClose  Opcode = 0x8
	OpcodePing   Opcode = 0x9
	OpcodePong   Opcode = 0xA
)

const (
	finBit  byte = 0x80
	maskBit byte = 0x80

	// MaxControlPayload is the RFC 6455 ceiling on control-frame payload
	// size (PING/PONG/CLOSE).
	MaxControlPayload = 125

	// minHeaderLen is the smallest possible frame header: FIN/opcode byte
	// plus MASK/len7 byte.
	minHeaderLen = 2
)

// len class boundaries per RFC 6455 §5.2.
const (
	len7Max  = 125
	len16Tag = 126
	len64Tag = 127
)
