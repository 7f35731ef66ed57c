// File: wsclient/timestamps.go
//
// Per-message latency breakdown: the three cycle-counter stamps spec.md
// §3 requires (t_event, t_decrypt, t_callback) plus the optional NIC
// hardware receive timestamp. Captured in strict order by Context.Update
// and the DrainFrames callback wrapper, using internal/timeutil's
// monotonic counter (component F, "excluded from core" per spec.md §1 —
// a utility this package consumes, not reimplements).
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package wsclient

// Timestamps holds the latency breakdown for the most recently delivered
// inbound message. All three cycle fields are raw ticks from the
// context's timeutil.Counter; convert with Context's Counter() and
// ToNanos for a nanosecond breakdown.
type Timestamps struct {
	// TEvent is stamped at entry into the Update pass that delivers the
	// message.
	TEvent uint64
	// TDecrypt is stamped immediately after the first successful
	// transport recv in this Update pass yielded bytes.
	TDecrypt uint64
	// TCallback is stamped at the first instruction of the application
	// message callback.
	TCallback uint64
	// TNic is the NIC hardware (or software-fallback) receive timestamp
	// in nanoseconds, extracted from socket ancillary data; zero/HasTNic
	// false when hardware timestamping is not enabled or unavailable for
	// this message.
	TNic    uint64
	HasTNic bool
}
