// File: wsclient/config.go
//
// Context construction options. Grounded on lowlevel/client/facade.go's
// Config/DefaultConfig shape (a plain struct with a constructor filling
// in sane defaults), narrowed from the teacher's batch/NUMA/heartbeat
// knobs to what this profile's Init needs beyond the URL: ring buffer
// sizes, an optional diagnostic name, and a per-Update message cap
// (MaxBatchSize).
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package wsclient

// defaultRingSize is large enough to hold several typical market-data
// messages without forcing an Update call mid-message, small enough to
// stay cache- and TLB-friendly. Must be a power of two (ringbuf.New
// rejects anything else).
const defaultRingSize = 64 * 1024

// Options configures a Context at Init time.
type Options struct {
	// RXRingSize and TXRingSize are the power-of-two byte capacities of
	// the receive and send ring buffers. Zero selects defaultRingSize.
	RXRingSize uint64
	TXRingSize uint64

	// DiagName tags this context's WS_DEBUG log lines when more than one
	// connection runs in the same process (each in its own Context,
	// never shared across goroutines per spec.md §5).
	DiagName string

	// MaxBatchSize caps how many messages DrainFrames delivers in a single
	// Update pass before leaving the remainder in the RX ring for the next
	// pass. Zero means unlimited (process everything already buffered),
	// mirroring the original client's max_messages_per_update throttle
	// (ws_set_max_batch_size in the upstream C implementation).
	MaxBatchSize int
}

// DefaultOptions returns the zero-value-safe defaults Init falls back to
// when the caller passes a zero Options.
func DefaultOptions() Options {
	return Options{
		RXRingSize: defaultRingSize,
		TXRingSize: defaultRingSize,
		DiagName:   "wsclient",
	}
}

func (o Options) withDefaults() Options {
	if o.RXRingSize == 0 {
		o.RXRingSize = defaultRingSize
	}
	if o.TXRingSize == 0 {
		o.TXRingSize = defaultRingSize
	}
	if o.DiagName == "" {
		o.DiagName = "wsclient"
	}
	return o
}
