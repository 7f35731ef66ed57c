// File: wsclient/stats.go
//
// Stats is a narrower, purpose-built snapshot in place of the teacher's
// generic mutable MetricsRegistry (control/metrics.go): ring buffer
// occupancy, TLS mode, cipher name, the latest timestamp breakdown, and
// NIC timestamp availability, gathered by one Context.Stats() call. This
// is additive per SPEC_FULL.md — every individual accessor
// (State/CipherName/TLSMode/...) spec.md §4.E names is still exposed on
// its own.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package wsclient

import "github.com/momentics/lowlatency-wsclient/transport"

// Stats is a point-in-time snapshot of a Context, grounded on
// control/metrics.go's GetSnapshot "read-only copy" shape.
type Stats struct {
	State          State
	CipherName     string
	TLSMode        transport.Mode
	HwTsEnabled    bool
	RXAvailable    int
	RXCapacity     int
	TXAvailable    int
	TXCapacity     int
	RXMirrored     bool
	TXMirrored     bool
	LastTimestamps Timestamps

	// Batch processing statistics, mirroring the original client's
	// ws_get_last_batch_size/ws_get_max_batch_size/ws_get_total_batches/
	// ws_get_avg_batch_size surface (see SPEC_FULL.md's SUPPLEMENTED
	// FEATURES).
	LastBatchSize        int
	MaxBatchSizeObserved int
	TotalBatches         uint64
	TotalMessages        uint64
	AvgBatchSize         float64
}

// Stats gathers a snapshot of the context's current state.
func (c *Context) Stats() Stats {
	return Stats{
		State:          c.state,
		CipherName:     c.transport.CipherName(),
		TLSMode:        c.transport.Mode(),
		HwTsEnabled:    c.transport.HwTsEnabled(),
		RXAvailable:    c.rx.AvailableRead(),
		RXCapacity:     c.rx.Cap(),
		TXAvailable:    c.tx.AvailableRead(),
		TXCapacity:     c.tx.Cap(),
		RXMirrored:     c.rx.IsMirrored(),
		TXMirrored:     c.tx.IsMirrored(),
		LastTimestamps: c.ts,

		LastBatchSize:        c.lastBatchSize,
		MaxBatchSizeObserved: c.maxBatchSizeSeen,
		TotalBatches:         c.totalBatches,
		TotalMessages:        c.totalMessages,
		AvgBatchSize:         c.AvgBatchSize(),
	}
}
