//go:build !(linux && amd64)

// File: internal/timeutil/cycles_fallback.go
//
// Portable fallback tick source for platforms without a direct RDTSC
// shim: time.Now()'s monotonic reading already advances in nanoseconds,
// so the conversion factor collapses to 1.0 and ToNanos is an identity.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package timeutil

import "time"

var processStart = time.Now()

func readTicks() uint64 {
	return uint64(time.Since(processStart).Nanoseconds())
}

func calibrateFactor() float64 {
	return 1.0
}
