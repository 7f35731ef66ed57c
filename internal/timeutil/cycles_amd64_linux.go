//go:build linux && amd64

// File: internal/timeutil/cycles_amd64_linux.go
//
// RDTSC-backed tick source for linux/amd64, via a cgo shim in the same
// spirit as affinity/affinity_linux.go's go_setaffinity: a tiny inline C
// function wrapping a single intrinsic.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package timeutil

/*
#include <stdint.h>

static inline uint64_t go_rdtsc(void) {
	unsigned int lo, hi;
	__asm__ __volatile__("rdtsc" : "=a"(lo), "=d"(hi));
	return ((uint64_t)hi << 32) | lo;
}
*/
import "C"
import "time"

func readTicks() uint64 {
	return uint64(C.go_rdtsc())
}

// calibrateFactor measures the TSC frequency over a short wall-clock
// window. A 1ms calibration window is cheap enough to run once at
// startup and precise enough for latency-breakdown reporting (not for
// sub-nanosecond accounting).
func calibrateFactor() float64 {
	const window = time.Millisecond
	start := readTicks()
	t0 := time.Now()
	for time.Since(t0) < window {
	}
	elapsedTicks := readTicks() - start
	elapsedNanos := float64(time.Since(t0).Nanoseconds())
	if elapsedTicks == 0 {
		return 1.0
	}
	return elapsedNanos / float64(elapsedTicks)
}
