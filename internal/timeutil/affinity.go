// File: internal/timeutil/affinity.go
//
// Thin re-export of affinity.SetAffinity for callers that otherwise only
// touch this package for timing: spec.md §1 groups "OS thread affinity"
// and "CPU cycle counter calibration" together as component F, "not hard
// engineering" — a wrapper, not a new implementation. Grounded on
// affinity/affinity.go's platform-neutral entry point.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package timeutil

import "github.com/momentics/lowlatency-wsclient/affinity"

// PinCurrentThread pins the calling OS thread to cpuID. Callers that want
// this guarantee must also call runtime.LockOSThread beforehand; this
// package does not do so itself since it would be surprising for a pure
// timing utility to silently change goroutine scheduling.
func PinCurrentThread(cpuID int) error {
	return affinity.SetAffinity(cpuID)
}
