// Package diag is the WS_DEBUG / WS_DEBUG_KTLS diagnostic channel:
// a github.com/hashicorp/go-hclog logger held on the context, silent by
// default and only switched on when the corresponding environment
// variable is the literal string "1", per spec.md §6. This is purely
// diagnostic — it never sits on the hot receive/send path and never
// gates correctness, matching the pack's hclog usage in
// nabbar-golib/logger/hclog.go while staying out of that file's
// bespoke Logger-interface adaptation (this client has no competing
// logging façade to bridge, so it uses hclog directly).
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package diag

import (
	"os"

	"github.com/hashicorp/go-hclog"
)

// New constructs the context's diagnostic logger. name identifies the
// subsystem in log output ("wsclient", "ktls", ...). It is silent
// (hclog.NewNullLogger) unless envVar is literal "1", in which case a
// leveled logger writing to stderr at Debug level is installed.
func New(name, envVar string) hclog.Logger {
	if os.Getenv(envVar) != "1" {
		return hclog.NewNullLogger()
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:  name,
		Level: hclog.Debug,
		Output: os.Stderr,
	})
}
