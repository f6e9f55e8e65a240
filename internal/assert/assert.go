// Package assert implements the strict-mode contract checks used across the
// trace recording core.
//
// The core has no error returns on its hot paths: misuse of the writer API
// (double-consuming a value node, writing outside the active scope, malformed
// category patterns) is a programmer error, not a runtime condition. With
// strict mode on, violations panic with a descriptive message; with strict
// mode off every check reduces to a single atomic load, so production
// embedders can opt into zero-overhead operation.
//
// Strict mode is on by default so that test builds always get full checking.
package assert

import (
	"fmt"
	"sync/atomic"
)

var strict atomic.Bool

func init() {
	strict.Store(true)
}

// Enable turns strict contract checking on.
func Enable() {
	strict.Store(true)
}

// Disable turns strict contract checking off. Violations become silent
// no-ops; the API shape (consume-once builders) remains the real discipline.
func Disable() {
	strict.Store(false)
}

// Enabled reports whether strict checking is active.
func Enabled() bool {
	return strict.Load()
}

// That panics with msg if cond is false and strict mode is on.
func That(cond bool, msg string) {
	if !cond && strict.Load() {
		panic("trackevent: " + msg)
	}
}

// Thatf is That with formatting. The arguments are only evaluated on failure.
func Thatf(cond bool, format string, args ...any) {
	if !cond && strict.Load() {
		panic("trackevent: " + fmt.Sprintf(format, args...))
	}
}

// Fail unconditionally reports a contract violation in strict mode.
func Fail(msg string) {
	if strict.Load() {
		panic("trackevent: " + msg)
	}
}
