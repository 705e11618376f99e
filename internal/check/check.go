// Package check holds invariant helpers.
//
// Assert and Assertf are debug-build assertions that compile to no-ops in
// release builds. Precondition is always active: it reports a broken
// caller contract as an error instead of a panic so the harness can attach
// it to the node that triggered it.
package check

import (
	"errors"
	"fmt"
)

// ErrPrecondition marks a violated caller contract.
var ErrPrecondition = errors.New("precondition failed")

// Precondition returns nil when cond holds and an ErrPrecondition-wrapped
// error carrying msg otherwise.
func Precondition(cond bool, msg string) error {
	if cond {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrPrecondition, msg)
}

// Preconditionf is Precondition with a formatted message.
func Preconditionf(cond bool, format string, args ...any) error {
	if cond {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrPrecondition, fmt.Sprintf(format, args...))
}

func failure(msg string) string {
	return "assertion failed: " + msg
}
