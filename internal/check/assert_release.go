//go:build !debug

package check

// Assert is a no-op in release builds; use Precondition for checks that must
// hold in production.
func Assert(bool, string) {}

// Assertf is a no-op in release builds.
func Assertf(bool, string, ...any) {}
