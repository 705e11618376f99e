//go:build debug

package check

import "fmt"

// Assert panics if cond is false. Only active in debug builds.
func Assert(cond bool, msg string) {
	if cond {
		return
	}
	panic(failure(msg))
}

// Assertf panics with a formatted message if cond is false. Only active in
// debug builds.
func Assertf(cond bool, format string, args ...any) {
	if cond {
		return
	}
	panic(failure(fmt.Sprintf(format, args...)))
}
