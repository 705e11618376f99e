package summary

import (
	"fmt"
	"strings"
	"time"
)

// Format renders c as the launcher would print it. Container counters are
// derived from the test counters; only the test lines are read back by
// Decode.
func Format(c Counts, elapsed time.Duration) string {
	started := c.Successful + c.Failed + c.Aborted
	found := started + c.Skipped

	var sb strings.Builder
	fmt.Fprintf(&sb, "Test run finished after %d ms\n", elapsed.Milliseconds())
	row := func(n int, label string) {
		fmt.Fprintf(&sb, "[%10d %-21s]\n", n, label)
	}
	row(2, "containers found")
	row(0, "containers skipped")
	row(2, "containers started")
	row(0, "containers aborted")
	row(2, "containers successful")
	row(0, "containers failed")
	row(found, "tests found")
	row(c.Skipped, "tests skipped")
	row(started, "tests started")
	row(c.Aborted, "tests aborted")
	row(c.Successful, "tests successful")
	row(c.Failed, "tests failed")
	return sb.String()
}
