// Package summary decodes the trailing summary block printed by the JUnit
// console launcher when run with --details=summary.
//
// The block is always the last BlockHeight lines of the output:
//
//	 0  Test run finished after 64 ms
//	 1  [         2 containers found      ]
//	 2  [         0 containers skipped    ]
//	 3  [         2 containers started    ]
//	 4  [         0 containers aborted    ]
//	 5  [         2 containers successful ]
//	 6  [         0 containers failed     ]
//	 7  [         1 tests found           ]
//	 8  [         0 tests skipped         ]
//	 9  [         1 tests started         ]
//	10  [         0 tests aborted         ]
//	11  [         1 tests successful      ]
//	12  [         0 tests failed          ]
//
// Decoding is deliberately narrow. Anything that does not fit this shape is
// ErrMalformed; the decoder never searches the output for a block.
package summary

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// BlockHeight is the number of lines of the summary block.
	BlockHeight = 13

	LineSkipped    = 8
	LineAborted    = 10
	LineSuccessful = 11
	LineFailed     = 12
)

// ErrMalformed reports output that does not end in a summary block.
var ErrMalformed = errors.New("malformed launcher output")

// Counts are the test counters of one launcher invocation.
type Counts struct {
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
	Aborted    int `json:"aborted"`
	Skipped    int `json:"skipped"`
}

func (c Counts) String() string {
	return fmt.Sprintf("successful=%d failed=%d aborted=%d skipped=%d", c.Successful, c.Failed, c.Aborted, c.Skipped)
}

// Decode reads the counters from the last BlockHeight lines of raw.
func Decode(raw string) (Counts, error) {
	lines := lastLines(raw, BlockHeight)
	if len(lines) < BlockHeight {
		return Counts{}, fmt.Errorf("%w: got %d lines, want at least %d", ErrMalformed, len(lines), BlockHeight)
	}

	var c Counts
	fields := []struct {
		offset int
		dst    *int
	}{
		{LineSuccessful, &c.Successful},
		{LineFailed, &c.Failed},
		{LineAborted, &c.Aborted},
		{LineSkipped, &c.Skipped},
	}
	for _, f := range fields {
		n, err := countOf(lines[f.offset])
		if err != nil {
			return Counts{}, fmt.Errorf("%w: summary line %d: %v", ErrMalformed, f.offset, err)
		}
		*f.dst = n
	}
	return c, nil
}

// lastLines splits raw on newlines, ignoring trailing empty lines and
// carriage returns, and returns at most n lines from the end.
func lastLines(raw string, n int) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	lines := strings.Split(raw, "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}

func countOf(line string) (int, error) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, line)
	if digits == "" {
		return 0, fmt.Errorf("no count in %q", strings.TrimSpace(line))
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, fmt.Errorf("parse count in %q: %w", strings.TrimSpace(line), err)
	}
	return n, nil
}
