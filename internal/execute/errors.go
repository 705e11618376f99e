package execute

import (
	"errors"
	"fmt"

	"testbox/internal/check"
	"testbox/internal/summary"
)

const (
	diagnosticFailed  = "Some tests failed. Check container logs"
	diagnosticAborted = "Some tests aborted. Check container logs"
)

// OutcomeError is the diagnostic attached to a unit whose remote run failed
// or aborted. Details live in the container logs; stack traces are never
// parsed.
type OutcomeError struct {
	Unit      string
	Container string
	Phase     Phase
	Counts    summary.Counts
}

func (e *OutcomeError) Error() string {
	if e.Phase == PhaseAborted {
		return diagnosticAborted
	}
	return diagnosticFailed
}

// ConsistencyError reports a defect in the harness itself, such as a unit
// whose container was never started.
type ConsistencyError struct {
	Node string
	Msg  string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("internal consistency error at %s: %s", e.Node, e.Msg)
}

func (e *ConsistencyError) Unwrap() error { return check.ErrPrecondition }

// MalformedOutputError reports launcher output without a readable summary
// block.
type MalformedOutputError struct {
	Unit      string
	Container string
	Err       error
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("unreadable launcher output for %s in %s: %v", e.Unit, e.Container, e.Err)
}

func (e *MalformedOutputError) Unwrap() error { return e.Err }

// InconclusiveError reports a summary that is neither a clean success nor a
// failure, for example zero tests found or only skipped tests.
type InconclusiveError struct {
	Unit   string
	Counts summary.Counts
}

func (e *InconclusiveError) Error() string {
	return fmt.Sprintf("inconclusive result for %s: %s", e.Unit, e.Counts)
}

// ExecError reports a runtime failure while running a unit's command.
type ExecError struct {
	Unit      string
	Container string
	Err       error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("run %s in %s: %v", e.Unit, e.Container, e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }

// AggregateError is the error of a group or root: one suppressed entry per
// child that did not succeed.
type AggregateError struct {
	Node       string
	Suppressed []error
}

func (e *AggregateError) Error() string {
	if len(e.Suppressed) == 1 {
		return fmt.Sprintf("%s: 1 child did not succeed", e.Node)
	}
	return fmt.Sprintf("%s: %d children did not succeed", e.Node, len(e.Suppressed))
}

func (e *AggregateError) Unwrap() []error { return e.Suppressed }

// IsHarnessError reports whether err, or anything it wraps, comes from the
// harness rather than from the tests it ran.
func IsHarnessError(err error) bool {
	var (
		consistency  *ConsistencyError
		malformed    *MalformedOutputError
		inconclusive *InconclusiveError
		execErr      *ExecError
	)
	return errors.As(err, &consistency) ||
		errors.As(err, &malformed) ||
		errors.As(err, &inconclusive) ||
		errors.As(err, &execErr)
}
