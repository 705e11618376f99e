package execute

import "testbox/internal/summary"

// Verdict maps decoded counts to a terminal result. Only a run with at
// least one success and nothing failed, aborted or skipped succeeds.
func Verdict(unit, container string, c summary.Counts) Result {
	r := Result{Counts: &c}
	switch {
	case c.Successful > 0 && c.Failed == 0 && c.Aborted == 0 && c.Skipped == 0:
		r.Phase = PhaseSucceeded
	case c.Aborted > 0:
		r.Phase = PhaseAborted
		r.Err = &OutcomeError{Unit: unit, Container: container, Phase: PhaseAborted, Counts: c}
	case c.Failed > 0:
		r.Phase = PhaseFailed
		r.Err = &OutcomeError{Unit: unit, Container: container, Phase: PhaseFailed, Counts: c}
	default:
		r.Phase = PhaseFailed
		r.Err = &InconclusiveError{Unit: unit, Counts: c}
	}
	return r
}
