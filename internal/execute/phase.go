package execute

import (
	"strings"

	"testbox/internal/check"
)

// Phase is the lifecycle position of one node.
type Phase uint8

const (
	PhaseNotStarted Phase = iota + 1
	PhaseStarted
	PhaseSucceeded
	PhaseFailed
	PhaseAborted
)

func (p Phase) String() string {
	switch p {
	case PhaseNotStarted:
		return "not_started"
	case PhaseStarted:
		return "started"
	case PhaseSucceeded:
		return "succeeded"
	case PhaseFailed:
		return "failed"
	case PhaseAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

func (p Phase) IsValid() bool {
	switch p {
	case PhaseNotStarted, PhaseStarted, PhaseSucceeded, PhaseFailed, PhaseAborted:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition is allowed.
func (p Phase) IsTerminal() bool {
	return p == PhaseSucceeded || p == PhaseFailed || p == PhaseAborted
}

func (p Phase) Transition(to Phase) Phase {
	ok := false
	switch p {
	case PhaseNotStarted:
		ok = to == PhaseStarted
	case PhaseStarted:
		ok = to.IsTerminal()
	case PhaseSucceeded, PhaseFailed, PhaseAborted:
		ok = false
	}
	check.Assertf(ok, "execution phase transition: %s -> %s", p, to)
	if !ok {
		return p
	}
	return to
}

func ParsePhase(raw string) (Phase, bool) {
	switch strings.TrimSpace(raw) {
	case "not_started":
		return PhaseNotStarted, true
	case "started":
		return PhaseStarted, true
	case "succeeded":
		return PhaseSucceeded, true
	case "failed":
		return PhaseFailed, true
	case "aborted":
		return PhaseAborted, true
	default:
		return 0, false
	}
}
