package execute

import (
	"time"

	"testbox/internal/suite"
	"testbox/internal/summary"
)

// Result is the terminal report of one node.
type Result struct {
	Phase Phase
	// Err is nil exactly when Phase is PhaseSucceeded.
	Err error
	// Counts is set for units whose output was decoded.
	Counts  *summary.Counts
	Elapsed time.Duration
}

// Listener observes execution. Every node gets exactly one
// ExecutionStarted followed by exactly one ExecutionFinished. Calls come
// from a single goroutine.
type Listener interface {
	ExecutionStarted(n suite.Node)
	ExecutionFinished(n suite.Node, r Result)
}

// Listeners fans events out in order.
type Listeners []Listener

func (ls Listeners) ExecutionStarted(n suite.Node) {
	for _, l := range ls {
		l.ExecutionStarted(n)
	}
}

func (ls Listeners) ExecutionFinished(n suite.Node, r Result) {
	for _, l := range ls {
		l.ExecutionFinished(n, r)
	}
}

type nopListener struct{}

func (nopListener) ExecutionStarted(suite.Node)          {}
func (nopListener) ExecutionFinished(suite.Node, Result) {}
