package fake

import (
	"sync"
	"time"
)

// Clock is a manual clock satisfying execute.Clock. With a non-zero step
// every reading moves it forward, so each measured interval is a whole
// number of steps.
type Clock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// NewSteppingClock returns a Clock that advances by step after every Now.
func NewSteppingClock(start time.Time, step time.Duration) *Clock {
	return &Clock{now: start, step: step}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// Advance moves the clock forward by d, for example from an ExecFunc to
// simulate a slow unit.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
