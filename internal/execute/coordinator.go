// Package execute walks a discovery tree, runs every unit inside its
// container and reports each node to a Listener.
//
// Execution is sequential. A failing unit never stops its siblings: the
// failure is attached to the unit and aggregated upwards. Harness-level
// failures are additionally returned from Execute once the whole tree has
// been reported.
package execute

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"testbox/internal/container"
	"testbox/internal/suite"
	"testbox/internal/summary"
)

// HandleTable resolves container names to started containers.
type HandleTable interface {
	Lookup(name string) (container.Handle, bool)
}

// Coordinator runs the units of a tree.
type Coordinator struct {
	rt       container.Runtime
	handles  HandleTable
	listener Listener
	launcher Launcher
	env      []string
	workDir  string
	now      func() time.Time
}

// Clock reports the current time. Elapsed times are measured with it.
type Clock interface {
	Now() time.Time
}

type Option func(*Coordinator)

func WithClock(clk Clock) Option {
	return func(c *Coordinator) { c.now = clk.Now }
}

func WithListener(l Listener) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.listener = l
		}
	}
}

func WithLauncher(l Launcher) Option {
	return func(c *Coordinator) { c.launcher = l }
}

// WithEnv sets the environment of every unit command, as KEY=VALUE pairs.
func WithEnv(env []string) Option {
	return func(c *Coordinator) { c.env = env }
}

func WithWorkDir(dir string) Option {
	return func(c *Coordinator) { c.workDir = dir }
}

func NewCoordinator(rt container.Runtime, handles HandleTable, opts ...Option) *Coordinator {
	c := &Coordinator{
		rt:       rt,
		handles:  handles,
		listener: nopListener{},
		launcher: DefaultLauncher(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Execute reports the root, then every group and its units in order, and
// returns the root's result. The error is non-nil when any node hit a
// harness-level failure; every node has been reported regardless.
func (c *Coordinator) Execute(ctx context.Context, tree *suite.Tree) (Result, error) {
	var harness []error

	root := c.report(tree, func() Result {
		var results []Result
		for _, g := range tree.Groups() {
			r := c.report(g, func() Result {
				var units []Result
				for _, u := range g.Units() {
					ur := c.report(u, func() Result { return c.runUnit(ctx, u) })
					if ur.Err != nil && IsHarnessError(ur.Err) {
						harness = append(harness, ur.Err)
					}
					units = append(units, ur)
				}
				return aggregate(g.ID(), units)
			})
			results = append(results, r)
		}
		return aggregate(tree.ID(), results)
	})

	if len(harness) > 0 {
		return root, fmt.Errorf("%d unit(s) failed inside the harness: %w", len(harness), errors.Join(harness...))
	}
	return root, nil
}

// report brackets fn with the node's start and finish events.
func (c *Coordinator) report(n suite.Node, fn func() Result) Result {
	phase := PhaseNotStarted.Transition(PhaseStarted)
	c.listener.ExecutionStarted(n)

	start := c.now()
	r := fn()
	r.Elapsed = c.now().Sub(start)
	r.Phase = phase.Transition(r.Phase)

	c.listener.ExecutionFinished(n, r)
	return r
}

func (c *Coordinator) runUnit(ctx context.Context, u *suite.Unit) Result {
	spec := u.Spec()
	fqn := u.FullyQualifiedName()
	log := slog.With("unit", fqn, "container", spec.Name)

	h, ok := c.handles.Lookup(spec.Name)
	if !ok {
		return Result{Phase: PhaseFailed, Err: &ConsistencyError{
			Node: u.ID(),
			Msg:  fmt.Sprintf("no started container named %q", spec.Name),
		}}
	}

	log.Debug("Running unit.")
	out, err := c.rt.Exec(ctx, h, container.ExecRequest{
		Cmd:     LauncherCommand(c.launcher, fqn),
		Env:     c.env,
		WorkDir: c.workDir,
	})
	if err != nil {
		return Result{Phase: PhaseFailed, Err: &ExecError{Unit: fqn, Container: spec.Name, Err: err}}
	}

	counts, err := summary.Decode(out)
	if err != nil {
		log.Warn("Unreadable launcher output.", "err", err)
		return Result{Phase: PhaseFailed, Err: &MalformedOutputError{Unit: fqn, Container: spec.Name, Err: err}}
	}

	r := Verdict(fqn, spec.Name, counts)
	log.Debug("Unit finished.", "phase", r.Phase, "counts", counts.String())
	return r
}

// aggregate fails a parent when any child did not succeed. Each such child
// contributes one suppressed error.
func aggregate(node string, children []Result) Result {
	var suppressed []error
	for _, r := range children {
		if r.Phase == PhaseSucceeded {
			continue
		}
		err := r.Err
		if err == nil {
			err = fmt.Errorf("child finished %s", r.Phase)
		}
		suppressed = append(suppressed, err)
	}
	if len(suppressed) == 0 {
		return Result{Phase: PhaseSucceeded}
	}
	return Result{Phase: PhaseFailed, Err: &AggregateError{Node: node, Suppressed: suppressed}}
}
