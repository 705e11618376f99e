// Package pipeline runs discovery, provisioning, execution and teardown in
// order for one request.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"testbox/internal/container"
	"testbox/internal/discovery"
	"testbox/internal/execute"
	"testbox/internal/orchestrate"
	"testbox/internal/suite"
	"testbox/internal/telemetry"
)

// Request describes one run.
type Request struct {
	RunID      string
	Candidates []discovery.GroupCandidate
	Source     discovery.MetadataSource
	Filter     discovery.Filter
	EngineID   string
	Provision  orchestrate.Options
	// Execute configures the coordinator. Listeners are added separately.
	Execute   []execute.Option
	Listeners []execute.Listener
	// Tracer enables span recording when set.
	Tracer trace.Tracer
}

// Report is what a run produced. Tree is nil when discovery failed; Root is
// zero when execution never started.
type Report struct {
	Tree *suite.Tree
	Root execute.Result
}

// Passed reports whether every unit succeeded.
func (r Report) Passed() bool {
	return r.Root.Phase == execute.PhaseSucceeded
}

// Discover builds the tree for req without starting any container.
func Discover(ctx context.Context, req Request) (*suite.Tree, error) {
	if req.Source == nil {
		return nil, fmt.Errorf("discover: metadata source is required")
	}
	b := discovery.NewBuilder(discovery.NewRegistry(req.Source),
		discovery.WithEngineID(req.EngineID),
		discovery.WithFilter(req.Filter),
	)
	return b.Discover(ctx, req.Candidates)
}

// Run discovers the tree, starts its containers, executes every unit and
// tears the containers down. Configuration and provisioning errors return
// before any node is reported. A harness error from execution is returned
// together with the full report.
func Run(ctx context.Context, rt container.Runtime, req Request) (report Report, err error) {
	run := telemetry.StartRun(ctx, req.Tracer, req.RunID)
	ctx = run.Context(ctx)
	defer func() { run.End(report.Root, err) }()

	err = run.Step(ctx, telemetry.StepDiscover, func(ctx context.Context) error {
		tree, err := Discover(ctx, req)
		report.Tree = tree
		return err
	})
	if err != nil {
		return report, err
	}
	run.Discovered(report.Tree)
	slog.Info("Discovered units.", "groups", len(report.Tree.Groups()), "units", report.Tree.Len())

	err = run.Step(ctx, telemetry.StepProvision, func(ctx context.Context) error {
		return orchestrate.Provision(ctx, rt, report.Tree, req.Provision, func(ctx context.Context, handles orchestrate.Handles) error {
			return run.Step(ctx, telemetry.StepExecute, func(ctx context.Context) error {
				listeners := append(execute.Listeners{run.Nodes(ctx)}, req.Listeners...)
				opts := append(append([]execute.Option{}, req.Execute...), execute.WithListener(listeners))
				var execErr error
				report.Root, execErr = execute.NewCoordinator(rt, handles, opts...).Execute(ctx, report.Tree)
				return execErr
			})
		})
	})
	return report, err
}
