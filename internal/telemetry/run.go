// Package telemetry records a run as OpenTelemetry spans: one span for the
// run, one per pipeline step and one per executed node.
package telemetry

import (
	"context"
	"slices"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"testbox/internal/execute"
	"testbox/internal/suite"
)

const (
	RunSpanName        = "testbox.run"
	DiscoveredEvent    = "testbox.discovered"
	RunIDKey           = "testbox.run.id"
	RunPhaseKey        = "testbox.run.phase"
	DiscoveredUnitsKey = "testbox.discovered.units"
	ContainersKey      = "testbox.discovered.containers"
)

// Step is a stage of the pipeline, traced as a child span of the run.
type Step string

const (
	StepDiscover  Step = "discover"
	StepProvision Step = "provision"
	StepExecute   Step = "execute"
)

// Run is the root span of one run. Every method is safe on a nil *Run and
// then records nothing.
type Run struct {
	ctx    context.Context
	tracer trace.Tracer
	span   trace.Span
}

// StartRun opens the span of run runID. It returns nil when tracer is nil.
func StartRun(ctx context.Context, tracer trace.Tracer, runID string) *Run {
	if tracer == nil {
		return nil
	}
	spanCtx, span := tracer.Start(ctx, RunSpanName, trace.WithAttributes(attribute.String(RunIDKey, runID)))
	return &Run{ctx: spanCtx, tracer: tracer, span: span}
}

// Context carries the run span, or is ctx unchanged for a nil run.
func (r *Run) Context(ctx context.Context) context.Context {
	if r == nil {
		return ctx
	}
	return r.ctx
}

// Step runs fn inside a span for step.
func (r *Run) Step(ctx context.Context, step Step, fn func(context.Context) error) error {
	if r == nil {
		return fn(ctx)
	}
	stepCtx, span := r.tracer.Start(ctx, string(step))
	defer span.End()

	err := fn(stepCtx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, strings.TrimSpace(err.Error()))
	}
	return err
}

// Discovered adds an event to the run span listing the units of tree and
// the containers they need.
func (r *Run) Discovered(tree *suite.Tree) {
	if r == nil || tree == nil {
		return
	}
	var units, containers []string
	for _, u := range tree.Units() {
		units = append(units, u.FullyQualifiedName())
		if name := u.Spec().Name; !slices.Contains(containers, name) {
			containers = append(containers, name)
		}
	}
	slices.Sort(containers)
	r.span.AddEvent(DiscoveredEvent, trace.WithAttributes(
		attribute.StringSlice(DiscoveredUnitsKey, units),
		attribute.StringSlice(ContainersKey, containers),
	))
}

// Nodes returns a listener nesting one span per tree node under ctx, which
// is normally the context of the execute step.
func (r *Run) Nodes(ctx context.Context) execute.Listener {
	if r == nil {
		return execute.Listeners(nil)
	}
	return NewSpanListener(ctx, r.tracer)
}

// End closes the run span with the root phase. err, or failing that the
// root's own error, becomes the span's error status.
func (r *Run) End(root execute.Result, err error) {
	if r == nil {
		return
	}
	if root.Phase.IsValid() {
		r.span.SetAttributes(attribute.String(RunPhaseKey, root.Phase.String()))
	}
	if err == nil {
		err = root.Err
	}
	if err != nil {
		r.span.RecordError(err)
		r.span.SetStatus(codes.Error, strings.TrimSpace(err.Error()))
	}
	r.span.End()
}
