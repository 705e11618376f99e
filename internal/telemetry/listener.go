package telemetry

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"testbox/internal/execute"
	"testbox/internal/suite"
)

const (
	NodeIDKey    = "testbox.node.id"
	NodeKindKey  = "testbox.node.kind"
	NodePhaseKey = "testbox.node.phase"
	ContainerKey = "testbox.container"
)

var _ execute.Listener = (*SpanListener)(nil)

type openSpan struct {
	ctx  context.Context
	span trace.Span
}

// SpanListener opens a span per node, nested the way the tree is. Events
// must arrive depth-first, which is how the coordinator emits them.
type SpanListener struct {
	tracer trace.Tracer
	parent context.Context
	stack  []openSpan
}

// NewSpanListener nests node spans under parent.
func NewSpanListener(parent context.Context, tracer trace.Tracer) *SpanListener {
	return &SpanListener{tracer: tracer, parent: parent}
}

func (l *SpanListener) ExecutionStarted(n suite.Node) {
	ctx := l.parent
	if len(l.stack) > 0 {
		ctx = l.stack[len(l.stack)-1].ctx
	}
	attrs := []attribute.KeyValue{
		attribute.String(NodeIDKey, n.ID()),
		attribute.String(NodeKindKey, n.Kind().String()),
	}
	if n.Kind() == suite.KindUnit {
		if spec, ok := n.ContainerSpec(); ok {
			attrs = append(attrs, attribute.String(ContainerKey, spec.Name))
		}
	}
	spanCtx, span := l.tracer.Start(ctx, n.DisplayName(), trace.WithAttributes(attrs...))
	l.stack = append(l.stack, openSpan{ctx: spanCtx, span: span})
}

func (l *SpanListener) ExecutionFinished(_ suite.Node, r execute.Result) {
	if len(l.stack) == 0 {
		return
	}
	top := l.stack[len(l.stack)-1]
	l.stack = l.stack[:len(l.stack)-1]

	top.span.SetAttributes(attribute.String(NodePhaseKey, r.Phase.String()))
	if r.Err != nil {
		top.span.RecordError(r.Err)
		top.span.SetStatus(codes.Error, strings.TrimSpace(r.Err.Error()))
	}
	top.span.End()
}
