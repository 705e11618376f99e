package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"testbox/internal/adapter/fake"
	"testbox/internal/container"
	"testbox/internal/discovery"
	"testbox/internal/execute"
	"testbox/internal/orchestrate"
	"testbox/internal/suite"
	"testbox/internal/summary"
)

type mapSource struct {
	groups map[string]suite.ContainerSpec
	units  map[string]suite.ContainerSpec
}

func (m mapSource) GroupSpec(g discovery.GroupCandidate) (suite.ContainerSpec, bool) {
	s, ok := m.groups[g.ID]
	return s, ok
}

func (m mapSource) UnitSpec(g discovery.GroupCandidate, u discovery.UnitCandidate) (suite.ContainerSpec, bool) {
	s, ok := m.units[g.ID+"#"+u.Name]
	return s, ok
}

type phases map[string]execute.Phase

func (p phases) ExecutionStarted(suite.Node) {}

func (p phases) ExecutionFinished(n suite.Node, r execute.Result) {
	p[n.ID()] = r.Phase
}

func pass() string { return summary.Format(summary.Counts{Successful: 1}, 0) }
func fail() string { return summary.Format(summary.Counts{Failed: 1}, 0) }

func candidates(groups map[string][]string, order ...string) []discovery.GroupCandidate {
	var out []discovery.GroupCandidate
	for _, id := range order {
		g := discovery.GroupCandidate{ID: id, Public: true}
		for _, name := range groups[id] {
			g.Units = append(g.Units, discovery.UnitCandidate{Name: name, Public: true})
		}
		out = append(out, g)
	}
	return out
}

func TestRunEndToEnd(t *testing.T) {
	rt := fake.NewContainerRuntime()
	rt.DefaultOutput = pass()
	rt.SetOutput("com.example.B#breaks", fail())

	seen := phases{}
	recorder := tracetest.NewSpanRecorder()
	tracer := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)).Tracer("pipeline-test")

	req := Request{
		RunID: "run-1",
		Candidates: candidates(map[string][]string{
			"com.example.A": {"one", "two"},
			"com.example.B": {"works", "breaks"},
		}, "com.example.A", "com.example.B"),
		Source: mapSource{groups: map[string]suite.ContainerSpec{
			"com.example.A": {Name: "c1", Image: "img1"},
			"com.example.B": {Name: "c2", Image: "img2"},
		}},
		Provision: orchestrate.Options{Build: &container.ExecRequest{Cmd: []string{"gradle", "testClasses"}}},
		Listeners: []execute.Listener{seen},
		Tracer:    tracer,
	}

	report, err := Run(context.Background(), rt, req)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Passed() {
		t.Fatal("Report.Passed() = true, want false")
	}
	if report.Tree.Len() != 4 {
		t.Fatalf("tree units = %d, want 4", report.Tree.Len())
	}

	a, _ := report.Tree.Group("com.example.A")
	b, _ := report.Tree.Group("com.example.B")
	if seen[a.ID()] != execute.PhaseSucceeded || seen[b.ID()] != execute.PhaseFailed {
		t.Fatalf("group phases = %s, %s", seen[a.ID()], seen[b.ID()])
	}
	if n := len(rt.Started()); n != 2 {
		t.Fatalf("Start calls = %d, want 2", n)
	}
	// Two build steps plus four units.
	if n := len(rt.Execs()); n != 6 {
		t.Fatalf("Exec calls = %d, want 6", n)
	}
	if len(rt.Running()) != 0 {
		t.Fatalf("containers left running: %v", rt.Running())
	}

	var names []string
	for _, s := range recorder.Ended() {
		if s.Name() == "testbox.run" || s.Name() == "discover" || s.Name() == "provision" || s.Name() == "execute" {
			names = append(names, s.Name())
		}
	}
	if diff := cmp.Diff([]string{"discover", "execute", "provision", "testbox.run"}, names); diff != "" {
		t.Fatalf("step spans mismatch (-want +got):\n%s", diff)
	}

	var execSpan, rootNode sdktrace.ReadOnlySpan
	for _, s := range recorder.Ended() {
		switch s.Name() {
		case "execute":
			execSpan = s
		case suite.DefaultEngineID:
			rootNode = s
		}
	}
	if execSpan == nil || rootNode == nil {
		t.Fatal("missing execute or root node span")
	}
	if rootNode.Parent().SpanID() != execSpan.SpanContext().SpanID() {
		t.Fatal("node spans should nest under the execute step")
	}
}

func TestRunConfigErrorReportsNothing(t *testing.T) {
	rt := fake.NewContainerRuntime()
	seen := phases{}

	_, err := Run(context.Background(), rt, Request{
		Candidates: candidates(map[string][]string{"A": {"x"}, "B": {"y"}}, "A", "B"),
		Source: mapSource{groups: map[string]suite.ContainerSpec{
			"A": {Name: "c1", Image: "imgA"},
			"B": {Name: "c1", Image: "imgB"},
		}},
		Listeners: []execute.Listener{seen},
	})

	var cfgErr *orchestrate.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Run() error = %v, want *ConfigError", err)
	}
	if len(rt.Started()) != 0 || len(seen) != 0 {
		t.Fatalf("expected no starts and no reports, got %d starts and %d reports", len(rt.Started()), len(seen))
	}
}

func TestRunHarnessErrorKeepsReport(t *testing.T) {
	rt := fake.NewContainerRuntime()
	rt.DefaultOutput = pass()
	rt.SetOutput("G#garbled", "no summary here")

	report, err := Run(context.Background(), rt, Request{
		Candidates: candidates(map[string][]string{"G": {"fine", "garbled"}}, "G"),
		Source:     mapSource{groups: map[string]suite.ContainerSpec{"G": {Name: "c1", Image: "img"}}},
	})
	if !execute.IsHarnessError(err) {
		t.Fatalf("Run() error = %v, want harness error", err)
	}
	if report.Root.Phase != execute.PhaseFailed {
		t.Fatalf("root phase = %s, want failed", report.Root.Phase)
	}
	if len(rt.Running()) != 0 {
		t.Fatalf("containers left running: %v", rt.Running())
	}
}

func TestDiscoverRequiresSource(t *testing.T) {
	if _, err := Discover(context.Background(), Request{}); err == nil {
		t.Fatal("Discover() expected error without a metadata source")
	}
}
