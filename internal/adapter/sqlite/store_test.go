package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"testbox/internal/adapter/fake"
	"testbox/internal/container"
	"testbox/internal/execute"
	"testbox/internal/suite"
	"testbox/internal/summary"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history", "runs.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreRunLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t)
	clock := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }

	first, err := store.BeginRun(ctx, "suite.yaml")
	if err != nil {
		t.Fatalf("BeginRun() error = %v", err)
	}
	clock = clock.Add(time.Minute)
	second, err := store.BeginRun(ctx, "suite.toml")
	if err != nil {
		t.Fatalf("BeginRun() error = %v", err)
	}
	if first.ID == second.ID {
		t.Fatal("run ids must be unique")
	}

	clock = clock.Add(time.Minute)
	if err := store.FinishRun(ctx, first.ID, StatusPassed); err != nil {
		t.Fatalf("FinishRun() error = %v", err)
	}
	if err := store.FinishRun(ctx, "missing", StatusPassed); err == nil {
		t.Fatal("FinishRun(missing) expected error")
	}

	runs, err := store.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 2 || runs[0].ID != second.ID {
		t.Fatalf("ListRuns() = %+v, want newest first", runs)
	}
	if runs[0].Status != StatusRunning || !runs[0].FinishedAt.IsZero() {
		t.Fatalf("second run = %+v, want running and unfinished", runs[0])
	}

	got, ok, err := store.GetRun(ctx, first.ID)
	if err != nil || !ok {
		t.Fatalf("GetRun() = %v, %v", ok, err)
	}
	if got.Status != StatusPassed || !got.FinishedAt.Equal(clock) || got.Manifest != "suite.yaml" {
		t.Fatalf("GetRun() = %+v", got)
	}

	limited, err := store.ListRuns(ctx, 1)
	if err != nil {
		t.Fatalf("ListRuns(1) error = %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("ListRuns(1) len = %d", len(limited))
	}

	if _, ok, err := store.GetRun(ctx, "missing"); err != nil || ok {
		t.Fatalf("GetRun(missing) = %v, %v", ok, err)
	}
}

type handleMap map[string]container.Handle

func (m handleMap) Lookup(name string) (container.Handle, bool) {
	h, ok := m[name]
	return h, ok
}

func TestRecorderStoresEveryNode(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t)
	run, err := store.BeginRun(ctx, "suite.yaml")
	if err != nil {
		t.Fatalf("BeginRun() error = %v", err)
	}

	spec := suite.ContainerSpec{Name: "c1", Image: "img"}
	tree := suite.NewTree("")
	g, _ := tree.AddGroup("G", &spec)
	ok, _ := g.AddUnit("ok", spec)
	bad, _ := g.AddUnit("bad", spec)

	rt := fake.NewContainerRuntime()
	h, err := rt.Start(ctx, spec, container.StartOptions{})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	rt.SetOutput(ok.FullyQualifiedName(), summary.Format(summary.Counts{Successful: 1}, 0))
	rt.SetOutput(bad.FullyQualifiedName(), summary.Format(summary.Counts{Aborted: 1}, 0))

	rec := NewRecorder(ctx, store, run.ID)
	if _, err := execute.NewCoordinator(rt, handleMap{"c1": h}, execute.WithListener(rec)).Execute(ctx, tree); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if err := rec.Err(); err != nil {
		t.Fatalf("Recorder.Err() = %v", err)
	}

	records, err := store.NodeResults(ctx, run.ID)
	if err != nil {
		t.Fatalf("NodeResults() error = %v", err)
	}
	var got [][3]string
	for _, r := range records {
		got = append(got, [3]string{r.NodeID, r.Kind, r.Phase})
	}
	want := [][3]string{
		{ok.ID(), "unit", "succeeded"},
		{bad.ID(), "unit", "aborted"},
		{g.ID(), "group", "failed"},
		{tree.ID(), "root", "failed"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("node results mismatch (-want +got):\n%s", diff)
	}
	if records[1].Message != "Some tests aborted. Check container logs" {
		t.Fatalf("aborted message = %q", records[1].Message)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(" "); err == nil {
		t.Fatal("Open() expected error for empty path")
	}
}
