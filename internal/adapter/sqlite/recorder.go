package sqlite

import (
	"context"
	"log/slog"

	"testbox/internal/execute"
	"testbox/internal/suite"
)

var _ execute.Listener = (*Recorder)(nil)

// Recorder writes every finished node of one run to the store. Write
// failures are logged and kept; they never interrupt execution.
type Recorder struct {
	ctx   context.Context
	store *Store
	runID string
	err   error
}

func NewRecorder(ctx context.Context, store *Store, runID string) *Recorder {
	return &Recorder{ctx: ctx, store: store, runID: runID}
}

func (r *Recorder) ExecutionStarted(suite.Node) {}

func (r *Recorder) ExecutionFinished(n suite.Node, res execute.Result) {
	rec := NodeRecord{
		NodeID:  n.ID(),
		Kind:    n.Kind().String(),
		Phase:   res.Phase.String(),
		Elapsed: res.Elapsed,
	}
	if res.Err != nil {
		rec.Message = res.Err.Error()
	}
	if err := r.store.RecordNode(r.ctx, r.runID, rec); err != nil {
		slog.Warn("Failed to record node result.", "node", n.ID(), "err", err)
		if r.err == nil {
			r.err = err
		}
	}
}

// Err returns the first write failure.
func (r *Recorder) Err() error { return r.err }
