package fake

import (
	"sync"

	"testbox/internal/container"
	"testbox/internal/suite"
)

// Op names a container.Runtime method.
type Op string

const (
	OpStart Op = "start"
	OpStop  Op = "stop"
	OpExec  Op = "exec"
)

// Call is one recorded runtime invocation. Spec and Opts are set for starts,
// Handle for stops and execs, Req for execs. Err is what the call returned.
type Call struct {
	Op     Op
	Spec   suite.ContainerSpec
	Opts   container.StartOptions
	Handle container.Handle
	Req    container.ExecRequest
	Err    error
}

// CallRecorder keeps the runtime calls of a fake in order.
type CallRecorder struct {
	mu    sync.Mutex
	calls []Call
}

func (r *CallRecorder) record(c Call) {
	r.mu.Lock()
	r.calls = append(r.calls, c)
	r.mu.Unlock()
}

// Calls returns the recorded calls of op, or every call when op is "".
func (r *CallRecorder) Calls(op Op) []Call {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Call
	for _, c := range r.calls {
		if op == "" || c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Started returns the names of every container a start was attempted for,
// failed attempts included.
func (r *CallRecorder) Started() []string {
	var names []string
	for _, c := range r.Calls(OpStart) {
		names = append(names, c.Spec.Name)
	}
	return names
}

// Stopped returns the handles passed to Stop.
func (r *CallRecorder) Stopped() []container.Handle {
	var hs []container.Handle
	for _, c := range r.Calls(OpStop) {
		hs = append(hs, c.Handle)
	}
	return hs
}

// Execs returns the exec requests in the order they were made.
func (r *CallRecorder) Execs() []container.ExecRequest {
	var reqs []container.ExecRequest
	for _, c := range r.Calls(OpExec) {
		reqs = append(reqs, c.Req)
	}
	return reqs
}
