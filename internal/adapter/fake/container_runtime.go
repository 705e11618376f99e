package fake

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"testbox/internal/container"
	"testbox/internal/suite"
)

var _ container.Runtime = (*ContainerRuntime)(nil)

type containerState struct {
	Spec suite.ContainerSpec
	Opts container.StartOptions
}

// ContainerRuntime is an in-memory implementation of container.Runtime.
//
// Exec answers with the output registered for the longest selector that
// occurs in the command, or DefaultOutput when none does.
type ContainerRuntime struct {
	CallRecorder
	mu         sync.Mutex
	seq        int
	containers map[container.Handle]*containerState
	byName     map[string]container.Handle
	outputs    map[string]string

	DefaultOutput string

	StartErr func(ctx context.Context, spec suite.ContainerSpec) error
	StopErr  func(ctx context.Context, h container.Handle) error
	ExecErr  func(ctx context.Context, h container.Handle, req container.ExecRequest) error
	// ExecFunc replaces canned output entirely when set.
	ExecFunc func(ctx context.Context, h container.Handle, req container.ExecRequest) (string, error)
}

func NewContainerRuntime() *ContainerRuntime {
	return &ContainerRuntime{
		containers: make(map[container.Handle]*containerState),
		byName:     make(map[string]container.Handle),
		outputs:    make(map[string]string),
	}
}

// SetOutput registers the output of every Exec whose command mentions
// selector.
func (r *ContainerRuntime) SetOutput(selector, output string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outputs[selector] = output
}

func (r *ContainerRuntime) Start(ctx context.Context, spec suite.ContainerSpec, opts container.StartOptions) (h container.Handle, err error) {
	defer func() { r.record(Call{Op: OpStart, Spec: spec, Opts: opts, Handle: h, Err: err}) }()
	if r.StartErr != nil {
		if err := r.StartErr(ctx, spec); err != nil {
			return "", err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byName[spec.Name]; ok {
		return "", fmt.Errorf("container name %q already in use", spec.Name)
	}
	r.seq++
	h = container.Handle(fmt.Sprintf("%s-%d", spec.Name, r.seq))
	r.containers[h] = &containerState{Spec: spec, Opts: opts}
	r.byName[spec.Name] = h
	return h, nil
}

func (r *ContainerRuntime) Stop(ctx context.Context, h container.Handle) (err error) {
	defer func() { r.record(Call{Op: OpStop, Handle: h, Err: err}) }()
	if r.StopErr != nil {
		if err := r.StopErr(ctx, h); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	cs, ok := r.containers[h]
	if !ok {
		return nil
	}
	delete(r.byName, cs.Spec.Name)
	delete(r.containers, h)
	return nil
}

func (r *ContainerRuntime) Exec(ctx context.Context, h container.Handle, req container.ExecRequest) (_ string, err error) {
	defer func() { r.record(Call{Op: OpExec, Handle: h, Req: req, Err: err}) }()
	if r.ExecErr != nil {
		if err := r.ExecErr(ctx, h, req); err != nil {
			return "", err
		}
	}
	if r.ExecFunc != nil {
		return r.ExecFunc(ctx, h, req)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.containers[h]; !ok {
		return "", fmt.Errorf("container %q is not running", h)
	}
	cmd := strings.Join(req.Cmd, " ")
	best, out := "", r.DefaultOutput
	for sel, o := range r.outputs {
		if len(sel) > len(best) && strings.Contains(cmd, sel) {
			best, out = sel, o
		}
	}
	return out, nil
}

// Running returns the names of the containers currently started.
func (r *ContainerRuntime) Running() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.byName))
	for name := range r.byName {
		out = append(out, name)
	}
	return out
}

// Spec returns the spec a handle was started from.
func (r *ContainerRuntime) Spec(h container.Handle) (suite.ContainerSpec, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cs, ok := r.containers[h]
	if !ok {
		return suite.ContainerSpec{}, false
	}
	return cs.Spec, true
}
