// Package container defines the container runtime port used by the
// orchestrator and the coordinator.
//
// Production: adapter/docker.Runtime (Docker Engine API).
// Tests: adapter/fake.ContainerRuntime.
package container

import (
	"context"

	"testbox/internal/suite"
)

// Handle is the runtime id of a started container.
type Handle string

func (h Handle) String() string { return string(h) }

// Short returns the first 12 characters of the handle, the way Docker
// abbreviates container ids.
func (h Handle) Short() string {
	if len(h) > 12 {
		return string(h[:12])
	}
	return string(h)
}

// Runtime abstracts the container engine.
type Runtime interface {
	// Start creates and starts a container named spec.Name from spec.Image.
	Start(ctx context.Context, spec suite.ContainerSpec, opts StartOptions) (Handle, error)
	// Stop stops and removes the container. Stopping a container that is
	// already gone is not an error.
	Stop(ctx context.Context, h Handle) error
	// Exec runs cmd inside the container, blocks until it exits and returns
	// the combined stdout and stderr. A non-zero exit code is not an error.
	Exec(ctx context.Context, h Handle, req ExecRequest) (string, error)
}

// Mount binds a host path into the container.
type Mount struct {
	Source   string `yaml:"source"`
	Target   string `yaml:"target"`
	ReadOnly bool   `yaml:"read_only,omitempty"`
}

// StartOptions carries host-side settings shared by every container of a
// run.
type StartOptions struct {
	Mounts     []Mount
	Env        []string
	AutoRemove bool
	// Cmd overrides the image command. Empty keeps the image default.
	Cmd []string
}

// ExecRequest is one command to run in a started container.
type ExecRequest struct {
	Cmd     []string
	Env     []string
	WorkDir string
}
