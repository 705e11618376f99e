package docker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/containerd/errdefs"
	dockertypes "github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	ctr "testbox/internal/container"
	"testbox/internal/suite"
)

var _ ctr.Runtime = (*Runtime)(nil)

const defaultReadyTimeout = 30 * time.Second

// engineAPI is the subset of the Docker Engine client the runtime uses.
type engineAPI interface {
	Ping(ctx context.Context) (dockertypes.Ping, error)
	ImagePull(ctx context.Context, ref string, opts image.PullOptions) (io.ReadCloser, error)
	ContainerCreate(ctx context.Context, cfg *container.Config, hc *container.HostConfig, nc *network.NetworkingConfig, platform *ocispec.Platform, name string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, id string, opts container.StartOptions) error
	ContainerInspect(ctx context.Context, id string) (container.InspectResponse, error)
	ContainerStop(ctx context.Context, id string, opts container.StopOptions) error
	ContainerRemove(ctx context.Context, id string, opts container.RemoveOptions) error
	ContainerExecCreate(ctx context.Context, id string, opts container.ExecOptions) (container.ExecCreateResponse, error)
	ContainerExecAttach(ctx context.Context, execID string, opts container.ExecAttachOptions) (dockertypes.HijackedResponse, error)
	ContainerExecInspect(ctx context.Context, execID string) (container.ExecInspect, error)
	Close() error
}

// Runtime implements container.Runtime using the Docker Engine API.
type Runtime struct {
	cli          engineAPI
	readyTimeout time.Duration
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithReadyTimeout bounds how long Start waits for a container to report
// running.
func WithReadyTimeout(d time.Duration) Option {
	return func(r *Runtime) {
		if d > 0 {
			r.readyTimeout = d
		}
	}
}

// NewRuntime creates a Runtime with a new Docker client from the environment.
func NewRuntime(opts ...Option) (*Runtime, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return newRuntime(cli, opts...), nil
}

// NewRuntimeFromClient wraps an existing Docker client.
func NewRuntimeFromClient(cli *client.Client, opts ...Option) *Runtime {
	return newRuntime(cli, opts...)
}

func newRuntime(cli engineAPI, opts ...Option) *Runtime {
	r := &Runtime{cli: cli, readyTimeout: defaultReadyTimeout}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WaitReady blocks until the daemon answers a ping.
func (r *Runtime) WaitReady(ctx context.Context) error {
	return WaitReady(ctx, r.cli)
}

// Start creates and starts the container described by spec. A missing image
// is pulled and a stale container holding the same name is removed, each
// at most once.
func (r *Runtime) Start(ctx context.Context, spec suite.ContainerSpec, opts ctr.StartOptions) (ctr.Handle, error) {
	log := slog.With("component", "docker", "container", spec.Name, "image", spec.Image)
	cc, hc := createConfig(spec, opts)

	pulled, replaced := false, false
	var id string
	for id == "" {
		resp, err := r.cli.ContainerCreate(ctx, cc, hc, nil, nil, spec.Name)
		switch {
		case err == nil:
			id = resp.ID
			for _, w := range resp.Warnings {
				log.Warn("Container create warning.", "warning", w)
			}
		case errdefs.IsNotFound(err) && !pulled:
			log.Info("Pulling image.")
			if err := r.pull(ctx, spec.Image); err != nil {
				return "", err
			}
			pulled = true
		case errdefs.IsConflict(err) && !replaced:
			log.Warn("Removing stale container with the same name.")
			if err := r.cli.ContainerRemove(ctx, spec.Name, container.RemoveOptions{Force: true}); err != nil && !errdefs.IsNotFound(err) {
				return "", fmt.Errorf("remove stale container %q: %w", spec.Name, err)
			}
			replaced = true
		default:
			return "", fmt.Errorf("create container %q: %w", spec.Name, err)
		}
	}

	if err := r.cli.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return ctr.Handle(id), fmt.Errorf("start container %q: %w", spec.Name, err)
	}
	if err := r.waitRunning(ctx, id); err != nil {
		return ctr.Handle(id), fmt.Errorf("wait for container %q: %w", spec.Name, err)
	}

	h := ctr.Handle(id)
	log.Debug("Container started.", "id", h.Short())
	return h, nil
}

// Stop stops and removes the container. A container that is already gone,
// for example through auto-remove, is not an error.
func (r *Runtime) Stop(ctx context.Context, h ctr.Handle) error {
	if err := r.cli.ContainerStop(ctx, h.String(), container.StopOptions{}); err != nil && !errdefs.IsNotFound(err) {
		return fmt.Errorf("stop container %s: %w", h.Short(), err)
	}
	if err := r.cli.ContainerRemove(ctx, h.String(), container.RemoveOptions{Force: true}); err != nil &&
		!errdefs.IsNotFound(err) && !errdefs.IsConflict(err) {
		// Conflict means removal is already in progress.
		return fmt.Errorf("remove container %s: %w", h.Short(), err)
	}
	return nil
}

// Exec runs req in the container and returns stdout and stderr interleaved
// in one string. The exit code is logged; the launcher exits non-zero
// whenever a test fails, which is reported through its output instead.
func (r *Runtime) Exec(ctx context.Context, h ctr.Handle, req ctr.ExecRequest) (string, error) {
	created, err := r.cli.ContainerExecCreate(ctx, h.String(), container.ExecOptions{
		Cmd:          req.Cmd,
		Env:          req.Env,
		WorkingDir:   req.WorkDir,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return "", fmt.Errorf("create exec in %s: %w", h.Short(), err)
	}

	attached, err := r.cli.ContainerExecAttach(ctx, created.ID, container.ExecAttachOptions{})
	if err != nil {
		return "", fmt.Errorf("attach exec in %s: %w", h.Short(), err)
	}
	defer attached.Close()

	var out bytes.Buffer
	copyDone := make(chan error, 1)
	go func() {
		_, err := stdcopy.StdCopy(&out, &out, attached.Reader)
		copyDone <- err
	}()
	select {
	case <-ctx.Done():
		attached.Close()
		<-copyDone
		return "", fmt.Errorf("exec in %s: %w", h.Short(), ctx.Err())
	case err := <-copyDone:
		if err != nil {
			return "", fmt.Errorf("read exec output from %s: %w", h.Short(), err)
		}
	}

	info, err := r.cli.ContainerExecInspect(ctx, created.ID)
	if err != nil {
		return "", fmt.Errorf("inspect exec in %s: %w", h.Short(), err)
	}
	if info.ExitCode != 0 {
		slog.Debug("Exec exited non-zero.", "component", "docker", "id", h.Short(), "exit_code", info.ExitCode)
	}
	return out.String(), nil
}

func (r *Runtime) Close() error {
	return r.cli.Close()
}

func (r *Runtime) pull(ctx context.Context, ref string) error {
	rc, err := r.cli.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull image %q: %w", ref, err)
	}
	defer rc.Close()
	if _, err := io.Copy(io.Discard, rc); err != nil {
		return fmt.Errorf("pull image %q: %w", ref, err)
	}
	return nil
}

func (r *Runtime) waitRunning(ctx context.Context, id string) error {
	b := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(50*time.Millisecond),
		backoff.WithMaxInterval(time.Second),
		backoff.WithMaxElapsedTime(r.readyTimeout),
	)
	return backoff.Retry(func() error {
		info, err := r.cli.ContainerInspect(ctx, id)
		if err != nil {
			if errdefs.IsNotFound(err) {
				return backoff.Permanent(fmt.Errorf("container exited before becoming ready: %w", err))
			}
			return err
		}
		if info.State == nil {
			return fmt.Errorf("container state unavailable")
		}
		if info.State.Running {
			return nil
		}
		if status := string(info.State.Status); status == "exited" || status == "dead" {
			return backoff.Permanent(fmt.Errorf("container %s with exit code %d", status, info.State.ExitCode))
		}
		return fmt.Errorf("container is %s", info.State.Status)
	}, backoff.WithContext(b, ctx))
}

func createConfig(spec suite.ContainerSpec, opts ctr.StartOptions) (*container.Config, *container.HostConfig) {
	cc := &container.Config{
		Image: spec.Image,
		Cmd:   opts.Cmd,
		Env:   opts.Env,
		// Keeps shell entrypoints waiting on stdin instead of exiting.
		OpenStdin: true,
		Labels:    map[string]string{"testbox.container": spec.Name},
	}
	hc := &container.HostConfig{
		AutoRemove: opts.AutoRemove,
	}
	for _, m := range opts.Mounts {
		hc.Mounts = append(hc.Mounts, mount.Mount{
			Type:     mount.TypeBind,
			Source:   m.Source,
			Target:   m.Target,
			ReadOnly: m.ReadOnly,
		})
	}
	return cc, hc
}
