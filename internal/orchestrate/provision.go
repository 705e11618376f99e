// Package orchestrate starts the containers a discovery tree needs and
// tears them down when the run is over.
package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"testbox/internal/container"
	"testbox/internal/suite"
)

const (
	DefaultConcurrency = 4
	DefaultStopTimeout = 30 * time.Second
)

// Options controls provisioning.
type Options struct {
	Start container.StartOptions
	// Build runs in every container right after it started. Nil skips it.
	Build *container.ExecRequest
	// Concurrency bounds parallel starts. Zero means DefaultConcurrency.
	Concurrency int
	// StopTimeout bounds teardown. Zero means DefaultStopTimeout.
	StopTimeout time.Duration
}

func (o Options) concurrency() int {
	if o.Concurrency <= 0 {
		return DefaultConcurrency
	}
	return o.Concurrency
}

func (o Options) stopTimeout() time.Duration {
	if o.StopTimeout <= 0 {
		return DefaultStopTimeout
	}
	return o.StopTimeout
}

// StartAll starts one container per entry of specs. On failure it returns
// the first *ProvisionError together with the handles of every container
// that did start, so the caller can tear them down.
func StartAll(ctx context.Context, rt container.Runtime, specs map[string]string, opts Options) (Handles, error) {
	var (
		mu      sync.Mutex
		started = make(map[string]container.Handle, len(specs))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.concurrency())
	for _, name := range slices.Sorted(maps.Keys(specs)) {
		spec := suite.ContainerSpec{Name: name, Image: specs[name]}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return &ProvisionError{Container: spec.Name, Image: spec.Image, Step: "start", Err: err}
			}
			log := slog.With("container", spec.Name, "image", spec.Image)
			log.Info("Starting container.")

			h, err := rt.Start(gctx, spec, opts.Start)
			if h != "" {
				mu.Lock()
				started[spec.Name] = h
				mu.Unlock()
			}
			if err != nil {
				return &ProvisionError{Container: spec.Name, Image: spec.Image, Step: "start", Err: err}
			}

			if opts.Build != nil {
				log.Info("Building test classes.")
				out, err := rt.Exec(gctx, h, *opts.Build)
				if err != nil {
					return &ProvisionError{Container: spec.Name, Image: spec.Image, Step: "build", Err: err}
				}
				log.Debug("Build finished.", "output", out)
			}
			return nil
		})
	}

	err := g.Wait()
	return newHandles(started), err
}

// StopAll stops every container in handles. It attempts all of them and
// joins the failures.
func StopAll(ctx context.Context, rt container.Runtime, handles Handles) error {
	var errs []error
	for _, name := range handles.Names() {
		h, _ := handles.Lookup(name)
		if err := rt.Stop(ctx, h); err != nil {
			slog.Warn("Failed to stop container.", "container", name, "err", err)
			errs = append(errs, fmt.Errorf("stop container %q: %w", name, err))
			continue
		}
		slog.Debug("Container stopped.", "container", name)
	}
	return errors.Join(errs...)
}

// Provision starts the containers tree needs, runs fn with their handles and
// stops them again. Teardown runs on every path, provisioning failures
// included, on a context detached from ctx's cancellation.
func Provision(ctx context.Context, rt container.Runtime, tree *suite.Tree, opts Options, fn func(context.Context, Handles) error) (err error) {
	specs, err := CollectSpecs(tree)
	if err != nil {
		return err
	}

	handles, startErr := StartAll(ctx, rt, specs, opts)
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), opts.stopTimeout())
		defer cancel()
		if stopErr := StopAll(stopCtx, rt, handles); stopErr != nil {
			err = errors.Join(err, fmt.Errorf("teardown: %w", stopErr))
		}
	}()
	if startErr != nil {
		return startErr
	}

	slog.Debug("Containers ready.", "count", handles.Len())
	return fn(ctx, handles)
}
