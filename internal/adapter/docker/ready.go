package docker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	dockertypes "github.com/docker/docker/api/types"
	"github.com/docker/docker/client"
)

type pinger interface {
	Ping(ctx context.Context) (dockertypes.Ping, error)
}

// WaitReady polls the daemon once a second until it answers. Errors other
// than a refused connection are returned immediately.
func WaitReady(ctx context.Context, cli pinger) error {
	log := slog.With("component", "docker")
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	waiting := false
	for {
		_, err := cli.Ping(ctx)
		if err == nil {
			if waiting {
				log.Debug("daemon reachable")
			}
			return nil
		}
		if !client.IsErrConnectionFailed(err) {
			return fmt.Errorf("connect to docker daemon: %w", err)
		}
		if !waiting {
			waiting = true
			log.Info("Waiting for docker daemon.")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
