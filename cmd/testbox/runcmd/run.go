package runcmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"testbox/cmd/testbox/cmdutil"
	"testbox/cmd/testbox/ui"
	"testbox/internal/adapter/docker"
	"testbox/internal/adapter/sqlite"
	"testbox/internal/container"
	"testbox/internal/discovery"
	"testbox/internal/execute"
	"testbox/internal/manifest"
	"testbox/internal/orchestrate"
	"testbox/internal/pipeline"
)

const daemonWaitTimeout = 30 * time.Second

type flags struct {
	manifest  string
	run       discovery.RegexList
	skip      discovery.RegexList
	noHistory bool
}

// Cmd returns the "testbox run" command.
func Cmd(g *cmdutil.Globals) *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the isolated units of the manifest in their containers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cmd, g, f)
		},
	}
	cmd.Flags().StringVarP(&f.manifest, "manifest", "m", "", "Manifest file (default from config)")
	cmd.Flags().Var(&f.run, "run", "Only run units whose group#unit name matches (repeatable)")
	cmd.Flags().Var(&f.skip, "skip", "Skip units whose group#unit name matches (repeatable)")
	cmd.Flags().BoolVar(&f.noHistory, "no-history", false, "Do not record this run")
	return cmd
}

func run(ctx context.Context, cmd *cobra.Command, g *cmdutil.Globals, f flags) (err error) {
	cfg := g.Config
	m, baseDir, err := cmdutil.LoadManifest(cfg, f.manifest)
	if err != nil {
		return err
	}

	rt, err := docker.NewRuntime(docker.WithReadyTimeout(cfg.ReadyTimeout))
	if err != nil {
		return &cmdutil.ExitError{Code: cmdutil.ExitHarness, Err: err}
	}
	defer rt.Close()

	waitCtx, cancel := context.WithTimeout(ctx, daemonWaitTimeout)
	err = rt.WaitReady(waitCtx)
	cancel()
	if err != nil {
		return &cmdutil.ExitError{Code: cmdutil.ExitHarness, Err: err}
	}

	console := ui.NewConsole(cmd.OutOrStdout())
	listeners := []execute.Listener{console}

	runID := ""
	var store *sqlite.Store
	if cfg.History != "" && !f.noHistory {
		store, err = sqlite.Open(cfg.History)
		if err != nil {
			return &cmdutil.ExitError{Code: cmdutil.ExitHarness, Err: err}
		}
		defer store.Close()

		var record sqlite.Run
		record, err = store.BeginRun(ctx, f.manifestOr(cfg.Manifest))
		if err != nil {
			return &cmdutil.ExitError{Code: cmdutil.ExitHarness, Err: err}
		}
		runID = record.ID
		listeners = append(listeners, sqlite.NewRecorder(ctx, store, runID))
		defer func() {
			finishCtx := context.WithoutCancel(ctx)
			if ferr := store.FinishRun(finishCtx, runID, historyStatus(err)); ferr != nil {
				slog.Warn("Failed to finish run record.", "run", runID, "err", ferr)
			}
		}()
	}

	req := pipeline.Request{
		RunID:      runID,
		Candidates: m.Candidates(),
		Source:     manifest.NewSource(m),
		Filter:     discovery.Filter{Include: f.run, Exclude: f.skip},
		EngineID:   cfg.EngineID,
		Provision: orchestrate.Options{
			Start: container.StartOptions{
				Mounts:     cfg.ResolveMounts(baseDir),
				AutoRemove: cfg.AutoRemove,
			},
			Build:       cfg.BuildRequest(),
			Concurrency: cfg.Concurrency,
			StopTimeout: cfg.StopTimeout,
		},
		Execute: []execute.Option{
			execute.WithLauncher(cfg.Launcher),
			execute.WithEnv(cfg.Env),
			execute.WithWorkDir(cfg.WorkDir),
		},
		Listeners: listeners,
		Tracer:    otel.Tracer("testbox"),
	}

	started := time.Now()
	report, err := pipeline.Run(ctx, rt, req)
	out := cmd.OutOrStdout()
	if report.Tree != nil && report.Tree.Len() == 0 && err == nil {
		fmt.Fprintln(out, ui.Mark(ui.ToneWarn, "No isolated units found in %s.", f.manifestOr(cfg.Manifest)))
		return nil
	}
	if report.Root.Phase != 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, console.Summary(time.Since(started)))
	}
	if runID != "" {
		fmt.Fprintln(out, ui.Note("run "+runID))
	}
	if err != nil {
		return err
	}
	if !report.Passed() {
		return cmdutil.ErrTestsFailed
	}
	return nil
}

func (f flags) manifestOr(def string) string {
	if f.manifest != "" {
		return f.manifest
	}
	return def
}

func historyStatus(err error) string {
	switch {
	case err == nil:
		return sqlite.StatusPassed
	case errors.Is(err, cmdutil.ErrTestsFailed):
		return sqlite.StatusFailed
	default:
		return sqlite.StatusError
	}
}
