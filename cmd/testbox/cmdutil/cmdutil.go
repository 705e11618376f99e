// Package cmdutil holds what the testbox subcommands share: global flags,
// config and manifest loading and exit codes.
package cmdutil

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"testbox/config"
	"testbox/internal/execute"
	"testbox/internal/manifest"
)

// Exit codes.
const (
	ExitPassed  = 0
	ExitFailed  = 1
	ExitHarness = 2
)

// Globals are the root persistent flags plus the config they resolve to.
type Globals struct {
	ConfigPath    string
	Debug         bool
	NoInteraction bool

	Config *config.Config
}

// Bind registers the persistent flags on root.
func (g *Globals) Bind(root *cobra.Command) {
	root.PersistentFlags().StringVar(&g.ConfigPath, "config", "", "Config file (default "+config.Path()+")")
	root.PersistentFlags().BoolVar(&g.Debug, "debug", false, "Enable debug logging")
	root.PersistentFlags().BoolVar(&g.NoInteraction, "no-interaction", false, "Plain output without colors")
}

// LoadConfig reads the config selected by --config.
func (g *Globals) LoadConfig() error {
	cfg, err := config.Load(g.ConfigPath)
	if err != nil {
		return &ExitError{Code: ExitHarness, Err: err}
	}
	g.Config = cfg
	return nil
}

// LogLevel returns the effective log level.
func (g *Globals) LogLevel() string {
	if g.Debug {
		return "debug"
	}
	if g.Config != nil {
		return g.Config.Log.Level
	}
	return "warn"
}

// LoadManifest reads override, or the configured manifest when override is
// empty. It also returns the directory relative mounts resolve against.
func LoadManifest(cfg *config.Config, override string) (*manifest.Manifest, string, error) {
	path := strings.TrimSpace(override)
	if path == "" {
		path = cfg.Manifest
	}
	m, err := manifest.Load(path)
	if err != nil {
		return nil, "", &ExitError{Code: ExitHarness, Err: err}
	}
	abs, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, "", &ExitError{Code: ExitHarness, Err: fmt.Errorf("resolve manifest directory: %w", err)}
	}
	return m, abs, nil
}

// ExitError carries the process exit code of a failed command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

// ErrTestsFailed is returned by run when every unit was executed and at
// least one did not succeed.
var ErrTestsFailed = errors.New("tests failed")

// ExitCode classifies err: nil passes, failing tests exit 1. Configuration,
// provisioning and harness errors exit 2.
func ExitCode(err error) int {
	if err == nil {
		return ExitPassed
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if errors.Is(err, ErrTestsFailed) && !execute.IsHarnessError(err) {
		return ExitFailed
	}
	return ExitHarness
}
