package cmdutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"testbox/config"
	"testbox/internal/execute"
	"testbox/internal/orchestrate"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitPassed},
		{"tests failed", ErrTestsFailed, ExitFailed},
		{"wrapped tests failed", fmt.Errorf("run: %w", ErrTestsFailed), ExitFailed},
		{"config", &orchestrate.ConfigError{Container: "c", Images: []string{"a", "b"}}, ExitHarness},
		{"provision", &orchestrate.ProvisionError{Container: "c", Step: "start", Err: errors.New("x")}, ExitHarness},
		{"harness", &execute.ConsistencyError{Node: "n", Msg: "m"}, ExitHarness},
		{"explicit", &ExitError{Code: 7, Err: errors.New("x")}, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Fatalf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "suite.yaml")
	if err := os.WriteFile(path, []byte("classes:\n  - id: A\n    methods: [{name: m}]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	cfg.Manifest = path

	m, base, err := LoadManifest(&cfg, "")
	if err != nil {
		t.Fatalf("LoadManifest() error = %v", err)
	}
	if len(m.Classes) != 1 || base != dir {
		t.Fatalf("LoadManifest() = %d classes, base %q", len(m.Classes), base)
	}

	_, _, err = LoadManifest(&cfg, filepath.Join(dir, "missing.toml"))
	if ExitCode(err) != ExitHarness {
		t.Fatalf("LoadManifest(missing) exit code = %d, want %d", ExitCode(err), ExitHarness)
	}
}

func TestLogLevel(t *testing.T) {
	g := &Globals{}
	if g.LogLevel() != "warn" {
		t.Fatalf("LogLevel() without config = %q", g.LogLevel())
	}
	cfg := config.Default()
	g.Config = &cfg
	if g.LogLevel() != "info" {
		t.Fatalf("LogLevel() = %q, want info", g.LogLevel())
	}
	g.Debug = true
	if g.LogLevel() != "debug" {
		t.Fatalf("LogLevel() with --debug = %q", g.LogLevel())
	}
}
