// Package config holds the harness settings.
//
// Config is stored at $XDG_CONFIG_HOME/testbox/config.yaml (defaults to
// ~/.config/testbox/config.yaml). Every field has a default; the file only
// needs the fields that differ.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"testbox/internal/container"
	"testbox/internal/execute"
	"testbox/internal/logging"
	"testbox/internal/suite"
)

const (
	DefaultManifest     = "testbox.yaml"
	DefaultWorkDir      = "/prj"
	DefaultConcurrency  = 4
	DefaultStopTimeout  = 30 * time.Second
	DefaultReadyTimeout = 30 * time.Second
)

// Log selects the log level and output format.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config holds every setting of a run.
type Config struct {
	// Manifest lists the candidate classes. Relative to the working directory.
	Manifest string `yaml:"manifest"`
	// EngineID names the root of the discovery tree.
	EngineID string           `yaml:"engine_id"`
	Launcher execute.Launcher `yaml:"launcher"`
	// Env is passed to every unit command as KEY=VALUE pairs.
	Env     []string `yaml:"env"`
	WorkDir string   `yaml:"workdir"`
	// Build runs once in every container before any unit.
	Build     []string `yaml:"build"`
	SkipBuild bool     `yaml:"skip_build"`
	// Mounts bind project paths into every container. Relative sources are
	// resolved against the directory holding the manifest.
	Mounts       []container.Mount `yaml:"mounts"`
	AutoRemove   bool              `yaml:"auto_remove"`
	Concurrency  int               `yaml:"concurrency"`
	StopTimeout  time.Duration     `yaml:"stop_timeout"`
	ReadyTimeout time.Duration     `yaml:"ready_timeout"`
	// History is the run history database. Empty disables recording.
	History string `yaml:"history"`
	Log     Log    `yaml:"log"`
}

// Default returns the settings used when no config file exists.
func Default() Config {
	return Config{
		Manifest: DefaultManifest,
		EngineID: suite.DefaultEngineID,
		Launcher: execute.DefaultLauncher(),
		Env:      []string{"DOCKER_ONLY=true"},
		WorkDir:  DefaultWorkDir,
		Build:    []string{"bash", "-c", "gradle testClasses"},
		Mounts: []container.Mount{
			{Source: "src", Target: "/prj/src"},
			{Source: "build.gradle", Target: "/prj/build.gradle"},
		},
		AutoRemove:   true,
		Concurrency:  DefaultConcurrency,
		StopTimeout:  DefaultStopTimeout,
		ReadyTimeout: DefaultReadyTimeout,
		History:      DefaultHistoryPath(),
		Log:          Log{Level: logging.LevelInfo, Format: logging.FormatText},
	}
}

// Path returns the config file location. It respects XDG_CONFIG_HOME,
// falling back to ~/.config/testbox/config.yaml.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".config", "testbox", "config.yaml")
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "testbox", "config.yaml")
}

// DefaultHistoryPath respects XDG_DATA_HOME, falling back to
// ~/.local/share/testbox/history.db.
func DefaultHistoryPath() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".local", "share", "testbox", "history.db")
		}
		dir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dir, "testbox", "history.db")
}

// Load reads the config file at path, or at Path() when path is empty. A
// missing default file yields Default(); a missing explicit file is an
// error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = Path()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			cfg := Default()
			return &cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data on top of Default() and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the harness cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Manifest) == "" {
		errs = append(errs, fmt.Errorf("manifest is required"))
	}
	if strings.TrimSpace(c.Launcher.Shell) == "" {
		errs = append(errs, fmt.Errorf("launcher.shell is required"))
	}
	if strings.TrimSpace(c.Launcher.Jar) == "" {
		errs = append(errs, fmt.Errorf("launcher.jar is required"))
	}
	if strings.TrimSpace(c.Launcher.ClasspathCommand) == "" {
		errs = append(errs, fmt.Errorf("launcher.classpath_command is required"))
	}
	if strings.TrimSpace(c.Launcher.EngineID) == "" {
		errs = append(errs, fmt.Errorf("launcher.engine_id is required"))
	}
	for _, kv := range c.Env {
		if k, _, ok := strings.Cut(kv, "="); !ok || k == "" {
			errs = append(errs, fmt.Errorf("env entry %q is not KEY=VALUE", kv))
		}
	}
	if !c.SkipBuild && len(c.Build) == 0 {
		errs = append(errs, fmt.Errorf("build command is empty; set skip_build to disable it"))
	}
	for i, m := range c.Mounts {
		if m.Source == "" {
			errs = append(errs, fmt.Errorf("mounts[%d]: source is required", i))
		}
		if !filepath.IsAbs(m.Target) {
			errs = append(errs, fmt.Errorf("mounts[%d]: target %q must be absolute", i, m.Target))
		}
	}
	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency))
	}
	if c.StopTimeout <= 0 {
		errs = append(errs, fmt.Errorf("stop_timeout must be positive"))
	}
	if c.ReadyTimeout <= 0 {
		errs = append(errs, fmt.Errorf("ready_timeout must be positive"))
	}
	if !logging.ValidLevel(c.Log.Level) {
		errs = append(errs, fmt.Errorf("unknown log level %q", c.Log.Level))
	}
	if c.Log.Format != "" && c.Log.Format != logging.FormatText && c.Log.Format != logging.FormatJSON {
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// ResolveMounts returns Mounts with relative sources joined to baseDir.
func (c *Config) ResolveMounts(baseDir string) []container.Mount {
	out := make([]container.Mount, 0, len(c.Mounts))
	for _, m := range c.Mounts {
		if !filepath.IsAbs(m.Source) {
			m.Source = filepath.Join(baseDir, m.Source)
		}
		out = append(out, m)
	}
	return out
}

// BuildRequest returns the build step, or nil when it is disabled.
func (c *Config) BuildRequest() *container.ExecRequest {
	if c.SkipBuild || len(c.Build) == 0 {
		return nil
	}
	return &container.ExecRequest{Cmd: c.Build, Env: c.Env, WorkDir: c.WorkDir}
}

// Marshal renders the config as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}
