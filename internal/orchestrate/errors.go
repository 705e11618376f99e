package orchestrate

import (
	"fmt"
	"strings"
)

// ConfigError reports a container name declared with more than one image.
// It is raised before anything is started.
type ConfigError struct {
	Container string
	Images    []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("container %q is declared with conflicting images: %s",
		e.Container, strings.Join(e.Images, ", "))
}

// ProvisionError reports a container that could not be started or prepared.
type ProvisionError struct {
	Container string
	Image     string
	// Step is "start" or "build".
	Step string
	Err  error
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("provision container %q (%s): %s: %v", e.Container, e.Image, e.Step, e.Err)
}

func (e *ProvisionError) Unwrap() error { return e.Err }
