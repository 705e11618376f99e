package suite

import (
	"fmt"
	"regexp"
	"strings"
)

// containerNamePattern mirrors the name rule enforced by the Docker daemon.
var containerNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)

// ContainerSpec identifies a container to start: one name, one image.
type ContainerSpec struct {
	Name  string `json:"name" yaml:"container" toml:"container"`
	Image string `json:"image" yaml:"image" toml:"image"`
}

// Equal reports whether both name and image match.
func (s ContainerSpec) Equal(o ContainerSpec) bool {
	return s.Name == o.Name && s.Image == o.Image
}

// IsZero reports whether neither field is set.
func (s ContainerSpec) IsZero() bool {
	return s.Name == "" && s.Image == ""
}

func (s ContainerSpec) String() string {
	return fmt.Sprintf("%s (%s)", s.Name, s.Image)
}

// Validate checks that the spec can be handed to a container runtime.
func (s ContainerSpec) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("container name is required")
	}
	if !containerNamePattern.MatchString(s.Name) {
		return fmt.Errorf("container name %q is not a valid container name", s.Name)
	}
	image := strings.TrimSpace(s.Image)
	if image == "" {
		return fmt.Errorf("image is required for container %q", s.Name)
	}
	if image != s.Image {
		return fmt.Errorf("image %q for container %q has surrounding whitespace", s.Image, s.Name)
	}
	return nil
}
