package orchestrate

import (
	"slices"

	"testbox/internal/suite"
)

// CollectSpecs gathers the containers the tree needs, keyed by name. Every
// node carrying a spec contributes, group specs included. The same name
// declared with two images is a *ConfigError.
func CollectSpecs(tree *suite.Tree) (map[string]string, error) {
	specs := make(map[string]string)
	var conflict *ConfigError

	err := suite.Walk(tree, func(n suite.Node) error {
		spec, ok := n.ContainerSpec()
		if !ok {
			return nil
		}
		image, seen := specs[spec.Name]
		if !seen {
			specs[spec.Name] = spec.Image
			return nil
		}
		if image == spec.Image {
			return nil
		}
		if conflict == nil {
			conflict = &ConfigError{Container: spec.Name, Images: []string{image}}
		}
		if conflict.Container == spec.Name && !slices.Contains(conflict.Images, spec.Image) {
			conflict.Images = append(conflict.Images, spec.Image)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if conflict != nil {
		return nil, conflict
	}
	return specs, nil
}
