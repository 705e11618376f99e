// Package manifest reads candidate classes, methods and their isolation
// metadata from a YAML or TOML file.
package manifest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"testbox/internal/discovery"
	"testbox/internal/suite"
)

type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// Manifest is the on-disk description of the test classes offered for
// discovery.
type Manifest struct {
	Classes []Class `yaml:"classes" toml:"classes"`
}

type Class struct {
	ID       string               `yaml:"id" toml:"id"`
	Abstract bool                 `yaml:"abstract,omitempty" toml:"abstract"`
	Public   *bool                `yaml:"public,omitempty" toml:"public"`
	Isolated *suite.ContainerSpec `yaml:"isolated,omitempty" toml:"isolated"`
	Methods  []Method             `yaml:"methods" toml:"methods"`
}

type Method struct {
	Name   string `yaml:"name" toml:"name"`
	Static bool   `yaml:"static,omitempty" toml:"static"`
	Public *bool  `yaml:"public,omitempty" toml:"public"`
	// Returns names the return type. Empty means void.
	Returns  string               `yaml:"returns,omitempty" toml:"returns"`
	Isolated *suite.ContainerSpec `yaml:"isolated,omitempty" toml:"isolated"`
}

// Load reads the manifest at path, picking the format from its extension.
func Load(path string) (*Manifest, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}

// FormatOf maps a file extension to a manifest format.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unsupported manifest extension %q (want .yaml, .yml or .toml)", filepath.Ext(path))
	}
}

// Parse decodes and validates a manifest.
func Parse(data []byte, format Format) (*Manifest, error) {
	var m Manifest
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&m); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	case FormatTOML:
		md, err := toml.Decode(string(data), &m)
		if err != nil {
			return nil, fmt.Errorf("parse toml: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("parse toml: unknown key %q", undecoded[0].String())
		}
	default:
		return nil, fmt.Errorf("unknown manifest format %q", format)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks that every class and method is named and that a class or
// method listed more than once is not isolated in two different ways. The
// isolation specs themselves are validated during discovery, once
// eligibility is known.
func (m *Manifest) Validate() error {
	groups := make(map[string]suite.ContainerSpec)
	units := make(map[string]suite.ContainerSpec)
	for i, c := range m.Classes {
		if strings.TrimSpace(c.ID) == "" {
			return fmt.Errorf("classes[%d]: id is required", i)
		}
		if err := declareOnce(groups, c.ID, c.Isolated); err != nil {
			return fmt.Errorf("class %s: %w", c.ID, err)
		}
		for j, meth := range c.Methods {
			if strings.TrimSpace(meth.Name) == "" {
				return fmt.Errorf("class %s: methods[%d]: name is required", c.ID, j)
			}
			if err := declareOnce(units, unitKey(c.ID, meth.Name), meth.Isolated); err != nil {
				return fmt.Errorf("method %s: %w", unitKey(c.ID, meth.Name), err)
			}
		}
	}
	return nil
}

func declareOnce(seen map[string]suite.ContainerSpec, key string, spec *suite.ContainerSpec) error {
	if spec == nil {
		return nil
	}
	prev, ok := seen[key]
	if !ok {
		seen[key] = *spec
		return nil
	}
	if !prev.Equal(*spec) {
		return fmt.Errorf("isolated in %s and again in %s", prev, *spec)
	}
	return nil
}

// Candidates lists the manifest's classes in file order.
func (m *Manifest) Candidates() []discovery.GroupCandidate {
	out := make([]discovery.GroupCandidate, 0, len(m.Classes))
	for _, c := range m.Classes {
		g := discovery.GroupCandidate{
			ID:       c.ID,
			Abstract: c.Abstract,
			Public:   boolOr(c.Public, true),
			Units:    make([]discovery.UnitCandidate, 0, len(c.Methods)),
		}
		for _, meth := range c.Methods {
			g.Units = append(g.Units, discovery.UnitCandidate{
				Name:         meth.Name,
				Static:       meth.Static,
				Public:       boolOr(meth.Public, true),
				ReturnsValue: meth.Returns != "" && meth.Returns != "void",
			})
		}
		out = append(out, g)
	}
	return out
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
