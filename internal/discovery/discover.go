// Package discovery turns candidate classes and methods into the discovery
// tree.
//
// Eligibility and container resolution happen exactly once, here. The
// resulting suite.Tree carries everything execution needs.
package discovery

import (
	"context"
	"fmt"
	"log/slog"

	"testbox/internal/check"
	"testbox/internal/suite"
)

// Builder builds discovery trees.
type Builder struct {
	registry *Registry
	engineID string
	filter   Filter
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithEngineID names the root node.
func WithEngineID(id string) BuilderOption {
	return func(b *Builder) { b.engineID = id }
}

// WithFilter restricts discovery to units whose fully qualified name
// matches f.
func WithFilter(f Filter) BuilderOption {
	return func(b *Builder) { b.filter = f }
}

func NewBuilder(registry *Registry, opts ...BuilderOption) *Builder {
	check.Assert(registry != nil, "NewBuilder: registry must not be nil")
	b := &Builder{registry: registry, engineID: suite.DefaultEngineID}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Discover builds a tree holding one group per candidate with at least one
// eligible unit. The group itself does not have to be eligible: a class
// whose only tagged members are individual methods still gets a node.
func (b *Builder) Discover(ctx context.Context, candidates []GroupCandidate) (*suite.Tree, error) {
	tree := suite.NewTree(b.engineID)

	for _, gc := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("discover: %w", err)
		}
		if err := b.appendGroup(tree, gc); err != nil {
			return nil, err
		}
	}
	tree.RemoveEmptyGroups()

	slog.Debug("Discovery finished.", "groups", len(tree.Groups()), "units", tree.Len())
	return tree, nil
}

func (b *Builder) appendGroup(tree *suite.Tree, gc GroupCandidate) error {
	var eligible []UnitCandidate
	for _, uc := range gc.Units {
		if b.registry.IsEligibleUnit(gc, uc) {
			eligible = append(eligible, uc)
		}
	}
	if len(eligible) == 0 {
		return nil
	}

	var groupSpec *suite.ContainerSpec
	if b.registry.IsEligibleGroup(gc) {
		spec, err := b.registry.ContainerSpecOf(gc, nil)
		if err != nil {
			return fmt.Errorf("discover group %s: %w", gc.ID, err)
		}
		if err := spec.Validate(); err != nil {
			return fmt.Errorf("discover group %s: %w", gc.ID, err)
		}
		groupSpec = &spec
	}

	group, _ := tree.AddGroup(gc.ID, groupSpec)
	for _, uc := range eligible {
		spec, err := b.registry.ContainerSpecOf(gc, &uc)
		if err != nil {
			return fmt.Errorf("discover unit %s#%s: %w", gc.ID, uc.Name, err)
		}
		if err := spec.Validate(); err != nil {
			return fmt.Errorf("discover unit %s#%s: %w", gc.ID, uc.Name, err)
		}

		fqn := gc.ID + "#" + uc.Name
		if b.filter.IsDefined() && !b.filter.Match(fqn) {
			slog.Debug("Unit excluded by filter.", "unit", fqn)
			continue
		}
		if _, added := group.AddUnit(uc.Name, spec); !added {
			slog.Warn("Duplicate unit ignored.", "unit", fqn)
		}
	}
	return nil
}
