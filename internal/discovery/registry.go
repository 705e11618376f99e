package discovery

import (
	"testbox/internal/check"
	"testbox/internal/suite"
)

// Registry answers eligibility questions about candidates. It holds no
// state besides the metadata source and every query is pure.
type Registry struct {
	meta MetadataSource
}

func NewRegistry(meta MetadataSource) *Registry {
	check.Assert(meta != nil, "NewRegistry: metadata source must not be nil")
	return &Registry{meta: meta}
}

// IsEligibleGroup reports whether g is concrete, public and carries
// run-target metadata.
func (r *Registry) IsEligibleGroup(g GroupCandidate) bool {
	if !isConcretePublic(g) {
		return false
	}
	_, ok := r.meta.GroupSpec(g)
	return ok
}

// IsEligibleUnit reports whether u is a public, non-static, void method
// that either sits in an eligible group or carries metadata of its own
// inside a public concrete group.
func (r *Registry) IsEligibleUnit(g GroupCandidate, u UnitCandidate) bool {
	if u.Static || !u.Public || u.ReturnsValue {
		return false
	}
	if r.IsEligibleGroup(g) {
		return true
	}
	if !isConcretePublic(g) {
		return false
	}
	_, ok := r.meta.UnitSpec(g, u)
	return ok
}

// ContainerSpecOf resolves the container a candidate runs in. Unit-level
// metadata wins over group-level metadata. Pass a nil unit to resolve the
// group alone.
//
// A candidate with neither is a contract violation: callers only ask about
// candidates they already know to be eligible.
func (r *Registry) ContainerSpecOf(g GroupCandidate, u *UnitCandidate) (suite.ContainerSpec, error) {
	if u != nil {
		if spec, ok := r.meta.UnitSpec(g, *u); ok {
			return spec, nil
		}
	}
	if spec, ok := r.meta.GroupSpec(g); ok {
		return spec, nil
	}
	if u != nil {
		return suite.ContainerSpec{}, check.Preconditionf(false, "unit %s#%s carries no container metadata", g.ID, u.Name)
	}
	return suite.ContainerSpec{}, check.Preconditionf(false, "group %s carries no container metadata", g.ID)
}

func isConcretePublic(g GroupCandidate) bool {
	return !g.Abstract && g.Public
}
