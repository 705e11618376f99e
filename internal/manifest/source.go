package manifest

import (
	"testbox/internal/discovery"
	"testbox/internal/suite"
)

var _ discovery.MetadataSource = (*Source)(nil)

// Source serves the isolation metadata of a manifest. A class listed more
// than once shares the metadata of whichever declaration carries it;
// Validate rejects declarations that disagree.
type Source struct {
	groups map[string]suite.ContainerSpec
	units  map[string]suite.ContainerSpec
}

func NewSource(m *Manifest) *Source {
	s := &Source{
		groups: make(map[string]suite.ContainerSpec),
		units:  make(map[string]suite.ContainerSpec),
	}
	for _, c := range m.Classes {
		if c.Isolated != nil {
			if _, ok := s.groups[c.ID]; !ok {
				s.groups[c.ID] = *c.Isolated
			}
		}
		for _, meth := range c.Methods {
			if meth.Isolated == nil {
				continue
			}
			key := unitKey(c.ID, meth.Name)
			if _, ok := s.units[key]; !ok {
				s.units[key] = *meth.Isolated
			}
		}
	}
	return s
}

func (s *Source) GroupSpec(g discovery.GroupCandidate) (suite.ContainerSpec, bool) {
	spec, ok := s.groups[g.ID]
	return spec, ok
}

func (s *Source) UnitSpec(g discovery.GroupCandidate, u discovery.UnitCandidate) (suite.ContainerSpec, bool) {
	spec, ok := s.units[unitKey(g.ID, u.Name)]
	return spec, ok
}

func unitKey(group, unit string) string {
	return group + "#" + unit
}
