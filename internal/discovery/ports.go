package discovery

import "testbox/internal/suite"

// MetadataSource reads run-target metadata for candidates. It returns at
// most one spec per candidate; the bool is false when the candidate carries
// none.
type MetadataSource interface {
	GroupSpec(g GroupCandidate) (suite.ContainerSpec, bool)
	UnitSpec(g GroupCandidate, u UnitCandidate) (suite.ContainerSpec, bool)
}

// GroupCandidate is a class offered for discovery, as reported by the
// introspection facility.
type GroupCandidate struct {
	ID       string
	Abstract bool
	Public   bool
	Units    []UnitCandidate
}

// UnitCandidate is a method of a GroupCandidate.
type UnitCandidate struct {
	Name   string
	Static bool
	Public bool
	// ReturnsValue is false for void methods.
	ReturnsValue bool
}
