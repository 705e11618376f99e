package orchestrate

import (
	"maps"
	"slices"

	"testbox/internal/container"
)

// Handles maps container names to the handles of started containers. It is
// filled once by StartAll and read-only afterwards.
type Handles struct {
	byName map[string]container.Handle
}

func newHandles(m map[string]container.Handle) Handles {
	return Handles{byName: m}
}

// Lookup returns the handle of the container named name.
func (h Handles) Lookup(name string) (container.Handle, bool) {
	handle, ok := h.byName[name]
	return handle, ok
}

func (h Handles) Len() int { return len(h.byName) }

// Names returns the container names in sorted order.
func (h Handles) Names() []string {
	return slices.Sorted(maps.Keys(h.byName))
}
