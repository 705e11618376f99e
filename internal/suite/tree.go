// Package suite holds the discovery tree: a root owning groups, each group
// owning the units discovered in it.
//
// The tree is a closed variant. Node is implemented by *Tree, *Group and
// *Unit only; callers switch on Kind instead of probing for capabilities.
// Every container spec is resolved during discovery and stored on the node,
// so nothing inspects metadata again during execution.
package suite

import (
	"fmt"
	"slices"
)

// DefaultEngineID names the root node when the caller does not pick one.
const DefaultEngineID = "testbox"

type NodeKind uint8

const (
	KindRoot NodeKind = iota + 1
	KindGroup
	KindUnit
)

func (k NodeKind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindGroup:
		return "group"
	case KindUnit:
		return "unit"
	default:
		return "unknown"
	}
}

// Node is a vertex of the discovery tree.
type Node interface {
	Kind() NodeKind
	// ID is unique within one tree and stable for one discovery request.
	ID() string
	DisplayName() string
	// ContainerSpec returns the spec declared on this node, if any.
	ContainerSpec() (ContainerSpec, bool)
	Children() []Node

	sealed()
}

var (
	_ Node = (*Tree)(nil)
	_ Node = (*Group)(nil)
	_ Node = (*Unit)(nil)
)

// Tree is the root of one discovery request.
type Tree struct {
	engineID string
	groups   []*Group
	byID     map[string]*Group
}

// NewTree returns an empty tree rooted at engineID.
func NewTree(engineID string) *Tree {
	if engineID == "" {
		engineID = DefaultEngineID
	}
	return &Tree{engineID: engineID, byID: make(map[string]*Group)}
}

func (t *Tree) Kind() NodeKind { return KindRoot }

func (t *Tree) ID() string { return "[engine:" + t.engineID + "]" }

func (t *Tree) DisplayName() string { return t.engineID }

func (t *Tree) ContainerSpec() (ContainerSpec, bool) { return ContainerSpec{}, false }

func (t *Tree) Children() []Node {
	out := make([]Node, 0, len(t.groups))
	for _, g := range t.groups {
		out = append(out, g)
	}
	return out
}

func (t *Tree) sealed() {}

// Groups returns the groups in discovery order.
func (t *Tree) Groups() []*Group {
	return slices.Clone(t.groups)
}

// Group returns the group with the given identifier.
func (t *Tree) Group(id string) (*Group, bool) {
	g, ok := t.byID[id]
	return g, ok
}

// AddGroup appends a group, or returns the existing one with the same id.
// The bool is true when a new group was created.
func (t *Tree) AddGroup(id string, spec *ContainerSpec) (*Group, bool) {
	if g, ok := t.byID[id]; ok {
		return g, false
	}
	g := &Group{parentID: t.ID(), id: id, byName: make(map[string]*Unit)}
	if spec != nil {
		s := *spec
		g.spec = &s
	}
	t.groups = append(t.groups, g)
	t.byID[id] = g
	return g, true
}

// RemoveEmptyGroups drops groups that ended up without units.
func (t *Tree) RemoveEmptyGroups() {
	t.groups = slices.DeleteFunc(t.groups, func(g *Group) bool {
		if len(g.units) > 0 {
			return false
		}
		delete(t.byID, g.id)
		return true
	})
}

// Units returns every unit of the tree, group by group.
func (t *Tree) Units() []*Unit {
	var out []*Unit
	for _, g := range t.groups {
		out = append(out, g.units...)
	}
	return out
}

// Len returns the number of units in the tree.
func (t *Tree) Len() int {
	n := 0
	for _, g := range t.groups {
		n += len(g.units)
	}
	return n
}

// Group is the enclosing class of one or more units.
type Group struct {
	parentID string
	id       string
	spec     *ContainerSpec
	units    []*Unit
	byName   map[string]*Unit
}

func (g *Group) Kind() NodeKind { return KindGroup }

func (g *Group) ID() string { return g.parentID + "/[class:" + g.id + "]" }

// Identifier is the fully qualified class name of the group.
func (g *Group) Identifier() string { return g.id }

func (g *Group) DisplayName() string { return g.id }

func (g *Group) ContainerSpec() (ContainerSpec, bool) {
	if g.spec == nil {
		return ContainerSpec{}, false
	}
	return *g.spec, true
}

func (g *Group) Children() []Node {
	out := make([]Node, 0, len(g.units))
	for _, u := range g.units {
		out = append(out, u)
	}
	return out
}

func (g *Group) sealed() {}

// Units returns the units in discovery order.
func (g *Group) Units() []*Unit {
	return slices.Clone(g.units)
}

// AddUnit appends a unit bound to spec. A unit with the same name is kept
// and false is returned.
func (g *Group) AddUnit(name string, spec ContainerSpec) (*Unit, bool) {
	if u, ok := g.byName[name]; ok {
		return u, false
	}
	u := &Unit{parentID: g.ID(), group: g.id, name: name, spec: spec}
	g.units = append(g.units, u)
	g.byName[name] = u
	return u, true
}

// Unit is one remotely executable test method.
type Unit struct {
	parentID string
	group    string
	name     string
	spec     ContainerSpec
}

func (u *Unit) Kind() NodeKind { return KindUnit }

func (u *Unit) ID() string { return u.parentID + "/[method:" + u.name + "]" }

func (u *Unit) DisplayName() string { return u.name }

// ContainerSpec always reports the spec resolved at discovery time.
func (u *Unit) ContainerSpec() (ContainerSpec, bool) { return u.spec, true }

func (u *Unit) Children() []Node { return nil }

func (u *Unit) sealed() {}

// Group returns the identifier of the enclosing group.
func (u *Unit) Group() string { return u.group }

// Name returns the method name.
func (u *Unit) Name() string { return u.name }

// Spec returns the container the unit runs in.
func (u *Unit) Spec() ContainerSpec { return u.spec }

// FullyQualifiedName is the selector handed to the remote launcher:
// group#unit.
func (u *Unit) FullyQualifiedName() string {
	return fmt.Sprintf("%s#%s", u.group, u.name)
}

// Walk visits n and its descendants depth-first, parents before children.
// It stops at the first error returned by fn.
func Walk(n Node, fn func(Node) error) error {
	if err := fn(n); err != nil {
		return err
	}
	for _, c := range n.Children() {
		if err := Walk(c, fn); err != nil {
			return err
		}
	}
	return nil
}
