package tool

import (
	"fmt"
	"strings"
)

// Separator joins a group namespace and a capability name into a tool id.
const Separator = "-"

// SplitName splits "namespace-capability". It reports false unless the name
// has exactly two non-empty parts.
func SplitName(name string) (namespace, capability string, ok bool) {
	parts := strings.Split(name, Separator)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

type entry struct {
	capability Capability
	descriptor Descriptor
}

// Group is a named set of capabilities, addressed as "<namespace>-<name>".
type Group struct {
	Namespace string

	entries map[string]entry
	order   []string
}

// NewGroup creates an empty group.
func NewGroup(namespace string) *Group {
	return &Group{Namespace: namespace, entries: make(map[string]entry)}
}

// Add registers a capability under name and returns the group for chaining.
// Re-adding a name replaces the previous capability.
func (g *Group) Add(name string, c Capability, opts ...DescriptorOption) *Group {
	d := Descriptor{Name: g.Namespace + Separator + name, DisplayName: name}
	for _, opt := range opts {
		opt(&d)
	}
	if _, exists := g.entries[name]; !exists {
		g.order = append(g.order, name)
	}
	g.entries[name] = entry{capability: c, descriptor: d}
	return g
}

// Capability returns the capability registered under name.
func (g *Group) Capability(name string) (Capability, bool) {
	e, ok := g.entries[name]
	if !ok {
		return nil, false
	}
	return e.capability, true
}

// Descriptors lists the group's tool descriptors in registration order.
func (g *Group) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, g.entries[name].descriptor)
	}
	return out
}

// Registry is the static table of tool groups, keyed by namespace. It is built
// once at startup and read concurrently afterwards.
type Registry struct {
	groups map[string]*Group
	order  []string
}

// NewRegistry builds a registry. Namespaces must be unique, non-empty and free
// of the separator.
func NewRegistry(groups ...*Group) (*Registry, error) {
	r := &Registry{groups: make(map[string]*Group, len(groups))}
	for _, g := range groups {
		if g == nil {
			continue
		}
		if g.Namespace == "" || strings.Contains(g.Namespace, Separator) {
			return nil, fmt.Errorf("invalid tool namespace %q", g.Namespace)
		}
		for _, name := range g.order {
			if strings.Contains(name, Separator) {
				return nil, fmt.Errorf("invalid capability name %q in %q", name, g.Namespace)
			}
		}
		if _, dup := r.groups[g.Namespace]; dup {
			return nil, fmt.Errorf("duplicate tool namespace %q", g.Namespace)
		}
		r.groups[g.Namespace] = g
		r.order = append(r.order, g.Namespace)
	}
	return r, nil
}

// Group returns the group registered under namespace.
func (r *Registry) Group(namespace string) (*Group, bool) {
	g, ok := r.groups[namespace]
	return g, ok
}

// Catalog describes every registered capability.
func (r *Registry) Catalog() *Catalog {
	var descs []Descriptor
	for _, ns := range r.order {
		descs = append(descs, r.groups[ns].Descriptors()...)
	}
	return NewCatalog(descs...)
}
