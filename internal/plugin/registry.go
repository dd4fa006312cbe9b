package plugin

import (
	"fmt"
	"sort"
)

// Registry holds the set of discovered plugins and resolves their load
// order (§4.4 "Load order": "(dependency-topological, then plugin-number
// ascending)").
type Registry struct {
	byName map[string]Plugin
	order  []Plugin
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Plugin)}
}

// Register adds p to the registry. Duplicate names are a fatal
// configuration error per §7 ("plugin ABI mismatch").
func (r *Registry) Register(p Plugin) error {
	if _, exists := r.byName[p.Name()]; exists {
		return fmt.Errorf("plugin: duplicate plugin name %q", p.Name())
	}
	r.byName[p.Name()] = p
	return nil
}

// Resolve computes the dispatch order: a topological sort of the declared
// dependency graph, breaking ties (and fully ordering independent
// plugins) by ascending plugin Number. It must be called once after all
// plugins are registered and before dispatch begins.
func (r *Registry) Resolve() error {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return r.byName[names[i]].Number() < r.byName[names[j]].Number()
	})

	visited := make(map[string]int) // 0=unvisited, 1=in-progress, 2=done
	var order []Plugin

	var visit func(name string) error
	visit = func(name string) error {
		switch visited[name] {
		case 2:
			return nil
		case 1:
			return fmt.Errorf("plugin: dependency cycle involving %q", name)
		}
		visited[name] = 1
		p, ok := r.byName[name]
		if !ok {
			return fmt.Errorf("plugin: unknown dependency %q", name)
		}
		deps := append([]string(nil), p.Deps()...)
		sort.Slice(deps, func(i, j int) bool {
			di, dj := r.byName[deps[i]], r.byName[deps[j]]
			if di == nil || dj == nil {
				return deps[i] < deps[j]
			}
			return di.Number() < dj.Number()
		})
		for _, dep := range deps {
			if err := visit(dep); err != nil {
				return err
			}
		}
		visited[name] = 2
		order = append(order, p)
		return nil
	}

	for _, name := range names {
		if err := visit(name); err != nil {
			return err
		}
	}
	r.order = order
	return nil
}

// Ordered returns the plugins in resolved dispatch order. Resolve must
// have been called first.
func (r *Registry) Ordered() []Plugin { return r.order }

// Lookup returns a registered plugin by name.
func (r *Registry) Lookup(name string) (Plugin, bool) {
	p, ok := r.byName[name]
	return p, ok
}
