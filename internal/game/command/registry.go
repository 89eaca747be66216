package command

import "fmt"

// Registry maps command names and aliases to their Spec.
type Registry struct {
	specs   map[string]*Spec // canonical name → spec
	aliases map[string]string
	order   []string
}

// NewRegistry creates a Registry populated with the given specs.
//
// Precondition: No two specs may share a canonical name or alias.
// Postcondition: Returns a Registry or an error on name/alias collisions.
func NewRegistry(specs []Spec) (*Registry, error) {
	r := &Registry{
		specs:   make(map[string]*Spec, len(specs)),
		aliases: make(map[string]string),
	}

	for i := range specs {
		spec := &specs[i]
		if _, exists := r.specs[spec.Name]; exists {
			return nil, fmt.Errorf("duplicate command name: %q", spec.Name)
		}
		if _, exists := r.aliases[spec.Name]; exists {
			return nil, fmt.Errorf("command name %q conflicts with an existing alias", spec.Name)
		}
		r.specs[spec.Name] = spec
		r.order = append(r.order, spec.Name)

		for _, alias := range spec.Aliases {
			if _, exists := r.specs[alias]; exists {
				return nil, fmt.Errorf("alias %q conflicts with command name %q", alias, alias)
			}
			if existing, exists := r.aliases[alias]; exists {
				return nil, fmt.Errorf("duplicate alias %q: used by %q and %q", alias, existing, spec.Name)
			}
			r.aliases[alias] = spec.Name
		}
	}

	return r, nil
}

// DefaultRegistry creates a Registry with all built-in commands.
//
// Postcondition: Returns a Registry with all built-in commands registered.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(BuiltinSpecs())
	if err != nil {
		panic(fmt.Sprintf("building default registry: %v", err))
	}
	return r
}

// Resolve looks up a spec by canonical name or alias.
//
// Postcondition: Returns (spec, true) if found, or (nil, false).
func (r *Registry) Resolve(input string) (*Spec, bool) {
	if spec, ok := r.specs[input]; ok {
		return spec, true
	}
	if canonical, ok := r.aliases[input]; ok {
		return r.specs[canonical], true
	}
	return nil, false
}

// Specs returns all registered specs in registration order.
func (r *Registry) Specs() []*Spec {
	result := make([]*Spec, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.specs[name])
	}
	return result
}

// ByCategory returns specs grouped by category, each group in registration
// order.
func (r *Registry) ByCategory() map[string][]*Spec {
	categories := make(map[string][]*Spec)
	for _, name := range r.order {
		spec := r.specs[name]
		categories[spec.Category] = append(categories[spec.Category], spec)
	}
	return categories
}
