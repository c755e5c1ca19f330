package tags

import (
	"encoding/json"
	"slices"
)

// Registry is the set of tag names that exist independent of assignments.
// Insertion order is kept so the persisted list is stable.
type Registry struct {
	names []string
}

// NewRegistry builds a registry from names, sanitizing and deduping them.
func NewRegistry(names ...string) *Registry {
	r := &Registry{}
	for _, n := range names {
		r.Add(n)
	}
	return r
}

// Add sanitizes name and adds it. Returns false for empty names and names
// already present.
func (r *Registry) Add(name string) bool {
	name = Sanitize(name)
	if name == "" || r.Has(name) {
		return false
	}
	r.names = append(r.names, name)
	return true
}

// Remove drops name from the registry.
func (r *Registry) Remove(name string) bool {
	i := slices.Index(r.names, name)
	if i < 0 {
		return false
	}
	r.names = slices.Delete(r.names, i, i+1)
	return true
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	return slices.Contains(r.names, name)
}

// Names returns the registered names in insertion order.
func (r *Registry) Names() []string {
	return slices.Clone(r.names)
}

// Len is the number of registered names.
func (r *Registry) Len() int {
	return len(r.names)
}

// MarshalJSON writes the registry as a JSON array.
func (r *Registry) MarshalJSON() ([]byte, error) {
	names := r.names
	if names == nil {
		names = []string{}
	}
	return json.Marshal(names)
}

// UnmarshalJSON reads a JSON array of names.
func (r *Registry) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	*r = *NewRegistry(names...)
	return nil
}

func (r *Registry) clone() *Registry {
	return &Registry{names: slices.Clone(r.names)}
}
