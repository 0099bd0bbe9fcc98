package fix

import (
	"fmt"
	"sort"
)

// RegistryBuilder collects providers before the registry is frozen
type RegistryBuilder struct {
	providers map[ProviderID]Provider
	err       error
}

// NewRegistryBuilder creates an empty builder
func NewRegistryBuilder() *RegistryBuilder {
	return &RegistryBuilder{providers: make(map[ProviderID]Provider)}
}

// Register adds providers. A second provider with an already registered ID
// is an error reported by Build.
func (b *RegistryBuilder) Register(providers ...Provider) *RegistryBuilder {
	for _, p := range providers {
		if _, exists := b.providers[p.ID()]; exists {
			if b.err == nil {
				b.err = fmt.Errorf("provider %q registered twice", p.ID())
			}
			continue
		}
		b.providers[p.ID()] = p
	}
	return b
}

// Build freezes the registry
func (b *RegistryBuilder) Build() (*Registry, error) {
	if b.err != nil {
		return nil, b.err
	}
	providers := make(map[ProviderID]Provider, len(b.providers))
	for id, p := range b.providers {
		providers[id] = p
	}
	return &Registry{providers: providers}, nil
}

// Registry maps provider IDs to providers. It is immutable.
type Registry struct {
	providers map[ProviderID]Provider
}

// Get returns a provider by ID
func (r *Registry) Get(id ProviderID) (Provider, bool) {
	p, ok := r.providers[id]
	return p, ok
}

// IDs returns the registered provider IDs in sorted order
func (r *Registry) IDs() []ProviderID {
	ids := make([]ProviderID, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
