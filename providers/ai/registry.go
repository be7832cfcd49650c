package ai

import (
	"fmt"
	"sync"
)

// Factory constructs a Provider. Factories run at most once per provider per
// Registry; they are where credentials are read, so a Registry must not be
// populated before process configuration is loaded.
type Factory func() Provider

// Registry resolves a provider identifier to a singleton Provider instance.
// Construction is lazy: the factory registered for an identifier runs on the
// first Resolve for that identifier and the instance is cached for the life
// of the Registry. Cached instances are shared read-only across requests.
//
// Registry is the single switchboard used by both the message-send path and
// the health-probe path.
type Registry struct {
	mu        sync.Mutex
	factories map[ProviderID]Factory
	instances map[ProviderID]Provider
}

// NewRegistry returns an empty Registry. Callers register one factory per
// provider during startup, after configuration is loaded.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[ProviderID]Factory),
		instances: make(map[ProviderID]Provider),
	}
}

// Register binds a factory to a provider identifier. Registering the same
// identifier twice replaces the factory but never an already-constructed
// instance.
func (registry *Registry) Register(id ProviderID, factory Factory) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.factories[id] = factory
}

// Resolve returns the cached Provider for id, constructing it on first use.
// The mutex guards against duplicate concurrent construction. Identifiers
// with no registered factory fail with ErrUnknownProvider.
func (registry *Registry) Resolve(id ProviderID) (Provider, error) {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	if instance, ok := registry.instances[id]; ok {
		return instance, nil
	}

	factory, ok := registry.factories[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, id)
	}

	instance := factory()
	registry.instances[id] = instance
	return instance, nil
}

// IDs returns the identifiers with a registered factory, in the canonical
// provider order. Identifiers outside the closed set are never returned.
func (registry *Registry) IDs() []ProviderID {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	var ids []ProviderID
	for _, id := range ProviderIDs() {
		if _, ok := registry.factories[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}
