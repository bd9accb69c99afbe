package backend

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds constructed drivers by name. Drivers register at startup;
// the orchestrator resolves the configured one exactly once. Keeping the
// table explicit (rather than probing optional dependencies at call time)
// makes backend selection deterministic and testable.
type Registry struct {
	mu      sync.RWMutex
	drivers map[string]Driver
}

// NewRegistry creates an empty driver registry.
func NewRegistry() *Registry {
	return &Registry{
		drivers: make(map[string]Driver),
	}
}

// Register adds a driver to the registry under its name.
func (r *Registry) Register(d Driver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drivers[d.Name()] = d
}

// Resolve returns the driver registered under name.
func (r *Registry) Resolve(name string) (Driver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.drivers[name]
	if !ok {
		return nil, fmt.Errorf("backend %q is not registered", name)
	}
	return d, nil
}

// List returns the registered driver names, sorted for a stable API response.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.drivers))
	for name := range r.drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
