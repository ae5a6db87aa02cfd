package builder

import (
	"fmt"
	"strings"
	"sync"

	"github.com/kingrea/dfxcore/internal/canister"
	"github.com/kingrea/dfxcore/internal/dfxerr"
)

// Registry maintains known builders in registration order.
type Registry struct {
	mu       sync.RWMutex
	order    []string
	builders map[string]Builder
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{builders: map[string]Builder{}}
}

// Register installs a builder. Returns an error if the ID already exists.
func (r *Registry) Register(id string, b Builder) error {
	if id == "" {
		return fmt.Errorf("builder: id is required")
	}
	if b == nil {
		return fmt.Errorf("builder: implementation is required for %s", id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.builders[id]; exists {
		return fmt.Errorf("builder: %s already registered", id)
	}
	r.builders[id] = b
	r.order = append(r.order, id)
	return nil
}

// MustRegister panics if registration fails.
func (r *Registry) MustRegister(id string, b Builder) {
	if err := r.Register(id, b); err != nil {
		panic(err)
	}
}

// Get returns a builder by ID.
func (r *Registry) Get(id string) (Builder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.builders[id]
	return b, ok
}

// IDs returns builder identifiers in registration order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Select returns the single builder that supports the canister. No
// claimant, or more than one, is a configuration error.
func (r *Registry) Select(info *canister.Info) (Builder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var (
		claimed []string
		chosen  Builder
	)
	for _, id := range r.order {
		b := r.builders[id]
		if b.Supports(info) {
			claimed = append(claimed, id)
			chosen = b
		}
	}
	switch len(claimed) {
	case 0:
		return nil, dfxerr.Config("Cannot find builder for canister '%s' of type '%s'.", info.Name(), info.Type())
	case 1:
		return chosen, nil
	default:
		return nil, dfxerr.Config("Canister '%s' of type '%s' is claimed by several builders: %s.", info.Name(), info.Type(), strings.Join(claimed, ", "))
	}
}
