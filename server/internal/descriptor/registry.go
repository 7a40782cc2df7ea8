// Package descriptor keeps the set of alert-type descriptors known to the
// process. Registration is optional: alerts of an unregistered type are
// legal, and descriptors are never removed.
package descriptor

import (
	"sort"
	"sync"

	"github.com/alertcore/alertcore/pkg/types"
)

// Registry is a thread-safe set of Descriptors keyed by alert type.
type Registry struct {
	mu    sync.RWMutex
	byKey map[string]types.Descriptor
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{byKey: make(map[string]types.Descriptor)}
}

// Add registers d and returns true, or returns false without changing
// anything when a descriptor for d.AlertType() already exists.
func (r *Registry) Add(d types.Descriptor) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byKey[d.AlertType()]; ok {
		return false
	}
	r.byKey[d.AlertType()] = d
	return true
}

// Get returns the descriptor registered for alertType.
func (r *Registry) Get(alertType string) (types.Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byKey[alertType]
	return d, ok
}

// All returns every registered descriptor. The result is sorted by alert
// type for stable output; callers must not rely on any order.
func (r *Registry) All() []types.Descriptor {
	r.mu.RLock()
	out := make([]types.Descriptor, 0, len(r.byKey))
	for _, d := range r.byKey {
		out = append(out, d)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].AlertType() < out[j].AlertType() })
	return out
}

// Len returns the number of registered descriptors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byKey)
}
