// Package capabilities holds the process-wide set of tracing capabilities a
// host negotiates with its parsers.
package capabilities

import (
	"sort"
	"sync"
)

// HandleSolibs signals that the tracer can follow shared objects. It is
// removed when the target and host bit widths differ.
const HandleSolibs = "handle-solibs"

// Registry is a synchronized capability set.
type Registry struct {
	mu   sync.RWMutex
	caps map[string]struct{}
}

// NewRegistry returns a registry holding the given capabilities.
func NewRegistry(initial ...string) *Registry {
	r := &Registry{caps: make(map[string]struct{}, len(initial))}
	for _, c := range initial {
		r.caps[c] = struct{}{}
	}
	return r
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the process-wide registry.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// Add enables a capability.
func (r *Registry) Add(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.caps[name] = struct{}{}
}

// Remove disables a capability.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.caps, name)
}

// Has reports whether a capability is enabled.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.caps[name]
	return ok
}

// List returns the enabled capabilities in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.caps))
	for c := range r.caps {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
