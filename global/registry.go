package global

import (
	"sync/atomic"

	"github.com/toolink/gantry/discovery"
)

// defaultRegistry is a global instance of the descriptor registry.
func defaultRegistry() *atomic.Value {
	v := &atomic.Value{}
	v.Store(discovery.New())
	return v
}

var globalRegistry = defaultRegistry()

// SetRegistry sets the global descriptor registry. Tests swap in a fresh
// registry here instead of mutating the default one.
func SetRegistry(r *discovery.Registry) {
	globalRegistry.Store(r)
}

// GetRegistry retrieves the current global descriptor registry.
// Managers fall back to it when no discovery source is configured.
func GetRegistry() *discovery.Registry {
	return globalRegistry.Load().(*discovery.Registry)
}
