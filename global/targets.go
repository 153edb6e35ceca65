package global

import (
	"sync/atomic"

	"github.com/toolink/gantry/discovery"
)

// defaultTargets is a global instance of the catalog target table.
func defaultTargets() *atomic.Value {
	v := &atomic.Value{}
	v.Store(discovery.NewTargets())
	return v
}

var globalTargets = defaultTargets()

// SetTargets sets the global catalog target table.
func SetTargets(t *discovery.Targets) {
	globalTargets.Store(t)
}

// GetTargets retrieves the current global catalog target table.
// External catalog sources fall back to it when no resolver is configured.
func GetTargets() *discovery.Targets {
	return globalTargets.Load().(*discovery.Targets)
}
