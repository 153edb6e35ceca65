package discovery

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
)

// Targets maps catalog target strings to plugin values linked into the
// process. Manifest files and redis records name plugins by target; this
// table is where those strings land on real code. Keys are never
// overwritten, because catalogs reference them long after registration.
type Targets struct {
	mu sync.RWMutex
	m  map[string]any
}

// NewTargets creates an empty target table.
func NewTargets() *Targets {
	return &Targets{m: make(map[string]any)}
}

// Register binds a target key to a plugin value.
// Returns ErrTargetRegistered if the key is already taken.
func (t *Targets) Register(target string, plugin any) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.m[target]; exists {
		log.Error().Str("target", target).Msg("attempted to register duplicate target")
		return fmt.Errorf("%w: %s", ErrTargetRegistered, target)
	}
	t.m[target] = plugin
	log.Debug().Str("target", target).Msg("target registered")
	return nil
}

// MustRegister is like Register but panics on duplicate keys. Meant for
// init-time wiring, where a duplicate is a programming error.
func (t *Targets) MustRegister(target string, plugin any) {
	if err := t.Register(target, plugin); err != nil {
		log.Panic().Err(err).Str("target", target).Msg("failed to register target")
	}
}

// ResolveTarget implements TargetResolver.
// Returns ErrTargetNotFound for unknown keys.
func (t *Targets) ResolveTarget(target string) (any, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	plugin, exists := t.m[target]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrTargetNotFound, target)
	}
	return plugin, nil
}

// Known returns the sorted registered target keys.
func (t *Targets) Known() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	keys := make([]string, 0, len(t.m))
	for k := range t.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var _ TargetResolver = (*Targets)(nil)
