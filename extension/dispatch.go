package extension

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// FilterFunc decides, per invocation, whether an extension takes part.
// It receives the same arguments the callback will.
type FilterFunc func(ext *Extension, args ...any) bool

// DispatchManager is an EnabledManager whose invocations are routed to a
// subset of the loaded extensions chosen at call time.
type DispatchManager struct {
	*EnabledManager
}

// NewDispatchManager discovers namespace, filters the loaded extensions
// through check, and routes invocations per call via MapFiltered.
func NewDispatchManager(ctx context.Context, namespace string, check CheckFunc, opts ...Option) (*DispatchManager, error) {
	em, err := NewEnabledManager(ctx, namespace, check, opts...)
	if err != nil {
		return nil, err
	}
	return &DispatchManager{EnabledManager: em}, nil
}

// MapFiltered invokes fn only for the loaded extensions filter accepts,
// under the manager's usual use-time failure policy. A nil filter accepts
// everything. Returns ErrNoMatches when the filter accepts nothing.
func (m *DispatchManager) MapFiltered(filter FilterFunc, fn MapFunc, args ...any) ([]any, error) {
	selected := make([]*Extension, 0, len(m.extensions))
	for _, ext := range m.extensions {
		if filter == nil || filter(ext, args...) {
			selected = append(selected, ext)
		}
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("%w: filter matched nothing in namespace %s", ErrNoMatches, m.namespace)
	}
	return m.mapOver(selected, fn, args)
}

// NameDispatchManager routes invocations by extension name.
type NameDispatchManager struct {
	*DispatchManager
	byName map[string]*Extension
}

// NewNameDispatchManager is NewDispatchManager plus a by-name index for
// MapByName.
func NewNameDispatchManager(ctx context.Context, namespace string, check CheckFunc, opts ...Option) (*NameDispatchManager, error) {
	dm, err := NewDispatchManager(ctx, namespace, check, opts...)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]*Extension, len(dm.extensions))
	for _, ext := range dm.extensions {
		if _, exists := byName[ext.Name()]; exists {
			log.Warn().Str("namespace", namespace).Str("extension", ext.Name()).Msg("duplicate name in dispatch index, keeping first")
			continue
		}
		byName[ext.Name()] = ext
	}
	return &NameDispatchManager{DispatchManager: dm, byName: byName}, nil
}

// MapByName invokes fn for the named extensions, in the order the names
// are given. Unknown names are logged and skipped. Returns ErrNoMatches
// when none of the names is loaded.
func (m *NameDispatchManager) MapByName(names []string, fn MapFunc, args ...any) ([]any, error) {
	selected := make([]*Extension, 0, len(names))
	for _, n := range names {
		ext, ok := m.byName[n]
		if !ok {
			log.Warn().Str("namespace", m.namespace).Str("extension", n).Msg("dispatch to unknown extension name, skipping")
			continue
		}
		selected = append(selected, ext)
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("%w: none of the requested names are loaded in namespace %s", ErrNoMatches, m.namespace)
	}
	return m.mapOver(selected, fn, args)
}
