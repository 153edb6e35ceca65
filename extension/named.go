package extension

import (
	"context"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/toolink/gantry/discovery"
)

// NamedManager loads only the extensions whose names appear in a
// caller-supplied allow-list. Useful for enabling plugins from
// configuration: descriptors outside the list are rejected before their
// targets resolve, so unused plugins incur no resolution cost at all.
type NamedManager struct {
	*Manager
	names []string
}

// NewNamedManager discovers namespace and loads the subset of plugins
// named in names. An allow-list name with no matching descriptor is
// omitted with a warning; Missing reports such names afterwards for
// callers that treat absence as fatal. With WithNameOrder the loaded
// extensions are reordered, once, to match the allow-list order.
func NewNamedManager(ctx context.Context, namespace string, names []string, opts ...Option) (*NamedManager, error) {
	options := newOptions(opts...)

	allowed := make(map[string]struct{}, len(names))
	for _, n := range names {
		allowed[n] = struct{}{}
	}
	// Check the name before resolving anything, so plugins outside the
	// allow-list are never executed.
	accept := func(d discovery.Descriptor) bool {
		_, ok := allowed[d.Name()]
		return ok
	}

	exts, err := loadExtensions(ctx, namespace, options, accept)
	if err != nil {
		return nil, err
	}

	nm := &NamedManager{
		Manager: &Manager{
			namespace:          namespace,
			extensions:         exts,
			propagateMapErrors: options.PropagateMapErrors,
		},
		names: append([]string(nil), names...),
	}
	nm.reportMissing()
	if options.NameOrder {
		nm.orderByNames()
	}
	return nm, nil
}

// NamedManagerFromExtensions constructs a named manager directly from
// pre-built extensions, bypassing discovery and loading. The allow-list
// becomes the names of the given extensions.
func NamedManagerFromExtensions(namespace string, exts []*Extension, opts ...Option) *NamedManager {
	options := newOptions(opts...)
	m := ManagerFromExtensions(namespace, exts, opts...)
	nm := &NamedManager{Manager: m, names: m.Names()}
	if options.NameOrder {
		nm.orderByNames()
	}
	return nm
}

// orderByNames reorders the loaded extensions in place so their order
// matches the allow-list. Every loaded name is in the list; a duplicate
// list entry keeps its first position.
func (m *NamedManager) orderByNames() {
	index := make(map[string]int, len(m.names))
	for i, n := range m.names {
		if _, ok := index[n]; !ok {
			index[n] = i
		}
	}
	sort.SliceStable(m.extensions, func(i, j int) bool {
		return index[m.extensions[i].Name()] < index[m.extensions[j].Name()]
	})
}

// Missing returns the allow-list names that matched no descriptor, in
// allow-list order. A name repeated in the list is reported once.
func (m *NamedManager) Missing() []string {
	loaded := make(map[string]struct{}, len(m.extensions))
	for _, ext := range m.extensions {
		loaded[ext.Name()] = struct{}{}
	}

	seen := make(map[string]struct{}, len(m.names))
	var missing []string
	for _, n := range m.names {
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		if _, ok := loaded[n]; !ok {
			missing = append(missing, n)
		}
	}
	return missing
}

// reportMissing warns about allow-list names that matched no descriptor.
func (m *NamedManager) reportMissing() {
	if missing := m.Missing(); len(missing) > 0 {
		log.Warn().Str("namespace", m.namespace).Strs("missing", missing).Msg("allow-listed plugins not found in namespace")
	}
}
