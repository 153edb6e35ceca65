package extension

import (
	"context"
	"fmt"
	"strings"
)

// DriverManager loads a single plugin, the driver, with a given name from
// a namespace. Construction fails unless exactly one matching plugin
// loads: zero matches and multiple matches are both configuration errors,
// and duplicates are reported rather than deduplicated.
type DriverManager struct {
	*NamedManager
	name string
}

// NewDriverManager loads the plugin registered under name in namespace.
// Load-time isolation is disabled here: with cardinality one there is
// nothing to isolate from, so any load failure surfaces immediately,
// wrapped as ErrDriverLoad with the namespace and name.
func NewDriverManager(ctx context.Context, namespace, name string, opts ...Option) (*DriverManager, error) {
	opts = append(append([]Option(nil), opts...), WithPropagateLoadErrors())
	nm, err := NewNamedManager(ctx, namespace, []string{name}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w %q from namespace %q: %w", ErrDriverLoad, name, namespace, err)
	}

	dm := &DriverManager{NamedManager: nm, name: name}
	if err := dm.validate(); err != nil {
		return nil, err
	}
	return dm, nil
}

// DriverFromExtension constructs a driver manager around one pre-built
// extension, bypassing discovery and the cardinality check. The namespace
// is only a label.
func DriverFromExtension(namespace string, ext *Extension, opts ...Option) *DriverManager {
	nm := NamedManagerFromExtensions(namespace, []*Extension{ext}, opts...)
	return &DriverManager{NamedManager: nm, name: ext.Name()}
}

// validate enforces the exactly-one cardinality, once, immediately after
// loading.
func (m *DriverManager) validate() error {
	switch len(m.extensions) {
	case 1:
		return nil
	case 0:
		return fmt.Errorf("%w: looking for %q in namespace %q", ErrDriverNotFound, m.name, m.namespace)
	default:
		targets := make([]string, len(m.extensions))
		for i, ext := range m.extensions {
			targets[i] = ext.Target()
		}
		return fmt.Errorf("%w in namespace %q: %s", ErrAmbiguousDriver, m.namespace, strings.Join(targets, ","))
	}
}

// Driver returns the driver being used by this manager: the instantiated
// object when invoke-on-load ran, the plugin value otherwise.
func (m *DriverManager) Driver() any {
	return m.extensions[0].Value()
}

// Call invokes fn for the single loaded extension via Map, so the
// use-time failure policy is inherited, and returns the first result.
// Under the default policy a failed invocation yields (nil, nil).
func (m *DriverManager) Call(fn MapFunc, args ...any) (any, error) {
	results, err := m.Map(fn, args...)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}
