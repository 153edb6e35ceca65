package discovery

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
)

// Registry is the in-process descriptor source. Plugin packages register
// descriptors under a namespace, typically from an init function, and
// managers discover them in registration order. Duplicate names under one
// namespace are kept as-is; cardinality enforcement belongs to the
// consumers, so a driver-style lookup can still report the conflict.
type Registry struct {
	mu         sync.RWMutex
	namespaces map[string][]Descriptor
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{namespaces: make(map[string][]Descriptor)}
}

// Register appends descriptors to a namespace in call order.
// Nil descriptors are ignored with a warning. A duplicate name is logged
// and kept.
func (r *Registry) Register(namespace string, descs ...Descriptor) {
	if len(descs) == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, d := range descs {
		if d == nil {
			log.Warn().Str("namespace", namespace).Msg("ignoring nil descriptor passed to Register")
			continue
		}
		for _, existing := range r.namespaces[namespace] {
			if existing.Name() == d.Name() {
				log.Warn().Str("namespace", namespace).Str("plugin", d.Name()).Msg("registering duplicate plugin name")
				break
			}
		}
		r.namespaces[namespace] = append(r.namespaces[namespace], d)
		log.Debug().Str("namespace", namespace).Str("plugin", d.Name()).Str("target", d.Target()).Msg("descriptor registered")
	}
}

// RegisterPlugin wraps a plugin value in an eager descriptor and registers
// it, deriving the target string from the value itself.
func (r *Registry) RegisterPlugin(namespace, name string, plugin any) {
	r.Register(namespace, NewDescriptor(name, TargetOf(plugin), plugin))
}

// Discover implements Source. The returned slice is a copy, in
// registration order.
func (r *Registry) Discover(_ context.Context, namespace string) ([]Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Descriptor(nil), r.namespaces[namespace]...), nil
}

// Namespaces returns the sorted list of namespaces holding at least one
// descriptor.
func (r *Registry) Namespaces() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.namespaces))
	for ns := range r.namespaces {
		if len(r.namespaces[ns]) > 0 {
			names = append(names, ns)
		}
	}
	sort.Strings(names)
	return names
}

// TargetOf derives a diagnostic target string for a plugin value: the
// import path of the function for funcs, the type otherwise.
func TargetOf(plugin any) string {
	if plugin == nil {
		return "<nil>"
	}
	v := reflect.ValueOf(plugin)
	if v.Kind() == reflect.Func {
		if fn := runtime.FuncForPC(v.Pointer()); fn != nil {
			return fn.Name()
		}
	}
	return fmt.Sprintf("%T", plugin)
}

var _ Source = (*Registry)(nil)
