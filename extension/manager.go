package extension

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/toolink/gantry/discovery"
	"github.com/toolink/gantry/global"
)

// MapFunc is the callback signature for Map and Call: it receives one
// loaded extension plus the caller's arguments and contributes one result.
type MapFunc func(ext *Extension, args ...any) (any, error)

// Options holds configuration shared by the manager constructors.
type Options struct {
	// Source is the discovery collaborator (default: the global registry).
	Source discovery.Source
	// InvokeOnLoad instantiates each accepted plugin at load time by
	// calling it with InvokeArgs and, when non-empty, InvokeKwds.
	InvokeOnLoad bool
	InvokeArgs   []any
	InvokeKwds   map[string]any
	// PropagateLoadErrors aborts construction on the first plugin that
	// fails to load instead of skipping it.
	PropagateLoadErrors bool
	// PropagateMapErrors aborts Map on the first callback error instead of
	// omitting that extension's result.
	PropagateMapErrors bool
	// NameOrder reorders loaded extensions to match the allow-list order
	// (named and driver managers only).
	NameOrder bool
	// OnLoadFailure, when set, observes isolated load failures in place of
	// the default error log line.
	OnLoadFailure func(d discovery.Descriptor, err error)
}

// Option defines a function type for setting options.
type Option func(*Options)

// newOptions creates default options and applies user overrides.
func newOptions(opts ...Option) *Options {
	options := &Options{}
	for _, o := range opts {
		o(options)
	}
	return options
}

// WithSource sets the discovery source the manager loads from.
func WithSource(s discovery.Source) Option {
	return func(o *Options) {
		o.Source = s
	}
}

// WithInvokeOnLoad instantiates each accepted plugin at load time with the
// given positional arguments.
func WithInvokeOnLoad(args ...any) Option {
	return func(o *Options) {
		o.InvokeOnLoad = true
		o.InvokeArgs = args
	}
}

// WithInvokeKwds sets keyword-style arguments for load-time invocation.
// They are passed as a trailing map[string]any argument and only used
// together with WithInvokeOnLoad.
func WithInvokeKwds(kwds map[string]any) Option {
	return func(o *Options) {
		o.InvokeKwds = kwds
	}
}

// WithPropagateLoadErrors makes the first failing plugin abort manager
// construction instead of being skipped.
func WithPropagateLoadErrors() Option {
	return func(o *Options) {
		o.PropagateLoadErrors = true
	}
}

// WithPropagateMapErrors makes Map and Call propagate the first callback
// error instead of isolating it.
func WithPropagateMapErrors() Option {
	return func(o *Options) {
		o.PropagateMapErrors = true
	}
}

// WithNameOrder reorders the loaded extensions to match the allow-list
// order. Ignored by the base manager, which has no allow-list.
func WithNameOrder() Option {
	return func(o *Options) {
		o.NameOrder = true
	}
}

// WithLoadFailureCallback registers an observer for isolated load
// failures.
func WithLoadFailureCallback(fn func(d discovery.Descriptor, err error)) Option {
	return func(o *Options) {
		o.OnLoadFailure = fn
	}
}

// acceptFunc decides, per descriptor and strictly before resolution,
// whether a plugin is loaded at all. A nil acceptFunc accepts everything.
type acceptFunc func(d discovery.Descriptor) bool

// Manager loads every extension discovered under a namespace and holds
// the resulting set. It is fully initialized when the constructor
// returns; the loaded set is read-only afterwards and safe for concurrent
// use.
type Manager struct {
	namespace          string
	extensions         []*Extension
	propagateMapErrors bool
}

// NewManager discovers, resolves, and optionally instantiates every
// plugin registered under namespace. By default a plugin that fails to
// load is logged and skipped so its siblings still load; see
// WithPropagateLoadErrors.
func NewManager(ctx context.Context, namespace string, opts ...Option) (*Manager, error) {
	options := newOptions(opts...)
	exts, err := loadExtensions(ctx, namespace, options, nil)
	if err != nil {
		return nil, err
	}
	return &Manager{
		namespace:          namespace,
		extensions:         exts,
		propagateMapErrors: options.PropagateMapErrors,
	}, nil
}

// ManagerFromExtensions constructs a manager directly from pre-built
// extensions, bypassing discovery and loading entirely. The namespace is
// only a label. Meant for tests and for callers that assemble extensions
// themselves.
func ManagerFromExtensions(namespace string, exts []*Extension, opts ...Option) *Manager {
	options := newOptions(opts...)
	return &Manager{
		namespace:          namespace,
		extensions:         append([]*Extension(nil), exts...),
		propagateMapErrors: options.PropagateMapErrors,
	}
}

// Namespace returns the namespace the manager was constructed for.
func (m *Manager) Namespace() string {
	return m.namespace
}

// Names returns the names of the loaded extensions in load order.
func (m *Manager) Names() []string {
	names := make([]string, len(m.extensions))
	for i, ext := range m.extensions {
		names[i] = ext.Name()
	}
	return names
}

// Extensions returns a copy of the loaded extensions in load order.
func (m *Manager) Extensions() []*Extension {
	return append([]*Extension(nil), m.extensions...)
}

// ByName returns the first loaded extension with the given name.
func (m *Manager) ByName(name string) (*Extension, bool) {
	for _, ext := range m.extensions {
		if ext.Name() == name {
			return ext, true
		}
	}
	return nil, false
}

// Map invokes fn once per loaded extension, in load order, and collects
// the results. A callback error is logged and that extension's result
// omitted, unless the manager was built with WithPropagateMapErrors, in
// which case the first error aborts the call wrapped as ErrCallback.
// Returns ErrNoMatches when nothing is loaded.
func (m *Manager) Map(fn MapFunc, args ...any) ([]any, error) {
	if len(m.extensions) == 0 {
		return nil, fmt.Errorf("%w: namespace %s", ErrNoMatches, m.namespace)
	}
	return m.mapOver(m.extensions, fn, args)
}

// MapMethod invokes the named method on each loaded extension's value,
// with the same isolation policy as Map.
func (m *Manager) MapMethod(method string, args ...any) ([]any, error) {
	return m.Map(func(ext *Extension, callArgs ...any) (any, error) {
		return callMethod(ext.Value(), method, callArgs)
	}, args...)
}

// mapOver applies fn over the given extensions under the manager's
// use-time failure policy.
func (m *Manager) mapOver(exts []*Extension, fn MapFunc, args []any) ([]any, error) {
	results := make([]any, 0, len(exts))
	for _, ext := range exts {
		res, err := fn(ext, args...)
		if err != nil {
			if m.propagateMapErrors {
				return nil, fmt.Errorf("%w: %s: %w", ErrCallback, ext.Name(), err)
			}
			log.Error().Str("namespace", m.namespace).Str("extension", ext.Name()).Err(err).Msg("error calling extension, result omitted")
			continue
		}
		results = append(results, res)
	}
	return results, nil
}

// loadExtensions runs the discovery and load pipeline shared by the
// manager constructors: discover descriptors, apply the accept decision
// before any resolution side effect, then resolve and optionally invoke
// the accepted ones.
func loadExtensions(ctx context.Context, namespace string, options *Options, accept acceptFunc) ([]*Extension, error) {
	src := options.Source
	if src == nil {
		src = global.GetRegistry()
	}

	descs, err := src.Discover(ctx, namespace)
	if err != nil {
		return nil, fmt.Errorf("discovering namespace %s: %w", namespace, err)
	}

	exts := make([]*Extension, 0, len(descs))
	for _, d := range descs {
		if accept != nil && !accept(d) {
			log.Debug().Str("namespace", namespace).Str("plugin", d.Name()).Msg("plugin rejected before resolution")
			continue
		}

		ext, err := loadOne(d, options)
		if err != nil {
			if options.PropagateLoadErrors {
				return nil, err
			}
			if options.OnLoadFailure != nil {
				options.OnLoadFailure(d, err)
			} else {
				log.Error().Str("namespace", namespace).Str("plugin", d.Name()).Err(err).Msg("failed to load plugin, skipping")
			}
			continue
		}
		exts = append(exts, ext)
	}
	return exts, nil
}

// loadOne resolves a single accepted descriptor into an Extension.
func loadOne(d discovery.Descriptor, options *Options) (*Extension, error) {
	log.Debug().Str("plugin", d.Name()).Str("target", d.Target()).Msg("loading plugin...")
	startTime := time.Now()

	plugin, err := d.Resolve()
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", d.Target(), err)
	}

	if !options.InvokeOnLoad {
		log.Debug().Str("plugin", d.Name()).Dur("duration", time.Since(startTime)).Msg("plugin loaded")
		return NewExtension(d.Name(), d.Target(), plugin), nil
	}

	obj, err := invokePlugin(plugin, options.InvokeArgs, options.InvokeKwds)
	if err != nil {
		return nil, fmt.Errorf("invoking %s: %w", d.Target(), err)
	}
	log.Debug().Str("plugin", d.Name()).Dur("duration", time.Since(startTime)).Msg("plugin loaded and invoked")
	return NewInvokedExtension(d.Name(), d.Target(), plugin, obj), nil
}
