// Package discovery defines how plugin descriptors are found for a
// namespace and how catalog targets resolve to code linked into the
// process. Managers consume the Source interface; everything else here
// is one of the shipped implementations.
package discovery

import (
	"context"
	"errors"
	"fmt"
)

// Custom errors
var (
	ErrTargetRegistered = errors.New("target is already registered")
	ErrTargetNotFound   = errors.New("target not found")
	ErrNoSources        = errors.New("all discovery sources failed")
)

// Descriptor is a handle to a not-yet-resolved plugin: a name used for
// filtering and lookup, a target string used only for diagnostics, and a
// Resolve method producing the plugin value. Implementations keep side
// effects inside Resolve so descriptors that are filtered out are never
// touched.
type Descriptor interface {
	// Name returns the plugin name the managers filter on.
	Name() string

	// Target returns a human-readable identifier of what Resolve loads.
	Target() string

	// Resolve returns the plugin value, usually a constructor function.
	Resolve() (any, error)
}

// Source yields the descriptors registered under a namespace.
type Source interface {
	Discover(ctx context.Context, namespace string) ([]Descriptor, error)
}

// TargetResolver resolves a catalog target string to a plugin value.
// External catalogs (manifest files, redis records) carry target strings,
// not code; a resolver maps those strings onto registered values.
type TargetResolver interface {
	ResolveTarget(target string) (any, error)
}

// descriptor is the eager implementation: the plugin value is already in
// hand and Resolve just returns it.
type descriptor struct {
	name   string
	target string
	plugin any
}

// NewDescriptor builds a descriptor around an already-resolved plugin value.
func NewDescriptor(name, target string, plugin any) Descriptor {
	return &descriptor{name: name, target: target, plugin: plugin}
}

func (d *descriptor) Name() string   { return d.name }
func (d *descriptor) Target() string { return d.target }

func (d *descriptor) Resolve() (any, error) {
	return d.plugin, nil
}

// lazyDescriptor defers resolution to a callback.
type lazyDescriptor struct {
	name    string
	target  string
	resolve func() (any, error)
}

// NewLazyDescriptor builds a descriptor whose plugin value is produced on
// use by the resolve callback.
func NewLazyDescriptor(name, target string, resolve func() (any, error)) Descriptor {
	return &lazyDescriptor{name: name, target: target, resolve: resolve}
}

func (d *lazyDescriptor) Name() string   { return d.name }
func (d *lazyDescriptor) Target() string { return d.target }

func (d *lazyDescriptor) Resolve() (any, error) {
	if d.resolve == nil {
		return nil, fmt.Errorf("%w: descriptor %s has no resolver", ErrTargetNotFound, d.target)
	}
	return d.resolve()
}

var (
	_ Descriptor = (*descriptor)(nil)
	_ Descriptor = (*lazyDescriptor)(nil)
)
