// Package extension loads namespaced plugins through a discovery source
// and exposes uniform invocation across the loaded set. Manager loads
// everything a namespace offers, NamedManager restricts loading to an
// allow-list of names, and DriverManager enforces that exactly one plugin
// loads and surfaces it as the driver.
package extension

import (
	"errors"
	"fmt"
)

// Predefined errors for common scenarios in plugin loading and invocation.
var (
	ErrNoMatches       = errors.New("no extensions found")
	ErrDriverNotFound  = errors.New("no driver found")
	ErrAmbiguousDriver = errors.New("multiple drivers found")
	ErrDriverLoad      = errors.New("unable to load driver")
	ErrCallback        = errors.New("extension callback failed")
	ErrNotInvokable    = errors.New("plugin is not invokable")
	ErrInvokeArgs      = errors.New("plugin argument mismatch")
	ErrUnknownMethod   = errors.New("no such method on extension value")
)

// Extension is the immutable record of one successfully loaded plugin.
// It is created exactly once, at load time, and never mutated; managers
// hand it to callbacks by pointer and callers treat it as read-only.
type Extension struct {
	name    string
	target  string
	plugin  any
	obj     any
	invoked bool
}

// NewExtension builds the record for a plugin that was resolved but not
// invoked.
func NewExtension(name, target string, plugin any) *Extension {
	return &Extension{name: name, target: target, plugin: plugin}
}

// NewInvokedExtension builds the record for a plugin that was invoked at
// load time. The obj may legitimately be nil; the record still remembers
// that the invocation happened.
func NewInvokedExtension(name, target string, plugin, obj any) *Extension {
	return &Extension{name: name, target: target, plugin: plugin, obj: obj, invoked: true}
}

// Name returns the name the plugin was discovered under.
func (e *Extension) Name() string { return e.name }

// Target returns the descriptive string of what was resolved.
// Used only for diagnostics, never parsed.
func (e *Extension) Target() string { return e.target }

// Plugin returns the resolved, uninstantiated plugin value.
func (e *Extension) Plugin() any { return e.plugin }

// Object returns the instantiated object and whether invoke-on-load ran.
// The flag is what distinguishes "never instantiated" from "instantiated
// to a nil or zero value".
func (e *Extension) Object() (any, bool) { return e.obj, e.invoked }

// Value returns the instantiated object when invoke-on-load ran, and the
// plugin value otherwise.
func (e *Extension) Value() any {
	if e.invoked {
		return e.obj
	}
	return e.plugin
}

// String provides a human-readable representation.
func (e *Extension) String() string {
	return fmt.Sprintf("%s (%s)", e.name, e.target)
}
