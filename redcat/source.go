package redcat

import (
	"context"

	"github.com/toolink/gantry/discovery"
	"github.com/toolink/gantry/global"
)

// SourceOptions holds configuration for the discovery adapter.
type SourceOptions struct {
	// Resolver maps record targets to plugin values.
	// Defaults to the process-wide target table.
	Resolver discovery.TargetResolver
}

// SourceOption defines a function type for setting source options.
type SourceOption func(*SourceOptions)

// WithResolver sets the target resolver used for published records.
func WithResolver(resolver discovery.TargetResolver) SourceOption {
	return func(o *SourceOptions) {
		o.Resolver = resolver
	}
}

// Source adapts a catalog into a discovery.Source: every record
// published under a namespace becomes a lazy descriptor whose target
// resolves to code through the resolver. Nothing is resolved until an
// extension manager asks for the plugin.
type Source struct {
	catalog *Catalog
	opts    *SourceOptions
}

// NewSource wraps a catalog for use by extension managers.
func NewSource(catalog *Catalog, opts ...SourceOption) *Source {
	options := &SourceOptions{}
	for _, o := range opts {
		o(options)
	}
	return &Source{
		catalog: catalog,
		opts:    options,
	}
}

// Discover implements discovery.Source. Duplicate names across
// publishers are preserved so consumers can detect ambiguity.
func (s *Source) Discover(ctx context.Context, namespace string) ([]discovery.Descriptor, error) {
	records, err := s.catalog.Records(ctx, namespace)
	if err != nil {
		return nil, err
	}

	resolver := s.opts.Resolver
	if resolver == nil {
		resolver = global.GetTargets()
	}

	descs := make([]discovery.Descriptor, 0, len(records))
	for _, rec := range records {
		target := rec.Target
		descs = append(descs, discovery.NewLazyDescriptor(rec.Name, target, func() (any, error) {
			return resolver.ResolveTarget(target)
		}))
	}
	return descs, nil
}

var _ discovery.Source = (*Source)(nil)
