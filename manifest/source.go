package manifest

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/toolink/gantry/discovery"
	"github.com/toolink/gantry/global"
)

// Options holds configuration for the manifest source.
type Options struct {
	// Paths are the directories scanned for manifest files.
	Paths []string
	// Patterns are the base-name patterns a manifest file must match
	// (default: "*plugins.json", "*plugins.yaml", "*plugins.yml").
	Patterns []string
	// Resolver maps entry targets to plugin values (default: the global
	// target table).
	Resolver discovery.TargetResolver
}

// Option defines a function type for setting options.
type Option func(*Options)

// defaultPatterns match both a bare "plugins.yaml" and prefixed variants
// like "auth.plugins.yaml".
var defaultPatterns = []string{"*plugins.json", "*plugins.yaml", "*plugins.yml"}

// newOptions creates default options and applies user overrides.
func newOptions(opts ...Option) *Options {
	options := &Options{Patterns: append([]string(nil), defaultPatterns...)}
	for _, o := range opts {
		o(options)
	}
	return options
}

// WithPaths adds directories to scan for manifests.
func WithPaths(paths ...string) Option {
	return func(o *Options) {
		o.Paths = append(o.Paths, paths...)
	}
}

// WithPatterns replaces the manifest file name patterns.
func WithPatterns(patterns ...string) Option {
	return func(o *Options) {
		if len(patterns) > 0 {
			o.Patterns = patterns
		}
	}
}

// WithResolver sets the target resolver manifest entries resolve through.
func WithResolver(r discovery.TargetResolver) Option {
	return func(o *Options) {
		o.Resolver = r
	}
}

// Source discovers descriptors from manifest files. Files are re-read on
// every Discover; wrap the source in discovery.NewCachedSource when the
// walk becomes expensive.
type Source struct {
	opts *Options
}

// NewSource creates a manifest source.
func NewSource(opts ...Option) *Source {
	return &Source{opts: newOptions(opts...)}
}

// Discover implements discovery.Source. Every configured path is walked,
// matching files are parsed, and the entries of manifests for the
// requested namespace become lazy descriptors. Target resolution happens
// only when a manager accepts a descriptor, so listing a plugin in a
// manifest never runs its code. Unreadable or invalid files are logged
// and skipped.
func (s *Source) Discover(ctx context.Context, namespace string) ([]discovery.Descriptor, error) {
	resolver := s.opts.Resolver
	if resolver == nil {
		resolver = global.GetTargets()
	}

	descs := make([]discovery.Descriptor, 0)
	for _, root := range s.opts.Paths {
		manifests, err := s.scan(ctx, root)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			log.Warn().Str("path", root).Err(err).Msg("failed to scan manifest path, skipping")
			continue
		}

		for _, m := range manifests {
			if m.Namespace != namespace {
				continue
			}
			for _, e := range m.Plugins {
				target := e.Target
				descs = append(descs, discovery.NewLazyDescriptor(e.Name, target, func() (any, error) {
					return resolver.ResolveTarget(target)
				}))
			}
		}
	}
	return descs, nil
}

// scan walks root and parses every file whose base name matches one of
// the configured patterns. The walk is abandoned when ctx is done.
func (s *Source) scan(ctx context.Context, root string) ([]*Manifest, error) {
	var manifests []*Manifest
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !s.matches(d.Name()) {
			return nil
		}

		m, err := Load(path)
		if err != nil {
			log.Warn().Str("file", path).Err(err).Msg("skipping unparsable manifest")
			return nil
		}
		log.Debug().Str("file", path).Str("namespace", m.Namespace).Int("plugins", len(m.Plugins)).Msg("manifest parsed")
		manifests = append(manifests, m)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return manifests, nil
}

// matches checks a file base name against the configured patterns.
func (s *Source) matches(name string) bool {
	for _, pattern := range s.opts.Patterns {
		if ok, err := filepath.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}

var _ discovery.Source = (*Source)(nil)
