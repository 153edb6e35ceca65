package discovery

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// multiSource concatenates the results of several sources.
type multiSource struct {
	sources []Source
}

// Multi combines sources into one. Discover returns the concatenation of
// each source's descriptors in source order, so an in-process registry can
// be fronted by manifest files or a redis catalog without the managers
// knowing. A failing source is logged and skipped; the call itself fails
// only when every source failed.
func Multi(sources ...Source) Source {
	return &multiSource{sources: sources}
}

func (m *multiSource) Discover(ctx context.Context, namespace string) ([]Descriptor, error) {
	descs := make([]Descriptor, 0)
	if len(m.sources) == 0 {
		return descs, nil
	}

	var failures []error
	for _, src := range m.sources {
		found, err := src.Discover(ctx, namespace)
		if err != nil {
			log.Warn().Str("namespace", namespace).Err(err).Msg("discovery source failed, skipping")
			failures = append(failures, err)
			continue
		}
		descs = append(descs, found...)
	}

	if len(failures) == len(m.sources) {
		return nil, fmt.Errorf("%w: %w", ErrNoSources, errors.Join(failures...))
	}
	return descs, nil
}

var _ Source = (*multiSource)(nil)
