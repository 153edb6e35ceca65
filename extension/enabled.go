package extension

import (
	"context"

	"github.com/rs/zerolog/log"
)

// CheckFunc decides whether a loaded extension stays in the set.
type CheckFunc func(ext *Extension) bool

// EnabledManager loads every plugin in a namespace and keeps only the
// extensions the check function accepts. Unlike NamedManager the decision
// runs after loading, so it can inspect the plugin value or the
// instantiated object. Suited to configuration-driven enabling where the
// criterion is richer than a name.
type EnabledManager struct {
	*Manager
}

// NewEnabledManager discovers namespace and filters the loaded extensions
// through check. A nil check keeps everything.
func NewEnabledManager(ctx context.Context, namespace string, check CheckFunc, opts ...Option) (*EnabledManager, error) {
	options := newOptions(opts...)
	exts, err := loadExtensions(ctx, namespace, options, nil)
	if err != nil {
		return nil, err
	}

	if check != nil {
		kept := make([]*Extension, 0, len(exts))
		for _, ext := range exts {
			if !check(ext) {
				log.Debug().Str("namespace", namespace).Str("extension", ext.Name()).Msg("extension disabled by check")
				continue
			}
			kept = append(kept, ext)
		}
		exts = kept
	}

	return &EnabledManager{Manager: &Manager{
		namespace:          namespace,
		extensions:         exts,
		propagateMapErrors: options.PropagateMapErrors,
	}}, nil
}
