package redcat

import (
	"time"

	"github.com/rs/zerolog/log"
)

// Options holds configuration for the catalog.
type Options struct {
	// Prefix for all catalog keys stored in Redis (default: "gantry:catalog").
	KeyPrefix string
	// ScanCount hints how many keys each SCAN iteration fetches (default: 100).
	ScanCount int64
	// WatchInterval is how often Watch polls a namespace for changes
	// (default: 15s).
	WatchInterval time.Duration
}

// Option defines a function type for setting options.
type Option func(*Options)

// Default values
const (
	DefaultKeyPrefix     = "gantry:catalog"
	DefaultScanCount     = 100
	DefaultWatchInterval = 15 * time.Second
)

// newOptions creates default options and applies user overrides.
func newOptions(opts ...Option) *Options {
	options := &Options{
		KeyPrefix:     DefaultKeyPrefix,
		ScanCount:     DefaultScanCount,
		WatchInterval: DefaultWatchInterval,
	}
	for _, o := range opts {
		o(options)
	}
	return options
}

// WithKeyPrefix sets the prefix for catalog keys.
func WithKeyPrefix(prefix string) Option {
	return func(o *Options) {
		if prefix != "" {
			o.KeyPrefix = prefix
		} else {
			log.Warn().Msg("ignoring empty key prefix option")
		}
	}
}

// WithScanCount sets the SCAN iteration hint.
func WithScanCount(count int64) Option {
	return func(o *Options) {
		if count > 0 {
			o.ScanCount = count
		} else {
			log.Warn().Int64("invalid_scan_count", count).Msg("ignoring non-positive scan count option")
		}
	}
}

// WithWatchInterval sets the namespace watch poll interval.
func WithWatchInterval(interval time.Duration) Option {
	return func(o *Options) {
		if interval > 0 {
			o.WatchInterval = interval
		} else {
			log.Warn().Dur("invalid_watch_interval", interval).Msg("ignoring non-positive watch interval option")
		}
	}
}
