package reflector

import "github.com/platinummonkey/reflector/pkg/observability"

// DefaultCacheSize is the number of closures kept when no size is given
const DefaultCacheSize = 256

type options struct {
	logger       *observability.Logger
	metrics      *observability.Metrics
	cacheSize    int
	selfRegister bool
}

func defaultOptions() options {
	return options{
		logger:       observability.NopLogger(),
		cacheSize:    DefaultCacheSize,
		selfRegister: true,
	}
}

// Option configures a Reflector
type Option func(*options)

// WithLogger sets the logger used for internal faults and lookup misses
func WithLogger(logger *observability.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics records request, cache and schema metrics
func WithMetrics(metrics *observability.Metrics) Option {
	return func(o *options) {
		o.metrics = metrics
	}
}

// WithCacheSize bounds the closure cache. Zero or less disables it.
func WithCacheSize(size int) Option {
	return func(o *options) {
		o.cacheSize = size
	}
}

// WithoutSelfRegistration serves the schema exactly as given, without
// adding the reflection service's own file.
func WithoutSelfRegistration() Option {
	return func(o *options) {
		o.selfRegister = false
	}
}
