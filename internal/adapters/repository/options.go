package repository

import "time"

const (
	defaultMetricsUpdateInterval = 5 * time.Second
	defaultBusyTimeout           = 5 * time.Second
)

type options struct {
	metricsUpdateInterval time.Duration
	busyTimeout           time.Duration
}

func newOptions(opts []Option) options {
	o := options{
		metricsUpdateInterval: defaultMetricsUpdateInterval,
		busyTimeout:           defaultBusyTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Option applies a configuration option to a store.
type Option func(*options)

// WithMetricsUpdateInterval sets the interval for background record-count
// metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(o *options) {
		if interval > 0 {
			o.metricsUpdateInterval = interval
		}
	}
}

// WithBusyTimeout sets how long sqlite waits on a locked database.
func WithBusyTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout > 0 {
			o.busyTimeout = timeout
		}
	}
}
