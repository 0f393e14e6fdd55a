package backlog

import (
	"log/slog"
	"time"
)

const (
	DefaultNamespace     = "default"
	DefaultQueue         = "tasks"
	DefaultItem          = "task"
	DefaultLeaseDuration = 3 * time.Second
	DefaultWaitTimeout   = 5 * time.Second
)

// Option is a functional option for configuring a Backlog
type Option func(*options)

type options struct {
	namespace     string
	queue         string
	item          string
	leaseDuration time.Duration
	waitTimeout   time.Duration
	logger        *slog.Logger
}

// WithNamespace sets the prefix of every derived key
func WithNamespace(namespace string) Option {
	return func(o *options) {
		if namespace != "" {
			o.namespace = namespace
		}
	}
}

// WithQueue sets the queue name used for list, counter and bitset keys
func WithQueue(queue string) Option {
	return func(o *options) {
		if queue != "" {
			o.queue = queue
		}
	}
}

// WithItem sets the item name used for payload and lease keys
func WithItem(item string) Option {
	return func(o *options) {
		if item != "" {
			o.item = item
		}
	}
}

// WithLeaseDuration sets the default lease installed by Claim
func WithLeaseDuration(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.leaseDuration = d
		}
	}
}

// WithWaitTimeout sets how long Claim blocks for an empty todo list
func WithWaitTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.waitTimeout = d
		}
	}
}

// WithLogger sets the logger for the backlog
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// ClaimOption is a functional option for the Claim method
type ClaimOption func(*claimOptions)

type claimOptions struct {
	lease time.Duration
	wait  time.Duration
}

// WithLease overrides the lease duration for a single claim
func WithLease(d time.Duration) ClaimOption {
	return func(o *claimOptions) {
		if d > 0 {
			o.lease = d
		}
	}
}

// WithWait overrides the wait timeout for a single claim
func WithWait(d time.Duration) ClaimOption {
	return func(o *claimOptions) {
		if d > 0 {
			o.wait = d
		}
	}
}
