package backlog

import (
	"log/slog"
	"time"
)

// WorkerOption is a functional option for configuring a worker
type WorkerOption func(*workerOptions)

type workerOptions struct {
	maxConcurrentTasks int
	retryInterval      time.Duration
	handlerTimeout     time.Duration
	logger             *slog.Logger
}

// WithMaxConcurrentTasks sets how many tasks the worker handles at once
func WithMaxConcurrentTasks(n int) WorkerOption {
	return func(o *workerOptions) {
		if n > 0 {
			o.maxConcurrentTasks = n
		}
	}
}

// WithRetryInterval sets how long the worker waits after a failed claim
func WithRetryInterval(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d > 0 {
			o.retryInterval = d
		}
	}
}

// WithHandlerTimeout bounds a single handler call. Defaults to the backlog lease duration.
func WithHandlerTimeout(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d > 0 {
			o.handlerTimeout = d
		}
	}
}

// WithWorkerLogger sets the logger for the worker
func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(o *workerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}
