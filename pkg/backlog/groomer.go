package backlog

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmitrymomot/kanban/pkg/logger"
)

// DefaultGroomInterval is how often a Groomer runs Groom unless configured otherwise
const DefaultGroomInterval = 30 * time.Second

// GroomerOption is a functional option for configuring a Groomer
type GroomerOption func(*groomerOptions)

type groomerOptions struct {
	interval time.Duration
	logger   *slog.Logger
}

// WithGroomInterval sets how often Groom runs
func WithGroomInterval(d time.Duration) GroomerOption {
	return func(o *groomerOptions) {
		if d > 0 {
			o.interval = d
		}
	}
}

// WithGroomerLogger sets the logger for the groomer
func WithGroomerLogger(logger *slog.Logger) GroomerOption {
	return func(o *groomerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Groomer calls Backlog.Groom on a fixed interval.
// One groomer per backlog namespace is enough; running several is safe but wasteful.
type Groomer struct {
	backlog  *Backlog
	interval time.Duration
	logger   *slog.Logger
}

// NewGroomer creates a groomer for the given backlog
func NewGroomer(b *Backlog, opts ...GroomerOption) (*Groomer, error) {
	if b == nil {
		return nil, ErrMissingDependency
	}

	options := &groomerOptions{
		interval: DefaultGroomInterval,
		logger:   b.logger,
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Groomer{
		backlog:  b,
		interval: options.interval,
		logger:   options.logger.With(logger.Component("groomer")),
	}, nil
}

// Start grooms immediately and then on every tick until ctx is done.
// Groom failures are logged and retried on the next tick.
func (g *Groomer) Start(ctx context.Context) error {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	g.logger.InfoContext(ctx, "groomer started",
		logger.Namespace(g.backlog.Namespace()),
		slog.Duration("interval", g.interval))

	g.groom(ctx)

	for {
		select {
		case <-ctx.Done():
			g.logger.Info("groomer shutting down", logger.Namespace(g.backlog.Namespace()))
			return ctx.Err()
		case <-ticker.C:
			g.groom(ctx)
		}
	}
}

// Run returns a function suitable for errgroup. Context cancellation is not reported as an error.
func (g *Groomer) Run(ctx context.Context) func() error {
	return func() error {
		if err := g.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}
}

func (g *Groomer) groom(ctx context.Context) {
	start := time.Now()
	ids, err := g.backlog.Groom(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		g.logger.ErrorContext(ctx, "groom failed",
			logger.Namespace(g.backlog.Namespace()),
			logger.Count(len(ids)),
			logger.Error(err))
		return
	}

	g.logger.DebugContext(ctx, "groom finished",
		logger.Namespace(g.backlog.Namespace()),
		logger.Count(len(ids)),
		logger.Duration(time.Since(start)))
}
