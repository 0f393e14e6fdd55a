package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/kanban/pkg/backlog"
	"github.com/dmitrymomot/kanban/pkg/config"
	"github.com/dmitrymomot/kanban/pkg/logger"
	"github.com/dmitrymomot/kanban/pkg/pg"
	"github.com/dmitrymomot/kanban/pkg/redis"
)

type appConfig struct {
	Env     string `env:"APP_ENV" envDefault:"development"`
	Backend string `env:"KANBAN_STORE" envDefault:"redis"` // redis or postgres
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("groomer: %v", err)
	}
}

func run(ctx context.Context) error {
	var app appConfig
	config.MustLoad(&app)

	var cfg backlog.Config
	config.MustLoad(&cfg)

	l := logger.New(
		logger.WithEnvironment(app.Env, "kanban-groomer"),
		logger.WithTaskContext(),
		logger.WithAttr(logger.Namespace(cfg.Namespace), logger.Queue(cfg.Queue)),
	)
	logger.SetAsDefault(l)

	store, closeStore, err := openStore(ctx, app.Backend, l)
	if err != nil {
		return err
	}
	defer closeStore()

	b, err := backlog.NewFromConfig(store, cfg, backlog.WithLogger(l))
	if err != nil {
		return err
	}

	groomer, err := backlog.NewGroomer(b, append(cfg.GroomerOptions(), backlog.WithGroomerLogger(l))...)
	if err != nil {
		return err
	}

	l.InfoContext(ctx, "starting groomer",
		"version", backlog.Version,
		"store", app.Backend,
		logger.Duration(cfg.GroomInterval))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(groomer.Run(ctx))
	return g.Wait()
}

func openStore(ctx context.Context, backend string, l *slog.Logger) (backlog.Store, func(), error) {
	switch backend {
	case "redis":
		var cfg redis.Config
		config.MustLoad(&cfg)

		client, err := redis.Connect(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return redis.NewStore(client), func() { _ = client.Close() }, nil

	case "postgres":
		var cfg pg.Config
		config.MustLoad(&cfg)

		pool, err := pg.Connect(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		if err := pg.Migrate(ctx, pool, cfg, l); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return pg.NewStoreFromConfig(pool, cfg), pool.Close, nil
	}

	return nil, nil, fmt.Errorf("unknown store backend %q", backend)
}
