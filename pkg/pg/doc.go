// Package pg provides PostgreSQL helpers built on pgx/v5 and goose/v3, and
// Store, a PostgreSQL implementation of backlog.Store.
//
// Connect opens a *pgxpool.Pool with retries, Migrate applies the embedded
// schema (counters, hash fields, lists, expiring flags, bitsets) and
// Healthcheck returns a readiness probe.
//
// # Usage
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, slog.Default()); err != nil {
//	    return err
//	}
//
//	b, err := backlog.New(pg.NewStoreFromConfig(pool, cfg))
//
// Every Store method is one SQL statement. Blocking claims poll every
// PollInterval because PostgreSQL has no blocking list pop; a shorter
// interval lowers claim latency at the cost of more queries.
package pg
