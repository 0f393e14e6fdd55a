// Package logger builds *slog.Logger values for backlog services and provides
// attribute helpers that keep key names consistent across the engine, the
// groomer and workers.
//
// # Usage
//
//	log := logger.New(
//	    logger.WithEnvironment("production", "kanban-worker"),
//	    logger.WithTaskContext(),
//	)
//	logger.SetAsDefault(log)
//
//	ctx = logger.WithTaskID(ctx, id)
//	log.InfoContext(ctx, "task completed", logger.Duration(time.Since(start)))
//
// Error and Errors return an empty attribute for nil errors, so callers can
// pass an error without checking it first.
package logger
