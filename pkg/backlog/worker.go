package backlog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/kanban/pkg/logger"
)

// Handler processes a claimed task. Returning nil completes the task; returning an
// error that wraps ErrUnworkable marks it unworkable; any other error requeues it.
// Delivery is at-least-once, so handlers must tolerate seeing a task twice.
// A handler that outlives its lease may run concurrently with a redelivery;
// its outcome is still recorded, but a failed run is not requeued once the
// lease has lapsed because Groom owns the task from then on.
type Handler func(ctx context.Context, task Task) error

// Worker claims tasks from a backlog and dispatches them to a Handler
type Worker struct {
	backlog  *Backlog
	handler  Handler
	workerID uuid.UUID
	sem      chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex

	retryInterval  time.Duration
	handlerTimeout time.Duration
	logger         *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewWorker creates a worker for the given backlog
func NewWorker(b *Backlog, handler Handler, opts ...WorkerOption) (*Worker, error) {
	if b == nil {
		return nil, ErrMissingDependency
	}
	if handler == nil {
		return nil, ErrNilHandler
	}

	options := &workerOptions{
		maxConcurrentTasks: 1,
		retryInterval:      time.Second,
		handlerTimeout:     b.leaseDuration,
		logger:             b.logger,
	}
	for _, opt := range opts {
		opt(options)
	}

	workerID := uuid.New()

	return &Worker{
		backlog:        b,
		handler:        handler,
		workerID:       workerID,
		sem:            make(chan struct{}, options.maxConcurrentTasks),
		retryInterval:  options.retryInterval,
		handlerTimeout: options.handlerTimeout,
		logger: options.logger.With(
			logger.Component("worker"),
			logger.WorkerID(workerID.String()),
			logger.Namespace(b.Namespace()),
		),
	}, nil
}

// ID returns the worker identifier used in logs
func (w *Worker) ID() uuid.UUID {
	return w.workerID
}

// Start begins claiming tasks in the background
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		return ErrWorkerAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	w.cancel, w.done = cancel, done

	go w.run(runCtx, done)

	w.logger.Info("worker started", slog.Int("max_concurrent", cap(w.sem)))

	return nil
}

// Stop stops claiming and waits for in-flight handlers to return.
// The worker can be started again once Stop returns.
func (w *Worker) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel == nil {
		return ErrWorkerNotStarted
	}

	w.cancel()
	<-w.done

	w.logger.Info("worker stopping, waiting for active tasks to complete")
	w.wg.Wait()
	w.logger.Info("worker stopped")

	w.cancel, w.done = nil, nil

	return nil
}

// Run starts the worker and returns a function suitable for errgroup
func (w *Worker) Run(ctx context.Context) func() error {
	return func() error {
		if err := w.Start(ctx); err != nil {
			return err
		}

		<-ctx.Done()

		return w.Stop()
	}
}

func (w *Worker) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case w.sem <- struct{}{}:
		}

		id, err := w.backlog.Claim(ctx)
		if err != nil {
			<-w.sem
			switch {
			case errors.Is(err, ErrBlockTimeout):
				continue
			case ctx.Err() != nil:
				return
			default:
				w.logger.Error("failed to claim task", logger.Error(err))
				wait(ctx, w.retryInterval)
				continue
			}
		}

		// Add happens before Stop's Wait: Stop waits for done first.
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			defer func() { <-w.sem }()

			if err := w.process(id); err != nil {
				w.logger.Error("failed to process task", logger.TaskID(id), logger.Error(err))
			}
		}()
	}
}

func wait(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// process runs the handler for a claimed task and records the outcome.
// Bookkeeping uses a background context so shutdown does not strand the task in doing.
func (w *Worker) process(id int64) (retErr error) {
	start := time.Now()
	ctx := logger.WithTaskID(context.Background(), id)

	task, err := w.backlog.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			w.logger.WarnContext(ctx, "claimed task has no payload, marking unworkable")
			return w.finish(ctx, id, w.backlog.Unworkable)
		}
		return fmt.Errorf("failed to load task %d: %w", id, err)
	}

	defer func() {
		if r := recover(); r != nil {
			w.logger.ErrorContext(ctx, "handler panicked", slog.Any("panic", r))
			retErr = w.requeue(ctx, id, fmt.Errorf("panic in handler: %v", r))
		}
	}()

	hctx, cancel := context.WithTimeout(ctx, w.handlerTimeout)
	defer cancel()

	err = w.handler(hctx, task)
	duration := time.Since(start)

	switch {
	case err == nil:
		w.logger.InfoContext(ctx, "task completed", logger.Duration(duration))
		return w.finish(ctx, id, w.backlog.Complete)
	case errors.Is(err, ErrUnworkable):
		w.logger.WarnContext(ctx, "task unworkable", logger.Duration(duration), logger.Error(err))
		return w.finish(ctx, id, w.backlog.Unworkable)
	default:
		return w.requeue(ctx, id, err)
	}
}

func (w *Worker) finish(ctx context.Context, id int64, mark func(context.Context, int64) (bool, error)) error {
	if _, err := mark(ctx, id); err != nil {
		return fmt.Errorf("failed to mark task %d: %w", id, err)
	}
	if _, err := w.backlog.Release(ctx, id); err != nil {
		return fmt.Errorf("failed to release task %d: %w", id, err)
	}
	return nil
}

func (w *Worker) requeue(ctx context.Context, id int64, cause error) error {
	claimed, err := w.backlog.IsClaimed(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check lease of task %d: %w", id, err)
	}
	if !claimed {
		w.logger.WarnContext(ctx, "task failed after its lease lapsed, leaving it to groom", logger.Error(cause))
		return nil
	}

	w.logger.ErrorContext(ctx, "task failed, requeueing", logger.Error(cause))
	if _, err := w.backlog.Requeue(ctx, id); err != nil {
		return fmt.Errorf("failed to requeue task %d: %w", id, err)
	}
	return nil
}
