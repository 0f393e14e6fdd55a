package backlog

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/dmitrymomot/kanban/pkg/logger"
)

// Payload is the opaque task body. Keys and values are stored as hash fields.
type Payload map[string]string

// Task is a stored task together with its id
type Task struct {
	ID      int64
	Payload Payload
}

// Backlog is a namespaced task queue with lease based claims.
// It holds no lock and starts no goroutine: every operation is a short
// sequence of Store calls, and Groom repairs whatever a crash between
// two of them leaves behind.
type Backlog struct {
	store         Store
	keys          Keys
	leaseDuration time.Duration
	waitTimeout   time.Duration
	logger        *slog.Logger
}

// New creates a backlog on top of the given store
func New(store Store, opts ...Option) (*Backlog, error) {
	if store == nil {
		return nil, ErrMissingDependency
	}

	options := &options{
		namespace:     DefaultNamespace,
		queue:         DefaultQueue,
		item:          DefaultItem,
		leaseDuration: DefaultLeaseDuration,
		waitTimeout:   DefaultWaitTimeout,
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		opt(options)
	}

	return &Backlog{
		store: store,
		keys: Keys{
			Namespace: options.namespace,
			Queue:     options.queue,
			Item:      options.item,
		},
		leaseDuration: options.leaseDuration,
		waitTimeout:   options.waitTimeout,
		logger:        options.logger,
	}, nil
}

// NewFromConfig creates a backlog from an env loaded Config. Extra options are applied last.
func NewFromConfig(store Store, cfg Config, opts ...Option) (*Backlog, error) {
	return New(store, append(cfg.Options(), opts...)...)
}

// Namespace returns the key prefix of the backlog
func (b *Backlog) Namespace() string {
	return b.keys.Namespace
}

// Keys returns the store key layout of the backlog
func (b *Backlog) Keys() Keys {
	return b.keys
}

// Add stores the payload as a new task and pushes its id to the todo list.
func (b *Backlog) Add(ctx context.Context, payload Payload) (int64, error) {
	if err := validatePayload(payload); err != nil {
		return 0, err
	}

	id, err := b.store.NextID(ctx, b.keys.Counter())
	if err != nil {
		return 0, storeErr(err)
	}

	if err := b.store.SetFields(ctx, b.keys.Task(id), payload); err != nil {
		return 0, storeErr(err)
	}

	if _, err := b.store.PushFront(ctx, b.keys.Todo(), formatID(id)); err != nil {
		return 0, storeErr(err)
	}

	b.logger.DebugContext(ctx, "task added", logger.Namespace(b.keys.Namespace), logger.TaskID(id))

	return id, nil
}

// AddAny is the lenient variant of Add: keys and values are converted to strings first.
func (b *Backlog) AddAny(ctx context.Context, payload map[any]any) (int64, error) {
	return b.Add(ctx, StringKeys(payload))
}

// Get returns the task stored under id
func (b *Backlog) Get(ctx context.Context, id int64) (Task, error) {
	if err := validateID(id); err != nil {
		return Task{}, err
	}

	fields, err := b.store.GetFields(ctx, b.keys.Task(id))
	if err != nil {
		return Task{}, storeErr(err)
	}
	if len(fields) == 0 {
		return Task{}, ErrTaskNotFound
	}

	return Task{ID: id, Payload: Payload(fields)}, nil
}

// Claim moves the oldest pending task to the doing list and installs a lease on it.
// It blocks up to the wait timeout and returns ErrBlockTimeout when the todo list stayed empty.
func (b *Backlog) Claim(ctx context.Context, opts ...ClaimOption) (int64, error) {
	options := &claimOptions{
		lease: b.leaseDuration,
		wait:  b.waitTimeout,
	}
	for _, opt := range opts {
		opt(options)
	}

	value, ok, err := b.store.MoveBlocking(ctx, b.keys.Todo(), b.keys.Doing(), options.wait)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, ctxErr
		}
		return 0, storeErr(err)
	}
	if !ok {
		return 0, ErrBlockTimeout
	}

	id, err := parseID(value)
	if err != nil {
		// Left in doing on purpose: Groom skips it and an operator can inspect it.
		b.logger.WarnContext(ctx, "claimed entry is not a task id",
			logger.Namespace(b.keys.Namespace),
			slog.String("value", value))
		return 0, err
	}

	// A crash between the move and the lease leaves the id unleased in doing; Groom requeues it.
	if err := b.store.SetExpiringFlag(ctx, b.keys.Lease(id), options.lease); err != nil {
		return 0, storeErr(err)
	}

	b.logger.DebugContext(ctx, "task claimed",
		logger.Namespace(b.keys.Namespace),
		logger.TaskID(id),
		logger.Lease(options.lease))

	return id, nil
}

// IsClaimed reports whether the task currently holds a lease
func (b *Backlog) IsClaimed(ctx context.Context, id int64) (bool, error) {
	if err := validateID(id); err != nil {
		return false, err
	}
	ok, err := b.store.FlagExists(ctx, b.keys.Lease(id))
	return ok, storeErr(err)
}

// Complete sets the completed bit. It returns true only for the call that flipped the bit.
func (b *Backlog) Complete(ctx context.Context, id int64) (bool, error) {
	return b.setTerminal(ctx, b.keys.Completed(), id)
}

// Unworkable sets the unworkable bit. It returns true only for the call that flipped the bit.
func (b *Backlog) Unworkable(ctx context.Context, id int64) (bool, error) {
	return b.setTerminal(ctx, b.keys.Unworkable(), id)
}

// IsCompleted reports whether the completed bit is set
func (b *Backlog) IsCompleted(ctx context.Context, id int64) (bool, error) {
	return b.getTerminal(ctx, b.keys.Completed(), id)
}

// IsUnworkable reports whether the unworkable bit is set
func (b *Backlog) IsUnworkable(ctx context.Context, id int64) (bool, error) {
	return b.getTerminal(ctx, b.keys.Unworkable(), id)
}

// IsDone reports whether the task is completed or unworkable
func (b *Backlog) IsDone(ctx context.Context, id int64) (bool, error) {
	completed, err := b.IsCompleted(ctx, id)
	if err != nil || completed {
		return completed, err
	}
	return b.IsUnworkable(ctx, id)
}

// Release clears the lease and removes the id from the doing list.
// The result reports whether the id was found in doing, whether or not a lease existed.
func (b *Backlog) Release(ctx context.Context, id int64) (bool, error) {
	if err := validateID(id); err != nil {
		return false, err
	}

	if _, err := b.store.ExpireNow(ctx, b.keys.Lease(id)); err != nil {
		return false, storeErr(err)
	}

	removed, err := b.store.Remove(ctx, b.keys.Doing(), formatID(id))
	if err != nil {
		return false, storeErr(err)
	}

	return removed > 0, nil
}

// Requeue releases the task and pushes it back to the head of the todo list.
func (b *Backlog) Requeue(ctx context.Context, id int64) (bool, error) {
	if _, err := b.Release(ctx, id); err != nil {
		return false, err
	}

	n, err := b.store.PushFront(ctx, b.keys.Todo(), formatID(id))
	if err != nil {
		return false, storeErr(err)
	}

	return n > 0, nil
}

// ExpireClaim clears the lease and reports whether one existed.
// The id stays in the doing list until Release, Requeue or Groom.
func (b *Backlog) ExpireClaim(ctx context.Context, id int64) (bool, error) {
	if err := validateID(id); err != nil {
		return false, err
	}
	existed, err := b.store.ExpireNow(ctx, b.keys.Lease(id))
	return existed, storeErr(err)
}

// ExtendClaim renews the lease for d when the task is still claimed.
// It returns false when the lease already lapsed; the caller no longer owns the task then.
func (b *Backlog) ExtendClaim(ctx context.Context, id int64, d time.Duration) (bool, error) {
	if err := validateID(id); err != nil {
		return false, err
	}
	if d <= 0 {
		d = b.leaseDuration
	}

	claimed, err := b.store.FlagExists(ctx, b.keys.Lease(id))
	if err != nil {
		return false, storeErr(err)
	}
	if !claimed {
		return false, nil
	}

	if err := b.store.SetExpiringFlag(ctx, b.keys.Lease(id), d); err != nil {
		return false, storeErr(err)
	}

	return true, nil
}

// Todo returns the pending ids, newest first
func (b *Backlog) Todo(ctx context.Context) ([]int64, error) {
	return b.listIDs(ctx, b.keys.Todo())
}

// Doing returns the claimed ids
func (b *Backlog) Doing(ctx context.Context) ([]int64, error) {
	return b.listIDs(ctx, b.keys.Doing())
}

func (b *Backlog) listIDs(ctx context.Context, key string) ([]int64, error) {
	values, err := b.store.Range(ctx, key)
	if err != nil {
		return nil, storeErr(err)
	}

	ids := make([]int64, 0, len(values))
	for _, v := range values {
		id, err := parseID(v)
		if err != nil {
			b.logger.WarnContext(ctx, "skipping list entry that is not a task id",
				logger.Namespace(b.keys.Namespace),
				slog.String("key", key),
				slog.String("value", v))
			continue
		}
		ids = append(ids, id)
	}

	return ids, nil
}

func (b *Backlog) setTerminal(ctx context.Context, key string, id int64) (bool, error) {
	if err := validateID(id); err != nil {
		return false, err
	}
	prev, err := b.store.SetBit(ctx, key, id)
	if err != nil {
		return false, storeErr(err)
	}
	return prev == 0, nil
}

func (b *Backlog) getTerminal(ctx context.Context, key string, id int64) (bool, error) {
	if err := validateID(id); err != nil {
		return false, err
	}
	bit, err := b.store.GetBit(ctx, key, id)
	if err != nil {
		return false, storeErr(err)
	}
	return bit == 1, nil
}

func validateID(id int64) error {
	if id < 1 {
		return ErrInvalidTaskID
	}
	return nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func parseID(value string) (int64, error) {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id < 1 {
		return 0, errors.Join(ErrInvalidTaskID, err)
	}
	return id, nil
}
