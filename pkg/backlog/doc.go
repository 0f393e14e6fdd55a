// Package backlog implements a shared task backlog with lease based claims.
//
// Producers Add tasks; workers Claim them, which moves the task id from the
// todo list to the doing list and installs an expiring lease; workers then
// mark a permanent outcome with Complete or Unworkable and Release the id.
// Groom is the only reconciliation mechanism: it finds doing entries whose
// lease is gone and either releases them (already done) or requeues them
// (abandoned). The backlog never runs background work of its own; call Groom
// from a scheduler, or run a Groomer.
//
// # Architecture
//
// Backlog is composed entirely from the atomic primitives of the Store
// interface (counters, lists, hashes, bitsets, expiring flags). No sequence
// of Store calls is transactional. A crash between two calls leaves a bounded
// inconsistency, most commonly an id in doing without a lease, which the next
// Groom repairs. Delivery is therefore at-least-once.
//
// Store implementations:
//
//   - MemoryStore in this package, for tests and local development
//   - redis.Store in github.com/dmitrymomot/kanban/pkg/redis
//   - pg.Store in github.com/dmitrymomot/kanban/pkg/pg
//
// All keys are derived from a namespace, queue and item name (see Keys), so
// several backlogs can share one store.
//
// # Usage
//
//	store := redis.NewStore(client)
//	b, err := backlog.New(store, backlog.WithNamespace("billing"))
//	if err != nil {
//	    return err
//	}
//
//	id, err := b.Add(ctx, backlog.Payload{"invoice": "42"})
//
//	id, err = b.Claim(ctx, backlog.WithLease(time.Minute))
//	if errors.Is(err, backlog.ErrBlockTimeout) {
//	    // queue is empty, try again later
//	}
//	// ... do the work ...
//	_, _ = b.Complete(ctx, id)
//	_, _ = b.Release(ctx, id)
//
// Worker and Groomer wrap these calls in long-running loops that fit an errgroup:
//
//	g, ctx := errgroup.WithContext(ctx)
//	g.Go(worker.Run(ctx))
//	g.Go(groomer.Run(ctx))
//
// # Error Handling
//
// Sentinel errors (ErrInvalidPayload, ErrBlockTimeout, ErrMissingDependency,
// ErrStoreUnavailable, ...) are checked with errors.Is. Store failures are
// joined with ErrStoreUnavailable and keep the backend error matchable.
// Boolean results of Complete, Unworkable, Release, Requeue and ExpireClaim
// report whether anything changed; false is never an error.
package backlog
