package backlog_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/kanban/pkg/backlog"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("nil store", func(t *testing.T) {
		t.Parallel()

		b, err := backlog.New(nil)
		assert.ErrorIs(t, err, backlog.ErrMissingDependency)
		assert.Nil(t, b)
	})

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		b, err := backlog.New(backlog.NewMemoryStore())
		require.NoError(t, err)
		assert.Equal(t, "default", b.Namespace())
		assert.Equal(t, backlog.Keys{Namespace: "default", Queue: "tasks", Item: "task"}, b.Keys())
	})

	t.Run("options override defaults", func(t *testing.T) {
		t.Parallel()

		b, err := backlog.New(backlog.NewMemoryStore(),
			backlog.WithNamespace("foo"),
			backlog.WithQueue("jobs"),
			backlog.WithItem("job"))
		require.NoError(t, err)
		assert.Equal(t, "foo", b.Namespace())
		assert.Equal(t, "foo:jobs:todo", b.Keys().Todo())
		assert.Equal(t, "foo:job:1", b.Keys().Task(1))
	})

	t.Run("empty options are ignored", func(t *testing.T) {
		t.Parallel()

		b, err := backlog.New(backlog.NewMemoryStore(), backlog.WithNamespace(""), backlog.WithQueue(""))
		require.NoError(t, err)
		assert.Equal(t, "default:tasks:todo", b.Keys().Todo())
	})

	t.Run("from config", func(t *testing.T) {
		t.Parallel()

		b, err := backlog.NewFromConfig(backlog.NewMemoryStore(), backlog.Config{Namespace: "cfg", Queue: "q"})
		require.NoError(t, err)
		assert.Equal(t, "cfg:q:id", b.Keys().Counter())
		assert.Equal(t, "cfg:task:3:claimed", b.Keys().Lease(3))
	})
}

func TestBacklog_Add(t *testing.T) {
	t.Parallel()

	t.Run("ids are strictly increasing", func(t *testing.T) {
		t.Parallel()

		b, _, _ := newTestBacklog(t)
		ctx := context.Background()

		var last int64
		for range 20 {
			id, err := b.Add(ctx, backlog.Payload{"n": "x"})
			require.NoError(t, err)
			assert.Greater(t, id, last)
			last = id
		}
		assert.Equal(t, int64(20), last)
	})

	t.Run("payload round trip", func(t *testing.T) {
		t.Parallel()

		b, _, _ := newTestBacklog(t)
		ctx := context.Background()

		payload := backlog.Payload{"test": "data", "user": "42"}
		id, err := b.Add(ctx, payload)
		require.NoError(t, err)

		task, err := b.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, task.ID)
		assert.Equal(t, payload, task.Payload)
	})

	t.Run("pushes to head of todo", func(t *testing.T) {
		t.Parallel()

		b, _, _ := newTestBacklog(t)
		ctx := context.Background()

		first, err := b.Add(ctx, backlog.Payload{"a": "1"})
		require.NoError(t, err)
		second, err := b.Add(ctx, backlog.Payload{"b": "2"})
		require.NoError(t, err)

		todo, err := b.Todo(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int64{second, first}, todo)
	})

	t.Run("invalid payload never reaches the store", func(t *testing.T) {
		t.Parallel()

		store := new(MockStore)
		defer store.AssertExpectations(t)

		b, err := backlog.New(store)
		require.NoError(t, err)

		_, err = b.Add(context.Background(), nil)
		assert.ErrorIs(t, err, backlog.ErrInvalidPayload)

		_, err = b.Add(context.Background(), backlog.Payload{})
		assert.ErrorIs(t, err, backlog.ErrInvalidPayload)

		store.AssertNotCalled(t, "NextID", mock.Anything, mock.Anything)
	})

	t.Run("lenient variant coerces keys", func(t *testing.T) {
		t.Parallel()

		b, _, _ := newTestBacklog(t)
		ctx := context.Background()

		id, err := b.AddAny(ctx, map[any]any{"name": "foo", 1: 2, true: nil})
		require.NoError(t, err)

		task, err := b.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, backlog.Payload{"name": "foo", "1": "2", "true": ""}, task.Payload)
	})

	t.Run("empty keys round trip", func(t *testing.T) {
		t.Parallel()

		b, _, _ := newTestBacklog(t)
		ctx := context.Background()

		id, err := b.Add(ctx, backlog.Payload{"": "x", "a": "b"})
		require.NoError(t, err)

		task, err := b.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, backlog.Payload{"": "x", "a": "b"}, task.Payload)

		id, err = b.AddAny(ctx, map[any]any{nil: "x"})
		require.NoError(t, err)

		task, err = b.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, backlog.Payload{"": "x"}, task.Payload)
	})

	t.Run("store failure is wrapped", func(t *testing.T) {
		t.Parallel()

		store := new(MockStore)
		defer store.AssertExpectations(t)

		backendErr := errors.New("connection refused")
		store.On("NextID", mock.Anything, "default:tasks:id").Return(int64(0), backendErr)

		b, err := backlog.New(store)
		require.NoError(t, err)

		_, err = b.Add(context.Background(), backlog.Payload{"a": "b"})
		assert.ErrorIs(t, err, backlog.ErrStoreUnavailable)
		assert.ErrorIs(t, err, backendErr)
	})
}

func TestBacklog_Get(t *testing.T) {
	t.Parallel()

	b, _, _ := newTestBacklog(t)

	_, err := b.Get(context.Background(), 99)
	assert.ErrorIs(t, err, backlog.ErrTaskNotFound)

	_, err = b.Get(context.Background(), 0)
	assert.ErrorIs(t, err, backlog.ErrInvalidTaskID)
}

func TestBacklog_Claim(t *testing.T) {
	t.Parallel()

	t.Run("claims oldest first and installs lease", func(t *testing.T) {
		t.Parallel()

		b, _, _ := newTestBacklog(t)
		ctx := context.Background()

		first, err := b.Add(ctx, backlog.Payload{"a": "1"})
		require.NoError(t, err)
		second, err := b.Add(ctx, backlog.Payload{"b": "2"})
		require.NoError(t, err)

		claimed, err := b.Claim(ctx)
		require.NoError(t, err)
		assert.Equal(t, first, claimed)

		ok, err := b.IsClaimed(ctx, first)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = b.IsClaimed(ctx, second)
		require.NoError(t, err)
		assert.False(t, ok)

		doing, err := b.Doing(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int64{first}, doing)

		todo, err := b.Todo(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int64{second}, todo)
	})

	t.Run("lease expires", func(t *testing.T) {
		t.Parallel()

		b, _, clock := newTestBacklog(t, backlog.WithLeaseDuration(time.Second))
		ctx := context.Background()

		_, err := b.Add(ctx, backlog.Payload{"a": "1"})
		require.NoError(t, err)

		id, err := b.Claim(ctx, backlog.WithLease(10*time.Second))
		require.NoError(t, err)

		clock.Advance(5 * time.Second)
		ok, err := b.IsClaimed(ctx, id)
		require.NoError(t, err)
		assert.True(t, ok, "per-claim lease overrides the default")

		clock.Advance(5 * time.Second)
		ok, err = b.IsClaimed(ctx, id)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("times out on empty queue", func(t *testing.T) {
		t.Parallel()

		b, _, _ := newTestBacklog(t)

		start := time.Now()
		_, err := b.Claim(context.Background(), backlog.WithWait(30*time.Millisecond))
		assert.ErrorIs(t, err, backlog.ErrBlockTimeout)
		assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	})

	t.Run("wakes up when a task is added", func(t *testing.T) {
		t.Parallel()

		b, _, _ := newTestBacklog(t)
		ctx := context.Background()

		type result struct {
			id  int64
			err error
		}
		ch := make(chan result, 1)
		go func() {
			id, err := b.Claim(ctx, backlog.WithWait(5*time.Second))
			ch <- result{id, err}
		}()

		time.Sleep(20 * time.Millisecond)
		added, err := b.Add(ctx, backlog.Payload{"late": "yes"})
		require.NoError(t, err)

		select {
		case r := <-ch:
			require.NoError(t, r.err)
			assert.Equal(t, added, r.id)
		case <-time.After(2 * time.Second):
			t.Fatal("claim did not return after add")
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		b, _, _ := newTestBacklog(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := b.Claim(ctx, backlog.WithWait(time.Second))
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("each task goes to exactly one claimer", func(t *testing.T) {
		t.Parallel()

		b, _, _ := newTestBacklog(t)
		ctx := context.Background()

		const n = 50
		for range n {
			_, err := b.Add(ctx, backlog.Payload{"k": "v"})
			require.NoError(t, err)
		}

		var (
			mu   sync.Mutex
			seen = make(map[int64]int)
			wg   sync.WaitGroup
		)
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					id, err := b.Claim(ctx, backlog.WithWait(20*time.Millisecond))
					if errors.Is(err, backlog.ErrBlockTimeout) {
						return
					}
					if !assert.NoError(t, err) {
						return
					}
					mu.Lock()
					seen[id]++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Len(t, seen, n)
		for id, count := range seen {
			assert.Equal(t, 1, count, "task %d claimed more than once", id)
		}
	})

	t.Run("lease failure surfaces store error", func(t *testing.T) {
		t.Parallel()

		store := new(MockStore)
		defer store.AssertExpectations(t)

		backendErr := errors.New("timeout")
		store.On("MoveBlocking", mock.Anything, "default:tasks:todo", "default:tasks:doing", backlog.DefaultWaitTimeout).
			Return("7", true, nil)
		store.On("SetExpiringFlag", mock.Anything, "default:task:7:claimed", backlog.DefaultLeaseDuration).
			Return(backendErr)

		b, err := backlog.New(store)
		require.NoError(t, err)

		_, err = b.Claim(context.Background())
		assert.ErrorIs(t, err, backlog.ErrStoreUnavailable)
		assert.ErrorIs(t, err, backendErr)
	})
}

func TestBacklog_TerminalBits(t *testing.T) {
	t.Parallel()

	b, _, _ := newTestBacklog(t)
	ctx := context.Background()

	id, err := b.Add(ctx, backlog.Payload{"a": "1"})
	require.NoError(t, err)

	done, err := b.IsDone(ctx, id)
	require.NoError(t, err)
	assert.False(t, done)

	changed, err := b.Complete(ctx, id)
	require.NoError(t, err)
	assert.True(t, changed)

	for range 3 {
		changed, err = b.Complete(ctx, id)
		require.NoError(t, err)
		assert.False(t, changed)
	}

	unworkable, err := b.IsUnworkable(ctx, id)
	require.NoError(t, err)
	assert.False(t, unworkable, "bits are independent")

	changed, err = b.Unworkable(ctx, id)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = b.Unworkable(ctx, id)
	require.NoError(t, err)
	assert.False(t, changed)

	other, err := b.Add(ctx, backlog.Payload{"b": "2"})
	require.NoError(t, err)
	_, err = b.Unworkable(ctx, other)
	require.NoError(t, err)

	for _, tc := range []int64{id, other} {
		completed, err := b.IsCompleted(ctx, tc)
		require.NoError(t, err)
		unworkable, err := b.IsUnworkable(ctx, tc)
		require.NoError(t, err)
		done, err := b.IsDone(ctx, tc)
		require.NoError(t, err)
		assert.Equal(t, completed || unworkable, done)
		assert.True(t, done)
	}

	_, err = b.Complete(ctx, -1)
	assert.ErrorIs(t, err, backlog.ErrInvalidTaskID)
}

func TestBacklog_Release(t *testing.T) {
	t.Parallel()

	b, _, _ := newTestBacklog(t)
	ctx := context.Background()

	_, err := b.Add(ctx, backlog.Payload{"a": "1"})
	require.NoError(t, err)
	id, err := b.Claim(ctx)
	require.NoError(t, err)

	released, err := b.Release(ctx, id)
	require.NoError(t, err)
	assert.True(t, released)

	claimed, err := b.IsClaimed(ctx, id)
	require.NoError(t, err)
	assert.False(t, claimed)

	doing, err := b.Doing(ctx)
	require.NoError(t, err)
	assert.Empty(t, doing)

	released, err = b.Release(ctx, id)
	require.NoError(t, err)
	assert.False(t, released, "second release has nothing to remove")

	released, err = b.Release(ctx, 12345)
	require.NoError(t, err)
	assert.False(t, released, "never claimed")
}

func TestBacklog_Requeue(t *testing.T) {
	t.Parallel()

	b, _, _ := newTestBacklog(t)
	ctx := context.Background()

	_, err := b.Add(ctx, backlog.Payload{"a": "1"})
	require.NoError(t, err)
	id, err := b.Claim(ctx)
	require.NoError(t, err)

	requeued, err := b.Requeue(ctx, id)
	require.NoError(t, err)
	assert.True(t, requeued)

	claimed, err := b.IsClaimed(ctx, id)
	require.NoError(t, err)
	assert.False(t, claimed)

	doing, err := b.Doing(ctx)
	require.NoError(t, err)
	assert.Empty(t, doing)

	todo, err := b.Todo(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{id}, todo)

	again, err := b.Claim(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, again)
}

func TestBacklog_ExpireClaim(t *testing.T) {
	t.Parallel()

	b, _, _ := newTestBacklog(t)
	ctx := context.Background()

	_, err := b.Add(ctx, backlog.Payload{"a": "1"})
	require.NoError(t, err)
	id, err := b.Claim(ctx)
	require.NoError(t, err)

	existed, err := b.ExpireClaim(ctx, id)
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = b.ExpireClaim(ctx, id)
	require.NoError(t, err)
	assert.False(t, existed)

	doing, err := b.Doing(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{id}, doing, "expiring the lease leaves the id for Groom")
}

func TestBacklog_ExtendClaim(t *testing.T) {
	t.Parallel()

	b, _, clock := newTestBacklog(t, backlog.WithLeaseDuration(time.Second))
	ctx := context.Background()

	_, err := b.Add(ctx, backlog.Payload{"a": "1"})
	require.NoError(t, err)
	id, err := b.Claim(ctx)
	require.NoError(t, err)

	clock.Advance(500 * time.Millisecond)
	extended, err := b.ExtendClaim(ctx, id, 2*time.Second)
	require.NoError(t, err)
	assert.True(t, extended)

	clock.Advance(time.Second)
	claimed, err := b.IsClaimed(ctx, id)
	require.NoError(t, err)
	assert.True(t, claimed)

	clock.Advance(2 * time.Second)
	extended, err = b.ExtendClaim(ctx, id, time.Second)
	require.NoError(t, err)
	assert.False(t, extended, "lapsed lease cannot be extended")
}
