package backlog_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/kanban/pkg/backlog"
	"github.com/dmitrymomot/kanban/pkg/logger"
)

// fakeClock is a manually advanced time source for MemoryStore
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestBacklog(t *testing.T, opts ...backlog.Option) (*backlog.Backlog, *backlog.MemoryStore, *fakeClock) {
	t.Helper()

	clock := newFakeClock()
	store := backlog.NewMemoryStore(backlog.WithClock(clock.Now))

	opts = append([]backlog.Option{
		backlog.WithLogger(logger.Discard()),
		backlog.WithWaitTimeout(50 * time.Millisecond),
	}, opts...)

	b, err := backlog.New(store, opts...)
	require.NoError(t, err)

	return b, store, clock
}

// MockStore is a mock implementation of backlog.Store
type MockStore struct {
	mock.Mock
}

func (m *MockStore) NextID(ctx context.Context, key string) (int64, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) GetFields(ctx context.Context, key string) (map[string]string, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

func (m *MockStore) SetFields(ctx context.Context, key string, fields map[string]string) error {
	args := m.Called(ctx, key, fields)
	return args.Error(0)
}

func (m *MockStore) PushFront(ctx context.Context, key, value string) (int64, error) {
	args := m.Called(ctx, key, value)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) Range(ctx context.Context, key string) ([]string, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockStore) MoveBlocking(ctx context.Context, src, dst string, timeout time.Duration) (string, bool, error) {
	args := m.Called(ctx, src, dst, timeout)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockStore) Remove(ctx context.Context, key, value string) (int64, error) {
	args := m.Called(ctx, key, value)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) SetExpiringFlag(ctx context.Context, key string, ttl time.Duration) error {
	args := m.Called(ctx, key, ttl)
	return args.Error(0)
}

func (m *MockStore) FlagExists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) ExpireNow(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) SetBit(ctx context.Context, key string, index int64) (int, error) {
	args := m.Called(ctx, key, index)
	return args.Int(0), args.Error(1)
}

func (m *MockStore) GetBit(ctx context.Context, key string, index int64) (int, error) {
	args := m.Called(ctx, key, index)
	return args.Int(0), args.Error(1)
}
