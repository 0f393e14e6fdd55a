package backlog

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"
)

// MemoryStore implements Store in process memory for testing and local development.
// Lists keep the head at index 0.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]int64
	hashes   map[string]map[string]string
	lists    map[string][]string
	flags    map[string]time.Time
	bits     map[string]map[int64]struct{}

	// pushed is closed and replaced on every list push to wake blocked movers
	pushed chan struct{}
	now    func() time.Time
}

// MemoryStoreOption configures a MemoryStore
type MemoryStoreOption func(*MemoryStore)

// WithClock sets the time source used for flag expiry
func WithClock(now func() time.Time) MemoryStoreOption {
	return func(ms *MemoryStore) {
		if now != nil {
			ms.now = now
		}
	}
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	ms := &MemoryStore{
		counters: make(map[string]int64),
		hashes:   make(map[string]map[string]string),
		lists:    make(map[string][]string),
		flags:    make(map[string]time.Time),
		bits:     make(map[string]map[int64]struct{}),
		pushed:   make(chan struct{}),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(ms)
	}
	return ms
}

// NextID implements Store
func (ms *MemoryStore) NextID(ctx context.Context, key string) (int64, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.counters[key]++
	return ms.counters[key], nil
}

// GetFields implements Store
func (ms *MemoryStore) GetFields(ctx context.Context, key string) (map[string]string, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	// Copy to prevent external modifications
	return maps.Clone(ms.hashes[key]), nil
}

// SetFields implements Store
func (ms *MemoryStore) SetFields(ctx context.Context, key string, fields map[string]string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	h, ok := ms.hashes[key]
	if !ok {
		h = make(map[string]string, len(fields))
		ms.hashes[key] = h
	}
	maps.Copy(h, fields)
	return nil
}

// PushFront implements Store
func (ms *MemoryStore) PushFront(ctx context.Context, key, value string) (int64, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.pushLocked(key, value)
	return int64(len(ms.lists[key])), nil
}

// Range implements Store
func (ms *MemoryStore) Range(ctx context.Context, key string) ([]string, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	return slices.Clone(ms.lists[key]), nil
}

// MoveBlocking implements Store
func (ms *MemoryStore) MoveBlocking(ctx context.Context, src, dst string, timeout time.Duration) (string, bool, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		ms.mu.Lock()
		if l := ms.lists[src]; len(l) > 0 {
			value := l[len(l)-1]
			ms.lists[src] = l[:len(l)-1]
			ms.pushLocked(dst, value)
			ms.mu.Unlock()
			return value, true, nil
		}
		pushed := ms.pushed
		ms.mu.Unlock()

		select {
		case <-pushed:
		case <-timer.C:
			return "", false, nil
		case <-ctx.Done():
			return "", false, ctx.Err()
		}
	}
}

// Remove implements Store
func (ms *MemoryStore) Remove(ctx context.Context, key, value string) (int64, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	l := ms.lists[key]
	before := len(l)
	ms.lists[key] = slices.DeleteFunc(l, func(v string) bool { return v == value })
	return int64(before - len(ms.lists[key])), nil
}

// SetExpiringFlag implements Store
func (ms *MemoryStore) SetExpiringFlag(ctx context.Context, key string, ttl time.Duration) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.flags[key] = ms.now().Add(ttl)
	return nil
}

// FlagExists implements Store
func (ms *MemoryStore) FlagExists(ctx context.Context, key string) (bool, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	return ms.flagLiveLocked(key), nil
}

// ExpireNow implements Store
func (ms *MemoryStore) ExpireNow(ctx context.Context, key string) (bool, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	existed := ms.flagLiveLocked(key)
	delete(ms.flags, key)
	return existed, nil
}

// SetBit implements Store
func (ms *MemoryStore) SetBit(ctx context.Context, key string, index int64) (int, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	set, ok := ms.bits[key]
	if !ok {
		set = make(map[int64]struct{})
		ms.bits[key] = set
	}
	if _, ok := set[index]; ok {
		return 1, nil
	}
	set[index] = struct{}{}
	return 0, nil
}

// GetBit implements Store
func (ms *MemoryStore) GetBit(ctx context.Context, key string, index int64) (int, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, ok := ms.bits[key][index]; ok {
		return 1, nil
	}
	return 0, nil
}

func (ms *MemoryStore) pushLocked(key, value string) {
	ms.lists[key] = append([]string{value}, ms.lists[key]...)
	close(ms.pushed)
	ms.pushed = make(chan struct{})
}

func (ms *MemoryStore) flagLiveLocked(key string) bool {
	exp, ok := ms.flags[key]
	if !ok {
		return false
	}
	if !ms.now().Before(exp) {
		delete(ms.flags, key)
		return false
	}
	return true
}
