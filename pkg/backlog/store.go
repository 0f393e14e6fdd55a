package backlog

import (
	"context"
	"time"
)

// Store is the set of atomic primitives the backlog is composed from.
// Every method must be atomic on its own; the backlog never wraps several
// calls in a transaction and relies on Groom to repair partial sequences.
type Store interface {
	// NextID increments the counter at key and returns the new value. The first call returns 1.
	NextID(ctx context.Context, key string) (int64, error)

	// GetFields returns all fields of a hash. A missing key yields an empty map.
	GetFields(ctx context.Context, key string) (map[string]string, error)

	// SetFields writes all fields of a hash.
	SetFields(ctx context.Context, key string, fields map[string]string) error

	// PushFront inserts value at the head of a list and returns the new length.
	PushFront(ctx context.Context, key, value string) (int64, error)

	// Range returns every element of a list, head first.
	Range(ctx context.Context, key string) ([]string, error)

	// MoveBlocking pops the tail of src and pushes it to the head of dst in one step.
	// It waits up to timeout for src to become non-empty; ok is false when the wait elapsed.
	MoveBlocking(ctx context.Context, src, dst string, timeout time.Duration) (value string, ok bool, err error)

	// Remove deletes every occurrence of value from a list and returns how many were removed.
	Remove(ctx context.Context, key, value string) (int64, error)

	// SetExpiringFlag sets a flag that disappears after ttl.
	SetExpiringFlag(ctx context.Context, key string, ttl time.Duration) error

	// FlagExists reports whether an unexpired flag is set.
	FlagExists(ctx context.Context, key string) (bool, error)

	// ExpireNow clears a flag and reports whether it existed.
	ExpireNow(ctx context.Context, key string) (bool, error)

	// SetBit sets the bit at index and returns its previous value.
	SetBit(ctx context.Context, key string, index int64) (int, error)

	// GetBit returns the bit at index.
	GetBit(ctx context.Context, key string, index int64) (int, error)
}
