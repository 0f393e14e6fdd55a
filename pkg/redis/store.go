package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/kanban/pkg/backlog"
)

var _ backlog.Store = (*Store)(nil)

// Store implements backlog.Store on top of Redis. Every method maps to a
// single Redis command, so each call is atomic on the server:
//
//	NextID          INCR
//	GetFields       HGETALL
//	SetFields       HSET
//	PushFront       LPUSH
//	Range           LRANGE 0 -1
//	MoveBlocking    BLMOVE src dst RIGHT LEFT timeout
//	Remove          LREM key 0 value
//	SetExpiringFlag SET key 1 PX ttl
//	FlagExists      EXISTS
//	ExpireNow       DEL
//	SetBit          SETBIT key index 1
//	GetBit          GETBIT
type Store struct {
	db redis.UniversalClient
}

// NewStore wraps a connected client
func NewStore(client redis.UniversalClient) *Store {
	return &Store{db: client}
}

// Conn returns the underlying Redis client for advanced operations.
func (s *Store) Conn() redis.UniversalClient {
	return s.db
}

// NextID implements backlog.Store
func (s *Store) NextID(ctx context.Context, key string) (int64, error) {
	return s.db.Incr(ctx, key).Result()
}

// GetFields implements backlog.Store
func (s *Store) GetFields(ctx context.Context, key string) (map[string]string, error) {
	return s.db.HGetAll(ctx, key).Result()
}

// SetFields implements backlog.Store
func (s *Store) SetFields(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return s.db.HSet(ctx, key, args...).Err()
}

// PushFront implements backlog.Store
func (s *Store) PushFront(ctx context.Context, key, value string) (int64, error) {
	return s.db.LPush(ctx, key, value).Result()
}

// Range implements backlog.Store
func (s *Store) Range(ctx context.Context, key string) ([]string, error) {
	return s.db.LRange(ctx, key, 0, -1).Result()
}

// MoveBlocking implements backlog.Store. The client sends the timeout in whole
// seconds and drops the fraction, so the wait is rounded up to the next second
// and never returns before timeout elapsed. A zero timeout would block forever
// in Redis and is raised to one second.
func (s *Store) MoveBlocking(ctx context.Context, src, dst string, timeout time.Duration) (string, bool, error) {
	timeout = blockingTimeout(timeout)
	value, err := s.db.BLMove(ctx, src, dst, "RIGHT", "LEFT", timeout).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Remove implements backlog.Store
func (s *Store) Remove(ctx context.Context, key, value string) (int64, error) {
	return s.db.LRem(ctx, key, 0, value).Result()
}

// SetExpiringFlag implements backlog.Store
func (s *Store) SetExpiringFlag(ctx context.Context, key string, ttl time.Duration) error {
	return s.db.Set(ctx, key, 1, ttl).Err()
}

// FlagExists implements backlog.Store
func (s *Store) FlagExists(ctx context.Context, key string) (bool, error) {
	n, err := s.db.Exists(ctx, key).Result()
	return n > 0, err
}

// ExpireNow implements backlog.Store
func (s *Store) ExpireNow(ctx context.Context, key string) (bool, error) {
	n, err := s.db.Del(ctx, key).Result()
	return n > 0, err
}

// SetBit implements backlog.Store
func (s *Store) SetBit(ctx context.Context, key string, index int64) (int, error) {
	prev, err := s.db.SetBit(ctx, key, index, 1).Result()
	return int(prev), err
}

// GetBit implements backlog.Store
func (s *Store) GetBit(ctx context.Context, key string, index int64) (int, error) {
	bit, err := s.db.GetBit(ctx, key, index).Result()
	return int(bit), err
}

func blockingTimeout(d time.Duration) time.Duration {
	if d < time.Second {
		return time.Second
	}
	return (d + time.Second - 1).Truncate(time.Second)
}
