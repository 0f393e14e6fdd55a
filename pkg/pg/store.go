package pg

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/kanban/pkg/backlog"
)

var _ backlog.Store = (*Store)(nil)

// DBTX is the subset of *pgxpool.Pool used by Store
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements backlog.Store on PostgreSQL tables created by Migrate.
// Each method is a single SQL statement, which makes it atomic on its own.
// MoveBlocking has no server-side blocking primitive and polls instead.
type Store struct {
	db           DBTX
	pollInterval time.Duration
}

// StoreOption configures a Store
type StoreOption func(*Store)

// WithPollInterval sets how often MoveBlocking re-checks an empty list
func WithPollInterval(d time.Duration) StoreOption {
	return func(s *Store) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// NewStore creates a store on top of a pool or any compatible connection
func NewStore(db DBTX, opts ...StoreOption) *Store {
	s := &Store{db: db, pollInterval: 100 * time.Millisecond}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewStoreFromConfig creates a store using the poll interval from cfg
func NewStoreFromConfig(db DBTX, cfg Config) *Store {
	return NewStore(db, WithPollInterval(cfg.PollInterval))
}

const (
	queryNextID = `
INSERT INTO kanban_counters (key, value) VALUES ($1, 1)
ON CONFLICT (key) DO UPDATE SET value = kanban_counters.value + 1
RETURNING value`

	queryGetFields = `SELECT field, value FROM kanban_fields WHERE key = $1`

	querySetFields = `
INSERT INTO kanban_fields (key, field, value)
SELECT $1, f, v FROM unnest($2::text[], $3::text[]) AS t(f, v)
ON CONFLICT (key, field) DO UPDATE SET value = EXCLUDED.value`

	// The CTE insert is not visible to the count, hence the +1.
	queryPushFront = `
WITH ins AS (
	INSERT INTO kanban_lists (key, pos, value) VALUES ($1, -nextval('kanban_list_pos'), $2)
)
SELECT count(*) + 1 FROM kanban_lists WHERE key = $1`

	queryRange = `SELECT value FROM kanban_lists WHERE key = $1 ORDER BY pos`

	queryMove = `
WITH moved AS (
	DELETE FROM kanban_lists
	WHERE id = (
		SELECT id FROM kanban_lists WHERE key = $1
		ORDER BY pos DESC LIMIT 1
		FOR UPDATE SKIP LOCKED
	)
	RETURNING value
)
INSERT INTO kanban_lists (key, pos, value)
SELECT $2, -nextval('kanban_list_pos'), value FROM moved
RETURNING value`

	queryRemove = `DELETE FROM kanban_lists WHERE key = $1 AND value = $2`

	querySetFlag = `
INSERT INTO kanban_flags (key, expires_at) VALUES ($1, now() + make_interval(secs => $2))
ON CONFLICT (key) DO UPDATE SET expires_at = EXCLUDED.expires_at`

	queryFlagExists = `SELECT EXISTS (SELECT 1 FROM kanban_flags WHERE key = $1 AND expires_at > now())`

	queryExpireNow = `
WITH d AS (DELETE FROM kanban_flags WHERE key = $1 RETURNING expires_at)
SELECT COALESCE(bool_or(expires_at > now()), false) FROM d`

	querySetBit = `INSERT INTO kanban_bits (key, idx) VALUES ($1, $2) ON CONFLICT DO NOTHING`

	queryGetBit = `SELECT EXISTS (SELECT 1 FROM kanban_bits WHERE key = $1 AND idx = $2)`
)

// NextID implements backlog.Store
func (s *Store) NextID(ctx context.Context, key string) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, queryNextID, key).Scan(&id)
	return id, err
}

// GetFields implements backlog.Store
func (s *Store) GetFields(ctx context.Context, key string) (map[string]string, error) {
	rows, err := s.db.Query(ctx, queryGetFields, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := make(map[string]string)
	for rows.Next() {
		var field, value string
		if err := rows.Scan(&field, &value); err != nil {
			return nil, err
		}
		fields[field] = value
	}
	return fields, rows.Err()
}

// SetFields implements backlog.Store
func (s *Store) SetFields(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	names := make([]string, 0, len(fields))
	values := make([]string, 0, len(fields))
	for k, v := range fields {
		names = append(names, k)
		values = append(values, v)
	}
	_, err := s.db.Exec(ctx, querySetFields, key, names, values)
	return err
}

// PushFront implements backlog.Store
func (s *Store) PushFront(ctx context.Context, key, value string) (int64, error) {
	var n int64
	err := s.db.QueryRow(ctx, queryPushFront, key, value).Scan(&n)
	return n, err
}

// Range implements backlog.Store
func (s *Store) Range(ctx context.Context, key string) ([]string, error) {
	rows, err := s.db.Query(ctx, queryRange, key)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// MoveBlocking implements backlog.Store
func (s *Store) MoveBlocking(ctx context.Context, src, dst string, timeout time.Duration) (string, bool, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		var value string
		err := s.db.QueryRow(ctx, queryMove, src, dst).Scan(&value)
		if err == nil {
			return value, true, nil
		}
		if !IsNotFoundError(err) {
			return "", false, err
		}

		select {
		case <-ctx.Done():
			return "", false, ctx.Err()
		case <-deadline.C:
			return "", false, nil
		case <-ticker.C:
		}
	}
}

// Remove implements backlog.Store
func (s *Store) Remove(ctx context.Context, key, value string) (int64, error) {
	tag, err := s.db.Exec(ctx, queryRemove, key, value)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// SetExpiringFlag implements backlog.Store
func (s *Store) SetExpiringFlag(ctx context.Context, key string, ttl time.Duration) error {
	_, err := s.db.Exec(ctx, querySetFlag, key, ttl.Seconds())
	return err
}

// FlagExists implements backlog.Store
func (s *Store) FlagExists(ctx context.Context, key string) (bool, error) {
	var ok bool
	err := s.db.QueryRow(ctx, queryFlagExists, key).Scan(&ok)
	return ok, err
}

// ExpireNow implements backlog.Store
func (s *Store) ExpireNow(ctx context.Context, key string) (bool, error) {
	var existed bool
	err := s.db.QueryRow(ctx, queryExpireNow, key).Scan(&existed)
	return existed, err
}

// SetBit implements backlog.Store
func (s *Store) SetBit(ctx context.Context, key string, index int64) (int, error) {
	tag, err := s.db.Exec(ctx, querySetBit, key, index)
	if err != nil {
		return 0, err
	}
	if tag.RowsAffected() == 1 {
		return 0, nil
	}
	return 1, nil
}

// GetBit implements backlog.Store
func (s *Store) GetBit(ctx context.Context, key string, index int64) (int, error) {
	var set bool
	if err := s.db.QueryRow(ctx, queryGetBit, key, index).Scan(&set); err != nil {
		return 0, err
	}
	if set {
		return 1, nil
	}
	return 0, nil
}
