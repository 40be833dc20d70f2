package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/opsintent/intentcore/pkg/checkpoint"
)

// Store is a Postgres-backed checkpoint.Store using sqlx over a pgx
// stdlib connection pool.
type Store struct {
	db *sqlx.DB
}

// New wraps an existing pgx-backed *sql.DB (opened with driver name "pgx").
func New(db *sql.DB) *Store {
	return &Store{db: sqlx.NewDb(db, "pgx")}
}

type row struct {
	Key       string       `db:"key"`
	Payload   []byte       `db:"payload"`
	Version   int64        `db:"version"`
	ExpiresAt sql.NullTime `db:"expires_at"`
}

func (r row) toEntry() checkpoint.Entry {
	e := checkpoint.Entry{Key: r.Key, Payload: r.Payload, Version: r.Version}
	if r.ExpiresAt.Valid {
		e.ExpiresAt = r.ExpiresAt.Time
	}
	return e
}

func nullExpiry(ttl time.Duration) sql.NullTime {
	if ttl <= 0 {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: time.Now().Add(ttl), Valid: true}
}

// Save implements checkpoint.Store: insert-or-overwrite, version = prior+1.
func (s *Store) Save(ctx context.Context, key string, payload []byte, ttl time.Duration) (int64, error) {
	expiresAt := nullExpiry(ttl)
	var version int64
	err := s.db.GetContext(ctx, &version, `
		INSERT INTO checkpoints (key, payload, version, expires_at, updated_at)
		VALUES ($1, $2, 1, $3, now())
		ON CONFLICT (key) DO UPDATE
		SET payload = EXCLUDED.payload,
		    version = checkpoints.version + 1,
		    expires_at = EXCLUDED.expires_at,
		    updated_at = now()
		RETURNING version
	`, key, payload, expiresAt)
	if err != nil {
		return 0, fmt.Errorf("sqlstore: save %s: %w", key, err)
	}
	return version, nil
}

// Load implements checkpoint.Store.
func (s *Store) Load(ctx context.Context, key string) (checkpoint.Entry, error) {
	var r row
	err := s.db.GetContext(ctx, &r, `
		SELECT key, payload, version, expires_at FROM checkpoints
		WHERE key = $1 AND (expires_at IS NULL OR expires_at > now())
	`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return checkpoint.Entry{}, checkpoint.ErrNotFound
	}
	if err != nil {
		return checkpoint.Entry{}, fmt.Errorf("sqlstore: load %s: %w", key, err)
	}
	return r.toEntry(), nil
}

// CAS implements checkpoint.Store. expectedVersion=0 means "create, must
// not already exist".
func (s *Store) CAS(ctx context.Context, key string, payload []byte, expectedVersion int64, ttl time.Duration) (int64, error) {
	expiresAt := nullExpiry(ttl)

	if expectedVersion == 0 {
		var version int64
		err := s.db.GetContext(ctx, &version, `
			INSERT INTO checkpoints (key, payload, version, expires_at, updated_at)
			VALUES ($1, $2, 1, $3, now())
			ON CONFLICT (key) DO NOTHING
			RETURNING version
		`, key, payload, expiresAt)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, checkpoint.ErrVersionConflict
		}
		if err != nil {
			return 0, fmt.Errorf("sqlstore: cas-create %s: %w", key, err)
		}
		return version, nil
	}

	var version int64
	err := s.db.GetContext(ctx, &version, `
		UPDATE checkpoints
		SET payload = $2, version = version + 1, expires_at = $3, updated_at = now()
		WHERE key = $1 AND version = $4
		RETURNING version
	`, key, payload, expiresAt, expectedVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, checkpoint.ErrVersionConflict
	}
	if err != nil {
		return 0, fmt.Errorf("sqlstore: cas %s: %w", key, err)
	}
	return version, nil
}

// List implements checkpoint.Store.
func (s *Store) List(ctx context.Context, prefix string) ([]checkpoint.Entry, error) {
	var rows []row
	err := s.db.SelectContext(ctx, &rows, `
		SELECT key, payload, version, expires_at FROM checkpoints
		WHERE key LIKE $1 AND (expires_at IS NULL OR expires_at > now())
		ORDER BY key
	`, prefix+"%")
	if err != nil {
		return nil, fmt.Errorf("sqlstore: list %s: %w", prefix, err)
	}
	out := make([]checkpoint.Entry, len(rows))
	for i, r := range rows {
		out[i] = r.toEntry()
	}
	return out, nil
}

// Delete implements checkpoint.Store.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE key = $1`, key)
	if err != nil {
		return false, fmt.Errorf("sqlstore: delete %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlstore: delete %s: %w", key, err)
	}
	return n > 0, nil
}

// SweepExpired implements checkpoint.Store.
func (s *Store) SweepExpired(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE expires_at IS NOT NULL AND expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("sqlstore: sweep: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlstore: sweep: %w", err)
	}
	return int(n), nil
}

var _ checkpoint.Store = (*Store)(nil)
