package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"accountportal/internal/domain"
)

// SessionRepo implements domain.SessionRepository on DB.
type SessionRepo struct {
	db  *DB
	ttl time.Duration
}

var _ domain.SessionRepository = (*SessionRepo)(nil)
var _ domain.SessionSweeper = (*SessionRepo)(nil)
var _ domain.SessionPinger = (*SessionRepo)(nil)

// NewSessionRepo wraps a DB as a SessionRepository whose records expire ttl
// after their last write.
func NewSessionRepo(db *DB, ttl time.Duration) *SessionRepo {
	return &SessionRepo{db: db, ttl: ttl}
}

// Ping reports whether the database is reachable.
func (r *SessionRepo) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// Load retrieves the record for key.
func (r *SessionRepo) Load(ctx context.Context, key string) (*domain.Session, error) {
	var data []byte
	err := r.db.sql.QueryRowContext(ctx,
		"SELECT data FROM client_sessions WHERE key = $1 AND expires_at > $2",
		key, time.Now(),
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s domain.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Save upserts the record for key.
func (r *SessionRepo) Save(ctx context.Context, key string, s domain.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	now := time.Now()
	_, err = r.db.sql.ExecContext(ctx,
		`INSERT INTO client_sessions (key, data, expires_at, updated_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, expires_at = EXCLUDED.expires_at, updated_at = EXCLUDED.updated_at`,
		key, data, now.Add(r.ttl), now,
	)
	return err
}

// Delete deletes the record for key.
func (r *SessionRepo) Delete(ctx context.Context, key string) error {
	_, err := r.db.sql.ExecContext(ctx, "DELETE FROM client_sessions WHERE key = $1", key)
	return err
}

// DeleteExpired deletes all expired records.
func (r *SessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.db.sql.ExecContext(ctx, "DELETE FROM client_sessions WHERE expires_at < $1", time.Now())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
