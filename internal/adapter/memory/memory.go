// Package memory implements an in-memory session repository for development and testing.
package memory

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"accountportal/internal/domain"
)

type record struct {
	data      []byte
	expiresAt time.Time
}

// SessionRepo keeps session records in a map. Records are stored encoded so
// callers never share pointers with the repository.
type SessionRepo struct {
	mu      sync.Mutex
	records map[string]record
	ttl     time.Duration
	now     func() time.Time
}

// NewSessionRepo creates an empty repository whose records expire ttl after
// their last write. A zero ttl keeps records forever.
func NewSessionRepo(ttl time.Duration) *SessionRepo {
	return &SessionRepo{
		records: make(map[string]record),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Ensure interfaces are met.
var _ domain.SessionRepository = (*SessionRepo)(nil)
var _ domain.SessionSweeper = (*SessionRepo)(nil)

// Load returns the record for key, or nil if absent or expired.
func (r *SessionRepo) Load(ctx context.Context, key string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[key]
	if !ok {
		return nil, nil
	}
	if r.expired(rec) {
		delete(r.records, key)
		return nil, nil
	}
	var s domain.Session
	if err := json.Unmarshal(rec.data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Save stores s under key.
func (r *SessionRepo) Save(ctx context.Context, key string, s domain.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec := record{data: data}
	if r.ttl > 0 {
		rec.expiresAt = r.now().Add(r.ttl)
	}
	r.records[key] = rec
	return nil
}

// Delete removes the record for key. Deleting a missing key is not an error.
func (r *SessionRepo) Delete(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, key)
	return nil
}

// DeleteExpired removes expired records and returns how many were removed.
func (r *SessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for k, rec := range r.records {
		if r.expired(rec) {
			delete(r.records, k)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored records, expired ones included.
func (r *SessionRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

func (r *SessionRepo) expired(rec record) bool {
	return !rec.expiresAt.IsZero() && r.now().After(rec.expiresAt)
}
