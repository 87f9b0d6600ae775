// Package redis implements the session repository on Redis, relying on key
// TTLs for expiry.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	goredis "github.com/redis/go-redis/v9"

	"accountportal/internal/domain"
)

var (
	// ErrEmptyConnectionURL is returned when no Redis URL is configured.
	ErrEmptyConnectionURL = errors.New("empty redis connection URL")
	// ErrRedisNotReady is returned when Redis does not answer a ping after all attempts.
	ErrRedisNotReady = errors.New("redis did not become ready")
)

// Config describes how to reach Redis.
type Config struct {
	URL             string        `env:"REDIS_URL"`
	ConnectAttempts uint          `env:"CONNECT_ATTEMPTS" envDefault:"5"`
	ConnectDelay    time.Duration `env:"CONNECT_DELAY" envDefault:"1s"`
}

// Open parses the URL, connects and verifies the connection with a ping.
func Open(ctx context.Context, cfg Config) (*goredis.Client, error) {
	if cfg.URL == "" {
		return nil, ErrEmptyConnectionURL
	}
	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	client := goredis.NewClient(opts)

	err = retry.Do(
		func() error {
			pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			return client.Ping(pingCtx).Err()
		},
		retry.Context(ctx),
		retry.Attempts(max(cfg.ConnectAttempts, 1)),
		retry.Delay(cfg.ConnectDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		_ = client.Close()
		return nil, errors.Join(ErrRedisNotReady, err)
	}
	return client, nil
}

// SessionRepo stores session records as JSON strings.
type SessionRepo struct {
	client goredis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ domain.SessionRepository = (*SessionRepo)(nil)
var _ domain.SessionPinger = (*SessionRepo)(nil)

// NewSessionRepo creates a Redis-backed session repository. Records expire
// ttl after their last write; a zero ttl keeps them forever.
func NewSessionRepo(client goredis.UniversalClient, ttl time.Duration) *SessionRepo {
	return &SessionRepo{
		client: client,
		prefix: "portal:",
		ttl:    ttl,
	}
}

func (r *SessionRepo) key(key string) string {
	return r.prefix + key
}

// Ping reports whether Redis answers.
func (r *SessionRepo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Load returns the record for key, or nil if absent.
func (r *SessionRepo) Load(ctx context.Context, key string) (*domain.Session, error) {
	val, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var s domain.Session
	if err := json.Unmarshal(val, &s); err != nil {
		return nil, fmt.Errorf("redis: unmarshal session: %w", err)
	}
	return &s, nil
}

// Save writes the record and resets its TTL.
func (r *SessionRepo) Save(ctx context.Context, key string, s domain.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("redis: marshal session: %w", err)
	}
	return r.client.Set(ctx, r.key(key), data, r.ttl).Err()
}

// Delete removes the record for key.
func (r *SessionRepo) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}
