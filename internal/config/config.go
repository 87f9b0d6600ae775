// Package config loads the process configuration from the environment. A .env
// file in the working directory is read first when present; variables already
// set in the environment win.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"accountportal/internal/adapter/backend"
	"accountportal/internal/adapter/postgres"
	"accountportal/internal/adapter/redis"
	"accountportal/internal/logger"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Config is the complete process configuration.
type Config struct {
	Addr           string        `env:"ADDR" envDefault:":8080"`
	StoreDriver    string        `env:"STORE_DRIVER" envDefault:"memory"`
	StoreDir       string        `env:"STORE_DIR" envDefault:"data/sessions"`
	SessionTTL     time.Duration `env:"SESSION_TTL" envDefault:"168h"`
	SweepInterval  time.Duration `env:"SWEEP_INTERVAL" envDefault:"10m"`
	CookieSecure   bool          `env:"COOKIE_SECURE" envDefault:"false"`
	EpochCacheSize int           `env:"EPOCH_CACHE_SIZE" envDefault:"10000"`
	ShutdownGrace  time.Duration `env:"SHUTDOWN_GRACE" envDefault:"10s"`

	Backend  backend.Config
	Postgres postgres.Config
	Redis    redis.Config
	Log      logger.Config `envPrefix:"LOG_"`
}

// Load reads .env (if any) and parses the environment into a Config.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load .env: %w", err)
	}
	return Parse(env.Options{})
}

// Parse builds a Config from the environment described by opts without
// touching .env files.
func Parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints that struct tags cannot express.
func (c Config) Validate() error {
	switch c.StoreDriver {
	case DriverMemory, DriverFile:
	case DriverPostgres:
		if c.Postgres.URL == "" {
			return errors.New("config: DATABASE_URL is required for the postgres store")
		}
	case DriverRedis:
		if c.Redis.URL == "" {
			return errors.New("config: REDIS_URL is required for the redis store")
		}
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.SessionTTL <= 0 {
		return errors.New("config: SESSION_TTL must be positive")
	}
	if c.EpochCacheSize <= 0 {
		return errors.New("config: EPOCH_CACHE_SIZE must be positive")
	}
	return nil
}
