package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sourcegraph/conc/pool"

	"accountportal/internal/adapter/backend"
	"accountportal/internal/adapter/file"
	adapthttp "accountportal/internal/adapter/http"
	"accountportal/internal/adapter/memory"
	"accountportal/internal/adapter/postgres"
	"accountportal/internal/adapter/redis"
	"accountportal/internal/app"
	"accountportal/internal/config"
	"accountportal/internal/domain"
	"accountportal/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	store, err := app.NewSessionStore(repo, cfg.EpochCacheSize, log)
	if err != nil {
		return err
	}
	client, err := backend.New(cfg.Backend, nil)
	if err != nil {
		return err
	}

	srv, err := adapthttp.New(store,
		app.NewAuthService(client, log),
		app.NewAccountService(client, log),
		log,
		adapthttp.Options{CookieSecure: cfg.CookieSecure, ClientTTL: cfg.SessionTTL},
	)
	if err != nil {
		return err
	}
	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	p := pool.New().WithErrors().WithContext(ctx).WithCancelOnError()
	p.Go(func(context.Context) error {
		log.Info("listening", "addr", cfg.Addr, "store", cfg.StoreDriver, "backend", cfg.Backend.URL)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	p.Go(func(ctx context.Context) error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	if sweeper, ok := repo.(domain.SessionSweeper); ok && cfg.SweepInterval > 0 {
		p.Go(func(ctx context.Context) error {
			app.Sweep(ctx, sweeper, cfg.SweepInterval, log)
			return nil
		})
	}

	if err := p.Wait(); err != nil {
		return err
	}
	log.Info("stopped cleanly")
	return nil
}

// openRepository returns the session repository selected by STORE_DRIVER and
// a func releasing its connections.
func openRepository(ctx context.Context, cfg config.Config) (domain.SessionRepository, func(), error) {
	noop := func() {}
	switch cfg.StoreDriver {
	case config.DriverFile:
		repo, err := file.NewOSSessionRepo(cfg.StoreDir, cfg.SessionTTL)
		return repo, noop, err
	case config.DriverPostgres:
		db, err := postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			return nil, noop, err
		}
		return postgres.NewSessionRepo(db, cfg.SessionTTL), func() { _ = db.Close() }, nil
	case config.DriverRedis:
		client, err := redis.Open(ctx, cfg.Redis)
		if err != nil {
			return nil, noop, err
		}
		return redis.NewSessionRepo(client, cfg.SessionTTL), func() { _ = client.Close() }, nil
	default:
		return memory.NewSessionRepo(cfg.SessionTTL), noop, nil
	}
}
