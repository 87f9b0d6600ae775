package app

import (
	"context"
	"log/slog"
	"time"

	"accountportal/internal/domain"
	"accountportal/internal/logger"
)

// Sweep removes expired session records every interval until ctx is done.
func Sweep(ctx context.Context, sweeper domain.SessionSweeper, interval time.Duration, log *slog.Logger) {
	log = log.With(logger.Component("sweeper"))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			n, err := sweeper.DeleteExpired(ctx)
			if err != nil {
				if ctx.Err() == nil {
					log.Error("sweep failed", logger.Error(err))
				}
				continue
			}
			if n > 0 {
				log.Info("expired sessions removed", "count", n, logger.Duration(time.Since(start)))
			}
		}
	}
}
