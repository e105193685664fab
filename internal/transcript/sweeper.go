package transcript

import (
	"context"
	"log/slog"
	"time"

	"github.com/ashureev/tradedesk/internal/store"
)

const sweepInterval = time.Hour

// EvictFunc is called for each session removed by the sweeper.
type EvictFunc func(sessionID string)

// StartSweeper runs a background goroutine that periodically deletes the
// persisted state of sessions idle for longer than ttl.
func StartSweeper(ctx context.Context, repo store.Repository, ttl time.Duration, onEvict EvictFunc) {
	startSweeper(ctx, repo, ttl, sweepInterval, onEvict)
}

func startSweeper(ctx context.Context, repo store.Repository, ttl, interval time.Duration, onEvict EvictFunc) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Transcript sweeper started", "interval", interval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				Sweep(ctx, repo, ttl, onEvict)
			case <-ctx.Done():
				slog.Info("Transcript sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

// Sweep deletes every expired session once and returns how many were removed.
func Sweep(ctx context.Context, repo store.Repository, ttl time.Duration, onEvict EvictFunc) int {
	expired, err := repo.ExpiredSessions(ctx, ttl)
	if err != nil {
		slog.Error("Transcript sweeper failed to list expired sessions", "error", err)
		return 0
	}
	if len(expired) == 0 {
		return 0
	}

	removed := 0
	for _, sessionID := range expired {
		if onEvict != nil {
			onEvict(sessionID)
		}
		if err := repo.DeleteSession(ctx, sessionID); err != nil {
			slog.Warn("Transcript sweeper failed to delete session",
				"error", err,
				"session_id", sessionID)
			continue
		}
		removed++
	}

	slog.Info("Transcript sweep completed", "expired", len(expired), "removed", removed)
	return removed
}
