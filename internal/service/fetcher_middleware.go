package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/gamepulse/admin-sync-service/internal/domain/model"
)

// FetcherMiddleware implements [DECORATOR_PATTERN] to add fetch timing
// observability without touching the normalization logic.
type FetcherMiddleware struct {
	Next   Fetcher
	Logger *slog.Logger
}

func (m *FetcherMiddleware) DashboardStats(ctx context.Context) model.DashboardStats {
	start := time.Now()
	out := m.Next.DashboardStats(ctx)
	m.Logger.Debug("FETCH_DASHBOARD_STATS", "duration_ms", time.Since(start).Milliseconds())
	return out
}

func (m *FetcherMiddleware) SystemHealth(ctx context.Context) model.SystemHealth {
	start := time.Now()
	out := m.Next.SystemHealth(ctx)
	m.Logger.Debug("FETCH_SYSTEM_HEALTH",
		"status", string(out.Status),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out
}

func (m *FetcherMiddleware) RealtimeActivity(ctx context.Context) (model.PollSnapshot, error) {
	start := time.Now()
	snap, err := m.Next.RealtimeActivity(ctx)
	if err != nil {
		m.Logger.Warn("FETCH_REALTIME_FAILED",
			"err", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
	return snap, err
}

func (m *FetcherMiddleware) UserEngagement(ctx context.Context, days int) []model.EngagementPoint {
	start := time.Now()
	out := m.Next.UserEngagement(ctx, days)
	m.Logger.Debug("FETCH_USER_ENGAGEMENT", "days", days, "points", len(out),
		"duration_ms", time.Since(start).Milliseconds())
	return out
}

func (m *FetcherMiddleware) ContentPerformance(ctx context.Context, limit int) []model.ContentPerformance {
	start := time.Now()
	out := m.Next.ContentPerformance(ctx, limit)
	m.Logger.Debug("FETCH_CONTENT_PERFORMANCE", "limit", limit, "items", len(out),
		"duration_ms", time.Since(start).Milliseconds())
	return out
}

func (m *FetcherMiddleware) AdminActions(ctx context.Context, limit int) []model.AdminAction {
	start := time.Now()
	out := m.Next.AdminActions(ctx, limit)
	m.Logger.Debug("FETCH_ADMIN_ACTIONS", "limit", limit, "items", len(out),
		"duration_ms", time.Since(start).Milliseconds())
	return out
}
