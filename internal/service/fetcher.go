package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/errgroup"

	"github.com/gamepulse/admin-sync-service/internal/adapter/rest"
	"github.com/gamepulse/admin-sync-service/internal/domain/model"
)

// Fetcher normalizes the backend's metric endpoints into dashboard view
// models. Every operation is read-only and idempotent, and every degraded
// condition resolves to a documented zero/empty fallback so the dashboard
// always renders.
type Fetcher interface {
	DashboardStats(ctx context.Context) model.DashboardStats
	SystemHealth(ctx context.Context) model.SystemHealth
	RealtimeActivity(ctx context.Context) (model.PollSnapshot, error)
	UserEngagement(ctx context.Context, days int) []model.EngagementPoint
	ContentPerformance(ctx context.Context, limit int) []model.ContentPerformance
	AdminActions(ctx context.Context, limit int) []model.AdminAction
}

// FetcherConfig tunes the normalized-list cache.
type FetcherConfig struct {
	CacheSize int
	CacheTTL  time.Duration
}

func (c *FetcherConfig) withDefaults() {
	if c.CacheSize <= 0 {
		c.CacheSize = 32
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 30 * time.Second
	}
}

type FetchService struct {
	logger *slog.Logger
	rest   *rest.Client

	// Short-TTL caches keep presentation-driven refreshes from hammering
	// the analytics endpoints between poll cycles.
	engagement  *expirable.LRU[string, []model.EngagementPoint]
	performance *expirable.LRU[string, []model.ContentPerformance]
	audit       *expirable.LRU[string, []model.AdminAction]
}

// NewFetchService returns the production Fetcher backed by the REST client.
func NewFetchService(logger *slog.Logger, client *rest.Client, cfg FetcherConfig) *FetchService {
	cfg.withDefaults()
	return &FetchService{
		logger:      logger,
		rest:        client,
		engagement:  expirable.NewLRU[string, []model.EngagementPoint](cfg.CacheSize, nil, cfg.CacheTTL),
		performance: expirable.NewLRU[string, []model.ContentPerformance](cfg.CacheSize, nil, cfg.CacheTTL),
		audit:       expirable.NewLRU[string, []model.AdminAction](cfg.CacheSize, nil, cfg.CacheTTL),
	}
}

// analyticsDashboard is the backend envelope for /analytics/admin/dashboard.
type analyticsDashboard struct {
	Summary struct {
		UniqueUsers int `json:"uniqueUsers"`
	} `json:"summary"`
	Trends []model.TrendPoint `json:"trends"`
}

// DashboardStats combines four parallel backend calls into one record.
// Any failure yields the zeroed fallback rather than an error.
func (f *FetchService) DashboardStats(ctx context.Context) model.DashboardStats {
	var (
		games, teams, news int
		analytics          analyticsDashboard
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		body, err := f.rest.Get(gctx, "/games", url.Values{"limit": {"1"}})
		if err != nil {
			return err
		}
		games = rest.Total(body)
		return nil
	})
	g.Go(func() error {
		body, err := f.rest.Get(gctx, "/teams", nil)
		if err != nil {
			return err
		}
		teams = rest.Total(body)
		return nil
	})
	g.Go(func() error {
		body, err := f.rest.Get(gctx, "/content/news", url.Values{"limit": {"1"}, "published": {"true"}})
		if err != nil {
			return err
		}
		news = rest.Total(body)
		return nil
	})
	g.Go(func() error {
		return f.rest.GetJSON(gctx, "/analytics/admin/dashboard", nil, &analytics)
	})

	if err := g.Wait(); err != nil {
		f.logger.Warn("dashboard stats degraded to fallback", "err", err)
		return model.DashboardStats{}
	}

	return model.DashboardStats{
		TotalGames:     games,
		TotalTeams:     teams,
		PublishedNews:  news,
		UniqueUsers:    analytics.Summary.UniqueUsers,
		WeeklyTrendPct: weekOverWeek(analytics.Trends),
	}
}

// SystemHealth runs the three probes independently; a failing probe reports
// unhealthy locally instead of failing the aggregate.
func (f *FetchService) SystemHealth(ctx context.Context) model.SystemHealth {
	if _, err := url.Parse(f.rest.BaseURL()); err != nil {
		return model.SystemHealth{Status: model.HealthDown}
	}

	probes := []struct {
		name string
		path string
		q    url.Values
	}{
		{"api", "/games", url.Values{"limit": {"1"}}},
		{"storage", "/content/news", url.Values{"limit": {"1"}}},
		{"cache", "/admin/realtime/connection-stats", nil},
	}

	results := make([]model.ProbeResult, len(probes))
	var wg sync.WaitGroup
	for i, p := range probes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			_, err := f.rest.Get(ctx, p.path, p.q)
			results[i] = model.ProbeResult{
				Name:      p.name,
				Healthy:   err == nil,
				LatencyMS: time.Since(start).Milliseconds(),
			}
			if err != nil {
				f.logger.Warn("health probe failed", "probe", p.name, "err", err)
			}
		}()
	}
	wg.Wait()

	health := model.SystemHealth{
		Status:  model.HealthOperational,
		API:     results[0],
		Storage: results[1],
		Cache:   results[2],
	}
	for _, r := range results {
		if !r.Healthy {
			health.Status = model.HealthDegraded
			break
		}
	}
	return health
}

// connectionStats is the /admin/realtime/connection-stats payload.
type connectionStats struct {
	UsersOnline            int `json:"usersOnline"`
	TotalConnections       int `json:"totalConnections"`
	ActiveSessions         int `json:"activeSessions"`
	ActiveScorekeeperUsers int `json:"activeScorekeeperUsers"`
}

// RealtimeActivity is the one-shot poll: live-games list length plus the
// connection-stats aggregate. Used to seed the reconciler before push events
// arrive and for the periodic non-live-game refresh.
func (f *FetchService) RealtimeActivity(ctx context.Context) (model.PollSnapshot, error) {
	var (
		liveGames int
		stats     connectionStats
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		body, err := f.rest.Get(gctx, "/games/live", nil)
		if err != nil {
			return err
		}
		var games []model.LiveGameSummary
		if err := rest.DecodeList(body, &games); err != nil {
			return fmt.Errorf("live games decode: %w", err)
		}
		liveGames = len(games)
		return nil
	})
	g.Go(func() error {
		return f.rest.GetJSON(gctx, "/admin/realtime/connection-stats", nil, &stats)
	})

	if err := g.Wait(); err != nil {
		return model.PollSnapshot{}, err
	}
	return model.PollSnapshot{
		LiveGames:              liveGames,
		UsersOnline:            stats.UsersOnline,
		ActiveSessions:         stats.ActiveSessions,
		ActiveScorekeeperUsers: stats.ActiveScorekeeperUsers,
	}, nil
}

// UserEngagement maps the daily-active-users series into flat view records.
// Resolves to an empty list on failure.
func (f *FetchService) UserEngagement(ctx context.Context, days int) []model.EngagementPoint {
	if days <= 0 {
		days = 7
	}
	key := "engagement:" + strconv.Itoa(days)
	if cached, ok := f.engagement.Get(key); ok {
		return cached
	}

	now := time.Now().UTC()
	q := url.Values{
		"startDate": {now.AddDate(0, 0, -days).Format("2006-01-02")},
		"endDate":   {now.Format("2006-01-02")},
	}
	var payload struct {
		DailyActiveUsers []model.TrendPoint `json:"dailyActiveUsers"`
	}
	if err := f.rest.GetJSON(ctx, "/analytics/admin/user-activity", q, &payload); err != nil {
		f.logger.Warn("user engagement degraded to empty", "err", err)
		return []model.EngagementPoint{}
	}

	points := make([]model.EngagementPoint, 0, len(payload.DailyActiveUsers))
	for _, p := range payload.DailyActiveUsers {
		points = append(points, model.EngagementPoint{Date: p.Date, ActiveUsers: p.Count})
	}
	f.engagement.Add(key, points)
	return points
}

// ContentPerformance maps the ranked-content envelope into flat view records.
// Resolves to an empty list on failure.
func (f *FetchService) ContentPerformance(ctx context.Context, limit int) []model.ContentPerformance {
	if limit <= 0 {
		limit = 10
	}
	key := "performance:" + strconv.Itoa(limit)
	if cached, ok := f.performance.Get(key); ok {
		return cached
	}

	body, err := f.rest.Get(ctx, "/analytics/admin/content-performance", url.Values{"limit": {strconv.Itoa(limit)}})
	if err != nil {
		f.logger.Warn("content performance degraded to empty", "err", err)
		return []model.ContentPerformance{}
	}
	items := []model.ContentPerformance{}
	if err := rest.DecodeList(body, &items); err != nil {
		f.logger.Warn("content performance decode degraded to empty", "err", err)
		return []model.ContentPerformance{}
	}
	f.performance.Add(key, items)
	return items
}

// auditRecord tolerates both the flat and the nested admin shapes the audit
// endpoint has shipped over time.
type auditRecord struct {
	ID         string `json:"id"`
	Action     string `json:"action"`
	EntityType string `json:"entityType"`
	CreatedAt  string `json:"createdAt"`
	AdminName  string `json:"adminName"`
	Admin      *struct {
		Name string `json:"name"`
	} `json:"admin"`
}

// AdminActions maps the audit-log envelope into flat view records.
// Resolves to an empty list on failure.
func (f *FetchService) AdminActions(ctx context.Context, limit int) []model.AdminAction {
	if limit <= 0 {
		limit = 20
	}
	key := "audit:" + strconv.Itoa(limit)
	if cached, ok := f.audit.Get(key); ok {
		return cached
	}

	body, err := f.rest.Get(ctx, "/admin/audit/logs", url.Values{"limit": {strconv.Itoa(limit)}, "page": {"1"}})
	if err != nil {
		f.logger.Warn("admin actions degraded to empty", "err", err)
		return []model.AdminAction{}
	}
	var records []auditRecord
	if err := rest.DecodeList(body, &records); err != nil {
		f.logger.Warn("admin actions decode degraded to empty", "err", err)
		return []model.AdminAction{}
	}

	actions := make([]model.AdminAction, 0, len(records))
	for _, r := range records {
		name := r.AdminName
		if name == "" && r.Admin != nil {
			name = r.Admin.Name
		}
		actions = append(actions, model.AdminAction{
			ID:         r.ID,
			AdminName:  name,
			Action:     r.Action,
			EntityType: r.EntityType,
			CreatedAt:  r.CreatedAt,
		})
	}
	f.audit.Add(key, actions)
	return actions
}
