package cmd

import (
	"context"
	"log/slog"

	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/gamepulse/admin-sync-service/config"
	"github.com/gamepulse/admin-sync-service/infra/observability"
	"github.com/gamepulse/admin-sync-service/internal/adapter/channel"
	"github.com/gamepulse/admin-sync-service/internal/adapter/rest"
	"github.com/gamepulse/admin-sync-service/internal/handler/httpapi"
	"github.com/gamepulse/admin-sync-service/internal/service"
)

func NewApp(cfg *config.Config, v *viper.Viper, extra ...fx.Option) *fx.App {
	opts := []fx.Option{
		fx.Provide(
			func() *config.Config { return cfg },
			func() *viper.Viper { return v },
			ProvideLogger,
			ProvideRestClient,
			ProvideChannelClient,
			ProvideFetcherConfig,
			ProvideOrchestratorConfig,
			ProvideServerConfig,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger}
		}),
		fx.Invoke(RegisterTracing),
		fx.Invoke(RegisterConfigWatch),
		service.Module,
		httpapi.Module,
	}
	opts = append(opts, extra...)
	return fx.New(opts...)
}

func ProvideLogger(cfg *config.Config) (*slog.Logger, *slog.LevelVar) {
	return observability.NewLogger(observability.LoggerConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		OTEL:   cfg.Log.OTEL,
		Scope:  ServiceName,
	})
}

func ProvideRestClient(logger *slog.Logger, cfg *config.Config) (*rest.Client, error) {
	return rest.NewClient(logger, rest.Config{
		BaseURL:         cfg.Backend.BaseURL,
		Timeout:         cfg.Backend.Timeout,
		BreakerFailures: cfg.Backend.BreakerFailures,
		BreakerCooldown: cfg.Backend.BreakerCooldown,
	})
}

func ProvideChannelClient(logger *slog.Logger, cfg *config.Config) service.EventChannel {
	return channel.NewClient(logger, channel.Config{
		URL:              cfg.Channel.URL,
		HandshakeTimeout: cfg.Channel.HandshakeTimeout,
		ReconnectMin:     cfg.Channel.ReconnectMin,
		ReconnectMax:     cfg.Channel.ReconnectMax,
		MaxAttempts:      cfg.Channel.MaxAttempts,
		BufferSize:       cfg.Channel.BufferSize,
	})
}

func ProvideFetcherConfig(cfg *config.Config) service.FetcherConfig {
	return service.FetcherConfig{
		CacheSize: cfg.Cache.Size,
		CacheTTL:  cfg.Cache.TTL,
	}
}

func ProvideOrchestratorConfig(cfg *config.Config) service.OrchestratorConfig {
	return service.OrchestratorConfig{
		Token:                cfg.Backend.Token,
		RealtimeInterval:     cfg.Refresh.Realtime,
		AdminActionsInterval: cfg.Refresh.AdminActions,
		StatsInterval:        cfg.Refresh.DashboardStats,
		AdminActionsLimit:    cfg.Refresh.AdminActionsLimit,
		ContentLimit:         cfg.Refresh.ContentLimit,
		EngagementDays:       cfg.Refresh.EngagementDays,
		MailboxSize:          cfg.Channel.MailboxSize,
	}
}

func ProvideServerConfig(cfg *config.Config) httpapi.ServerConfig {
	return httpapi.ServerConfig{Addr: cfg.HTTP.Addr}
}

// RegisterTracing installs the global tracer provider for the process.
func RegisterTracing(lc fx.Lifecycle) {
	tp := observability.NewTracerProvider(ServiceName, ServiceNamespace)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return observability.Shutdown(ctx, tp)
		},
	})
}

// RegisterConfigWatch hot-reloads the log level on config file changes.
func RegisterConfigWatch(v *viper.Viper, logger *slog.Logger, level *slog.LevelVar) {
	config.Watch(v, logger, func(raw string) {
		level.Set(observability.ParseLevel(raw))
		logger.Info("log level updated", "level", raw)
	})
}
