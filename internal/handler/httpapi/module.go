package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/fx"
)

// ServerConfig carries the gateway listen address.
type ServerConfig struct {
	Addr string
}

var Module = fx.Module("httpapi",
	fx.Provide(
		NewHandler,
		NewRouter,
	),

	fx.Invoke(func(lc fx.Lifecycle, logger *slog.Logger, cfg ServerConfig, mux *chi.Mux) {
		srv := &http.Server{
			Addr:              cfg.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				go func() {
					logger.Info("gateway listening", "addr", cfg.Addr)
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						logger.Error("gateway stopped", "err", err)
					}
				}()
				return nil
			},
			OnStop: func(ctx context.Context) error {
				return srv.Shutdown(ctx)
			},
		})
	}),
)
