package service

import (
	"log/slog"

	"go.uber.org/fx"
)

var Module = fx.Module(
	"service",

	fx.Provide(
		// Domain services
		fx.Annotate(
			NewFetchService,
			fx.As(new(Fetcher)),
		),
		NewOrchestrator,
	),

	// [DECORATION_LAYER] Intercept Fetcher to add cross-cutting concerns
	fx.Decorate(func(orig Fetcher, logger *slog.Logger) Fetcher {
		return &FetcherMiddleware{
			Next:   orig,
			Logger: logger,
		}
	}),

	// The dashboard session follows the application lifecycle: activation on
	// start, full teardown on stop.
	fx.Invoke(func(lc fx.Lifecycle, o *Orchestrator) {
		lc.Append(fx.Hook{
			OnStart: o.Start,
			OnStop:  o.Stop,
		})
	}),
)
