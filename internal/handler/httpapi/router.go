package httpapi

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Healthz)
	r.Get("/ws", h.Stream)

	r.Route("/api", func(r chi.Router) {
		r.Get("/realtime", h.Realtime)
		r.Get("/stats", h.Stats)
		r.Get("/health", h.Health)
		r.Get("/engagement", h.Engagement)
		r.Get("/content", h.Content)
		r.Get("/audit", h.Audit)
	})

	return r
}
