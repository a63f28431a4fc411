// Package httpapi exposes the merged dashboard view models to presentation
// consumers over chi: JSON accessors for every metric category and a
// websocket push-through of the merged realtime activity.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gamepulse/admin-sync-service/internal/service"
)

type Handler struct {
	logger  *slog.Logger
	orch    *service.Orchestrator
	fetcher service.Fetcher
}

func NewHandler(logger *slog.Logger, orch *service.Orchestrator, fetcher service.Fetcher) *Handler {
	return &Handler{
		logger:  logger,
		orch:    orch,
		fetcher: fetcher,
	}
}

// realtimeResponse pairs the merged value with channel liveness so the
// presentation layer can flag degraded freshness.
type realtimeResponse struct {
	Activity  any  `json:"activity"`
	Connected bool `json:"connected"`
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) Realtime(w http.ResponseWriter, r *http.Request) {
	activity, ok := h.orch.Activity()
	resp := realtimeResponse{Connected: h.orch.Connected()}
	if ok {
		resp.Activity = activity
	}
	h.writeJSON(w, resp)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.fetcher.DashboardStats(r.Context()))
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.fetcher.SystemHealth(r.Context()))
}

func (h *Handler) Engagement(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 7)
	h.writeJSON(w, h.fetcher.UserEngagement(r.Context(), days))
}

func (h *Handler) Content(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 10)
	h.writeJSON(w, h.fetcher.ContentPerformance(r.Context(), limit))
}

func (h *Handler) Audit(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	h.writeJSON(w, h.fetcher.AdminActions(r.Context(), limit))
}

func (h *Handler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("response encode failed", "err", err)
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
