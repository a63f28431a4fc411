package httpapi

import (
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true }, // Security: adjust for production
}

// Stream pushes every merged RealtimeActivity value to the websocket client
// until the client leaves or the dashboard session ends.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	updates, err := h.orch.Updates(r.Context())
	if err != nil {
		http.Error(w, "dashboard session not active", http.StatusServiceUnavailable)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws upgrade failed", "error", err)
		return
	}
	defer ws.Close()

	h.logger.Info("ws consumer attached", "remote", r.RemoteAddr)

	// Seed the client with the current value before streaming deltas.
	if activity, ok := h.orch.Activity(); ok {
		if err := ws.WriteJSON(activity); err != nil {
			return
		}
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case activity, ok := <-updates:
			if !ok {
				return
			}
			if err := ws.WriteJSON(activity); err != nil {
				h.logger.Warn("ws send failed", "error", err)
				return
			}
		}
	}
}
