package channel

import (
	"encoding/json"
	"fmt"

	"github.com/gamepulse/admin-sync-service/internal/domain/model"
)

// ------------------- INBOUND EVENT NAMES -------------------
const (
	evConnected       = "connected"
	evGamesSnapshot   = "games:snapshot"
	evGameUpdate      = "game:update"
	evGameStart       = "game:start"
	evGameEnd         = "game:end"
	evConnectionStats = "connection:stats"
)

// ------------------- OUTBOUND EVENT NAMES ------------------
const (
	evSubscribeLeague = "subscribe:league"
	evSubscribeGame   = "subscribe:game"
	evUnsubscribeGame = "unsubscribe:game"
)

// frame is the envelope for every message on the realtime endpoint.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// connectedAck is the handshake payload carrying the server-assigned id.
type connectedAck struct {
	ClientID string `json:"clientId"`
}

// gameRef is the outbound payload for per-game (un)subscriptions.
type gameRef struct {
	GameID string `json:"gameId"`
}

// decodeEvent maps a named wire frame onto the PushEvent union.
func decodeEvent(name string, data []byte) (model.PushEventer, error) {
	switch name {
	case evGamesSnapshot:
		var ev model.GamesSnapshot
		return ev, json.Unmarshal(data, &ev)
	case evGameUpdate:
		var ev model.GameUpdate
		return ev, json.Unmarshal(data, &ev)
	case evGameStart:
		var ev model.GameStart
		return ev, json.Unmarshal(data, &ev)
	case evGameEnd:
		var ev model.GameEnd
		return ev, json.Unmarshal(data, &ev)
	case evConnectionStats:
		var ev model.ConnectionStats
		return ev, json.Unmarshal(data, &ev)
	default:
		return nil, fmt.Errorf("channel: unknown event %q", name)
	}
}

// eventName is the inverse of decodeEvent, used for stream metadata.
func eventName(kind model.PushEventKind) string {
	switch kind {
	case model.KindGamesSnapshot:
		return evGamesSnapshot
	case model.KindGameUpdate:
		return evGameUpdate
	case model.KindGameStart:
		return evGameStart
	case model.KindGameEnd:
		return evGameEnd
	case model.KindConnectionStats:
		return evConnectionStats
	default:
		return ""
	}
}
