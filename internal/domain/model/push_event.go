package model

// PushEventKind discriminates the server-pushed event union.
type PushEventKind int16

//go:generate stringer -type=PushEventKind
const (
	KindGamesSnapshot   PushEventKind = iota + 1 // [ABSOLUTE] full live-game list
	KindGameUpdate                               // [DELTA] per-game score/clock change
	KindGameStart                                // [DELTA] one more live game
	KindGameEnd                                  // [DELTA] one fewer live game
	KindConnectionStats                          // [AGGREGATE] server-side presence counters
)

// PushEventer is the contract for every packet delivered over the push channel.
type PushEventer interface {
	Kind() PushEventKind
}

// Interface guards
var (
	_ PushEventer = GamesSnapshot{}
	_ PushEventer = GameUpdate{}
	_ PushEventer = GameStart{}
	_ PushEventer = GameEnd{}
	_ PushEventer = ConnectionStats{}
)

// LiveGameSummary is one entry of a GamesSnapshot.
type LiveGameSummary struct {
	GameID    string `json:"gameId"`
	HomeTeam  string `json:"homeTeam"`
	AwayTeam  string `json:"awayTeam"`
	HomeScore int    `json:"homeScore"`
	AwayScore int    `json:"awayScore"`
	Clock     string `json:"clock"`
	Period    int    `json:"period"`
	Status    string `json:"status"`
}

// GamesSnapshot is the full replacement list of currently-live games.
// len(Games) is the authoritative absolute value for the live-game count.
type GamesSnapshot struct {
	Games []LiveGameSummary `json:"games"`
}

func (GamesSnapshot) Kind() PushEventKind { return KindGamesSnapshot }

// GameUpdate is an in-place delta for one game. It never changes the
// live-game count.
type GameUpdate struct {
	GameID    string `json:"gameId"`
	HomeScore int    `json:"homeScore"`
	AwayScore int    `json:"awayScore"`
	Clock     string `json:"clock"`
	Period    int    `json:"period"`
	Status    string `json:"status"`
}

func (GameUpdate) Kind() PushEventKind { return KindGameUpdate }

// GameStart signals one additional live game.
type GameStart struct {
	GameID string `json:"gameId"`
}

func (GameStart) Kind() PushEventKind { return KindGameStart }

// GameEnd signals one fewer live game, floored at zero by the reconciler.
type GameEnd struct {
	GameID string `json:"gameId"`
}

func (GameEnd) Kind() PushEventKind { return KindGameEnd }

// ConnectionStats is the periodic server-side presence aggregate. It is
// disjoint from the live-game count.
type ConnectionStats struct {
	UsersOnline            int `json:"usersOnline"`
	ActiveSessions         int `json:"activeSessions"`
	ActiveScorekeeperUsers int `json:"activeScorekeeperUsers"`
	TotalConnections       int `json:"totalConnections"`
}

func (ConnectionStats) Kind() PushEventKind { return KindConnectionStats }
