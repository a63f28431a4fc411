package model

// RealtimeActivity is the single authoritative merged view of "current live
// activity" for one dashboard session.
//
// [OWNERSHIP]
// The value is exclusively owned and mutated by the reconcile.Reconciler;
// every other component reads it through the orchestrator accessor or the
// update stream. LiveGames in particular is never written outside the
// reconciler's transition table.
type RealtimeActivity struct {
	LiveGames              int `json:"liveGames"`
	UsersOnline            int `json:"usersOnline"`
	ActiveSessions         int `json:"activeSessions"`
	ActiveScorekeeperUsers int `json:"activeScorekeeperUsers"`
}

// PollSnapshot is a REST-sourced observation of the same shape. It seeds the
// merged value before any push event arrives and refreshes the non-live-game
// fields afterwards.
type PollSnapshot = RealtimeActivity
