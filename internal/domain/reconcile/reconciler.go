/*
Package reconcile owns the merged "current live activity" value for one
dashboard session.

Key Architectural Concepts:
  - Single Writer: the Reconciler is the only component that ever mutates the
    RealtimeActivity value; everything else observes it through Current() or
    the update hook.
  - Actor Mailbox: poll snapshots and push events are queued into one buffered
    mailbox and drained by a single goroutine, so transitions apply as
    discrete, strictly ordered turns without caller-side locking.
  - Push-Authoritative Latch: once any push event has touched the live-game
    count, polled values can never overwrite it again for the lifetime of the
    session. GamesSnapshot on reconnect re-syncs the count from ground truth.
*/
package reconcile

import (
	"log/slog"
	"sync"

	"github.com/gamepulse/admin-sync-service/internal/domain/model"
)

// input is one mailbox turn: exactly one of poll/push is set.
type input struct {
	poll *model.PollSnapshot
	push model.PushEventer
}

// Reconciler merges poll snapshots and push events into one consistent
// RealtimeActivity under the push-over-poll precedence rule.
type Reconciler struct {
	logger *slog.Logger

	// [MAILBOX]
	// Decouples producers (channel pump, poll timers) from the transition
	// loop. Offer never blocks; overflow drops the turn and reports false.
	mailbox chan input
	doneCh  chan struct{}
	stopOne sync.Once

	// [STATE]
	// Guarded by mu so Current() can be read from any goroutine while the
	// drain loop remains the only writer.
	mu                sync.RWMutex
	current           *model.RealtimeActivity
	pushAuthoritative bool

	onUpdate func(model.RealtimeActivity)
}

func New(logger *slog.Logger, opts ...Option) *Reconciler {
	r := &Reconciler{
		logger:  logger,
		mailbox: make(chan input, defaultMailboxSize),
		doneCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	go r.loop()
	return r
}

// Current returns a copy of the merged value, or false before the first poll
// or push has been applied.
func (r *Reconciler) Current() (model.RealtimeActivity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.current == nil {
		return model.RealtimeActivity{}, false
	}
	return *r.current, true
}

// PushAuthoritative reports whether the live-game count is latched to the
// push channel.
func (r *Reconciler) PushAuthoritative() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pushAuthoritative
}

// OfferPoll queues a REST snapshot turn. Returns false if the reconciler is
// stopped or the mailbox is full.
func (r *Reconciler) OfferPoll(snap model.PollSnapshot) bool {
	return r.offer(input{poll: &snap})
}

// OfferPush queues a push-event turn. Returns false if the reconciler is
// stopped or the mailbox is full.
func (r *Reconciler) OfferPush(ev model.PushEventer) bool {
	if ev == nil {
		return false
	}
	return r.offer(input{push: ev})
}

func (r *Reconciler) offer(in input) bool {
	select {
	case <-r.doneCh:
		return false
	default:
	}
	select {
	case r.mailbox <- in:
		return true
	case <-r.doneCh:
		return false
	default:
		r.logger.Warn("reconciler mailbox full, turn dropped")
		return false
	}
}

// Stop terminates the drain loop. Turns offered after Stop are dropped.
func (r *Reconciler) Stop() {
	r.stopOne.Do(func() { close(r.doneCh) })
}

func (r *Reconciler) loop() {
	for {
		select {
		case <-r.doneCh:
			return
		case in := <-r.mailbox:
			r.apply(in)
		}
	}
}

func (r *Reconciler) apply(in input) {
	r.mu.Lock()
	var changed bool
	switch {
	case in.poll != nil:
		changed = r.applyPoll(*in.poll)
	case in.push != nil:
		changed = r.applyPush(in.push)
	}
	if !changed {
		r.mu.Unlock()
		return
	}
	merged := *r.current
	hook := r.onUpdate
	r.mu.Unlock()

	if hook != nil {
		hook(merged)
	}
}

// applyPoll implements the poll-arrival transition. Callers hold mu.
func (r *Reconciler) applyPoll(snap model.PollSnapshot) bool {
	if r.current == nil {
		// Bootstrap: adopt the snapshot wholesale.
		v := snap
		r.current = &v
		return true
	}
	if r.pushAuthoritative {
		// The push channel owns LiveGames now; carry it over unchanged.
		snap.LiveGames = r.current.LiveGames
	}
	*r.current = snap
	return true
}

// applyPush implements the push-event transitions. Callers hold mu.
func (r *Reconciler) applyPush(ev model.PushEventer) bool {
	switch ev := ev.(type) {
	case model.GamesSnapshot:
		r.ensure()
		r.current.LiveGames = len(ev.Games)
		r.pushAuthoritative = true
	case model.GameStart:
		r.ensure()
		r.current.LiveGames++
		r.pushAuthoritative = true
	case model.GameEnd:
		r.ensure()
		if r.current.LiveGames > 0 {
			r.current.LiveGames--
		}
		r.pushAuthoritative = true
	case model.ConnectionStats:
		// Disjoint from LiveGames regardless of the latch.
		r.ensure()
		r.current.UsersOnline = ev.UsersOnline
		r.current.ActiveSessions = ev.ActiveSessions
		r.current.ActiveScorekeeperUsers = ev.ActiveScorekeeperUsers
	case model.GameUpdate:
		// Informational only; per-game views consume it, the aggregate does not.
		return false
	default:
		r.logger.Warn("unknown push event kind", "kind", ev.Kind())
		return false
	}
	return true
}

// ensure materializes the placeholder before the first mutating turn.
// Callers hold mu.
func (r *Reconciler) ensure() {
	if r.current == nil {
		r.current = &model.RealtimeActivity{}
	}
}
