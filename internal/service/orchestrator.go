package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/gamepulse/admin-sync-service/internal/domain/model"
	"github.com/gamepulse/admin-sync-service/internal/domain/reconcile"
)

// EventChannel is the push-channel contract the orchestrator composes.
// Satisfied by channel.Client; faked in tests.
type EventChannel interface {
	Connect(ctx context.Context, token string) error
	Disconnect()
	SubscribeToGame(gameID string)
	UnsubscribeFromGame(gameID string)
	State() model.ConnectionState
	Events(ctx context.Context) (<-chan model.PushEventer, error)
	StateChanges(ctx context.Context) (<-chan model.ConnectionState, error)
}

// OrchestratorConfig carries the session token and the refresh cadences.
type OrchestratorConfig struct {
	Token string

	RealtimeInterval     time.Duration
	AdminActionsInterval time.Duration
	StatsInterval        time.Duration

	AdminActionsLimit int
	ContentLimit      int
	EngagementDays    int

	MailboxSize int
}

func (c *OrchestratorConfig) withDefaults() {
	if c.RealtimeInterval <= 0 {
		c.RealtimeInterval = 30 * time.Second
	}
	if c.AdminActionsInterval <= 0 {
		c.AdminActionsInterval = 60 * time.Second
	}
	if c.StatsInterval <= 0 {
		c.StatsInterval = 120 * time.Second
	}
	if c.AdminActionsLimit <= 0 {
		c.AdminActionsLimit = 20
	}
	if c.ContentLimit <= 0 {
		c.ContentLimit = 10
	}
	if c.EngagementDays <= 0 {
		c.EngagementDays = 7
	}
}

// TopicActivityUpdates carries every merged RealtimeActivity value.
const TopicActivityUpdates = "activity.updates"

// Orchestrator is the composition root for one dashboard session: it owns
// the reconciler, routes the push streams into it, runs the poll timers, and
// tears everything down on Stop. No timer or subscription survives Stop.
type Orchestrator struct {
	logger  *slog.Logger
	fetcher Fetcher
	channel EventChannel
	cfg     OrchestratorConfig

	mu      sync.Mutex
	started bool
	rec     *reconcile.Reconciler
	bus     *gochannel.GoChannel
	cancel  context.CancelFunc

	wg sync.WaitGroup
}

func NewOrchestrator(logger *slog.Logger, fetcher Fetcher, ch EventChannel, cfg OrchestratorConfig) *Orchestrator {
	cfg.withDefaults()
	return &Orchestrator{
		logger:  logger,
		fetcher: fetcher,
		channel: ch,
		cfg:     cfg,
	}
}

// Start activates the session. Idempotent: a second Start while active is a
// logged no-op.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.started {
		o.mu.Unlock()
		o.logger.Debug("orchestrator already started")
		return nil
	}
	o.started = true

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	o.cancel = cancel
	// Blocking until subscriber ack keeps the update stream in merge order, so
	// a consumer never sees an older activity value after a newer one.
	o.bus = gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            64,
			BlockPublishUntilSubscriberAck: true,
		},
		watermill.NewSlogLogger(o.logger),
	)
	o.rec = reconcile.New(o.logger,
		reconcile.WithMailboxSize(o.cfg.MailboxSize),
		reconcile.WithUpdateHook(o.publishUpdate),
	)
	rec := o.rec
	o.mu.Unlock()

	// Without a session token the push channel stays down and the dashboard
	// remains fully functional via polling.
	if o.cfg.Token == "" {
		o.logger.Warn("no session token, realtime channel disabled, polling only")
	} else {
		if err := o.channel.Connect(runCtx, o.cfg.Token); err != nil {
			return err
		}
		if err := o.routePushEvents(runCtx, rec); err != nil {
			return err
		}
	}

	o.initialBurst(runCtx, rec)

	o.runTicker(runCtx, "realtime", o.cfg.RealtimeInterval, func(ctx context.Context) {
		o.pollRealtime(ctx, rec)
	})
	o.runTicker(runCtx, "admin_actions", o.cfg.AdminActionsInterval, func(ctx context.Context) {
		o.fetcher.AdminActions(ctx, o.cfg.AdminActionsLimit)
	})
	o.runTicker(runCtx, "dashboard_stats", o.cfg.StatsInterval, func(ctx context.Context) {
		o.fetcher.DashboardStats(ctx)
	})

	o.logger.Info("dashboard session started",
		"realtime_every", o.cfg.RealtimeInterval,
		"admin_actions_every", o.cfg.AdminActionsInterval,
		"stats_every", o.cfg.StatsInterval,
	)
	return nil
}

// Stop deactivates the session: timers cancelled, streams unsubscribed,
// channel disconnected, reconciler stopped. A poll still in flight cannot
// mutate the stopped reconciler.
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.mu.Lock()
	if !o.started {
		o.mu.Unlock()
		return nil
	}
	o.started = false
	cancel := o.cancel
	rec := o.rec
	bus := o.bus
	o.cancel = nil
	o.rec = nil
	o.bus = nil
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	o.channel.Disconnect()
	o.wg.Wait()
	if rec != nil {
		rec.Stop()
	}
	if bus != nil {
		_ = bus.Close()
	}
	o.logger.Info("dashboard session stopped")
	return nil
}

// Activity returns the merged view model, or false before the first turn.
func (o *Orchestrator) Activity() (model.RealtimeActivity, bool) {
	o.mu.Lock()
	rec := o.rec
	o.mu.Unlock()
	if rec == nil {
		return model.RealtimeActivity{}, false
	}
	return rec.Current()
}

// Connected reports whether the push channel is up.
func (o *Orchestrator) Connected() bool {
	return o.channel.State().Connected()
}

// ConnectionState returns the push channel state for presentation.
func (o *Orchestrator) ConnectionState() model.ConnectionState {
	return o.channel.State()
}

// Updates subscribes to the merged-activity stream. The channel closes when
// ctx is cancelled or the session stops.
func (o *Orchestrator) Updates(ctx context.Context) (<-chan model.RealtimeActivity, error) {
	o.mu.Lock()
	bus := o.bus
	o.mu.Unlock()
	if bus == nil {
		return nil, ErrSessionInactive
	}

	msgs, err := bus.Subscribe(ctx, TopicActivityUpdates)
	if err != nil {
		return nil, err
	}
	out := make(chan model.RealtimeActivity, 16)
	go func() {
		defer close(out)
		for msg := range msgs {
			var v model.RealtimeActivity
			uerr := json.Unmarshal(msg.Payload, &v)
			msg.Ack()
			if uerr != nil {
				continue
			}
			select {
			case out <- v:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// WatchGame proxies best-effort per-game subscriptions for presentation
// consumers drilling into a single game.
func (o *Orchestrator) WatchGame(gameID string)   { o.channel.SubscribeToGame(gameID) }
func (o *Orchestrator) UnwatchGame(gameID string) { o.channel.UnsubscribeFromGame(gameID) }

// routePushEvents drains the merged push stream into the reconciler mailbox.
func (o *Orchestrator) routePushEvents(ctx context.Context, rec *reconcile.Reconciler) error {
	events, err := o.channel.Events(ctx)
	if err != nil {
		return err
	}
	states, err := o.channel.StateChanges(ctx)
	if err != nil {
		return err
	}

	o.wg.Add(2)
	go func() {
		defer o.wg.Done()
		for ev := range events {
			rec.OfferPush(ev)
		}
	}()
	go func() {
		defer o.wg.Done()
		for st := range states {
			o.logger.Debug("channel state", "status", st.Status.String(), "client_id", st.ClientID)
		}
	}()
	return nil
}

// initialBurst fires the first poll for every metric category so the
// dashboard has data before the timers tick.
func (o *Orchestrator) initialBurst(ctx context.Context, rec *reconcile.Reconciler) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.pollRealtime(ctx, rec)
		o.fetcher.DashboardStats(ctx)
		o.fetcher.SystemHealth(ctx)
		o.fetcher.UserEngagement(ctx, o.cfg.EngagementDays)
		o.fetcher.ContentPerformance(ctx, o.cfg.ContentLimit)
		o.fetcher.AdminActions(ctx, o.cfg.AdminActionsLimit)
	}()
}

func (o *Orchestrator) pollRealtime(ctx context.Context, rec *reconcile.Reconciler) {
	snap, err := o.fetcher.RealtimeActivity(ctx)
	if err != nil {
		if ctx.Err() == nil {
			o.logger.Warn("realtime poll skipped", "err", err)
		}
		return
	}
	rec.OfferPoll(snap)
}

func (o *Orchestrator) runTicker(ctx context.Context, name string, every time.Duration, fn func(context.Context)) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.logger.Debug("refresh timer started", "name", name, "every", every)
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn(ctx)
			}
		}
	}()
}

// publishUpdate fans the merged value out to handler subscribers. Runs on
// the reconciler drain goroutine.
func (o *Orchestrator) publishUpdate(v model.RealtimeActivity) {
	o.mu.Lock()
	bus := o.bus
	o.mu.Unlock()
	if bus == nil {
		return
	}
	payload, _ := json.Marshal(v)
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := bus.Publish(TopicActivityUpdates, msg); err != nil {
		o.logger.Debug("activity publish skipped", "err", err)
	}
}
