package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gamepulse/admin-sync-service/internal/domain/model"
)

// fakeChannel is an in-memory EventChannel the tests drive by hand.
type fakeChannel struct {
	mu           sync.Mutex
	connectCalls int
	connectErr   error
	disconnected bool
	state        model.ConnectionState
	events       chan model.PushEventer
	states       chan model.ConnectionState
	subscribed   []string
	unsubscribed []string
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		events: make(chan model.PushEventer, 16),
		states: make(chan model.ConnectionState, 16),
	}
}

func (f *fakeChannel) Connect(ctx context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connectCalls++
	if f.connectErr != nil {
		return f.connectErr
	}
	f.state = model.ConnectionState{Status: model.StatusConnected, ClientID: "fake-1"}
	return nil
}

func (f *fakeChannel) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.disconnected {
		return
	}
	f.disconnected = true
	f.state = model.ConnectionState{Status: model.StatusDisconnected}
	close(f.events)
	close(f.states)
}

func (f *fakeChannel) SubscribeToGame(gameID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribed = append(f.subscribed, gameID)
}

func (f *fakeChannel) UnsubscribeFromGame(gameID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubscribed = append(f.unsubscribed, gameID)
}

func (f *fakeChannel) State() model.ConnectionState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeChannel) Events(ctx context.Context) (<-chan model.PushEventer, error) {
	return f.events, nil
}

func (f *fakeChannel) StateChanges(ctx context.Context) (<-chan model.ConnectionState, error) {
	return f.states, nil
}

// fakeFetcher serves canned values and counts realtime polls.
type fakeFetcher struct {
	snap      model.PollSnapshot
	snapErr   error
	pollCalls atomic.Int32
}

func (f *fakeFetcher) DashboardStats(ctx context.Context) model.DashboardStats {
	return model.DashboardStats{}
}
func (f *fakeFetcher) SystemHealth(ctx context.Context) model.SystemHealth {
	return model.SystemHealth{Status: model.HealthOperational}
}
func (f *fakeFetcher) RealtimeActivity(ctx context.Context) (model.PollSnapshot, error) {
	f.pollCalls.Add(1)
	return f.snap, f.snapErr
}
func (f *fakeFetcher) UserEngagement(ctx context.Context, days int) []model.EngagementPoint {
	return nil
}
func (f *fakeFetcher) ContentPerformance(ctx context.Context, limit int) []model.ContentPerformance {
	return nil
}
func (f *fakeFetcher) AdminActions(ctx context.Context, limit int) []model.AdminAction { return nil }

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestStartConnectsAndSeedsFromPoll(t *testing.T) {
	ch := newFakeChannel()
	fetch := &fakeFetcher{snap: model.PollSnapshot{LiveGames: 2, UsersOnline: 50}}
	o := NewOrchestrator(testLogger(), fetch, ch, OrchestratorConfig{Token: "tok"})

	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer o.Stop(context.Background())

	if ch.connectCalls != 1 {
		t.Errorf("Connect called %d times, want 1", ch.connectCalls)
	}
	if !o.Connected() {
		t.Error("Connected() = false after successful connect")
	}

	waitFor(t, func() bool {
		got, ok := o.Activity()
		return ok && got.LiveGames == 2 && got.UsersOnline == 50
	})
}

func TestStartIsIdempotent(t *testing.T) {
	ch := newFakeChannel()
	fetch := &fakeFetcher{}
	o := NewOrchestrator(testLogger(), fetch, ch, OrchestratorConfig{Token: "tok"})

	if err := o.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer o.Stop(context.Background())

	if err := o.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if ch.connectCalls != 1 {
		t.Errorf("second Start reconnected: %d calls", ch.connectCalls)
	}
}

func TestStartWithoutTokenSkipsChannel(t *testing.T) {
	ch := newFakeChannel()
	fetch := &fakeFetcher{snap: model.PollSnapshot{LiveGames: 1}}
	o := NewOrchestrator(testLogger(), fetch, ch, OrchestratorConfig{})

	if err := o.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer o.Stop(context.Background())

	if ch.connectCalls != 0 {
		t.Errorf("tokenless session connected the channel (%d calls)", ch.connectCalls)
	}

	// Polling still works.
	waitFor(t, func() bool {
		got, ok := o.Activity()
		return ok && got.LiveGames == 1
	})
}

func TestStartPropagatesConnectError(t *testing.T) {
	ch := newFakeChannel()
	ch.connectErr = errors.New("dial refused")
	o := NewOrchestrator(testLogger(), &fakeFetcher{}, ch, OrchestratorConfig{Token: "tok"})

	if err := o.Start(context.Background()); err == nil {
		t.Fatal("Start() swallowed the connect error")
	}
	o.Stop(context.Background())
}

func TestPushEventsRouteIntoReconciler(t *testing.T) {
	ch := newFakeChannel()
	fetch := &fakeFetcher{snap: model.PollSnapshot{LiveGames: 2, UsersOnline: 50}}
	o := NewOrchestrator(testLogger(), fetch, ch, OrchestratorConfig{Token: "tok"})

	if err := o.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer o.Stop(context.Background())

	waitFor(t, func() bool {
		_, ok := o.Activity()
		return ok
	})

	ch.events <- model.GameStart{GameID: "g-9"}

	waitFor(t, func() bool {
		got, _ := o.Activity()
		return got.LiveGames == 3
	})
}

func TestUpdatesStreamCarriesMergedValues(t *testing.T) {
	ch := newFakeChannel()
	fetch := &fakeFetcher{snapErr: errors.New("backend down")}
	o := NewOrchestrator(testLogger(), fetch, ch, OrchestratorConfig{Token: "tok"})

	if err := o.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer o.Stop(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	updates, err := o.Updates(ctx)
	if err != nil {
		t.Fatalf("Updates() error = %v", err)
	}

	ch.events <- model.GamesSnapshot{Games: []model.LiveGameSummary{{GameID: "a"}, {GameID: "b"}}}

	select {
	case v := <-updates:
		if v.LiveGames != 2 {
			t.Errorf("update LiveGames = %d, want 2", v.LiveGames)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no update received")
	}
}

func TestUpdatesBeforeStartRejected(t *testing.T) {
	o := NewOrchestrator(testLogger(), &fakeFetcher{}, newFakeChannel(), OrchestratorConfig{})
	if _, err := o.Updates(context.Background()); !errors.Is(err, ErrSessionInactive) {
		t.Errorf("error = %v, want ErrSessionInactive", err)
	}
}

func TestStopTearsEverythingDown(t *testing.T) {
	ch := newFakeChannel()
	fetch := &fakeFetcher{snap: model.PollSnapshot{LiveGames: 1}}
	o := NewOrchestrator(testLogger(), fetch, ch, OrchestratorConfig{Token: "tok"})

	if err := o.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool {
		_, ok := o.Activity()
		return ok
	})

	if err := o.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if !ch.disconnected {
		t.Error("Stop did not disconnect the channel")
	}
	if _, ok := o.Activity(); ok {
		t.Error("Activity still served after Stop")
	}
	if _, err := o.Updates(context.Background()); !errors.Is(err, ErrSessionInactive) {
		t.Errorf("Updates after Stop: error = %v, want ErrSessionInactive", err)
	}

	// Stop again is a no-op, not a panic.
	if err := o.Stop(context.Background()); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}

func TestFailedPollLeavesStateUntouched(t *testing.T) {
	ch := newFakeChannel()
	fetch := &fakeFetcher{snapErr: errors.New("backend down")}
	o := NewOrchestrator(testLogger(), fetch, ch, OrchestratorConfig{Token: "tok"})

	if err := o.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer o.Stop(context.Background())

	waitFor(t, func() bool { return fetch.pollCalls.Load() >= 1 })

	if _, ok := o.Activity(); ok {
		t.Error("failed poll materialized a value")
	}
}

func TestWatchGameProxiesSubscription(t *testing.T) {
	ch := newFakeChannel()
	o := NewOrchestrator(testLogger(), &fakeFetcher{}, ch, OrchestratorConfig{Token: "tok"})

	o.WatchGame("g-1")
	o.UnwatchGame("g-1")

	if len(ch.subscribed) != 1 || ch.subscribed[0] != "g-1" {
		t.Errorf("subscribed = %v", ch.subscribed)
	}
	if len(ch.unsubscribed) != 1 || ch.unsubscribed[0] != "g-1" {
		t.Errorf("unsubscribed = %v", ch.unsubscribed)
	}
}
