package channel

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gamepulse/admin-sync-service/internal/domain/model"
	"github.com/gamepulse/admin-sync-service/internal/domain/reconcile"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

// realtimeStub is a scriptable realtime endpoint: it acks every connection,
// records inbound frames, and lets tests push events down the latest socket.
type realtimeStub struct {
	t        *testing.T
	srv      *httptest.Server
	upgrader websocket.Upgrader

	// dropAfterAck closes each connection right after the handshake.
	dropAfterAck bool
	// rejectAll refuses the HTTP upgrade entirely.
	rejectAll bool

	mu       sync.Mutex
	conns    int
	latest   *websocket.Conn
	inbound  []frame
	lastAuth string
}

func newRealtimeStub(t *testing.T) *realtimeStub {
	t.Helper()
	s := &realtimeStub{t: t}
	s.srv = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *realtimeStub) url() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

func (s *realtimeStub) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	reject := s.rejectAll
	s.lastAuth = r.Header.Get("Authorization")
	s.mu.Unlock()
	if reject {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.mu.Lock()
	s.conns++
	s.latest = conn
	drop := s.dropAfterAck
	s.mu.Unlock()

	ack, _ := json.Marshal(connectedAck{ClientID: "client-42"})
	if err := conn.WriteJSON(frame{Event: evConnected, Data: ack}); err != nil {
		return
	}
	if drop {
		conn.Close()
		return
	}

	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			return
		}
		s.mu.Lock()
		s.inbound = append(s.inbound, f)
		s.mu.Unlock()
	}
}

func (s *realtimeStub) push(event string, payload any) {
	s.mu.Lock()
	conn := s.latest
	s.mu.Unlock()
	if conn == nil {
		s.t.Fatal("push before any connection")
	}
	data, _ := json.Marshal(payload)
	if err := conn.WriteJSON(frame{Event: event, Data: data}); err != nil {
		s.t.Logf("stub push failed: %v", err)
	}
}

func (s *realtimeStub) connCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conns
}

func (s *realtimeStub) inboundEvents() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.inbound))
	for i, f := range s.inbound {
		names[i] = f.Event
	}
	return names
}

func fastConfig(url string) Config {
	return Config{
		URL:              url,
		HandshakeTimeout: 2 * time.Second,
		ReconnectMin:     10 * time.Millisecond,
		ReconnectMax:     50 * time.Millisecond,
		MaxAttempts:      3,
	}
}

func TestConnectRejectsInvalidEndpoint(t *testing.T) {
	for _, raw := range []string{"", "http://api.example/realtime", "::bad::"} {
		c := NewClient(testLogger(), Config{URL: raw})
		if err := c.Connect(context.Background(), ""); err == nil {
			t.Errorf("Connect with URL %q accepted", raw)
		}
	}
}

func TestConnectHandshakeAndLeagueSubscription(t *testing.T) {
	s := newRealtimeStub(t)
	c := NewClient(testLogger(), fastConfig(s.url()))
	defer c.Disconnect()

	if err := c.Connect(context.Background(), "session-token"); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	waitFor(t, func() bool { return c.State().Connected() })

	if got := c.State().ClientID; got != "client-42" {
		t.Errorf("ClientID = %q, want client-42", got)
	}
	s.mu.Lock()
	auth := s.lastAuth
	s.mu.Unlock()
	if auth != "Bearer session-token" {
		t.Errorf("Authorization = %q", auth)
	}

	waitFor(t, func() bool {
		for _, ev := range s.inboundEvents() {
			if ev == evSubscribeLeague {
				return true
			}
		}
		return false
	})
}

func TestConnectIsIdempotent(t *testing.T) {
	s := newRealtimeStub(t)
	c := NewClient(testLogger(), fastConfig(s.url()))
	defer c.Disconnect()

	if err := c.Connect(context.Background(), ""); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return c.State().Connected() })

	if err := c.Connect(context.Background(), ""); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	if got := s.connCount(); got != 1 {
		t.Errorf("server saw %d connections, want 1", got)
	}
}

func TestEventsStreamDecodesFrames(t *testing.T) {
	s := newRealtimeStub(t)
	c := NewClient(testLogger(), fastConfig(s.url()))
	defer c.Disconnect()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, err := c.Events(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if err := c.Connect(context.Background(), ""); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return c.State().Connected() })

	s.push(evGameStart, model.GameStart{GameID: "g-1"})
	s.push(evConnectionStats, model.ConnectionStats{UsersOnline: 7})

	got := make([]model.PushEventer, 0, 2)
	for len(got) < 2 {
		select {
		case ev := <-events:
			got = append(got, ev)
		case <-time.After(2 * time.Second):
			t.Fatalf("received %d events, want 2", len(got))
		}
	}

	start, ok := got[0].(model.GameStart)
	if !ok || start.GameID != "g-1" {
		t.Errorf("event[0] = %#v, want GameStart g-1", got[0])
	}
	stats, ok := got[1].(model.ConnectionStats)
	if !ok || stats.UsersOnline != 7 {
		t.Errorf("event[1] = %#v, want ConnectionStats", got[1])
	}
}

func TestMergedStreamPreservesArrivalOrder(t *testing.T) {
	s := newRealtimeStub(t)
	c := NewClient(testLogger(), fastConfig(s.url()))
	defer c.Disconnect()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, err := c.Events(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if err := c.Connect(context.Background(), ""); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return c.State().Connected() })

	// Back-to-back frames where order decides the count: applied in arrival
	// order the live-game tally runs 2, 3, 4, 3, 1, 2; any swap between the
	// snapshot and its neighbors lands somewhere else.
	s.push(evGamesSnapshot, model.GamesSnapshot{Games: make([]model.LiveGameSummary, 2)})
	s.push(evGameStart, model.GameStart{GameID: "g-a"})
	s.push(evGameStart, model.GameStart{GameID: "g-b"})
	s.push(evGameEnd, model.GameEnd{GameID: "g-a"})
	s.push(evGamesSnapshot, model.GamesSnapshot{Games: make([]model.LiveGameSummary, 1)})
	s.push(evGameStart, model.GameStart{GameID: "g-c"})

	wantKinds := []model.PushEventKind{
		model.KindGamesSnapshot,
		model.KindGameStart,
		model.KindGameStart,
		model.KindGameEnd,
		model.KindGamesSnapshot,
		model.KindGameStart,
	}

	rec := reconcile.New(testLogger())
	defer rec.Stop()

	for i, want := range wantKinds {
		select {
		case ev := <-events:
			if ev.Kind() != want {
				t.Fatalf("event %d: kind = %v, want %v (stream reordered)", i, ev.Kind(), want)
			}
			rec.OfferPush(ev)
		case <-time.After(2 * time.Second):
			t.Fatalf("received %d events, want %d", i, len(wantKinds))
		}
	}

	waitFor(t, func() bool {
		got, ok := rec.Current()
		return ok && got.LiveGames == 2
	})
}

func TestTypedStreamsAreIndependent(t *testing.T) {
	s := newRealtimeStub(t)
	c := NewClient(testLogger(), fastConfig(s.url()))
	defer c.Disconnect()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	starts, err := c.GameStarts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	stats, err := c.ConnectionStats(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if err := c.Connect(context.Background(), ""); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return c.State().Connected() })

	s.push(evConnectionStats, model.ConnectionStats{UsersOnline: 3})
	s.push(evGameStart, model.GameStart{GameID: "g-2"})

	select {
	case ev := <-starts:
		if ev.GameID != "g-2" {
			t.Errorf("GameStart.GameID = %q", ev.GameID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no game start received")
	}
	select {
	case ev := <-stats:
		if ev.UsersOnline != 3 {
			t.Errorf("ConnectionStats.UsersOnline = %d", ev.UsersOnline)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no connection stats received")
	}
}

func TestSubscribeToGameSendsFrame(t *testing.T) {
	s := newRealtimeStub(t)
	c := NewClient(testLogger(), fastConfig(s.url()))
	defer c.Disconnect()

	// Not connected yet: best-effort drop, no panic.
	c.SubscribeToGame("g-early")

	if err := c.Connect(context.Background(), ""); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return c.State().Connected() })

	c.SubscribeToGame("g-5")
	c.UnsubscribeFromGame("g-5")

	waitFor(t, func() bool {
		var sub, unsub bool
		for _, ev := range s.inboundEvents() {
			switch ev {
			case evSubscribeGame:
				sub = true
			case evUnsubscribeGame:
				unsub = true
			}
		}
		return sub && unsub
	})
}

func TestReconnectAfterDrop(t *testing.T) {
	s := newRealtimeStub(t)
	s.dropAfterAck = true
	c := NewClient(testLogger(), fastConfig(s.url()))
	defer c.Disconnect()

	if err := c.Connect(context.Background(), ""); err != nil {
		t.Fatal(err)
	}

	// Every session drops right after the ack; the client keeps cycling with a
	// fresh attempt budget each time it succeeds.
	waitFor(t, func() bool { return s.connCount() >= 2 })
}

func TestGiveUpAfterAttemptBudget(t *testing.T) {
	s := newRealtimeStub(t)
	s.rejectAll = true
	c := NewClient(testLogger(), fastConfig(s.url()))
	defer c.Disconnect()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errs, err := c.Errors(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if err := c.Connect(context.Background(), ""); err != nil {
		t.Fatal(err)
	}

	select {
	case e := <-errs:
		if e.Message == "" {
			t.Error("empty error message on the error stream")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no error surfaced on the error stream")
	}

	waitFor(t, func() bool {
		return c.State().Status == model.StatusDisconnected
	})
}

func TestDisconnectStopsDeliveryCompletely(t *testing.T) {
	s := newRealtimeStub(t)
	c := NewClient(testLogger(), fastConfig(s.url()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, err := c.Events(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if err := c.Connect(context.Background(), ""); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return c.State().Connected() })

	s.push(evGameStart, model.GameStart{GameID: "g-1"})
	select {
	case <-events:
	case <-time.After(2 * time.Second):
		t.Fatal("no event before disconnect")
	}

	c.Disconnect()

	// A frame that was in flight at the transport layer when Disconnect
	// returned is dropped, not delivered.
	c.deliver(model.GameStart{GameID: "late"})

	if c.State().Status != model.StatusDisconnected {
		t.Errorf("State = %v after Disconnect", c.State().Status)
	}
	if c.State().ClientID != "" {
		t.Error("ClientID survived Disconnect")
	}

	// The stream must complete; an in-flight frame must not appear after
	// Disconnect has returned.
	for ev := range events {
		if _, isGame := ev.(model.GameStart); isGame {
			t.Errorf("event delivered after Disconnect: %#v", ev)
		}
	}

	// Disconnect twice is safe.
	c.Disconnect()
}
