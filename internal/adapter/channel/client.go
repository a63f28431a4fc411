/*
Package channel maintains one logical connection to the GamePulse realtime
endpoint and fans the server-pushed events out as typed, independent,
multi-subscriber streams.

Transport errors are never raised to callers: they flip the connection state
to disconnected and feed the reconnection policy (exponential backoff, capped,
bounded attempts). Callers observe the state stream and the error stream.
*/
package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"

	"github.com/gamepulse/admin-sync-service/internal/domain/model"
)

// Config carries the transport and reconnection policy knobs.
type Config struct {
	// URL is the namespaced realtime endpoint, e.g. ws://api/realtime/admin.
	URL string
	// HandshakeTimeout bounds the dial plus the connected-ack wait.
	HandshakeTimeout time.Duration
	// ReconnectMin/ReconnectMax bound the backoff between attempts.
	ReconnectMin time.Duration
	ReconnectMax time.Duration
	// MaxAttempts is the number of consecutive failed attempts after which
	// the client gives up until the next explicit Connect.
	MaxAttempts uint
	// BufferSize is the per-subscriber output buffer of the event streams.
	BufferSize int
}

func (c *Config) withDefaults() {
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 10 * time.Second
	}
	if c.ReconnectMin <= 0 {
		c.ReconnectMin = time.Second
	}
	if c.ReconnectMax <= 0 {
		c.ReconnectMax = 5 * time.Second
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 5
	}
	if c.BufferSize <= 0 {
		c.BufferSize = 64
	}
}

// Client owns the websocket session and the in-process fan-out bus.
type Client struct {
	logger *slog.Logger
	cfg    Config

	mu     sync.Mutex
	bus    *gochannel.GoChannel
	state  model.ConnectionState
	conn   *websocket.Conn
	cancel context.CancelFunc
	closed bool

	// writeMu serializes outbound frames on the shared websocket.
	writeMu sync.Mutex

	wg sync.WaitGroup
}

func NewClient(logger *slog.Logger, cfg Config) *Client {
	cfg.withDefaults()
	c := &Client{
		logger: logger,
		cfg:    cfg,
	}
	c.bus = c.newBus()
	return c
}

func (c *Client) newBus() *gochannel.GoChannel {
	// BlockPublishUntilSubscriberAck keeps per-subscriber delivery in publish
	// order; without it the bus hands each message to its own goroutine and
	// back-to-back frames can reach a subscriber reversed. Subscribers ack
	// before they hand off, so the pump never stalls on a slow consumer.
	return gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            int64(c.cfg.BufferSize),
			BlockPublishUntilSubscriberAck: true,
		},
		watermill.NewSlogLogger(c.logger),
	)
}

// State returns the current connection state.
func (c *Client) State() model.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect establishes the channel. Idempotent: a second call while the
// session is connecting or connected is a no-op. The token, when present, is
// attached as connection metadata. Returns an error only for an unusable
// endpoint URL; transport failures surface on the state and error streams.
func (c *Client) Connect(ctx context.Context, token string) error {
	u, err := url.Parse(c.cfg.URL)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
		return fmt.Errorf("channel: invalid realtime endpoint %q", c.cfg.URL)
	}

	c.mu.Lock()
	if c.state.Status != model.StatusDisconnected {
		c.mu.Unlock()
		c.logger.Debug("connect ignored, session already active", "status", c.state.Status.String())
		return nil
	}
	c.closed = false
	if c.bus == nil {
		c.bus = c.newBus()
	}
	// Session lifetime is controlled by Disconnect, not by the caller's
	// request-scoped context.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel
	connecting := model.ConnectionState{Status: model.StatusConnecting}
	bus := c.setStateLocked(connecting)
	c.mu.Unlock()
	c.publishState(bus, connecting)

	c.wg.Add(1)
	go c.run(runCtx, token)
	return nil
}

// Disconnect tears the session down unconditionally: it stops the pump,
// clears the client id, and completes every outbound stream. No event is
// delivered after Disconnect returns, even if it was already in flight at
// the transport layer.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if c.closed && c.state.Status == model.StatusDisconnected {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	final := model.ConnectionState{Status: model.StatusDisconnected}
	bus := c.setStateLocked(final)
	c.bus = nil
	c.mu.Unlock()

	// Last state notice goes out before the streams complete.
	c.publishState(bus, final)
	c.wg.Wait()
	if bus != nil {
		_ = bus.Close()
	}
	c.logger.Info("realtime channel closed")
}

// SubscribeToGame requests per-game updates. Best-effort: dropped with a log
// line when the channel is not connected.
func (c *Client) SubscribeToGame(gameID string) {
	c.sendGameFrame(evSubscribeGame, gameID)
}

// UnsubscribeFromGame cancels per-game updates. Best-effort, like
// SubscribeToGame.
func (c *Client) UnsubscribeFromGame(gameID string) {
	c.sendGameFrame(evUnsubscribeGame, gameID)
}

func (c *Client) sendGameFrame(event, gameID string) {
	c.mu.Lock()
	conn := c.conn
	connected := c.state.Connected()
	c.mu.Unlock()

	if !connected || conn == nil {
		c.logger.Debug("game subscription dropped, channel not connected",
			"event", event, "game_id", gameID)
		return
	}
	if err := c.writeFrame(conn, event, gameRef{GameID: gameID}); err != nil {
		c.logger.Warn("game subscription send failed", "event", event, "game_id", gameID, "err", err)
	}
}

func (c *Client) writeFrame(conn *websocket.Conn, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteJSON(frame{Event: event, Data: data})
}

// run owns one connect-pump-reconnect cycle until the session is closed or
// the attempt budget is exhausted.
func (c *Client) run(ctx context.Context, token string) {
	defer c.wg.Done()

	for {
		conn, err := c.dialWithBackoff(ctx, token)
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Error("reconnect attempts exhausted", "attempts", c.cfg.MaxAttempts, "err", err)
				c.emitError(err)
			}
			c.transition(model.ConnectionState{Status: model.StatusDisconnected})
			return
		}

		c.pump(ctx, conn)

		c.mu.Lock()
		closed := c.closed
		c.mu.Unlock()
		if closed || ctx.Err() != nil {
			return
		}

		// Dropped session: fall back to connecting and retry with a fresh
		// attempt budget (a successful connection reset the counter).
		c.transition(model.ConnectionState{Status: model.StatusConnecting})
	}
}

// dialWithBackoff applies the reconnection policy around dial.
func (c *Client) dialWithBackoff(ctx context.Context, token string) (*websocket.Conn, error) {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = c.cfg.ReconnectMin
	expo.MaxInterval = c.cfg.ReconnectMax

	return backoff.Retry(ctx,
		func() (*websocket.Conn, error) { return c.dial(ctx, token) },
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(c.cfg.MaxAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.Warn("realtime connect failed", "err", err, "retry_in", next)
			c.emitError(err)
		}),
	)
}

// dial opens the websocket, waits for the connected ack, records the client
// id, and immediately subscribes to league-wide updates.
func (c *Client) dial(ctx context.Context, token string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.HandshakeTimeout}
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, resp, err := dialer.DialContext(ctx, c.cfg.URL, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}

	// Handshake: the first frame must be the connected ack.
	_ = conn.SetReadDeadline(time.Now().Add(c.cfg.HandshakeTimeout))
	var f frame
	if err := conn.ReadJSON(&f); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("handshake read: %w", err)
	}
	if f.Event != evConnected {
		_ = conn.Close()
		return nil, fmt.Errorf("handshake: unexpected first frame %q", f.Event)
	}
	var ack connectedAck
	if err := json.Unmarshal(f.Data, &ack); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("handshake decode: %w", err)
	}
	_ = conn.SetReadDeadline(time.Time{})

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close()
		return nil, backoff.Permanent(fmt.Errorf("session closed during dial"))
	}
	c.conn = conn
	connected := model.ConnectionState{Status: model.StatusConnected, ClientID: ack.ClientID}
	bus := c.setStateLocked(connected)
	c.mu.Unlock()
	c.publishState(bus, connected)

	if err := c.writeFrame(conn, evSubscribeLeague, struct{}{}); err != nil {
		c.logger.Warn("league subscription send failed", "err", err)
	}

	c.logger.Info("realtime channel connected", "client_id", ack.ClientID)
	return conn, nil
}

// pump reads frames until the connection drops or the session is cancelled.
func (c *Client) pump(ctx context.Context, conn *websocket.Conn) {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			if ctx.Err() == nil {
				c.logger.Warn("realtime channel dropped", "err", err)
				c.emitError(err)
				c.transition(model.ConnectionState{Status: model.StatusDisconnected})
			}
			return
		}
		if f.Event == evConnected {
			continue
		}
		ev, err := decodeEvent(f.Event, f.Data)
		if err != nil {
			c.logger.Debug("unrecognized push frame skipped", "event", f.Event)
			continue
		}
		c.deliver(ev)
	}
}
