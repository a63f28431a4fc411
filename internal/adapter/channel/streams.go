package channel

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/gamepulse/admin-sync-service/internal/domain/model"
)

// ------------------- FAN-OUT TOPICS -------------------
//
// push.events carries the whole union in arrival order and feeds the
// reconciler; the per-category topics serve consumers that only care about
// one event kind. Every topic is hot and multi-subscriber.
const (
	TopicPushEvents      = "push.events"
	TopicGamesSnapshot   = "push.games.snapshot"
	TopicGameUpdate      = "push.games.update"
	TopicGameStart       = "push.games.start"
	TopicGameEnd         = "push.games.end"
	TopicConnectionStats = "push.connection.stats"
	TopicConnectionState = "channel.state"
	TopicErrors          = "channel.errors"
)

const metaEvent = "event"

// ChannelError is the payload of the error stream.
type ChannelError struct {
	Message string `json:"message"`
}

func topicFor(kind model.PushEventKind) string {
	switch kind {
	case model.KindGamesSnapshot:
		return TopicGamesSnapshot
	case model.KindGameUpdate:
		return TopicGameUpdate
	case model.KindGameStart:
		return TopicGameStart
	case model.KindGameEnd:
		return TopicGameEnd
	case model.KindConnectionStats:
		return TopicConnectionStats
	default:
		return ""
	}
}

// deliver publishes one decoded push event to the merged topic and its
// category topic. Dropped once the session is closed, so a frame that was in
// flight at the transport layer never reaches a subscriber after Disconnect.
func (c *Client) deliver(ev model.PushEventer) {
	c.mu.Lock()
	bus := c.bus
	closed := c.closed
	c.mu.Unlock()
	if closed || bus == nil {
		return
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		c.logger.Error("push event marshal failed", "kind", ev.Kind(), "err", err)
		return
	}

	for _, topic := range []string{TopicPushEvents, topicFor(ev.Kind())} {
		msg := message.NewMessage(watermill.NewUUID(), payload)
		msg.Metadata.Set(metaEvent, eventName(ev.Kind()))
		if err := bus.Publish(topic, msg); err != nil {
			c.logger.Debug("push event publish skipped", "topic", topic, "err", err)
		}
	}
}

// transition records and publishes a connection-state change.
func (c *Client) transition(st model.ConnectionState) {
	c.mu.Lock()
	bus := c.setStateLocked(st)
	c.mu.Unlock()
	c.publishState(bus, st)
}

// setStateLocked stores the state and hands back the bus so the change can be
// published outside the lock. Callers hold mu.
func (c *Client) setStateLocked(st model.ConnectionState) *gochannel.GoChannel {
	c.state = st
	return c.bus
}

func (c *Client) publishState(bus *gochannel.GoChannel, st model.ConnectionState) {
	if bus == nil {
		return
	}
	payload, _ := json.Marshal(st)
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := bus.Publish(TopicConnectionState, msg); err != nil {
		c.logger.Debug("state publish skipped", "err", err)
	}
}

// emitError publishes a transport error on the error stream.
func (c *Client) emitError(err error) {
	c.mu.Lock()
	bus := c.bus
	c.mu.Unlock()
	if bus == nil {
		return
	}
	payload, _ := json.Marshal(ChannelError{Message: err.Error()})
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if perr := bus.Publish(TopicErrors, msg); perr != nil {
		c.logger.Debug("error publish skipped", "err", perr)
	}
}

// Events subscribes to the merged push stream in arrival order. The channel
// closes when ctx is cancelled or the session is torn down.
func (c *Client) Events(ctx context.Context) (<-chan model.PushEventer, error) {
	msgs, err := c.subscribe(ctx, TopicPushEvents)
	if err != nil {
		return nil, err
	}
	out := make(chan model.PushEventer, c.cfg.BufferSize)
	go func() {
		defer close(out)
		for msg := range msgs {
			ev, derr := decodeEvent(msg.Metadata.Get(metaEvent), msg.Payload)
			msg.Ack()
			if derr != nil {
				c.logger.Debug("merged stream decode skipped", "err", derr)
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// GamesSnapshots subscribes to full live-game list replacements.
func (c *Client) GamesSnapshots(ctx context.Context) (<-chan model.GamesSnapshot, error) {
	return subscribeTyped[model.GamesSnapshot](c, ctx, TopicGamesSnapshot)
}

// GameUpdates subscribes to per-game score/clock deltas.
func (c *Client) GameUpdates(ctx context.Context) (<-chan model.GameUpdate, error) {
	return subscribeTyped[model.GameUpdate](c, ctx, TopicGameUpdate)
}

// GameStarts subscribes to game-start notifications.
func (c *Client) GameStarts(ctx context.Context) (<-chan model.GameStart, error) {
	return subscribeTyped[model.GameStart](c, ctx, TopicGameStart)
}

// GameEnds subscribes to game-end notifications.
func (c *Client) GameEnds(ctx context.Context) (<-chan model.GameEnd, error) {
	return subscribeTyped[model.GameEnd](c, ctx, TopicGameEnd)
}

// ConnectionStats subscribes to the server-side presence aggregates.
func (c *Client) ConnectionStats(ctx context.Context) (<-chan model.ConnectionStats, error) {
	return subscribeTyped[model.ConnectionStats](c, ctx, TopicConnectionStats)
}

// StateChanges subscribes to connection-state transitions.
func (c *Client) StateChanges(ctx context.Context) (<-chan model.ConnectionState, error) {
	return subscribeTyped[model.ConnectionState](c, ctx, TopicConnectionState)
}

// Errors subscribes to channel-level transport errors.
func (c *Client) Errors(ctx context.Context) (<-chan ChannelError, error) {
	return subscribeTyped[ChannelError](c, ctx, TopicErrors)
}

func (c *Client) subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	c.mu.Lock()
	if c.bus == nil {
		c.bus = c.newBus()
	}
	bus := c.bus
	c.mu.Unlock()
	return bus.Subscribe(ctx, topic)
}

// subscribeTyped adapts one bus topic into a typed hot channel.
func subscribeTyped[T any](c *Client, ctx context.Context, topic string) (<-chan T, error) {
	msgs, err := c.subscribe(ctx, topic)
	if err != nil {
		return nil, err
	}
	out := make(chan T, c.cfg.BufferSize)
	go func() {
		defer close(out)
		for msg := range msgs {
			var v T
			uerr := json.Unmarshal(msg.Payload, &v)
			msg.Ack()
			if uerr != nil {
				c.logger.Debug("typed stream decode skipped", "topic", topic, "err", uerr)
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
