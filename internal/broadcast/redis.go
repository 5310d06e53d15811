package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	publishTimeout    = 2 * time.Second
	defaultRetryDelay = 5 * time.Second
)

// RedisBridge mirrors a Subject onto a Redis pub/sub channel so every
// dashboard process sharing the channel sees theme changes made by the others.
type RedisBridge struct {
	client  goredis.UniversalClient
	channel string
	subject *Subject
	origin  string
	logger  zerolog.Logger

	retryDelay time.Duration
}

func NewRedisBridge(client goredis.UniversalClient, channel string, subject *Subject, logger zerolog.Logger) *RedisBridge {
	bridge := &RedisBridge{
		client:  client,
		channel: channel,
		subject: subject,
		origin:  uuid.NewString(),
		logger:  logger.With().Str("component", "redis_bridge").Str("channel", channel).Logger(),

		retryDelay: defaultRetryDelay,
	}
	subject.addTap(bridge.forward)
	return bridge
}

func (b *RedisBridge) Origin() string {
	return b.origin
}

func (b *RedisBridge) forward(event Event) {
	if event.Origin != "" && event.Origin != b.origin {
		return
	}
	event.Origin = b.origin

	payload, err := json.Marshal(event)
	if err != nil {
		b.logger.Error().Err(err).Msg("Failed to encode broadcast event")
		return
	}
	// Taps run on the request goroutine; Redis must not hold up a save or toggle.
	go b.publish(payload)
}

func (b *RedisBridge) publish(payload []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		b.logger.Warn().Err(err).Msg("Failed to publish broadcast event")
	}
}

// Serve runs the bridge until ctx is done. Failures are logged and the
// subscription is retried; local theme sync keeps working without Redis.
func (b *RedisBridge) Serve(ctx context.Context) {
	for {
		err := b.Run(ctx, nil)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			b.logger.Error().Err(err).Dur("retry_in", b.retryDelay).Msg("Broadcast bridge stopped")
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(b.retryDelay):
		}
	}
}

// Run receives events from the channel until ctx is done. Events published
// by this process are skipped since local subscribers already saw them.
func (b *RedisBridge) Run(ctx context.Context, ready chan<- struct{}) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to redis: %w", err)
	}
	if ready != nil {
		close(ready)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.logger.Warn().Err(err).Msg("Dropping undecodable broadcast event")
				continue
			}
			if event.Origin == b.origin {
				continue
			}
			b.subject.deliver(event)
		}
	}
}
