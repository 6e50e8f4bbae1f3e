package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/roundauction/internal/domain"
)

const (
	// eventsChannel carries live lifecycle notifications over Pub/Sub.
	eventsChannel = "auctions"
	// eventsStream keeps a trimmed durable copy for late consumers.
	eventsStream = "stream:auctions"
	// eventsStreamMaxLen bounds the stream via XADD MAXLEN ~.
	eventsStreamMaxLen int64 = 10000
)

// EventBus implements domain.EventBus using Redis Pub/Sub for live delivery
// plus a capped stream copy. Events are fire-and-forget: publishing failures
// are reported but never block auction progress, and no subscriber is
// required for settlement to proceed.
type EventBus struct {
	rdb *redis.Client
}

// NewEventBus creates an EventBus backed by the given Client.
func NewEventBus(c *Client) *EventBus {
	return &EventBus{rdb: c.Underlying()}
}

// Publish sends the event to the live channel and appends it to the stream.
func (eb *EventBus) Publish(ctx context.Context, event domain.AuctionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("redis: marshal event %s: %w", event.Type, err)
	}

	if err := eb.rdb.Publish(ctx, eventsChannel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", event.Type, err)
	}

	args := &redis.XAddArgs{
		Stream: eventsStream,
		MaxLen: eventsStreamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"payload": payload,
		},
	}
	if err := eb.rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redis: stream append %s: %w", event.Type, err)
	}
	return nil
}

// Subscribe creates a Pub/Sub subscription and returns a channel of decoded
// events. The subscription closes when the context is cancelled; the
// returned channel is closed at that point as well. Payloads that do not
// decode are skipped.
func (eb *EventBus) Subscribe(ctx context.Context) (<-chan domain.AuctionEvent, error) {
	pubsub := eb.rdb.Subscribe(ctx, eventsChannel)

	// Verify the subscription is established by receiving the confirmation.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", eventsChannel, err)
	}

	out := make(chan domain.AuctionEvent, 128)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event domain.AuctionEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Compile-time interface check.
var _ domain.EventBus = (*EventBus)(nil)
