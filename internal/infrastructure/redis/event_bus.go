package redis

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"threadcraft/internal/domain"

	"github.com/redis/go-redis/v9"
)

const transitionChannel = "threadcraft:workflow:transitions"

type RedisEventBus struct {
	client     *redis.Client
	channel    string
	logger     *slog.Logger
	retryDelay time.Duration
}

func NewRedisEventBus(client *redis.Client, logger *slog.Logger) *RedisEventBus {
	return &RedisEventBus{
		client:     client,
		channel:    transitionChannel,
		logger:     logger,
		retryDelay: time.Second,
	}
}

// PublishTransition broadcasts the event to the network
func (b *RedisEventBus) PublishTransition(ctx context.Context, event domain.TransitionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return b.client.Publish(ctx, b.channel, payload).Err()
}

// SubscribeToTransitions opens a continuous stream for the Coordinator.
// The returned channel is closed when ctx is cancelled.
func (b *RedisEventBus) SubscribeToTransitions(ctx context.Context) (<-chan domain.TransitionEvent, error) {
	pubsub := b.client.Subscribe(ctx, b.channel)

	// Wait for the subscription confirmation so that errors surface here
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, err
	}

	msgChan := make(chan domain.TransitionEvent)

	// Forward Redis messages to our Go channel until shutdown
	go func() {
		defer close(msgChan)
		defer pubsub.Close()

		for {
			msg, err := pubsub.ReceiveMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				b.logger.Warn("transition subscription receive failed", "error", err)
				select {
				case <-time.After(b.retryDelay):
				case <-ctx.Done():
					return
				}
				continue
			}

			event, err := decodeTransition(msg.Payload)
			if err != nil {
				b.logger.Warn("dropping malformed transition event", "error", err)
				continue
			}

			select {
			case msgChan <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	return msgChan, nil
}

func decodeTransition(payload string) (domain.TransitionEvent, error) {
	var event domain.TransitionEvent
	err := json.Unmarshal([]byte(payload), &event)
	return event, err
}
