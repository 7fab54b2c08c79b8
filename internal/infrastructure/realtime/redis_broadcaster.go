package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/chatrelay/backend/internal/domain/messaging"
	"github.com/chatrelay/backend/internal/infrastructure/config"
)

const channelKeyPrefix = "chatrelay:channel:"

// RedisBroadcaster fans broadcast events out over Redis pub/sub so realtime
// subscribers on every instance see them. Events published locally go to
// Redis; a pump goroutine relays everything arriving from Redis into the
// local hub, which holds the actual websocket subscribers.
type RedisBroadcaster struct {
	client *redis.Client
	hub    *Hub
	logger *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewRedisBroadcaster connects to Redis and starts the relay pump
func NewRedisBroadcaster(cfg config.RedisConfig, hub *Hub, logger *zap.Logger) (*RedisBroadcaster, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisBroadcasterWithClient(client, hub, logger), nil
}

// NewRedisBroadcasterWithClient creates a broadcaster with an existing Redis
// client and starts the relay pump
func NewRedisBroadcasterWithClient(client *redis.Client, hub *Hub, logger *zap.Logger) *RedisBroadcaster {
	b := &RedisBroadcaster{
		client: client,
		hub:    hub,
		logger: logger,
	}

	pumpCtx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel

	b.wg.Add(1)
	go b.pump(pumpCtx)

	return b
}

// Broadcast publishes an event to the channel's Redis topic
func (b *RedisBroadcaster) Broadcast(ctx context.Context, event messaging.BroadcastEvent) error {
	frame, err := json.Marshal(event)
	if err != nil {
		return err
	}

	topic := channelKeyPrefix + event.ChannelID.String()
	if err := b.client.Publish(ctx, topic, frame).Err(); err != nil {
		return fmt.Errorf("failed to publish broadcast event: %w", err)
	}
	return nil
}

// pump relays frames arriving on any channel topic into the local hub
func (b *RedisBroadcaster) pump(ctx context.Context) {
	defer b.wg.Done()

	pubsub := b.client.PSubscribe(ctx, channelKeyPrefix+"*")
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
			b.relay(ctx, msg)
		}
	}
}

func (b *RedisBroadcaster) relay(ctx context.Context, msg *redis.Message) {
	channelID, err := uuid.Parse(strings.TrimPrefix(msg.Channel, channelKeyPrefix))
	if err != nil {
		b.logger.Warn("discarding frame from malformed topic",
			zap.String("topic", msg.Channel),
		)
		return
	}

	var event messaging.BroadcastEvent
	if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
		b.logger.Warn("discarding malformed broadcast frame",
			zap.String("topic", msg.Channel),
			zap.Error(err),
		)
		return
	}
	event.ChannelID = channelID

	if err := b.hub.Broadcast(ctx, event); err != nil {
		b.logger.Error("failed to relay broadcast frame to hub",
			zap.String("topic", msg.Channel),
			zap.Error(err),
		)
	}
}

// Close stops the relay pump and closes the Redis client
func (b *RedisBroadcaster) Close() error {
	var err error
	b.closeOnce.Do(func() {
		b.cancel()
		b.wg.Wait()
		err = b.client.Close()
	})
	return err
}

// Ensure RedisBroadcaster implements MessageBroadcaster
var _ messaging.MessageBroadcaster = (*RedisBroadcaster)(nil)
