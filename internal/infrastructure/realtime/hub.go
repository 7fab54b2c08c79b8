package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chatrelay/backend/internal/domain/messaging"
)

// subscriberBufferSize is the per-subscriber backlog before the hub
// considers the subscriber too slow and drops it
const subscriberBufferSize = 64

// Subscription is one realtime listener on a channel. Frames arrive on C as
// marshaled JSON; C is closed when the subscription ends.
type Subscription struct {
	ID        uuid.UUID
	ChannelID uuid.UUID
	C         chan []byte

	closeOnce sync.Once
}

func (s *Subscription) close() {
	s.closeOnce.Do(func() {
		close(s.C)
	})
}

// Hub is an in-process broadcaster. It keeps a subscriber registry per
// channel and fans broadcast frames out to every subscriber of that channel.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]map[uuid.UUID]*Subscription // channelID -> subscriptionID -> sub
	logger      *zap.Logger
}

// NewHub creates a new in-process broadcast hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subscribers: make(map[uuid.UUID]map[uuid.UUID]*Subscription),
		logger:      logger,
	}
}

// Subscribe registers a listener for a channel's broadcast frames
func (h *Hub) Subscribe(channelID uuid.UUID) *Subscription {
	sub := &Subscription{
		ID:        uuid.New(),
		ChannelID: channelID,
		C:         make(chan []byte, subscriberBufferSize),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subscribers[channelID] == nil {
		h.subscribers[channelID] = make(map[uuid.UUID]*Subscription)
	}
	h.subscribers[channelID][sub.ID] = sub

	return sub
}

// Unsubscribe removes a listener and closes its frame channel
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	if subs, ok := h.subscribers[sub.ChannelID]; ok {
		delete(subs, sub.ID)
		if len(subs) == 0 {
			delete(h.subscribers, sub.ChannelID)
		}
	}
	h.mu.Unlock()

	sub.close()
}

// Broadcast fans an event out to every subscriber of its channel. Delivery
// is best effort: a subscriber whose buffer is full is dropped so one stuck
// reader never slows the pipeline.
func (h *Hub) Broadcast(ctx context.Context, event messaging.BroadcastEvent) error {
	frame, err := json.Marshal(event)
	if err != nil {
		return err
	}

	var dropped []*Subscription

	h.mu.RLock()
	for _, sub := range h.subscribers[event.ChannelID] {
		select {
		case sub.C <- frame:
		default:
			dropped = append(dropped, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range dropped {
		h.logger.Warn("dropping slow realtime subscriber",
			zap.String("channel_id", sub.ChannelID.String()),
			zap.String("subscription_id", sub.ID.String()),
		)
		h.Unsubscribe(sub)
	}

	return nil
}

// SubscriberCount returns the number of listeners on a channel (for tests
// and monitoring)
func (h *Hub) SubscriberCount(channelID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[channelID])
}

// Close drops every subscriber
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for channelID, subs := range h.subscribers {
		for _, sub := range subs {
			sub.close()
		}
		delete(h.subscribers, channelID)
	}
	return nil
}

// Ensure Hub implements MessageBroadcaster
var _ messaging.MessageBroadcaster = (*Hub)(nil)
