package messaging

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/chatrelay/backend/internal/domain/messaging"
	"github.com/chatrelay/backend/internal/domain/shared"
)

const (
	dedupeKeyPrefix  = "inbound:"
	defaultDedupeTTL = 24 * time.Hour
)

// AutoReplyConfig controls the automated reply pipeline
type AutoReplyConfig struct {
	Enabled bool
	// Delay is an optional pause before generating the reply, to keep
	// automated responses from landing unnaturally fast
	Delay time.Duration
	// Timeout bounds the whole reply attempt, generation and delivery
	// included
	Timeout time.Duration
}

// RouterConfig bundles the tunables of the inbound pipeline
type RouterConfig struct {
	AutoReply AutoReplyConfig
	// DedupeTTL is how long a processed provider SID is remembered
	DedupeTTL time.Duration
}

// MessageRouter drives the inbound pipeline: dedupe, channel lookup,
// session resolution, message recording, realtime broadcast and the
// detached automated reply. A reply failure never affects the recorded
// inbound message.
type MessageRouter struct {
	channelRepo messaging.ChannelRepository
	sessionRepo messaging.SessionRepository
	messageRepo messaging.MessageRepository
	resolver    *SessionResolver
	dedupe      shared.IdempotencyStore
	broadcaster messaging.MessageBroadcaster
	events      shared.EventPublisher
	replies     *replyPipeline
	dedupeTTL   time.Duration
	logger      *zap.Logger
}

// NewMessageRouter creates a new MessageRouter
func NewMessageRouter(
	channelRepo messaging.ChannelRepository,
	sessionRepo messaging.SessionRepository,
	messageRepo messaging.MessageRepository,
	resolver *SessionResolver,
	dedupe shared.IdempotencyStore,
	broadcaster messaging.MessageBroadcaster,
	provider messaging.MessagingProvider,
	generator messaging.ReplyGenerator,
	events shared.EventPublisher,
	config RouterConfig,
	logger *zap.Logger,
) *MessageRouter {
	if config.DedupeTTL <= 0 {
		config.DedupeTTL = defaultDedupeTTL
	}
	return &MessageRouter{
		channelRepo: channelRepo,
		sessionRepo: sessionRepo,
		messageRepo: messageRepo,
		resolver:    resolver,
		dedupe:      dedupe,
		broadcaster: broadcaster,
		events:      events,
		replies:     newReplyPipeline(messageRepo, sessionRepo, provider, generator, broadcaster, events, config.AutoReply, logger),
		dedupeTTL:   config.DedupeTTL,
		logger:      logger,
	}
}

// HandleInbound records an inbound provider event and kicks off the
// automated reply. Redelivered events (same provider SID) are answered
// with the already-recorded message instead of a second copy.
func (r *MessageRouter) HandleInbound(ctx context.Context, event InboundEvent) (*InboundResult, error) {
	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = time.Now()
	}

	if duplicate := r.checkDuplicate(ctx, event.ProviderSID); duplicate != nil {
		return duplicate, nil
	}

	channel, err := r.lookupChannel(ctx, event)
	if err != nil {
		return nil, err
	}

	session, created, err := r.resolver.Resolve(ctx, channel.ID, event.Type, event.FromNumber, event.ReceivedAt)
	if err != nil {
		return nil, err
	}

	message, err := messaging.NewInboundMessage(session.ID, inboundMessageType(event), event.Body, event.FromNumber, event.ToNumber, event.ProviderSID)
	if err != nil {
		return nil, err
	}
	if err := r.messageRepo.Save(ctx, message); err != nil {
		return nil, err
	}

	if err := r.sessionRepo.TouchActivity(ctx, session.ID, event.ReceivedAt); err != nil {
		// The message is recorded; a stale activity marker only shortens
		// the reuse window.
		r.logger.Warn("failed to touch session activity",
			zap.String("session_id", session.ID.String()),
			zap.Error(err))
	}
	session.MessageCount++
	if event.ReceivedAt.After(session.LastMessageAt) {
		session.LastMessageAt = event.ReceivedAt
	}

	r.markProcessed(ctx, event.ProviderSID)
	r.publishEvents(ctx, session, message)

	if created {
		r.broadcast(ctx, messaging.BroadcastEvent{
			Event:     messaging.BroadcastSessionNew,
			ChannelID: channel.ID,
			Payload:   ToSessionResponse(session),
		})
	}
	r.broadcast(ctx, messaging.BroadcastEvent{
		Event:     messaging.BroadcastMessageNew,
		ChannelID: channel.ID,
		Payload:   ToMessageResponse(message),
	})

	if r.replies.enabled(event.Type) {
		r.replies.dispatch(channel, session, message, event.FromNumber)
	}

	return &InboundResult{
		Session:    ToSessionResponse(session),
		Message:    ToMessageResponse(message),
		NewSession: created,
	}, nil
}

// HandleStatusCallback applies a delivery status reported by the provider
// to the message carrying the referenced provider SID
func (r *MessageRouter) HandleStatusCallback(ctx context.Context, event StatusCallbackEvent) error {
	if event.ProviderSID == "" {
		return shared.NewDomainError("INVALID_CALLBACK", "Status callback is missing the message identifier")
	}

	status, ok := mapProviderStatus(event.Status)
	if !ok {
		return shared.NewDomainError("INVALID_CALLBACK", "Unknown delivery status: "+event.Status)
	}

	message, err := r.messageRepo.FindByProviderSID(ctx, event.ProviderSID)
	if err != nil {
		// Callbacks can outlive their message or reference traffic sent
		// outside this system; an unknown SID is a no-op, not a failure.
		if shared.IsNotFound(err) {
			r.logger.Info("status callback for unknown message",
				zap.String("provider_sid", event.ProviderSID),
				zap.String("status", event.Status))
			return nil
		}
		return err
	}

	before := message.Status
	if err := message.UpdateStatus(status); err != nil {
		return err
	}
	if message.Status == before {
		return nil
	}
	if err := r.messageRepo.Save(ctx, message); err != nil {
		return err
	}

	r.publishEvents(ctx, message)

	session, err := r.sessionRepo.FindByID(ctx, message.SessionID)
	if err != nil {
		r.logger.Warn("status update recorded but session lookup failed",
			zap.String("message_id", message.ID.String()),
			zap.Error(err))
		return nil
	}
	r.broadcast(ctx, messaging.BroadcastEvent{
		Event:     messaging.BroadcastMessageStatus,
		ChannelID: session.ChannelID,
		Payload:   ToMessageResponse(message),
	})

	return nil
}

// checkDuplicate answers a redelivered event with the original message.
// A failing dedupe store fails open: recording twice beats dropping.
func (r *MessageRouter) checkDuplicate(ctx context.Context, providerSID string) *InboundResult {
	if providerSID == "" {
		return nil
	}

	processed, err := r.dedupe.IsProcessed(ctx, dedupeKeyPrefix+providerSID)
	if err != nil {
		r.logger.Warn("dedupe lookup failed", zap.String("provider_sid", providerSID), zap.Error(err))
		return nil
	}
	if !processed {
		return nil
	}

	message, err := r.messageRepo.FindByProviderSID(ctx, providerSID)
	if err != nil {
		r.logger.Warn("duplicate event but original message not found",
			zap.String("provider_sid", providerSID), zap.Error(err))
		return nil
	}
	session, err := r.sessionRepo.FindByID(ctx, message.SessionID)
	if err != nil {
		return nil
	}

	r.logger.Info("ignoring redelivered inbound event", zap.String("provider_sid", providerSID))
	return &InboundResult{
		Session:   ToSessionResponse(session),
		Message:   ToMessageResponse(message),
		Duplicate: true,
	}
}

func (r *MessageRouter) markProcessed(ctx context.Context, providerSID string) {
	if providerSID == "" {
		return
	}
	if _, err := r.dedupe.MarkProcessed(ctx, dedupeKeyPrefix+providerSID, r.dedupeTTL); err != nil {
		r.logger.Warn("failed to mark event processed", zap.String("provider_sid", providerSID), zap.Error(err))
	}
}

// lookupChannel finds the channel for the event's local number,
// provisioning one on the fly for unknown numbers. Inbound traffic is
// never dropped for lack of provisioning.
func (r *MessageRouter) lookupChannel(ctx context.Context, event InboundEvent) (*messaging.Channel, error) {
	channel, err := r.channelRepo.FindByPhoneNumber(ctx, event.ToNumber, event.Type)
	if err == nil {
		return channel, nil
	}
	if !shared.IsNotFound(err) {
		return nil, err
	}

	channel, err = messaging.NewAutoProvisionedChannel(event.ToNumber, event.Type)
	if err != nil {
		return nil, err
	}
	if err := r.channelRepo.Save(ctx, channel); err != nil {
		return nil, err
	}

	r.logger.Info("auto-provisioned channel for unknown number",
		zap.String("channel_id", channel.ID.String()),
		zap.String("phone_number", event.ToNumber),
		zap.String("type", string(event.Type)))

	r.publishEvents(ctx, channel)

	return channel, nil
}

func (r *MessageRouter) publishEvents(ctx context.Context, aggregates ...shared.AggregateRoot) {
	if r.events == nil {
		return
	}
	for _, aggregate := range aggregates {
		events := aggregate.GetDomainEvents()
		if len(events) == 0 {
			continue
		}
		if err := r.events.Publish(ctx, events...); err != nil {
			r.logger.Warn("failed to publish domain events", zap.Error(err))
		}
		aggregate.ClearDomainEvents()
	}
}

func (r *MessageRouter) broadcast(ctx context.Context, event messaging.BroadcastEvent) {
	if r.broadcaster == nil {
		return
	}
	if err := r.broadcaster.Broadcast(ctx, event); err != nil {
		r.logger.Warn("realtime broadcast failed",
			zap.String("event", event.Event),
			zap.String("channel_id", event.ChannelID.String()),
			zap.Error(err))
	}
}

func inboundMessageType(event InboundEvent) messaging.MessageType {
	if event.Type == messaging.CommunicationTypeVoice {
		return messaging.MessageTypeCall
	}
	if event.MediaCount > 0 {
		return messaging.MessageTypeMMS
	}
	return messaging.MessageTypeText
}

// mapProviderStatus translates provider delivery states into ours
func mapProviderStatus(status string) (messaging.MessageStatus, bool) {
	switch status {
	case "queued", "accepted", "sending", "scheduled":
		return messaging.MessageStatusQueued, true
	case "sent":
		return messaging.MessageStatusSent, true
	case "delivered":
		return messaging.MessageStatusDelivered, true
	case "read":
		return messaging.MessageStatusRead, true
	case "failed", "undelivered", "canceled":
		return messaging.MessageStatusFailed, true
	case "received":
		return messaging.MessageStatusReceived, true
	}
	return "", false
}
