package messaging

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/chatrelay/backend/internal/domain/messaging"
	"github.com/chatrelay/backend/internal/domain/shared"
)

// replyPipeline runs the automated reply flow shared by the inbound
// router and the operator send path. A dispatched task detaches from the
// triggering request; generator or provider failures are logged and never
// disturb the already-recorded triggering message.
type replyPipeline struct {
	messageRepo messaging.MessageRepository
	sessionRepo messaging.SessionRepository
	provider    messaging.MessagingProvider
	generator   messaging.ReplyGenerator
	broadcaster messaging.MessageBroadcaster
	events      shared.EventPublisher
	config      AutoReplyConfig
	logger      *zap.Logger

	// spawn runs the reply task. Production uses a goroutine; tests
	// substitute a synchronous runner.
	spawn func(func())
}

func newReplyPipeline(
	messageRepo messaging.MessageRepository,
	sessionRepo messaging.SessionRepository,
	provider messaging.MessagingProvider,
	generator messaging.ReplyGenerator,
	broadcaster messaging.MessageBroadcaster,
	events shared.EventPublisher,
	config AutoReplyConfig,
	logger *zap.Logger,
) *replyPipeline {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &replyPipeline{
		messageRepo: messageRepo,
		sessionRepo: sessionRepo,
		provider:    provider,
		generator:   generator,
		broadcaster: broadcaster,
		events:      events,
		config:      config,
		logger:      logger,
		spawn:       func(fn func()) { go fn() },
	}
}

// enabled reports whether a message of the given kind gets an automated
// reply
func (p *replyPipeline) enabled(kind messaging.CommunicationType) bool {
	if !p.config.Enabled || p.generator == nil {
		return false
	}
	// Voice events record a call, there is no text thread to reply on
	return kind != messaging.CommunicationTypeVoice
}

// dispatch runs the reply task detached from the calling request. The
// caller's acknowledgment never waits on reply generation.
func (p *replyPipeline) dispatch(channel *messaging.Channel, session *messaging.Session, trigger *messaging.Message, remote string) {
	p.spawn(func() {
		if p.config.Delay > 0 {
			time.Sleep(p.config.Delay)
		}

		ctx, cancel := context.WithTimeout(context.Background(), p.config.Timeout)
		defer cancel()

		if err := p.deliver(ctx, channel, session, trigger, remote); err != nil {
			p.logger.Error("automated reply failed",
				zap.String("session_id", session.ID.String()),
				zap.String("in_response_to", trigger.ID.String()),
				zap.Error(err))
		}
	})
}

func (p *replyPipeline) deliver(ctx context.Context, channel *messaging.Channel, session *messaging.Session, trigger *messaging.Message, remote string) error {
	result, err := p.generator.Generate(ctx, messaging.ReplyRequest{
		SessionID: session.ID,
		Body:      trigger.Body,
		Type:      session.Type,
	})
	if err != nil {
		return err
	}
	// A generator declining to answer ends the task quietly
	if result == nil || strings.TrimSpace(result.Body) == "" {
		return nil
	}

	reply, err := messaging.NewAutomatedReplyMessage(session.ID, result.Body, trigger.ID, result.Backend)
	if err != nil {
		return err
	}
	reply.FromNumber = channel.PhoneNumber
	reply.ToNumber = remote
	if err := p.messageRepo.Save(ctx, reply); err != nil {
		return err
	}

	sendResult, sendErr := p.send(ctx, session.Type, channel.PhoneNumber, remote, result.Body)
	if sendErr != nil {
		if err := reply.MarkFailed(sendErr.Error()); err != nil {
			return err
		}
	} else {
		if err := reply.MarkSent(sendResult.ProviderSID); err != nil {
			return err
		}
	}
	if err := p.messageRepo.Save(ctx, reply); err != nil {
		return err
	}

	if err := p.sessionRepo.TouchActivity(ctx, session.ID, reply.CreatedAt); err != nil {
		p.logger.Warn("failed to touch session activity",
			zap.String("session_id", session.ID.String()),
			zap.Error(err))
	}

	p.publishEvents(ctx, reply)
	p.broadcast(ctx, messaging.BroadcastEvent{
		Event:     messaging.BroadcastMessageNew,
		ChannelID: channel.ID,
		Payload:   ToMessageResponse(reply),
	})

	return sendErr
}

func (p *replyPipeline) send(ctx context.Context, sessionType messaging.CommunicationType, from, to, body string) (*messaging.SendResult, error) {
	switch sessionType {
	case messaging.CommunicationTypeWhatsApp:
		return p.provider.SendWhatsApp(ctx, from, to, body)
	default:
		return p.provider.SendSMS(ctx, from, to, body)
	}
}

func (p *replyPipeline) publishEvents(ctx context.Context, aggregate shared.AggregateRoot) {
	if p.events == nil {
		return
	}
	events := aggregate.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := p.events.Publish(ctx, events...); err != nil {
		p.logger.Warn("failed to publish domain events", zap.Error(err))
	}
	aggregate.ClearDomainEvents()
}

func (p *replyPipeline) broadcast(ctx context.Context, event messaging.BroadcastEvent) {
	if p.broadcaster == nil {
		return
	}
	if err := p.broadcaster.Broadcast(ctx, event); err != nil {
		p.logger.Warn("realtime broadcast failed",
			zap.String("event", event.Event),
			zap.String("channel_id", event.ChannelID.String()),
			zap.Error(err))
	}
}
