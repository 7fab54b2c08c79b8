package messaging

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chatrelay/backend/internal/domain/messaging"
	"github.com/chatrelay/backend/internal/domain/shared"
)

// MessageService handles message history and operator-authored outbound
// messages. User-authored sends feed the same automated reply pipeline as
// inbound webhook traffic.
type MessageService struct {
	messageRepo messaging.MessageRepository
	sessionRepo messaging.SessionRepository
	channelRepo messaging.ChannelRepository
	resolver    *SessionResolver
	provider    messaging.MessagingProvider
	broadcaster messaging.MessageBroadcaster
	events      shared.EventPublisher
	replies     *replyPipeline
	logger      *zap.Logger
}

// NewMessageService creates a new MessageService
func NewMessageService(
	messageRepo messaging.MessageRepository,
	sessionRepo messaging.SessionRepository,
	channelRepo messaging.ChannelRepository,
	resolver *SessionResolver,
	provider messaging.MessagingProvider,
	broadcaster messaging.MessageBroadcaster,
	generator messaging.ReplyGenerator,
	events shared.EventPublisher,
	autoReply AutoReplyConfig,
	logger *zap.Logger,
) *MessageService {
	return &MessageService{
		messageRepo: messageRepo,
		sessionRepo: sessionRepo,
		channelRepo: channelRepo,
		resolver:    resolver,
		provider:    provider,
		broadcaster: broadcaster,
		events:      events,
		replies:     newReplyPipeline(messageRepo, sessionRepo, provider, generator, broadcaster, events, autoReply, logger),
		logger:      logger,
	}
}

// GetByID retrieves a message by ID
func (s *MessageService) GetByID(ctx context.Context, messageID uuid.UUID) (*MessageResponse, error) {
	message, err := s.messageRepo.FindByID(ctx, messageID)
	if err != nil {
		return nil, err
	}

	response := ToMessageResponse(message)
	return &response, nil
}

// ListBySession retrieves a session's messages, oldest first by default
func (s *MessageService) ListBySession(ctx context.Context, sessionID uuid.UUID, filter MessageListFilter) ([]MessageResponse, int64, error) {
	if _, err := s.sessionRepo.FindByID(ctx, sessionID); err != nil {
		return nil, 0, err
	}

	domainFilter := shared.DefaultFilter()
	domainFilter.OrderBy = "created_at"
	domainFilter.OrderDir = "asc"
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	if filter.Limit > 0 {
		domainFilter.Limit = filter.Limit
		domainFilter.Offset = filter.Offset
	}
	if filter.OrderDir != "" {
		domainFilter.OrderDir = filter.OrderDir
	}
	if filter.Status != "" {
		domainFilter.Filters["status"] = filter.Status
	}

	messages, total, err := s.messageRepo.FindBySession(ctx, sessionID, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	return ToMessageResponses(messages), total, nil
}

// ListByChannel retrieves messages across a channel's sessions, oldest
// first. A session_id filter narrows the listing to one session.
func (s *MessageService) ListByChannel(ctx context.Context, channelID uuid.UUID, filter ChannelMessageListFilter) ([]MessageResponse, int64, error) {
	if _, err := s.channelRepo.FindByID(ctx, channelID); err != nil {
		return nil, 0, err
	}

	domainFilter := shared.DefaultFilter()
	domainFilter.OrderBy = "created_at"
	domainFilter.OrderDir = "asc"
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	if filter.Limit > 0 {
		domainFilter.Limit = filter.Limit
		domainFilter.Offset = filter.Offset
	}
	if filter.Status != "" {
		domainFilter.Filters["status"] = filter.Status
	}
	if filter.SessionID != "" {
		domainFilter.Filters["session_id"] = filter.SessionID
	}

	messages, total, err := s.messageRepo.FindByChannel(ctx, channelID, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	return ToMessageResponses(messages), total, nil
}

// Send records an operator-authored message on a session and hands it to
// the provider. The message is persisted before the provider call, so a
// delivery failure still leaves a failed message in the history.
func (s *MessageService) Send(ctx context.Context, sessionID uuid.UUID, req SendMessageRequest) (*MessageResponse, error) {
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.sendOnSession(ctx, session, req)
}

// OperatorSend is the generic operator entry point. A provided session id
// wins; otherwise the session is resolved from the channel and remote
// number the same way inbound traffic is, so an operator reaching out
// lands on the live conversation when one exists.
func (s *MessageService) OperatorSend(ctx context.Context, req OperatorSendRequest) (*MessageResponse, error) {
	if req.SessionID != nil {
		return s.Send(ctx, *req.SessionID, SendMessageRequest{Body: req.Body, Type: req.Type})
	}

	if req.ChannelID == nil || req.RemoteNumber == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Either session_id or channel_id with remote_number is required")
	}

	channel, err := s.channelRepo.FindByID(ctx, *req.ChannelID)
	if err != nil {
		return nil, err
	}
	if !channel.IsActive() {
		return nil, shared.NewDomainError("CHANNEL_INACTIVE", "Cannot send a message on an inactive channel")
	}

	session, _, err := s.resolver.Resolve(ctx, channel.ID, channel.Type, req.RemoteNumber, time.Now())
	if err != nil {
		return nil, err
	}

	return s.sendOnSession(ctx, session, SendMessageRequest{Body: req.Body, Type: req.Type})
}

func (s *MessageService) sendOnSession(ctx context.Context, session *messaging.Session, req SendMessageRequest) (*MessageResponse, error) {
	if !session.IsActive() {
		return nil, shared.NewDomainError("SESSION_NOT_ACTIVE", "Cannot send a message on an inactive session")
	}
	if session.RemoteNumber == "" {
		return nil, shared.NewDomainError("NO_REMOTE_NUMBER", "Session has no remote number to deliver to")
	}

	channel, err := s.channelRepo.FindByID(ctx, session.ChannelID)
	if err != nil {
		return nil, err
	}

	msgType := messaging.MessageTypeText
	if req.Type != "" {
		msgType = messaging.MessageType(req.Type)
	}

	message, err := messaging.NewOperatorMessage(session.ID, msgType, req.Body, channel.PhoneNumber, session.RemoteNumber)
	if err != nil {
		return nil, err
	}
	if err := s.messageRepo.Save(ctx, message); err != nil {
		return nil, err
	}

	result, sendErr := s.deliver(ctx, session.Type, channel.PhoneNumber, session.RemoteNumber, req.Body)
	if sendErr != nil {
		if err := message.MarkFailed(sendErr.Error()); err != nil {
			return nil, err
		}
	} else {
		if err := message.MarkSent(result.ProviderSID); err != nil {
			return nil, err
		}
	}
	if err := s.messageRepo.Save(ctx, message); err != nil {
		return nil, err
	}

	if err := s.sessionRepo.TouchActivity(ctx, session.ID, message.CreatedAt); err != nil {
		s.logger.Warn("failed to touch session activity",
			zap.String("session_id", session.ID.String()),
			zap.Error(err))
	}

	s.publishEvents(ctx, message)
	if s.broadcaster != nil {
		if err := s.broadcaster.Broadcast(ctx, messaging.BroadcastEvent{
			Event:     messaging.BroadcastMessageNew,
			ChannelID: channel.ID,
			Payload:   ToMessageResponse(message),
		}); err != nil {
			s.logger.Warn("realtime broadcast failed", zap.Error(err))
		}
	}

	if sendErr != nil {
		s.logger.Error("provider rejected outbound message",
			zap.String("message_id", message.ID.String()),
			zap.Error(sendErr))
		return nil, shared.NewDomainError("PROVIDER_ERROR", "Message could not be delivered: "+sendErr.Error())
	}

	// A user-authored message gets the same automated reply as inbound
	// traffic; the pipeline never re-enters itself for the reply it writes
	if message.Sender == messaging.SenderUser && s.replies.enabled(session.Type) {
		s.replies.dispatch(channel, session, message, session.RemoteNumber)
	}

	response := ToMessageResponse(message)
	return &response, nil
}

func (s *MessageService) deliver(ctx context.Context, sessionType messaging.CommunicationType, from, to, body string) (*messaging.SendResult, error) {
	switch sessionType {
	case messaging.CommunicationTypeWhatsApp:
		return s.provider.SendWhatsApp(ctx, from, to, body)
	default:
		return s.provider.SendSMS(ctx, from, to, body)
	}
}

func (s *MessageService) publishEvents(ctx context.Context, aggregate shared.AggregateRoot) {
	if s.events == nil {
		return
	}
	events := aggregate.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := s.events.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish domain events", zap.Error(err))
	}
	aggregate.ClearDomainEvents()
}
