package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chatrelay/backend/internal/domain/messaging"
	"github.com/chatrelay/backend/internal/domain/shared"
)

type messageServiceFixture struct {
	messageRepo *MockMessageRepository
	sessionRepo *MockSessionRepository
	channelRepo *MockChannelRepository
	provider    *MockProvider
	generator   *MockGenerator
	broadcaster *recordingBroadcaster
	service     *MessageService
}

func newMessageServiceFixture(t *testing.T, autoReply bool) *messageServiceFixture {
	t.Helper()

	f := &messageServiceFixture{
		messageRepo: new(MockMessageRepository),
		sessionRepo: new(MockSessionRepository),
		channelRepo: new(MockChannelRepository),
		provider:    new(MockProvider),
		generator:   new(MockGenerator),
		broadcaster: &recordingBroadcaster{},
	}
	resolver := NewSessionResolver(f.sessionRepo, 0, zap.NewNop())
	f.service = NewMessageService(
		f.messageRepo, f.sessionRepo, f.channelRepo, resolver,
		f.provider, f.broadcaster, f.generator, &recordingPublisher{},
		AutoReplyConfig{Enabled: autoReply}, zap.NewNop(),
	)
	// Run reply tasks inline so the tests see their effects
	f.service.replies.spawn = func(fn func()) { fn() }
	return f
}

func TestMessageServiceSend(t *testing.T) {
	ctx := context.Background()
	local := "+14155550100"
	remote := "+14155550123"

	t.Run("delivers an operator message and records it as sent", func(t *testing.T) {
		f := newMessageServiceFixture(t, false)
		channel := activeChannel(t, local, messaging.CommunicationTypeSMS)
		session := activeSession(t, channel.ID, remote, time.Now())

		f.sessionRepo.On("FindByID", ctx, session.ID).Return(session, nil)
		f.channelRepo.On("FindByID", ctx, channel.ID).Return(channel, nil)
		f.messageRepo.On("Save", ctx, mock.AnythingOfType("*messaging.Message")).Return(nil)
		f.provider.On("SendSMS", ctx, local, remote, "on our way").
			Return(&messaging.SendResult{ProviderSID: "SM500", Status: messaging.MessageStatusSent}, nil)
		f.sessionRepo.On("TouchActivity", ctx, session.ID, mock.AnythingOfType("time.Time")).Return(nil)

		response, err := f.service.Send(ctx, session.ID, SendMessageRequest{Body: "on our way"})
		require.NoError(t, err)
		assert.Equal(t, "sent", response.Status)
		assert.Equal(t, "local_operator", response.AuthoredBy)
		assert.Equal(t, "SM500", response.ProviderSID)
		assert.Equal(t, local, response.FromNumber)
		assert.Equal(t, remote, response.ToNumber)

		events := f.broadcaster.Events()
		require.Len(t, events, 1)
		assert.Equal(t, messaging.BroadcastMessageNew, events[0].Event)
	})

	t.Run("whatsapp sessions deliver over whatsapp", func(t *testing.T) {
		f := newMessageServiceFixture(t, false)
		channel := activeChannel(t, local, messaging.CommunicationTypeWhatsApp)
		session, err := messaging.NewSession(channel.ID, messaging.CommunicationTypeWhatsApp, remote, "")
		require.NoError(t, err)

		f.sessionRepo.On("FindByID", ctx, session.ID).Return(session, nil)
		f.channelRepo.On("FindByID", ctx, channel.ID).Return(channel, nil)
		f.messageRepo.On("Save", ctx, mock.AnythingOfType("*messaging.Message")).Return(nil)
		f.provider.On("SendWhatsApp", ctx, local, remote, "hello").
			Return(&messaging.SendResult{ProviderSID: "WA500"}, nil)
		f.sessionRepo.On("TouchActivity", ctx, session.ID, mock.AnythingOfType("time.Time")).Return(nil)

		response, err := f.service.Send(ctx, session.ID, SendMessageRequest{Body: "hello"})
		require.NoError(t, err)
		assert.Equal(t, "WA500", response.ProviderSID)
		f.provider.AssertNotCalled(t, "SendSMS", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("provider failure persists a failed message and errors", func(t *testing.T) {
		f := newMessageServiceFixture(t, false)
		channel := activeChannel(t, local, messaging.CommunicationTypeSMS)
		session := activeSession(t, channel.ID, remote, time.Now())

		f.sessionRepo.On("FindByID", ctx, session.ID).Return(session, nil)
		f.channelRepo.On("FindByID", ctx, channel.ID).Return(channel, nil)
		f.messageRepo.On("Save", ctx, mock.AnythingOfType("*messaging.Message")).Return(nil)
		f.provider.On("SendSMS", ctx, local, remote, "hello").Return(nil, errors.New("carrier down"))
		f.sessionRepo.On("TouchActivity", ctx, session.ID, mock.AnythingOfType("time.Time")).Return(nil)

		_, err := f.service.Send(ctx, session.ID, SendMessageRequest{Body: "hello"})
		require.Error(t, err)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "PROVIDER_ERROR", domainErr.Code)

		// Failed message still lands in the history and is broadcast
		f.messageRepo.AssertNumberOfCalls(t, "Save", 2)
		events := f.broadcaster.Events()
		require.Len(t, events, 1)
		payload, ok := events[0].Payload.(MessageResponse)
		require.True(t, ok)
		assert.Equal(t, "failed", payload.Status)
	})

	t.Run("rejects sending on an archived session", func(t *testing.T) {
		f := newMessageServiceFixture(t, false)
		session := activeSession(t, uuid.New(), remote, time.Now())
		require.NoError(t, session.Archive())

		f.sessionRepo.On("FindByID", ctx, session.ID).Return(session, nil)

		_, err := f.service.Send(ctx, session.ID, SendMessageRequest{Body: "hello"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "inactive session")
	})

	t.Run("rejects sending without a remote number", func(t *testing.T) {
		f := newMessageServiceFixture(t, false)
		session := activeSession(t, uuid.New(), "", time.Now())

		f.sessionRepo.On("FindByID", ctx, session.ID).Return(session, nil)

		_, err := f.service.Send(ctx, session.ID, SendMessageRequest{Body: "hello"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no remote number")
	})

	t.Run("unknown session surfaces not found", func(t *testing.T) {
		f := newMessageServiceFixture(t, false)
		sessionID := uuid.New()
		f.sessionRepo.On("FindByID", ctx, sessionID).Return(nil, shared.ErrNotFound)

		_, err := f.service.Send(ctx, sessionID, SendMessageRequest{Body: "hello"})
		require.Error(t, err)
		assert.True(t, shared.IsNotFound(err))
	})
}

func TestMessageServiceOperatorSend(t *testing.T) {
	ctx := context.Background()
	local := "+14155550100"
	remote := "+14155550123"

	t.Run("a provided session id wins", func(t *testing.T) {
		f := newMessageServiceFixture(t, false)
		channel := activeChannel(t, local, messaging.CommunicationTypeSMS)
		session := activeSession(t, channel.ID, remote, time.Now())

		f.sessionRepo.On("FindByID", ctx, session.ID).Return(session, nil)
		f.channelRepo.On("FindByID", ctx, channel.ID).Return(channel, nil)
		f.messageRepo.On("Save", ctx, mock.AnythingOfType("*messaging.Message")).Return(nil)
		f.provider.On("SendSMS", ctx, local, remote, "hello").
			Return(&messaging.SendResult{ProviderSID: "SM600"}, nil)
		f.sessionRepo.On("TouchActivity", ctx, session.ID, mock.AnythingOfType("time.Time")).Return(nil)

		response, err := f.service.OperatorSend(ctx, OperatorSendRequest{
			SessionID: &session.ID,
			Body:      "hello",
		})
		require.NoError(t, err)
		assert.Equal(t, session.ID, response.SessionID)
		f.sessionRepo.AssertNotCalled(t, "FindActiveByRemoteNumber", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("resolves the live session from channel and remote number", func(t *testing.T) {
		f := newMessageServiceFixture(t, false)
		channel := activeChannel(t, local, messaging.CommunicationTypeSMS)
		session := activeSession(t, channel.ID, remote, time.Now())

		f.channelRepo.On("FindByID", ctx, channel.ID).Return(channel, nil)
		f.sessionRepo.On("FindActiveByRemoteNumber", ctx, channel.ID, messaging.CommunicationTypeSMS, remote).
			Return([]messaging.Session{*session}, nil)
		f.messageRepo.On("Save", ctx, mock.AnythingOfType("*messaging.Message")).Return(nil)
		f.provider.On("SendSMS", ctx, local, remote, "hello").
			Return(&messaging.SendResult{ProviderSID: "SM601"}, nil)
		f.sessionRepo.On("TouchActivity", ctx, session.ID, mock.AnythingOfType("time.Time")).Return(nil)

		response, err := f.service.OperatorSend(ctx, OperatorSendRequest{
			ChannelID:    &channel.ID,
			RemoteNumber: remote,
			Body:         "hello",
		})
		require.NoError(t, err)
		assert.Equal(t, session.ID, response.SessionID)
	})

	t.Run("starts a session when none is fresh enough", func(t *testing.T) {
		f := newMessageServiceFixture(t, false)
		channel := activeChannel(t, local, messaging.CommunicationTypeSMS)

		f.channelRepo.On("FindByID", ctx, channel.ID).Return(channel, nil)
		f.sessionRepo.On("FindActiveByRemoteNumber", ctx, channel.ID, messaging.CommunicationTypeSMS, remote).
			Return([]messaging.Session{}, nil)
		f.sessionRepo.On("Save", ctx, mock.AnythingOfType("*messaging.Session")).Return(nil)
		f.messageRepo.On("Save", ctx, mock.AnythingOfType("*messaging.Message")).Return(nil)
		f.provider.On("SendSMS", ctx, local, remote, "hello").
			Return(&messaging.SendResult{ProviderSID: "SM602"}, nil)
		f.sessionRepo.On("TouchActivity", ctx, mock.AnythingOfType("uuid.UUID"), mock.AnythingOfType("time.Time")).Return(nil)

		response, err := f.service.OperatorSend(ctx, OperatorSendRequest{
			ChannelID:    &channel.ID,
			RemoteNumber: remote,
			Body:         "hello",
		})
		require.NoError(t, err)
		assert.Equal(t, remote, response.ToNumber)
		assert.Equal(t, "SM602", response.ProviderSID)
	})

	t.Run("rejects a request with no conversation selector", func(t *testing.T) {
		f := newMessageServiceFixture(t, false)

		_, err := f.service.OperatorSend(ctx, OperatorSendRequest{Body: "hello"})
		require.Error(t, err)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_INPUT", domainErr.Code)
	})

	t.Run("rejects an inactive channel", func(t *testing.T) {
		f := newMessageServiceFixture(t, false)
		channel := activeChannel(t, local, messaging.CommunicationTypeSMS)
		require.NoError(t, channel.SetStatus(messaging.ChannelStatusSuspended))

		f.channelRepo.On("FindByID", ctx, channel.ID).Return(channel, nil)

		_, err := f.service.OperatorSend(ctx, OperatorSendRequest{
			ChannelID:    &channel.ID,
			RemoteNumber: remote,
			Body:         "hello",
		})
		require.Error(t, err)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "CHANNEL_INACTIVE", domainErr.Code)
	})
}

func TestMessageServiceSendAutoReply(t *testing.T) {
	ctx := context.Background()
	local := "+14155550100"
	remote := "+14155550123"

	t.Run("a user-authored send gets a generated reply", func(t *testing.T) {
		f := newMessageServiceFixture(t, true)
		channel := activeChannel(t, local, messaging.CommunicationTypeSMS)
		session := activeSession(t, channel.ID, remote, time.Now())

		f.sessionRepo.On("FindByID", ctx, session.ID).Return(session, nil)
		f.channelRepo.On("FindByID", ctx, channel.ID).Return(channel, nil)
		f.messageRepo.On("Save", mock.Anything, mock.AnythingOfType("*messaging.Message")).Return(nil)
		f.provider.On("SendSMS", mock.Anything, local, remote, "do you deliver?").
			Return(&messaging.SendResult{ProviderSID: "SM700"}, nil)
		f.generator.On("Generate", mock.Anything, mock.MatchedBy(func(req messaging.ReplyRequest) bool {
			return req.SessionID == session.ID && req.Body == "do you deliver?"
		})).Return(&messaging.ReplyResult{Body: "we do, every day", Backend: "mock"}, nil)
		f.provider.On("SendSMS", mock.Anything, local, remote, "we do, every day").
			Return(&messaging.SendResult{ProviderSID: "SM701"}, nil)
		f.sessionRepo.On("TouchActivity", mock.Anything, session.ID, mock.AnythingOfType("time.Time")).Return(nil)

		response, err := f.service.Send(ctx, session.ID, SendMessageRequest{Body: "do you deliver?"})
		require.NoError(t, err)
		assert.Equal(t, "local_operator", response.AuthoredBy)

		// Sent message, its MarkSent update, the reply and its update
		f.messageRepo.AssertNumberOfCalls(t, "Save", 4)
		// The reply itself never re-enters the generator
		f.generator.AssertNumberOfCalls(t, "Generate", 1)

		events := f.broadcaster.Events()
		require.Len(t, events, 2)
		reply, ok := events[1].Payload.(MessageResponse)
		require.True(t, ok)
		assert.Equal(t, "contact", reply.Sender)
		assert.Equal(t, "automated_reply", reply.AuthoredBy)
		assert.Equal(t, "SM701", reply.ProviderSID)
		require.NotNil(t, reply.InResponseTo)
		assert.Equal(t, response.ID, *reply.InResponseTo)
	})

	t.Run("a disabled pipeline leaves the send alone", func(t *testing.T) {
		f := newMessageServiceFixture(t, false)
		channel := activeChannel(t, local, messaging.CommunicationTypeSMS)
		session := activeSession(t, channel.ID, remote, time.Now())

		f.sessionRepo.On("FindByID", ctx, session.ID).Return(session, nil)
		f.channelRepo.On("FindByID", ctx, channel.ID).Return(channel, nil)
		f.messageRepo.On("Save", ctx, mock.AnythingOfType("*messaging.Message")).Return(nil)
		f.provider.On("SendSMS", ctx, local, remote, "hello").
			Return(&messaging.SendResult{ProviderSID: "SM702"}, nil)
		f.sessionRepo.On("TouchActivity", ctx, session.ID, mock.AnythingOfType("time.Time")).Return(nil)

		_, err := f.service.Send(ctx, session.ID, SendMessageRequest{Body: "hello"})
		require.NoError(t, err)
		f.generator.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
	})

	t.Run("generator failure never disturbs the sent message", func(t *testing.T) {
		f := newMessageServiceFixture(t, true)
		channel := activeChannel(t, local, messaging.CommunicationTypeSMS)
		session := activeSession(t, channel.ID, remote, time.Now())

		f.sessionRepo.On("FindByID", ctx, session.ID).Return(session, nil)
		f.channelRepo.On("FindByID", ctx, channel.ID).Return(channel, nil)
		f.messageRepo.On("Save", mock.Anything, mock.AnythingOfType("*messaging.Message")).Return(nil)
		f.provider.On("SendSMS", mock.Anything, local, remote, "hello").
			Return(&messaging.SendResult{ProviderSID: "SM703"}, nil)
		f.generator.On("Generate", mock.Anything, mock.AnythingOfType("messaging.ReplyRequest")).
			Return(nil, errors.New("upstream unavailable"))
		f.sessionRepo.On("TouchActivity", mock.Anything, session.ID, mock.AnythingOfType("time.Time")).Return(nil)

		response, err := f.service.Send(ctx, session.ID, SendMessageRequest{Body: "hello"})
		require.NoError(t, err)
		assert.Equal(t, "sent", response.Status)
		f.messageRepo.AssertNumberOfCalls(t, "Save", 2)
	})
}

func TestMessageServiceListByChannel(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the channel's messages oldest first", func(t *testing.T) {
		f := newMessageServiceFixture(t, false)
		channel := activeChannel(t, "+14155550100", messaging.CommunicationTypeSMS)
		session := activeSession(t, channel.ID, "+14155550123", time.Now())
		message, err := messaging.NewInboundMessage(session.ID, messaging.MessageTypeText, "hi", "+14155550123", "+14155550100", "SM1")
		require.NoError(t, err)

		f.channelRepo.On("FindByID", ctx, channel.ID).Return(channel, nil)
		f.messageRepo.On("FindByChannel", ctx, channel.ID, mock.MatchedBy(func(filter shared.Filter) bool {
			return filter.OrderBy == "created_at" && filter.OrderDir == "asc"
		})).Return([]messaging.Message{*message}, int64(1), nil)

		responses, total, err := f.service.ListByChannel(ctx, channel.ID, ChannelMessageListFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, responses, 1)
	})

	t.Run("narrows to one session", func(t *testing.T) {
		f := newMessageServiceFixture(t, false)
		channel := activeChannel(t, "+14155550100", messaging.CommunicationTypeSMS)
		sessionID := uuid.New()

		f.channelRepo.On("FindByID", ctx, channel.ID).Return(channel, nil)
		f.messageRepo.On("FindByChannel", ctx, channel.ID, mock.MatchedBy(func(filter shared.Filter) bool {
			return filter.Filters["session_id"] == sessionID.String()
		})).Return([]messaging.Message{}, int64(0), nil)

		_, _, err := f.service.ListByChannel(ctx, channel.ID, ChannelMessageListFilter{SessionID: sessionID.String()})
		require.NoError(t, err)
	})

	t.Run("unknown channel surfaces not found", func(t *testing.T) {
		f := newMessageServiceFixture(t, false)
		channelID := uuid.New()
		f.channelRepo.On("FindByID", ctx, channelID).Return(nil, shared.ErrNotFound)

		_, _, err := f.service.ListByChannel(ctx, channelID, ChannelMessageListFilter{})
		require.Error(t, err)
	})
}

func TestMessageServiceListBySession(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the session's messages", func(t *testing.T) {
		f := newMessageServiceFixture(t, false)
		session := activeSession(t, uuid.New(), "+14155550123", time.Now())
		message, err := messaging.NewInboundMessage(session.ID, messaging.MessageTypeText, "hi", "+14155550123", "+14155550100", "SM1")
		require.NoError(t, err)

		f.sessionRepo.On("FindByID", ctx, session.ID).Return(session, nil)
		f.messageRepo.On("FindBySession", ctx, session.ID, mock.AnythingOfType("shared.Filter")).
			Return([]messaging.Message{*message}, int64(1), nil)

		responses, total, err := f.service.ListBySession(ctx, session.ID, MessageListFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, responses, 1)
		assert.Equal(t, message.ID, responses[0].ID)
	})

	t.Run("limit and offset reach the store", func(t *testing.T) {
		f := newMessageServiceFixture(t, false)
		session := activeSession(t, uuid.New(), "+14155550123", time.Now())

		f.sessionRepo.On("FindByID", ctx, session.ID).Return(session, nil)
		f.messageRepo.On("FindBySession", ctx, session.ID, mock.MatchedBy(func(filter shared.Filter) bool {
			return filter.Limit == 5 && filter.Offset == 10
		})).Return([]messaging.Message{}, int64(0), nil)

		_, _, err := f.service.ListBySession(ctx, session.ID, MessageListFilter{Limit: 5, Offset: 10})
		require.NoError(t, err)
		f.messageRepo.AssertExpectations(t)
	})

	t.Run("unknown session surfaces not found", func(t *testing.T) {
		f := newMessageServiceFixture(t, false)
		sessionID := uuid.New()
		f.sessionRepo.On("FindByID", ctx, sessionID).Return(nil, shared.ErrNotFound)

		_, _, err := f.service.ListBySession(ctx, sessionID, MessageListFilter{})
		require.Error(t, err)
	})
}
