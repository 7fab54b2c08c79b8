package messaging

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInboundMessage(t *testing.T) {
	sessionID := uuid.New()

	t.Run("records a received message from the remote party", func(t *testing.T) {
		message, err := NewInboundMessage(sessionID, MessageTypeText, "hello", "+14155550123", "+14155550100", "SM123")
		require.NoError(t, err)
		require.NotNil(t, message)

		assert.Equal(t, sessionID, message.SessionID)
		assert.Equal(t, SenderUser, message.Sender)
		assert.Equal(t, DirectionInbound, message.Direction)
		assert.Equal(t, AuthorRemoteParty, message.AuthoredBy)
		assert.Equal(t, MessageStatusReceived, message.Status)
		assert.Equal(t, "SM123", message.ProviderSID)
	})

	t.Run("publishes MessageRecorded event", func(t *testing.T) {
		message, err := NewInboundMessage(sessionID, MessageTypeMMS, "photo", "+14155550123", "+14155550100", "MM456")
		require.NoError(t, err)

		events := message.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeMessageRecorded, events[0].EventType())
	})

	t.Run("fails without a session", func(t *testing.T) {
		_, err := NewInboundMessage(uuid.Nil, MessageTypeText, "hello", "", "", "")
		require.Error(t, err)
	})

	t.Run("fails with empty body", func(t *testing.T) {
		_, err := NewInboundMessage(sessionID, MessageTypeText, "   ", "", "", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "body cannot be empty")
	})

	t.Run("fails with oversized body", func(t *testing.T) {
		_, err := NewInboundMessage(sessionID, MessageTypeText, strings.Repeat("a", maxMessageBodyLength+1), "", "", "")
		require.Error(t, err)
	})
}

func TestNewOperatorMessage(t *testing.T) {
	message, err := NewOperatorMessage(uuid.New(), MessageTypeText, "on our way", "+14155550100", "+14155550123")
	require.NoError(t, err)

	assert.Equal(t, SenderUser, message.Sender)
	assert.Equal(t, DirectionOutbound, message.Direction)
	assert.Equal(t, AuthorLocalOperator, message.AuthoredBy)
	assert.Equal(t, MessageStatusQueued, message.Status)
	assert.Empty(t, message.ProviderSID)
}

func TestNewAutomatedReplyMessage(t *testing.T) {
	inboundID := uuid.New()
	message, err := NewAutomatedReplyMessage(uuid.New(), "thanks for reaching out", inboundID, "mock")
	require.NoError(t, err)

	assert.Equal(t, SenderContact, message.Sender)
	assert.Equal(t, DirectionOutbound, message.Direction)
	assert.Equal(t, AuthorAutomatedReply, message.AuthoredBy)
	assert.Equal(t, MessageStatusQueued, message.Status)
	require.NotNil(t, message.InResponseTo)
	assert.Equal(t, inboundID, *message.InResponseTo)
	assert.Equal(t, "mock", message.GeneratedBy)
}

func TestMessageStatusTransitions(t *testing.T) {
	newOutbound := func(t *testing.T) *Message {
		message, err := NewOperatorMessage(uuid.New(), MessageTypeText, "hello", "+14155550100", "+14155550123")
		require.NoError(t, err)
		message.ClearDomainEvents()
		return message
	}

	t.Run("mark sent records the provider identifier", func(t *testing.T) {
		message := newOutbound(t)

		require.NoError(t, message.MarkSent("SM789"))
		assert.Equal(t, MessageStatusSent, message.Status)
		assert.Equal(t, "SM789", message.ProviderSID)

		events := message.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeMessageStatusChanged, events[0].EventType())
	})

	t.Run("mark sent rejects inbound messages", func(t *testing.T) {
		message, err := NewInboundMessage(uuid.New(), MessageTypeText, "hi", "", "", "SM1")
		require.NoError(t, err)
		require.Error(t, message.MarkSent("SM2"))
	})

	t.Run("delivery progress never regresses", func(t *testing.T) {
		message := newOutbound(t)
		require.NoError(t, message.MarkSent("SM789"))
		require.NoError(t, message.UpdateStatus(MessageStatusDelivered))

		// A late "sent" callback after delivery is ignored
		require.NoError(t, message.UpdateStatus(MessageStatusSent))
		assert.Equal(t, MessageStatusDelivered, message.Status)
	})

	t.Run("read receipt advances past delivered and sticks", func(t *testing.T) {
		message := newOutbound(t)
		require.NoError(t, message.MarkSent("SM789"))
		require.NoError(t, message.UpdateStatus(MessageStatusDelivered))
		require.NoError(t, message.UpdateStatus(MessageStatusRead))
		assert.Equal(t, MessageStatusRead, message.Status)

		// A late "delivered" callback after the read receipt is ignored
		require.NoError(t, message.UpdateStatus(MessageStatusDelivered))
		assert.Equal(t, MessageStatusRead, message.Status)
	})

	t.Run("repeated status is a no-op", func(t *testing.T) {
		message := newOutbound(t)
		require.NoError(t, message.MarkSent("SM789"))
		message.ClearDomainEvents()

		require.NoError(t, message.UpdateStatus(MessageStatusSent))
		assert.Empty(t, message.GetDomainEvents())
	})

	t.Run("mark failed records the reason", func(t *testing.T) {
		message := newOutbound(t)
		require.NoError(t, message.MarkFailed("carrier rejected"))
		assert.Equal(t, MessageStatusFailed, message.Status)
		assert.Equal(t, "carrier rejected", message.FailReason)
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		message := newOutbound(t)
		require.Error(t, message.UpdateStatus(MessageStatus("bounced")))
	})
}
