package messaging

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chatrelay/backend/internal/domain/shared"
)

// SenderKind identifies which side of the conversation produced a message
type SenderKind string

const (
	SenderUser    SenderKind = "user"
	SenderContact SenderKind = "contact"
)

// MessageDirection distinguishes traffic arriving from the provider from
// traffic we hand to the provider
type MessageDirection string

const (
	DirectionInbound  MessageDirection = "inbound"
	DirectionOutbound MessageDirection = "outbound"
)

// MessageAuthor records who actually authored the message body
type MessageAuthor string

const (
	AuthorRemoteParty    MessageAuthor = "remote_party"
	AuthorLocalOperator  MessageAuthor = "local_operator"
	AuthorAutomatedReply MessageAuthor = "automated_reply"
)

// MessageType represents the payload kind of a message
type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
	MessageTypeVideo MessageType = "video"
	MessageTypeAudio MessageType = "audio"
	MessageTypeFile  MessageType = "file"
	MessageTypeMMS   MessageType = "mms"
	MessageTypeCall  MessageType = "call"
)

// IsValid reports whether the message type is a known value
func (t MessageType) IsValid() bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeVideo, MessageTypeAudio,
		MessageTypeFile, MessageTypeMMS, MessageTypeCall:
		return true
	}
	return false
}

// MessageStatus represents the delivery state of a message
type MessageStatus string

const (
	MessageStatusReceived  MessageStatus = "received"
	MessageStatusQueued    MessageStatus = "queued"
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusRead      MessageStatus = "read"
	MessageStatusFailed    MessageStatus = "failed"
)

// IsValid reports whether the message status is a known value
func (s MessageStatus) IsValid() bool {
	switch s {
	case MessageStatusReceived, MessageStatusQueued, MessageStatusSent,
		MessageStatusDelivered, MessageStatusRead, MessageStatusFailed:
		return true
	}
	return false
}

// deliveryRank orders the outbound delivery progression. Unranked states
// (received, failed) sit outside the progression.
var deliveryRank = map[MessageStatus]int{
	MessageStatusQueued:    1,
	MessageStatusSent:      2,
	MessageStatusDelivered: 3,
	MessageStatusRead:      4,
}

const maxMessageBodyLength = 4096

// Message represents a single message inside a session. Inbound messages
// are recorded as received; outbound messages start queued and advance as
// the provider reports delivery progress.
type Message struct {
	shared.BaseAggregateRoot
	SessionID    uuid.UUID        `gorm:"type:varchar(36);not null;index"`
	Sender       SenderKind       `gorm:"type:varchar(20);not null"`
	Direction    MessageDirection `gorm:"type:varchar(20);not null"`
	AuthoredBy   MessageAuthor    `gorm:"type:varchar(20);not null"`
	Type         MessageType      `gorm:"type:varchar(20);not null;default:'text'"`
	Status       MessageStatus    `gorm:"type:varchar(20);not null;index"`
	Body         string           `gorm:"type:text;not null"`
	FromNumber   string           `gorm:"type:varchar(50)"`
	ToNumber     string           `gorm:"type:varchar(50)"`
	ProviderSID  string           `gorm:"type:varchar(100);index"`
	InResponseTo *uuid.UUID       `gorm:"type:varchar(36)"`
	GeneratedBy  string           `gorm:"type:varchar(50)"`
	FailReason   string           `gorm:"type:varchar(255)"`
}

// TableName returns the table name for GORM
func (Message) TableName() string {
	return "messages"
}

// NewInboundMessage records a message that arrived from the remote party
func NewInboundMessage(sessionID uuid.UUID, msgType MessageType, body, fromNumber, toNumber, providerSID string) (*Message, error) {
	if err := validateMessage(sessionID, msgType, body); err != nil {
		return nil, err
	}

	message := &Message{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SessionID:         sessionID,
		Sender:            SenderUser,
		Direction:         DirectionInbound,
		AuthoredBy:        AuthorRemoteParty,
		Type:              msgType,
		Status:            MessageStatusReceived,
		Body:              body,
		FromNumber:        fromNumber,
		ToNumber:          toNumber,
		ProviderSID:       providerSID,
	}

	message.AddDomainEvent(NewMessageRecordedEvent(message))

	return message, nil
}

// NewOperatorMessage records a message authored by a local operator for
// delivery to the remote party
func NewOperatorMessage(sessionID uuid.UUID, msgType MessageType, body, fromNumber, toNumber string) (*Message, error) {
	if err := validateMessage(sessionID, msgType, body); err != nil {
		return nil, err
	}

	message := &Message{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SessionID:         sessionID,
		Sender:            SenderUser,
		Direction:         DirectionOutbound,
		AuthoredBy:        AuthorLocalOperator,
		Type:              msgType,
		Status:            MessageStatusQueued,
		Body:              body,
		FromNumber:        fromNumber,
		ToNumber:          toNumber,
	}

	message.AddDomainEvent(NewMessageRecordedEvent(message))

	return message, nil
}

// NewAutomatedReplyMessage records a generated reply to an inbound message.
// generatedBy names the generator backend that produced the body.
func NewAutomatedReplyMessage(sessionID uuid.UUID, body string, inResponseTo uuid.UUID, generatedBy string) (*Message, error) {
	if err := validateMessage(sessionID, MessageTypeText, body); err != nil {
		return nil, err
	}

	responseTo := inResponseTo
	message := &Message{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SessionID:         sessionID,
		Sender:            SenderContact,
		Direction:         DirectionOutbound,
		AuthoredBy:        AuthorAutomatedReply,
		Type:              MessageTypeText,
		Status:            MessageStatusQueued,
		Body:              body,
		InResponseTo:      &responseTo,
		GeneratedBy:       generatedBy,
	}

	message.AddDomainEvent(NewMessageRecordedEvent(message))

	return message, nil
}

// MarkSent records that the provider accepted the message, along with the
// identifier the provider assigned to it
func (m *Message) MarkSent(providerSID string) error {
	if m.Direction != DirectionOutbound {
		return shared.NewDomainError("INVALID_MESSAGE_STATE", "Only outbound messages can be marked sent")
	}

	m.ProviderSID = providerSID
	return m.transitionStatus(MessageStatusSent)
}

// MarkFailed records that the message could not be delivered
func (m *Message) MarkFailed(reason string) error {
	m.FailReason = reason
	return m.transitionStatus(MessageStatusFailed)
}

// UpdateStatus applies a delivery status reported by the provider
func (m *Message) UpdateStatus(status MessageStatus) error {
	if !status.IsValid() {
		return shared.NewDomainError("INVALID_MESSAGE_STATUS", "Unknown message status: "+string(status))
	}
	return m.transitionStatus(status)
}

func (m *Message) transitionStatus(status MessageStatus) error {
	if m.Status == status {
		return nil
	}
	// Delivery progress only moves forward; a late "sent" callback must not
	// regress a message already reported delivered or read.
	if current, ok := deliveryRank[m.Status]; ok {
		if next, ranked := deliveryRank[status]; ranked && next < current {
			return nil
		}
	}

	old := m.Status
	m.Status = status
	m.UpdatedAt = time.Now()
	m.IncrementVersion()

	m.AddDomainEvent(NewMessageStatusChangedEvent(m, old, status))

	return nil
}

func validateMessage(sessionID uuid.UUID, msgType MessageType, body string) error {
	if sessionID == uuid.Nil {
		return shared.NewDomainError("INVALID_SESSION", "Message requires a session")
	}
	if !msgType.IsValid() {
		return shared.NewDomainError("INVALID_MESSAGE_TYPE", "Unknown message type: "+string(msgType))
	}
	if strings.TrimSpace(body) == "" {
		return shared.NewDomainError("INVALID_MESSAGE_BODY", "Message body cannot be empty")
	}
	if len(body) > maxMessageBodyLength {
		return shared.NewDomainError("INVALID_MESSAGE_BODY", "Message body cannot exceed 4096 characters")
	}
	return nil
}
