package messaging

import "github.com/chatrelay/backend/internal/domain/shared"

// Event type constants for message events
const (
	EventTypeMessageRecorded      = "message.recorded"
	EventTypeMessageStatusChanged = "message.status_changed"
)

// MessageRecordedEvent is published when a message is recorded on a session
type MessageRecordedEvent struct {
	shared.BaseDomainEvent
	SessionID  string           `json:"session_id"`
	Direction  MessageDirection `json:"direction"`
	AuthoredBy MessageAuthor    `json:"authored_by"`
	Type       MessageType      `json:"message_type"`
}

// NewMessageRecordedEvent creates a new message recorded event
func NewMessageRecordedEvent(message *Message) *MessageRecordedEvent {
	return &MessageRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeMessageRecorded, "Message", message.ID),
		SessionID:       message.SessionID.String(),
		Direction:       message.Direction,
		AuthoredBy:      message.AuthoredBy,
		Type:            message.Type,
	}
}

// MessageStatusChangedEvent is published when a message's delivery status
// advances
type MessageStatusChangedEvent struct {
	shared.BaseDomainEvent
	SessionID string        `json:"session_id"`
	OldStatus MessageStatus `json:"old_status"`
	NewStatus MessageStatus `json:"new_status"`
}

// NewMessageStatusChangedEvent creates a new message status changed event
func NewMessageStatusChangedEvent(message *Message, oldStatus, newStatus MessageStatus) *MessageStatusChangedEvent {
	return &MessageStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeMessageStatusChanged, "Message", message.ID),
		SessionID:       message.SessionID.String(),
		OldStatus:       oldStatus,
		NewStatus:       newStatus,
	}
}
