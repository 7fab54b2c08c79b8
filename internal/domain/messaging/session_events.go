package messaging

import "github.com/chatrelay/backend/internal/domain/shared"

// Event type constants for session events
const (
	EventTypeSessionStarted       = "session.started"
	EventTypeSessionStatusChanged = "session.status_changed"
)

// SessionStartedEvent is published when a new conversation thread begins
type SessionStartedEvent struct {
	shared.BaseDomainEvent
	ChannelID    string            `json:"channel_id"`
	Type         CommunicationType `json:"type"`
	RemoteNumber string            `json:"remote_number"`
}

// NewSessionStartedEvent creates a new session started event
func NewSessionStartedEvent(session *Session) *SessionStartedEvent {
	return &SessionStartedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSessionStarted, "Session", session.ID),
		ChannelID:       session.ChannelID.String(),
		Type:            session.Type,
		RemoteNumber:    session.RemoteNumber,
	}
}

// SessionStatusChangedEvent is published when a session's status changes
type SessionStatusChangedEvent struct {
	shared.BaseDomainEvent
	OldStatus SessionStatus `json:"old_status"`
	NewStatus SessionStatus `json:"new_status"`
}

// NewSessionStatusChangedEvent creates a new session status changed event
func NewSessionStatusChangedEvent(session *Session, oldStatus, newStatus SessionStatus) *SessionStatusChangedEvent {
	return &SessionStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSessionStatusChanged, "Session", session.ID),
		OldStatus:       oldStatus,
		NewStatus:       newStatus,
	}
}
