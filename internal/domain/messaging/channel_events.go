package messaging

import "github.com/chatrelay/backend/internal/domain/shared"

// Event type constants for channel events
const (
	EventTypeChannelCreated       = "channel.created"
	EventTypeChannelStatusChanged = "channel.status_changed"
)

// ChannelCreatedEvent is published when a channel is created, either by an
// operator or by auto-provisioning on first inbound traffic
type ChannelCreatedEvent struct {
	shared.BaseDomainEvent
	Name            string            `json:"name"`
	PhoneNumber     string            `json:"phone_number"`
	Type            CommunicationType `json:"type"`
	AutoProvisioned bool              `json:"auto_provisioned"`
}

// NewChannelCreatedEvent creates a new channel created event
func NewChannelCreatedEvent(channel *Channel, autoProvisioned bool) *ChannelCreatedEvent {
	return &ChannelCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeChannelCreated, "Channel", channel.ID),
		Name:            channel.Name,
		PhoneNumber:     channel.PhoneNumber,
		Type:            channel.Type,
		AutoProvisioned: autoProvisioned,
	}
}

// ChannelStatusChangedEvent is published when a channel's status changes
type ChannelStatusChangedEvent struct {
	shared.BaseDomainEvent
	OldStatus ChannelStatus `json:"old_status"`
	NewStatus ChannelStatus `json:"new_status"`
}

// NewChannelStatusChangedEvent creates a new channel status changed event
func NewChannelStatusChangedEvent(channel *Channel, oldStatus, newStatus ChannelStatus) *ChannelStatusChangedEvent {
	return &ChannelStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeChannelStatusChanged, "Channel", channel.ID),
		OldStatus:       oldStatus,
		NewStatus:       newStatus,
	}
}
