package messaging

import (
	"context"

	"github.com/google/uuid"
)

// Broadcast event names pushed to realtime subscribers
const (
	BroadcastMessageNew    = "message:new"
	BroadcastMessageStatus = "message:status"
	BroadcastSessionNew    = "session:new"
)

// BroadcastEvent is a realtime frame destined for subscribers of a channel
type BroadcastEvent struct {
	Event     string      `json:"event"`
	ChannelID uuid.UUID   `json:"channel_id"`
	Payload   interface{} `json:"payload"`
}

// MessageBroadcaster pushes events to realtime subscribers of a channel.
// Delivery is best effort; a subscriber that cannot keep up is dropped
// rather than slowing the pipeline.
type MessageBroadcaster interface {
	Broadcast(ctx context.Context, event BroadcastEvent) error
}

// SendResult carries the provider's acknowledgment of an outbound message
type SendResult struct {
	ProviderSID string
	Status      MessageStatus
}

// MessagingProvider is the gateway to the upstream telephony provider
type MessagingProvider interface {
	// Name identifies the provider backend ("twilio", "mock", ...)
	Name() string

	// SendSMS delivers a text message over SMS and returns the
	// provider-assigned identifier
	SendSMS(ctx context.Context, from, to, body string) (*SendResult, error)

	// SendWhatsApp delivers a text message over WhatsApp and returns the
	// provider-assigned identifier
	SendWhatsApp(ctx context.Context, from, to, body string) (*SendResult, error)
}

// ReplyRequest describes an inbound message a reply should be generated for
type ReplyRequest struct {
	SessionID uuid.UUID
	Body      string
	Type      CommunicationType
}

// ReplyResult is a generated reply body plus the backend that produced it
type ReplyResult struct {
	Body    string
	Backend string
}

// ReplyGenerator produces automated replies to inbound messages. A failing
// generator must never affect recording of the inbound message; callers
// invoke it outside the inbound persistence path.
type ReplyGenerator interface {
	Generate(ctx context.Context, req ReplyRequest) (*ReplyResult, error)
}
