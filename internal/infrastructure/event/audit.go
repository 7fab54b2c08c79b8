package event

import (
	"context"

	"go.uber.org/zap"

	"github.com/chatrelay/backend/internal/domain/messaging"
	"github.com/chatrelay/backend/internal/domain/shared"
)

// AuditHandler writes a structured log line for every messaging domain event.
// It is subscribed as a wildcard handler so new event types are picked up
// without registration changes.
type AuditHandler struct {
	logger *zap.Logger
}

// NewAuditHandler creates an audit handler backed by the given logger
func NewAuditHandler(logger *zap.Logger) *AuditHandler {
	return &AuditHandler{logger: logger.Named("audit")}
}

// Handle logs the event with type-specific fields where available
func (h *AuditHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_id", event.EventID().String()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
	}

	switch e := event.(type) {
	case *messaging.ChannelCreatedEvent:
		fields = append(fields,
			zap.String("phone_number", e.PhoneNumber),
			zap.String("channel_type", string(e.Type)),
			zap.Bool("auto_provisioned", e.AutoProvisioned),
		)
	case *messaging.SessionStartedEvent:
		fields = append(fields,
			zap.String("channel_id", e.ChannelID),
			zap.String("session_type", string(e.Type)),
		)
	case *messaging.MessageRecordedEvent:
		fields = append(fields,
			zap.String("session_id", e.SessionID),
			zap.String("direction", string(e.Direction)),
			zap.String("authored_by", string(e.AuthoredBy)),
			zap.String("message_type", string(e.Type)),
		)
	case *messaging.MessageStatusChangedEvent:
		fields = append(fields,
			zap.String("session_id", e.SessionID),
			zap.String("old_status", string(e.OldStatus)),
			zap.String("new_status", string(e.NewStatus)),
		)
	}

	h.logger.Info(event.EventType(), fields...)
	return nil
}

// EventTypes returns an empty slice so the handler receives every event
func (h *AuditHandler) EventTypes() []string {
	return nil
}

var _ shared.EventHandler = (*AuditHandler)(nil)
