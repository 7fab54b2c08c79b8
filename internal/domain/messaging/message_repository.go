package messaging

import (
	"context"

	"github.com/google/uuid"

	"github.com/chatrelay/backend/internal/domain/shared"
)

// MessageRepository defines the interface for message persistence
type MessageRepository interface {
	shared.Repository[Message]

	// FindBySession finds messages belonging to a session, oldest first
	FindBySession(ctx context.Context, sessionID uuid.UUID, filter shared.Filter) ([]Message, int64, error)

	// FindByChannel finds messages across all of a channel's sessions,
	// oldest first. The session_id filter narrows to one session.
	FindByChannel(ctx context.Context, channelID uuid.UUID, filter shared.Filter) ([]Message, int64, error)

	// DeleteBySession removes every message belonging to a session
	DeleteBySession(ctx context.Context, sessionID uuid.UUID) error

	// FindByProviderSID finds the message carrying a provider-assigned
	// identifier. Status callbacks reference messages this way. Returns
	// shared.ErrNotFound when no message carries the identifier.
	FindByProviderSID(ctx context.Context, providerSID string) (*Message, error)
}
