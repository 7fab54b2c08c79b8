package messaging

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/chatrelay/backend/internal/domain/shared"
)

// SessionRepository defines the interface for session persistence
type SessionRepository interface {
	shared.Repository[Session]

	// FindActiveByRemoteNumber finds active sessions on a channel for a
	// remote number and communication type, most recent activity first.
	// The resolver uses the first entry to decide session continuity.
	FindActiveByRemoteNumber(ctx context.Context, channelID uuid.UUID, sessionType CommunicationType, remoteNumber string) ([]Session, error)

	// FindActiveByChannel finds active sessions on a channel for a
	// communication type regardless of remote number, most recent activity
	// first. Serves resolution for events that carry no remote number.
	FindActiveByChannel(ctx context.Context, channelID uuid.UUID, sessionType CommunicationType) ([]Session, error)

	// FindByChannel finds sessions belonging to a channel
	FindByChannel(ctx context.Context, channelID uuid.UUID, filter shared.Filter) ([]Session, int64, error)

	// TouchActivity atomically bumps the session's message count and
	// advances last_message_at. Concurrent recorders must not lose counts,
	// so the increment happens in the store rather than read-modify-write.
	TouchActivity(ctx context.Context, sessionID uuid.UUID, at time.Time) error
}
