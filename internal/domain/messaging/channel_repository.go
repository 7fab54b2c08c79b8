package messaging

import (
	"context"

	"github.com/chatrelay/backend/internal/domain/shared"
)

// ChannelRepository defines the interface for channel persistence
type ChannelRepository interface {
	shared.Repository[Channel]

	// FindByPhoneNumber finds the channel provisioned for a local number
	// and communication type. Returns shared.ErrNotFound when the number
	// is unknown.
	FindByPhoneNumber(ctx context.Context, phoneNumber string, channelType CommunicationType) (*Channel, error)

	// FindByStatus finds channels with a specific status
	FindByStatus(ctx context.Context, status ChannelStatus, filter shared.Filter) ([]Channel, error)
}
