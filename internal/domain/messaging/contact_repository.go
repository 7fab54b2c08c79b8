package messaging

import (
	"context"

	"github.com/chatrelay/backend/internal/domain/shared"
)

// ContactRepository defines the interface for contact persistence
type ContactRepository interface {
	shared.Repository[Contact]

	// FindByPhoneNumber finds a contact by phone number. Returns
	// shared.ErrNotFound when no contact has the number.
	FindByPhoneNumber(ctx context.Context, phoneNumber string) (*Contact, error)
}
