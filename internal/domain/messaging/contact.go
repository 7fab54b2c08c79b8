package messaging

import (
	"strings"
	"time"

	"github.com/chatrelay/backend/internal/domain/shared"
)

// Contact represents a remote party reachable over one or more channels.
// Contacts are the counterpart of the local operator in a session.
type Contact struct {
	shared.BaseAggregateRoot
	Name        string `gorm:"type:varchar(200);not null"`
	PhoneNumber string `gorm:"type:varchar(50);not null;index"`
	Email       string `gorm:"type:varchar(255)"`
	Notes       string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (Contact) TableName() string {
	return "contacts"
}

// NewContact creates a new contact with required fields
func NewContact(name, phoneNumber string) (*Contact, error) {
	if err := validateContactName(name); err != nil {
		return nil, err
	}
	if err := ValidatePhoneNumber(phoneNumber); err != nil {
		return nil, err
	}

	return &Contact{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		PhoneNumber:       phoneNumber,
	}, nil
}

// Update updates the contact's basic information
func (c *Contact) Update(name, email, notes string) error {
	if err := validateContactName(name); err != nil {
		return err
	}
	if email != "" && !strings.Contains(email, "@") {
		return shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
	}

	c.Name = name
	c.Email = email
	c.Notes = notes
	c.UpdatedAt = time.Now()
	c.IncrementVersion()

	return nil
}

func validateContactName(name string) error {
	if strings.TrimSpace(name) == "" {
		return shared.NewDomainError("INVALID_CONTACT_NAME", "Contact name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_CONTACT_NAME", "Contact name cannot exceed 200 characters")
	}
	return nil
}
