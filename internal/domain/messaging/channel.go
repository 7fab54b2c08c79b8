package messaging

import (
	"regexp"
	"strings"
	"time"

	"github.com/chatrelay/backend/internal/domain/shared"
)

// CommunicationType represents the transport a conversation happens over.
// It partitions sessions: an SMS exchange and a WhatsApp exchange with the
// same remote number are separate conversations.
type CommunicationType string

const (
	CommunicationTypeSMS      CommunicationType = "sms"
	CommunicationTypeWhatsApp CommunicationType = "whatsapp"
	CommunicationTypeVoice    CommunicationType = "voice"
)

// IsValid reports whether the communication type is a known value
func (t CommunicationType) IsValid() bool {
	switch t {
	case CommunicationTypeSMS, CommunicationTypeWhatsApp, CommunicationTypeVoice:
		return true
	}
	return false
}

// Label returns a human-readable label ("Sms" -> "SMS", "whatsapp" -> "WhatsApp")
func (t CommunicationType) Label() string {
	switch t {
	case CommunicationTypeSMS:
		return "SMS"
	case CommunicationTypeWhatsApp:
		return "WhatsApp"
	case CommunicationTypeVoice:
		return "Voice"
	}
	return string(t)
}

// ChannelStatus represents the lifecycle status of a channel
type ChannelStatus string

const (
	ChannelStatusActive    ChannelStatus = "active"
	ChannelStatusInactive  ChannelStatus = "inactive"
	ChannelStatusSuspended ChannelStatus = "suspended"
)

// IsValid reports whether the channel status is a known value
func (s ChannelStatus) IsValid() bool {
	switch s {
	case ChannelStatusActive, ChannelStatusInactive, ChannelStatusSuspended:
		return true
	}
	return false
}

var phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

// Channel represents a provisioned phone-number endpoint through which
// conversations of one communication type occur.
// It is the aggregate root for channel-related operations.
type Channel struct {
	shared.BaseAggregateRoot
	Name        string            `gorm:"type:varchar(200);not null"`
	PhoneNumber string            `gorm:"type:varchar(50);not null;index"`
	CountryCode string            `gorm:"type:varchar(10);not null"`
	Type        CommunicationType `gorm:"type:varchar(20);not null;default:'whatsapp'"`
	Status      ChannelStatus     `gorm:"type:varchar(20);not null;default:'active'"`
	ProviderSID string            `gorm:"type:varchar(100)"`
}

// TableName returns the table name for GORM
func (Channel) TableName() string {
	return "channels"
}

// NewChannel creates a new channel with required fields
func NewChannel(name, phoneNumber, countryCode string, channelType CommunicationType) (*Channel, error) {
	if err := validateChannelName(name); err != nil {
		return nil, err
	}
	if err := ValidatePhoneNumber(phoneNumber); err != nil {
		return nil, err
	}
	if !channelType.IsValid() {
		return nil, shared.NewDomainError("INVALID_CHANNEL_TYPE", "Channel type must be sms, whatsapp or voice")
	}

	channel := &Channel{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		PhoneNumber:       phoneNumber,
		CountryCode:       countryCode,
		Type:              channelType,
		Status:            ChannelStatusActive,
	}

	channel.AddDomainEvent(NewChannelCreatedEvent(channel, false))

	return channel, nil
}

// NewAutoProvisionedChannel creates a minimal active channel for a local
// number seen for the first time on an inbound event. Inbound traffic is
// never dropped for lack of provisioning.
func NewAutoProvisionedChannel(phoneNumber string, channelType CommunicationType) (*Channel, error) {
	if err := ValidatePhoneNumber(phoneNumber); err != nil {
		return nil, err
	}
	if !channelType.IsValid() {
		return nil, shared.NewDomainError("INVALID_CHANNEL_TYPE", "Channel type must be sms, whatsapp or voice")
	}

	channel := &Channel{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              channelType.Label() + " " + phoneNumber,
		PhoneNumber:       phoneNumber,
		Type:              channelType,
		Status:            ChannelStatusActive,
	}

	channel.AddDomainEvent(NewChannelCreatedEvent(channel, true))

	return channel, nil
}

// Update updates the channel's basic information
func (c *Channel) Update(name, countryCode string) error {
	if err := validateChannelName(name); err != nil {
		return err
	}

	c.Name = name
	c.CountryCode = countryCode
	c.UpdatedAt = time.Now()
	c.IncrementVersion()

	return nil
}

// SetStatus changes the channel's lifecycle status
func (c *Channel) SetStatus(status ChannelStatus) error {
	if !status.IsValid() {
		return shared.NewDomainError("INVALID_CHANNEL_STATUS", "Channel status must be active, inactive or suspended")
	}
	if c.Status == status {
		return nil
	}

	old := c.Status
	c.Status = status
	c.UpdatedAt = time.Now()
	c.IncrementVersion()

	c.AddDomainEvent(NewChannelStatusChangedEvent(c, old, status))

	return nil
}

// SetProviderSID records the provider-assigned identifier for this number
func (c *Channel) SetProviderSID(sid string) {
	c.ProviderSID = sid
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
}

// IsActive reports whether the channel can carry traffic
func (c *Channel) IsActive() bool {
	return c.Status == ChannelStatusActive
}

func validateChannelName(name string) error {
	if strings.TrimSpace(name) == "" {
		return shared.NewDomainError("INVALID_CHANNEL_NAME", "Channel name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_CHANNEL_NAME", "Channel name cannot exceed 200 characters")
	}
	return nil
}

// ValidatePhoneNumber validates an E.164-style phone number
func ValidatePhoneNumber(phone string) error {
	if phone == "" {
		return shared.NewDomainError("INVALID_PHONE", "Phone number cannot be empty")
	}
	if !phonePattern.MatchString(phone) {
		return shared.NewDomainError("INVALID_PHONE", "Phone number must be digits with an optional leading +")
	}
	return nil
}
