package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/chatrelay/backend/internal/domain/messaging"
	"github.com/chatrelay/backend/internal/domain/shared"
)

// ChannelModel is the persistence model for the Channel domain entity.
type ChannelModel struct {
	AggregateModel
	Name        string                      `gorm:"type:varchar(200);not null"`
	PhoneNumber string                      `gorm:"type:varchar(50);not null;uniqueIndex:idx_channel_number_type,priority:1"`
	CountryCode string                      `gorm:"type:varchar(10)"`
	Type        messaging.CommunicationType `gorm:"type:varchar(20);not null;uniqueIndex:idx_channel_number_type,priority:2"`
	Status      messaging.ChannelStatus     `gorm:"type:varchar(20);not null;default:'active';index"`
	ProviderSID string                      `gorm:"column:provider_sid;type:varchar(100)"`
}

// TableName returns the table name for GORM
func (ChannelModel) TableName() string {
	return "channels"
}

// ToDomain converts the persistence model to a domain Channel entity.
func (m *ChannelModel) ToDomain() *messaging.Channel {
	return &messaging.Channel{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		Name:        m.Name,
		PhoneNumber: m.PhoneNumber,
		CountryCode: m.CountryCode,
		Type:        m.Type,
		Status:      m.Status,
		ProviderSID: m.ProviderSID,
	}
}

// FromDomain populates the persistence model from a domain Channel entity.
func (m *ChannelModel) FromDomain(c *messaging.Channel) {
	m.FromDomainAggregateRoot(c.BaseAggregateRoot)
	m.Name = c.Name
	m.PhoneNumber = c.PhoneNumber
	m.CountryCode = c.CountryCode
	m.Type = c.Type
	m.Status = c.Status
	m.ProviderSID = c.ProviderSID
}

// ChannelModelFromDomain creates a new persistence model from a domain Channel entity.
func ChannelModelFromDomain(c *messaging.Channel) *ChannelModel {
	m := &ChannelModel{}
	m.FromDomain(c)
	return m
}

// ContactModel is the persistence model for the Contact domain entity.
type ContactModel struct {
	AggregateModel
	Name        string `gorm:"type:varchar(200);not null"`
	PhoneNumber string `gorm:"type:varchar(50);not null;index"`
	Email       string `gorm:"type:varchar(255)"`
	Notes       string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (ContactModel) TableName() string {
	return "contacts"
}

// ToDomain converts the persistence model to a domain Contact entity.
func (m *ContactModel) ToDomain() *messaging.Contact {
	return &messaging.Contact{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		Name:        m.Name,
		PhoneNumber: m.PhoneNumber,
		Email:       m.Email,
		Notes:       m.Notes,
	}
}

// FromDomain populates the persistence model from a domain Contact entity.
func (m *ContactModel) FromDomain(c *messaging.Contact) {
	m.FromDomainAggregateRoot(c.BaseAggregateRoot)
	m.Name = c.Name
	m.PhoneNumber = c.PhoneNumber
	m.Email = c.Email
	m.Notes = c.Notes
}

// ContactModelFromDomain creates a new persistence model from a domain Contact entity.
func ContactModelFromDomain(c *messaging.Contact) *ContactModel {
	m := &ContactModel{}
	m.FromDomain(c)
	return m
}

// SessionModel is the persistence model for the Session domain entity.
type SessionModel struct {
	AggregateModel
	ChannelID     uuid.UUID                   `gorm:"type:uuid;not null;index:idx_session_channel;index:idx_session_affinity,priority:1"`
	Title         string                      `gorm:"type:varchar(200);not null"`
	Description   string                      `gorm:"type:text"`
	Type          messaging.CommunicationType `gorm:"type:varchar(20);not null;index:idx_session_affinity,priority:2"`
	Status        messaging.SessionStatus     `gorm:"type:varchar(20);not null;default:'active';index"`
	RemoteNumber  string                      `gorm:"type:varchar(50);index:idx_session_affinity,priority:3"`
	MessageCount  int64                       `gorm:"not null;default:0"`
	LastMessageAt time.Time                   `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (SessionModel) TableName() string {
	return "sessions"
}

// ToDomain converts the persistence model to a domain Session entity.
func (m *SessionModel) ToDomain() *messaging.Session {
	return &messaging.Session{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		ChannelID:     m.ChannelID,
		Title:         m.Title,
		Description:   m.Description,
		Type:          m.Type,
		Status:        m.Status,
		RemoteNumber:  m.RemoteNumber,
		MessageCount:  m.MessageCount,
		LastMessageAt: m.LastMessageAt,
	}
}

// FromDomain populates the persistence model from a domain Session entity.
func (m *SessionModel) FromDomain(s *messaging.Session) {
	m.FromDomainAggregateRoot(s.BaseAggregateRoot)
	m.ChannelID = s.ChannelID
	m.Title = s.Title
	m.Description = s.Description
	m.Type = s.Type
	m.Status = s.Status
	m.RemoteNumber = s.RemoteNumber
	m.MessageCount = s.MessageCount
	m.LastMessageAt = s.LastMessageAt
}

// SessionModelFromDomain creates a new persistence model from a domain Session entity.
func SessionModelFromDomain(s *messaging.Session) *SessionModel {
	m := &SessionModel{}
	m.FromDomain(s)
	return m
}

// MessageModel is the persistence model for the Message domain entity.
type MessageModel struct {
	AggregateModel
	SessionID    uuid.UUID                  `gorm:"type:uuid;not null;index"`
	Sender       messaging.SenderKind       `gorm:"type:varchar(20);not null"`
	Direction    messaging.MessageDirection `gorm:"type:varchar(20);not null"`
	AuthoredBy   messaging.MessageAuthor    `gorm:"type:varchar(20);not null"`
	Type         messaging.MessageType      `gorm:"type:varchar(20);not null;default:'text'"`
	Status       messaging.MessageStatus    `gorm:"type:varchar(20);not null;index"`
	Body         string                     `gorm:"type:text;not null"`
	FromNumber   string                     `gorm:"type:varchar(50)"`
	ToNumber     string                     `gorm:"type:varchar(50)"`
	ProviderSID  string                     `gorm:"column:provider_sid;type:varchar(100);index"`
	InResponseTo *uuid.UUID                 `gorm:"type:uuid"`
	GeneratedBy  string                     `gorm:"type:varchar(50)"`
	FailReason   string                     `gorm:"type:varchar(255)"`
}

// TableName returns the table name for GORM
func (MessageModel) TableName() string {
	return "messages"
}

// ToDomain converts the persistence model to a domain Message entity.
func (m *MessageModel) ToDomain() *messaging.Message {
	return &messaging.Message{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		SessionID:    m.SessionID,
		Sender:       m.Sender,
		Direction:    m.Direction,
		AuthoredBy:   m.AuthoredBy,
		Type:         m.Type,
		Status:       m.Status,
		Body:         m.Body,
		FromNumber:   m.FromNumber,
		ToNumber:     m.ToNumber,
		ProviderSID:  m.ProviderSID,
		InResponseTo: m.InResponseTo,
		GeneratedBy:  m.GeneratedBy,
		FailReason:   m.FailReason,
	}
}

// FromDomain populates the persistence model from a domain Message entity.
func (m *MessageModel) FromDomain(msg *messaging.Message) {
	m.FromDomainAggregateRoot(msg.BaseAggregateRoot)
	m.SessionID = msg.SessionID
	m.Sender = msg.Sender
	m.Direction = msg.Direction
	m.AuthoredBy = msg.AuthoredBy
	m.Type = msg.Type
	m.Status = msg.Status
	m.Body = msg.Body
	m.FromNumber = msg.FromNumber
	m.ToNumber = msg.ToNumber
	m.ProviderSID = msg.ProviderSID
	m.InResponseTo = msg.InResponseTo
	m.GeneratedBy = msg.GeneratedBy
	m.FailReason = msg.FailReason
}

// MessageModelFromDomain creates a new persistence model from a domain Message entity.
func MessageModelFromDomain(msg *messaging.Message) *MessageModel {
	m := &MessageModel{}
	m.FromDomain(msg)
	return m
}
