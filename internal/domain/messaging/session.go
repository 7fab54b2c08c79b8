package messaging

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chatrelay/backend/internal/domain/shared"
)

// SessionStatus represents the lifecycle status of a session
type SessionStatus string

const (
	SessionStatusActive   SessionStatus = "active"
	SessionStatusArchived SessionStatus = "archived"
	SessionStatusClosed   SessionStatus = "closed"
)

// IsValid reports whether the session status is a known value
func (s SessionStatus) IsValid() bool {
	switch s {
	case SessionStatusActive, SessionStatusArchived, SessionStatusClosed:
		return true
	}
	return false
}

// Session represents one conversation thread between a remote party and a
// channel. Consecutive inbound traffic from the same remote number within
// the idle window lands on the same session; after the window lapses a new
// session is started.
type Session struct {
	shared.BaseAggregateRoot
	ChannelID     uuid.UUID         `gorm:"type:varchar(36);not null;index"`
	Title         string            `gorm:"type:varchar(200);not null"`
	Description   string            `gorm:"type:text"`
	Type          CommunicationType `gorm:"type:varchar(20);not null;index"`
	Status        SessionStatus     `gorm:"type:varchar(20);not null;default:'active';index"`
	RemoteNumber  string            `gorm:"type:varchar(50);not null;index"`
	MessageCount  int64             `gorm:"not null;default:0"`
	LastMessageAt time.Time         `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (Session) TableName() string {
	return "sessions"
}

// NewSession starts a new conversation thread on a channel
func NewSession(channelID uuid.UUID, sessionType CommunicationType, remoteNumber, title string) (*Session, error) {
	if channelID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CHANNEL", "Session requires a channel")
	}
	if !sessionType.IsValid() {
		return nil, shared.NewDomainError("INVALID_SESSION_TYPE", "Session type must be sms, whatsapp or voice")
	}
	if title == "" {
		title = defaultSessionTitle(sessionType, remoteNumber)
	}
	if len(title) > 200 {
		return nil, shared.NewDomainError("INVALID_SESSION_TITLE", "Session title cannot exceed 200 characters")
	}

	session := &Session{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ChannelID:         channelID,
		Title:             title,
		Type:              sessionType,
		Status:            SessionStatusActive,
		RemoteNumber:      remoteNumber,
		LastMessageAt:     time.Now(),
	}

	session.AddDomainEvent(NewSessionStartedEvent(session))

	return session, nil
}

// UpdateDetails updates the session's title and description
func (s *Session) UpdateDetails(title, description string) error {
	if strings.TrimSpace(title) == "" {
		return shared.NewDomainError("INVALID_SESSION_TITLE", "Session title cannot be empty")
	}
	if len(title) > 200 {
		return shared.NewDomainError("INVALID_SESSION_TITLE", "Session title cannot exceed 200 characters")
	}

	s.Title = title
	s.Description = description
	s.UpdatedAt = time.Now()
	s.IncrementVersion()

	return nil
}

// Archive moves the session out of the active set. Archived sessions are
// never matched by the resolver; new inbound traffic starts a fresh session.
func (s *Session) Archive() error {
	if s.Status == SessionStatusArchived {
		return shared.NewDomainError("SESSION_ALREADY_ARCHIVED", "Session is already archived")
	}

	old := s.Status
	s.Status = SessionStatusArchived
	s.UpdatedAt = time.Now()
	s.IncrementVersion()

	s.AddDomainEvent(NewSessionStatusChangedEvent(s, old, SessionStatusArchived))

	return nil
}

// Close ends the session permanently
func (s *Session) Close() error {
	if s.Status == SessionStatusClosed {
		return shared.NewDomainError("SESSION_ALREADY_CLOSED", "Session is already closed")
	}

	old := s.Status
	s.Status = SessionStatusClosed
	s.UpdatedAt = time.Now()
	s.IncrementVersion()

	s.AddDomainEvent(NewSessionStatusChangedEvent(s, old, SessionStatusClosed))

	return nil
}

// Reactivate returns an archived or closed session to the active set
func (s *Session) Reactivate() error {
	if s.Status == SessionStatusActive {
		return shared.NewDomainError("SESSION_ALREADY_ACTIVE", "Session is already active")
	}

	old := s.Status
	s.Status = SessionStatusActive
	s.UpdatedAt = time.Now()
	s.IncrementVersion()

	s.AddDomainEvent(NewSessionStatusChangedEvent(s, old, SessionStatusActive))

	return nil
}

// IsActive reports whether the session can accept traffic
func (s *Session) IsActive() bool {
	return s.Status == SessionStatusActive
}

// RecordMessage advances the session's activity markers for a message
// observed at the given time
func (s *Session) RecordMessage(at time.Time) {
	s.MessageCount++
	if at.After(s.LastMessageAt) {
		s.LastMessageAt = at
	}
	s.UpdatedAt = time.Now()
	s.IncrementVersion()
}

// WithinIdleWindow reports whether the session is still fresh enough at the
// given instant to absorb another inbound message
func (s *Session) WithinIdleWindow(now time.Time, window time.Duration) bool {
	return now.Sub(s.LastMessageAt) <= window
}

func defaultSessionTitle(sessionType CommunicationType, remoteNumber string) string {
	if remoteNumber == "" {
		return sessionType.Label() + " conversation"
	}
	return sessionType.Label() + " with " + remoteNumber
}
