package messaging

import (
	"time"

	"github.com/google/uuid"

	"github.com/chatrelay/backend/internal/domain/messaging"
)

// =============================================================================
// Channel DTOs
// =============================================================================

// CreateChannelRequest represents a request to provision a new channel
type CreateChannelRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=200"`
	PhoneNumber string `json:"phone_number" binding:"required,max=50"`
	CountryCode string `json:"country_code" binding:"max=10"`
	Type        string `json:"type" binding:"required,oneof=sms whatsapp voice"`
}

// UpdateChannelRequest represents a request to update a channel
type UpdateChannelRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=200"`
	CountryCode *string `json:"country_code" binding:"omitempty,max=10"`
	Status      *string `json:"status" binding:"omitempty,oneof=active inactive suspended"`
}

// ChannelResponse represents a channel in API responses
type ChannelResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	PhoneNumber string    `json:"phone_number"`
	CountryCode string    `json:"country_code"`
	Type        string    `json:"type"`
	Status      string    `json:"status"`
	ProviderSID string    `json:"provider_sid,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Version     int       `json:"version"`
}

// ChannelListFilter represents filter options for the channel list
type ChannelListFilter struct {
	Search   string `form:"search"`
	Status   string `form:"status" binding:"omitempty,oneof=active inactive suspended"`
	Type     string `form:"type" binding:"omitempty,oneof=sms whatsapp voice"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ToChannelResponse converts a domain Channel to ChannelResponse
func ToChannelResponse(c *messaging.Channel) ChannelResponse {
	return ChannelResponse{
		ID:          c.ID,
		Name:        c.Name,
		PhoneNumber: c.PhoneNumber,
		CountryCode: c.CountryCode,
		Type:        string(c.Type),
		Status:      string(c.Status),
		ProviderSID: c.ProviderSID,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
		Version:     c.Version,
	}
}

// ToChannelResponses converts a slice of channels
func ToChannelResponses(channels []messaging.Channel) []ChannelResponse {
	responses := make([]ChannelResponse, len(channels))
	for i := range channels {
		responses[i] = ToChannelResponse(&channels[i])
	}
	return responses
}

// =============================================================================
// Contact DTOs
// =============================================================================

// CreateContactRequest represents a request to create a contact
type CreateContactRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=200"`
	PhoneNumber string `json:"phone_number" binding:"required,max=50"`
	Email       string `json:"email" binding:"omitempty,email,max=255"`
	Notes       string `json:"notes"`
}

// UpdateContactRequest represents a request to update a contact
type UpdateContactRequest struct {
	Name  *string `json:"name" binding:"omitempty,min=1,max=200"`
	Email *string `json:"email" binding:"omitempty,email,max=255"`
	Notes *string `json:"notes"`
}

// ContactResponse represents a contact in API responses
type ContactResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	PhoneNumber string    `json:"phone_number"`
	Email       string    `json:"email,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Version     int       `json:"version"`
}

// ContactListFilter represents filter options for the contact list
type ContactListFilter struct {
	Search   string `form:"search"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ToContactResponse converts a domain Contact to ContactResponse
func ToContactResponse(c *messaging.Contact) ContactResponse {
	return ContactResponse{
		ID:          c.ID,
		Name:        c.Name,
		PhoneNumber: c.PhoneNumber,
		Email:       c.Email,
		Notes:       c.Notes,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
		Version:     c.Version,
	}
}

// ToContactResponses converts a slice of contacts
func ToContactResponses(contacts []messaging.Contact) []ContactResponse {
	responses := make([]ContactResponse, len(contacts))
	for i := range contacts {
		responses[i] = ToContactResponse(&contacts[i])
	}
	return responses
}

// =============================================================================
// Session DTOs
// =============================================================================

// CreateSessionRequest represents a request to manually start a session
type CreateSessionRequest struct {
	ChannelID    uuid.UUID `json:"channel_id" binding:"required"`
	Type         string    `json:"type" binding:"required,oneof=sms whatsapp voice"`
	RemoteNumber string    `json:"remote_number" binding:"max=50"`
	Title        string    `json:"title" binding:"max=200"`
}

// UpdateSessionRequest represents a request to update a session
type UpdateSessionRequest struct {
	Title       *string `json:"title" binding:"omitempty,min=1,max=200"`
	Description *string `json:"description"`
	Status      *string `json:"status" binding:"omitempty,oneof=active archived closed"`
}

// SessionResponse represents a session in API responses
type SessionResponse struct {
	ID            uuid.UUID `json:"id"`
	ChannelID     uuid.UUID `json:"channel_id"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	Type          string    `json:"type"`
	Status        string    `json:"status"`
	RemoteNumber  string    `json:"remote_number,omitempty"`
	MessageCount  int64     `json:"message_count"`
	LastMessageAt time.Time `json:"last_message_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Version       int       `json:"version"`
}

// SessionListFilter represents filter options for the session list
type SessionListFilter struct {
	ChannelID string `form:"channel_id" binding:"omitempty,uuid"`
	Status    string `form:"status" binding:"omitempty,oneof=active archived closed"`
	Type      string `form:"type" binding:"omitempty,oneof=sms whatsapp voice"`
	Search    string `form:"search"`
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy   string `form:"order_by"`
	OrderDir  string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ToSessionResponse converts a domain Session to SessionResponse
func ToSessionResponse(s *messaging.Session) SessionResponse {
	return SessionResponse{
		ID:            s.ID,
		ChannelID:     s.ChannelID,
		Title:         s.Title,
		Description:   s.Description,
		Type:          string(s.Type),
		Status:        string(s.Status),
		RemoteNumber:  s.RemoteNumber,
		MessageCount:  s.MessageCount,
		LastMessageAt: s.LastMessageAt,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
		Version:       s.Version,
	}
}

// ToSessionResponses converts a slice of sessions
func ToSessionResponses(sessions []messaging.Session) []SessionResponse {
	responses := make([]SessionResponse, len(sessions))
	for i := range sessions {
		responses[i] = ToSessionResponse(&sessions[i])
	}
	return responses
}

// =============================================================================
// Message DTOs
// =============================================================================

// SendMessageRequest represents an operator request to send a message on a
// session
type SendMessageRequest struct {
	Body string `json:"body" binding:"required,min=1,max=4096"`
	Type string `json:"type" binding:"omitempty,oneof=text image video audio file mms"`
}

// MessageResponse represents a message in API responses
type MessageResponse struct {
	ID           uuid.UUID  `json:"id"`
	SessionID    uuid.UUID  `json:"session_id"`
	Sender       string     `json:"sender"`
	Direction    string     `json:"direction"`
	AuthoredBy   string     `json:"authored_by"`
	Type         string     `json:"type"`
	Status       string     `json:"status"`
	Body         string     `json:"body"`
	FromNumber   string     `json:"from_number,omitempty"`
	ToNumber     string     `json:"to_number,omitempty"`
	ProviderSID  string     `json:"provider_sid,omitempty"`
	InResponseTo *uuid.UUID `json:"in_response_to,omitempty"`
	GeneratedBy  string     `json:"generated_by,omitempty"`
	FailReason   string     `json:"fail_reason,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// OperatorSendRequest represents the generic operator send entry. Either
// session_id or channel_id plus remote_number selects the conversation.
type OperatorSendRequest struct {
	SessionID    *uuid.UUID `json:"session_id"`
	ChannelID    *uuid.UUID `json:"channel_id"`
	RemoteNumber string     `json:"remote_number" binding:"max=50"`
	Body         string     `json:"body" binding:"required,min=1,max=4096"`
	Type         string     `json:"type" binding:"omitempty,oneof=text image video audio file mms"`
}

// ChannelMessageListFilter represents filter options for the channel-wide
// message list
type ChannelMessageListFilter struct {
	SessionID string `form:"session_id" binding:"omitempty,uuid"`
	Status    string `form:"status" binding:"omitempty,oneof=received queued sent delivered read failed"`
	Limit     int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Offset    int    `form:"offset" binding:"omitempty,min=0"`
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// MessageListFilter represents filter options for the message list
type MessageListFilter struct {
	Status   string `form:"status" binding:"omitempty,oneof=received queued sent delivered read failed"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Offset   int    `form:"offset" binding:"omitempty,min=0"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ToMessageResponse converts a domain Message to MessageResponse
func ToMessageResponse(m *messaging.Message) MessageResponse {
	return MessageResponse{
		ID:           m.ID,
		SessionID:    m.SessionID,
		Sender:       string(m.Sender),
		Direction:    string(m.Direction),
		AuthoredBy:   string(m.AuthoredBy),
		Type:         string(m.Type),
		Status:       string(m.Status),
		Body:         m.Body,
		FromNumber:   m.FromNumber,
		ToNumber:     m.ToNumber,
		ProviderSID:  m.ProviderSID,
		InResponseTo: m.InResponseTo,
		GeneratedBy:  m.GeneratedBy,
		FailReason:   m.FailReason,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// ToMessageResponses converts a slice of messages
func ToMessageResponses(messages []messaging.Message) []MessageResponse {
	responses := make([]MessageResponse, len(messages))
	for i := range messages {
		responses[i] = ToMessageResponse(&messages[i])
	}
	return responses
}

// =============================================================================
// Inbound event DTOs
// =============================================================================

// InboundEvent is a provider webhook event normalized by the transport layer
type InboundEvent struct {
	Type        messaging.CommunicationType
	ProviderSID string
	FromNumber  string
	ToNumber    string
	Body        string
	MediaCount  int
	ReceivedAt  time.Time
}

// StatusCallbackEvent is a delivery status update reported by the provider
type StatusCallbackEvent struct {
	ProviderSID string
	Status      string
}

// InboundResult reports what the router did with an inbound event
type InboundResult struct {
	Session    SessionResponse `json:"session"`
	Message    MessageResponse `json:"message"`
	NewSession bool            `json:"new_session"`
	Duplicate  bool            `json:"duplicate"`
}
