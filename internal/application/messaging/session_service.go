package messaging

import (
	"context"

	"github.com/google/uuid"

	"github.com/chatrelay/backend/internal/domain/messaging"
	"github.com/chatrelay/backend/internal/domain/shared"
)

// SessionService handles session management
type SessionService struct {
	sessionRepo messaging.SessionRepository
	channelRepo messaging.ChannelRepository
	messageRepo messaging.MessageRepository
}

// NewSessionService creates a new SessionService
func NewSessionService(sessionRepo messaging.SessionRepository, channelRepo messaging.ChannelRepository, messageRepo messaging.MessageRepository) *SessionService {
	return &SessionService{
		sessionRepo: sessionRepo,
		channelRepo: channelRepo,
		messageRepo: messageRepo,
	}
}

// Create manually starts a session on a channel
func (s *SessionService) Create(ctx context.Context, req CreateSessionRequest) (*SessionResponse, error) {
	channel, err := s.channelRepo.FindByID(ctx, req.ChannelID)
	if err != nil {
		return nil, err
	}
	if !channel.IsActive() {
		return nil, shared.NewDomainError("CHANNEL_INACTIVE", "Cannot start a session on an inactive channel")
	}

	session, err := messaging.NewSession(channel.ID, messaging.CommunicationType(req.Type), req.RemoteNumber, req.Title)
	if err != nil {
		return nil, err
	}

	if err := s.sessionRepo.Save(ctx, session); err != nil {
		return nil, err
	}

	response := ToSessionResponse(session)
	return &response, nil
}

// GetByID retrieves a session by ID
func (s *SessionService) GetByID(ctx context.Context, sessionID uuid.UUID) (*SessionResponse, error) {
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	response := ToSessionResponse(session)
	return &response, nil
}

// List retrieves sessions with filtering and pagination
func (s *SessionService) List(ctx context.Context, filter SessionListFilter) ([]SessionResponse, int64, error) {
	domainFilter := shared.DefaultFilter()
	domainFilter.OrderBy = "last_message_at"
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	if filter.OrderBy != "" {
		domainFilter.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		domainFilter.OrderDir = filter.OrderDir
	}
	domainFilter.Search = filter.Search
	if filter.Status != "" {
		domainFilter.Filters["status"] = filter.Status
	}
	if filter.Type != "" {
		domainFilter.Filters["type"] = filter.Type
	}

	if filter.ChannelID != "" {
		channelID, err := uuid.Parse(filter.ChannelID)
		if err != nil {
			return nil, 0, shared.NewDomainError("INVALID_INPUT", "Invalid channel id")
		}
		sessions, total, err := s.sessionRepo.FindByChannel(ctx, channelID, domainFilter)
		if err != nil {
			return nil, 0, err
		}
		return ToSessionResponses(sessions), total, nil
	}

	sessions, err := s.sessionRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.sessionRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	return ToSessionResponses(sessions), total, nil
}

// Update updates a session's details and status
func (s *SessionService) Update(ctx context.Context, sessionID uuid.UUID, req UpdateSessionRequest) (*SessionResponse, error) {
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil || req.Description != nil {
		title := session.Title
		if req.Title != nil {
			title = *req.Title
		}
		description := session.Description
		if req.Description != nil {
			description = *req.Description
		}
		if err := session.UpdateDetails(title, description); err != nil {
			return nil, err
		}
	}

	if req.Status != nil {
		if err := applySessionStatus(session, messaging.SessionStatus(*req.Status)); err != nil {
			return nil, err
		}
	}

	if err := s.sessionRepo.Save(ctx, session); err != nil {
		return nil, err
	}

	response := ToSessionResponse(session)
	return &response, nil
}

// Archive moves a session out of the active set
func (s *SessionService) Archive(ctx context.Context, sessionID uuid.UUID) (*SessionResponse, error) {
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if err := session.Archive(); err != nil {
		return nil, err
	}
	if err := s.sessionRepo.Save(ctx, session); err != nil {
		return nil, err
	}

	response := ToSessionResponse(session)
	return &response, nil
}

// Delete removes a session, optionally purging its message history
func (s *SessionService) Delete(ctx context.Context, sessionID uuid.UUID, deleteMessages bool) error {
	if _, err := s.sessionRepo.FindByID(ctx, sessionID); err != nil {
		return err
	}
	if deleteMessages {
		if err := s.messageRepo.DeleteBySession(ctx, sessionID); err != nil {
			return err
		}
	}
	return s.sessionRepo.Delete(ctx, sessionID)
}

func applySessionStatus(session *messaging.Session, status messaging.SessionStatus) error {
	if !status.IsValid() {
		return shared.NewDomainError("INVALID_SESSION_STATUS", "Session status must be active, archived or closed")
	}
	if session.Status == status {
		return nil
	}

	switch status {
	case messaging.SessionStatusArchived:
		return session.Archive()
	case messaging.SessionStatusClosed:
		return session.Close()
	default:
		return session.Reactivate()
	}
}
