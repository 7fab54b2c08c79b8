package messaging

import (
	"context"

	"github.com/google/uuid"

	"github.com/chatrelay/backend/internal/domain/messaging"
	"github.com/chatrelay/backend/internal/domain/shared"
)

// ChannelService handles channel provisioning and management
type ChannelService struct {
	channelRepo messaging.ChannelRepository
}

// NewChannelService creates a new ChannelService
func NewChannelService(channelRepo messaging.ChannelRepository) *ChannelService {
	return &ChannelService{
		channelRepo: channelRepo,
	}
}

// Create provisions a new channel
func (s *ChannelService) Create(ctx context.Context, req CreateChannelRequest) (*ChannelResponse, error) {
	channelType := messaging.CommunicationType(req.Type)

	// One channel per number and communication type
	existing, err := s.channelRepo.FindByPhoneNumber(ctx, req.PhoneNumber, channelType)
	if err != nil && !shared.IsNotFound(err) {
		return nil, err
	}
	if existing != nil {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "A channel for this number and type already exists")
	}

	channel, err := messaging.NewChannel(req.Name, req.PhoneNumber, req.CountryCode, channelType)
	if err != nil {
		return nil, err
	}

	if err := s.channelRepo.Save(ctx, channel); err != nil {
		return nil, err
	}

	response := ToChannelResponse(channel)
	return &response, nil
}

// GetByID retrieves a channel by ID
func (s *ChannelService) GetByID(ctx context.Context, channelID uuid.UUID) (*ChannelResponse, error) {
	channel, err := s.channelRepo.FindByID(ctx, channelID)
	if err != nil {
		return nil, err
	}

	response := ToChannelResponse(channel)
	return &response, nil
}

// List retrieves channels with filtering and pagination
func (s *ChannelService) List(ctx context.Context, filter ChannelListFilter) ([]ChannelResponse, int64, error) {
	domainFilter := shared.DefaultFilter()
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

	channels, err := s.channelRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.channelRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	return ToChannelResponses(channels), total, nil
}

// Update updates a channel's information and status
func (s *ChannelService) Update(ctx context.Context, channelID uuid.UUID, req UpdateChannelRequest) (*ChannelResponse, error) {
	channel, err := s.channelRepo.FindByID(ctx, channelID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil || req.CountryCode != nil {
		name := channel.Name
		if req.Name != nil {
			name = *req.Name
		}
		countryCode := channel.CountryCode
		if req.CountryCode != nil {
			countryCode = *req.CountryCode
		}
		if err := channel.Update(name, countryCode); err != nil {
			return nil, err
		}
	}

	if req.Status != nil {
		if err := channel.SetStatus(messaging.ChannelStatus(*req.Status)); err != nil {
			return nil, err
		}
	}

	if err := s.channelRepo.Save(ctx, channel); err != nil {
		return nil, err
	}

	response := ToChannelResponse(channel)
	return &response, nil
}

// Delete removes a channel
func (s *ChannelService) Delete(ctx context.Context, channelID uuid.UUID) error {
	if _, err := s.channelRepo.FindByID(ctx, channelID); err != nil {
		return err
	}
	return s.channelRepo.Delete(ctx, channelID)
}
