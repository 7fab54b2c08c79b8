package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chatrelay/backend/internal/domain/messaging"
	"github.com/chatrelay/backend/internal/domain/shared"
	"github.com/chatrelay/backend/internal/infrastructure/persistence/models"
)

// GormChannelRepository implements ChannelRepository using GORM
type GormChannelRepository struct {
	db *gorm.DB
}

// NewGormChannelRepository creates a new GormChannelRepository
func NewGormChannelRepository(db *gorm.DB) *GormChannelRepository {
	return &GormChannelRepository{db: db}
}

// FindByID finds a channel by its ID
func (r *GormChannelRepository) FindByID(ctx context.Context, id uuid.UUID) (*messaging.Channel, error) {
	var model models.ChannelModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByPhoneNumber finds the channel provisioned for a local number and
// communication type
func (r *GormChannelRepository) FindByPhoneNumber(ctx context.Context, phoneNumber string, channelType messaging.CommunicationType) (*messaging.Channel, error) {
	if phoneNumber == "" {
		return nil, shared.NewDomainError("INVALID_PHONE", "Phone number cannot be empty")
	}
	var model models.ChannelModel
	if err := r.db.WithContext(ctx).
		Where("phone_number = ? AND type = ?", phoneNumber, channelType).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByStatus finds channels with a specific status
func (r *GormChannelRepository) FindByStatus(ctx context.Context, status messaging.ChannelStatus, filter shared.Filter) ([]messaging.Channel, error) {
	var channelModels []models.ChannelModel
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&models.ChannelModel{}).Where("status = ?", status),
		filter,
	)

	if err := query.Find(&channelModels).Error; err != nil {
		return nil, err
	}

	channels := make([]messaging.Channel, len(channelModels))
	for i, model := range channelModels {
		channels[i] = *model.ToDomain()
	}
	return channels, nil
}

// FindAll finds all channels matching the filter
func (r *GormChannelRepository) FindAll(ctx context.Context, filter shared.Filter) ([]messaging.Channel, error) {
	var channelModels []models.ChannelModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.ChannelModel{}), filter)

	if err := query.Find(&channelModels).Error; err != nil {
		return nil, err
	}

	channels := make([]messaging.Channel, len(channelModels))
	for i, model := range channelModels {
		channels[i] = *model.ToDomain()
	}
	return channels, nil
}

// Save creates or updates a channel
func (r *GormChannelRepository) Save(ctx context.Context, channel *messaging.Channel) error {
	model := models.ChannelModelFromDomain(channel)
	return r.db.WithContext(ctx).Save(model).Error
}

// Delete deletes a channel
func (r *GormChannelRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.ChannelModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Count counts channels matching the filter
func (r *GormChannelRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&models.ChannelModel{}), filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies filter options to the query
func (r *GormChannelRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if offset, limit := filter.Window(); limit > 0 {
		query = query.Offset(offset).Limit(limit)
	}

	if filter.OrderBy != "" {
		orderDir := "ASC"
		if strings.ToLower(filter.OrderDir) == "desc" {
			orderDir = "DESC"
		}
		query = query.Order(filter.OrderBy + " " + orderDir)
	} else {
		query = query.Order("created_at DESC")
	}

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormChannelRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("name LIKE ? OR phone_number LIKE ?", searchPattern, searchPattern)
	}

	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "type":
			query = query.Where("type = ?", value)
		case "country_code":
			query = query.Where("country_code = ?", value)
		}
	}

	return query
}

// Ensure GormChannelRepository implements ChannelRepository
var _ messaging.ChannelRepository = (*GormChannelRepository)(nil)
