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

// GormMessageRepository implements MessageRepository using GORM
type GormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository creates a new GormMessageRepository
func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

// FindByID finds a message by its ID
func (r *GormMessageRepository) FindByID(ctx context.Context, id uuid.UUID) (*messaging.Message, error) {
	var model models.MessageModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindBySession finds messages belonging to a session, oldest first, along
// with the total count
func (r *GormMessageRepository) FindBySession(ctx context.Context, sessionID uuid.UUID, filter shared.Filter) ([]messaging.Message, int64, error) {
	var total int64
	countQuery := r.applyFilterWithoutPagination(
		r.db.WithContext(ctx).Model(&models.MessageModel{}).Where("session_id = ?", sessionID),
		filter,
	)
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var messageModels []models.MessageModel
	query := r.applyFilterWithoutPagination(
		r.db.WithContext(ctx).Model(&models.MessageModel{}).Where("session_id = ?", sessionID),
		filter,
	)
	if offset, limit := filter.Window(); limit > 0 {
		query = query.Offset(offset).Limit(limit)
	}
	// Conversation order: oldest first
	if err := query.Order("created_at ASC").Find(&messageModels).Error; err != nil {
		return nil, 0, err
	}

	messages := make([]messaging.Message, len(messageModels))
	for i, model := range messageModels {
		messages[i] = *model.ToDomain()
	}
	return messages, total, nil
}

// FindByChannel finds messages across all of a channel's sessions, oldest
// first, along with the total count
func (r *GormMessageRepository) FindByChannel(ctx context.Context, channelID uuid.UUID, filter shared.Filter) ([]messaging.Message, int64, error) {
	sessionIDs := r.db.Model(&models.SessionModel{}).Select("id").Where("channel_id = ?", channelID)

	var total int64
	countQuery := r.applyFilterWithoutPagination(
		r.db.WithContext(ctx).Model(&models.MessageModel{}).Where("session_id IN (?)", sessionIDs),
		filter,
	)
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var messageModels []models.MessageModel
	query := r.applyFilterWithoutPagination(
		r.db.WithContext(ctx).Model(&models.MessageModel{}).Where("session_id IN (?)", sessionIDs),
		filter,
	)
	if offset, limit := filter.Window(); limit > 0 {
		query = query.Offset(offset).Limit(limit)
	}
	if err := query.Order("created_at ASC").Find(&messageModels).Error; err != nil {
		return nil, 0, err
	}

	messages := make([]messaging.Message, len(messageModels))
	for i, model := range messageModels {
		messages[i] = *model.ToDomain()
	}
	return messages, total, nil
}

// FindByProviderSID finds the message carrying a provider-assigned identifier
func (r *GormMessageRepository) FindByProviderSID(ctx context.Context, providerSID string) (*messaging.Message, error) {
	if providerSID == "" {
		return nil, shared.NewDomainError("INVALID_PROVIDER_SID", "Provider SID cannot be empty")
	}
	var model models.MessageModel
	if err := r.db.WithContext(ctx).
		Where("provider_sid = ?", providerSID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds all messages matching the filter
func (r *GormMessageRepository) FindAll(ctx context.Context, filter shared.Filter) ([]messaging.Message, error) {
	var messageModels []models.MessageModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.MessageModel{}), filter)

	if err := query.Find(&messageModels).Error; err != nil {
		return nil, err
	}

	messages := make([]messaging.Message, len(messageModels))
	for i, model := range messageModels {
		messages[i] = *model.ToDomain()
	}
	return messages, nil
}

// Save creates or updates a message
func (r *GormMessageRepository) Save(ctx context.Context, message *messaging.Message) error {
	model := models.MessageModelFromDomain(message)
	return r.db.WithContext(ctx).Save(model).Error
}

// Delete deletes a message
func (r *GormMessageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.MessageModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteBySession removes every message belonging to a session. Deleting
// from a session with no messages is not an error.
func (r *GormMessageRepository) DeleteBySession(ctx context.Context, sessionID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.MessageModel{}, "session_id = ?", sessionID).Error
}

// Count counts messages matching the filter
func (r *GormMessageRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&models.MessageModel{}), filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies filter options to the query
func (r *GormMessageRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
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
func (r *GormMessageRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("body LIKE ?", searchPattern)
	}

	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "direction":
			query = query.Where("direction = ?", value)
		case "authored_by":
			query = query.Where("authored_by = ?", value)
		case "type":
			query = query.Where("type = ?", value)
		case "session_id":
			query = query.Where("session_id = ?", value)
		}
	}

	return query
}

// Ensure GormMessageRepository implements MessageRepository
var _ messaging.MessageRepository = (*GormMessageRepository)(nil)
