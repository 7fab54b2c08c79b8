package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chatrelay/backend/internal/domain/messaging"
	"github.com/chatrelay/backend/internal/domain/shared"
	"github.com/chatrelay/backend/internal/infrastructure/persistence/models"
)

// GormSessionRepository implements SessionRepository using GORM
type GormSessionRepository struct {
	db *gorm.DB
}

// NewGormSessionRepository creates a new GormSessionRepository
func NewGormSessionRepository(db *gorm.DB) *GormSessionRepository {
	return &GormSessionRepository{db: db}
}

// FindByID finds a session by its ID
func (r *GormSessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*messaging.Session, error) {
	var model models.SessionModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindActiveByRemoteNumber finds active sessions on a channel for a remote
// number and communication type, most recent activity first
func (r *GormSessionRepository) FindActiveByRemoteNumber(ctx context.Context, channelID uuid.UUID, sessionType messaging.CommunicationType, remoteNumber string) ([]messaging.Session, error) {
	if remoteNumber == "" {
		return nil, shared.NewDomainError("INVALID_PHONE", "Remote number cannot be empty")
	}

	var sessionModels []models.SessionModel
	if err := r.db.WithContext(ctx).
		Where("channel_id = ? AND type = ? AND remote_number = ? AND status = ?",
			channelID, sessionType, remoteNumber, messaging.SessionStatusActive).
		Order("last_message_at DESC").
		Find(&sessionModels).Error; err != nil {
		return nil, err
	}

	sessions := make([]messaging.Session, len(sessionModels))
	for i, model := range sessionModels {
		sessions[i] = *model.ToDomain()
	}
	return sessions, nil
}

// FindActiveByChannel finds active sessions on a channel for a
// communication type regardless of remote number, most recent activity
// first
func (r *GormSessionRepository) FindActiveByChannel(ctx context.Context, channelID uuid.UUID, sessionType messaging.CommunicationType) ([]messaging.Session, error) {
	var sessionModels []models.SessionModel
	if err := r.db.WithContext(ctx).
		Where("channel_id = ? AND type = ? AND status = ?",
			channelID, sessionType, messaging.SessionStatusActive).
		Order("last_message_at DESC").
		Find(&sessionModels).Error; err != nil {
		return nil, err
	}

	sessions := make([]messaging.Session, len(sessionModels))
	for i, model := range sessionModels {
		sessions[i] = *model.ToDomain()
	}
	return sessions, nil
}

// FindByChannel finds sessions belonging to a channel along with the total count
func (r *GormSessionRepository) FindByChannel(ctx context.Context, channelID uuid.UUID, filter shared.Filter) ([]messaging.Session, int64, error) {
	var total int64
	countQuery := r.applyFilterWithoutPagination(
		r.db.WithContext(ctx).Model(&models.SessionModel{}).Where("channel_id = ?", channelID),
		filter,
	)
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var sessionModels []models.SessionModel
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&models.SessionModel{}).Where("channel_id = ?", channelID),
		filter,
	)
	if err := query.Find(&sessionModels).Error; err != nil {
		return nil, 0, err
	}

	sessions := make([]messaging.Session, len(sessionModels))
	for i, model := range sessionModels {
		sessions[i] = *model.ToDomain()
	}
	return sessions, total, nil
}

// FindAll finds all sessions matching the filter
func (r *GormSessionRepository) FindAll(ctx context.Context, filter shared.Filter) ([]messaging.Session, error) {
	var sessionModels []models.SessionModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.SessionModel{}), filter)

	if err := query.Find(&sessionModels).Error; err != nil {
		return nil, err
	}

	sessions := make([]messaging.Session, len(sessionModels))
	for i, model := range sessionModels {
		sessions[i] = *model.ToDomain()
	}
	return sessions, nil
}

// Save creates or updates a session
func (r *GormSessionRepository) Save(ctx context.Context, session *messaging.Session) error {
	model := models.SessionModelFromDomain(session)
	return r.db.WithContext(ctx).Save(model).Error
}

// Delete deletes a session
func (r *GormSessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.SessionModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Count counts sessions matching the filter
func (r *GormSessionRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&models.SessionModel{}), filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// TouchActivity atomically bumps the session's message count and advances
// last_message_at. The increment happens in the store so concurrent
// recorders never lose counts to a read-modify-write race.
func (r *GormSessionRepository) TouchActivity(ctx context.Context, sessionID uuid.UUID, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.SessionModel{}).
		Where("id = ?", sessionID).
		Updates(map[string]interface{}{
			"message_count":   gorm.Expr("message_count + 1"),
			"last_message_at": gorm.Expr("CASE WHEN last_message_at > ? THEN last_message_at ELSE ? END", at, at),
			"updated_at":      time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// applyFilter applies filter options to the query
func (r *GormSessionRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
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
		query = query.Order("last_message_at DESC")
	}

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormSessionRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("title LIKE ? OR remote_number LIKE ?", searchPattern, searchPattern)
	}

	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "type":
			query = query.Where("type = ?", value)
		case "channel_id":
			query = query.Where("channel_id = ?", value)
		case "remote_number":
			query = query.Where("remote_number = ?", value)
		}
	}

	return query
}

// Ensure GormSessionRepository implements SessionRepository
var _ messaging.SessionRepository = (*GormSessionRepository)(nil)
