package repository

import (
	"context"
	"errors"

	"github.com/amirphl/Tarazu/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaselineFieldRepositoryImpl implements BaselineFieldRepository
type BaselineFieldRepositoryImpl struct {
	*BaseRepository[models.BaselineField, models.BaselineFieldFilter]
}

// NewBaselineFieldRepository creates a new repository for baseline fields
func NewBaselineFieldRepository(db *gorm.DB) BaselineFieldRepository {
	return &BaselineFieldRepositoryImpl{
		BaseRepository: NewBaseRepository[models.BaselineField, models.BaselineFieldFilter](db),
	}
}

// ByUUID retrieves a baseline field by its public identifier
func (r *BaselineFieldRepositoryImpl) ByUUID(ctx context.Context, id uuid.UUID) (*models.BaselineField, error) {
	db := r.getDB(ctx)

	var field models.BaselineField
	err := db.Where("uuid = ?", id).Last(&field).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &field, nil
}

// ListByRuleset returns the ruleset's baseline fields in registration order
func (r *BaselineFieldRepositoryImpl) ListByRuleset(ctx context.Context, rulesetID uint) ([]*models.BaselineField, error) {
	db := r.getDB(ctx)

	var fields []*models.BaselineField
	err := db.
		Where("ruleset_id = ?", rulesetID).
		Order("id ASC").
		Find(&fields).Error
	if err != nil {
		return nil, err
	}
	return fields, nil
}

// Update persists the current state of the baseline field
func (r *BaselineFieldRepositoryImpl) Update(ctx context.Context, field *models.BaselineField) error {
	return r.update(ctx, field)
}

// applyFilter applies filter conditions to the GORM query
func (r *BaselineFieldRepositoryImpl) applyFilter(db *gorm.DB, filter models.BaselineFieldFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.RulesetID != nil {
		db = db.Where("ruleset_id = ?", *filter.RulesetID)
	}
	if filter.Key != nil {
		db = db.Where("key = ?", *filter.Key)
	}
	if filter.FieldType != nil {
		db = db.Where("field_type = ?", *filter.FieldType)
	}
	if filter.Hydrated != nil {
		db = db.Where("hydrated = ?", *filter.Hydrated)
	}
	return db
}

// ByFilter retrieves baseline fields based on filter criteria
func (r *BaselineFieldRepositoryImpl) ByFilter(ctx context.Context, filter models.BaselineFieldFilter, orderBy string, limit, offset int) ([]*models.BaselineField, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.BaselineField{}), filter)

	if orderBy == "" {
		orderBy = "id ASC"
	}
	query = query.Order(orderBy)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var fields []*models.BaselineField
	if err := query.Find(&fields).Error; err != nil {
		return nil, err
	}
	return fields, nil
}

// Count returns the number of baseline fields matching the filter
func (r *BaselineFieldRepositoryImpl) Count(ctx context.Context, filter models.BaselineFieldFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.BaselineField{}), filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any baseline field matching the filter exists
func (r *BaselineFieldRepositoryImpl) Exists(ctx context.Context, filter models.BaselineFieldFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
