package repository

import (
	"context"
	"errors"

	"github.com/amirphl/Tarazu/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RuleGroupRepositoryImpl implements RuleGroupRepository
type RuleGroupRepositoryImpl struct {
	*BaseRepository[models.RuleGroup, models.RuleGroupFilter]
}

// NewRuleGroupRepository creates a new repository for rule groups
func NewRuleGroupRepository(db *gorm.DB) RuleGroupRepository {
	return &RuleGroupRepositoryImpl{
		BaseRepository: NewBaseRepository[models.RuleGroup, models.RuleGroupFilter](db),
	}
}

// ByUUID retrieves a rule group by its public identifier
func (r *RuleGroupRepositoryImpl) ByUUID(ctx context.Context, id uuid.UUID) (*models.RuleGroup, error) {
	db := r.getDB(ctx)

	var group models.RuleGroup
	err := db.Where("uuid = ?", id).Last(&group).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &group, nil
}

// ListByRuleset returns the ruleset's groups in display order
func (r *RuleGroupRepositoryImpl) ListByRuleset(ctx context.Context, rulesetID uint) ([]*models.RuleGroup, error) {
	db := r.getDB(ctx)

	var groups []*models.RuleGroup
	err := db.
		Where("ruleset_id = ?", rulesetID).
		Order("display_order ASC, id ASC").
		Find(&groups).Error
	if err != nil {
		return nil, err
	}
	return groups, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *RuleGroupRepositoryImpl) applyFilter(db *gorm.DB, filter models.RuleGroupFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.RulesetID != nil {
		db = db.Where("ruleset_id = ?", *filter.RulesetID)
	}
	if filter.Name != nil {
		db = db.Where("name = ?", *filter.Name)
	}
	return db
}

// ByFilter retrieves rule groups based on filter criteria
func (r *RuleGroupRepositoryImpl) ByFilter(ctx context.Context, filter models.RuleGroupFilter, orderBy string, limit, offset int) ([]*models.RuleGroup, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.RuleGroup{}), filter)

	if orderBy == "" {
		orderBy = "display_order ASC, id ASC"
	}
	query = query.Order(orderBy)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var groups []*models.RuleGroup
	if err := query.Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

// Count returns the number of rule groups matching the filter
func (r *RuleGroupRepositoryImpl) Count(ctx context.Context, filter models.RuleGroupFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.RuleGroup{}), filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any rule group matching the filter exists
func (r *RuleGroupRepositoryImpl) Exists(ctx context.Context, filter models.RuleGroupFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
