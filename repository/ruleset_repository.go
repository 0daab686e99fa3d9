package repository

import (
	"context"
	"errors"

	"github.com/amirphl/Tarazu/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RulesetRepositoryImpl implements RulesetRepository
type RulesetRepositoryImpl struct {
	*BaseRepository[models.Ruleset, models.RulesetFilter]
}

// NewRulesetRepository creates a new repository for rulesets
func NewRulesetRepository(db *gorm.DB) RulesetRepository {
	return &RulesetRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Ruleset, models.RulesetFilter](db),
	}
}

// ByUUID retrieves a ruleset by its public identifier
func (r *RulesetRepositoryImpl) ByUUID(ctx context.Context, id uuid.UUID) (*models.Ruleset, error) {
	db := r.getDB(ctx)

	var ruleset models.Ruleset
	err := db.Where("uuid = ?", id).Last(&ruleset).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ruleset, nil
}

// ListActiveWithRules loads the evaluable catalog: every active ruleset with
// its groups and rules preloaded in evaluation order.
func (r *RulesetRepositoryImpl) ListActiveWithRules(ctx context.Context) ([]*models.Ruleset, error) {
	db := r.getDB(ctx)

	var rulesets []*models.Ruleset
	err := db.
		Preload("Groups", func(db *gorm.DB) *gorm.DB {
			return db.Order("rule_groups.display_order ASC, rule_groups.id ASC")
		}).
		Preload("Groups.Rules", func(db *gorm.DB) *gorm.DB {
			return db.Order("rules.evaluation_order ASC, rules.priority DESC, rules.id ASC")
		}).
		Where("is_active = ?", true).
		Order("priority DESC, id ASC").
		Find(&rulesets).Error
	if err != nil {
		return nil, err
	}
	return rulesets, nil
}

// Update persists the current state of the ruleset
func (r *RulesetRepositoryImpl) Update(ctx context.Context, ruleset *models.Ruleset) error {
	return r.update(ctx, ruleset)
}

// applyFilter applies filter conditions to the GORM query
func (r *RulesetRepositoryImpl) applyFilter(db *gorm.DB, filter models.RulesetFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.Name != nil {
		db = db.Where("name = ?", *filter.Name)
	}
	if filter.IsActive != nil {
		db = db.Where("is_active = ?", *filter.IsActive)
	}
	if filter.MinPriority != nil {
		db = db.Where("priority >= ?", *filter.MinPriority)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at <= ?", *filter.CreatedBefore)
	}
	return db
}

// ByFilter retrieves rulesets based on filter criteria
func (r *RulesetRepositoryImpl) ByFilter(ctx context.Context, filter models.RulesetFilter, orderBy string, limit, offset int) ([]*models.Ruleset, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Ruleset{}), filter)

	if orderBy == "" {
		orderBy = "priority DESC, id ASC"
	}
	query = query.Order(orderBy)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var rulesets []*models.Ruleset
	if err := query.Find(&rulesets).Error; err != nil {
		return nil, err
	}
	return rulesets, nil
}

// Count returns the number of rulesets matching the filter
func (r *RulesetRepositoryImpl) Count(ctx context.Context, filter models.RulesetFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Ruleset{}), filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any ruleset matching the filter exists
func (r *RulesetRepositoryImpl) Exists(ctx context.Context, filter models.RulesetFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
