package repository

import (
	"context"
	"errors"

	"github.com/amirphl/Tarazu/models"
	"github.com/amirphl/Tarazu/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RuleRepositoryImpl implements RuleRepository
type RuleRepositoryImpl struct {
	*BaseRepository[models.Rule, models.RuleFilter]
}

// NewRuleRepository creates a new repository for rules
func NewRuleRepository(db *gorm.DB) RuleRepository {
	return &RuleRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Rule, models.RuleFilter](db),
	}
}

// ByUUID retrieves a rule by its public identifier
func (r *RuleRepositoryImpl) ByUUID(ctx context.Context, id uuid.UUID) (*models.Rule, error) {
	db := r.getDB(ctx)

	var rule models.Rule
	err := db.Where("uuid = ?", id).Last(&rule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rule, nil
}

// ListByGroup returns the group's rules in evaluation order
func (r *RuleRepositoryImpl) ListByGroup(ctx context.Context, groupID uint) ([]*models.Rule, error) {
	db := r.getDB(ctx)

	var rules []*models.Rule
	err := db.
		Where("group_id = ?", groupID).
		Order("evaluation_order ASC, priority DESC, id ASC").
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

// ListByRuleset returns every rule under the ruleset, joined through its groups
func (r *RuleRepositoryImpl) ListByRuleset(ctx context.Context, rulesetID uint) ([]*models.Rule, error) {
	db := r.getDB(ctx)

	var rules []*models.Rule
	err := db.
		Joins("JOIN rule_groups ON rule_groups.id = rules.group_id").
		Where("rule_groups.ruleset_id = ?", rulesetID).
		Order("rules.id ASC").
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

// ListBySourceField returns the rules hydration emitted for one baseline
// field of the ruleset, matched on provenance metadata.
func (r *RuleRepositoryImpl) ListBySourceField(ctx context.Context, rulesetID uint, fieldKey string) ([]*models.Rule, error) {
	db := r.getDB(ctx)

	var rules []*models.Rule
	err := db.
		Joins("JOIN rule_groups ON rule_groups.id = rules.group_id").
		Where("rule_groups.ruleset_id = ?", rulesetID).
		Where("rules.metadata->>'source_field' = ?", fieldKey).
		Order("rules.id ASC").
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

// Update persists the current state of the rule
func (r *RuleRepositoryImpl) Update(ctx context.Context, rule *models.Rule) error {
	return r.update(ctx, rule)
}

// Deactivate marks a rule inactive; rules are never deleted
func (r *RuleRepositoryImpl) Deactivate(ctx context.Context, ruleID uint) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Model(&models.Rule{}).
		Where("id = ?", ruleID).
		Updates(map[string]any{
			"is_active":  false,
			"updated_at": utils.UTCNow(),
		}).Error
	if err != nil {
		return err
	}
	return nil
}

// applyFilter applies filter conditions to the GORM query
func (r *RuleRepositoryImpl) applyFilter(db *gorm.DB, filter models.RuleFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.GroupID != nil {
		db = db.Where("group_id = ?", *filter.GroupID)
	}
	if filter.Name != nil {
		db = db.Where("name = ?", *filter.Name)
	}
	if filter.IsActive != nil {
		db = db.Where("is_active = ?", *filter.IsActive)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at <= ?", *filter.CreatedBefore)
	}
	return db
}

// ByFilter retrieves rules based on filter criteria
func (r *RuleRepositoryImpl) ByFilter(ctx context.Context, filter models.RuleFilter, orderBy string, limit, offset int) ([]*models.Rule, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Rule{}), filter)

	if orderBy == "" {
		orderBy = "evaluation_order ASC, priority DESC, id ASC"
	}
	query = query.Order(orderBy)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var rules []*models.Rule
	if err := query.Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

// Count returns the number of rules matching the filter
func (r *RuleRepositoryImpl) Count(ctx context.Context, filter models.RuleFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Rule{}), filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any rule matching the filter exists
func (r *RuleRepositoryImpl) Exists(ctx context.Context, filter models.RuleFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
