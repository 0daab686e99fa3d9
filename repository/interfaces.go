// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"

	"github.com/amirphl/Tarazu/models"
	"github.com/google/uuid"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// TransactionRunner executes a function inside one atomic unit of work. The
// GORM runner opens a database transaction and threads it through the
// context; the in-memory runner just serializes the call.
type TransactionRunner interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// RulesetRepository defines operations for rulesets
type RulesetRepository interface {
	Repository[models.Ruleset, models.RulesetFilter]
	ByUUID(ctx context.Context, id uuid.UUID) (*models.Ruleset, error)
	// ListActiveWithRules loads every active ruleset with its groups and
	// rules eagerly, ordered for evaluation.
	ListActiveWithRules(ctx context.Context) ([]*models.Ruleset, error)
	Update(ctx context.Context, ruleset *models.Ruleset) error
}

// RuleGroupRepository defines operations for rule groups
type RuleGroupRepository interface {
	Repository[models.RuleGroup, models.RuleGroupFilter]
	ByUUID(ctx context.Context, id uuid.UUID) (*models.RuleGroup, error)
	ListByRuleset(ctx context.Context, rulesetID uint) ([]*models.RuleGroup, error)
}

// RuleRepository defines operations for rules
type RuleRepository interface {
	Repository[models.Rule, models.RuleFilter]
	ByUUID(ctx context.Context, id uuid.UUID) (*models.Rule, error)
	ListByGroup(ctx context.Context, groupID uint) ([]*models.Rule, error)
	ListByRuleset(ctx context.Context, rulesetID uint) ([]*models.Rule, error)
	// ListBySourceField returns the rules a baseline field hydrated into a
	// ruleset, matched on provenance metadata.
	ListBySourceField(ctx context.Context, rulesetID uint, fieldKey string) ([]*models.Rule, error)
	Update(ctx context.Context, rule *models.Rule) error
	Deactivate(ctx context.Context, ruleID uint) error
}

// BaselineFieldRepository defines operations for baseline field specs
type BaselineFieldRepository interface {
	Repository[models.BaselineField, models.BaselineFieldFilter]
	ByUUID(ctx context.Context, id uuid.UUID) (*models.BaselineField, error)
	ListByRuleset(ctx context.Context, rulesetID uint) ([]*models.BaselineField, error)
	Update(ctx context.Context, field *models.BaselineField) error
}

// AuditLogRepository defines operations for audit logs
type AuditLogRepository interface {
	Repository[models.AuditLog, models.AuditLogFilter]
	ListByAction(ctx context.Context, action string, limit, offset int) ([]*models.AuditLog, error)
	ListByRuleset(ctx context.Context, rulesetID uint, limit, offset int) ([]*models.AuditLog, error)
	ListFailedActions(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)
}
