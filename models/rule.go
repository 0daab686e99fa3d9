package models

import (
	"time"

	"github.com/amirphl/Tarazu/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Rule metadata keys. Hydration stamps provenance onto every rule it emits
// so expanded rules stay traceable to the baseline field and placeholder
// they replaced.
const (
	RuleMetaSourceField       = "source_field"
	RuleMetaPlaceholderRule   = "placeholder_rule_uuid"
	RuleMetaSourceText        = "source_text"
	RuleMetaRequiresConfig    = "requires_configuration"
	RuleMetaForeignKeyRule    = "foreign_key_rule"
	RuleMetaBaselinePlacehold = "baseline_placeholder"
)

// Rule is a single conditional pricing adjustment inside a group. Conditions
// is the root condition group (empty means the rule always applies); Action
// is the exactly-one pricing action. Rules are evaluated in EvaluationOrder,
// Priority only breaking order ties. Deactivated rules are kept for
// provenance and skipped by the evaluator.
type Rule struct {
	ID              uint          `gorm:"primaryKey" json:"id"`
	UUID            uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:uk_rules_uuid" json:"uuid"`
	GroupID         uint          `gorm:"not null;index:idx_rules_group_id" json:"group_id"`
	Name            string        `gorm:"size:255;not null" json:"name"`
	Description     *string       `gorm:"type:text" json:"description,omitempty"`
	EvaluationOrder int           `gorm:"not null;default:0;index:idx_rules_evaluation_order" json:"evaluation_order"`
	Priority        int           `gorm:"not null;default:0" json:"priority"`
	IsActive        *bool         `gorm:"default:true;index:idx_rules_is_active" json:"is_active"`
	Conditions      ConditionNode `gorm:"type:jsonb;not null" json:"conditions"`
	Action          ActionSpec    `gorm:"type:jsonb;not null" json:"action"`
	Metadata        MetadataMap   `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt       time.Time     `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_rules_created_at" json:"created_at"`
	UpdatedAt       *time.Time    `json:"updated_at,omitempty"`
}

// TableName returns the table name for the model
func (Rule) TableName() string {
	return "rules"
}

// BeforeCreate is called before creating a new record
func (r *Rule) BeforeCreate(tx *gorm.DB) error {
	if r.UUID == uuid.Nil {
		r.UUID = uuid.New()
	}
	if r.IsActive == nil {
		r.IsActive = utils.ToPtr(true)
	}
	if r.Metadata == nil {
		r.Metadata = MetadataMap{}
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (r *Rule) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	r.UpdatedAt = &now
	return nil
}

// Active reports whether the evaluator considers the rule
func (r *Rule) Active() bool {
	return utils.IsTrue(r.IsActive)
}

// IsPlaceholder reports whether the rule is an unhydrated baseline
// placeholder
func (r *Rule) IsPlaceholder() bool {
	return r.Metadata.GetBool(RuleMetaBaselinePlacehold)
}

// IsHydrated reports whether the rule was emitted by baseline hydration
func (r *Rule) IsHydrated() bool {
	_, ok := r.Metadata.GetString(RuleMetaSourceField)
	return ok && !r.IsPlaceholder()
}

// RuleFilter represents filter criteria for rules
type RuleFilter struct {
	ID            *uint      `json:"id,omitempty"`
	UUID          *uuid.UUID `json:"uuid,omitempty"`
	GroupID       *uint      `json:"group_id,omitempty"`
	Name          *string    `json:"name,omitempty"`
	IsActive      *bool      `json:"is_active,omitempty"`
	CreatedAfter  *time.Time `json:"created_after,omitempty"`
	CreatedBefore *time.Time `json:"created_before,omitempty"`
}
