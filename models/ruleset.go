package models

import (
	"time"

	"github.com/amirphl/Tarazu/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Ruleset is the top-level container of pricing rules. At most one ruleset
// applies to an item per evaluation. SelectionConditions, when present, gate
// which items the ruleset serves; a ruleset without them is a default
// candidate. Priority breaks ties between competing rulesets (higher wins,
// then lowest ID).
type Ruleset struct {
	ID                  uint           `gorm:"primaryKey" json:"id"`
	UUID                uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uk_rulesets_uuid" json:"uuid"`
	Name                string         `gorm:"size:255;not null;index:idx_rulesets_name" json:"name"`
	Description         *string        `gorm:"type:text" json:"description,omitempty"`
	Priority            int            `gorm:"not null;default:0;index:idx_rulesets_priority" json:"priority"`
	IsActive            *bool          `gorm:"default:true;index:idx_rulesets_is_active" json:"is_active"`
	SelectionConditions *ConditionNode `gorm:"type:jsonb" json:"selection_conditions,omitempty"`
	CreatedAt           time.Time      `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_rulesets_created_at" json:"created_at"`
	UpdatedAt           *time.Time     `gorm:"index:idx_rulesets_updated_at" json:"updated_at,omitempty"`

	// Relations
	Groups []RuleGroup `gorm:"foreignKey:RulesetID" json:"groups,omitempty"`
}

// TableName returns the table name for the model
func (Ruleset) TableName() string {
	return "rulesets"
}

// BeforeCreate is called before creating a new record
func (r *Ruleset) BeforeCreate(tx *gorm.DB) error {
	if r.UUID == uuid.Nil {
		r.UUID = uuid.New()
	}
	if r.IsActive == nil {
		r.IsActive = utils.ToPtr(true)
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (r *Ruleset) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	r.UpdatedAt = &now
	return nil
}

// Active reports whether the ruleset participates in selection
func (r *Ruleset) Active() bool {
	return utils.IsTrue(r.IsActive)
}

// HasSelectionConditions reports whether the ruleset is gated by a condition
// tree. A present but empty tree counts as unconditional.
func (r *Ruleset) HasSelectionConditions() bool {
	return r.SelectionConditions != nil && !r.SelectionConditions.IsEmpty()
}

// RulesetFilter represents filter criteria for rulesets
type RulesetFilter struct {
	ID            *uint      `json:"id,omitempty"`
	UUID          *uuid.UUID `json:"uuid,omitempty"`
	Name          *string    `json:"name,omitempty"`
	IsActive      *bool      `json:"is_active,omitempty"`
	MinPriority   *int       `json:"min_priority,omitempty"`
	CreatedAfter  *time.Time `json:"created_after,omitempty"`
	CreatedBefore *time.Time `json:"created_before,omitempty"`
}
