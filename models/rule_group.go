package models

import (
	"time"

	"github.com/amirphl/Tarazu/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RuleGroup is a named, ordered section of a ruleset (base adjustments,
// component adders, condition discounts, ...). Groups are evaluated in
// DisplayOrder; the group only references its owning ruleset, never the
// other way around in memory, so serialized trees stay acyclic.
type RuleGroup struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UUID         uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uk_rule_groups_uuid" json:"uuid"`
	RulesetID    uint       `gorm:"not null;index:idx_rule_groups_ruleset_id" json:"ruleset_id"`
	Name         string     `gorm:"size:255;not null" json:"name"`
	Description  *string    `gorm:"type:text" json:"description,omitempty"`
	DisplayOrder int        `gorm:"not null;default:0;index:idx_rule_groups_display_order" json:"display_order"`
	CreatedAt    time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`

	// Relations
	Rules []Rule `gorm:"foreignKey:GroupID" json:"rules,omitempty"`
}

// TableName returns the table name for the model
func (RuleGroup) TableName() string {
	return "rule_groups"
}

// BeforeCreate is called before creating a new record
func (g *RuleGroup) BeforeCreate(tx *gorm.DB) error {
	if g.UUID == uuid.Nil {
		g.UUID = uuid.New()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (g *RuleGroup) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	g.UpdatedAt = &now
	return nil
}

// RuleGroupFilter represents filter criteria for rule groups
type RuleGroupFilter struct {
	ID        *uint      `json:"id,omitempty"`
	UUID      *uuid.UUID `json:"uuid,omitempty"`
	RulesetID *uint      `json:"ruleset_id,omitempty"`
	Name      *string    `json:"name,omitempty"`
}
