package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/amirphl/Tarazu/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaselineFieldType represents how a baseline field turns into rules
type BaselineFieldType string

const (
	BaselineFieldTypeScalar         BaselineFieldType = "scalar"
	BaselineFieldTypeEnumMultiplier BaselineFieldType = "enum_multiplier"
	BaselineFieldTypeFormula        BaselineFieldType = "formula"
	BaselineFieldTypeFixed          BaselineFieldType = "fixed"
)

// String returns the string representation of the field type
func (t BaselineFieldType) String() string {
	return string(t)
}

// Valid checks if the field type is valid
func (t BaselineFieldType) Valid() bool {
	switch t {
	case BaselineFieldTypeScalar, BaselineFieldTypeEnumMultiplier,
		BaselineFieldTypeFormula, BaselineFieldTypeFixed:
		return true
	default:
		return false
	}
}

// EnumMapping maps an enum value to its worth factor (1.0 = neutral)
type EnumMapping map[string]float64

// Value implements the driver.Valuer interface for EnumMapping
func (m EnumMapping) Value() (driver.Value, error) {
	if m == nil {
		return json.Marshal(EnumMapping{})
	}
	return json.Marshal(m)
}

// Scan implements the sql.Scanner interface for EnumMapping
func (m *EnumMapping) Scan(value any) error {
	if value == nil {
		*m = EnumMapping{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into EnumMapping", value)
	}

	return json.Unmarshal(bytes, m)
}

// BaselineField is a declarative description of how one catalog attribute
// contributes to pricing, registered by catalog configuration and expanded
// into concrete rules by hydration. Key is the dotted context path the
// emitted conditions test. PlaceholderRuleID links the zero-value rule that
// stands in until the field is hydrated; Hydrated flips once expansion
// succeeded, making re-runs no-ops.
type BaselineField struct {
	ID                uint              `gorm:"primaryKey" json:"id"`
	UUID              uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:uk_baseline_fields_uuid" json:"uuid"`
	RulesetID         uint              `gorm:"not null;index:idx_baseline_fields_ruleset_id" json:"ruleset_id"`
	Key               string            `gorm:"size:255;not null;index:idx_baseline_fields_key" json:"key"`
	Label             *string           `gorm:"size:255" json:"label,omitempty"`
	FieldType         BaselineFieldType `gorm:"size:32;not null" json:"field_type"`
	EnumMapping       EnumMapping       `gorm:"type:jsonb" json:"enum_mapping,omitempty"`
	FormulaText       *string           `gorm:"type:text" json:"formula_text,omitempty"`
	Metadata          MetadataMap       `gorm:"type:jsonb" json:"metadata,omitempty"`
	Hydrated          *bool             `gorm:"default:false;index:idx_baseline_fields_hydrated" json:"hydrated"`
	PlaceholderRuleID *uint             `gorm:"index:idx_baseline_fields_placeholder_rule_id" json:"placeholder_rule_id,omitempty"`
	HydratedAt        *time.Time        `json:"hydrated_at,omitempty"`
	CreatedAt         time.Time         `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt         *time.Time        `json:"updated_at,omitempty"`
}

// TableName returns the table name for the model
func (BaselineField) TableName() string {
	return "baseline_fields"
}

// BeforeCreate is called before creating a new record
func (f *BaselineField) BeforeCreate(tx *gorm.DB) error {
	if f.UUID == uuid.Nil {
		f.UUID = uuid.New()
	}
	if f.Hydrated == nil {
		f.Hydrated = utils.ToPtr(false)
	}
	if f.Metadata == nil {
		f.Metadata = MetadataMap{}
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (f *BaselineField) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	f.UpdatedAt = &now
	return nil
}

// IsHydrated reports whether the field was already expanded into rules
func (f *BaselineField) IsHydrated() bool {
	return utils.IsTrue(f.Hydrated)
}

// ExpansionSize returns how many rules hydrating this field emits
func (f *BaselineField) ExpansionSize() int {
	switch f.FieldType {
	case BaselineFieldTypeScalar:
		return 0
	case BaselineFieldTypeEnumMultiplier:
		return len(f.EnumMapping)
	default:
		return 1
	}
}

// BaselineFieldFilter represents filter criteria for baseline fields
type BaselineFieldFilter struct {
	ID        *uint              `json:"id,omitempty"`
	UUID      *uuid.UUID         `json:"uuid,omitempty"`
	RulesetID *uint              `json:"ruleset_id,omitempty"`
	Key       *string            `json:"key,omitempty"`
	FieldType *BaselineFieldType `json:"field_type,omitempty"`
	Hydrated  *bool              `json:"hydrated,omitempty"`
}
