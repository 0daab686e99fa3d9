package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// ActionType represents the pricing behavior of a rule action
type ActionType string

const (
	ActionTypeFixedValue     ActionType = "fixed_value"
	ActionTypePerUnit        ActionType = "per_unit"
	ActionTypePercentage     ActionType = "percentage"
	ActionTypeBenchmarkBased ActionType = "benchmark_based"
	ActionTypeFormula        ActionType = "formula"
)

// String returns the string representation of the action type
func (t ActionType) String() string {
	return string(t)
}

// Valid checks if the action type is valid
func (t ActionType) Valid() bool {
	switch t {
	case ActionTypeFixedValue, ActionTypePerUnit, ActionTypePercentage,
		ActionTypeBenchmarkBased, ActionTypeFormula:
		return true
	default:
		return false
	}
}

// MultiplierType represents one stage of the multiplier cascade
type MultiplierType string

const (
	MultiplierTypeField     MultiplierType = "field"
	MultiplierTypeCondition MultiplierType = "condition"
	MultiplierTypeAge       MultiplierType = "age"
	MultiplierTypeBrand     MultiplierType = "brand"
)

// String returns the string representation of the multiplier type
func (t MultiplierType) String() string {
	return string(t)
}

// Valid checks if the multiplier type is valid
func (t MultiplierType) Valid() bool {
	switch t {
	case MultiplierTypeField, MultiplierTypeCondition, MultiplierTypeAge, MultiplierTypeBrand:
		return true
	default:
		return false
	}
}

// MultiplierSpec scales a rule's base amount by a context-derived factor.
//
// field:     Field names a context path; Mapping maps its value to a factor.
// condition: Mapping maps the item's condition grade to a factor. Field
//            overrides the default "condition" path.
// age:       AnnualRate depreciates linearly per year of age read from Field
//            (default "item.age_years"), floored at zero.
// brand:     Mapping maps the manufacturer read from Field (default
//            "item.manufacturer") to a factor.
//
// A multiplier that does not apply (missing mapping entry, unresolved path,
// malformed spec) contributes a neutral 1.0.
type MultiplierSpec struct {
	Type       MultiplierType     `json:"type"`
	Field      string             `json:"field,omitempty"`
	Mapping    map[string]float64 `json:"mapping,omitempty"`
	AnnualRate float64            `json:"annual_rate,omitempty"`
}

// ActionSpec is the JSON specification of a rule's pricing action.
//
// Amount carries the fixed amount (fixed_value), the per-unit rate
// (per_unit), the percentage of the running price (percentage), or the
// per-point coefficient (benchmark_based). MetricKey names the context path
// of the unit quantity (per_unit) or the benchmark score (benchmark_based).
// Formula holds the expression for formula actions. An explicit 0.0 Amount is
// a legitimate amount, never a missing one.
type ActionSpec struct {
	Type        ActionType       `json:"type"`
	Amount      float64          `json:"value"`
	Formula     string           `json:"formula,omitempty"`
	MetricKey   string           `json:"metric_key,omitempty"`
	Multipliers []MultiplierSpec `json:"multipliers,omitempty"`
}

// Validate checks the structural shape of the action
func (a *ActionSpec) Validate() error {
	if !a.Type.Valid() {
		return fmt.Errorf("invalid action type %q", a.Type)
	}
	switch a.Type {
	case ActionTypeFormula:
		if a.Formula == "" {
			return fmt.Errorf("formula action requires a formula")
		}
	case ActionTypePerUnit, ActionTypeBenchmarkBased:
		if a.MetricKey == "" {
			return fmt.Errorf("%s action requires a metric key", a.Type)
		}
	}
	for i := range a.Multipliers {
		if !a.Multipliers[i].Type.Valid() {
			return fmt.Errorf("multiplier %d: invalid type %q", i, a.Multipliers[i].Type)
		}
	}
	return nil
}

// Value implements the driver.Valuer interface for ActionSpec
func (a ActionSpec) Value() (driver.Value, error) {
	return json.Marshal(a)
}

// Scan implements the sql.Scanner interface for ActionSpec
func (a *ActionSpec) Scan(value any) error {
	if value == nil {
		*a = ActionSpec{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into ActionSpec", value)
	}

	return json.Unmarshal(bytes, a)
}
