package dto

import (
	"encoding/json"
	"time"
)

// CreateRulesetRequest represents the request to create a new ruleset
type CreateRulesetRequest struct {
	Name                string          `json:"name" validate:"required,max=255"`
	Description         *string         `json:"description,omitempty" validate:"omitempty,max=1000"`
	Priority            int             `json:"priority"`
	SelectionConditions json.RawMessage `json:"selection_conditions,omitempty"`
	Actor               string          `json:"-"`
	RequestID           string          `json:"-"`
}

// CreateRulesetResponse represents the response to create a new ruleset
type CreateRulesetResponse struct {
	Message   string `json:"message"`
	UUID      string `json:"uuid"`
	CreatedAt string `json:"created_at"`
}

// CreateRuleGroupRequest represents the request to add a group to a ruleset
type CreateRuleGroupRequest struct {
	RulesetUUID  string  `json:"-"`
	Name         string  `json:"name" validate:"required,max=255"`
	Description  *string `json:"description,omitempty" validate:"omitempty,max=1000"`
	DisplayOrder int     `json:"display_order"`
	Actor        string  `json:"-"`
	RequestID    string  `json:"-"`
}

// CreateRuleGroupResponse represents the response to add a group to a ruleset
type CreateRuleGroupResponse struct {
	Message   string `json:"message"`
	UUID      string `json:"uuid"`
	CreatedAt string `json:"created_at"`
}

// CreateRuleRequest represents the request to add a rule to a group
type CreateRuleRequest struct {
	GroupUUID       string          `json:"-"`
	Name            string          `json:"name" validate:"required,max=255"`
	Description     *string         `json:"description,omitempty" validate:"omitempty,max=1000"`
	EvaluationOrder int             `json:"evaluation_order"`
	Priority        int             `json:"priority"`
	Conditions      json.RawMessage `json:"conditions,omitempty"`
	Action          json.RawMessage `json:"action" validate:"required"`
	Metadata        map[string]any  `json:"metadata,omitempty"`
	Actor           string          `json:"-"`
	RequestID       string          `json:"-"`
}

// CreateRuleResponse represents the response to add a rule to a group
type CreateRuleResponse struct {
	Message   string `json:"message"`
	UUID      string `json:"uuid"`
	CreatedAt string `json:"created_at"`
}

// DeactivateRuleRequest represents the request to deactivate a rule
type DeactivateRuleRequest struct {
	RuleUUID  string `json:"-"`
	Actor     string `json:"actor" validate:"required,max=255"`
	RequestID string `json:"-"`
}

// DeactivateRuleResponse represents the response to deactivate a rule
type DeactivateRuleResponse struct {
	Message string `json:"message"`
}

// RegisterBaselineFieldRequest represents the request to register a baseline pricing field
type RegisterBaselineFieldRequest struct {
	RulesetUUID string             `json:"-"`
	Key         string             `json:"key" validate:"required,max=255"`
	Label       *string            `json:"label,omitempty" validate:"omitempty,max=255"`
	FieldType   string             `json:"field_type" validate:"required,oneof=scalar enum_multiplier formula fixed"`
	EnumMapping map[string]float64 `json:"enum_mapping,omitempty"`
	FormulaText *string            `json:"formula_text,omitempty"`
	Metadata    map[string]any     `json:"metadata,omitempty"`
	Actor       string             `json:"-"`
	RequestID   string             `json:"-"`
}

// RegisterBaselineFieldResponse represents the response to register a baseline pricing field
type RegisterBaselineFieldResponse struct {
	Message             string  `json:"message"`
	UUID                string  `json:"uuid"`
	PlaceholderRuleUUID *string `json:"placeholder_rule_uuid,omitempty"`
	CreatedAt           string  `json:"created_at"`
}

// GetRulesetRequest represents the request to fetch one ruleset with its rules
type GetRulesetRequest struct {
	UUID string `json:"-"`
}

// RuleDTO represents the rule specification in responses
type RuleDTO struct {
	UUID            string          `json:"uuid"`
	Name            string          `json:"name"`
	Description     *string         `json:"description,omitempty"`
	EvaluationOrder int             `json:"evaluation_order"`
	Priority        int             `json:"priority"`
	IsActive        bool            `json:"is_active"`
	Conditions      json.RawMessage `json:"conditions,omitempty"`
	Action          json.RawMessage `json:"action"`
	Metadata        map[string]any  `json:"metadata,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       *time.Time      `json:"updated_at,omitempty"`
}

// RuleGroupDTO represents the group specification in responses
type RuleGroupDTO struct {
	UUID         string    `json:"uuid"`
	Name         string    `json:"name"`
	Description  *string   `json:"description,omitempty"`
	DisplayOrder int       `json:"display_order"`
	Rules        []RuleDTO `json:"rules,omitempty"`
}

// GetRulesetResponse represents the full ruleset tree in responses
type GetRulesetResponse struct {
	UUID                string          `json:"uuid"`
	Name                string          `json:"name"`
	Description         *string         `json:"description,omitempty"`
	Priority            int             `json:"priority"`
	IsActive            bool            `json:"is_active"`
	SelectionConditions json.RawMessage `json:"selection_conditions,omitempty"`
	Groups              []RuleGroupDTO  `json:"groups,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           *time.Time      `json:"updated_at,omitempty"`
}

// ListRulesetsRequest represents the request to list rulesets
type ListRulesetsRequest struct {
	OnlyActive *bool `json:"only_active,omitempty"`
	Page       int   `json:"page" validate:"omitempty,min=1"`
	PageSize   int   `json:"page_size" validate:"omitempty,min=1,max=100"`
}

// RulesetSummaryDTO represents a ruleset row in list responses
type RulesetSummaryDTO struct {
	UUID       string    `json:"uuid"`
	Name       string    `json:"name"`
	Priority   int       `json:"priority"`
	IsActive   bool      `json:"is_active"`
	GroupCount int       `json:"group_count"`
	RuleCount  int       `json:"rule_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// ListRulesetsResponse represents the response to list rulesets
type ListRulesetsResponse struct {
	Message string              `json:"message"`
	Items   []RulesetSummaryDTO `json:"items"`
	Total   int64               `json:"total"`
}
