package dto

// EvaluateListingRequest represents the request to price a single listing
type EvaluateListingRequest struct {
	BasePrice   float64        `json:"base_price" validate:"gte=0"`
	Context     map[string]any `json:"context" validate:"required"`
	RulesetUUID *string        `json:"ruleset_uuid,omitempty" validate:"omitempty,uuid"`
	Currency    *string        `json:"currency,omitempty" validate:"omitempty,len=3"`
}

// AppliedMultiplierDTO represents one multiplier applied to a rule contribution
type AppliedMultiplierDTO struct {
	Type   string  `json:"type"`
	Factor float64 `json:"factor"`
}

// RuleBreakdownDTO represents the contribution of one matched rule
type RuleBreakdownDTO struct {
	GroupName    string                 `json:"group_name"`
	RuleName     string                 `json:"rule_name"`
	RuleUUID     string                 `json:"rule_uuid"`
	ActionType   string                 `json:"action_type"`
	RawAmount    float64                `json:"raw_amount"`
	Multipliers  []AppliedMultiplierDTO `json:"multipliers,omitempty"`
	FinalAmount  float64                `json:"final_amount"`
	FormulaError *string                `json:"formula_error,omitempty"`
}

// EvaluateListingResponse represents the priced listing with its full breakdown
type EvaluateListingResponse struct {
	Message         string             `json:"message"`
	RulesetUUID     *string            `json:"ruleset_uuid,omitempty"`
	RulesetName     *string            `json:"ruleset_name,omitempty"`
	SelectionMode   string             `json:"selection_mode"`
	Currency        string             `json:"currency"`
	BasePrice       float64            `json:"base_price"`
	TotalAdjustment float64            `json:"total_adjustment"`
	AdjustedPrice   float64            `json:"adjusted_price"`
	RulesEvaluated  int                `json:"rules_evaluated"`
	RulesMatched    int                `json:"rules_matched"`
	Breakdown       []RuleBreakdownDTO `json:"breakdown,omitempty"`
	EvaluatedAt     string             `json:"evaluated_at"`
}
