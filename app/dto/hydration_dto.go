package dto

// HydrateRulesetRequest represents the request to expand a ruleset's baseline fields into rules
type HydrateRulesetRequest struct {
	RulesetUUID string `json:"-"`
	Actor       string `json:"actor" validate:"required,max=255"`
	RequestID   string `json:"-"`
}

// Hydration field statuses reported per baseline field
const (
	HydrationFieldCreated     = "created"
	HydrationFieldSkipped     = "skipped"
	HydrationFieldPlaceholder = "placeholder"
	HydrationFieldFailed      = "failed"
)

// FieldHydrationSummary represents the outcome of hydrating one baseline field
type FieldHydrationSummary struct {
	FieldKey     string  `json:"field_key"`
	FieldType    string  `json:"field_type"`
	Status       string  `json:"status"`
	RulesCreated int     `json:"rules_created"`
	RulesSkipped int     `json:"rules_skipped"`
	Error        *string `json:"error,omitempty"`
}

// HydrateRulesetResponse represents the outcome of a hydration run
type HydrateRulesetResponse struct {
	Message      string                  `json:"message"`
	Status       string                  `json:"status"`
	RulesCreated int                     `json:"rules_created"`
	RulesSkipped int                     `json:"rules_skipped"`
	Fields       []FieldHydrationSummary `json:"fields,omitempty"`
	HydratedAt   string                  `json:"hydrated_at"`
}
