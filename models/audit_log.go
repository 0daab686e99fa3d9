// Package models contains domain entities and business models for the valuation rule catalog
package models

import (
	"encoding/json"
	"time"
)

type AuditLog struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	Actor        string          `gorm:"size:255;not null;index:idx_audit_actor" json:"actor"`
	Action       string          `gorm:"size:64;not null;index:idx_audit_action" json:"action"`
	RulesetID    *uint           `gorm:"index:idx_audit_ruleset_id" json:"ruleset_id,omitempty"`
	Description  *string         `gorm:"type:text" json:"description,omitempty"`
	RequestID    *string         `gorm:"size:255;index:idx_audit_request_id" json:"request_id,omitempty"`
	Metadata     json.RawMessage `gorm:"type:jsonb;index:idx_audit_metadata,type:gin" json:"metadata,omitempty"`
	Success      *bool           `gorm:"default:true;index:idx_audit_success" json:"success"`
	ErrorMessage *string         `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time       `gorm:"default:CURRENT_TIMESTAMP;index:idx_audit_created_at" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_log"
}

// Audit action constants
const (
	AuditActionRulesetCreated          = "ruleset_created"
	AuditActionRulesetDeactivated      = "ruleset_deactivated"
	AuditActionRuleGroupCreated        = "rule_group_created"
	AuditActionRuleCreated             = "rule_created"
	AuditActionRuleDeactivated         = "rule_deactivated"
	AuditActionBaselineFieldRegistered = "baseline_field_registered"
	AuditActionRulesetHydrated         = "ruleset_hydrated"
	AuditActionHydrationFieldFailed    = "hydration_field_failed"
)

// AuditLogFilter represents filter criteria for audit log queries
type AuditLogFilter struct {
	ID            *uint
	Actor         *string
	Action        *string
	RulesetID     *uint
	Success       *bool
	RequestID     *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

func (a *AuditLog) IsFailed() bool {
	return a.Success != nil && !*a.Success
}

// IsMutationEvent reports whether the entry records a catalog mutation
func (a *AuditLog) IsMutationEvent() bool {
	mutationActions := map[string]bool{
		AuditActionRulesetCreated:          true,
		AuditActionRulesetDeactivated:      true,
		AuditActionRuleGroupCreated:        true,
		AuditActionRuleCreated:             true,
		AuditActionRuleDeactivated:         true,
		AuditActionBaselineFieldRegistered: true,
		AuditActionRulesetHydrated:         true,
	}
	return mutationActions[a.Action]
}
