package models

import (
	"testing"

	"github.com/amirphl/Tarazu/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleBeforeCreate(t *testing.T) {
	rule := Rule{
		GroupID:    1,
		Name:       "RAM per GB",
		Conditions: AndGroup(),
		Action:     ActionSpec{Type: ActionTypePerUnit, Amount: 2.5, MetricKey: "specs.ram_gb"},
	}
	require.NoError(t, rule.BeforeCreate(nil))

	assert.NotEqual(t, uuid.Nil, rule.UUID)
	require.NotNil(t, rule.IsActive)
	assert.True(t, *rule.IsActive)
	assert.NotNil(t, rule.Metadata)
	assert.False(t, rule.CreatedAt.IsZero())
}

func TestRuleActive(t *testing.T) {
	rule := Rule{}
	assert.False(t, rule.Active())

	rule.IsActive = utils.ToPtr(true)
	assert.True(t, rule.Active())

	rule.IsActive = utils.ToPtr(false)
	assert.False(t, rule.Active())
}

func TestRuleIsPlaceholder(t *testing.T) {
	rule := Rule{}
	assert.False(t, rule.IsPlaceholder())

	rule.Metadata = MetadataMap{RuleMetaBaselinePlacehold: true}
	assert.True(t, rule.IsPlaceholder())

	rule.Metadata = MetadataMap{RuleMetaBaselinePlacehold: false}
	assert.False(t, rule.IsPlaceholder())
}

func TestRuleIsHydrated(t *testing.T) {
	rule := Rule{}
	assert.False(t, rule.IsHydrated())

	rule.Metadata = MetadataMap{RuleMetaSourceField: "specs.ram_generation"}
	assert.True(t, rule.IsHydrated())

	// A placeholder references its source field but is not an expansion.
	rule.Metadata = MetadataMap{
		RuleMetaSourceField:       "specs.ram_generation",
		RuleMetaBaselinePlacehold: true,
	}
	assert.False(t, rule.IsHydrated())
}
