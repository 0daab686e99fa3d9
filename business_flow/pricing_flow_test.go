package businessflow

import (
	"context"
	"testing"

	"github.com/amirphl/Tarazu/app/dto"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (h *flowHarness) mustEvaluate(t *testing.T, req *dto.EvaluateListingRequest) *dto.EvaluateListingResponse {
	t.Helper()
	resp, err := h.pricing.EvaluateListing(context.Background(), req)
	require.NoError(t, err)
	return resp
}

func TestEvaluateListingFullStack(t *testing.T) {
	h := newFlowHarness(t)
	rsUUID := h.mustCreateRuleset(t, "Workstation Pricing")

	discounts := h.mustAddGroup(t, rsUUID, "Condition Discounts", 1)
	h.mustAddRule(t, discounts, "Used discount",
		`{"field":"condition","operator":"equals","value":"used"}`,
		`{"type":"percentage","value":-15}`)

	adders := h.mustAddGroup(t, rsUUID, "Component Adders", 2)
	h.mustAddRule(t, adders, "RAM per GB", "",
		`{"type":"per_unit","value":2.5,"metric_key":"specs.ram_gb"}`)

	resp := h.mustEvaluate(t, &dto.EvaluateListingRequest{
		BasePrice: 300,
		Context: map[string]any{
			"condition": "used",
			"specs":     map[string]any{"ram_gb": 16.0},
		},
	})

	// -15% of 300, then 2.5 per GB over 16 GB.
	assert.InDelta(t, 300.0, resp.BasePrice, 1e-9)
	assert.InDelta(t, -5.0, resp.TotalAdjustment, 1e-9)
	assert.InDelta(t, 295.0, resp.AdjustedPrice, 1e-9)
	assert.Equal(t, 2, resp.RulesEvaluated)
	assert.Equal(t, 2, resp.RulesMatched)
	assert.Equal(t, "default", resp.SelectionMode)
	assert.Equal(t, "USD", resp.Currency)
	require.NotNil(t, resp.RulesetUUID)
	assert.Equal(t, rsUUID, *resp.RulesetUUID)
	require.NotNil(t, resp.RulesetName)
	assert.Equal(t, "Workstation Pricing", *resp.RulesetName)
	assert.NotEmpty(t, resp.EvaluatedAt)

	require.Len(t, resp.Breakdown, 2)
	first := resp.Breakdown[0]
	assert.Equal(t, "Condition Discounts", first.GroupName)
	assert.Equal(t, "Used discount", first.RuleName)
	assert.Equal(t, "percentage", first.ActionType)
	assert.InDelta(t, -45.0, first.RawAmount, 1e-9)
	assert.InDelta(t, -45.0, first.FinalAmount, 1e-9)
	assert.NotEmpty(t, first.RuleUUID)

	second := resp.Breakdown[1]
	assert.Equal(t, "Component Adders", second.GroupName)
	assert.InDelta(t, 40.0, second.FinalAmount, 1e-9)
}

func TestEvaluateListingFormulaAndMultipliers(t *testing.T) {
	h := newFlowHarness(t)
	rsUUID := h.mustCreateRuleset(t, "Workstation Pricing")

	base := h.mustAddGroup(t, rsUUID, "Base Adjustments", 1)
	h.mustAddRule(t, base, "Trade-in deduction", "", `{"type":"fixed_value","value":-100}`)

	market := h.mustAddGroup(t, rsUUID, "Market", 2)
	h.mustAddRule(t, market, "Market uplift", "",
		`{"type":"formula","formula":"pricing.running_price * 0.1","multipliers":[{"type":"condition","mapping":{"used":0.9}}]}`)

	resp := h.mustEvaluate(t, &dto.EvaluateListingRequest{
		BasePrice: 300,
		Context:   map[string]any{"condition": "used"},
	})

	// Deduction leaves 200 running; the formula reads that, the condition
	// multiplier trims it to 18.
	assert.InDelta(t, -82.0, resp.TotalAdjustment, 1e-9)
	assert.InDelta(t, 218.0, resp.AdjustedPrice, 1e-9)

	require.Len(t, resp.Breakdown, 2)
	uplift := resp.Breakdown[1]
	assert.Equal(t, "formula", uplift.ActionType)
	assert.InDelta(t, 20.0, uplift.RawAmount, 1e-9)
	require.Len(t, uplift.Multipliers, 1)
	assert.Equal(t, "condition", uplift.Multipliers[0].Type)
	assert.InDelta(t, 0.9, uplift.Multipliers[0].Factor, 1e-9)
	assert.InDelta(t, 18.0, uplift.FinalAmount, 1e-9)
	assert.Nil(t, uplift.FormulaError)
}

func TestEvaluateListingSelectionModes(t *testing.T) {
	h := newFlowHarness(t)

	serverResp, err := h.authoring.CreateRuleset(context.Background(), &dto.CreateRulesetRequest{
		Name:                "Server Pricing",
		Priority:            10,
		SelectionConditions: []byte(`{"field":"category","operator":"equals","value":"server"}`),
		Actor:               "tester",
	})
	require.NoError(t, err)
	serverGroup := h.mustAddGroup(t, serverResp.UUID, "Adjustments", 1)
	h.mustAddRule(t, serverGroup, "Rack premium", "", `{"type":"fixed_value","value":50}`)

	generalUUID := h.mustCreateRuleset(t, "General Pricing")
	generalGroup := h.mustAddGroup(t, generalUUID, "Adjustments", 1)
	h.mustAddRule(t, generalGroup, "Handling", "", `{"type":"fixed_value","value":10}`)

	t.Run("conditional gate wins for servers", func(t *testing.T) {
		resp := h.mustEvaluate(t, &dto.EvaluateListingRequest{
			BasePrice: 500,
			Context:   map[string]any{"category": "server"},
		})
		assert.Equal(t, "conditional", resp.SelectionMode)
		require.NotNil(t, resp.RulesetName)
		assert.Equal(t, "Server Pricing", *resp.RulesetName)
		assert.InDelta(t, 550.0, resp.AdjustedPrice, 1e-9)
	})

	t.Run("default pool serves everything else", func(t *testing.T) {
		resp := h.mustEvaluate(t, &dto.EvaluateListingRequest{
			BasePrice: 500,
			Context:   map[string]any{"category": "workstation"},
		})
		assert.Equal(t, "default", resp.SelectionMode)
		require.NotNil(t, resp.RulesetName)
		assert.Equal(t, "General Pricing", *resp.RulesetName)
		assert.InDelta(t, 510.0, resp.AdjustedPrice, 1e-9)
	})

	t.Run("pinned overrides the gate", func(t *testing.T) {
		resp := h.mustEvaluate(t, &dto.EvaluateListingRequest{
			BasePrice:   500,
			Context:     map[string]any{"category": "server"},
			RulesetUUID: &generalUUID,
		})
		assert.Equal(t, "pinned", resp.SelectionMode)
		assert.InDelta(t, 510.0, resp.AdjustedPrice, 1e-9)
	})

	t.Run("pinned ruleset must exist", func(t *testing.T) {
		unknown := uuid.New().String()
		_, err := h.pricing.EvaluateListing(context.Background(), &dto.EvaluateListingRequest{
			BasePrice:   500,
			Context:     map[string]any{},
			RulesetUUID: &unknown,
		})
		require.Error(t, err)
		assert.True(t, IsRulesetNotFound(err))

		var businessErr *BusinessError
		require.ErrorAs(t, err, &businessErr)
		assert.Equal(t, "PRICING_RULESET_NOT_FOUND", businessErr.Code)
	})
}

func TestEvaluateListingEmptyCatalog(t *testing.T) {
	h := newFlowHarness(t)

	eur := "eur"
	resp := h.mustEvaluate(t, &dto.EvaluateListingRequest{
		BasePrice: 300,
		Context:   map[string]any{"condition": "used"},
		Currency:  &eur,
	})

	assert.Equal(t, "none", resp.SelectionMode)
	assert.Nil(t, resp.RulesetUUID)
	assert.InDelta(t, 300.0, resp.AdjustedPrice, 1e-9)
	assert.Zero(t, resp.TotalAdjustment)
	assert.Empty(t, resp.Breakdown)
	assert.Equal(t, "EUR", resp.Currency)
}

func TestEvaluateListingValidation(t *testing.T) {
	ctx := context.Background()
	h := newFlowHarness(t)

	t.Run("nil request", func(t *testing.T) {
		_, err := h.pricing.EvaluateListing(ctx, nil)
		assert.ErrorIs(t, err, ErrListingContextNil)
	})

	t.Run("missing context", func(t *testing.T) {
		_, err := h.pricing.EvaluateListing(ctx, &dto.EvaluateListingRequest{BasePrice: 100})
		assert.ErrorIs(t, err, ErrListingContextNil)
	})

	t.Run("negative base price", func(t *testing.T) {
		_, err := h.pricing.EvaluateListing(ctx, &dto.EvaluateListingRequest{
			BasePrice: -1,
			Context:   map[string]any{},
		})
		assert.ErrorIs(t, err, ErrBasePriceNegative)
	})

	t.Run("malformed pinned uuid", func(t *testing.T) {
		bad := "not-a-uuid"
		_, err := h.pricing.EvaluateListing(ctx, &dto.EvaluateListingRequest{
			BasePrice:   100,
			Context:     map[string]any{},
			RulesetUUID: &bad,
		})
		require.Error(t, err)

		var businessErr *BusinessError
		require.ErrorAs(t, err, &businessErr)
		assert.Equal(t, "PRICING_RULESET_UUID_INVALID", businessErr.Code)
	})
}

func TestEvaluateListingCacheInvalidation(t *testing.T) {
	ctx := context.Background()
	h := newFlowHarness(t)
	rsUUID := h.mustCreateRuleset(t, "Workstation Pricing")
	groupUUID := h.mustAddGroup(t, rsUUID, "Adjustments", 1)
	h.mustAddRule(t, groupUUID, "Trade-in deduction", "", `{"type":"fixed_value","value":-20}`)

	req := &dto.EvaluateListingRequest{
		BasePrice: 300,
		Context:   map[string]any{"condition": "used"},
	}

	resp := h.mustEvaluate(t, req)
	assert.InDelta(t, 280.0, resp.AdjustedPrice, 1e-9)

	_, primed := h.cache.GetActiveRulesets(ctx)
	assert.True(t, primed)

	// Authoring invalidates the snapshot, so the next evaluation sees the
	// new rule immediately.
	h.mustAddRule(t, groupUUID, "Restocking fee", "", `{"type":"fixed_value","value":5}`)

	_, primed = h.cache.GetActiveRulesets(ctx)
	assert.False(t, primed)

	resp = h.mustEvaluate(t, req)
	assert.InDelta(t, 285.0, resp.AdjustedPrice, 1e-9)
	assert.Equal(t, 2, resp.RulesMatched)
}
