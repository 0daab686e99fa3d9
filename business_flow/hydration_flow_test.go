package businessflow

import (
	"context"
	"testing"

	"github.com/amirphl/Tarazu/app/dto"
	"github.com/amirphl/Tarazu/models"
	"github.com/amirphl/Tarazu/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (h *flowHarness) mustRegisterField(t *testing.T, rulesetUUID string, req dto.RegisterBaselineFieldRequest) *dto.RegisterBaselineFieldResponse {
	t.Helper()
	req.RulesetUUID = rulesetUUID
	req.Actor = "tester"
	resp, err := h.authoring.RegisterBaselineField(context.Background(), &req)
	require.NoError(t, err)
	return resp
}

func (h *flowHarness) mustHydrate(t *testing.T, rulesetUUID string) *dto.HydrateRulesetResponse {
	t.Helper()
	resp, err := h.hydration.HydrateRuleset(context.Background(), &dto.HydrateRulesetRequest{
		RulesetUUID: rulesetUUID,
		Actor:       "tester",
	})
	require.NoError(t, err)
	return resp
}

func (h *flowHarness) rulesetRules(t *testing.T, rulesetUUID string) []*models.Rule {
	t.Helper()
	rs := h.rulesetByUUID(t, rulesetUUID)
	rules, err := h.catalog.Rules().ListByRuleset(context.Background(), rs.ID)
	require.NoError(t, err)
	return rules
}

func (h *flowHarness) fieldByKey(t *testing.T, rulesetUUID, key string) *models.BaselineField {
	t.Helper()
	rs := h.rulesetByUUID(t, rulesetUUID)
	fields, err := h.catalog.BaselineFields().ListByRuleset(context.Background(), rs.ID)
	require.NoError(t, err)
	for _, field := range fields {
		if field.Key == key {
			return field
		}
	}
	t.Fatalf("baseline field %q not found", key)
	return nil
}

// hydratedByName indexes the rules hydration emitted, leaving placeholders out.
func hydratedByName(rules []*models.Rule) map[string]*models.Rule {
	out := make(map[string]*models.Rule)
	for _, rule := range rules {
		if rule.IsHydrated() {
			out[rule.Name] = rule
		}
	}
	return out
}

func summaryByKey(t *testing.T, resp *dto.HydrateRulesetResponse, key string) dto.FieldHydrationSummary {
	t.Helper()
	for _, summary := range resp.Fields {
		if summary.FieldKey == key {
			return summary
		}
	}
	t.Fatalf("no hydration summary for field %q", key)
	return dto.FieldHydrationSummary{}
}

func TestHydrateEnumField(t *testing.T) {
	h := newFlowHarness(t)
	rsUUID := h.mustCreateRuleset(t, "Workstation Pricing")
	label := "RAM Generation"
	registered := h.mustRegisterField(t, rsUUID, dto.RegisterBaselineFieldRequest{
		Key:         "specs.ram_generation",
		Label:       &label,
		FieldType:   "enum_multiplier",
		EnumMapping: map[string]float64{"ddr3": 0.7, "ddr4": 1.0, "ddr5": 1.3},
	})

	resp := h.mustHydrate(t, rsUUID)
	assert.Equal(t, "completed", resp.Status)
	assert.Equal(t, 3, resp.RulesCreated)
	assert.Zero(t, resp.RulesSkipped)
	require.Len(t, resp.Fields, 1)
	assert.Equal(t, dto.HydrationFieldCreated, resp.Fields[0].Status)
	assert.Equal(t, 3, resp.Fields[0].RulesCreated)

	rules := h.rulesetRules(t, rsUUID)
	require.Len(t, rules, 4)

	emitted := hydratedByName(rules)
	require.Len(t, emitted, 3)
	for value, factor := range map[string]float64{"ddr3": 70.0, "ddr4": 100.0, "ddr5": 130.0} {
		rule, ok := emitted["RAM Generation: "+value]
		require.True(t, ok, "missing rule for %s", value)
		assert.Equal(t, models.ActionTypePercentage, rule.Action.Type)
		assert.InDelta(t, factor, rule.Action.Amount, 1e-9)
		assert.Equal(t, "specs.ram_generation", rule.Conditions.Field)
		assert.Equal(t, models.ConditionOperatorEquals, rule.Conditions.Operator)
		assert.Equal(t, value, rule.Conditions.CompareValue)
		assert.True(t, rule.Active())

		sourceField, _ := rule.Metadata.GetString(models.RuleMetaSourceField)
		assert.Equal(t, "specs.ram_generation", sourceField)
		placeholderUUID, _ := rule.Metadata.GetString(models.RuleMetaPlaceholderRule)
		assert.Equal(t, *registered.PlaceholderRuleUUID, placeholderUUID)
	}

	placeholder := h.ruleByUUID(t, *registered.PlaceholderRuleUUID)
	assert.False(t, placeholder.Active())
	assert.True(t, placeholder.IsPlaceholder())

	field := h.fieldByKey(t, rsUUID, "specs.ram_generation")
	assert.True(t, field.IsHydrated())
	assert.NotNil(t, field.HydratedAt)

	t.Run("second run creates nothing", func(t *testing.T) {
		again := h.mustHydrate(t, rsUUID)
		assert.Equal(t, "completed", again.Status)
		assert.Zero(t, again.RulesCreated)
		assert.Equal(t, 3, again.RulesSkipped)
		require.Len(t, again.Fields, 1)
		assert.Equal(t, dto.HydrationFieldSkipped, again.Fields[0].Status)

		assert.Len(t, h.rulesetRules(t, rsUUID), 4)
	})
}

func TestHydrateFormulaField(t *testing.T) {
	h := newFlowHarness(t)
	rsUUID := h.mustCreateRuleset(t, "Workstation Pricing")

	gpuLabel := "GPU worth"
	compiled := "clamp(benchmarks.gpu_mark / 1000.0 * 8.0, 0.0, 400.0)"
	h.mustRegisterField(t, rsUUID, dto.RegisterBaselineFieldRequest{
		Key:         "specs.gpu_value",
		Label:       &gpuLabel,
		FieldType:   "formula",
		FormulaText: &compiled,
	})
	prose := "usd value of the installed graphics card"
	h.mustRegisterField(t, rsUUID, dto.RegisterBaselineFieldRequest{
		Key:         "specs.gpu_notes",
		FieldType:   "formula",
		FormulaText: &prose,
	})

	resp := h.mustHydrate(t, rsUUID)
	assert.Equal(t, "completed", resp.Status)
	assert.Equal(t, 2, resp.RulesCreated)

	assert.Equal(t, dto.HydrationFieldCreated, summaryByKey(t, resp, "specs.gpu_value").Status)
	assert.Equal(t, dto.HydrationFieldPlaceholder, summaryByKey(t, resp, "specs.gpu_notes").Status)

	emitted := hydratedByName(h.rulesetRules(t, rsUUID))

	formulaRule, ok := emitted["GPU worth"]
	require.True(t, ok)
	assert.Equal(t, models.ActionTypeFormula, formulaRule.Action.Type)
	assert.Equal(t, compiled, formulaRule.Action.Formula)
	assert.True(t, formulaRule.Conditions.IsEmpty())

	stub, ok := emitted["specs.gpu_notes (requires configuration)"]
	require.True(t, ok)
	assert.Equal(t, models.ActionTypeFixedValue, stub.Action.Type)
	assert.Zero(t, stub.Action.Amount)
	requiresConfig := stub.Metadata.GetBool(models.RuleMetaRequiresConfig)
	assert.True(t, requiresConfig)
	sourceText, _ := stub.Metadata.GetString(models.RuleMetaSourceText)
	assert.Equal(t, prose, sourceText)
}

func TestHydrateRelationshipField(t *testing.T) {
	h := newFlowHarness(t)
	rsUUID := h.mustCreateRuleset(t, "Workstation Pricing")

	text := "benchmarks.gpu_mark / 1000.0 * 8.0"
	h.mustRegisterField(t, rsUUID, dto.RegisterBaselineFieldRequest{
		Key:         "gpu",
		FieldType:   "formula",
		FormulaText: &text,
	})

	h.mustHydrate(t, rsUUID)

	emitted := hydratedByName(h.rulesetRules(t, rsUUID))
	rule, ok := emitted["gpu"]
	require.True(t, ok)
	foreignKey := rule.Metadata.GetBool(models.RuleMetaForeignKeyRule)
	assert.True(t, foreignKey)
}

func TestHydrateFixedField(t *testing.T) {
	h := newFlowHarness(t)
	rsUUID := h.mustCreateRuleset(t, "Workstation Pricing")

	h.mustRegisterField(t, rsUUID, dto.RegisterBaselineFieldRequest{
		Key:       "specs.shipping_fee",
		FieldType: "fixed",
		Metadata:  map[string]any{"default_value": 25.0},
	})
	h.mustRegisterField(t, rsUUID, dto.RegisterBaselineFieldRequest{
		Key:       "specs.handling_fee",
		FieldType: "fixed",
		Metadata:  map[string]any{"amount": 10.0},
	})
	h.mustRegisterField(t, rsUUID, dto.RegisterBaselineFieldRequest{
		Key:       "specs.misc_fee",
		FieldType: "fixed",
	})

	resp := h.mustHydrate(t, rsUUID)
	assert.Equal(t, "completed", resp.Status)
	assert.Equal(t, 3, resp.RulesCreated)

	emitted := hydratedByName(h.rulesetRules(t, rsUUID))
	require.Len(t, emitted, 3)
	assert.InDelta(t, 25.0, emitted["specs.shipping_fee"].Action.Amount, 1e-9)
	assert.InDelta(t, 10.0, emitted["specs.handling_fee"].Action.Amount, 1e-9)
	assert.Zero(t, emitted["specs.misc_fee"].Action.Amount)
	for _, rule := range emitted {
		assert.Equal(t, models.ActionTypeFixedValue, rule.Action.Type)
		assert.True(t, rule.Conditions.IsEmpty())
	}
}

func TestHydrateScalarField(t *testing.T) {
	h := newFlowHarness(t)
	rsUUID := h.mustCreateRuleset(t, "Workstation Pricing")
	h.mustRegisterField(t, rsUUID, dto.RegisterBaselineFieldRequest{
		Key:       "specs.weight_kg",
		FieldType: "scalar",
	})

	resp := h.mustHydrate(t, rsUUID)
	assert.Equal(t, "completed", resp.Status)
	assert.Zero(t, resp.RulesCreated)
	assert.Zero(t, resp.RulesSkipped)
	require.Len(t, resp.Fields, 1)
	assert.Equal(t, dto.HydrationFieldSkipped, resp.Fields[0].Status)

	assert.Empty(t, h.rulesetRules(t, rsUUID))
	assert.False(t, h.fieldByKey(t, rsUUID, "specs.weight_kg").IsHydrated())
}

func TestHydrateFieldFailureIsolation(t *testing.T) {
	ctx := context.Background()
	h := newFlowHarness(t)
	rsUUID := h.mustCreateRuleset(t, "Workstation Pricing")
	h.mustRegisterField(t, rsUUID, dto.RegisterBaselineFieldRequest{
		Key:         "specs.storage_type",
		FieldType:   "enum_multiplier",
		EnumMapping: map[string]float64{"hdd": 0.8, "ssd": 1.2},
	})

	// A field without its placeholder rule cannot expand; saved straight to
	// the repository because authoring would never produce it.
	rs := h.rulesetByUUID(t, rsUUID)
	broken := &models.BaselineField{
		RulesetID:   rs.ID,
		Key:         "specs.orphaned",
		FieldType:   models.BaselineFieldTypeEnumMultiplier,
		EnumMapping: models.EnumMapping{"a": 1.0},
		Hydrated:    utils.ToPtr(false),
	}
	require.NoError(t, h.catalog.BaselineFields().Save(ctx, broken))

	resp := h.mustHydrate(t, rsUUID)
	assert.Equal(t, "completed_with_failures", resp.Status)
	assert.Equal(t, 2, resp.RulesCreated)

	failed := summaryByKey(t, resp, "specs.orphaned")
	assert.Equal(t, dto.HydrationFieldFailed, failed.Status)
	require.NotNil(t, failed.Error)
	assert.Contains(t, *failed.Error, "placeholder rule not found")

	assert.True(t, h.fieldByKey(t, rsUUID, "specs.storage_type").IsHydrated())
	assert.False(t, h.fieldByKey(t, rsUUID, "specs.orphaned").IsHydrated())

	failures, err := h.catalog.AuditLogs().ListByAction(ctx, models.AuditActionHydrationFieldFailed, 10, 0)
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.True(t, failures[0].IsFailed())
	assert.False(t, failures[0].IsMutationEvent())

	runs, err := h.catalog.AuditLogs().ListByAction(ctx, models.AuditActionRulesetHydrated, 10, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.False(t, runs[0].IsFailed())
}

func TestHydrateRepairsDriftedFlag(t *testing.T) {
	ctx := context.Background()
	h := newFlowHarness(t)
	rsUUID := h.mustCreateRuleset(t, "Workstation Pricing")
	h.mustRegisterField(t, rsUUID, dto.RegisterBaselineFieldRequest{
		Key:         "specs.ram_generation",
		FieldType:   "enum_multiplier",
		EnumMapping: map[string]float64{"ddr3": 0.7, "ddr4": 1.0, "ddr5": 1.3},
	})
	h.mustHydrate(t, rsUUID)

	// Unset the flag while the emitted rules stay behind.
	field := h.fieldByKey(t, rsUUID, "specs.ram_generation")
	field.Hydrated = utils.ToPtr(false)
	field.HydratedAt = nil
	require.NoError(t, h.catalog.BaselineFields().Update(ctx, field))

	resp := h.mustHydrate(t, rsUUID)
	assert.Equal(t, "completed", resp.Status)
	assert.Zero(t, resp.RulesCreated)
	assert.Equal(t, 3, resp.RulesSkipped)

	assert.True(t, h.fieldByKey(t, rsUUID, "specs.ram_generation").IsHydrated())
	assert.Len(t, h.rulesetRules(t, rsUUID), 4)
}

func TestHydrateValidation(t *testing.T) {
	ctx := context.Background()
	h := newFlowHarness(t)

	t.Run("nil request", func(t *testing.T) {
		_, err := h.hydration.HydrateRuleset(ctx, nil)
		assert.ErrorIs(t, err, ErrRulesetUUIDRequired)
	})

	t.Run("missing uuid", func(t *testing.T) {
		_, err := h.hydration.HydrateRuleset(ctx, &dto.HydrateRulesetRequest{Actor: "tester"})
		assert.ErrorIs(t, err, ErrRulesetUUIDRequired)
	})

	t.Run("missing actor", func(t *testing.T) {
		_, err := h.hydration.HydrateRuleset(ctx, &dto.HydrateRulesetRequest{RulesetUUID: uuid.New().String()})
		assert.ErrorIs(t, err, ErrActorRequired)
	})

	t.Run("malformed uuid", func(t *testing.T) {
		_, err := h.hydration.HydrateRuleset(ctx, &dto.HydrateRulesetRequest{RulesetUUID: "not-a-uuid", Actor: "tester"})
		assert.Error(t, err)
	})

	t.Run("unknown ruleset", func(t *testing.T) {
		_, err := h.hydration.HydrateRuleset(ctx, &dto.HydrateRulesetRequest{RulesetUUID: uuid.New().String(), Actor: "tester"})
		assert.True(t, IsRulesetNotFound(err))
	})
}
