package repository

import (
	"context"
	"testing"
	"time"

	"github.com/amirphl/Tarazu/models"
	"github.com/amirphl/Tarazu/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRulesetRepo(t *testing.T) {
	ctx := context.Background()

	t.Run("save assigns defaults", func(t *testing.T) {
		repo := NewMemoryCatalog().Rulesets()

		rs := &models.Ruleset{Name: "Workstation Pricing"}
		require.NoError(t, repo.Save(ctx, rs))

		assert.NotZero(t, rs.ID)
		assert.NotEqual(t, uuid.Nil, rs.UUID)
		assert.True(t, rs.Active())
		assert.False(t, rs.CreatedAt.IsZero())
	})

	t.Run("save keeps explicit values", func(t *testing.T) {
		repo := NewMemoryCatalog().Rulesets()

		id := uuid.New()
		rs := &models.Ruleset{Name: "Pinned", UUID: id, IsActive: utils.ToPtr(false)}
		require.NoError(t, repo.Save(ctx, rs))

		got, err := repo.ByUUID(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.False(t, got.Active())
	})

	t.Run("lookups return nil for unknown ids", func(t *testing.T) {
		repo := NewMemoryCatalog().Rulesets()

		got, err := repo.ByID(ctx, 42)
		require.NoError(t, err)
		assert.Nil(t, got)

		got, err = repo.ByUUID(ctx, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("entities are snapshots", func(t *testing.T) {
		repo := NewMemoryCatalog().Rulesets()

		rs := &models.Ruleset{Name: "Workstation Pricing"}
		require.NoError(t, repo.Save(ctx, rs))

		got, err := repo.ByID(ctx, rs.ID)
		require.NoError(t, err)
		got.Name = "mutated locally"

		again, err := repo.ByID(ctx, rs.ID)
		require.NoError(t, err)
		assert.Equal(t, "Workstation Pricing", again.Name)
	})

	t.Run("update persists and stamps", func(t *testing.T) {
		repo := NewMemoryCatalog().Rulesets()

		rs := &models.Ruleset{Name: "Workstation Pricing"}
		require.NoError(t, repo.Save(ctx, rs))

		rs.Priority = 7
		require.NoError(t, repo.Update(ctx, rs))

		got, err := repo.ByID(ctx, rs.ID)
		require.NoError(t, err)
		assert.Equal(t, 7, got.Priority)
		assert.NotNil(t, got.UpdatedAt)
	})

	t.Run("filters", func(t *testing.T) {
		repo := NewMemoryCatalog().Rulesets()

		require.NoError(t, repo.Save(ctx, &models.Ruleset{Name: "Workstation Pricing", Priority: 5}))
		require.NoError(t, repo.Save(ctx, &models.Ruleset{Name: "Server Pricing", Priority: 10}))
		require.NoError(t, repo.Save(ctx, &models.Ruleset{Name: "Retired", IsActive: utils.ToPtr(false)}))

		name := "Server Pricing"
		exists, err := repo.Exists(ctx, models.RulesetFilter{Name: &name})
		require.NoError(t, err)
		assert.True(t, exists)

		count, err := repo.Count(ctx, models.RulesetFilter{IsActive: utils.ToPtr(true)})
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)

		minPriority := 6
		out, err := repo.ByFilter(ctx, models.RulesetFilter{MinPriority: &minPriority}, "", 0, 0)
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, "Server Pricing", out[0].Name)
	})

	t.Run("pagination", func(t *testing.T) {
		repo := NewMemoryCatalog().Rulesets()
		for _, name := range []string{"A", "B", "C"} {
			require.NoError(t, repo.Save(ctx, &models.Ruleset{Name: name}))
		}

		page, err := repo.ByFilter(ctx, models.RulesetFilter{}, "", 2, 0)
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, "A", page[0].Name)

		page, err = repo.ByFilter(ctx, models.RulesetFilter{}, "", 2, 2)
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, "C", page[0].Name)

		page, err = repo.ByFilter(ctx, models.RulesetFilter{}, "", 2, 9)
		require.NoError(t, err)
		assert.Empty(t, page)
	})
}

func TestMemoryCatalogListActiveWithRules(t *testing.T) {
	ctx := context.Background()
	catalog := NewMemoryCatalog()

	workstation := &models.Ruleset{Name: "Workstation Pricing", Priority: 5}
	server := &models.Ruleset{Name: "Server Pricing", Priority: 10}
	retired := &models.Ruleset{Name: "Retired", IsActive: utils.ToPtr(false)}
	for _, rs := range []*models.Ruleset{workstation, server, retired} {
		require.NoError(t, catalog.Rulesets().Save(ctx, rs))
	}

	// Saved out of display order on purpose.
	second := &models.RuleGroup{RulesetID: workstation.ID, Name: "Component Adders", DisplayOrder: 2}
	first := &models.RuleGroup{RulesetID: workstation.ID, Name: "Condition Discounts", DisplayOrder: 1}
	require.NoError(t, catalog.Groups().Save(ctx, second))
	require.NoError(t, catalog.Groups().Save(ctx, first))

	late := &models.Rule{GroupID: first.ID, Name: "Late", EvaluationOrder: 2}
	lowPriority := &models.Rule{GroupID: first.ID, Name: "Low", EvaluationOrder: 1, Priority: 10}
	highPriority := &models.Rule{GroupID: first.ID, Name: "High", EvaluationOrder: 1, Priority: 20}
	for _, rule := range []*models.Rule{late, lowPriority, highPriority} {
		require.NoError(t, catalog.Rules().Save(ctx, rule))
	}

	out, err := catalog.Rulesets().ListActiveWithRules(ctx)
	require.NoError(t, err)

	require.Len(t, out, 2)
	assert.Equal(t, "Server Pricing", out[0].Name)
	assert.Equal(t, "Workstation Pricing", out[1].Name)

	groups := out[1].Groups
	require.Len(t, groups, 2)
	assert.Equal(t, "Condition Discounts", groups[0].Name)
	assert.Equal(t, "Component Adders", groups[1].Name)

	rules := groups[0].Rules
	require.Len(t, rules, 3)
	assert.Equal(t, "High", rules[0].Name)
	assert.Equal(t, "Low", rules[1].Name)
	assert.Equal(t, "Late", rules[2].Name)
}

func TestMemoryRuleRepo(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T) (*MemoryCatalog, *models.Ruleset, *models.RuleGroup) {
		t.Helper()
		catalog := NewMemoryCatalog()
		rs := &models.Ruleset{Name: "Workstation Pricing"}
		require.NoError(t, catalog.Rulesets().Save(ctx, rs))
		group := &models.RuleGroup{RulesetID: rs.ID, Name: "Adjustments"}
		require.NoError(t, catalog.Groups().Save(ctx, group))
		return catalog, rs, group
	}

	t.Run("save batch assigns distinct identities", func(t *testing.T) {
		catalog, _, group := seed(t)

		rules := []*models.Rule{
			{GroupID: group.ID, Name: "First"},
			{GroupID: group.ID, Name: "Second"},
		}
		require.NoError(t, catalog.Rules().SaveBatch(ctx, rules))

		assert.NotEqual(t, rules[0].ID, rules[1].ID)
		assert.NotEqual(t, rules[0].UUID, rules[1].UUID)
		assert.NotNil(t, rules[0].Metadata)
		assert.True(t, rules[0].Active())
	})

	t.Run("deactivate", func(t *testing.T) {
		catalog, _, group := seed(t)

		rule := &models.Rule{GroupID: group.ID, Name: "Discount"}
		require.NoError(t, catalog.Rules().Save(ctx, rule))

		require.NoError(t, catalog.Rules().Deactivate(ctx, rule.ID))
		got, err := catalog.Rules().ByID(ctx, rule.ID)
		require.NoError(t, err)
		assert.False(t, got.Active())
		assert.NotNil(t, got.UpdatedAt)

		assert.NoError(t, catalog.Rules().Deactivate(ctx, 999))
	})

	t.Run("list by ruleset crosses groups", func(t *testing.T) {
		catalog, rs, group := seed(t)

		other := &models.Ruleset{Name: "Server Pricing"}
		require.NoError(t, catalog.Rulesets().Save(ctx, other))
		otherGroup := &models.RuleGroup{RulesetID: other.ID, Name: "Adjustments"}
		require.NoError(t, catalog.Groups().Save(ctx, otherGroup))

		mine := &models.Rule{GroupID: group.ID, Name: "Mine"}
		theirs := &models.Rule{GroupID: otherGroup.ID, Name: "Theirs"}
		require.NoError(t, catalog.Rules().Save(ctx, mine))
		require.NoError(t, catalog.Rules().Save(ctx, theirs))

		out, err := catalog.Rules().ListByRuleset(ctx, rs.ID)
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, "Mine", out[0].Name)
	})

	t.Run("list by source field", func(t *testing.T) {
		catalog, rs, group := seed(t)

		hydrated := &models.Rule{
			GroupID:  group.ID,
			Name:     "RAM Generation: ddr3",
			Metadata: models.MetadataMap{models.RuleMetaSourceField: "specs.ram_generation"},
		}
		unrelated := &models.Rule{GroupID: group.ID, Name: "Handling"}
		require.NoError(t, catalog.Rules().Save(ctx, hydrated))
		require.NoError(t, catalog.Rules().Save(ctx, unrelated))

		out, err := catalog.Rules().ListBySourceField(ctx, rs.ID, "specs.ram_generation")
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, "RAM Generation: ddr3", out[0].Name)

		out, err = catalog.Rules().ListBySourceField(ctx, rs.ID, "specs.storage_type")
		require.NoError(t, err)
		assert.Empty(t, out)
	})

	t.Run("count by group filter", func(t *testing.T) {
		catalog, _, group := seed(t)

		require.NoError(t, catalog.Rules().Save(ctx, &models.Rule{GroupID: group.ID, Name: "One"}))
		require.NoError(t, catalog.Rules().Save(ctx, &models.Rule{GroupID: group.ID, Name: "Two"}))

		count, err := catalog.Rules().Count(ctx, models.RuleFilter{GroupID: &group.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})
}

func TestMemoryBaselineFieldRepo(t *testing.T) {
	ctx := context.Background()
	catalog := NewMemoryCatalog()

	rs := &models.Ruleset{Name: "Workstation Pricing"}
	require.NoError(t, catalog.Rulesets().Save(ctx, rs))

	field := &models.BaselineField{
		RulesetID:   rs.ID,
		Key:         "specs.ram_generation",
		FieldType:   models.BaselineFieldTypeEnumMultiplier,
		EnumMapping: models.EnumMapping{"ddr3": 0.7},
	}
	require.NoError(t, catalog.BaselineFields().Save(ctx, field))

	t.Run("save assigns defaults", func(t *testing.T) {
		assert.NotZero(t, field.ID)
		assert.NotEqual(t, uuid.Nil, field.UUID)
		assert.False(t, field.IsHydrated())
		assert.NotNil(t, field.Metadata)
	})

	t.Run("exists by ruleset and key", func(t *testing.T) {
		key := "specs.ram_generation"
		exists, err := catalog.BaselineFields().Exists(ctx, models.BaselineFieldFilter{RulesetID: &rs.ID, Key: &key})
		require.NoError(t, err)
		assert.True(t, exists)

		missing := "specs.storage_type"
		exists, err = catalog.BaselineFields().Exists(ctx, models.BaselineFieldFilter{RulesetID: &rs.ID, Key: &missing})
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("hydrated filter follows updates", func(t *testing.T) {
		count, err := catalog.BaselineFields().Count(ctx, models.BaselineFieldFilter{Hydrated: utils.ToPtr(true)})
		require.NoError(t, err)
		assert.Zero(t, count)

		field.Hydrated = utils.ToPtr(true)
		field.HydratedAt = utils.UTCNowPtr()
		require.NoError(t, catalog.BaselineFields().Update(ctx, field))

		count, err = catalog.BaselineFields().Count(ctx, models.BaselineFieldFilter{Hydrated: utils.ToPtr(true)})
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("list by ruleset", func(t *testing.T) {
		out, err := catalog.BaselineFields().ListByRuleset(ctx, rs.ID)
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, "specs.ram_generation", out[0].Key)

		out, err = catalog.BaselineFields().ListByRuleset(ctx, rs.ID+1)
		require.NoError(t, err)
		assert.Empty(t, out)
	})
}

func TestMemoryAuditLogRepo(t *testing.T) {
	ctx := context.Background()
	catalog := NewMemoryCatalog()
	repo := catalog.AuditLogs()

	rulesetID := uint(1)
	older := &models.AuditLog{
		Actor:     "tester",
		Action:    models.AuditActionRuleCreated,
		RulesetID: &rulesetID,
		CreatedAt: time.Now().UTC().Add(-time.Hour),
	}
	newer := &models.AuditLog{
		Actor:     "tester",
		Action:    models.AuditActionRuleCreated,
		RulesetID: &rulesetID,
	}
	failed := &models.AuditLog{
		Actor:        "tester",
		Action:       models.AuditActionHydrationFieldFailed,
		Success:      utils.ToPtr(false),
		ErrorMessage: utils.ToPtr("placeholder rule not found"),
	}
	for _, entry := range []*models.AuditLog{older, newer, failed} {
		require.NoError(t, repo.Save(ctx, entry))
	}

	t.Run("save assigns defaults", func(t *testing.T) {
		assert.NotZero(t, older.ID)
		assert.True(t, utils.IsTrue(older.Success))
		assert.False(t, newer.CreatedAt.IsZero())
	})

	t.Run("list by action newest first", func(t *testing.T) {
		out, err := repo.ListByAction(ctx, models.AuditActionRuleCreated, 10, 0)
		require.NoError(t, err)
		require.Len(t, out, 2)
		assert.Equal(t, newer.ID, out[0].ID)
		assert.Equal(t, older.ID, out[1].ID)
	})

	t.Run("list failed actions", func(t *testing.T) {
		out, err := repo.ListFailedActions(ctx, 10, 0)
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, models.AuditActionHydrationFieldFailed, out[0].Action)
		assert.True(t, out[0].IsFailed())
	})

	t.Run("list by ruleset", func(t *testing.T) {
		out, err := repo.ListByRuleset(ctx, rulesetID, 10, 0)
		require.NoError(t, err)
		assert.Len(t, out, 2)
	})

	t.Run("limit", func(t *testing.T) {
		out, err := repo.ListByAction(ctx, models.AuditActionRuleCreated, 1, 0)
		require.NoError(t, err)
		assert.Len(t, out, 1)
	})
}

func TestMemoryTransactionRunner(t *testing.T) {
	ctx := context.Background()
	runner := NewMemoryCatalog().TransactionRunner()

	ran := false
	err := runner.RunInTransaction(ctx, func(txCtx context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)

	sentinel := assert.AnError
	err = runner.RunInTransaction(ctx, func(txCtx context.Context) error { return sentinel })
	assert.ErrorIs(t, err, sentinel)
}
