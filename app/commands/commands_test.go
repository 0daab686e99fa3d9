package commands

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/amirphl/Tarazu/app/dto"
	"github.com/amirphl/Tarazu/app/services"
	businessflow "github.com/amirphl/Tarazu/business_flow"
	"github.com/amirphl/Tarazu/engine"
	"github.com/amirphl/Tarazu/models"
	"github.com/amirphl/Tarazu/repository"
	"github.com/amirphl/Tarazu/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// commandHarness backs the commands with in-memory repositories so tests
// exercise the full flow stack without a database.
type commandHarness struct {
	catalog   *repository.MemoryCatalog
	authoring businessflow.AuthoringFlow
	hydration businessflow.HydrationFlow
	pricing   businessflow.PricingFlow
}

func newCommandHarness(t *testing.T) *commandHarness {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	formulas, err := engine.NewFormulaEvaluator(0, logger)
	require.NoError(t, err)

	catalog := repository.NewMemoryCatalog()
	cache := businessflow.NewMemoryCatalogCache(time.Minute)

	return &commandHarness{
		catalog: catalog,
		authoring: businessflow.NewAuthoringFlow(
			catalog.Rulesets(), catalog.Groups(), catalog.Rules(),
			catalog.BaselineFields(), catalog.AuditLogs(),
			formulas, cache, 0, logger,
		),
		hydration: businessflow.NewHydrationFlow(
			catalog.Rulesets(), catalog.Rules(), catalog.BaselineFields(),
			catalog.AuditLogs(), catalog.TransactionRunner(),
			formulas, cache, nil, nil, logger,
		),
		pricing: businessflow.NewPricingFlow(
			catalog.Rulesets(), cache, engine.NewEvaluator(formulas, logger), logger,
		),
	}
}

func writeListingFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "listing.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestEvaluateCommandRun(t *testing.T) {
	h := newCommandHarness(t)
	ctx := context.Background()

	created, err := h.authoring.CreateRuleset(ctx, &dto.CreateRulesetRequest{
		Name:  "CLI Pricing",
		Actor: "tester",
	})
	require.NoError(t, err)
	group, err := h.authoring.AddRuleGroup(ctx, &dto.CreateRuleGroupRequest{
		RulesetUUID: created.UUID,
		Name:        "Adjustments",
		Actor:       "tester",
	})
	require.NoError(t, err)
	_, err = h.authoring.AddRule(ctx, &dto.CreateRuleRequest{
		GroupUUID:  group.UUID,
		Name:       "Used discount",
		Conditions: json.RawMessage(`{"field":"condition","operator":"equals","value":"used"}`),
		Action:     json.RawMessage(`{"type":"percentage","value":-10}`),
		Actor:      "tester",
	})
	require.NoError(t, err)

	cmd := NewEvaluateCommand(h.pricing, services.NewExcelQuoteExporter())

	t.Run("prices a listing file and exports the quote", func(t *testing.T) {
		listing := writeListingFile(t, `{
			"base_price": 400,
			"context": {"condition": "used"}
		}`)
		exportPath := filepath.Join(t.TempDir(), "quote.xlsx")

		err := cmd.Run(ctx, EvaluateOptions{
			ContextPath: listing,
			ExportPath:  exportPath,
			AsJSON:      true,
		})
		require.NoError(t, err)

		info, err := os.Stat(exportPath)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	})

	t.Run("flag overrides win over file values", func(t *testing.T) {
		listing := writeListingFile(t, `{
			"base_price": 400,
			"context": {"condition": "new"}
		}`)

		err := cmd.Run(ctx, EvaluateOptions{
			ContextPath: listing,
			BasePrice:   utils.ToPtr(100.0),
			Currency:    "EUR",
		})
		require.NoError(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		err := cmd.Run(ctx, EvaluateOptions{ContextPath: filepath.Join(t.TempDir(), "nope.json")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read listing file")
	})

	t.Run("malformed file", func(t *testing.T) {
		listing := writeListingFile(t, `{"base_price": `)
		err := cmd.Run(ctx, EvaluateOptions{ContextPath: listing})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid listing file")
	})

	t.Run("validation rejects missing context", func(t *testing.T) {
		listing := writeListingFile(t, `{"base_price": 400}`)
		err := cmd.Run(ctx, EvaluateOptions{ContextPath: listing})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "validation failed")
		assert.Contains(t, err.Error(), "Context")
	})

	t.Run("validation rejects bad currency", func(t *testing.T) {
		listing := writeListingFile(t, `{
			"base_price": 400,
			"context": {"condition": "used"}
		}`)
		err := cmd.Run(ctx, EvaluateOptions{ContextPath: listing, Currency: "EURO"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "validation failed")
	})
}

func TestHydrateCommandRun(t *testing.T) {
	h := newCommandHarness(t)
	ctx := context.Background()
	cmd := NewHydrateCommand(h.hydration)

	t.Run("validation rejects missing actor", func(t *testing.T) {
		err := cmd.Run(ctx, "b1946ac9-2d0c-4f3a-9f1e-000000000000", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "validation failed")
		assert.Contains(t, err.Error(), "Actor")
	})

	t.Run("hydrates a seeded ruleset", func(t *testing.T) {
		created, err := h.authoring.CreateRuleset(ctx, &dto.CreateRulesetRequest{
			Name:  "Hydratable",
			Actor: "tester",
		})
		require.NoError(t, err)
		_, err = h.authoring.RegisterBaselineField(ctx, &dto.RegisterBaselineFieldRequest{
			RulesetUUID: created.UUID,
			Key:         "specs.storage_type",
			FieldType:   "enum_multiplier",
			EnumMapping: map[string]float64{"hdd": 0.6, "ssd": 1.0},
			Actor:       "tester",
		})
		require.NoError(t, err)

		require.NoError(t, cmd.Run(ctx, created.UUID, "tester"))

		fields, err := h.catalog.BaselineFields().ByFilter(ctx, models.BaselineFieldFilter{}, "", 0, 0)
		require.NoError(t, err)
		require.Len(t, fields, 1)
		assert.True(t, fields[0].IsHydrated())
	})
}

func TestSeedCommandRun(t *testing.T) {
	h := newCommandHarness(t)
	ctx := context.Background()

	cmd := NewSeedCommand(h.authoring, h.hydration)
	require.NoError(t, cmd.Run(ctx))

	list, err := h.authoring.ListRulesets(ctx, &dto.ListRulesetsRequest{})
	require.NoError(t, err)
	require.Len(t, list.Items, 2)

	byName := make(map[string]dto.RulesetSummaryDTO, len(list.Items))
	for _, item := range list.Items {
		byName[item.Name] = item
	}
	require.Contains(t, byName, "Demo Workstation Pricing")
	require.Contains(t, byName, "Demo Server Pricing")

	workstation := byName["Demo Workstation Pricing"]
	// Three authored groups plus the baseline group.
	assert.Equal(t, 4, workstation.GroupCount)
	assert.Greater(t, workstation.RuleCount, 3)

	// The seeded catalog is immediately evaluable.
	priced, err := h.pricing.EvaluateListing(ctx, &dto.EvaluateListingRequest{
		BasePrice: 500,
		Context: map[string]any{
			"condition": "used",
			"specs":     map[string]any{"ram_gb": 16.0, "ram_generation": "ddr4"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "default", priced.SelectionMode)
	require.NotNil(t, priced.RulesetName)
	assert.Equal(t, "Demo Workstation Pricing", *priced.RulesetName)
	assert.Positive(t, priced.RulesMatched)

	// Server listings route to the conditional ruleset.
	server, err := h.pricing.EvaluateListing(ctx, &dto.EvaluateListingRequest{
		BasePrice: 500,
		Context:   map[string]any{"category": "server"},
	})
	require.NoError(t, err)
	assert.Equal(t, "conditional", server.SelectionMode)
	require.NotNil(t, server.RulesetName)
	assert.Equal(t, "Demo Server Pricing", *server.RulesetName)
}
