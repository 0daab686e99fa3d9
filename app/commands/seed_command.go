package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/amirphl/Tarazu/app/dto"
	businessflow "github.com/amirphl/Tarazu/business_flow"
	"github.com/amirphl/Tarazu/utils"
	"github.com/google/uuid"
)

const seedActor = "seed-demo"

// SeedCommand provisions a small demo catalog through the authoring flow and
// hydrates it, so a fresh install has something to evaluate against.
type SeedCommand struct {
	authoringFlow businessflow.AuthoringFlow
	hydrationFlow businessflow.HydrationFlow
}

func NewSeedCommand(authoringFlow businessflow.AuthoringFlow, hydrationFlow businessflow.HydrationFlow) *SeedCommand {
	return &SeedCommand{
		authoringFlow: authoringFlow,
		hydrationFlow: hydrationFlow,
	}
}

// Run seeds two rulesets: a default workstation catalog with condition,
// component and benchmark groups plus baseline fields, and a conditional
// server catalog that takes over for server-category listings.
func (c *SeedCommand) Run(ctx context.Context) error {
	requestID := uuid.New().String()

	ruleset, err := c.authoringFlow.CreateRuleset(ctx, &dto.CreateRulesetRequest{
		Name:        "Demo Workstation Pricing",
		Description: utils.ToPtr("Default catalog for used workstations and desktops"),
		Actor:       seedActor,
		RequestID:   requestID,
	})
	if err != nil {
		return err
	}
	fmt.Printf("✓ Ruleset created: %s\n", ruleset.UUID)

	serverRuleset, err := c.authoringFlow.CreateRuleset(ctx, &dto.CreateRulesetRequest{
		Name:        "Demo Server Pricing",
		Description: utils.ToPtr("Overrides the default catalog for server-category listings"),
		Priority:    10,
		SelectionConditions: json.RawMessage(`{
			"op": "and",
			"children": [
				{"field": "category", "operator": "equals", "value": "server"}
			]
		}`),
		Actor:     seedActor,
		RequestID: requestID,
	})
	if err != nil {
		return err
	}
	fmt.Printf("✓ Ruleset created: %s\n", serverRuleset.UUID)

	groups := []struct {
		name  string
		order int
	}{
		{"Condition Adjustments", 0},
		{"Component Adders", 1},
		{"Benchmark Adders", 2},
	}
	groupUUIDs := make(map[string]string, len(groups))
	for _, g := range groups {
		created, err := c.authoringFlow.AddRuleGroup(ctx, &dto.CreateRuleGroupRequest{
			RulesetUUID:  ruleset.UUID,
			Name:         g.name,
			DisplayOrder: g.order,
			Actor:        seedActor,
			RequestID:    requestID,
		})
		if err != nil {
			return err
		}
		groupUUIDs[g.name] = created.UUID
	}
	fmt.Printf("✓ Groups created: %d\n", len(groupUUIDs))

	rules := []dto.CreateRuleRequest{
		{
			GroupUUID:  groupUUIDs["Condition Adjustments"],
			Name:       "Used discount",
			Conditions: json.RawMessage(`{"op":"and","children":[{"field":"condition","operator":"equals","value":"used"}]}`),
			Action:     json.RawMessage(`{"type":"percentage","value":-15.0}`),
		},
		{
			GroupUUID:  groupUUIDs["Component Adders"],
			Name:       "RAM per GB",
			Conditions: json.RawMessage(`{"op":"and","children":[{"field":"specs.ram_gb","operator":"greater_than","value":0}]}`),
			Action: json.RawMessage(`{
				"type": "per_unit",
				"value": 2.5,
				"metric_key": "specs.ram_gb",
				"multipliers": [
					{"type": "field", "field": "specs.ram_generation", "mapping": {"ddr3": 0.7, "ddr4": 1.0, "ddr5": 1.3}}
				]
			}`),
		},
		{
			GroupUUID:  groupUUIDs["Benchmark Adders"],
			Name:       "CPU benchmark value",
			Conditions: json.RawMessage(`{"op":"and","children":[{"field":"benchmarks.cpu_mark","operator":"greater_than","value":0}]}`),
			Action:     json.RawMessage(`{"type":"benchmark_based","value":0.01,"metric_key":"benchmarks.cpu_mark"}`),
		},
	}
	for i := range rules {
		rules[i].EvaluationOrder = i
		rules[i].Actor = seedActor
		rules[i].RequestID = requestID
		if _, err := c.authoringFlow.AddRule(ctx, &rules[i]); err != nil {
			return err
		}
	}
	fmt.Printf("✓ Rules created: %d\n", len(rules))

	fields := []dto.RegisterBaselineFieldRequest{
		{
			Key:         "ram_generation",
			FieldType:   "enum_multiplier",
			EnumMapping: map[string]float64{"ddr3": 0.7, "ddr4": 1.0, "ddr5": 1.3},
		},
		{
			Key:         "gpu",
			FieldType:   "formula",
			FormulaText: utils.ToPtr("clamp(benchmarks.gpu_mark / 1000.0 * 8.0, 0.0, 400.0)"),
		},
		{
			Key:       "psu",
			FieldType: "fixed",
			Metadata:  map[string]any{"default_value": 25.0},
		},
		{
			Key:       "weight_kg",
			FieldType: "scalar",
		},
	}
	for i := range fields {
		fields[i].RulesetUUID = ruleset.UUID
		fields[i].Actor = seedActor
		fields[i].RequestID = requestID
		if _, err := c.authoringFlow.RegisterBaselineField(ctx, &fields[i]); err != nil {
			return err
		}
	}
	fmt.Printf("✓ Baseline fields registered: %d\n", len(fields))

	res, err := c.hydrationFlow.HydrateRuleset(ctx, &dto.HydrateRulesetRequest{
		RulesetUUID: ruleset.UUID,
		Actor:       seedActor,
		RequestID:   requestID,
	})
	if err != nil {
		return err
	}
	fmt.Printf("✓ Hydration %s: %d rules created, %d skipped\n", res.Status, res.RulesCreated, res.RulesSkipped)

	fmt.Printf("\nEvaluate a listing with:\n  tarazu evaluate listing.json --ruleset %s\n", ruleset.UUID)
	return nil
}
