package commands

import (
	"context"
	"fmt"

	"github.com/amirphl/Tarazu/app/dto"
	businessflow "github.com/amirphl/Tarazu/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// HydrateCommand expands a ruleset's baseline fields into concrete rules
type HydrateCommand struct {
	hydrationFlow businessflow.HydrationFlow
	validator     *validator.Validate
}

func NewHydrateCommand(hydrationFlow businessflow.HydrationFlow) *HydrateCommand {
	return &HydrateCommand{
		hydrationFlow: hydrationFlow,
		validator:     validator.New(),
	}
}

// Run hydrates one ruleset and prints the per-field outcome. Field-level
// failures are reported but do not fail the command; only contract and
// infrastructure errors do.
func (c *HydrateCommand) Run(ctx context.Context, rulesetUUID, actor string) error {
	req := &dto.HydrateRulesetRequest{
		RulesetUUID: rulesetUUID,
		Actor:       actor,
		RequestID:   uuid.New().String(),
	}
	if err := c.validator.Struct(req); err != nil {
		return validationError(err)
	}

	res, err := c.hydrationFlow.HydrateRuleset(ctx, req)
	if err != nil {
		return err
	}

	fmt.Printf("Hydration %s: %d rules created, %d skipped\n", res.Status, res.RulesCreated, res.RulesSkipped)
	for _, field := range res.Fields {
		line := fmt.Sprintf("  %-28s %-16s %-12s created=%d skipped=%d",
			field.FieldKey, field.FieldType, field.Status, field.RulesCreated, field.RulesSkipped)
		if field.Error != nil {
			line += " error=" + *field.Error
		}
		fmt.Println(line)
	}

	return nil
}
