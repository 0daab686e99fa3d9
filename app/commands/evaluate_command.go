package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/amirphl/Tarazu/app/dto"
	"github.com/amirphl/Tarazu/app/services"
	businessflow "github.com/amirphl/Tarazu/business_flow"
	"github.com/go-playground/validator/v10"
)

// EvaluateOptions carries flag overrides layered on top of the listing file
type EvaluateOptions struct {
	ContextPath     string
	BasePrice       *float64
	RulesetUUID     string
	Currency        string
	DefaultCurrency string
	ExportPath      string
	AsJSON          bool
}

// EvaluateCommand prices a listing described by a JSON file
type EvaluateCommand struct {
	pricingFlow businessflow.PricingFlow
	exporter    services.QuoteExporter
	validator   *validator.Validate
}

func NewEvaluateCommand(pricingFlow businessflow.PricingFlow, exporter services.QuoteExporter) *EvaluateCommand {
	return &EvaluateCommand{
		pricingFlow: pricingFlow,
		exporter:    exporter,
		validator:   validator.New(),
	}
}

// Run loads the listing file, applies flag overrides, validates the request
// and prints the priced result. Flag values win over file values; the
// configured currency fills in when neither sets one.
func (c *EvaluateCommand) Run(ctx context.Context, opts EvaluateOptions) error {
	data, err := os.ReadFile(opts.ContextPath)
	if err != nil {
		return fmt.Errorf("failed to read listing file: %w", err)
	}

	var req dto.EvaluateListingRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("invalid listing file: %w", err)
	}

	if opts.BasePrice != nil {
		req.BasePrice = *opts.BasePrice
	}
	if opts.RulesetUUID != "" {
		req.RulesetUUID = &opts.RulesetUUID
	}
	if opts.Currency != "" {
		req.Currency = &opts.Currency
	}
	if req.Currency == nil && opts.DefaultCurrency != "" {
		req.Currency = &opts.DefaultCurrency
	}

	if err := c.validator.Struct(&req); err != nil {
		return validationError(err)
	}

	res, err := c.pricingFlow.EvaluateListing(ctx, &req)
	if err != nil {
		return err
	}

	if opts.AsJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
	} else {
		printEvaluation(res)
	}

	if opts.ExportPath != "" {
		filename, content, err := c.exporter.ExportQuote(res)
		if err != nil {
			return fmt.Errorf("failed to build quote workbook: %w", err)
		}
		target := opts.ExportPath
		if target == "auto" {
			target = filename
		}
		if err := os.WriteFile(target, content, 0o644); err != nil {
			return fmt.Errorf("failed to write quote workbook: %w", err)
		}
		fmt.Printf("✓ Quote exported to %s\n", target)
	}

	return nil
}

func printEvaluation(res *dto.EvaluateListingResponse) {
	name := "(none)"
	if res.RulesetName != nil {
		name = *res.RulesetName
	}
	fmt.Printf("Ruleset:        %s [%s]\n", name, res.SelectionMode)
	fmt.Printf("Base price:     %.2f %s\n", res.BasePrice, res.Currency)
	fmt.Printf("Adjustment:     %+.2f %s\n", res.TotalAdjustment, res.Currency)
	fmt.Printf("Adjusted price: %.2f %s\n", res.AdjustedPrice, res.Currency)
	fmt.Printf("Rules:          %d evaluated, %d matched\n", res.RulesEvaluated, res.RulesMatched)

	if len(res.Breakdown) == 0 {
		return
	}
	fmt.Println("\nBreakdown:")
	for _, entry := range res.Breakdown {
		fmt.Printf("  [%s] %s (%s): %+.2f\n", entry.GroupName, entry.RuleName, entry.ActionType, entry.FinalAmount)
		if len(entry.Multipliers) > 0 {
			parts := make([]string, 0, len(entry.Multipliers))
			for _, m := range entry.Multipliers {
				parts = append(parts, fmt.Sprintf("%s x%.4f", m.Type, m.Factor))
			}
			fmt.Printf("      multipliers: %s\n", strings.Join(parts, ", "))
		}
		if entry.FormulaError != nil {
			fmt.Printf("      formula error: %s\n", *entry.FormulaError)
		}
	}
}
