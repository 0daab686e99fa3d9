package engine

import (
	"log/slog"
	"strings"

	"github.com/amirphl/Tarazu/models"
)

// Context paths the brand and age multipliers read when the spec leaves
// Field empty. The condition multiplier defaults to the context's condition
// grade instead.
const (
	defaultBrandPath = "item.manufacturer"
	defaultAgePath   = "item.age_years"
)

// AppliedMultiplier records one cascade stage and the factor it contributed
type AppliedMultiplier struct {
	Type   models.MultiplierType `json:"type"`
	Factor float64               `json:"factor"`
}

// ActionResult is the outcome of applying one rule's action: the base amount
// before multipliers, every cascade stage with its factor, and the final
// signed adjustment. FormulaError carries the handled failure when a formula
// action contributed $0.
type ActionResult struct {
	RawBase      float64
	Multipliers  []AppliedMultiplier
	FinalAmount  float64
	FormulaError string
}

// ActionEngine computes the signed price adjustment of a matched rule.
// Malformed action content degrades to a $0 or neutral contribution with a
// warn log; it never fails the evaluation.
type ActionEngine struct {
	formulas *FormulaEvaluator
	logger   *slog.Logger
}

// NewActionEngine creates an action engine sharing the given formula
// evaluator. A nil logger falls back to slog.Default().
func NewActionEngine(formulas *FormulaEvaluator, logger *slog.Logger) *ActionEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &ActionEngine{formulas: formulas, logger: logger}
}

// Apply computes the adjustment for one action. basePrice is the item's
// pre-adjustment price, runningPrice the adjusted price accumulated so far
// (percentage actions scale the latter). An explicit zero amount is a
// legitimate $0 contribution, never treated as missing.
func (e *ActionEngine) Apply(action *models.ActionSpec, ctx Context, basePrice, runningPrice float64) ActionResult {
	result := ActionResult{}

	switch action.Type {
	case models.ActionTypeFixedValue:
		result.RawBase = action.Amount

	case models.ActionTypePerUnit:
		quantity, ok := toFloat64(ctx.Resolve(action.MetricKey))
		if !ok {
			e.logger.Warn("per-unit metric unresolved, contributing zero units",
				"metric_key", action.MetricKey)
			quantity = 0
		}
		result.RawBase = action.Amount * quantity

	case models.ActionTypePercentage:
		result.RawBase = runningPrice * action.Amount / 100

	case models.ActionTypeBenchmarkBased:
		score, ok := toFloat64(ctx.Resolve(action.MetricKey))
		if !ok {
			e.logger.Warn("benchmark score unresolved, contributing zero",
				"metric_key", action.MetricKey)
			score = 0
		}
		result.RawBase = score * action.Amount

	case models.ActionTypeFormula:
		value, err := e.formulas.Evaluate(action.Formula, ctx.WithPricing(basePrice, runningPrice))
		if err != nil {
			formulaFailures.Inc()
			e.logger.Warn("formula action failed, contributing zero",
				"formula", action.Formula,
				"error", err)
			result.FormulaError = err.Error()
			value = 0
		}
		result.RawBase = value

	default:
		e.logger.Warn("unknown action type, contributing zero", "type", action.Type.String())
	}

	result.FinalAmount = result.RawBase
	for _, applied := range e.cascade(action.Multipliers, ctx) {
		result.Multipliers = append(result.Multipliers, applied)
		result.FinalAmount *= applied.Factor
	}

	return result
}

// cascade orders the action's multipliers into the fixed sequence
// field, condition, age, brand and resolves each factor. Listing order only
// matters between multipliers of the same type.
func (e *ActionEngine) cascade(specs []models.MultiplierSpec, ctx Context) []AppliedMultiplier {
	if len(specs) == 0 {
		return nil
	}

	sequence := []models.MultiplierType{
		models.MultiplierTypeField,
		models.MultiplierTypeCondition,
		models.MultiplierTypeAge,
		models.MultiplierTypeBrand,
	}

	applied := make([]AppliedMultiplier, 0, len(specs))
	for _, stage := range sequence {
		for i := range specs {
			if specs[i].Type != stage {
				continue
			}
			applied = append(applied, AppliedMultiplier{
				Type:   stage,
				Factor: e.factor(&specs[i], ctx),
			})
		}
	}

	for i := range specs {
		if !specs[i].Type.Valid() {
			e.logger.Warn("unknown multiplier type, neutralized", "type", specs[i].Type.String())
			applied = append(applied, AppliedMultiplier{Type: specs[i].Type, Factor: 1.0})
		}
	}

	return applied
}

func (e *ActionEngine) factor(spec *models.MultiplierSpec, ctx Context) float64 {
	switch spec.Type {
	case models.MultiplierTypeField:
		if spec.Field == "" || len(spec.Mapping) == 0 {
			e.logger.Warn("malformed field multiplier, neutralized", "field", spec.Field)
			return 1.0
		}
		return e.mappedFactor(spec, spec.Field, ctx)

	case models.MultiplierTypeCondition:
		if len(spec.Mapping) == 0 {
			e.logger.Warn("malformed condition multiplier, neutralized")
			return 1.0
		}
		if spec.Field != "" {
			return e.mappedFactor(spec, spec.Field, ctx)
		}
		// Default source is the grade, wherever the context stores it.
		grade := ctx.ConditionGrade()
		if grade == "" {
			return 1.0
		}
		if factor, exists := spec.Mapping[grade]; exists {
			return factor
		}
		if factor, exists := spec.Mapping[strings.ToLower(grade)]; exists {
			return factor
		}
		return 1.0

	case models.MultiplierTypeAge:
		if spec.AnnualRate <= 0 {
			e.logger.Warn("malformed age multiplier, neutralized", "annual_rate", spec.AnnualRate)
			return 1.0
		}
		path := spec.Field
		if path == "" {
			path = defaultAgePath
		}
		years, ok := toFloat64(ctx.Resolve(path))
		if !ok || years < 0 {
			return 1.0
		}
		factor := 1.0 - years*spec.AnnualRate
		if factor < 0 {
			factor = 0
		}
		return factor

	case models.MultiplierTypeBrand:
		if len(spec.Mapping) == 0 {
			e.logger.Warn("malformed brand multiplier, neutralized")
			return 1.0
		}
		path := spec.Field
		if path == "" {
			path = defaultBrandPath
		}
		return e.mappedFactor(spec, path, ctx)

	default:
		return 1.0
	}
}

// mappedFactor looks the resolved context value up in the multiplier's
// mapping, exact key first, lowercase second. Anything that does not map
// stays neutral.
func (e *ActionEngine) mappedFactor(spec *models.MultiplierSpec, path string, ctx Context) float64 {
	value := ctx.Resolve(path)
	key, ok := toString(value)
	if !ok {
		return 1.0
	}
	if factor, exists := spec.Mapping[key]; exists {
		return factor
	}
	if factor, exists := spec.Mapping[strings.ToLower(key)]; exists {
		return factor
	}
	return 1.0
}
