package engine

import (
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/amirphl/Tarazu/models"
	"github.com/amirphl/Tarazu/utils"
	"github.com/google/uuid"
)

// BreakdownEntry explains one matched rule's contribution
type BreakdownEntry struct {
	GroupName    string              `json:"group_name"`
	RuleName     string              `json:"rule_name"`
	RuleUUID     uuid.UUID           `json:"rule_uuid"`
	Matched      bool                `json:"matched"`
	ActionType   models.ActionType   `json:"action_type"`
	RawBase      float64             `json:"raw_base"`
	Multipliers  []AppliedMultiplier `json:"multipliers_applied"`
	FinalAmount  float64             `json:"final_amount"`
	FormulaError string              `json:"formula_error,omitempty"`
}

// Result is the outcome of one evaluation. TotalAdjustment and AdjustedPrice
// are rounded to cents; per-entry amounts stay unrounded so the breakdown
// reconciles exactly.
type Result struct {
	RulesetUUID     *uuid.UUID       `json:"ruleset_uuid,omitempty"`
	RulesetName     string           `json:"ruleset_name,omitempty"`
	SelectionMode   SelectionMode    `json:"selection_mode"`
	BasePrice       float64          `json:"base_price"`
	TotalAdjustment float64          `json:"total_adjustment"`
	AdjustedPrice   float64          `json:"adjusted_price"`
	RulesEvaluated  int              `json:"rules_evaluated"`
	RulesMatched    int              `json:"rules_matched"`
	Breakdown       []BreakdownEntry `json:"breakdown"`
}

// SelectionMode records how the applied ruleset was chosen
type SelectionMode string

const (
	SelectionModePinned      SelectionMode = "pinned"
	SelectionModeConditional SelectionMode = "conditional"
	SelectionModeDefault     SelectionMode = "default"
	SelectionModeNone        SelectionMode = "none"
)

// Evaluator is the orchestrator: it selects the applicable ruleset, walks
// its groups and rules in deterministic order, and aggregates matched rule
// contributions into an adjusted price. It holds no state besides its
// collaborators and is safe for concurrent use.
type Evaluator struct {
	matcher *Matcher
	actions *ActionEngine
	logger  *slog.Logger
}

// NewEvaluator wires the matcher and the action engine around a shared
// formula evaluator. A nil logger falls back to slog.Default().
func NewEvaluator(formulas *FormulaEvaluator, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{
		matcher: NewMatcher(logger),
		actions: NewActionEngine(formulas, logger),
		logger:  logger,
	}
}

// Matcher exposes the condition matcher for collaborators that only gate on
// condition trees.
func (e *Evaluator) Matcher() *Matcher {
	return e.matcher
}

// SelectRuleset picks the single ruleset an item is priced under:
// the pinned active ruleset when given, otherwise the best-matching
// condition-gated active ruleset (highest priority, lowest ID on ties),
// otherwise the highest-priority unconditional active ruleset, otherwise
// none. No ruleset is a normal outcome, not an error.
func (e *Evaluator) SelectRuleset(rulesets []*models.Ruleset, ctx Context, pinned *uuid.UUID) (*models.Ruleset, SelectionMode) {
	if pinned != nil {
		for _, rs := range rulesets {
			if rs.UUID == *pinned && rs.Active() {
				return rs, SelectionModePinned
			}
		}
		e.logger.Warn("pinned ruleset missing or inactive, falling back to selection",
			"pinned_uuid", pinned.String())
	}

	var conditional *models.Ruleset
	for _, rs := range rulesets {
		if !rs.Active() || !rs.HasSelectionConditions() {
			continue
		}
		if !e.matcher.Match(rs.SelectionConditions, ctx) {
			continue
		}
		if preferred(rs, conditional) {
			conditional = rs
		}
	}
	if conditional != nil {
		return conditional, SelectionModeConditional
	}

	var fallback *models.Ruleset
	for _, rs := range rulesets {
		if !rs.Active() || rs.HasSelectionConditions() {
			continue
		}
		if preferred(rs, fallback) {
			fallback = rs
		}
	}
	if fallback != nil {
		return fallback, SelectionModeDefault
	}

	return nil, SelectionModeNone
}

// preferred reports whether candidate beats current: higher priority wins,
// equal priorities go to the lowest ID.
func preferred(candidate, current *models.Ruleset) bool {
	if current == nil {
		return true
	}
	if candidate.Priority != current.Priority {
		return candidate.Priority > current.Priority
	}
	return candidate.ID < current.ID
}

// Evaluate prices one item: selects the ruleset and folds every matched rule
// into the total adjustment. Groups run in display order; inside a group,
// rules run by evaluation order, then priority (higher first), then ID.
// Identical catalog and context always produce the identical result.
func (e *Evaluator) Evaluate(rulesets []*models.Ruleset, ctx Context, basePrice float64, pinned *uuid.UUID) *Result {
	started := time.Now()
	if ctx == nil {
		ctx = Context{}
	}

	selected, mode := e.SelectRuleset(rulesets, ctx, pinned)
	rulesetSelectionsTotal.WithLabelValues(string(mode)).Inc()

	result := &Result{
		SelectionMode: mode,
		BasePrice:     basePrice,
		AdjustedPrice: basePrice,
		Breakdown:     []BreakdownEntry{},
	}
	if selected == nil {
		e.logger.Debug("no applicable ruleset, base price stands", "base_price", basePrice)
		evaluationsTotal.WithLabelValues("no_ruleset").Inc()
		evaluationDuration.Observe(time.Since(started).Seconds())
		rulesMatchedPerEvaluation.Observe(0)
		return result
	}

	rulesetUUID := selected.UUID
	result.RulesetUUID = &rulesetUUID
	result.RulesetName = selected.Name

	total := 0.0
	for _, group := range orderedGroups(selected.Groups) {
		for _, rule := range orderedRules(group.Rules) {
			if !rule.Active() {
				continue
			}
			result.RulesEvaluated++
			if !e.matcher.Match(&rule.Conditions, ctx) {
				continue
			}
			result.RulesMatched++

			applied := e.actions.Apply(&rule.Action, ctx, basePrice, basePrice+total)
			total += applied.FinalAmount

			result.Breakdown = append(result.Breakdown, BreakdownEntry{
				GroupName:    group.Name,
				RuleName:     rule.Name,
				RuleUUID:     rule.UUID,
				Matched:      true,
				ActionType:   rule.Action.Type,
				RawBase:      applied.RawBase,
				Multipliers:  applied.Multipliers,
				FinalAmount:  applied.FinalAmount,
				FormulaError: applied.FormulaError,
			})
		}
	}

	result.TotalAdjustment = RoundCents(total)
	result.AdjustedPrice = RoundCents(basePrice + total)

	evaluationsTotal.WithLabelValues("priced").Inc()
	evaluationDuration.Observe(time.Since(started).Seconds())
	rulesMatchedPerEvaluation.Observe(float64(result.RulesMatched))

	e.logger.Debug("evaluation complete",
		"ruleset", selected.Name,
		"selection_mode", string(mode),
		"rules_matched", result.RulesMatched,
		"base_price", basePrice,
		"adjusted_price", result.AdjustedPrice,
		"currency", utils.DefaultCurrency)

	return result
}

// orderedGroups returns a sorted copy; the caller's slice is never reordered
func orderedGroups(groups []models.RuleGroup) []models.RuleGroup {
	out := make([]models.RuleGroup, len(groups))
	copy(out, groups)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DisplayOrder != out[j].DisplayOrder {
			return out[i].DisplayOrder < out[j].DisplayOrder
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// orderedRules returns a sorted copy; evaluation order first, then priority
// (higher first), then ID for reproducibility
func orderedRules(rules []models.Rule) []models.Rule {
	out := make([]models.Rule, len(rules))
	copy(out, rules)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].EvaluationOrder != out[j].EvaluationOrder {
			return out[i].EvaluationOrder < out[j].EvaluationOrder
		}
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// RoundCents rounds a money amount to two decimals. Aggregation is the only
// place rounding happens; per-rule amounts stay raw.
func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
