package businessflow

import (
	"context"
	"log/slog"
	"strings"

	"github.com/amirphl/Tarazu/app/dto"
	"github.com/amirphl/Tarazu/engine"
	"github.com/amirphl/Tarazu/models"
	"github.com/amirphl/Tarazu/repository"
	"github.com/amirphl/Tarazu/utils"
	"github.com/google/uuid"
)

// PricingFlow prices catalog listings against the active rule catalog.
type PricingFlow interface {
	EvaluateListing(ctx context.Context, req *dto.EvaluateListingRequest) (*dto.EvaluateListingResponse, error)
}

type PricingFlowImpl struct {
	rulesetRepo repository.RulesetRepository
	cache       CatalogCache
	evaluator   *engine.Evaluator
	logger      *slog.Logger
}

func NewPricingFlow(
	rulesetRepo repository.RulesetRepository,
	cache CatalogCache,
	evaluator *engine.Evaluator,
	logger *slog.Logger,
) PricingFlow {
	if logger == nil {
		logger = slog.Default()
	}
	return &PricingFlowImpl{
		rulesetRepo: rulesetRepo,
		cache:       cache,
		evaluator:   evaluator,
		logger:      logger,
	}
}

// EvaluateListing resolves the active catalog, runs the evaluator and maps
// the result into a response. Data-quality issues inside rules never fail
// the call; only contract violations (bad request, missing pinned ruleset)
// come back as errors.
func (f *PricingFlowImpl) EvaluateListing(ctx context.Context, req *dto.EvaluateListingRequest) (*dto.EvaluateListingResponse, error) {
	if req == nil || req.Context == nil {
		return nil, NewBusinessError("PRICING_CONTEXT_REQUIRED", "Listing context is required", ErrListingContextNil)
	}
	if req.BasePrice < 0 {
		return nil, NewBusinessError("PRICING_BASE_PRICE_NEGATIVE", "Base price cannot be negative", ErrBasePriceNegative)
	}

	var pinned *uuid.UUID
	if req.RulesetUUID != nil && *req.RulesetUUID != "" {
		parsed, err := uuid.Parse(*req.RulesetUUID)
		if err != nil {
			return nil, NewBusinessError("PRICING_RULESET_UUID_INVALID", "Pinned ruleset UUID is invalid", err)
		}
		pinned = &parsed
	}

	rulesets, err := f.activeCatalog(ctx)
	if err != nil {
		return nil, NewBusinessError("PRICING_CATALOG_LOAD_FAILED", "Failed to load the active rule catalog", err)
	}
	if pinned != nil {
		if found := findRuleset(rulesets, *pinned); found == nil {
			return nil, NewBusinessError("PRICING_RULESET_NOT_FOUND", "Pinned ruleset not found or inactive", ErrRulesetNotFound)
		}
	}

	result := f.evaluator.Evaluate(rulesets, engine.Context(req.Context), req.BasePrice, pinned)

	currency := utils.DefaultCurrency
	if req.Currency != nil && *req.Currency != "" {
		currency = strings.ToUpper(*req.Currency)
	}

	resp := &dto.EvaluateListingResponse{
		Message:         "Listing priced successfully",
		SelectionMode:   string(result.SelectionMode),
		Currency:        currency,
		BasePrice:       result.BasePrice,
		TotalAdjustment: result.TotalAdjustment,
		AdjustedPrice:   result.AdjustedPrice,
		RulesEvaluated:  result.RulesEvaluated,
		RulesMatched:    result.RulesMatched,
		Breakdown:       toBreakdownDTOs(result.Breakdown),
		EvaluatedAt:     utils.UTCNowRFC3339(),
	}
	if result.RulesetUUID != nil {
		resp.RulesetUUID = utils.ToPtr(result.RulesetUUID.String())
		resp.RulesetName = utils.ToPtr(result.RulesetName)
	}
	return resp, nil
}

// activeCatalog serves the ruleset snapshot from cache when possible and
// refills it from the repository on a miss.
func (f *PricingFlowImpl) activeCatalog(ctx context.Context) ([]*models.Ruleset, error) {
	if rulesets, ok := f.cache.GetActiveRulesets(ctx); ok {
		catalogCacheLookupsTotal.WithLabelValues("hit").Inc()
		return rulesets, nil
	}
	catalogCacheLookupsTotal.WithLabelValues("miss").Inc()

	rulesets, err := f.rulesetRepo.ListActiveWithRules(ctx)
	if err != nil {
		return nil, err
	}
	f.cache.SetActiveRulesets(ctx, rulesets)
	return rulesets, nil
}

func findRuleset(rulesets []*models.Ruleset, id uuid.UUID) *models.Ruleset {
	for _, rs := range rulesets {
		if rs.UUID == id {
			return rs
		}
	}
	return nil
}

func toBreakdownDTOs(entries []engine.BreakdownEntry) []dto.RuleBreakdownDTO {
	if len(entries) == 0 {
		return nil
	}
	out := make([]dto.RuleBreakdownDTO, 0, len(entries))
	for _, entry := range entries {
		item := dto.RuleBreakdownDTO{
			GroupName:   entry.GroupName,
			RuleName:    entry.RuleName,
			RuleUUID:    entry.RuleUUID.String(),
			ActionType:  string(entry.ActionType),
			RawAmount:   entry.RawBase,
			FinalAmount: entry.FinalAmount,
		}
		for _, m := range entry.Multipliers {
			item.Multipliers = append(item.Multipliers, dto.AppliedMultiplierDTO{
				Type:   string(m.Type),
				Factor: m.Factor,
			})
		}
		if entry.FormulaError != "" {
			item.FormulaError = utils.ToPtr(entry.FormulaError)
		}
		out = append(out, item)
	}
	return out
}
