package businessflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/amirphl/Tarazu/app/dto"
	"github.com/amirphl/Tarazu/engine"
	"github.com/amirphl/Tarazu/models"
	"github.com/amirphl/Tarazu/repository"
	"github.com/amirphl/Tarazu/utils"
	"github.com/google/uuid"
)

// HydrationFlow expands a ruleset's baseline field specifications into
// concrete, independently editable rules.
type HydrationFlow interface {
	HydrateRuleset(ctx context.Context, req *dto.HydrateRulesetRequest) (*dto.HydrateRulesetResponse, error)
}

type HydrationFlowImpl struct {
	rulesetRepo        repository.RulesetRepository
	ruleRepo           repository.RuleRepository
	fieldRepo          repository.BaselineFieldRepository
	auditRepo          repository.AuditLogRepository
	tx                 repository.TransactionRunner
	formulas           *engine.FormulaEvaluator
	cache              CatalogCache
	relationshipFields map[string]bool
	valueKeySynonyms   []string
	logger             *slog.Logger
}

func NewHydrationFlow(
	rulesetRepo repository.RulesetRepository,
	ruleRepo repository.RuleRepository,
	fieldRepo repository.BaselineFieldRepository,
	auditRepo repository.AuditLogRepository,
	tx repository.TransactionRunner,
	formulas *engine.FormulaEvaluator,
	cache CatalogCache,
	relationshipFields []string,
	valueKeySynonyms []string,
	logger *slog.Logger,
) HydrationFlow {
	if len(relationshipFields) == 0 {
		relationshipFields = utils.DefaultRelationshipFields
	}
	if len(valueKeySynonyms) == 0 {
		valueKeySynonyms = utils.DefaultValueKeySynonyms
	}
	if logger == nil {
		logger = slog.Default()
	}
	related := make(map[string]bool, len(relationshipFields))
	for _, key := range relationshipFields {
		related[utils.NormalizeFieldKey(key)] = true
	}
	return &HydrationFlowImpl{
		rulesetRepo:        rulesetRepo,
		ruleRepo:           ruleRepo,
		fieldRepo:          fieldRepo,
		auditRepo:          auditRepo,
		tx:                 tx,
		formulas:           formulas,
		cache:              cache,
		relationshipFields: related,
		valueKeySynonyms:   valueKeySynonyms,
		logger:             logger,
	}
}

// hydrationRun accumulates counters and per-field summaries across one run
type hydrationRun struct {
	created   int
	skipped   int
	failures  int
	summaries []dto.FieldHydrationSummary
}

// HydrateRuleset walks every baseline field of the ruleset and materializes
// its rules inside one transaction. Field-level problems are recorded in the
// summary and the batch proceeds; only infrastructure failures roll the run
// back. Re-invoking on a hydrated ruleset creates nothing.
func (f *HydrationFlowImpl) HydrateRuleset(ctx context.Context, req *dto.HydrateRulesetRequest) (*dto.HydrateRulesetResponse, error) {
	if req == nil || strings.TrimSpace(req.RulesetUUID) == "" {
		return nil, NewBusinessError("HYDRATION_RULESET_UUID_REQUIRED", "Ruleset UUID is required", ErrRulesetUUIDRequired)
	}
	actor := strings.TrimSpace(req.Actor)
	if actor == "" {
		return nil, NewBusinessError("HYDRATION_ACTOR_REQUIRED", "Actor is required", ErrActorRequired)
	}
	rulesetUUID, err := uuid.Parse(req.RulesetUUID)
	if err != nil {
		return nil, NewBusinessError("HYDRATION_RULESET_UUID_INVALID", "Ruleset UUID is invalid", err)
	}

	ruleset, err := f.rulesetRepo.ByUUID(ctx, rulesetUUID)
	if err != nil {
		return nil, NewBusinessError("HYDRATION_RULESET_LOOKUP_FAILED", "Failed to look up ruleset", err)
	}
	if ruleset == nil {
		return nil, NewBusinessError("HYDRATION_RULESET_NOT_FOUND", "Ruleset not found", ErrRulesetNotFound)
	}

	fields, err := f.fieldRepo.ListByRuleset(ctx, ruleset.ID)
	if err != nil {
		return nil, NewBusinessError("HYDRATION_FIELDS_LOOKUP_FAILED", "Failed to list baseline fields", err)
	}

	run := &hydrationRun{}
	err = f.tx.RunInTransaction(ctx, func(txCtx context.Context) error {
		for i := range fields {
			if err := f.hydrateField(txCtx, ruleset, fields[i], actor, req.RequestID, run); err != nil {
				return err
			}
		}
		return f.createAuditLog(txCtx, models.AuditActionRulesetHydrated, actor, &ruleset.ID,
			fmt.Sprintf("Hydrated ruleset %s: %d rules created, %d skipped, %d field failures",
				ruleset.Name, run.created, run.skipped, run.failures),
			true, nil, req.RequestID,
			map[string]any{"rules_created": run.created, "rules_skipped": run.skipped, "field_failures": run.failures})
	})
	if err != nil {
		hydrationRunsTotal.WithLabelValues("failed").Inc()
		errMsg := err.Error()
		_ = f.createAuditLog(ctx, models.AuditActionRulesetHydrated, actor, &ruleset.ID,
			fmt.Sprintf("Hydration of ruleset %s rolled back", ruleset.Name),
			false, &errMsg, req.RequestID, nil)
		return nil, NewBusinessError("HYDRATION_FAILED", "Hydration rolled back", err)
	}

	f.cache.Invalidate(ctx)

	status := "completed"
	if run.failures > 0 {
		status = "completed_with_failures"
	}
	hydrationRunsTotal.WithLabelValues(status).Inc()
	hydrationRulesCreatedTotal.Add(float64(run.created))
	hydrationRulesSkippedTotal.Add(float64(run.skipped))

	f.logger.Info("hydration finished",
		"ruleset", ruleset.Name,
		"status", status,
		"rules_created", run.created,
		"rules_skipped", run.skipped,
		"field_failures", run.failures)

	return &dto.HydrateRulesetResponse{
		Message:      "Hydration finished",
		Status:       status,
		RulesCreated: run.created,
		RulesSkipped: run.skipped,
		Fields:       run.summaries,
		HydratedAt:   utils.UTCNowRFC3339(),
	}, nil
}

// hydrateField expands one baseline field. The returned error is reserved
// for infrastructure failures, which abort the whole transaction; anything
// wrong with the field itself lands in the run summary instead.
func (f *HydrationFlowImpl) hydrateField(ctx context.Context, ruleset *models.Ruleset, field *models.BaselineField, actor, requestID string, run *hydrationRun) error {
	summary := dto.FieldHydrationSummary{
		FieldKey:  field.Key,
		FieldType: string(field.FieldType),
	}

	if field.FieldType == models.BaselineFieldTypeScalar {
		summary.Status = dto.HydrationFieldSkipped
		run.summaries = append(run.summaries, summary)
		return nil
	}

	if field.IsHydrated() {
		summary.Status = dto.HydrationFieldSkipped
		summary.RulesSkipped = field.ExpansionSize()
		run.skipped += summary.RulesSkipped
		run.summaries = append(run.summaries, summary)
		return nil
	}

	// Flag drift guard: rules emitted for this field already exist even
	// though the flag is unset. Repair the flag instead of duplicating.
	existing, err := f.ruleRepo.ListBySourceField(ctx, ruleset.ID, field.Key)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if rule.IsHydrated() {
			if err := f.markHydrated(ctx, field); err != nil {
				return err
			}
			summary.Status = dto.HydrationFieldSkipped
			summary.RulesSkipped = field.ExpansionSize()
			run.skipped += summary.RulesSkipped
			run.summaries = append(run.summaries, summary)
			return nil
		}
	}

	placeholder, err := f.placeholderOf(ctx, field)
	if err != nil {
		return err
	}
	if placeholder == nil {
		return f.recordFieldFailure(ctx, field, ruleset, &summary, run, actor, requestID, ErrPlaceholderNotFound)
	}

	var rules []*models.Rule
	status := dto.HydrationFieldCreated

	switch field.FieldType {
	case models.BaselineFieldTypeEnumMultiplier:
		rules, err = f.enumRules(field, placeholder)
	case models.BaselineFieldTypeFormula:
		rules, status, err = f.formulaRules(field, placeholder)
	case models.BaselineFieldTypeFixed:
		rules, err = f.fixedRules(field, placeholder)
	default:
		err = fmt.Errorf("%w: %s", ErrBaselineFieldTypeInvalid, field.FieldType)
	}
	if err != nil {
		return f.recordFieldFailure(ctx, field, ruleset, &summary, run, actor, requestID, err)
	}

	if err := f.ruleRepo.SaveBatch(ctx, rules); err != nil {
		return err
	}
	if err := f.ruleRepo.Deactivate(ctx, placeholder.ID); err != nil {
		return err
	}
	if err := f.markHydrated(ctx, field); err != nil {
		return err
	}

	summary.Status = status
	summary.RulesCreated = len(rules)
	run.created += len(rules)
	run.summaries = append(run.summaries, summary)
	return nil
}

// enumRules emits one percentage rule per declared value, in stable value
// order. Decimal factors are stored as percentages so each rule reads on its
// own: 0.7 becomes 70.0.
func (f *HydrationFlowImpl) enumRules(field *models.BaselineField, placeholder *models.Rule) ([]*models.Rule, error) {
	if len(field.EnumMapping) == 0 {
		return nil, ErrEnumMappingRequired
	}

	values := make([]string, 0, len(field.EnumMapping))
	for value := range field.EnumMapping {
		values = append(values, value)
	}
	sort.Strings(values)

	rules := make([]*models.Rule, 0, len(values))
	for _, value := range values {
		factor := field.EnumMapping[value]
		rule := f.emittedRule(field, placeholder)
		rule.Name = fmt.Sprintf("%s: %s", f.displayName(field), value)
		rule.Conditions = models.Leaf(field.Key, models.ConditionOperatorEquals, value)
		rule.Action = models.ActionSpec{
			Type:   models.ActionTypePercentage,
			Amount: factor * 100,
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// formulaRules emits a formula rule when the declared text compiles, and a
// zero-value requires-configuration rule when it is descriptive prose. Prose
// is a routine catalog state, not an error.
func (f *HydrationFlowImpl) formulaRules(field *models.BaselineField, placeholder *models.Rule) ([]*models.Rule, string, error) {
	if field.FormulaText == nil || strings.TrimSpace(*field.FormulaText) == "" {
		return nil, "", ErrFormulaTextRequired
	}
	text := strings.TrimSpace(*field.FormulaText)

	rule := f.emittedRule(field, placeholder)
	rule.Conditions = models.AndGroup()

	if err := f.formulas.Validate(text); err != nil {
		f.logger.Info("baseline formula is not an expression, emitting configuration stub",
			"field", field.Key, "reason", err)
		rule.Name = fmt.Sprintf("%s (requires configuration)", f.displayName(field))
		rule.Action = models.ActionSpec{
			Type:   models.ActionTypeFixedValue,
			Amount: utils.PlaceholderAmount,
		}
		rule.Metadata[models.RuleMetaSourceText] = text
		rule.Metadata[models.RuleMetaRequiresConfig] = true
		return []*models.Rule{rule}, dto.HydrationFieldPlaceholder, nil
	}

	rule.Name = f.displayName(field)
	rule.Action = models.ActionSpec{
		Type:    models.ActionTypeFormula,
		Formula: text,
	}
	return []*models.Rule{rule}, dto.HydrationFieldCreated, nil
}

// fixedRules emits one unconditional fixed-value rule; the amount comes from
// the first recognized metadata key, defaulting to zero.
func (f *HydrationFlowImpl) fixedRules(field *models.BaselineField, placeholder *models.Rule) ([]*models.Rule, error) {
	amount := 0.0
	found := false
	for _, key := range f.valueKeySynonyms {
		if v, ok := field.Metadata.GetFloat(key); ok {
			amount = v
			found = true
			break
		}
	}
	if !found {
		f.logger.Info("fixed baseline field has no value key, defaulting to zero", "field", field.Key)
	}

	rule := f.emittedRule(field, placeholder)
	rule.Name = f.displayName(field)
	rule.Conditions = models.AndGroup()
	rule.Action = models.ActionSpec{
		Type:   models.ActionTypeFixedValue,
		Amount: amount,
	}
	return []*models.Rule{rule}, nil
}

// emittedRule builds the shared skeleton of a hydrated rule: it inherits the
// placeholder's slot in the group and carries provenance metadata back to it.
func (f *HydrationFlowImpl) emittedRule(field *models.BaselineField, placeholder *models.Rule) *models.Rule {
	metadata := models.MetadataMap{
		models.RuleMetaSourceField:     field.Key,
		models.RuleMetaPlaceholderRule: placeholder.UUID.String(),
	}
	if f.relationshipFields[utils.NormalizeFieldKey(field.Key)] {
		metadata[models.RuleMetaForeignKeyRule] = true
	}
	return &models.Rule{
		GroupID:         placeholder.GroupID,
		EvaluationOrder: placeholder.EvaluationOrder,
		Priority:        placeholder.Priority,
		IsActive:        utils.ToPtr(true),
		Metadata:        metadata,
	}
}

func (f *HydrationFlowImpl) displayName(field *models.BaselineField) string {
	if field.Label != nil && strings.TrimSpace(*field.Label) != "" {
		return *field.Label
	}
	return field.Key
}

func (f *HydrationFlowImpl) placeholderOf(ctx context.Context, field *models.BaselineField) (*models.Rule, error) {
	if field.PlaceholderRuleID == nil {
		return nil, nil
	}
	return f.ruleRepo.ByID(ctx, *field.PlaceholderRuleID)
}

func (f *HydrationFlowImpl) markHydrated(ctx context.Context, field *models.BaselineField) error {
	field.Hydrated = utils.ToPtr(true)
	field.HydratedAt = utils.UTCNowPtr()
	return f.fieldRepo.Update(ctx, field)
}

// recordFieldFailure isolates a broken field: summary entry, audit row,
// counter. The batch moves on.
func (f *HydrationFlowImpl) recordFieldFailure(ctx context.Context, field *models.BaselineField, ruleset *models.Ruleset, summary *dto.FieldHydrationSummary, run *hydrationRun, actor, requestID string, cause error) error {
	f.logger.Warn("baseline field failed to hydrate, skipping",
		"field", field.Key, "field_type", string(field.FieldType), "error", cause)
	hydrationFieldFailuresTotal.Inc()

	summary.Status = dto.HydrationFieldFailed
	summary.Error = utils.ToPtr(cause.Error())
	run.failures++
	run.summaries = append(run.summaries, *summary)

	errMsg := cause.Error()
	return f.createAuditLog(ctx, models.AuditActionHydrationFieldFailed, actor, &ruleset.ID,
		fmt.Sprintf("Baseline field %s failed to hydrate", field.Key),
		false, &errMsg, requestID,
		map[string]any{"field_key": field.Key, "field_type": string(field.FieldType)})
}

func (f *HydrationFlowImpl) createAuditLog(ctx context.Context, action, actor string, rulesetID *uint, description string, success bool, errorMsg *string, requestID string, metadata map[string]any) error {
	audit := &models.AuditLog{
		Actor:        actor,
		Action:       action,
		RulesetID:    rulesetID,
		Description:  &description,
		Success:      utils.ToPtr(success),
		ErrorMessage: errorMsg,
	}
	if requestID != "" {
		audit.RequestID = &requestID
	}
	if metadata != nil {
		if bs, err := json.Marshal(metadata); err == nil {
			audit.Metadata = bs
		}
	}
	return f.auditRepo.Save(ctx, audit)
}
