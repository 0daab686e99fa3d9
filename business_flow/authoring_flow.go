package businessflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/amirphl/Tarazu/app/dto"
	"github.com/amirphl/Tarazu/engine"
	"github.com/amirphl/Tarazu/models"
	"github.com/amirphl/Tarazu/repository"
	"github.com/amirphl/Tarazu/utils"
	"github.com/google/uuid"
)

// baselineGroupName is where registration drops placeholder rules until
// hydration expands them.
const baselineGroupName = "Baseline Adjustments"

// AuthoringFlow covers catalog mutations: rulesets, groups, rules and
// baseline field registration.
type AuthoringFlow interface {
	CreateRuleset(ctx context.Context, req *dto.CreateRulesetRequest) (*dto.CreateRulesetResponse, error)
	AddRuleGroup(ctx context.Context, req *dto.CreateRuleGroupRequest) (*dto.CreateRuleGroupResponse, error)
	AddRule(ctx context.Context, req *dto.CreateRuleRequest) (*dto.CreateRuleResponse, error)
	DeactivateRule(ctx context.Context, req *dto.DeactivateRuleRequest) (*dto.DeactivateRuleResponse, error)
	RegisterBaselineField(ctx context.Context, req *dto.RegisterBaselineFieldRequest) (*dto.RegisterBaselineFieldResponse, error)
	GetRuleset(ctx context.Context, req *dto.GetRulesetRequest) (*dto.GetRulesetResponse, error)
	ListRulesets(ctx context.Context, req *dto.ListRulesetsRequest) (*dto.ListRulesetsResponse, error)
}

type AuthoringFlowImpl struct {
	rulesetRepo       repository.RulesetRepository
	groupRepo         repository.RuleGroupRepository
	ruleRepo          repository.RuleRepository
	fieldRepo         repository.BaselineFieldRepository
	auditRepo         repository.AuditLogRepository
	formulas          *engine.FormulaEvaluator
	cache             CatalogCache
	maxConditionDepth int
	logger            *slog.Logger
}

func NewAuthoringFlow(
	rulesetRepo repository.RulesetRepository,
	groupRepo repository.RuleGroupRepository,
	ruleRepo repository.RuleRepository,
	fieldRepo repository.BaselineFieldRepository,
	auditRepo repository.AuditLogRepository,
	formulas *engine.FormulaEvaluator,
	cache CatalogCache,
	maxConditionDepth int,
	logger *slog.Logger,
) AuthoringFlow {
	if maxConditionDepth <= 0 {
		maxConditionDepth = utils.DefaultMaxConditionDepth
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthoringFlowImpl{
		rulesetRepo:       rulesetRepo,
		groupRepo:         groupRepo,
		ruleRepo:          ruleRepo,
		fieldRepo:         fieldRepo,
		auditRepo:         auditRepo,
		formulas:          formulas,
		cache:             cache,
		maxConditionDepth: maxConditionDepth,
		logger:            logger,
	}
}

// CreateRuleset registers a new ruleset, optionally gated by selection
// conditions that decide when it applies.
func (f *AuthoringFlowImpl) CreateRuleset(ctx context.Context, req *dto.CreateRulesetRequest) (*dto.CreateRulesetResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, NewBusinessError("RULESET_NAME_REQUIRED", "Ruleset name is required", ErrRulesetNameRequired)
	}

	taken, err := f.rulesetRepo.Exists(ctx, models.RulesetFilter{Name: &name})
	if err != nil {
		return nil, NewBusinessError("RULESET_LOOKUP_FAILED", "Failed to check ruleset name", err)
	}
	if taken {
		return nil, NewBusinessError("RULESET_NAME_TAKEN", "Ruleset name already exists", ErrRulesetNameTaken)
	}

	ruleset := &models.Ruleset{
		Name:        name,
		Description: req.Description,
		Priority:    req.Priority,
		IsActive:    utils.ToPtr(true),
	}
	if len(req.SelectionConditions) > 0 {
		tree, err := f.parseConditions(req.SelectionConditions)
		if err != nil {
			return nil, NewBusinessError("RULESET_SELECTION_CONDITIONS_INVALID", "Selection conditions are invalid", err)
		}
		ruleset.SelectionConditions = tree
	}

	if err := f.rulesetRepo.Save(ctx, ruleset); err != nil {
		return nil, NewBusinessError("RULESET_SAVE_FAILED", "Failed to save ruleset", err)
	}

	f.audit(ctx, models.AuditActionRulesetCreated, req.Actor, &ruleset.ID,
		fmt.Sprintf("Created ruleset %s", ruleset.Name), req.RequestID)
	f.cache.Invalidate(ctx)

	return &dto.CreateRulesetResponse{
		Message:   "Ruleset created successfully",
		UUID:      ruleset.UUID.String(),
		CreatedAt: ruleset.CreatedAt.Format(time.RFC3339),
	}, nil
}

// AddRuleGroup appends a display group to a ruleset.
func (f *AuthoringFlowImpl) AddRuleGroup(ctx context.Context, req *dto.CreateRuleGroupRequest) (*dto.CreateRuleGroupResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, NewBusinessError("RULE_GROUP_NAME_REQUIRED", "Rule group name is required", ErrRuleGroupNameRequired)
	}

	ruleset, err := f.rulesetByUUID(ctx, req.RulesetUUID)
	if err != nil {
		return nil, err
	}

	group := &models.RuleGroup{
		RulesetID:    ruleset.ID,
		Name:         name,
		Description:  req.Description,
		DisplayOrder: req.DisplayOrder,
	}
	if err := f.groupRepo.Save(ctx, group); err != nil {
		return nil, NewBusinessError("RULE_GROUP_SAVE_FAILED", "Failed to save rule group", err)
	}

	f.audit(ctx, models.AuditActionRuleGroupCreated, req.Actor, &ruleset.ID,
		fmt.Sprintf("Created rule group %s in ruleset %s", group.Name, ruleset.Name), req.RequestID)
	f.cache.Invalidate(ctx)

	return &dto.CreateRuleGroupResponse{
		Message:   "Rule group created successfully",
		UUID:      group.UUID.String(),
		CreatedAt: group.CreatedAt.Format(time.RFC3339),
	}, nil
}

// AddRule validates and stores a rule: condition tree shape and depth,
// action well-formedness, and formula compilation all gate the write.
func (f *AuthoringFlowImpl) AddRule(ctx context.Context, req *dto.CreateRuleRequest) (*dto.CreateRuleResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, NewBusinessError("RULE_NAME_REQUIRED", "Rule name is required", ErrRuleNameRequired)
	}

	groupUUID, err := uuid.Parse(req.GroupUUID)
	if err != nil {
		return nil, NewBusinessError("RULE_GROUP_UUID_INVALID", "Rule group UUID is invalid", err)
	}
	group, err := f.groupRepo.ByUUID(ctx, groupUUID)
	if err != nil {
		return nil, NewBusinessError("RULE_GROUP_LOOKUP_FAILED", "Failed to look up rule group", err)
	}
	if group == nil {
		return nil, NewBusinessError("RULE_GROUP_NOT_FOUND", "Rule group not found", ErrRuleGroupNotFound)
	}

	conditions := models.AndGroup()
	if len(req.Conditions) > 0 {
		tree, err := f.parseConditions(req.Conditions)
		if err != nil {
			return nil, NewBusinessError("RULE_CONDITIONS_INVALID", "Rule conditions are invalid", err)
		}
		conditions = *tree
	}

	var action models.ActionSpec
	if err := json.Unmarshal(req.Action, &action); err != nil {
		return nil, NewBusinessError("RULE_ACTION_INVALID", "Rule action is invalid", fmt.Errorf("%w: %v", ErrInvalidAction, err))
	}
	if err := action.Validate(); err != nil {
		return nil, NewBusinessError("RULE_ACTION_INVALID", "Rule action is invalid", err)
	}
	if action.Type == models.ActionTypeFormula {
		if err := f.formulas.Validate(action.Formula); err != nil {
			return nil, NewBusinessError("RULE_FORMULA_INVALID", "Rule formula does not compile", fmt.Errorf("%w: %v", ErrFormulaInvalid, err))
		}
	}

	rule := &models.Rule{
		GroupID:         group.ID,
		Name:            name,
		Description:     req.Description,
		EvaluationOrder: req.EvaluationOrder,
		Priority:        req.Priority,
		IsActive:        utils.ToPtr(true),
		Conditions:      conditions,
		Action:          action,
		Metadata:        models.MetadataMap(req.Metadata),
	}
	if err := f.ruleRepo.Save(ctx, rule); err != nil {
		return nil, NewBusinessError("RULE_SAVE_FAILED", "Failed to save rule", err)
	}

	f.audit(ctx, models.AuditActionRuleCreated, req.Actor, &group.RulesetID,
		fmt.Sprintf("Created rule %s in group %s", rule.Name, group.Name), req.RequestID)
	f.cache.Invalidate(ctx)

	return &dto.CreateRuleResponse{
		Message:   "Rule created successfully",
		UUID:      rule.UUID.String(),
		CreatedAt: rule.CreatedAt.Format(time.RFC3339),
	}, nil
}

// DeactivateRule retires a rule without deleting it, preserving history.
func (f *AuthoringFlowImpl) DeactivateRule(ctx context.Context, req *dto.DeactivateRuleRequest) (*dto.DeactivateRuleResponse, error) {
	ruleUUID, err := uuid.Parse(req.RuleUUID)
	if err != nil {
		return nil, NewBusinessError("RULE_UUID_INVALID", "Rule UUID is invalid", err)
	}
	rule, err := f.ruleRepo.ByUUID(ctx, ruleUUID)
	if err != nil {
		return nil, NewBusinessError("RULE_LOOKUP_FAILED", "Failed to look up rule", err)
	}
	if rule == nil {
		return nil, NewBusinessError("RULE_NOT_FOUND", "Rule not found", ErrRuleNotFound)
	}
	if !rule.Active() {
		return nil, NewBusinessError("RULE_ALREADY_INACTIVE", "Rule is already inactive", ErrRuleAlreadyInactive)
	}

	if err := f.ruleRepo.Deactivate(ctx, rule.ID); err != nil {
		return nil, NewBusinessError("RULE_DEACTIVATE_FAILED", "Failed to deactivate rule", err)
	}

	var rulesetID *uint
	if group, err := f.groupRepo.ByID(ctx, rule.GroupID); err == nil && group != nil {
		rulesetID = &group.RulesetID
	}
	f.audit(ctx, models.AuditActionRuleDeactivated, req.Actor, rulesetID,
		fmt.Sprintf("Deactivated rule %s", rule.Name), req.RequestID)
	f.cache.Invalidate(ctx)

	return &dto.DeactivateRuleResponse{Message: "Rule deactivated successfully"}, nil
}

// RegisterBaselineField declares a baseline pricing lever on a ruleset. For
// every type except scalar it also drops an active zero-value placeholder
// rule that hydration later expands and retires.
func (f *AuthoringFlowImpl) RegisterBaselineField(ctx context.Context, req *dto.RegisterBaselineFieldRequest) (*dto.RegisterBaselineFieldResponse, error) {
	key := utils.NormalizeFieldKey(req.Key)
	if key == "" {
		return nil, NewBusinessError("BASELINE_FIELD_KEY_REQUIRED", "Baseline field key is required", ErrBaselineFieldKeyRequired)
	}
	fieldType := models.BaselineFieldType(req.FieldType)
	if !fieldType.Valid() {
		return nil, NewBusinessError("BASELINE_FIELD_TYPE_INVALID", "Baseline field type is invalid", ErrBaselineFieldTypeInvalid)
	}
	switch fieldType {
	case models.BaselineFieldTypeEnumMultiplier:
		if len(req.EnumMapping) == 0 {
			return nil, NewBusinessError("BASELINE_FIELD_ENUM_MAPPING_REQUIRED", "Enum mapping is required", ErrEnumMappingRequired)
		}
	case models.BaselineFieldTypeFormula:
		if req.FormulaText == nil || strings.TrimSpace(*req.FormulaText) == "" {
			return nil, NewBusinessError("BASELINE_FIELD_FORMULA_TEXT_REQUIRED", "Formula text is required", ErrFormulaTextRequired)
		}
	}

	ruleset, err := f.rulesetByUUID(ctx, req.RulesetUUID)
	if err != nil {
		return nil, err
	}

	taken, err := f.fieldRepo.Exists(ctx, models.BaselineFieldFilter{RulesetID: &ruleset.ID, Key: &key})
	if err != nil {
		return nil, NewBusinessError("BASELINE_FIELD_LOOKUP_FAILED", "Failed to check baseline field key", err)
	}
	if taken {
		return nil, NewBusinessError("BASELINE_FIELD_KEY_TAKEN", "Baseline field key already registered", ErrBaselineFieldKeyTaken)
	}

	field := &models.BaselineField{
		RulesetID:   ruleset.ID,
		Key:         key,
		Label:       req.Label,
		FieldType:   fieldType,
		EnumMapping: models.EnumMapping(req.EnumMapping),
		FormulaText: req.FormulaText,
		Metadata:    models.MetadataMap(req.Metadata),
		Hydrated:    utils.ToPtr(false),
	}

	resp := &dto.RegisterBaselineFieldResponse{
		Message: "Baseline field registered successfully",
	}

	if fieldType != models.BaselineFieldTypeScalar {
		placeholder, err := f.createPlaceholderRule(ctx, ruleset, key, req.Label)
		if err != nil {
			return nil, err
		}
		field.PlaceholderRuleID = &placeholder.ID
		resp.PlaceholderRuleUUID = utils.ToPtr(placeholder.UUID.String())
	}

	if err := f.fieldRepo.Save(ctx, field); err != nil {
		return nil, NewBusinessError("BASELINE_FIELD_SAVE_FAILED", "Failed to save baseline field", err)
	}

	f.audit(ctx, models.AuditActionBaselineFieldRegistered, req.Actor, &ruleset.ID,
		fmt.Sprintf("Registered baseline field %s (%s) on ruleset %s", key, fieldType, ruleset.Name), req.RequestID)
	f.cache.Invalidate(ctx)

	resp.UUID = field.UUID.String()
	resp.CreatedAt = field.CreatedAt.Format(time.RFC3339)
	return resp, nil
}

// createPlaceholderRule drops a zero-value stand-in into the ruleset's
// baseline group, creating that group on first use.
func (f *AuthoringFlowImpl) createPlaceholderRule(ctx context.Context, ruleset *models.Ruleset, key string, label *string) (*models.Rule, error) {
	group, err := f.baselineGroup(ctx, ruleset)
	if err != nil {
		return nil, err
	}

	slot, err := f.ruleRepo.Count(ctx, models.RuleFilter{GroupID: &group.ID})
	if err != nil {
		return nil, NewBusinessError("BASELINE_FIELD_SLOT_FAILED", "Failed to place placeholder rule", err)
	}

	display := key
	if label != nil && strings.TrimSpace(*label) != "" {
		display = *label
	}
	placeholder := &models.Rule{
		GroupID:         group.ID,
		Name:            fmt.Sprintf("%s (baseline placeholder)", display),
		EvaluationOrder: int(slot),
		IsActive:        utils.ToPtr(true),
		Conditions:      models.AndGroup(),
		Action: models.ActionSpec{
			Type:   models.ActionTypeFixedValue,
			Amount: utils.PlaceholderAmount,
		},
		Metadata: models.MetadataMap{
			models.RuleMetaBaselinePlacehold: true,
			models.RuleMetaSourceField:       key,
		},
	}
	if err := f.ruleRepo.Save(ctx, placeholder); err != nil {
		return nil, NewBusinessError("BASELINE_FIELD_PLACEHOLDER_FAILED", "Failed to save placeholder rule", err)
	}
	return placeholder, nil
}

func (f *AuthoringFlowImpl) baselineGroup(ctx context.Context, ruleset *models.Ruleset) (*models.RuleGroup, error) {
	name := baselineGroupName
	groups, err := f.groupRepo.ByFilter(ctx, models.RuleGroupFilter{RulesetID: &ruleset.ID, Name: &name}, "", 1, 0)
	if err != nil {
		return nil, NewBusinessError("BASELINE_GROUP_LOOKUP_FAILED", "Failed to look up baseline group", err)
	}
	if len(groups) > 0 {
		return groups[0], nil
	}

	group := &models.RuleGroup{
		RulesetID:    ruleset.ID,
		Name:         name,
		DisplayOrder: 0,
	}
	if err := f.groupRepo.Save(ctx, group); err != nil {
		return nil, NewBusinessError("BASELINE_GROUP_SAVE_FAILED", "Failed to create baseline group", err)
	}
	return group, nil
}

// GetRuleset returns one ruleset with its full group and rule tree.
func (f *AuthoringFlowImpl) GetRuleset(ctx context.Context, req *dto.GetRulesetRequest) (*dto.GetRulesetResponse, error) {
	ruleset, err := f.rulesetByUUID(ctx, req.UUID)
	if err != nil {
		return nil, err
	}

	resp := &dto.GetRulesetResponse{
		UUID:        ruleset.UUID.String(),
		Name:        ruleset.Name,
		Description: ruleset.Description,
		Priority:    ruleset.Priority,
		IsActive:    ruleset.Active(),
		CreatedAt:   ruleset.CreatedAt,
		UpdatedAt:   ruleset.UpdatedAt,
	}
	if ruleset.HasSelectionConditions() {
		if bs, err := json.Marshal(ruleset.SelectionConditions); err == nil {
			resp.SelectionConditions = bs
		}
	}

	groups, err := f.groupRepo.ListByRuleset(ctx, ruleset.ID)
	if err != nil {
		return nil, NewBusinessError("RULESET_GROUPS_LOOKUP_FAILED", "Failed to list rule groups", err)
	}
	for _, group := range groups {
		groupDTO := dto.RuleGroupDTO{
			UUID:         group.UUID.String(),
			Name:         group.Name,
			Description:  group.Description,
			DisplayOrder: group.DisplayOrder,
		}
		rules, err := f.ruleRepo.ListByGroup(ctx, group.ID)
		if err != nil {
			return nil, NewBusinessError("RULESET_RULES_LOOKUP_FAILED", "Failed to list rules", err)
		}
		for _, rule := range rules {
			groupDTO.Rules = append(groupDTO.Rules, toRuleDTO(rule))
		}
		resp.Groups = append(resp.Groups, groupDTO)
	}
	return resp, nil
}

// ListRulesets returns paginated ruleset summaries with group and rule counts.
func (f *AuthoringFlowImpl) ListRulesets(ctx context.Context, req *dto.ListRulesetsRequest) (*dto.ListRulesetsResponse, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	filter := models.RulesetFilter{IsActive: req.OnlyActive}
	total, err := f.rulesetRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("RULESET_LIST_FAILED", "Failed to count rulesets", err)
	}
	rulesets, err := f.rulesetRepo.ByFilter(ctx, filter, "priority DESC, id ASC", pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, NewBusinessError("RULESET_LIST_FAILED", "Failed to list rulesets", err)
	}

	items := make([]dto.RulesetSummaryDTO, 0, len(rulesets))
	for _, rs := range rulesets {
		groupCount, err := f.groupRepo.Count(ctx, models.RuleGroupFilter{RulesetID: &rs.ID})
		if err != nil {
			return nil, NewBusinessError("RULESET_LIST_FAILED", "Failed to count rule groups", err)
		}
		rules, err := f.ruleRepo.ListByRuleset(ctx, rs.ID)
		if err != nil {
			return nil, NewBusinessError("RULESET_LIST_FAILED", "Failed to count rules", err)
		}
		items = append(items, dto.RulesetSummaryDTO{
			UUID:       rs.UUID.String(),
			Name:       rs.Name,
			Priority:   rs.Priority,
			IsActive:   rs.Active(),
			GroupCount: int(groupCount),
			RuleCount:  len(rules),
			CreatedAt:  rs.CreatedAt,
		})
	}

	return &dto.ListRulesetsResponse{
		Message: "Rulesets retrieved successfully",
		Items:   items,
		Total:   total,
	}, nil
}

func (f *AuthoringFlowImpl) rulesetByUUID(ctx context.Context, raw string) (*models.Ruleset, error) {
	rulesetUUID, err := uuid.Parse(raw)
	if err != nil {
		return nil, NewBusinessError("RULESET_UUID_INVALID", "Ruleset UUID is invalid", err)
	}
	ruleset, err := f.rulesetRepo.ByUUID(ctx, rulesetUUID)
	if err != nil {
		return nil, NewBusinessError("RULESET_LOOKUP_FAILED", "Failed to look up ruleset", err)
	}
	if ruleset == nil {
		return nil, NewBusinessError("RULESET_NOT_FOUND", "Ruleset not found", ErrRulesetNotFound)
	}
	return ruleset, nil
}

// parseConditions decodes and shape-checks a condition tree from a request
func (f *AuthoringFlowImpl) parseConditions(raw json.RawMessage) (*models.ConditionNode, error) {
	var tree models.ConditionNode
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConditionTreeInvalid, err)
	}
	if err := tree.Validate(f.maxConditionDepth); err != nil {
		return nil, err
	}
	return &tree, nil
}

func (f *AuthoringFlowImpl) audit(ctx context.Context, action, actor string, rulesetID *uint, description, requestID string) {
	if actor == "" {
		actor = "system"
	}
	audit := &models.AuditLog{
		Actor:       actor,
		Action:      action,
		RulesetID:   rulesetID,
		Description: &description,
		Success:     utils.ToPtr(true),
	}
	if requestID != "" {
		audit.RequestID = &requestID
	}
	if err := f.auditRepo.Save(ctx, audit); err != nil {
		f.logger.Warn("audit write failed", "action", action, "error", err)
	}
}

func toRuleDTO(rule *models.Rule) dto.RuleDTO {
	item := dto.RuleDTO{
		UUID:            rule.UUID.String(),
		Name:            rule.Name,
		Description:     rule.Description,
		EvaluationOrder: rule.EvaluationOrder,
		Priority:        rule.Priority,
		IsActive:        rule.Active(),
		Metadata:        map[string]any(rule.Metadata),
		CreatedAt:       rule.CreatedAt,
		UpdatedAt:       rule.UpdatedAt,
	}
	if bs, err := json.Marshal(rule.Conditions); err == nil {
		item.Conditions = bs
	}
	if bs, err := json.Marshal(rule.Action); err == nil {
		item.Action = bs
	}
	return item
}
