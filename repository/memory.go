package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/amirphl/Tarazu/models"
	"github.com/amirphl/Tarazu/utils"
	"github.com/google/uuid"
)

// MemoryCatalog implements every catalog repository on locked maps. It backs
// tests and embedded use where Postgres is not available; the entities it
// hands out are snapshots, so callers mutate through the repository methods
// only. Creation hooks are emulated: Save assigns IDs, UUIDs, defaults and
// timestamps the way the database layer would.
type MemoryCatalog struct {
	mu       sync.RWMutex
	lastID   map[string]uint
	rulesets map[uint]models.Ruleset
	groups   map[uint]models.RuleGroup
	rules    map[uint]models.Rule
	fields   map[uint]models.BaselineField
	audits   []models.AuditLog
}

// NewMemoryCatalog creates an empty in-memory catalog
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		lastID:   make(map[string]uint),
		rulesets: make(map[uint]models.Ruleset),
		groups:   make(map[uint]models.RuleGroup),
		rules:    make(map[uint]models.Rule),
		fields:   make(map[uint]models.BaselineField),
	}
}

// Rulesets returns the ruleset repository view of the catalog
func (c *MemoryCatalog) Rulesets() RulesetRepository { return &memoryRulesetRepo{c} }

// Groups returns the rule group repository view of the catalog
func (c *MemoryCatalog) Groups() RuleGroupRepository { return &memoryRuleGroupRepo{c} }

// Rules returns the rule repository view of the catalog
func (c *MemoryCatalog) Rules() RuleRepository { return &memoryRuleRepo{c} }

// BaselineFields returns the baseline field repository view of the catalog
func (c *MemoryCatalog) BaselineFields() BaselineFieldRepository { return &memoryBaselineFieldRepo{c} }

// AuditLogs returns the audit log repository view of the catalog
func (c *MemoryCatalog) AuditLogs() AuditLogRepository { return &memoryAuditLogRepo{c} }

// TransactionRunner returns a runner that serializes the function against
// the catalog lock discipline. In-memory writes are applied immediately;
// there is no rollback.
func (c *MemoryCatalog) TransactionRunner() TransactionRunner { return &memoryTxRunner{} }

type memoryTxRunner struct{}

func (r *memoryTxRunner) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (c *MemoryCatalog) allocate(table string) uint {
	c.lastID[table]++
	return c.lastID[table]
}

// ---- rulesets ----

type memoryRulesetRepo struct{ c *MemoryCatalog }

func (r *memoryRulesetRepo) ByID(ctx context.Context, id uint) (*models.Ruleset, error) {
	r.c.mu.RLock()
	defer r.c.mu.RUnlock()
	if rs, ok := r.c.rulesets[id]; ok {
		return &rs, nil
	}
	return nil, nil
}

func (r *memoryRulesetRepo) ByUUID(ctx context.Context, id uuid.UUID) (*models.Ruleset, error) {
	r.c.mu.RLock()
	defer r.c.mu.RUnlock()
	for _, rs := range r.c.rulesets {
		if rs.UUID == id {
			return &rs, nil
		}
	}
	return nil, nil
}

func (r *memoryRulesetRepo) Save(ctx context.Context, entity *models.Ruleset) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	if entity.ID == 0 {
		entity.ID = r.c.allocate("rulesets")
	}
	if entity.UUID == uuid.Nil {
		entity.UUID = uuid.New()
	}
	if entity.IsActive == nil {
		entity.IsActive = utils.ToPtr(true)
	}
	if entity.CreatedAt.IsZero() {
		entity.CreatedAt = utils.UTCNow()
	}
	stored := *entity
	stored.Groups = nil
	r.c.rulesets[entity.ID] = stored
	return nil
}

func (r *memoryRulesetRepo) SaveBatch(ctx context.Context, entities []*models.Ruleset) error {
	for _, entity := range entities {
		if err := r.Save(ctx, entity); err != nil {
			return err
		}
	}
	return nil
}

func (r *memoryRulesetRepo) Update(ctx context.Context, ruleset *models.Ruleset) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	ruleset.UpdatedAt = utils.UTCNowPtr()
	stored := *ruleset
	stored.Groups = nil
	r.c.rulesets[ruleset.ID] = stored
	return nil
}

func (r *memoryRulesetRepo) ListActiveWithRules(ctx context.Context) ([]*models.Ruleset, error) {
	r.c.mu.RLock()
	defer r.c.mu.RUnlock()

	var out []*models.Ruleset
	for _, rs := range r.c.rulesets {
		if !utils.IsTrue(rs.IsActive) {
			continue
		}
		snapshot := rs
		snapshot.Groups = r.c.groupsOf(rs.ID)
		out = append(out, &snapshot)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// groupsOf assembles a ruleset's groups with their rules; callers hold the lock
func (c *MemoryCatalog) groupsOf(rulesetID uint) []models.RuleGroup {
	var groups []models.RuleGroup
	for _, g := range c.groups {
		if g.RulesetID != rulesetID {
			continue
		}
		snapshot := g
		snapshot.Rules = c.rulesOf(g.ID)
		groups = append(groups, snapshot)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].DisplayOrder != groups[j].DisplayOrder {
			return groups[i].DisplayOrder < groups[j].DisplayOrder
		}
		return groups[i].ID < groups[j].ID
	})
	return groups
}

func (c *MemoryCatalog) rulesOf(groupID uint) []models.Rule {
	var rules []models.Rule
	for _, rule := range c.rules {
		if rule.GroupID == groupID {
			rules = append(rules, rule)
		}
	}
	sort.Slice(rules, func(i, j int) bool {
		if rules[i].EvaluationOrder != rules[j].EvaluationOrder {
			return rules[i].EvaluationOrder < rules[j].EvaluationOrder
		}
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority > rules[j].Priority
		}
		return rules[i].ID < rules[j].ID
	})
	return rules
}

func (r *memoryRulesetRepo) ByFilter(ctx context.Context, filter models.RulesetFilter, orderBy string, limit, offset int) ([]*models.Ruleset, error) {
	r.c.mu.RLock()
	defer r.c.mu.RUnlock()

	var out []*models.Ruleset
	for _, rs := range r.c.rulesets {
		if matchRulesetFilter(&rs, filter) {
			snapshot := rs
			out = append(out, &snapshot)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, limit, offset), nil
}

func (r *memoryRulesetRepo) Count(ctx context.Context, filter models.RulesetFilter) (int64, error) {
	r.c.mu.RLock()
	defer r.c.mu.RUnlock()
	var count int64
	for _, rs := range r.c.rulesets {
		if matchRulesetFilter(&rs, filter) {
			count++
		}
	}
	return count, nil
}

func (r *memoryRulesetRepo) Exists(ctx context.Context, filter models.RulesetFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	return count > 0, err
}

func matchRulesetFilter(rs *models.Ruleset, f models.RulesetFilter) bool {
	if f.ID != nil && rs.ID != *f.ID {
		return false
	}
	if f.UUID != nil && rs.UUID != *f.UUID {
		return false
	}
	if f.Name != nil && rs.Name != *f.Name {
		return false
	}
	if f.IsActive != nil && utils.IsTrue(rs.IsActive) != *f.IsActive {
		return false
	}
	if f.MinPriority != nil && rs.Priority < *f.MinPriority {
		return false
	}
	if f.CreatedAfter != nil && rs.CreatedAt.Before(*f.CreatedAfter) {
		return false
	}
	if f.CreatedBefore != nil && rs.CreatedAt.After(*f.CreatedBefore) {
		return false
	}
	return true
}

// ---- rule groups ----

type memoryRuleGroupRepo struct{ c *MemoryCatalog }

func (r *memoryRuleGroupRepo) ByID(ctx context.Context, id uint) (*models.RuleGroup, error) {
	r.c.mu.RLock()
	defer r.c.mu.RUnlock()
	if g, ok := r.c.groups[id]; ok {
		return &g, nil
	}
	return nil, nil
}

func (r *memoryRuleGroupRepo) ByUUID(ctx context.Context, id uuid.UUID) (*models.RuleGroup, error) {
	r.c.mu.RLock()
	defer r.c.mu.RUnlock()
	for _, g := range r.c.groups {
		if g.UUID == id {
			return &g, nil
		}
	}
	return nil, nil
}

func (r *memoryRuleGroupRepo) Save(ctx context.Context, entity *models.RuleGroup) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	if entity.ID == 0 {
		entity.ID = r.c.allocate("rule_groups")
	}
	if entity.UUID == uuid.Nil {
		entity.UUID = uuid.New()
	}
	if entity.CreatedAt.IsZero() {
		entity.CreatedAt = utils.UTCNow()
	}
	stored := *entity
	stored.Rules = nil
	r.c.groups[entity.ID] = stored
	return nil
}

func (r *memoryRuleGroupRepo) SaveBatch(ctx context.Context, entities []*models.RuleGroup) error {
	for _, entity := range entities {
		if err := r.Save(ctx, entity); err != nil {
			return err
		}
	}
	return nil
}

func (r *memoryRuleGroupRepo) ListByRuleset(ctx context.Context, rulesetID uint) ([]*models.RuleGroup, error) {
	r.c.mu.RLock()
	defer r.c.mu.RUnlock()
	var out []*models.RuleGroup
	for _, g := range r.c.groups {
		if g.RulesetID == rulesetID {
			snapshot := g
			out = append(out, &snapshot)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayOrder != out[j].DisplayOrder {
			return out[i].DisplayOrder < out[j].DisplayOrder
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *memoryRuleGroupRepo) ByFilter(ctx context.Context, filter models.RuleGroupFilter, orderBy string, limit, offset int) ([]*models.RuleGroup, error) {
	r.c.mu.RLock()
	defer r.c.mu.RUnlock()
	var out []*models.RuleGroup
	for _, g := range r.c.groups {
		if matchRuleGroupFilter(&g, filter) {
			snapshot := g
			out = append(out, &snapshot)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, limit, offset), nil
}

func (r *memoryRuleGroupRepo) Count(ctx context.Context, filter models.RuleGroupFilter) (int64, error) {
	r.c.mu.RLock()
	defer r.c.mu.RUnlock()
	var count int64
	for _, g := range r.c.groups {
		if matchRuleGroupFilter(&g, filter) {
			count++
		}
	}
	return count, nil
}

func (r *memoryRuleGroupRepo) Exists(ctx context.Context, filter models.RuleGroupFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	return count > 0, err
}

func matchRuleGroupFilter(g *models.RuleGroup, f models.RuleGroupFilter) bool {
	if f.ID != nil && g.ID != *f.ID {
		return false
	}
	if f.UUID != nil && g.UUID != *f.UUID {
		return false
	}
	if f.RulesetID != nil && g.RulesetID != *f.RulesetID {
		return false
	}
	if f.Name != nil && g.Name != *f.Name {
		return false
	}
	return true
}

// ---- rules ----

type memoryRuleRepo struct{ c *MemoryCatalog }

func (r *memoryRuleRepo) ByID(ctx context.Context, id uint) (*models.Rule, error) {
	r.c.mu.RLock()
	defer r.c.mu.RUnlock()
	if rule, ok := r.c.rules[id]; ok {
		return &rule, nil
	}
	return nil, nil
}

func (r *memoryRuleRepo) ByUUID(ctx context.Context, id uuid.UUID) (*models.Rule, error) {
	r.c.mu.RLock()
	defer r.c.mu.RUnlock()
	for _, rule := range r.c.rules {
		if rule.UUID == id {
			return &rule, nil
		}
	}
	return nil, nil
}

func (r *memoryRuleRepo) Save(ctx context.Context, entity *models.Rule) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	r.saveLocked(entity)
	return nil
}

func (r *memoryRuleRepo) saveLocked(entity *models.Rule) {
	if entity.ID == 0 {
		entity.ID = r.c.allocate("rules")
	}
	if entity.UUID == uuid.Nil {
		entity.UUID = uuid.New()
	}
	if entity.IsActive == nil {
		entity.IsActive = utils.ToPtr(true)
	}
	if entity.Metadata == nil {
		entity.Metadata = models.MetadataMap{}
	}
	if entity.CreatedAt.IsZero() {
		entity.CreatedAt = utils.UTCNow()
	}
	r.c.rules[entity.ID] = *entity
}

func (r *memoryRuleRepo) SaveBatch(ctx context.Context, entities []*models.Rule) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	for _, entity := range entities {
		r.saveLocked(entity)
	}
	return nil
}

func (r *memoryRuleRepo) Update(ctx context.Context, rule *models.Rule) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	rule.UpdatedAt = utils.UTCNowPtr()
	r.c.rules[rule.ID] = *rule
	return nil
}

func (r *memoryRuleRepo) Deactivate(ctx context.Context, ruleID uint) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	rule, ok := r.c.rules[ruleID]
	if !ok {
		return nil
	}
	rule.IsActive = utils.ToPtr(false)
	rule.UpdatedAt = utils.UTCNowPtr()
	r.c.rules[ruleID] = rule
	return nil
}

func (r *memoryRuleRepo) ListByGroup(ctx context.Context, groupID uint) ([]*models.Rule, error) {
	r.c.mu.RLock()
	defer r.c.mu.RUnlock()
	rules := r.c.rulesOf(groupID)
	out := make([]*models.Rule, len(rules))
	for i := range rules {
		snapshot := rules[i]
		out[i] = &snapshot
	}
	return out, nil
}

func (r *memoryRuleRepo) ListByRuleset(ctx context.Context, rulesetID uint) ([]*models.Rule, error) {
	r.c.mu.RLock()
	defer r.c.mu.RUnlock()
	var out []*models.Rule
	for _, rule := range r.c.rules {
		group, ok := r.c.groups[rule.GroupID]
		if !ok || group.RulesetID != rulesetID {
			continue
		}
		snapshot := rule
		out = append(out, &snapshot)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryRuleRepo) ListBySourceField(ctx context.Context, rulesetID uint, fieldKey string) ([]*models.Rule, error) {
	rules, err := r.ListByRuleset(ctx, rulesetID)
	if err != nil {
		return nil, err
	}
	var out []*models.Rule
	for _, rule := range rules {
		if source, ok := rule.Metadata.GetString(models.RuleMetaSourceField); ok && source == fieldKey {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r *memoryRuleRepo) ByFilter(ctx context.Context, filter models.RuleFilter, orderBy string, limit, offset int) ([]*models.Rule, error) {
	r.c.mu.RLock()
	defer r.c.mu.RUnlock()
	var out []*models.Rule
	for _, rule := range r.c.rules {
		if matchRuleFilter(&rule, filter) {
			snapshot := rule
			out = append(out, &snapshot)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, limit, offset), nil
}

func (r *memoryRuleRepo) Count(ctx context.Context, filter models.RuleFilter) (int64, error) {
	r.c.mu.RLock()
	defer r.c.mu.RUnlock()
	var count int64
	for _, rule := range r.c.rules {
		if matchRuleFilter(&rule, filter) {
			count++
		}
	}
	return count, nil
}

func (r *memoryRuleRepo) Exists(ctx context.Context, filter models.RuleFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	return count > 0, err
}

func matchRuleFilter(rule *models.Rule, f models.RuleFilter) bool {
	if f.ID != nil && rule.ID != *f.ID {
		return false
	}
	if f.UUID != nil && rule.UUID != *f.UUID {
		return false
	}
	if f.GroupID != nil && rule.GroupID != *f.GroupID {
		return false
	}
	if f.Name != nil && rule.Name != *f.Name {
		return false
	}
	if f.IsActive != nil && utils.IsTrue(rule.IsActive) != *f.IsActive {
		return false
	}
	if f.CreatedAfter != nil && rule.CreatedAt.Before(*f.CreatedAfter) {
		return false
	}
	if f.CreatedBefore != nil && rule.CreatedAt.After(*f.CreatedBefore) {
		return false
	}
	return true
}

// ---- baseline fields ----

type memoryBaselineFieldRepo struct{ c *MemoryCatalog }

func (r *memoryBaselineFieldRepo) ByID(ctx context.Context, id uint) (*models.BaselineField, error) {
	r.c.mu.RLock()
	defer r.c.mu.RUnlock()
	if field, ok := r.c.fields[id]; ok {
		return &field, nil
	}
	return nil, nil
}

func (r *memoryBaselineFieldRepo) ByUUID(ctx context.Context, id uuid.UUID) (*models.BaselineField, error) {
	r.c.mu.RLock()
	defer r.c.mu.RUnlock()
	for _, field := range r.c.fields {
		if field.UUID == id {
			return &field, nil
		}
	}
	return nil, nil
}

func (r *memoryBaselineFieldRepo) Save(ctx context.Context, entity *models.BaselineField) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	if entity.ID == 0 {
		entity.ID = r.c.allocate("baseline_fields")
	}
	if entity.UUID == uuid.Nil {
		entity.UUID = uuid.New()
	}
	if entity.Hydrated == nil {
		entity.Hydrated = utils.ToPtr(false)
	}
	if entity.Metadata == nil {
		entity.Metadata = models.MetadataMap{}
	}
	if entity.CreatedAt.IsZero() {
		entity.CreatedAt = utils.UTCNow()
	}
	r.c.fields[entity.ID] = *entity
	return nil
}

func (r *memoryBaselineFieldRepo) SaveBatch(ctx context.Context, entities []*models.BaselineField) error {
	for _, entity := range entities {
		if err := r.Save(ctx, entity); err != nil {
			return err
		}
	}
	return nil
}

func (r *memoryBaselineFieldRepo) Update(ctx context.Context, field *models.BaselineField) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	field.UpdatedAt = utils.UTCNowPtr()
	r.c.fields[field.ID] = *field
	return nil
}

func (r *memoryBaselineFieldRepo) ListByRuleset(ctx context.Context, rulesetID uint) ([]*models.BaselineField, error) {
	r.c.mu.RLock()
	defer r.c.mu.RUnlock()
	var out []*models.BaselineField
	for _, field := range r.c.fields {
		if field.RulesetID == rulesetID {
			snapshot := field
			out = append(out, &snapshot)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryBaselineFieldRepo) ByFilter(ctx context.Context, filter models.BaselineFieldFilter, orderBy string, limit, offset int) ([]*models.BaselineField, error) {
	r.c.mu.RLock()
	defer r.c.mu.RUnlock()
	var out []*models.BaselineField
	for _, field := range r.c.fields {
		if matchBaselineFieldFilter(&field, filter) {
			snapshot := field
			out = append(out, &snapshot)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, limit, offset), nil
}

func (r *memoryBaselineFieldRepo) Count(ctx context.Context, filter models.BaselineFieldFilter) (int64, error) {
	r.c.mu.RLock()
	defer r.c.mu.RUnlock()
	var count int64
	for _, field := range r.c.fields {
		if matchBaselineFieldFilter(&field, filter) {
			count++
		}
	}
	return count, nil
}

func (r *memoryBaselineFieldRepo) Exists(ctx context.Context, filter models.BaselineFieldFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	return count > 0, err
}

func matchBaselineFieldFilter(field *models.BaselineField, f models.BaselineFieldFilter) bool {
	if f.ID != nil && field.ID != *f.ID {
		return false
	}
	if f.UUID != nil && field.UUID != *f.UUID {
		return false
	}
	if f.RulesetID != nil && field.RulesetID != *f.RulesetID {
		return false
	}
	if f.Key != nil && field.Key != *f.Key {
		return false
	}
	if f.FieldType != nil && field.FieldType != *f.FieldType {
		return false
	}
	if f.Hydrated != nil && field.IsHydrated() != *f.Hydrated {
		return false
	}
	return true
}

// ---- audit logs ----

type memoryAuditLogRepo struct{ c *MemoryCatalog }

func (r *memoryAuditLogRepo) ByID(ctx context.Context, id uint) (*models.AuditLog, error) {
	r.c.mu.RLock()
	defer r.c.mu.RUnlock()
	for i := range r.c.audits {
		if r.c.audits[i].ID == id {
			snapshot := r.c.audits[i]
			return &snapshot, nil
		}
	}
	return nil, nil
}

func (r *memoryAuditLogRepo) Save(ctx context.Context, entity *models.AuditLog) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	if entity.ID == 0 {
		entity.ID = r.c.allocate("audit_log")
	}
	if entity.Success == nil {
		entity.Success = utils.ToPtr(true)
	}
	if entity.CreatedAt.IsZero() {
		entity.CreatedAt = utils.UTCNow()
	}
	r.c.audits = append(r.c.audits, *entity)
	return nil
}

func (r *memoryAuditLogRepo) SaveBatch(ctx context.Context, entities []*models.AuditLog) error {
	for _, entity := range entities {
		if err := r.Save(ctx, entity); err != nil {
			return err
		}
	}
	return nil
}

func (r *memoryAuditLogRepo) ListByAction(ctx context.Context, action string, limit, offset int) ([]*models.AuditLog, error) {
	filter := models.AuditLogFilter{Action: &action}
	return r.ByFilter(ctx, filter, "", limit, offset)
}

func (r *memoryAuditLogRepo) ListByRuleset(ctx context.Context, rulesetID uint, limit, offset int) ([]*models.AuditLog, error) {
	filter := models.AuditLogFilter{RulesetID: &rulesetID}
	return r.ByFilter(ctx, filter, "", limit, offset)
}

func (r *memoryAuditLogRepo) ListFailedActions(ctx context.Context, limit, offset int) ([]*models.AuditLog, error) {
	filter := models.AuditLogFilter{Success: utils.ToPtr(false)}
	return r.ByFilter(ctx, filter, "", limit, offset)
}

func (r *memoryAuditLogRepo) ByFilter(ctx context.Context, filter models.AuditLogFilter, orderBy string, limit, offset int) ([]*models.AuditLog, error) {
	r.c.mu.RLock()
	defer r.c.mu.RUnlock()
	var out []*models.AuditLog
	for i := range r.c.audits {
		if matchAuditLogFilter(&r.c.audits[i], filter) {
			snapshot := r.c.audits[i]
			out = append(out, &snapshot)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, limit, offset), nil
}

func (r *memoryAuditLogRepo) Count(ctx context.Context, filter models.AuditLogFilter) (int64, error) {
	r.c.mu.RLock()
	defer r.c.mu.RUnlock()
	var count int64
	for i := range r.c.audits {
		if matchAuditLogFilter(&r.c.audits[i], filter) {
			count++
		}
	}
	return count, nil
}

func (r *memoryAuditLogRepo) Exists(ctx context.Context, filter models.AuditLogFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	return count > 0, err
}

func matchAuditLogFilter(entry *models.AuditLog, f models.AuditLogFilter) bool {
	if f.ID != nil && entry.ID != *f.ID {
		return false
	}
	if f.Actor != nil && entry.Actor != *f.Actor {
		return false
	}
	if f.Action != nil && entry.Action != *f.Action {
		return false
	}
	if f.RulesetID != nil && (entry.RulesetID == nil || *entry.RulesetID != *f.RulesetID) {
		return false
	}
	if f.Success != nil && utils.IsTrue(entry.Success) != *f.Success {
		return false
	}
	if f.RequestID != nil && (entry.RequestID == nil || *entry.RequestID != *f.RequestID) {
		return false
	}
	if f.CreatedAfter != nil && entry.CreatedAt.Before(*f.CreatedAfter) {
		return false
	}
	if f.CreatedBefore != nil && entry.CreatedAt.After(*f.CreatedBefore) {
		return false
	}
	return true
}

func paginate[T any](items []*T, limit, offset int) []*T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
