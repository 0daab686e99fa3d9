// Package testing provides test utilities and database setup for testing the valuation engine
package testing

import (
	"fmt"
	"math/rand"

	"github.com/amirphl/Tarazu/models"
	"github.com/amirphl/Tarazu/utils"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestRuleset creates an active default ruleset (no selection conditions)
func (tf *TestFixtures) CreateTestRuleset(name string, priority int) (*models.Ruleset, error) {
	if name == "" {
		name = fmt.Sprintf("Test Catalog %04d", rand.Intn(10000))
	}

	ruleset := &models.Ruleset{
		Name:     name,
		Priority: priority,
		IsActive: utils.ToPtr(true),
	}

	err := tf.DB.DB.Create(ruleset).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create test ruleset: %w", err)
	}

	return ruleset, nil
}

// CreateConditionalRuleset creates an active ruleset gated by a selection tree
func (tf *TestFixtures) CreateConditionalRuleset(name string, priority int, conditions models.ConditionNode) (*models.Ruleset, error) {
	ruleset := &models.Ruleset{
		Name:                name,
		Priority:            priority,
		IsActive:            utils.ToPtr(true),
		SelectionConditions: &conditions,
	}

	err := tf.DB.DB.Create(ruleset).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create conditional test ruleset: %w", err)
	}

	return ruleset, nil
}

// CreateTestGroup creates a rule group inside the given ruleset
func (tf *TestFixtures) CreateTestGroup(rulesetID uint, name string, displayOrder int) (*models.RuleGroup, error) {
	if name == "" {
		name = fmt.Sprintf("Test Group %04d", rand.Intn(10000))
	}

	group := &models.RuleGroup{
		RulesetID:    rulesetID,
		Name:         name,
		DisplayOrder: displayOrder,
	}

	err := tf.DB.DB.Create(group).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create test rule group: %w", err)
	}

	return group, nil
}

// CreateTestRule creates an active rule with the given conditions and action
func (tf *TestFixtures) CreateTestRule(groupID uint, name string, order int, conditions models.ConditionNode, action models.ActionSpec) (*models.Rule, error) {
	if name == "" {
		name = fmt.Sprintf("Test Rule %04d", rand.Intn(10000))
	}

	rule := &models.Rule{
		GroupID:         groupID,
		Name:            name,
		EvaluationOrder: order,
		Conditions:      conditions,
		Action:          action,
		IsActive:        utils.ToPtr(true),
	}

	err := tf.DB.DB.Create(rule).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create test rule: %w", err)
	}

	return rule, nil
}

// CreateUnconditionalRule creates a rule whose conditions always match
func (tf *TestFixtures) CreateUnconditionalRule(groupID uint, name string, order int, action models.ActionSpec) (*models.Rule, error) {
	return tf.CreateTestRule(groupID, name, order, models.AndGroup(), action)
}

// CreateTestEnumField creates an unhydrated enum multiplier baseline field
func (tf *TestFixtures) CreateTestEnumField(rulesetID uint, key string, mapping models.EnumMapping) (*models.BaselineField, error) {
	field := &models.BaselineField{
		RulesetID:   rulesetID,
		Key:         key,
		FieldType:   models.BaselineFieldTypeEnumMultiplier,
		EnumMapping: mapping,
	}

	err := tf.DB.DB.Create(field).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create enum baseline field: %w", err)
	}

	return field, nil
}

// CreateTestFormulaField creates an unhydrated formula baseline field
func (tf *TestFixtures) CreateTestFormulaField(rulesetID uint, key, formulaText string) (*models.BaselineField, error) {
	field := &models.BaselineField{
		RulesetID:   rulesetID,
		Key:         key,
		FieldType:   models.BaselineFieldTypeFormula,
		FormulaText: &formulaText,
	}

	err := tf.DB.DB.Create(field).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create formula baseline field: %w", err)
	}

	return field, nil
}

// CreateTestFixedField creates an unhydrated fixed baseline field with the
// given metadata, which hydration consults for the default amount
func (tf *TestFixtures) CreateTestFixedField(rulesetID uint, key string, metadata models.MetadataMap) (*models.BaselineField, error) {
	field := &models.BaselineField{
		RulesetID: rulesetID,
		Key:       key,
		FieldType: models.BaselineFieldTypeFixed,
		Metadata:  metadata,
	}

	err := tf.DB.DB.Create(field).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create fixed baseline field: %w", err)
	}

	return field, nil
}

// CreateTestScalarField creates a scalar baseline field, which hydration skips
func (tf *TestFixtures) CreateTestScalarField(rulesetID uint, key string) (*models.BaselineField, error) {
	field := &models.BaselineField{
		RulesetID: rulesetID,
		Key:       key,
		FieldType: models.BaselineFieldTypeScalar,
	}

	err := tf.DB.DB.Create(field).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create scalar baseline field: %w", err)
	}

	return field, nil
}

// CreateTestAuditLog creates a test audit log entry
func (tf *TestFixtures) CreateTestAuditLog(actor, action string, success bool) (*models.AuditLog, error) {
	description := fmt.Sprintf("Test %s action", action)

	audit := &models.AuditLog{
		Actor:       actor,
		Action:      action,
		Description: &description,
		Success:     &success,
	}

	if !success {
		errorMessage := "Test failed action"
		audit.ErrorMessage = &errorMessage
	}

	err := tf.DB.DB.Create(audit).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create test audit log: %w", err)
	}

	return audit, nil
}

// CreateDemoCatalog seeds a small but complete catalog: one default ruleset
// with a base group (condition percentage rule), a component group (per-unit
// RAM adder with a DDR generation multiplier) and a benchmark group. Returns
// the ruleset with IDs populated.
func (tf *TestFixtures) CreateDemoCatalog() (*models.Ruleset, error) {
	ruleset, err := tf.CreateTestRuleset("Demo Workstation Pricing", 0)
	if err != nil {
		return nil, err
	}

	baseGroup, err := tf.CreateTestGroup(ruleset.ID, "Condition Adjustments", 0)
	if err != nil {
		return nil, err
	}
	componentGroup, err := tf.CreateTestGroup(ruleset.ID, "Component Adders", 1)
	if err != nil {
		return nil, err
	}
	benchmarkGroup, err := tf.CreateTestGroup(ruleset.ID, "Benchmark Adders", 2)
	if err != nil {
		return nil, err
	}

	_, err = tf.CreateTestRule(baseGroup.ID, "Used discount", 0,
		models.AndGroup(models.Leaf("condition", models.ConditionOperatorEquals, "used")),
		models.ActionSpec{Type: models.ActionTypePercentage, Amount: -15.0},
	)
	if err != nil {
		return nil, err
	}

	_, err = tf.CreateTestRule(componentGroup.ID, "RAM per GB", 0,
		models.AndGroup(models.Leaf("specs.ram_gb", models.ConditionOperatorGreaterThan, 0)),
		models.ActionSpec{
			Type:      models.ActionTypePerUnit,
			Amount:    2.5,
			MetricKey: "specs.ram_gb",
			Multipliers: []models.MultiplierSpec{
				{
					Type:    models.MultiplierTypeField,
					Field:   "specs.ram_generation",
					Mapping: map[string]float64{"ddr3": 0.7, "ddr4": 1.0, "ddr5": 1.3},
				},
			},
		},
	)
	if err != nil {
		return nil, err
	}

	_, err = tf.CreateTestRule(benchmarkGroup.ID, "CPU benchmark value", 0,
		models.AndGroup(models.Leaf("benchmarks.cpu_mark", models.ConditionOperatorGreaterThan, 0)),
		models.ActionSpec{
			Type:      models.ActionTypeBenchmarkBased,
			Amount:    0.01,
			MetricKey: "benchmarks.cpu_mark",
		},
	)
	if err != nil {
		return nil, err
	}

	return ruleset, nil
}
