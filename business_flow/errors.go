// Package businessflow contains the core business logic and use cases for catalog authoring, hydration and pricing workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Ruleset-related errors
	ErrRulesetNotFound      = errors.New("ruleset not found")
	ErrRulesetInactive      = errors.New("ruleset is inactive")
	ErrRulesetNameRequired  = errors.New("ruleset name is required")
	ErrRulesetNameTaken     = errors.New("ruleset name already exists")
	ErrRulesetUUIDRequired  = errors.New("ruleset UUID is required")
	ErrNoActiveRulesets     = errors.New("no active rulesets available")
	ErrSelectionTreeInvalid = errors.New("selection conditions are invalid")

	// Rule group errors
	ErrRuleGroupNotFound     = errors.New("rule group not found")
	ErrRuleGroupNameRequired = errors.New("rule group name is required")

	// Rule errors
	ErrRuleNotFound         = errors.New("rule not found")
	ErrRuleNameRequired     = errors.New("rule name is required")
	ErrRuleAlreadyInactive  = errors.New("rule is already inactive")
	ErrConditionTreeInvalid = errors.New("condition tree is invalid")
	ErrConditionTooDeep     = errors.New("condition tree exceeds maximum depth")
	ErrInvalidAction        = errors.New("action specification is invalid")
	ErrFormulaInvalid       = errors.New("formula does not compile")

	// Baseline field errors
	ErrBaselineFieldNotFound    = errors.New("baseline field not found")
	ErrBaselineFieldKeyRequired = errors.New("baseline field key is required")
	ErrBaselineFieldKeyTaken    = errors.New("baseline field key already registered for this ruleset")
	ErrBaselineFieldTypeInvalid = errors.New("baseline field type is invalid")
	ErrEnumMappingRequired      = errors.New("enum mapping is required for enum multiplier fields")
	ErrFormulaTextRequired      = errors.New("formula text is required for formula fields")

	// Pricing errors
	ErrBasePriceNegative = errors.New("base price cannot be negative")
	ErrListingContextNil = errors.New("listing context is required")

	// Hydration errors
	ErrActorRequired       = errors.New("actor is required")
	ErrPlaceholderNotFound = errors.New("placeholder rule not found")

	// Cache errors
	ErrCacheNotAvailable = errors.New("cache not available")

	// Filter errors
	ErrInvalidPage           = errors.New("page must be at least 1")
	ErrInvalidPageSize       = errors.New("page size must be between 1 and 100")
	ErrStartDateAfterEndDate = errors.New("start date cannot be after end date")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsRulesetNotFound(err error) bool {
	return errors.Is(err, ErrRulesetNotFound)
}

func IsRulesetInactive(err error) bool {
	return errors.Is(err, ErrRulesetInactive)
}

func IsRulesetNameTaken(err error) bool {
	return errors.Is(err, ErrRulesetNameTaken)
}

func IsRuleGroupNotFound(err error) bool {
	return errors.Is(err, ErrRuleGroupNotFound)
}

func IsRuleNotFound(err error) bool {
	return errors.Is(err, ErrRuleNotFound)
}

func IsConditionTreeInvalid(err error) bool {
	return errors.Is(err, ErrConditionTreeInvalid) || errors.Is(err, ErrConditionTooDeep)
}

func IsInvalidAction(err error) bool {
	return errors.Is(err, ErrInvalidAction)
}

func IsFormulaInvalid(err error) bool {
	return errors.Is(err, ErrFormulaInvalid)
}

func IsBaselineFieldNotFound(err error) bool {
	return errors.Is(err, ErrBaselineFieldNotFound)
}

func IsBaselineFieldKeyTaken(err error) bool {
	return errors.Is(err, ErrBaselineFieldKeyTaken)
}

func IsCacheNotAvailable(err error) bool {
	return errors.Is(err, ErrCacheNotAvailable)
}
