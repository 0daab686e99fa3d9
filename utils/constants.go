package utils

import (
	"time"
)

// Engine guardrail constants
const (
	// DefaultMaxConditionDepth caps condition tree nesting at authoring time
	DefaultMaxConditionDepth = 8

	// DefaultFormulaCostLimit bounds the evaluation cost of a single formula
	DefaultFormulaCostLimit = 1_000_000

	// DefaultCatalogCacheTTL is how long an active-catalog snapshot stays cached
	DefaultCatalogCacheTTL = 5 * time.Minute
)

// Pricing constants
const (
	// DefaultCurrency labels amounts in exports and logs
	DefaultCurrency = "USD"

	// PlaceholderAmount is the fixed value placeholder rules carry until hydration
	PlaceholderAmount = 0.0
)

// Cache keys, joined with the configured redis prefix
const (
	ActiveRulesetsCacheKey = "catalog:active_rulesets"
)

// DefaultValueKeySynonyms are the metadata keys, in priority order, a
// fixed-type baseline field may store its amount under.
var DefaultValueKeySynonyms = []string{"default_value", "value", "amount", "base_value"}

// DefaultRelationshipFields are the catalog attributes that reference
// component entities; rules hydrated from them get tagged as foreign-key
// rules.
var DefaultRelationshipFields = []string{"cpu", "gpu", "memory", "storage", "motherboard", "psu", "chassis"}
