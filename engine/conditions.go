package engine

import (
	"fmt"
	"log/slog"
	"reflect"
	"strconv"
	"strings"

	"github.com/amirphl/Tarazu/models"
)

// Matcher evaluates condition trees against a context. Data-quality issues
// (unresolved paths, type mismatches, malformed nodes) make the affected
// comparison evaluate to its non-matching truth value; they never raise.
type Matcher struct {
	logger *slog.Logger
}

// NewMatcher creates a matcher. A nil logger falls back to slog.Default().
func NewMatcher(logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{logger: logger}
}

// Match evaluates the tree rooted at node. A nil or empty group matches
// vacuously. AND groups short-circuit on the first false child, OR groups on
// the first true child; an empty group op means AND.
func (m *Matcher) Match(node *models.ConditionNode, ctx Context) bool {
	if node == nil {
		return true
	}
	if node.IsLeaf() {
		return m.matchLeaf(node, ctx)
	}
	if len(node.Children) == 0 {
		return true
	}

	switch node.Op {
	case models.LogicOpOr:
		for i := range node.Children {
			if m.Match(&node.Children[i], ctx) {
				return true
			}
		}
		return false
	default:
		for i := range node.Children {
			if !m.Match(&node.Children[i], ctx) {
				return false
			}
		}
		return true
	}
}

func (m *Matcher) matchLeaf(node *models.ConditionNode, ctx Context) bool {
	fieldValue := ctx.Resolve(node.Field)

	switch node.Operator {
	case models.ConditionOperatorEquals:
		return looseEqual(fieldValue, node.CompareValue)
	case models.ConditionOperatorNotEquals:
		if IsUnresolved(fieldValue) || fieldValue == nil {
			return true
		}
		return !looseEqual(fieldValue, node.CompareValue)
	case models.ConditionOperatorGreaterThan:
		return compareNumeric(fieldValue, node.CompareValue, func(a, b float64) bool { return a > b })
	case models.ConditionOperatorLessThan:
		return compareNumeric(fieldValue, node.CompareValue, func(a, b float64) bool { return a < b })
	case models.ConditionOperatorGTE:
		return compareNumeric(fieldValue, node.CompareValue, func(a, b float64) bool { return a >= b })
	case models.ConditionOperatorLTE:
		return compareNumeric(fieldValue, node.CompareValue, func(a, b float64) bool { return a <= b })
	case models.ConditionOperatorContains:
		return compareString(fieldValue, node.CompareValue, strings.Contains)
	case models.ConditionOperatorStartsWith:
		return compareString(fieldValue, node.CompareValue, strings.HasPrefix)
	case models.ConditionOperatorEndsWith:
		return compareString(fieldValue, node.CompareValue, strings.HasSuffix)
	case models.ConditionOperatorIn:
		return membershipMatch(fieldValue, node.CompareValue)
	case models.ConditionOperatorNotIn:
		if IsUnresolved(fieldValue) || fieldValue == nil {
			return true
		}
		return !membershipMatch(fieldValue, node.CompareValue)
	case models.ConditionOperatorBetween:
		return betweenMatch(fieldValue, node.CompareValue)
	default:
		m.logger.Warn("unknown condition operator, treating as non-match",
			"operator", node.Operator.String(),
			"field", node.Field)
		return false
	}
}

// looseEqual is the equality core shared by equals, in and not_in: strings
// compare case-insensitively, numbers compare across numeric types (numeric
// strings included), everything else falls back to deep equality. Unresolved
// and nil field values never equal anything.
func looseEqual(fieldValue, compareValue any) bool {
	if IsUnresolved(fieldValue) || fieldValue == nil {
		return false
	}

	fs, fsOK := fieldValue.(string)
	cs, csOK := compareValue.(string)
	if fsOK && csOK {
		return strings.EqualFold(fs, cs)
	}

	if fb, ok := fieldValue.(bool); ok {
		cb, ok := compareValue.(bool)
		return ok && fb == cb
	}

	fNum, fOK := toFloat64(fieldValue)
	cNum, cOK := toFloat64(compareValue)
	if fOK && cOK {
		return fNum == cNum
	}

	return reflect.DeepEqual(fieldValue, compareValue)
}

func compareNumeric(fieldValue, compareValue any, cmp func(a, b float64) bool) bool {
	if IsUnresolved(fieldValue) || fieldValue == nil {
		return false
	}
	a, aOK := toFloat64(fieldValue)
	b, bOK := toFloat64(compareValue)
	if !aOK || !bOK {
		return false
	}
	return cmp(a, b)
}

func compareString(fieldValue, compareValue any, cmp func(s, sub string) bool) bool {
	if IsUnresolved(fieldValue) || fieldValue == nil {
		return false
	}
	a, aOK := toString(fieldValue)
	b, bOK := toString(compareValue)
	if !aOK || !bOK {
		return false
	}
	return cmp(strings.ToLower(a), strings.ToLower(b))
}

func membershipMatch(fieldValue, compareValue any) bool {
	if IsUnresolved(fieldValue) || fieldValue == nil {
		return false
	}
	candidates, ok := toSlice(compareValue)
	if !ok {
		return false
	}
	for _, candidate := range candidates {
		if looseEqual(fieldValue, candidate) {
			return true
		}
	}
	return false
}

func betweenMatch(fieldValue, compareValue any) bool {
	if IsUnresolved(fieldValue) || fieldValue == nil {
		return false
	}
	bounds, ok := toSlice(compareValue)
	if !ok || len(bounds) != 2 {
		return false
	}
	v, vOK := toFloat64(fieldValue)
	lo, loOK := toFloat64(bounds[0])
	hi, hiOK := toFloat64(bounds[1])
	if !vOK || !loOK || !hiOK {
		return false
	}
	return v >= lo && v <= hi
}

// toFloat64 coerces a value to float64. Numeric strings count; booleans and
// unresolved values do not.
func toFloat64(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// toString coerces a scalar to its string form. Documents, slices and
// unresolved values do not coerce.
func toString(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case bool:
		return strconv.FormatBool(v), true
	case float64, float32,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%v", v), true
	default:
		return "", false
	}
}

func toSlice(value any) ([]any, bool) {
	switch v := value.(type) {
	case []any:
		return v, true
	case []string:
		out := make([]any, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out, true
	case []float64:
		out := make([]any, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out, true
	case []int:
		out := make([]any, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out, true
	default:
		return nil, false
	}
}
