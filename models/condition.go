package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// ConditionOperator represents a comparison operator on a condition leaf
type ConditionOperator string

const (
	ConditionOperatorEquals      ConditionOperator = "equals"
	ConditionOperatorNotEquals   ConditionOperator = "not_equals"
	ConditionOperatorGreaterThan ConditionOperator = "greater_than"
	ConditionOperatorLessThan    ConditionOperator = "less_than"
	ConditionOperatorGTE         ConditionOperator = "gte"
	ConditionOperatorLTE         ConditionOperator = "lte"
	ConditionOperatorContains    ConditionOperator = "contains"
	ConditionOperatorStartsWith  ConditionOperator = "starts_with"
	ConditionOperatorEndsWith    ConditionOperator = "ends_with"
	ConditionOperatorIn          ConditionOperator = "in"
	ConditionOperatorNotIn       ConditionOperator = "not_in"
	ConditionOperatorBetween     ConditionOperator = "between"
)

// String returns the string representation of the operator
func (o ConditionOperator) String() string {
	return string(o)
}

// Valid checks if the operator is valid
func (o ConditionOperator) Valid() bool {
	switch o {
	case ConditionOperatorEquals, ConditionOperatorNotEquals,
		ConditionOperatorGreaterThan, ConditionOperatorLessThan,
		ConditionOperatorGTE, ConditionOperatorLTE,
		ConditionOperatorContains, ConditionOperatorStartsWith,
		ConditionOperatorEndsWith, ConditionOperatorIn,
		ConditionOperatorNotIn, ConditionOperatorBetween:
		return true
	default:
		return false
	}
}

// LogicOp represents the logical combinator of a condition group
type LogicOp string

const (
	LogicOpAnd LogicOp = "and"
	LogicOpOr  LogicOp = "or"
)

// String returns the string representation of the logic op
func (l LogicOp) String() string {
	return string(l)
}

// Valid checks if the logic op is valid
func (l LogicOp) Valid() bool {
	return l == LogicOpAnd || l == LogicOpOr
}

// ConditionNode is one node of a condition tree. A node is either a group
// (Op plus Children, arbitrarily nested) or a leaf (Field, Operator,
// CompareValue). A group with no children matches vacuously. An empty Op on a
// group is treated as "and".
type ConditionNode struct {
	Op       LogicOp         `json:"op,omitempty"`
	Children []ConditionNode `json:"children,omitempty"`

	Field        string            `json:"field,omitempty"`
	Operator     ConditionOperator `json:"operator,omitempty"`
	CompareValue any               `json:"value,omitempty"`
}

// IsLeaf reports whether the node is a single field comparison
func (n *ConditionNode) IsLeaf() bool {
	return n.Field != ""
}

// IsEmpty reports whether the node carries no constraint at all
func (n *ConditionNode) IsEmpty() bool {
	return !n.IsLeaf() && len(n.Children) == 0
}

// Depth returns the nesting depth of the tree rooted at n. A leaf or an
// empty group has depth 1.
func (n *ConditionNode) Depth() int {
	if n.IsLeaf() || len(n.Children) == 0 {
		return 1
	}
	max := 0
	for i := range n.Children {
		if d := n.Children[i].Depth(); d > max {
			max = d
		}
	}
	return 1 + max
}

// Validate checks the structural shape of the tree: leaves carry a valid
// operator, groups carry a valid (or empty) logic op, and the nesting depth
// does not exceed maxDepth. maxDepth <= 0 disables the depth check.
func (n *ConditionNode) Validate(maxDepth int) error {
	if maxDepth > 0 && n.Depth() > maxDepth {
		return fmt.Errorf("condition tree exceeds max nesting depth %d", maxDepth)
	}
	return n.validateShape("")
}

func (n *ConditionNode) validateShape(path string) error {
	if path == "" {
		path = "root"
	}
	if n.IsLeaf() {
		if len(n.Children) > 0 {
			return fmt.Errorf("condition %s: leaf cannot have children", path)
		}
		if !n.Operator.Valid() {
			return fmt.Errorf("condition %s: invalid operator %q", path, n.Operator)
		}
		return nil
	}
	if n.Op != "" && !n.Op.Valid() {
		return fmt.Errorf("condition %s: invalid logic op %q", path, n.Op)
	}
	for i := range n.Children {
		if err := n.Children[i].validateShape(fmt.Sprintf("%s.children[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}

// CountLeaves returns the number of field comparisons in the tree
func (n *ConditionNode) CountLeaves() int {
	if n.IsLeaf() {
		return 1
	}
	total := 0
	for i := range n.Children {
		total += n.Children[i].CountLeaves()
	}
	return total
}

// Value implements the driver.Valuer interface for ConditionNode
func (n ConditionNode) Value() (driver.Value, error) {
	return json.Marshal(n)
}

// Scan implements the sql.Scanner interface for ConditionNode
func (n *ConditionNode) Scan(value any) error {
	if value == nil {
		*n = ConditionNode{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into ConditionNode", value)
	}

	return json.Unmarshal(bytes, n)
}

// AndGroup builds a group node combining the given children with "and"
func AndGroup(children ...ConditionNode) ConditionNode {
	return ConditionNode{Op: LogicOpAnd, Children: children}
}

// OrGroup builds a group node combining the given children with "or"
func OrGroup(children ...ConditionNode) ConditionNode {
	return ConditionNode{Op: LogicOpOr, Children: children}
}

// Leaf builds a single field comparison node
func Leaf(field string, operator ConditionOperator, value any) ConditionNode {
	return ConditionNode{Field: field, Operator: operator, CompareValue: value}
}
