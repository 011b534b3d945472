package plan

import (
	"fmt"

	"github.com/quillsql/quill/pkg/expr"
	"github.com/quillsql/quill/pkg/types"
)

// JoinType represents the join semantics of a two-sided join.
type JoinType uint32

const (
	_ JoinType = iota // zero-value is an invalid join type

	JoinInner
	JoinLeft
	JoinRight
	JoinFull
)

// String returns the canonical join type name used on the wire.
func (t JoinType) String() string {
	switch t {
	case JoinInner:
		return "INNER"
	case JoinLeft:
		return "LEFT"
	case JoinRight:
		return "RIGHT"
	case JoinFull:
		return "FULL"
	default:
		return "INVALID"
	}
}

// ParseJoinType is the inverse of [JoinType.String].
func ParseJoinType(s string) JoinType {
	switch s {
	case "INNER":
		return JoinInner
	case "LEFT":
		return JoinLeft
	case "RIGHT":
		return JoinRight
	case "FULL":
		return JoinFull
	default:
		return 0
	}
}

// EquiJoinClause is one equality predicate between a left-side and a
// right-side variable, used to drive a join.
type EquiJoinClause struct {
	Left  expr.VariableReference `json:"left"`
	Right expr.VariableReference `json:"right"`
}

// Flipped returns the clause with its sides swapped.
func (c EquiJoinClause) Flipped() EquiJoinClause {
	return EquiJoinClause{Left: c.Right, Right: c.Left}
}

// String returns the clause as a left = right equality.
func (c EquiJoinClause) String() string {
	return fmt.Sprintf("%s = %s", c.Left, c.Right)
}

// MergeJoinParams holds the constructor parameters of a [MergeJoinNode].
type MergeJoinParams struct {
	Type     JoinType
	Left     Node
	Right    Node
	Criteria []EquiJoinClause

	// OutputVariables is the join's declared output schema.
	OutputVariables []expr.VariableReference

	// Filter is an optional residual predicate applied after the merge.
	Filter expr.Expression

	// LeftHashVariable and RightHashVariable optionally name precomputed
	// hash columns on each side. Both must be of the hash type.
	LeftHashVariable  *expr.VariableReference
	RightHashVariable *expr.VariableReference
}

// MergeJoinNode joins two children pre-sorted on their respective equi-join
// variables. The criteria order defines the required sort order on both
// sides.
type MergeJoinNode struct {
	base

	joinType          JoinType
	left              Node
	right             Node
	criteria          []EquiJoinClause
	outputVariables   []expr.VariableReference
	filter            expr.Expression
	leftHashVariable  *expr.VariableReference
	rightHashVariable *expr.VariableReference
}

var _ Node = (*MergeJoinNode)(nil)

// NewMergeJoin returns a sort-merge join node. The criteria must be
// non-empty, since the sort-merge lowering rule requires an ordering, and
// the optional hash variables must be hash-typed.
func NewMergeJoin(id NodeID, params MergeJoinParams, opts ...Option) (*MergeJoinNode, error) {
	if len(params.Criteria) == 0 {
		return nil, fmt.Errorf("%w: mergeJoin %q requires non-empty criteria", ErrInvalidNode, id)
	}
	if err := checkHashVariable(id, KindMergeJoin, "leftHashVariable", params.LeftHashVariable); err != nil {
		return nil, err
	}
	if err := checkHashVariable(id, KindMergeJoin, "rightHashVariable", params.RightHashVariable); err != nil {
		return nil, err
	}
	return &MergeJoinNode{
		base:              newBase(id, opts),
		joinType:          params.Type,
		left:              params.Left,
		right:             params.Right,
		criteria:          params.Criteria,
		outputVariables:   params.OutputVariables,
		filter:            params.Filter,
		leftHashVariable:  params.LeftHashVariable,
		rightHashVariable: params.RightHashVariable,
	}, nil
}

func checkHashVariable(id NodeID, kind NodeKind, field string, v *expr.VariableReference) error {
	if v != nil && v.Type != types.Hash {
		return fmt.Errorf("%w: %s %q %s must be of type %s, got %s",
			ErrInvalidNode, kind, id, field, types.Hash, v.Type)
	}
	return nil
}

// Kind implements the [Node] interface.
func (*MergeJoinNode) Kind() NodeKind { return KindMergeJoin }

// JoinType returns the join semantics.
func (n *MergeJoinNode) JoinType() JoinType { return n.joinType }

// Left returns the left child.
func (n *MergeJoinNode) Left() Node { return n.left }

// Right returns the right child.
func (n *MergeJoinNode) Right() Node { return n.right }

// Criteria returns the ordered equi-join clauses.
func (n *MergeJoinNode) Criteria() []EquiJoinClause { return n.criteria }

// Filter returns the optional residual predicate, or nil.
func (n *MergeJoinNode) Filter() expr.Expression { return n.filter }

// LeftHashVariable returns the optional precomputed hash variable of the
// left side, or nil.
func (n *MergeJoinNode) LeftHashVariable() *expr.VariableReference { return n.leftHashVariable }

// RightHashVariable returns the optional precomputed hash variable of the
// right side, or nil.
func (n *MergeJoinNode) RightHashVariable() *expr.VariableReference { return n.rightHashVariable }

// Sources implements the [Node] interface.
func (n *MergeJoinNode) Sources() []Node { return []Node{n.left, n.right} }

// OutputVariables implements the [Node] interface.
func (n *MergeJoinNode) OutputVariables() []expr.VariableReference { return n.outputVariables }

// ReplaceChildren implements the [Node] interface.
func (n *MergeJoinNode) ReplaceChildren(children []Node) (Node, error) {
	if len(children) != 2 {
		return nil, fmt.Errorf("%w: mergeJoin %q expects 2 children, got %d", ErrArityMismatch, n.id, len(children))
	}
	copied := *n
	copied.left = children[0]
	copied.right = children[1]
	return &copied, nil
}

// WithStatsEquivalent implements the [Node] interface.
func (n *MergeJoinNode) WithStatsEquivalent(node Node) Node {
	copied := *n
	copied.statsEquivalent = node
	return &copied
}
