package plan

import (
	"fmt"

	"github.com/quillsql/quill/pkg/expr"
)

// ValuesNode is a leaf node producing a fixed set of literal rows. Each row
// is an ordered list of literal scalar expressions; row arity must match the
// declared output schema, which lowering validates when materializing the
// rows.
type ValuesNode struct {
	base

	outputVariables []expr.VariableReference
	rows            [][]expr.Expression
}

var _ Node = (*ValuesNode)(nil)

// NewValues returns a leaf node producing the given literal rows.
func NewValues(id NodeID, outputVariables []expr.VariableReference, rows [][]expr.Expression, opts ...Option) *ValuesNode {
	return &ValuesNode{
		base:            newBase(id, opts),
		outputVariables: outputVariables,
		rows:            rows,
	}
}

// Kind implements the [Node] interface.
func (*ValuesNode) Kind() NodeKind { return KindValues }

// Sources implements the [Node] interface. A Values node is a leaf.
func (*ValuesNode) Sources() []Node { return nil }

// OutputVariables implements the [Node] interface.
func (n *ValuesNode) OutputVariables() []expr.VariableReference { return n.outputVariables }

// Rows returns the declared literal rows in order.
func (n *ValuesNode) Rows() [][]expr.Expression { return n.rows }

// ReplaceChildren implements the [Node] interface. Values has no children,
// so the only valid replacement is the empty list, which returns the node
// unchanged.
func (n *ValuesNode) ReplaceChildren(children []Node) (Node, error) {
	if len(children) != 0 {
		return nil, fmt.Errorf("%w: values %q expects 0 children, got %d", ErrArityMismatch, n.id, len(children))
	}
	return n, nil
}

// WithStatsEquivalent implements the [Node] interface.
func (n *ValuesNode) WithStatsEquivalent(node Node) Node {
	copied := *n
	copied.statsEquivalent = node
	return &copied
}
