package plan

import (
	"fmt"

	"github.com/quillsql/quill/pkg/expr"
)

// OutputNode wraps the top of a plan fragment and names the externally
// visible output columns. It contributes no physical operator during
// lowering; its naming metadata is applied separately.
type OutputNode struct {
	base

	source          Node
	columnNames     []string
	outputVariables []expr.VariableReference
}

var _ Node = (*OutputNode)(nil)

// NewOutput returns the fragment root wrapping the given source. columnNames
// and outputVariables must have the same length; columnNames carries the
// external names for the variables in order.
func NewOutput(id NodeID, source Node, columnNames []string, outputVariables []expr.VariableReference, opts ...Option) (*OutputNode, error) {
	if len(columnNames) != len(outputVariables) {
		return nil, fmt.Errorf("%w: output %q has %d column names for %d output variables",
			ErrInvalidNode, id, len(columnNames), len(outputVariables))
	}
	return &OutputNode{
		base:            newBase(id, opts),
		source:          source,
		columnNames:     columnNames,
		outputVariables: outputVariables,
	}, nil
}

// Kind implements the [Node] interface.
func (*OutputNode) Kind() NodeKind { return KindOutput }

// Source returns the single child of the output node.
func (n *OutputNode) Source() Node { return n.source }

// Sources implements the [Node] interface.
func (n *OutputNode) Sources() []Node { return []Node{n.source} }

// ColumnNames returns the externally visible column names in output order.
func (n *OutputNode) ColumnNames() []string { return n.columnNames }

// OutputVariables implements the [Node] interface.
func (n *OutputNode) OutputVariables() []expr.VariableReference { return n.outputVariables }

// ReplaceChildren implements the [Node] interface.
func (n *OutputNode) ReplaceChildren(children []Node) (Node, error) {
	if len(children) != 1 {
		return nil, fmt.Errorf("%w: output %q expects 1 child, got %d", ErrArityMismatch, n.id, len(children))
	}
	copied := *n
	copied.source = children[0]
	return &copied, nil
}

// WithStatsEquivalent implements the [Node] interface.
func (n *OutputNode) WithStatsEquivalent(node Node) Node {
	copied := *n
	copied.statsEquivalent = node
	return &copied
}
