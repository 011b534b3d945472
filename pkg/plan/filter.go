package plan

import (
	"fmt"

	"github.com/quillsql/quill/pkg/expr"
)

// FilterNode applies a boolean predicate to the rows of its single child.
// Its output schema equals the child's.
type FilterNode struct {
	base

	source    Node
	predicate expr.Expression
}

var _ Node = (*FilterNode)(nil)

// NewFilter returns a filter over the given source.
func NewFilter(id NodeID, source Node, predicate expr.Expression, opts ...Option) *FilterNode {
	return &FilterNode{
		base:      newBase(id, opts),
		source:    source,
		predicate: predicate,
	}
}

// Kind implements the [Node] interface.
func (*FilterNode) Kind() NodeKind { return KindFilter }

// Source returns the single child of the filter.
func (n *FilterNode) Source() Node { return n.source }

// Sources implements the [Node] interface.
func (n *FilterNode) Sources() []Node { return []Node{n.source} }

// Predicate returns the boolean predicate expression.
func (n *FilterNode) Predicate() expr.Expression { return n.predicate }

// OutputVariables implements the [Node] interface. Filtering does not change
// the schema.
func (n *FilterNode) OutputVariables() []expr.VariableReference {
	return n.source.OutputVariables()
}

// ReplaceChildren implements the [Node] interface.
func (n *FilterNode) ReplaceChildren(children []Node) (Node, error) {
	if len(children) != 1 {
		return nil, fmt.Errorf("%w: filter %q expects 1 child, got %d", ErrArityMismatch, n.id, len(children))
	}
	copied := *n
	copied.source = children[0]
	return &copied, nil
}

// WithStatsEquivalent implements the [Node] interface.
func (n *FilterNode) WithStatsEquivalent(node Node) Node {
	copied := *n
	copied.statsEquivalent = node
	return &copied
}
