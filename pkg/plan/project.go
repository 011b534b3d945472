package plan

import (
	"fmt"

	"github.com/quillsql/quill/pkg/expr"
)

// Assignment binds one output variable of a Project node to a scalar
// expression over the child's output.
type Assignment struct {
	Variable   expr.VariableReference
	Expression expr.Expression
}

// ProjectNode maps each of its output variables to a scalar expression over
// the single child's output. The assignment order defines the output schema
// order.
type ProjectNode struct {
	base

	source      Node
	assignments []Assignment
}

var _ Node = (*ProjectNode)(nil)

// NewProject returns a projection over the given source.
func NewProject(id NodeID, source Node, assignments []Assignment, opts ...Option) *ProjectNode {
	return &ProjectNode{
		base:        newBase(id, opts),
		source:      source,
		assignments: assignments,
	}
}

// Kind implements the [Node] interface.
func (*ProjectNode) Kind() NodeKind { return KindProject }

// Source returns the single child of the projection.
func (n *ProjectNode) Source() Node { return n.source }

// Sources implements the [Node] interface.
func (n *ProjectNode) Sources() []Node { return []Node{n.source} }

// Assignments returns the ordered output assignments.
func (n *ProjectNode) Assignments() []Assignment { return n.assignments }

// OutputVariables implements the [Node] interface.
func (n *ProjectNode) OutputVariables() []expr.VariableReference {
	out := make([]expr.VariableReference, len(n.assignments))
	for i := range n.assignments {
		out[i] = n.assignments[i].Variable
	}
	return out
}

// ReplaceChildren implements the [Node] interface.
func (n *ProjectNode) ReplaceChildren(children []Node) (Node, error) {
	if len(children) != 1 {
		return nil, fmt.Errorf("%w: project %q expects 1 child, got %d", ErrArityMismatch, n.id, len(children))
	}
	copied := *n
	copied.source = children[0]
	return &copied, nil
}

// WithStatsEquivalent implements the [Node] interface.
func (n *ProjectNode) WithStatsEquivalent(node Node) Node {
	copied := *n
	copied.statsEquivalent = node
	return &copied
}
