package plan

import (
	"fmt"

	"github.com/quillsql/quill/pkg/expr"
)

// LocalPartitionNode marks an intra-worker partition boundary. The engine
// may split pipelines at this point for parallel execution; the logical
// schema is unchanged.
type LocalPartitionNode struct {
	base

	source Node
}

var _ Node = (*LocalPartitionNode)(nil)

// NewLocalPartition returns a partition boundary over the given source.
func NewLocalPartition(id NodeID, source Node, opts ...Option) *LocalPartitionNode {
	return &LocalPartitionNode{
		base:   newBase(id, opts),
		source: source,
	}
}

// Kind implements the [Node] interface.
func (*LocalPartitionNode) Kind() NodeKind { return KindLocalPartition }

// Source returns the single child of the partition boundary.
func (n *LocalPartitionNode) Source() Node { return n.source }

// Sources implements the [Node] interface.
func (n *LocalPartitionNode) Sources() []Node { return []Node{n.source} }

// OutputVariables implements the [Node] interface.
func (n *LocalPartitionNode) OutputVariables() []expr.VariableReference {
	return n.source.OutputVariables()
}

// ReplaceChildren implements the [Node] interface.
func (n *LocalPartitionNode) ReplaceChildren(children []Node) (Node, error) {
	if len(children) != 1 {
		return nil, fmt.Errorf("%w: localPartition %q expects 1 child, got %d", ErrArityMismatch, n.id, len(children))
	}
	copied := *n
	copied.source = children[0]
	return &copied, nil
}

// WithStatsEquivalent implements the [Node] interface.
func (n *LocalPartitionNode) WithStatsEquivalent(node Node) Node {
	copied := *n
	copied.statsEquivalent = node
	return &copied
}
