package plan

import "fmt"

// Visitor defines one operation per concrete node kind, alongside a context
// value threaded through the traversal and a result value returned from each
// visit. It is the sole extension point for consumers of the tree: the cost
// estimator, the lowering engine, and the printer all implement Visitor
// without the IR depending on them.
type Visitor[C, R any] interface {
	VisitValues(*ValuesNode, C) (R, error)
	VisitProject(*ProjectNode, C) (R, error)
	VisitFilter(*FilterNode, C) (R, error)
	VisitLocalPartition(*LocalPartitionNode, C) (R, error)
	VisitOutput(*OutputNode, C) (R, error)
	VisitMergeJoin(*MergeJoinNode, C) (R, error)
	VisitSemiJoin(*SemiJoinNode, C) (R, error)
}

// Dispatch forwards n to the visit operation matching its kind, passing the
// context through unchanged. Go methods cannot carry type parameters, so the
// double dispatch is rendered as this exhaustive kind switch; adding a node
// kind without extending it is a compile-visible omission in the switch
// below and in every Visitor implementation.
func Dispatch[C, R any](n Node, v Visitor[C, R], c C) (R, error) {
	switch n := n.(type) {
	case *ValuesNode:
		return v.VisitValues(n, c)
	case *ProjectNode:
		return v.VisitProject(n, c)
	case *FilterNode:
		return v.VisitFilter(n, c)
	case *LocalPartitionNode:
		return v.VisitLocalPartition(n, c)
	case *OutputNode:
		return v.VisitOutput(n, c)
	case *MergeJoinNode:
		return v.VisitMergeJoin(n, c)
	case *SemiJoinNode:
		return v.VisitSemiJoin(n, c)
	default:
		var zero R
		return zero, fmt.Errorf("%w: %s %q (%T)", ErrUnsupportedNode, n.Kind(), n.ID(), n)
	}
}

// UnsupportedVisitor provides an explicit "unsupported" default for every
// node kind. Visitors that handle only a subset of kinds embed it so that
// unhandled kinds fail loudly instead of being silently skipped.
type UnsupportedVisitor[C, R any] struct{}

func (UnsupportedVisitor[C, R]) unsupported(n Node) (R, error) {
	var zero R
	return zero, fmt.Errorf("%w: %s %q", ErrUnsupportedNode, n.Kind(), n.ID())
}

func (u UnsupportedVisitor[C, R]) VisitValues(n *ValuesNode, _ C) (R, error) {
	return u.unsupported(n)
}

func (u UnsupportedVisitor[C, R]) VisitProject(n *ProjectNode, _ C) (R, error) {
	return u.unsupported(n)
}

func (u UnsupportedVisitor[C, R]) VisitFilter(n *FilterNode, _ C) (R, error) {
	return u.unsupported(n)
}

func (u UnsupportedVisitor[C, R]) VisitLocalPartition(n *LocalPartitionNode, _ C) (R, error) {
	return u.unsupported(n)
}

func (u UnsupportedVisitor[C, R]) VisitOutput(n *OutputNode, _ C) (R, error) {
	return u.unsupported(n)
}

func (u UnsupportedVisitor[C, R]) VisitMergeJoin(n *MergeJoinNode, _ C) (R, error) {
	return u.unsupported(n)
}

func (u UnsupportedVisitor[C, R]) VisitSemiJoin(n *SemiJoinNode, _ C) (R, error) {
	return u.unsupported(n)
}
