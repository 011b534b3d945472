package plan

import (
	"fmt"

	"github.com/quillsql/quill/pkg/expr"
	"github.com/quillsql/quill/pkg/types"
)

// DistributionType describes how a join's build side is made available to
// workers.
type DistributionType uint32

const (
	// DistributionUnspecified means the optimizer has not decided on a
	// distribution yet; lowering produces a single-stage local plan.
	DistributionUnspecified DistributionType = iota

	// DistributionPartitioned shuffles both sides by join key.
	DistributionPartitioned

	// DistributionReplicated broadcasts the full build side to every worker.
	DistributionReplicated
)

// String returns the canonical distribution type name used on the wire.
func (t DistributionType) String() string {
	switch t {
	case DistributionPartitioned:
		return "PARTITIONED"
	case DistributionReplicated:
		return "REPLICATED"
	default:
		return "UNSPECIFIED"
	}
}

// ParseDistributionType is the inverse of [DistributionType.String].
func ParseDistributionType(s string) DistributionType {
	switch s {
	case "PARTITIONED":
		return DistributionPartitioned
	case "REPLICATED":
		return DistributionReplicated
	default:
		return DistributionUnspecified
	}
}

// SemiJoinParams holds the constructor parameters of a [SemiJoinNode].
type SemiJoinParams struct {
	// Source is the probe side; FilteringSource is the build side.
	Source          Node
	FilteringSource Node

	// SourceJoinVariable and FilteringSourceJoinVariable are the single
	// join key on each side. Each must be part of the respective child's
	// output schema.
	SourceJoinVariable          expr.VariableReference
	FilteringSourceJoinVariable expr.VariableReference

	// SemiJoinOutput is the boolean variable appended to the probe schema,
	// indicating per row whether a build-side match exists.
	SemiJoinOutput expr.VariableReference

	// SourceHashVariable and FilteringSourceHashVariable optionally name
	// precomputed hash columns. Both must be of the hash type.
	SourceHashVariable          *expr.VariableReference
	FilteringSourceHashVariable *expr.VariableReference

	// DistributionType describes how the build side is distributed across
	// workers. It may be left unspecified until the optimizer decides.
	DistributionType DistributionType

	// DynamicFilters maps filter ids to the filtering join variable whose
	// build-side values are pushed into the probe-side scan at runtime.
	// Distinct ids may target the same variable; multiplicity is preserved.
	DynamicFilters map[string]expr.VariableReference
}

// SemiJoinNode filters its probe side by key membership in the build side,
// appending a boolean match column to the probe schema.
type SemiJoinNode struct {
	base

	source                      Node
	filteringSource             Node
	sourceJoinVariable          expr.VariableReference
	filteringSourceJoinVariable expr.VariableReference
	semiJoinOutput              expr.VariableReference
	sourceHashVariable          *expr.VariableReference
	filteringSourceHashVariable *expr.VariableReference
	distributionType            DistributionType
	dynamicFilters              map[string]expr.VariableReference
}

var _ Node = (*SemiJoinNode)(nil)

// NewSemiJoin returns a semi join node. Construction fails unless the join
// variables are members of the respective children's output schemas.
func NewSemiJoin(id NodeID, params SemiJoinParams, opts ...Option) (*SemiJoinNode, error) {
	if !containsVariable(params.Source.OutputVariables(), params.SourceJoinVariable) {
		return nil, fmt.Errorf("%w: semiJoin %q source does not contain join variable %s",
			ErrInvalidNode, id, params.SourceJoinVariable)
	}
	if !containsVariable(params.FilteringSource.OutputVariables(), params.FilteringSourceJoinVariable) {
		return nil, fmt.Errorf("%w: semiJoin %q filtering source does not contain join variable %s",
			ErrInvalidNode, id, params.FilteringSourceJoinVariable)
	}
	if params.SemiJoinOutput.Type != types.Boolean {
		return nil, fmt.Errorf("%w: semiJoin %q output variable %s must be of type %s",
			ErrInvalidNode, id, params.SemiJoinOutput, types.Boolean)
	}
	if err := checkHashVariable(id, KindSemiJoin, "sourceHashVariable", params.SourceHashVariable); err != nil {
		return nil, err
	}
	if err := checkHashVariable(id, KindSemiJoin, "filteringSourceHashVariable", params.FilteringSourceHashVariable); err != nil {
		return nil, err
	}

	// Normalize an empty map to nil so that structural equality is stable
	// across the wire codec.
	filters := params.DynamicFilters
	if len(filters) == 0 {
		filters = nil
	}

	return &SemiJoinNode{
		base:                        newBase(id, opts),
		source:                      params.Source,
		filteringSource:             params.FilteringSource,
		sourceJoinVariable:          params.SourceJoinVariable,
		filteringSourceJoinVariable: params.FilteringSourceJoinVariable,
		semiJoinOutput:              params.SemiJoinOutput,
		sourceHashVariable:          params.SourceHashVariable,
		filteringSourceHashVariable: params.FilteringSourceHashVariable,
		distributionType:            params.DistributionType,
		dynamicFilters:              filters,
	}, nil
}

// Kind implements the [Node] interface.
func (*SemiJoinNode) Kind() NodeKind { return KindSemiJoin }

// Source returns the probe-side child.
func (n *SemiJoinNode) Source() Node { return n.source }

// FilteringSource returns the build-side child.
func (n *SemiJoinNode) FilteringSource() Node { return n.filteringSource }

// Probe returns the probe side of the join. It is an alias for Source.
func (n *SemiJoinNode) Probe() Node { return n.source }

// Build returns the build side of the join. It is an alias for
// FilteringSource.
func (n *SemiJoinNode) Build() Node { return n.filteringSource }

// SourceJoinVariable returns the probe-side join key.
func (n *SemiJoinNode) SourceJoinVariable() expr.VariableReference { return n.sourceJoinVariable }

// FilteringSourceJoinVariable returns the build-side join key.
func (n *SemiJoinNode) FilteringSourceJoinVariable() expr.VariableReference {
	return n.filteringSourceJoinVariable
}

// SemiJoinOutput returns the boolean match variable appended to the probe
// schema.
func (n *SemiJoinNode) SemiJoinOutput() expr.VariableReference { return n.semiJoinOutput }

// SourceHashVariable returns the optional probe-side hash variable, or nil.
func (n *SemiJoinNode) SourceHashVariable() *expr.VariableReference { return n.sourceHashVariable }

// FilteringSourceHashVariable returns the optional build-side hash variable,
// or nil.
func (n *SemiJoinNode) FilteringSourceHashVariable() *expr.VariableReference {
	return n.filteringSourceHashVariable
}

// DistributionType returns the build-side distribution strategy.
func (n *SemiJoinNode) DistributionType() DistributionType { return n.distributionType }

// DynamicFilters returns the dynamic filter registrations of the join,
// keyed by filter id.
func (n *SemiJoinNode) DynamicFilters() map[string]expr.VariableReference { return n.dynamicFilters }

// Sources implements the [Node] interface.
func (n *SemiJoinNode) Sources() []Node { return []Node{n.source, n.filteringSource} }

// OutputVariables implements the [Node] interface. The output schema is the
// probe schema with the semi join output appended.
func (n *SemiJoinNode) OutputVariables() []expr.VariableReference {
	probe := n.source.OutputVariables()
	out := make([]expr.VariableReference, 0, len(probe)+1)
	out = append(out, probe...)
	out = append(out, n.semiJoinOutput)
	return out
}

// ReplaceChildren implements the [Node] interface.
func (n *SemiJoinNode) ReplaceChildren(children []Node) (Node, error) {
	if len(children) != 2 {
		return nil, fmt.Errorf("%w: semiJoin %q expects 2 children, got %d", ErrArityMismatch, n.id, len(children))
	}
	if !containsVariable(children[0].OutputVariables(), n.sourceJoinVariable) {
		return nil, fmt.Errorf("%w: semiJoin %q source does not contain join variable %s",
			ErrInvalidNode, n.id, n.sourceJoinVariable)
	}
	if !containsVariable(children[1].OutputVariables(), n.filteringSourceJoinVariable) {
		return nil, fmt.Errorf("%w: semiJoin %q filtering source does not contain join variable %s",
			ErrInvalidNode, n.id, n.filteringSourceJoinVariable)
	}
	copied := *n
	copied.source = children[0]
	copied.filteringSource = children[1]
	return &copied, nil
}

// WithStatsEquivalent implements the [Node] interface.
func (n *SemiJoinNode) WithStatsEquivalent(node Node) Node {
	copied := *n
	copied.statsEquivalent = node
	return &copied
}

// WithDistributionType returns a copy of the node with the given
// distribution type. The node id is unchanged.
func (n *SemiJoinNode) WithDistributionType(dt DistributionType) *SemiJoinNode {
	copied := *n
	copied.distributionType = dt
	return &copied
}
