package physical

import (
	"github.com/quillsql/quill/pkg/expr"
	"github.com/quillsql/quill/pkg/plan"
)

// MergeJoin joins two inputs pre-sorted on their respective key variables.
// The key lists are index-aligned and follow the logical join's criteria
// order, which is the required sort order of both inputs.
type MergeJoin struct {
	id string

	JoinType  plan.JoinType
	LeftKeys  []expr.VariableReference
	RightKeys []expr.VariableReference

	// ResidualFilter is applied to merged rows after the key equality, or
	// nil if the join has no residual predicate.
	ResidualFilter expr.Expression

	// Output is the join's declared output schema.
	Output []expr.VariableReference

	Left  Operator
	Right Operator
}

var _ Operator = (*MergeJoin)(nil)

// NewMergeJoin returns a MergeJoin operator over the given inputs.
func NewMergeJoin(id string, joinType plan.JoinType, leftKeys, rightKeys []expr.VariableReference, residual expr.Expression, output []expr.VariableReference, left, right Operator) *MergeJoin {
	return &MergeJoin{
		id:             id,
		JoinType:       joinType,
		LeftKeys:       leftKeys,
		RightKeys:      rightKeys,
		ResidualFilter: residual,
		Output:         output,
		Left:           left,
		Right:          right,
	}
}

// Name implements the [Operator] interface.
func (*MergeJoin) Name() string { return "MergeJoin" }

// ID implements the [Operator] interface.
func (j *MergeJoin) ID() string { return j.id }

// Sources implements the [Operator] interface.
func (j *MergeJoin) Sources() []Operator { return []Operator{j.Left, j.Right} }

// HashSemiJoin filters its probe input by key membership in a hash table
// built from the build input, appending a boolean match column.
type HashSemiJoin struct {
	id string

	ProbeKey expr.VariableReference
	BuildKey expr.VariableReference

	// MatchOutput is the boolean column appended to the probe schema.
	MatchOutput expr.VariableReference

	// Distribution records how the build side is distributed across
	// workers; the exchange operators implementing it are wired into the
	// input trees.
	Distribution plan.DistributionType

	// DynamicFilterIDs lists the runtime filters this join's build side
	// publishes, in registration order.
	DynamicFilterIDs []string

	Probe Operator
	Build Operator
}

var _ Operator = (*HashSemiJoin)(nil)

// NewHashSemiJoin returns a HashSemiJoin operator over the given inputs.
func NewHashSemiJoin(id string, probeKey, buildKey, matchOutput expr.VariableReference, distribution plan.DistributionType, dynamicFilterIDs []string, probe, build Operator) *HashSemiJoin {
	return &HashSemiJoin{
		id:               id,
		ProbeKey:         probeKey,
		BuildKey:         buildKey,
		MatchOutput:      matchOutput,
		Distribution:     distribution,
		DynamicFilterIDs: dynamicFilterIDs,
		Probe:            probe,
		Build:            build,
	}
}

// Name implements the [Operator] interface.
func (*HashSemiJoin) Name() string { return "HashSemiJoin" }

// ID implements the [Operator] interface.
func (j *HashSemiJoin) ID() string { return j.id }

// Sources implements the [Operator] interface.
func (j *HashSemiJoin) Sources() []Operator { return []Operator{j.Probe, j.Build} }

// BroadcastExchange replicates its full input to every worker.
type BroadcastExchange struct {
	id string

	Source Operator
}

var _ Operator = (*BroadcastExchange)(nil)

// NewBroadcastExchange returns a BroadcastExchange operator over the given
// source.
func NewBroadcastExchange(id string, source Operator) *BroadcastExchange {
	return &BroadcastExchange{id: id, Source: source}
}

// Name implements the [Operator] interface.
func (*BroadcastExchange) Name() string { return "BroadcastExchange" }

// ID implements the [Operator] interface.
func (e *BroadcastExchange) ID() string { return e.id }

// Sources implements the [Operator] interface.
func (e *BroadcastExchange) Sources() []Operator { return []Operator{e.Source} }

// PartitionExchange shuffles its input across workers by key.
type PartitionExchange struct {
	id string

	Keys   []expr.VariableReference
	Source Operator
}

var _ Operator = (*PartitionExchange)(nil)

// NewPartitionExchange returns a PartitionExchange operator over the given
// source.
func NewPartitionExchange(id string, keys []expr.VariableReference, source Operator) *PartitionExchange {
	return &PartitionExchange{id: id, Keys: keys, Source: source}
}

// Name implements the [Operator] interface.
func (*PartitionExchange) Name() string { return "PartitionExchange" }

// ID implements the [Operator] interface.
func (e *PartitionExchange) ID() string { return e.id }

// Sources implements the [Operator] interface.
func (e *PartitionExchange) Sources() []Operator { return []Operator{e.Source} }
