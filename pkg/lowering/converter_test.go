package lowering

import (
	"context"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/require"

	"github.com/quillsql/quill/pkg/expr"
	"github.com/quillsql/quill/pkg/physical"
	"github.com/quillsql/quill/pkg/plan"
	"github.com/quillsql/quill/pkg/types"
)

func intVar(name string) expr.VariableReference     { return expr.NewVariable(name, types.Integer) }
func varcharVar(name string) expr.VariableReference { return expr.NewVariable(name, types.Varchar) }
func boolVar(name string) expr.VariableReference    { return expr.NewVariable(name, types.Boolean) }

func intConst(v int32) expr.Expression  { return expr.NewConstant(v, types.Integer) }
func strConst(v string) expr.Expression { return expr.NewConstant(v, types.Varchar) }

// valuesPipeline builds the canonical five-node pipeline used across the
// conversion tests:
//
//	Output(5) -> Filter(4) -> LocalPartition(2) -> Project(1) -> Values(0)
func valuesPipeline(t *testing.T) *plan.OutputNode {
	t.Helper()

	c0 := intVar("c0")
	c1 := varcharVar("c1")

	values := plan.NewValues("0",
		[]expr.VariableReference{c0, c1},
		[][]expr.Expression{
			{intConst(1), strConst("a")},
			{intConst(2), strConst("b")},
			{intConst(3), strConst("c")},
		},
	)
	project := plan.NewProject("1", values, []plan.Assignment{
		{Variable: c0, Expression: c0},
		{Variable: c1, Expression: c1},
	})
	partition := plan.NewLocalPartition("2", project)
	filter := plan.NewFilter("4", partition,
		expr.NewCall("gt", types.Boolean, c0, intConst(0)))

	output, err := plan.NewOutput("5", filter,
		[]string{"c0", "c1"},
		[]expr.VariableReference{c0, c1},
	)
	require.NoError(t, err)
	return output
}

func TestConvertValuesPipeline(t *testing.T) {
	alloc := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer alloc.AssertSize(t, 0)

	qctx := NewQueryContext("q1", alloc)
	conv := NewConverter(Config{})

	root, err := conv.Convert(context.Background(), qctx, valuesPipeline(t), "")
	require.NoError(t, err)
	defer qctx.Release()

	// Output contributes no operator; the physical root is the filter and
	// every operator keeps its logical node's id.
	filter, ok := root.(*physical.Filter)
	require.True(t, ok)
	require.Equal(t, "Filter", filter.Name())
	require.Equal(t, "4", filter.ID())

	partition, ok := filter.Source.(*physical.LocalPartition)
	require.True(t, ok)
	require.Equal(t, "2", partition.ID())

	project, ok := partition.Source.(*physical.Project)
	require.True(t, ok)
	require.Equal(t, "1", project.ID())
	require.Equal(t, []string{"c0", "c1"}, project.Names)
	require.Equal(t, []expr.Expression{intVar("c0"), varcharVar("c1")}, project.Exprs)

	values, ok := project.Source.(*physical.Values)
	require.True(t, ok)
	require.Equal(t, "0", values.ID())
	require.Nil(t, values.Sources())

	require.Equal(t, []string{"c0", "c1"}, qctx.OutputNames)
}

func TestConvertMaterializesLiterals(t *testing.T) {
	alloc := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer alloc.AssertSize(t, 0)

	qctx := NewQueryContext("q1", alloc)
	conv := NewConverter(Config{})

	_, err := conv.Convert(context.Background(), qctx, valuesPipeline(t), "")
	require.NoError(t, err)
	defer qctx.Release()

	op, ok := qctx.Operator("0")
	require.True(t, ok)
	values := op.(*physical.Values)

	// All rows land in one batch.
	require.EqualValues(t, 3, values.Batch.NumRows())
	require.EqualValues(t, 2, values.Batch.NumCols())
	require.Equal(t, "c0", values.Schema.Field(0).Name)
	require.Equal(t, "c1", values.Schema.Field(1).Name)

	c0 := values.Batch.Column(0).(*array.Int32)
	require.Equal(t, []int32{1, 2, 3}, c0.Int32Values())

	c1 := values.Batch.Column(1).(*array.String)
	require.Equal(t, "a", c1.Value(0))
	require.Equal(t, "b", c1.Value(1))
	require.Equal(t, "c", c1.Value(2))
}

func TestConvertCorrelationTable(t *testing.T) {
	alloc := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer alloc.AssertSize(t, 0)

	qctx := NewQueryContext("q1", alloc)
	conv := NewConverter(Config{})

	_, err := conv.Convert(context.Background(), qctx, valuesPipeline(t), "sink")
	require.NoError(t, err)
	defer qctx.Release()

	require.Equal(t, "sink", qctx.OutputTarget)
	require.Equal(t, 4, qctx.NumOperators())
	for id, name := range map[string]string{
		"0": "Values",
		"1": "Project",
		"2": "LocalPartition",
		"4": "Filter",
	} {
		op, ok := qctx.Operator(id)
		require.True(t, ok, "operator %s", id)
		require.Equal(t, name, op.Name())
		require.Equal(t, id, op.ID())
	}

	_, ok := qctx.Operator("5")
	require.False(t, ok, "output contributes no operator")
}

// unknownNode satisfies plan.Node through embedding but is not a kind the
// conversion pass knows about.
type unknownNode struct {
	plan.Node
}

func TestConvertUnsupportedNode(t *testing.T) {
	qctx := NewQueryContext("q1", memory.DefaultAllocator)
	conv := NewConverter(Config{})

	inner := plan.NewValues("0", []expr.VariableReference{intVar("a")}, nil)
	_, err := conv.Convert(context.Background(), qctx, unknownNode{inner}, "")
	require.ErrorIs(t, err, ErrUnsupportedNode)
	require.ErrorContains(t, err, `"0"`)
	require.Equal(t, 0, qctx.NumOperators())
}

func TestConvertReleasesBatchesOnFailure(t *testing.T) {
	alloc := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer alloc.AssertSize(t, 0)

	// The left side materializes cleanly before the right side fails its
	// arity check; the left batch must not outlive the failed pass.
	left := plan.NewValues("left",
		[]expr.VariableReference{intVar("a")},
		[][]expr.Expression{{intConst(1)}, {intConst(2)}},
	)
	right := plan.NewValues("right",
		[]expr.VariableReference{intVar("x")},
		[][]expr.Expression{{intConst(1), intConst(2)}},
	)
	join, err := plan.NewMergeJoin("9", plan.MergeJoinParams{
		Type:            plan.JoinInner,
		Left:            left,
		Right:           right,
		Criteria:        []plan.EquiJoinClause{{Left: intVar("a"), Right: intVar("x")}},
		OutputVariables: []expr.VariableReference{intVar("a")},
	})
	require.NoError(t, err)

	qctx := NewQueryContext("q1", alloc)
	conv := NewConverter(Config{})

	_, err = conv.Convert(context.Background(), qctx, join, "")
	require.ErrorIs(t, err, ErrSchemaMismatch)
	require.Equal(t, 0, qctx.NumOperators())

	// Release is idempotent; a caller draining the context again is a no-op.
	qctx.Release()
}

func semiJoinPlan(t *testing.T, dt plan.DistributionType, dynamicFilters map[string]expr.VariableReference) *plan.SemiJoinNode {
	t.Helper()

	probe := plan.NewValues("probe",
		[]expr.VariableReference{intVar("a")},
		[][]expr.Expression{{intConst(1)}, {intConst(2)}},
	)
	build := plan.NewValues("build",
		[]expr.VariableReference{intVar("x")},
		[][]expr.Expression{{intConst(2)}},
	)

	join, err := plan.NewSemiJoin("7", plan.SemiJoinParams{
		Source:                      probe,
		FilteringSource:             build,
		SourceJoinVariable:          intVar("a"),
		FilteringSourceJoinVariable: intVar("x"),
		SemiJoinOutput:              boolVar("match"),
		DistributionType:            dt,
		DynamicFilters:              dynamicFilters,
	})
	require.NoError(t, err)
	return join
}

func TestConvertSemiJoin(t *testing.T) {
	t.Run("unspecified distribution adds no exchanges", func(t *testing.T) {
		alloc := memory.NewCheckedAllocator(memory.DefaultAllocator)
		defer alloc.AssertSize(t, 0)

		qctx := NewQueryContext("q1", alloc)
		conv := NewConverter(Config{})

		root, err := conv.Convert(context.Background(), qctx,
			semiJoinPlan(t, plan.DistributionUnspecified, nil), "")
		require.NoError(t, err)
		defer qctx.Release()

		join := root.(*physical.HashSemiJoin)
		require.Equal(t, "7", join.ID())
		require.Equal(t, intVar("a"), join.ProbeKey)
		require.Equal(t, intVar("x"), join.BuildKey)
		require.Equal(t, boolVar("match"), join.MatchOutput)
		require.IsType(t, &physical.Values{}, join.Probe)
		require.IsType(t, &physical.Values{}, join.Build)
		require.Empty(t, join.DynamicFilterIDs)
	})

	t.Run("replicated distribution broadcasts the build side", func(t *testing.T) {
		alloc := memory.NewCheckedAllocator(memory.DefaultAllocator)
		defer alloc.AssertSize(t, 0)

		qctx := NewQueryContext("q1", alloc)
		conv := NewConverter(Config{})

		root, err := conv.Convert(context.Background(), qctx,
			semiJoinPlan(t, plan.DistributionReplicated, nil), "")
		require.NoError(t, err)
		defer qctx.Release()

		join := root.(*physical.HashSemiJoin)
		require.IsType(t, &physical.Values{}, join.Probe)

		exchange, ok := join.Build.(*physical.BroadcastExchange)
		require.True(t, ok)
		require.Equal(t, "7.broadcast", exchange.ID())
		require.Equal(t, "build", exchange.Source.ID())

		_, ok = qctx.Operator("7.broadcast")
		require.True(t, ok)
	})

	t.Run("partitioned distribution shuffles both sides", func(t *testing.T) {
		alloc := memory.NewCheckedAllocator(memory.DefaultAllocator)
		defer alloc.AssertSize(t, 0)

		qctx := NewQueryContext("q1", alloc)
		conv := NewConverter(Config{})

		root, err := conv.Convert(context.Background(), qctx,
			semiJoinPlan(t, plan.DistributionPartitioned, nil), "")
		require.NoError(t, err)
		defer qctx.Release()

		join := root.(*physical.HashSemiJoin)

		probe, ok := join.Probe.(*physical.PartitionExchange)
		require.True(t, ok)
		require.Equal(t, "7.probe.partition", probe.ID())
		require.Equal(t, []expr.VariableReference{intVar("a")}, probe.Keys)

		build, ok := join.Build.(*physical.PartitionExchange)
		require.True(t, ok)
		require.Equal(t, "7.build.partition", build.ID())
		require.Equal(t, []expr.VariableReference{intVar("x")}, build.Keys)
	})

	t.Run("dynamic filters register before the probe side lowers", func(t *testing.T) {
		alloc := memory.NewCheckedAllocator(memory.DefaultAllocator)
		defer alloc.AssertSize(t, 0)

		qctx := NewQueryContext("q1", alloc)
		conv := NewConverter(Config{})

		root, err := conv.Convert(context.Background(), qctx,
			semiJoinPlan(t, plan.DistributionUnspecified, map[string]expr.VariableReference{
				"df_2": intVar("x"),
				"df_1": intVar("x"),
			}), "")
		require.NoError(t, err)
		defer qctx.Release()

		join := root.(*physical.HashSemiJoin)
		require.Equal(t, []string{"df_1", "df_2"}, join.DynamicFilterIDs)
		require.Equal(t, []string{"df_1", "df_2"}, qctx.DynamicFilters.IDs())

		f, ok := qctx.DynamicFilters.Lookup("df_1")
		require.True(t, ok)
		require.Equal(t, intVar("x"), f.BuildVariable)
		require.Equal(t, plan.NodeID("7"), f.Producer)
	})

	t.Run("duplicate filter ids are rejected", func(t *testing.T) {
		qctx := NewQueryContext("q1", memory.DefaultAllocator)
		require.NoError(t, qctx.DynamicFilters.Register(DynamicFilter{ID: "df_1"}))

		conv := NewConverter(Config{})
		_, err := conv.Convert(context.Background(), qctx,
			semiJoinPlan(t, plan.DistributionUnspecified, map[string]expr.VariableReference{
				"df_1": intVar("x"),
			}), "")
		require.ErrorContains(t, err, `dynamic filter "df_1" registered twice`)
	})
}

func TestConvertMergeJoin(t *testing.T) {
	alloc := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer alloc.AssertSize(t, 0)

	left := plan.NewValues("left",
		[]expr.VariableReference{intVar("a"), varcharVar("b")},
		[][]expr.Expression{{intConst(1), strConst("a")}},
	)
	right := plan.NewValues("right",
		[]expr.VariableReference{intVar("x")},
		[][]expr.Expression{{intConst(1)}},
	)
	residual := expr.NewCall("neq", types.Boolean, varcharVar("b"), strConst("skip"))

	join, err := plan.NewMergeJoin("9", plan.MergeJoinParams{
		Type:  plan.JoinInner,
		Left:  left,
		Right: right,
		Criteria: []plan.EquiJoinClause{
			{Left: intVar("a"), Right: intVar("x")},
		},
		OutputVariables: []expr.VariableReference{intVar("a"), varcharVar("b")},
		Filter:          residual,
	})
	require.NoError(t, err)

	qctx := NewQueryContext("q1", alloc)
	conv := NewConverter(Config{})

	root, err := conv.Convert(context.Background(), qctx, join, "")
	require.NoError(t, err)
	defer qctx.Release()

	op := root.(*physical.MergeJoin)
	require.Equal(t, "9", op.ID())
	require.Equal(t, plan.JoinInner, op.JoinType)
	require.Equal(t, []expr.VariableReference{intVar("a")}, op.LeftKeys)
	require.Equal(t, []expr.VariableReference{intVar("x")}, op.RightKeys)
	require.Equal(t, residual, op.ResidualFilter)
	require.Equal(t, []expr.VariableReference{intVar("a"), varcharVar("b")}, op.Output)
	require.Equal(t, "left", op.Left.ID())
	require.Equal(t, "right", op.Right.ID())
}

func TestConvertFragment(t *testing.T) {
	alloc := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer alloc.AssertSize(t, 0)

	output := valuesPipeline(t)
	fragment := &plan.Fragment{
		ID:           "stage-0",
		Root:         output,
		OutputLayout: output.OutputVariables(),
	}

	qctx := NewQueryContext("q1", alloc)
	conv := NewConverter(Config{})

	root, err := conv.ConvertFragment(context.Background(), qctx, fragment, "")
	require.NoError(t, err)
	defer qctx.Release()

	require.Equal(t, "4", root.ID())
	require.Equal(t, []string{"c0", "c1"}, qctx.OutputNames)
}
