package lowering

import (
	"math"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/require"

	"github.com/quillsql/quill/pkg/expr"
	"github.com/quillsql/quill/pkg/plan"
	"github.com/quillsql/quill/pkg/types"
)

func TestMaterializeValues(t *testing.T) {
	alloc := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer alloc.AssertSize(t, 0)

	n := plan.NewValues("0",
		[]expr.VariableReference{
			intVar("c0"),
			varcharVar("c1"),
			expr.NewVariable("c2", types.Bigint),
			expr.NewVariable("c3", types.Double),
			boolVar("c4"),
		},
		[][]expr.Expression{
			{intConst(1), strConst("a"), expr.NewConstant(int64(10), types.Bigint), expr.NewConstant(1.5, types.Double), expr.NewConstant(true, types.Boolean)},
			{intConst(2), strConst("b"), expr.NewConstant(int64(20), types.Bigint), expr.NewConstant(2.5, types.Double), expr.NewConstant(false, types.Boolean)},
			{intConst(3), strConst("c"), expr.NewConstant(nil, types.Bigint), expr.NewConstant(nil, types.Double), expr.NewConstant(nil, types.Boolean)},
		},
	)

	schema, batch, err := materializeValues(alloc, n)
	require.NoError(t, err)
	defer batch.Release()

	require.EqualValues(t, 3, batch.NumRows())
	require.EqualValues(t, 5, batch.NumCols())

	require.True(t, schema.Field(0).Type.ID() == arrow.INT32)
	require.True(t, schema.Field(1).Type.ID() == arrow.STRING)
	require.True(t, schema.Field(2).Type.ID() == arrow.INT64)
	require.True(t, schema.Field(3).Type.ID() == arrow.FLOAT64)
	require.True(t, schema.Field(4).Type.ID() == arrow.BOOL)

	require.Equal(t, []int32{1, 2, 3}, batch.Column(0).(*array.Int32).Int32Values())

	strs := batch.Column(1).(*array.String)
	require.Equal(t, "a", strs.Value(0))
	require.Equal(t, "b", strs.Value(1))
	require.Equal(t, "c", strs.Value(2))

	bigints := batch.Column(2).(*array.Int64)
	require.Equal(t, int64(10), bigints.Value(0))
	require.Equal(t, int64(20), bigints.Value(1))
	require.True(t, bigints.IsNull(2))

	require.True(t, batch.Column(3).(*array.Float64).IsNull(2))
	require.True(t, batch.Column(4).(*array.Boolean).IsNull(2))
}

func TestMaterializeValuesEmpty(t *testing.T) {
	alloc := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer alloc.AssertSize(t, 0)

	n := plan.NewValues("0", []expr.VariableReference{intVar("c0")}, nil)

	schema, batch, err := materializeValues(alloc, n)
	require.NoError(t, err)
	defer batch.Release()

	require.EqualValues(t, 0, batch.NumRows())
	require.Equal(t, 1, schema.NumFields())
}

func TestMaterializeValuesErrors(t *testing.T) {
	alloc := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer alloc.AssertSize(t, 0)

	outputs := []expr.VariableReference{intVar("c0"), varcharVar("c1")}

	t.Run("row arity mismatch", func(t *testing.T) {
		n := plan.NewValues("0", outputs, [][]expr.Expression{
			{intConst(1), strConst("a")},
			{intConst(2)},
		})
		_, _, err := materializeValues(alloc, n)
		require.ErrorIs(t, err, ErrSchemaMismatch)
		require.ErrorContains(t, err, "row 1")
	})

	t.Run("integer literal out of range", func(t *testing.T) {
		n := plan.NewValues("0", outputs, [][]expr.Expression{
			{expr.NewConstant(int64(math.MaxInt32)+1, types.Integer), strConst("a")},
		})
		_, _, err := materializeValues(alloc, n)
		require.ErrorIs(t, err, ErrSchemaMismatch)

		n = plan.NewValues("0", outputs, [][]expr.Expression{
			{expr.NewConstant(int64(math.MinInt32)-1, types.Integer), strConst("a")},
		})
		_, _, err = materializeValues(alloc, n)
		require.ErrorIs(t, err, ErrSchemaMismatch)
	})

	t.Run("literal type mismatch", func(t *testing.T) {
		n := plan.NewValues("0", outputs, [][]expr.Expression{
			{strConst("oops"), strConst("a")},
		})
		_, _, err := materializeValues(alloc, n)
		require.ErrorIs(t, err, ErrSchemaMismatch)
	})

	t.Run("non-constant cell", func(t *testing.T) {
		n := plan.NewValues("0", outputs, [][]expr.Expression{
			{intVar("c0"), strConst("a")},
		})
		_, _, err := materializeValues(alloc, n)
		require.ErrorIs(t, err, ErrSchemaMismatch)
	})

	t.Run("column without columnar representation", func(t *testing.T) {
		n := plan.NewValues("0",
			[]expr.VariableReference{expr.NewVariable("n", types.Invalid)},
			nil,
		)
		_, _, err := materializeValues(alloc, n)
		require.ErrorIs(t, err, ErrSchemaMismatch)
	})
}
