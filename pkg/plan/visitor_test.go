package plan

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quillsql/quill/pkg/expr"
	"github.com/quillsql/quill/pkg/types"
)

// leafOnlyVisitor handles values nodes and nothing else; every other kind
// falls through to the embedded default.
type leafOnlyVisitor struct {
	UnsupportedVisitor[struct{}, int]
}

func (leafOnlyVisitor) VisitValues(n *ValuesNode, _ struct{}) (int, error) {
	return len(n.OutputVariables()), nil
}

func TestDispatch(t *testing.T) {
	values := testValuesNode("0", intVar("a"), varcharVar("b"))

	t.Run("routes to the kind-specific method", func(t *testing.T) {
		got, err := Dispatch[struct{}, int](values, leafOnlyVisitor{}, struct{}{})
		require.NoError(t, err)
		require.Equal(t, 2, got)
	})

	t.Run("unhandled kinds surface the unsupported error", func(t *testing.T) {
		filter := NewFilter("1", values, expr.NewConstant(true, types.Boolean))
		_, err := Dispatch[struct{}, int](filter, leafOnlyVisitor{}, struct{}{})
		require.ErrorIs(t, err, ErrUnsupportedNode)
		require.ErrorContains(t, err, `"1"`)
	})

	t.Run("unrecognized node types name kind and id", func(t *testing.T) {
		_, err := Dispatch[struct{}, int](opaqueNode{values}, leafOnlyVisitor{}, struct{}{})
		require.ErrorIs(t, err, ErrUnsupportedNode)
		require.ErrorContains(t, err, "values")
		require.ErrorContains(t, err, `"0"`)
	})
}

// opaqueNode satisfies Node through embedding but matches no case in the
// dispatch switch.
type opaqueNode struct {
	Node
}
