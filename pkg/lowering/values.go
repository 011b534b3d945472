package lowering

import (
	"fmt"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/quillsql/quill/pkg/expr"
	"github.com/quillsql/quill/pkg/plan"
	"github.com/quillsql/quill/pkg/types"
)

// materializeValues builds a single columnar batch holding all of the
// node's literal rows, one column per declared output variable. Every row's
// arity and literal types are validated against the declared schema.
func materializeValues(alloc memory.Allocator, n *plan.ValuesNode) (*arrow.Schema, arrow.Record, error) {
	outputs := n.OutputVariables()

	fields := make([]arrow.Field, len(outputs))
	for i, v := range outputs {
		at, ok := types.ToArrow[v.Type]
		if !ok {
			return nil, nil, fmt.Errorf("%w: values %q column %s has no columnar representation",
				ErrSchemaMismatch, n.ID(), v)
		}
		fields[i] = arrow.Field{Name: v.Name, Type: at, Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)

	builder := array.NewRecordBuilder(alloc, schema)
	defer builder.Release()

	for ri, row := range n.Rows() {
		if len(row) != len(outputs) {
			return nil, nil, fmt.Errorf("%w: values %q row %d has %d literals for %d output variables",
				ErrSchemaMismatch, n.ID(), ri, len(row), len(outputs))
		}
		for ci, cell := range row {
			if err := appendLiteral(builder.Field(ci), cell); err != nil {
				return nil, nil, fmt.Errorf("values %q row %d column %s: %w", n.ID(), ri, outputs[ci], err)
			}
		}
	}

	return schema, builder.NewRecord(), nil
}

func appendLiteral(b array.Builder, cell expr.Expression) error {
	constant, ok := cell.(*expr.Constant)
	if !ok {
		return fmt.Errorf("%w: literal row cell must be a constant, got %s", ErrSchemaMismatch, cell.Kind())
	}
	if constant.IsNull() {
		b.AppendNull()
		return nil
	}

	switch b := b.(type) {
	case *array.BooleanBuilder:
		v, ok := constant.Value.(bool)
		if !ok {
			return typeError(constant, "boolean")
		}
		b.Append(v)
	case *array.Int32Builder:
		v, ok := asInt64(constant.Value)
		if !ok || v < math.MinInt32 || v > math.MaxInt32 {
			return typeError(constant, "integer")
		}
		b.Append(int32(v))
	case *array.Int64Builder:
		v, ok := asInt64(constant.Value)
		if !ok {
			return typeError(constant, "bigint")
		}
		b.Append(v)
	case *array.Float64Builder:
		v, ok := constant.Value.(float64)
		if !ok {
			return typeError(constant, "double")
		}
		b.Append(v)
	case *array.StringBuilder:
		v, ok := constant.Value.(string)
		if !ok {
			return typeError(constant, "varchar")
		}
		b.Append(v)
	default:
		return fmt.Errorf("%w: unsupported builder type %T", ErrSchemaMismatch, b)
	}
	return nil
}

func typeError(c *expr.Constant, want string) error {
	return fmt.Errorf("%w: literal %s (%s) is not assignable to a %s column",
		ErrSchemaMismatch, c, c.Type, want)
}

func asInt64(v any) (int64, bool) {
	switch v := v.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	default:
		return 0, false
	}
}
