package expr

import (
	"fmt"
	"strings"

	"github.com/quillsql/quill/pkg/types"
)

// ExprKind represents the kind of a scalar expression.
type ExprKind uint32

const (
	_ ExprKind = iota // zero-value is an invalid kind

	KindVariable
	KindConstant
	KindCall
)

// String returns the string representation of the [ExprKind].
func (k ExprKind) String() string {
	switch k {
	case KindVariable:
		return "variable"
	case KindConstant:
		return "constant"
	case KindCall:
		return "call"
	default:
		return "invalid"
	}
}

// Expression is the common interface for all scalar expressions carried by
// plan nodes: projection assignments, filter predicates, join residuals, and
// the literal rows of a Values node.
type Expression interface {
	fmt.Stringer
	Kind() ExprKind
	ReturnType() types.DataType
	isExpr()
}

// VariableReference identifies a column slot by name. It is a comparable
// value type; equality is by (name, type) and instances are never mutated
// after creation.
type VariableReference struct {
	Name string
	Type types.DataType
}

// NewVariable returns a variable reference with the given name and type.
func NewVariable(name string, typ types.DataType) VariableReference {
	return VariableReference{Name: name, Type: typ}
}

func (VariableReference) isExpr() {}

// Kind returns the kind of the expression.
func (VariableReference) Kind() ExprKind { return KindVariable }

// ReturnType returns the scalar type of the referenced column.
func (v VariableReference) ReturnType() types.DataType { return v.Type }

// String returns the name of the variable and its type, joined by a colon.
func (v VariableReference) String() string {
	return fmt.Sprintf("%s:%s", v.Name, v.Type)
}

// Constant is a literal scalar value known at plan time. The zero value is
// the untyped NULL literal.
type Constant struct {
	Value any
	Type  types.DataType
}

// NewConstant returns a typed literal expression.
func NewConstant(value any, typ types.DataType) *Constant {
	return &Constant{Value: value, Type: typ}
}

// Null returns the untyped NULL literal.
func Null() *Constant {
	return &Constant{Type: types.Null}
}

func (*Constant) isExpr() {}

// Kind returns the kind of the expression.
func (*Constant) Kind() ExprKind { return KindConstant }

// ReturnType returns the scalar type of the literal.
func (c *Constant) ReturnType() types.DataType { return c.Type }

// IsNull reports whether the constant is the NULL literal.
func (c *Constant) IsNull() bool { return c.Value == nil }

// String returns a printable form of the literal.
func (c *Constant) String() string {
	if c.Value == nil {
		return "null"
	}
	if c.Type == types.Varchar {
		return fmt.Sprintf("%q", c.Value)
	}
	return fmt.Sprintf("%v", c.Value)
}

// Call applies a named scalar function to a list of argument expressions.
// Comparison predicates such as `eq(a, 1)` are calls with a boolean return
// type.
type Call struct {
	Function  string
	Arguments []Expression
	Type      types.DataType
}

// NewCall returns a call expression for the given function and arguments.
func NewCall(function string, typ types.DataType, args ...Expression) *Call {
	return &Call{Function: function, Arguments: args, Type: typ}
}

func (*Call) isExpr() {}

// Kind returns the kind of the expression.
func (*Call) Kind() ExprKind { return KindCall }

// ReturnType returns the scalar type the call evaluates to.
func (c *Call) ReturnType() types.DataType { return c.Type }

// String returns the function name applied to its stringified arguments.
func (c *Call) String() string {
	args := make([]string, len(c.Arguments))
	for i := range c.Arguments {
		args[i] = c.Arguments[i].String()
	}
	return fmt.Sprintf("%s(%s)", c.Function, strings.Join(args, ", "))
}
