package expr

import (
	"errors"
	"fmt"
	"math"

	jsoniter "github.com/json-iterator/go"

	"github.com/quillsql/quill/pkg/types"
)

// json is the codec runtime for the wire format. The stdlib-compatible
// config keeps the encoding byte-for-byte interchangeable with encoding/json.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	// ErrUnknownExprKind is returned when decoding an expression whose
	// discriminant does not name a known expression kind.
	ErrUnknownExprKind = errors.New("unknown expression kind")

	// ErrDecode is returned for malformed expression payloads: missing
	// required fields or values that do not match the declared type.
	ErrDecode = errors.New("malformed expression")
)

// MarshalJSON implements [json.Marshaler]. A variable reference serializes
// as a plain (name, type) record; the field names are part of the wire
// compatibility surface and must not change.
func (v VariableReference) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name string `json:"name"`
		Type string `json:"type"`
	}{Name: v.Name, Type: v.Type.String()})
}

// UnmarshalJSON implements [json.Unmarshaler].
func (v *VariableReference) UnmarshalJSON(data []byte) error {
	var env struct {
		Name *string `json:"name"`
		Type *string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	if env.Name == nil || env.Type == nil {
		return fmt.Errorf("%w: variable requires name and type", ErrDecode)
	}
	typ := types.ParseDataType(*env.Type)
	if typ == types.Invalid {
		return fmt.Errorf("%w: unknown data type %q", ErrDecode, *env.Type)
	}
	v.Name = *env.Name
	v.Type = typ
	return nil
}

type taggedVariable struct {
	Tag  string `json:"@type"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type taggedConstant struct {
	Tag   string `json:"@type"`
	Type  string `json:"type"`
	Value any    `json:"value"`
}

type taggedCall struct {
	Tag        string                `json:"@type"`
	Function   string                `json:"function"`
	ReturnType string                `json:"returnType"`
	Arguments  []jsoniter.RawMessage `json:"arguments"`
}

// Marshal serializes an expression to its tagged wire form. The discriminant
// field `@type` carries the canonical kind name.
func Marshal(e Expression) ([]byte, error) {
	switch e := e.(type) {
	case VariableReference:
		return json.Marshal(taggedVariable{
			Tag:  KindVariable.String(),
			Name: e.Name,
			Type: e.Type.String(),
		})
	case *Constant:
		return json.Marshal(taggedConstant{
			Tag:   KindConstant.String(),
			Type:  e.Type.String(),
			Value: e.Value,
		})
	case *Call:
		var args []jsoniter.RawMessage
		if e.Arguments != nil {
			args = make([]jsoniter.RawMessage, len(e.Arguments))
			for i := range e.Arguments {
				data, err := Marshal(e.Arguments[i])
				if err != nil {
					return nil, err
				}
				args[i] = data
			}
		}
		return json.Marshal(taggedCall{
			Tag:        KindCall.String(),
			Function:   e.Function,
			ReturnType: e.Type.String(),
			Arguments:  args,
		})
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownExprKind, e)
	}
}

// Unmarshal deserializes an expression from its tagged wire form,
// dispatching on the `@type` discriminant.
func Unmarshal(data []byte) (Expression, error) {
	var tag struct {
		Tag string `json:"@type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, err
	}

	switch tag.Tag {
	case KindVariable.String():
		var v VariableReference
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil

	case KindConstant.String():
		var env struct {
			Type  string `json:"type"`
			Value any    `json:"value"`
		}
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, err
		}
		typ := types.ParseDataType(env.Type)
		if typ == types.Invalid {
			return nil, fmt.Errorf("%w: unknown data type %q", ErrDecode, env.Type)
		}
		value, err := convertConstant(env.Value, typ)
		if err != nil {
			return nil, err
		}
		return &Constant{Value: value, Type: typ}, nil

	case KindCall.String():
		var env taggedCall
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, err
		}
		typ := types.ParseDataType(env.ReturnType)
		if typ == types.Invalid {
			return nil, fmt.Errorf("%w: unknown data type %q", ErrDecode, env.ReturnType)
		}
		if env.Function == "" {
			return nil, fmt.Errorf("%w: call requires a function name", ErrDecode)
		}
		var args []Expression
		if env.Arguments != nil {
			args = make([]Expression, len(env.Arguments))
			for i := range env.Arguments {
				arg, err := Unmarshal(env.Arguments[i])
				if err != nil {
					return nil, err
				}
				args[i] = arg
			}
		}
		return &Call{Function: env.Function, Arguments: args, Type: typ}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownExprKind, tag.Tag)
	}
}

// convertConstant narrows a decoded JSON value to the Go representation
// declared by the literal's type.
func convertConstant(value any, typ types.DataType) (any, error) {
	if value == nil {
		return nil, nil
	}
	switch typ {
	case types.Boolean:
		if v, ok := value.(bool); ok {
			return v, nil
		}
	case types.Integer:
		if v, ok := value.(float64); ok && v == math.Trunc(v) && v >= math.MinInt32 && v <= math.MaxInt32 {
			return int32(v), nil
		}
	case types.Bigint, types.Hash:
		// float64(math.MaxInt64) rounds up to 2^63, which overflows, so the
		// upper bound is exclusive.
		if v, ok := value.(float64); ok && v == math.Trunc(v) && v >= math.MinInt64 && v < math.MaxInt64 {
			return int64(v), nil
		}
	case types.Double:
		if v, ok := value.(float64); ok {
			return v, nil
		}
	case types.Varchar:
		if v, ok := value.(string); ok {
			return v, nil
		}
	case types.Null:
		return nil, nil
	}
	return nil, fmt.Errorf("%w: value %v does not match type %s", ErrDecode, value, typ)
}
