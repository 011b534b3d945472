package types

// DataType represents the scalar type of a column or expression in a plan.
type DataType uint32

const (
	Invalid DataType = iota // zero-value is an invalid type

	Boolean // boolean value
	Integer // signed 32bit integer value
	Bigint  // signed 64bit integer value
	Double  // 64bit floating point value
	Varchar // variable-length string value
	Hash    // precomputed 64bit hash value

	// Null is the type of the untyped NULL literal.
	Null
)

// String returns the string representation of the [DataType].
func (t DataType) String() string {
	switch t {
	case Boolean:
		return "boolean"
	case Integer:
		return "integer"
	case Bigint:
		return "bigint"
	case Double:
		return "double"
	case Varchar:
		return "varchar"
	case Hash:
		return "hash"
	case Null:
		return "null"
	default:
		return "invalid"
	}
}

// ParseDataType is the inverse of [DataType.String]. It returns [Invalid]
// for names that do not map to a known type.
func ParseDataType(s string) DataType {
	switch s {
	case "boolean":
		return Boolean
	case "integer":
		return Integer
	case "bigint":
		return Bigint
	case "double":
		return Double
	case "varchar":
		return Varchar
	case "hash":
		return Hash
	case "null":
		return Null
	default:
		return Invalid
	}
}
