package types

import "github.com/apache/arrow-go/v18/arrow"

var (
	ArrowType = struct {
		Null    arrow.DataType
		Boolean arrow.DataType
		Integer arrow.DataType
		Bigint  arrow.DataType
		Double  arrow.DataType
		Varchar arrow.DataType
		Hash    arrow.DataType
	}{
		Null:    arrow.Null,
		Boolean: arrow.FixedWidthTypes.Boolean,
		Integer: arrow.PrimitiveTypes.Int32,
		Bigint:  arrow.PrimitiveTypes.Int64,
		Double:  arrow.PrimitiveTypes.Float64,
		Varchar: arrow.BinaryTypes.String,
		Hash:    arrow.PrimitiveTypes.Int64,
	}

	ToArrow = map[DataType]arrow.DataType{
		Null:    ArrowType.Null,
		Boolean: ArrowType.Boolean,
		Integer: ArrowType.Integer,
		Bigint:  ArrowType.Bigint,
		Double:  ArrowType.Double,
		Varchar: ArrowType.Varchar,
		Hash:    ArrowType.Hash,
	}
)
