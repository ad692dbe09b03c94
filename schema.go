package odbc

import (
	"context"
	"strconv"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/sqlbridge/odbc/native"
)

// field metadata keys set by ArrowField
const (
	MetadataSQLType   = "odbc.sql_type"
	MetadataPrecision = "odbc.precision"
	MetadataScale     = "odbc.scale"
	MetadataLength    = "odbc.length"
)

const maxDecimal128Precision = 38

// ArrowType maps the SQL type of the column to the arrow type a value of the
// column is represented with. Types without a natural arrow counterpart are
// carried as strings or raw bytes.
func (d ColumnDescriptor) ArrowType() arrow.DataType {
	switch d.DataType {
	case native.TypeBit, native.TypeBoolean:
		return arrow.FixedWidthTypes.Boolean
	case native.TypeTinyInt:
		return arrow.PrimitiveTypes.Int8
	case native.TypeSmallInt:
		return arrow.PrimitiveTypes.Int16
	case native.TypeInteger:
		return arrow.PrimitiveTypes.Int32
	case native.TypeBigInt:
		return arrow.PrimitiveTypes.Int64
	case native.TypeReal:
		return arrow.PrimitiveTypes.Float32
	case native.TypeFloat, native.TypeDouble:
		return arrow.PrimitiveTypes.Float64
	case native.TypeDecimal, native.TypeNumeric:
		if d.Precision >= 1 && d.Precision <= maxDecimal128Precision {
			return &arrow.Decimal128Type{Precision: int32(d.Precision), Scale: int32(d.Scale)}
		}
		return arrow.BinaryTypes.String
	case native.TypeTypeDate:
		return arrow.FixedWidthTypes.Date32
	case native.TypeTypeTime:
		return arrow.FixedWidthTypes.Time64us
	case native.TypeTypeTimestamp, native.TypeDateTime:
		return arrow.FixedWidthTypes.Timestamp_us
	case native.TypeBinary, native.TypeVarBinary, native.TypeLongVarBinary:
		return arrow.BinaryTypes.Binary
	case native.TypeUnknown:
		return arrow.Null
	default:
		return arrow.BinaryTypes.String
	}
}

// ArrowField is the column as an arrow field. The ODBC metadata is kept in
// the field metadata.
func (d ColumnDescriptor) ArrowField() arrow.Field {
	return arrow.Field{
		Name:     d.Name,
		Type:     d.ArrowType(),
		Nullable: d.Nullable != native.NoNulls,
		Metadata: arrow.NewMetadata(
			[]string{MetadataSQLType, MetadataPrecision, MetadataScale, MetadataLength},
			[]string{
				d.DatabaseTypeName(),
				strconv.FormatUint(d.Precision, 10),
				strconv.Itoa(int(d.Scale)),
				strconv.FormatInt(d.Length, 10),
			}),
	}
}

// Schema describes every column of the result as an arrow schema,
// executing the command if needed.
func (s *Statement) Schema(ctx context.Context) (*arrow.Schema, error) {
	cols, err := s.describeAll(ctx)
	if err != nil {
		return nil, err
	}
	return schemaOf(cols), nil
}

func (s *Statement) describeAll(ctx context.Context) ([]ColumnDescriptor, error) {
	n, err := s.NumColumns(ctx)
	if err != nil {
		return nil, err
	}
	ordinals := make([]int, n)
	for i := range ordinals {
		ordinals[i] = i + 1
	}
	return s.DescribeColumns(ctx, ordinals...)
}

func schemaOf(cols []ColumnDescriptor) *arrow.Schema {
	fields := make([]arrow.Field, len(cols))
	for i, col := range cols {
		fields[i] = col.ArrowField()
	}
	return arrow.NewSchema(fields, nil)
}
