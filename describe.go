package odbc

import (
	"context"
	"math"

	"github.com/apache/arrow/go/v12/arrow/memory"
	"github.com/pkg/errors"
	odbcerr "github.com/sqlbridge/odbc/errors"
	dbsqlerrint "github.com/sqlbridge/odbc/internal/errors"
	"github.com/sqlbridge/odbc/logger"
	"github.com/sqlbridge/odbc/native"
)

// ColumnDescriptor describes one result column.
type ColumnDescriptor struct {
	Ordinal   int
	Name      string
	DataType  native.SQLType
	Precision uint64 // column size
	Scale     int16  // decimal digits
	Nullable  native.Nullability
	// bytes the driver transfers for a value of the column
	Length int64
}

// DatabaseTypeName is the SQL type name of the column, e.g. VARCHAR.
func (d ColumnDescriptor) DatabaseTypeName() string {
	return d.DataType.String()
}

// DescribeColumn describes the column at ordinal, executing the command if
// needed.
func (s *Statement) DescribeColumn(ctx context.Context, ordinal int) (ColumnDescriptor, error) {
	cols, err := s.DescribeColumns(ctx, ordinal)
	if err != nil {
		return ColumnDescriptor{}, err
	}
	return cols[0], nil
}

// ColumnLength is the transfer length in bytes of the column at ordinal.
func (s *Statement) ColumnLength(ctx context.Context, ordinal int) (int64, error) {
	d, err := s.DescribeColumn(ctx, ordinal)
	if err != nil {
		return 0, err
	}
	return d.Length, nil
}

// DescribeColumns describes the columns at ordinals (1-based) in the order
// given, executing the command if needed.
//
// Names longer than the connection's maximum column name length are read
// again into a larger buffer. Transfer lengths of character, binary and
// decimal columns are asked from the driver with the connection's column
// length field; when the driver manager does not know
// SQL_DESC_OCTET_LENGTH (HY091) the connection switches to
// SQL_COLUMN_LENGTH for good.
func (s *Statement) DescribeColumns(ctx context.Context, ordinals ...int) ([]ColumnDescriptor, error) {
	for _, ordinal := range ordinals {
		if ordinal < 1 || ordinal > math.MaxUint16 {
			return nil, dbsqlerrint.NewInvalidArgument(s.context(ctx), "ordinal", dbsqlerrint.ErrInvalidColumnOrdinal, errors.Errorf("invalid column ordinal %d", ordinal))
		}
	}
	h, err := s.ExecutedHandle(ctx)
	if err != nil {
		return nil, err
	}
	ctx = s.context(ctx)
	if len(ordinals) == 0 {
		return []ColumnDescriptor{}, nil
	}

	api := s.conn.api
	codec := s.conn.codec
	width := codec.CharWidth()
	alloc := s.conn.cfg.Allocator

	// in characters, terminator included
	nameCap := s.conn.MaxColumnNameLength() + 1
	name := alloc.Allocate(nameCap * width)
	defer func() { alloc.Free(name) }()

	var (
		nameLen    int16
		dataType   native.SQLType
		columnSize uint64
		digits     int16
		nullable   native.Nullability
	)
	describe := func(col uint16) native.Return {
		memory.Set(name, 0)
		return api.DescribeCol(h, col, name, &nameLen, &dataType, &columnSize, &digits, &nullable)
	}

	descriptors := make([]ColumnDescriptor, 0, len(ordinals))
	for _, ordinal := range ordinals {
		col := uint16(ordinal)
		ret := describe(col)
		if (ret == native.Success || ret == native.SuccessWithInfo) && int(nameLen) >= nameCap {
			// the truncated name and its warning are dropped, the second call
			// is the one reported
			logger.Ctx(ctx).Debug().Msgf("odbc: column %d name is %d characters, growing buffer from %d", ordinal, nameLen, nameCap-1)
			nameCap = int(nameLen) + 1
			name = alloc.Reallocate(nameCap*width, name)
			ret = describe(col)
		}
		if err := s.check(ctx, ret, "SQLDescribeCol"); err != nil {
			return nil, err
		}

		n := min(max(int(nameLen), 0), nameCap-1)
		colName, err := codec.Decode(name[:n*width])
		if err != nil {
			return nil, dbsqlerrint.WrapErrf(err, "decode name of column %d", ordinal)
		}

		d := ColumnDescriptor{
			Ordinal:   ordinal,
			Name:      colName,
			DataType:  dataType,
			Precision: columnSize,
			Scale:     digits,
			Nullable:  nullable,
		}
		if dataType.IsVariableLength() {
			if d.Length, err = s.transferLength(ctx, h, col); err != nil {
				return nil, err
			}
		} else {
			d.Length = native.FixedTransferLength(dataType, columnSize)
		}
		descriptors = append(descriptors, d)
	}
	return descriptors, nil
}

// transferLength asks the driver for the transfer length of col.
func (s *Statement) transferLength(ctx context.Context, h native.Handle, col uint16) (int64, error) {
	field := s.conn.ColumnLengthField()
	var length int64
	err := s.check(ctx, s.conn.api.ColAttribute(h, col, field, nil, nil, &length), "SQLColAttribute")
	if err == nil {
		return length, nil
	}
	if field != native.DescOctetLength || !hasSqlState(err, odbcerr.SqlStateInvalidDescriptorField) {
		return 0, err
	}

	logger.Ctx(ctx).Info().Msgf("odbc: %s rejected, using %s for this connection", native.DescOctetLength, native.ColumnLength)
	s.conn.SetColumnLengthField(native.ColumnLength)
	length = 0
	if err := s.check(ctx, s.conn.api.ColAttribute(h, col, native.ColumnLength, nil, nil, &length), "SQLColAttribute"); err != nil {
		return 0, err
	}
	return length, nil
}
