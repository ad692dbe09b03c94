package native

import "fmt"

// SQLType is an ODBC SQL data type code as reported by SQLDescribeCol.
type SQLType int16

const (
	TypeUnknown       SQLType = 0
	TypeChar          SQLType = 1
	TypeNumeric       SQLType = 2
	TypeDecimal       SQLType = 3
	TypeInteger       SQLType = 4
	TypeSmallInt      SQLType = 5
	TypeFloat         SQLType = 6
	TypeReal          SQLType = 7
	TypeDouble        SQLType = 8
	TypeDateTime      SQLType = 9
	TypeVarChar       SQLType = 12
	TypeBoolean       SQLType = 16
	TypeTypeDate      SQLType = 91
	TypeTypeTime      SQLType = 92
	TypeTypeTimestamp SQLType = 93
	TypeLongVarChar   SQLType = -1
	TypeBinary        SQLType = -2
	TypeVarBinary     SQLType = -3
	TypeLongVarBinary SQLType = -4
	TypeBigInt        SQLType = -5
	TypeTinyInt       SQLType = -6
	TypeBit           SQLType = -7
	TypeWChar         SQLType = -8
	TypeWVarChar      SQLType = -9
	TypeWLongVarChar  SQLType = -10
	TypeGUID          SQLType = -11
)

var typeNames = map[SQLType]string{
	TypeUnknown:       "UNKNOWN",
	TypeChar:          "CHAR",
	TypeNumeric:       "NUMERIC",
	TypeDecimal:       "DECIMAL",
	TypeInteger:       "INTEGER",
	TypeSmallInt:      "SMALLINT",
	TypeFloat:         "FLOAT",
	TypeReal:          "REAL",
	TypeDouble:        "DOUBLE",
	TypeDateTime:      "DATETIME",
	TypeVarChar:       "VARCHAR",
	TypeBoolean:       "BOOLEAN",
	TypeTypeDate:      "DATE",
	TypeTypeTime:      "TIME",
	TypeTypeTimestamp: "TIMESTAMP",
	TypeLongVarChar:   "LONGVARCHAR",
	TypeBinary:        "BINARY",
	TypeVarBinary:     "VARBINARY",
	TypeLongVarBinary: "LONGVARBINARY",
	TypeBigInt:        "BIGINT",
	TypeTinyInt:       "TINYINT",
	TypeBit:           "BIT",
	TypeWChar:         "WCHAR",
	TypeWVarChar:      "WVARCHAR",
	TypeWLongVarChar:  "WLONGVARCHAR",
	TypeGUID:          "GUID",
}

func (t SQLType) String() string {
	if n, ok := typeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("SQLTYPE(%d)", int16(t))
}

// IsVariableLength reports whether the driver's transfer length for the type
// depends on the column definition and the client character set, so it has
// to be asked for with SQLColAttribute instead of being derived from the
// type code.
func (t SQLType) IsVariableLength() bool {
	switch t {
	case TypeChar, TypeVarChar, TypeLongVarChar,
		TypeWChar, TypeWVarChar, TypeWLongVarChar,
		TypeBinary, TypeVarBinary, TypeLongVarBinary,
		TypeDecimal, TypeNumeric, TypeUnknown:
		return true
	}
	return false
}

// fixed C buffer sizes of the default C type for each SQL type
var fixedLengths = map[SQLType]int64{
	TypeBit:           1,
	TypeBoolean:       1,
	TypeTinyInt:       1,
	TypeSmallInt:      2,
	TypeInteger:       4,
	TypeBigInt:        8,
	TypeReal:          4,
	TypeFloat:         8,
	TypeDouble:        8,
	TypeTypeDate:      6,
	TypeTypeTime:      6,
	TypeTypeTimestamp: 16,
	TypeDateTime:      16,
	TypeGUID:          16,
}

// FixedTransferLength returns the transfer length in bytes of a fixed
// length type. Types missing from the table fall back to the column size.
func FixedTransferLength(t SQLType, columnSize uint64) int64 {
	if n, ok := fixedLengths[t]; ok {
		return n
	}
	return int64(columnSize)
}
