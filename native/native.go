// Package native describes the ODBC call surface consumed by the statement
// core: handle and status types, the subset of ODBC constants the core
// needs, and the API interface a binding (cgo or otherwise) implements.
//
// Constant names follow the ODBC headers so they show up in searches.
package native

import "fmt"

// Handle is an opaque SQLHANDLE issued by the driver manager.
type Handle uintptr

// NullHandle is SQL_NULL_HANDLE.
const NullHandle Handle = 0

// HandleType identifies the kind of handle passed to SQLAllocHandle,
// SQLFreeHandle and SQLGetDiagRec.
type HandleType int16

const (
	HandleEnv  HandleType = 1
	HandleDbc  HandleType = 2
	HandleStmt HandleType = 3
	HandleDesc HandleType = 4
)

func (t HandleType) String() string {
	switch t {
	case HandleEnv:
		return "SQL_HANDLE_ENV"
	case HandleDbc:
		return "SQL_HANDLE_DBC"
	case HandleStmt:
		return "SQL_HANDLE_STMT"
	case HandleDesc:
		return "SQL_HANDLE_DESC"
	}
	return fmt.Sprintf("SQL_HANDLE(%d)", int16(t))
}

// Return is SQLRETURN.
type Return int16

const (
	Success         Return = 0
	SuccessWithInfo Return = 1
	StillExecuting  Return = 2
	NeedData        Return = 99
	NoData          Return = 100
	Error           Return = -1
	InvalidHandle   Return = -2
)

func (r Return) String() string {
	switch r {
	case Success:
		return "SQL_SUCCESS"
	case SuccessWithInfo:
		return "SQL_SUCCESS_WITH_INFO"
	case StillExecuting:
		return "SQL_STILL_EXECUTING"
	case NeedData:
		return "SQL_NEED_DATA"
	case NoData:
		return "SQL_NO_DATA"
	case Error:
		return "SQL_ERROR"
	case InvalidHandle:
		return "SQL_INVALID_HANDLE"
	}
	return fmt.Sprintf("SQLRETURN(%d)", int16(r))
}

// Attribute identifies an environment or statement attribute.
type Attribute int32

// Environment attributes.
const (
	AttrODBCVersion Attribute = 200
)

// ODBC version values for AttrODBCVersion.
const (
	OVODBC3 uintptr = 3
)

// Statement attributes.
const (
	AttrQueryTimeout      Attribute = 0
	AttrMaxRows           Attribute = 1
	AttrMaxLength         Attribute = 3
	AttrRowBindType       Attribute = 5
	AttrCursorType        Attribute = 6
	AttrConcurrency       Attribute = 7
	AttrRowNumber         Attribute = 14
	AttrRowStatusPtr      Attribute = 25
	AttrRowsFetchedPtr    Attribute = 26
	AttrRowArraySize      Attribute = 27
	AttrCursorScrollable  Attribute = -1
	AttrCursorSensitivity Attribute = -2
)

// Length indicators for SQLSetStmtAttr.
const (
	IsPointer   int32 = -4
	IsUInteger  int32 = -5
	IsInteger   int32 = -6
	IsUSmallInt int32 = -7
	IsSmallInt  int32 = -8
	NTS         int32 = -3
)

// Cursor type values for AttrCursorType.
const (
	CursorForwardOnly  uintptr = 0
	CursorKeysetDriven uintptr = 1
	CursorDynamic      uintptr = 2
	CursorStatic       uintptr = 3
)

// FreeOption is the option argument of SQLFreeStmt.
type FreeOption uint16

const (
	FreeClose       FreeOption = 0
	FreeDrop        FreeOption = 1
	FreeUnbind      FreeOption = 2
	FreeResetParams FreeOption = 3
)

// FieldIdentifier is the field argument of SQLColAttribute.
type FieldIdentifier uint16

const (
	// ColumnLength is the ODBC 2.x SQL_COLUMN_LENGTH field. Some driver
	// managers only accept this one for the transfer length.
	ColumnLength FieldIdentifier = 3

	DescDisplaySize FieldIdentifier = 6
	DescTypeName    FieldIdentifier = 14
	DescLength      FieldIdentifier = 1003
	DescPrecision   FieldIdentifier = 1005
	DescScale       FieldIdentifier = 1006
	DescNullable    FieldIdentifier = 1008
	DescName        FieldIdentifier = 1011
	DescOctetLength FieldIdentifier = 1013
)

func (f FieldIdentifier) String() string {
	switch f {
	case ColumnLength:
		return "SQL_COLUMN_LENGTH"
	case DescDisplaySize:
		return "SQL_DESC_DISPLAY_SIZE"
	case DescTypeName:
		return "SQL_DESC_TYPE_NAME"
	case DescLength:
		return "SQL_DESC_LENGTH"
	case DescPrecision:
		return "SQL_DESC_PRECISION"
	case DescScale:
		return "SQL_DESC_SCALE"
	case DescNullable:
		return "SQL_DESC_NULLABLE"
	case DescName:
		return "SQL_DESC_NAME"
	case DescOctetLength:
		return "SQL_DESC_OCTET_LENGTH"
	}
	return fmt.Sprintf("SQL_DESC(%d)", uint16(f))
}

// InfoType is the info argument of SQLGetInfo.
type InfoType uint16

const (
	InfoDriverHstmt      InfoType = 5
	InfoDriverName       InfoType = 6
	InfoDriverVer        InfoType = 7
	InfoDBMSName         InfoType = 17
	InfoMaxColumnNameLen InfoType = 30
)

// FetchOrientation is the orientation argument of SQLFetchScroll.
type FetchOrientation int16

const (
	FetchNext     FetchOrientation = 1
	FetchFirst    FetchOrientation = 2
	FetchLast     FetchOrientation = 3
	FetchPrior    FetchOrientation = 4
	FetchAbsolute FetchOrientation = 5
	FetchRelative FetchOrientation = 6
)

// SQLSetPos operations and lock types.
const (
	PosPosition   uint16 = 0
	PosRefresh    uint16 = 1
	LockNoChange  uint16 = 0
	LockExclusive uint16 = 1
	LockUnlock    uint16 = 2
)

// Nullability is the nullable output of SQLDescribeCol.
type Nullability int16

const (
	NoNulls         Nullability = 0
	Nullable        Nullability = 1
	NullableUnknown Nullability = 2
)

// SQLGetTypeInfo / SQLSpecialColumns / SQLStatistics arguments.
const (
	AllTypes SQLType = 0

	BestRowID        uint16 = 1
	RowVer           uint16 = 2
	ScopeCurrow      uint16 = 0
	ScopeTransaction uint16 = 1
	ScopeSession     uint16 = 2

	IndexUnique uint16 = 0
	IndexAll    uint16 = 1
	Quick       uint16 = 0
	Ensure      uint16 = 1
)
