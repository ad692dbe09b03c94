package native

// API is the synchronous ODBC call surface. Every method maps to exactly one
// ODBC function and returns its SQLRETURN untouched; classification of the
// status belongs to the caller.
//
// Character arguments are passed already encoded in the connection's
// character set (see Codec). A nil slice stands for a NULL pointer argument.
// Output buffers are caller owned and only valid for the duration of the
// call.
type API interface {
	// AllocHandle is SQLAllocHandle.
	AllocHandle(t HandleType, input Handle, output *Handle) Return
	// FreeHandle is SQLFreeHandle.
	FreeHandle(t HandleType, h Handle) Return
	// SetEnvAttr is SQLSetEnvAttr.
	SetEnvAttr(env Handle, attr Attribute, value uintptr, length int32) Return
	// DriverConnect is SQLDriverConnect with SQL_DRIVER_NOPROMPT.
	DriverConnect(dbc Handle, connStr []byte) Return
	// Disconnect is SQLDisconnect.
	Disconnect(dbc Handle) Return
	// GetInfo is SQLGetInfo.
	GetInfo(dbc Handle, info InfoType, value []byte, length *int16) Return
	// GetDiagRec is SQLGetDiagRec. rec is 1-based. msgLen reports the full
	// message length in characters even when msg was too small.
	GetDiagRec(t HandleType, h Handle, rec int16, state []byte, nativeErr *int32, msg []byte, msgLen *int16) Return

	// ExecDirect is SQLExecDirect.
	ExecDirect(stmt Handle, text []byte) Return
	// Tables is SQLTables.
	Tables(stmt Handle, catalog, schema, table, tableType []byte) Return
	// Columns is SQLColumns.
	Columns(stmt Handle, catalog, schema, table, column []byte) Return
	// PrimaryKeys is SQLPrimaryKeys.
	PrimaryKeys(stmt Handle, catalog, schema, table []byte) Return
	// ForeignKeys is SQLForeignKeys.
	ForeignKeys(stmt Handle, pkCatalog, pkSchema, pkTable, fkCatalog, fkSchema, fkTable []byte) Return
	// Statistics is SQLStatistics.
	Statistics(stmt Handle, catalog, schema, table []byte, unique, reserved uint16) Return
	// SpecialColumns is SQLSpecialColumns.
	SpecialColumns(stmt Handle, identifierType uint16, catalog, schema, table []byte, scope, nullable uint16) Return
	// Procedures is SQLProcedures.
	Procedures(stmt Handle, catalog, schema, procedure []byte) Return
	// ProcedureColumns is SQLProcedureColumns.
	ProcedureColumns(stmt Handle, catalog, schema, procedure, column []byte) Return
	// TablePrivileges is SQLTablePrivileges.
	TablePrivileges(stmt Handle, catalog, schema, table []byte) Return
	// ColumnPrivileges is SQLColumnPrivileges.
	ColumnPrivileges(stmt Handle, catalog, schema, table, column []byte) Return
	// GetTypeInfo is SQLGetTypeInfo.
	GetTypeInfo(stmt Handle, dataType SQLType) Return

	// Cancel is SQLCancel.
	Cancel(stmt Handle) Return
	// FreeStmt is SQLFreeStmt.
	FreeStmt(stmt Handle, option FreeOption) Return
	// SetStmtAttr is SQLSetStmtAttr.
	SetStmtAttr(stmt Handle, attr Attribute, value uintptr, length int32) Return
	// GetStmtAttr is SQLGetStmtAttr. length may be nil.
	GetStmtAttr(stmt Handle, attr Attribute, value []byte, length *int32) Return
	// DescribeCol is SQLDescribeCol. nameLen reports the full name length in
	// characters even when name was too small.
	DescribeCol(stmt Handle, col uint16, name []byte, nameLen *int16, dataType *SQLType, columnSize *uint64, decimalDigits *int16, nullable *Nullability) Return
	// ColAttribute is SQLColAttribute. charAttr and charLen may be nil for
	// numeric fields.
	ColAttribute(stmt Handle, col uint16, field FieldIdentifier, charAttr []byte, charLen *int16, numAttr *int64) Return
	// RowCount is SQLRowCount.
	RowCount(stmt Handle, count *int64) Return
	// NumResultCols is SQLNumResultCols.
	NumResultCols(stmt Handle, count *int16) Return
	// SetPos is SQLSetPos.
	SetPos(stmt Handle, row uint64, operation, lock uint16) Return
	// FetchScroll is SQLFetchScroll.
	FetchScroll(stmt Handle, orientation FetchOrientation, offset int64) Return
}
