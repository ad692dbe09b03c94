package odbc

import (
	"github.com/sqlbridge/odbc/native"
)

// Variant is the kind of command a statement executes. It decides the native
// call that executes it and the cursor type the statement starts with.
// ExecuteStatement returns the status of the call unclassified; an error is
// only returned when the call could not be made, e.g. an argument that does
// not encode in the connection's character set.
type Variant interface {
	DefaultCursorType() CursorType
	ExecuteStatement(api native.API, h native.Handle, codec native.Codec) (native.Return, error)
}

// operationNamer is implemented by variants to name their native call in
// diagnostics.
type operationNamer interface {
	Operation() string
}

func operation(v Variant) string {
	if n, ok := v.(operationNamer); ok {
		return n.Operation()
	}
	return "execute"
}

// encodeArgs encodes catalog function arguments. Empty strings are passed as
// NULL, which catalog functions read as "any".
func encodeArgs(codec native.Codec, args ...string) ([][]byte, error) {
	out := make([][]byte, len(args))
	for i, arg := range args {
		if arg == "" {
			continue
		}
		b, err := codec.Encode(arg)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

// SQLText executes SQL text with SQLExecDirect.
type SQLText struct {
	Text string
}

func (SQLText) DefaultCursorType() CursorType { return CursorStatic }

func (SQLText) Operation() string { return "SQLExecDirect" }

func (v SQLText) ExecuteStatement(api native.API, h native.Handle, codec native.Codec) (native.Return, error) {
	text, err := codec.Encode(v.Text)
	if err != nil {
		return native.Error, err
	}
	return api.ExecDirect(h, text), nil
}

// Tables lists tables with SQLTables.
type Tables struct {
	Catalog, Schema, Table string
	// comma separated list such as "TABLE,VIEW"
	TableType string
}

func (Tables) DefaultCursorType() CursorType { return CursorForwardOnly }

func (Tables) Operation() string { return "SQLTables" }

func (v Tables) ExecuteStatement(api native.API, h native.Handle, codec native.Codec) (native.Return, error) {
	args, err := encodeArgs(codec, v.Catalog, v.Schema, v.Table, v.TableType)
	if err != nil {
		return native.Error, err
	}
	return api.Tables(h, args[0], args[1], args[2], args[3]), nil
}

// Columns lists the columns of tables with SQLColumns.
type Columns struct {
	Catalog, Schema, Table, Column string
}

func (Columns) DefaultCursorType() CursorType { return CursorForwardOnly }

func (Columns) Operation() string { return "SQLColumns" }

func (v Columns) ExecuteStatement(api native.API, h native.Handle, codec native.Codec) (native.Return, error) {
	args, err := encodeArgs(codec, v.Catalog, v.Schema, v.Table, v.Column)
	if err != nil {
		return native.Error, err
	}
	return api.Columns(h, args[0], args[1], args[2], args[3]), nil
}

// PrimaryKeys lists the primary key columns of a table with SQLPrimaryKeys.
type PrimaryKeys struct {
	Catalog, Schema, Table string
}

func (PrimaryKeys) DefaultCursorType() CursorType { return CursorForwardOnly }

func (PrimaryKeys) Operation() string { return "SQLPrimaryKeys" }

func (v PrimaryKeys) ExecuteStatement(api native.API, h native.Handle, codec native.Codec) (native.Return, error) {
	args, err := encodeArgs(codec, v.Catalog, v.Schema, v.Table)
	if err != nil {
		return native.Error, err
	}
	return api.PrimaryKeys(h, args[0], args[1], args[2]), nil
}

// ForeignKeys lists foreign keys with SQLForeignKeys: the keys referencing
// the PK table, the keys of the FK table, or the one between both.
type ForeignKeys struct {
	PKCatalog, PKSchema, PKTable string
	FKCatalog, FKSchema, FKTable string
}

func (ForeignKeys) DefaultCursorType() CursorType { return CursorForwardOnly }

func (ForeignKeys) Operation() string { return "SQLForeignKeys" }

func (v ForeignKeys) ExecuteStatement(api native.API, h native.Handle, codec native.Codec) (native.Return, error) {
	args, err := encodeArgs(codec, v.PKCatalog, v.PKSchema, v.PKTable, v.FKCatalog, v.FKSchema, v.FKTable)
	if err != nil {
		return native.Error, err
	}
	return api.ForeignKeys(h, args[0], args[1], args[2], args[3], args[4], args[5]), nil
}

// Statistics lists the statistics and indexes of a table with SQLStatistics.
type Statistics struct {
	Catalog, Schema, Table string
	// only unique indexes
	Unique bool
	// ask the driver for exact cardinality and pages (SQL_ENSURE)
	Ensure bool
}

func (Statistics) DefaultCursorType() CursorType { return CursorForwardOnly }

func (Statistics) Operation() string { return "SQLStatistics" }

func (v Statistics) ExecuteStatement(api native.API, h native.Handle, codec native.Codec) (native.Return, error) {
	args, err := encodeArgs(codec, v.Catalog, v.Schema, v.Table)
	if err != nil {
		return native.Error, err
	}
	unique, reserved := native.IndexAll, native.Quick
	if v.Unique {
		unique = native.IndexUnique
	}
	if v.Ensure {
		reserved = native.Ensure
	}
	return api.Statistics(h, args[0], args[1], args[2], unique, reserved), nil
}

// SpecialColumns lists the optimal row identifying columns (native.BestRowID)
// or the automatically updated columns (native.RowVer) of a table with
// SQLSpecialColumns.
type SpecialColumns struct {
	IdentifierType         uint16
	Catalog, Schema, Table string
	Scope                  uint16
	Nullable               bool
}

func (SpecialColumns) DefaultCursorType() CursorType { return CursorForwardOnly }

func (SpecialColumns) Operation() string { return "SQLSpecialColumns" }

func (v SpecialColumns) ExecuteStatement(api native.API, h native.Handle, codec native.Codec) (native.Return, error) {
	args, err := encodeArgs(codec, v.Catalog, v.Schema, v.Table)
	if err != nil {
		return native.Error, err
	}
	identifierType := v.IdentifierType
	if identifierType == 0 {
		identifierType = native.BestRowID
	}
	nullable := uint16(native.NoNulls)
	if v.Nullable {
		nullable = uint16(native.Nullable)
	}
	return api.SpecialColumns(h, identifierType, args[0], args[1], args[2], v.Scope, nullable), nil
}

// Procedures lists stored procedures with SQLProcedures.
type Procedures struct {
	Catalog, Schema, Procedure string
}

func (Procedures) DefaultCursorType() CursorType { return CursorForwardOnly }

func (Procedures) Operation() string { return "SQLProcedures" }

func (v Procedures) ExecuteStatement(api native.API, h native.Handle, codec native.Codec) (native.Return, error) {
	args, err := encodeArgs(codec, v.Catalog, v.Schema, v.Procedure)
	if err != nil {
		return native.Error, err
	}
	return api.Procedures(h, args[0], args[1], args[2]), nil
}

// ProcedureColumns lists the parameters and result columns of stored
// procedures with SQLProcedureColumns.
type ProcedureColumns struct {
	Catalog, Schema, Procedure, Column string
}

func (ProcedureColumns) DefaultCursorType() CursorType { return CursorForwardOnly }

func (ProcedureColumns) Operation() string { return "SQLProcedureColumns" }

func (v ProcedureColumns) ExecuteStatement(api native.API, h native.Handle, codec native.Codec) (native.Return, error) {
	args, err := encodeArgs(codec, v.Catalog, v.Schema, v.Procedure, v.Column)
	if err != nil {
		return native.Error, err
	}
	return api.ProcedureColumns(h, args[0], args[1], args[2], args[3]), nil
}

// TablePrivileges lists table privileges with SQLTablePrivileges.
type TablePrivileges struct {
	Catalog, Schema, Table string
}

func (TablePrivileges) DefaultCursorType() CursorType { return CursorForwardOnly }

func (TablePrivileges) Operation() string { return "SQLTablePrivileges" }

func (v TablePrivileges) ExecuteStatement(api native.API, h native.Handle, codec native.Codec) (native.Return, error) {
	args, err := encodeArgs(codec, v.Catalog, v.Schema, v.Table)
	if err != nil {
		return native.Error, err
	}
	return api.TablePrivileges(h, args[0], args[1], args[2]), nil
}

// ColumnPrivileges lists column privileges of a table with
// SQLColumnPrivileges.
type ColumnPrivileges struct {
	Catalog, Schema, Table, Column string
}

func (ColumnPrivileges) DefaultCursorType() CursorType { return CursorForwardOnly }

func (ColumnPrivileges) Operation() string { return "SQLColumnPrivileges" }

func (v ColumnPrivileges) ExecuteStatement(api native.API, h native.Handle, codec native.Codec) (native.Return, error) {
	args, err := encodeArgs(codec, v.Catalog, v.Schema, v.Table, v.Column)
	if err != nil {
		return native.Error, err
	}
	return api.ColumnPrivileges(h, args[0], args[1], args[2], args[3]), nil
}

// TypeInfo lists the data types supported by the data source with
// SQLGetTypeInfo.
type TypeInfo struct {
	DataType native.SQLType
}

func (TypeInfo) DefaultCursorType() CursorType { return CursorForwardOnly }

func (TypeInfo) Operation() string { return "SQLGetTypeInfo" }

func (v TypeInfo) ExecuteStatement(api native.API, h native.Handle, codec native.Codec) (native.Return, error) {
	return api.GetTypeInfo(h, v.DataType), nil
}
