// Package nativetest is an in-memory stand-in for an ODBC driver manager.
// It keeps just enough state (handles, attributes, diagnostics, a cursor
// over a fixed number of rows) for the statement core to be exercised
// end-to-end, counts every call, and lets tests override individual calls
// through Fn hooks.
package nativetest

import (
	"encoding/binary"
	"sync"

	"github.com/sqlbridge/odbc/native"
)

// Column is one column of the simulated result set.
type Column struct {
	Name        string
	Type        native.SQLType
	Size        uint64
	Digits      int16
	Nullable    native.Nullability
	OctetLength int64 // answer for SQL_DESC_OCTET_LENGTH
	Length      int64 // answer for SQL_COLUMN_LENGTH
}

// Diag is a diagnostic record queued on a handle.
type Diag struct {
	State   string
	Native  int32
	Message string
}

type handleState struct {
	typ      native.HandleType
	parent   native.Handle
	attrs    map[native.Attribute]uintptr
	diags    []Diag
	executed bool
	position int64
}

// API implements native.API. The zero value is not usable, use New.
type API struct {
	Codec native.Codec

	// simulated result of every executed statement
	ResultColumns []Column
	Rows          int64
	AffectedRows  int64

	MaxColumnNameLen uint16
	// string statement attributes returned by GetStmtAttr
	StringAttrs map[native.Attribute]string
	// integer statement attributes written as 4 byte SQLUINTEGER values; the
	// rest of the caller's buffer is scribbled over
	NarrowAttrs map[native.Attribute]bool
	// SQL_DESC_OCTET_LENGTH fails with HY091 when set, like some driver managers
	RejectOctetLength bool

	// hooks; when set they decide the return code of the call
	FnDriverConnect func(dbc native.Handle, connStr string) native.Return
	FnExecute       func(stmt native.Handle, call string, args []string) native.Return
	FnSetStmtAttr   func(stmt native.Handle, attr native.Attribute, value uintptr) native.Return
	FnFreeHandle    func(t native.HandleType, h native.Handle) native.Return
	FnFreeStmt      func(stmt native.Handle, option native.FreeOption) native.Return
	FnCancel        func(stmt native.Handle) native.Return
	FnColAttribute  func(stmt native.Handle, col uint16, field native.FieldIdentifier) (native.Return, bool)
	FnRowCount      func(stmt native.Handle) (int64, native.Return)
	FnFetch         func(stmt native.Handle) native.Return
	FnSetPos        func(stmt native.Handle, row uint64) native.Return

	mu        sync.Mutex
	next      native.Handle
	handles   map[native.Handle]*handleState
	calls     map[string]int
	lastQuery string
	freed     []native.Handle
}

var _ native.API = (*API)(nil)

func New() *API {
	codec, _ := native.LookupCodec(native.EncodingUTF8)
	return &API{
		Codec:            codec,
		MaxColumnNameLen: 128,
		StringAttrs:      map[native.Attribute]string{},
		NarrowAttrs:      map[native.Attribute]bool{},
		next:             0x100,
		handles:          map[native.Handle]*handleState{},
		calls:            map[string]int{},
	}
}

// Calls returns how often the named ODBC function (e.g. "SQLExecDirect") was called.
func (a *API) Calls(name string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls[name]
}

// LastQuery is the text of the last SQLExecDirect.
func (a *API) LastQuery() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastQuery
}

// Live reports whether h is allocated.
func (a *API) Live(h native.Handle) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.handles[h]
	return ok
}

// LiveCount is the number of allocated handles of type t.
func (a *API) LiveCount(t native.HandleType) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, hs := range a.handles {
		if hs.typ == t {
			n++
		}
	}
	return n
}

// Freed lists the handles released with SQLFreeHandle, in order.
func (a *API) Freed() []native.Handle {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]native.Handle(nil), a.freed...)
}

// Attr returns the value last set for attr on h.
func (a *API) Attr(h native.Handle, attr native.Attribute) (uintptr, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	hs, ok := a.handles[h]
	if !ok {
		return 0, false
	}
	v, ok := hs.attrs[attr]
	return v, ok
}

// Fail queues a diagnostic on h and returns SQL_ERROR. Meant for hooks.
func (a *API) Fail(h native.Handle, state, msg string) native.Return {
	a.pushDiag(h, Diag{State: state, Message: msg})
	return native.Error
}

// Warn queues a diagnostic on h and returns SQL_SUCCESS_WITH_INFO.
func (a *API) Warn(h native.Handle, state, msg string) native.Return {
	a.pushDiag(h, Diag{State: state, Message: msg})
	return native.SuccessWithInfo
}

func (a *API) pushDiag(h native.Handle, d Diag) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if hs, ok := a.handles[h]; ok {
		hs.diags = append(hs.diags, d)
	}
}

// enter counts the call and clears the diagnostics of h, as every ODBC
// function except SQLGetDiagRec does. It returns the handle state or nil.
func (a *API) enter(name string, h native.Handle) *handleState {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls[name]++
	hs, ok := a.handles[h]
	if !ok {
		return nil
	}
	hs.diags = nil
	return hs
}

func (a *API) decode(b []byte) string {
	if b == nil {
		return ""
	}
	s, _ := a.Codec.Decode(b)
	return s
}

// writeString copies s into buf, truncating and NUL terminating it, and
// returns the full length of s in code units.
func (a *API) writeString(s string, buf []byte) (int, bool) {
	enc, _ := a.Codec.Encode(s)
	w := a.Codec.CharWidth()
	for i := range buf {
		buf[i] = 0
	}
	truncated := false
	if len(buf) >= w {
		n := len(enc)
		if max := len(buf) - w; n > max {
			n = max - max%w
			truncated = true
		}
		copy(buf, enc[:n])
	} else if len(enc) > 0 {
		truncated = true
	}
	return len(enc) / w, truncated
}

func (a *API) AllocHandle(t native.HandleType, input native.Handle, output *native.Handle) native.Return {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls["SQLAllocHandle"]++
	if t != native.HandleEnv {
		parent, ok := a.handles[input]
		if !ok {
			return native.InvalidHandle
		}
		parent.diags = nil
	}
	a.next++
	h := a.next
	a.handles[h] = &handleState{typ: t, parent: input, attrs: map[native.Attribute]uintptr{}}
	*output = h
	return native.Success
}

func (a *API) FreeHandle(t native.HandleType, h native.Handle) native.Return {
	if a.enter("SQLFreeHandle", h) == nil {
		return native.InvalidHandle
	}
	if a.FnFreeHandle != nil {
		if ret := a.FnFreeHandle(t, h); ret != native.Success {
			return ret
		}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.handles, h)
	a.freed = append(a.freed, h)
	return native.Success
}

func (a *API) SetEnvAttr(env native.Handle, attr native.Attribute, value uintptr, length int32) native.Return {
	hs := a.enter("SQLSetEnvAttr", env)
	if hs == nil {
		return native.InvalidHandle
	}
	a.mu.Lock()
	hs.attrs[attr] = value
	a.mu.Unlock()
	return native.Success
}

func (a *API) DriverConnect(dbc native.Handle, connStr []byte) native.Return {
	if a.enter("SQLDriverConnect", dbc) == nil {
		return native.InvalidHandle
	}
	if a.FnDriverConnect != nil {
		return a.FnDriverConnect(dbc, a.decode(connStr))
	}
	return native.Success
}

func (a *API) Disconnect(dbc native.Handle) native.Return {
	if a.enter("SQLDisconnect", dbc) == nil {
		return native.InvalidHandle
	}
	return native.Success
}

func (a *API) GetInfo(dbc native.Handle, info native.InfoType, value []byte, length *int16) native.Return {
	if a.enter("SQLGetInfo", dbc) == nil {
		return native.InvalidHandle
	}
	switch info {
	case native.InfoMaxColumnNameLen:
		if len(value) < 2 {
			return a.Fail(dbc, "HY090", "Invalid string or buffer length")
		}
		binary.NativeEndian.PutUint16(value, a.MaxColumnNameLen)
		if length != nil {
			*length = 2
		}
		return native.Success
	case native.InfoDriverHstmt:
		if len(value) < 8 {
			return a.Fail(dbc, "HY090", "Invalid string or buffer length")
		}
		stmt := native.Handle(binary.NativeEndian.Uint64(value))
		if !a.Live(stmt) {
			return a.Fail(dbc, "HY024", "Invalid attribute value")
		}
		binary.NativeEndian.PutUint64(value, uint64(stmt)+0x10000)
		if length != nil {
			*length = 8
		}
		return native.Success
	case native.InfoDriverName, native.InfoDBMSName:
		n, _ := a.writeString("nativetest", value)
		if length != nil {
			*length = int16(n * a.Codec.CharWidth())
		}
		return native.Success
	}
	return a.Fail(dbc, "HY096", "Information type out of range")
}

func (a *API) GetDiagRec(t native.HandleType, h native.Handle, rec int16, state []byte, nativeErr *int32, msg []byte, msgLen *int16) native.Return {
	a.mu.Lock()
	a.calls["SQLGetDiagRec"]++
	hs, ok := a.handles[h]
	var d Diag
	if ok && rec >= 1 && int(rec) <= len(hs.diags) {
		d = hs.diags[rec-1]
	}
	a.mu.Unlock()
	if !ok {
		return native.InvalidHandle
	}
	if rec < 1 {
		return native.Error
	}
	if d == (Diag{}) {
		return native.NoData
	}
	a.writeString(d.State, state)
	if nativeErr != nil {
		*nativeErr = d.Native
	}
	n, truncated := a.writeString(d.Message, msg)
	if msgLen != nil {
		*msgLen = int16(n)
	}
	if truncated {
		return native.SuccessWithInfo
	}
	return native.Success
}

func (a *API) execute(stmt native.Handle, call string, args ...[]byte) native.Return {
	hs := a.enter(call, stmt)
	if hs == nil {
		return native.InvalidHandle
	}
	strArgs := make([]string, len(args))
	for i, arg := range args {
		strArgs[i] = a.decode(arg)
	}
	a.mu.Lock()
	if hs.executed {
		a.mu.Unlock()
		return a.Fail(stmt, "24000", "Invalid cursor state")
	}
	if call == "SQLExecDirect" && len(strArgs) > 0 {
		a.lastQuery = strArgs[0]
	}
	a.mu.Unlock()

	ret := native.Success
	if a.FnExecute != nil {
		ret = a.FnExecute(stmt, call, strArgs)
	}
	if ret == native.Success || ret == native.SuccessWithInfo || ret == native.NoData {
		a.mu.Lock()
		hs.executed = true
		hs.position = 0
		a.mu.Unlock()
	}
	return ret
}

func (a *API) ExecDirect(stmt native.Handle, text []byte) native.Return {
	return a.execute(stmt, "SQLExecDirect", text)
}

func (a *API) Tables(stmt native.Handle, catalog, schema, table, tableType []byte) native.Return {
	return a.execute(stmt, "SQLTables", catalog, schema, table, tableType)
}

func (a *API) Columns(stmt native.Handle, catalog, schema, table, column []byte) native.Return {
	return a.execute(stmt, "SQLColumns", catalog, schema, table, column)
}

func (a *API) PrimaryKeys(stmt native.Handle, catalog, schema, table []byte) native.Return {
	return a.execute(stmt, "SQLPrimaryKeys", catalog, schema, table)
}

func (a *API) ForeignKeys(stmt native.Handle, pkCatalog, pkSchema, pkTable, fkCatalog, fkSchema, fkTable []byte) native.Return {
	return a.execute(stmt, "SQLForeignKeys", pkCatalog, pkSchema, pkTable, fkCatalog, fkSchema, fkTable)
}

func (a *API) Statistics(stmt native.Handle, catalog, schema, table []byte, unique, reserved uint16) native.Return {
	return a.execute(stmt, "SQLStatistics", catalog, schema, table)
}

func (a *API) SpecialColumns(stmt native.Handle, identifierType uint16, catalog, schema, table []byte, scope, nullable uint16) native.Return {
	return a.execute(stmt, "SQLSpecialColumns", catalog, schema, table)
}

func (a *API) Procedures(stmt native.Handle, catalog, schema, procedure []byte) native.Return {
	return a.execute(stmt, "SQLProcedures", catalog, schema, procedure)
}

func (a *API) ProcedureColumns(stmt native.Handle, catalog, schema, procedure, column []byte) native.Return {
	return a.execute(stmt, "SQLProcedureColumns", catalog, schema, procedure, column)
}

func (a *API) TablePrivileges(stmt native.Handle, catalog, schema, table []byte) native.Return {
	return a.execute(stmt, "SQLTablePrivileges", catalog, schema, table)
}

func (a *API) ColumnPrivileges(stmt native.Handle, catalog, schema, table, column []byte) native.Return {
	return a.execute(stmt, "SQLColumnPrivileges", catalog, schema, table, column)
}

func (a *API) GetTypeInfo(stmt native.Handle, dataType native.SQLType) native.Return {
	return a.execute(stmt, "SQLGetTypeInfo")
}

func (a *API) Cancel(stmt native.Handle) native.Return {
	if a.enter("SQLCancel", stmt) == nil {
		return native.InvalidHandle
	}
	if a.FnCancel != nil {
		return a.FnCancel(stmt)
	}
	return native.Success
}

func (a *API) FreeStmt(stmt native.Handle, option native.FreeOption) native.Return {
	hs := a.enter("SQLFreeStmt", stmt)
	if hs == nil {
		return native.InvalidHandle
	}
	if a.FnFreeStmt != nil {
		if ret := a.FnFreeStmt(stmt, option); ret != native.Success {
			return ret
		}
	}
	if option == native.FreeClose {
		a.mu.Lock()
		hs.executed = false
		hs.position = 0
		a.mu.Unlock()
	}
	return native.Success
}

func (a *API) SetStmtAttr(stmt native.Handle, attr native.Attribute, value uintptr, length int32) native.Return {
	hs := a.enter("SQLSetStmtAttr", stmt)
	if hs == nil {
		return native.InvalidHandle
	}
	ret := native.Success
	if a.FnSetStmtAttr != nil {
		if ret = a.FnSetStmtAttr(stmt, attr, value); ret != native.Success && ret != native.SuccessWithInfo {
			return ret
		}
	}
	a.mu.Lock()
	open := hs.executed
	a.mu.Unlock()
	if attr == native.AttrCursorType && open {
		return a.Fail(stmt, "24000", "Invalid cursor state")
	}
	a.mu.Lock()
	hs.attrs[attr] = value
	a.mu.Unlock()
	return ret
}

func (a *API) GetStmtAttr(stmt native.Handle, attr native.Attribute, value []byte, length *int32) native.Return {
	hs := a.enter("SQLGetStmtAttr", stmt)
	if hs == nil {
		return native.InvalidHandle
	}
	if s, ok := a.StringAttrs[attr]; ok {
		n, truncated := a.writeString(s, value)
		if length != nil {
			*length = int32(n * a.Codec.CharWidth())
		}
		if truncated {
			return a.Warn(stmt, "01004", "String data, right truncated")
		}
		return native.Success
	}
	a.mu.Lock()
	v, ok := hs.attrs[attr]
	a.mu.Unlock()
	if !ok {
		return a.Fail(stmt, "HY092", "Invalid attribute/option identifier")
	}
	if len(value) < 8 {
		return a.Fail(stmt, "HY090", "Invalid string or buffer length")
	}
	if a.NarrowAttrs[attr] {
		binary.NativeEndian.PutUint32(value, uint32(v))
		for i := 4; i < 8; i++ {
			value[i] = 0xff
		}
		if length != nil {
			*length = 4
		}
		return native.Success
	}
	binary.NativeEndian.PutUint64(value, uint64(v))
	if length != nil {
		*length = 8
	}
	return native.Success
}

func (a *API) column(stmt native.Handle, hs *handleState, col uint16) (Column, native.Return) {
	a.mu.Lock()
	executed := hs.executed
	a.mu.Unlock()
	if !executed {
		return Column{}, a.Fail(stmt, "HY010", "Function sequence error")
	}
	if col < 1 || int(col) > len(a.ResultColumns) {
		return Column{}, a.Fail(stmt, "07009", "Invalid descriptor index")
	}
	return a.ResultColumns[col-1], native.Success
}

func (a *API) DescribeCol(stmt native.Handle, col uint16, name []byte, nameLen *int16, dataType *native.SQLType, columnSize *uint64, decimalDigits *int16, nullable *native.Nullability) native.Return {
	hs := a.enter("SQLDescribeCol", stmt)
	if hs == nil {
		return native.InvalidHandle
	}
	c, ret := a.column(stmt, hs, col)
	if ret != native.Success {
		return ret
	}
	n, truncated := a.writeString(c.Name, name)
	*nameLen = int16(n)
	*dataType = c.Type
	*columnSize = c.Size
	*decimalDigits = c.Digits
	*nullable = c.Nullable
	if truncated {
		return a.Warn(stmt, "01004", "String data, right truncated")
	}
	return native.Success
}

func (a *API) ColAttribute(stmt native.Handle, col uint16, field native.FieldIdentifier, charAttr []byte, charLen *int16, numAttr *int64) native.Return {
	hs := a.enter("SQLColAttribute", stmt)
	if hs == nil {
		return native.InvalidHandle
	}
	if a.FnColAttribute != nil {
		if ret, ok := a.FnColAttribute(stmt, col, field); ok {
			return ret
		}
	}
	c, ret := a.column(stmt, hs, col)
	if ret != native.Success {
		return ret
	}
	switch field {
	case native.DescOctetLength:
		if a.RejectOctetLength {
			return a.Fail(stmt, "HY091", "Invalid descriptor field identifier")
		}
		*numAttr = c.OctetLength
	case native.ColumnLength:
		*numAttr = c.Length
	case native.DescLength:
		*numAttr = int64(c.Size)
	default:
		return a.Fail(stmt, "HY091", "Invalid descriptor field identifier")
	}
	return native.Success
}

func (a *API) RowCount(stmt native.Handle, count *int64) native.Return {
	if a.enter("SQLRowCount", stmt) == nil {
		return native.InvalidHandle
	}
	if a.FnRowCount != nil {
		n, ret := a.FnRowCount(stmt)
		*count = n
		return ret
	}
	*count = a.AffectedRows
	return native.Success
}

func (a *API) NumResultCols(stmt native.Handle, count *int16) native.Return {
	hs := a.enter("SQLNumResultCols", stmt)
	if hs == nil {
		return native.InvalidHandle
	}
	a.mu.Lock()
	executed := hs.executed
	a.mu.Unlock()
	if !executed {
		return a.Fail(stmt, "HY010", "Function sequence error")
	}
	*count = int16(len(a.ResultColumns))
	return native.Success
}

func (a *API) SetPos(stmt native.Handle, row uint64, operation, lock uint16) native.Return {
	hs := a.enter("SQLSetPos", stmt)
	if hs == nil {
		return native.InvalidHandle
	}
	if a.FnSetPos != nil {
		if ret := a.FnSetPos(stmt, row); ret != native.Success {
			return ret
		}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if !hs.executed || hs.position == 0 {
		hs.diags = append(hs.diags, Diag{State: "24000", Message: "Invalid cursor state"})
		return native.Error
	}
	if row > 1 {
		hs.diags = append(hs.diags, Diag{State: "HY107", Message: "Row value out of range"})
		return native.Error
	}
	return native.Success
}

func (a *API) FetchScroll(stmt native.Handle, orientation native.FetchOrientation, offset int64) native.Return {
	hs := a.enter("SQLFetchScroll", stmt)
	if hs == nil {
		return native.InvalidHandle
	}
	ret, state, msg := a.move(hs, orientation, offset)
	switch {
	case state != "":
		return a.Fail(stmt, state, msg)
	case ret == native.Success && a.FnFetch != nil:
		return a.FnFetch(stmt)
	}
	return ret
}

func (a *API) move(hs *handleState, orientation native.FetchOrientation, offset int64) (native.Return, string, string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !hs.executed {
		return native.Error, "24000", "Invalid cursor state"
	}
	pos := hs.position
	switch orientation {
	case native.FetchNext:
		pos++
	case native.FetchPrior:
		pos--
	case native.FetchFirst:
		pos = 1
	case native.FetchLast:
		pos = a.Rows
	case native.FetchAbsolute:
		if offset < 0 {
			pos = a.Rows + 1 + offset
		} else {
			pos = offset
		}
	case native.FetchRelative:
		pos += offset
	default:
		return native.Error, "HY106", "Fetch type out of range"
	}
	switch {
	case pos < 1:
		hs.position = 0
		return native.NoData, "", ""
	case pos > a.Rows:
		hs.position = a.Rows + 1
		return native.NoData, "", ""
	}
	hs.position = pos
	return native.Success, "", ""
}

// Position is the current 1-based row of the cursor on stmt, 0 before the
// first row.
func (a *API) Position(stmt native.Handle) int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if hs, ok := a.handles[stmt]; ok {
		return hs.position
	}
	return 0
}
