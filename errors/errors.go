package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/sqlbridge/odbc/native"
)

// value to be used with errors.Is() to determine if an error chain contains a driver error
var DriverError error = errors.New("Driver Error")

// value to be used with errors.Is() to determine if an error chain contains a driver warning
var DriverWarning error = errors.New("Driver Warning")

// value to be used with errors.Is() to determine if an error chain contains an invalid argument error
var InvalidArgument error = errors.New("Invalid Argument")

// value to be used with errors.Is() to determine if an error chain contains a system fault
var SystemFault error = errors.New("System Fault")

// SQLSTATE values the driver inspects itself.
const (
	// HY091: the field identifier passed to SQLColAttribute is not valid
	// for the driver manager in use.
	SqlStateInvalidDescriptorField = "HY091"
	// HY008: the operation was cancelled.
	SqlStateOperationCanceled = "HY008"
)

// DiagRecord is one diagnostic record as returned by SQLGetDiagRec.
type DiagRecord struct {
	SqlState   string
	NativeCode int32
	Message    string
}

func (r DiagRecord) String() string {
	return fmt.Sprintf("[%s] (%d) %s", r.SqlState, r.NativeCode, r.Message)
}

// Detail is the diagnostic payload of driver errors and warnings: the
// records reported for the handle plus the call that produced them.
type Detail struct {
	ReturnCode native.Return
	Operation  string
	HandleType native.HandleType
	Handle     native.Handle
	Records    []DiagRecord
}

// SqlState is the state of the first record, or "" when the driver reported none.
func (d Detail) SqlState() string {
	if len(d.Records) == 0 {
		return ""
	}
	return d.Records[0].SqlState
}

// NativeCode is the native error code of the first record.
func (d Detail) NativeCode() int32 {
	if len(d.Records) == 0 {
		return 0
	}
	return d.Records[0].NativeCode
}

// HasSqlState reports whether any record carries state.
func (d Detail) HasSqlState(state string) bool {
	for _, r := range d.Records {
		if r.SqlState == state {
			return true
		}
	}
	return false
}

func (d Detail) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s returned %s", d.Operation, d.ReturnCode)
	for _, r := range d.Records {
		sb.WriteString(": ")
		sb.WriteString(r.String())
	}
	return sb.String()
}

// Base interface for driver errors
type ODBCError interface {
	// Descriptive message describing the error
	Error() string

	// User specified id to track what happens under a request.
	// Appears in log messages as field corrId. See driverctx.NewContextWithCorrelationId()
	CorrelationId() string

	// Internal id of the connection that owns the failing statement.
	// Appears in log messages as field connId.
	ConnectionId() string

	// Internal id of the statement. Appears in log messages as field stmtId.
	StatementId() string

	// Stack trace associated with the error. May be nil.
	StackTrace() errors.StackTrace

	// Underlying causative error. May be nil.
	Cause() error
}

// A native call returned a failure status (anything but SQL_SUCCESS,
// SQL_SUCCESS_WITH_INFO or SQL_NO_DATA). The statement stays usable.
type DBDriverError interface {
	ODBCError

	Detail() Detail
	SqlState() string
	NativeCode() int32

	// True when the driver rejected the handle itself (SQL_INVALID_HANDLE).
	InvalidHandle() bool
}

// A native call succeeded with information or reported no data.
type DBWarning interface {
	ODBCError

	Detail() Detail
	SqlState() string
	NativeCode() int32

	// True when the warning stands for SQL_NO_DATA.
	NoData() bool
}

// A local validation failure raised before any native call was made.
type DBInvalidArgument interface {
	ODBCError

	// Name of the rejected argument.
	Argument() string
}

// Misuse of the driver or an interrupted call, e.g. a closed connection or a
// cancelled execution.
type DBSystemFault interface {
	ODBCError

	IsRetryable() bool
}
