package errors

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/sqlbridge/odbc/driverctx"
	odbcerr "github.com/sqlbridge/odbc/errors"
	"github.com/sqlbridge/odbc/native"
)

// Error messages
const (
	// System Fault (driver misuse, interrupted calls)
	ErrConnectionClosed     = "connection is closed"
	ErrExecutionInterrupted = "statement execution interrupted"
	ErrNotExecuted          = "statement is not executed"

	// Invalid argument (local validation, no native call made)
	ErrInvalidCursorType    = "invalid cursor type"
	ErrInvalidColumnOrdinal = "column ordinal out of range"
	ErrInvalidRowNumber     = "row number out of range"
	ErrEmptyStatusArray     = "status array must not be empty"
	ErrInvalidDSN           = "invalid DSN"
	ErrUnknownEncoding      = "unknown character set"

	// Driver errors (native call failed)
	ErrAllocEnv       = "failed to allocate environment handle"
	ErrAllocConn      = "failed to allocate connection handle"
	ErrDriverConnect  = "failed to connect"
	ErrAllocStatement = "failed to allocate statement handle"
	ErrFreeStatement  = "failed to free statement handle"
	ErrDriverCall     = "driver call failed"
	ErrDriverWarning  = "driver reported a warning"
)

type odbcError struct {
	err           error
	correlationId string
	connectionId  string
	statementId   string
	errType       string
}

var _ error = (*odbcError)(nil)

type stackTracer interface {
	StackTrace() errors.StackTrace
}

func newODBCError(ctx context.Context, msg string, err error) odbcError {
	// create an error with the new message
	if err == nil {
		err = errors.New(msg)
	} else {
		err = errors.WithMessage(err, msg)
	}

	// if the source error does not have a stack trace in its
	// error chain add a stack trace
	var st stackTracer
	if ok := errors.As(err, &st); !ok {
		err = errors.WithStack(err)
	}

	return odbcError{
		err:           err,
		correlationId: driverctx.CorrelationIdFromContext(ctx),
		connectionId:  driverctx.ConnIdFromContext(ctx),
		statementId:   driverctx.StatementIdFromContext(ctx),
		errType:       "unknown",
	}
}

func (e odbcError) Error() string {
	return fmt.Sprintf("odbc: %s: %s", e.errType, e.err.Error())
}

func (e odbcError) Cause() error {
	return e.err
}

func (e odbcError) StackTrace() errors.StackTrace {
	var st stackTracer
	if ok := errors.As(e.err, &st); ok {
		return st.StackTrace()
	}

	return nil
}

func (e odbcError) CorrelationId() string {
	return e.correlationId
}

func (e odbcError) ConnectionId() string {
	return e.connectionId
}

func (e odbcError) StatementId() string {
	return e.statementId
}

// driverError is a native call that returned a failure status.
type driverError struct {
	odbcError
	detail odbcerr.Detail
}

var _ odbcerr.DBDriverError = (*driverError)(nil)

func (e driverError) Is(err error) bool {
	return err == odbcerr.DriverError
}

func (e driverError) Unwrap() error {
	return e.err
}

func (e driverError) Detail() odbcerr.Detail {
	return e.detail
}

func (e driverError) SqlState() string {
	return e.detail.SqlState()
}

func (e driverError) NativeCode() int32 {
	return e.detail.NativeCode()
}

func (e driverError) InvalidHandle() bool {
	return e.detail.ReturnCode == native.InvalidHandle
}

func NewDriverError(ctx context.Context, msg string, detail odbcerr.Detail) *driverError {
	dbErr := newODBCError(ctx, msg, errors.New(detail.String()))
	dbErr.errType = "driver error"
	return &driverError{odbcError: dbErr, detail: detail}
}

// warning is a native call that succeeded with information or found no data.
type warning struct {
	odbcError
	detail odbcerr.Detail
}

var _ odbcerr.DBWarning = (*warning)(nil)

func (e warning) Is(err error) bool {
	return err == odbcerr.DriverWarning
}

func (e warning) Unwrap() error {
	return e.err
}

func (e warning) Detail() odbcerr.Detail {
	return e.detail
}

func (e warning) SqlState() string {
	return e.detail.SqlState()
}

func (e warning) NativeCode() int32 {
	return e.detail.NativeCode()
}

func (e warning) NoData() bool {
	return e.detail.ReturnCode == native.NoData
}

func NewWarning(ctx context.Context, msg string, detail odbcerr.Detail) *warning {
	dbErr := newODBCError(ctx, msg, errors.New(detail.String()))
	dbErr.errType = "warning"
	return &warning{odbcError: dbErr, detail: detail}
}

// invalidArgument is a local validation failure. It never carries driver
// diagnostics.
type invalidArgument struct {
	odbcError
	argument string
}

var _ odbcerr.DBInvalidArgument = (*invalidArgument)(nil)

func (e invalidArgument) Is(err error) bool {
	return err == odbcerr.InvalidArgument
}

func (e invalidArgument) Unwrap() error {
	return e.err
}

func (e invalidArgument) Argument() string {
	return e.argument
}

func NewInvalidArgument(ctx context.Context, argument string, msg string, err error) *invalidArgument {
	dbErr := newODBCError(ctx, msg, err)
	dbErr.errType = "invalid argument"
	return &invalidArgument{odbcError: dbErr, argument: argument}
}

// systemFault are issues with the driver usage, e.g. a closed connection or
// an interrupted execution
type systemFault struct {
	odbcError
	isRetryable bool
}

var _ odbcerr.DBSystemFault = (*systemFault)(nil)

func (e systemFault) Is(err error) bool {
	return err == odbcerr.SystemFault
}

func (e systemFault) Unwrap() error {
	return e.err
}

func (e systemFault) IsRetryable() bool {
	return e.isRetryable
}

func NewSystemFault(ctx context.Context, msg string, err error) *systemFault {
	dbErr := newODBCError(ctx, msg, err)
	dbErr.errType = "system fault"
	return &systemFault{odbcError: dbErr, isRetryable: false}
}

// NewRetryableSystemFault is a system fault the caller may retry, such as a
// cancelled or timed out execution.
func NewRetryableSystemFault(ctx context.Context, msg string, err error) *systemFault {
	e := NewSystemFault(ctx, msg, err)
	e.isRetryable = true
	return e
}

// wraps an error and adds trace if not already present
func WrapErr(err error, msg string) error {
	var st stackTracer
	if ok := errors.As(err, &st); ok {
		// wrap passed in error in a new error with the message
		return errors.WithMessage(err, msg)
	}

	// wrap passed in error in errors with the message and a stack trace
	return errors.Wrap(err, msg)
}

// adds a stack trace if not already present
func WrapErrf(err error, format string, args ...interface{}) error {
	var st stackTracer
	if ok := errors.As(err, &st); ok {
		// wrap passed in error in a new error with the formatted message
		return errors.WithMessagef(err, format, args...)
	}

	// wrap passed in error in errors with the formatted message and a stack trace
	return errors.Wrapf(err, format, args...)
}
