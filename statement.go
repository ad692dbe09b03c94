package odbc

import (
	"context"
	"encoding/binary"
	"runtime"

	"github.com/sqlbridge/odbc/driverctx"
	dbsqlerrint "github.com/sqlbridge/odbc/internal/errors"
	"github.com/sqlbridge/odbc/internal/sentinel"
	"github.com/sqlbridge/odbc/logger"
	"github.com/sqlbridge/odbc/native"
)

// Statement is one executable command on a connection: SQL text or a catalog
// query, depending on its Variant.
//
// The native statement handle is allocated on first use and the command is
// executed the first time a result is needed, see AllocatedHandle and
// ExecutedHandle. Close keeps the handle for another execution, Free
// releases it; a freed statement can be used again. Callers should
//
//	stmt := conn.SQL("select 1")
//	defer stmt.Free(ctx)
//
// A statement must not be used from several goroutines at once.
type Statement struct {
	conn    *Conn
	variant Variant
	id      string

	handle     native.Handle
	executed   bool
	cursorType CursorType

	// registration of handle with conn, see allocateStatementHandle
	seq     uint64
	cleanup runtime.Cleanup

	warnings []error
}

// ID identifies the statement in log messages and errors.
func (s *Statement) ID() string {
	return s.id
}

// Conn is the connection the statement was created by.
func (s *Statement) Conn() *Conn {
	return s.conn
}

// Variant is the command the statement executes.
func (s *Statement) Variant() Variant {
	return s.variant
}

// Allocated reports whether the statement holds a native handle.
func (s *Statement) Allocated() bool {
	return s.handle != native.NullHandle && s.conn.holds(s.handle, s.seq)
}

// Executed reports whether the command was executed and not closed since.
func (s *Statement) Executed() bool {
	return s.executed
}

// Warnings returns the most recent driver warnings reported since the
// statement was last executed.
func (s *Statement) Warnings() []error {
	return s.warnings
}

func (s *Statement) context(ctx context.Context) context.Context {
	if driverctx.StatementIdFromContext(ctx) == s.id {
		return ctx
	}
	return driverctx.NewContextWithStatementId(s.conn.context(ctx), s.id)
}

// detach forgets a handle the connection released on the statement's
// behalf, as Close does, leaving the statement unallocated. It reports
// whether it did.
func (s *Statement) detach(ctx context.Context) bool {
	if s.handle == native.NullHandle || s.conn.holds(s.handle, s.seq) {
		return false
	}
	logger.Ctx(s.context(ctx)).Debug().Msgf("odbc: statement handle %#x was released by the connection", uintptr(s.handle))
	s.cleanup.Stop()
	s.handle = native.NullHandle
	s.executed = false
	s.seq = 0
	s.cleanup = runtime.Cleanup{}
	return true
}

// check classifies the status of a call on the statement handle. Warnings
// go to the connection's warning sink and are recorded on the statement;
// only errors are returned.
func (s *Statement) check(ctx context.Context, ret native.Return, op string) error {
	err := s.conn.classify(ctx, ret, native.HandleStmt, s.handle, op)
	if isWarning(err) {
		s.recordWarning(ctx, err)
		return nil
	}
	return err
}

// maxStatementWarnings bounds the warnings kept on a statement; a result
// warning on every fetched row keeps only the most recent ones.
const maxStatementWarnings = 64

func (s *Statement) recordWarning(ctx context.Context, err error) {
	if len(s.warnings) == maxStatementWarnings {
		s.warnings = append(s.warnings[:0], s.warnings[1:]...)
	}
	s.warnings = append(s.warnings, err)
	s.conn.warn(ctx, err)
}

// AllocatedHandle returns the native handle, allocating it first if needed.
// On a new handle the cursor type is applied; a driver refusing it does not
// fail the allocation, the refusal is only logged.
func (s *Statement) AllocatedHandle(ctx context.Context) (native.Handle, error) {
	if s.handle != native.NullHandle && !s.detach(ctx) {
		return s.handle, nil
	}
	ctx = s.context(ctx)

	h, err := s.conn.allocateStatementHandle(ctx, s)
	if err != nil {
		return native.NullHandle, err
	}
	s.handle = h
	s.executed = false

	if err := s.applyCursorType(ctx); err != nil {
		logger.Ctx(ctx).Debug().Err(err).Msgf("odbc: cursor type %s not applied", s.cursorType)
	}
	return h, nil
}

// ExecutedHandle returns the native handle after executing the command if it
// was not executed yet. A warning, including SQL_NO_DATA, still counts as a
// successful execution.
//
// When ctx is done or the connection's query timeout elapses during the
// execution, SQLCancel is issued and ExecutedHandle waits for the execution
// to return. The result is a retryable system fault; if the driver finished
// the execution anyway the statement counts as executed.
func (s *Statement) ExecutedHandle(ctx context.Context) (native.Handle, error) {
	h, err := s.AllocatedHandle(ctx)
	if err != nil {
		return native.NullHandle, err
	}
	if s.executed {
		return h, nil
	}
	ctx = s.context(ctx)
	log := logger.Ctx(ctx)
	defer log.Duration(log.Track("execute"))

	s.warnings = nil
	status, res, interrupt := s.execute(ctx, h)
	if res.err != nil {
		return native.NullHandle, res.err
	}
	if err := s.check(ctx, res.ret, operation(s.variant)); err != nil {
		if status != sentinel.WatchSuccess {
			return native.NullHandle, dbsqlerrint.WrapErr(err, dbsqlerrint.ErrExecutionInterrupted)
		}
		return native.NullHandle, err
	}
	s.executed = true
	if status != sentinel.WatchSuccess {
		return native.NullHandle, dbsqlerrint.NewRetryableSystemFault(ctx, dbsqlerrint.ErrExecutionInterrupted, interrupt)
	}
	return h, nil
}

type execResult struct {
	ret native.Return
	err error
}

// execute runs the variant's execute call. Without a deadline, a
// cancellable ctx or a query timeout it is called directly, otherwise it is
// supervised so that it can be cancelled.
func (s *Statement) execute(ctx context.Context, h native.Handle) (sentinel.WatchStatus, execResult, error) {
	call := func() execResult {
		ret, err := s.variant.ExecuteStatement(s.conn.api, h, s.conn.codec)
		return execResult{ret: ret, err: err}
	}
	timeout := s.conn.cfg.QueryTimeout
	if ctx.Done() == nil && timeout == 0 {
		return sentinel.WatchSuccess, call(), nil
	}

	watcher := sentinel.Sentinel[execResult]{
		CallFn: call,
		OnCancelFn: func() {
			cctx := driverctx.NewContextFromBackground(ctx)
			log := logger.Ctx(cctx)
			log.Info().Msg("odbc: cancelling execution")
			if err := s.conn.check(cctx, s.conn.api.Cancel(h), native.HandleStmt, h, "SQLCancel"); err != nil {
				log.Warn().Err(err).Msg("odbc: cancel request rejected")
			}
		},
	}
	return watcher.Watch(ctx, s.conn.cfg.CancelPollInterval, timeout)
}

// Close ends the current execution and keeps the handle, the next use
// executes the command again. Closing a statement that is not executed does
// nothing.
func (s *Statement) Close(ctx context.Context) error {
	if s.detach(ctx) || !s.executed {
		return nil
	}
	// cleared first so a failed close does not leave the statement executed
	s.executed = false
	if s.handle == native.NullHandle {
		return nil
	}
	ctx = s.context(ctx)
	// SQL_CLOSE, unlike SQLCloseCursor, accepts a cursor that is already closed
	return s.check(ctx, s.conn.api.FreeStmt(s.handle, native.FreeClose), "SQLFreeStmt")
}

// Free releases the native handle. The statement is unallocated afterwards
// even when the driver reports an error, and can be used again. Freeing an
// unallocated statement does nothing.
func (s *Statement) Free(ctx context.Context) error {
	if s.handle == native.NullHandle {
		return nil
	}
	defer func() {
		s.handle = native.NullHandle
		s.executed = false
		s.seq = 0
		s.cleanup = runtime.Cleanup{}
	}()
	return s.conn.freeStatementHandle(s.context(ctx), s)
}

// Cancel asks the driver to cancel the execution in progress on the
// statement. The driver may accept the request without stopping right away.
func (s *Statement) Cancel(ctx context.Context) error {
	if s.detach(ctx) || !s.executed {
		return nil
	}
	if s.handle == native.NullHandle {
		s.executed = false
		return nil
	}
	ctx = s.context(ctx)
	return s.check(ctx, s.conn.api.Cancel(s.handle), "SQLCancel")
}

// NumColumns is the number of columns of the result, executing the command
// if needed.
func (s *Statement) NumColumns(ctx context.Context) (int, error) {
	h, err := s.ExecutedHandle(ctx)
	if err != nil {
		return 0, err
	}
	ctx = s.context(ctx)
	var n int16
	if err := s.check(ctx, s.conn.api.NumResultCols(h, &n), "SQLNumResultCols"); err != nil {
		return 0, err
	}
	return int(n), nil
}

// NumRows is the number of rows affected by the command, executing it if
// needed. -1 means the driver cannot tell.
func (s *Statement) NumRows(ctx context.Context) (int64, error) {
	h, err := s.ExecutedHandle(ctx)
	if err != nil {
		return 0, err
	}
	ctx = s.context(ctx)
	var n int64
	if err := s.check(ctx, s.conn.api.RowCount(h, &n), "SQLRowCount"); err != nil {
		return 0, err
	}
	return n, nil
}

// MoveTo positions the cursor on row of the current rowset with SQLSetPos.
// The driver must support SQL_POSITION.
func (s *Statement) MoveTo(ctx context.Context, row int) error {
	if row < 1 {
		return dbsqlerrint.NewInvalidArgument(s.context(ctx), "row", dbsqlerrint.ErrInvalidRowNumber, nil)
	}
	h, err := s.ExecutedHandle(ctx)
	if err != nil {
		return err
	}
	ctx = s.context(ctx)
	return s.check(ctx, s.conn.api.SetPos(h, uint64(row), native.PosPosition, native.LockNoChange), "SQLSetPos")
}

// DriverHandle returns the driver's own handle behind the driver manager's
// statement handle (SQL_DRIVER_HSTMT), for calling driver specific
// extensions.
func (s *Statement) DriverHandle(ctx context.Context) (uintptr, error) {
	h, err := s.AllocatedHandle(ctx)
	if err != nil {
		return 0, err
	}
	ctx = s.context(ctx)
	buf := make([]byte, 8)
	binary.NativeEndian.PutUint64(buf, uint64(h))
	c := s.conn
	if err := c.check(ctx, c.api.GetInfo(c.dbc, native.InfoDriverHstmt, buf, nil), native.HandleDbc, c.dbc, "SQLGetInfo"); err != nil {
		return 0, err
	}
	return uintptr(binary.NativeEndian.Uint64(buf)), nil
}
