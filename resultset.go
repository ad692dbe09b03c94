package odbc

import (
	"context"

	"github.com/apache/arrow/go/v12/arrow"
	dbsqlerrint "github.com/sqlbridge/odbc/internal/errors"
	"github.com/sqlbridge/odbc/native"
)

// ResultSet navigates the result of an executed statement. Values are not
// fetched into Go, a result set only moves the cursor of the statement,
// typically for a binding layer reading bound buffers after each move.
type ResultSet interface {
	// Statement is the statement the result set reads from.
	Statement() *Statement
	// Columns describes every column of the result.
	Columns(ctx context.Context) ([]ColumnDescriptor, error)
	// Schema is Columns as an arrow schema.
	Schema(ctx context.Context) (*arrow.Schema, error)
	// RowsAffected is the row count reported by the driver, -1 if unknown.
	RowsAffected(ctx context.Context) (int64, error)
	// Next moves to the next row and reports false at the end of the data.
	Next(ctx context.Context) (bool, error)
	// Close closes the cursor. The statement keeps its handle.
	Close(ctx context.Context) error
}

// NewResultSet executes stmt if needed and returns a result set over its
// result: a ForwardOnlyResultSet for a forward-only cursor, a
// ScrollableResultSet for any other cursor type.
func NewResultSet(ctx context.Context, stmt *Statement) (ResultSet, error) {
	if _, err := stmt.ExecutedHandle(ctx); err != nil {
		return nil, err
	}
	rs := resultSet{stmt: stmt}
	if stmt.CursorType() == CursorForwardOnly {
		return &ForwardOnlyResultSet{rs}, nil
	}
	return &ScrollableResultSet{rs}, nil
}

type resultSet struct {
	stmt *Statement
}

func (rs *resultSet) Statement() *Statement {
	return rs.stmt
}

func (rs *resultSet) Columns(ctx context.Context) ([]ColumnDescriptor, error) {
	return rs.stmt.describeAll(ctx)
}

func (rs *resultSet) Schema(ctx context.Context) (*arrow.Schema, error) {
	return rs.stmt.Schema(ctx)
}

func (rs *resultSet) RowsAffected(ctx context.Context) (int64, error) {
	return rs.stmt.NumRows(ctx)
}

func (rs *resultSet) Close(ctx context.Context) error {
	return rs.stmt.Close(ctx)
}

// fetch moves the cursor with SQLFetchScroll. Moving past either end of the
// result reports false; that SQL_NO_DATA is the normal end of the data and
// not a warning.
func (rs *resultSet) fetch(ctx context.Context, orientation native.FetchOrientation, offset int64) (bool, error) {
	s := rs.stmt
	ctx = s.context(ctx)
	if s.detach(ctx) || !s.executed {
		return false, dbsqlerrint.NewSystemFault(ctx, dbsqlerrint.ErrNotExecuted, nil)
	}
	err := s.conn.classify(ctx, s.conn.api.FetchScroll(s.handle, orientation, offset), native.HandleStmt, s.handle, "SQLFetchScroll")
	switch {
	case err == nil:
		return true, nil
	case isNoData(err):
		return false, nil
	case isWarning(err):
		s.recordWarning(ctx, err)
		return true, nil
	}
	return false, err
}

// ForwardOnlyResultSet reads the result once, front to back.
type ForwardOnlyResultSet struct {
	resultSet
}

var _ ResultSet = (*ForwardOnlyResultSet)(nil)

func (rs *ForwardOnlyResultSet) Next(ctx context.Context) (bool, error) {
	return rs.fetch(ctx, native.FetchNext, 0)
}

// ScrollableResultSet moves freely over the result.
type ScrollableResultSet struct {
	resultSet
}

var _ ResultSet = (*ScrollableResultSet)(nil)

func (rs *ScrollableResultSet) Next(ctx context.Context) (bool, error) {
	return rs.fetch(ctx, native.FetchNext, 0)
}

// Prior moves to the previous row and reports false before the first row.
func (rs *ScrollableResultSet) Prior(ctx context.Context) (bool, error) {
	return rs.fetch(ctx, native.FetchPrior, 0)
}

// First moves to the first row and reports false for an empty result.
func (rs *ScrollableResultSet) First(ctx context.Context) (bool, error) {
	return rs.fetch(ctx, native.FetchFirst, 0)
}

// Last moves to the last row and reports false for an empty result.
func (rs *ScrollableResultSet) Last(ctx context.Context) (bool, error) {
	return rs.fetch(ctx, native.FetchLast, 0)
}

// Absolute moves to row, counted from the end when negative.
func (rs *ScrollableResultSet) Absolute(ctx context.Context, row int64) (bool, error) {
	return rs.fetch(ctx, native.FetchAbsolute, row)
}

// Relative moves offset rows from the current row.
func (rs *ScrollableResultSet) Relative(ctx context.Context, offset int64) (bool, error) {
	return rs.fetch(ctx, native.FetchRelative, offset)
}

// MoveTo positions the cursor on row of the current rowset, see
// Statement.MoveTo.
func (rs *ScrollableResultSet) MoveTo(ctx context.Context, row int) error {
	return rs.stmt.MoveTo(ctx, row)
}
