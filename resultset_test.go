package odbc

import (
	"context"
	"testing"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/pkg/errors"
	odbcerr "github.com/sqlbridge/odbc/errors"
	"github.com/sqlbridge/odbc/internal/nativetest"
	"github.com/sqlbridge/odbc/native"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewResultSet(t *testing.T) {
	ctx := context.Background()

	t.Run("forward-only cursors get a forward-only result set", func(t *testing.T) {
		api := nativetest.New()
		conn := newTestConn(t, api)

		stmt := conn.Tables("", "sales", "", "")
		defer stmt.Free(ctx)
		rs, err := NewResultSet(ctx, stmt)
		require.NoError(t, err)
		assert.IsType(t, &ForwardOnlyResultSet{}, rs)
		assert.True(t, stmt.Executed())
		assert.Same(t, stmt, rs.Statement())
	})

	t.Run("every other cursor type gets a scrollable result set", func(t *testing.T) {
		for _, name := range []string{"static", "keysetDriven", "dynamic"} {
			api := nativetest.New()
			conn := newTestConn(t, api)

			stmt := conn.Tables("", "", "", "")
			require.NoError(t, stmt.SetCursorType(ctx, name))
			rs, err := NewResultSet(ctx, stmt)
			require.NoError(t, err, name)
			assert.IsType(t, &ScrollableResultSet{}, rs, name)
			require.NoError(t, stmt.Free(ctx))
		}
	})

	t.Run("execution errors are returned", func(t *testing.T) {
		api := nativetest.New()
		api.FnExecute = func(stmt native.Handle, call string, args []string) native.Return {
			return api.Fail(stmt, "42000", "Syntax error or access violation")
		}
		conn := newTestConn(t, api)

		stmt := conn.SQL("selec 1")
		defer stmt.Free(ctx)
		rs, err := NewResultSet(ctx, stmt)
		require.Error(t, err)
		assert.Nil(t, rs)
		assert.True(t, hasSqlState(err, "42000"))
	})
}

func TestForwardOnlyResultSet(t *testing.T) {
	ctx := context.Background()
	api := nativetest.New()
	api.Rows = 3
	api.AffectedRows = -1
	api.ResultColumns = testColumns()
	var warnings []error
	conn := newTestConn(t, api, WithWarningHandler(func(err error) { warnings = append(warnings, err) }))

	stmt := conn.Columns("", "", "orders", "")
	defer stmt.Free(ctx)
	rs, err := NewResultSet(ctx, stmt)
	require.NoError(t, err)

	rows := 0
	for {
		ok, err := rs.Next(ctx)
		require.NoError(t, err)
		if !ok {
			break
		}
		rows++
	}
	assert.Equal(t, 3, rows)
	// the end of the data is not a warning
	assert.Empty(t, warnings)
	assert.Empty(t, stmt.Warnings())

	n, err := rs.RowsAffected(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), n)

	cols, err := rs.Columns(ctx)
	require.NoError(t, err)
	require.Len(t, cols, 3)
	assert.Equal(t, "id", cols[0].Name)
	assert.Equal(t, "amount", cols[2].Name)

	require.NoError(t, rs.Close(ctx))
	assert.False(t, stmt.Executed())
	_, err = rs.Next(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, odbcerr.SystemFault))
}

func TestScrollableResultSet(t *testing.T) {
	ctx := context.Background()
	api := nativetest.New()
	api.Rows = 5
	conn := newTestConn(t, api)

	stmt := conn.SQL("select * from t")
	defer stmt.Free(ctx)
	res, err := NewResultSet(ctx, stmt)
	require.NoError(t, err)
	rs := res.(*ScrollableResultSet)

	move := func(fn func() (bool, error), want bool, pos int64) {
		t.Helper()
		ok, err := fn()
		require.NoError(t, err)
		assert.Equal(t, want, ok)
		if want {
			assert.Equal(t, pos, api.Position(stmt.handle))
		}
	}
	move(func() (bool, error) { return rs.Last(ctx) }, true, 5)
	move(func() (bool, error) { return rs.Prior(ctx) }, true, 4)
	move(func() (bool, error) { return rs.First(ctx) }, true, 1)
	move(func() (bool, error) { return rs.Prior(ctx) }, false, 0)
	move(func() (bool, error) { return rs.Next(ctx) }, true, 1)
	move(func() (bool, error) { return rs.Absolute(ctx, 3) }, true, 3)
	move(func() (bool, error) { return rs.Absolute(ctx, -2) }, true, 4)
	move(func() (bool, error) { return rs.Relative(ctx, -3) }, true, 1)
	move(func() (bool, error) { return rs.Relative(ctx, 10) }, false, 0)

	move(func() (bool, error) { return rs.First(ctx) }, true, 1)
	require.NoError(t, rs.MoveTo(ctx, 1))
	assert.Empty(t, stmt.Warnings())
}

func TestStatement_Schema(t *testing.T) {
	ctx := context.Background()
	api := nativetest.New()
	api.ResultColumns = []nativetest.Column{
		{Name: "id", Type: native.TypeBigInt, Size: 19, Nullable: native.NoNulls},
		{Name: "name", Type: native.TypeWVarChar, Size: 32, Nullable: native.Nullable, OctetLength: 64},
		{Name: "price", Type: native.TypeDecimal, Size: 12, Digits: 2, Nullable: native.Nullable, OctetLength: 14},
		{Name: "huge", Type: native.TypeNumeric, Size: 60, Nullable: native.Nullable, OctetLength: 62},
		{Name: "created", Type: native.TypeTypeTimestamp, Size: 26, Digits: 6, Nullable: native.NullableUnknown},
		{Name: "active", Type: native.TypeBit, Size: 1, Nullable: native.NoNulls},
		{Name: "payload", Type: native.TypeVarBinary, Size: 256, Nullable: native.Nullable, OctetLength: 256},
	}
	conn := newTestConn(t, api)

	stmt := conn.SQL("select * from products")
	defer stmt.Free(ctx)
	schema, err := stmt.Schema(ctx)
	require.NoError(t, err)
	require.Len(t, schema.Fields(), 7)

	want := []struct {
		name     string
		typ      arrow.DataType
		nullable bool
	}{
		{"id", arrow.PrimitiveTypes.Int64, false},
		{"name", arrow.BinaryTypes.String, true},
		{"price", &arrow.Decimal128Type{Precision: 12, Scale: 2}, true},
		{"huge", arrow.BinaryTypes.String, true},
		{"created", arrow.FixedWidthTypes.Timestamp_us, true},
		{"active", arrow.FixedWidthTypes.Boolean, false},
		{"payload", arrow.BinaryTypes.Binary, true},
	}
	for i, w := range want {
		f := schema.Field(i)
		assert.Equal(t, w.name, f.Name)
		assert.True(t, arrow.TypeEqual(w.typ, f.Type), "%s: %s", w.name, f.Type)
		assert.Equal(t, w.nullable, f.Nullable, w.name)
	}

	md := schema.Field(1).Metadata
	v, ok := md.GetValue(MetadataSQLType)
	require.True(t, ok)
	assert.Equal(t, "WVARCHAR", v)
	v, _ = md.GetValue(MetadataLength)
	assert.Equal(t, "64", v)
	v, _ = schema.Field(2).Metadata.GetValue(MetadataScale)
	assert.Equal(t, "2", v)
}

func TestResultSet_WarningsAreBounded(t *testing.T) {
	ctx := context.Background()
	api := nativetest.New()
	api.Rows = 3 * maxStatementWarnings
	api.FnFetch = func(stmt native.Handle) native.Return {
		return api.Warn(stmt, "01004", "String data, right truncated")
	}
	delivered := 0
	conn := newTestConn(t, api, WithWarningHandler(func(error) { delivered++ }))

	stmt := conn.Tables("", "", "", "")
	defer stmt.Free(ctx)
	rs, err := NewResultSet(ctx, stmt)
	require.NoError(t, err)

	rows := 0
	for {
		ok, err := rs.Next(ctx)
		require.NoError(t, err)
		if !ok {
			break
		}
		rows++
	}
	assert.Equal(t, 3*maxStatementWarnings, rows)
	// every warning reaches the handler, the statement keeps the latest
	assert.Equal(t, 3*maxStatementWarnings, delivered)
	assert.Len(t, stmt.Warnings(), maxStatementWarnings)
}
