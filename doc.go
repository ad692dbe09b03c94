/*
Package odbc implements the statement lifecycle of an ODBC client: lazy
allocation of statement handles, lazy execution, classification of driver
status codes into warnings and errors, column description and the release
of every statement handle exactly once.

The package does not call the driver manager itself. It drives a
native.API, which a binding (cgo against unixODBC or odbc32.dll, or the
in-memory internal/nativetest for tests) implements.

# Connecting

	conn, err := odbc.Open(ctx, api, "DSN=warehouse;UID=scott;PWD=tiger")
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close(ctx)

The DSN is either an ODBC connection string, passed to SQLDriverConnect as
is, or a URL:

	odbc://[user[:password]@]dsn?param=value

Supported optional parameters:

  - connectionString: ODBC connection string, replaces the one built from the URL
  - encoding: character set of the native API: utf8 (default), utf16le for the wide API, windows1252
  - maxColumnNameLength: overrides SQL_MAX_COLUMN_NAME_LEN reported by the driver
  - lengthField: octet (default) or legacy, the SQLColAttribute field asked for transfer lengths
  - maxOptionStringLength: buffer size for string statement attributes. Default is 256
  - timeout: cancels executions running longer, in seconds or as a Go duration. Default is no timeout

OpenFromEnv reads the same settings from ODBC_CONNECTION_STRING,
ODBC_ENCODING, ODBC_MAX_COLUMN_NAME_LENGTH, ODBC_LENGTH_FIELD,
ODBC_MAX_OPTION_STRING_LENGTH and ODBC_QUERY_TIMEOUT, optionally loaded
from dotenv files. Options such as WithQueryTimeout and WithWarningHandler
apply on top of either.

# Statements

A statement is created by its connection and holds no native resource
until it is used. Every statement must be freed:

	stmt := conn.SQL("select id, name from users")
	defer stmt.Free(ctx)

	cols, err := stmt.DescribeColumns(ctx, 2, 1)

or, equivalently:

	err := conn.WithStatement(ctx, odbc.Tables{Schema: "sales"}, func(stmt *odbc.Statement) error {
		rs, err := odbc.NewResultSet(ctx, stmt)
		...
	})

Catalog statements (Tables, Columns, PrimaryKeys, ...) start with a
forward-only cursor, SQL text with a static cursor. SetCursorType changes
it. Before the statement is allocated the cursor type is only recorded;
afterwards it is applied at once and a driver refusing it is an error.
Close ends an execution and keeps the handle, Free releases the handle.

Statements that become unreachable without Free have their handle released
by the runtime eventually. Conn.ReclaimAbandoned releases the handles of
statements already collected, Conn.Close releases every remaining one.

# Errors

Errors are defined in the errors package. Use errors.Is with
errors.DriverError, errors.InvalidArgument or errors.SystemFault to tell
them apart and errors.As with errors.DBDriverError for the SQLSTATE and
diagnostic records.

Driver warnings (SQL_SUCCESS_WITH_INFO and SQL_NO_DATA) do not fail the
operation. They are logged at warn level, or passed to the handler set with
WithWarningHandler, and Statement.Warnings returns those of the last
execution.

# Logging

Logging uses zerolog through the logger package, at warn level by default:

	logger.SetLogLevel("debug")

Log messages carry the connection id (connId), the statement id (stmtId) and
the correlation id (corrId) set with driverctx.NewContextWithCorrelationId.
*/
package odbc
