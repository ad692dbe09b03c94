package odbc

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/apache/arrow/go/v12/arrow/memory"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sqlbridge/odbc/driverctx"
	"github.com/sqlbridge/odbc/internal/config"
	dbsqlerrint "github.com/sqlbridge/odbc/internal/errors"
	"github.com/sqlbridge/odbc/logger"
	"github.com/sqlbridge/odbc/native"
)

// Conn is an open ODBC connection. It owns the environment and connection
// handles and hands out statement handles to the statements it creates.
//
// A Conn may be shared between goroutines, the statements it creates may
// not.
type Conn struct {
	api   native.API
	cfg   *config.Config
	codec native.Codec
	id    string

	env native.Handle
	dbc native.Handle

	maxColumnNameLength int
	driverName          string
	dbmsName            string
	stmtSeq             atomic.Uint64

	mu sync.Mutex
	// field used to ask for transfer lengths. Describe switches it to
	// SQL_COLUMN_LENGTH for the lifetime of the connection when the driver
	// manager rejects SQL_DESC_OCTET_LENGTH.
	lengthField native.FieldIdentifier
	// statement handles allocated and not yet freed
	statements map[native.Handle]registration
	regSeq     uint64
	closed     bool
}

// Open parses dsn (see config.ParseDSN), applies opts and connects through
// api.
func Open(ctx context.Context, api native.API, dsn string, opts ...ConnOption) (*Conn, error) {
	cfg, err := config.ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	return connect(ctx, api, cfg, opts)
}

// OpenFromEnv connects with the configuration found in ODBC_* environment
// variables, optionally read from dotenv files.
func OpenFromEnv(ctx context.Context, api native.API, files []string, opts ...ConnOption) (*Conn, error) {
	cfg, err := config.LoadEnv(files...)
	if err != nil {
		return nil, err
	}
	return connect(ctx, api, cfg, opts)
}

func connect(ctx context.Context, api native.API, cfg *config.Config, opts []ConnOption) (*Conn, error) {
	for _, opt := range opts {
		opt(cfg)
	}

	codec, err := native.LookupCodec(cfg.Encoding)
	if err != nil {
		return nil, dbsqlerrint.NewInvalidArgument(ctx, config.ParamEncoding, dbsqlerrint.ErrUnknownEncoding, err)
	}

	c := &Conn{
		api:         api,
		cfg:         cfg,
		codec:       codec,
		id:          uuid.NewString(),
		lengthField: cfg.ColumnLengthField,
		statements:  make(map[native.Handle]registration),
	}
	ctx = c.context(ctx)
	log := logger.Ctx(ctx)
	defer log.Duration(log.Track("connect"))

	ret := api.AllocHandle(native.HandleEnv, native.NullHandle, &c.env)
	if err := c.check(ctx, ret, native.HandleEnv, c.env, "SQLAllocHandle"); err != nil {
		return nil, dbsqlerrint.WrapErr(err, dbsqlerrint.ErrAllocEnv)
	}

	ret = api.SetEnvAttr(c.env, native.AttrODBCVersion, native.OVODBC3, 0)
	if err := c.check(ctx, ret, native.HandleEnv, c.env, "SQLSetEnvAttr"); err != nil {
		c.release(ctx)
		return nil, dbsqlerrint.WrapErr(err, dbsqlerrint.ErrAllocEnv)
	}

	ret = api.AllocHandle(native.HandleDbc, c.env, &c.dbc)
	if err := c.check(ctx, ret, native.HandleEnv, c.env, "SQLAllocHandle"); err != nil {
		c.release(ctx)
		return nil, dbsqlerrint.WrapErr(err, dbsqlerrint.ErrAllocConn)
	}

	connStr, err := codec.Encode(cfg.ConnectionString)
	if err != nil {
		c.release(ctx)
		return nil, dbsqlerrint.NewInvalidArgument(ctx, config.ParamConnectionString, dbsqlerrint.ErrInvalidDSN, err)
	}
	ret = api.DriverConnect(c.dbc, connStr)
	if err := c.check(ctx, ret, native.HandleDbc, c.dbc, "SQLDriverConnect"); err != nil {
		c.release(ctx)
		return nil, dbsqlerrint.WrapErr(err, dbsqlerrint.ErrDriverConnect)
	}

	c.maxColumnNameLength = cfg.MaxColumnNameLength.Resolve(ctx,
		config.DriverResolverFunc[int](c.driverMaxColumnNameLength),
		config.DefaultMaxColumnNameLength)

	c.driverName = c.info(ctx, native.InfoDriverName)
	c.dbmsName = c.info(ctx, native.InfoDBMSName)

	log.Info().
		Str("client", cfg.DriverName+"/"+cfg.DriverVersion).
		Str("driver", c.driverName).
		Str("dbms", c.dbmsName).
		Msgf("odbc: connected, encoding %s, max column name length %d", codec.Name(), c.maxColumnNameLength)
	return c, nil
}

// driverMaxColumnNameLength asks for SQL_MAX_COLUMN_NAME_LEN. Zero means the
// driver has no fixed limit, which is reported as an error so the default
// applies.
func (c *Conn) driverMaxColumnNameLength(ctx context.Context) (int, error) {
	buf := make([]byte, 2)
	ret := c.api.GetInfo(c.dbc, native.InfoMaxColumnNameLen, buf, nil)
	if err := c.check(ctx, ret, native.HandleDbc, c.dbc, "SQLGetInfo"); err != nil {
		logger.Ctx(ctx).Debug().Err(err).Msg("odbc: SQL_MAX_COLUMN_NAME_LEN not available")
		return 0, err
	}
	n := int(binary.NativeEndian.Uint16(buf))
	if n == 0 {
		return 0, errors.New("driver reports no column name limit")
	}
	return n, nil
}

// initialInfoLen is the size, in characters, of the first buffer for a
// character SQLGetInfo value.
const initialInfoLen = 128

// info reads a character SQLGetInfo value. It is informational: a failure
// is logged and yields "".
func (c *Conn) info(ctx context.Context, info native.InfoType) string {
	alloc := c.cfg.Allocator
	width := c.codec.CharWidth()
	capacity := (initialInfoLen + 1) * width
	buf := alloc.Allocate(capacity)
	defer func() { alloc.Free(buf) }()

	var n int16
	get := func() native.Return {
		memory.Set(buf, 0)
		return c.api.GetInfo(c.dbc, info, buf, &n)
	}
	ret := get()
	if (ret == native.Success || ret == native.SuccessWithInfo) && int(n)+width > capacity {
		capacity = int(n) + width
		buf = alloc.Reallocate(capacity, buf)
		ret = get()
	}
	if err := c.check(ctx, ret, native.HandleDbc, c.dbc, "SQLGetInfo"); err != nil {
		logger.Ctx(ctx).Debug().Err(err).Msgf("odbc: info type %d not available", info)
		return ""
	}
	v, err := c.codec.Decode(buf[:min(max(int(n), 0), capacity-width)])
	if err != nil {
		logger.Ctx(ctx).Debug().Err(err).Msgf("odbc: info type %d not decodable", info)
		return ""
	}
	return v
}

// release frees the connection and environment handles after a failed
// connect. Failures are only logged.
func (c *Conn) release(ctx context.Context) {
	if c.dbc != native.NullHandle {
		if err := c.check(ctx, c.api.FreeHandle(native.HandleDbc, c.dbc), native.HandleDbc, c.dbc, "SQLFreeHandle"); err != nil {
			logger.Ctx(ctx).Debug().Err(err).Msg("odbc: failed to free connection handle")
		}
		c.dbc = native.NullHandle
	}
	if c.env != native.NullHandle {
		if err := c.check(ctx, c.api.FreeHandle(native.HandleEnv, c.env), native.HandleEnv, c.env, "SQLFreeHandle"); err != nil {
			logger.Ctx(ctx).Debug().Err(err).Msg("odbc: failed to free environment handle")
		}
		c.env = native.NullHandle
	}
}

// ID identifies the connection in log messages and errors.
func (c *Conn) ID() string {
	return c.id
}

func (c *Conn) context(ctx context.Context) context.Context {
	return driverctx.NewContextWithConnId(ctx, c.id)
}

// DriverName is the file name of the ODBC driver (SQL_DRIVER_NAME), empty if
// the driver manager could not tell.
func (c *Conn) DriverName() string {
	return c.driverName
}

// DBMSName is the product name of the data source (SQL_DBMS_NAME).
func (c *Conn) DBMSName() string {
	return c.dbmsName
}

// MaxColumnNameLength is the name length, in characters, the describe buffer
// is first sized for.
func (c *Conn) MaxColumnNameLength() int {
	return c.maxColumnNameLength
}

// ColumnLengthField is the SQLColAttribute field used to ask for transfer
// lengths.
func (c *Conn) ColumnLengthField() native.FieldIdentifier {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lengthField
}

// SetColumnLengthField changes the field for every statement of the
// connection, including statements that are already executed.
func (c *Conn) SetColumnLengthField(field native.FieldIdentifier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lengthField = field
}

// NewStatement creates an unallocated statement. No native resource is
// acquired until the statement is first used.
func (c *Conn) NewStatement(v Variant) *Statement {
	return &Statement{
		conn:       c,
		variant:    v,
		id:         fmt.Sprintf("%s/%d", c.id, c.stmtSeq.Add(1)),
		cursorType: v.DefaultCursorType(),
	}
}

// SQL creates a statement executing text with SQLExecDirect.
func (c *Conn) SQL(text string) *Statement {
	return c.NewStatement(SQLText{Text: text})
}

// Tables creates a SQLTables catalog statement. Empty arguments are passed as
// NULL.
func (c *Conn) Tables(catalog, schema, table, tableType string) *Statement {
	return c.NewStatement(Tables{Catalog: catalog, Schema: schema, Table: table, TableType: tableType})
}

// Columns creates a SQLColumns catalog statement.
func (c *Conn) Columns(catalog, schema, table, column string) *Statement {
	return c.NewStatement(Columns{Catalog: catalog, Schema: schema, Table: table, Column: column})
}

// PrimaryKeys creates a SQLPrimaryKeys catalog statement.
func (c *Conn) PrimaryKeys(catalog, schema, table string) *Statement {
	return c.NewStatement(PrimaryKeys{Catalog: catalog, Schema: schema, Table: table})
}

// TypeInfo creates a SQLGetTypeInfo statement for dataType, native.AllTypes
// for every type.
func (c *Conn) TypeInfo(dataType native.SQLType) *Statement {
	return c.NewStatement(TypeInfo{DataType: dataType})
}

// WithStatement creates a statement for v, passes it to fn and frees it when
// fn returns. An error freeing the statement is returned when fn succeeded.
func (c *Conn) WithStatement(ctx context.Context, v Variant, fn func(*Statement) error) (err error) {
	stmt := c.NewStatement(v)
	defer func() {
		if ferr := stmt.Free(ctx); ferr != nil && err == nil {
			err = ferr
		}
	}()
	return fn(stmt)
}

// Close frees every statement handle still allocated, then disconnects and
// releases the connection and environment handles. Statements of the
// connection become unallocated: closing, cancelling or freeing them does
// nothing and anything that needs a handle fails. Close is idempotent.
func (c *Conn) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	handles := make([]native.Handle, 0, len(c.statements))
	for h := range c.statements {
		handles = append(handles, h)
	}
	clear(c.statements)
	c.mu.Unlock()

	ctx = c.context(ctx)
	log := logger.Ctx(ctx)
	for _, h := range handles {
		if err := c.freeHandle(ctx, h); err != nil {
			log.Warn().Err(err).Msgf("odbc: failed to free statement handle %#x on close", uintptr(h))
		}
	}
	if len(handles) > 0 {
		log.Debug().Msgf("odbc: freed %d statement handles on close", len(handles))
	}

	err := c.check(ctx, c.api.Disconnect(c.dbc), native.HandleDbc, c.dbc, "SQLDisconnect")
	c.release(ctx)
	return err
}

func (c *Conn) freeHandle(ctx context.Context, h native.Handle) error {
	ret := c.api.FreeHandle(native.HandleStmt, h)
	return c.check(ctx, ret, native.HandleStmt, h, "SQLFreeHandle")
}

// check classifies ret and delivers warnings to the warning sink. Only
// errors are returned.
func (c *Conn) check(ctx context.Context, ret native.Return, ht native.HandleType, h native.Handle, op string) error {
	err := c.classify(ctx, ret, ht, h, op)
	if isWarning(err) {
		c.warn(ctx, err)
		return nil
	}
	return err
}

func (c *Conn) warn(ctx context.Context, err error) {
	if c.cfg.WarningHandler != nil {
		c.cfg.WarningHandler(err)
		return
	}
	logger.Ctx(ctx).Warn().Err(err).Msg("odbc: driver warning")
}
