package odbc

import (
	"time"

	"github.com/apache/arrow/go/v12/arrow/memory"
	"github.com/sqlbridge/odbc/internal/config"
	"github.com/sqlbridge/odbc/native"
)

type ConnOption func(*config.Config)

// WithConnectionString sets the ODBC connection string passed to
// SQLDriverConnect, replacing the one built from the DSN.
func WithConnectionString(connStr string) ConnOption {
	return func(c *config.Config) {
		c.ConnectionString = connStr
	}
}

// WithEncoding sets the character set of the native API. Use
// native.EncodingUTF16LE for the wide (W) entry points.
func WithEncoding(name string) ConnOption {
	return func(c *config.Config) {
		c.Encoding = name
	}
}

// WithMaxColumnNameLength overrides SQL_MAX_COLUMN_NAME_LEN reported by the
// driver. It only sizes the first describe buffer, longer names are still
// read in full.
func WithMaxColumnNameLength(n int) ConnOption {
	return func(c *config.Config) {
		if n > 0 {
			c.MaxColumnNameLength = config.NewConfigValue(n)
		}
	}
}

// WithColumnLengthField sets the SQLColAttribute field first used to ask for
// transfer lengths. Default is native.DescOctetLength.
func WithColumnLengthField(field native.FieldIdentifier) ConnOption {
	return func(c *config.Config) {
		c.ColumnLengthField = field
	}
}

// WithMaxOptionStringLength sizes the buffer for string statement
// attributes, in characters.
func WithMaxOptionStringLength(n int) ConnOption {
	return func(c *config.Config) {
		if n > 0 {
			c.MaxOptionStringLength = n
		}
	}
}

// WithQueryTimeout cancels executions running longer than timeout. Zero
// means no timeout, the context deadline still applies.
func WithQueryTimeout(timeout time.Duration) ConnOption {
	return func(c *config.Config) {
		if timeout >= 0 {
			c.QueryTimeout = timeout
		}
	}
}

// WithCancelPollInterval sets how often a cancelled execution that has not
// returned yet is reported in the debug log.
func WithCancelPollInterval(interval time.Duration) ConnOption {
	return func(c *config.Config) {
		if interval > 0 {
			c.CancelPollInterval = interval
		}
	}
}

// WithAllocator sets the allocator for the scratch buffers handed to the
// native API.
func WithAllocator(alloc memory.Allocator) ConnOption {
	return func(c *config.Config) {
		if alloc != nil {
			c.Allocator = alloc
		}
	}
}

// WithWarningHandler receives every driver warning (SQL_SUCCESS_WITH_INFO,
// SQL_NO_DATA) instead of the log.
func WithWarningHandler(fn func(error)) ConnOption {
	return func(c *config.Config) {
		c.WarningHandler = fn
	}
}
