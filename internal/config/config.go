package config

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/apache/arrow/go/v12/arrow/memory"
	"github.com/pkg/errors"
	dbsqlerrint "github.com/sqlbridge/odbc/internal/errors"
	"github.com/sqlbridge/odbc/native"
)

const (
	// used when neither the client nor the driver supply SQL_MAX_COLUMN_NAME_LEN
	DefaultMaxColumnNameLength = 128
	// SQL_MAX_OPTION_STRING_LENGTH
	DefaultMaxOptionStringLength = 256

	defaultCancelPollInterval = 100 * time.Millisecond
)

// DSN query parameter names. The environment loader maps ODBC_* variables
// onto the same names.
const (
	ParamConnectionString      = "connectionString"
	ParamEncoding              = "encoding"
	ParamMaxColumnNameLength   = "maxColumnNameLength"
	ParamLengthField           = "lengthField"
	ParamMaxOptionStringLength = "maxOptionStringLength"
	ParamTimeout               = "timeout"
)

// Config is the configuration of one connection.
type Config struct {
	ConnectionString string // passed to SQLDriverConnect as is
	Encoding         string // character set of the native API, see native.LookupCodec

	// SQL_MAX_COLUMN_NAME_LEN override. Unset means ask the driver.
	MaxColumnNameLength ConfigValue[int]
	// initial field used to query transfer lengths, corrected per connection
	// when the driver manager rejects it
	ColumnLengthField     native.FieldIdentifier
	MaxOptionStringLength int

	QueryTimeout       time.Duration // 0 means no timeout
	CancelPollInterval time.Duration // how often to report a cancelled call that has not returned yet

	Allocator      memory.Allocator // scratch buffers for native calls
	WarningHandler func(error)      // nil logs warnings

	// client identification logged at connect
	DriverName    string
	DriverVersion string
}

// WithDefaults returns a config with every field set to its default.
func WithDefaults() *Config {
	return &Config{
		Encoding:              native.EncodingUTF8,
		ColumnLengthField:     native.DescOctetLength,
		MaxOptionStringLength: DefaultMaxOptionStringLength,
		CancelPollInterval:    defaultCancelPollInterval,
		Allocator:             memory.DefaultAllocator,
		DriverName:            "sqlbridge-odbc",
		DriverVersion:         "0.3.0",
	}
}

// ParseDSN parses a DSN on top of the defaults.
//
// Two forms are accepted. A plain ODBC connection string
// ("DSN=warehouse;UID=scott;PWD=tiger") is passed to the driver unchanged. A
// URL of the form
//
//	odbc://[user[:password]@]dsn?encoding=utf16&maxColumnNameLength=64&lengthField=legacy&timeout=30
//
// builds the connection string from the data source name and credentials
// and sets client options from the query parameters. A connectionString
// parameter overrides the host part.
func ParseDSN(dsn string) (*Config, error) {
	cfg := WithDefaults()
	if !strings.HasPrefix(dsn, "odbc://") {
		cfg.ConnectionString = dsn
		return cfg, nil
	}

	parsedURL, err := url.Parse(dsn)
	if err != nil {
		return nil, dbsqlerrint.NewInvalidArgument(context.TODO(), "dsn", dbsqlerrint.ErrInvalidDSN, err)
	}

	var parts []string
	if parsedURL.Host != "" {
		parts = append(parts, "DSN="+parsedURL.Hostname())
	}
	if parsedURL.User != nil {
		parts = append(parts, "UID="+parsedURL.User.Username())
		if pwd, ok := parsedURL.User.Password(); ok {
			parts = append(parts, "PWD="+pwd)
		}
	}
	cfg.ConnectionString = strings.Join(parts, ";")

	params := make(map[string]string)
	for k, v := range parsedURL.Query() {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	if err := cfg.applyParams(params); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyParams(params map[string]string) error {
	if v, ok := params[ParamConnectionString]; ok {
		c.ConnectionString = v
	}

	if v, ok := params[ParamEncoding]; ok {
		codec, err := native.LookupCodec(v)
		if err != nil {
			return dbsqlerrint.NewInvalidArgument(context.TODO(), ParamEncoding, dbsqlerrint.ErrUnknownEncoding, err)
		}
		c.Encoding = codec.Name()
	}

	if _, ok := params[ParamMaxColumnNameLength]; ok {
		cv := ParseIntConfigValue(params, ParamMaxColumnNameLength)
		if n, set := cv.Get(); !set || n <= 0 {
			return invalidParam(ParamMaxColumnNameLength, params[ParamMaxColumnNameLength])
		}
		c.MaxColumnNameLength = cv
	}

	if v, ok := params[ParamLengthField]; ok {
		switch strings.ToLower(v) {
		case "octet", "octetlength":
			c.ColumnLengthField = native.DescOctetLength
		case "legacy", "length":
			c.ColumnLengthField = native.ColumnLength
		default:
			return invalidParam(ParamLengthField, v)
		}
	}

	if v, ok := params[ParamMaxOptionStringLength]; ok {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return invalidParam(ParamMaxOptionStringLength, v)
		}
		c.MaxOptionStringLength = n
	}

	if v, ok := params[ParamTimeout]; ok {
		timeout, err := parseTimeout(v)
		if err != nil {
			return invalidParam(ParamTimeout, v)
		}
		c.QueryTimeout = timeout
	}

	return nil
}

// timeouts are whole seconds or a Go duration
func parseTimeout(v string) (time.Duration, error) {
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0, fmt.Errorf("negative timeout %d", secs)
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative timeout %s", d)
	}
	return d, nil
}

func invalidParam(name, value string) error {
	return dbsqlerrint.NewInvalidArgument(context.TODO(), name, dbsqlerrint.ErrInvalidDSN, errors.Errorf("invalid %s %q", name, value))
}
