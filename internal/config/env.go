package config

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	dbsqlerrint "github.com/sqlbridge/odbc/internal/errors"
)

// environment variable -> DSN parameter
var envParams = map[string]string{
	"ODBC_CONNECTION_STRING":        ParamConnectionString,
	"ODBC_ENCODING":                 ParamEncoding,
	"ODBC_MAX_COLUMN_NAME_LENGTH":   ParamMaxColumnNameLength,
	"ODBC_LENGTH_FIELD":             ParamLengthField,
	"ODBC_MAX_OPTION_STRING_LENGTH": ParamMaxOptionStringLength,
	"ODBC_QUERY_TIMEOUT":            ParamTimeout,
}

// LoadEnv builds a config from ODBC_* variables. Values are read from the
// given dotenv files first and the process environment wins over them.
// Without files only the process environment is used. The process
// environment is not modified.
func LoadEnv(files ...string) (*Config, error) {
	fileVals := map[string]string{}
	if len(files) > 0 {
		var err error
		fileVals, err = godotenv.Read(files...)
		if err != nil {
			return nil, dbsqlerrint.NewInvalidArgument(context.TODO(), "files", "failed to read env files", err)
		}
	}

	params := make(map[string]string)
	for env, param := range envParams {
		if v, ok := os.LookupEnv(env); ok {
			params[param] = v
		} else if v, ok := fileVals[env]; ok {
			params[param] = v
		}
	}

	cfg := WithDefaults()
	if err := cfg.applyParams(params); err != nil {
		return nil, err
	}
	return cfg, nil
}
