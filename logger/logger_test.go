package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/sqlbridge/odbc/driverctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger(t *testing.T) {
	t.Cleanup(func() {
		SetLogOutput(os.Stderr)
		Log.Logger = Log.Level(zerolog.WarnLevel)
	})

	t.Run("SetLogLevel rejects unknown levels", func(t *testing.T) {
		err := SetLogLevel("chatty")
		assert.Error(t, err)
	})

	t.Run("WithContext adds the ids as fields", func(t *testing.T) {
		var buf bytes.Buffer
		SetLogOutput(&buf)
		require.NoError(t, SetLogLevel("debug"))

		WithContext("conn-1", "corr-1", "conn-1/3").Debug().Msg("hello")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "conn-1", entry["connId"])
		assert.Equal(t, "corr-1", entry["corrId"])
		assert.Equal(t, "conn-1/3", entry["stmtId"])
		assert.Equal(t, "hello", entry["message"])
	})

	t.Run("Ctx reads the ids from the context", func(t *testing.T) {
		var buf bytes.Buffer
		SetLogOutput(&buf)
		require.NoError(t, SetLogLevel("info"))

		ctx := driverctx.NewContextWithConnId(context.Background(), "conn-7")
		ctx = driverctx.NewContextWithStatementId(ctx, "conn-7/1")
		Ctx(ctx).Info().Msg("ctx")
		Ctx(ctx).Debug().Msg("filtered")

		lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
		require.Len(t, lines, 1)
		var entry map[string]any
		require.NoError(t, json.Unmarshal(lines[0], &entry))
		assert.Equal(t, "conn-7", entry["connId"])
		assert.Equal(t, "", entry["corrId"])
		assert.Equal(t, "conn-7/1", entry["stmtId"])
	})
}
