package logger

import (
	"context"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/sqlbridge/odbc/driverctx"
)

type Logger struct {
	zerolog.Logger
}

// Track is used to track time. It returns the message and the start time.
// Use it together with Duration:
//
//	defer log.Duration(log.Track("describe"))
func (l *Logger) Track(msg string) (string, time.Time) {
	return msg, time.Now()
}

// Duration logs a debug message with the time elapsed since start.
func (l *Logger) Duration(msg string, start time.Time) {
	l.Debug().Msgf("%v elapsed time: %v", msg, time.Since(start))
}

var Log = &Logger{zerolog.New(os.Stderr).With().Timestamp().Logger()}

// enable pretty printing for interactive terminals and json for production.
func init() {
	// for tty terminal enable pretty logs
	if isatty.IsTerminal(os.Stdout.Fd()) && runtime.GOOS != "windows" {
		Log = &Logger{Log.Output(zerolog.ConsoleWriter{Out: os.Stderr})}
	} else {
		// UNIX Time is faster and smaller than most timestamps
		// If you set zerolog.TimeFieldFormat to an empty string,
		// logs will write with UNIX time.
		zerolog.TimeFieldFormat = ""
	}
	// by default only log warnings (which includes driver warnings)
	Log.Logger = Log.Level(zerolog.WarnLevel)
}

// SetLogLevel sets the log level to one of trace, debug, info, warn, error,
// fatal, panic or disabled.
func SetLogLevel(l string) error {
	lvl, err := zerolog.ParseLevel(l)
	if err != nil {
		return err
	}
	Log.Logger = Log.Level(lvl)
	return nil
}

// SetLogOutput sets the log output to the given writer.
func SetLogOutput(w io.Writer) {
	Log.Logger = Log.Output(w)
}

// Trace logs a trace message.
func Trace() *zerolog.Event {
	return Log.Trace()
}

// Debug logs a debug message.
func Debug() *zerolog.Event {
	return Log.Debug()
}

// Info logs an info message.
func Info() *zerolog.Event {
	return Log.Info()
}

// Warn logs a warning message.
func Warn() *zerolog.Event {
	return Log.Warn()
}

// Err starts a new message with error level with err as a field if not nil or
// with info level if err is nil.
func Err(err error) *zerolog.Event {
	return Log.Err(err)
}

// Error logs an error message.
func Error() *zerolog.Event {
	return Log.Error()
}

// WithContext sets connection id, correlation id and statement id to be used
// as fields.
func WithContext(connectionId string, correlationId string, statementId string) *Logger {
	return &Logger{Log.With().Str("connId", connectionId).Str("corrId", correlationId).Str("stmtId", statementId).Logger()}
}

// Ctx is WithContext with the ids taken from ctx.
func Ctx(ctx context.Context) *Logger {
	return WithContext(driverctx.ConnIdFromContext(ctx), driverctx.CorrelationIdFromContext(ctx), driverctx.StatementIdFromContext(ctx))
}
