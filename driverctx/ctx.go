package driverctx

import (
	"context"
)

// Key name to look for ids in context
// using custom type to prevent key collision
type contextKey int

const (
	CorrelationIdContextKey contextKey = iota
	ConnIdContextKey
	StatementIdContextKey
	StatementIdCallbackKey
)

type IdCallbackFunc func(string)

// NewContextWithCorrelationId creates a new context with correlationId value. Used by Logger to populate field corrId.
func NewContextWithCorrelationId(ctx context.Context, correlationId string) context.Context {
	return context.WithValue(ctx, CorrelationIdContextKey, correlationId)
}

// CorrelationIdFromContext retrieves the correlationId stored in context.
func CorrelationIdFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	corrId, ok := ctx.Value(CorrelationIdContextKey).(string)
	if !ok {
		return ""
	}
	return corrId
}

// NewContextWithConnId creates a new context with connectionId value.
// The connection ID will be displayed in log messages and other dianostic information.
func NewContextWithConnId(ctx context.Context, connId string) context.Context {
	return context.WithValue(ctx, ConnIdContextKey, connId)
}

// ConnIdFromContext retrieves the connectionId stored in context.
func ConnIdFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	connId, ok := ctx.Value(ConnIdContextKey).(string)
	if !ok {
		return ""
	}
	return connId
}

// NewContextWithStatementId creates a new context with statementId value.
// If a callback was registered with NewContextWithStatementIdCallback it is
// invoked with the id.
func NewContextWithStatementId(ctx context.Context, stmtId string) context.Context {
	if callback, ok := ctx.Value(StatementIdCallbackKey).(IdCallbackFunc); ok {
		callback(stmtId)
	}

	return context.WithValue(ctx, StatementIdContextKey, stmtId)
}

// StatementIdFromContext retrieves the statementId stored in context.
func StatementIdFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	stmtId, ok := ctx.Value(StatementIdContextKey).(string)
	if !ok {
		return ""
	}
	return stmtId
}

// NewContextWithStatementIdCallback registers a function that receives the id
// of every statement that touches the driver with this context.
func NewContextWithStatementIdCallback(ctx context.Context, callback IdCallbackFunc) context.Context {
	return context.WithValue(ctx, StatementIdCallbackKey, callback)
}

// NewContextFromBackground carries the ids of ctx over to a fresh background
// context, for work that must outlive the caller (handle reclamation).
func NewContextFromBackground(ctx context.Context) context.Context {
	connId := ConnIdFromContext(ctx)
	corrId := CorrelationIdFromContext(ctx)
	stmtId := StatementIdFromContext(ctx)

	newCtx := NewContextWithConnId(context.Background(), connId)
	newCtx = NewContextWithCorrelationId(newCtx, corrId)
	newCtx = context.WithValue(newCtx, StatementIdContextKey, stmtId)

	return newCtx
}
