package driverctx

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewContextWithStatementId(t *testing.T) {
	t.Run("base case", func(t *testing.T) {
		ctx := NewContextWithStatementId(context.Background(), "c1/1")
		ctx1 := NewContextWithStatementId(ctx, "c1/2")
		assert.Equal(t, "c1/1", StatementIdFromContext(ctx))
		assert.Equal(t, "c1/2", StatementIdFromContext(ctx1))
		assert.Equal(t, "", StatementIdFromContext(context.Background()))
	})

	t.Run("callback receives every statement id", func(t *testing.T) {
		var ids []string
		ctx := NewContextWithStatementIdCallback(context.Background(), func(id string) {
			ids = append(ids, id)
		})
		NewContextWithStatementId(ctx, "c1/1")
		NewContextWithStatementId(ctx, "c1/2")
		NewContextWithStatementId(context.Background(), "c1/3")
		assert.Equal(t, []string{"c1/1", "c1/2"}, ids)
	})
}

func TestNewContextFromBackground(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	ctx = NewContextWithConnId(ctx, "c1")
	ctx = NewContextWithCorrelationId(ctx, "corr")
	ctx = NewContextWithStatementId(ctx, "c1/1")

	bg := NewContextFromBackground(ctx)
	assert.Equal(t, "c1", ConnIdFromContext(bg))
	assert.Equal(t, "corr", CorrelationIdFromContext(bg))
	assert.Equal(t, "c1/1", StatementIdFromContext(bg))
	_, ok := bg.Deadline()
	assert.False(t, ok)
	assert.Nil(t, bg.Done())
}
