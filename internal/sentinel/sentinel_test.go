package sentinel

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWatch(t *testing.T) {
	t.Parallel()
	t.Run("it should return immediatly", func(t *testing.T) {
		cancelFnCalls := 0
		s := Sentinel[string]{
			CallFn:     func() string { return "completed" },
			OnCancelFn: func() { cancelFnCalls++ },
		}
		status, res, err := s.Watch(context.Background(), 0, 0)
		assert.Equal(t, WatchSuccess, status)
		assert.Equal(t, "completed", res)
		assert.Equal(t, 0, cancelFnCalls)
		assert.NoError(t, err)
	})
	t.Run("it should wait for a long call", func(t *testing.T) {
		s := Sentinel[int]{
			CallFn: func() int {
				time.Sleep(200 * time.Millisecond)
				return 7
			},
		}
		status, res, err := s.Watch(context.Background(), 10*time.Millisecond, 0)
		assert.Equal(t, WatchSuccess, status)
		assert.Equal(t, 7, res)
		assert.NoError(t, err)
	})
	t.Run("it should cancel with timeout and wait for the call", func(t *testing.T) {
		release := make(chan struct{})
		var cancelFnCalls int32
		s := Sentinel[int]{
			CallFn: func() int {
				<-release
				return -1
			},
			OnCancelFn: func() {
				atomic.AddInt32(&cancelFnCalls, 1)
				close(release)
			},
		}
		status, res, err := s.Watch(context.Background(), 10*time.Millisecond, 100*time.Millisecond)
		assert.Equal(t, WatchTimeout, status)
		assert.Equal(t, int32(1), atomic.LoadInt32(&cancelFnCalls))
		assert.Equal(t, -1, res)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
	t.Run("it should cancel with context cancelation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(100 * time.Millisecond)
			cancel()
		}()
		release := make(chan struct{})
		s := Sentinel[string]{
			CallFn: func() string {
				<-release
				return "interrupted"
			},
			OnCancelFn: func() { close(release) },
		}
		status, res, err := s.Watch(ctx, 10*time.Millisecond, 15*time.Second)
		assert.Equal(t, WatchCanceled, status)
		assert.Equal(t, "interrupted", res)
		assert.ErrorIs(t, err, context.Canceled)
	})
	t.Run("it should keep waiting when the cancel request is ignored", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		var returned int32
		s := Sentinel[bool]{
			CallFn: func() bool {
				time.Sleep(150 * time.Millisecond)
				atomic.StoreInt32(&returned, 1)
				return true
			},
			OnCancelFn: func() {},
		}
		status, res, err := s.Watch(ctx, 20*time.Millisecond, 0)
		assert.Equal(t, WatchCanceled, status)
		assert.True(t, res)
		assert.Equal(t, int32(1), atomic.LoadInt32(&returned))
		assert.Error(t, err)
	})
	t.Run("status strings", func(t *testing.T) {
		assert.Equal(t, "SUCCESS", WatchSuccess.String())
		assert.Equal(t, "CANCELED", WatchCanceled.String())
		assert.Equal(t, "TIMEOUT", WatchTimeout.String())
		assert.Equal(t, "<UNSET>", WatchStatus(9).String())
	})
}
