package sentinel

import (
	"context"
	"time"

	"github.com/sqlbridge/odbc/logger"
)

const (
	DEFAULT_TIMEOUT  = 0
	DEFAULT_INTERVAL = 100 * time.Millisecond
)

type WatchStatus int

const (
	WatchSuccess WatchStatus = iota
	WatchTimeout
	WatchCanceled
)

func (s WatchStatus) String() string {
	switch s {
	case WatchSuccess:
		return "SUCCESS"
	case WatchCanceled:
		return "CANCELED"
	case WatchTimeout:
		return "TIMEOUT"
	}
	return "<UNSET>"
}

// Sentinel supervises one blocking call that can only be interrupted from
// the outside, such as a native execute interrupted with SQLCancel.
type Sentinel[T any] struct {
	// CallFn is the blocking call. It runs on its own goroutine.
	CallFn func() T
	// OnCancelFn asks CallFn to stop. It is invoked at most once, when ctx is
	// done or the timeout elapses.
	OnCancelFn func()
}

// Watch runs CallFn and waits for its result. When ctx is done or the timeout
// elapses first, OnCancelFn is invoked and Watch keeps waiting for CallFn to
// return, so the caller never races the abandoned call. The result of CallFn
// is always returned; err is ctx.Err() for WatchCanceled and
// context.DeadlineExceeded for WatchTimeout. While waiting after the cancel
// request a debug message is logged every interval.
func (s Sentinel[T]) Watch(ctx context.Context, interval, timeout time.Duration) (WatchStatus, T, error) {
	if timeout == 0 {
		timeout = DEFAULT_TIMEOUT
	}
	if interval == 0 {
		interval = DEFAULT_INTERVAL
	}

	resCh := make(chan T, 1)
	go func() {
		resCh <- s.CallFn()
	}()

	var timeoutTimerCh <-chan time.Time
	if timeout != 0 {
		timeoutTimer := time.NewTimer(timeout)
		timeoutTimerCh = timeoutTimer.C
		defer timeoutTimer.Stop()
	}

	var status WatchStatus
	var err error
	select {
	case res := <-resCh:
		return WatchSuccess, res, nil
	case <-ctx.Done():
		status, err = WatchCanceled, ctx.Err()
	case <-timeoutTimerCh:
		logger.Info().Msgf("call timed out after %s", timeout.String())
		status, err = WatchTimeout, context.DeadlineExceeded
	}

	if s.OnCancelFn != nil {
		s.OnCancelFn()
	}

	intervalTicker := time.NewTicker(interval)
	defer intervalTicker.Stop()
	start := time.Now()
	for {
		select {
		case res := <-resCh:
			return status, res, err
		case <-intervalTicker.C:
			logger.Debug().Msgf("call still running %s after cancel request", time.Since(start).Round(time.Millisecond))
		}
	}
}
