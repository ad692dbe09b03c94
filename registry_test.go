package odbc

import (
	"context"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sqlbridge/odbc/internal/nativetest"
	"github.com/sqlbridge/odbc/native"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// abandon allocates a statement and drops it without freeing it.
func abandon(t *testing.T, conn *Conn) native.Handle {
	t.Helper()
	stmt := conn.SQL("select 1")
	h, err := stmt.ExecutedHandle(context.Background())
	require.NoError(t, err)
	return h
}

func timesFreed(api *nativetest.API, h native.Handle) int {
	n := 0
	for _, f := range api.Freed() {
		if f == h {
			n++
		}
	}
	return n
}

func TestConn_Reclamation(t *testing.T) {
	ctx := context.Background()

	t.Run("the handle of an unreachable statement is released", func(t *testing.T) {
		api := nativetest.New()
		conn := newTestConn(t, api)

		h := abandon(t, conn)
		require.True(t, api.Live(h))

		require.Eventually(t, func() bool {
			runtime.GC()
			return !api.Live(h)
		}, 5*time.Second, 10*time.Millisecond)
		assert.Equal(t, 1, timesFreed(api, h))
		assert.Equal(t, 0, conn.OpenStatements())
	})

	t.Run("the sweep and the runtime release a handle once", func(t *testing.T) {
		api := nativetest.New()
		conn := newTestConn(t, api)

		handles := []native.Handle{abandon(t, conn), abandon(t, conn), abandon(t, conn)}
		kept := conn.SQL("select 2")
		keptHandle, err := kept.AllocatedHandle(ctx)
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			runtime.GC()
			conn.ReclaimAbandoned(ctx)
			return conn.OpenStatements() == 1
		}, 5*time.Second, 10*time.Millisecond)
		// let pending cleanups run
		runtime.GC()
		time.Sleep(20 * time.Millisecond)

		for _, h := range handles {
			assert.False(t, api.Live(h))
			assert.Equal(t, 1, timesFreed(api, h))
		}
		assert.True(t, api.Live(keptHandle))
		assert.True(t, kept.Allocated())

		require.NoError(t, kept.Free(ctx))
		assert.Equal(t, 1, timesFreed(api, keptHandle))
	})

	t.Run("a freed statement is not reclaimed", func(t *testing.T) {
		api := nativetest.New()
		conn := newTestConn(t, api)

		func() {
			stmt := conn.SQL("select 1")
			_, err := stmt.AllocatedHandle(ctx)
			require.NoError(t, err)
			require.NoError(t, stmt.Free(ctx))
		}()
		freed := api.Calls("SQLFreeHandle")

		runtime.GC()
		time.Sleep(20 * time.Millisecond)
		assert.Equal(t, 0, conn.ReclaimAbandoned(ctx))
		assert.Equal(t, freed, api.Calls("SQLFreeHandle"))
	})

	t.Run("reclamation failures are only logged", func(t *testing.T) {
		api := nativetest.New()
		conn := newTestConn(t, api)

		api.FnFreeHandle = func(ht native.HandleType, fh native.Handle) native.Return {
			if ht == native.HandleStmt {
				return api.Fail(fh, "HY000", "General error")
			}
			return native.Success
		}
		h := abandon(t, conn)

		require.Eventually(t, func() bool {
			runtime.GC()
			conn.ReclaimAbandoned(ctx)
			return conn.OpenStatements() == 0
		}, 5*time.Second, 10*time.Millisecond)
		assert.True(t, api.Live(h))
	})

	t.Run("reclamation warnings bypass the warning handler", func(t *testing.T) {
		api := nativetest.New()
		var delivered atomic.Int32
		conn := newTestConn(t, api, WithWarningHandler(func(error) { delivered.Add(1) }))

		called := make(chan struct{}, 1)
		api.FnFreeHandle = func(ht native.HandleType, fh native.Handle) native.Return {
			if ht != native.HandleStmt {
				return native.Success
			}
			select {
			case called <- struct{}{}:
			default:
			}
			return api.Warn(fh, "01000", "General warning")
		}
		abandon(t, conn)

		require.Eventually(t, func() bool {
			runtime.GC()
			select {
			case <-called:
				return true
			default:
				return false
			}
		}, 5*time.Second, 10*time.Millisecond)
		assert.Never(t, func() bool { return delivered.Load() > 0 }, 100*time.Millisecond, 10*time.Millisecond)
		assert.Equal(t, 0, conn.OpenStatements())
	})
}
