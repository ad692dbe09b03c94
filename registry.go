package odbc

import (
	"context"
	"runtime"
	"weak"

	"github.com/sqlbridge/odbc/driverctx"
	dbsqlerrint "github.com/sqlbridge/odbc/internal/errors"
	"github.com/sqlbridge/odbc/logger"
	"github.com/sqlbridge/odbc/native"
)

// registration ties an allocated statement handle to the statement owning
// it. seq tells apart successive owners of a handle value the driver
// reissued after a free.
type registration struct {
	stmt weak.Pointer[Statement]
	seq  uint64
	id   string
}

type reclaimArg struct {
	conn   *Conn
	handle native.Handle
	seq    uint64
	id     string
}

// allocateStatementHandle allocates a statement handle for s and registers it
// for reclamation in case s becomes unreachable without being freed.
func (c *Conn) allocateStatementHandle(ctx context.Context, s *Statement) (native.Handle, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return native.NullHandle, dbsqlerrint.NewSystemFault(ctx, dbsqlerrint.ErrConnectionClosed, nil)
	}

	var h native.Handle
	ret := c.api.AllocHandle(native.HandleStmt, c.dbc, &h)
	if err := c.check(ctx, ret, native.HandleDbc, c.dbc, "SQLAllocHandle"); err != nil {
		return native.NullHandle, dbsqlerrint.WrapErr(err, dbsqlerrint.ErrAllocStatement)
	}

	c.mu.Lock()
	c.regSeq++
	seq := c.regSeq
	c.statements[h] = registration{stmt: weak.Make(s), seq: seq, id: s.id}
	c.mu.Unlock()

	s.seq = seq
	s.cleanup = runtime.AddCleanup(s, reclaim, reclaimArg{conn: c, handle: h, seq: seq, id: s.id})
	logger.Ctx(ctx).Debug().Msgf("odbc: allocated statement handle %#x", uintptr(h))
	return h, nil
}

// freeStatementHandle releases the handle of s. It is a no-op when the
// handle was already released on its behalf by Close or a reclamation.
func (c *Conn) freeStatementHandle(ctx context.Context, s *Statement) error {
	s.cleanup.Stop()
	if !c.unregister(s.handle, s.seq) {
		logger.Ctx(ctx).Debug().Msgf("odbc: statement handle %#x already released", uintptr(s.handle))
		return nil
	}
	if err := c.freeHandle(ctx, s.handle); err != nil {
		return dbsqlerrint.WrapErr(err, dbsqlerrint.ErrFreeStatement)
	}
	return nil
}

// unregister removes h from the registry if it is still owned by the
// registration seq and reports whether it did.
func (c *Conn) unregister(h native.Handle, seq uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	reg, ok := c.statements[h]
	if !ok || reg.seq != seq {
		return false
	}
	delete(c.statements, h)
	return true
}

// holds reports whether h is still registered to the registration seq.
func (c *Conn) holds(h native.Handle, seq uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	reg, ok := c.statements[h]
	return ok && reg.seq == seq
}

// reclaim runs on the runtime's cleanup goroutine after a statement became
// unreachable while still holding its handle. Errors and warnings have no
// caller to go to and are only logged; the warning handler is not called
// from here.
func reclaim(arg reclaimArg) {
	c := arg.conn
	ctx := driverctx.NewContextWithStatementId(c.context(context.Background()), arg.id)
	if !c.unregister(arg.handle, arg.seq) {
		return
	}
	log := logger.Ctx(ctx)
	err := c.classify(ctx, c.api.FreeHandle(native.HandleStmt, arg.handle), native.HandleStmt, arg.handle, "SQLFreeHandle")
	switch {
	case isWarning(err):
		log.Warn().Err(err).Msgf("odbc: warning reclaiming statement handle %#x", uintptr(arg.handle))
	case err != nil:
		log.Warn().Err(err).Msgf("odbc: failed to reclaim statement handle %#x", uintptr(arg.handle))
		return
	}
	log.Debug().Msgf("odbc: reclaimed statement handle %#x of an abandoned statement", uintptr(arg.handle))
}

// ReclaimAbandoned frees the handles of statements that were garbage
// collected without being freed and returns how many it released. The
// runtime normally reclaims them on its own, eventually; this sweep makes
// it happen now for the statements the collector has already found. It is
// best-effort: a statement that is still reachable, or not yet collected,
// keeps its handle. Failures are logged.
func (c *Conn) ReclaimAbandoned(ctx context.Context) int {
	c.mu.Lock()
	var abandoned []native.Handle
	for h, reg := range c.statements {
		if reg.stmt.Value() == nil {
			abandoned = append(abandoned, h)
			delete(c.statements, h)
		}
	}
	c.mu.Unlock()

	ctx = c.context(ctx)
	log := logger.Ctx(ctx)
	freed := 0
	for _, h := range abandoned {
		if err := c.freeHandle(ctx, h); err != nil {
			log.Warn().Err(err).Msgf("odbc: failed to reclaim statement handle %#x", uintptr(h))
			continue
		}
		freed++
	}
	if len(abandoned) > 0 {
		log.Debug().Msgf("odbc: reclaimed %d of %d abandoned statement handles", freed, len(abandoned))
	}
	return freed
}

// OpenStatements is the number of statement handles currently allocated on
// the connection.
func (c *Conn) OpenStatements() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.statements)
}
