package odbc

import (
	"context"

	"github.com/apache/arrow/go/v12/arrow/memory"
	"github.com/pkg/errors"
	odbcerr "github.com/sqlbridge/odbc/errors"
	dbsqlerrint "github.com/sqlbridge/odbc/internal/errors"
	"github.com/sqlbridge/odbc/logger"
	"github.com/sqlbridge/odbc/native"
)

const (
	sqlStateLen       = 5
	initialDiagMsgLen = 512
	maxDiagRecords    = 64
)

// classify is the single place deciding how a native status is reported:
// SQL_SUCCESS is no signal, SQL_SUCCESS_WITH_INFO and SQL_NO_DATA are
// warnings and every other status is a driver error. Warnings and errors
// carry the diagnostic records of h.
func (c *Conn) classify(ctx context.Context, ret native.Return, ht native.HandleType, h native.Handle, op string) error {
	switch ret {
	case native.Success:
		return nil
	case native.SuccessWithInfo, native.NoData:
		return dbsqlerrint.NewWarning(ctx, dbsqlerrint.ErrDriverWarning, c.collectDiagnostics(ctx, ret, ht, h, op))
	default:
		return dbsqlerrint.NewDriverError(ctx, dbsqlerrint.ErrDriverCall, c.collectDiagnostics(ctx, ret, ht, h, op))
	}
}

// collectDiagnostics reads every diagnostic record of h with SQLGetDiagRec.
// Records must be read before the next call on h, which clears them.
func (c *Conn) collectDiagnostics(ctx context.Context, ret native.Return, ht native.HandleType, h native.Handle, op string) odbcerr.Detail {
	detail := odbcerr.Detail{ReturnCode: ret, Operation: op, HandleType: ht, Handle: h}
	if h == native.NullHandle || ret == native.InvalidHandle {
		return detail
	}

	alloc := c.cfg.Allocator
	width := c.codec.CharWidth()
	state := alloc.Allocate((sqlStateLen + 1) * width)
	defer alloc.Free(state)
	msgCap := initialDiagMsgLen
	msg := alloc.Allocate(msgCap * width)
	defer func() { alloc.Free(msg) }()

	var (
		nativeErr int32
		msgLen    int16
	)
	for rec := int16(1); rec <= maxDiagRecords; rec++ {
		memory.Set(state, 0)
		memory.Set(msg, 0)
		dret := c.api.GetDiagRec(ht, h, rec, state, &nativeErr, msg, &msgLen)
		if dret == native.SuccessWithInfo && int(msgLen) >= msgCap {
			msgCap = int(msgLen) + 1
			msg = alloc.Reallocate(msgCap*width, msg)
			memory.Set(msg, 0)
			dret = c.api.GetDiagRec(ht, h, rec, state, &nativeErr, msg, &msgLen)
		}
		if dret != native.Success && dret != native.SuccessWithInfo {
			if dret != native.NoData {
				logger.Ctx(ctx).Debug().Msgf("odbc: SQLGetDiagRec on %s returned %s", ht, dret)
			}
			break
		}
		sqlState, _ := c.codec.Decode(state)
		text, err := c.codec.Decode(msg)
		if err != nil {
			text = err.Error()
		}
		detail.Records = append(detail.Records, odbcerr.DiagRecord{
			SqlState:   sqlState,
			NativeCode: nativeErr,
			Message:    text,
		})
	}
	return detail
}

func isWarning(err error) bool {
	return err != nil && errors.Is(err, odbcerr.DriverWarning)
}

// isNoData reports whether err is the warning standing for SQL_NO_DATA.
func isNoData(err error) bool {
	var w odbcerr.DBWarning
	return errors.As(err, &w) && w.NoData()
}

func hasSqlState(err error, state string) bool {
	var dbErr odbcerr.DBDriverError
	return errors.As(err, &dbErr) && dbErr.Detail().HasSqlState(state)
}
