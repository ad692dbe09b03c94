package odbc

import (
	"context"
	"encoding/binary"
	"unsafe"

	"github.com/apache/arrow/go/v12/arrow/memory"
	dbsqlerrint "github.com/sqlbridge/odbc/internal/errors"
	"github.com/sqlbridge/odbc/native"
)

// SetAttribute sets a statement attribute on the allocated handle. value and
// length are passed to SQLSetStmtAttr as is.
func (s *Statement) SetAttribute(ctx context.Context, attr native.Attribute, value uintptr, length int32) error {
	h, err := s.AllocatedHandle(ctx)
	if err != nil {
		return err
	}
	ctx = s.context(ctx)
	return s.check(ctx, s.conn.api.SetStmtAttr(h, attr, value, length), "SQLSetStmtAttr")
}

// StringAttribute reads a character statement attribute. The value is read
// into a buffer of the connection's maximum option string length and
// decoded up to its terminator; the length the driver would report is not
// asked for, drivers are assumed to always terminate string attributes.
func (s *Statement) StringAttribute(ctx context.Context, attr native.Attribute) (string, error) {
	h, err := s.AllocatedHandle(ctx)
	if err != nil {
		return "", err
	}
	ctx = s.context(ctx)

	alloc := s.conn.cfg.Allocator
	buf := alloc.Allocate((s.conn.cfg.MaxOptionStringLength + 1) * s.conn.codec.CharWidth())
	defer alloc.Free(buf)
	memory.Set(buf, 0)

	if err := s.check(ctx, s.conn.api.GetStmtAttr(h, attr, buf, nil), "SQLGetStmtAttr"); err != nil {
		return "", err
	}
	v, err := s.conn.codec.Decode(buf)
	if err != nil {
		return "", dbsqlerrint.WrapErrf(err, "decode statement attribute %d", attr)
	}
	return v, nil
}

// IntAttribute reads an integer statement attribute. The value is decoded
// in host byte order with the width the driver reports: 4 bytes for a
// SQLUINTEGER attribute, 8 bytes for a SQLULEN one or when the driver
// reports no length.
func (s *Statement) IntAttribute(ctx context.Context, attr native.Attribute) (int64, error) {
	h, err := s.AllocatedHandle(ctx)
	if err != nil {
		return 0, err
	}
	ctx = s.context(ctx)

	alloc := s.conn.cfg.Allocator
	buf := alloc.Allocate(8)
	defer alloc.Free(buf)
	memory.Set(buf, 0)

	var n int32
	if err := s.check(ctx, s.conn.api.GetStmtAttr(h, attr, buf, &n), "SQLGetStmtAttr"); err != nil {
		return 0, err
	}
	if n == 4 {
		return int64(binary.NativeEndian.Uint32(buf)), nil
	}
	return int64(binary.NativeEndian.Uint64(buf)), nil
}

// StatusArray installs status as the row status array
// (SQL_ATTR_ROW_STATUS_PTR) the driver fills on every fetch. The driver
// writes into status until the attribute is replaced or the statement is
// freed, so the caller must keep it alive that long.
func (s *Statement) StatusArray(ctx context.Context, status []uint16) error {
	if len(status) == 0 {
		return dbsqlerrint.NewInvalidArgument(s.context(ctx), "status", dbsqlerrint.ErrEmptyStatusArray, nil)
	}
	return s.SetAttribute(ctx, native.AttrRowStatusPtr, uintptr(unsafe.Pointer(&status[0])), native.IsPointer)
}
