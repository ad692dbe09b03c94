package odbc

import (
	"context"

	"github.com/pkg/errors"
	dbsqlerrint "github.com/sqlbridge/odbc/internal/errors"
	"github.com/sqlbridge/odbc/native"
)

// CursorType is the SQL_ATTR_CURSOR_TYPE of a statement.
type CursorType int

const (
	CursorStatic CursorType = iota
	CursorForwardOnly
	CursorKeysetDriven
	CursorDynamic
)

var cursorNames = map[CursorType]string{
	CursorStatic:       "static",
	CursorForwardOnly:  "forwardOnly",
	CursorKeysetDriven: "keysetDriven",
	CursorDynamic:      "dynamic",
}

var cursorValues = map[CursorType]uintptr{
	CursorStatic:       native.CursorStatic,
	CursorForwardOnly:  native.CursorForwardOnly,
	CursorKeysetDriven: native.CursorKeysetDriven,
	CursorDynamic:      native.CursorDynamic,
}

func (t CursorType) String() string {
	if n, ok := cursorNames[t]; ok {
		return n
	}
	return "unknown"
}

// Native is the SQL_CURSOR_* value of t.
func (t CursorType) Native() uintptr {
	return cursorValues[t]
}

func (t CursorType) valid() bool {
	_, ok := cursorNames[t]
	return ok
}

// ParseCursorType returns the cursor type named name. Names are case
// sensitive: static, forwardOnly, keysetDriven and dynamic.
func ParseCursorType(name string) (CursorType, error) {
	for t, n := range cursorNames {
		if n == name {
			return t, nil
		}
	}
	return 0, errors.Errorf("unknown cursor type %q", name)
}

// CursorType is the cursor type the statement executes with.
func (s *Statement) CursorType() CursorType {
	return s.cursorType
}

// SetCursorType sets the cursor type by name. An unknown name is rejected
// before any native call. See SetCursor.
func (s *Statement) SetCursorType(ctx context.Context, name string) error {
	t, err := ParseCursorType(name)
	if err != nil {
		return dbsqlerrint.NewInvalidArgument(s.context(ctx), "cursorType", dbsqlerrint.ErrInvalidCursorType, err)
	}
	return s.SetCursor(ctx, t)
}

// SetCursor sets the cursor type. Before allocation the type is only
// recorded and applied once the handle exists. On an allocated statement it
// is applied immediately and a driver refusing it, for instance because a
// cursor is open, is reported. The type stays recorded either way.
func (s *Statement) SetCursor(ctx context.Context, t CursorType) error {
	if !t.valid() {
		return dbsqlerrint.NewInvalidArgument(s.context(ctx), "cursorType", dbsqlerrint.ErrInvalidCursorType, errors.Errorf("unknown cursor type %d", int(t)))
	}
	s.cursorType = t
	if s.handle == native.NullHandle || s.detach(ctx) {
		return nil
	}
	return s.applyCursorType(ctx)
}

func (s *Statement) applyCursorType(ctx context.Context) error {
	return s.SetAttribute(ctx, native.AttrCursorType, s.cursorType.Native(), native.IsUInteger)
}
