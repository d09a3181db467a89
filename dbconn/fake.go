package dbconn

import (
	"context"

	"github.com/cockroachdb/errors"
)

// FakeConn is a Conn which cannot run queries. It is used where only the
// identity and dialect of a source matter.
type FakeConn struct {
	id      ID
	dialect Dialect
}

func MakeFakeConn(id ID) FakeConn {
	return FakeConn{id: id, dialect: DialectPostgres}
}

func MakeFakeConnWithDialect(id ID, dialect Dialect) FakeConn {
	return FakeConn{id: id, dialect: dialect}
}

func (f FakeConn) ID() ID {
	return f.id
}

func (f FakeConn) Dialect() Dialect {
	return f.dialect
}

func (f FakeConn) ConnStr() string {
	return "fake://"
}

func (f FakeConn) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	return nil, errors.Newf("fake conn %s cannot run queries", f.id)
}

func (f FakeConn) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return fakeRow{err: errors.Newf("fake conn %s cannot run queries", f.id)}
}

func (f FakeConn) Clone(ctx context.Context) (Conn, error) {
	return f, nil
}

func (f FakeConn) Close(ctx context.Context) error {
	return nil
}

type fakeRow struct {
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	return r.err
}
