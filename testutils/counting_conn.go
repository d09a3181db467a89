package testutils

import (
	"context"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/genomehc/hcverify/dbconn"
)

// CountingConn wraps a Conn and records every query issued through it. It
// can also be told to fail queries once a budget runs out, to simulate a
// source going away mid-comparison.
type CountingConn struct {
	dbconn.Conn

	mu struct {
		sync.Mutex
		queries  []string
		failFrom int
	}
}

func NewCountingConn(conn dbconn.Conn) *CountingConn {
	c := &CountingConn{Conn: conn}
	c.mu.failFrom = -1
	return c
}

// FailAfter makes every query after the first n (counting from now on) fail.
func (c *CountingConn) FailAfter(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mu.failFrom = len(c.mu.queries) + n
}

func (c *CountingConn) record(q string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mu.queries = append(c.mu.queries, q)
	if c.mu.failFrom >= 0 && len(c.mu.queries) > c.mu.failFrom {
		return errors.Newf("connection to %s lost", c.Conn.ID())
	}
	return nil
}

func (c *CountingConn) Query(ctx context.Context, q string, args ...any) (dbconn.Rows, error) {
	if err := c.record(q); err != nil {
		return nil, err
	}
	return c.Conn.Query(ctx, q, args...)
}

func (c *CountingConn) QueryRow(ctx context.Context, q string, args ...any) dbconn.Row {
	if err := c.record(q); err != nil {
		return errRow{err: err}
	}
	return c.Conn.QueryRow(ctx, q, args...)
}

// Queries returns every query issued so far.
func (c *CountingConn) Queries() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.mu.queries...)
}

// QueriesWithPrefix counts the issued queries starting with prefix.
func (c *CountingConn) QueriesWithPrefix(prefix string) int {
	n := 0
	for _, q := range c.Queries() {
		if strings.HasPrefix(q, prefix) {
			n++
		}
	}
	return n
}

type errRow struct {
	err error
}

func (r errRow) Scan(dest ...any) error {
	return r.err
}
