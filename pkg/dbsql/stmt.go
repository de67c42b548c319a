package dbsql

import (
	"context"
	"database/sql/driver"
)

// Stmt is a prepared statement bound to one Conn — warehouse statements
// aren't server-side prepared (§4.5 resolves parameters client-side per
// execute call), so Stmt just remembers the query text and re-executes it
// through the Conn on every call, the same "prepare is a no-op, execute does
// the work" shape as most cloud-warehouse drivers without a real PREPARE RPC.
type Stmt struct {
	conn  *Conn
	query string
}

var (
	_ driver.Stmt             = (*Stmt)(nil)
	_ driver.StmtExecContext  = (*Stmt)(nil)
	_ driver.StmtQueryContext = (*Stmt)(nil)
)

func (s *Stmt) Close() error { return nil }

// NumInput returns -1: the driver doesn't parse placeholder counts ahead of
// execution, it hands the raw parameter list to internal/params at execute
// time (§4.5's three paradigms aren't all countable this way up front).
func (s *Stmt) NumInput() int { return -1 }

func (s *Stmt) Exec(args []driver.Value) (driver.Result, error) {
	return s.ExecContext(context.Background(), valuesToNamedValues(args))
}

func (s *Stmt) Query(args []driver.Value) (driver.Rows, error) {
	return s.QueryContext(context.Background(), valuesToNamedValues(args))
}

func (s *Stmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	return s.conn.ExecContext(ctx, s.query, args)
}

func (s *Stmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	return s.conn.QueryContext(ctx, s.query, args)
}

func valuesToNamedValues(args []driver.Value) []driver.NamedValue {
	out := make([]driver.NamedValue, len(args))
	for i, v := range args {
		out[i] = driver.NamedValue{Ordinal: i + 1, Value: v}
	}

	return out
}
