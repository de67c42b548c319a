package dbsql

import (
	"context"
	"database/sql/driver"
	"errors"

	"github.com/databricks/sqlwarehouse-go/internal/warehouse"
)

// Conn adapts one warehouse.Session to driver.Conn. Not safe for concurrent
// use by more than one goroutine — database/sql itself enforces this by
// pooling Conns and never handing the same one to two callers at once.
type Conn struct {
	session *warehouse.Session
}

var (
	_ driver.Conn               = (*Conn)(nil)
	_ driver.ConnPrepareContext = (*Conn)(nil)
	_ driver.ExecerContext      = (*Conn)(nil)
	_ driver.QueryerContext     = (*Conn)(nil)
	_ driver.Pinger             = (*Conn)(nil)
	_ driver.Validator          = (*Conn)(nil)
)

// errNoTransactions is returned by Begin — transactional semantics are out
// of scope (SPEC_FULL.md Non-goals).
var errNoTransactions = errors.New("sqlwarehouse: transactions are not supported")

func (c *Conn) Prepare(query string) (driver.Stmt, error) {
	return c.PrepareContext(context.Background(), query)
}

func (c *Conn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	return &Stmt{conn: c, query: query}, nil
}

func (c *Conn) Close() error {
	return c.session.Close(context.Background())
}

func (c *Conn) Begin() (driver.Tx, error) {
	return nil, errNoTransactions
}

func (c *Conn) Ping(ctx context.Context) error {
	return c.session.Ping(ctx)
}

// IsValid reports whether c may still be handed out by the pool — always
// true; a session that has actually failed surfaces that on the next call
// instead, the same posture the teacher's graph.Client takes (no
// out-of-band health check, just propagate the real error).
func (c *Conn) IsValid() bool { return true }

func (c *Conn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	cur := c.session.NewCursor()
	defer cur.Close(ctx)

	opts, err := executeOptionsFromArgs(args)
	if err != nil {
		return nil, err
	}

	if err := cur.Execute(ctx, query, opts...); err != nil {
		return nil, err
	}

	return &execResult{}, nil
}

func (c *Conn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	cur := c.session.NewCursor()

	opts, err := executeOptionsFromArgs(args)
	if err != nil {
		cur.Close(ctx)
		return nil, err
	}

	if err := cur.Execute(ctx, query, opts...); err != nil {
		cur.Close(ctx)
		return nil, err
	}

	return &Rows{cursor: cur, columns: cur.Description()}, nil
}

// execResult implements driver.Result. Neither LastInsertId nor RowsAffected
// has a meaningful warehouse-side analogue (§3's Row/ResultSet model has no
// insert-id concept); both report driver.ErrSkip's sibling — a fixed "not
// supported" per database/sql/driver convention, rather than lying with 0.
type execResult struct{}

func (execResult) LastInsertId() (int64, error) {
	return 0, errors.New("sqlwarehouse: LastInsertId is not supported")
}

func (execResult) RowsAffected() (int64, error) {
	return 0, errors.New("sqlwarehouse: RowsAffected is not supported")
}

// executeOptionsFromArgs converts database/sql's NamedValue slice into
// warehouse ExecuteOptions — named when every arg carries a Name (Go's
// sql.Named("x", v) binding), else positional.
func executeOptionsFromArgs(args []driver.NamedValue) ([]warehouse.ExecuteOption, error) {
	if len(args) == 0 {
		return nil, nil
	}

	named := true
	for _, a := range args {
		if a.Name == "" {
			named = false
			break
		}
	}

	if named {
		values := make(map[string]any, len(args))
		for _, a := range args {
			values[a.Name] = a.Value
		}

		return []warehouse.ExecuteOption{warehouse.WithNamedParameters(values)}, nil
	}

	values := make([]any, len(args))
	for _, a := range args {
		values[a.Ordinal-1] = a.Value
	}

	return []warehouse.ExecuteOption{warehouse.WithPositionalParameters(values)}, nil
}
