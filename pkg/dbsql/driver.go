// Package dbsql packages internal/warehouse as a standard database/sql
// driver, the Go-native way to expose a DB-API-shaped surface (§4.6) — Go
// programs consume database drivers through database/sql/driver.Conn and
// driver.Rows, not a bespoke Session/Cursor type. Grounded on the teacher's
// pattern of one stable, small public surface (graph.Client, graph.TokenSource)
// wrapping an internal implementation; here the public surface is the
// standard library's own driver contract instead of a bespoke Go API.
package dbsql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	"github.com/databricks/sqlwarehouse-go/internal/auth"
	"github.com/databricks/sqlwarehouse-go/internal/warehouse"
	"github.com/databricks/sqlwarehouse-go/internal/warehouseconfig"
)

func init() {
	sql.Register("sqlwarehouse", &sqlDriver{})
}

// sqlDriver is the legacy database/sql/driver.Driver entry point (DSN-string
// only). Open(dsn) builds a Connector internally and connects through it, so
// both sql.Open("sqlwarehouse", dsn) and sql.OpenDB(connector) work.
type sqlDriver struct{}

var _ driver.Driver = (*sqlDriver)(nil)
var _ driver.DriverContext = (*sqlDriver)(nil)

func (d *sqlDriver) Open(dsn string) (driver.Conn, error) {
	connector, err := d.OpenConnector(dsn)
	if err != nil {
		return nil, err
	}

	return connector.Connect(context.Background())
}

func (d *sqlDriver) OpenConnector(dsn string) (driver.Connector, error) {
	cfg, err := warehouseconfig.ParseDSN(dsn)
	if err != nil {
		return nil, err
	}

	return &Connector{cfg: cfg}, nil
}

// Connector is the driver.Connector-shaped entry point that lets callers
// supply options database/sql/driver.Driver.Open's string-only signature
// cannot express (an externally-built auth.Provider for interactive OAuth
// flows, a custom *http.Client, a *slog.Logger) — the same reason
// warehouse.Option exists.
type Connector struct {
	cfg  *warehouseconfig.Config
	opts []warehouse.Option
}

var _ driver.Connector = (*Connector)(nil)

// Open builds a Connector from a parsed Config plus driver-level options.
func Open(cfg *warehouseconfig.Config, opts ...warehouse.Option) *Connector {
	return &Connector{cfg: cfg, opts: opts}
}

// OpenDSN builds a Connector from a connection string, the common case for
// sql.OpenDB(dbsql.OpenDSN(dsn)).
func OpenDSN(dsn string, opts ...warehouse.Option) (*Connector, error) {
	cfg, err := warehouseconfig.ParseDSN(dsn)
	if err != nil {
		return nil, err
	}

	return &Connector{cfg: cfg, opts: opts}, nil
}

// WithAuthProvider returns a Connector identical to c but using p for
// authentication, for U2M/federated flows the DSN alone cannot express.
func (c *Connector) WithAuthProvider(p auth.Provider) *Connector {
	cp := *c
	cp.opts = append(append([]warehouse.Option{}, c.opts...), warehouse.WithAuthProvider(p))

	return &cp
}

func (c *Connector) Connect(ctx context.Context) (driver.Conn, error) {
	session, err := warehouse.Open(c.cfg, c.opts...)
	if err != nil {
		return nil, fmt.Errorf("sqlwarehouse: opening session: %w", err)
	}

	if err := session.Ping(ctx); err != nil {
		_ = session.Close(ctx)
		return nil, err
	}

	return &Conn{session: session}, nil
}

func (c *Connector) Driver() driver.Driver { return &sqlDriver{} }
