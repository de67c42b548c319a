package dbsql

import (
	"context"
	"database/sql/driver"
	"io"

	"github.com/databricks/sqlwarehouse-go/internal/backend"
	"github.com/databricks/sqlwarehouse-go/internal/warehouse"
)

// Rows adapts one executed Cursor to driver.Rows, fetching one row at a time
// through Cursor.FetchOne — the Queue underneath already buffers/pages per
// §4.4, so there's no benefit to a bigger batch here.
type Rows struct {
	cursor  *warehouse.Cursor
	columns []backend.ColumnDescription
}

var (
	_ driver.Rows                           = (*Rows)(nil)
	_ driver.RowsColumnTypeDatabaseTypeName = (*Rows)(nil)
	_ driver.RowsColumnTypeNullable         = (*Rows)(nil)
)

func (r *Rows) Columns() []string {
	names := make([]string, len(r.columns))
	for i, c := range r.columns {
		names[i] = c.Name
	}

	return names
}

func (r *Rows) ColumnTypeDatabaseTypeName(index int) string {
	return r.columns[index].TypeName
}

func (r *Rows) ColumnTypeNullable(index int) (nullable, ok bool) {
	return r.columns[index].Nullable, true
}

func (r *Rows) Close() error {
	return r.cursor.Close(context.Background())
}

func (r *Rows) Next(dest []driver.Value) error {
	row, err := r.cursor.FetchOne(context.Background())
	if err != nil {
		return err
	}

	if row == nil {
		return io.EOF
	}

	for i := 0; i < row.Len(); i++ {
		dest[i] = valueToDriver(row.At(i))
	}

	return nil
}
