package result

import (
	"context"
	"io"

	"github.com/databricks/sqlwarehouse-go/internal/backend"
)

// InlineRowQueue serves rows that arrived already materialized — a SEA
// INLINE/JSON_ARRAY disposition response, decoded up front by the backend
// client into backend.Row before the queue ever sees them. The Thrift client
// decodes neither direct results nor fetched rows, so it never feeds this
// queue.
type InlineRowQueue struct {
	rows []backend.Row
	pos  int
}

func (q *InlineRowQueue) Next(ctx context.Context) (backend.Row, error) {
	if q.pos >= len(q.rows) {
		return backend.Row{}, io.EOF
	}

	row := q.rows[q.pos]
	q.pos++

	return row, nil
}

func (q *InlineRowQueue) Close() error { return nil }
