package result

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/apache/arrow/go/v15/arrow"
	"github.com/apache/arrow/go/v15/arrow/ipc"
	"github.com/apache/arrow/go/v15/arrow/memory"

	"github.com/databricks/sqlwarehouse-go/internal/backend"
)

// ArrowQueue serves rows decoded from Arrow record batches carried inline in
// a chunk's InlineArrow bytes, decoded eagerly per record the way
// original_source's SeaResultSet builds its column queue from inline
// attachment bytes rather than deferring to a download manager. Neither
// backend client in this module fills InlineArrow: SEA inline results are
// requested as JSON_ARRAY, and the Thrift client decodes no result rows.
type ArrowQueue struct {
	schema *[]backend.ColumnDescription

	records []arrow.Record
	recIdx  int
	rowIdx  int
}

// NewArrowQueue decodes every chunk's InlineArrow bytes up front. Result sets
// delivered this way are small enough (the server only inlines Arrow when it
// chose not to hand out cloud-fetch links) that eager decoding is simpler
// than lazily streaming chunk-by-chunk.
func NewArrowQueue(meta *backend.ResultSetMeta) (*ArrowQueue, error) {
	q := &ArrowQueue{schema: &meta.Columns}

	for _, chunk := range meta.Chunks {
		if chunk.InlineArrow == nil {
			continue
		}

		recs, err := decodeArrowStream(chunk.InlineArrow)
		if err != nil {
			return nil, fmt.Errorf("result: decoding inline arrow chunk %d: %w", chunk.ChunkIndex, err)
		}

		q.records = append(q.records, recs...)
	}

	return q, nil
}

// decodeArrowStream reads every record batch out of one Arrow IPC stream
// buffer, grounded on original_source's arrow_result.py use of
// pyarrow.ipc.open_stream to iterate batches out of attachment bytes.
func decodeArrowStream(data []byte) ([]arrow.Record, error) {
	reader, err := ipc.NewReader(bytes.NewReader(data), ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, fmt.Errorf("result: opening arrow ipc stream: %w", err)
	}
	defer reader.Release()

	var records []arrow.Record

	for reader.Next() {
		rec := reader.Record()
		rec.Retain()
		records = append(records, rec)
	}

	if err := reader.Err(); err != nil && err != io.EOF {
		return nil, fmt.Errorf("result: reading arrow ipc stream: %w", err)
	}

	return records, nil
}

func (q *ArrowQueue) Next(ctx context.Context) (backend.Row, error) {
	if err := ctx.Err(); err != nil {
		return backend.Row{}, err
	}

	for q.recIdx < len(q.records) {
		rec := q.records[q.recIdx]

		if int(rec.NumRows()) <= q.rowIdx {
			q.recIdx++
			q.rowIdx = 0

			continue
		}

		cols := make([]arrow.Array, rec.NumCols())
		for i := range cols {
			cols[i] = rec.Column(i)
		}

		row, err := rowFromRecord(q.schema, cols, q.rowIdx)
		if err != nil {
			return backend.Row{}, err
		}

		q.rowIdx++

		return row, nil
	}

	return backend.Row{}, io.EOF
}

func (q *ArrowQueue) Close() error {
	for _, rec := range q.records {
		rec.Release()
	}

	q.records = nil

	return nil
}
