package result

import (
	"context"
	"io"

	"github.com/databricks/sqlwarehouse-go/internal/backend"
)

// Queue is the common interface of the three result-delivery strategies
// (§4.4.1): inline rows (small results embedded directly in the execute
// response), inline Arrow batches, and cloud-fetch external links. Next
// returns io.EOF once exhausted, the conventional Go iterator contract.
type Queue interface {
	Next(ctx context.Context) (backend.Row, error)
	Close() error
}

// NewQueue selects the right Queue implementation for one ResultSetMeta,
// inspecting its first chunk to decide between the three strategies —
// mirroring original_source's ThriftResultSet/SeaResultSet constructor logic
// that picks a queue type from the manifest's disposition/format fields.
// client and cmd are only needed (and only used) by the cloud-fetch variant,
// to page in further chunk links and refresh expired ones.
func NewQueue(client backend.Client, cmd backend.CommandID, meta *backend.ResultSetMeta, mgr *DownloadManager) (Queue, error) {
	if len(meta.Chunks) == 0 {
		return &InlineRowQueue{}, nil
	}

	first := meta.Chunks[0]

	switch {
	case first.Link != nil:
		return NewCloudFetchQueue(client, cmd, meta, mgr), nil
	case first.InlineArrow != nil:
		return NewArrowQueue(meta)
	default:
		rows := make([]backend.Row, 0)
		for _, c := range meta.Chunks {
			rows = append(rows, c.InlineRows...)
		}

		return &InlineRowQueue{rows: rows}, nil
	}
}
