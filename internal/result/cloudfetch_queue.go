package result

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/databricks/sqlwarehouse-go/internal/backend"
)

// linkExpirySkew is how much lead time before a presigned URL's ExpiryTime
// we treat it as already expired and proactively refresh, avoiding a round
// trip that would fail with an expired-link error from the object store.
const linkExpirySkew = 30 * time.Second

// CloudFetchQueue serves rows backed by presigned-URL chunks fetched through
// a DownloadManager, paging in further chunk descriptors from the backend as
// earlier ones are exhausted and refreshing links that expire before they're
// consumed — the three behaviors original_source's CloudFetchQueue composes
// on top of ResultFileDownloadManager.
type CloudFetchQueue struct {
	client backend.Client
	cmd    backend.CommandID
	mgr    *DownloadManager
	schema *[]backend.ColumnDescription

	links []backend.ChunkLink // links not yet submitted to mgr, in order

	nextChunkIndex int64
	hasMore        bool

	curRows []backend.Row
	curIdx  int

	totalLinks    int
	filesConsumed int
	closed        bool
}

// NewCloudFetchQueue seeds the manager with the first batch of links already
// present on meta and records the cursor needed to page in the rest.
func NewCloudFetchQueue(client backend.Client, cmd backend.CommandID, meta *backend.ResultSetMeta, mgr *DownloadManager) *CloudFetchQueue {
	q := &CloudFetchQueue{
		client:  client,
		cmd:     cmd,
		mgr:     mgr,
		schema:  &meta.Columns,
		hasMore: meta.HasMoreRows,
	}

	for _, c := range meta.Chunks {
		if c.Link != nil {
			q.links = append(q.links, *c.Link)
			q.nextChunkIndex = c.ChunkIndex + 1
		}
	}

	q.submitFreshLinks(context.Background())

	return q
}

// submitFreshLinks refreshes any link within linkExpirySkew of expiring, then
// hands everything it currently has to the download manager.
func (q *CloudFetchQueue) submitFreshLinks(ctx context.Context) {
	if len(q.links) == 0 {
		return
	}

	deadline := time.Now().Add(linkExpirySkew)

	var stale []backend.ChunkLink

	fresh := q.links[:0]

	for _, l := range q.links {
		if !l.ExpiryTime.IsZero() && l.ExpiryTime.Before(deadline) {
			stale = append(stale, l)

			continue
		}

		fresh = append(fresh, l)
	}

	q.links = fresh

	if len(stale) > 0 {
		refreshed, err := q.client.RefreshChunkLinks(ctx, q.cmd, stale[0].StartRowOffset)
		if err == nil {
			q.mgr.CancelFromOffset(stale[0].StartRowOffset)
			q.links = append(q.links, refreshed...)
		}
		// A refresh failure surfaces later as a download error from the
		// manager when that chunk's turn comes up; nothing to do here.
	}

	q.totalLinks += len(q.links)
	q.mgr.AddLinks(q.links)
	q.links = nil
}

// fetchMoreLinks pages in the next batch of chunk descriptors once the
// queue's known links have all been submitted and the backend reported more
// are available.
func (q *CloudFetchQueue) fetchMoreLinks(ctx context.Context) error {
	if !q.hasMore {
		return nil
	}

	chunks, hasMore, err := q.client.FetchNextChunks(ctx, q.cmd, q.nextChunkIndex)
	if err != nil {
		return fmt.Errorf("result: fetching next chunk links: %w", err)
	}

	q.hasMore = hasMore

	for _, c := range chunks {
		if c.Link != nil {
			q.links = append(q.links, *c.Link)
			q.nextChunkIndex = c.ChunkIndex + 1
		}
	}

	q.submitFreshLinks(ctx)

	return nil
}

func (q *CloudFetchQueue) Next(ctx context.Context) (backend.Row, error) {
	for {
		if q.curIdx < len(q.curRows) {
			row := q.curRows[q.curIdx]
			q.curIdx++

			return row, nil
		}

		if q.closed {
			return backend.Row{}, io.EOF
		}

		if len(q.links) == 0 && q.hasMore {
			if err := q.fetchMoreLinks(ctx); err != nil {
				return backend.Row{}, err
			}
		}

		if q.filesConsumed >= q.totalLinks && !q.hasMore {
			q.closed = true

			return backend.Row{}, io.EOF
		}

		file, err := q.mgr.Next(ctx)
		if err != nil {
			return backend.Row{}, err
		}

		q.filesConsumed++

		records, err := decodeArrowStream(file.Data)
		if err != nil {
			return backend.Row{}, fmt.Errorf("result: decoding cloud-fetch chunk %d: %w", file.ChunkIndex, err)
		}

		rows, err := rowsFromRecords(q.schema, records)
		releaseRecords(records)

		if err != nil {
			return backend.Row{}, err
		}

		q.curRows = rows
		q.curIdx = 0
	}
}

func (q *CloudFetchQueue) Close() error {
	q.mgr.Shutdown()

	return nil
}
