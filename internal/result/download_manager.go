// Package result implements the §4.4 result pipeline: the three Queue
// variants (inline rows, inline Arrow batches, and cloud-fetch external
// links), the cloud-fetch Download Manager, and row conversion into
// backend.Row. The Download Manager's concurrency shape is grounded on the
// teacher's internal/sync.WorkerPool (bounded goroutine concurrency via a
// counting semaphore, panic-safe per-task execution); its strict
// in-order-delivery-despite-out-of-order-completion guarantee is grounded on
// original_source's cloudfetch/download_manager.py ResultFileDownloadManager
// (submit in link order, consume in link order, block on the oldest
// outstanding future).
package result

import (
	"context"
	"fmt"
	"sync"

	"github.com/databricks/sqlwarehouse-go/internal/backend"
	"github.com/databricks/sqlwarehouse-go/internal/transport"
)

// DownloadedFile is one fully-fetched and decompressed chunk, ready for
// Arrow decoding.
type DownloadedFile struct {
	ChunkIndex     int64
	StartRowOffset int64
	RowCount       int64
	Data           []byte // decompressed Arrow IPC stream bytes
}

// downloadTask is a link submitted for download plus the channel its result
// arrives on — the Go analogue of the Python manager's TaskWithMetadata
// wrapping a concurrent.futures.Future.
type downloadTask struct {
	link backend.ChunkLink
	done chan struct{}
	file DownloadedFile
	err  error
}

// DownloadManager fetches cloud-fetch chunk links with bounded concurrency
// while guaranteeing callers receive files in link order regardless of which
// download finishes first — §4.4.2's ordering invariant.
type DownloadManager struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending []downloadTask // not yet submitted to a goroutine
	inFlight []*downloadTask

	sem chan struct{} // bounds concurrent downloads to maxThreads

	http          *transport.Client
	lz4Compressed bool
	shutdown      bool
}

// NewDownloadManager builds a manager with maxThreads bounded concurrency.
func NewDownloadManager(httpClient *transport.Client, maxThreads int, lz4Compressed bool) *DownloadManager {
	if maxThreads < 1 {
		maxThreads = 1
	}

	m := &DownloadManager{
		http:          httpClient,
		lz4Compressed: lz4Compressed,
		sem:           make(chan struct{}, maxThreads),
	}
	m.cond = sync.NewCond(&m.mu)

	return m
}

// AddLinks enqueues new chunk links (e.g. from FetchNextChunks trickling in
// more pages) and immediately schedules as many as capacity allows.
func (m *DownloadManager) AddLinks(links []backend.ChunkLink) {
	m.mu.Lock()

	for _, link := range links {
		if link.RowCount == 0 {
			continue
		}

		m.pending = append(m.pending, downloadTask{link: link, done: make(chan struct{})})
	}

	m.mu.Unlock()

	m.scheduleDownloads()
}

// scheduleDownloads submits pending links to goroutines until either the
// pending queue drains or maxThreads downloads are already in flight,
// mirroring the teacher's WorkerPool: a bounded number of concurrent
// goroutines, panic-safe, reporting completion back through a channel.
func (m *DownloadManager) scheduleDownloads() {
	m.mu.Lock()

	for !m.shutdown && len(m.pending) > 0 {
		select {
		case m.sem <- struct{}{}:
		default:
			m.mu.Unlock()

			return
		}

		t := m.pending[0]
		m.pending = m.pending[1:]
		taskPtr := &t
		m.inFlight = append(m.inFlight, taskPtr)

		go m.runDownload(taskPtr)
	}

	m.mu.Unlock()
}

func (m *DownloadManager) runDownload(t *downloadTask) {
	defer func() {
		<-m.sem

		if r := recover(); r != nil {
			t.err = fmt.Errorf("result: download panic: %v", r)
		}

		close(t.done)

		m.mu.Lock()
		m.cond.Broadcast()
		m.mu.Unlock()

		m.scheduleDownloads()
	}()

	t.file, t.err = downloadChunk(context.Background(), m.http, t.link, m.lz4Compressed)
}

// Next blocks until the oldest in-flight (or not-yet-scheduled) download
// completes and returns it, preserving strict FIFO order even though
// downloads themselves may finish out of order — the core guarantee of
// original_source's get_next_downloaded_file.
func (m *DownloadManager) Next(ctx context.Context) (DownloadedFile, error) {
	m.scheduleDownloads()

	m.mu.Lock()
	for len(m.inFlight) == 0 && !m.shutdown {
		m.cond.Wait()
	}

	if m.shutdown {
		m.mu.Unlock()

		return DownloadedFile{}, fmt.Errorf("result: download manager shut down before file was ready: %w", backend.ErrInternal)
	}

	t := m.inFlight[0]
	m.inFlight = m.inFlight[1:]
	m.mu.Unlock()

	select {
	case <-t.done:
		return t.file, t.err
	case <-ctx.Done():
		return DownloadedFile{}, ctx.Err()
	}
}

// CancelFromOffset drops all pending and in-flight tasks whose link starts
// at or after startRowOffset — used when presigned URLs expire and the
// backend issues fresh links starting from a resume point (§4.4.2
// LinkExpired).
func (m *DownloadManager) CancelFromOffset(startRowOffset int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	keepPending := m.pending[:0]

	for _, t := range m.pending {
		if t.link.StartRowOffset < startRowOffset {
			keepPending = append(keepPending, t)
		}
	}

	m.pending = keepPending

	keepInFlight := m.inFlight[:0]

	for _, t := range m.inFlight {
		if t.link.StartRowOffset < startRowOffset {
			keepInFlight = append(keepInFlight, t)
		}
	}

	m.inFlight = keepInFlight
}

// Shutdown stops accepting new downloads and wakes any blocked Next caller.
func (m *DownloadManager) Shutdown() {
	m.mu.Lock()
	m.shutdown = true
	m.cond.Broadcast()
	m.mu.Unlock()
}
