package result

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/databricks/sqlwarehouse-go/internal/backend"
)

// stubClient implements backend.Client, exercising only the two methods
// CloudFetchQueue calls; every other method panics if reached, so a test
// relying on one fails loudly instead of silently returning zero values.
type stubClient struct {
	fetchNextChunks   func(ctx context.Context, cmd backend.CommandID, startChunkIndex int64) ([]backend.ResultChunk, bool, error)
	refreshChunkLinks func(ctx context.Context, cmd backend.CommandID, startRowOffset int64) ([]backend.ChunkLink, error)
}

func (s *stubClient) OpenSession(context.Context, string, string, map[string]string) (backend.SessionID, error) {
	panic("not used")
}
func (s *stubClient) CloseSession(context.Context, backend.SessionID) error { panic("not used") }
func (s *stubClient) Execute(context.Context, backend.ExecuteRequest) (backend.ExecuteResult, error) {
	panic("not used")
}
func (s *stubClient) GetState(context.Context, backend.CommandID) (backend.CommandState, error) {
	panic("not used")
}
func (s *stubClient) Cancel(context.Context, backend.CommandID) error      { panic("not used") }
func (s *stubClient) CloseCommand(context.Context, backend.CommandID) error { panic("not used") }
func (s *stubClient) GetExecutionResult(context.Context, backend.CommandID) (*backend.ResultSetMeta, error) {
	panic("not used")
}
func (s *stubClient) GetCatalogs(context.Context, backend.SessionID) (*backend.ResultSetMeta, error) {
	panic("not used")
}
func (s *stubClient) GetSchemas(context.Context, backend.SessionID, backend.MetadataScope) (*backend.ResultSetMeta, error) {
	panic("not used")
}
func (s *stubClient) GetTables(context.Context, backend.SessionID, backend.MetadataScope) (*backend.ResultSetMeta, error) {
	panic("not used")
}
func (s *stubClient) GetColumns(context.Context, backend.SessionID, backend.MetadataScope) (*backend.ResultSetMeta, error) {
	panic("not used")
}

func (s *stubClient) FetchNextChunks(ctx context.Context, cmd backend.CommandID, startChunkIndex int64) ([]backend.ResultChunk, bool, error) {
	return s.fetchNextChunks(ctx, cmd, startChunkIndex)
}

func (s *stubClient) RefreshChunkLinks(ctx context.Context, cmd backend.CommandID, startRowOffset int64) ([]backend.ChunkLink, error) {
	return s.refreshChunkLinks(ctx, cmd, startRowOffset)
}

var _ backend.Client = (*stubClient)(nil)

func TestCloudFetchQueueSinglePage(t *testing.T) {
	data := buildArrowStream(t, []int64{1, 2}, []string{"a", "b"}, nil)

	client, srv := newTestTransportClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(data)
	})

	mgr := NewDownloadManager(client, 2, false)

	meta := &backend.ResultSetMeta{
		Columns:     testSchema(),
		HasMoreRows: false,
		Chunks: []backend.ResultChunk{
			{ChunkIndex: 0, RowCount: 2, Link: &backend.ChunkLink{
				ChunkIndex: 0, PresignedURL: srv.URL + "/chunk0", RowCount: 2,
			}},
		},
	}

	stub := &stubClient{}

	q := NewCloudFetchQueue(stub, backend.CommandID{}, meta, mgr)

	var ids []int64

	for {
		row, err := q.Next(context.Background())
		if err == io.EOF {
			break
		}

		require.NoError(t, err)
		ids = append(ids, row.At(0).I)
	}

	assert.Equal(t, []int64{1, 2}, ids)
}

func TestCloudFetchQueuePagesInMoreChunks(t *testing.T) {
	data0 := buildArrowStream(t, []int64{1}, []string{"a"}, nil)
	data1 := buildArrowStream(t, []int64{2}, []string{"b"}, nil)

	responses := map[string][]byte{"/chunk0": data0, "/chunk1": data1}

	client, srv := newTestTransportClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(responses[r.URL.Path])
	})

	mgr := NewDownloadManager(client, 2, false)

	meta := &backend.ResultSetMeta{
		Columns:     testSchema(),
		HasMoreRows: true,
		Chunks: []backend.ResultChunk{
			{ChunkIndex: 0, RowCount: 1, Link: &backend.ChunkLink{
				ChunkIndex: 0, PresignedURL: srv.URL + "/chunk0", RowCount: 1,
			}},
		},
	}

	fetched := false
	stub := &stubClient{
		fetchNextChunks: func(ctx context.Context, cmd backend.CommandID, startChunkIndex int64) ([]backend.ResultChunk, bool, error) {
			require.False(t, fetched, "should only page once")
			fetched = true

			return []backend.ResultChunk{
				{ChunkIndex: 1, RowCount: 1, Link: &backend.ChunkLink{
					ChunkIndex: 1, PresignedURL: srv.URL + "/chunk1", RowCount: 1,
				}},
			}, false, nil
		},
	}

	q := NewCloudFetchQueue(stub, backend.CommandID{}, meta, mgr)

	var ids []int64

	for {
		row, err := q.Next(context.Background())
		if err == io.EOF {
			break
		}

		require.NoError(t, err)
		ids = append(ids, row.At(0).I)
	}

	assert.Equal(t, []int64{1, 2}, ids)
	assert.True(t, fetched)
}
