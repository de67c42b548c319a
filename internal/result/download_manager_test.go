package result

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/databricks/sqlwarehouse-go/internal/backend"
	"github.com/databricks/sqlwarehouse-go/internal/transport"
)

func newTestTransportClient(t *testing.T, handler http.HandlerFunc) (*transport.Client, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return transport.NewClient(srv.URL, srv.Client(), nil), srv
}

func TestDownloadManagerDeliversInOrderDespiteOutOfOrderCompletion(t *testing.T) {
	delays := map[string]time.Duration{
		"/chunk0": 30 * time.Millisecond,
		"/chunk1": 0,
		"/chunk2": 0,
	}

	client, srv := newTestTransportClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(delays[r.URL.Path])
		w.Write([]byte(r.URL.Path))
	})

	mgr := NewDownloadManager(client, 3, false)

	links := []backend.ChunkLink{
		{ChunkIndex: 0, PresignedURL: srv.URL + "/chunk0", RowCount: 1},
		{ChunkIndex: 1, PresignedURL: srv.URL + "/chunk1", RowCount: 1},
		{ChunkIndex: 2, PresignedURL: srv.URL + "/chunk2", RowCount: 1},
	}
	mgr.AddLinks(links)

	var order []int64

	for i := 0; i < 3; i++ {
		f, err := mgr.Next(context.Background())
		require.NoError(t, err)
		order = append(order, f.ChunkIndex)
	}

	assert.Equal(t, []int64{0, 1, 2}, order)
}

func TestDownloadManagerSkipsZeroRowLinks(t *testing.T) {
	client, srv := newTestTransportClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("x"))
	})

	mgr := NewDownloadManager(client, 2, false)
	mgr.AddLinks([]backend.ChunkLink{
		{ChunkIndex: 0, PresignedURL: srv.URL + "/a", RowCount: 0},
		{ChunkIndex: 1, PresignedURL: srv.URL + "/b", RowCount: 5},
	})

	f, err := mgr.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.ChunkIndex)
}

func TestDownloadManagerShutdownUnblocksNext(t *testing.T) {
	mgr := NewDownloadManager(nil, 1, false)

	done := make(chan error, 1)

	go func() {
		_, err := mgr.Next(context.Background())
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	mgr.Shutdown()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("Next did not unblock after Shutdown")
	}
}
