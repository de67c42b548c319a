package warehouse

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/databricks/sqlwarehouse-go/internal/backend"
)

func stagingResultSchema() []backend.ColumnDescription {
	return []backend.ColumnDescription{
		{Name: "operation"},
		{Name: "localFile"},
		{Name: "presignedUrl"},
		{Name: "headers"},
	}
}

func stagingResultMeta(operation, localFile, url, headersJSON string) *backend.ResultSetMeta {
	schema := stagingResultSchema()
	row := backend.NewRow(&schema, []backend.Value{
		{Kind: backend.KindString, Str: operation},
		{Kind: backend.KindString, Str: localFile},
		{Kind: backend.KindString, Str: url},
		{Kind: backend.KindString, Str: headersJSON},
	})

	return &backend.ResultSetMeta{
		Columns: schema,
		Chunks:  []backend.ResultChunk{{InlineRows: []backend.Row{row}, RowCount: 1}},
	}
}

func TestStagingPutStreamsBodyToPresignedURL(t *testing.T) {
	var received []byte
	var gotHeader string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		gotHeader = r.Header.Get("X-Amz-Meta-Test")

		body, _ := io.ReadAll(r.Body)
		received = body

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	meta := stagingResultMeta("PUT", "__input_stream__", srv.URL, `{"X-Amz-Meta-Test":"yes"}`)

	client := &fakeClient{
		execute: func(ctx context.Context, req backend.ExecuteRequest) (backend.ExecuteResult, error) {
			return backend.ExecuteResult{CommandID: backend.CommandID{GUID: "cmd-put"}}, nil
		},
		getResult: func(ctx context.Context, cmd backend.CommandID) (*backend.ResultSetMeta, error) {
			return meta, nil
		},
	}

	s := newTestSession(client)
	c := s.NewCursor()

	payload := "hello staging"
	err := c.Execute(context.Background(), "PUT '__input_stream__' INTO '/Volumes/x/y.bin'",
		WithInputStream(strings.NewReader(payload), int64(len(payload))))
	require.NoError(t, err)

	assert.Equal(t, payload, string(received))
	assert.Equal(t, "yes", gotHeader)
}

func TestStagingPutWithoutStreamOptionIsProgrammingError(t *testing.T) {
	meta := stagingResultMeta("PUT", "__input_stream__", "http://example.invalid", "")

	client := &fakeClient{
		execute: func(ctx context.Context, req backend.ExecuteRequest) (backend.ExecuteResult, error) {
			return backend.ExecuteResult{CommandID: backend.CommandID{GUID: "cmd-put"}}, nil
		},
		getResult: func(ctx context.Context, cmd backend.CommandID) (*backend.ResultSetMeta, error) {
			return meta, nil
		},
	}

	c := newTestSession(client).NewCursor()

	err := c.Execute(context.Background(), "PUT '__input_stream__' INTO '/Volumes/x/y.bin'")
	require.Error(t, err)
	assert.ErrorIs(t, err, backend.ErrProgramming)
}

func TestStagingPutFromLocalPathIsNotSupported(t *testing.T) {
	meta := stagingResultMeta("PUT", "/local/file.bin", "http://example.invalid", "")

	client := &fakeClient{
		execute: func(ctx context.Context, req backend.ExecuteRequest) (backend.ExecuteResult, error) {
			return backend.ExecuteResult{CommandID: backend.CommandID{GUID: "cmd-put"}}, nil
		},
		getResult: func(ctx context.Context, cmd backend.CommandID) (*backend.ResultSetMeta, error) {
			return meta, nil
		},
	}

	c := newTestSession(client).NewCursor()

	err := c.Execute(context.Background(), "PUT '/local/file.bin' INTO '/Volumes/x/y.bin'")
	require.Error(t, err)
	assert.ErrorIs(t, err, backend.ErrNotSupported)
}

func TestStagingGetWritesBodyToOutputWriter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		_, _ = w.Write([]byte("downloaded bytes"))
	}))
	defer srv.Close()

	meta := stagingResultMeta("GET", "/Volumes/x/y.bin", srv.URL, "")

	client := &fakeClient{
		execute: func(ctx context.Context, req backend.ExecuteRequest) (backend.ExecuteResult, error) {
			return backend.ExecuteResult{CommandID: backend.CommandID{GUID: "cmd-get"}}, nil
		},
		getResult: func(ctx context.Context, cmd backend.CommandID) (*backend.ResultSetMeta, error) {
			return meta, nil
		},
	}

	c := newTestSession(client).NewCursor()

	var out bytes.Buffer
	err := c.Execute(context.Background(), "GET '/Volumes/x/y.bin' TO '__output_stream__'", WithOutputWriter(&out))
	require.NoError(t, err)
	assert.Equal(t, "downloaded bytes", out.String())
}

func TestStagingRemoveIssuesDelete(t *testing.T) {
	var gotMethod string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	meta := stagingResultMeta("REMOVE", "/Volumes/x/y.bin", srv.URL, "")

	client := &fakeClient{
		execute: func(ctx context.Context, req backend.ExecuteRequest) (backend.ExecuteResult, error) {
			return backend.ExecuteResult{CommandID: backend.CommandID{GUID: "cmd-rm"}}, nil
		},
		getResult: func(ctx context.Context, cmd backend.CommandID) (*backend.ResultSetMeta, error) {
			return meta, nil
		},
	}

	c := newTestSession(client).NewCursor()

	require.NoError(t, c.Execute(context.Background(), "REMOVE '/Volumes/x/y.bin'"))
	assert.Equal(t, http.MethodDelete, gotMethod)
}

func TestStagingTransferSurfacesHTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	meta := stagingResultMeta("REMOVE", "/Volumes/x/y.bin", srv.URL, "")

	client := &fakeClient{
		execute: func(ctx context.Context, req backend.ExecuteRequest) (backend.ExecuteResult, error) {
			return backend.ExecuteResult{CommandID: backend.CommandID{GUID: "cmd-rm"}}, nil
		},
		getResult: func(ctx context.Context, cmd backend.CommandID) (*backend.ResultSetMeta, error) {
			return meta, nil
		},
	}

	c := newTestSession(client).NewCursor()

	err := c.Execute(context.Background(), "REMOVE '/Volumes/x/y.bin'")
	require.Error(t, err)
	assert.ErrorIs(t, err, backend.ErrOperational)

	var be *backend.Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, 403, be.Context["http-code"])
}
