package warehouse

import (
	"context"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/databricks/sqlwarehouse-go/internal/backend"
	"github.com/databricks/sqlwarehouse-go/internal/warehouseconfig"
)

func newTestSession(client backend.Client) *Session {
	return &Session{
		cfg:           &warehouseconfig.Config{Catalog: "main", Schema: "default"},
		rpcClient:     client,
		rawHTTPClient: http.DefaultClient,
		logger:        slog.Default(),
	}
}

func TestSessionOpensLazilyOnFirstUse(t *testing.T) {
	opened := false

	client := &fakeClient{
		openSession: func(ctx context.Context, catalog, schema string, cfg map[string]string) (backend.SessionID, error) {
			opened = true
			assert.Equal(t, "main", catalog)
			assert.Equal(t, "default", schema)

			return backend.SessionID{Backend: backend.BackendSEA, GUID: "sess-1"}, nil
		},
	}

	s := newTestSession(client)
	assert.False(t, opened)

	require.NoError(t, s.ensureOpen(context.Background()))
	assert.True(t, opened)
	assert.True(t, s.opened)

	opened = false
	require.NoError(t, s.ensureOpen(context.Background()))
	assert.False(t, opened, "ensureOpen must be idempotent")
}

func TestSessionEnsureOpenFailsAfterClose(t *testing.T) {
	s := newTestSession(&fakeClient{})
	require.NoError(t, s.Close(context.Background()))

	err := s.ensureOpen(context.Background())
	require.Error(t, err)

	var be *backend.Error
	require.ErrorAs(t, err, &be)
	assert.ErrorIs(t, be, backend.ErrSessionClosed)
}

func TestSessionCloseIsIdempotent(t *testing.T) {
	calls := 0
	client := &fakeClient{
		closeSession: func(ctx context.Context, session backend.SessionID) error {
			calls++

			return nil
		},
	}

	s := newTestSession(client)
	require.NoError(t, s.ensureOpen(context.Background()))

	require.NoError(t, s.Close(context.Background()))
	require.NoError(t, s.Close(context.Background()))
	assert.Equal(t, 1, calls)
}

func TestSessionCloseToleratesAlreadyClosed(t *testing.T) {
	client := &fakeClient{
		closeSession: func(ctx context.Context, session backend.SessionID) error {
			return &backend.Error{
				Message: "not found",
				Context: map[string]any{"http-code": 404},
				Err:     backend.ErrRequest,
			}
		},
	}

	s := newTestSession(client)
	require.NoError(t, s.ensureOpen(context.Background()))
	require.NoError(t, s.Close(context.Background()))
}

func TestSessionCloseNeverOpenedSkipsRPC(t *testing.T) {
	called := false
	client := &fakeClient{
		closeSession: func(ctx context.Context, session backend.SessionID) error {
			called = true

			return nil
		},
	}

	s := newTestSession(client)
	require.NoError(t, s.Close(context.Background()))
	assert.False(t, called)
}
