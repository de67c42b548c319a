package warehouse

import (
	"context"
	"sync"

	"github.com/databricks/sqlwarehouse-go/internal/backend"
)

// fakeClient is a minimal in-memory backend.Client for exercising Session
// and Cursor without a network round trip. Each method is a func field
// defaulting to a harmless zero-value behavior; tests override only what
// they need, the same stubbing shape as internal/result's stubClient.
type fakeClient struct {
	mu sync.Mutex

	openSession  func(ctx context.Context, catalog, schema string, cfg map[string]string) (backend.SessionID, error)
	closeSession func(ctx context.Context, session backend.SessionID) error

	execute      func(ctx context.Context, req backend.ExecuteRequest) (backend.ExecuteResult, error)
	getState     func(ctx context.Context, cmd backend.CommandID) (backend.CommandState, error)
	cancel       func(ctx context.Context, cmd backend.CommandID) error
	closeCommand func(ctx context.Context, cmd backend.CommandID) error
	getResult    func(ctx context.Context, cmd backend.CommandID) (*backend.ResultSetMeta, error)

	getCatalogs func(ctx context.Context, session backend.SessionID) (*backend.ResultSetMeta, error)
	getSchemas  func(ctx context.Context, session backend.SessionID, scope backend.MetadataScope) (*backend.ResultSetMeta, error)
	getTables   func(ctx context.Context, session backend.SessionID, scope backend.MetadataScope) (*backend.ResultSetMeta, error)
	getColumns  func(ctx context.Context, session backend.SessionID, scope backend.MetadataScope) (*backend.ResultSetMeta, error)

	fetchNextChunks   func(ctx context.Context, cmd backend.CommandID, startChunkIndex int64) ([]backend.ResultChunk, bool, error)
	refreshChunkLinks func(ctx context.Context, cmd backend.CommandID, startRowOffset int64) ([]backend.ChunkLink, error)

	cancelCalls int
}

var _ backend.Client = (*fakeClient)(nil)

func (f *fakeClient) OpenSession(ctx context.Context, catalog, schema string, cfg map[string]string) (backend.SessionID, error) {
	if f.openSession != nil {
		return f.openSession(ctx, catalog, schema, cfg)
	}

	return backend.SessionID{Backend: backend.BackendSEA, GUID: "sess-1"}, nil
}

func (f *fakeClient) CloseSession(ctx context.Context, session backend.SessionID) error {
	if f.closeSession != nil {
		return f.closeSession(ctx, session)
	}

	return nil
}

func (f *fakeClient) Execute(ctx context.Context, req backend.ExecuteRequest) (backend.ExecuteResult, error) {
	if f.execute != nil {
		return f.execute(ctx, req)
	}

	return backend.ExecuteResult{CommandID: backend.CommandID{GUID: "cmd-1"}}, nil
}

func (f *fakeClient) GetState(ctx context.Context, cmd backend.CommandID) (backend.CommandState, error) {
	if f.getState != nil {
		return f.getState(ctx, cmd)
	}

	return backend.StateSucceeded, nil
}

func (f *fakeClient) Cancel(ctx context.Context, cmd backend.CommandID) error {
	f.mu.Lock()
	f.cancelCalls++
	f.mu.Unlock()

	if f.cancel != nil {
		return f.cancel(ctx, cmd)
	}

	return nil
}

func (f *fakeClient) CloseCommand(ctx context.Context, cmd backend.CommandID) error {
	if f.closeCommand != nil {
		return f.closeCommand(ctx, cmd)
	}

	return nil
}

func (f *fakeClient) GetExecutionResult(ctx context.Context, cmd backend.CommandID) (*backend.ResultSetMeta, error) {
	if f.getResult != nil {
		return f.getResult(ctx, cmd)
	}

	return &backend.ResultSetMeta{}, nil
}

func (f *fakeClient) GetCatalogs(ctx context.Context, session backend.SessionID) (*backend.ResultSetMeta, error) {
	if f.getCatalogs != nil {
		return f.getCatalogs(ctx, session)
	}

	return &backend.ResultSetMeta{}, nil
}

func (f *fakeClient) GetSchemas(ctx context.Context, session backend.SessionID, scope backend.MetadataScope) (*backend.ResultSetMeta, error) {
	if f.getSchemas != nil {
		return f.getSchemas(ctx, session, scope)
	}

	return &backend.ResultSetMeta{}, nil
}

func (f *fakeClient) GetTables(ctx context.Context, session backend.SessionID, scope backend.MetadataScope) (*backend.ResultSetMeta, error) {
	if f.getTables != nil {
		return f.getTables(ctx, session, scope)
	}

	return &backend.ResultSetMeta{}, nil
}

func (f *fakeClient) GetColumns(ctx context.Context, session backend.SessionID, scope backend.MetadataScope) (*backend.ResultSetMeta, error) {
	if f.getColumns != nil {
		return f.getColumns(ctx, session, scope)
	}

	return &backend.ResultSetMeta{}, nil
}

func (f *fakeClient) FetchNextChunks(ctx context.Context, cmd backend.CommandID, startChunkIndex int64) ([]backend.ResultChunk, bool, error) {
	if f.fetchNextChunks != nil {
		return f.fetchNextChunks(ctx, cmd, startChunkIndex)
	}

	return nil, false, nil
}

func (f *fakeClient) RefreshChunkLinks(ctx context.Context, cmd backend.CommandID, startRowOffset int64) ([]backend.ChunkLink, error) {
	if f.refreshChunkLinks != nil {
		return f.refreshChunkLinks(ctx, cmd, startRowOffset)
	}

	return nil, nil
}
