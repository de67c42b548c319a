package warehouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/databricks/sqlwarehouse-go/internal/backend"
)

func testSchema() []backend.ColumnDescription {
	return []backend.ColumnDescription{
		{Name: "id", TypeName: "int"},
		{Name: "name", TypeName: "string", Nullable: true},
	}
}

func inlineMeta(schema []backend.ColumnDescription, rows [][]backend.Value) *backend.ResultSetMeta {
	rowSlice := make([]backend.Row, 0, len(rows))
	for _, v := range rows {
		rowSlice = append(rowSlice, backend.NewRow(&schema, v))
	}

	return &backend.ResultSetMeta{
		Columns: schema,
		Chunks:  []backend.ResultChunk{{InlineRows: rowSlice, RowCount: int64(len(rowSlice))}},
	}
}

func TestCursorExecuteInstallsResultSetSynchronously(t *testing.T) {
	schema := testSchema()
	meta := inlineMeta(schema, [][]backend.Value{
		{{Kind: backend.KindInt64, I: 1}, {Kind: backend.KindString, Str: "a"}},
		{{Kind: backend.KindInt64, I: 2}, {Kind: backend.KindString, Str: "b"}},
	})

	client := &fakeClient{
		execute: func(ctx context.Context, req backend.ExecuteRequest) (backend.ExecuteResult, error) {
			return backend.ExecuteResult{CommandID: backend.CommandID{GUID: "cmd-1"}, ResultSet: meta}, nil
		},
	}

	s := newTestSession(client)
	c := s.NewCursor()

	require.NoError(t, c.Execute(context.Background(), "select * from t"))
	assert.Equal(t, schema, c.Description())

	rows, err := c.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(1), rows[0].At(0).I)
	assert.Equal(t, "b", rows[1].At(1).Str)
}

func TestCursorFetchOneReturnsNilAtEOF(t *testing.T) {
	schema := testSchema()
	meta := inlineMeta(schema, [][]backend.Value{
		{{Kind: backend.KindInt64, I: 1}, {Kind: backend.KindString, Str: "a"}},
	})

	client := &fakeClient{
		execute: func(ctx context.Context, req backend.ExecuteRequest) (backend.ExecuteResult, error) {
			return backend.ExecuteResult{CommandID: backend.CommandID{GUID: "cmd-1"}, ResultSet: meta}, nil
		},
	}

	c := newTestSession(client).NewCursor()
	require.NoError(t, c.Execute(context.Background(), "select 1"))

	row, err := c.FetchOne(context.Background())
	require.NoError(t, err)
	require.NotNil(t, row)

	row, err = c.FetchOne(context.Background())
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestCursorFetchManyRespectsArraysizeAndStopsAtEOF(t *testing.T) {
	schema := testSchema()
	rows := make([][]backend.Value, 0, 5)
	for i := int64(0); i < 5; i++ {
		rows = append(rows, []backend.Value{{Kind: backend.KindInt64, I: i}, {Kind: backend.KindNull}})
	}

	meta := inlineMeta(schema, rows)

	client := &fakeClient{
		execute: func(ctx context.Context, req backend.ExecuteRequest) (backend.ExecuteResult, error) {
			return backend.ExecuteResult{CommandID: backend.CommandID{GUID: "cmd-1"}, ResultSet: meta}, nil
		},
	}

	c := newTestSession(client).NewCursor()
	require.NoError(t, c.Execute(context.Background(), "select * from t"))

	batch, err := c.FetchMany(context.Background(), 3)
	require.NoError(t, err)
	assert.Len(t, batch, 3)

	batch, err = c.FetchMany(context.Background(), 3)
	require.NoError(t, err)
	assert.Len(t, batch, 2)

	batch, err = c.FetchMany(context.Background(), 3)
	require.NoError(t, err)
	assert.Empty(t, batch)
}

func TestCursorExecuteResetsPriorCommand(t *testing.T) {
	closedCmds := []string{}

	client := &fakeClient{
		execute: func(ctx context.Context, req backend.ExecuteRequest) (backend.ExecuteResult, error) {
			return backend.ExecuteResult{CommandID: backend.CommandID{GUID: "cmd-next"}, ResultSet: &backend.ResultSetMeta{}}, nil
		},
		closeCommand: func(ctx context.Context, cmd backend.CommandID) error {
			closedCmds = append(closedCmds, cmd.GUID)

			return nil
		},
	}

	c := newTestSession(client).NewCursor()
	require.NoError(t, c.Execute(context.Background(), "select 1"))
	require.NoError(t, c.Execute(context.Background(), "select 2"))

	assert.Contains(t, closedCmds, "cmd-next")
}

func TestCursorAsyncExecuteFlow(t *testing.T) {
	schema := testSchema()
	meta := inlineMeta(schema, [][]backend.Value{
		{{Kind: backend.KindInt64, I: 7}, {Kind: backend.KindString, Str: "z"}},
	})

	poll := 0
	client := &fakeClient{
		execute: func(ctx context.Context, req backend.ExecuteRequest) (backend.ExecuteResult, error) {
			require.True(t, req.Async)

			return backend.ExecuteResult{CommandID: backend.CommandID{GUID: "cmd-async"}}, nil
		},
		getState: func(ctx context.Context, cmd backend.CommandID) (backend.CommandState, error) {
			poll++
			if poll < 2 {
				return backend.StateRunning, nil
			}

			return backend.StateSucceeded, nil
		},
		getResult: func(ctx context.Context, cmd backend.CommandID) (*backend.ResultSetMeta, error) {
			return meta, nil
		},
	}

	c := newTestSession(client).NewCursor()
	require.NoError(t, c.ExecuteAsync(context.Background(), "select 7"))

	pending, err := c.IsQueryPending(context.Background())
	require.NoError(t, err)
	assert.True(t, pending)

	require.NoError(t, c.GetAsyncExecutionResult(context.Background()))

	pending, err = c.IsQueryPending(context.Background())
	require.NoError(t, err)
	assert.False(t, pending)

	rows, err := c.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(7), rows[0].At(0).I)
}

func TestCursorCancelWhileExecuteIsBlockedOnPoll(t *testing.T) {
	unblockPoll := make(chan struct{})

	client := &fakeClient{
		execute: func(ctx context.Context, req backend.ExecuteRequest) (backend.ExecuteResult, error) {
			return backend.ExecuteResult{CommandID: backend.CommandID{GUID: "cmd-1"}}, nil
		},
		getState: func(ctx context.Context, cmd backend.CommandID) (backend.CommandState, error) {
			select {
			case <-unblockPoll:
				return backend.StateCanceled, nil
			case <-ctx.Done():
				return backend.StateRunning, ctx.Err()
			}
		},
		cancel: func(ctx context.Context, cmd backend.CommandID) error {
			close(unblockPoll)

			return nil
		},
	}

	c := newTestSession(client).NewCursor()

	done := make(chan error, 1)
	go func() {
		done <- c.Execute(context.Background(), "select pg_sleep(100)")
	}()

	// Give Execute a moment to reach the poll loop before canceling, so
	// Cancel genuinely races a live poll rather than running before cmd
	// is even recorded.
	time.Sleep(20 * time.Millisecond)

	cancelDone := make(chan struct{})
	go func() {
		c.Cancel(context.Background())
		close(cancelDone)
	}()

	select {
	case <-cancelDone:
	case <-time.After(time.Second):
		t.Fatal("Cancel blocked while Execute was polling")
	}

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("Execute never unblocked after cancel")
	}

	assert.Equal(t, 1, client.cancelCalls)
}

func TestCursorCheckFetchableRejectsClosedAndCanceled(t *testing.T) {
	c := newTestSession(&fakeClient{}).NewCursor()

	_, err := c.FetchOne(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, backend.ErrInterface)

	require.NoError(t, c.Execute(context.Background(), "select 1"))
	c.Cancel(context.Background())

	_, err = c.FetchOne(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, backend.ErrOperational)
}

func TestCursorCloseIsIdempotentAndTolerates404(t *testing.T) {
	client := &fakeClient{
		closeCommand: func(ctx context.Context, cmd backend.CommandID) error {
			return &backend.Error{Message: "gone", Context: map[string]any{"http-code": 404}, Err: backend.ErrRequest}
		},
	}

	c := newTestSession(client).NewCursor()
	require.NoError(t, c.Execute(context.Background(), "select 1"))

	require.NoError(t, c.Close(context.Background()))
	require.NoError(t, c.Close(context.Background()))

	_, err := c.FetchOne(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, backend.ErrCursorClosed)
}
