package warehouse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/databricks/sqlwarehouse-go/internal/backend"
	"github.com/databricks/sqlwarehouse-go/internal/params"
	"github.com/databricks/sqlwarehouse-go/internal/result"
)

const defaultArraySize = 10_000

// stagingInputStreamPlaceholder is the literal a PUT statement names when
// its body comes from an in-memory stream rather than a local file (§4.6).
const stagingInputStreamPlaceholder = "__input_stream__"

// Cursor is the DB-API-shaped statement/result surface (§4.6). At most one
// command is active per Cursor; Execute while a command is running first
// cancels/closes it. A Cursor is not safe for concurrent use except Cancel,
// which may be called from another goroutine while Execute or a Fetch* is
// in flight.
type Cursor struct {
	session   *Session
	arraysize int

	mu       sync.Mutex
	cmd      backend.CommandID
	hasCmd   bool
	columns  []backend.ColumnDescription
	queue    result.Queue
	mgr      *result.DownloadManager
	pending  bool // execute_async submitted, not yet resolved
	canceled bool
	closed   bool
}

// SetArraySize overrides the default batch size FetchMany uses with n=0.
func (c *Cursor) SetArraySize(n int) { c.arraysize = n }

// Description returns the current result set's column descriptions, nil if
// no command has installed one.
func (c *Cursor) Description() []backend.ColumnDescription {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.columns
}

// Execute prepares parameters, submits sql via the backend client, and
// installs a fresh ResultSet — replacing any result set/command from a
// prior Execute on this Cursor.
func (c *Cursor) Execute(ctx context.Context, sql string, opts ...ExecuteOption) error {
	o := &executeOptions{}
	for _, opt := range opts {
		opt(o)
	}

	if err := c.resetForNewCommand(ctx); err != nil {
		return err
	}

	if err := c.session.ensureOpen(ctx); err != nil {
		return err
	}

	req, err := c.buildExecuteRequest(ctx, sql, o, false)
	if err != nil {
		return err
	}

	res, err := c.session.rpcClient.Execute(ctx, req)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.cmd = res.CommandID
	c.hasCmd = true
	c.mu.Unlock()

	if stagingOperationOf(sql) != "" {
		// Staging statements return no rows for the caller to fetch (§4.6);
		// the presigned transfer is the entire effect of Execute.
		return c.handleStagingIfNeeded(ctx, sql, o)
	}

	return c.installResultSet(ctx, res.ResultSet)
}

// ExecuteAsync submits sql without waiting for completion; poll with
// IsQueryPending and install the result with GetAsyncExecutionResult once
// the command succeeds.
func (c *Cursor) ExecuteAsync(ctx context.Context, sql string, opts ...ExecuteOption) error {
	o := &executeOptions{}
	for _, opt := range opts {
		opt(o)
	}

	if err := c.resetForNewCommand(ctx); err != nil {
		return err
	}

	if err := c.session.ensureOpen(ctx); err != nil {
		return err
	}

	req, err := c.buildExecuteRequest(ctx, sql, o, true)
	if err != nil {
		return err
	}

	res, err := c.session.rpcClient.Execute(ctx, req)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.cmd = res.CommandID
	c.hasCmd = true
	c.pending = true
	c.mu.Unlock()

	return nil
}

// IsQueryPending reports whether an async command is still running.
func (c *Cursor) IsQueryPending(ctx context.Context) (bool, error) {
	c.mu.Lock()
	cmd, hasCmd := c.cmd, c.hasCmd
	c.mu.Unlock()

	if !hasCmd {
		return false, &backend.Error{Message: "sqlwarehouse: no async command submitted", Err: backend.ErrInterface}
	}

	state, err := c.session.rpcClient.GetState(ctx, cmd)
	if err != nil {
		return false, err
	}

	return state == backend.StatePending || state == backend.StateRunning, nil
}

// GetAsyncExecutionResult blocks until the async command reaches a terminal
// state and installs the ResultSet if it succeeded.
func (c *Cursor) GetAsyncExecutionResult(ctx context.Context) error {
	c.mu.Lock()
	cmd, hasCmd := c.cmd, c.hasCmd
	c.mu.Unlock()

	if !hasCmd {
		return &backend.Error{Message: "sqlwarehouse: no async command submitted", Err: backend.ErrInterface}
	}

	state, err := pollUntilTerminal(ctx, c.session.rpcClient, cmd)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.pending = false
	c.mu.Unlock()

	if state != backend.StateSucceeded {
		return &backend.Error{
			Message: fmt.Sprintf("sqlwarehouse: async command ended in state %s", state),
			Err:     backend.ErrServerOp,
		}
	}

	meta, err := c.session.rpcClient.GetExecutionResult(ctx, cmd)
	if err != nil {
		return err
	}

	return c.installResultSet(ctx, meta)
}

// FetchOne returns the next row, or (nil, nil) at end of stream.
func (c *Cursor) FetchOne(ctx context.Context) (*backend.Row, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkFetchable(); err != nil {
		return nil, err
	}

	row, err := c.queue.Next(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}

		return nil, err
	}

	return &row, nil
}

// FetchMany returns up to n rows (c.arraysize if n == 0), or [] at end of
// stream.
func (c *Cursor) FetchMany(ctx context.Context, n int) ([]backend.Row, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkFetchable(); err != nil {
		return nil, err
	}

	if n <= 0 {
		n = c.arraysize
	}

	rows := make([]backend.Row, 0, n)

	for i := 0; i < n; i++ {
		row, err := c.queue.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			return rows, err
		}

		rows = append(rows, row)
	}

	return rows, nil
}

// FetchAll drains the remaining result set.
func (c *Cursor) FetchAll(ctx context.Context) ([]backend.Row, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkFetchable(); err != nil {
		return nil, err
	}

	var rows []backend.Row

	for {
		row, err := c.queue.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return rows, nil
			}

			return rows, err
		}

		rows = append(rows, row)
	}
}

func (c *Cursor) checkFetchable() error {
	if c.closed {
		return &backend.Error{Message: "sqlwarehouse: cursor is closed", Err: backend.ErrCursorClosed}
	}

	if c.canceled {
		return &backend.Error{Message: "sqlwarehouse: command was canceled", Err: backend.ErrOperational}
	}

	if c.queue == nil {
		return &backend.Error{Message: "sqlwarehouse: no result set; call Execute first", Err: backend.ErrInterface}
	}

	return nil
}

// Cancel cancels the current command. Safe to call from another goroutine
// while Execute or a Fetch* call is in flight (§5); never raises — mirrors
// §7's "cancel never raises" by logging and swallowing backend errors.
func (c *Cursor) Cancel(ctx context.Context) {
	c.mu.Lock()
	cmd, hasCmd := c.cmd, c.hasCmd
	c.canceled = true
	c.mu.Unlock()

	if !hasCmd {
		return
	}

	if err := c.session.rpcClient.Cancel(ctx, cmd); err != nil {
		c.session.logger.Debug("cancel failed", "error", err)
	}
}

// Close closes the current command if any and releases the result set.
func (c *Cursor) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true

	return c.closeCommandLocked(ctx)
}

func (c *Cursor) closeCommandLocked(ctx context.Context) error {
	if c.mgr != nil {
		c.mgr.Shutdown()
		c.mgr = nil
	}

	c.queue = nil
	c.columns = nil

	if !c.hasCmd {
		return nil
	}

	c.hasCmd = false
	c.pending = false

	err := c.session.rpcClient.CloseCommand(ctx, c.cmd)
	if err != nil && isAlreadyClosed(err) {
		return nil
	}

	return err
}

// resetForNewCommand closes any command already running on this Cursor
// before starting a new one, per §4.6's "calling execute while another
// command is running first cancels/closes it."
func (c *Cursor) resetForNewCommand(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return &backend.Error{Message: "sqlwarehouse: cursor is closed", Err: backend.ErrCursorClosed}
	}

	c.canceled = false

	return c.closeCommandLocked(ctx)
}

func (c *Cursor) buildExecuteRequest(ctx context.Context, sql string, o *executeOptions, async bool) (backend.ExecuteRequest, error) {
	cfg := c.session.cfg

	sql, boundParams, err := c.prepareStatement(sql, o)
	if err != nil {
		return backend.ExecuteRequest{}, err
	}

	c.mu.Lock()
	sessionID := c.session.sessionID
	c.mu.Unlock()

	return backend.ExecuteRequest{
		Session:       sessionID,
		SQL:           sql,
		Parameters:    boundParams,
		MaxRows:       o.maxRows,
		MaxBytes:      o.maxBytes,
		LZ4Compressed: cfg.LZ4Compression,
		UseCloudFetch: cfg.UseCloudFetch,
		Async:         async,
		QueryTags:     cfg.QueryTags,
	}, nil
}

// prepareStatement resolves sql + its parameters into the text and bound
// parameters to submit, per §4.5's three paradigms: native named, native
// positional, or inline/legacy literal substitution.
func (c *Cursor) prepareStatement(sql string, o *executeOptions) (string, []backend.BoundParameter, error) {
	cfg := c.session.cfg

	if o.named == nil && o.positional == nil {
		return sql, nil, nil
	}

	if cfg.UseInlineParams || cfg.ParamStyle == "inline" {
		prepared, err := params.PrepareInline(sql, o.named, o.positional)
		if err != nil {
			return "", nil, fmt.Errorf("sqlwarehouse: preparing inline parameters: %w", err)
		}

		return prepared, nil, nil
	}

	if o.named != nil {
		sql = params.TransformParamstyle(sql, params.StructureNamed)

		bound := make([]backend.BoundParameter, 0, len(o.named))

		for name, v := range o.named {
			typeName, val, err := params.Infer(v)
			if err != nil {
				return "", nil, fmt.Errorf("sqlwarehouse: binding parameter %q: %w", name, err)
			}

			bound = append(bound, backend.BoundParameter{Name: name, TypeName: typeName, Value: val})
		}

		return sql, bound, nil
	}

	bound := make([]backend.BoundParameter, 0, len(o.positional))

	for i, v := range o.positional {
		typeName, val, err := params.Infer(v)
		if err != nil {
			return "", nil, fmt.Errorf("sqlwarehouse: binding parameter %d: %w", i, err)
		}

		bound = append(bound, backend.BoundParameter{Ordinal: i, TypeName: typeName, Value: val})
	}

	return sql, bound, nil
}

// installResultSet polls for and installs the ResultSet. Polling deliberately
// happens before c.mu is acquired — §5 requires Cancel to stay callable from
// another goroutine for the whole duration of Execute, and Execute's poll
// loop is exactly the long-running part a caller needs to interrupt.
func (c *Cursor) installResultSet(ctx context.Context, meta *backend.ResultSetMeta) error {
	if meta == nil {
		// Async/poll path: caller must fetch it explicitly (§4.3, "direct
		// results" not decoded — see internal/thrift's Execute).
		fetched, err := c.waitAndFetchResult(ctx)
		if err != nil {
			return err
		}

		meta = fetched
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.installResultSetLocked(ctx, meta)
}

// waitAndFetchResult polls GetState until the statement leaves the
// pending/running states, then fetches the result metadata — the
// poll-then-fetch path Execute takes whenever the backend's execute reply
// carries no result set: always for Thrift, which does not decode direct
// results, and for SEA when the statement has not succeeded by the time the
// submit call returns.
func (c *Cursor) waitAndFetchResult(ctx context.Context) (*backend.ResultSetMeta, error) {
	state, err := pollUntilTerminal(ctx, c.session.rpcClient, c.cmd)
	if err != nil {
		return nil, err
	}

	if state != backend.StateSucceeded {
		return nil, &backend.Error{
			Message: fmt.Sprintf("sqlwarehouse: statement ended in state %s", state),
			Err:     backend.ErrServerOp,
		}
	}

	return c.session.rpcClient.GetExecutionResult(ctx, c.cmd)
}

func (c *Cursor) installResultSetLocked(ctx context.Context, meta *backend.ResultSetMeta) error {
	if meta == nil {
		c.columns = nil
		c.queue = &result.InlineRowQueue{}

		return nil
	}

	c.columns = meta.Columns

	var mgr *result.DownloadManager
	if c.session.downloadClient != nil {
		mgr = result.NewDownloadManager(c.session.downloadClient, c.session.cfg.MaxDownloadThreads, c.session.cfg.LZ4Compression)
	}

	q, err := result.NewQueue(c.session.rpcClient, c.cmd, meta, mgr)
	if err != nil {
		return err
	}

	c.mgr = mgr
	c.queue = q

	return nil
}

func (c *Cursor) metadataResultSet(ctx context.Context, meta *backend.ResultSetMeta, err error) error {
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.installResultSetLocked(ctx, meta)
}

// Catalogs installs a ResultSet enumerating catalogs (§4.3.2 canonical schema).
func (c *Cursor) Catalogs(ctx context.Context) error {
	if err := c.session.ensureOpen(ctx); err != nil {
		return err
	}

	meta, err := c.session.rpcClient.GetCatalogs(ctx, c.session.sessionID)

	return c.metadataResultSet(ctx, meta, err)
}

// Schemas installs a ResultSet enumerating schemas matching scope.
func (c *Cursor) Schemas(ctx context.Context, scope backend.MetadataScope) error {
	if err := c.session.ensureOpen(ctx); err != nil {
		return err
	}

	meta, err := c.session.rpcClient.GetSchemas(ctx, c.session.sessionID, scope)

	return c.metadataResultSet(ctx, meta, err)
}

// Tables installs a ResultSet enumerating tables matching scope.
func (c *Cursor) Tables(ctx context.Context, scope backend.MetadataScope) error {
	if err := c.session.ensureOpen(ctx); err != nil {
		return err
	}

	meta, err := c.session.rpcClient.GetTables(ctx, c.session.sessionID, scope)

	return c.metadataResultSet(ctx, meta, err)
}

// Columns installs a ResultSet enumerating columns matching scope.
func (c *Cursor) Columns(ctx context.Context, scope backend.MetadataScope) error {
	if err := c.session.ensureOpen(ctx); err != nil {
		return err
	}

	meta, err := c.session.rpcClient.GetColumns(ctx, c.session.sessionID, scope)

	return c.metadataResultSet(ctx, meta, err)
}
