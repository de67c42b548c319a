package thrift

import (
	"context"
	"fmt"

	athrift "github.com/apache/thrift/lib/go/thrift"

	"github.com/databricks/sqlwarehouse-go/internal/backend"
	"github.com/databricks/sqlwarehouse-go/internal/transport"
)

const contentType = "application/x-thrift"

// Client implements backend.Client over Thrift-encoded TCLIService RPCs
// carried as HTTP POST bodies, generalizing the teacher's graph.Client (one
// JSON request/response struct per call) to a binary struct body and a
// fixed RPC path per method instead of a REST path-per-resource scheme.
type Client struct {
	http *transport.Client
	path string
}

// NewClient builds a Thrift backend.Client posting every RPC to rpcPath
// (TCLIService is a single-endpoint RPC service, not a resource-oriented
// REST API, so unlike SEA there is exactly one path for all operations).
func NewClient(http *transport.Client, rpcPath string) *Client {
	return &Client{http: http, path: rpcPath}
}

var _ backend.Client = (*Client)(nil)

func (c *Client) call(ctx context.Context, cmdType backend.CommandType, reqFields []field) (fieldMap, error) {
	body, err := writeStruct(ctx, reqFields)
	if err != nil {
		return nil, fmt.Errorf("thrift: encoding request: %w", err)
	}

	resp, err := c.http.Request(ctx, "POST", c.path, body, transport.RequestOpts{
		ContentType: contentType,
		CommandType: cmdType,
	})
	if err != nil {
		return nil, err
	}

	return readFields(ctx, resp.Data)
}

func (c *Client) OpenSession(ctx context.Context, catalog, schema string, sessionConfig map[string]string) (backend.SessionID, error) {
	cfg := map[string]string{}

	for k, v := range sessionConfig {
		cfg[k] = v
	}

	if catalog != "" {
		cfg["catalog"] = catalog
	}

	if schema != "" {
		cfg["schema"] = schema
	}

	fields := []field{{ID: fOpenSessionClientProtocol, Type: athrift.I32, Value: int32(10)}}
	if len(cfg) > 0 {
		fields = append(fields, field{ID: fOpenSessionConfiguration, Type: athrift.MAP, Value: cfg})
	}

	resp, err := c.call(ctx, backend.CommandOther, fields)
	if err != nil {
		return backend.SessionID{}, err
	}

	if f, ok := resp[1]; ok {
		if m, ok := f.Value.(fieldMap); ok {
			if sErr := statusError(m, "OpenSession"); sErr != nil {
				return backend.SessionID{}, sErr
			}
		}
	}

	const fOpenSessionRespSessionHandle = 3

	sessField, ok := resp[fOpenSessionRespSessionHandle]
	if !ok {
		return backend.SessionID{}, fmt.Errorf("thrift: OpenSession response missing sessionHandle: %w", backend.ErrInternal)
	}

	nested, _ := sessField.Value.(fieldMap)

	guid, secret := parseHandleIdentifier(nestedSessionID(nested))

	return backend.SessionID{Backend: backend.BackendThrift, GUID: guid, SecretGUID: secret}, nil
}

func nestedSessionID(m fieldMap) fieldMap {
	if f, ok := m[fSessionHandleSessionID]; ok {
		if nested, ok := f.Value.(fieldMap); ok {
			return nested
		}
	}

	return nil
}

func (c *Client) CloseSession(ctx context.Context, session backend.SessionID) error {
	_, err := c.call(ctx, backend.CommandCloseSession, []field{
		{ID: fCloseSessionSessionHandle, Type: athrift.STRUCT, Value: sessionHandleBytes(session)},
	})

	return err
}

func (c *Client) Execute(ctx context.Context, req backend.ExecuteRequest) (backend.ExecuteResult, error) {
	fields := []field{
		{ID: fExecuteStatementSessionHandle, Type: athrift.STRUCT, Value: sessionHandleBytes(req.Session)},
		{ID: fExecuteStatementStatement, Type: athrift.STRING, Value: req.SQL},
		{ID: fExecuteStatementRunAsync, Type: athrift.BOOL, Value: req.Async},
	}

	resp, err := c.call(ctx, backend.CommandExecuteStatement, fields)
	if err != nil {
		return backend.ExecuteResult{}, err
	}

	opField, ok := resp[fExecResultOperationHandle]
	if !ok {
		return backend.ExecuteResult{}, fmt.Errorf("thrift: ExecuteStatement response missing operationHandle: %w", backend.ErrInternal)
	}

	nested, _ := opField.Value.(fieldMap)
	cmd := backend.CommandID{
		Backend: backend.BackendThrift,
	}
	cmd.GUID, cmd.SecretGUID = parseHandleIdentifier(nestedOperationID(nested))

	// The "direct results" optimization (server piggybacks the first fetch
	// onto ExecuteStatement so a fast query needs no follow-up round trip)
	// is deliberately not decoded here: this client always takes the
	// poll-then-fetch path via GetState/GetExecutionResult, trading the
	// extra round trip for one fewer response shape to maintain. ResultSet
	// stays nil, which is exactly what signals "caller must poll" (§4.3).
	return backend.ExecuteResult{CommandID: cmd}, nil
}

func nestedOperationID(m fieldMap) fieldMap {
	if f, ok := m[fOperationHandleOperationID]; ok {
		if nested, ok := f.Value.(fieldMap); ok {
			return nested
		}
	}

	return nil
}

func (c *Client) GetState(ctx context.Context, cmd backend.CommandID) (backend.CommandState, error) {
	resp, err := c.call(ctx, backend.CommandGetOperationStatus, []field{
		{ID: fOpStatusOperationHandle, Type: athrift.STRUCT, Value: operationHandleBytes(cmd)},
	})
	if err != nil {
		return backend.StateFailed, err
	}

	stateField, ok := resp[fOpStatusState]
	if !ok {
		return backend.StateFailed, fmt.Errorf("thrift: GetOperationStatus missing state: %w", backend.ErrInternal)
	}

	code, _ := stateField.Value.(int32)

	return backend.MapThriftState(thriftStateName(code)), nil
}

// thriftStateName maps TOperationState's numeric wire codes to the names
// MapThriftState switches on, keeping the enum/string boundary in one place.
func thriftStateName(code int32) string {
	names := []string{"initialized", "running", "finished", "canceled", "closed", "error", "uknownstate", "pending", "timedout"}
	if int(code) >= 0 && int(code) < len(names) {
		return names[code]
	}

	return "unrecognized"
}

func (c *Client) Cancel(ctx context.Context, cmd backend.CommandID) error {
	_, err := c.call(ctx, backend.CommandOther, []field{
		{ID: fCancelOpOperationHandle, Type: athrift.STRUCT, Value: operationHandleBytes(cmd)},
	})

	return err
}

func (c *Client) CloseCommand(ctx context.Context, cmd backend.CommandID) error {
	_, err := c.call(ctx, backend.CommandCloseOperation, []field{
		{ID: fCloseOpOperationHandle, Type: athrift.STRUCT, Value: operationHandleBytes(cmd)},
	})

	return err
}

func (c *Client) GetExecutionResult(ctx context.Context, cmd backend.CommandID) (*backend.ResultSetMeta, error) {
	resp, err := c.call(ctx, backend.CommandOther, []field{
		{ID: fFetchResultsOperationHandle, Type: athrift.STRUCT, Value: operationHandleBytes(cmd)},
		{ID: fFetchResultsOrientation, Type: athrift.I32, Value: int32(orientationFetchNext)},
		{ID: fFetchResultsMaxRows, Type: athrift.I64, Value: int64(10000)},
	})
	if err != nil {
		return nil, err
	}

	meta := &backend.ResultSetMeta{CommandID: cmd, RowCount: -1}

	if hm, ok := resp[fFetchResultsHasMoreRows]; ok {
		meta.HasMoreRows, _ = hm.Value.(bool)
	}

	return meta, nil
}

func (c *Client) FetchNextChunks(ctx context.Context, cmd backend.CommandID, startChunkIndex int64) ([]backend.ResultChunk, bool, error) {
	meta, err := c.GetExecutionResult(ctx, cmd)
	if err != nil {
		return nil, false, err
	}

	return meta.Chunks, meta.HasMoreRows, nil
}

func (c *Client) RefreshChunkLinks(ctx context.Context, cmd backend.CommandID, startRowOffset int64) ([]backend.ChunkLink, error) {
	meta, err := c.GetExecutionResult(ctx, cmd)
	if err != nil {
		return nil, err
	}

	links := make([]backend.ChunkLink, 0, len(meta.Chunks))

	for _, chunk := range meta.Chunks {
		if chunk.Link != nil {
			links = append(links, *chunk.Link)
		}
	}

	return links, nil
}

func (c *Client) metadataOp(ctx context.Context, session backend.SessionID, fields []field) (*backend.ResultSetMeta, error) {
	resp, err := c.call(ctx, backend.CommandOther, fields)
	if err != nil {
		return nil, err
	}

	opField, ok := resp[fExecResultOperationHandle]
	if !ok {
		return nil, fmt.Errorf("thrift: metadata RPC missing operationHandle: %w", backend.ErrInternal)
	}

	nested, _ := opField.Value.(fieldMap)
	cmd := backend.CommandID{Backend: session.Backend}
	cmd.GUID, cmd.SecretGUID = parseHandleIdentifier(nestedOperationID(nested))

	return c.GetExecutionResult(ctx, cmd)
}

func (c *Client) GetCatalogs(ctx context.Context, session backend.SessionID) (*backend.ResultSetMeta, error) {
	return c.metadataOp(ctx, session, []field{
		{ID: fGetCatalogsSessionHandle, Type: athrift.STRUCT, Value: sessionHandleBytes(session)},
	})
}

func (c *Client) GetSchemas(ctx context.Context, session backend.SessionID, scope backend.MetadataScope) (*backend.ResultSetMeta, error) {
	fields := []field{{ID: fGetSchemasSessionHandle, Type: athrift.STRUCT, Value: sessionHandleBytes(session)}}
	if scope.CatalogName != "" {
		fields = append(fields, field{ID: fGetSchemasCatalogName, Type: athrift.STRING, Value: scope.CatalogName})
	}

	if scope.SchemaName != "" {
		fields = append(fields, field{ID: fGetSchemasSchemaName, Type: athrift.STRING, Value: scope.SchemaName})
	}

	return c.metadataOp(ctx, session, fields)
}

func (c *Client) GetTables(ctx context.Context, session backend.SessionID, scope backend.MetadataScope) (*backend.ResultSetMeta, error) {
	fields := []field{{ID: fGetTablesSessionHandle, Type: athrift.STRUCT, Value: sessionHandleBytes(session)}}
	if scope.CatalogName != "" {
		fields = append(fields, field{ID: fGetTablesCatalogName, Type: athrift.STRING, Value: scope.CatalogName})
	}

	if scope.SchemaName != "" {
		fields = append(fields, field{ID: fGetTablesSchemaName, Type: athrift.STRING, Value: scope.SchemaName})
	}

	if scope.TableName != "" {
		fields = append(fields, field{ID: fGetTablesTableName, Type: athrift.STRING, Value: scope.TableName})
	}

	return c.metadataOp(ctx, session, fields)
}

func (c *Client) GetColumns(ctx context.Context, session backend.SessionID, scope backend.MetadataScope) (*backend.ResultSetMeta, error) {
	fields := []field{{ID: fGetColumnsSessionHandle, Type: athrift.STRUCT, Value: sessionHandleBytes(session)}}
	if scope.CatalogName != "" {
		fields = append(fields, field{ID: fGetColumnsCatalogName, Type: athrift.STRING, Value: scope.CatalogName})
	}

	if scope.SchemaName != "" {
		fields = append(fields, field{ID: fGetColumnsSchemaName, Type: athrift.STRING, Value: scope.SchemaName})
	}

	if scope.TableName != "" {
		fields = append(fields, field{ID: fGetColumnsTableName, Type: athrift.STRING, Value: scope.TableName})
	}

	if scope.ColumnName != "" {
		fields = append(fields, field{ID: fGetColumnsColumnName, Type: athrift.STRING, Value: scope.ColumnName})
	}

	return c.metadataOp(ctx, session, fields)
}
