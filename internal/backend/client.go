package backend

import (
	"context"
)

// BoundParameter is a fully-resolved, typed parameter ready to cross the
// wire in native mode. The params package produces these from user values;
// backend implementations serialize them per their own wire format.
type BoundParameter struct {
	Name      string // empty for positional
	Ordinal   int    // 0-based, meaningful only when Name == ""
	TypeName  string // canonical type tag, e.g. "int", "decimal(10,2)", "timestamp"
	Value     any    // nil for SQL NULL
}

// ExecuteRequest bundles everything the backend needs to submit a statement.
type ExecuteRequest struct {
	Session         SessionID
	SQL             string
	Parameters      []BoundParameter
	MaxRows         int64
	MaxBytes        int64
	LZ4Compressed   bool
	UseCloudFetch   bool
	Async           bool
	QueryTags       map[string]string
}

// ExecuteResult is what Execute returns: either a ready ResultSet (sync path
// or direct-results optimization) or just a CommandID to poll (async path).
// Exactly one of ResultSet or (CommandID set, ResultSet nil) holds.
type ExecuteResult struct {
	CommandID CommandID
	ResultSet *ResultSetMeta // nil when the caller must poll + fetch
}

// ResultSetMeta is the backend-neutral result-set description handed to the
// result pipeline (internal/result): schema plus the first batch of chunks
// (which may be the only batch, for small/inline results).
type ResultSetMeta struct {
	CommandID   CommandID
	Columns     []ColumnDescription
	Chunks      []ResultChunk
	HasMoreRows bool
	RowCount    int64 // total rows if known, else -1
}

// MetadataScope filters a metadata listing operation (GetCatalogs et al.).
// Empty strings mean "unfiltered" for that dimension; Wildcard patterns use
// the backend's native SQL LIKE/pattern semantics.
type MetadataScope struct {
	CatalogName  string
	SchemaName   string
	TableName    string
	ColumnName   string
	TableTypes   []string
}

// Client is the backend-neutral contract implemented by the Thrift and SEA
// transport variants (§4.3). Every method may block on network I/O and
// must be safe to cancel via ctx.
type Client interface {
	OpenSession(ctx context.Context, catalog, schema string, sessionConfig map[string]string) (SessionID, error)
	CloseSession(ctx context.Context, session SessionID) error

	Execute(ctx context.Context, req ExecuteRequest) (ExecuteResult, error)
	GetState(ctx context.Context, cmd CommandID) (CommandState, error)
	Cancel(ctx context.Context, cmd CommandID) error
	CloseCommand(ctx context.Context, cmd CommandID) error
	GetExecutionResult(ctx context.Context, cmd CommandID) (*ResultSetMeta, error)

	GetCatalogs(ctx context.Context, session SessionID) (*ResultSetMeta, error)
	GetSchemas(ctx context.Context, session SessionID, scope MetadataScope) (*ResultSetMeta, error)
	GetTables(ctx context.Context, session SessionID, scope MetadataScope) (*ResultSetMeta, error)
	GetColumns(ctx context.Context, session SessionID, scope MetadataScope) (*ResultSetMeta, error)

	// FetchNextChunks retrieves the next page of ResultChunk descriptors for
	// a command whose initial ResultSetMeta had HasMoreRows set — used when
	// the server delivers cloud-fetch links in trickles rather than all at
	// once (§4.4.2 add_links "trickle" support).
	FetchNextChunks(ctx context.Context, cmd CommandID, startChunkIndex int64) ([]ResultChunk, bool, error)

	// RefreshChunkLinks re-requests presigned URLs for chunks at or after
	// startRowOffset, used by the cloud-fetch pipeline on LinkExpired.
	RefreshChunkLinks(ctx context.Context, cmd CommandID, startRowOffset int64) ([]ChunkLink, error)
}

// StagingTarget is the presigned-URL target for a staging PUT/GET/REMOVE
// operation. Unlike the other RPCs, staging is not a distinct backend
// method: both Thrift and SEA surface it as an ordinary statement whose
// single result row carries these columns (operation, localFile,
// presignedUrl, headers) — internal/warehouse executes the statement
// through the normal path and decodes that row into a StagingTarget.
type StagingTarget struct {
	Operation string // "PUT", "GET", "REMOVE"
	LocalFile string // the placeholder/local path named in the SQL text
	URL       string
	Headers   map[string]string
}
