// Package sea implements the Statement Execution API backend.Client variant
// — JSON-over-REST, one resource path per operation, grounded on
// original_source's backend/sea/models/{requests,responses}.py request
// shapes and databricks_client.py's method contract (the same contract
// internal/thrift implements for the binary protocol). Uses
// segmentio/encoding/json for marshaling, matching the encoding/json
// drop-in the modelcontextprotocol-go-sdk example pack uses for its
// higher-throughput JSON paths.
package sea

import "time"

type createSessionRequest struct {
	WarehouseID   string            `json:"warehouse_id"`
	SessionConfs  map[string]string `json:"session_confs,omitempty"`
	Catalog       string            `json:"catalog,omitempty"`
	Schema        string            `json:"schema,omitempty"`
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
}

type deleteSessionRequest struct {
	WarehouseID string `json:"warehouse_id"`
	SessionID   string `json:"session_id"`
}

type executeStatementRequest struct {
	WarehouseID string            `json:"warehouse_id"`
	SessionID   string            `json:"session_id"`
	Statement   string            `json:"statement"`
	Catalog     string            `json:"catalog,omitempty"`
	Schema      string            `json:"schema,omitempty"`
	Parameters  []sqlParameter    `json:"parameters,omitempty"`
	WaitTimeout string            `json:"wait_timeout,omitempty"`
	Format      string            `json:"format"`
	Disposition string            `json:"disposition"`
	Compression string            `json:"result_compression,omitempty"`
}

type sqlParameter struct {
	Name  string `json:"name,omitempty"`
	Type  string `json:"type,omitempty"`
	Value any    `json:"value"`
}

type serviceError struct {
	Message   string `json:"message"`
	ErrorCode string `json:"error_code"`
}

type statementStatus struct {
	State string        `json:"state"`
	Error *serviceError `json:"error,omitempty"`
}

type columnInfo struct {
	Name         string `json:"name"`
	TypeName     string `json:"type_name"`
	TypePrecision int   `json:"type_precision,omitempty"`
	TypeScale    int    `json:"type_scale,omitempty"`
	Nullable     bool   `json:"nullable"`
}

type resultManifest struct {
	Format      string       `json:"format"`
	Schema      struct{ Columns []columnInfo `json:"columns"` } `json:"schema"`
	TotalRowCount int64      `json:"total_row_count"`
	Chunks      []chunkInfo  `json:"chunks,omitempty"`
}

type chunkInfo struct {
	ChunkIndex     int64 `json:"chunk_index"`
	RowOffset      int64 `json:"row_offset"`
	RowCount       int64 `json:"row_count"`
	ByteCount      int64 `json:"byte_count"`
}

type externalLink struct {
	ChunkIndex     int64             `json:"chunk_index"`
	RowOffset      int64             `json:"row_offset"`
	RowCount       int64             `json:"row_count"`
	ByteCount      int64             `json:"byte_count"`
	ExternalLink   string            `json:"external_link"`
	Expiration     time.Time         `json:"expiration"`
	HTTPHeaders    map[string]string `json:"http_headers,omitempty"`
	NextChunkIndex *int64            `json:"next_chunk_index,omitempty"`
}

type resultData struct {
	DataArray     [][]any        `json:"data_array,omitempty"`
	ExternalLinks []externalLink `json:"external_links,omitempty"`
	ByteCount     int64          `json:"byte_count,omitempty"`
	RowCount      int64          `json:"row_count,omitempty"`
	RowOffset     int64          `json:"row_offset,omitempty"`
}

type statementResponse struct {
	StatementID string          `json:"statement_id"`
	Status      statementStatus `json:"status"`
	Manifest    *resultManifest `json:"manifest,omitempty"`
	Result      *resultData     `json:"result,omitempty"`
}
