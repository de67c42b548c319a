package warehouse

import "io"

// ExecuteOption customizes a single Execute/ExecuteAsync call, the Go
// analogue of the Python driver's execute(**kwargs) — parameters, the
// staging-PUT input stream, and per-statement result-size limits.
type ExecuteOption func(*executeOptions)

type executeOptions struct {
	named      map[string]any
	positional []any

	inputStream     io.Reader
	inputStreamSize int64
	outputWriter    io.Writer

	maxRows  int64
	maxBytes int64
}

// WithNamedParameters binds ":name"-style markers to the given values,
// inferring each value's wire type via params.Infer unless the connection
// is configured for the legacy inline paramstyle (§4.5).
func WithNamedParameters(values map[string]any) ExecuteOption {
	return func(o *executeOptions) { o.named = values }
}

// WithPositionalParameters binds "?"-style markers in order.
func WithPositionalParameters(values []any) ExecuteOption {
	return func(o *executeOptions) { o.positional = values }
}

// WithInputStream supplies the body for a staging PUT statement that names
// the '__input_stream__' placeholder (§4.6). size must be the exact byte
// count; most presigned PUT targets require Content-Length up front.
func WithInputStream(r io.Reader, size int64) ExecuteOption {
	return func(o *executeOptions) { o.inputStream, o.inputStreamSize = r, size }
}

// WithOutputWriter supplies the destination for a staging GET statement's
// downloaded body (§4.6's supplemented GET/REMOVE operations).
func WithOutputWriter(w io.Writer) ExecuteOption {
	return func(o *executeOptions) { o.outputWriter = w }
}

// WithMaxRows caps the number of rows the server returns (0 = server default).
func WithMaxRows(n int64) ExecuteOption { return func(o *executeOptions) { o.maxRows = n } }

// WithMaxBytes caps the number of bytes the server returns (0 = server default).
func WithMaxBytes(n int64) ExecuteOption { return func(o *executeOptions) { o.maxBytes = n } }
