package warehouse

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/segmentio/encoding/json"

	"github.com/databricks/sqlwarehouse-go/internal/backend"
)

// handleStagingIfNeeded drives the presigned-URL transfer for a staging
// PUT/GET/REMOVE statement once Execute has submitted it and a CommandID
// exists. Only PUT is in spec.md's core scope (the '__input_stream__'
// inline-stream variant); GET/REMOVE are the supplemented boundary from
// examples/volume_operations.py — the statement-level transfer only, never
// local-path management, which stays with the out-of-scope volume utility.
func (c *Cursor) handleStagingIfNeeded(ctx context.Context, sql string, o *executeOptions) error {
	op := stagingOperationOf(sql)
	if op == "" {
		return nil
	}

	c.mu.Lock()
	cmd := c.cmd
	c.mu.Unlock()

	// The statement's own completion carries the staging target as its sole
	// result row (original_source's is_staging_operation path); poll it to
	// terminal state and fetch that row the same way a normal query would.
	state, err := pollUntilTerminal(ctx, c.session.rpcClient, cmd)
	if err != nil {
		return err
	}

	if state != backend.StateSucceeded {
		return &backend.Error{
			Message: fmt.Sprintf("sqlwarehouse: staging statement ended in state %s", state),
			Err:     backend.ErrServerOp,
		}
	}

	meta, err := c.session.rpcClient.GetExecutionResult(ctx, cmd)
	if err != nil {
		return err
	}

	target, err := parseStagingTarget(meta)
	if err != nil {
		return err
	}

	switch op {
	case "PUT":
		if !strings.Contains(sql, stagingInputStreamPlaceholder) {
			return &backend.Error{
				Message: "sqlwarehouse: PUT from a local file path is not supported; use WithInputStream with the '__input_stream__' placeholder",
				Err:     backend.ErrNotSupported,
			}
		}

		if o.inputStream == nil {
			return &backend.Error{
				Message: "sqlwarehouse: no input stream provided for streaming PUT operation",
				Err:     backend.ErrProgramming,
			}
		}

		return c.stagingPut(ctx, target, o.inputStream, o.inputStreamSize)
	case "REMOVE":
		return c.stagingDelete(ctx, target)
	case "GET":
		if o.outputWriter == nil {
			return &backend.Error{
				Message: "sqlwarehouse: no output writer provided for staging GET operation",
				Err:     backend.ErrProgramming,
			}
		}

		return c.stagingGet(ctx, target, o.outputWriter)
	default:
		return nil
	}
}

// stagingOperationOf returns "PUT", "GET", or "REMOVE" if sql is a staging
// statement, else "".
func stagingOperationOf(sql string) string {
	trimmed := strings.TrimSpace(sql)

	for _, op := range []string{"PUT", "GET", "REMOVE"} {
		if len(trimmed) >= len(op) && strings.EqualFold(trimmed[:len(op)], op) {
			return op
		}
	}

	return ""
}

// stagingRow mirrors the single result row a staging statement returns,
// grounded on original_source's test fixture (operation/localFile/
// presignedUrl/headers, headers a JSON-encoded object).
type stagingRow struct {
	Operation    string `json:"operation"`
	LocalFile    string `json:"localFile"`
	PresignedURL string `json:"presignedUrl"`
	Headers      string `json:"headers"`
}

func parseStagingTarget(meta *backend.ResultSetMeta) (backend.StagingTarget, error) {
	if meta == nil || len(meta.Chunks) == 0 || len(meta.Chunks[0].InlineRows) == 0 {
		return backend.StagingTarget{}, &backend.Error{
			Message: "sqlwarehouse: staging statement returned no rows",
			Err:     backend.ErrInternal,
		}
	}

	row := meta.Chunks[0].InlineRows[0]

	get := func(name string) string {
		v, ok := row.ByName(name)
		if !ok || v.IsNull() {
			return ""
		}

		return v.Str
	}

	target := backend.StagingTarget{
		Operation: get("operation"),
		LocalFile: get("localFile"),
		URL:       get("presignedUrl"),
	}

	if headersJSON := get("headers"); headersJSON != "" {
		var headers map[string]string
		if err := json.Unmarshal([]byte(headersJSON), &headers); err != nil {
			return backend.StagingTarget{}, fmt.Errorf("sqlwarehouse: decoding staging headers: %w", err)
		}

		target.Headers = headers
	}

	return target, nil
}

func (c *Cursor) stagingPut(ctx context.Context, target backend.StagingTarget, body io.Reader, size int64) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target.URL, body)
	if err != nil {
		return fmt.Errorf("sqlwarehouse: building staging PUT request: %w", err)
	}

	req.ContentLength = size

	for k, v := range target.Headers {
		req.Header.Set(k, v)
	}

	return c.doStagingTransfer(req)
}

func (c *Cursor) stagingGet(ctx context.Context, target backend.StagingTarget, out io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.URL, http.NoBody)
	if err != nil {
		return fmt.Errorf("sqlwarehouse: building staging GET request: %w", err)
	}

	for k, v := range target.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.session.stagingHTTPClient().Do(req)
	if err != nil {
		return &backend.Error{Message: fmt.Sprintf("sqlwarehouse: staging GET failed: %v", err), Err: backend.ErrOperational}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &backend.Error{
			Message: fmt.Sprintf("sqlwarehouse: staging GET returned HTTP %d", resp.StatusCode),
			Context: map[string]any{"http-code": resp.StatusCode},
			Err:     backend.ErrOperational,
		}
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("sqlwarehouse: reading staging GET body: %w", err)
	}

	return nil
}

func (c *Cursor) stagingDelete(ctx context.Context, target backend.StagingTarget) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, target.URL, http.NoBody)
	if err != nil {
		return fmt.Errorf("sqlwarehouse: building staging REMOVE request: %w", err)
	}

	for k, v := range target.Headers {
		req.Header.Set(k, v)
	}

	return c.doStagingTransfer(req)
}

func (c *Cursor) doStagingTransfer(req *http.Request) error {
	resp, err := c.session.stagingHTTPClient().Do(req)
	if err != nil {
		return &backend.Error{Message: fmt.Sprintf("sqlwarehouse: staging transfer failed: %v", err), Err: backend.ErrOperational}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &backend.Error{
			Message: fmt.Sprintf("sqlwarehouse: staging transfer returned HTTP %d", resp.StatusCode),
			Context: map[string]any{"http-code": resp.StatusCode},
			Err:     backend.ErrOperational,
		}
	}

	return nil
}
