// Package backend defines the backend-neutral contract shared by the Thrift
// and SEA transport variants: session/command identifiers, command state,
// result chunk/column shapes, and the sentinel error taxonomy raised across
// the whole driver.
package backend

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Sentinel errors forming the closed hierarchy raised to callers. Use
// errors.Is/errors.As to classify; never compare error strings.
var (
	// ErrInterface signals misuse of the client API (closed cursor, bad URL).
	ErrInterface = errors.New("sqlwarehouse: interface error")

	// ErrDatabase is the root of server/statement-level failures.
	ErrDatabase = errors.New("sqlwarehouse: database error")

	ErrOperational   = fmt.Errorf("sqlwarehouse: operational error: %w", ErrDatabase)
	ErrProgramming   = fmt.Errorf("sqlwarehouse: programming error: %w", ErrDatabase)
	ErrData          = fmt.Errorf("sqlwarehouse: data error: %w", ErrDatabase)
	ErrIntegrity     = fmt.Errorf("sqlwarehouse: integrity error: %w", ErrDatabase)
	ErrInternal      = fmt.Errorf("sqlwarehouse: internal error: %w", ErrDatabase)
	ErrNotSupported  = fmt.Errorf("sqlwarehouse: not supported: %w", ErrDatabase)
	ErrServerOp      = fmt.Errorf("sqlwarehouse: server operation error: %w", ErrDatabase)
	ErrRequest       = fmt.Errorf("sqlwarehouse: request error: %w", ErrOperational)
	ErrMaxRetry      = fmt.Errorf("sqlwarehouse: max retry attempts exceeded: %w", ErrRequest)
	ErrMaxRetryTime  = fmt.Errorf("sqlwarehouse: max retry duration exceeded: %w", ErrRequest)
	ErrSessionClosed = fmt.Errorf("sqlwarehouse: session already closed: %w", ErrRequest)
	ErrCursorClosed  = fmt.Errorf("sqlwarehouse: cursor already closed: %w", ErrRequest)

	// errTelemetryRateLimit is internal-only; it must never reach a caller.
	errTelemetryRateLimit = errors.New("sqlwarehouse: telemetry rate limited")
)

// ErrTelemetryRateLimit is exported read-only for the telemetry circuit
// breaker package; callers of the driver never see it.
func ErrTelemetryRateLimit() error { return errTelemetryRateLimit }

// Error is the concrete error type carrying structured context, mirroring
// the taxonomy's "context map" requirement (§7). Message is a short,
// actionable, stable string; Context carries optional diagnostic fields
// (http-code, method, session-id, query-id, diagnostic-info, ...).
type Error struct {
	Message string
	Context map[string]any
	Err     error // sentinel from the var block above, for errors.Is/As
}

func (e *Error) Error() string {
	if len(e.Context) == 0 {
		return e.Message
	}

	ctx, err := json.Marshal(e.Context)
	if err != nil {
		return e.Message
	}

	return fmt.Sprintf("%s: %s", e.Message, ctx)
}

func (e *Error) Unwrap() error { return e.Err }

// NewRequestError builds a RequestError-classified Error carrying the usual
// context keys. Any of method, sessionID, queryID, httpCode may be zero
// values; zero ints and empty strings are omitted from Context.
func NewRequestError(message, method, sessionID, queryID string, httpCode int) *Error {
	ctx := map[string]any{}
	if method != "" {
		ctx["method"] = method
	}

	if sessionID != "" {
		ctx["session-id"] = sessionID
	}

	if queryID != "" {
		ctx["query-id"] = queryID
	}

	if httpCode != 0 {
		ctx["http-code"] = httpCode
	}

	return &Error{Message: message, Context: ctx, Err: ErrRequest}
}

// NewServerOperationError builds a ServerOperationError carrying the server
// diagnostic and query id, raised when a command transitions to Failed.
func NewServerOperationError(message, diagnosticInfo, queryID string) *Error {
	return &Error{
		Message: message,
		Context: map[string]any{
			"diagnostic-info": diagnosticInfo,
			"operation-id":    queryID,
		},
		Err: ErrServerOp,
	}
}
