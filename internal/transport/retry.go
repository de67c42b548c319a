package transport

import (
	"math"
	"math/rand"
	"strconv"
	"time"

	"github.com/databricks/sqlwarehouse-go/internal/backend"
)

// RetryHistory carries the bookkeeping Decide needs to enforce the two stop
// conditions: attempt count and wall-clock duration since the first attempt.
type RetryHistory struct {
	Attempt      int
	FirstAttempt time.Time
}

// Decision is the input to one retry/no-retry judgment — everything the
// policy needs to know about the failed attempt.
type Decision struct {
	StatusCode  int // 0 means a transport-level error, not an HTTP response
	Method      string
	RetryAfter  string
	CommandType backend.CommandType
	History     RetryHistory
}

// outcome is what Decide returns: whether to retry and, if so, after how long.
type outcome struct {
	Retry bool
	Delay time.Duration
}

// RetryPolicy implements the command-type-aware exponential backoff with
// jitter described in §4.7, generalizing the teacher's fixed Graph-API retry
// loop (internal/graph/client.go calcBackoff/isRetryable/classifyStatus) to a
// policy parameterized by HTTP status family, method, and statement
// idempotency instead of one hard-coded ruleset.
type RetryPolicy struct {
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Factor      float64
	Jitter      float64
	MaxAttempts int
	MaxDuration time.Duration

	// randFloat is overridden in tests for deterministic jitter.
	randFloat func() float64
}

// DefaultRetryPolicy mirrors the teacher's constants (baseBackoff=1s,
// maxBackoff=60s, backoffFactor=2.0, jitterFraction=0.25, maxRetries=5) with
// an added wall-clock ceiling the teacher doesn't need (Graph API calls are
// short; warehouse statements can legitimately run long, so the ceiling
// bounds retry overhead rather than the statement itself).
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		BaseDelay:   1 * time.Second,
		MaxDelay:    60 * time.Second,
		Factor:      2.0,
		Jitter:      0.25,
		MaxAttempts: 5,
		MaxDuration: 15 * time.Minute,
		randFloat:   rand.Float64,
	}
}

// Decide applies the rules in §4.7: 429 and 503 always retry, with or
// without a Retry-After header; other 5xx retry only for
// idempotent commands or GET requests; 4xx other than 429 never retries;
// transport-level errors (StatusCode == 0) retry like a 503. Stops at
// MaxAttempts or MaxDuration, whichever comes first.
func (p *RetryPolicy) Decide(d Decision) outcome {
	if d.History.Attempt >= p.MaxAttempts {
		return outcome{Retry: false}
	}

	if !d.History.FirstAttempt.IsZero() && time.Since(d.History.FirstAttempt) >= p.MaxDuration {
		return outcome{Retry: false}
	}

	if !p.retryable(d) {
		return outcome{Retry: false}
	}

	return outcome{Retry: true, Delay: p.delay(d)}
}

func (p *RetryPolicy) retryable(d Decision) bool {
	switch {
	case d.StatusCode == 0:
		return true
	case d.StatusCode == 429:
		return true
	case d.StatusCode == 503:
		return true
	case d.StatusCode >= 500 && d.StatusCode < 600:
		return d.Method == "GET" || d.CommandType.KnownIdempotent()
	default:
		return false
	}
}

// delay honors a server-supplied Retry-After (seconds form) before falling
// back to exponential backoff capped at MaxDelay with a random jitter of up
// to ±Jitter of the backoff, same shape as the teacher's calcBackoff.
func (p *RetryPolicy) delay(d Decision) time.Duration {
	if d.RetryAfter != "" {
		if secs, err := strconv.Atoi(d.RetryAfter); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}

	backoff := float64(p.BaseDelay) * math.Pow(p.Factor, float64(d.History.Attempt))
	if backoff > float64(p.MaxDelay) {
		backoff = float64(p.MaxDelay)
	}

	jitter := backoff * p.Jitter * (p.randFloat()*2 - 1)

	result := time.Duration(backoff + jitter)
	if result < 0 {
		result = 0
	}

	return result
}
