package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/databricks/sqlwarehouse-go/internal/backend"
)

func fixedPolicy() *RetryPolicy {
	p := DefaultRetryPolicy()
	p.randFloat = func() float64 { return 0.5 } // midpoint: zero jitter contribution

	return p
}

func TestRetryPolicyAlwaysRetries429(t *testing.T) {
	p := fixedPolicy()
	d := p.Decide(Decision{StatusCode: 429, Method: "POST"})
	assert.True(t, d.Retry)
}

func TestRetryPolicyRetriesServerErrorForIdempotentCommand(t *testing.T) {
	p := fixedPolicy()
	d := p.Decide(Decision{StatusCode: 500, Method: "POST", CommandType: backend.CommandCloseOperation})
	assert.True(t, d.Retry)
}

func TestRetryPolicyDoesNotRetryServerErrorForNonIdempotentCommand(t *testing.T) {
	p := fixedPolicy()
	d := p.Decide(Decision{StatusCode: 500, Method: "POST", CommandType: backend.CommandExecuteStatement})
	assert.False(t, d.Retry)
}

func TestRetryPolicyNeverRetriesClientError(t *testing.T) {
	p := fixedPolicy()
	d := p.Decide(Decision{StatusCode: 400, Method: "POST", CommandType: backend.CommandExecuteStatement})
	assert.False(t, d.Retry)
}

func TestRetryPolicyHonorsRetryAfter(t *testing.T) {
	p := fixedPolicy()
	d := p.Decide(Decision{StatusCode: 503, Method: "POST", RetryAfter: "7"})
	assert.True(t, d.Retry)
	assert.Equal(t, 7*time.Second, d.Delay)
}

func TestRetryPolicyStopsAfterMaxAttempts(t *testing.T) {
	p := fixedPolicy()
	d := p.Decide(Decision{StatusCode: 429, History: RetryHistory{Attempt: p.MaxAttempts}})
	assert.False(t, d.Retry)
}

func TestRetryPolicyStopsAfterMaxDuration(t *testing.T) {
	p := fixedPolicy()
	d := p.Decide(Decision{StatusCode: 429, History: RetryHistory{FirstAttempt: time.Now().Add(-2 * p.MaxDuration)}})
	assert.False(t, d.Retry)
}

func TestRetryPolicyBackoffGrowsAndCaps(t *testing.T) {
	p := fixedPolicy()

	d0 := p.Decide(Decision{StatusCode: 429, History: RetryHistory{Attempt: 0}})
	d1 := p.Decide(Decision{StatusCode: 429, History: RetryHistory{Attempt: 1}})
	assert.Less(t, d0.Delay, d1.Delay)

	// Lift the attempt limit so Decide computes a backoff for attempt 20
	// instead of refusing to retry.
	p.MaxAttempts = 21

	far := p.Decide(Decision{StatusCode: 429, History: RetryHistory{Attempt: 20}})
	assert.LessOrEqual(t, far.Delay, p.MaxDelay)
}
