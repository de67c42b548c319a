package warehouse

import (
	"context"
	"time"

	"github.com/databricks/sqlwarehouse-go/internal/backend"
)

// pollInterval is the fixed spacing between GetState polls (§5 "no spin
// loops; polls are spaced by an adaptive delay >= 1s"). The driver has no
// Retry-After signal on this path — that only applies to HTTP-level retries,
// already handled inside internal/transport — so a flat interval stands in
// for "adaptive."
const pollInterval = 1 * time.Second

// pollUntilTerminal polls GetState until the command reaches a terminal
// CommandState or ctx is canceled, mirroring original_source's
// execute_command/_wait_for_completion loop.
func pollUntilTerminal(ctx context.Context, client backend.Client, cmd backend.CommandID) (backend.CommandState, error) {
	for {
		state, err := client.GetState(ctx, cmd)
		if err != nil {
			return state, err
		}

		if state.IsTerminal() {
			return state, nil
		}

		select {
		case <-ctx.Done():
			return state, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}
