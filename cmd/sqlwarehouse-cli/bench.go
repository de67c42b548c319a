package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
)

var flagBenchIterations int

// newBenchCmd runs a statement repeatedly and reports latency statistics —
// a thin, end-to-end exercise of the driver's execute/fetch/close path under
// repetition, grounded on the teacher's progress-reporting style in
// sync.go's transfer-count status lines.
func newBenchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench <sql>",
		Short: "Run a statement repeatedly and report latency statistics",
		Args:  cobra.ExactArgs(1),
		RunE:  runBench,
	}

	cmd.Flags().IntVar(&flagBenchIterations, "iterations", 10, "number of times to run the statement")

	return cmd
}

func runBench(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())

	if flagBenchIterations < 1 {
		return fmt.Errorf("--iterations must be at least 1")
	}

	durations := make([]time.Duration, 0, flagBenchIterations)

	for i := 0; i < flagBenchIterations; i++ {
		start := time.Now()

		rows, err := cc.DB.QueryContext(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("iteration %d failed: %w", i+1, err)
		}

		for rows.Next() {
		}

		closeErr := rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iteration %d failed while fetching: %w", i+1, err)
		}

		if closeErr != nil {
			return fmt.Errorf("iteration %d failed to close: %w", i+1, closeErr)
		}

		elapsed := time.Since(start)
		durations = append(durations, elapsed)

		cc.Statusf("iteration %d/%d: %s\n", i+1, flagBenchIterations, formatDuration(elapsed))
	}

	printBenchSummary(durations)

	return nil
}

func printBenchSummary(durations []time.Duration) {
	sorted := append([]time.Duration(nil), durations...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var total time.Duration
	for _, d := range sorted {
		total += d
	}

	avg := total / time.Duration(len(sorted))
	p50 := sorted[len(sorted)/2]
	p99 := sorted[(len(sorted)*99)/100]

	fmt.Printf("n=%d min=%s p50=%s p99=%s max=%s avg=%s\n",
		len(sorted), formatDuration(sorted[0]), formatDuration(p50), formatDuration(p99),
		formatDuration(sorted[len(sorted)-1]), formatDuration(avg))
}
