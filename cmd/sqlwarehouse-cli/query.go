package main

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func newQueryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query <sql>",
		Short: "Run one SQL statement and print its result",
		Long: `Run one SQL statement against the warehouse and print the result as a table.

Examples:
  sqlwarehouse-cli --dsn "$SQLWAREHOUSE_DSN" query "SELECT 1"
  sqlwarehouse-cli --dsn "$SQLWAREHOUSE_DSN" query "SELECT * FROM samples.nyctaxi.trips LIMIT 10"`,
		Args: cobra.ExactArgs(1),
		RunE: runQuery,
	}
}

func runQuery(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())

	start := time.Now()

	rows, err := cc.DB.QueryContext(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	n, err := printRows(os.Stdout, rows)
	if err != nil {
		return err
	}

	cc.Statusf("%d rows in %s\n", n, formatDuration(time.Since(start)))

	return rows.Err()
}

// Statusf prints a status message to stderr unless quiet mode is set —
// method form avoids threading `quiet bool` through call chains, the same
// shape as the teacher's (*CLIContext).Statusf.
func (cc *CLIContext) Statusf(format string, args ...any) {
	statusf(cc.Quiet, format, args...)
}

// printRows drains rows into a table printed to w, returning the row count.
// Every column is scanned generically via `any` since the CLI doesn't know
// the result schema ahead of time.
func printRows(w io.Writer, rows *sql.Rows) (int, error) {
	cols, err := rows.Columns()
	if err != nil {
		return 0, fmt.Errorf("reading columns: %w", err)
	}

	dest := make([]any, len(cols))
	scanBuf := make([]any, len(cols))

	for i := range dest {
		scanBuf[i] = &dest[i]
	}

	var table [][]string

	count := 0

	for rows.Next() {
		if err := rows.Scan(scanBuf...); err != nil {
			return count, fmt.Errorf("scanning row: %w", err)
		}

		row := make([]string, len(cols))
		for i, v := range dest {
			row[i] = formatCell(v)
		}

		table = append(table, row)
		count++
	}

	printTable(w, cols, table)

	return count, nil
}

func formatCell(v any) string {
	if v == nil {
		return "NULL"
	}

	if b, ok := v.([]byte); ok {
		return string(b)
	}

	return fmt.Sprint(v)
}
