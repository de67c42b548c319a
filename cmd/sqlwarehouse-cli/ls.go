package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// newLsCmd lists catalogs, schemas, or tables depending on how many
// dot-separated path segments the caller gives — "ls", "ls <catalog>", and
// "ls <catalog>.<schema>" map onto SHOW CATALOGS/SCHEMAS/TABLES, the
// metadata statements §4.3 carries over from the original driver's
// getCatalogs/getSchemas/getTables.
func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls [catalog[.schema]]",
		Short: "List catalogs, schemas, or tables",
		Long: `List catalogs, schemas within a catalog, or tables within a schema.

Examples:
  sqlwarehouse-cli --dsn "$SQLWAREHOUSE_DSN" ls
  sqlwarehouse-cli --dsn "$SQLWAREHOUSE_DSN" ls samples
  sqlwarehouse-cli --dsn "$SQLWAREHOUSE_DSN" ls samples.nyctaxi`,
		Args: cobra.MaximumNArgs(1),
		RunE: runLs,
	}
}

func runLs(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())

	sql, err := lsStatement(args)
	if err != nil {
		return err
	}

	rows, err := cc.DB.QueryContext(cmd.Context(), sql)
	if err != nil {
		return fmt.Errorf("ls failed: %w", err)
	}
	defer rows.Close()

	if _, err := printRows(os.Stdout, rows); err != nil {
		return err
	}

	return rows.Err()
}

func lsStatement(args []string) (string, error) {
	if len(args) == 0 {
		return "SHOW CATALOGS", nil
	}

	parts := strings.Split(args[0], ".")

	switch len(parts) {
	case 1:
		return fmt.Sprintf("SHOW SCHEMAS IN %s", parts[0]), nil
	case 2:
		return fmt.Sprintf("SHOW TABLES IN %s.%s", parts[0], parts[1]), nil
	default:
		return "", fmt.Errorf("invalid path %q: expected <catalog> or <catalog>.<schema>", args[0])
	}
}
