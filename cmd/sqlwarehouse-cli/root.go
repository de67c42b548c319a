package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	_ "github.com/databricks/sqlwarehouse-go/pkg/dbsql"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagDSN     string
	flagJSON    bool
	flagVerbose bool
	flagDebug   bool
	flagQuiet   bool
)

// CLIContext bundles the opened database handle and logger, built once in
// PersistentPreRunE — mirrors the teacher's CLIContext (Cfg/Logger) bundling
// pattern, generalized from a resolved drive to an open *sql.DB.
type CLIContext struct {
	DB     *sql.DB
	Logger *slog.Logger
	JSON   bool
	Quiet  bool
}

type cliContextKey struct{}

func cliContextFrom(ctx context.Context) *CLIContext {
	cc, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok {
		return nil
	}

	return cc
}

func mustCLIContext(ctx context.Context) *CLIContext {
	cc := cliContextFrom(ctx)
	if cc == nil {
		panic("BUG: CLIContext not found in context — ensure PersistentPreRunE ran")
	}

	return cc
}

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sqlwarehouse-cli",
		Short:   "SQL warehouse CLI client",
		Long:    "A thin CLI driving the Databricks-style SQL warehouse driver (pkg/dbsql) end to end.",
		Version: version,
		// Silence Cobra's default error/usage printing — we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return openDB(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if cc := cliContextFrom(cmd.Context()); cc != nil && cc.DB != nil {
				return cc.DB.Close()
			}

			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&flagDSN, "dsn", os.Getenv("SQLWAREHOUSE_DSN"), "connection string (sqlwarehouse://token:<pat>@<host>/<http-path>)")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "accepted but has no effect: output is always a table")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "show detailed output")
	cmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.MarkFlagsMutuallyExclusive("verbose", "debug", "quiet")

	cmd.AddCommand(newQueryCmd())
	cmd.AddCommand(newLsCmd())
	cmd.AddCommand(newBenchCmd())

	return cmd
}

// openDB opens the sqlwarehouse database/sql connection from --dsn and
// stashes a CLIContext on the command's context, mirroring the teacher's
// loadConfig — one resolution step shared by every subcommand.
func openDB(cmd *cobra.Command) error {
	logger := buildLogger()

	if flagDSN == "" {
		return fmt.Errorf("--dsn is required (or set SQLWAREHOUSE_DSN)")
	}

	db, err := sql.Open("sqlwarehouse", flagDSN)
	if err != nil {
		return fmt.Errorf("opening connection: %w", err)
	}

	cc := &CLIContext{DB: db, Logger: logger, JSON: flagJSON, Quiet: flagQuiet}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cc))

	return nil
}

// buildLogger creates an slog.Logger whose level is controlled by the
// mutually-exclusive --verbose/--debug/--quiet flags, the same precedence
// the teacher's buildLogger applies (CLI flags always win).
func buildLogger() *slog.Logger {
	level := slog.LevelWarn

	switch {
	case flagDebug:
		level = slog.LevelDebug
	case flagVerbose:
		level = slog.LevelInfo
	case flagQuiet:
		level = slog.LevelError
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
