// Package cli implements the paradox-mcp command-line interface. The root
// command serves tools over stdio; subcommands inspect tables from a
// terminal.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	// Drivers register themselves with the driver registry.
	_ "github.com/mesh-intelligence/paradox-mcp/internal/driver/jsonl"
	_ "github.com/mesh-intelligence/paradox-mcp/internal/driver/sqlite"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// Flag names. The matching configuration keys use underscores.
const (
	flagConfigDir     = "config-dir"
	flagLocation      = "location"
	flagPermitEditing = "permit-editing"
	flagBackend       = "backend"
	flagLogLevel      = "log-level"
	flagLogFormat     = "log-format"
)

// errUsage marks errors caused by bad input rather than the environment.
var errUsage = errors.New("usage")

// NewRootCmd creates the top-level "paradox-mcp" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "paradox-mcp",
		Short: "Serve Paradox-style tables to agents over MCP",
		Long: "paradox-mcp exposes the tables in one directory as MCP tools over stdio.\n" +
			"Tables can be listed, read and searched; creating tables and writing\n" +
			"records requires --permit-editing.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}

	pf := root.PersistentFlags()
	pf.String(flagConfigDir, "", "configuration directory (default: platform config dir, or $"+envPrefix+"_CONFIG_DIR)")
	pf.StringP(flagLocation, "l", "", "directory holding the tables (default: working directory)")
	pf.Bool(flagPermitEditing, false, "allow create_table, insert_record and update_record")
	pf.String(flagBackend, "", "table driver: sqlite, jsonl or memory (default sqlite)")
	pf.String(flagLogLevel, "", "log level: debug, info, warn or error (default info)")
	pf.String(flagLogFormat, "", "log format on stderr: text or json (default text)")

	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", errUsage, err)
	})

	root.AddCommand(newServeCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newTablesCmd())
	root.AddCommand(newSchemaCmd())
	root.AddCommand(newDumpCmd())
	root.AddCommand(newVersionCmd())

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd()
	err := root.ExecuteContext(ctx)
	stop()
	os.Exit(exitCode(err))
}

// exactArgs is cobra.ExactArgs with the error marked as a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return fmt.Errorf("%w: %w", errUsage, err)
		}
		return nil
	}
}

func exitCode(err error) int {
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return exitSuccess
	case errors.Is(err, errUsage):
		fmt.Fprintln(os.Stderr, "paradox-mcp:", err)
		return exitUserError
	default:
		fmt.Fprintln(os.Stderr, "paradox-mcp:", err)
		return exitSysError
	}
}
