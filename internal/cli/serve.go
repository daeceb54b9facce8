package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/paradox-mcp/internal/driver"
	"github.com/mesh-intelligence/paradox-mcp/internal/mcp"
	"github.com/mesh-intelligence/paradox-mcp/internal/tools"
	"github.com/mesh-intelligence/paradox-mcp/pkg/pxmcp"
	"github.com/mesh-intelligence/paradox-mcp/pkg/types"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve tools over stdio (the default)",
		Long:  "Read one JSON-RPC request per line on stdin and write one response per line on stdout.",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	env, err := setup(cmd)
	if err != nil {
		return err
	}
	env.logger.Info("serving", "version", pxmcp.Version, "location", env.cfg.Location,
		"backend", env.cfg.Backend, "permit_editing", env.cfg.PermitEditing)

	server := mcp.NewServer(env.dispatcher, env.logger)
	err = server.Run(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
	if errors.Is(err, context.Canceled) {
		env.logger.Info("interrupted")
		return nil
	}
	return err
}

// environment is what every command needs after configuration.
type environment struct {
	cfg        *types.Config
	logger     *slog.Logger
	dispatcher *tools.Dispatcher
}

// setup loads the configuration, builds the logger and opens the driver.
func setup(cmd *cobra.Command) (*environment, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg, cmd.ErrOrStderr())

	drv, err := driver.New(cfg.Backend, cfg.DriverOptions(cfg.Backend), logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errUsage, err)
	}
	if cfg.Backend == types.BackendMemory {
		if err := drv.FS().MkdirAll(cfg.Location, 0o755); err != nil {
			return nil, fmt.Errorf("prepare memory location: %w", err)
		}
	}
	return &environment{
		cfg:        cfg,
		logger:     logger,
		dispatcher: tools.New(cfg, drv, logger),
	}, nil
}
