package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/paradox-mcp/pkg/types"
)

const configHeader = `# paradox-mcp configuration
# Flags and PARADOX_MCP_* environment variables override these values.
`

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config.yaml",
		Long: "Create the configuration directory and write config.yaml from the current\n" +
			"flags and defaults. An existing file is kept unless --force is given.",
		Args: cobra.NoArgs,
		RunE: runInit,
	}
	cmd.Flags().Bool("force", false, "overwrite an existing config.yaml")
	return cmd
}

func runInit(cmd *cobra.Command, args []string) error {
	path, err := configPath(cmd)
	if err != nil {
		return err
	}
	force, _ := cmd.Flags().GetBool("force")
	exists, err := fileExists(path)
	if err != nil {
		return fmt.Errorf("stat config: %w", err)
	}
	if exists && !force {
		fmt.Fprintf(cmd.OutOrStdout(), "%s already exists\n", path)
		return nil
	}

	cfg := types.Config{}
	cfg.Location, _ = cmd.Flags().GetString(flagLocation)
	cfg.PermitEditing, _ = cmd.Flags().GetBool(flagPermitEditing)
	cfg.Backend, _ = cmd.Flags().GetString(flagBackend)
	cfg.LogLevel, _ = cmd.Flags().GetString(flagLogLevel)
	cfg.LogFormat, _ = cmd.Flags().GetString(flagLogFormat)
	cfg.ApplyDefaults()
	if cfg.Location != "" && cfg.Backend != types.BackendMemory {
		abs, err := filepath.Abs(cfg.Location)
		if err != nil {
			return fmt.Errorf("resolve location: %w", err)
		}
		cfg.Location = abs
	}

	if err := writeConfig(path, &cfg); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
	return nil
}

// writeConfig marshals cfg to YAML and replaces path atomically.
func writeConfig(path string, cfg *types.Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var buf bytes.Buffer
	buf.WriteString(configHeader)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".config-*.yaml")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
