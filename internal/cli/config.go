package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/paradox-mcp/internal/paths"
	"github.com/mesh-intelligence/paradox-mcp/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	// envPrefix prefixes every environment override, e.g.
	// PARADOX_MCP_PERMIT_EDITING.
	envPrefix = "PARADOX_MCP"
)

// Configuration keys.
const (
	cfgKeyLocation      = "location"
	cfgKeyPermitEditing = "permit_editing"
	cfgKeyBackend       = "backend"
	cfgKeyLogLevel      = "log_level"
	cfgKeyLogFormat     = "log_format"
)

var flagKeys = map[string]string{
	flagLocation:      cfgKeyLocation,
	flagPermitEditing: cfgKeyPermitEditing,
	flagBackend:       cfgKeyBackend,
	flagLogLevel:      cfgKeyLogLevel,
	flagLogFormat:     cfgKeyLogFormat,
}

// loadConfig builds the server configuration from, in increasing
// precedence, defaults, config.yaml in the config directory, PARADOX_MCP_*
// environment variables and command-line flags. The result is validated
// and must not be modified afterwards.
func loadConfig(cmd *cobra.Command) (*types.Config, error) {
	v, err := newViper(cmd)
	if err != nil {
		return nil, err
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: decode config: %w", errUsage, err)
	}
	cfg.ApplyDefaults()
	if cfg.Backend != types.BackendMemory {
		loc, err := paths.ResolveLocation(cfg.Location)
		if err != nil {
			return nil, fmt.Errorf("resolve location: %w", err)
		}
		cfg.Location = loc
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", errUsage, err)
	}
	return &cfg, nil
}

// newViper returns a viper instance reading config.yaml from the resolved
// config directory. A missing config directory or file is not an error.
func newViper(cmd *cobra.Command) (*viper.Viper, error) {
	configDir, err := resolveConfigDir(cmd)
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetDefault(cfgKeyBackend, types.DefaultBackend)
	v.SetDefault(cfgKeyLogLevel, types.DefaultLogLevel)
	v.SetDefault(cfgKeyLogFormat, types.DefaultLogFormat)
	v.SetDefault(cfgKeyLocation, "")
	v.SetDefault(cfgKeyPermitEditing, false)

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	for flag, key := range flagKeys {
		if f := cmd.Flags().Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", flag, err)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: read config: %w", errUsage, err)
		}
	}
	return v, nil
}

func resolveConfigDir(cmd *cobra.Command) (string, error) {
	flag, _ := cmd.Flags().GetString(flagConfigDir)
	dir, err := paths.ResolveConfigDir(flag)
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return dir, nil
}

// configPath returns the path of config.yaml in the resolved config directory.
func configPath(cmd *cobra.Command) (string, error) {
	dir, err := resolveConfigDir(cmd)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileExt), nil
}

// fileExists reports whether path names an existing file.
func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}
