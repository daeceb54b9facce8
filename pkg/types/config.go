package types

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
)

// Config is the server configuration. It is built once at startup, validated,
// and then shared read-only by every component.
type Config struct {
	Location      string                    `json:"location" yaml:"location" mapstructure:"location" validate:"required"`
	PermitEditing bool                      `json:"permit_editing" yaml:"permit_editing" mapstructure:"permit_editing"`
	Backend       string                    `json:"backend" yaml:"backend" mapstructure:"backend" validate:"required,oneof=sqlite jsonl memory"`
	LogLevel      string                    `json:"log_level" yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`
	LogFormat     string                    `json:"log_format" yaml:"log_format" mapstructure:"log_format" validate:"omitempty,oneof=text json"`
	Drivers       map[string]map[string]any `json:"drivers,omitempty" yaml:"drivers,omitempty" mapstructure:"drivers"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
	BackendJSONL  = "jsonl"
	BackendMemory = "memory"
)

// Configuration defaults.
const (
	DefaultBackend   = BackendSQLite
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// Config validation errors.
var (
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrLocationNotFound = errors.New("location does not exist")
	ErrLocationNotDir   = errors.New("location is not a directory")
)

var validate = validator.New()

// ApplyDefaults fills unset optional fields.
func (c *Config) ApplyDefaults() {
	if c.Backend == "" {
		c.Backend = DefaultBackend
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	if c.Location == "" && c.Backend == BackendMemory {
		c.Location = "/"
	}
}

// Validate checks struct tags and then rules that tags cannot express. The
// location of a disk backend must be an existing directory.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	if c.Backend == BackendMemory {
		return nil
	}
	info, err := os.Stat(c.Location)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %w: %s", ErrInvalidConfig, ErrLocationNotFound, c.Location)
		}
		return fmt.Errorf("%w: location: %w", ErrInvalidConfig, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %w: %s", ErrInvalidConfig, ErrLocationNotDir, c.Location)
	}
	return nil
}

// DriverOptions returns the option map configured for the named driver, or
// nil when none is set.
func (c *Config) DriverOptions(name string) map[string]any {
	return c.Drivers[name]
}

// formatValidationError reports the first validator failure.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%w: %s: validation failed on '%s' tag (value: %v)",
			ErrInvalidConfig, e.Namespace(), e.Tag(), e.Value())
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
}
