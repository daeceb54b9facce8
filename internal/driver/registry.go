package driver

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/go-viper/mapstructure/v2"
)

// Factory builds a driver from its option map. A nil logger means discard.
type Factory func(opts map[string]any, logger *slog.Logger) (Driver, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register adds a driver factory to the registry.
// Called by driver implementations in their init() functions.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// Get retrieves a driver factory by name.
func Get(name string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[name]
	return f, ok
}

// New builds the named driver.
func New(name string, opts map[string]any, logger *slog.Logger) (Driver, error) {
	if name == "" {
		return nil, fmt.Errorf("driver name not specified")
	}
	factory, ok := Get(name)
	if !ok {
		return nil, &UnknownDriverError{Name: name, Available: List()}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return factory(opts, logger.With("driver", name))
}

// List returns all registered driver names (sorted).
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UnknownDriverError is returned when an unregistered driver is requested.
type UnknownDriverError struct {
	Name      string
	Available []string
}

func (e *UnknownDriverError) Error() string {
	return fmt.Sprintf("unknown driver %q (available: %v)", e.Name, e.Available)
}

// DecodeOptions decodes a driver option map into out, a pointer to a struct
// with mapstructure tags. Durations may be given as strings such as "5s".
// Unknown keys are rejected.
func DecodeOptions(opts map[string]any, out any) error {
	if len(opts) == 0 {
		return nil
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("create options decoder: %w", err)
	}
	if err := decoder.Decode(opts); err != nil {
		return fmt.Errorf("decode driver options: %w", err)
	}
	return nil
}
