// Package jsonl stores each table as a line-delimited JSON file. The first
// line is a header naming the fields; every further line is one record,
// encoded as a JSON array of values in field order.
//
// The package registers two drivers: "jsonl" on the OS filesystem and
// "memory" on an in-memory filesystem that lives as long as the driver.
package jsonl

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/afero"

	"github.com/mesh-intelligence/paradox-mcp/internal/driver"
	"github.com/mesh-intelligence/paradox-mcp/pkg/types"
)

// Registry names and table file extension.
const (
	Name       = "jsonl"
	MemoryName = "memory"
	Extension  = ".jsonl"
)

// Header format marker and version written on the first line of a table.
const (
	formatName    = "paradox-mcp/jsonl"
	formatVersion = 1
)

// Options are the driver settings read from the drivers.jsonl (or
// drivers.memory) config map.
type Options struct {
	// Sync flushes the file to stable storage after every append.
	Sync bool `mapstructure:"sync"`
	// MaxLineBytes bounds the size of one encoded record.
	MaxLineBytes int `mapstructure:"max_line_bytes"`
}

// DefaultOptions returns the options used for keys absent from the config.
func DefaultOptions() Options {
	return Options{Sync: true, MaxLineBytes: 16 << 20}
}

func init() {
	driver.Register(Name, func(opts map[string]any, logger *slog.Logger) (driver.Driver, error) {
		return New(afero.NewOsFs(), Name, opts, logger)
	})
	driver.Register(MemoryName, func(opts map[string]any, logger *slog.Logger) (driver.Driver, error) {
		return NewMemory(opts, logger)
	})
}

// Driver reads and writes JSONL table files on an afero filesystem.
type Driver struct {
	fs     afero.Fs
	name   string
	opts   Options
	logger *slog.Logger
}

// New builds a driver over fsys registered under name.
func New(fsys afero.Fs, name string, opts map[string]any, logger *slog.Logger) (*Driver, error) {
	o := DefaultOptions()
	if err := driver.DecodeOptions(opts, &o); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if o.MaxLineBytes <= 0 {
		return nil, fmt.Errorf("%s: max_line_bytes must be positive", name)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Driver{fs: fsys, name: name, opts: o, logger: logger}, nil
}

// NewMemory builds a driver over a fresh in-memory filesystem.
func NewMemory(opts map[string]any, logger *slog.Logger) (*Driver, error) {
	return New(afero.NewMemMapFs(), MemoryName, opts, logger)
}

func (d *Driver) Name() string      { return d.name }
func (d *Driver) Extension() string { return Extension }
func (d *Driver) FS() afero.Fs      { return d.fs }

// Open reads and validates the header line.
func (d *Driver) Open(ctx context.Context, path string) (driver.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fields, err := d.readHeader(path)
	if err != nil {
		return nil, err
	}
	return &table{d: d, path: path, fields: fields}, nil
}

// Create writes a file holding only the header line. The file is created
// exclusively, so an existing table is never overwritten.
func (d *Driver) Create(ctx context.Context, path string, fields []types.FieldDescriptor) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := d.fs.Stat(path); err == nil {
		return driver.Errorf("create", driver.CodeExists, path, "table file exists")
	}
	line, err := encodeHeader(fields)
	if err != nil {
		return driver.Wrap("create", driver.CodeIO, path, err)
	}
	f, err := d.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return driver.Wrap("create", driver.CodeExists, path, err)
		}
		return driver.Wrap("create", driver.CodeIO, path, err)
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		d.fs.Remove(path)
		return driver.Wrap("create", driver.CodeIO, path, err)
	}
	if err := f.Close(); err != nil {
		d.fs.Remove(path)
		return driver.Wrap("create", driver.CodeIO, path, err)
	}
	d.logger.Debug("created table", "path", path, "fields", len(fields))
	return nil
}
