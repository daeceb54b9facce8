// Package sqlite stores each table in its own SQLite database file with a
// .db extension, using the pure-Go modernc.org/sqlite engine.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/paradox-mcp/internal/driver"
	"github.com/mesh-intelligence/paradox-mcp/pkg/types"
)

// Registry name and table file extension.
const (
	Name      = "sqlite"
	Extension = ".db"
)

// Options are the driver settings read from the drivers.sqlite config map.
type Options struct {
	BusyTimeout time.Duration `mapstructure:"busy_timeout"`
	JournalMode string        `mapstructure:"journal_mode"`
	Synchronous string        `mapstructure:"synchronous"`
}

// DefaultOptions returns the options used for keys absent from the config.
func DefaultOptions() Options {
	return Options{BusyTimeout: 5 * time.Second}
}

func init() {
	driver.Register(Name, func(opts map[string]any, logger *slog.Logger) (driver.Driver, error) {
		return New(opts, logger)
	})
}

// Driver opens and creates SQLite table files on the OS filesystem.
type Driver struct {
	fs     afero.Fs
	opts   Options
	logger *slog.Logger
}

// New builds a driver from an option map.
func New(opts map[string]any, logger *slog.Logger) (*Driver, error) {
	o := DefaultOptions()
	if err := driver.DecodeOptions(opts, &o); err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}
	if o.BusyTimeout < 0 {
		return nil, fmt.Errorf("sqlite: busy_timeout must not be negative")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Driver{fs: afero.NewOsFs(), opts: o, logger: logger}, nil
}

func (d *Driver) Name() string      { return Name }
func (d *Driver) Extension() string { return Extension }
func (d *Driver) FS() afero.Fs      { return d.fs }

// Options returns the effective options.
func (d *Driver) Options() Options { return d.opts }

// dsn returns a file: URI for path carrying the connection pragmas. The
// path is escaped so that '?', '#' and '%' in a table name stay part of the
// file name.
func (d *Driver) dsn(path string) string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", d.opts.BusyTimeout.Milliseconds()))
	if d.opts.JournalMode != "" {
		q.Add("_pragma", "journal_mode("+d.opts.JournalMode+")")
	}
	if d.opts.Synchronous != "" {
		q.Add("_pragma", "synchronous("+d.opts.Synchronous+")")
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path), RawQuery: q.Encode()}
	return u.String()
}

func (d *Driver) openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", d.dsn(path))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// Open opens an existing table file. The file is checked first so that
// SQLite never creates one as a side effect.
func (d *Driver) Open(ctx context.Context, path string) (driver.Table, error) {
	if _, err := d.fs.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, driver.Wrap("open", driver.CodeNoFile, path, err)
		}
		return nil, driver.Wrap("open", driver.CodeIO, path, err)
	}
	db, err := d.openDB(path)
	if err != nil {
		return nil, driver.Wrap("open", driver.CodeIO, path, err)
	}
	fields, err := readFields(ctx, db)
	if err != nil {
		db.Close()
		return nil, driver.Wrap("open", driver.CodeBadHeader, path, err)
	}
	d.logger.Debug("opened table", "path", path, "fields", len(fields))
	return &table{db: db, path: path, fields: fields}, nil
}

// Create writes a new table file holding the field header and an empty
// record table. A partially written file is removed on failure.
func (d *Driver) Create(ctx context.Context, path string, fields []types.FieldDescriptor) error {
	if _, err := d.fs.Stat(path); err == nil {
		return driver.Errorf("create", driver.CodeExists, path, "table file exists")
	} else if !errors.Is(err, fs.ErrNotExist) {
		return driver.Wrap("create", driver.CodeIO, path, err)
	}
	db, err := d.openDB(path)
	if err != nil {
		return driver.Wrap("create", driver.CodeIO, path, err)
	}
	err = writeHeader(ctx, db, fields)
	if cerr := db.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		d.fs.Remove(path)
		return driver.Wrap("create", driver.CodeIO, path, err)
	}
	d.logger.Debug("created table", "path", path, "fields", len(fields))
	return nil
}

func writeHeader(ctx context.Context, db *sql.DB, fields []types.FieldDescriptor) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, createFields); err != nil {
		return fmt.Errorf("create field header: %w", err)
	}
	for i, f := range fields {
		if _, err := tx.ExecContext(ctx, insertField, i, f.Name, f.Type.String(), f.Size); err != nil {
			return fmt.Errorf("write field %q: %w", f.Name, err)
		}
	}
	if _, err := tx.ExecContext(ctx, createRecordsSQL(fields)); err != nil {
		return fmt.Errorf("create record table: %w", err)
	}
	return tx.Commit()
}

func readFields(ctx context.Context, db *sql.DB) ([]types.FieldDescriptor, error) {
	rows, err := db.QueryContext(ctx, selectFields)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fields []types.FieldDescriptor
	for rows.Next() {
		var (
			name, typeName string
			size           int
		)
		if err := rows.Scan(&name, &typeName, &size); err != nil {
			return nil, err
		}
		ft, err := types.ParseFieldType(typeName)
		if err != nil {
			return nil, err
		}
		fields = append(fields, types.FieldDescriptor{Name: name, Type: ft, Size: size})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("header declares no fields")
	}
	return fields, nil
}
