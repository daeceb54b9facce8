// Package driver defines the native table-format seam. A Driver knows how
// to open and create table files; a Table gives positional access to the
// rows of one open file. Values crossing the seam are native Go values as
// produced by types.Encode (int16, int32, float64, bool, string,
// time.Time, time.Duration, []byte or nil).
//
// Drivers register themselves by name in init functions; callers select one
// with New.
package driver

import (
	"context"
	"iter"

	"github.com/spf13/afero"

	"github.com/mesh-intelligence/paradox-mcp/pkg/types"
)

// Driver is the native capability set: open a table, create a table. Field
// listing, record reads and record writes go through the Table returned by
// Open.
type Driver interface {
	// Name returns the registry name of the driver.
	Name() string

	// Extension returns the file extension, with leading dot, that marks a
	// table file for this driver.
	Extension() string

	// FS returns the filesystem the driver stores tables on. The catalog
	// scans the same filesystem.
	FS() afero.Fs

	// Open opens an existing table file. The caller must Close the table.
	Open(ctx context.Context, path string) (Table, error)

	// Create writes a new, empty table with the given fields. It fails with
	// CodeExists when the file is already present.
	Create(ctx context.Context, path string, fields []types.FieldDescriptor) error
}

// Table is one open table file.
type Table interface {
	// Fields returns the header field descriptors in on-disk order.
	Fields() []types.FieldDescriptor

	// Count returns the number of records.
	Count(ctx context.Context) (int, error)

	// Records yields native value rows in on-disk order. Stopping the
	// iteration early stops reading the file.
	Records(ctx context.Context) iter.Seq2[[]any, error]

	// Append writes a row after the last record.
	Append(ctx context.Context, values []any) error

	// Put replaces the row at the zero-based position index.
	Put(ctx context.Context, index int, values []any) error

	// Close releases the native handle.
	Close() error
}
