// Package adapter is the typed facade over a table driver. It converts
// between JSON records and native rows through the field type model, opens
// a native table for the duration of one operation, and translates native
// failures into the tool-level error values.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"github.com/mesh-intelligence/paradox-mcp/internal/driver"
	"github.com/mesh-intelligence/paradox-mcp/pkg/types"
)

// Adapter reads and writes tables through one driver.
type Adapter struct {
	drv    driver.Driver
	logger *slog.Logger
}

// New returns an adapter over drv. A nil logger discards output.
func New(drv driver.Driver, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{drv: drv, logger: logger}
}

// Driver returns the underlying driver.
func (a *Adapter) Driver() driver.Driver {
	return a.drv
}

func (a *Adapter) open(ctx context.Context, op string, h types.TableHandle) (driver.Table, error) {
	tbl, err := a.drv.Open(ctx, h.Path)
	if err != nil {
		return nil, a.translate(op, h, err)
	}
	return tbl, nil
}

// ReadSchema returns the fields of the table in on-disk order.
func (a *Adapter) ReadSchema(ctx context.Context, h types.TableHandle) (types.Schema, error) {
	tbl, err := a.open(ctx, "read schema", h)
	if err != nil {
		return nil, err
	}
	defer tbl.Close()
	return types.Schema(tbl.Fields()), nil
}

// Count returns the number of records in the table.
func (a *Adapter) Count(ctx context.Context, h types.TableHandle) (int, error) {
	tbl, err := a.open(ctx, "count", h)
	if err != nil {
		return 0, err
	}
	defer tbl.Close()
	n, err := tbl.Count(ctx)
	if err != nil {
		return 0, a.translate("count", h, err)
	}
	return n, nil
}

// Records yields the table's records in on-disk order. With limit >= 0 the
// sequence ends after limit records and the rest of the table is never
// read; a negative limit reads to the end. Every range reopens the table.
func (a *Adapter) Records(ctx context.Context, h types.TableHandle, limit int) iter.Seq2[types.Record, error] {
	return func(yield func(types.Record, error) bool) {
		if limit == 0 {
			return
		}
		tbl, err := a.open(ctx, "read", h)
		if err != nil {
			yield(nil, err)
			return
		}
		defer tbl.Close()

		schema := types.Schema(tbl.Fields())
		n := 0
		for values, err := range tbl.Records(ctx) {
			if err != nil {
				yield(nil, a.translate("read", h, err))
				return
			}
			rec, err := decodeRow(schema, values)
			if err != nil {
				yield(nil, a.translate("read", h, err))
				return
			}
			if !yield(rec, nil) {
				return
			}
			n++
			if limit > 0 && n >= limit {
				return
			}
		}
	}
}

// CreateTable writes a new, empty table. Sizes omitted from the schema take
// the type defaults.
func (a *Adapter) CreateTable(ctx context.Context, h types.TableHandle, schema types.Schema) error {
	fields := make([]types.FieldDescriptor, len(schema))
	for i, f := range schema {
		fields[i] = f.WithDefaultSize()
	}
	if err := types.Schema(fields).Validate(); err != nil {
		return err
	}
	if err := a.drv.Create(ctx, h.Path, fields); err != nil {
		return a.translate("create", h, err)
	}
	a.logger.Info("table created", "table", h.Name, "fields", len(fields))
	return nil
}

// InsertRecord validates values against the current schema and appends them
// as a new record. Fields absent from values are left blank.
func (a *Adapter) InsertRecord(ctx context.Context, h types.TableHandle, values types.Record) error {
	tbl, err := a.open(ctx, "insert", h)
	if err != nil {
		return err
	}
	defer tbl.Close()

	schema := types.Schema(tbl.Fields())
	row := make([]any, len(schema))
	if err := encodeInto(schema, values, row); err != nil {
		return err
	}
	if err := tbl.Append(ctx, row); err != nil {
		return a.translate("insert", h, err)
	}
	a.logger.Debug("record inserted", "table", h.Name)
	return nil
}

// UpdateRecord overwrites the fields named in values on the record at the
// zero-based position index; other fields keep their stored values. When
// expected is non-nil, each of its fields must equal the stored value
// before the write happens, or the update fails with ErrConflict.
func (a *Adapter) UpdateRecord(ctx context.Context, h types.TableHandle, index int, values, expected types.Record) error {
	if index < 0 {
		return fmt.Errorf("%w: index %d", types.ErrOutOfRange, index)
	}
	tbl, err := a.open(ctx, "update", h)
	if err != nil {
		return err
	}
	defer tbl.Close()

	schema := types.Schema(tbl.Fields())
	row, err := a.rowAt(ctx, h, tbl, index)
	if err != nil {
		return err
	}
	if expected != nil {
		if err := checkExpected(schema, row, expected, index); err != nil {
			return err
		}
	}
	if err := encodeInto(schema, values, row); err != nil {
		return err
	}
	if err := tbl.Put(ctx, index, row); err != nil {
		return a.translate("update", h, err)
	}
	a.logger.Debug("record updated", "table", h.Name, "index", index)
	return nil
}

// rowAt returns the native row at index. The driver cursor is closed before
// returning.
func (a *Adapter) rowAt(ctx context.Context, h types.TableHandle, tbl driver.Table, index int) ([]any, error) {
	i := 0
	for values, err := range tbl.Records(ctx) {
		if err != nil {
			return nil, a.translate("update", h, err)
		}
		if i == index {
			return values, nil
		}
		i++
	}
	return nil, fmt.Errorf("%w: index %d, table %s has %d records", types.ErrOutOfRange, index, h.Name, i)
}

func decodeRow(schema types.Schema, values []any) (types.Record, error) {
	if len(values) != len(schema) {
		return nil, fmt.Errorf("%w: row has %d values, schema has %d", types.ErrCorruptFile, len(values), len(schema))
	}
	decoded := make([]any, len(values))
	for i, f := range schema {
		v, err := types.Decode(values[i], f)
		if err != nil {
			return nil, err
		}
		decoded[i] = v
	}
	return types.NewRecord(schema, decoded), nil
}

// encodeInto encodes every entry of values into its schema position in row.
func encodeInto(schema types.Schema, values types.Record, row []any) error {
	seen := make(map[string]bool, len(values))
	for _, e := range values {
		idx := schema.Index(e.Name)
		if idx < 0 {
			return fmt.Errorf("%w: record: unknown field %q", types.ErrInvalidParams, e.Name)
		}
		if seen[e.Name] {
			return fmt.Errorf("%w: record: field %q given twice", types.ErrInvalidParams, e.Name)
		}
		seen[e.Name] = true
		native, err := types.Encode(e.Value, schema[idx])
		if err != nil {
			return err
		}
		row[idx] = native
	}
	return nil
}

// checkExpected compares the snapshot with the stored row. Snapshot values
// are normalized through the field codec so that any JSON form of a value
// compares equal to its stored form.
func checkExpected(schema types.Schema, row []any, expected types.Record, index int) error {
	for _, e := range expected {
		idx := schema.Index(e.Name)
		if idx < 0 {
			return fmt.Errorf("%w: expected: unknown field %q", types.ErrInvalidParams, e.Name)
		}
		f := schema[idx]
		stored, err := types.Decode(row[idx], f)
		if err != nil {
			return err
		}
		want := e.Value
		if native, err := types.Encode(e.Value, f); err == nil {
			if norm, err := types.Decode(native, f); err == nil {
				want = norm
			}
		}
		if !types.ValuesEqual(stored, want) {
			return fmt.Errorf("%w: record %d field %q", types.ErrConflict, index, e.Name)
		}
	}
	return nil
}

// translate maps a driver failure onto the tool-level error values. The
// native detail is logged and dropped.
func (a *Adapter) translate(op string, h types.TableHandle, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	for _, sentinel := range []error{types.ErrCorruptFile, types.ErrTypeMismatch, types.ErrInvalidParams} {
		if errors.Is(err, sentinel) {
			a.logger.Warn("table operation failed", "op", op, "table", h.Name, "error", err)
			return fmt.Errorf("%w: %s", sentinel, h.Name)
		}
	}

	var de *driver.Error
	if !errors.As(err, &de) {
		a.logger.Error("table operation failed", "op", op, "table", h.Name, "error", err)
		return fmt.Errorf("%s %s: storage failure", op, h.Name)
	}
	switch de.Code {
	case driver.CodeNoFile:
		return fmt.Errorf("%w: %s", types.ErrNotFound, h.Name)
	case driver.CodeExists:
		return fmt.Errorf("%w: %s", types.ErrAlreadyExists, h.Name)
	case driver.CodeRange:
		return fmt.Errorf("%w: table %s", types.ErrOutOfRange, h.Name)
	case driver.CodeBadHeader, driver.CodeBadRecord:
		a.logger.Warn("corrupt table", "op", op, "table", h.Name, "path", h.Path, "error", err)
		return fmt.Errorf("%w: %s", types.ErrCorruptFile, h.Name)
	}
	a.logger.Error("table operation failed", "op", op, "table", h.Name, "path", h.Path, "code", de.Code.String(), "error", err)
	return fmt.Errorf("%s %s: storage failure", op, h.Name)
}
