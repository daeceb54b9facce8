package jsonl

import (
	"bytes"
	"context"
	"encoding/json"
	"iter"
	"os"

	"github.com/mesh-intelligence/paradox-mcp/internal/driver"
	"github.com/mesh-intelligence/paradox-mcp/pkg/types"
)

// table is an open JSONL table. It holds no file handle between calls;
// every operation reopens the file.
type table struct {
	d      *Driver
	path   string
	fields []types.FieldDescriptor
}

func (t *table) Fields() []types.FieldDescriptor {
	return append([]types.FieldDescriptor(nil), t.fields...)
}

func (t *table) Count(ctx context.Context) (int, error) {
	n := 0
	for _, err := range t.Records(ctx) {
		if err != nil {
			return 0, err
		}
		n++
	}
	return n, nil
}

// Records reads the file line by line. Breaking out of the loop closes the
// file without reading further.
func (t *table) Records(ctx context.Context) iter.Seq2[[]any, error] {
	return func(yield func([]any, error) bool) {
		f, err := t.d.openRead("read", t.path)
		if err != nil {
			yield(nil, err)
			return
		}
		defer f.Close()

		s := t.d.scanner(f)
		first := true
		for s.Scan() {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			line := s.Bytes()
			if first {
				first = false
				continue
			}
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}
			row, err := decodeRow(line)
			if err != nil {
				yield(nil, driver.Wrap("read", driver.CodeBadRecord, t.path, err))
				return
			}
			values, err := driver.NativeRow(row, t.fields)
			if err != nil {
				yield(nil, driver.Wrap("read", driver.CodeBadRecord, t.path, err))
				return
			}
			if !yield(values, nil) {
				return
			}
		}
		if err := s.Err(); err != nil {
			yield(nil, driver.Wrap("read", driver.CodeIO, t.path, err))
		}
	}
}

func (t *table) encodeRow(op string, values []any) ([]byte, error) {
	stored, err := driver.StoredRow(values, t.fields)
	if err != nil {
		return nil, driver.Wrap(op, driver.CodeArity, t.path, err)
	}
	line, err := json.Marshal(stored)
	if err != nil {
		return nil, driver.Wrap(op, driver.CodeIO, t.path, err)
	}
	return line, nil
}

func (t *table) Append(ctx context.Context, values []any) error {
	line, err := t.encodeRow("append", values)
	if err != nil {
		return err
	}
	f, err := t.d.fs.OpenFile(t.path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return driver.Wrap("append", driver.CodeIO, t.path, err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		f.Close()
		return driver.Wrap("append", driver.CodeIO, t.path, err)
	}
	if t.d.opts.Sync {
		if err := f.Sync(); err != nil {
			f.Close()
			return driver.Wrap("append", driver.CodeIO, t.path, err)
		}
	}
	return driver.Wrap("append", driver.CodeIO, t.path, f.Close())
}

func (t *table) Put(ctx context.Context, index int, values []any) error {
	line, err := t.encodeRow("put", values)
	if err != nil {
		return err
	}
	lines, err := t.d.readLines("put", t.path)
	if err != nil {
		return err
	}
	// lines[0] is the header.
	if index < 0 || index+1 >= len(lines) {
		return driver.Errorf("put", driver.CodeRange, t.path, "no record at index %d", index)
	}
	lines[index+1] = line
	return driver.Wrap("put", driver.CodeIO, t.path, t.d.writeLines(t.path, lines))
}

func (t *table) Close() error {
	return nil
}
