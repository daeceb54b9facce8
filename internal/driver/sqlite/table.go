package sqlite

import (
	"context"
	"database/sql"
	"iter"

	"github.com/mesh-intelligence/paradox-mcp/internal/driver"
	"github.com/mesh-intelligence/paradox-mcp/pkg/types"
)

// table is one open SQLite table file.
type table struct {
	db     *sql.DB
	path   string
	fields []types.FieldDescriptor
}

func (t *table) Fields() []types.FieldDescriptor {
	return append([]types.FieldDescriptor(nil), t.fields...)
}

func (t *table) Count(ctx context.Context) (int, error) {
	var n int
	if err := t.db.QueryRowContext(ctx, countRecords).Scan(&n); err != nil {
		return 0, driver.Wrap("count", driver.CodeBadHeader, t.path, err)
	}
	return n, nil
}

// Records streams rows through a single cursor. Breaking out of the loop
// closes the cursor without reading the remaining rows.
func (t *table) Records(ctx context.Context) iter.Seq2[[]any, error] {
	return func(yield func([]any, error) bool) {
		rows, err := t.db.QueryContext(ctx, selectRecordsSQL(len(t.fields)))
		if err != nil {
			yield(nil, driver.Wrap("read", driver.CodeBadHeader, t.path, err))
			return
		}
		defer rows.Close()

		stored := make([]any, len(t.fields))
		ptrs := make([]any, len(t.fields))
		for i := range stored {
			ptrs[i] = &stored[i]
		}
		for rows.Next() {
			if err := rows.Scan(ptrs...); err != nil {
				yield(nil, driver.Wrap("read", driver.CodeBadRecord, t.path, err))
				return
			}
			values, err := driver.NativeRow(stored, t.fields)
			if err != nil {
				yield(nil, driver.Wrap("read", driver.CodeBadRecord, t.path, err))
				return
			}
			if !yield(values, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, driver.Wrap("read", driver.CodeIO, t.path, err))
		}
	}
}

func (t *table) Append(ctx context.Context, values []any) error {
	stored, err := driver.StoredRow(values, t.fields)
	if err != nil {
		return driver.Wrap("append", driver.CodeArity, t.path, err)
	}
	if _, err := t.db.ExecContext(ctx, insertRecordSQL(len(t.fields)), stored...); err != nil {
		return driver.Wrap("append", driver.CodeIO, t.path, err)
	}
	return nil
}

func (t *table) Put(ctx context.Context, index int, values []any) error {
	if index < 0 {
		return driver.Errorf("put", driver.CodeRange, t.path, "negative index %d", index)
	}
	stored, err := driver.StoredRow(values, t.fields)
	if err != nil {
		return driver.Wrap("put", driver.CodeArity, t.path, err)
	}
	res, err := t.db.ExecContext(ctx, updateRecordSQL(len(t.fields)), append(stored, index)...)
	if err != nil {
		return driver.Wrap("put", driver.CodeIO, t.path, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return driver.Wrap("put", driver.CodeIO, t.path, err)
	}
	if n == 0 {
		return driver.Errorf("put", driver.CodeRange, t.path, "no record at index %d", index)
	}
	return nil
}

func (t *table) Close() error {
	return t.db.Close()
}
