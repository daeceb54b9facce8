package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/paradox-mcp/internal/driver"
	"github.com/mesh-intelligence/paradox-mcp/internal/driver/jsonl"
	"github.com/mesh-intelligence/paradox-mcp/internal/driver/sqlite"
	"github.com/mesh-intelligence/paradox-mcp/pkg/types"
)

var people = types.Schema{
	{Name: "name", Type: types.FieldAlpha, Size: 20},
	{Name: "age", Type: types.FieldShort},
	{Name: "joined", Type: types.FieldDate},
}

func record(t *testing.T, s string) types.Record {
	t.Helper()
	var r types.Record
	require.NoError(t, json.Unmarshal([]byte(s), &r))
	return r
}

func collect(t *testing.T, seq iter.Seq2[types.Record, error]) []types.Record {
	t.Helper()
	var out []types.Record
	for r, err := range seq {
		require.NoError(t, err)
		out = append(out, r)
	}
	return out
}

func toJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

type backend struct {
	name string
	new  func(t *testing.T) (driver.Driver, string)
}

var backends = []backend{
	{"memory", func(t *testing.T) (driver.Driver, string) {
		d, err := jsonl.NewMemory(nil, nil)
		require.NoError(t, err)
		return d, "/"
	}},
	{"sqlite", func(t *testing.T) (driver.Driver, string) {
		d, err := sqlite.New(nil, nil)
		require.NoError(t, err)
		return d, t.TempDir()
	}},
}

func setup(t *testing.T, b backend) (*Adapter, types.TableHandle) {
	t.Helper()
	d, dir := b.new(t)
	a := New(d, nil)
	h := types.TableHandle{Name: "people", Path: filepath.Join(dir, "people"+d.Extension())}
	require.NoError(t, a.CreateTable(context.Background(), h, people))
	return a, h
}

func TestRoundTrip(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			a, h := setup(t, b)
			ctx := context.Background()

			schema, err := a.ReadSchema(ctx, h)
			require.NoError(t, err)
			assert.Equal(t, []string{"name", "age", "joined"}, schema.Names())
			assert.Equal(t, 2, schema[1].Size, "default size applied")

			require.NoError(t, a.InsertRecord(ctx, h, record(t, `{"name":"Ana","age":30,"joined":"2021-03-04"}`)))
			require.NoError(t, a.InsertRecord(ctx, h, record(t, `{"age":41,"name":"Bo"}`)))

			got := collect(t, a.Records(ctx, h, -1))
			assert.Equal(t,
				`[{"name":"Ana","age":30,"joined":"2021-03-04"},{"name":"Bo","age":41,"joined":null}]`,
				toJSON(t, got))

			n, err := a.Count(ctx, h)
			require.NoError(t, err)
			assert.Equal(t, 2, n)
		})
	}
}

func TestUpdateMergesAndChecksSnapshot(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			a, h := setup(t, b)
			ctx := context.Background()
			require.NoError(t, a.InsertRecord(ctx, h, record(t, `{"name":"Ana","age":30,"joined":"2021-03-04"}`)))
			require.NoError(t, a.InsertRecord(ctx, h, record(t, `{"name":"Bo","age":41}`)))

			require.NoError(t, a.UpdateRecord(ctx, h, 0, record(t, `{"age":31}`), nil))
			got := collect(t, a.Records(ctx, h, -1))
			assert.Equal(t, `{"name":"Ana","age":31,"joined":"2021-03-04"}`, toJSON(t, got[0]))

			err := a.UpdateRecord(ctx, h, 1, record(t, `{"age":50}`), record(t, `{"age":40}`))
			require.ErrorIs(t, err, types.ErrConflict)

			require.NoError(t, a.UpdateRecord(ctx, h, 1, record(t, `{"age":50}`), record(t, `{"name":"Bo","age":41.0,"joined":null}`)))
			got = collect(t, a.Records(ctx, h, -1))
			assert.Equal(t, `{"name":"Bo","age":50,"joined":null}`, toJSON(t, got[1]))
		})
	}
}

func TestWriteErrors(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			a, h := setup(t, b)
			ctx := context.Background()

			err := a.InsertRecord(ctx, h, record(t, `{"name":"Ana","height":180}`))
			assert.ErrorIs(t, err, types.ErrInvalidParams)

			err = a.InsertRecord(ctx, h, record(t, `{"name":"Ana","age":"thirty"}`))
			assert.ErrorIs(t, err, types.ErrTypeMismatch)

			err = a.InsertRecord(ctx, h, record(t, `{"name":"a name that is far longer than twenty"}`))
			assert.ErrorIs(t, err, types.ErrTypeMismatch)

			err = a.UpdateRecord(ctx, h, 0, record(t, `{"age":1}`), nil)
			assert.ErrorIs(t, err, types.ErrOutOfRange)

			err = a.UpdateRecord(ctx, h, -1, record(t, `{"age":1}`), nil)
			assert.ErrorIs(t, err, types.ErrOutOfRange)

			err = a.CreateTable(ctx, h, people)
			assert.ErrorIs(t, err, types.ErrAlreadyExists)

			n, err := a.Count(ctx, h)
			require.NoError(t, err)
			assert.Zero(t, n, "failed writes leave the table unchanged")
		})
	}
}

func TestMissingAndCorruptTables(t *testing.T) {
	d, err := jsonl.NewMemory(nil, nil)
	require.NoError(t, err)
	a := New(d, nil)
	ctx := context.Background()

	_, err = a.ReadSchema(ctx, types.TableHandle{Name: "ghost", Path: "/ghost.jsonl"})
	assert.ErrorIs(t, err, types.ErrNotFound)

	require.NoError(t, afero.WriteFile(d.FS(), "/bad.jsonl", []byte("garbage\n"), 0o644))
	_, err = a.ReadSchema(ctx, types.TableHandle{Name: "bad", Path: "/bad.jsonl"})
	assert.ErrorIs(t, err, types.ErrCorruptFile)
	assert.NotContains(t, err.Error(), "invalid character", "driver detail is not surfaced")
}

// countingDriver serves rows from memory and records how many it produced.
type countingDriver struct {
	driver.Driver
	fields   []types.FieldDescriptor
	rows     int
	produced int
	closed   int
}

func (c *countingDriver) Open(ctx context.Context, path string) (driver.Table, error) {
	return &countingTable{c: c}, nil
}

type countingTable struct {
	driver.Table
	c *countingDriver
}

func (t *countingTable) Fields() []types.FieldDescriptor { return t.c.fields }
func (t *countingTable) Close() error                    { t.c.closed++; return nil }

func (t *countingTable) Records(ctx context.Context) iter.Seq2[[]any, error] {
	return func(yield func([]any, error) bool) {
		for i := 0; i < t.c.rows; i++ {
			t.c.produced++
			if !yield([]any{int32(i)}, nil) {
				return
			}
		}
	}
}

func TestRecordsLimitStopsReading(t *testing.T) {
	c := &countingDriver{
		fields: []types.FieldDescriptor{{Name: "n", Type: types.FieldLong, Size: 4}},
		rows:   1000,
	}
	a := New(c, nil)
	h := types.TableHandle{Name: "big", Path: "/big"}

	got := collect(t, a.Records(context.Background(), h, 5))
	assert.Len(t, got, 5)
	assert.Equal(t, 5, c.produced)
	assert.Equal(t, 1, c.closed)

	c.produced = 0
	assert.Empty(t, collect(t, a.Records(context.Background(), h, 0)))
	assert.Zero(t, c.produced)

	all := collect(t, a.Records(context.Background(), h, -1))
	assert.Len(t, all, 1000)
}

func TestUnclassifiedDriverErrorIsOpaque(t *testing.T) {
	d := &failingDriver{err: &driver.Error{Op: "open", Code: driver.CodeIO, Path: "/secret/path", Err: errors.New("disk on fire")}}
	a := New(d, nil)
	_, err := a.ReadSchema(context.Background(), types.TableHandle{Name: "t", Path: "/secret/path"})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "disk on fire")
	assert.NotContains(t, err.Error(), "/secret/path")
	for _, sentinel := range []error{types.ErrNotFound, types.ErrCorruptFile, types.ErrInvalidParams} {
		assert.NotErrorIs(t, err, sentinel)
	}
}

type failingDriver struct {
	driver.Driver
	err error
}

func (f *failingDriver) Open(ctx context.Context, path string) (driver.Table, error) {
	return nil, f.err
}
