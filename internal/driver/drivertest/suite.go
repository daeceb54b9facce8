// Package drivertest is a conformance suite for driver.Driver
// implementations. It tests the seam contract, not storage details, so every
// driver runs the same cases.
package drivertest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/paradox-mcp/internal/driver"
	"github.com/mesh-intelligence/paradox-mcp/pkg/types"
)

// Suite runs the conformance cases.
type Suite struct {
	// NewDriver returns a fresh driver and a directory on its filesystem
	// where test tables may be created.
	NewDriver func(t *testing.T) (driver.Driver, string)
}

// Run executes all cases in the suite.
func (s *Suite) Run(t *testing.T) {
	t.Run("CreateAndOpen", s.testCreateAndOpen)
	t.Run("CreateExisting", s.testCreateExisting)
	t.Run("OpenMissing", s.testOpenMissing)
	t.Run("OpenGarbage", s.testOpenGarbage)
	t.Run("AppendAndRead", s.testAppendAndRead)
	t.Run("Put", s.testPut)
	t.Run("PutOutOfRange", s.testPutOutOfRange)
	t.Run("EarlyStop", s.testEarlyStop)
	t.Run("Arity", s.testArity)
}

// AllTypesSchema has one field of every type.
func AllTypesSchema() []types.FieldDescriptor {
	fields := make([]types.FieldDescriptor, 0, len(types.FieldTypes))
	for _, ft := range types.FieldTypes {
		f := types.FieldDescriptor{Name: "f_" + ft.String(), Type: ft}.WithDefaultSize()
		if f.Size == 0 {
			f.Size = 32
		}
		fields = append(fields, f)
	}
	return fields
}

// AllTypesRow returns native values matching AllTypesSchema, varied by n.
func AllTypesRow(n int) []any {
	row := make([]any, 0, len(types.FieldTypes))
	for _, ft := range types.FieldTypes {
		switch ft {
		case types.FieldAlpha, types.FieldMemo:
			row = append(row, "text-"+string(rune('a'+n)))
		case types.FieldShort:
			row = append(row, int16(-100+n))
		case types.FieldLong, types.FieldAutoInc:
			row = append(row, int32(100000+n))
		case types.FieldNumber, types.FieldCurrency, types.FieldBCD:
			row = append(row, 1.5+float64(n))
		case types.FieldLogical:
			row = append(row, n%2 == 0)
		case types.FieldDate:
			row = append(row, time.Date(2024, 1, 1+n, 0, 0, 0, 0, time.UTC))
		case types.FieldTime:
			row = append(row, time.Duration(n)*time.Hour+1500*time.Millisecond)
		case types.FieldTimestamp:
			row = append(row, time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC).Add(time.Duration(n)*time.Minute))
		case types.FieldBytes, types.FieldBLOb:
			row = append(row, []byte{byte(n), 0xff, 0x00})
		}
	}
	return row
}

func (s *Suite) create(t *testing.T, fields []types.FieldDescriptor) (driver.Driver, string) {
	t.Helper()
	d, dir := s.NewDriver(t)
	path := filepath.Join(dir, "t"+d.Extension())
	require.NoError(t, d.Create(context.Background(), path, fields))
	return d, path
}

func (s *Suite) open(t *testing.T, d driver.Driver, path string) driver.Table {
	t.Helper()
	tbl, err := d.Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { tbl.Close() })
	return tbl
}

func readAll(t *testing.T, tbl driver.Table) [][]any {
	t.Helper()
	var rows [][]any
	for row, err := range tbl.Records(context.Background()) {
		require.NoError(t, err)
		rows = append(rows, row)
	}
	return rows
}

func (s *Suite) testCreateAndOpen(t *testing.T) {
	fields := AllTypesSchema()
	d, path := s.create(t, fields)

	exists, err := afero.Exists(d.FS(), path)
	require.NoError(t, err)
	assert.True(t, exists)

	tbl := s.open(t, d, path)
	assert.Equal(t, fields, tbl.Fields())

	n, err := tbl.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, readAll(t, tbl))
}

func (s *Suite) testCreateExisting(t *testing.T) {
	fields := []types.FieldDescriptor{{Name: "a", Type: types.FieldLong, Size: 4}}
	d, path := s.create(t, fields)

	err := d.Create(context.Background(), path, fields)
	require.Error(t, err)
	assert.Equal(t, driver.CodeExists, driver.CodeOf(err))
}

func (s *Suite) testOpenMissing(t *testing.T) {
	d, dir := s.NewDriver(t)
	path := filepath.Join(dir, "missing"+d.Extension())

	_, err := d.Open(context.Background(), path)
	require.Error(t, err)
	assert.Equal(t, driver.CodeNoFile, driver.CodeOf(err))

	exists, err := afero.Exists(d.FS(), path)
	require.NoError(t, err)
	assert.False(t, exists, "open must not create the file")
}

func (s *Suite) testOpenGarbage(t *testing.T) {
	d, dir := s.NewDriver(t)
	path := filepath.Join(dir, "garbage"+d.Extension())
	require.NoError(t, afero.WriteFile(d.FS(), path, []byte("this is not a table at all, just some bytes\n"), 0o644))

	tbl, err := d.Open(context.Background(), path)
	if err == nil {
		tbl.Close()
	}
	require.Error(t, err)
	assert.Equal(t, driver.CodeBadHeader, driver.CodeOf(err))
}

func (s *Suite) testAppendAndRead(t *testing.T) {
	d, path := s.create(t, AllTypesSchema())
	tbl := s.open(t, d, path)
	ctx := context.Background()

	blank := make([]any, len(types.FieldTypes))
	want := [][]any{AllTypesRow(0), AllTypesRow(1), blank}
	for _, row := range want {
		require.NoError(t, tbl.Append(ctx, row))
	}

	n, err := tbl.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(want), n)
	assert.Equal(t, want, readAll(t, tbl))

	// A second open sees the same rows.
	again := s.open(t, d, path)
	assert.Equal(t, want, readAll(t, again))
}

func (s *Suite) testPut(t *testing.T) {
	d, path := s.create(t, AllTypesSchema())
	tbl := s.open(t, d, path)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, tbl.Append(ctx, AllTypesRow(i)))
	}
	require.NoError(t, tbl.Put(ctx, 1, AllTypesRow(7)))

	rows := readAll(t, tbl)
	require.Len(t, rows, 3)
	assert.Equal(t, AllTypesRow(0), rows[0])
	assert.Equal(t, AllTypesRow(7), rows[1])
	assert.Equal(t, AllTypesRow(2), rows[2])
}

func (s *Suite) testPutOutOfRange(t *testing.T) {
	d, path := s.create(t, []types.FieldDescriptor{{Name: "a", Type: types.FieldLong, Size: 4}})
	tbl := s.open(t, d, path)
	ctx := context.Background()

	require.NoError(t, tbl.Append(ctx, []any{int32(1)}))
	for _, idx := range []int{1, 5, -1} {
		err := tbl.Put(ctx, idx, []any{int32(2)})
		require.Error(t, err, "index %d", idx)
		assert.Equal(t, driver.CodeRange, driver.CodeOf(err), "index %d", idx)
	}
	assert.Equal(t, [][]any{{int32(1)}}, readAll(t, tbl))
}

func (s *Suite) testEarlyStop(t *testing.T) {
	d, path := s.create(t, []types.FieldDescriptor{{Name: "a", Type: types.FieldLong, Size: 4}})
	tbl := s.open(t, d, path)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, tbl.Append(ctx, []any{int32(i)}))
	}
	var got []any
	for row, err := range tbl.Records(ctx) {
		require.NoError(t, err)
		got = append(got, row[0])
		if len(got) == 3 {
			break
		}
	}
	assert.Equal(t, []any{int32(0), int32(1), int32(2)}, got)

	// The table stays usable after an abandoned read.
	require.NoError(t, tbl.Append(ctx, []any{int32(10)}))
	n, err := tbl.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 11, n)
}

func (s *Suite) testArity(t *testing.T) {
	d, path := s.create(t, []types.FieldDescriptor{
		{Name: "a", Type: types.FieldLong, Size: 4},
		{Name: "b", Type: types.FieldAlpha, Size: 4},
	})
	tbl := s.open(t, d, path)

	err := tbl.Append(context.Background(), []any{int32(1)})
	require.Error(t, err)
	assert.Equal(t, driver.CodeArity, driver.CodeOf(err))
}
