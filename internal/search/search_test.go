package search

import (
	"encoding/json"
	"errors"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/paradox-mcp/pkg/types"
)

var schema = types.Schema{
	{Name: "name", Type: types.FieldAlpha, Size: 20},
	{Name: "age", Type: types.FieldShort, Size: 2},
	{Name: "active", Type: types.FieldLogical, Size: 1},
	{Name: "score", Type: types.FieldNumber, Size: 8},
	{Name: "born", Type: types.FieldDate, Size: 4},
	{Name: "notes", Type: types.FieldMemo, Size: 10},
}

func rows() []types.Record {
	return []types.Record{
		types.NewRecord(schema, []any{"Ana", int64(30), true, 1.5, "1994-02-01", "likes tea"}),
		types.NewRecord(schema, []any{"Anabel", int64(25), false, 2.0, nil, nil}),
		types.NewRecord(schema, []any{"Bruno", int64(30), true, 3.25, "1994-02-01", "Tea drinker"}),
		types.NewRecord(schema, []any{"ana", nil, nil, nil, nil, "lowercase"}),
	}
}

func seqOf(rs []types.Record) iter.Seq2[types.Record, error] {
	return func(yield func(types.Record, error) bool) {
		for _, r := range rs {
			if !yield(r, nil) {
				return
			}
		}
	}
}

func criteria(t *testing.T, s string) types.SearchCriteria {
	t.Helper()
	var c types.SearchCriteria
	require.NoError(t, json.Unmarshal([]byte(s), &c))
	return c
}

func names(t *testing.T, seq iter.Seq2[types.Record, error]) []string {
	t.Helper()
	var out []string
	for r, err := range seq {
		require.NoError(t, err)
		v, _ := r.Get("name")
		out = append(out, v.(string))
	}
	return out
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name     string
		criteria string
		want     []string
	}{
		{"empty matches all", `{}`, []string{"Ana", "Anabel", "Bruno", "ana"}},
		{"partial is case-sensitive", `{"name":{"value":"An","partial":true}}`, []string{"Ana", "Anabel"}},
		{"exact string", `{"name":{"value":"Ana"}}`, []string{"Ana"}},
		{"bare value shorthand", `{"name":"Bruno"}`, []string{"Bruno"}},
		{"number by value", `{"age":{"value":30.0}}`, []string{"Ana", "Bruno"}},
		{"float field", `{"score":2}`, []string{"Anabel"}},
		{"boolean", `{"active":false}`, []string{"Anabel"}},
		{"date", `{"born":"1994-02-01"}`, []string{"Ana", "Bruno"}},
		{"null matches blank", `{"age":null}`, []string{"ana"}},
		{"criteria are ANDed", `{"age":30,"notes":{"value":"tea","partial":true}}`, []string{"Ana"}},
		{"empty substring matches non-blank text", `{"notes":{"value":"","partial":true}}`, []string{"Ana", "Bruno", "ana"}},
		{"no match", `{"name":"Zed"}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Compile(schema, criteria(t, tt.criteria))
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(t, q.Filter(seqOf(rows()))))
		})
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name     string
		criteria string
		want     error
	}{
		{"unknown field", `{"height":{"value":1}}`, types.ErrInvalidParams},
		{"partial on number", `{"age":{"value":"3","partial":true}}`, types.ErrTypeMismatch},
		{"partial on date", `{"born":{"value":"1994","partial":true}}`, types.ErrTypeMismatch},
		{"partial with number value", `{"name":{"value":3,"partial":true}}`, types.ErrTypeMismatch},
		{"string for short", `{"age":"thirty"}`, types.ErrTypeMismatch},
		{"number for alpha", `{"name":5}`, types.ErrTypeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(schema, criteria(t, tt.criteria))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestExactTextIgnoresDeclaredSize(t *testing.T) {
	q, err := Compile(schema, criteria(t, `{"name":"a value longer than twenty bytes"}`))
	require.NoError(t, err)
	assert.Empty(t, names(t, q.Filter(seqOf(rows()))))
}

func TestFilterIsLazyAndPassesErrors(t *testing.T) {
	boom := errors.New("boom")
	pulled := 0
	seq := func(yield func(types.Record, error) bool) {
		for _, r := range rows() {
			pulled++
			if !yield(r, nil) {
				return
			}
		}
		yield(nil, boom)
	}

	q, err := Compile(schema, criteria(t, `{"age":30}`))
	require.NoError(t, err)

	for range q.Filter(seq) {
		break
	}
	assert.Equal(t, 1, pulled, "filter stops pulling once the consumer stops")

	var gotErr error
	for _, err := range q.Filter(seq) {
		if err != nil {
			gotErr = err
		}
	}
	assert.ErrorIs(t, gotErr, boom)
}

func TestLimit(t *testing.T) {
	all := seqOf(rows())
	assert.Equal(t, []string{"Ana", "Anabel"}, names(t, Limit(all, 2)))
	assert.Empty(t, names(t, Limit(all, 0)))
	assert.Len(t, names(t, Limit(all, -1)), 4)
	assert.Len(t, names(t, Limit(all, 10)), 4)
}
