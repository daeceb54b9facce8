// Package search evaluates field match criteria against record sequences.
// A record matches when every criterion holds; matching streams over the
// input and never materializes the table.
package search

import (
	"fmt"
	"iter"
	"strings"

	"github.com/mesh-intelligence/paradox-mcp/pkg/types"
)

type term struct {
	index   int
	name    string
	value   any
	partial bool
}

// Query is a compiled, validated set of criteria for one schema.
type Query struct {
	terms []term
}

// Compile validates criteria against schema and prepares them for
// matching. Unknown fields fail with ErrInvalidParams. A partial criterion
// on a non-text field, or with a non-string value, fails with
// ErrTypeMismatch, as does an exact value the field type cannot hold.
func Compile(schema types.Schema, criteria types.SearchCriteria) (*Query, error) {
	q := &Query{terms: make([]term, 0, len(criteria))}
	for _, name := range criteria.Fields() {
		c := criteria[name]
		idx := schema.Index(name)
		if idx < 0 {
			return nil, fmt.Errorf("%w: criteria: unknown field %q", types.ErrInvalidParams, name)
		}
		f := schema[idx]
		t := term{index: idx, name: name, partial: c.Partial}
		switch {
		case c.Partial:
			if !f.Type.IsText() {
				return nil, fmt.Errorf("%w: partial match on field %q requires a text field, not %s",
					types.ErrTypeMismatch, name, f.Type)
			}
			s, ok := c.Value.(string)
			if !ok {
				return nil, fmt.Errorf("%w: partial match on field %q requires a string value",
					types.ErrTypeMismatch, name)
			}
			t.value = s
		case f.Type.IsText():
			if c.Value != nil {
				if _, ok := c.Value.(string); !ok {
					return nil, fmt.Errorf("%w: field %q is %s and matches only strings",
						types.ErrTypeMismatch, name, f.Type)
				}
			}
			t.value = c.Value
		default:
			v, err := normalize(c.Value, f)
			if err != nil {
				return nil, err
			}
			t.value = v
		}
		q.terms = append(q.terms, t)
	}
	return q, nil
}

// Validate reports whether criteria are valid for schema.
func Validate(schema types.Schema, criteria types.SearchCriteria) error {
	_, err := Compile(schema, criteria)
	return err
}

// normalize puts an exact-match value into the form records are decoded
// to, so that 30 and 30.0, or two spellings of one timestamp, compare equal.
func normalize(v any, f types.FieldDescriptor) (any, error) {
	native, err := types.Encode(v, f)
	if err != nil {
		return nil, err
	}
	return types.Decode(native, f)
}

// Match reports whether r satisfies every criterion. An empty query matches
// every record.
func (q *Query) Match(r types.Record) bool {
	for _, t := range q.terms {
		value, ok := valueAt(r, t)
		if !ok {
			return false
		}
		if t.partial {
			s, ok := value.(string)
			if !ok || !strings.Contains(s, t.value.(string)) {
				return false
			}
			continue
		}
		if !types.ValuesEqual(value, t.value) {
			return false
		}
	}
	return true
}

func valueAt(r types.Record, t term) (any, bool) {
	if t.index < len(r) && r[t.index].Name == t.name {
		return r[t.index].Value, true
	}
	return r.Get(t.name)
}

// Filter yields the records of seq that match q, in input order. Errors
// from seq are passed through and end the sequence.
func (q *Query) Filter(seq iter.Seq2[types.Record, error]) iter.Seq2[types.Record, error] {
	return func(yield func(types.Record, error) bool) {
		for r, err := range seq {
			if err != nil {
				yield(nil, err)
				return
			}
			if q.Match(r) && !yield(r, nil) {
				return
			}
		}
	}
}

// Limit yields at most n records of seq; a negative n yields all of them.
// Iteration of seq stops as soon as the limit is reached.
func Limit(seq iter.Seq2[types.Record, error], n int) iter.Seq2[types.Record, error] {
	if n < 0 {
		return seq
	}
	return func(yield func(types.Record, error) bool) {
		if n == 0 {
			return
		}
		count := 0
		for r, err := range seq {
			if !yield(r, err) || err != nil {
				return
			}
			count++
			if count >= n {
				return
			}
		}
	}
}
