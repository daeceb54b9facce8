package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/mesh-intelligence/paradox-mcp/pkg/types"
)

// ParamKind is the JSON shape of an argument.
type ParamKind string

// Argument shapes.
const (
	KindString   ParamKind = "string"
	KindInteger  ParamKind = "integer"
	KindObject   ParamKind = "object"
	KindSchema   ParamKind = "array"
	KindCriteria ParamKind = "criteria"
)

// Param declares one argument of a tool. Params are validated in
// declaration order.
type Param struct {
	Name        string
	Aliases     []string
	Kind        ParamKind
	Required    bool
	Description string
}

// args walks the raw arguments of one call. Accessors do nothing once an
// error has been recorded, so the first offending argument in declaration
// order is the one reported.
type args struct {
	raw     map[string]json.RawMessage
	err     error
	unknown error
}

// parseArgs decodes params into a map keyed by canonical argument name.
// Absent or null params mean no arguments.
func parseArgs(params json.RawMessage, decl []Param) (*args, error) {
	a := &args{raw: map[string]json.RawMessage{}}
	trimmed := bytes.TrimSpace(params)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return a, nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("%w: params must be a JSON object", types.ErrInvalidParams)
	}

	canonical := make(map[string]string)
	for _, p := range decl {
		canonical[p.Name] = p.Name
		for _, alias := range p.Aliases {
			canonical[alias] = p.Name
		}
	}

	var unknown []string
	for key, value := range raw {
		name, ok := canonical[key]
		if !ok {
			unknown = append(unknown, key)
			continue
		}
		if _, dup := a.raw[name]; dup {
			return nil, fmt.Errorf("%w: argument %q given more than once", types.ErrInvalidParams, name)
		}
		a.raw[name] = value
	}
	if len(unknown) > 0 {
		slices.Sort(unknown)
		a.unknown = fmt.Errorf("%w: unknown argument %q", types.ErrInvalidParams, unknown[0])
	}
	return a, nil
}

// finish returns the first error recorded for a declared argument, or
// else the unknown-argument error.
func (a *args) finish() error {
	if a.err != nil {
		return a.err
	}
	return a.unknown
}

func (a *args) fail(name, format string, v ...any) {
	if a.err != nil {
		return
	}
	a.err = fmt.Errorf("%w: argument %q: %s", types.ErrInvalidParams, name, fmt.Sprintf(format, v...))
}

func (a *args) get(name string, required bool) (json.RawMessage, bool) {
	if a.err != nil {
		return nil, false
	}
	raw, ok := a.raw[name]
	if !ok || string(bytes.TrimSpace(raw)) == "null" {
		if required {
			a.fail(name, "required")
		}
		return nil, false
	}
	return raw, true
}

func (a *args) str(name string, required bool) string {
	raw, ok := a.get(name, required)
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		a.fail(name, "must be a string")
		return ""
	}
	return s
}

// count reads a non-negative integer; def is returned when the argument is
// absent.
func (a *args) count(name string, required bool, def int) int {
	raw, ok := a.get(name, required)
	if !ok {
		return def
	}
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		a.fail(name, "must be an integer")
		return def
	}
	n, ok := v.(json.Number)
	if !ok {
		a.fail(name, "must be an integer")
		return def
	}
	i, err := n.Int64()
	if err != nil {
		f, ferr := n.Float64()
		if ferr != nil || f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
			a.fail(name, "must be an integer")
			return def
		}
		i = int64(f)
	}
	if i < 0 {
		a.fail(name, "must not be negative")
		return def
	}
	if i > math.MaxInt32 {
		a.fail(name, "too large")
		return def
	}
	return int(i)
}

func (a *args) record(name string, required bool) types.Record {
	raw, ok := a.get(name, required)
	if !ok {
		return nil
	}
	var r types.Record
	if err := json.Unmarshal(raw, &r); err != nil {
		a.fail(name, "must be a JSON object")
		return nil
	}
	if r == nil {
		r = types.Record{}
	}
	return r
}

func (a *args) criteria(name string, required bool) types.SearchCriteria {
	raw, ok := a.get(name, required)
	if !ok {
		return types.SearchCriteria{}
	}
	var c types.SearchCriteria
	if err := json.Unmarshal(raw, &c); err != nil {
		a.fail(name, "must map field names to {value, partial} objects: %v", err)
		return nil
	}
	if c == nil {
		c = types.SearchCriteria{}
	}
	return c
}

// fieldArg is one entry of a schema argument. length is accepted for size.
type fieldArg struct {
	Name   *string         `json:"name"`
	Type   *string         `json:"type"`
	Size   json.RawMessage `json:"size"`
	Length json.RawMessage `json:"length"`
}

func (a *args) schema(name string, required bool) types.Schema {
	raw, ok := a.get(name, required)
	if !ok {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		a.fail(name, "must be an array of field definitions")
		return nil
	}
	schema := make(types.Schema, 0, len(items))
	for i, item := range items {
		f, err := decodeField(item)
		if err != nil {
			a.fail(name, "field %d: %s", i, err)
			return nil
		}
		schema = append(schema, f)
	}
	if err := schema.Validate(); err != nil {
		a.fail(name, "%s", strings.TrimPrefix(err.Error(), types.ErrInvalidParams.Error()+": "))
		return nil
	}
	return schema
}

func decodeField(item json.RawMessage) (types.FieldDescriptor, error) {
	dec := json.NewDecoder(bytes.NewReader(item))
	dec.DisallowUnknownFields()
	var fa fieldArg
	if err := dec.Decode(&fa); err != nil {
		return types.FieldDescriptor{}, fmt.Errorf("must be an object with name, type and size")
	}
	if fa.Name == nil {
		return types.FieldDescriptor{}, fmt.Errorf("name is required")
	}
	if fa.Type == nil {
		return types.FieldDescriptor{}, fmt.Errorf("type is required")
	}
	ft, err := types.ParseFieldType(*fa.Type)
	if err != nil {
		return types.FieldDescriptor{}, err
	}
	f := types.FieldDescriptor{Name: *fa.Name, Type: ft}
	sizeRaw := fa.Size
	if len(sizeRaw) == 0 {
		sizeRaw = fa.Length
	} else if len(fa.Length) > 0 {
		return types.FieldDescriptor{}, fmt.Errorf("size and length are the same setting; give one")
	}
	if len(sizeRaw) > 0 && string(sizeRaw) != "null" {
		if err := json.Unmarshal(sizeRaw, &f.Size); err != nil {
			return types.FieldDescriptor{}, fmt.Errorf("size must be an integer")
		}
	}
	return f.WithDefaultSize(), nil
}
