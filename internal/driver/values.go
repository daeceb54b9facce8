package driver

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/mesh-intelligence/paradox-mcp/pkg/types"
)

// Stored converts a native value into the primitive form drivers persist:
// string, int64, float64, bool, []byte or nil. DATE and TIMESTAMP become
// text, TIME becomes milliseconds since midnight.
func Stored(v any, f types.FieldDescriptor) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch x := v.(type) {
	case string:
		return x, nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case float64:
		return x, nil
	case bool:
		return x, nil
	case []byte:
		return x, nil
	case time.Duration:
		return x.Milliseconds(), nil
	case time.Time:
		if f.Type == types.FieldDate {
			return x.Format(types.DateLayout), nil
		}
		return x.Format(time.RFC3339Nano), nil
	}
	return nil, fmt.Errorf("field %q: unsupported native value %T", f.Name, v)
}

// Native converts a persisted primitive back into the native value for f.
// It accepts the forms produced by database/sql scans and by JSON decoding
// with UseNumber.
func Native(v any, f types.FieldDescriptor) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch f.Type {
	case types.FieldAlpha, types.FieldMemo:
		switch s := v.(type) {
		case string:
			return s, nil
		case []byte:
			return string(s), nil
		}
	case types.FieldShort:
		if n, ok := storedInt(v, math.MinInt16, math.MaxInt16); ok {
			return int16(n), nil
		}
	case types.FieldLong, types.FieldAutoInc:
		if n, ok := storedInt(v, math.MinInt32, math.MaxInt32); ok {
			return int32(n), nil
		}
	case types.FieldNumber, types.FieldCurrency, types.FieldBCD:
		if n, ok := types.Number(v); ok {
			return n, nil
		}
	case types.FieldLogical:
		switch b := v.(type) {
		case bool:
			return b, nil
		case int64:
			return b != 0, nil
		}
	case types.FieldDate:
		if s, ok := v.(string); ok {
			if d, err := time.Parse(types.DateLayout, s); err == nil {
				return d, nil
			}
		}
	case types.FieldTime:
		if n, ok := storedInt(v, 0, math.MaxInt64); ok {
			return time.Duration(n) * time.Millisecond, nil
		}
	case types.FieldTimestamp:
		if s, ok := v.(string); ok {
			if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
				return ts, nil
			}
		}
	case types.FieldBytes, types.FieldBLOb:
		switch b := v.(type) {
		case []byte:
			return b, nil
		case string:
			if raw, err := base64.StdEncoding.DecodeString(b); err == nil {
				return raw, nil
			}
		}
	}
	return nil, fmt.Errorf("field %q (%s): cannot read stored %T", f.Name, f.Type, v)
}

// NativeRow converts a stored row; the row must match the field count.
func NativeRow(stored []any, fields []types.FieldDescriptor) ([]any, error) {
	if len(stored) != len(fields) {
		return nil, fmt.Errorf("row has %d values, header declares %d", len(stored), len(fields))
	}
	out := make([]any, len(stored))
	for i, f := range fields {
		v, err := Native(stored[i], f)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// StoredRow converts a native row for persistence.
func StoredRow(values []any, fields []types.FieldDescriptor) ([]any, error) {
	if len(values) != len(fields) {
		return nil, fmt.Errorf("row has %d values, header declares %d", len(values), len(fields))
	}
	out := make([]any, len(values))
	for i, f := range fields {
		v, err := Stored(values[i], f)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func storedInt(v any, lo, hi int64) (int64, bool) {
	var n int64
	switch x := v.(type) {
	case int64:
		n = x
	case json.Number:
		i, err := x.Int64()
		if err != nil {
			return 0, false
		}
		n = i
	case float64:
		if x != math.Trunc(x) {
			return 0, false
		}
		n = int64(x)
	default:
		return 0, false
	}
	return n, n >= lo && n <= hi
}
