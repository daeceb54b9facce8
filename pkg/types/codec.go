package types

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the wire format of DATE values.
const DateLayout = "2006-01-02"

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Encode converts a JSON value, as produced by encoding/json with or
// without UseNumber, into the native value stored for field f. A nil value
// encodes to a blank field. Conversions that would lose information fail
// with ErrTypeMismatch; size limits are enforced here and nowhere else.
func Encode(v any, f FieldDescriptor) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch f.Type {
	case FieldAlpha, FieldMemo:
		s, ok := v.(string)
		if !ok {
			return nil, mismatch(f, "a string", v)
		}
		if f.Type == FieldAlpha && len(s) > f.Size {
			return nil, fmt.Errorf("%w: field %q: %d bytes exceed declared size %d",
				ErrTypeMismatch, f.Name, len(s), f.Size)
		}
		return s, nil
	case FieldShort:
		n, err := encodeInteger(v, f, math.MinInt16, math.MaxInt16)
		if err != nil {
			return nil, err
		}
		return int16(n), nil
	case FieldLong, FieldAutoInc:
		n, err := encodeInteger(v, f, math.MinInt32, math.MaxInt32)
		if err != nil {
			return nil, err
		}
		return int32(n), nil
	case FieldNumber, FieldCurrency, FieldBCD:
		n, ok := Number(v)
		if !ok {
			return nil, mismatch(f, "a number", v)
		}
		return n, nil
	case FieldLogical:
		b, ok := v.(bool)
		if !ok {
			return nil, mismatch(f, "a boolean", v)
		}
		return b, nil
	case FieldDate:
		s, ok := v.(string)
		if !ok {
			return nil, mismatch(f, "a YYYY-MM-DD string", v)
		}
		d, err := time.Parse(DateLayout, s)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: invalid date %q", ErrTypeMismatch, f.Name, s)
		}
		return d.UTC(), nil
	case FieldTime:
		s, ok := v.(string)
		if !ok {
			return nil, mismatch(f, "an HH:MM:SS string", v)
		}
		d, err := ParseTimeOfDay(s)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: %v", ErrTypeMismatch, f.Name, err)
		}
		return d, nil
	case FieldTimestamp:
		s, ok := v.(string)
		if !ok {
			return nil, mismatch(f, "an RFC 3339 string", v)
		}
		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts, nil
			}
		}
		return nil, fmt.Errorf("%w: field %q: invalid timestamp %q", ErrTypeMismatch, f.Name, s)
	case FieldBytes, FieldBLOb:
		s, ok := v.(string)
		if !ok {
			return nil, mismatch(f, "a base64 string", v)
		}
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: invalid base64", ErrTypeMismatch, f.Name)
		}
		if f.Type == FieldBytes && len(b) > f.Size {
			return nil, fmt.Errorf("%w: field %q: %d bytes exceed declared size %d",
				ErrTypeMismatch, f.Name, len(b), f.Size)
		}
		return b, nil
	}
	return nil, fmt.Errorf("%w: field %q: %w", ErrTypeMismatch, f.Name, ErrUnknownFieldType)
}

// Decode converts a native value read from storage into its JSON
// representation. A native value whose Go type does not fit the declared
// field type means the file disagrees with its own header and is reported
// as ErrCorruptFile.
func Decode(native any, f FieldDescriptor) (any, error) {
	if native == nil {
		return nil, nil
	}
	switch f.Type {
	case FieldAlpha, FieldMemo:
		switch s := native.(type) {
		case string:
			return s, nil
		case []byte:
			return string(s), nil
		}
	case FieldShort, FieldLong, FieldAutoInc:
		switch n := native.(type) {
		case int16:
			return int64(n), nil
		case int32:
			return int64(n), nil
		case int64:
			return n, nil
		case int:
			return int64(n), nil
		}
	case FieldNumber, FieldCurrency, FieldBCD:
		if n, ok := Number(native); ok {
			return n, nil
		}
	case FieldLogical:
		if b, ok := native.(bool); ok {
			return b, nil
		}
	case FieldDate:
		if t, ok := native.(time.Time); ok {
			return t.Format(DateLayout), nil
		}
	case FieldTime:
		if d, ok := native.(time.Duration); ok {
			return FormatTimeOfDay(d), nil
		}
	case FieldTimestamp:
		if t, ok := native.(time.Time); ok {
			return t.Format(time.RFC3339Nano), nil
		}
	case FieldBytes, FieldBLOb:
		if b, ok := native.([]byte); ok {
			return base64.StdEncoding.EncodeToString(b), nil
		}
	}
	return nil, fmt.Errorf("%w: field %q (%s) holds %T", ErrCorruptFile, f.Name, f.Type, native)
}

// ParseTimeOfDay parses HH:MM, HH:MM:SS or HH:MM:SS.mmm into a duration
// since midnight.
func ParseTimeOfDay(s string) (time.Duration, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 23 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	var seconds float64
	if len(parts) == 3 {
		seconds, err = strconv.ParseFloat(parts[2], 64)
		if err != nil || seconds < 0 || seconds >= 60 {
			return 0, fmt.Errorf("invalid time %q", s)
		}
	}
	d := time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute +
		time.Duration(math.Round(seconds*1000))*time.Millisecond
	return d, nil
}

// FormatTimeOfDay renders a duration since midnight as HH:MM:SS, adding
// milliseconds only when they are non-zero.
func FormatTimeOfDay(d time.Duration) string {
	ms := d.Milliseconds()
	h := ms / 3_600_000
	m := ms / 60_000 % 60
	s := ms / 1000 % 60
	frac := ms % 1000
	if frac != 0 {
		return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, frac)
	}
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func encodeInteger(v any, f FieldDescriptor, lo, hi int64) (int64, error) {
	var n int64
	switch x := v.(type) {
	case json.Number:
		i, err := x.Int64()
		if err != nil {
			fl, ferr := x.Float64()
			if ferr != nil || fl != math.Trunc(fl) {
				return 0, mismatch(f, "an integer", v)
			}
			if fl < float64(lo) || fl > float64(hi) {
				return 0, outOfBounds(f, x.String(), lo, hi)
			}
			i = int64(fl)
		}
		n = i
	default:
		fl, ok := Number(v)
		if !ok || fl != math.Trunc(fl) || math.IsInf(fl, 0) {
			return 0, mismatch(f, "an integer", v)
		}
		if fl < float64(lo) || fl > float64(hi) {
			return 0, outOfBounds(f, strconv.FormatFloat(fl, 'f', -1, 64), lo, hi)
		}
		n = int64(fl)
	}
	if n < lo || n > hi {
		return 0, outOfBounds(f, strconv.FormatInt(n, 10), lo, hi)
	}
	return n, nil
}

func outOfBounds(f FieldDescriptor, value string, lo, hi int64) error {
	return fmt.Errorf("%w: field %q (%s): %s outside [%d, %d]",
		ErrTypeMismatch, f.Name, f.Type, value, lo, hi)
}

func mismatch(f FieldDescriptor, want string, got any) error {
	return fmt.Errorf("%w: field %q (%s) expects %s, got %s",
		ErrTypeMismatch, f.Name, f.Type, want, jsonKind(got))
}

// jsonKind names the JSON kind of a decoded value for error messages.
func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	}
	if _, ok := Number(v); ok {
		return "number"
	}
	return fmt.Sprintf("%T", v)
}
