package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		field FieldDescriptor
		in    any
		want  any
	}{
		{FieldDescriptor{Name: "a", Type: FieldAlpha, Size: 5}, "hello", "hello"},
		{FieldDescriptor{Name: "m", Type: FieldMemo, Size: 10}, "a much longer memo text", "a much longer memo text"},
		{FieldDescriptor{Name: "s", Type: FieldShort, Size: 2}, json.Number("-32768"), int64(-32768)},
		{FieldDescriptor{Name: "l", Type: FieldLong, Size: 4}, float64(2147483647), int64(2147483647)},
		{FieldDescriptor{Name: "i", Type: FieldAutoInc, Size: 4}, json.Number("7.0"), int64(7)},
		{FieldDescriptor{Name: "n", Type: FieldNumber, Size: 8}, json.Number("3.25"), 3.25},
		{FieldDescriptor{Name: "c", Type: FieldCurrency, Size: 8}, 12, float64(12)},
		{FieldDescriptor{Name: "b", Type: FieldLogical, Size: 1}, true, true},
		{FieldDescriptor{Name: "d", Type: FieldDate, Size: 4}, "2024-02-29", "2024-02-29"},
		{FieldDescriptor{Name: "t", Type: FieldTime, Size: 4}, "13:45:07", "13:45:07"},
		{FieldDescriptor{Name: "t", Type: FieldTime, Size: 4}, "13:45:07.250", "13:45:07.250"},
		{FieldDescriptor{Name: "t", Type: FieldTime, Size: 4}, "08:30", "08:30:00"},
		{FieldDescriptor{Name: "ts", Type: FieldTimestamp, Size: 8}, "2024-01-02T03:04:05Z", "2024-01-02T03:04:05Z"},
		{FieldDescriptor{Name: "ts", Type: FieldTimestamp, Size: 8}, "2024-01-02T03:04:05.5+02:00", "2024-01-02T03:04:05.5+02:00"},
		{FieldDescriptor{Name: "y", Type: FieldBytes, Size: 3}, "AQID", "AQID"},
		{FieldDescriptor{Name: "o", Type: FieldBLOb, Size: 10}, "aGVsbG8gd29ybGQ=", "aGVsbG8gd29ybGQ="},
	}
	for _, tt := range tests {
		t.Run(tt.field.Type.String(), func(t *testing.T) {
			native, err := Encode(tt.in, tt.field)
			require.NoError(t, err)
			got, err := Decode(native, tt.field)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeNullIsBlank(t *testing.T) {
	for _, ft := range FieldTypes {
		f := FieldDescriptor{Name: "x", Type: ft, Size: 10}
		native, err := Encode(nil, f)
		require.NoError(t, err, ft.String())
		assert.Nil(t, native, ft.String())
		decoded, err := Decode(nil, f)
		require.NoError(t, err)
		assert.Nil(t, decoded)
	}
}

func TestEncodeTypeMismatch(t *testing.T) {
	tests := []struct {
		name  string
		field FieldDescriptor
		in    any
	}{
		{"string for logical", FieldDescriptor{Name: "f", Type: FieldLogical}, "true"},
		{"fraction for long", FieldDescriptor{Name: "f", Type: FieldLong}, json.Number("1.5")},
		{"fraction for short", FieldDescriptor{Name: "f", Type: FieldShort}, 2.25},
		{"short overflow", FieldDescriptor{Name: "f", Type: FieldShort}, json.Number("32768")},
		{"long overflow", FieldDescriptor{Name: "f", Type: FieldLong}, json.Number("2147483648")},
		{"huge exponent", FieldDescriptor{Name: "f", Type: FieldLong}, json.Number("1e20")},
		{"string for short", FieldDescriptor{Name: "f", Type: FieldShort}, "30"},
		{"number for alpha", FieldDescriptor{Name: "f", Type: FieldAlpha, Size: 5}, json.Number("5")},
		{"alpha too long", FieldDescriptor{Name: "f", Type: FieldAlpha, Size: 3}, "abcd"},
		{"alpha multibyte over size", FieldDescriptor{Name: "f", Type: FieldAlpha, Size: 3}, "héé"},
		{"bool for number", FieldDescriptor{Name: "f", Type: FieldNumber}, false},
		{"bad date", FieldDescriptor{Name: "f", Type: FieldDate}, "2024-13-01"},
		{"bad time", FieldDescriptor{Name: "f", Type: FieldTime}, "25:00"},
		{"bad timestamp", FieldDescriptor{Name: "f", Type: FieldTimestamp}, "yesterday"},
		{"bad base64", FieldDescriptor{Name: "f", Type: FieldBLOb}, "%%%"},
		{"bytes too long", FieldDescriptor{Name: "f", Type: FieldBytes, Size: 2}, "AQID"},
		{"object value", FieldDescriptor{Name: "f", Type: FieldMemo}, map[string]any{"a": 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode(tt.in, tt.field)
			require.ErrorIs(t, err, ErrTypeMismatch)
		})
	}
}

func TestEncodeMemoIgnoresSize(t *testing.T) {
	_, err := Encode("longer than ten bytes", FieldDescriptor{Name: "m", Type: FieldMemo, Size: 10})
	require.NoError(t, err)
}

func TestDecodeWrongNativeTypeIsCorrupt(t *testing.T) {
	_, err := Decode("not a number", FieldDescriptor{Name: "n", Type: FieldLong})
	require.ErrorIs(t, err, ErrCorruptFile)
	_, err = Decode(int32(1), FieldDescriptor{Name: "d", Type: FieldDate})
	require.ErrorIs(t, err, ErrCorruptFile)
}

func TestEncodeNativeTypes(t *testing.T) {
	v, err := Encode(json.Number("30"), FieldDescriptor{Name: "age", Type: FieldShort})
	require.NoError(t, err)
	assert.Equal(t, int16(30), v)

	v, err = Encode("2024-02-29", FieldDescriptor{Name: "d", Type: FieldDate})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), v)

	v, err = Encode("01:02:03", FieldDescriptor{Name: "t", Type: FieldTime})
	require.NoError(t, err)
	assert.Equal(t, time.Hour+2*time.Minute+3*time.Second, v)
}

func TestTimeOfDay(t *testing.T) {
	d, err := ParseTimeOfDay("23:59:59.999")
	require.NoError(t, err)
	assert.Equal(t, "23:59:59.999", FormatTimeOfDay(d))

	for _, bad := range []string{"", "12", "1:2:3:4", "aa:00", "12:60", "12:00:60"} {
		_, err := ParseTimeOfDay(bad)
		assert.Error(t, err, bad)
	}
}
