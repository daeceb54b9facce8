package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FieldType is the column type of a table field. The set is closed and
// mirrors the field types of the legacy table format.
type FieldType int

// Field types.
const (
	FieldAlpha FieldType = iota + 1
	FieldDate
	FieldShort
	FieldLong
	FieldCurrency
	FieldNumber
	FieldLogical
	FieldMemo
	FieldBLOb
	FieldTime
	FieldTimestamp
	FieldAutoInc
	FieldBCD
	FieldBytes
)

// MaxAlphaSize is the largest declared size accepted for ALPHA and BYTES
// fields.
const MaxAlphaSize = 255

var fieldTypeNames = map[FieldType]string{
	FieldAlpha:     "ALPHA",
	FieldDate:      "DATE",
	FieldShort:     "SHORT",
	FieldLong:      "LONG",
	FieldCurrency:  "CURRENCY",
	FieldNumber:    "NUMBER",
	FieldLogical:   "LOGICAL",
	FieldMemo:      "MEMO",
	FieldBLOb:      "BLOB",
	FieldTime:      "TIME",
	FieldTimestamp: "TIMESTAMP",
	FieldAutoInc:   "AUTOINC",
	FieldBCD:       "BCD",
	FieldBytes:     "BYTES",
}

// FieldTypes lists every field type in declaration order.
var FieldTypes = []FieldType{
	FieldAlpha, FieldDate, FieldShort, FieldLong, FieldCurrency, FieldNumber,
	FieldLogical, FieldMemo, FieldBLOb, FieldTime, FieldTimestamp,
	FieldAutoInc, FieldBCD, FieldBytes,
}

// String returns the upper-case type name used on the wire.
func (t FieldType) String() string {
	if name, ok := fieldTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("FieldType(%d)", int(t))
}

// Valid reports whether t is one of the declared field types.
func (t FieldType) Valid() bool {
	_, ok := fieldTypeNames[t]
	return ok
}

// ParseFieldType parses a type name case-insensitively.
// Returns ErrUnknownFieldType for names outside the enumeration.
func ParseFieldType(name string) (FieldType, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for t, n := range fieldTypeNames {
		if n == upper {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w %q", ErrUnknownFieldType, name)
}

// MarshalJSON encodes the type by name.
func (t FieldType) MarshalJSON() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownFieldType, int(t))
	}
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes a type name.
func (t *FieldType) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("field type must be a string: %w", err)
	}
	parsed, err := ParseFieldType(name)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// IsText reports whether values of this type are represented as JSON
// strings holding free text, the only kind partial search applies to.
func (t FieldType) IsText() bool {
	return t == FieldAlpha || t == FieldMemo
}

// IsNumeric reports whether values of this type are JSON numbers.
func (t FieldType) IsNumeric() bool {
	switch t {
	case FieldShort, FieldLong, FieldAutoInc, FieldNumber, FieldCurrency, FieldBCD:
		return true
	}
	return false
}

// DefaultSize returns the storage size used when a schema definition omits
// one. ALPHA and BYTES have no default and return 0.
func (t FieldType) DefaultSize() int {
	switch t {
	case FieldShort:
		return 2
	case FieldLong, FieldAutoInc, FieldDate, FieldTime:
		return 4
	case FieldNumber, FieldCurrency, FieldTimestamp:
		return 8
	case FieldLogical:
		return 1
	case FieldMemo, FieldBLOb:
		return 10
	case FieldBCD:
		return 17
	}
	return 0
}

// FieldDescriptor describes one column of a table.
type FieldDescriptor struct {
	Name string    `json:"name"`
	Type FieldType `json:"type"`
	Size int       `json:"size"`
}

// Validate checks the descriptor in isolation.
func (f FieldDescriptor) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("%w: field name must not be empty", ErrInvalidParams)
	}
	if !f.Type.Valid() {
		return fmt.Errorf("%w: field %q: %w", ErrInvalidParams, f.Name, ErrUnknownFieldType)
	}
	switch f.Type {
	case FieldAlpha, FieldBytes:
		if f.Size < 1 || f.Size > MaxAlphaSize {
			return fmt.Errorf("%w: field %q: %s size must be between 1 and %d",
				ErrInvalidParams, f.Name, f.Type, MaxAlphaSize)
		}
	default:
		if f.Size < 0 {
			return fmt.Errorf("%w: field %q: size must not be negative", ErrInvalidParams, f.Name)
		}
	}
	return nil
}

// WithDefaultSize returns f with Size filled from the type default when it
// was left zero.
func (f FieldDescriptor) WithDefaultSize() FieldDescriptor {
	if f.Size == 0 {
		f.Size = f.Type.DefaultSize()
	}
	return f
}
