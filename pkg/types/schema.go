package types

import (
	"fmt"
	"path/filepath"
)

// Schema is the ordered list of fields of one table. Field order defines
// the order of values in every record.
type Schema []FieldDescriptor

// Validate checks that the schema has at least one field, that every field
// is well formed, and that field names are unique.
func (s Schema) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidParams, ErrEmptySchema)
	}
	seen := make(map[string]bool, len(s))
	for _, f := range s {
		if err := f.Validate(); err != nil {
			return err
		}
		if seen[f.Name] {
			return fmt.Errorf("%w: %w %q", ErrInvalidParams, ErrDuplicateField, f.Name)
		}
		seen[f.Name] = true
	}
	return nil
}

// Index returns the position of the named field, or -1.
func (s Schema) Index(name string) int {
	for i, f := range s {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Field returns the named field descriptor.
func (s Schema) Field(name string) (FieldDescriptor, bool) {
	if i := s.Index(name); i >= 0 {
		return s[i], true
	}
	return FieldDescriptor{}, false
}

// Names returns the field names in schema order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.Name
	}
	return names
}

// TableHandle identifies a table by canonical name and the file that holds
// it. Path always lies inside the configured location.
type TableHandle struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// String returns the table name.
func (h TableHandle) String() string {
	return h.Name
}

// Dir returns the directory that holds the table file.
func (h TableHandle) Dir() string {
	return filepath.Dir(h.Path)
}
