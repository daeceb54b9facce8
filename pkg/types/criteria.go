package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// Criterion is the match rule for one field. When Partial is set,
// Value must be a string and matches by case-sensitive substring
// containment; otherwise Value matches by type-aware equality.
type Criterion struct {
	Value   any  `json:"value"`
	Partial bool `json:"partial,omitempty"`
}

// UnmarshalJSON accepts either {"value": v, "partial": b} or a bare scalar
// v, which is shorthand for an exact match on v.
func (c *Criterion) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return err
		}
		valueRaw, ok := raw["value"]
		if !ok {
			return fmt.Errorf("criterion object must have a \"value\" key")
		}
		for key := range raw {
			if key != "value" && key != "partial" {
				return fmt.Errorf("unknown criterion key %q", key)
			}
		}
		value, err := decodeValue(valueRaw)
		if err != nil {
			return err
		}
		var partial bool
		if p, ok := raw["partial"]; ok {
			if err := json.Unmarshal(p, &partial); err != nil {
				return fmt.Errorf("criterion \"partial\" must be a boolean")
			}
		}
		*c = Criterion{Value: value, Partial: partial}
		return nil
	}
	value, err := decodeValue(trimmed)
	if err != nil {
		return err
	}
	*c = Criterion{Value: value}
	return nil
}

func decodeValue(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// SearchCriteria maps field names to match rules. All criteria
// must hold for a record to match; an empty set matches every record.
type SearchCriteria map[string]Criterion

// Fields returns the criterion field names in sorted order, so that
// validation reports the same offending field on every run.
func (c SearchCriteria) Fields() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
