package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCriterionUnmarshal(t *testing.T) {
	var c SearchCriteria
	require.NoError(t, json.Unmarshal([]byte(`{
		"name": {"value": "An", "partial": true},
		"age": {"value": 30},
		"active": true,
		"city": "Lisbon"
	}`), &c))

	assert.Equal(t, Criterion{Value: "An", Partial: true}, c["name"])
	assert.Equal(t, Criterion{Value: json.Number("30")}, c["age"])
	assert.Equal(t, Criterion{Value: true}, c["active"])
	assert.Equal(t, Criterion{Value: "Lisbon"}, c["city"])
	assert.Equal(t, []string{"active", "age", "city", "name"}, c.Fields())
}

func TestCriterionUnmarshalRejectsMalformedObjects(t *testing.T) {
	for _, in := range []string{
		`{"partial": true}`,
		`{"value": "x", "exact": true}`,
		`{"value": "x", "partial": "yes"}`,
	} {
		var c Criterion
		assert.Error(t, json.Unmarshal([]byte(in), &c), in)
	}
}

func TestCriterionNullValue(t *testing.T) {
	var c Criterion
	require.NoError(t, json.Unmarshal([]byte(`null`), &c))
	assert.Nil(t, c.Value)
	assert.False(t, c.Partial)
}
