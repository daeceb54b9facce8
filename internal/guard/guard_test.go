package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mesh-intelligence/paradox-mcp/pkg/types"
)

func TestAuthorize(t *testing.T) {
	readOnly := New(&types.Config{})
	editable := New(&types.Config{PermitEditing: true})

	for _, op := range []string{"create_table", "insert_record", "update_record"} {
		assert.ErrorIs(t, readOnly.Authorize(op, Write), types.ErrPermissionDenied, op)
		assert.NoError(t, editable.Authorize(op, Write), op)
	}
	for _, op := range []string{"list_tables", "read_table_data"} {
		assert.NoError(t, readOnly.Authorize(op, Read), op)
		assert.NoError(t, editable.Authorize(op, Read), op)
	}

	var zero Guard
	assert.ErrorIs(t, zero.Authorize("insert_record", Write), types.ErrPermissionDenied)
	assert.False(t, New(nil).EditingPermitted())
	assert.True(t, editable.EditingPermitted())
}
