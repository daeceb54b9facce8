package sqlite

import (
	"fmt"
	"strings"

	"github.com/mesh-intelligence/paradox-mcp/pkg/types"
)

// Every table file holds a field header and a record table whose columns
// are positional (c0, c1, ...). Record order is rowid order.
const (
	createFields = `CREATE TABLE px_fields (
    position INTEGER PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    type TEXT NOT NULL,
    size INTEGER NOT NULL
);`

	insertField = `INSERT INTO px_fields (position, name, type, size) VALUES (?, ?, ?, ?)`

	selectFields = `SELECT name, type, size FROM px_fields ORDER BY position`

	countRecords = `SELECT COUNT(*) FROM px_records`
)

// columnType returns the declared SQL type of the column holding f. DATE and
// TIMESTAMP are declared TEXT so the sqlite driver returns them unparsed.
func columnType(f types.FieldDescriptor) string {
	switch f.Type {
	case types.FieldShort, types.FieldLong, types.FieldAutoInc, types.FieldLogical, types.FieldTime:
		return "INTEGER"
	case types.FieldNumber, types.FieldCurrency, types.FieldBCD:
		return "REAL"
	case types.FieldBytes, types.FieldBLOb:
		return "BLOB"
	}
	return "TEXT"
}

func column(i int) string {
	return fmt.Sprintf("c%d", i)
}

func columnList(n int) string {
	cols := make([]string, n)
	for i := range cols {
		cols[i] = column(i)
	}
	return strings.Join(cols, ", ")
}

func createRecordsSQL(fields []types.FieldDescriptor) string {
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = "    " + column(i) + " " + columnType(f)
	}
	return "CREATE TABLE px_records (\n" + strings.Join(cols, ",\n") + "\n);"
}

func selectRecordsSQL(n int) string {
	return "SELECT " + columnList(n) + " FROM px_records ORDER BY rowid"
}

func insertRecordSQL(n int) string {
	return "INSERT INTO px_records (" + columnList(n) + ") VALUES (" +
		strings.TrimSuffix(strings.Repeat("?, ", n), ", ") + ")"
}

func updateRecordSQL(n int) string {
	sets := make([]string, n)
	for i := range sets {
		sets[i] = column(i) + " = ?"
	}
	return "UPDATE px_records SET " + strings.Join(sets, ", ") +
		" WHERE rowid = (SELECT rowid FROM px_records ORDER BY rowid LIMIT 1 OFFSET ?)"
}
