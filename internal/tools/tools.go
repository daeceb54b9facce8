// Package tools is the closed registry of operations the server exposes.
// Each tool declares its arguments, is checked against the permission
// guard, and runs against the table catalog, data adapter and search
// engine.
package tools

import (
	"context"

	"github.com/mesh-intelligence/paradox-mcp/internal/guard"
)

// Method names.
const (
	MethodServerStatus    = "get_server_status"
	MethodListTables      = "list_tables"
	MethodReadTableSchema = "read_table_schema"
	MethodReadTableData   = "read_table_data"
	MethodSearchTable     = "search_table"
	MethodCreateTable     = "create_table"
	MethodInsertRecord    = "insert_record"
	MethodUpdateRecord    = "update_record"
)

// Methods lists every tool in the order tools/list reports them.
var Methods = []string{
	MethodServerStatus,
	MethodListTables,
	MethodReadTableSchema,
	MethodReadTableData,
	MethodSearchTable,
	MethodCreateTable,
	MethodInsertRecord,
	MethodUpdateRecord,
}

// call runs a tool whose arguments have already been bound.
type call func(ctx context.Context, d *Dispatcher) (any, error)

// Tool describes one operation.
type Tool struct {
	Name        string
	Description string
	Kind        guard.Kind
	Params      []Param

	// bind reads the arguments in declaration order. It must return a call
	// even when a has recorded an error; the call is discarded in that case.
	bind func(a *args) call
}

var tableParam = Param{
	Name:        "table",
	Aliases:     []string{"table_name"},
	Kind:        KindString,
	Required:    true,
	Description: "The name of the table (e.g., 'customers')",
}

var registry = map[string]Tool{
	MethodServerStatus: {
		Name:        MethodServerStatus,
		Description: "Get the status and configuration of the Paradox MCP server",
		Kind:        guard.Read,
		bind: func(a *args) call {
			return func(ctx context.Context, d *Dispatcher) (any, error) {
				return d.status(), nil
			}
		},
	},
	MethodListTables: {
		Name:        MethodListTables,
		Description: "List all Paradox tables (.db files) in the configured location",
		Kind:        guard.Read,
		bind: func(a *args) call {
			return func(ctx context.Context, d *Dispatcher) (any, error) {
				return d.listTables(ctx)
			}
		},
	},
	MethodReadTableSchema: {
		Name:        MethodReadTableSchema,
		Description: "Read the schema (field names and types) of a Paradox table",
		Kind:        guard.Read,
		Params:      []Param{tableParam},
		bind: func(a *args) call {
			table := a.str("table", true)
			return func(ctx context.Context, d *Dispatcher) (any, error) {
				return d.readSchema(ctx, table)
			}
		},
	},
	MethodReadTableData: {
		Name:        MethodReadTableData,
		Description: "Read records from a Paradox table",
		Kind:        guard.Read,
		Params: []Param{
			tableParam,
			{Name: "limit", Kind: KindInteger, Description: "Maximum number of records to return; all records when omitted"},
		},
		bind: func(a *args) call {
			table := a.str("table", true)
			limit := a.count("limit", false, -1)
			return func(ctx context.Context, d *Dispatcher) (any, error) {
				return d.readData(ctx, table, limit)
			}
		},
	},
	MethodSearchTable: {
		Name:        MethodSearchTable,
		Description: "Search for specific records in a Paradox table by field values",
		Kind:        guard.Read,
		Params: []Param{
			tableParam,
			{
				Name:        "criteria",
				Aliases:     []string{"query"},
				Kind:        KindCriteria,
				Required:    true,
				Description: "Field names mapped to {value, partial}. Matching is case-sensitive: partial does substring matching on string fields; " +
					"a bare value is shorthand for {value, partial: false} and matches the whole field exactly",
			},
			{Name: "limit", Kind: KindInteger, Description: "Maximum number of matches to return; all matches when omitted"},
		},
		bind: func(a *args) call {
			table := a.str("table", true)
			criteria := a.criteria("criteria", true)
			limit := a.count("limit", false, -1)
			return func(ctx context.Context, d *Dispatcher) (any, error) {
				return d.search(ctx, table, criteria, limit)
			}
		},
	},
	MethodCreateTable: {
		Name:        MethodCreateTable,
		Description: "Create a new Paradox table with a specific schema (requires editing permission)",
		Kind:        guard.Write,
		Params: []Param{
			tableParam,
			{
				Name:        "schema",
				Aliases:     []string{"fields"},
				Kind:        KindSchema,
				Required:    true,
				Description: "Ordered field definitions",
			},
		},
		bind: func(a *args) call {
			table := a.str("table", true)
			schema := a.schema("schema", true)
			return func(ctx context.Context, d *Dispatcher) (any, error) {
				return d.createTable(ctx, table, schema)
			}
		},
	},
	MethodInsertRecord: {
		Name:        MethodInsertRecord,
		Description: "Add a new record to a Paradox table (requires editing permission)",
		Kind:        guard.Write,
		Params: []Param{
			tableParam,
			{Name: "record", Kind: KindObject, Required: true, Description: "Field values keyed by field name; omitted fields are blank"},
		},
		bind: func(a *args) call {
			table := a.str("table", true)
			record := a.record("record", true)
			return func(ctx context.Context, d *Dispatcher) (any, error) {
				return d.insertRecord(ctx, table, record)
			}
		},
	},
	MethodUpdateRecord: {
		Name:        MethodUpdateRecord,
		Description: "Update an existing record in a Paradox table (requires editing permission)",
		Kind:        guard.Write,
		Params: []Param{
			tableParam,
			{Name: "index", Kind: KindInteger, Required: true, Description: "The 0-based index of the record to update"},
			{Name: "record", Kind: KindObject, Required: true, Description: "Field values to overwrite; omitted fields keep their value"},
			{Name: "expected", Kind: KindObject, Description: "Field values the stored record must still hold; the update fails with a conflict otherwise"},
		},
		bind: func(a *args) call {
			table := a.str("table", true)
			index := a.count("index", true, 0)
			record := a.record("record", true)
			expected := a.record("expected", false)
			return func(ctx context.Context, d *Dispatcher) (any, error) {
				return d.updateRecord(ctx, table, index, record, expected)
			}
		},
	},
}

// Lookup returns the named tool.
func Lookup(name string) (Tool, bool) {
	t, ok := registry[name]
	return t, ok
}

// All returns every tool in Methods order.
func All() []Tool {
	out := make([]Tool, 0, len(Methods))
	for _, name := range Methods {
		out = append(out, registry[name])
	}
	return out
}
