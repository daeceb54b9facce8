package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/paradox-mcp/internal/tools"
	"github.com/mesh-intelligence/paradox-mcp/pkg/types"
)

func newTablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List the tables in the location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup(cmd)
			if err != nil {
				return err
			}
			var names []string
			if err := invoke(cmd, env, tools.MethodListTables, nil, &names); err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(names) == 0 {
				fmt.Fprintln(w, "(0 tables)")
				return nil
			}
			for _, name := range names {
				fmt.Fprintln(w, name)
			}
			return nil
		},
	}
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema <table>",
		Short: "Show the fields of a table",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup(cmd)
			if err != nil {
				return err
			}
			var schema types.Schema
			if err := invoke(cmd, env, tools.MethodReadTableSchema, map[string]any{"table": args[0]}, &schema); err != nil {
				return err
			}
			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"#", "Name", "Type", "Size"})
			for i, f := range schema {
				t.AppendRow(table.Row{i, f.Name, f.Type.String(), f.Size})
			}
			t.Render()
			return nil
		},
	}
}

func newDumpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump <table>",
		Short: "Print the records of a table",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			asJSON, _ := cmd.Flags().GetBool("json")
			params := map[string]any{"table": args[0]}
			if limit >= 0 {
				params["limit"] = limit
			}

			env, err := setup(cmd)
			if err != nil {
				return err
			}
			var schema types.Schema
			if err := invoke(cmd, env, tools.MethodReadTableSchema, map[string]any{"table": args[0]}, &schema); err != nil {
				return err
			}
			var records []types.Record
			if err := invoke(cmd, env, tools.MethodReadTableData, params, &records); err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(records)
			}
			renderRecords(cmd.OutOrStdout(), schema, records)
			return nil
		},
	}
	cmd.Flags().Int("limit", -1, "maximum number of records (default all)")
	cmd.Flags().Bool("json", false, "print records as JSON")
	return cmd
}

// invoke runs a tool through the dispatcher, exactly as a client would, and
// decodes its result into out.
func invoke(cmd *cobra.Command, env *environment, method string, params map[string]any, out any) error {
	var (
		raw json.RawMessage
		err error
	)
	if params != nil {
		if raw, err = json.Marshal(params); err != nil {
			return err
		}
	}
	result, err := env.dispatcher.Call(cmd.Context(), method, raw)
	if err != nil {
		f := tools.Classify(err)
		if f.Code == tools.CodeInternalError {
			env.logger.Error("tool failed", "method", method, "error", err)
		}
		return fmt.Errorf("%w: %s", errUsage, f.Message)
	}
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func renderRecords(w io.Writer, schema types.Schema, records []types.Record) {
	if len(records) == 0 {
		fmt.Fprintln(w, "(0 records)")
		return
	}
	t := newTable(w)
	header := table.Row{"#"}
	for _, name := range schema.Names() {
		header = append(header, name)
	}
	t.AppendHeader(header)
	for i, r := range records {
		row := table.Row{i}
		for _, name := range schema.Names() {
			v, _ := r.Get(name)
			row = append(row, formatValue(v))
		}
		t.AppendRow(row)
	}
	t.Render()
	fmt.Fprintf(w, "(%d records)\n", len(records))
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case json.Number:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
