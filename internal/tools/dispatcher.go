package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"slices"

	"github.com/mesh-intelligence/paradox-mcp/internal/adapter"
	"github.com/mesh-intelligence/paradox-mcp/internal/catalog"
	"github.com/mesh-intelligence/paradox-mcp/internal/driver"
	"github.com/mesh-intelligence/paradox-mcp/internal/guard"
	"github.com/mesh-intelligence/paradox-mcp/internal/search"
	"github.com/mesh-intelligence/paradox-mcp/pkg/pxmcp"
	"github.com/mesh-intelligence/paradox-mcp/pkg/types"
)

// Status is the result of get_server_status.
type Status struct {
	Location         string `json:"location"`
	EditingPermitted bool   `json:"editingPermitted"`
	Backend          string `json:"backend"`
	Version          string `json:"version"`
}

// Ack is the result of a successful write.
type Ack struct {
	Acknowledged bool   `json:"acknowledged"`
	Table        string `json:"table"`
	Message      string `json:"message"`
}

// Dispatcher routes tool calls. It holds no state besides the configuration
// and the components built from it.
type Dispatcher struct {
	cfg     *types.Config
	catalog *catalog.Catalog
	adapter *adapter.Adapter
	guard   guard.Guard
}

// New assembles a dispatcher over drv. cfg must already be validated and
// must not change afterwards. A nil logger discards output.
func New(cfg *types.Config, drv driver.Driver, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		cfg:     cfg,
		catalog: catalog.New(drv.FS(), cfg.Location, drv.Extension()),
		adapter: adapter.New(drv, logger),
		guard:   guard.New(cfg),
	}
}

// Call runs the named tool with raw JSON arguments. Unknown methods fail
// with ErrMethodNotFound; argument errors with ErrInvalidParams, before the
// permission check and before any table is touched.
func (d *Dispatcher) Call(ctx context.Context, method string, params json.RawMessage) (any, error) {
	tool, ok := Lookup(method)
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrMethodNotFound, method)
	}
	a, err := parseArgs(params, tool.Params)
	if err != nil {
		return nil, err
	}
	run := tool.bind(a)
	if err := a.finish(); err != nil {
		return nil, err
	}
	if err := d.guard.Authorize(method, tool.Kind); err != nil {
		return nil, err
	}
	return run(ctx, d)
}

func (d *Dispatcher) status() Status {
	return Status{
		Location:         d.cfg.Location,
		EditingPermitted: d.guard.EditingPermitted(),
		Backend:          d.cfg.Backend,
		Version:          pxmcp.Version,
	}
}

func (d *Dispatcher) listTables(ctx context.Context) ([]string, error) {
	names := []string{}
	for h, err := range d.catalog.List(ctx) {
		if err != nil {
			return nil, err
		}
		names = append(names, h.Name)
	}
	slices.Sort(names)
	return names, nil
}

func (d *Dispatcher) readSchema(ctx context.Context, table string) (types.Schema, error) {
	h, err := d.catalog.Resolve(ctx, table)
	if err != nil {
		return nil, err
	}
	return d.adapter.ReadSchema(ctx, h)
}

func (d *Dispatcher) readData(ctx context.Context, table string, limit int) ([]types.Record, error) {
	h, err := d.catalog.Resolve(ctx, table)
	if err != nil {
		return nil, err
	}
	return collect(d.adapter.Records(ctx, h, limit))
}

func (d *Dispatcher) search(ctx context.Context, table string, criteria types.SearchCriteria, limit int) ([]types.Record, error) {
	h, err := d.catalog.Resolve(ctx, table)
	if err != nil {
		return nil, err
	}
	schema, err := d.adapter.ReadSchema(ctx, h)
	if err != nil {
		return nil, err
	}
	q, err := search.Compile(schema, criteria)
	if err != nil {
		return nil, err
	}
	return collect(search.Limit(q.Filter(d.adapter.Records(ctx, h, -1)), limit))
}

func (d *Dispatcher) createTable(ctx context.Context, table string, schema types.Schema) (Ack, error) {
	h, err := d.catalog.ResolveNew(table)
	if err != nil {
		return Ack{}, err
	}
	if err := d.adapter.CreateTable(ctx, h, schema); err != nil {
		return Ack{}, err
	}
	return Ack{
		Acknowledged: true,
		Table:        h.Name,
		Message:      fmt.Sprintf("Successfully created table '%s' with %d fields.", h.Name, len(schema)),
	}, nil
}

func (d *Dispatcher) insertRecord(ctx context.Context, table string, record types.Record) (Ack, error) {
	h, err := d.catalog.Resolve(ctx, table)
	if err != nil {
		return Ack{}, err
	}
	if err := d.adapter.InsertRecord(ctx, h, record); err != nil {
		return Ack{}, err
	}
	return Ack{
		Acknowledged: true,
		Table:        h.Name,
		Message:      fmt.Sprintf("Successfully inserted record in table '%s'.", h.Name),
	}, nil
}

func (d *Dispatcher) updateRecord(ctx context.Context, table string, index int, record, expected types.Record) (Ack, error) {
	h, err := d.catalog.Resolve(ctx, table)
	if err != nil {
		return Ack{}, err
	}
	if err := d.adapter.UpdateRecord(ctx, h, index, record, expected); err != nil {
		return Ack{}, err
	}
	return Ack{
		Acknowledged: true,
		Table:        h.Name,
		Message:      fmt.Sprintf("Successfully updated record %d in table '%s'.", index, h.Name),
	}, nil
}

func collect(seq iter.Seq2[types.Record, error]) ([]types.Record, error) {
	out := []types.Record{}
	for r, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
