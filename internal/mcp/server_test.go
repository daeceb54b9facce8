package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/paradox-mcp/internal/driver"
	"github.com/mesh-intelligence/paradox-mcp/internal/driver/jsonl"
	"github.com/mesh-intelligence/paradox-mcp/internal/driver/sqlite"
	"github.com/mesh-intelligence/paradox-mcp/internal/tools"
	"github.com/mesh-intelligence/paradox-mcp/pkg/types"
)

// testResponse keeps Result raw so each test can decode it as it needs.
type testResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type backend struct {
	name string
	new  func(t *testing.T) (driver.Driver, string)
}

var backends = []backend{
	{"memory", func(t *testing.T) (driver.Driver, string) {
		d, err := jsonl.NewMemory(nil, nil)
		require.NoError(t, err)
		require.NoError(t, d.FS().MkdirAll("/tables", 0o755))
		return d, "/tables"
	}},
	{"sqlite", func(t *testing.T) (driver.Driver, string) {
		d, err := sqlite.New(nil, nil)
		require.NoError(t, err)
		return d, t.TempDir()
	}},
}

func newServer(drv driver.Driver, location string, permit bool) *Server {
	cfg := &types.Config{Location: location, Backend: drv.Name(), PermitEditing: permit}
	return NewServer(tools.New(cfg, drv, nil), nil)
}

// mcpSession feeds lines to the server and returns the decoded responses.
func mcpSession(t *testing.T, s *Server, lines ...string) []testResponse {
	t.Helper()

	var input bytes.Buffer
	for _, line := range lines {
		input.WriteString(line)
		input.WriteByte('\n')
	}

	var output bytes.Buffer
	require.NoError(t, s.Run(context.Background(), &input, &output))

	var responses []testResponse
	scanner := bufio.NewScanner(&output)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineBytes)
	for scanner.Scan() {
		var resp testResponse
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &resp), "raw: %s", scanner.Text())
		assert.Equal(t, "2.0", resp.JSONRPC)
		responses = append(responses, resp)
	}
	return responses
}

func rpc(id int, method, params string) string {
	if params == "" {
		params = "{}"
	}
	data, _ := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  method,
		"params":  json.RawMessage(params),
	})
	return string(data)
}

func toolCall(id int, name, arguments string) string {
	return rpc(id, "tools/call", `{"name":"`+name+`","arguments":`+arguments+`}`)
}

func TestInitializeAndPing(t *testing.T) {
	drv, loc := backends[0].new(t)
	responses := mcpSession(t, newServer(drv, loc, false),
		rpc(1, "initialize", `{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test"}}`),
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		rpc(2, "ping", ""),
	)
	require.Len(t, responses, 2)

	var init initializeResult
	require.NoError(t, json.Unmarshal(responses[0].Result, &init))
	assert.Equal(t, protocolVersion, init.ProtocolVersion)
	assert.Equal(t, "paradox-mcp", init.ServerInfo.Name)
	assert.NotNil(t, init.Capabilities.Tools)

	assert.JSONEq(t, "2", string(responses[1].ID))
	assert.JSONEq(t, "{}", string(responses[1].Result))
}

func TestToolsList(t *testing.T) {
	drv, loc := backends[0].new(t)
	responses := mcpSession(t, newServer(drv, loc, false), rpc(1, "tools/list", ""))
	require.Len(t, responses, 1)

	var list struct {
		Tools []struct {
			Name        string         `json:"name"`
			Description string         `json:"description"`
			InputSchema map[string]any `json:"inputSchema"`
			Annotations map[string]any `json:"annotations"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(responses[0].Result, &list))
	require.Len(t, list.Tools, len(tools.Methods))
	for i, tool := range list.Tools {
		assert.Equal(t, tools.Methods[i], tool.Name)
		assert.NotEmpty(t, tool.Description)
		assert.Equal(t, "object", tool.InputSchema["type"])
		assert.Equal(t, false, tool.InputSchema["additionalProperties"])
	}
	assert.Equal(t, true, list.Tools[0].Annotations["readOnlyHint"])
	assert.Equal(t, false, list.Tools[5].Annotations["readOnlyHint"])
}

func TestDirectInvocation(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			drv, loc := b.new(t)
			responses := mcpSession(t, newServer(drv, loc, true),
				rpc(1, "create_table", `{"table":"T","schema":[{"name":"name","type":"ALPHA","size":20},{"name":"age","type":"SHORT"}]}`),
				rpc(2, "insert_record", `{"table":"T","record":{"name":"Ana","age":30}}`),
				rpc(3, "read_table_data", `{"table":"T"}`),
				rpc(4, "search_table", `{"table":"T","criteria":{"name":{"value":"An","partial":true}}}`),
				rpc(5, "list_tables", ""),
				rpc(6, "read_table_schema", `{"table":"T"}`),
				rpc(7, "read_table_data", `{"table":"missing"}`),
				rpc(8, "read_table_data", `{"table":"../T"}`),
				rpc(9, "drop_table", `{"table":"T"}`),
				rpc(10, "read_table_data", `{"table":"T","limit":-2}`),
			)
			require.Len(t, responses, 10)
			for _, r := range responses[:6] {
				require.Nil(t, r.Error, "id %s: %+v", r.ID, r.Error)
			}

			assert.JSONEq(t, `{"acknowledged":true,"table":"T","message":"Successfully created table 'T' with 2 fields."}`, string(responses[0].Result))
			assert.Equal(t, `[{"name":"Ana","age":30}]`, string(responses[2].Result))
			assert.Equal(t, `[{"name":"Ana","age":30}]`, string(responses[3].Result))
			assert.Equal(t, `["T"]`, string(responses[4].Result))
			assert.Equal(t, `[{"name":"name","type":"ALPHA","size":20},{"name":"age","type":"SHORT","size":2}]`, string(responses[5].Result))

			wantCodes := []int{tools.CodeNotFound, tools.CodeInvalidName, tools.CodeMethodNotFound, tools.CodeInvalidParams}
			wantKinds := []string{"NotFound", "InvalidName", "MethodNotFound", "InvalidParams"}
			for i, r := range responses[6:] {
				require.NotNil(t, r.Error, "id %s", r.ID)
				assert.Nil(t, r.Result)
				assert.Equal(t, wantCodes[i], r.Error.Code, "id %s", r.ID)
				require.NotNil(t, r.Error.Data)
				assert.Equal(t, wantKinds[i], r.Error.Data.Kind)
			}
		})
	}
}

func TestToolsCall(t *testing.T) {
	drv, loc := backends[0].new(t)
	responses := mcpSession(t, newServer(drv, loc, true),
		toolCall(1, "create_table", `{"table_name":"people","fields":[{"name":"name","type":"ALPHA","length":10}]}`),
		toolCall(2, "insert_record", `{"table":"people","record":{"name":"Ana"}}`),
		toolCall(3, "read_table_data", `{"table":"people"}`),
		toolCall(4, "insert_record", `{"table":"people","record":{"name":"a name longer than ten"}}`),
		toolCall(5, "no_such_tool", `{}`),
		toolCall(6, "get_server_status", `{}`),
	)
	require.Len(t, responses, 6)

	var read toolsCallResult
	require.NoError(t, json.Unmarshal(responses[2].Result, &read))
	assert.False(t, read.IsError)
	require.Len(t, read.Content, 1)
	assert.Equal(t, "text", read.Content[0].Type)
	assert.Equal(t, `[{"name":"Ana"}]`, read.Content[0].Text)
	structured, err := json.Marshal(read.StructuredContent)
	require.NoError(t, err)
	assert.JSONEq(t, `{"records":[{"name":"Ana"}]}`, string(structured))

	var failed toolsCallResult
	require.NoError(t, json.Unmarshal(responses[3].Result, &failed))
	assert.True(t, failed.IsError)
	require.NotNil(t, failed.ErrorInfo)
	assert.Equal(t, tools.CodeTypeMismatch, failed.ErrorInfo.Code)
	assert.Equal(t, "TypeMismatch", failed.ErrorInfo.Kind)
	assert.Nil(t, failed.StructuredContent)

	require.NotNil(t, responses[4].Error)
	assert.Equal(t, tools.CodeMethodNotFound, responses[4].Error.Code)

	var status toolsCallResult
	require.NoError(t, json.Unmarshal(responses[5].Result, &status))
	assert.JSONEq(t, `{"location":"/tables","editingPermitted":true,"backend":"memory","version":"0.1.0"}`, status.Content[0].Text)
}

func TestMalformedLinesDoNotEndSession(t *testing.T) {
	drv, loc := backends[0].new(t)
	responses := mcpSession(t, newServer(drv, loc, false),
		`{not json`,
		`{"jsonrpc":"2.0","id":7,"method":5}`,
		`{"jsonrpc":"2.0","id":8}`,
		`{"jsonrpc":"1.0","id":9,"method":"ping"}`,
		``,
		`{"jsonrpc":"2.0","method":"list_tables"}`,
		rpc(10, "ping", ""),
	)
	require.Len(t, responses, 5)

	assert.Equal(t, "null", string(responses[0].ID))
	assert.Equal(t, tools.CodeParseError, responses[0].Error.Code)

	assert.Equal(t, "7", string(responses[1].ID))
	assert.Equal(t, tools.CodeParseError, responses[1].Error.Code)

	assert.Equal(t, "8", string(responses[2].ID))
	assert.Equal(t, tools.CodeParseError, responses[2].Error.Code)

	assert.Equal(t, "9", string(responses[3].ID))
	assert.Equal(t, tools.CodeInvalidRequest, responses[3].Error.Code)

	assert.Equal(t, "10", string(responses[4].ID))
	assert.Nil(t, responses[4].Error)
}

func TestOversizedLineDoesNotEndSession(t *testing.T) {
	drv, loc := backends[0].new(t)
	huge := `{"jsonrpc":"2.0","id":1,"method":"ping","params":{"pad":"` +
		strings.Repeat("x", MaxLineBytes) + `"}}`
	responses := mcpSession(t, newServer(drv, loc, false),
		huge,
		rpc(2, "list_tables", ""),
		strings.Repeat("y", MaxLineBytes+10),
		rpc(3, "ping", ""),
	)
	require.Len(t, responses, 4)

	for _, i := range []int{0, 2} {
		require.NotNil(t, responses[i].Error)
		assert.Equal(t, tools.CodeParseError, responses[i].Error.Code)
		assert.Equal(t, "null", string(responses[i].ID))
	}
	assert.Equal(t, "2", string(responses[1].ID))
	assert.Equal(t, `[]`, string(responses[1].Result))
	assert.Equal(t, "3", string(responses[3].ID))
	assert.Nil(t, responses[3].Error)
}

func TestLineAtLimitIsAccepted(t *testing.T) {
	drv, loc := backends[0].new(t)
	prefix := `{"jsonrpc":"2.0","id":1,"method":"ping","params":{"pad":"`
	suffix := `"}}`
	line := prefix + strings.Repeat("x", MaxLineBytes-len(prefix)-len(suffix)) + suffix
	require.Len(t, line, MaxLineBytes)

	responses := mcpSession(t, newServer(drv, loc, false), line)
	require.Len(t, responses, 1)
	assert.Nil(t, responses[0].Error)
	assert.Equal(t, "1", string(responses[0].ID))
}

func TestNotificationsRunWithoutReply(t *testing.T) {
	drv, loc := backends[0].new(t)
	responses := mcpSession(t, newServer(drv, loc, true),
		`{"jsonrpc":"2.0","method":"create_table","params":{"table":"quiet","schema":[{"name":"n","type":"LONG"}]}}`,
		`{"jsonrpc":"2.0","method":"tools/call","params":{"name":"insert_record","arguments":{"table":"quiet","record":{"n":1}}}}`,
		`{"jsonrpc":"2.0","method":"insert_record","params":{"table":"ghost","record":{}}}`,
		`{"jsonrpc":"2.0","method":"notifications/cancelled","params":{"requestId":1}}`,
		rpc(1, "read_table_data", `{"table":"quiet"}`),
	)
	require.Len(t, responses, 1)
	assert.Equal(t, "1", string(responses[0].ID))
	assert.Equal(t, `[{"n":1}]`, string(responses[0].Result))
}

func TestTableNamesWithURICharacters(t *testing.T) {
	dir := t.TempDir()
	drv, err := sqlite.New(nil, nil)
	require.NoError(t, err)

	responses := mcpSession(t, newServer(drv, dir, true),
		rpc(1, "create_table", `{"table":"cust","schema":[{"name":"n","type":"LONG"}]}`),
		rpc(2, "create_table", `{"table":"a?b","schema":[{"name":"n","type":"LONG"}]}`),
		rpc(3, "create_table", `{"table":"cust.db?z","schema":[{"name":"s","type":"SHORT"}]}`),
		rpc(4, "insert_record", `{"table":"a?b","record":{"n":5}}`),
		rpc(5, "read_table_schema", `{"table":"a?b"}`),
		rpc(6, "read_table_data", `{"table":"a?b"}`),
		rpc(7, "read_table_schema", `{"table":"cust"}`),
		rpc(8, "list_tables", ""),
	)
	require.Len(t, responses, 8)
	for _, r := range responses {
		require.Nil(t, r.Error, "id %s", r.ID)
	}
	assert.JSONEq(t, `[{"name":"n","type":"LONG","size":4}]`, string(responses[4].Result))
	assert.Equal(t, `[{"n":5}]`, string(responses[5].Result))
	assert.JSONEq(t, `[{"name":"n","type":"LONG","size":4}]`, string(responses[6].Result))
	assert.JSONEq(t, `["a?b","cust","cust.db?z"]`, string(responses[7].Result))

	assert.FileExists(t, filepath.Join(dir, "a?b.db"))
	assert.FileExists(t, filepath.Join(dir, "cust.db?z.db"))
	assert.NoFileExists(t, filepath.Join(dir, "a"))
}

func TestWritesDeniedWithoutEditing(t *testing.T) {
	dir := t.TempDir()
	drv, err := sqlite.New(nil, nil)
	require.NoError(t, err)

	mcpSession(t, newServer(drv, dir, true),
		rpc(1, "create_table", `{"table":"people","schema":[{"name":"name","type":"ALPHA","size":20}]}`),
		rpc(2, "insert_record", `{"table":"people","record":{"name":"Ana"}}`),
	)
	path := filepath.Join(dir, "people.db")
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	responses := mcpSession(t, newServer(drv, dir, false),
		rpc(1, "insert_record", `{"table":"people","record":{"name":"Bo"}}`),
		rpc(2, "update_record", `{"table":"people","index":0,"record":{"name":"Bo"}}`),
		rpc(3, "create_table", `{"table":"other","schema":[{"name":"a","type":"LONG"}]}`),
		toolCall(4, "insert_record", `{"table":"people","record":{"name":"Bo"}}`),
		rpc(5, "read_table_data", `{"table":"people"}`),
	)
	require.Len(t, responses, 5)
	for _, r := range responses[:3] {
		require.NotNil(t, r.Error)
		assert.Equal(t, tools.CodePermissionDenied, r.Error.Code)
		assert.True(t, strings.Contains(r.Error.Message, "--permit-editing"))
	}
	var denied toolsCallResult
	require.NoError(t, json.Unmarshal(responses[3].Result, &denied))
	assert.True(t, denied.IsError)
	assert.Equal(t, "PermissionDenied", denied.ErrorInfo.Kind)
	assert.Equal(t, `[{"name":"Ana"}]`, string(responses[4].Result))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.NoFileExists(t, filepath.Join(dir, "other.db"))
}

func TestCancelledContextStopsSession(t *testing.T) {
	drv, loc := backends[0].new(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var output bytes.Buffer
	err := newServer(drv, loc, false).Run(ctx, strings.NewReader(rpc(1, "ping", "")+"\n"), &output)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, output.Len())
}
