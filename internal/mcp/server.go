// Package mcp serves the tool registry over newline-delimited JSON-RPC 2.0.
// Tools can be invoked directly by method name or through the MCP
// tools/list and tools/call methods.
package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/paradox-mcp/internal/tools"
	"github.com/mesh-intelligence/paradox-mcp/pkg/pxmcp"
	"github.com/mesh-intelligence/paradox-mcp/pkg/types"
)

// MaxLineBytes bounds a single request line. Longer lines are answered
// with a parse error.
const MaxLineBytes = 4 * 1024 * 1024

const instructions = "Tools read and search the tables in one directory. " +
	"create_table, insert_record and update_record work only when the server was started with --permit-editing."

// Server answers requests one at a time.
type Server struct {
	dispatcher *tools.Dispatcher
	logger     *slog.Logger
}

// NewServer returns a server over d. A nil logger discards output.
func NewServer(d *tools.Dispatcher, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{dispatcher: d, logger: logger}
}

// Run reads one request per line from input and writes one response per
// line to output until input reaches EOF or ctx is cancelled. Each request
// is handled to completion before the next line is read. Malformed lines
// are answered with an error and do not end the session.
func (s *Server) Run(ctx context.Context, input io.Reader, output io.Writer) error {
	session := uuid.Must(uuid.NewV7())
	logger := s.logger.With("session", session.String())
	logger.Info("session started")
	defer logger.Info("session ended")

	lines := newLineReader(input)
	encoder := json.NewEncoder(output)

	for {
		line, tooLong, err := lines.next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if tooLong {
			logger.Warn("request line too long", "limit", MaxLineBytes)
			msg := fmt.Sprintf("parse error: request line exceeds %d bytes", MaxLineBytes)
			if err := writeError(encoder, json.RawMessage("null"), tools.CodeParseError, msg, ""); err != nil {
				return fmt.Errorf("writing parse error response: %w", err)
			}
			continue
		}
		if len(line) == 0 {
			continue
		}

		var req request
		if err := json.Unmarshal(line, &req); err != nil {
			logger.Warn("unparsable request", "error", err)
			if err := writeError(encoder, recoverID(line), tools.CodeParseError, "parse error: "+err.Error(), ""); err != nil {
				return fmt.Errorf("writing parse error response: %w", err)
			}
			continue
		}
		if req.Method == "" {
			id := req.ID
			if len(id) == 0 {
				id = json.RawMessage("null")
			}
			if err := writeError(encoder, id, tools.CodeParseError, "parse error: request has no method", ""); err != nil {
				return fmt.Errorf("writing parse error response: %w", err)
			}
			continue
		}
		if req.JSONRPC != "2.0" {
			if !req.isNotification() {
				if err := writeError(encoder, req.ID, tools.CodeInvalidRequest, "unsupported JSON-RPC version", ""); err != nil {
					return fmt.Errorf("writing version error response: %w", err)
				}
			}
			continue
		}
		if req.isNotification() {
			s.notify(ctx, logger, &req)
			continue
		}

		start := time.Now()
		if err := s.dispatch(ctx, logger, encoder, &req); err != nil {
			return err
		}
		logger.Debug("request handled", "method", req.Method, "id", string(req.ID), "duration", time.Since(start))
	}
}

// lineReader splits input into request lines. A line longer than
// MaxLineBytes is read to its end and reported as too long so the session
// can answer it and carry on.
type lineReader struct {
	r   *bufio.Reader
	buf []byte
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{r: bufio.NewReaderSize(r, 64*1024)}
}

// next returns the next line without its terminator, or io.EOF once the
// input is exhausted. The returned slice is valid until the following call.
func (l *lineReader) next() (line []byte, tooLong bool, err error) {
	l.buf = l.buf[:0]
	read := false
	for {
		chunk, err := l.r.ReadSlice('\n')
		if len(chunk) > 0 {
			read = true
		}
		if !tooLong {
			if len(l.buf)+len(chunk) > MaxLineBytes+1 {
				tooLong = true
				l.buf = l.buf[:0]
			} else {
				l.buf = append(l.buf, chunk...)
			}
		}
		switch {
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case err == nil:
		case errors.Is(err, io.EOF) && read:
		default:
			return nil, false, err
		}
		line = bytes.TrimSuffix(l.buf, []byte("\n"))
		return bytes.TrimSuffix(line, []byte("\r")), tooLong, nil
	}
}

// notify runs a tool named by a notification and discards its outcome.
// Protocol notifications such as notifications/initialized need no action.
func (s *Server) notify(ctx context.Context, logger *slog.Logger, req *request) {
	method, params := req.Method, req.Params
	if method == "tools/call" {
		var p toolsCallParams
		if err := json.Unmarshal(params, &p); err != nil {
			logger.Debug("unparsable tools/call notification", "error", err)
			return
		}
		method, params = p.Name, p.Arguments
	}
	if _, ok := tools.Lookup(method); !ok {
		logger.Debug("notification", "method", req.Method)
		return
	}
	if _, err := s.dispatcher.Call(ctx, method, params); err != nil {
		s.failure(logger, method, err)
		return
	}
	logger.Debug("notification handled", "method", method)
}

// recoverID returns the id of a request that failed to decode as a whole,
// or null when the line is not a JSON object with an id.
func recoverID(line []byte) json.RawMessage {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(line, &probe); err == nil {
		if id, ok := probe["id"]; ok && len(id) > 0 {
			return id
		}
	}
	return json.RawMessage("null")
}

func (s *Server) dispatch(ctx context.Context, logger *slog.Logger, encoder *json.Encoder, req *request) error {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(logger, encoder, req)
	case "ping":
		return writeResult(encoder, req.ID, map[string]any{})
	case "tools/list":
		return s.handleToolsList(encoder, req)
	case "tools/call":
		return s.handleToolsCall(ctx, logger, encoder, req)
	}

	result, err := s.dispatcher.Call(ctx, req.Method, req.Params)
	if err != nil {
		f := s.failure(logger, req.Method, err)
		return writeError(encoder, req.ID, f.Code, f.Message, f.Kind)
	}
	return writeResult(encoder, req.ID, result)
}

func (s *Server) handleInitialize(logger *slog.Logger, encoder *json.Encoder, req *request) error {
	var params initializeParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return writeError(encoder, req.ID, tools.CodeInvalidParams, "invalid initialize params: "+err.Error(), "InvalidParams")
		}
	}
	logger.Info("client initialized", "client", params.ClientInfo.Name, "client_version", params.ClientInfo.Version,
		"protocol", params.ProtocolVersion)
	return writeResult(encoder, req.ID, initializeResult{
		ProtocolVersion: protocolVersion,
		Capabilities:    serverCapabilities{Tools: &toolCapability{}},
		ServerInfo:      serverInfo{Name: pxmcp.Name, Version: pxmcp.Version},
		Instructions:    instructions,
	})
}

func (s *Server) handleToolsList(encoder *json.Encoder, req *request) error {
	all := tools.All()
	descriptions := make([]toolDescription, 0, len(all))
	for _, t := range all {
		descriptions = append(descriptions, toolDescription{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema(),
			Annotations: t.Annotations(),
		})
	}
	return writeResult(encoder, req.ID, toolsListResult{Tools: descriptions})
}

func (s *Server) handleToolsCall(ctx context.Context, logger *slog.Logger, encoder *json.Encoder, req *request) error {
	if len(req.Params) == 0 {
		return writeError(encoder, req.ID, tools.CodeInvalidParams, "params required for tools/call", "InvalidParams")
	}
	var params toolsCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return writeError(encoder, req.ID, tools.CodeInvalidParams, "invalid tools/call params: "+err.Error(), "InvalidParams")
	}
	if _, ok := tools.Lookup(params.Name); !ok {
		return writeError(encoder, req.ID, tools.CodeMethodNotFound, "unknown tool: "+params.Name, "MethodNotFound")
	}

	result, err := s.dispatcher.Call(ctx, params.Name, params.Arguments)
	if err != nil {
		f := s.failure(logger, params.Name, err)
		return writeResult(encoder, req.ID, toolsCallResult{
			Content:   []contentBlock{{Type: "text", Text: f.Message}},
			IsError:   true,
			ErrorInfo: &errorInfo{Code: f.Code, Kind: f.Kind},
		})
	}

	text, err := json.Marshal(result)
	if err != nil {
		f := s.failure(logger, params.Name, err)
		return writeResult(encoder, req.ID, toolsCallResult{
			Content:   []contentBlock{{Type: "text", Text: f.Message}},
			IsError:   true,
			ErrorInfo: &errorInfo{Code: f.Code, Kind: f.Kind},
		})
	}
	return writeResult(encoder, req.ID, toolsCallResult{
		Content:           []contentBlock{{Type: "text", Text: string(text)}},
		StructuredContent: structured(params.Name, result),
	})
}

// structured returns result in the object form structuredContent requires.
func structured(method string, result any) any {
	switch method {
	case tools.MethodListTables:
		return map[string]any{"tables": result}
	case tools.MethodReadTableSchema:
		return map[string]any{"fields": result}
	case tools.MethodReadTableData, tools.MethodSearchTable:
		return map[string]any{"records": result}
	}
	return result
}

// failure classifies err and logs it. Internal errors are logged with their
// detail, which never reaches the client.
func (s *Server) failure(logger *slog.Logger, method string, err error) tools.Failure {
	f := tools.Classify(err)
	switch {
	case f.Code == tools.CodeInternalError && !errors.Is(err, context.Canceled):
		logger.Error("tool failed", "method", method, "error", err)
	case errors.Is(err, types.ErrPermissionDenied):
		logger.Warn("tool refused", "method", method, "kind", f.Kind)
	default:
		logger.Debug("tool failed", "method", method, "kind", f.Kind, "error", err)
	}
	return f
}

func writeResult(encoder *json.Encoder, id json.RawMessage, result any) error {
	return encoder.Encode(response{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	})
}

func writeError(encoder *json.Encoder, id json.RawMessage, code int, message, kind string) error {
	e := &rpcError{Code: code, Message: message}
	if kind != "" {
		e.Data = &errorData{Kind: kind}
	}
	return encoder.Encode(response{
		JSONRPC: "2.0",
		ID:      id,
		Error:   e,
	})
}
