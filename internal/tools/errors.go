package tools

import (
	"errors"

	"github.com/mesh-intelligence/paradox-mcp/pkg/types"
)

// JSON-RPC error codes.
const (
	CodeParseError       = -32700
	CodeInvalidRequest   = -32600
	CodeMethodNotFound   = -32601
	CodeInvalidParams    = -32602
	CodeInternalError    = -32603
	CodeNotFound         = -32001
	CodeInvalidName      = -32002
	CodeTypeMismatch     = -32003
	CodeOutOfRange       = -32004
	CodeAlreadyExists    = -32005
	CodePermissionDenied = -32006
	CodeCorruptFile      = -32007
	CodeConflict         = -32008
)

// internalMessage replaces the text of every unclassified error.
const internalMessage = "internal error"

var classes = []struct {
	err  error
	code int
	kind string
}{
	{types.ErrMethodNotFound, CodeMethodNotFound, "MethodNotFound"},
	{types.ErrPermissionDenied, CodePermissionDenied, "PermissionDenied"},
	{types.ErrInvalidName, CodeInvalidName, "InvalidName"},
	{types.ErrNotFound, CodeNotFound, "NotFound"},
	{types.ErrAlreadyExists, CodeAlreadyExists, "AlreadyExists"},
	{types.ErrOutOfRange, CodeOutOfRange, "OutOfRange"},
	{types.ErrConflict, CodeConflict, "Conflict"},
	{types.ErrCorruptFile, CodeCorruptFile, "CorruptFile"},
	{types.ErrTypeMismatch, CodeTypeMismatch, "TypeMismatch"},
	{types.ErrInvalidParams, CodeInvalidParams, "InvalidParams"},
}

// Failure is the wire form of an error returned by a tool.
type Failure struct {
	Code    int
	Kind    string
	Message string
}

// Classify maps err onto its JSON-RPC code and error kind. Errors outside
// the taxonomy become internal errors and their text is replaced.
func Classify(err error) Failure {
	for _, c := range classes {
		if errors.Is(err, c.err) {
			return Failure{Code: c.code, Kind: c.kind, Message: err.Error()}
		}
	}
	return Failure{Code: CodeInternalError, Kind: "Internal", Message: internalMessage}
}
