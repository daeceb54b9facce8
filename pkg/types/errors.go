package types

import "errors"

// Tool-level errors. Components wrap these with context using %w; the tool
// dispatcher classifies them with errors.Is and renders a stable JSON-RPC
// code for each.
var (
	ErrInvalidParams    = errors.New("invalid params")
	ErrMethodNotFound   = errors.New("method not found")
	ErrNotFound         = errors.New("table not found")
	ErrInvalidName      = errors.New("invalid table name")
	ErrTypeMismatch     = errors.New("type mismatch")
	ErrOutOfRange       = errors.New("record index out of range")
	ErrAlreadyExists    = errors.New("table already exists")
	ErrPermissionDenied = errors.New("editing is not permitted on this server")
	ErrCorruptFile      = errors.New("corrupt table file")
	ErrConflict         = errors.New("record changed since it was read")
)

// Schema definition errors.
var (
	ErrUnknownFieldType = errors.New("unknown field type")
	ErrDuplicateField   = errors.New("duplicate field name")
	ErrEmptySchema      = errors.New("schema must define at least one field")
)
