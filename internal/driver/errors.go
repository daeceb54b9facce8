package driver

import (
	"errors"
	"fmt"
)

// Code classifies a native failure. Codes never leave the adapter; it
// translates them into the tool-level error values.
type Code int

// Native error codes.
const (
	CodeIO Code = iota + 1
	CodeNoFile
	CodeExists
	CodeBadHeader
	CodeBadRecord
	CodeRange
	CodeArity
)

var codeNames = map[Code]string{
	CodeIO:        "io",
	CodeNoFile:    "no such file",
	CodeExists:    "file exists",
	CodeBadHeader: "bad header",
	CodeBadRecord: "bad record",
	CodeRange:     "index out of range",
	CodeArity:     "wrong value count",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("code(%d)", int(c))
}

// Error is a native driver failure.
type Error struct {
	Op   string
	Code Code
	Path string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Op + " " + e.Path + ": " + e.Code.String()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf builds an *Error with a formatted cause.
func Errorf(op string, code Code, path, format string, args ...any) *Error {
	return &Error{Op: op, Code: code, Path: path, Err: fmt.Errorf(format, args...)}
}

// Wrap builds an *Error around err. A nil err yields nil.
func Wrap(op string, code Code, path string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Code: code, Path: path, Err: err}
}

// CodeOf returns the code of the first *Error in err's chain, or CodeIO when
// err carries none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeIO
}
