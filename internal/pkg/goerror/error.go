// Package goerror carries the user-facing message, category and HTTP mapping
// of failures from usecases up to the transport layer.
package goerror

import (
	"errors"
	"net/http"
)

// Type is the broad category of an Error.
type Type int

const (
	TypeServer Type = iota
	TypeBusiness
	TypeValidation
)

func (t Type) String() string {
	switch t {
	case TypeServer:
		return "server"
	case TypeBusiness:
		return "business"
	case TypeValidation:
		return "validation"
	}
	return "unknown"
}

// Code selects the HTTP status of an Error.
type Code int

const (
	CodeInternal Code = iota
	CodeInvalidFormat
	CodeInvalidInput
	CodeNotFound
	CodeConflict
	CodeTooManyRequest
	CodeUnauthorized
	CodeForbidden
	CodeTimeout
)

var statusByCode = [...]int{
	CodeInternal:       http.StatusInternalServerError,
	CodeInvalidFormat:  http.StatusBadRequest,
	CodeInvalidInput:   http.StatusUnprocessableEntity,
	CodeNotFound:       http.StatusNotFound,
	CodeConflict:       http.StatusConflict,
	CodeTooManyRequest: http.StatusTooManyRequests,
	CodeUnauthorized:   http.StatusUnauthorized,
	CodeForbidden:      http.StatusForbidden,
	CodeTimeout:        http.StatusGatewayTimeout,
}

// Status returns the HTTP status for c, 500 for unknown codes.
func (c Code) Status() int {
	if c < 0 || int(c) >= len(statusByCode) {
		return http.StatusInternalServerError
	}
	return statusByCode[c]
}

func (c Code) String() string { return http.StatusText(c.Status()) }

// Error pairs a message that is safe to show a caller with an optional cause
// that is only ever logged.
type Error struct {
	cause  error
	msg    string
	kind   Type
	code   Code
	fields map[string]string
}

// Error returns the cause when there is one, so logs keep the root failure.
func (e *Error) Error() string {
	switch {
	case e.cause != nil:
		return e.cause.Error()
	case e.msg != "":
		return e.msg
	}
	return e.kind.String() + " error"
}

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Msg() string { return e.msg }
func (e *Error) Type() Type { return e.kind }
func (e *Error) Code() Code { return e.code }
func (e *Error) Fields() map[string]string { return e.fields }
func (e *Error) StatusCode() int { return e.code.Status() }

// Message returns the caller-facing message of err, or fallback when err
// is not an *Error or has none.
func Message(err error, fallback string) string {
	var gerr *Error
	if errors.As(err, &gerr) && gerr.msg != "" {
		return gerr.msg
	}
	return fallback
}

// NewServer hides err behind "Internal server error".
func NewServer(err error) error {
	return &Error{cause: err, msg: "Internal server error", kind: TypeServer, code: CodeInternal}
}

func NewServerWithMessage(err error, msg string) error {
	return &Error{cause: err, msg: msg, kind: TypeServer, code: CodeInternal}
}

func NewBusiness(msg string, code Code) error {
	return &Error{msg: msg, kind: TypeBusiness, code: code}
}

// NewInvalidInput wraps a validator error, or, when err is nil, builds the
// field map from kv read as field/message pairs. An odd kv is treated as a
// malformed request.
func NewInvalidInput(err error, kv ...string) error {
	if err != nil {
		return &Error{cause: err, msg: "Validation error", kind: TypeValidation, code: CodeInvalidInput}
	}
	if len(kv)%2 != 0 {
		return NewInvalidFormat()
	}

	fields := make(map[string]string, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		fields[kv[i]] = kv[i+1]
	}
	return &Error{msg: "Validation error", kind: TypeValidation, code: CodeInvalidInput, fields: fields}
}

// NewInvalidFormat reports an unparsable or structurally incomplete request.
// The first msg, if any, replaces the default "Invalid request body".
func NewInvalidFormat(msgs ...string) error {
	msg := "Invalid request body"
	if len(msgs) > 0 {
		msg = msgs[0]
	}
	return &Error{msg: msg, kind: TypeValidation, code: CodeInvalidFormat}
}
