// Package errors provides structured error types for clustermap.
//
// The layout, viewport and search engines never fail on data anomalies; they
// degrade instead. Errors from this package come from the edges of the
// system: reading datasets, talking to state stores, parsing configuration
// and serving HTTP requests.
//
// # Error Codes
//
//   - INVALID_*: input, dataset or configuration validation failures
//   - NOT_FOUND / FILE_NOT_FOUND: missing resources
//   - STORE_UNAVAILABLE: the state store could not be reached
//   - INTERNAL_ERROR / UNSUPPORTED: everything else
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidDataset, "duplicate cluster id %q", id)
//	if errors.Is(err, errors.ErrCodeInvalidDataset) {
//	    // reject the dataset, keep the previous one
//	}
//
//	err := errors.Wrap(errors.ErrCodeStoreUnavailable, origErr, "get %s", key)
package errors

import (
	"errors"
	"fmt"
)

// Code is the machine-readable part of an Error. Servers map it to a
// status, the CLI prints it in front of the message.
type Code string

const (
	ErrCodeInvalidInput   Code = "INVALID_INPUT"
	ErrCodeInvalidConfig  Code = "INVALID_CONFIG"
	ErrCodeInvalidDataset Code = "INVALID_DATASET"
	ErrCodeInvalidID      Code = "INVALID_ID"
	ErrCodeInvalidPath    Code = "INVALID_PATH"

	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	ErrCodeStoreUnavailable Code = "STORE_UNAVAILABLE"

	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error carries a Code, a message and an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	msg := string(e.Code) + ": " + e.Message
	if e.Cause == nil {
		return msg
	}
	return msg + ": " + e.Cause.Error()
}

func (e *Error) Unwrap() error { return e.Cause }

// New returns an Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return Wrap(code, nil, format, args...)
}

// Wrap returns an Error with a formatted message around cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Is reports whether the first *Error in err's chain has code.
func Is(err error, code Code) bool {
	return GetCode(err) == code && code != ""
}

// GetCode returns the code of the first *Error in err's chain, or "".
func GetCode(err error) Code {
	if e, ok := asError(err); ok {
		return e.Code
	}
	return ""
}

// UserMessage returns the message without the code prefix, or err.Error()
// for foreign errors.
func UserMessage(err error) string {
	if e, ok := asError(err); ok {
		return e.Message
	}
	return err.Error()
}

func asError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
