// Package domainerrors carries coded errors across layers.
//
// Services return *Error values so transports can map them to status codes
// without string matching. Stores return sentinel errors (pkg/platform/sentinel)
// which services translate into a Code at the boundary.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies an error kind. Codes are stable and safe to expose to clients.
type Code string

const (
	// Thrift ledger kinds.
	CodeInvalidConfiguration Code = "invalid_configuration"
	CodeAssetMismatch        Code = "asset_mismatch"
	CodeUnauthorized         Code = "unauthorized"
	CodeInvalidState         Code = "invalid_state"
	CodeArithmeticOverflow   Code = "arithmetic_overflow"
	CodeInsufficientFunds    Code = "insufficient_funds"

	// General kinds.
	CodeBadRequest Code = "bad_request"
	CodeNotFound   Code = "not_found"
	CodeConflict   Code = "conflict"
	CodeTimeout    Code = "timeout"
	CodeInternal   Code = "internal_error"
)

// Error is a coded error with an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// CodeOf returns the outermost code in the chain, or CodeInternal when the
// error carries none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether the outermost coded error in the chain has code.
func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// Is is an alias of HasCode kept for call sites that read better with it.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}
