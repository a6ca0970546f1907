// Package driver holds what the vendor reader drivers share: the structured
// error type and the ISO 15693 block helpers. Each reader family lives in
// its own sub-package.
package driver

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode classifies driver failures for programmatic handling.
type ErrorCode int

const (
	// Transport errors (100-199)
	ErrCodeNotFound ErrorCode = iota + 100
	ErrCodeOpenFailed
	ErrCodeNotConnected
	ErrCodeTimeout
	ErrCodeUnsupported

	// Tag errors (200-299)
	ErrCodeNoTag ErrorCode = iota + 195
	ErrCodeReadFailed
	ErrCodeWriteFailed
	ErrCodeProtocol
)

// Error provides structured error information for driver operations.
type Error struct {
	Code    ErrorCode
	Op      string // Operation that failed (e.g., "Inventory", "ReadBlocks")
	Message string
	Cause   error
}

func (e *Error) Error() string {
	var sb strings.Builder
	if e.Op != "" {
		sb.WriteString(e.Op)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Message)
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches on the error code only.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// Sentinels for errors.Is checks.
var (
	ErrNotFound     = &Error{Code: ErrCodeNotFound, Message: "reader not found"}
	ErrNotConnected = &Error{Code: ErrCodeNotConnected, Message: "reader not connected"}
	ErrTimeout      = &Error{Code: ErrCodeTimeout, Message: "reader timed out"}
	ErrUnsupported  = &Error{Code: ErrCodeUnsupported, Message: "not supported on this platform"}
	ErrNoTag        = &Error{Code: ErrCodeNoTag, Message: "no tag in range"}
)

// NewOpenError creates an error for a reader that could not be opened.
func NewOpenError(op string, cause error) *Error {
	return &Error{Code: ErrCodeOpenFailed, Op: op, Message: "open failed", Cause: cause}
}

// NewReadError creates an error for tag read failures.
func NewReadError(op string, cause error) *Error {
	return &Error{Code: ErrCodeReadFailed, Op: op, Message: "read failed", Cause: cause}
}

// NewWriteError creates an error for tag write failures.
func NewWriteError(op string, cause error) *Error {
	return &Error{Code: ErrCodeWriteFailed, Op: op, Message: "write failed", Cause: cause}
}

// Errorf creates an Error with a formatted message.
func Errorf(code ErrorCode, op, format string, args ...interface{}) *Error {
	return &Error{Code: code, Op: op, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the ErrorCode from err, or 0 if it is not an *Error.
func CodeOf(err error) ErrorCode {
	var drvErr *Error
	if errors.As(err, &drvErr) {
		return drvErr.Code
	}
	return 0
}

// IsNoTag reports whether err means no tag answered.
func IsNoTag(err error) bool {
	return CodeOf(err) == ErrCodeNoTag
}
