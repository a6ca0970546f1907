package server

import "errors"

var (
	// ErrDeviceOffline is returned when a registered reader cannot be
	// connected.
	ErrDeviceOffline = errors.New("device is not connected")

	// ErrWriteRejected is returned when the desktop user declines a write.
	ErrWriteRejected = errors.New("write rejected")
)

// WebSocket error codes carried in the payload of error responses.
const (
	ErrCodeParse       = "PARSE_ERROR"
	ErrCodeUnknownType = "UNKNOWN_TYPE"
	ErrCodeBadRequest  = "BAD_REQUEST"
	ErrCodeNotFound    = "NOT_FOUND"
	ErrCodeOffline     = "OFFLINE"
	ErrCodeRejected    = "REJECTED"
)
