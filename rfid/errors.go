package rfid

import "errors"

// Validation errors returned by the Item setters. The item is left unchanged
// when a setter fails.
var (
	ErrUsageTypeRange       = errors.New("rfid: usage type out of range (0-15)")
	ErrStandardVersionRange = errors.New("rfid: standard version out of range (0-15)")
	ErrItemIDTooLong        = errors.New("rfid: item id longer than 16 bytes")
	ErrCountryTooLong       = errors.New("rfid: country longer than 2 bytes")
	ErrLibraryIDTooLong     = errors.New("rfid: library id longer than 11 bytes")
	ErrInvalidCardID        = errors.New("rfid: card id is not a hex string")
	ErrNonASCII             = errors.New("rfid: text field is not ASCII")
)

// Decode errors.
var (
	// ErrFrameTooShort is returned for frames shorter than MinFrameLen.
	ErrFrameTooShort = errors.New("rfid: frame too short")

	// ErrInvalidText is returned when a text field of a frame with a valid
	// checksum is not valid UTF-8. The record is discarded.
	ErrInvalidText = errors.New("rfid: invalid text field")
)
