// Package device exposes heterogeneous library RFID readers through one
// interface and serialises access to each physical reader.
package device

import "github.com/dotside-studios/rfid-sfl/rfid"

// Capabilities describes what a reader model can do. The values are fixed
// per model and never change at runtime.
type Capabilities struct {
	MultiTag     bool `json:"multiTag"`
	CompoundData bool `json:"compoundData"`
	ReadOnly     bool `json:"readOnly"`
}

// Device is one physical reader.
//
// Implementations are not safe for concurrent use; callers go through the
// Registry, whose Entry guard serialises every Connect plus operation.
type Device interface {
	// Connect opens the reader, or probes an open session and reopens it
	// when the probe fails. Failure is only visible through IsConnected.
	Connect()
	IsConnected() bool
	Capabilities() Capabilities

	// Items returns the records of the tags in range. It never fails:
	// a disconnected reader or an empty field yields an empty slice, and
	// tags with undecodable text are left out.
	Items() []*rfid.Item

	// WriteTags writes each record and returns one result per record, in
	// input order.
	WriteTags(items []*rfid.Item) []WriteResult
}

// WriteErrorType is the error type of every failed write.
const WriteErrorType = "Write Error"

// Write failure messages, as shown by circulation clients.
const (
	MsgSingleTagOnly = "Reader can write only one tag at a time"
	MsgReadOnly      = "Reader is read-only"
	MsgNotConnected  = "Couldn't connect to the reader"
	MsgWriteFailed   = "Error during writing a card. Probably there's no cards nearby."
)

// WriteError describes why a single record was not written.
type WriteError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// WriteResult is the outcome for one record. ID is the record's card id in
// upper-case hex.
type WriteResult struct {
	ID      string      `json:"id"`
	Success bool        `json:"success"`
	Error   *WriteError `json:"error"`
}

func succeeded(item *rfid.Item) WriteResult {
	return WriteResult{ID: item.CardIDString(), Success: true}
}

func failed(item *rfid.Item, msg string) WriteResult {
	return WriteResult{
		ID:    item.CardIDString(),
		Error: &WriteError{Type: WriteErrorType, Message: msg},
	}
}

func failAll(items []*rfid.Item, msg string) []WriteResult {
	results := make([]WriteResult, len(items))
	for i, item := range items {
		results[i] = failed(item, msg)
	}
	return results
}

// Logger is the logging interface used by readers.
// *slog.Logger and *logging.Logger satisfy it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
