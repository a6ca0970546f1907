package device

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dotside-studios/rfid-sfl/rfid"
)

// MockSession is a test Session holding tag frames in memory, keyed by
// upper-case hex UID.
//
// Example:
//
//	s := NewMockSession()
//	s.PutItem(uid, item)
//	r := NewReader(ChafonModel, s.Driver())
type MockSession struct {
	// Frames maps UID hex to the stored frame.
	Frames map[string][]byte

	// UIDs lists the tags in range in inventory order.
	UIDs [][]byte

	ProbeError     error
	InventoryError error
	ReadError      error
	WriteError     error

	// OpenError, if set, is returned by the driver from Driver().
	OpenError error

	// Opens counts successful Driver().Open calls.
	Opens int

	Closed bool

	// CallLog tracks all method calls for verification in tests
	CallLog []string

	mu sync.Mutex
}

// NewMockSession creates an empty MockSession.
func NewMockSession() *MockSession {
	return &MockSession{
		Frames:  make(map[string][]byte),
		CallLog: make([]string, 0),
	}
}

// PutFrame places a tag with a raw frame in range.
func (m *MockSession) PutFrame(uid, frame []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UIDs = append(m.UIDs, uid)
	m.Frames[fmt.Sprintf("%X", uid)] = frame
}

// PutItem places a tag holding the encoded item in range.
func (m *MockSession) PutItem(uid []byte, item *rfid.Item) {
	m.PutFrame(uid, rfid.Encode(item))
}

// Driver returns a Driver that opens this session.
func (m *MockSession) Driver() Driver {
	return DriverFunc(func() (Session, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.CallLog = append(m.CallLog, "Open")
		if m.OpenError != nil {
			return nil, m.OpenError
		}
		m.Opens++
		m.Closed = false
		return m, nil
	})
}

// Writes returns the number of Write calls.
func (m *MockSession) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.CallLog {
		if c == "Write" {
			n++
		}
	}
	return n
}

func (m *MockSession) Probe() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CallLog = append(m.CallLog, "Probe")
	return m.ProbeError
}

func (m *MockSession) Inventory() ([][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CallLog = append(m.CallLog, "Inventory")
	if m.InventoryError != nil {
		return nil, m.InventoryError
	}
	return m.UIDs, nil
}

func (m *MockSession) Read(uid []byte) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CallLog = append(m.CallLog, "Read")
	if m.ReadError != nil {
		return nil, m.ReadError
	}
	frame, ok := m.Frames[fmt.Sprintf("%X", uid)]
	if !ok {
		return nil, errors.New("mock: no tag")
	}
	return frame, nil
}

func (m *MockSession) Write(uid, frame []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CallLog = append(m.CallLog, "Write")
	if m.WriteError != nil {
		return m.WriteError
	}
	key := fmt.Sprintf("%X", uid)
	if _, ok := m.Frames[key]; !ok {
		return errors.New("mock: no tag")
	}
	m.Frames[key] = append([]byte(nil), frame...)
	return nil
}

func (m *MockSession) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CallLog = append(m.CallLog, "Close")
	m.Closed = true
	return nil
}

// MockDevice is a test Device with canned results.
type MockDevice struct {
	Caps      Capabilities
	Connected bool

	// ItemList is returned by Items when connected.
	ItemList []*rfid.Item

	// WriteFunc, if set, handles WriteTags; otherwise every write succeeds.
	WriteFunc func([]*rfid.Item) []WriteResult

	// Written collects every batch passed to WriteTags.
	Written [][]*rfid.Item

	// CallLog tracks all method calls for verification in tests
	CallLog []string

	mu sync.Mutex
}

// NewMockDevice creates a connected MockDevice.
func NewMockDevice(caps Capabilities) *MockDevice {
	return &MockDevice{Caps: caps, Connected: true, CallLog: make([]string, 0)}
}

func (m *MockDevice) Connect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CallLog = append(m.CallLog, "Connect")
}

func (m *MockDevice) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Connected
}

func (m *MockDevice) Capabilities() Capabilities { return m.Caps }

func (m *MockDevice) Items() []*rfid.Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CallLog = append(m.CallLog, "Items")
	if !m.Connected {
		return []*rfid.Item{}
	}
	return m.ItemList
}

func (m *MockDevice) WriteTags(items []*rfid.Item) []WriteResult {
	m.mu.Lock()
	m.CallLog = append(m.CallLog, "WriteTags")
	m.Written = append(m.Written, items)
	fn := m.WriteFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(items)
	}
	results := make([]WriteResult, len(items))
	for i, item := range items {
		results[i] = succeeded(item)
	}
	return results
}
