package device

import (
	"errors"
	"io"
	"sync"

	"github.com/dotside-studios/rfid-sfl/rfid"
)

// ErrDeviceNotFound is returned by Lookup for unknown device names.
var ErrDeviceNotFound = errors.New("device not found")

// Entry pairs a device with the guard that serialises access to it.
type Entry struct {
	name string
	mu   sync.Mutex
	dev  Device
}

// NewEntry wraps dev under the given display name.
func NewEntry(name string, dev Device) *Entry {
	return &Entry{name: name, dev: dev}
}

// Name returns the display name.
func (e *Entry) Name() string { return e.name }

// Use holds the guard, ensures the device is connected and runs fn.
func (e *Entry) Use(fn func(Device)) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.dev.Connect()
	fn(e.dev)
}

// Items reads the tags in range. connected is false when the device could
// not be reached.
func (e *Entry) Items() (items []*rfid.Item, connected bool) {
	e.Use(func(d Device) {
		connected = d.IsConnected()
		if connected {
			items = d.Items()
		}
	})
	return items, connected
}

// WriteTags writes the records with the guard held.
func (e *Entry) WriteTags(items []*rfid.Item) (results []WriteResult) {
	e.Use(func(d Device) {
		results = d.WriteTags(items)
	})
	return results
}

// Status describes one registry entry.
type Status struct {
	Name         string
	Capabilities Capabilities
	Connected    bool
}

// Status connects the device and reports its state.
func (e *Entry) Status() (s Status) {
	e.Use(func(d Device) {
		s = Status{Name: e.name, Capabilities: d.Capabilities(), Connected: d.IsConnected()}
	})
	return s
}

// Peek reports the device state under the guard without connecting. A
// reader that dropped off stays disconnected until the next request.
func (e *Entry) Peek() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Status{Name: e.name, Capabilities: e.dev.Capabilities(), Connected: e.dev.IsConnected()}
}

// Registry holds every device of the process, keyed by display name.
// Entries are fixed at construction.
//
// All methods are safe for concurrent use.
type Registry struct {
	entries map[string]*Entry
	order   []string
	logger  Logger
}

// NewRegistry builds a registry and makes a first connection attempt on
// every device. Entries with a duplicate name are ignored.
func NewRegistry(logger Logger, entries ...*Entry) *Registry {
	if logger == nil {
		logger = noopLogger{}
	}
	r := &Registry{
		entries: make(map[string]*Entry, len(entries)),
		logger:  logger,
	}
	for _, e := range entries {
		if _, dup := r.entries[e.name]; dup {
			logger.Warn("duplicate device name ignored", "device", e.name)
			continue
		}
		r.entries[e.name] = e
		r.order = append(r.order, e.name)
	}

	for _, name := range r.order {
		s := r.entries[name].Status()
		logger.Info("device registered", "device", name, "connected", s.Connected)
	}
	return r
}

// Lookup returns the entry with the given display name.
func (r *Registry) Lookup(name string) (*Entry, error) {
	e, ok := r.entries[name]
	if !ok {
		return nil, ErrDeviceNotFound
	}
	return e, nil
}

// Names returns the display names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// List returns the status of every device in registration order. Each
// device is connected under its own guard.
func (r *Registry) List() []Status {
	out := make([]Status, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name].Status())
	}
	return out
}

// Snapshot returns the last known status of every device in registration
// order. Unlike List it never connects, so it is safe to poll.
func (r *Registry) Snapshot() []Status {
	out := make([]Status, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name].Peek())
	}
	return out
}

// Close closes every device that holds an open session.
func (r *Registry) Close() error {
	var errs []error
	for _, name := range r.order {
		e := r.entries[name]
		e.mu.Lock()
		if c, ok := e.dev.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		e.mu.Unlock()
	}
	return errors.Join(errs...)
}
